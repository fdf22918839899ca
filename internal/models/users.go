package models

import "time"

// User is a directory row for a provisioned admin. The virtual
// super-admin never has a row; see directory.Superadmin.
type User struct {
	Username        string    `json:"username" db:"username"`
	PasswordHash    string    `json:"-" db:"password_hash"`
	Enabled         bool      `json:"enabled" db:"enabled"`
	TokenVersion    int64     `json:"-" db:"token_version"`
	CreatedAt       time.Time `json:"createdAt" db:"created_at"`
	UpdatedAt       time.Time `json:"updatedAt" db:"updated_at"`
	LastLogin       time.Time `json:"lastLogin,omitempty" db:"last_login"`
	LastLoginDevice string    `json:"lastLoginDevice,omitempty" db:"last_login_device"`
	LastLoginUA     string    `json:"-" db:"last_login_ua"`
}
