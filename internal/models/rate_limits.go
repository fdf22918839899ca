package models

import "time"

// RateLimitHit is one entry in the submission hit ledger. Ephemeral,
// pruned by age; no foreign keys.
type RateLimitHit struct {
	ContactHash string    `db:"contact_hash"`
	IP          string    `db:"ip"`
	Created     time.Time `db:"created"`
}

// RateLimitCounts carries the current window tallies for a submission
// attempt.
type RateLimitCounts struct {
	ByContact int `json:"byContact"`
	ByIP      int `json:"byIp"`
}

// RateLimitStatus is echoed to accepted guests so clients can back off
// before hitting the limit.
type RateLimitStatus struct {
	Limit         int `json:"limit"`
	Remaining     int `json:"remaining"`
	WindowMinutes int `json:"windowMinutes"`
}
