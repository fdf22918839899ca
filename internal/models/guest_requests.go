package models

import (
	"time"

	"github.com/google/uuid"
)

// GuestRequest is an anonymous repeater suggestion waiting for admin
// review. The raw contact never hits disk: only its one-way hash (for
// rate limiting) and its envelope-encrypted form (for replying) do.
type GuestRequest struct {
	Bucket           int       `json:"-" db:"request_bucket"`
	ID               uuid.UUID `json:"id" db:"request_id"`
	Name             string    `json:"name" db:"name"`
	ContactHash      string    `json:"-" db:"contact_hash"`
	ContactEncrypted string    `json:"-" db:"contact_encrypted"`
	ContactKeyID     string    `json:"-" db:"contact_key_id"`
	Message          string    `json:"message,omitempty" db:"message"`
	Repeater         string    `json:"repeater,omitempty" db:"repeater"`
	Status           string    `json:"status" db:"status"`
	SourceIP         string    `json:"-" db:"source_ip"`
	CreatedAt        time.Time `json:"createdAt" db:"created_at"`
}

const (
	RequestStatusPending  = "pending"
	RequestStatusApproved = "approved"
	RequestStatusRejected = "rejected"
)
