package models

import "time"

// SecurityEvent is an audit record of an auth-relevant decision.
// Written best-effort to Kafka and ClickHouse; never blocks a request.
type SecurityEvent struct {
	EventType string    `json:"event_type" ch:"event_type"`
	Username  string    `json:"username,omitempty" ch:"username"`
	IP        string    `json:"ip,omitempty" ch:"ip"`
	UAHash    string    `json:"ua_hash,omitempty" ch:"ua_hash"`
	Outcome   string    `json:"outcome" ch:"outcome"`
	Detail    string    `json:"detail,omitempty" ch:"detail"`
	CreatedAt time.Time `json:"created_at" ch:"created_at"`
}

const (
	EventLogin           = "login"
	EventLogout          = "logout"
	EventTokenRefresh    = "token_refresh"
	EventAuthReject      = "auth_reject"
	EventRateLimitReject = "rate_limit_reject"
	EventGuestSubmission = "guest_submission"

	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)
