package token

import (
	"time"

	"repeater-directory/internal/config"
)

const (
	DefaultTTL         = 24 * time.Hour
	DefaultIdleTimeout = 2 * time.Hour

	minRefreshWindow = time.Minute
	maxRefreshWindow = 15 * time.Minute
)

// Policy computes session lifetimes. Pure computation, no I/O.
type Policy struct {
	TTL         time.Duration
	IdleTimeout time.Duration
}

// NewPolicy builds a policy from configuration, falling back to
// defaults when values are unset or non-positive.
func NewPolicy(cfg config.SessionConfig) Policy {
	p := Policy{TTL: cfg.TTL, IdleTimeout: cfg.IdleTimeout}
	if p.TTL <= 0 {
		p.TTL = DefaultTTL
	}
	if p.IdleTimeout <= 0 {
		p.IdleTimeout = DefaultIdleTimeout
	}
	return p
}

// RefreshWindow is the trailing slice of the idle window during which
// a token is silently reissued: IdleTimeout/4 clamped to [1m, 15m].
func (p Policy) RefreshWindow() time.Duration {
	w := p.IdleTimeout / 4
	if w < minRefreshWindow {
		w = minRefreshWindow
	}
	if w > maxRefreshWindow {
		w = maxRefreshWindow
	}
	return w
}

// NewClaims issues fresh claims for an identity. The idle deadline is
// clamped to the absolute one, so issued_at < idle_expires <= exp
// holds by construction.
func (p Policy) NewClaims(username string, tokenVersion int64, uaHash, device string, now time.Time) *Claims {
	exp := now.Add(p.TTL)
	idle := now.Add(p.IdleTimeout)
	if idle.After(exp) {
		idle = exp
	}
	return &Claims{
		Username:     username,
		TokenVersion: tokenVersion,
		IssuedAt:     now.UnixMilli(),
		ExpiresAt:    exp.UnixMilli(),
		IdleExpires:  idle.UnixMilli(),
		UAHash:       uaHash,
		Device:       device,
	}
}

// Refresh issues replacement claims preserving identity, version and
// pins, with lifetimes recomputed from now.
func (p Policy) Refresh(old *Claims, now time.Time) *Claims {
	return p.NewClaims(old.Username, old.TokenVersion, old.UAHash, old.Device, now)
}

// ShouldRefresh reports whether the token has entered the refresh
// window.
func (p Policy) ShouldRefresh(claims *Claims, now time.Time) bool {
	remaining := time.UnixMilli(claims.IdleExpires).Sub(now)
	return remaining <= p.RefreshWindow()
}
