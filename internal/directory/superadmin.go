package directory

import (
	"context"
	"crypto/subtle"
	"sync/atomic"
	"time"

	"repeater-directory/internal/config"
	"repeater-directory/internal/util"
)

// Superadmin is the virtual identity backed by an environment secret
// instead of a table row. Its token version lives only in process
// memory and resets to 1 on restart: tokens revoked before a restart
// become valid again. Legacy behavior, kept on purpose.
type Superadmin struct {
	username string
	password string
	version  atomic.Int64
}

func NewSuperadmin(cfg config.SuperadminConfig) *Superadmin {
	s := &Superadmin{
		username: util.NormalizeUsername(cfg.Username),
		password: cfg.Password,
	}
	s.version.Store(1)
	return s
}

// Matches reports whether the username selects this identity. An
// unset password disables the super-admin entirely.
func (s *Superadmin) Matches(username string) bool {
	return s.password != "" && util.NormalizeUsername(username) == s.username
}

func (s *Superadmin) Lookup(ctx context.Context, username string) (*Identity, error) {
	if !s.Matches(username) {
		return nil, ErrNotFound
	}
	return s.identity(), nil
}

func (s *Superadmin) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	if !s.Matches(username) {
		return nil, ErrNotFound
	}
	if subtle.ConstantTimeCompare([]byte(password), []byte(s.password)) != 1 {
		return nil, ErrInvalidCredentials
	}
	return s.identity(), nil
}

// RecordLogin is a no-op: there is no row to update.
func (s *Superadmin) RecordLogin(ctx context.Context, username, device, uaHash string, at time.Time) error {
	return nil
}

func (s *Superadmin) BumpTokenVersion(ctx context.Context, username string) (*Identity, error) {
	if !s.Matches(username) {
		return nil, ErrNotFound
	}
	s.version.Add(1)
	return s.identity(), nil
}

func (s *Superadmin) identity() *Identity {
	return &Identity{
		Username:     s.username,
		Enabled:      true,
		TokenVersion: s.version.Load(),
		Virtual:      true,
	}
}
