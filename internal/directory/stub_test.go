package directory

import (
	"context"
	"time"
)

// stubDirectory counts calls and serves a single canned identity.
type stubDirectory struct {
	identity  *Identity
	lookupErr error
	authErr   error

	lookups         int
	authentications int
}

func (s *stubDirectory) Lookup(ctx context.Context, username string) (*Identity, error) {
	s.lookups++
	if s.lookupErr != nil {
		return nil, s.lookupErr
	}
	return s.identity, nil
}

func (s *stubDirectory) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	s.authentications++
	if s.authErr != nil {
		return nil, s.authErr
	}
	return s.identity, nil
}

func (s *stubDirectory) RecordLogin(ctx context.Context, username, device, uaHash string, at time.Time) error {
	return nil
}

func (s *stubDirectory) BumpTokenVersion(ctx context.Context, username string) (*Identity, error) {
	if s.identity == nil {
		return nil, ErrNotFound
	}
	s.identity.TokenVersion++
	return s.identity, nil
}
