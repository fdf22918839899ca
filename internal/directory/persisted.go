package directory

import (
	"context"
	"errors"
	"fmt"
	"time"

	"repeater-directory/internal/hashing"
	"repeater-directory/internal/models"
	"repeater-directory/internal/repository/scylla"
)

// Persisted resolves identities from the users table.
type Persisted struct {
	repo   scylla.UserRepository
	hasher *hashing.Hasher
}

func NewPersisted(repo scylla.UserRepository, hasher *hashing.Hasher) *Persisted {
	return &Persisted{repo: repo, hasher: hasher}
}

func (p *Persisted) Lookup(ctx context.Context, username string) (*Identity, error) {
	user, err := p.repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("directory lookup: %w", err)
	}
	return identityOf(user), nil
}

func (p *Persisted) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	user, err := p.repo.GetUser(ctx, username)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			// Indistinguishable from a wrong password on purpose.
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("directory authenticate: %w", err)
	}

	ok, err := p.hasher.VerifyPassword(password, user.PasswordHash)
	if err != nil || !ok {
		return nil, ErrInvalidCredentials
	}
	if !user.Enabled {
		return nil, ErrDisabled
	}
	return identityOf(user), nil
}

func (p *Persisted) RecordLogin(ctx context.Context, username, device, uaHash string, at time.Time) error {
	return p.repo.RecordLogin(ctx, username, device, uaHash, at)
}

func (p *Persisted) BumpTokenVersion(ctx context.Context, username string) (*Identity, error) {
	next, err := p.repo.BumpTokenVersion(ctx, username)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	user, err := p.repo.GetUser(ctx, username)
	if err != nil {
		return nil, fmt.Errorf("directory reload after bump: %w", err)
	}
	user.TokenVersion = next
	return identityOf(user), nil
}

func identityOf(user *models.User) *Identity {
	return &Identity{
		Username:     user.Username,
		Enabled:      user.Enabled,
		TokenVersion: user.TokenVersion,
		User:         user,
	}
}
