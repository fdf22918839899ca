package directory

import (
	"context"
	"time"
)

// Composite routes each call to the super-admin or the persisted
// directory based on the username, so call sites never branch on who
// the identity is.
type Composite struct {
	superadmin *Superadmin
	persisted  Directory
}

func NewComposite(superadmin *Superadmin, persisted Directory) *Composite {
	return &Composite{superadmin: superadmin, persisted: persisted}
}

func (c *Composite) pick(username string) Directory {
	if c.superadmin != nil && c.superadmin.Matches(username) {
		return c.superadmin
	}
	return c.persisted
}

func (c *Composite) Lookup(ctx context.Context, username string) (*Identity, error) {
	return c.pick(username).Lookup(ctx, username)
}

func (c *Composite) Authenticate(ctx context.Context, username, password string) (*Identity, error) {
	return c.pick(username).Authenticate(ctx, username, password)
}

func (c *Composite) RecordLogin(ctx context.Context, username, device, uaHash string, at time.Time) error {
	return c.pick(username).RecordLogin(ctx, username, device, uaHash, at)
}

func (c *Composite) BumpTokenVersion(ctx context.Context, username string) (*Identity, error) {
	return c.pick(username).BumpTokenVersion(ctx, username)
}
