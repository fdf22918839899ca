package directory

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repeater-directory/internal/config"
)

func TestSuperadminMatchesNormalizedName(t *testing.T) {
	s := NewSuperadmin(config.SuperadminConfig{Username: "admin", Password: "hunter2"})

	assert.True(t, s.Matches("ADMIN"))
	assert.True(t, s.Matches("admin"))
	assert.True(t, s.Matches("  Admin  "))
	assert.False(t, s.Matches("ALICE"))
}

func TestSuperadminDisabledWithoutPassword(t *testing.T) {
	s := NewSuperadmin(config.SuperadminConfig{Username: "ADMIN", Password: ""})

	assert.False(t, s.Matches("ADMIN"))
	_, err := s.Authenticate(context.Background(), "ADMIN", "")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSuperadminAuthenticate(t *testing.T) {
	s := NewSuperadmin(config.SuperadminConfig{Username: "ADMIN", Password: "hunter2"})

	identity, err := s.Authenticate(context.Background(), "admin", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "ADMIN", identity.Username)
	assert.True(t, identity.Virtual)
	assert.True(t, identity.Enabled)
	assert.Equal(t, int64(1), identity.TokenVersion)

	_, err = s.Authenticate(context.Background(), "admin", "wrong")
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestSuperadminBumpTokenVersion(t *testing.T) {
	s := NewSuperadmin(config.SuperadminConfig{Username: "ADMIN", Password: "hunter2"})
	ctx := context.Background()

	identity, err := s.BumpTokenVersion(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, int64(2), identity.TokenVersion)

	identity, err = s.Lookup(ctx, "ADMIN")
	require.NoError(t, err)
	assert.Equal(t, int64(2), identity.TokenVersion)

	_, err = s.BumpTokenVersion(ctx, "NOBODY")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestCompositeRoutesByUsername(t *testing.T) {
	super := NewSuperadmin(config.SuperadminConfig{Username: "ADMIN", Password: "hunter2"})
	persisted := &stubDirectory{lookupErr: ErrNotFound}
	dir := NewComposite(super, persisted)
	ctx := context.Background()

	identity, err := dir.Lookup(ctx, "admin")
	require.NoError(t, err)
	assert.True(t, identity.Virtual)
	assert.Zero(t, persisted.lookups)

	_, err = dir.Lookup(ctx, "ALICE")
	assert.ErrorIs(t, err, ErrNotFound)
	assert.Equal(t, 1, persisted.lookups)
}

func TestCompositeShadowsPersistedRow(t *testing.T) {
	// A table row with the super-admin's name must never be consulted
	// while the virtual identity is active.
	super := NewSuperadmin(config.SuperadminConfig{Username: "ADMIN", Password: "hunter2"})
	persisted := &stubDirectory{identity: &Identity{Username: "ADMIN", Enabled: true, TokenVersion: 99}}
	dir := NewComposite(super, persisted)

	identity, err := dir.Authenticate(context.Background(), "ADMIN", "hunter2")
	require.NoError(t, err)
	assert.True(t, identity.Virtual)
	assert.Equal(t, int64(1), identity.TokenVersion)
	assert.Zero(t, persisted.authentications)
}
