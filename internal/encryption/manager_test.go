package encryption

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repeater-directory/internal/config"
)

func TestEncryptDecryptRoundTrip(t *testing.T) {
	m := NewManager(&config.Config{}, nil)
	ctx := context.Background()

	field, err := m.EncryptField(ctx, "max@example.com")
	require.NoError(t, err)
	assert.Equal(t, "local", field.KeyID)
	assert.NotContains(t, field.Ciphertext, "example.com")

	plain, err := m.DecryptField(ctx, field)
	require.NoError(t, err)
	assert.Equal(t, "max@example.com", plain)
}

func TestDecryptSurvivesCacheClear(t *testing.T) {
	m := NewManager(&config.Config{}, nil)
	ctx := context.Background()

	field, err := m.EncryptField(ctx, "secret value")
	require.NoError(t, err)

	m.ClearCache()
	plain, err := m.DecryptField(ctx, field)
	require.NoError(t, err)
	assert.Equal(t, "secret value", plain)
}

func TestDecryptRejectsTamperedCiphertext(t *testing.T) {
	m := NewManager(&config.Config{}, nil)
	ctx := context.Background()

	field, err := m.EncryptField(ctx, "secret value")
	require.NoError(t, err)
	m.ClearCache()

	field.Ciphertext = "AAAA" + field.Ciphertext[4:]
	_, err = m.DecryptField(ctx, field)
	assert.ErrorIs(t, err, ErrDecryptionFailed)
}

func TestFreshDataKeyPerField(t *testing.T) {
	m := NewManager(&config.Config{}, nil)
	ctx := context.Background()

	a, err := m.EncryptField(ctx, "same")
	require.NoError(t, err)
	b, err := m.EncryptField(ctx, "same")
	require.NoError(t, err)

	assert.NotEqual(t, a.EncryptedDEK, b.EncryptedDEK)
	assert.NotEqual(t, a.Ciphertext, b.Ciphertext)
}
