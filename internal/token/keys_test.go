package token

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKeyProviderDerivesDeterministically(t *testing.T) {
	a := NewKeyProvider("same-secret")
	b := NewKeyProvider("same-secret")

	assert.Equal(t, a.Key(), b.Key())
	assert.Len(t, a.Key(), 32)
	assert.False(t, a.Ephemeral())

	// Repeated calls return the same slice content.
	assert.Equal(t, a.Key(), a.Key())
}

func TestKeyProviderDifferentSecrets(t *testing.T) {
	a := NewKeyProvider("secret-a")
	b := NewKeyProvider("secret-b")
	assert.NotEqual(t, a.Key(), b.Key())
}

func TestKeyProviderEphemeralFallback(t *testing.T) {
	a := NewKeyProvider("")
	b := NewKeyProvider("")

	assert.True(t, a.Ephemeral())
	assert.Len(t, a.Key(), 32)
	assert.NotEqual(t, a.Key(), b.Key())
}
