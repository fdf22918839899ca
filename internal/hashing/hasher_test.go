package hashing

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"repeater-directory/internal/config"
)

func testHasher(pepper string) *Hasher {
	return NewHasher(&config.Config{
		Hashing: config.HashingConfig{
			Argon2MemoryCost:  8 * 1024, // keep tests fast
			Argon2TimeCost:    1,
			Argon2Parallelism: 1,
			Pepper:            pepper,
		},
	})
}

func TestHashAndVerify(t *testing.T) {
	h := testHasher("")

	encoded, err := h.HashPassword("correct horse battery staple")
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(encoded, "$argon2id$"))

	ok, err := h.VerifyPassword("correct horse battery staple", encoded)
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = h.VerifyPassword("wrong password", encoded)
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestHashesAreSalted(t *testing.T) {
	h := testHasher("")

	a, err := h.HashPassword("same")
	require.NoError(t, err)
	b, err := h.HashPassword("same")
	require.NoError(t, err)
	assert.NotEqual(t, a, b)
}

func TestPepperChangesVerification(t *testing.T) {
	withPepper := testHasher("pepper-1")
	encoded, err := withPepper.HashPassword("pw")
	require.NoError(t, err)

	// Same parameters, different pepper: must not verify.
	otherPepper := testHasher("pepper-2")
	ok, err := otherPepper.VerifyPassword("pw", encoded)
	require.NoError(t, err)
	assert.False(t, ok)

	// Same pepper across instances: must verify. Hashes have to
	// survive process restarts.
	samePepper := testHasher("pepper-1")
	ok, err = samePepper.VerifyPassword("pw", encoded)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestVerifyRejectsMalformedHash(t *testing.T) {
	h := testHasher("")

	for _, encoded := range []string{"", "plaintext", "$bcrypt$x$y$z$w", "$argon2id$v=19$m=8,t=1,p=1$!!$!!"} {
		_, err := h.VerifyPassword("pw", encoded)
		assert.ErrorIs(t, err, ErrInvalidHash, "input %q", encoded)
	}
}
