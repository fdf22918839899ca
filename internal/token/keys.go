package token

import (
	"crypto/rand"
	"crypto/sha256"
	"sync"

	"repeater-directory/internal/util"
)

// KeyProvider derives the HMAC signing key exactly once per process.
// With no configured secret it falls back to an ephemeral random key:
// every previously issued token becomes invalid after a restart. That
// is an operational hazard, not a security boundary, and it is logged
// loudly so operators notice.
type KeyProvider struct {
	secret    string
	once      sync.Once
	key       []byte
	ephemeral bool
}

func NewKeyProvider(secret string) *KeyProvider {
	return &KeyProvider{secret: secret}
}

// Key returns the derived signing key. Safe for concurrent first
// access.
func (p *KeyProvider) Key() []byte {
	p.once.Do(p.derive)
	return p.key
}

// Ephemeral reports whether the key was generated instead of derived
// from configuration.
func (p *KeyProvider) Ephemeral() bool {
	p.once.Do(p.derive)
	return p.ephemeral
}

func (p *KeyProvider) derive() {
	if p.secret == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			util.Fatal("Failed to generate ephemeral signing key", util.ErrorField(err))
		}
		p.key = key
		p.ephemeral = true
		util.Warn("SIGNING_SECRET is not configured; generated an ephemeral signing key. " +
			"All session tokens will be invalidated on restart.")
		return
	}
	sum := sha256.Sum256([]byte(p.secret))
	p.key = sum[:]
}
