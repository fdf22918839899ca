package util

import (
	"crypto/sha256"
	"encoding/hex"
	"strconv"

	"github.com/spaolacci/murmur3"
)

// HashUserAgent produces a short, stable fingerprint of a User-Agent
// string for token pinning. Not a security boundary; murmur3 keeps it
// cheap and compact.
func HashUserAgent(ua string) string {
	if ua == "" {
		return ""
	}
	return strconv.FormatUint(murmur3.Sum64([]byte(ua)), 16)
}

// HashContact one-way hashes a normalized contact string. Rate-limit
// hits are keyed by this hash so the ledger never stores the raw
// contact.
func HashContact(contact string) string {
	sum := sha256.Sum256([]byte(NormalizeContact(contact)))
	return hex.EncodeToString(sum[:])
}
