package token

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrInvalidToken     = errors.New("invalid token")
	ErrInvalidSignature = errors.New("invalid token signature")
	ErrInvalidPayload   = errors.New("invalid token payload")
)

// Claims is the session token payload. All timestamps are epoch
// milliseconds. UAHash and Device are optional pins: AuthGate compares
// them only when present.
type Claims struct {
	Username     string `json:"username"`
	TokenVersion int64  `json:"token_version"`
	IssuedAt     int64  `json:"issued_at"`
	ExpiresAt    int64  `json:"exp"`
	IdleExpires  int64  `json:"idle_expires"`
	UAHash       string `json:"ua,omitempty"`
	Device       string `json:"device,omitempty"`
}

// jwt.Claims implementation. Expiry validation is disabled at parse
// time (idle expiry is ours to enforce), so these exist only to
// satisfy the interface.
func (c *Claims) GetExpirationTime() (*jwt.NumericDate, error) {
	if c.ExpiresAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.UnixMilli(c.ExpiresAt)), nil
}

func (c *Claims) GetIssuedAt() (*jwt.NumericDate, error) {
	if c.IssuedAt == 0 {
		return nil, nil
	}
	return jwt.NewNumericDate(time.UnixMilli(c.IssuedAt)), nil
}

func (c *Claims) GetNotBefore() (*jwt.NumericDate, error) { return nil, nil }
func (c *Claims) GetIssuer() (string, error)              { return "", nil }
func (c *Claims) GetSubject() (string, error)             { return c.Username, nil }
func (c *Claims) GetAudience() (jwt.ClaimStrings, error)  { return nil, nil }

// Codec signs and verifies session tokens with HS256. Revocation is
// not consulted here: it lives entirely in the token_version check
// against the directory.
type Codec struct {
	keys   *KeyProvider
	parser *jwt.Parser
}

func NewCodec(keys *KeyProvider) *Codec {
	return &Codec{
		keys: keys,
		parser: jwt.NewParser(
			jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
			jwt.WithoutClaimsValidation(),
		),
	}
}

// Sign serializes the claims into a compact signed token.
func (c *Codec) Sign(claims *Claims) (string, error) {
	tok := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := tok.SignedString(c.keys.Key())
	if err != nil {
		return "", fmt.Errorf("sign session token: %w", err)
	}
	return signed, nil
}

// Verify checks structure and signature and returns the decoded
// claims. It does not check expiry; the gate owns the exp/idle and
// version decisions.
func (c *Codec) Verify(raw string) (*Claims, error) {
	if strings.Count(raw, ".") != 2 {
		return nil, ErrInvalidToken
	}

	claims := &Claims{}
	_, err := c.parser.ParseWithClaims(raw, claims, func(t *jwt.Token) (interface{}, error) {
		return c.keys.Key(), nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenSignatureInvalid), errors.Is(err, jwt.ErrSignatureInvalid):
			return nil, ErrInvalidSignature
		case errors.Is(err, jwt.ErrTokenUnverifiable):
			return nil, ErrInvalidSignature
		default:
			return nil, ErrInvalidPayload
		}
	}

	if claims.Username == "" || claims.TokenVersion < 1 {
		return nil, ErrInvalidPayload
	}
	return claims, nil
}
