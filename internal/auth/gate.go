package auth

import (
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"repeater-directory/internal/audit"
	"repeater-directory/internal/directory"
	"repeater-directory/internal/models"
	"repeater-directory/internal/token"
	"repeater-directory/internal/util"
)

// Denial is a resolved auth failure, propagated as data up to the
// response writer.
type Denial struct {
	Status  int
	Kind    string
	Message string
}

const (
	KindAuth     = "AUTH"
	KindHTTPS    = "HTTPS"
	KindNotFound = "NOTFOUND"
)

// Decision is a successful gate pass. RefreshedToken is set when the
// session entered the refresh window; the caller emits it via the
// X-New-JWT header, and the client is responsible for adopting it.
type Decision struct {
	Username       string
	Claims         *token.Claims
	RefreshedToken string
}

// Gate validates bearer credentials against the token codec and the
// live directory state. Stateless apart from the directory reads: no
// session table, no blacklist.
type Gate struct {
	codec  *token.Codec
	policy token.Policy
	dir    directory.Directory
	audit  *audit.Recorder
	logger *zap.Logger
}

func NewGate(codec *token.Codec, policy token.Policy, dir directory.Directory, rec *audit.Recorder, logger *zap.Logger) *Gate {
	return &Gate{codec: codec, policy: policy, dir: dir, audit: rec, logger: logger}
}

// Check runs the bearer state machine for one request.
func (g *Gate) Check(r *http.Request) (*Decision, *Denial) {
	header := r.Header.Get("Authorization")
	if header == "" {
		return nil, g.deny(r, http.StatusUnauthorized, "Bearer authorization required")
	}

	raw, ok := strings.CutPrefix(header, "Bearer ")
	if !ok || strings.TrimSpace(raw) == "" {
		return nil, g.deny(r, http.StatusUnauthorized, "Malformed authorization header")
	}
	raw = strings.TrimSpace(raw)

	claims, err := g.codec.Verify(raw)
	if err != nil {
		switch {
		case errors.Is(err, token.ErrInvalidSignature):
			return nil, g.deny(r, http.StatusUnauthorized, "Invalid token signature")
		case errors.Is(err, token.ErrInvalidToken):
			return nil, g.deny(r, http.StatusUnauthorized, "Invalid token")
		default:
			return nil, g.deny(r, http.StatusUnauthorized, "Invalid token payload")
		}
	}

	now := time.Now()
	if now.UnixMilli() >= claims.ExpiresAt {
		return nil, g.deny(r, http.StatusUnauthorized, "Session expired")
	}
	if now.UnixMilli() >= claims.IdleExpires {
		return nil, g.deny(r, http.StatusUnauthorized, "Session expired")
	}

	identity, err := g.dir.Lookup(r.Context(), claims.Username)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, g.deny(r, http.StatusUnauthorized, "Unknown session identity")
		}
		g.logger.Error("Directory lookup failed during auth",
			zap.String("username", claims.Username), zap.Error(err))
		return nil, g.deny(r, http.StatusUnauthorized, "Session could not be verified")
	}

	if !identity.Enabled {
		return nil, g.deny(r, http.StatusForbidden, "User disabled")
	}
	if claims.TokenVersion != identity.TokenVersion {
		return nil, g.deny(r, http.StatusUnauthorized, "Session revoked")
	}

	// Pins are checked only when the token carries them.
	if claims.UAHash != "" && claims.UAHash != util.HashUserAgent(r.UserAgent()) {
		return nil, g.deny(r, http.StatusUnauthorized, "Session bound to a different client")
	}
	if device := r.Header.Get("X-Device-Id"); claims.Device != "" && device != "" && device != claims.Device {
		return nil, g.deny(r, http.StatusUnauthorized, "Session bound to a different device")
	}

	decision := &Decision{Username: identity.Username, Claims: claims}

	if g.policy.ShouldRefresh(claims, now) {
		refreshed, err := g.codec.Sign(g.policy.Refresh(claims, now))
		if err != nil {
			// The current token is still valid; skip the refresh
			// rather than failing the request.
			g.logger.Error("Failed to sign refreshed token",
				zap.String("username", identity.Username), zap.Error(err))
		} else {
			decision.RefreshedToken = refreshed
			g.audit.Record(models.SecurityEvent{
				EventType: models.EventTokenRefresh,
				Username:  identity.Username,
				IP:        util.ClientIP(r),
				Outcome:   models.OutcomeSuccess,
			})
		}
	}

	return decision, nil
}

func (g *Gate) deny(r *http.Request, status int, message string) *Denial {
	g.audit.Record(models.SecurityEvent{
		EventType: models.EventAuthReject,
		IP:        util.ClientIP(r),
		UAHash:    util.HashUserAgent(r.UserAgent()),
		Outcome:   models.OutcomeFailure,
		Detail:    message,
	})
	return &Denial{Status: status, Kind: KindAuth, Message: message}
}
