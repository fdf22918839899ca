package auth

import (
	"encoding/base64"
	"errors"
	"net/http"
	"strings"
	"time"

	"go.uber.org/zap"

	"repeater-directory/internal/audit"
	"repeater-directory/internal/config"
	"repeater-directory/internal/directory"
	"repeater-directory/internal/models"
	"repeater-directory/internal/token"
	"repeater-directory/internal/util"
)

// Handshake exchanges verified Basic credentials for a fresh session
// token.
type Handshake struct {
	dir    directory.Directory
	codec  *token.Codec
	policy token.Policy
	cfg    config.SessionConfig
	audit  *audit.Recorder
	logger *zap.Logger
}

func NewHandshake(dir directory.Directory, codec *token.Codec, policy token.Policy, cfg config.SessionConfig, rec *audit.Recorder, logger *zap.Logger) *Handshake {
	return &Handshake{dir: dir, codec: codec, policy: policy, cfg: cfg, audit: rec, logger: logger}
}

// LoginResult carries the issued token and the authenticated
// identity.
type LoginResult struct {
	Token    string
	Identity *directory.Identity
}

// Login runs the handshake. deviceID is the client-supplied opaque
// fingerprint (may be empty).
func (h *Handshake) Login(r *http.Request, deviceID string) (*LoginResult, *Denial) {
	if denial := h.checkTransport(r); denial != nil {
		return nil, denial
	}

	username, password, ok := decodeBasicAuth(r.Header.Get("Authorization"))
	if !ok {
		return nil, &Denial{
			Status:  http.StatusUnauthorized,
			Kind:    KindAuth,
			Message: "Basic authorization required",
		}
	}

	identity, err := h.dir.Authenticate(r.Context(), username, password)
	if err != nil {
		return nil, h.loginFailure(r, username, err)
	}

	uaHash := util.HashUserAgent(r.UserAgent())
	now := time.Now()

	// Login metadata is bookkeeping; a failed write must not block
	// the handshake.
	if err := h.dir.RecordLogin(r.Context(), identity.Username, deviceID, uaHash, now); err != nil {
		h.logger.Warn("Failed to record login metadata",
			zap.String("username", identity.Username), zap.Error(err))
	}

	claims := h.policy.NewClaims(identity.Username, identity.TokenVersion, uaHash, deviceID, now)
	signed, err := h.codec.Sign(claims)
	if err != nil {
		h.logger.Error("Failed to sign session token",
			zap.String("username", identity.Username), zap.Error(err))
		return nil, &Denial{
			Status:  http.StatusInternalServerError,
			Kind:    KindAuth,
			Message: "Could not issue session token",
		}
	}

	h.audit.Record(models.SecurityEvent{
		EventType: models.EventLogin,
		Username:  identity.Username,
		IP:        util.ClientIP(r),
		UAHash:    uaHash,
		Outcome:   models.OutcomeSuccess,
	})

	return &LoginResult{Token: signed, Identity: identity}, nil
}

// Logout bumps the identity's token version, invalidating every
// outstanding token on its next gate check.
func (h *Handshake) Logout(r *http.Request, username string) (*directory.Identity, *Denial) {
	identity, err := h.dir.BumpTokenVersion(r.Context(), username)
	if err != nil {
		if errors.Is(err, directory.ErrNotFound) {
			return nil, &Denial{
				Status:  http.StatusNotFound,
				Kind:    KindNotFound,
				Message: "User not found",
			}
		}
		h.logger.Error("Failed to revoke sessions",
			zap.String("username", username), zap.Error(err))
		return nil, &Denial{
			Status:  http.StatusUnprocessableEntity,
			Kind:    KindAuth,
			Message: "Could not revoke sessions",
		}
	}

	h.audit.Record(models.SecurityEvent{
		EventType: models.EventLogout,
		Username:  identity.Username,
		IP:        util.ClientIP(r),
		Outcome:   models.OutcomeSuccess,
	})
	return identity, nil
}

// checkTransport rejects plaintext logins, except from loopback and
// private ranges so local development keeps working.
func (h *Handshake) checkTransport(r *http.Request) *Denial {
	if !h.cfg.RequireHTTPS || util.IsSecureRequest(r) {
		return nil
	}
	if util.IsPrivateAddr(util.ClientIP(r)) {
		return nil
	}
	return &Denial{
		Status:  http.StatusForbidden,
		Kind:    KindHTTPS,
		Message: "HTTPS is required",
	}
}

func (h *Handshake) loginFailure(r *http.Request, username string, err error) *Denial {
	h.audit.Record(models.SecurityEvent{
		EventType: models.EventLogin,
		Username:  util.NormalizeUsername(username),
		IP:        util.ClientIP(r),
		Outcome:   models.OutcomeFailure,
		Detail:    err.Error(),
	})

	switch {
	case errors.Is(err, directory.ErrDisabled):
		return &Denial{Status: http.StatusForbidden, Kind: KindAuth, Message: "User disabled"}
	case errors.Is(err, directory.ErrNotFound):
		// Only reachable in inconsistent states; credentials checks
		// report ErrInvalidCredentials for unknown users.
		return &Denial{Status: http.StatusNotFound, Kind: KindNotFound, Message: "User not found"}
	case errors.Is(err, directory.ErrInvalidCredentials):
		return &Denial{Status: http.StatusUnauthorized, Kind: KindAuth, Message: "Invalid credentials"}
	default:
		h.logger.Error("Login failed on directory error", zap.Error(err))
		return &Denial{Status: http.StatusUnauthorized, Kind: KindAuth, Message: "Invalid credentials"}
	}
}

func decodeBasicAuth(header string) (username, password string, ok bool) {
	raw, found := strings.CutPrefix(header, "Basic ")
	if !found {
		return "", "", false
	}
	decoded, err := base64.StdEncoding.DecodeString(strings.TrimSpace(raw))
	if err != nil {
		return "", "", false
	}
	username, password, found = strings.Cut(string(decoded), ":")
	if !found || username == "" {
		return "", "", false
	}
	return username, password, true
}
