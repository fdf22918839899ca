package handler

import (
	"encoding/json"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"repeater-directory/internal/auth"
)

// AuthHandler exposes the login handshake and logout.
type AuthHandler struct {
	handshake *auth.Handshake
	logger    *zap.Logger
}

func NewAuthHandler(handshake *auth.Handshake, logger *zap.Logger) *AuthHandler {
	return &AuthHandler{handshake: handshake, logger: logger}
}

func (h *AuthHandler) RegisterRoutes(r chi.Router) {
	r.Post("/admin/login", h.Login)
	r.Post("/admin/logout", h.Logout)
}

// Login exchanges Basic credentials for a session token. The optional
// device fingerprint is read from the body first, falling back to the
// X-Device-Id header.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var body struct {
		DeviceID string `json:"deviceId"`
	}
	// The body is optional; a decode error just means no fingerprint.
	_ = json.NewDecoder(r.Body).Decode(&body)

	deviceID := body.DeviceID
	if deviceID == "" {
		deviceID = r.Header.Get("X-Device-Id")
	}

	result, denial := h.handshake.Login(r, deviceID)
	if denial != nil {
		writeDenial(w, denial)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"token":    result.Token,
		"username": result.Identity.Username,
	})
}

// Logout revokes every outstanding session of the caller by bumping
// their token version.
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	username := auth.UsernameFrom(r.Context())
	if username == "" {
		writeFailure(w, http.StatusUnauthorized, KindAuth, "Bearer authorization required")
		return
	}

	identity, denial := h.handshake.Logout(r, username)
	if denial != nil {
		writeDenial(w, denial)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": identity.Username,
		"revoked":  true,
	})
}
