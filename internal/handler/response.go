package handler

import (
	"encoding/json"
	"net/http"

	"repeater-directory/internal/auth"
	"repeater-directory/internal/util"

	"go.uber.org/zap"
)

// Error kinds carried in failure payloads, keyed under "errors".
const (
	KindAuth      = auth.KindAuth
	KindHTTPS     = auth.KindHTTPS
	KindNotFound  = auth.KindNotFound
	KindTurnstile = "TURNSTILE"
	KindRateLimit = "RATELIMIT"
	KindSQL       = "SQL"
)

// FailurePayload is the error envelope every endpoint emits. Clients
// switch on the kind key, not on the message text.
type FailurePayload struct {
	Failure bool              `json:"failure"`
	Errors  map[string]string `json:"errors"`
	Code    int               `json:"code"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		util.Error("Failed to encode response", zap.Error(err))
	}
}

func writeFailure(w http.ResponseWriter, status int, kind, message string) {
	writeJSON(w, status, FailurePayload{
		Failure: true,
		Errors:  map[string]string{kind: message},
		Code:    status,
	})
}

func writeDenial(w http.ResponseWriter, d *auth.Denial) {
	writeFailure(w, d.Status, d.Kind, d.Message)
}
