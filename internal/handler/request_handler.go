package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"repeater-directory/internal/captcha"
	"repeater-directory/internal/ratelimit"
	"repeater-directory/internal/service"
	"repeater-directory/internal/util"
)

// RequestHandler accepts anonymous guest suggestions. No bearer auth;
// the guest gate enforces CAPTCHA and the abuse limiter instead.
type RequestHandler struct {
	gate   *service.GuestGate
	logger *zap.Logger
}

func NewRequestHandler(gate *service.GuestGate, logger *zap.Logger) *RequestHandler {
	return &RequestHandler{gate: gate, logger: logger}
}

func (h *RequestHandler) RegisterRoutes(r chi.Router) {
	r.Post("/requests", h.CreateRequest)
}

func (h *RequestHandler) CreateRequest(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Name           string `json:"name"`
		Contact        string `json:"contact"`
		Message        string `json:"message"`
		Repeater       string `json:"repeater"`
		TurnstileToken string `json:"turnstileToken"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Invalid request body")
		return
	}

	result, err := h.gate.Submit(r.Context(), &service.Submission{
		Name:           body.Name,
		Contact:        body.Contact,
		Message:        body.Message,
		Repeater:       body.Repeater,
		TurnstileToken: body.TurnstileToken,
		SourceIP:       util.ClientIP(r),
	})
	if err != nil {
		h.writeSubmitFailure(w, err)
		return
	}

	writeJSON(w, http.StatusCreated, map[string]interface{}{
		"id":        result.ID.String(),
		"status":    result.Status,
		"rateLimit": result.RateLimit,
	})
}

func (h *RequestHandler) writeSubmitFailure(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, service.ErrInvalidSubmission):
		writeFailure(w, http.StatusBadRequest, KindSQL, "Name and contact are required")
	case errors.Is(err, captcha.ErrMisconfigured):
		h.logger.Error("Captcha verifier unavailable", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, KindTurnstile, "Verification is not available")
	case errors.Is(err, captcha.ErrVerificationFailed):
		writeFailure(w, http.StatusForbidden, KindTurnstile, "Captcha verification failed")
	case errors.Is(err, ratelimit.ErrRateLimited):
		writeFailure(w, http.StatusTooManyRequests, KindRateLimit, "Too many submissions, try again later")
	default:
		h.logger.Error("Guest submission failed", zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not store submission")
	}
}
