package captcha

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"repeater-directory/internal/config"
)

var (
	// ErrVerificationFailed means the challenge token was rejected.
	ErrVerificationFailed = errors.New("captcha verification failed")
	// ErrMisconfigured means verification could not run at all; the
	// caller must fail the submission, not wave it through.
	ErrMisconfigured = errors.New("captcha verifier misconfigured")
)

// Verifier checks a client-solved challenge token.
type Verifier interface {
	Verify(ctx context.Context, token, remoteIP string) error
}

// Turnstile verifies tokens against the Cloudflare siteverify
// endpoint.
type Turnstile struct {
	secret    string
	verifyURL string
	client    *http.Client
	logger    *zap.Logger
}

func NewTurnstile(cfg config.TurnstileConfig, logger *zap.Logger) *Turnstile {
	return &Turnstile{
		secret:    cfg.Secret,
		verifyURL: cfg.VerifyURL,
		client:    &http.Client{Timeout: 10 * time.Second},
		logger:    logger,
	}
}

func (t *Turnstile) Verify(ctx context.Context, token, remoteIP string) error {
	if t.secret == "" {
		return ErrMisconfigured
	}
	if token == "" {
		return ErrVerificationFailed
	}

	form := url.Values{}
	form.Set("secret", t.secret)
	form.Set("response", token)
	if remoteIP != "" {
		form.Set("remoteip", remoteIP)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.verifyURL,
		strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %v", ErrMisconfigured, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	res, err := t.client.Do(req)
	if err != nil {
		return fmt.Errorf("turnstile request failed: %w", err)
	}
	defer res.Body.Close()

	var body struct {
		Success    bool     `json:"success"`
		ErrorCodes []string `json:"error-codes"`
	}
	if err := json.NewDecoder(res.Body).Decode(&body); err != nil {
		return fmt.Errorf("turnstile response decode failed: %w", err)
	}

	if !body.Success {
		t.logger.Info("Turnstile rejected token",
			zap.Strings("error_codes", body.ErrorCodes))
		return ErrVerificationFailed
	}
	return nil
}
