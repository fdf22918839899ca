package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"repeater-directory/internal/audit"
	"repeater-directory/internal/captcha"
	"repeater-directory/internal/encryption"
	"repeater-directory/internal/models"
	"repeater-directory/internal/ratelimit"
	"repeater-directory/internal/repository/scylla"
	"repeater-directory/internal/util"
)

var ErrInvalidSubmission = errors.New("invalid submission")

// Submission is one anonymous guest suggestion.
type Submission struct {
	Name           string
	Contact        string
	Message        string
	Repeater       string
	TurnstileToken string
	SourceIP       string
}

// SubmissionResult is returned to accepted guests.
type SubmissionResult struct {
	ID        uuid.UUID
	Status    string
	RateLimit models.RateLimitStatus
}

// GuestGate orchestrates the anonymous submission path: CAPTCHA,
// abuse limiter, then persistence. It runs entirely outside bearer
// auth.
type GuestGate struct {
	captcha  captcha.Verifier
	limiter  *ratelimit.Limiter
	requests scylla.RequestRepository
	crypto   *encryption.Manager
	audit    *audit.Recorder
	logger   *zap.Logger
}

func NewGuestGate(
	verifier captcha.Verifier,
	limiter *ratelimit.Limiter,
	requests scylla.RequestRepository,
	crypto *encryption.Manager,
	rec *audit.Recorder,
	logger *zap.Logger,
) *GuestGate {
	return &GuestGate{
		captcha:  verifier,
		limiter:  limiter,
		requests: requests,
		crypto:   crypto,
		audit:    rec,
		logger:   logger,
	}
}

// Submit accepts or rejects one guest suggestion.
//
// The limiter check and its hit record are a single atomic store
// operation, so the accept/reject decision comes from the same
// operation that charges the quota. If the insert fails afterwards
// the hit stays charged; better a lost slot than an unaccounted
// submission.
func (g *GuestGate) Submit(ctx context.Context, sub *Submission) (*SubmissionResult, error) {
	name := util.SanitizeInput(sub.Name)
	contact := util.NormalizeContact(sub.Contact)
	if name == "" || contact == "" {
		return nil, ErrInvalidSubmission
	}

	if err := g.captcha.Verify(ctx, sub.TurnstileToken, sub.SourceIP); err != nil {
		return nil, err
	}

	contactHash := util.HashContact(contact)
	status, err := g.limiter.Allow(ctx, contactHash, sub.SourceIP)
	if err != nil {
		if errors.Is(err, ratelimit.ErrRateLimited) {
			g.audit.Record(models.SecurityEvent{
				EventType: models.EventRateLimitReject,
				IP:        sub.SourceIP,
				Outcome:   models.OutcomeFailure,
			})
		}
		return nil, err
	}

	sealed, err := g.crypto.EncryptField(ctx, contact)
	if err != nil {
		return nil, fmt.Errorf("encrypt contact: %w", err)
	}

	req := &models.GuestRequest{
		ID:               uuid.New(),
		Name:             name,
		ContactHash:      contactHash,
		ContactEncrypted: sealed.EncryptedDEK + ":" + sealed.Ciphertext,
		ContactKeyID:     sealed.KeyID,
		Message:          util.SanitizeInput(sub.Message),
		Repeater:         util.SanitizeInput(sub.Repeater),
		Status:           models.RequestStatusPending,
		SourceIP:         sub.SourceIP,
	}
	if err := g.requests.InsertRequest(ctx, req); err != nil {
		return nil, fmt.Errorf("store guest request: %w", err)
	}

	g.audit.Record(models.SecurityEvent{
		EventType: models.EventGuestSubmission,
		IP:        sub.SourceIP,
		Outcome:   models.OutcomeSuccess,
		Detail:    req.ID.String(),
	})

	return &SubmissionResult{
		ID:        req.ID,
		Status:    req.Status,
		RateLimit: *status,
	}, nil
}
