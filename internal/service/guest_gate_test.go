package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"repeater-directory/internal/audit"
	"repeater-directory/internal/captcha"
	"repeater-directory/internal/config"
	"repeater-directory/internal/encryption"
	"repeater-directory/internal/models"
	"repeater-directory/internal/ratelimit"
	"repeater-directory/internal/util"
)

type fakeVerifier struct {
	err   error
	calls int
}

func (f *fakeVerifier) Verify(ctx context.Context, token, remoteIP string) error {
	f.calls++
	return f.err
}

type fakeRequestRepo struct {
	inserted []*models.GuestRequest
	err      error
}

func (f *fakeRequestRepo) InsertRequest(ctx context.Context, req *models.GuestRequest) error {
	if f.err != nil {
		return f.err
	}
	f.inserted = append(f.inserted, req)
	return nil
}

type fakeStore struct {
	allowed    bool
	counts     models.RateLimitCounts
	reserveErr error
	reserved   int
}

func (f *fakeStore) Prune(ctx context.Context, window time.Duration) error { return nil }

func (f *fakeStore) Count(ctx context.Context, contactHash, ip string, window time.Duration) (models.RateLimitCounts, error) {
	return f.counts, nil
}

func (f *fakeStore) RecordHit(ctx context.Context, contactHash, ip string, window time.Duration) error {
	return nil
}

func (f *fakeStore) Reserve(ctx context.Context, contactHash, ip string, limit int, window time.Duration) (bool, models.RateLimitCounts, error) {
	f.reserved++
	return f.allowed, f.counts, f.reserveErr
}

type gateFixture struct {
	gate     *GuestGate
	verifier *fakeVerifier
	store    *fakeStore
	repo     *fakeRequestRepo
}

func newGateFixture(t *testing.T) *gateFixture {
	t.Helper()
	verifier := &fakeVerifier{}
	store := &fakeStore{allowed: true, counts: models.RateLimitCounts{ByContact: 1, ByIP: 1}}
	repo := &fakeRequestRepo{}
	limiter := ratelimit.NewLimiter(store, config.RateLimitConfig{SubmissionLimit: 5, WindowMinutes: 60}, zap.NewNop())
	crypto := encryption.NewManager(&config.Config{}, nil)
	rec := audit.NewRecorder(nil, nil, zap.NewNop())
	t.Cleanup(rec.Close)

	return &gateFixture{
		gate:     NewGuestGate(verifier, limiter, repo, crypto, rec, zap.NewNop()),
		verifier: verifier,
		store:    store,
		repo:     repo,
	}
}

func validSubmission() *Submission {
	return &Submission{
		Name:           "Max Mustermann",
		Contact:        "Max@Example.COM",
		Message:        "Please add our club repeater",
		Repeater:       "DB0ABC",
		TurnstileToken: "tok-123",
		SourceIP:       "203.0.113.9",
	}
}

func TestSubmitStoresRequest(t *testing.T) {
	f := newGateFixture(t)

	result, err := f.gate.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, models.RequestStatusPending, result.Status)
	assert.Equal(t, 5, result.RateLimit.Limit)
	assert.Equal(t, 4, result.RateLimit.Remaining)

	require.Len(t, f.repo.inserted, 1)
	stored := f.repo.inserted[0]
	assert.Equal(t, result.ID, stored.ID)
	assert.Equal(t, util.HashContact("max@example.com"), stored.ContactHash)
	assert.NotContains(t, stored.ContactEncrypted, "example.com", "contact must not be stored in clear")
	assert.Equal(t, "local", stored.ContactKeyID)
	assert.Equal(t, "203.0.113.9", stored.SourceIP)
}

func TestSubmitRejectsMissingFields(t *testing.T) {
	f := newGateFixture(t)
	ctx := context.Background()

	sub := validSubmission()
	sub.Name = "   "
	_, err := f.gate.Submit(ctx, sub)
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	sub = validSubmission()
	sub.Contact = ""
	_, err = f.gate.Submit(ctx, sub)
	assert.ErrorIs(t, err, ErrInvalidSubmission)

	// Neither check consumed a CAPTCHA verification or a rate slot.
	assert.Zero(t, f.verifier.calls)
	assert.Zero(t, f.store.reserved)
}

func TestSubmitCaptchaFailureBlocksEverything(t *testing.T) {
	f := newGateFixture(t)
	f.verifier.err = captcha.ErrVerificationFailed

	_, err := f.gate.Submit(context.Background(), validSubmission())
	assert.ErrorIs(t, err, captcha.ErrVerificationFailed)
	assert.Zero(t, f.store.reserved, "rate slot must not be charged on captcha failure")
	assert.Empty(t, f.repo.inserted)
}

func TestSubmitRateLimited(t *testing.T) {
	f := newGateFixture(t)
	f.store.allowed = false
	f.store.counts = models.RateLimitCounts{ByContact: 5, ByIP: 2}

	_, err := f.gate.Submit(context.Background(), validSubmission())
	assert.ErrorIs(t, err, ratelimit.ErrRateLimited)
	assert.Empty(t, f.repo.inserted)
}

func TestSubmitAccountingFailureBlocksAccept(t *testing.T) {
	f := newGateFixture(t)
	f.store.reserveErr = errors.New("redis down")

	_, err := f.gate.Submit(context.Background(), validSubmission())
	require.Error(t, err)
	assert.NotErrorIs(t, err, ratelimit.ErrRateLimited)
	assert.Empty(t, f.repo.inserted, "submission must not be accepted without accounting")
}

func TestSubmitInsertFailure(t *testing.T) {
	f := newGateFixture(t)
	f.repo.err = errors.New("scylla down")

	_, err := f.gate.Submit(context.Background(), validSubmission())
	require.Error(t, err)
	assert.Equal(t, 1, f.store.reserved)
}

func TestSubmitSanitizesFreeText(t *testing.T) {
	f := newGateFixture(t)

	sub := validSubmission()
	sub.Name = "  <script>alert(1)</script>  "
	sub.Message = "<b>hi</b>"

	_, err := f.gate.Submit(context.Background(), sub)
	require.NoError(t, err)

	stored := f.repo.inserted[0]
	assert.NotContains(t, stored.Name, "<script>")
	assert.NotContains(t, stored.Message, "<b>")
}
