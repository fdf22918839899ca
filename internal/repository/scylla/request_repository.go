package scylla

import (
	"context"
	"fmt"
	"time"

	"github.com/spaolacci/murmur3"
	"go.uber.org/zap"

	"repeater-directory/internal/models"
)

// requestBuckets spreads guest submissions across partitions so a
// popular inbox never concentrates on one.
const requestBuckets = 16

// RequestRepository persists anonymous repeater suggestions.
type RequestRepository interface {
	InsertRequest(ctx context.Context, req *models.GuestRequest) error
}

type requestRepository struct {
	client *ScyllaClient
	logger *zap.Logger
}

func NewRequestRepository(client *ScyllaClient, logger *zap.Logger) RequestRepository {
	return &requestRepository{client: client, logger: logger}
}

func (r *requestRepository) InsertRequest(ctx context.Context, req *models.GuestRequest) error {
	if req.CreatedAt.IsZero() {
		req.CreatedAt = time.Now().UTC()
	}
	req.Bucket = int(murmur3.Sum32([]byte(req.ID.String())) % requestBuckets)

	err := r.client.Prepared.InsertRequest.WithContext(ctx).Bind(
		req.Bucket, req.ID, req.Name, req.ContactHash, req.ContactEncrypted,
		req.ContactKeyID, req.Message, req.Repeater, req.Status, req.SourceIP,
		req.CreatedAt,
	).Exec()
	if err != nil {
		return fmt.Errorf("insert guest request: %w", err)
	}

	r.logger.Info("Guest request stored",
		zap.String("request_id", req.ID.String()),
		zap.Int("bucket", req.Bucket))
	return nil
}
