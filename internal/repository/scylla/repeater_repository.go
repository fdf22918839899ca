package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"repeater-directory/internal/models"
)

var ErrRepeaterNotFound = errors.New("repeater not found")

// RepeaterRepository is the persistence contract for directory
// entries.
type RepeaterRepository interface {
	GetRepeater(ctx context.Context, id uuid.UUID) (*models.Repeater, error)
	ListRepeaters(ctx context.Context) ([]*models.Repeater, error)
	UpsertRepeater(ctx context.Context, rep *models.Repeater) error
	DeleteRepeater(ctx context.Context, id uuid.UUID) error
}

type repeaterRepository struct {
	client *ScyllaClient
	logger *zap.Logger
}

func NewRepeaterRepository(client *ScyllaClient, logger *zap.Logger) RepeaterRepository {
	return &repeaterRepository{client: client, logger: logger}
}

func (r *repeaterRepository) GetRepeater(ctx context.Context, id uuid.UUID) (*models.Repeater, error) {
	rep := &models.Repeater{}
	err := r.client.Prepared.GetRepeater.WithContext(ctx).Bind(id).Scan(
		&rep.ID, &rep.Callsign, &rep.Name, &rep.Band, &rep.FreqMHz, &rep.ShiftMHz,
		&rep.ToneHz, &rep.Mode, &rep.Location, &rep.Latitude, &rep.Longitude,
		&rep.Active, &rep.UpdatedBy, &rep.CreatedAt, &rep.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrRepeaterNotFound
		}
		return nil, fmt.Errorf("get repeater: %w", err)
	}
	return rep, nil
}

func (r *repeaterRepository) ListRepeaters(ctx context.Context) ([]*models.Repeater, error) {
	iter := r.client.Prepared.ListRepeaters.WithContext(ctx).Iter()

	var out []*models.Repeater
	for {
		rep := &models.Repeater{}
		if !iter.Scan(
			&rep.ID, &rep.Callsign, &rep.Name, &rep.Band, &rep.FreqMHz, &rep.ShiftMHz,
			&rep.ToneHz, &rep.Mode, &rep.Location, &rep.Latitude, &rep.Longitude,
			&rep.Active, &rep.UpdatedBy, &rep.CreatedAt, &rep.UpdatedAt,
		) {
			break
		}
		out = append(out, rep)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list repeaters: %w", err)
	}
	return out, nil
}

func (r *repeaterRepository) UpsertRepeater(ctx context.Context, rep *models.Repeater) error {
	now := time.Now().UTC()
	if rep.CreatedAt.IsZero() {
		rep.CreatedAt = now
	}
	rep.UpdatedAt = now

	err := r.client.Prepared.UpsertRepeater.WithContext(ctx).Bind(
		rep.ID, rep.Callsign, rep.Name, rep.Band, rep.FreqMHz, rep.ShiftMHz,
		rep.ToneHz, rep.Mode, rep.Location, rep.Latitude, rep.Longitude,
		rep.Active, rep.UpdatedBy, rep.CreatedAt, rep.UpdatedAt,
	).Exec()
	if err != nil {
		return fmt.Errorf("upsert repeater: %w", err)
	}

	r.logger.Info("Repeater stored",
		zap.String("repeater_id", rep.ID.String()),
		zap.String("callsign", rep.Callsign))
	return nil
}

func (r *repeaterRepository) DeleteRepeater(ctx context.Context, id uuid.UUID) error {
	if err := r.client.Prepared.DeleteRepeater.WithContext(ctx).Bind(id).Exec(); err != nil {
		return fmt.Errorf("delete repeater: %w", err)
	}
	return nil
}
