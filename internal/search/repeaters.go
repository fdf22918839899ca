package search

import (
	"context"
	"encoding/json"
	"fmt"

	"go.uber.org/zap"

	"repeater-directory/internal/client"
	"repeater-directory/internal/models"
)

// RepeaterIndex mirrors the repeater table into Elasticsearch for the
// public search endpoint. Scylla stays the source of truth; the index
// is write-through and best-effort consistent.
type RepeaterIndex struct {
	es     *client.ESClient
	logger *zap.Logger
}

func NewRepeaterIndex(es *client.ESClient, logger *zap.Logger) *RepeaterIndex {
	return &RepeaterIndex{es: es, logger: logger}
}

func (s *RepeaterIndex) Available() bool {
	return s != nil && s.es != nil
}

func (s *RepeaterIndex) IndexRepeater(ctx context.Context, rep *models.Repeater) error {
	if !s.Available() {
		return nil
	}
	if err := s.es.IndexDocument(ctx, s.es.Index(), rep.ID.String(), rep); err != nil {
		return fmt.Errorf("index repeater %s: %w", rep.ID, err)
	}
	return nil
}

func (s *RepeaterIndex) RemoveRepeater(ctx context.Context, id string) error {
	if !s.Available() {
		return nil
	}
	if err := s.es.DeleteDocument(ctx, s.es.Index(), id); err != nil {
		return fmt.Errorf("remove repeater %s: %w", id, err)
	}
	return nil
}

// Search matches the query against callsign, name and location.
// Callsign matches rank highest.
func (s *RepeaterIndex) Search(ctx context.Context, query string, limit int) ([]*models.Repeater, error) {
	if !s.Available() {
		return nil, fmt.Errorf("search backend not configured")
	}
	if limit <= 0 || limit > 100 {
		limit = 25
	}

	body := map[string]interface{}{
		"size": limit,
		"query": map[string]interface{}{
			"multi_match": map[string]interface{}{
				"query":  query,
				"fields": []string{"callsign^3", "name^2", "location"},
			},
		},
	}

	hits, err := s.es.Search(ctx, s.es.Index(), body)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Repeater, 0, len(hits))
	for _, raw := range hits {
		rep := &models.Repeater{}
		if err := json.Unmarshal(raw, rep); err != nil {
			s.logger.Warn("Skipping malformed search hit", zap.Error(err))
			continue
		}
		out = append(out, rep)
	}
	return out, nil
}
