package audit

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"go.uber.org/zap"

	"repeater-directory/internal/client"
	"repeater-directory/internal/models"
)

// Recorder ships security events to Kafka and ClickHouse. Strictly
// best-effort: the request path only pays for a channel send, and a
// full buffer drops the event rather than blocking a login.
type Recorder struct {
	kafka      *client.KafkaProducer
	clickhouse *client.ClickHouseClient
	logger     *zap.Logger

	events chan models.SecurityEvent
	done   chan struct{}
	wg     sync.WaitGroup
}

func NewRecorder(kafka *client.KafkaProducer, clickhouse *client.ClickHouseClient, logger *zap.Logger) *Recorder {
	r := &Recorder{
		kafka:      kafka,
		clickhouse: clickhouse,
		logger:     logger,
		events:     make(chan models.SecurityEvent, 256),
		done:       make(chan struct{}),
	}
	r.wg.Add(1)
	go r.run()
	return r
}

// Record enqueues one event. Never blocks.
func (r *Recorder) Record(ev models.SecurityEvent) {
	if ev.CreatedAt.IsZero() {
		ev.CreatedAt = time.Now().UTC()
	}
	select {
	case r.events <- ev:
	default:
		r.logger.Warn("Audit buffer full, dropping security event",
			zap.String("event_type", ev.EventType))
	}
}

func (r *Recorder) run() {
	defer r.wg.Done()
	for {
		select {
		case ev := <-r.events:
			r.ship(ev)
		case <-r.done:
			// Drain what is already queued.
			for {
				select {
				case ev := <-r.events:
					r.ship(ev)
				default:
					return
				}
			}
		}
	}
}

func (r *Recorder) ship(ev models.SecurityEvent) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if r.kafka != nil {
		payload, err := json.Marshal(ev)
		if err == nil {
			if err := r.kafka.Publish(ctx, ev.EventType, payload); err != nil {
				r.logger.Warn("Failed to publish security event", zap.Error(err))
			}
		}
	}
	if r.clickhouse != nil {
		if err := r.clickhouse.InsertSecurityEvent(ctx, &ev); err != nil {
			r.logger.Warn("Failed to insert security event", zap.Error(err))
		}
	}
}

func (r *Recorder) Close() {
	close(r.done)
	r.wg.Wait()
}
