package client

import (
	"context"
	"fmt"
	"net/url"
	"time"

	ch "github.com/ClickHouse/clickhouse-go/v2"
	"github.com/ClickHouse/clickhouse-go/v2/lib/driver"
	"go.uber.org/zap"

	"repeater-directory/internal/config"
	"repeater-directory/internal/models"
	"repeater-directory/internal/util"
)

// ClickHouseClient is the audit sink for security events.
type ClickHouseClient struct {
	conn   driver.Conn
	config *config.ClickhouseConfig
}

func NewClickHouseClient(cfg *config.Config, logger *zap.Logger) (*ClickHouseClient, error) {
	chConfig := cfg.Clickhouse
	if chConfig.URL == "" {
		return nil, fmt.Errorf("no clickhouse url configured")
	}

	addr, err := extractHostPort(chConfig.URL)
	if err != nil {
		return nil, fmt.Errorf("invalid clickhouse url: %w", err)
	}

	conn, err := ch.Open(&ch.Options{
		Addr: []string{addr},
		Auth: ch.Auth{
			Username: chConfig.Username,
			Password: chConfig.Password,
			Database: chConfig.Database,
		},
		DialTimeout:     10 * time.Second,
		MaxOpenConns:    20,
		MaxIdleConns:    10,
		ConnMaxLifetime: time.Hour,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open ClickHouse connection: %w", err)
	}

	util.Info("ClickHouse client initialized",
		zap.String("addr", addr),
		zap.String("database", chConfig.Database))

	return &ClickHouseClient{conn: conn, config: &chConfig}, nil
}

// InsertSecurityEvent appends one audit row.
func (c *ClickHouseClient) InsertSecurityEvent(ctx context.Context, ev *models.SecurityEvent) error {
	return c.conn.Exec(ctx,
		`INSERT INTO security_events (event_type, username, ip, ua_hash, outcome, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		ev.EventType, ev.Username, ev.IP, ev.UAHash, ev.Outcome, ev.Detail, ev.CreatedAt,
	)
}

func (c *ClickHouseClient) HealthCheck(ctx context.Context) error {
	if err := c.conn.Ping(ctx); err != nil {
		return fmt.Errorf("clickhouse ping failed: %w", err)
	}
	return nil
}

func (c *ClickHouseClient) Close() error {
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

func extractHostPort(raw string) (string, error) {
	u, err := url.Parse(raw)
	if err != nil {
		return "", err
	}
	if u.Host != "" {
		return u.Host, nil
	}
	// Bare host:port without a scheme.
	return raw, nil
}
