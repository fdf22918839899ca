package scylla

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"repeater-directory/internal/config"
	"repeater-directory/internal/util"
)

// PreparedStatements holds the statements the repositories actually
// use.
type PreparedStatements struct {
	GetUser        *gocql.Query
	CreateUser     *gocql.Query
	UpdateUser     *gocql.Query
	DeleteUser     *gocql.Query
	ListUsers      *gocql.Query
	RecordLogin    *gocql.Query
	InsertRequest  *gocql.Query
	GetRepeater    *gocql.Query
	ListRepeaters  *gocql.Query
	UpsertRepeater *gocql.Query
	DeleteRepeater *gocql.Query
}

type ScyllaClient struct {
	Session      *gocql.Session
	config       *config.ScyllaConfig
	Prepared     *PreparedStatements
	prepareMutex sync.Mutex
	isPrepared   bool
}

func NewScyllaClient(cfg *config.Config, logger *zap.Logger) (*ScyllaClient, error) {
	scyllaConfig := cfg.Scylla

	cluster := gocql.NewCluster(scyllaConfig.Nodes...)
	cluster.Keyspace = scyllaConfig.Keyspace
	cluster.Consistency = gocql.LocalQuorum
	cluster.Timeout = 10 * time.Second
	cluster.ConnectTimeout = 10 * time.Second
	cluster.NumConns = 2
	cluster.SocketKeepalive = 30 * time.Second
	cluster.RetryPolicy = &gocql.ExponentialBackoffRetryPolicy{
		Min:        time.Second,
		Max:        10 * time.Second,
		NumRetries: 3,
	}

	if scyllaConfig.Username != "" && scyllaConfig.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: scyllaConfig.Username,
			Password: scyllaConfig.Password,
		}
	}

	session, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("failed to create scylla session: %w", err)
	}

	client := &ScyllaClient{
		Session: session,
		config:  &scyllaConfig,
	}
	client.prepareStatements()

	util.Info("ScyllaDB client initialized",
		zap.Strings("nodes", scyllaConfig.Nodes),
		zap.String("keyspace", scyllaConfig.Keyspace))

	return client, nil
}

func (s *ScyllaClient) prepareStatements() {
	s.prepareMutex.Lock()
	defer s.prepareMutex.Unlock()
	if s.isPrepared {
		return
	}

	p := &PreparedStatements{}

	p.GetUser = s.Session.Query(`
		SELECT username, password_hash, enabled, token_version, created_at,
			updated_at, last_login, last_login_device, last_login_ua
		FROM users WHERE username = ?`)

	p.CreateUser = s.Session.Query(`
		INSERT INTO users (
			username, password_hash, enabled, token_version, created_at,
			updated_at, last_login, last_login_device, last_login_ua
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?) IF NOT EXISTS`)

	p.UpdateUser = s.Session.Query(`
		UPDATE users SET password_hash = ?, enabled = ?, updated_at = ?
		WHERE username = ?`)

	p.DeleteUser = s.Session.Query(`DELETE FROM users WHERE username = ?`)

	p.ListUsers = s.Session.Query(`
		SELECT username, password_hash, enabled, token_version, created_at,
			updated_at, last_login, last_login_device, last_login_ua
		FROM users`)

	p.RecordLogin = s.Session.Query(`
		UPDATE users SET last_login = ?, last_login_device = ?, last_login_ua = ?
		WHERE username = ?`)

	p.InsertRequest = s.Session.Query(`
		INSERT INTO guest_requests (
			request_bucket, request_id, name, contact_hash, contact_encrypted,
			contact_key_id, message, repeater, status, source_ip, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	p.GetRepeater = s.Session.Query(`
		SELECT repeater_id, callsign, name, band, freq_mhz, shift_mhz, tone_hz,
			mode, location, latitude, longitude, active, updated_by,
			created_at, updated_at
		FROM repeaters WHERE repeater_id = ?`)

	p.ListRepeaters = s.Session.Query(`
		SELECT repeater_id, callsign, name, band, freq_mhz, shift_mhz, tone_hz,
			mode, location, latitude, longitude, active, updated_by,
			created_at, updated_at
		FROM repeaters`)

	p.UpsertRepeater = s.Session.Query(`
		INSERT INTO repeaters (
			repeater_id, callsign, name, band, freq_mhz, shift_mhz, tone_hz,
			mode, location, latitude, longitude, active, updated_by,
			created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)

	p.DeleteRepeater = s.Session.Query(`DELETE FROM repeaters WHERE repeater_id = ?`)

	s.Prepared = p
	s.isPrepared = true
}

func (s *ScyllaClient) Query(stmt string, values ...interface{}) *gocql.Query {
	return s.Session.Query(stmt, values...)
}

func (s *ScyllaClient) HealthCheck(ctx context.Context) error {
	var clusterName string
	err := s.Session.Query(`SELECT cluster_name FROM system.local`).WithContext(ctx).Scan(&clusterName)
	if err != nil {
		return fmt.Errorf("scylla health check failed: %w", err)
	}
	return nil
}

func (s *ScyllaClient) Close() {
	if s.Session != nil {
		s.Session.Close()
		util.Info("ScyllaDB client closed")
	}
}
