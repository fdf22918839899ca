package scylla

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/gocql/gocql"
	"go.uber.org/zap"

	"repeater-directory/internal/models"
	"repeater-directory/internal/util"
)

var (
	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// UserRepository is the persistence contract for directory users.
type UserRepository interface {
	GetUser(ctx context.Context, username string) (*models.User, error)
	CreateUser(ctx context.Context, user *models.User) error
	UpdateUser(ctx context.Context, user *models.User) error
	DeleteUser(ctx context.Context, username string) error
	ListUsers(ctx context.Context) ([]*models.User, error)
	RecordLogin(ctx context.Context, username, device, uaHash string, at time.Time) error
	BumpTokenVersion(ctx context.Context, username string) (int64, error)
	HealthCheck(ctx context.Context) error
}

type userRepository struct {
	client *ScyllaClient
	logger *zap.Logger
}

func NewUserRepository(client *ScyllaClient, logger *zap.Logger) UserRepository {
	return &userRepository{client: client, logger: logger}
}

func (r *userRepository) GetUser(ctx context.Context, username string) (*models.User, error) {
	username = util.NormalizeUsername(username)

	u := &models.User{}
	err := r.client.Prepared.GetUser.WithContext(ctx).Bind(username).Scan(
		&u.Username, &u.PasswordHash, &u.Enabled, &u.TokenVersion,
		&u.CreatedAt, &u.UpdatedAt, &u.LastLogin, &u.LastLoginDevice, &u.LastLoginUA,
	)
	if err != nil {
		if errors.Is(err, gocql.ErrNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("get user: %w", err)
	}
	return u, nil
}

func (r *userRepository) CreateUser(ctx context.Context, user *models.User) error {
	user.Username = util.NormalizeUsername(user.Username)
	if user.TokenVersion < 1 {
		user.TokenVersion = 1
	}
	now := time.Now().UTC()
	user.CreatedAt = now
	user.UpdatedAt = now

	applied, err := r.client.Prepared.CreateUser.WithContext(ctx).Bind(
		user.Username, user.PasswordHash, user.Enabled, user.TokenVersion,
		user.CreatedAt, user.UpdatedAt, user.LastLogin, user.LastLoginDevice, user.LastLoginUA,
	).ScanCAS(nil, nil, nil, nil, nil, nil, nil, nil, nil)
	if err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	if !applied {
		return ErrUserExists
	}

	r.logger.Info("User created", zap.String("username", user.Username))
	return nil
}

func (r *userRepository) UpdateUser(ctx context.Context, user *models.User) error {
	user.Username = util.NormalizeUsername(user.Username)
	user.UpdatedAt = time.Now().UTC()

	err := r.client.Prepared.UpdateUser.WithContext(ctx).Bind(
		user.PasswordHash, user.Enabled, user.UpdatedAt, user.Username,
	).Exec()
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	return nil
}

func (r *userRepository) DeleteUser(ctx context.Context, username string) error {
	username = util.NormalizeUsername(username)
	if err := r.client.Prepared.DeleteUser.WithContext(ctx).Bind(username).Exec(); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	r.logger.Info("User deleted", zap.String("username", username))
	return nil
}

func (r *userRepository) ListUsers(ctx context.Context) ([]*models.User, error) {
	iter := r.client.Prepared.ListUsers.WithContext(ctx).Iter()

	var users []*models.User
	for {
		u := &models.User{}
		if !iter.Scan(
			&u.Username, &u.PasswordHash, &u.Enabled, &u.TokenVersion,
			&u.CreatedAt, &u.UpdatedAt, &u.LastLogin, &u.LastLoginDevice, &u.LastLoginUA,
		) {
			break
		}
		users = append(users, u)
	}
	if err := iter.Close(); err != nil {
		return nil, fmt.Errorf("list users: %w", err)
	}
	return users, nil
}

func (r *userRepository) RecordLogin(ctx context.Context, username, device, uaHash string, at time.Time) error {
	username = util.NormalizeUsername(username)
	err := r.client.Prepared.RecordLogin.WithContext(ctx).Bind(at, device, uaHash, username).Exec()
	if err != nil {
		return fmt.Errorf("record login: %w", err)
	}
	return nil
}

// BumpTokenVersion increments the revocation counter with a
// compare-and-set loop, so concurrent logouts never lose an increment.
func (r *userRepository) BumpTokenVersion(ctx context.Context, username string) (int64, error) {
	username = util.NormalizeUsername(username)

	for attempt := 0; attempt < 5; attempt++ {
		var current int64
		err := r.client.Query(
			`SELECT token_version FROM users WHERE username = ?`, username,
		).WithContext(ctx).Scan(&current)
		if err != nil {
			if errors.Is(err, gocql.ErrNotFound) {
				return 0, ErrUserNotFound
			}
			return 0, fmt.Errorf("bump token version: %w", err)
		}

		next := current + 1
		applied, err := r.client.Query(
			`UPDATE users SET token_version = ?, updated_at = ? WHERE username = ? IF token_version = ?`,
			next, time.Now().UTC(), username, current,
		).WithContext(ctx).ScanCAS(&current)
		if err != nil {
			return 0, fmt.Errorf("bump token version: %w", err)
		}
		if applied {
			r.logger.Info("Token version bumped",
				zap.String("username", username),
				zap.Int64("token_version", next))
			return next, nil
		}
	}
	return 0, fmt.Errorf("bump token version: too much contention for %s", username)
}

func (r *userRepository) HealthCheck(ctx context.Context) error {
	return r.client.HealthCheck(ctx)
}
