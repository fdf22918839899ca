package handler

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"repeater-directory/internal/hashing"
	"repeater-directory/internal/models"
	"repeater-directory/internal/repository/scylla"
	"repeater-directory/internal/util"
)

// UserHandler is the admin user management surface. Every route here
// sits behind the session middleware, reads included.
type UserHandler struct {
	users  scylla.UserRepository
	hasher *hashing.Hasher
	logger *zap.Logger
}

func NewUserHandler(users scylla.UserRepository, hasher *hashing.Hasher, logger *zap.Logger) *UserHandler {
	return &UserHandler{users: users, hasher: hasher, logger: logger}
}

func (h *UserHandler) RegisterRoutes(r chi.Router) {
	r.Route("/admin/users", func(r chi.Router) {
		r.Get("/", h.ListUsers)
		r.Post("/", h.CreateUser)
		r.Get("/{username}", h.GetUser)
		r.Put("/{username}", h.UpdateUser)
		r.Delete("/{username}", h.DeleteUser)
	})
}

func (h *UserHandler) ListUsers(w http.ResponseWriter, r *http.Request) {
	users, err := h.users.ListUsers(r.Context())
	if err != nil {
		h.logger.Error("Failed to list users", zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not list users")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{"users": users})
}

func (h *UserHandler) GetUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")
	user, err := h.users.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			writeFailure(w, http.StatusNotFound, KindNotFound, "User not found")
			return
		}
		h.logger.Error("Failed to load user", zap.String("username", username), zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not load user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) CreateUser(w http.ResponseWriter, r *http.Request) {
	var body struct {
		Username string `json:"username"`
		Password string `json:"password"`
		Enabled  *bool  `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Invalid request body")
		return
	}
	if util.NormalizeUsername(body.Username) == "" || body.Password == "" {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Username and password are required")
		return
	}

	hash, err := h.hasher.HashPassword(body.Password)
	if err != nil {
		h.logger.Error("Failed to hash password", zap.Error(err))
		writeFailure(w, http.StatusInternalServerError, KindSQL, "Could not create user")
		return
	}

	enabled := true
	if body.Enabled != nil {
		enabled = *body.Enabled
	}
	user := &models.User{
		Username:     body.Username,
		PasswordHash: hash,
		Enabled:      enabled,
		TokenVersion: 1,
	}
	if err := h.users.CreateUser(r.Context(), user); err != nil {
		if errors.Is(err, scylla.ErrUserExists) {
			writeFailure(w, http.StatusConflict, KindSQL, "User already exists")
			return
		}
		h.logger.Error("Failed to create user", zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not create user")
		return
	}
	writeJSON(w, http.StatusCreated, user)
}

// UpdateUser changes the password and/or enabled flag. Disabling a
// user takes effect on their next gate check; no version bump needed.
func (h *UserHandler) UpdateUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	var body struct {
		Password *string `json:"password"`
		Enabled  *bool   `json:"enabled"`
	}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeFailure(w, http.StatusBadRequest, KindSQL, "Invalid request body")
		return
	}

	user, err := h.users.GetUser(r.Context(), username)
	if err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			writeFailure(w, http.StatusNotFound, KindNotFound, "User not found")
			return
		}
		h.logger.Error("Failed to load user", zap.String("username", username), zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not load user")
		return
	}

	if body.Password != nil && *body.Password != "" {
		hash, err := h.hasher.HashPassword(*body.Password)
		if err != nil {
			h.logger.Error("Failed to hash password", zap.Error(err))
			writeFailure(w, http.StatusInternalServerError, KindSQL, "Could not update user")
			return
		}
		user.PasswordHash = hash
	}
	if body.Enabled != nil {
		user.Enabled = *body.Enabled
	}

	if err := h.users.UpdateUser(r.Context(), user); err != nil {
		h.logger.Error("Failed to update user", zap.String("username", username), zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not update user")
		return
	}
	writeJSON(w, http.StatusOK, user)
}

func (h *UserHandler) DeleteUser(w http.ResponseWriter, r *http.Request) {
	username := chi.URLParam(r, "username")

	if _, err := h.users.GetUser(r.Context(), username); err != nil {
		if errors.Is(err, scylla.ErrUserNotFound) {
			writeFailure(w, http.StatusNotFound, KindNotFound, "User not found")
			return
		}
		h.logger.Error("Failed to load user", zap.String("username", username), zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not delete user")
		return
	}

	if err := h.users.DeleteUser(r.Context(), username); err != nil {
		h.logger.Error("Failed to delete user", zap.String("username", username), zap.Error(err))
		writeFailure(w, http.StatusUnprocessableEntity, KindSQL, "Could not delete user")
		return
	}
	writeJSON(w, http.StatusOK, map[string]interface{}{
		"username": util.NormalizeUsername(username),
		"deleted":  true,
	})
}
