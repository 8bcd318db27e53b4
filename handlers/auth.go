// Copyright (c) 2025 Daniel Kuo.
// Source-available; no permission granted to use, copy, modify, or distribute. See LICENSE.

package handlers

import (
	"database/sql"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/danielhkuo/lumen/auth"
	"github.com/danielhkuo/lumen/cliparse"
	"github.com/danielhkuo/lumen/middleware"
	"github.com/danielhkuo/lumen/models"
)

// sessionTTL is how long a bearer token stays valid after login.
const sessionTTL = 30 * 24 * time.Hour

type AuthHandler struct {
	db  *sql.DB
	cfg cliparse.Config
}

func NewAuthHandler(db *sql.DB, cfg cliparse.Config) *AuthHandler {
	return &AuthHandler{db: db, cfg: cfg}
}

// Register handles POST /auth/register
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	// Validate input
	req.Username = strings.TrimSpace(req.Username)
	if len(req.Username) < 2 || len(req.Username) > 50 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "username must be 2-50 characters")
		return
	}
	if len(req.Password) < 8 {
		middleware.ErrorResponse(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	hash, err := auth.HashPassword(req.Password)
	if err != nil {
		slog.Error("failed to hash password", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	userID, err := auth.GenerateID(16)
	if err != nil {
		slog.Error("failed to generate user ID", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	now := time.Now()
	_, err = h.db.Exec(`
		INSERT INTO users (id, username, password_hash, created_at)
		VALUES ($1, $2, $3, $4)
	`, userID, req.Username, hash, now)

	if err != nil {
		// Uniqueness violation wording differs between sqlite and pq
		if strings.Contains(err.Error(), "UNIQUE constraint failed") ||
			strings.Contains(err.Error(), "duplicate key value") {
			middleware.ErrorResponse(w, http.StatusConflict, "Username already taken")
			return
		}
		slog.Error("failed to insert user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	user := models.User{ID: userID, Username: req.Username, CreatedAt: now}
	resp, err := h.createSession(user)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to register")
		return
	}

	slog.Info("user registered", "user_id", userID, "username", req.Username)

	middleware.JSONResponse(w, http.StatusCreated, resp)
}

// Login handles POST /auth/login
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := middleware.ParseJSONBody(r, &req); err != nil {
		middleware.ErrorResponse(w, http.StatusBadRequest, "Invalid JSON")
		return
	}

	var user models.User
	err := h.db.QueryRow(`
		SELECT id, username, password_hash, created_at
		FROM users
		WHERE username = $1
	`, strings.TrimSpace(req.Username)).Scan(&user.ID, &user.Username, &user.PasswordHash, &user.CreatedAt)

	// Same response for unknown user and wrong password
	if err == sql.ErrNoRows {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}
	if err != nil {
		slog.Error("failed to query user", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if err := auth.CheckPassword(user.PasswordHash, req.Password); err != nil {
		slog.Info("login rejected", "username", req.Username)
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid username or password")
		return
	}

	resp, err := h.createSession(user)
	if err != nil {
		slog.Error("failed to create session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Failed to log in")
		return
	}

	slog.Info("user logged in", "user_id", user.ID)

	middleware.JSONResponse(w, http.StatusOK, resp)
}

// Logout handles POST /auth/logout
func (h *AuthHandler) Logout(w http.ResponseWriter, r *http.Request) {
	token := middleware.BearerToken(r)
	if token == "" {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	result, err := h.db.Exec(`
		DELETE FROM session WHERE token_hash = $1
	`, auth.HashToken(token, h.cfg.TokenSalt))
	if err != nil {
		slog.Error("failed to delete session", "error", err)
		middleware.ErrorResponse(w, http.StatusInternalServerError, "Database error")
		return
	}

	if n, _ := result.RowsAffected(); n == 0 {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, map[string]bool{"ok": true})
}

// Me handles GET /auth/me
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	user, err := RequireUser(h.db, h.cfg, r)
	if err != nil {
		middleware.ErrorResponse(w, http.StatusUnauthorized, "Invalid or expired token")
		return
	}

	middleware.JSONResponse(w, http.StatusOK, user)
}

func (h *AuthHandler) createSession(user models.User) (*models.AuthResponse, error) {
	token, err := auth.GenerateSessionToken()
	if err != nil {
		return nil, err
	}

	now := time.Now()
	expiresAt := now.Add(sessionTTL)
	_, err = h.db.Exec(`
		INSERT INTO session (token_hash, user_id, created_at, expires_at, last_seen_at)
		VALUES ($1, $2, $3, $4, $5)
	`, auth.HashToken(token, h.cfg.TokenSalt), user.ID, now, expiresAt, now)
	if err != nil {
		return nil, err
	}

	return &models.AuthResponse{
		Token:     token,
		User:      user,
		ExpiresAt: expiresAt,
	}, nil
}

// RequireUser resolves the bearer token on a request to its user.
// Returns auth.ErrInvalidToken for missing, unknown, or expired tokens;
// expired sessions are deleted on sight.
func RequireUser(db *sql.DB, cfg cliparse.Config, r *http.Request) (models.User, error) {
	token := middleware.BearerToken(r)
	if token == "" {
		return models.User{}, auth.ErrInvalidToken
	}

	tokenHash := auth.HashToken(token, cfg.TokenSalt)

	var user models.User
	var expiresAt time.Time
	err := db.QueryRow(`
		SELECT u.id, u.username, u.created_at, s.expires_at
		FROM session s
		JOIN users u ON s.user_id = u.id
		WHERE s.token_hash = $1
	`, tokenHash).Scan(&user.ID, &user.Username, &user.CreatedAt, &expiresAt)

	if err == sql.ErrNoRows {
		return models.User{}, auth.ErrInvalidToken
	}
	if err != nil {
		return models.User{}, err
	}

	if time.Now().After(expiresAt) {
		_, _ = db.Exec(`DELETE FROM session WHERE token_hash = $1`, tokenHash)
		return models.User{}, auth.ErrInvalidToken
	}

	_, err = db.Exec(`
		UPDATE session SET last_seen_at = $1 WHERE token_hash = $2
	`, time.Now(), tokenHash)
	if err != nil {
		slog.Error("failed to update session last_seen_at", "error", err)
	}

	return user, nil
}
