package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/corkboard/backend/internal/db"
	"github.com/corkboard/backend/internal/logging"
	"github.com/corkboard/backend/internal/middleware"
	"github.com/corkboard/backend/internal/models"
	"github.com/corkboard/backend/internal/services"
)

// AuthHandler serves account registration, login, and identity lookup.
type AuthHandler struct {
	queries *db.Queries
	auth    *services.AuthService
}

// NewAuthHandler creates an AuthHandler.
func NewAuthHandler(queries *db.Queries, auth *services.AuthService) *AuthHandler {
	return &AuthHandler{queries: queries, auth: auth}
}

// Register creates a new user account.
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	if len(strings.TrimSpace(req.Username)) < 3 {
		writeError(w, http.StatusBadRequest, "username must be at least 3 characters")
		return
	}
	if len(req.Password) < 8 {
		writeError(w, http.StatusBadRequest, "password must be at least 8 characters")
		return
	}

	user, err := h.auth.Register(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrUsernameTaken) {
			writeError(w, http.StatusConflict, "username already taken")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create user", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}

// Login verifies credentials and issues a JWT.
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	token, _, err := h.auth.Login(r.Context(), req.Username, req.Password)
	if err != nil {
		if errors.Is(err, services.ErrInvalidCredentials) {
			logging.LogSecurityEvent(r.Context(), logging.SecurityEventBadLogin, "login failed")
			writeError(w, http.StatusUnauthorized, "incorrect username or password")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "login failed", err)
		return
	}

	writeJSON(w, http.StatusOK, models.TokenResponse{AccessToken: token, TokenType: "bearer"})
}

// Me returns the authenticated user's account.
func (h *AuthHandler) Me(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	user, err := h.queries.GetUserByID(r.Context(), claims.UserID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to fetch user", err)
		return
	}

	writeJSON(w, http.StatusOK, models.UserResponse{
		ID:        user.ID,
		Username:  user.Username,
		CreatedAt: user.CreatedAt,
	})
}
