package handlers

import (
	"database/sql"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"github.com/corkboard/backend/internal/db"
	"github.com/corkboard/backend/internal/middleware"
	"github.com/corkboard/backend/internal/models"
	"github.com/corkboard/backend/internal/protocol"
	"github.com/corkboard/backend/internal/services"
)

// WhiteboardHandler serves whiteboard CRUD and sharing. Every successful
// mutation publishes exactly one realtime event.
type WhiteboardHandler struct {
	queries   *db.Queries
	access    *services.AccessService
	publisher EventPublisher
}

// NewWhiteboardHandler creates a WhiteboardHandler.
func NewWhiteboardHandler(queries *db.Queries, access *services.AccessService, publisher EventPublisher) *WhiteboardHandler {
	return &WhiteboardHandler{queries: queries, access: access, publisher: publisher}
}

// List returns the whiteboards visible to the caller.
func (h *WhiteboardHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	boards, err := h.queries.ListWhiteboardsForUser(r.Context(), claims.UserID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list whiteboards", err)
		return
	}

	response := make([]models.WhiteboardResponse, len(boards))
	for i, wb := range boards {
		response[i] = whiteboardToResponse(wb)
	}
	writeJSON(w, http.StatusOK, response)
}

// Create makes a new whiteboard owned by the caller.
func (h *WhiteboardHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())

	var req models.CreateWhiteboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Name) == "" {
		writeError(w, http.StatusBadRequest, "name is required")
		return
	}

	wb, err := h.queries.CreateWhiteboard(r.Context(), db.CreateWhiteboardParams{
		ID:       uuid.NewString(),
		Name:     strings.TrimSpace(req.Name),
		OwnerID:  claims.UserID,
		IsPublic: req.IsPublic,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create whiteboard", err)
		return
	}

	h.publishGlobal(protocol.TypeWhiteboardCreated, models.WhiteboardEventPayload{
		Whiteboard: whiteboardToResponse(wb),
		ByUser:     actor(claims),
	})
	writeJSON(w, http.StatusCreated, whiteboardToResponse(wb))
}

// Get returns one whiteboard if the caller may view it.
func (h *WhiteboardHandler) Get(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")

	wb, err := h.queries.GetWhiteboardByID(r.Context(), whiteboardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "whiteboard not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to fetch whiteboard", err)
		return
	}

	if !h.requireView(w, r, claims.UserID, whiteboardID) {
		return
	}
	writeJSON(w, http.StatusOK, whiteboardToResponse(wb))
}

// Update renames a whiteboard or changes its visibility.
func (h *WhiteboardHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")

	var req models.UpdateWhiteboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	wb, err := h.queries.GetWhiteboardByID(r.Context(), whiteboardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "whiteboard not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to fetch whiteboard", err)
		return
	}

	allowed, err := h.access.CanEdit(r.Context(), claims.UserID, whiteboardID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check access", err)
		return
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "access denied")
		return
	}

	name := wb.Name
	if req.Name != nil && strings.TrimSpace(*req.Name) != "" {
		name = strings.TrimSpace(*req.Name)
	}
	isPublic := wb.IsPublic
	if req.IsPublic != nil {
		isPublic = *req.IsPublic
	}

	updated, err := h.queries.UpdateWhiteboard(r.Context(), db.UpdateWhiteboardParams{
		ID:       whiteboardID,
		Name:     name,
		IsPublic: isPublic,
	})
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update whiteboard", err)
		return
	}

	h.publishRoom(whiteboardID, r, protocol.TypeWhiteboardUpdated, models.WhiteboardEventPayload{
		Whiteboard: whiteboardToResponse(updated),
		ByUser:     actor(claims),
	})
	writeJSON(w, http.StatusOK, whiteboardToResponse(updated))
}

// Delete removes a whiteboard. Owner only.
func (h *WhiteboardHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")

	owner, err := h.access.IsOwner(r.Context(), claims.UserID, whiteboardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "whiteboard not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check access", err)
		return
	}
	if !owner {
		writeError(w, http.StatusForbidden, "only the owner can delete a whiteboard")
		return
	}

	if err := h.queries.DeleteWhiteboard(r.Context(), whiteboardID); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete whiteboard", err)
		return
	}

	h.publishGlobal(protocol.TypeWhiteboardDeleted, models.WhiteboardDeletedPayload{
		WhiteboardID: whiteboardID,
		ByUser:       actor(claims),
	})
	w.WriteHeader(http.StatusNoContent)
}

// ListShares returns the share list. Owner only.
func (h *WhiteboardHandler) ListShares(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")

	if !h.requireOwner(w, r, claims.UserID, whiteboardID) {
		return
	}

	shares, err := h.queries.ListSharesByWhiteboard(r.Context(), whiteboardID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list shares", err)
		return
	}

	response := make([]models.ShareResponse, 0, len(shares))
	for _, s := range shares {
		username := ""
		if u, err := h.queries.GetUserByID(r.Context(), s.UserID); err == nil {
			username = u.Username
		}
		response = append(response, models.ShareResponse{
			WhiteboardID: s.WhiteboardID,
			UserID:       s.UserID,
			Username:     username,
			Permission:   s.Permission,
		})
	}
	writeJSON(w, http.StatusOK, response)
}

// Share grants a user view or edit access. Owner only.
func (h *WhiteboardHandler) Share(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")

	var req models.ShareWhiteboardRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if req.Permission != db.PermissionView && req.Permission != db.PermissionEdit {
		writeError(w, http.StatusBadRequest, "permission must be view or edit")
		return
	}

	if !h.requireOwner(w, r, claims.UserID, whiteboardID) {
		return
	}

	target, err := h.queries.GetUserByUsername(r.Context(), req.Username)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "user not found")
			return
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to fetch user", err)
		return
	}
	if target.ID == claims.UserID {
		writeError(w, http.StatusBadRequest, "cannot share a whiteboard with yourself")
		return
	}

	if err := h.queries.UpsertShare(r.Context(), db.UpsertShareParams{
		WhiteboardID: whiteboardID,
		UserID:       target.ID,
		Permission:   req.Permission,
	}); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to share whiteboard", err)
		return
	}

	writeJSON(w, http.StatusCreated, models.ShareResponse{
		WhiteboardID: whiteboardID,
		UserID:       target.ID,
		Username:     target.Username,
		Permission:   req.Permission,
	})
}

// Unshare revokes a user's access. Owner only.
func (h *WhiteboardHandler) Unshare(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")
	userID := chi.URLParam(r, "userId")

	if !h.requireOwner(w, r, claims.UserID, whiteboardID) {
		return
	}

	if err := h.queries.DeleteShare(r.Context(), whiteboardID, userID); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to revoke share", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *WhiteboardHandler) requireView(w http.ResponseWriter, r *http.Request, userID, whiteboardID string) bool {
	allowed, err := h.access.CanView(r.Context(), userID, whiteboardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "whiteboard not found")
			return false
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check access", err)
		return false
	}
	if !allowed {
		writeError(w, http.StatusForbidden, "access denied")
		return false
	}
	return true
}

func (h *WhiteboardHandler) requireOwner(w http.ResponseWriter, r *http.Request, userID, whiteboardID string) bool {
	owner, err := h.access.IsOwner(r.Context(), userID, whiteboardID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "whiteboard not found")
			return false
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to check access", err)
		return false
	}
	if !owner {
		writeError(w, http.StatusForbidden, "only the owner can manage shares")
		return false
	}
	return true
}

func (h *WhiteboardHandler) publishRoom(roomID string, r *http.Request, msgType string, payload any) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		slog.Error("encode event", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	h.publisher.PublishRoom(roomID, data, r.Header.Get(connectionIDHeader))
}

func (h *WhiteboardHandler) publishGlobal(msgType string, payload any) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		slog.Error("encode event", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	h.publisher.PublishGlobal(data)
}

func actor(claims *services.Claims) models.User {
	return models.User{ID: claims.UserID, Username: claims.Username}
}

func whiteboardToResponse(wb db.Whiteboard) models.WhiteboardResponse {
	return models.WhiteboardResponse{
		ID:        wb.ID,
		Name:      wb.Name,
		OwnerID:   wb.OwnerID,
		IsPublic:  wb.IsPublic,
		CreatedAt: wb.CreatedAt,
		UpdatedAt: wb.UpdatedAt,
	}
}
