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

// NoteHandler serves note CRUD within a whiteboard. Every successful
// mutation publishes exactly one realtime event to the whiteboard's room,
// excluding the originating connection.
type NoteHandler struct {
	queries   *db.Queries
	access    *services.AccessService
	publisher EventPublisher
}

// NewNoteHandler creates a NoteHandler.
func NewNoteHandler(queries *db.Queries, access *services.AccessService, publisher EventPublisher) *NoteHandler {
	return &NoteHandler{queries: queries, access: access, publisher: publisher}
}

// List returns the notes on a whiteboard the caller may view.
func (h *NoteHandler) List(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")

	if !h.requireView(w, r, claims.UserID, whiteboardID) {
		return
	}

	notes, err := h.queries.ListNotesByWhiteboard(r.Context(), whiteboardID)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to list notes", err)
		return
	}

	response := make([]models.NoteResponse, len(notes))
	for i, n := range notes {
		response[i] = noteToResponse(n)
	}
	writeJSON(w, http.StatusOK, response)
}

// Create adds a note to a whiteboard.
func (h *NoteHandler) Create(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")

	var req models.CreateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}
	if strings.TrimSpace(req.Content) == "" {
		writeError(w, http.StatusBadRequest, "content is required")
		return
	}

	if !h.requireEdit(w, r, claims.UserID, whiteboardID) {
		return
	}

	params := db.CreateNoteParams{
		ID:           uuid.NewString(),
		WhiteboardID: whiteboardID,
		Content:      req.Content,
		Color:        req.Color,
		XPosition:    req.XPosition,
		YPosition:    req.YPosition,
		Width:        req.Width,
		Height:       req.Height,
		CreatedBy:    claims.UserID,
	}
	if params.Color == "" {
		params.Color = "yellow"
	}
	if params.Width == 0 {
		params.Width = 200
	}
	if params.Height == 0 {
		params.Height = 150
	}

	note, err := h.queries.CreateNote(r.Context(), params)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to create note", err)
		return
	}

	h.publishNoteEvent(r, whiteboardID, protocol.TypeNoteCreated, models.NoteEventPayload{
		Note:   noteToResponse(note),
		ByUser: actor(claims),
	})
	writeJSON(w, http.StatusCreated, noteToResponse(note))
}

// Update changes a note's content, color, position, or size.
func (h *NoteHandler) Update(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")
	noteID := chi.URLParam(r, "noteId")

	var req models.UpdateNoteRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "invalid request body")
		return
	}

	note, ok := h.fetchNote(w, r, whiteboardID, noteID)
	if !ok {
		return
	}
	if !h.requireEdit(w, r, claims.UserID, whiteboardID) {
		return
	}

	params := db.UpdateNoteParams{
		ID:        note.ID,
		Content:   note.Content,
		Color:     note.Color,
		XPosition: note.XPosition,
		YPosition: note.YPosition,
		Width:     note.Width,
		Height:    note.Height,
	}
	if req.Content != nil {
		params.Content = *req.Content
	}
	if req.Color != nil {
		params.Color = *req.Color
	}
	if req.XPosition != nil {
		params.XPosition = *req.XPosition
	}
	if req.YPosition != nil {
		params.YPosition = *req.YPosition
	}
	if req.Width != nil {
		params.Width = *req.Width
	}
	if req.Height != nil {
		params.Height = *req.Height
	}

	updated, err := h.queries.UpdateNote(r.Context(), params)
	if err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to update note", err)
		return
	}

	h.publishNoteEvent(r, whiteboardID, protocol.TypeNoteUpdated, models.NoteEventPayload{
		Note:   noteToResponse(updated),
		ByUser: actor(claims),
	})
	writeJSON(w, http.StatusOK, noteToResponse(updated))
}

// Delete removes a note.
func (h *NoteHandler) Delete(w http.ResponseWriter, r *http.Request) {
	claims := middleware.GetClaims(r.Context())
	whiteboardID := chi.URLParam(r, "id")
	noteID := chi.URLParam(r, "noteId")

	if _, ok := h.fetchNote(w, r, whiteboardID, noteID); !ok {
		return
	}
	if !h.requireEdit(w, r, claims.UserID, whiteboardID) {
		return
	}

	if err := h.queries.DeleteNote(r.Context(), noteID); err != nil {
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to delete note", err)
		return
	}

	h.publishNoteEvent(r, whiteboardID, protocol.TypeNoteDeleted, models.NoteDeletedPayload{
		NoteID: noteID,
		ByUser: actor(claims),
	})
	w.WriteHeader(http.StatusNoContent)
}

// fetchNote loads a note and checks it belongs to the whiteboard in the URL.
func (h *NoteHandler) fetchNote(w http.ResponseWriter, r *http.Request, whiteboardID, noteID string) (db.Note, bool) {
	note, err := h.queries.GetNoteByID(r.Context(), noteID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			writeError(w, http.StatusNotFound, "note not found")
			return db.Note{}, false
		}
		writeErrorWithCause(r.Context(), w, http.StatusInternalServerError, "failed to fetch note", err)
		return db.Note{}, false
	}
	if note.WhiteboardID != whiteboardID {
		writeError(w, http.StatusNotFound, "note not found")
		return db.Note{}, false
	}
	return note, true
}

func (h *NoteHandler) requireView(w http.ResponseWriter, r *http.Request, userID, whiteboardID string) bool {
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

func (h *NoteHandler) requireEdit(w http.ResponseWriter, r *http.Request, userID, whiteboardID string) bool {
	allowed, err := h.access.CanEdit(r.Context(), userID, whiteboardID)
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

func (h *NoteHandler) publishNoteEvent(r *http.Request, whiteboardID, msgType string, payload any) {
	data, err := protocol.Encode(msgType, payload)
	if err != nil {
		slog.Error("encode event", slog.String("type", msgType), slog.Any("error", err))
		return
	}
	h.publisher.PublishRoom(whiteboardID, data, r.Header.Get(connectionIDHeader))
}

func noteToResponse(n db.Note) models.NoteResponse {
	return models.NoteResponse{
		ID:           n.ID,
		WhiteboardID: n.WhiteboardID,
		Content:      n.Content,
		Color:        n.Color,
		XPosition:    n.XPosition,
		YPosition:    n.YPosition,
		Width:        n.Width,
		Height:       n.Height,
		CreatedBy:    n.CreatedBy,
		CreatedAt:    n.CreatedAt,
		UpdatedAt:    n.UpdatedAt,
	}
}
