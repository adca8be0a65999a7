package services

import (
	"context"
	"database/sql"
	"errors"

	"github.com/corkboard/backend/internal/db"
)

// AccessService decides whiteboard visibility and edit rights. Its CanView
// method is the room authorization collaborator for the realtime hub: a
// sql.ErrNoRows error means the whiteboard does not exist.
type AccessService struct {
	queries *db.Queries
}

// NewAccessService creates an AccessService over the given queries.
func NewAccessService(queries *db.Queries) *AccessService {
	return &AccessService{queries: queries}
}

// CanView reports whether the user may view the whiteboard: public boards,
// boards they own, and boards shared with them.
func (s *AccessService) CanView(ctx context.Context, userID, whiteboardID string) (bool, error) {
	wb, err := s.queries.GetWhiteboardByID(ctx, whiteboardID)
	if err != nil {
		return false, err
	}
	if wb.IsPublic || wb.OwnerID == userID {
		return true, nil
	}

	if _, err := s.queries.GetShare(ctx, whiteboardID, userID); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// CanEdit reports whether the user may mutate the whiteboard or its notes:
// the owner, or users holding an edit share. Public visibility alone does
// not grant edit rights.
func (s *AccessService) CanEdit(ctx context.Context, userID, whiteboardID string) (bool, error) {
	wb, err := s.queries.GetWhiteboardByID(ctx, whiteboardID)
	if err != nil {
		return false, err
	}
	if wb.OwnerID == userID {
		return true, nil
	}

	share, err := s.queries.GetShare(ctx, whiteboardID, userID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return false, nil
		}
		return false, err
	}
	return share.Permission == db.PermissionEdit, nil
}

// IsOwner reports whether the user owns the whiteboard.
func (s *AccessService) IsOwner(ctx context.Context, userID, whiteboardID string) (bool, error) {
	wb, err := s.queries.GetWhiteboardByID(ctx, whiteboardID)
	if err != nil {
		return false, err
	}
	return wb.OwnerID == userID, nil
}
