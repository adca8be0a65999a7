package db

import (
	"context"
	"time"
)

const createWhiteboard = `
INSERT INTO whiteboards (id, name, owner_id, is_public, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?)
RETURNING id, name, owner_id, is_public, created_at, updated_at
`

type CreateWhiteboardParams struct {
	ID       string
	Name     string
	OwnerID  string
	IsPublic bool
}

func (q *Queries) CreateWhiteboard(ctx context.Context, arg CreateWhiteboardParams) (Whiteboard, error) {
	now := time.Now().UTC()
	row := q.db.QueryRowContext(ctx, createWhiteboard, arg.ID, arg.Name, arg.OwnerID, arg.IsPublic, now, now)
	return scanWhiteboard(row)
}

const getWhiteboardByID = `
SELECT id, name, owner_id, is_public, created_at, updated_at FROM whiteboards WHERE id = ?
`

func (q *Queries) GetWhiteboardByID(ctx context.Context, id string) (Whiteboard, error) {
	row := q.db.QueryRowContext(ctx, getWhiteboardByID, id)
	return scanWhiteboard(row)
}

// listWhiteboardsForUser returns boards the user can see: public boards,
// boards they own, and boards shared with them.
const listWhiteboardsForUser = `
SELECT DISTINCT w.id, w.name, w.owner_id, w.is_public, w.created_at, w.updated_at
FROM whiteboards w
LEFT JOIN whiteboard_shares s ON s.whiteboard_id = w.id
WHERE w.is_public = 1 OR w.owner_id = ? OR s.user_id = ?
ORDER BY w.updated_at DESC
`

func (q *Queries) ListWhiteboardsForUser(ctx context.Context, userID string) ([]Whiteboard, error) {
	rows, err := q.db.QueryContext(ctx, listWhiteboardsForUser, userID, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var boards []Whiteboard
	for rows.Next() {
		var w Whiteboard
		if err := rows.Scan(&w.ID, &w.Name, &w.OwnerID, &w.IsPublic, &w.CreatedAt, &w.UpdatedAt); err != nil {
			return nil, err
		}
		boards = append(boards, w)
	}
	return boards, rows.Err()
}

const updateWhiteboard = `
UPDATE whiteboards SET name = ?, is_public = ?, updated_at = ?
WHERE id = ?
RETURNING id, name, owner_id, is_public, created_at, updated_at
`

type UpdateWhiteboardParams struct {
	ID       string
	Name     string
	IsPublic bool
}

func (q *Queries) UpdateWhiteboard(ctx context.Context, arg UpdateWhiteboardParams) (Whiteboard, error) {
	row := q.db.QueryRowContext(ctx, updateWhiteboard, arg.Name, arg.IsPublic, time.Now().UTC(), arg.ID)
	return scanWhiteboard(row)
}

const deleteWhiteboard = `
DELETE FROM whiteboards WHERE id = ?
`

func (q *Queries) DeleteWhiteboard(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteWhiteboard, id)
	return err
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanWhiteboard(row rowScanner) (Whiteboard, error) {
	var w Whiteboard
	err := row.Scan(&w.ID, &w.Name, &w.OwnerID, &w.IsPublic, &w.CreatedAt, &w.UpdatedAt)
	return w, err
}
