package db

import (
	"context"
	"time"
)

const createNote = `
INSERT INTO notes (id, whiteboard_id, content, color, x_position, y_position, width, height, created_by, created_at, updated_at)
VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
RETURNING id, whiteboard_id, content, color, x_position, y_position, width, height, created_by, created_at, updated_at
`

type CreateNoteParams struct {
	ID           string
	WhiteboardID string
	Content      string
	Color        string
	XPosition    float64
	YPosition    float64
	Width        float64
	Height       float64
	CreatedBy    string
}

func (q *Queries) CreateNote(ctx context.Context, arg CreateNoteParams) (Note, error) {
	now := time.Now().UTC()
	row := q.db.QueryRowContext(ctx, createNote,
		arg.ID, arg.WhiteboardID, arg.Content, arg.Color,
		arg.XPosition, arg.YPosition, arg.Width, arg.Height,
		arg.CreatedBy, now, now)
	return scanNote(row)
}

const getNoteByID = `
SELECT id, whiteboard_id, content, color, x_position, y_position, width, height, created_by, created_at, updated_at
FROM notes WHERE id = ?
`

func (q *Queries) GetNoteByID(ctx context.Context, id string) (Note, error) {
	row := q.db.QueryRowContext(ctx, getNoteByID, id)
	return scanNote(row)
}

const listNotesByWhiteboard = `
SELECT id, whiteboard_id, content, color, x_position, y_position, width, height, created_by, created_at, updated_at
FROM notes WHERE whiteboard_id = ?
ORDER BY created_at
`

func (q *Queries) ListNotesByWhiteboard(ctx context.Context, whiteboardID string) ([]Note, error) {
	rows, err := q.db.QueryContext(ctx, listNotesByWhiteboard, whiteboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var notes []Note
	for rows.Next() {
		var n Note
		if err := rows.Scan(&n.ID, &n.WhiteboardID, &n.Content, &n.Color,
			&n.XPosition, &n.YPosition, &n.Width, &n.Height,
			&n.CreatedBy, &n.CreatedAt, &n.UpdatedAt); err != nil {
			return nil, err
		}
		notes = append(notes, n)
	}
	return notes, rows.Err()
}

const updateNote = `
UPDATE notes SET content = ?, color = ?, x_position = ?, y_position = ?, width = ?, height = ?, updated_at = ?
WHERE id = ?
RETURNING id, whiteboard_id, content, color, x_position, y_position, width, height, created_by, created_at, updated_at
`

type UpdateNoteParams struct {
	ID        string
	Content   string
	Color     string
	XPosition float64
	YPosition float64
	Width     float64
	Height    float64
}

func (q *Queries) UpdateNote(ctx context.Context, arg UpdateNoteParams) (Note, error) {
	row := q.db.QueryRowContext(ctx, updateNote,
		arg.Content, arg.Color, arg.XPosition, arg.YPosition,
		arg.Width, arg.Height, time.Now().UTC(), arg.ID)
	return scanNote(row)
}

const deleteNote = `
DELETE FROM notes WHERE id = ?
`

func (q *Queries) DeleteNote(ctx context.Context, id string) error {
	_, err := q.db.ExecContext(ctx, deleteNote, id)
	return err
}

func scanNote(row rowScanner) (Note, error) {
	var n Note
	err := row.Scan(&n.ID, &n.WhiteboardID, &n.Content, &n.Color,
		&n.XPosition, &n.YPosition, &n.Width, &n.Height,
		&n.CreatedBy, &n.CreatedAt, &n.UpdatedAt)
	return n, err
}
