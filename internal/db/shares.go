package db

import (
	"context"
	"time"
)

const upsertShare = `
INSERT INTO whiteboard_shares (whiteboard_id, user_id, permission, created_at)
VALUES (?, ?, ?, ?)
ON CONFLICT (whiteboard_id, user_id) DO UPDATE SET permission = excluded.permission
`

type UpsertShareParams struct {
	WhiteboardID string
	UserID       string
	Permission   string
}

func (q *Queries) UpsertShare(ctx context.Context, arg UpsertShareParams) error {
	_, err := q.db.ExecContext(ctx, upsertShare, arg.WhiteboardID, arg.UserID, arg.Permission, time.Now().UTC())
	return err
}

const getShare = `
SELECT whiteboard_id, user_id, permission, created_at
FROM whiteboard_shares
WHERE whiteboard_id = ? AND user_id = ?
`

func (q *Queries) GetShare(ctx context.Context, whiteboardID, userID string) (WhiteboardShare, error) {
	row := q.db.QueryRowContext(ctx, getShare, whiteboardID, userID)
	var s WhiteboardShare
	err := row.Scan(&s.WhiteboardID, &s.UserID, &s.Permission, &s.CreatedAt)
	return s, err
}

const listSharesByWhiteboard = `
SELECT whiteboard_id, user_id, permission, created_at
FROM whiteboard_shares
WHERE whiteboard_id = ?
ORDER BY created_at
`

func (q *Queries) ListSharesByWhiteboard(ctx context.Context, whiteboardID string) ([]WhiteboardShare, error) {
	rows, err := q.db.QueryContext(ctx, listSharesByWhiteboard, whiteboardID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var shares []WhiteboardShare
	for rows.Next() {
		var s WhiteboardShare
		if err := rows.Scan(&s.WhiteboardID, &s.UserID, &s.Permission, &s.CreatedAt); err != nil {
			return nil, err
		}
		shares = append(shares, s)
	}
	return shares, rows.Err()
}

const deleteShare = `
DELETE FROM whiteboard_shares WHERE whiteboard_id = ? AND user_id = ?
`

func (q *Queries) DeleteShare(ctx context.Context, whiteboardID, userID string) error {
	_, err := q.db.ExecContext(ctx, deleteShare, whiteboardID, userID)
	return err
}
