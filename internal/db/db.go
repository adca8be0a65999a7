// Package db contains the data access layer: row types and hand-written
// queries over database/sql.
package db

import (
	"context"
	"database/sql"
	"time"
)

// DBTX is satisfied by *sql.DB and *sql.Tx.
type DBTX interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// Queries wraps a database handle with typed query methods.
type Queries struct {
	db DBTX
}

// New creates a Queries instance over the given handle.
func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// User is a row in the users table.
type User struct {
	ID           string
	Username     string
	PasswordHash string
	CreatedAt    time.Time
}

// Whiteboard is a row in the whiteboards table.
type Whiteboard struct {
	ID        string
	Name      string
	OwnerID   string
	IsPublic  bool
	CreatedAt time.Time
	UpdatedAt time.Time
}

// WhiteboardShare is a row in the whiteboard_shares table.
type WhiteboardShare struct {
	WhiteboardID string
	UserID       string
	Permission   string
	CreatedAt    time.Time
}

// Note is a row in the notes table.
type Note struct {
	ID           string
	WhiteboardID string
	Content      string
	Color        string
	XPosition    float64
	YPosition    float64
	Width        float64
	Height       float64
	CreatedBy    string
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// Share permission levels.
const (
	PermissionView = "view"
	PermissionEdit = "edit"
)
