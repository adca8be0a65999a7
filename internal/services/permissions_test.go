package services

import (
	"context"
	"database/sql"
	"errors"
	"testing"

	"github.com/google/uuid"

	"github.com/corkboard/backend/internal/db"
)

type accessFixture struct {
	queries  *db.Queries
	access   *AccessService
	owner    db.User
	friend   db.User
	stranger db.User
	private  db.Whiteboard
	public   db.Whiteboard
}

func newAccessFixture(t *testing.T) *accessFixture {
	t.Helper()
	queries := newTestQueries(t)
	ctx := context.Background()

	mkUser := func(name string) db.User {
		u, err := queries.CreateUser(ctx, db.CreateUserParams{ID: uuid.NewString(), Username: name, PasswordHash: "x"})
		if err != nil {
			t.Fatalf("create user %s: %v", name, err)
		}
		return u
	}

	f := &accessFixture{queries: queries, access: NewAccessService(queries)}
	f.owner = mkUser("owner")
	f.friend = mkUser("friend")
	f.stranger = mkUser("stranger")

	var err error
	f.private, err = queries.CreateWhiteboard(ctx, db.CreateWhiteboardParams{ID: uuid.NewString(), Name: "private", OwnerID: f.owner.ID})
	if err != nil {
		t.Fatalf("create private board: %v", err)
	}
	f.public, err = queries.CreateWhiteboard(ctx, db.CreateWhiteboardParams{ID: uuid.NewString(), Name: "public", OwnerID: f.owner.ID, IsPublic: true})
	if err != nil {
		t.Fatalf("create public board: %v", err)
	}
	return f
}

func (f *accessFixture) share(t *testing.T, userID, permission string) {
	t.Helper()
	err := f.queries.UpsertShare(context.Background(), db.UpsertShareParams{
		WhiteboardID: f.private.ID,
		UserID:       userID,
		Permission:   permission,
	})
	if err != nil {
		t.Fatalf("share board: %v", err)
	}
}

func TestCanView(t *testing.T) {
	f := newAccessFixture(t)
	f.share(t, f.friend.ID, db.PermissionView)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       string
		whiteboardID string
		want         bool
	}{
		{"owner views private", f.owner.ID, f.private.ID, true},
		{"share grants view", f.friend.ID, f.private.ID, true},
		{"stranger denied private", f.stranger.ID, f.private.ID, false},
		{"anyone views public", f.stranger.ID, f.public.ID, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.access.CanView(ctx, tt.userID, tt.whiteboardID)
			if err != nil {
				t.Fatalf("CanView() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CanView() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanViewMissingWhiteboard(t *testing.T) {
	f := newAccessFixture(t)

	_, err := f.access.CanView(context.Background(), f.owner.ID, "no-such-board")
	if !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("CanView() error = %v, want sql.ErrNoRows", err)
	}
}

func TestCanEdit(t *testing.T) {
	f := newAccessFixture(t)
	f.share(t, f.friend.ID, db.PermissionView)
	ctx := context.Background()

	tests := []struct {
		name         string
		userID       string
		whiteboardID string
		want         bool
	}{
		{"owner edits private", f.owner.ID, f.private.ID, true},
		{"view share cannot edit", f.friend.ID, f.private.ID, false},
		{"public does not grant edit", f.stranger.ID, f.public.ID, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := f.access.CanEdit(ctx, tt.userID, tt.whiteboardID)
			if err != nil {
				t.Fatalf("CanEdit() error = %v", err)
			}
			if got != tt.want {
				t.Errorf("CanEdit() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCanEditWithEditShare(t *testing.T) {
	f := newAccessFixture(t)
	f.share(t, f.friend.ID, db.PermissionEdit)

	got, err := f.access.CanEdit(context.Background(), f.friend.ID, f.private.ID)
	if err != nil {
		t.Fatalf("CanEdit() error = %v", err)
	}
	if !got {
		t.Error("CanEdit() = false, want true for an edit share")
	}
}

func TestIsOwner(t *testing.T) {
	f := newAccessFixture(t)
	ctx := context.Background()

	if got, _ := f.access.IsOwner(ctx, f.owner.ID, f.private.ID); !got {
		t.Error("IsOwner() = false for the owner")
	}
	if got, _ := f.access.IsOwner(ctx, f.friend.ID, f.private.ID); got {
		t.Error("IsOwner() = true for a non-owner")
	}
}
