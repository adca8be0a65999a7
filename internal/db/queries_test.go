package db

import (
	"context"
	"database/sql"
	"errors"
	"path/filepath"
	"testing"

	"github.com/corkboard/backend/internal/database"
)

func newTestQueries(t *testing.T) *Queries {
	t.Helper()
	sqlDB, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.RunMigrations(sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return New(sqlDB)
}

func seedUser(t *testing.T, q *Queries, id, username string) User {
	t.Helper()
	u, err := q.CreateUser(context.Background(), CreateUserParams{ID: id, Username: username, PasswordHash: "hash"})
	if err != nil {
		t.Fatalf("seed user %s: %v", username, err)
	}
	return u
}

func seedWhiteboard(t *testing.T, q *Queries, id, ownerID string, public bool) Whiteboard {
	t.Helper()
	w, err := q.CreateWhiteboard(context.Background(), CreateWhiteboardParams{ID: id, Name: "board " + id, OwnerID: ownerID, IsPublic: public})
	if err != nil {
		t.Fatalf("seed whiteboard %s: %v", id, err)
	}
	return w
}

func TestUserQueries(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()

	created := seedUser(t, q, "u1", "alice")

	byID, err := q.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if byID.Username != "alice" {
		t.Errorf("Username = %q, want alice", byID.Username)
	}

	byName, err := q.GetUserByUsername(ctx, "alice")
	if err != nil {
		t.Fatalf("GetUserByUsername() error = %v", err)
	}
	if byName.ID != created.ID {
		t.Errorf("ID = %q, want %q", byName.ID, created.ID)
	}

	if _, err := q.GetUserByUsername(ctx, "nobody"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetUserByUsername(nobody) error = %v, want sql.ErrNoRows", err)
	}
}

func TestWhiteboardQueries(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()
	seedUser(t, q, "u1", "alice")

	created := seedWhiteboard(t, q, "wb1", "u1", false)
	if created.IsPublic {
		t.Error("IsPublic = true, want false")
	}

	updated, err := q.UpdateWhiteboard(ctx, UpdateWhiteboardParams{ID: "wb1", Name: "renamed", IsPublic: true})
	if err != nil {
		t.Fatalf("UpdateWhiteboard() error = %v", err)
	}
	if updated.Name != "renamed" || !updated.IsPublic {
		t.Errorf("updated = %+v, want renamed/public", updated)
	}

	if err := q.DeleteWhiteboard(ctx, "wb1"); err != nil {
		t.Fatalf("DeleteWhiteboard() error = %v", err)
	}
	if _, err := q.GetWhiteboardByID(ctx, "wb1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetWhiteboardByID() after delete error = %v, want sql.ErrNoRows", err)
	}
}

func TestListWhiteboardsForUser(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()
	seedUser(t, q, "u1", "alice")
	seedUser(t, q, "u2", "bob")

	seedWhiteboard(t, q, "owned", "u1", false)
	seedWhiteboard(t, q, "open", "u2", true)
	seedWhiteboard(t, q, "shared", "u2", false)
	seedWhiteboard(t, q, "hidden", "u2", false)

	if err := q.UpsertShare(ctx, UpsertShareParams{WhiteboardID: "shared", UserID: "u1", Permission: PermissionView}); err != nil {
		t.Fatalf("UpsertShare() error = %v", err)
	}

	boards, err := q.ListWhiteboardsForUser(ctx, "u1")
	if err != nil {
		t.Fatalf("ListWhiteboardsForUser() error = %v", err)
	}

	got := make(map[string]bool, len(boards))
	for _, b := range boards {
		got[b.ID] = true
	}
	for _, want := range []string{"owned", "open", "shared"} {
		if !got[want] {
			t.Errorf("list is missing %q", want)
		}
	}
	if got["hidden"] {
		t.Error("list should not contain a private unshared board")
	}
}

func TestUpsertShareUpdatesPermission(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()
	seedUser(t, q, "u1", "alice")
	seedUser(t, q, "u2", "bob")
	seedWhiteboard(t, q, "wb1", "u1", false)

	if err := q.UpsertShare(ctx, UpsertShareParams{WhiteboardID: "wb1", UserID: "u2", Permission: PermissionView}); err != nil {
		t.Fatalf("UpsertShare() error = %v", err)
	}
	if err := q.UpsertShare(ctx, UpsertShareParams{WhiteboardID: "wb1", UserID: "u2", Permission: PermissionEdit}); err != nil {
		t.Fatalf("UpsertShare() upgrade error = %v", err)
	}

	share, err := q.GetShare(ctx, "wb1", "u2")
	if err != nil {
		t.Fatalf("GetShare() error = %v", err)
	}
	if share.Permission != PermissionEdit {
		t.Errorf("Permission = %q, want edit", share.Permission)
	}

	shares, err := q.ListSharesByWhiteboard(ctx, "wb1")
	if err != nil {
		t.Fatalf("ListSharesByWhiteboard() error = %v", err)
	}
	if len(shares) != 1 {
		t.Errorf("shares = %d, want 1 after upsert", len(shares))
	}

	if err := q.DeleteShare(ctx, "wb1", "u2"); err != nil {
		t.Fatalf("DeleteShare() error = %v", err)
	}
	if _, err := q.GetShare(ctx, "wb1", "u2"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetShare() after delete error = %v, want sql.ErrNoRows", err)
	}
}

func TestNoteQueries(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()
	seedUser(t, q, "u1", "alice")
	seedWhiteboard(t, q, "wb1", "u1", false)

	note, err := q.CreateNote(ctx, CreateNoteParams{
		ID: "n1", WhiteboardID: "wb1", Content: "hello",
		Color: "yellow", XPosition: 10, YPosition: 20, Width: 200, Height: 150,
		CreatedBy: "u1",
	})
	if err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	if note.Content != "hello" || note.XPosition != 10 {
		t.Errorf("note = %+v, want hello at x=10", note)
	}

	updated, err := q.UpdateNote(ctx, UpdateNoteParams{
		ID: "n1", Content: "moved", Color: "pink",
		XPosition: 30, YPosition: 40, Width: 200, Height: 150,
	})
	if err != nil {
		t.Fatalf("UpdateNote() error = %v", err)
	}
	if updated.Content != "moved" || updated.XPosition != 30 {
		t.Errorf("updated = %+v, want moved at x=30", updated)
	}

	notes, err := q.ListNotesByWhiteboard(ctx, "wb1")
	if err != nil {
		t.Fatalf("ListNotesByWhiteboard() error = %v", err)
	}
	if len(notes) != 1 {
		t.Errorf("notes = %d, want 1", len(notes))
	}

	if err := q.DeleteNote(ctx, "n1"); err != nil {
		t.Fatalf("DeleteNote() error = %v", err)
	}
	if _, err := q.GetNoteByID(ctx, "n1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("GetNoteByID() after delete error = %v, want sql.ErrNoRows", err)
	}
}

func TestDeleteWhiteboardCascades(t *testing.T) {
	q := newTestQueries(t)
	ctx := context.Background()
	seedUser(t, q, "u1", "alice")
	seedUser(t, q, "u2", "bob")
	seedWhiteboard(t, q, "wb1", "u1", false)

	if _, err := q.CreateNote(ctx, CreateNoteParams{ID: "n1", WhiteboardID: "wb1", Content: "x", Color: "yellow", Width: 200, Height: 150, CreatedBy: "u1"}); err != nil {
		t.Fatalf("CreateNote() error = %v", err)
	}
	if err := q.UpsertShare(ctx, UpsertShareParams{WhiteboardID: "wb1", UserID: "u2", Permission: PermissionView}); err != nil {
		t.Fatalf("UpsertShare() error = %v", err)
	}

	if err := q.DeleteWhiteboard(ctx, "wb1"); err != nil {
		t.Fatalf("DeleteWhiteboard() error = %v", err)
	}

	if _, err := q.GetNoteByID(ctx, "n1"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("notes should cascade, got error = %v", err)
	}
	if _, err := q.GetShare(ctx, "wb1", "u2"); !errors.Is(err, sql.ErrNoRows) {
		t.Errorf("shares should cascade, got error = %v", err)
	}
}
