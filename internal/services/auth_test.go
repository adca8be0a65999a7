package services

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/corkboard/backend/internal/database"
	"github.com/corkboard/backend/internal/db"
)

func newTestQueries(t *testing.T) *db.Queries {
	t.Helper()
	sqlDB, err := database.New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { sqlDB.Close() })
	if err := database.RunMigrations(sqlDB); err != nil {
		t.Fatalf("run migrations: %v", err)
	}
	return db.New(sqlDB)
}

func TestRegisterAndLogin(t *testing.T) {
	svc := NewAuthService(newTestQueries(t), "test-secret", time.Hour)
	ctx := context.Background()

	user, err := svc.Register(ctx, "alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if user.Username != "alice" {
		t.Errorf("Username = %q, want alice", user.Username)
	}
	if user.PasswordHash == "correct horse battery" {
		t.Error("password should be stored hashed")
	}

	token, loggedIn, err := svc.Login(ctx, "alice", "correct horse battery")
	if err != nil {
		t.Fatalf("Login() error = %v", err)
	}
	if token == "" {
		t.Fatal("Login() returned empty token")
	}
	if loggedIn.ID != user.ID {
		t.Errorf("Login() user = %v, want %v", loggedIn.ID, user.ID)
	}
}

func TestRegisterDuplicateUsername(t *testing.T) {
	svc := NewAuthService(newTestQueries(t), "test-secret", time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "password-one"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	if _, err := svc.Register(ctx, "alice", "password-two"); !errors.Is(err, ErrUsernameTaken) {
		t.Errorf("Register() error = %v, want ErrUsernameTaken", err)
	}
}

func TestLoginBadCredentials(t *testing.T) {
	svc := NewAuthService(newTestQueries(t), "test-secret", time.Hour)
	ctx := context.Background()

	if _, err := svc.Register(ctx, "alice", "real-password"); err != nil {
		t.Fatalf("Register() error = %v", err)
	}

	tests := []struct {
		name     string
		username string
		password string
	}{
		{"wrong password", "alice", "guess"},
		{"unknown user", "mallory", "real-password"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := svc.Login(ctx, tt.username, tt.password)
			if !errors.Is(err, ErrInvalidCredentials) {
				t.Errorf("Login() error = %v, want ErrInvalidCredentials", err)
			}
		})
	}
}

func TestVerifyToken(t *testing.T) {
	svc := NewAuthService(newTestQueries(t), "test-secret", time.Hour)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "alice", "real-password")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	token, err := svc.GenerateToken(registered)
	if err != nil {
		t.Fatalf("GenerateToken() error = %v", err)
	}

	user, err := svc.VerifyToken(token)
	if err != nil {
		t.Fatalf("VerifyToken() error = %v", err)
	}
	if user.ID != registered.ID || user.Username != "alice" {
		t.Errorf("VerifyToken() = %+v, want alice/%s", user, registered.ID)
	}
}

func TestVerifyTokenWrongSecret(t *testing.T) {
	queries := newTestQueries(t)
	svc1 := NewAuthService(queries, "secret-1", time.Hour)
	svc2 := NewAuthService(queries, "secret-2", time.Hour)

	user, err := svc1.Register(context.Background(), "alice", "real-password")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	token, _ := svc1.GenerateToken(user)

	if _, err := svc2.VerifyToken(token); err == nil {
		t.Error("VerifyToken() should reject a token signed with a different secret")
	}
}

func TestVerifyExpiredToken(t *testing.T) {
	svc := NewAuthService(newTestQueries(t), "test-secret", -time.Hour)

	user, err := svc.Register(context.Background(), "alice", "real-password")
	if err != nil {
		t.Fatalf("Register() error = %v", err)
	}
	token, _ := svc.GenerateToken(user)

	if _, err := svc.VerifyToken(token); err == nil {
		t.Error("VerifyToken() should reject an expired token")
	}
}

func TestVerifyGarbageToken(t *testing.T) {
	svc := NewAuthService(newTestQueries(t), "test-secret", time.Hour)

	if _, err := svc.VerifyToken("not-a-jwt"); err == nil {
		t.Error("VerifyToken() should reject a malformed token")
	}
}
