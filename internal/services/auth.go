// Package services contains the core business logic: account management,
// token verification, and whiteboard access policy.
package services

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/corkboard/backend/internal/crypto"
	"github.com/corkboard/backend/internal/db"
	"github.com/corkboard/backend/internal/models"
)

var (
	ErrUsernameTaken      = errors.New("username already taken")
	ErrInvalidCredentials = errors.New("incorrect username or password")
)

// Claims represents the JWT payload for authenticated requests.
type Claims struct {
	UserID   string `json:"uid"`
	Username string `json:"name"`
	jwt.RegisteredClaims
}

// AuthService handles account registration and JWT generation/validation.
// Its VerifyToken method is the credential verification collaborator for the
// realtime hub.
type AuthService struct {
	queries       *db.Queries
	secret        []byte
	tokenDuration time.Duration
}

// NewAuthService creates an AuthService with the given signing secret and
// token duration.
func NewAuthService(queries *db.Queries, secret string, tokenDuration time.Duration) *AuthService {
	return &AuthService{
		queries:       queries,
		secret:        []byte(secret),
		tokenDuration: tokenDuration,
	}
}

// Register creates a new user account with a hashed password.
func (s *AuthService) Register(ctx context.Context, username, password string) (db.User, error) {
	username = strings.TrimSpace(username)

	if _, err := s.queries.GetUserByUsername(ctx, username); err == nil {
		return db.User{}, ErrUsernameTaken
	} else if !errors.Is(err, sql.ErrNoRows) {
		return db.User{}, err
	}

	hash, err := crypto.HashPassword(password)
	if err != nil {
		return db.User{}, err
	}

	return s.queries.CreateUser(ctx, db.CreateUserParams{
		ID:           uuid.NewString(),
		Username:     username,
		PasswordHash: hash,
	})
}

// Login checks the credentials and returns a signed token for the user.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, db.User, error) {
	user, err := s.queries.GetUserByUsername(ctx, strings.TrimSpace(username))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", db.User{}, ErrInvalidCredentials
		}
		return "", db.User{}, err
	}

	if !crypto.VerifyPassword(password, user.PasswordHash) {
		return "", db.User{}, ErrInvalidCredentials
	}

	token, err := s.GenerateToken(user)
	if err != nil {
		return "", db.User{}, err
	}
	return token, user, nil
}

// GenerateToken creates a signed JWT for the given user.
func (s *AuthService) GenerateToken(user db.User) (string, error) {
	claims := Claims{
		UserID:   user.ID,
		Username: user.Username,
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "corkboard",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(s.tokenDuration)),
			IssuedAt:  jwt.NewNumericDate(time.Now()),
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(s.secret)
}

// ValidateToken verifies the JWT signature and expiry, returning the claims
// if valid.
func (s *AuthService) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, errors.New("unexpected signing method")
		}
		return s.secret, nil
	})

	if err != nil {
		return nil, err
	}

	if claims, ok := token.Claims.(*Claims); ok && token.Valid {
		return claims, nil
	}

	return nil, errors.New("invalid token")
}

// VerifyToken validates a token and resolves it to a user identity. It
// satisfies the realtime hub's TokenVerifier.
func (s *AuthService) VerifyToken(token string) (models.User, error) {
	claims, err := s.ValidateToken(token)
	if err != nil {
		return models.User{}, err
	}
	return models.User{ID: claims.UserID, Username: claims.Username}, nil
}
