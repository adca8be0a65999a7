// Package models defines the JSON shapes shared by the REST API and the
// realtime protocol payloads.
package models

import "time"

// User identifies an authenticated user in outgoing events.
type User struct {
	ID       string `json:"id"`
	Username string `json:"username"`
}

// Viewer is a user currently viewing a whiteboard, with their last known
// cursor position.
type Viewer struct {
	ID       string  `json:"id"`
	Username string  `json:"username"`
	CursorX  float64 `json:"cursor_x"`
	CursorY  float64 `json:"cursor_y"`
}

// Auth
type RegisterRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type TokenResponse struct {
	AccessToken string `json:"access_token"`
	TokenType   string `json:"token_type"`
}

type UserResponse struct {
	ID        string    `json:"id"`
	Username  string    `json:"username"`
	CreatedAt time.Time `json:"created_at"`
}

// Whiteboards
type CreateWhiteboardRequest struct {
	Name     string `json:"name"`
	IsPublic bool   `json:"is_public"`
}

type UpdateWhiteboardRequest struct {
	Name     *string `json:"name,omitempty"`
	IsPublic *bool   `json:"is_public,omitempty"`
}

type WhiteboardResponse struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	OwnerID   string    `json:"owner_id"`
	IsPublic  bool      `json:"is_public"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

type ShareWhiteboardRequest struct {
	Username   string `json:"username"`
	Permission string `json:"permission"` // "view" or "edit"
}

type ShareResponse struct {
	WhiteboardID string `json:"whiteboard_id"`
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	Permission   string `json:"permission"`
}

// Notes
type CreateNoteRequest struct {
	Content   string  `json:"content"`
	Color     string  `json:"color,omitempty"`
	XPosition float64 `json:"x_position"`
	YPosition float64 `json:"y_position"`
	Width     float64 `json:"width,omitempty"`
	Height    float64 `json:"height,omitempty"`
}

type UpdateNoteRequest struct {
	Content   *string  `json:"content,omitempty"`
	Color     *string  `json:"color,omitempty"`
	XPosition *float64 `json:"x_position,omitempty"`
	YPosition *float64 `json:"y_position,omitempty"`
	Width     *float64 `json:"width,omitempty"`
	Height    *float64 `json:"height,omitempty"`
}

type NoteResponse struct {
	ID           string    `json:"id"`
	WhiteboardID string    `json:"whiteboard_id"`
	Content      string    `json:"content"`
	Color        string    `json:"color"`
	XPosition    float64   `json:"x_position"`
	YPosition    float64   `json:"y_position"`
	Width        float64   `json:"width"`
	Height       float64   `json:"height"`
	CreatedBy    string    `json:"created_by"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Realtime outbound payloads
type AuthSuccessPayload struct {
	UserID       string `json:"user_id"`
	Username     string `json:"username"`
	ConnectionID string `json:"connection_id"`
}

type WhiteboardJoinedPayload struct {
	WhiteboardID string   `json:"whiteboard_id"`
	Viewers      []Viewer `json:"viewers"`
}

type UserJoinedPayload struct {
	User    User     `json:"user"`
	Viewers []Viewer `json:"viewers"`
}

type UserLeftPayload struct {
	UserID  string   `json:"user_id"`
	Viewers []Viewer `json:"viewers"`
}

type CursorUpdatePayload struct {
	UserID   string  `json:"user_id"`
	Username string  `json:"username"`
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
}

type NoteEventPayload struct {
	Note   NoteResponse `json:"note"`
	ByUser User         `json:"by_user"`
}

type NoteDeletedPayload struct {
	NoteID string `json:"note_id"`
	ByUser User   `json:"by_user"`
}

type NotePositionEventPayload struct {
	NoteID    string  `json:"note_id"`
	XPosition float64 `json:"x_position"`
	YPosition float64 `json:"y_position"`
	ByUser    User    `json:"by_user"`
}

type WhiteboardEventPayload struct {
	Whiteboard WhiteboardResponse `json:"whiteboard"`
	ByUser     User               `json:"by_user"`
}

type WhiteboardDeletedPayload struct {
	WhiteboardID string `json:"whiteboard_id"`
	ByUser       User   `json:"by_user"`
}

type PresenceUpdatePayload struct {
	OnlineUsers []User `json:"online_users"`
}

// Error response
type ErrorResponse struct {
	Error   string `json:"error"`
	Message string `json:"message,omitempty"`
}
