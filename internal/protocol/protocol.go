// Package protocol defines the websocket wire envelope, the closed set of
// message types exchanged with clients, and the error codes used in error
// frames. Every frame is a UTF-8 text message of the form
// {"type": <string>, "payload": <object>}.
package protocol

import (
	"encoding/json"
	"errors"
)

// Client-to-server message types.
const (
	TypeAuth            = "auth"
	TypeJoinWhiteboard  = "join_whiteboard"
	TypeLeaveWhiteboard = "leave_whiteboard"
	TypeCursorMove      = "cursor_move"
	TypeNotePosition    = "note_position"
	TypePing            = "ping"
)

// Server-to-client message types.
const (
	TypeAuthSuccess       = "auth_success"
	TypeWhiteboardJoined  = "whiteboard_joined"
	TypeWhiteboardLeft    = "whiteboard_left"
	TypeUserJoined        = "user_joined"
	TypeUserLeft          = "user_left"
	TypeCursorUpdate      = "cursor_update"
	TypeNoteCreated       = "note_created"
	TypeNoteUpdated       = "note_updated"
	TypeNoteDeleted       = "note_deleted"
	TypeWhiteboardCreated = "whiteboard_created"
	TypeWhiteboardUpdated = "whiteboard_updated"
	TypeWhiteboardDeleted = "whiteboard_deleted"
	TypePresenceUpdate    = "presence_update"
	TypePong              = "pong"
	TypeError             = "error"
)

// Error codes carried in error frames. AuthFailed and Protocol precede a
// close; the rest are recoverable and leave the connection open.
const (
	CodeAuthFailed = "AUTH_FAILED"
	CodeProtocol   = "PROTOCOL"
	CodeBadMessage = "BAD_MESSAGE"
	CodeForbidden  = "FORBIDDEN"
	CodeNotFound   = "NOT_FOUND"
)

// ErrMalformed is returned by Decode for frames that are not a valid
// envelope.
var ErrMalformed = errors.New("malformed message envelope")

// Envelope is the wire framing for every message in both directions.
type Envelope struct {
	Type    string          `json:"type"`
	Payload json.RawMessage `json:"payload,omitempty"`
}

// Decode parses a raw frame into an Envelope. Frames that are not JSON
// objects or are missing a type are rejected with ErrMalformed.
func Decode(data []byte) (Envelope, error) {
	var env Envelope
	if err := json.Unmarshal(data, &env); err != nil {
		return Envelope{}, ErrMalformed
	}
	if env.Type == "" {
		return Envelope{}, ErrMalformed
	}
	return env, nil
}

// Encode builds a raw frame from a message type and payload.
func Encode(msgType string, payload any) ([]byte, error) {
	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(Envelope{Type: msgType, Payload: raw})
}

// AuthPayload is the payload of an auth frame.
type AuthPayload struct {
	Token string `json:"token"`
}

// JoinWhiteboardPayload is the payload of a join_whiteboard frame.
type JoinWhiteboardPayload struct {
	WhiteboardID string `json:"whiteboard_id"`
}

// CursorMovePayload is the payload of a cursor_move frame. Positions are
// last-write-wins; there is no sequencing.
type CursorMovePayload struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// NotePositionPayload is the payload of a note_position frame: an ephemeral
// drag position that is broadcast but never persisted.
type NotePositionPayload struct {
	WhiteboardID string  `json:"whiteboard_id"`
	NoteID       string  `json:"note_id"`
	XPosition    float64 `json:"x_position"`
	YPosition    float64 `json:"y_position"`
}

// ErrorPayload is the payload of an error frame.
type ErrorPayload struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}
