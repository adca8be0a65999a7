package protocol

import (
	"encoding/json"
	"errors"
	"testing"
)

func TestDecode(t *testing.T) {
	tests := []struct {
		name     string
		data     string
		wantType string
		wantErr  bool
	}{
		{"valid frame", `{"type":"ping"}`, "ping", false},
		{"valid frame with payload", `{"type":"auth","payload":{"token":"abc"}}`, "auth", false},
		{"missing type", `{"payload":{}}`, "", true},
		{"empty type", `{"type":""}`, "", true},
		{"not json", `hello`, "", true},
		{"json array", `[1,2,3]`, "", true},
		{"empty input", ``, "", true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env, err := Decode([]byte(tt.data))
			if tt.wantErr {
				if !errors.Is(err, ErrMalformed) {
					t.Fatalf("Decode() error = %v, want ErrMalformed", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("Decode() error = %v", err)
			}
			if env.Type != tt.wantType {
				t.Errorf("Type = %q, want %q", env.Type, tt.wantType)
			}
		})
	}
}

func TestDecodePreservesPayload(t *testing.T) {
	env, err := Decode([]byte(`{"type":"cursor_move","payload":{"x":10.5,"y":-3}}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}

	var p CursorMovePayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.X != 10.5 || p.Y != -3 {
		t.Errorf("payload = (%v, %v), want (10.5, -3)", p.X, p.Y)
	}
}

func TestEncodeRoundTrip(t *testing.T) {
	data, err := Encode(TypeError, ErrorPayload{Code: CodeForbidden, Message: "access denied"})
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}

	env, err := Decode(data)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if env.Type != TypeError {
		t.Errorf("Type = %q, want %q", env.Type, TypeError)
	}

	var p ErrorPayload
	if err := json.Unmarshal(env.Payload, &p); err != nil {
		t.Fatalf("unmarshal payload: %v", err)
	}
	if p.Code != CodeForbidden {
		t.Errorf("Code = %q, want %q", p.Code, CodeForbidden)
	}
}
