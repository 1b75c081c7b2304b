package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
)

// The fake task service answers 401 for every header shape except a
// non-empty "Bearer <token>".
func TestExtractBearerToken(t *testing.T) {
	tests := []struct {
		name    string
		header  string
		want    string
		wantErr error
	}{
		{name: "session token", header: "Bearer eyJhbGciOi.abc_123-XYZ.789", want: "eyJhbGciOi.abc_123-XYZ.789"},
		{name: "no header", header: "", wantErr: ErrMissingAuthHeader},
		{name: "basic auth", header: "Basic dXNlcjpwYXNz", wantErr: ErrInvalidAuthScheme},
		{name: "lowercase scheme", header: "bearer t1", wantErr: ErrInvalidAuthScheme},
		{name: "scheme only", header: "Bearer", wantErr: ErrInvalidAuthScheme},
		{name: "blank token", header: "Bearer ", wantErr: ErrEmptyToken},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/api/tasks", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			got, err := ExtractBearerToken(req)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("ExtractBearerToken() error = %v, want %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ExtractBearerToken() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestSetBearer_AttachesHeader(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	SetBearer(req, "t1")

	if got := req.Header.Get("Authorization"); got != "Bearer t1" {
		t.Errorf("expected 'Bearer t1', got %q", got)
	}
}

func TestSetBearer_EmptyTokenLeavesRequestUntouched(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)

	SetBearer(req, "")

	if got := req.Header.Get("Authorization"); got != "" {
		t.Errorf("expected no Authorization header, got %q", got)
	}
}

func TestSetBearer_RoundTripsThroughExtract(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	SetBearer(req, "abc.def.ghi")

	token, err := ExtractBearerToken(req)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if token != "abc.def.ghi" {
		t.Errorf("expected 'abc.def.ghi', got %q", token)
	}
}

func TestWriteJSONError(t *testing.T) {
	tests := []struct {
		name    string
		write   func(w http.ResponseWriter)
		status  int
		message string
	}{
		{
			name:    "custom",
			write:   func(w http.ResponseWriter) { WriteJSONError(w, http.StatusBadRequest, "Title is required") },
			status:  http.StatusBadRequest,
			message: "Title is required",
		},
		{
			name:    "unauthorized",
			write:   WriteUnauthorized,
			status:  http.StatusUnauthorized,
			message: "Not authorized, no token",
		},
		{
			name:    "forbidden",
			write:   WriteForbidden,
			status:  http.StatusForbidden,
			message: "Not authorized",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			tt.write(rec)

			if rec.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rec.Code)
			}
			if ct := rec.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type 'application/json', got %q", ct)
			}

			var resp ErrorBody
			if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
				t.Fatalf("failed to parse JSON response: %v", err)
			}
			if resp.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, resp.Message)
			}
		})
	}
}
