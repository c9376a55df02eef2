package httpx

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestWriteJSON(t *testing.T) {
	tests := []struct {
		name       string
		status     int
		data       any
		wantStatus int
		wantJSON   string
	}{
		{
			name:       "wrapped link",
			status:     http.StatusCreated,
			data:       map[string]any{"link": map[string]any{"token": "ab12", "current_views": 0}},
			wantStatus: http.StatusCreated,
			wantJSON:   `{"link":{"current_views":0,"token":"ab12"}}`,
		},
		{
			name:       "empty list",
			status:     http.StatusOK,
			data:       map[string][]string{"links": {}},
			wantStatus: http.StatusOK,
			wantJSON:   `{"links":[]}`,
		},
		{
			name:       "unencodable value becomes 500",
			status:     http.StatusOK,
			data:       map[string]any{"bad": make(chan int)},
			wantStatus: http.StatusInternalServerError,
			wantJSON:   `{"error":"internal_error"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			WriteJSON(rr, tt.status, tt.data)

			if rr.Code != tt.wantStatus {
				t.Errorf("expected status %d, got %d", tt.wantStatus, rr.Code)
			}
			if ct := rr.Header().Get("Content-Type"); ct != "application/json" {
				t.Errorf("expected Content-Type application/json, got %q", ct)
			}

			// Normalize JSON for comparison (handles field ordering)
			var got, want any
			if err := json.Unmarshal(rr.Body.Bytes(), &got); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if err := json.Unmarshal([]byte(tt.wantJSON), &want); err != nil {
				t.Fatalf("failed to unmarshal expected JSON: %v", err)
			}
			gotJSON, _ := json.Marshal(got)
			wantJSON, _ := json.Marshal(want)
			if string(gotJSON) != string(wantJSON) {
				t.Errorf("expected JSON %s, got %s", wantJSON, gotJSON)
			}
		})
	}
}

func TestWriteError(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		code        string
		message     string
		details     any
		wantDetails string
	}{
		{
			name:    "denial without details",
			status:  http.StatusForbidden,
			code:    "view_limit_exceeded",
			message: "view limit exceeded",
		},
		{
			name:        "validation with field detail",
			status:      http.StatusBadRequest,
			code:        "validation_failed",
			message:     "title: must not be empty",
			details:     FieldDetail{Field: "title", Reason: "must not be empty"},
			wantDetails: `{"field":"title","reason":"must not be empty"}`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rr := httptest.NewRecorder()

			WriteError(rr, tt.status, tt.code, tt.message, tt.details)

			if rr.Code != tt.status {
				t.Errorf("expected status %d, got %d", tt.status, rr.Code)
			}

			var response struct {
				Error   string          `json:"error"`
				Message string          `json:"message"`
				Details json.RawMessage `json:"details"`
			}
			if err := json.Unmarshal(rr.Body.Bytes(), &response); err != nil {
				t.Fatalf("failed to unmarshal response: %v", err)
			}
			if response.Error != tt.code {
				t.Errorf("expected error %q, got %q", tt.code, response.Error)
			}
			if response.Message != tt.message {
				t.Errorf("expected message %q, got %q", tt.message, response.Message)
			}
			if string(response.Details) != tt.wantDetails {
				t.Errorf("expected details %s, got %s", tt.wantDetails, response.Details)
			}
		})
	}
}

func TestSetRetryAfter(t *testing.T) {
	tests := []struct {
		d    time.Duration
		want string
	}{
		{time.Minute, "60"},
		{1500 * time.Millisecond, "2"},
		{0, "1"},
	}

	for _, tt := range tests {
		t.Run(tt.d.String(), func(t *testing.T) {
			rr := httptest.NewRecorder()
			SetRetryAfter(rr, tt.d)
			if got := rr.Header().Get("Retry-After"); got != tt.want {
				t.Errorf("Retry-After = %q, want %q", got, tt.want)
			}
		})
	}
}
