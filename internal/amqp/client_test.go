package amqp

import (
	"errors"
	"fmt"
	"testing"
	"time"
)

func TestExponentialBackoff(t *testing.T) {
	tests := []struct {
		attempt  int
		expected time.Duration
	}{
		{0, 1 * time.Second},
		{1, 2 * time.Second},
		{2, 4 * time.Second},
		{3, 8 * time.Second},
		{4, 16 * time.Second},
		{5, 30 * time.Second},  // capped at 30s
		{10, 30 * time.Second}, // capped at 30s
		{15, 30 * time.Second}, // capped at 30s
	}

	for _, tt := range tests {
		t.Run(fmt.Sprintf("attempt_%d", tt.attempt), func(t *testing.T) {
			result := exponentialBackoff(tt.attempt)
			if result != tt.expected {
				t.Errorf("exponentialBackoff(%d) = %v, want %v", tt.attempt, result, tt.expected)
			}
		})
	}
}

func TestIsConnectionError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected bool
	}{
		{
			name:     "nil error",
			err:      nil,
			expected: false,
		},
		{
			name:     "connection error",
			err:      errors.New("connection refused"),
			expected: true,
		},
		{
			name:     "closed connection error",
			err:      errors.New("connection closed"),
			expected: true,
		},
		{
			name:     "EOF error",
			err:      errors.New("unexpected EOF"),
			expected: true,
		},
		{
			name:     "broken pipe error",
			err:      errors.New("broken pipe"),
			expected: true,
		},
		{
			name:     "closed network connection error",
			err:      errors.New("use of closed network connection"),
			expected: true,
		},
		{
			name:     "delivery channel closed",
			err:      errors.New("message channel closed"),
			expected: true,
		},
		{
			name:     "other error",
			err:      errors.New("some other error"),
			expected: false,
		},
		{
			name:     "handler error",
			err:      errors.New("invalid input"),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := isConnectionError(tt.err)
			if result != tt.expected {
				t.Errorf("isConnectionError(%v) = %v, want %v", tt.err, result, tt.expected)
			}
		})
	}
}

func TestRefreshRequestRoundTrip(t *testing.T) {
	msg := NewRefreshRequest("dashboard", "manual refresh")
	if msg.RequestID == "" {
		t.Fatal("request id must be set")
	}
	if msg.Timestamp.IsZero() {
		t.Fatal("timestamp must be set")
	}

	body, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}

	got, err := RefreshRequestFromJSON(body)
	if err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if got.RequestID != msg.RequestID || got.RequestedBy != "dashboard" || got.Reason != "manual refresh" {
		t.Errorf("round trip mismatch: %+v", got)
	}
	if !got.Timestamp.Equal(msg.Timestamp) {
		t.Errorf("timestamp mismatch: %v vs %v", got.Timestamp, msg.Timestamp)
	}
}

func TestRefreshRequestIDsAreUnique(t *testing.T) {
	a := NewRefreshRequest("a", "")
	b := NewRefreshRequest("b", "")
	if a.RequestID == b.RequestID {
		t.Error("request ids must differ between messages")
	}
}

func TestRefreshRequestFromJSONRejectsGarbage(t *testing.T) {
	if _, err := RefreshRequestFromJSON([]byte("not json")); err == nil {
		t.Error("expected error for malformed payload")
	}
}
