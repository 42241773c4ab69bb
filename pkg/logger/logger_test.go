package logger

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSanitizedEmail(t *testing.T) {
	tests := []struct {
		email    string
		expected string
	}{
		{"user@example.com", "u***@*******.com"},
		{"a@example.co.uk", "a@*******.**.uk"},
		{"not-an-email", "[invalid-email]"},
		{"a@b@c.com", "[invalid-email]"},
	}

	for _, tt := range tests {
		t.Run(tt.email, func(t *testing.T) {
			assert.Equal(t, tt.expected, SanitizedEmail(tt.email))
		})
	}
}

func TestSanitizeQueryString(t *testing.T) {
	tests := []struct {
		query    string
		redacted bool
	}{
		{"", false},
		{"limit=10&offset=20", false},
		{"token=abc", true},
		{"linkToken=abc", true},
		{"limit=5&Password=x", true},
		{"api_key=1", true},
		{"%zz", true},
	}

	for _, tt := range tests {
		t.Run(tt.query, func(t *testing.T) {
			assert.Equal(t, tt.redacted, SanitizeQueryString(tt.query))
		})
	}
}

func TestAuditLogger_LogAuthAttempt(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogAuthAttempt(AuditEvent{
		EventType:     "login_failed",
		Email:         "user@example.com",
		IPAddress:     "192.0.2.1",
		FailureReason: "invalid_credentials",
	})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "audit", entry["msg"])
	assert.Equal(t, "auth", entry["audit_type"])
	assert.Equal(t, "u***@*******.com", entry["email"])
	assert.Equal(t, "invalid_credentials", entry["failure_reason"])
	assert.NotContains(t, entry, "user_id")
}

func TestAuditLogger_LogSurveyEvent(t *testing.T) {
	var buf bytes.Buffer
	al := NewAuditLogger(slog.New(slog.NewJSONHandler(&buf, nil)))

	al.LogSurveyEvent("duplicate_submission", "survey-1", "", map[string]string{"fingerprint": "abc"})

	var entry map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "INFO", entry["level"])
	assert.Equal(t, "survey", entry["audit_type"])
	assert.Equal(t, "survey-1", entry["survey_id"])
	assert.Equal(t, "abc", entry["fingerprint"])
	assert.NotContains(t, entry, "actor_id")
}
