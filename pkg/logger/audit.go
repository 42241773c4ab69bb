package logger

import (
	"context"
	"log/slog"
	"time"
)

// AuditEvent represents a login or session audit event
type AuditEvent struct {
	EventType     string
	UserID        string
	Email         string // logged masked
	IPAddress     string
	UserAgent     string
	Success       bool
	FailureReason string
	Metadata      map[string]string
}

// AuditLogger writes audit records through the application logger under the "audit" message
type AuditLogger struct {
	logger *slog.Logger
}

func NewAuditLogger(logger *slog.Logger) *AuditLogger {
	return &AuditLogger{
		logger: logger,
	}
}

// LogAuthAttempt logs login, logout and registration outcomes. Failures are WARN.
func (al *AuditLogger) LogAuthAttempt(event AuditEvent) {
	attrs := []slog.Attr{
		slog.String("event_type", event.EventType),
		slog.Bool("success", event.Success),
	}
	attrs = appendIfSet(attrs, "user_id", event.UserID)
	if event.Email != "" {
		attrs = append(attrs, slog.String("email", SanitizedEmail(event.Email)))
	}
	attrs = appendIfSet(attrs, "ip_address", event.IPAddress)
	attrs = appendIfSet(attrs, "user_agent", event.UserAgent)
	attrs = appendIfSet(attrs, "failure_reason", event.FailureReason)
	attrs = appendMetadata(attrs, event.Metadata)

	level := slog.LevelInfo
	if !event.Success {
		level = slog.LevelWarn
	}
	al.emit("auth", level, attrs)
}

// LogAccountAction logs administrative changes to user accounts
func (al *AuditLogger) LogAccountAction(eventType, userID, actorID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("event_type", eventType),
		slog.String("user_id", userID),
	}
	attrs = appendIfSet(attrs, "actor_id", actorID)
	al.emit("account", slog.LevelInfo, appendMetadata(attrs, metadata))
}

// LogSurveyEvent logs link issuance and rejected submissions for a survey
func (al *AuditLogger) LogSurveyEvent(eventType, surveyID, actorID string, metadata map[string]string) {
	attrs := []slog.Attr{
		slog.String("event_type", eventType),
		slog.String("survey_id", surveyID),
	}
	attrs = appendIfSet(attrs, "actor_id", actorID)
	al.emit("survey", slog.LevelInfo, appendMetadata(attrs, metadata))
}

func (al *AuditLogger) emit(auditType string, level slog.Level, attrs []slog.Attr) {
	attrs = append([]slog.Attr{
		slog.String("audit_type", auditType),
		slog.String("timestamp", time.Now().UTC().Format(time.RFC3339)),
	}, attrs...)
	al.logger.LogAttrs(context.Background(), level, "audit", attrs...)
}

func appendIfSet(attrs []slog.Attr, key, value string) []slog.Attr {
	if value == "" {
		return attrs
	}
	return append(attrs, slog.String(key, value))
}

func appendMetadata(attrs []slog.Attr, metadata map[string]string) []slog.Attr {
	for key, val := range metadata {
		attrs = append(attrs, slog.String(key, val))
	}
	return attrs
}
