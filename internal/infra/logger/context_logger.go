// ABOUTME: This file provides context-aware structured logging for chat requests
// ABOUTME: Supports chat ID, profile, and job ID propagation with JSON output format
package logger

import (
	"context"
	"log/slog"
	"os"
)

type ContextKey string

const (
	// Business context keys following OpenTelemetry semantic conventions
	// with a 'chat.' prefix
	ChatIDKey    ContextKey = "chat.id"
	MessageIDKey ContextKey = "chat.message.id"
	ProfileKey   ContextKey = "chat.profile"
	JobIDKey     ContextKey = "chat.job.id"
	UserIDKey    ContextKey = "chat.user.id"
)

// ContextLogger provides context-aware logging with chat business context
type ContextLogger struct {
	logger      *slog.Logger
	serviceName string
}

// NewContextLogger creates a new context-aware logger
func NewContextLogger(serviceName string) *ContextLogger {
	opts := &slog.HandlerOptions{
		Level: parseLevel(os.Getenv("LOG_LEVEL")),
	}
	handler := slog.NewJSONHandler(os.Stdout, opts)

	return &ContextLogger{
		logger:      slog.New(handler),
		serviceName: serviceName,
	}
}

// WithContext returns a logger with context values extracted and added as fields
func (cl *ContextLogger) WithContext(ctx context.Context) *slog.Logger {
	logger := cl.logger.With("service", cl.serviceName)

	var fields []any

	if chatID := ctx.Value(ChatIDKey); chatID != nil {
		fields = append(fields, string(ChatIDKey), chatID)
	}
	if messageID := ctx.Value(MessageIDKey); messageID != nil {
		fields = append(fields, string(MessageIDKey), messageID)
	}
	if profile := ctx.Value(ProfileKey); profile != nil {
		fields = append(fields, string(ProfileKey), profile)
	}
	if jobID := ctx.Value(JobIDKey); jobID != nil {
		fields = append(fields, string(JobIDKey), jobID)
	}
	if userID := ctx.Value(UserIDKey); userID != nil {
		fields = append(fields, string(UserIDKey), userID)
	}

	if len(fields) > 0 {
		logger = logger.With(fields...)
	}

	return logger
}

// Context helper functions

// WithChatID adds the chat session id to context for observability
func WithChatID(ctx context.Context, chatID string) context.Context {
	return context.WithValue(ctx, ChatIDKey, chatID)
}

// WithMessageID adds the message id to context for observability
func WithMessageID(ctx context.Context, messageID string) context.Context {
	return context.WithValue(ctx, MessageIDKey, messageID)
}

// WithProfile adds the resolved profile name to context for observability
func WithProfile(ctx context.Context, profile string) context.Context {
	return context.WithValue(ctx, ProfileKey, profile)
}

// WithJobID adds the ingest job id to context for observability
func WithJobID(ctx context.Context, jobID string) context.Context {
	return context.WithValue(ctx, JobIDKey, jobID)
}

// WithUserID adds the requesting user id to context for observability
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, UserIDKey, userID)
}

func parseLevel(level string) slog.Level {
	switch level {
	case "debug", "DEBUG":
		return slog.LevelDebug
	case "warn", "WARN", "warning", "WARNING":
		return slog.LevelWarn
	case "error", "ERROR":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
