package logger

import (
	"context"
	"io"
	"os"
	"time"

	"github.com/sirupsen/logrus"
)

// CorrelationIDKey is the context key the HTTP middleware stores the
// request correlation ID under.
type contextKey string

const CorrelationIDKey contextKey = "correlation_id"

// Logger is the structured logging surface used across the service.
type Logger interface {
	Info(ctx context.Context, message string, fields map[string]interface{})
	Error(ctx context.Context, message string, err error, fields map[string]interface{})
	Warn(ctx context.Context, message string, fields map[string]interface{})
	Debug(ctx context.Context, message string, fields map[string]interface{})
	WithFields(fields map[string]interface{}) Logger
}

type structuredLogger struct {
	logger *logrus.Logger
	fields map[string]interface{}
}

type Config struct {
	Level       string
	Format      string
	ServiceName string
}

func NewStructuredLogger(config Config) Logger {
	logrusLogger := logrus.New()

	level, err := logrus.ParseLevel(config.Level)
	if err != nil {
		level = logrus.InfoLevel
	}
	logrusLogger.SetLevel(level)

	if config.Format == "json" {
		logrusLogger.SetFormatter(&logrus.JSONFormatter{
			TimestampFormat: time.RFC3339Nano,
		})
	} else {
		logrusLogger.SetFormatter(&logrus.TextFormatter{
			TimestampFormat: time.RFC3339Nano,
			FullTimestamp:   true,
		})
	}

	logrusLogger.SetOutput(os.Stdout)

	return &structuredLogger{
		logger: logrusLogger,
		fields: map[string]interface{}{
			"service": config.ServiceName,
		},
	}
}

func (l *structuredLogger) Info(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, fields).Info(message)
}

func (l *structuredLogger) Error(ctx context.Context, message string, err error, fields map[string]interface{}) {
	entry := l.entry(ctx, fields)
	if err != nil {
		entry = entry.WithError(err)
	}
	entry.Error(message)
}

func (l *structuredLogger) Warn(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, fields).Warn(message)
}

func (l *structuredLogger) Debug(ctx context.Context, message string, fields map[string]interface{}) {
	l.entry(ctx, fields).Debug(message)
}

func (l *structuredLogger) WithFields(fields map[string]interface{}) Logger {
	merged := make(map[string]interface{}, len(l.fields)+len(fields))
	for k, v := range l.fields {
		merged[k] = v
	}
	for k, v := range fields {
		merged[k] = v
	}

	return &structuredLogger{
		logger: l.logger,
		fields: merged,
	}
}

func (l *structuredLogger) entry(ctx context.Context, fields map[string]interface{}) *logrus.Entry {
	entry := l.logger.WithFields(logrus.Fields(l.fields))
	if cid, ok := ctx.Value(CorrelationIDKey).(string); ok && cid != "" {
		entry = entry.WithField("correlation_id", cid)
	}
	if fields != nil {
		entry = entry.WithFields(logrus.Fields(fields))
	}
	return entry
}

// LogAuthEvent records an authentication lifecycle event (login, logout,
// token rotation) in a uniform shape.
func LogAuthEvent(ctx context.Context, l Logger, event, email string, success bool, fields map[string]interface{}) {
	merged := map[string]interface{}{
		"event":   event,
		"success": success,
	}
	if email != "" {
		merged["email"] = email
	}
	for k, v := range fields {
		merged[k] = v
	}

	if success {
		l.Info(ctx, "auth event", merged)
	} else {
		l.Warn(ctx, "auth event", merged)
	}
}

// LogSecurityEvent records a suspicious condition such as a refresh token
// mismatch or a tampered bearer token.
func LogSecurityEvent(ctx context.Context, l Logger, event, severity string, fields map[string]interface{}) {
	merged := map[string]interface{}{
		"event":    event,
		"severity": severity,
	}
	for k, v := range fields {
		merged[k] = v
	}
	l.Warn(ctx, "security event", merged)
}

// NewNopLogger returns a logger that discards everything. Used by tests.
func NewNopLogger() Logger {
	logrusLogger := logrus.New()
	logrusLogger.SetOutput(io.Discard)
	logrusLogger.SetLevel(logrus.PanicLevel)
	return &structuredLogger{
		logger: logrusLogger,
		fields: map[string]interface{}{},
	}
}
