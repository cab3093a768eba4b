package mail

import (
	"context"

	"github.com/jobtrack/jobtrack/infrastructure/service/logger"
)

// LogMailer writes mail to the log instead of dispatching it. Used when
// no SMTP host is configured, typically in development.
type LogMailer struct {
	logger logger.Logger
}

func NewLogMailer(log logger.Logger) *LogMailer {
	return &LogMailer{logger: log}
}

func (m *LogMailer) Send(ctx context.Context, to, subject, body string) error {
	m.logger.Info(ctx, "mail (not dispatched, no SMTP host configured)", map[string]interface{}{
		"to":      to,
		"subject": subject,
		"body":    body,
	})
	return nil
}
