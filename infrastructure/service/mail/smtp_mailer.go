package mail

import (
	"context"
	"fmt"
	"net/smtp"
)

type Config struct {
	Host     string
	Port     string
	From     string
	Username string
	Password string
}

// SMTPMailer delivers plain-text mail over SMTP. Sends are synchronous
// and never retried here; callers re-invoke the operation to resend.
type SMTPMailer struct {
	config Config
}

func NewSMTPMailer(config Config) *SMTPMailer {
	return &SMTPMailer{config: config}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, body string) error {
	addr := m.config.Host + ":" + m.config.Port

	msg := []byte("From: " + m.config.From + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" +
		body + "\r\n")

	var auth smtp.Auth
	if m.config.Username != "" {
		auth = smtp.PlainAuth("", m.config.Username, m.config.Password, m.config.Host)
	}

	if err := smtp.SendMail(addr, auth, m.config.From, []string{to}, msg); err != nil {
		return fmt.Errorf("failed to send mail to %s: %w", to, err)
	}

	return nil
}
