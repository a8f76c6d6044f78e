package notify

import (
	"context"
	"fmt"
	"time"

	"tradedesk/logging"

	"go.uber.org/zap"
	"gopkg.in/mail.v2"
)

// Mailer sends transactional email.
type Mailer interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

type SMTPMailer struct {
	dialer *mail.Dialer
	from   string
}

func NewSMTPMailer(host string, port int, username, password, from string) *SMTPMailer {
	d := mail.NewDialer(host, port, username, password)
	d.Timeout = 20 * time.Second
	d.StartTLSPolicy = mail.OpportunisticStartTLS
	return &SMTPMailer{dialer: d, from: from}
}

func (m *SMTPMailer) Send(ctx context.Context, to, subject, htmlBody string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	msg := mail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", htmlBody)

	if err := m.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("send mail: %w", err)
	}
	logging.Logger.Info("mail sent", zap.String("to", to), zap.String("subject", subject))
	return nil
}

// NopMailer logs instead of sending; used when SMTP is not configured.
type NopMailer struct{}

func (NopMailer) Send(_ context.Context, to, subject, _ string) error {
	logging.Logger.Info("mail skipped, SMTP not configured", zap.String("to", to), zap.String("subject", subject))
	return nil
}
