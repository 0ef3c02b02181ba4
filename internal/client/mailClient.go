package client

import (
	"context"
	"errors"

	"gopkg.in/gomail.v2"

	"storefront-fulfillment/internal/config"
)

type Mailer interface {
	Send(ctx context.Context, to, subject, body string) error
}

var ErrMailerDisabled = errors.New("smtp mailer is not configured")

// NewMailer returns a disabled mailer when no SMTP host is set; every Send then fails with ErrMailerDisabled.
func NewMailer(cfg config.SMTP) Mailer {
	if cfg.Host == "" {
		return disabledMailer{}
	}

	return &smtpMailer{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
	}
}

type smtpMailer struct {
	dialer *gomail.Dialer
	from   string
}

func (m *smtpMailer) Send(ctx context.Context, to, subject, body string) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := gomail.NewMessage()
	msg.SetHeader("From", m.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/plain", body)

	return m.dialer.DialAndSend(msg)
}

type disabledMailer struct{}

func (disabledMailer) Send(context.Context, string, string, string) error {
	return ErrMailerDisabled
}
