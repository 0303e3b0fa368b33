package mailer

import (
	"context"
	"time"

	"github.com/go-mail/mail/v2"

	"github.com/xxxsen/hemline/internal/config"
)

type SMTPSender struct {
	dialer *mail.Dialer
	from   string
}

func NewSMTPSender(cfg config.SMTPConfig, from string) *SMTPSender {
	dialer := mail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password)
	dialer.Timeout = 30 * time.Second
	switch cfg.Port {
	case 587:
		dialer.StartTLSPolicy = mail.MandatoryStartTLS
	case 465:
		dialer.SSL = true
		dialer.StartTLSPolicy = mail.NoStartTLS
	default:
		dialer.StartTLSPolicy = mail.OpportunisticStartTLS
	}
	return &SMTPSender{dialer: dialer, from: from}
}

func (s *SMTPSender) Send(ctx context.Context, msg Message) error {
	if err := validate(msg); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	return s.dialer.DialAndSend(s.build(msg))
}

func (s *SMTPSender) build(msg Message) *mail.Message {
	m := mail.NewMessage()
	m.SetHeader("From", s.from)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetBody("text/plain", msg.Text)
	if msg.HTML != "" {
		m.AddAlternative("text/html", msg.HTML)
	}
	return m
}
