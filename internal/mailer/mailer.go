package mailer

import (
	"context"
	"fmt"
	"strings"

	"github.com/xxxsen/hemline/internal/config"
)

// Message is a rendered email with a plain text part and an optional HTML part.
type Message struct {
	To      string
	Subject string
	Text    string
	HTML    string
	// Tag labels the message for providers that support it.
	Tag string
}

type Sender interface {
	Send(ctx context.Context, msg Message) error
}

func New(cfg config.MailConfig) (Sender, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "log":
		return NewLogSender(), nil
	case "smtp":
		return NewSMTPSender(cfg.SMTP, formatFrom(cfg.FromName, cfg.From)), nil
	case "postmark":
		return NewPostmarkSender(cfg.Postmark.ServerToken, formatFrom(cfg.FromName, cfg.From), WithMessageStream(cfg.Postmark.MessageStream)), nil
	default:
		return nil, fmt.Errorf("unsupported mail provider: %s", cfg.Provider)
	}
}

func formatFrom(name, addr string) string {
	addr = strings.TrimSpace(addr)
	name = strings.TrimSpace(name)
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}

func validate(msg Message) error {
	if strings.TrimSpace(msg.To) == "" {
		return fmt.Errorf("mail recipient is required")
	}
	if strings.TrimSpace(msg.Subject) == "" {
		return fmt.Errorf("mail subject is required")
	}
	return nil
}
