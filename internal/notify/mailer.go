// Package notify sends the account lifecycle emails.
package notify

import (
	"context"
	"fmt"
	"strings"

	"github.com/resend/resend-go/v2"
	"github.com/rs/zerolog"

	"concertlog/api/internal/config"
)

type Message struct {
	To      string
	ToName  string
	Subject string
	Text    string
}

type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// NewMailer picks the provider named by cfg. Without credentials it falls
// back to logging the message.
func NewMailer(cfg *config.AppConfig, log zerolog.Logger) (Mailer, error) {
	switch provider := cfg.EmailProvider(); provider {
	case "sendgrid":
		if cfg.Email.SendGridAPIKey == "" {
			return nil, fmt.Errorf("email provider sendgrid: missing api key")
		}
		return NewSendGridMailer(cfg.Email.SendGridAPIKey, cfg.Email.SendGridHost, cfg.Email.From), nil
	case "resend":
		if cfg.Email.ResendAPIKey == "" {
			return nil, fmt.Errorf("email provider resend: missing api key")
		}
		return NewResendMailer(resend.NewClient(cfg.Email.ResendAPIKey), cfg.Email.From), nil
	case "log":
		return NewLogMailer(log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", provider)
	}
}

type LogMailer struct {
	log zerolog.Logger
}

func NewLogMailer(log zerolog.Logger) *LogMailer {
	return &LogMailer{log: log}
}

func (m *LogMailer) Send(_ context.Context, msg Message) error {
	m.log.Info().
		Str("to", msg.To).
		Str("subject", msg.Subject).
		Int("text_len", len(strings.TrimSpace(msg.Text))).
		Msg("email not sent: no provider configured")
	return nil
}
