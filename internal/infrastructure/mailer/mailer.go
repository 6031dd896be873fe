package mailer

import (
	"context"
	"fmt"
	"log/slog"

	gomail "github.com/wneessen/go-mail"

	"github.com/CacconeLabYale/TsetseCheckout/internal/pkg/config"
)

// Mailer sends confirmation messages over SMTP.
type Mailer struct {
	client *gomail.Client
	sender string
	logger *slog.Logger
}

// NewMailer creates an SMTP mailer from config. Auth is skipped when no
// username is configured, which covers local relay setups.
func NewMailer(cfg *config.SMTPConfig, logger *slog.Logger) (*Mailer, error) {
	opts := []gomail.Option{
		gomail.WithPort(cfg.Port),
	}
	if cfg.Username != "" {
		opts = append(opts,
			gomail.WithSMTPAuth(gomail.SMTPAuthPlain),
			gomail.WithUsername(cfg.Username),
			gomail.WithPassword(cfg.Password),
		)
	}

	client, err := gomail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create mail client: %w", err)
	}

	logger.Info("mail client created",
		slog.String("host", cfg.Host),
		slog.Int("port", cfg.Port),
		slog.String("sender", cfg.Sender),
	)

	return &Mailer{
		client: client,
		sender: cfg.Sender,
		logger: logger,
	}, nil
}

// Send delivers a plain-text message to a single recipient.
func (m *Mailer) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMsg()
	if err := msg.From(m.sender); err != nil {
		return fmt.Errorf("invalid sender address %q: %w", m.sender, err)
	}
	if err := msg.To(to); err != nil {
		return fmt.Errorf("invalid recipient address %q: %w", to, err)
	}
	msg.Subject(subject)
	msg.SetBodyString(gomail.TypeTextPlain, body)

	if err := m.client.DialAndSendWithContext(ctx, msg); err != nil {
		m.logger.Error("failed to send email",
			slog.String("to", to),
			slog.String("subject", subject),
			slog.Any("error", err))
		return fmt.Errorf("failed to send email: %w", err)
	}

	m.logger.Info("email sent",
		slog.String("to", to),
		slog.String("subject", subject))

	return nil
}
