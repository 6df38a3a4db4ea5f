package email

import (
	"context"
	"fmt"

	"notification-dispatcher/internal/common/aws"
	"notification-dispatcher/internal/common/config"
	"notification-dispatcher/internal/common/logger"
)

// Sender delivers one HTML email.
type Sender interface {
	Send(ctx context.Context, to, subject, htmlBody string) error
}

// NewFromConfig builds the sender selected by email.provider.
func NewFromConfig(ctx context.Context, cfg config.EmailConfig, log logger.Logger) (Sender, error) {
	switch cfg.Provider {
	case "", "smtp":
		smtpCfg := &SMTPConfig{
			Host:     cfg.SMTP.Host,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			UseTLS:   cfg.SMTP.UseTLS,
			From:     cfg.From,
			FromName: cfg.FromName,
		}
		return NewSMTPSender(smtpCfg, log)
	case "ses":
		client, err := aws.NewSESClient(ctx, cfg.SES.Region)
		if err != nil {
			return nil, fmt.Errorf("create ses client: %w", err)
		}
		return NewSESSender(client, cfg.From, cfg.FromName, log), nil
	default:
		return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
	}
}

func formatFrom(name, addr string) string {
	if name == "" {
		return addr
	}
	return fmt.Sprintf("%s <%s>", name, addr)
}
