package email

import (
	"context"
	"fmt"

	gomail "gopkg.in/gomail.v2"

	"github.com/suminyol/ayursutra-api/config"
	"github.com/suminyol/ayursutra-api/pkg/logger"
)

type gomailService struct {
	dialer *gomail.Dialer
	from   string
	logger *logger.Logger
}

func NewGomailService(cfg config.SMTPConfig, logger *logger.Logger) Service {
	return &gomailService{
		dialer: gomail.NewDialer(cfg.Host, cfg.Port, cfg.Username, cfg.Password),
		from:   cfg.From,
		logger: logger,
	}
}

func (s *gomailService) Send(ctx context.Context, to, subject, body string) error {
	msg := gomail.NewMessage()
	msg.SetHeader("From", s.from)
	msg.SetHeader("To", to)
	msg.SetHeader("Subject", subject)
	msg.SetBody("text/html", body)

	if err := s.dialer.DialAndSend(msg); err != nil {
		return fmt.Errorf("failed to send email: %w", err)
	}

	s.logger.Info("email sent", "to", to, "subject", subject)
	return nil
}

// noopService logs instead of sending; used when SMTP is not configured.
type noopService struct {
	logger *logger.Logger
}

func NewNoopService(logger *logger.Logger) Service {
	return &noopService{logger: logger}
}

func (s *noopService) Send(_ context.Context, to, subject, _ string) error {
	s.logger.Info("email delivery disabled, dropping message", "to", to, "subject", subject)
	return nil
}
