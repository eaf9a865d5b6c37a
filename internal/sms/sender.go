package sms

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/suminyol/ayursutra-api/config"
	"github.com/suminyol/ayursutra-api/pkg/logger"
)

type Sender interface {
	Send(ctx context.Context, phone, message string) error
}

// gatewaySender posts messages to an HTTP SMS gateway.
type gatewaySender struct {
	cfg    config.SMSConfig
	client *http.Client
	logger *logger.Logger
}

func NewGatewaySender(cfg config.SMSConfig, logger *logger.Logger) Sender {
	return &gatewaySender{
		cfg:    cfg,
		client: &http.Client{Timeout: 10 * time.Second},
		logger: logger,
	}
}

func (s *gatewaySender) Send(ctx context.Context, phone, message string) error {
	form := url.Values{}
	form.Set("to", phone)
	form.Set("message", message)
	form.Set("sender_id", s.cfg.SenderID)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.cfg.GatewayURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("failed to build sms request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Authorization", "Bearer "+s.cfg.APIKey)

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send sms: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= http.StatusBadRequest {
		return fmt.Errorf("sms gateway returned status %d", resp.StatusCode)
	}

	s.logger.Info("sms sent", "to", phone)
	return nil
}

// noopSender logs instead of sending; used when no gateway is configured.
type noopSender struct {
	logger *logger.Logger
}

func NewNoopSender(logger *logger.Logger) Sender {
	return &noopSender{logger: logger}
}

func (s *noopSender) Send(_ context.Context, phone, _ string) error {
	s.logger.Info("sms delivery disabled, dropping message", "to", phone)
	return nil
}
