package notify

import (
	"context"
	"fmt"
	"time"

	"mail-auto-ticketing/internal/models"

	"github.com/wneessen/go-mail"
)

// SMTPChannel relays confirmations through an authenticated SMTP server
type SMTPChannel struct {
	cfg       models.SMTPConfig
	timeout   time.Duration
	tlsPolicy mail.TLSPolicy
}

// NewSMTPChannel needs a relay host, credentials and a sender address
func NewSMTPChannel(cfg models.SMTPConfig, timeout time.Duration) (*SMTPChannel, error) {
	if cfg.Host == "" {
		return nil, fmt.Errorf("%w: smtp host not set", ErrNotConfigured)
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, fmt.Errorf("%w: smtp credentials not set", ErrNotConfigured)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: smtp sender not set", ErrNotConfigured)
	}
	return &SMTPChannel{cfg: cfg, timeout: timeout, tlsPolicy: mail.TLSMandatory}, nil
}

func (s *SMTPChannel) Name() string { return "smtp" }

func (s *SMTPChannel) Send(ctx context.Context, to string, c Confirmation) error {
	msg, err := c.Message(s.cfg.From, to)
	if err != nil {
		return fmt.Errorf("%w: smtp: build message: %v", ErrChannel, err)
	}

	opts := []mail.Option{
		mail.WithPort(s.cfg.Port),
		mail.WithSMTPAuth(mail.SMTPAuthPlain),
		mail.WithUsername(s.cfg.Username),
		mail.WithPassword(s.cfg.Password),
		mail.WithTLSPolicy(s.tlsPolicy),
	}
	if s.timeout > 0 {
		opts = append(opts, mail.WithTimeout(s.timeout))
	}

	client, err := mail.NewClient(s.cfg.Host, opts...)
	if err != nil {
		return fmt.Errorf("%w: smtp: %v", ErrChannel, err)
	}
	if err := client.DialAndSendWithContext(ctx, msg); err != nil {
		return fmt.Errorf("%w: smtp: %v", ErrChannel, err)
	}
	return nil
}
