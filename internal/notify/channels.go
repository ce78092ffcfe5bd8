package notify

import (
	"context"
	"net/http"

	"mail-auto-ticketing/internal/logging"
	"mail-auto-ticketing/internal/models"
)

// BuildChannels constructs the configured channels in priority order:
// gmail, then sendgrid, then smtp. Unconfigured channels are left out.
func BuildChannels(ctx context.Context, cfg models.NotifyConfig, from string) []Channel {
	var channels []Channel

	if ch, err := NewGmailChannel(ctx, cfg.Gmail, from); err != nil {
		logging.Log.WithError(err).Info("Gmail channel disabled")
	} else {
		channels = append(channels, ch)
	}

	if ch, err := NewSendGridChannel(cfg.SendGrid, &http.Client{Timeout: cfg.Timeout}); err != nil {
		logging.Log.WithError(err).Info("SendGrid channel disabled")
	} else {
		channels = append(channels, ch)
	}

	if ch, err := NewSMTPChannel(cfg.SMTP, cfg.Timeout); err != nil {
		logging.Log.WithError(err).Info("SMTP channel disabled")
	} else {
		channels = append(channels, ch)
	}

	if len(channels) == 0 {
		logging.Log.Warn("No notification channel configured, tickets will not be confirmed")
	}
	return channels
}
