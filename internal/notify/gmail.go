package notify

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"os"

	"mail-auto-ticketing/internal/models"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	gmailv1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"
)

// GmailChannel sends confirmations as the mailbox owner through the Gmail API
type GmailChannel struct {
	svc  *gmailv1.Service
	from string
}

// NewGmailChannel authorizes with the cached OAuth token. Without a token file the
// channel is not configured. With a client secret file the token is refreshed through
// that OAuth client; otherwise the token file must be an authorized_user credential.
func NewGmailChannel(ctx context.Context, cfg models.GmailConfig, from string) (*GmailChannel, error) {
	if cfg.TokenFile == "" {
		return nil, fmt.Errorf("%w: gmail token file not set", ErrNotConfigured)
	}
	if _, err := os.Stat(cfg.TokenFile); err != nil {
		return nil, fmt.Errorf("%w: gmail token file: %v", ErrNotConfigured, err)
	}

	var opt option.ClientOption
	if cfg.ClientSecretFile != "" {
		b, err := os.ReadFile(cfg.ClientSecretFile)
		if err != nil {
			return nil, fmt.Errorf("%w: unable to read client secret file: %v", ErrNotConfigured, err)
		}
		config, err := google.ConfigFromJSON(b, gmailv1.GmailSendScope)
		if err != nil {
			return nil, fmt.Errorf("unable to parse client secret file: %w", err)
		}
		tok, err := tokenFromFile(cfg.TokenFile)
		if err != nil {
			return nil, fmt.Errorf("unable to read token file: %w", err)
		}
		opt = option.WithHTTPClient(config.Client(ctx, tok))
	} else {
		opt = option.WithCredentialsFile(cfg.TokenFile)
	}

	svc, err := gmailv1.NewService(ctx, opt, option.WithScopes(gmailv1.GmailSendScope))
	if err != nil {
		return nil, fmt.Errorf("unable to create gmail service: %w", err)
	}
	return &GmailChannel{svc: svc, from: from}, nil
}

// NewGmailChannelWithService wraps an existing Gmail service
func NewGmailChannelWithService(svc *gmailv1.Service, from string) *GmailChannel {
	return &GmailChannel{svc: svc, from: from}
}

func tokenFromFile(file string) (*oauth2.Token, error) {
	f, err := os.Open(file)
	if err != nil {
		return nil, err
	}
	defer f.Close()
	tok := &oauth2.Token{}
	err = json.NewDecoder(f).Decode(tok)
	return tok, err
}

func (g *GmailChannel) Name() string { return "gmail" }

func (g *GmailChannel) Send(ctx context.Context, to string, c Confirmation) error {
	var buf bytes.Buffer
	if err := c.WriteMessage(&buf, g.from, to); err != nil {
		return fmt.Errorf("%w: gmail: build message: %v", ErrChannel, err)
	}

	msg := &gmailv1.Message{Raw: base64.URLEncoding.EncodeToString(buf.Bytes())}
	if _, err := g.svc.Users.Messages.Send("me", msg).Context(ctx).Do(); err != nil {
		return fmt.Errorf("%w: gmail: %v", ErrChannel, err)
	}
	return nil
}
