package notify

import (
	"context"
	"fmt"
	"net/http"

	"mail-auto-ticketing/internal/models"

	"github.com/sendgrid/rest"
	"github.com/sendgrid/sendgrid-go"
	sgmail "github.com/sendgrid/sendgrid-go/helpers/mail"
)

const sendGridSendPath = "/v3/mail/send"

// SendGridChannel sends confirmations through the SendGrid v3 API
type SendGridChannel struct {
	request rest.Request
	client  *rest.Client
	from    string
}

// NewSendGridChannel needs an API key and a sender address. An empty host
// targets the public SendGrid API.
func NewSendGridChannel(cfg models.SendGridConfig, client *http.Client) (*SendGridChannel, error) {
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: sendgrid api key not set", ErrNotConfigured)
	}
	if cfg.From == "" {
		return nil, fmt.Errorf("%w: sendgrid sender not set", ErrNotConfigured)
	}
	if client == nil {
		client = http.DefaultClient
	}

	request := sendgrid.GetRequest(cfg.APIKey, sendGridSendPath, cfg.Host)
	request.Method = rest.Post

	return &SendGridChannel{
		request: request,
		client:  &rest.Client{HTTPClient: client},
		from:    cfg.From,
	}, nil
}

func (s *SendGridChannel) Name() string { return "sendgrid" }

func (s *SendGridChannel) Send(ctx context.Context, to string, c Confirmation) error {
	m := sgmail.NewV3MailInit(
		sgmail.NewEmail("", s.from),
		c.Title,
		sgmail.NewEmail("", to),
		sgmail.NewContent("text/plain", c.Text),
		sgmail.NewContent("text/html", c.HTML),
	)

	request := s.request
	request.Body = sgmail.GetRequestBody(m)

	resp, err := s.client.SendWithContext(ctx, request)
	if err != nil {
		return fmt.Errorf("%w: sendgrid: %v", ErrChannel, err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: sendgrid: status %d: %s", ErrChannel, resp.StatusCode, resp.Body)
	}
	return nil
}
