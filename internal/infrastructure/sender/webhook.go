package sender

import (
	"context"
	"fmt"
	"net/http"

	"BacklinkOutreach/internal/config"
	"BacklinkOutreach/internal/domain"
	"BacklinkOutreach/internal/infrastructure/transport"
	"BacklinkOutreach/internal/ports"
)

// WebhookSender posts each message as JSON to a relay endpoint that owns the
// actual provider integration.
type WebhookSender struct {
	endpoint string
	apiKey   string
	from     string
	identity domain.Identity
	client   *transport.Client
}

var _ ports.Sender = (*WebhookSender)(nil)

type webhookPayload struct {
	From       string                 `json:"from,omitempty"`
	SenderName string                 `json:"senderName"`
	Company    string                 `json:"company"`
	Subject    string                 `json:"subject"`
	Body       string                 `json:"body"`
	Metadata   domain.MessageMetadata `json:"metadata"`
}

// NewWebhookSender builds a sender from configuration.
func NewWebhookSender(cfg config.SenderConfig, identity domain.Identity, client *transport.Client) *WebhookSender {
	return &WebhookSender{
		endpoint: cfg.WebhookURL,
		apiKey:   cfg.APIKey,
		from:     cfg.FromAddress,
		identity: identity,
		client:   client,
	}
}

// Name identifies the provider.
func (s *WebhookSender) Name() string {
	return "webhook"
}

// Send delivers msg; retries and 4xx handling live in the transport.
func (s *WebhookSender) Send(ctx context.Context, msg domain.Message) error {
	if s == nil || s.client == nil {
		return fmt.Errorf("webhook sender is not configured")
	}
	if s.endpoint == "" {
		return fmt.Errorf("webhook sender misconfigured: empty endpoint")
	}

	header := http.Header{}
	if s.apiKey != "" {
		header.Set("Authorization", "Bearer "+s.apiKey)
	}

	payload := webhookPayload{
		From:       s.from,
		SenderName: s.identity.SenderName,
		Company:    s.identity.CompanyName,
		Subject:    msg.Subject,
		Body:       msg.Body,
		Metadata:   msg.Metadata,
	}
	if err := s.client.PostJSON(ctx, s.endpoint, header, payload, nil); err != nil {
		return fmt.Errorf("deliver to %s: %w", msg.Metadata.Domain, err)
	}
	return nil
}
