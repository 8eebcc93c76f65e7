package mail

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// DefaultResendURL is the Resend API base URL
const DefaultResendURL = "https://api.resend.com"

// Message is one outgoing email
type Message struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// Sender delivers messages
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// Resend sends email through the Resend Go SDK
type Resend struct {
	client *resend.Client
}

// NewResend creates a Resend client. An empty baseURL selects
// DefaultResendURL.
func NewResend(baseURL, apiKey string) *Resend {
	if baseURL == "" {
		baseURL = DefaultResendURL
	}
	client := resend.NewCustomClient(&http.Client{Timeout: 15 * time.Second}, apiKey)
	if u, err := url.Parse(strings.TrimSuffix(baseURL, "/") + "/"); err == nil {
		client.BaseURL = u
	}
	return &Resend{client: client}
}

// Send posts msg to the emails endpoint
func (r *Resend) Send(ctx context.Context, msg Message) error {
	_, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	return nil
}

// LogSender writes messages to the log instead of sending them. It stands in
// for a provider during local development.
type LogSender struct {
	Logger *zap.Logger
}

// Send logs msg
func (l LogSender) Send(ctx context.Context, msg Message) error {
	l.Logger.Info("email not sent, no provider configured",
		zap.Strings("to", msg.To),
		zap.String("subject", msg.Subject))
	return nil
}
