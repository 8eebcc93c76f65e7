// Package mail renders and sends the transactional emails: address
// verification, password reset and payment confirmation.
package mail

import (
	"bytes"
	"context"
	"embed"
	"fmt"
	"html/template"
	"net/url"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

// Kind names an email template
type Kind string

const (
	KindVerification   Kind = "verification"
	KindPasswordReset  Kind = "password_reset"
	KindPaymentSuccess Kind = "payment_success"
)

var subjects = map[Kind]string{
	KindVerification:   "Confirm your email",
	KindPasswordReset:  "Reset your password",
	KindPaymentSuccess: "Payment successful",
}

var templates = func() map[Kind]*template.Template {
	out := make(map[Kind]*template.Template, len(subjects))
	for kind := range subjects {
		out[kind] = template.Must(template.ParseFS(templateFS,
			"templates/layout.html", "templates/"+string(kind)+".html"))
	}
	return out
}()

// Config configures the mailer
type Config struct {
	// From is the sender address
	From string
	// BaseURL is the public URL of the web app, used to build links
	BaseURL string
}

// Mailer renders templates and hands them to a Sender
type Mailer struct {
	sender Sender
	config Config
	now    func() time.Time
}

// New creates a Mailer
func New(sender Sender, cfg Config) *Mailer {
	if cfg.From == "" {
		cfg.From = "onboarding@resumate.sbs"
	}
	cfg.BaseURL = strings.TrimSuffix(cfg.BaseURL, "/")
	return &Mailer{sender: sender, config: cfg, now: time.Now}
}

type templateData struct {
	Year int
	Link string
	Plan string
}

// Render builds the subject and HTML body of an email
func (m *Mailer) Render(kind Kind, link, plan string) (string, string, error) {
	tmpl, ok := templates[kind]
	if !ok {
		return "", "", fmt.Errorf("unknown email kind %q", kind)
	}

	var buf bytes.Buffer
	err := tmpl.ExecuteTemplate(&buf, "layout", templateData{Year: m.now().Year(), Link: link, Plan: plan})
	if err != nil {
		return "", "", fmt.Errorf("render %s email: %w", kind, err)
	}
	return subjects[kind], buf.String(), nil
}

func (m *Mailer) send(ctx context.Context, to string, kind Kind, link, plan string) error {
	subject, html, err := m.Render(kind, link, plan)
	if err != nil {
		return err
	}
	return m.sender.Send(ctx, Message{
		From:    m.config.From,
		To:      []string{to},
		Subject: subject,
		HTML:    html,
	})
}

func (m *Mailer) link(path, token string) string {
	if token == "" {
		return m.config.BaseURL + path
	}
	return m.config.BaseURL + path + "?token=" + url.QueryEscape(token)
}

// SendVerification mails the address confirmation link
func (m *Mailer) SendVerification(ctx context.Context, email, token string) error {
	return m.send(ctx, email, KindVerification, m.link("/auth/new-verification", token), "")
}

// SendPasswordReset mails the password reset link
func (m *Mailer) SendPasswordReset(ctx context.Context, email, token string) error {
	return m.send(ctx, email, KindPasswordReset, m.link("/auth/new-password", token), "")
}

// SendPaymentSuccess mails the payment confirmation for plan
func (m *Mailer) SendPaymentSuccess(ctx context.Context, email, plan string) error {
	return m.send(ctx, email, KindPaymentSuccess, m.link("/resumes", ""), plan)
}
