// Package mailer delivers invitation links.
package mailer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"
	"io"
	"log/slog"
	"net/http"
	"time"
)

// Mailer sends the registration link of an invitation.
type Mailer interface {
	SendInvitation(ctx context.Context, to, link string, expiresAt time.Time) error
}

const invitationSubject = "Invitation - Calendrier des Disponibilités"

var invitationBody = template.Must(template.New("invitation").Parse(`<html>
  <body>
    <h2>Vous êtes invité(e) à rejoindre le calendrier des disponibilités</h2>
    <p>Cliquez sur le lien ci-dessous pour créer votre compte :</p>
    <a href="{{.Link}}" style="background-color: #007bff; color: white; padding: 10px 20px; text-decoration: none; border-radius: 5px;">Créer mon compte</a>
    <p>Ce lien expire le {{.Expires}}.</p>
  </body>
</html>`))

func renderInvitation(link string, expiresAt time.Time) (string, error) {
	var buf bytes.Buffer
	err := invitationBody.Execute(&buf, struct {
		Link    string
		Expires string
	}{link, expiresAt.UTC().Format("02/01/2006 15:04 UTC")})
	return buf.String(), err
}

// SendGridMailer 通过 SendGrid v3 REST API 发送邮件
type SendGridMailer struct {
	apiKey     string
	from       string
	baseURL    string
	httpClient *http.Client
}

// NewSendGridMailer 创建 SendGrid 邮件客户端
func NewSendGridMailer(apiKey, from string) *SendGridMailer {
	return &SendGridMailer{
		apiKey:  apiKey,
		from:    from,
		baseURL: "https://api.sendgrid.com",
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

type sgAddress struct {
	Email string `json:"email"`
}

type sgContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type sgPersonalization struct {
	To []sgAddress `json:"to"`
}

type sgMessage struct {
	Personalizations []sgPersonalization `json:"personalizations"`
	From             sgAddress           `json:"from"`
	Subject          string              `json:"subject"`
	Content          []sgContent         `json:"content"`
}

// SendInvitation 发送邀请邮件
func (m *SendGridMailer) SendInvitation(ctx context.Context, to, link string, expiresAt time.Time) error {
	html, err := renderInvitation(link, expiresAt)
	if err != nil {
		return fmt.Errorf("failed to render invitation: %w", err)
	}
	msg := sgMessage{
		Personalizations: []sgPersonalization{{To: []sgAddress{{Email: to}}}},
		From:             sgAddress{Email: m.from},
		Subject:          invitationSubject,
		Content:          []sgContent{{Type: "text/html", Value: html}},
	}
	return m.makeRequest(ctx, http.MethodPost, "/v3/mail/send", msg)
}

// makeRequest 发送HTTP请求到SendGrid
func (m *SendGridMailer) makeRequest(ctx context.Context, method, endpoint string, body interface{}) error {
	jsonData, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("failed to marshal request body: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, method, m.baseURL+endpoint, bytes.NewBuffer(jsonData))
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+m.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := m.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 300 {
		respBody, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("sendgrid returned %d: %s", resp.StatusCode, string(respBody))
	}
	return nil
}

// LogMailer only logs the link. Used when no SendGrid key is configured.
type LogMailer struct {
	Logger *slog.Logger
}

func (m LogMailer) SendInvitation(_ context.Context, to, link string, expiresAt time.Time) error {
	logger := m.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.Info("invitation link (mail delivery disabled)", "to", to, "link", link, "expires_at", expiresAt)
	return nil
}

// New picks SendGrid when an API key is set, LogMailer otherwise.
func New(apiKey, from string, logger *slog.Logger) Mailer {
	if apiKey == "" {
		fmt.Printf("📭 SENDGRID_API_KEY not set, invitation links will only be logged\n")
		return LogMailer{Logger: logger}
	}
	return NewSendGridMailer(apiKey, from)
}
