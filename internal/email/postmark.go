package email

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
)

const (
	apiURL            = "https://api.postmarkapp.com/email"
	defaultChurchName = "Ekklesia"
)

var ErrNotConfigured = errors.New("email client not configured: missing server token")

type Client struct {
	serverToken string
	fromEmail   string
	baseURL     string
	churchName  func() string
	httpClient  *http.Client
}

type Option func(*Client)

func WithHTTPClient(c *http.Client) Option {
	return func(cl *Client) {
		cl.httpClient = c
	}
}

// WithChurchName sets a fixed name for subjects and greetings.
func WithChurchName(name string) Option {
	return WithChurchNameFunc(func() string { return name })
}

// WithChurchNameFunc looks the name up on every send, so edits to the church
// profile reach the next email. A blank result falls back to the default.
func WithChurchNameFunc(fn func() string) Option {
	return func(cl *Client) {
		cl.churchName = fn
	}
}

func NewClient(serverToken, fromEmail, baseURL string, opts ...Option) *Client {
	c := &Client{
		serverToken: serverToken,
		fromEmail:   fromEmail,
		baseURL:     strings.TrimRight(baseURL, "/"),
		httpClient:  http.DefaultClient,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *Client) church() string {
	if c.churchName != nil {
		if name := strings.TrimSpace(c.churchName()); name != "" {
			return name
		}
	}
	return defaultChurchName
}

// Configured returns true if the server token is set.
func (c *Client) Configured() bool {
	return c.serverToken != ""
}

type postmarkEmail struct {
	From     string `json:"From"`
	To       string `json:"To"`
	Subject  string `json:"Subject"`
	HtmlBody string `json:"HtmlBody"`
	TextBody string `json:"TextBody"`
}

// SendResetCode mails a password reset code.
func (c *Client) SendResetCode(ctx context.Context, toEmail, code string) error {
	subject := fmt.Sprintf("Your %s password reset code", c.church())
	textBody := fmt.Sprintf(
		"Use the code below to reset your password:\n\n%s\n\nThe code expires in 15 minutes. If you did not ask for it, ignore this message.",
		code,
	)
	htmlBody := fmt.Sprintf(
		`<p>Use the code below to reset your password:</p><p style="font-size:24px;letter-spacing:4px"><strong>%s</strong></p><p>The code expires in 15 minutes. If you did not ask for it, ignore this message.</p>`,
		code,
	)
	return c.send(ctx, toEmail, subject, textBody, htmlBody)
}

// SendWelcome tells a new user their account exists and where to sign in.
func (c *Client) SendWelcome(ctx context.Context, toEmail, name, role string) error {
	if name == "" {
		name = toEmail
	}
	link := c.baseURL + "/login"
	subject := fmt.Sprintf("Welcome to %s", c.church())
	textBody := fmt.Sprintf(
		"Hello %s,\n\nAn account with the %s role was created for you. Sign in at:\n\n%s\n\nUse \"forgot password\" to choose your password.",
		name, role, link,
	)
	htmlBody := fmt.Sprintf(
		`<p>Hello %s,</p><p>An account with the <strong>%s</strong> role was created for you.</p><p><a href="%s">Sign in</a></p><p>Use "forgot password" to choose your password.</p>`,
		name, role, link,
	)
	return c.send(ctx, toEmail, subject, textBody, htmlBody)
}

func (c *Client) send(ctx context.Context, toEmail, subject, textBody, htmlBody string) error {
	if !c.Configured() {
		return ErrNotConfigured
	}

	payload := postmarkEmail{
		From:     c.fromEmail,
		To:       toEmail,
		Subject:  subject,
		HtmlBody: htmlBody,
		TextBody: textBody,
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal email: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, apiURL, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")
	req.Header.Set("X-Postmark-Server-Token", c.serverToken)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("send email: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		return fmt.Errorf("postmark API error: status %d", resp.StatusCode)
	}

	return nil
}
