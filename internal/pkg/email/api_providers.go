// internal/pkg/email/api_providers.go
package email

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"mime"
	"net/http"
)

const (
	resendURL     = "https://api.resend.com/emails"
	sendGridURL   = "https://api.sendgrid.com/v3/mail/send"
	mailerSendURL = "https://api.mailersend.com/v1/email"
)

type resendRequest struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	CC      []string `json:"cc,omitempty"`
	BCC     []string `json:"bcc,omitempty"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
	ReplyTo string   `json:"reply_to,omitempty"`
}

type sendGridRequest struct {
	Personalizations []sendGridPersonalization `json:"personalizations"`
	From             namedAddress              `json:"from"`
	Subject          string                    `json:"subject"`
	Content          []sendGridContent         `json:"content"`
	ReplyTo          *namedAddress             `json:"reply_to,omitempty"`
	Categories       []string                  `json:"categories,omitempty"`
}

type sendGridPersonalization struct {
	To  []namedAddress `json:"to"`
	CC  []namedAddress `json:"cc,omitempty"`
	BCC []namedAddress `json:"bcc,omitempty"`
}

type sendGridContent struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

type mailerSendRequest struct {
	From    namedAddress   `json:"from"`
	To      []namedAddress `json:"to"`
	CC      []namedAddress `json:"cc,omitempty"`
	BCC     []namedAddress `json:"bcc,omitempty"`
	Subject string         `json:"subject"`
	HTML    string         `json:"html"`
	ReplyTo *namedAddress  `json:"reply_to,omitempty"`
	Tags    []string       `json:"tags,omitempty"`
}

// namedAddress is the {email, name} shape SendGrid and MailerSend share
type namedAddress struct {
	Email string `json:"email"`
	Name  string `json:"name,omitempty"`
}

func addresses(list []string) []namedAddress {
	if len(list) == 0 {
		return nil
	}
	out := make([]namedAddress, 0, len(list))
	for _, a := range list {
		out = append(out, namedAddress{Email: a})
	}
	return out
}

func (s *EmailService) replyTo() *namedAddress {
	if s.config.ReplyTo == "" {
		return nil
	}
	return &namedAddress{Email: s.config.ReplyTo}
}

func (s *EmailService) sendResendEmail(ctx context.Context, email *Email) error {
	return s.postJSON(ctx, "resend", resendURL, http.StatusOK, resendRequest{
		From:    s.fromHeader(),
		To:      email.To,
		CC:      email.CC,
		BCC:     email.BCC,
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: s.config.ReplyTo,
	})
}

func (s *EmailService) sendSendGridEmail(ctx context.Context, email *Email) error {
	return s.postJSON(ctx, "sendgrid", sendGridURL, http.StatusAccepted, sendGridRequest{
		Personalizations: []sendGridPersonalization{{
			To:  addresses(email.To),
			CC:  addresses(email.CC),
			BCC: addresses(email.BCC),
		}},
		From:       namedAddress{Email: s.config.FromEmail, Name: s.config.FromName},
		Subject:    email.Subject,
		Content:    []sendGridContent{{Type: "text/html", Value: email.HTMLContent}},
		ReplyTo:    s.replyTo(),
		Categories: []string{string(email.Type)},
	})
}

func (s *EmailService) sendMailerSendEmail(ctx context.Context, email *Email) error {
	return s.postJSON(ctx, "mailersend", mailerSendURL, http.StatusAccepted, mailerSendRequest{
		From:    namedAddress{Email: s.config.FromEmail, Name: s.config.FromName},
		To:      addresses(email.To),
		CC:      addresses(email.CC),
		BCC:     addresses(email.BCC),
		Subject: email.Subject,
		HTML:    email.HTMLContent,
		ReplyTo: s.replyTo(),
		Tags:    []string{string(email.Type)},
	})
}

// postJSON sends payload to a provider API with bearer auth
func (s *EmailService) postJSON(ctx context.Context, provider, url string, want int, payload interface{}) error {
	if s.config.APIKey == "" {
		return fmt.Errorf("%s API key not configured", provider)
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal %s request: %w", provider, err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create %s request: %w", provider, err)
	}
	req.Header.Set("Authorization", "Bearer "+s.config.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("failed to send %s request: %w", provider, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != want {
		detail, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return fmt.Errorf("%s API returned status %d: %s", provider, resp.StatusCode, bytes.TrimSpace(detail))
	}
	return nil
}

// mimeSubject encodes non-ASCII subjects for SMTP headers
func mimeSubject(subject string) string {
	return mime.QEncoding.Encode("utf-8", subject)
}
