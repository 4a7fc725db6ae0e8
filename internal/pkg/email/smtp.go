// internal/pkg/email/smtp.go
package email

import (
	"bytes"
	"context"
	"crypto/tls"
	"fmt"
	"net"
	"net/smtp"
	"strings"
)

// sendSMTPEmail sends email over SMTP (implicit TLS or STARTTLS)
func (s *EmailService) sendSMTPEmail(ctx context.Context, email *Email) error {
	client, err := s.dialSMTP(ctx)
	if err != nil {
		return err
	}
	defer client.Close()

	if err := client.Mail(s.config.FromEmail); err != nil {
		return fmt.Errorf("failed to set sender: %w", err)
	}
	recipients := append(append(append([]string{}, email.To...), email.CC...), email.BCC...)
	for _, addr := range recipients {
		if err := client.Rcpt(addr); err != nil {
			return fmt.Errorf("failed to set recipient %s: %w", addr, err)
		}
	}

	writer, err := client.Data()
	if err != nil {
		return fmt.Errorf("failed to send DATA command: %w", err)
	}
	if _, err := writer.Write(s.buildMessage(email)); err != nil {
		_ = writer.Close()
		return fmt.Errorf("failed to write email content: %w", err)
	}
	if err := writer.Close(); err != nil {
		return fmt.Errorf("failed to finish email content: %w", err)
	}
	return client.Quit()
}

// TestSMTPConnection dials and authenticates without sending anything
func (s *EmailService) TestSMTPConnection(ctx context.Context) error {
	client, err := s.dialSMTP(ctx)
	if err != nil {
		return err
	}
	defer client.Close()
	return client.Quit()
}

func (s *EmailService) dialSMTP(ctx context.Context) (*smtp.Client, error) {
	if s.config.SMTPHost == "" || s.config.SMTPUsername == "" {
		return nil, fmt.Errorf("SMTP configuration incomplete: missing host or username")
	}

	serverAddr := fmt.Sprintf("%s:%d", s.config.SMTPHost, s.config.SMTPPort)
	tlsConfig := &tls.Config{ServerName: s.config.SMTPHost}

	var conn net.Conn
	var err error
	if s.config.SMTPUseTLS {
		conn, err = (&tls.Dialer{Config: tlsConfig}).DialContext(ctx, "tcp", serverAddr)
	} else {
		conn, err = (&net.Dialer{}).DialContext(ctx, "tcp", serverAddr)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to connect to SMTP server: %w", err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		_ = conn.SetDeadline(deadline)
	}

	client, err := smtp.NewClient(conn, s.config.SMTPHost)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("failed to create SMTP client: %w", err)
	}

	if !s.config.SMTPUseTLS {
		if ok, _ := client.Extension("STARTTLS"); ok {
			if err := client.StartTLS(tlsConfig); err != nil {
				client.Close()
				return nil, fmt.Errorf("failed to start TLS: %w", err)
			}
		}
	}

	auth := smtp.PlainAuth("", s.config.SMTPUsername, s.config.SMTPPassword, s.config.SMTPHost)
	if err := client.Auth(auth); err != nil {
		client.Close()
		return nil, fmt.Errorf("SMTP authentication failed: %w", err)
	}
	return client, nil
}

func (s *EmailService) buildMessage(email *Email) []byte {
	headers := [][2]string{
		{"From", s.fromHeader()},
		{"To", strings.Join(email.To, ", ")},
		{"Subject", mimeSubject(email.Subject)},
		{"MIME-Version", "1.0"},
		{"Content-Type", `text/html; charset="utf-8"`},
	}
	if len(email.CC) > 0 {
		headers = append(headers, [2]string{"Cc", strings.Join(email.CC, ", ")})
	}
	if s.config.ReplyTo != "" {
		headers = append(headers, [2]string{"Reply-To", s.config.ReplyTo})
	}

	var msg bytes.Buffer
	for _, h := range headers {
		fmt.Fprintf(&msg, "%s: %s\r\n", h[0], h[1])
	}
	msg.WriteString("\r\n")
	msg.WriteString(email.HTMLContent)
	return msg.Bytes()
}
