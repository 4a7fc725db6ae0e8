// cmd/mailcheck checks the configured email provider by sending one message.
package main

import (
	"context"
	"flag"
	"log"
	"strings"
	"time"

	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/pkg/email"
	"github.com/your-org/storefront/internal/pkg/logger"
)

func main() {
	to := flag.String("to", "", "recipient address")
	timeout := flag.Duration("timeout", 30*time.Second, "overall deadline")
	flag.Parse()

	if strings.TrimSpace(*to) == "" {
		log.Fatal("Usage: mailcheck -to someone@example.com")
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}
	logr := logger.New(cfg)
	mail := email.NewEmailService(cfg, logr)

	ctx, cancel := context.WithTimeout(context.Background(), *timeout)
	defer cancel()

	if cfg.Email.Provider == "smtp" {
		if err := mail.TestSMTPConnection(ctx); err != nil {
			logr.WithError(err).Fatal("SMTP connection failed")
		}
	}

	err = mail.SendEmail(ctx, &email.Email{
		To:          []string{*to},
		Subject:     "Kiểm tra email từ " + cfg.App.Name,
		HTMLContent: "<h1>Email hoạt động</h1><p>Cấu hình gửi email đã sẵn sàng.</p>",
		TextContent: "Email hoạt động. Cấu hình gửi email đã sẵn sàng.",
		Type:        email.EmailTypeTest,
	})
	if err != nil {
		logr.WithError(err).Fatal("Send failed")
	}

	logr.WithField("provider", cfg.Email.Provider).Info("Test email sent")
}
