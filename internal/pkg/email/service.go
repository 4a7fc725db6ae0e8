// internal/pkg/email/service.go
package email

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
)

// EmailService handles all email operations
type EmailService struct {
	config    *config.EmailConfig
	logger    *logrus.Logger
	templates map[string]*template.Template
	client    *http.Client
}

// NewEmailService creates a new email service
func NewEmailService(cfg *config.Config, logger *logrus.Logger) *EmailService {
	timeout := cfg.Email.SendTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	service := &EmailService{
		config:    &cfg.Email,
		logger:    logger,
		templates: make(map[string]*template.Template),
		client:    &http.Client{Timeout: timeout},
	}
	service.loadTemplates()
	return service
}

// SendEmail sends an email using the configured provider
func (s *EmailService) SendEmail(ctx context.Context, email *Email) error {
	if len(email.To) == 0 {
		return fmt.Errorf("email %q has no recipients", email.Subject)
	}

	switch s.config.Provider {
	case "smtp":
		return s.sendSMTPEmail(ctx, email)
	case "resend":
		return s.sendResendEmail(ctx, email)
	case "sendgrid":
		return s.sendSendGridEmail(ctx, email)
	case "mailersend":
		return s.sendMailerSendEmail(ctx, email)
	case "log", "":
		s.logger.WithFields(logrus.Fields{
			"to":      email.To,
			"subject": email.Subject,
			"type":    email.Type,
		}).Info("Email not sent: log provider")
		return nil
	default:
		return fmt.Errorf("unsupported email provider: %s", s.config.Provider)
	}
}

// SendOrderConfirmationEmail sends the order placed email
func (s *EmailService) SendOrderConfirmationEmail(ctx context.Context, data OrderEmailData) error {
	return s.sendOrderEmail(ctx, EmailTypeOrderConfirmation, "Xác nhận đơn hàng "+data.OrderNumber, data)
}

// SendOrderStatusUpdateEmail sends order status update notification
func (s *EmailService) SendOrderStatusUpdateEmail(ctx context.Context, data OrderEmailData) error {
	return s.sendOrderEmail(ctx, EmailTypeOrderStatusUpdate, "Cập nhật đơn hàng "+data.OrderNumber, data)
}

// templates are named after the email type
func (s *EmailService) sendOrderEmail(ctx context.Context, kind EmailType, subject string, data OrderEmailData) error {
	data.EmailTemplateData = s.siteData(data.EmailTemplateData)

	htmlContent, err := s.renderTemplate(string(kind), data)
	if err != nil {
		return fmt.Errorf("failed to render %s template: %w", kind, err)
	}

	return s.SendEmail(ctx, &Email{
		To:          []string{data.UserEmail},
		Subject:     subject,
		HTMLContent: htmlContent,
		Type:        kind,
	})
}

// siteData fills the storefront fields shared by every template
func (s *EmailService) siteData(d EmailTemplateData) EmailTemplateData {
	d.SiteName = s.config.FromName
	d.SiteURL = s.config.BaseURL
	d.SupportURL = s.config.BaseURL + "/support"
	d.Year = time.Now().Year()
	return d
}

// loadTemplates loads templates from the template dir, falling back to the
// built-in ones
func (s *EmailService) loadTemplates() {
	templateDir := s.config.TemplateDir
	if templateDir == "" {
		templateDir = "./templates/emails"
	}

	for name, fallback := range builtinTemplates {
		path := filepath.Join(templateDir, name+".html")
		if _, err := os.Stat(path); err == nil {
			tmpl, err := template.ParseFiles(path)
			if err == nil {
				s.templates[name] = tmpl
				continue
			}
			s.logger.WithError(err).WithField("template", name).Warn("Could not parse email template, using built-in")
		}
		s.templates[name] = template.Must(template.New(name).Parse(fallback))
	}
}

// renderTemplate renders an email template with data
func (s *EmailService) renderTemplate(templateName string, data interface{}) (string, error) {
	tmpl, exists := s.templates[templateName]
	if !exists {
		return "", fmt.Errorf("template %s not found", templateName)
	}

	var buf bytes.Buffer
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("failed to execute template %s: %w", templateName, err)
	}
	return buf.String(), nil
}

func (s *EmailService) fromHeader() string {
	if s.config.FromName != "" {
		return fmt.Sprintf("%s <%s>", s.config.FromName, s.config.FromEmail)
	}
	return s.config.FromEmail
}

const layoutHead = `<!DOCTYPE html>
<html lang="vi">
<head><meta charset="UTF-8"><title>{{.SiteName}}</title></head>
<body style="font-family: Arial, sans-serif; margin: 0; padding: 20px; background-color: #f4f4f4;">
<div style="max-width: 600px; margin: 0 auto; background-color: white; padding: 20px; border-radius: 8px;">
<h1 style="color: #333;">{{.SiteName}}</h1>
<p>Xin chào {{.UserName}},</p>
`

const layoutFoot = `<hr>
<p style="font-size: 12px; color: #666;">© {{.Year}} {{.SiteName}}. Hỗ trợ: <a href="{{.SupportURL}}">{{.SupportURL}}</a></p>
</div>
</body>
</html>`

const orderSummary = `
<table style="width: 100%; border-collapse: collapse;">
{{range .Items}}<tr><td>{{.Name}} × {{.Quantity}}</td><td style="text-align: right;">{{.Total}}</td></tr>
{{end}}<tr><td>Tạm tính</td><td style="text-align: right;">{{.Subtotal}}</td></tr>
<tr><td>Phí vận chuyển</td><td style="text-align: right;">{{.Shipping}}</td></tr>
{{if .Discount}}<tr><td>Giảm giá</td><td style="text-align: right;">-{{.Discount}}</td></tr>{{end}}
{{if .LoyaltyDiscount}}<tr><td>Điểm thưởng</td><td style="text-align: right;">-{{.LoyaltyDiscount}}</td></tr>{{end}}
<tr><td><strong>Tổng cộng</strong> (đã gồm VAT {{.VAT}})</td><td style="text-align: right;"><strong>{{.Total}}</strong></td></tr>
</table>
`

var builtinTemplates = map[string]string{
	"order_confirmation": layoutHead + `
<p>Cảm ơn bạn đã đặt hàng. Đơn <strong>{{.OrderNumber}}</strong> ngày {{.OrderDate}} đã được ghi nhận.</p>
` + orderSummary + `
<p>Thanh toán: {{.PaymentMethod}}</p>
<p>Giao đến: {{.ShippingAddress.Name}}, {{.ShippingAddress.AddressLine1}}, {{.ShippingAddress.City}} ({{.ShippingAddress.Phone}})</p>
{{if .PointsEarned}}<p>Bạn sẽ nhận {{.PointsEarned}} điểm thưởng khi đơn được giao.</p>{{end}}
{{if .Guest}}<p>Hãy giữ mã truy cập đơn hàng được hiển thị khi đặt hàng để tra cứu hoặc hủy đơn.</p>{{else}}<p><a href="{{.OrderURL}}">Xem đơn hàng</a></p>{{end}}
` + layoutFoot,
	"order_status_update": layoutHead + `
<p>Đơn hàng <strong>{{.OrderNumber}}</strong> hiện ở trạng thái <strong>{{.Status}}</strong>.</p>
<p>{{.StatusMessage}}</p>
` + orderSummary + `
{{if not .Guest}}<p><a href="{{.OrderURL}}">Xem đơn hàng</a></p>{{end}}
` + layoutFoot,
}
