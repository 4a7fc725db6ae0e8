// internal/pkg/email/types.go
package email

// EmailType represents the type of email being sent
type EmailType string

const (
	EmailTypeOrderConfirmation EmailType = "order_confirmation"
	EmailTypeOrderStatusUpdate EmailType = "order_status_update"
	EmailTypeTest              EmailType = "test"
)

// Email represents an email message
type Email struct {
	To          []string  `json:"to"`
	CC          []string  `json:"cc,omitempty"`
	BCC         []string  `json:"bcc,omitempty"`
	Subject     string    `json:"subject"`
	HTMLContent string    `json:"html_content"`
	TextContent string    `json:"text_content,omitempty"`
	Type        EmailType `json:"type"`
}

// EmailTemplateData contains common data for all email templates
type EmailTemplateData struct {
	SiteName   string `json:"site_name"`
	SiteURL    string `json:"site_url"`
	SupportURL string `json:"support_url"`
	UserName   string `json:"user_name"`
	UserEmail  string `json:"user_email"`
	Year       int    `json:"year"`
}

// OrderEmailData is shared by the confirmation and status update templates.
// Amounts are preformatted VND strings.
type OrderEmailData struct {
	EmailTemplateData
	OrderNumber     string      `json:"order_number"`
	OrderDate       string      `json:"order_date"`
	Status          string      `json:"status"`
	StatusMessage   string      `json:"status_message"`
	PaymentMethod   string      `json:"payment_method"`
	Items           []OrderItem `json:"items"`
	Subtotal        string      `json:"subtotal"`
	Shipping        string      `json:"shipping"`
	Discount        string      `json:"discount,omitempty"`
	LoyaltyDiscount string      `json:"loyalty_discount,omitempty"`
	VAT             string      `json:"vat"`
	Total           string      `json:"total"`
	PointsEarned    int64       `json:"points_earned,omitempty"`
	ShippingAddress Address     `json:"shipping_address"`
	OrderURL        string      `json:"order_url"`
	Guest           bool        `json:"guest"`
}

// OrderItem represents an item in the order
type OrderItem struct {
	Name     string `json:"name"`
	Quantity int    `json:"quantity"`
	Price    string `json:"price"`
	Total    string `json:"total"`
}

// Address represents the shipping address
type Address struct {
	Name         string `json:"name"`
	AddressLine1 string `json:"address_line1"`
	AddressLine2 string `json:"address_line2"`
	City         string `json:"city"`
	State        string `json:"state"`
	Phone        string `json:"phone"`
}
