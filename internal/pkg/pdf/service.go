// internal/pkg/pdf/service.go
package pdf

import (
	"bytes"
	"fmt"
	"html/template"

	"github.com/SebastiaanKlippert/go-wkhtmltopdf"
	"github.com/sirupsen/logrus"
	"github.com/your-org/storefront/internal/config"
	"github.com/your-org/storefront/internal/domain/order"
	"github.com/your-org/storefront/internal/domain/vat"
	"github.com/your-org/storefront/internal/pkg/money"
)

// Service renders order invoices
type Service struct {
	config *config.Config
	calc   *vat.Calculator
	logger *logrus.Logger
}

// NewService creates a new PDF service
func NewService(cfg *config.Config, calc *vat.Calculator, logger *logrus.Logger) *Service {
	return &Service{
		config: cfg,
		calc:   calc,
		logger: logger,
	}
}

// InvoiceData represents the data passed to the invoice template
type InvoiceData struct {
	InvoiceNumber string
	InvoiceDate   string
	Order         *order.Order
	Company       CompanyInfo
	VAT           vat.OrderBreakdown
}

// CompanyInfo represents the seller block
type CompanyInfo struct {
	Name    string
	Address string
	Phone   string
	Email   string
	Website string
	TaxCode string
}

var invoiceTmpl = template.Must(template.New("invoice").Funcs(template.FuncMap{
	"vnd":     money.VND,
	"percent": money.Percent,
}).Parse(invoiceTemplate))

// Data builds the template data. The VAT block is recomputed from the
// frozen order lines so it reconciles with the stored total.
func (s *Service) Data(o *order.Order) InvoiceData {
	app := s.config.App
	return InvoiceData{
		InvoiceNumber: o.InvoiceNumber(),
		InvoiceDate:   o.CreatedAt.Format("02/01/2006"),
		Order:         o,
		Company: CompanyInfo{
			Name:    app.CompanyName,
			Address: app.CompanyAddress,
			Phone:   app.CompanyPhone,
			Email:   app.CompanyEmail,
			Website: app.CompanyWebsite,
			TaxCode: app.CompanyTaxCode,
		},
		VAT: s.calc.CalculateOrderVAT(o.VATInput()),
	}
}

// RenderHTML renders the invoice as an HTML document
func (s *Service) RenderHTML(o *order.Order) (string, error) {
	var buf bytes.Buffer
	if err := invoiceTmpl.Execute(&buf, s.Data(o)); err != nil {
		return "", fmt.Errorf("failed to execute template: %w", err)
	}
	return buf.String(), nil
}

// GenerateInvoice renders the invoice to PDF with wkhtmltopdf
func (s *Service) GenerateInvoice(o *order.Order) (*bytes.Buffer, error) {
	htmlContent, err := s.RenderHTML(o)
	if err != nil {
		return nil, fmt.Errorf("failed to generate HTML: %w", err)
	}

	pdfg, err := wkhtmltopdf.NewPDFGenerator()
	if err != nil {
		return nil, fmt.Errorf("failed to create PDF generator: %w", err)
	}
	pdfg.Dpi.Set(300)
	pdfg.Orientation.Set(wkhtmltopdf.OrientationPortrait)
	pdfg.PageSize.Set(wkhtmltopdf.PageSizeA4)

	page := wkhtmltopdf.NewPageReader(bytes.NewReader([]byte(htmlContent)))
	page.Encoding.Set("utf-8")
	page.FooterRight.Set("[page]/[topage]")
	page.FooterFontSize.Set(9)
	pdfg.AddPage(page)

	if err := pdfg.Create(); err != nil {
		return nil, fmt.Errorf("failed to create PDF: %w", err)
	}

	s.logger.WithFields(logrus.Fields{
		"order_number":   o.OrderNumber,
		"invoice_number": o.InvoiceNumber(),
		"bytes":          len(pdfg.Bytes()),
	}).Debug("Invoice PDF generated")

	return bytes.NewBuffer(pdfg.Bytes()), nil
}

const invoiceTemplate = `<!DOCTYPE html>
<html lang="vi">
<head>
    <meta charset="UTF-8">
    <title>Hóa đơn {{.InvoiceNumber}}</title>
    <style>
        body { font-family: "DejaVu Sans", Arial, sans-serif; margin: 0; padding: 20px; color: #333; font-size: 13px; }
        .header { display: flex; justify-content: space-between; border-bottom: 2px solid #eee; padding-bottom: 16px; margin-bottom: 24px; }
        .invoice-title { font-size: 26px; font-weight: bold; color: #2563eb; margin-bottom: 8px; }
        .section-title { font-size: 15px; font-weight: bold; margin-bottom: 8px; color: #374151; }
        .parties { display: flex; justify-content: space-between; margin-bottom: 24px; }
        .parties > div { flex: 1; margin-right: 20px; }
        table.items { width: 100%; border-collapse: collapse; margin-bottom: 24px; }
        table.items th, table.items td { border: 1px solid #ddd; padding: 8px; text-align: left; }
        table.items th { background-color: #f8f9fa; }
        table.items .num { text-align: right; }
        .totals { float: right; width: 360px; }
        .totals table { width: 100%; border-collapse: collapse; }
        .totals td { padding: 6px 8px; border-bottom: 1px solid #eee; }
        .totals .label { text-align: right; font-weight: bold; }
        .totals .amount { text-align: right; width: 140px; }
        .total-row td { font-size: 16px; font-weight: bold; border-top: 2px solid #333; }
        .footer { clear: both; margin-top: 48px; padding-top: 16px; border-top: 1px solid #eee; text-align: center; color: #666; font-size: 11px; }
    </style>
</head>
<body>
    <div class="header">
        <div>
            <h1>{{.Company.Name}}</h1>
            <p>{{.Company.Address}}</p>
            {{if .Company.TaxCode}}<p>MST: {{.Company.TaxCode}}</p>{{end}}
            <p>{{.Company.Phone}} · {{.Company.Email}}</p>
        </div>
        <div style="text-align: right;">
            <div class="invoice-title">HÓA ĐƠN</div>
            <p><strong>Số:</strong> {{.InvoiceNumber}}</p>
            <p><strong>Ngày:</strong> {{.InvoiceDate}}</p>
            <p><strong>Đơn hàng:</strong> {{.Order.OrderNumber}}</p>
            <p><strong>Thanh toán:</strong> {{.Order.PaymentMethod}} ({{.Order.PaymentStatus}})</p>
        </div>
    </div>

    <div class="parties">
        <div>
            <div class="section-title">Giao đến</div>
            <p><strong>{{.Order.ShippingAddress.FullName}}</strong></p>
            {{with .Order.ShippingAddress}}
            <p>{{.AddressLine1}}</p>
            {{if .AddressLine2}}<p>{{.AddressLine2}}</p>{{end}}
            <p>{{.City}}{{if .State}}, {{.State}}{{end}} {{.PostalCode}}</p>
            <p>{{.Phone}}</p>
            {{end}}
            <p>{{.Order.Email}}</p>
        </div>
        {{if .Order.VATInvoiceRequested}}
        <div>
            <div class="section-title">Thông tin xuất hóa đơn VAT</div>
            {{with .Order.VATInfo}}
            <p><strong>{{.CompanyName}}</strong></p>
            <p>MST: {{.TaxCode}}</p>
            <p>{{.Address}}</p>
            <p>{{.Email}}</p>
            {{end}}
        </div>
        {{end}}
    </div>

    <table class="items">
        <thead>
            <tr>
                <th>Sản phẩm</th>
                <th class="num">SL</th>
                <th class="num">Đơn giá</th>
                <th class="num">Trước thuế</th>
                <th class="num">VAT</th>
                <th class="num">Thành tiền</th>
            </tr>
        </thead>
        <tbody>
            {{range .VAT.Items}}
            <tr>
                <td>{{.Name}}</td>
                <td class="num">{{.Quantity}}</td>
                <td class="num">{{vnd .UnitPrice}}</td>
                <td class="num">{{vnd .PriceBeforeVAT}}</td>
                <td class="num">{{vnd .VATAmount}}</td>
                <td class="num">{{vnd .PriceWithVAT}}</td>
            </tr>
            {{end}}
        </tbody>
    </table>

    <div class="totals">
        <table>
            <tr><td class="label">Tạm tính:</td><td class="amount">{{vnd .VAT.Subtotal}}</td></tr>
            <tr><td class="label">Phí vận chuyển:</td><td class="amount">{{vnd .VAT.ShippingFee}}</td></tr>
            {{if gt .VAT.Discount 0}}
            <tr><td class="label">Mã giảm giá{{if .Order.CouponCode}} ({{.Order.CouponCode}}){{end}}:</td><td class="amount">-{{vnd .VAT.Discount}}</td></tr>
            {{end}}
            {{if gt .VAT.LoyaltyDiscount 0}}
            <tr><td class="label">Điểm thưởng ({{.Order.LoyaltyPointsUsed}}):</td><td class="amount">-{{vnd .VAT.LoyaltyDiscount}}</td></tr>
            {{end}}
            <tr><td class="label">Cộng tiền hàng chưa thuế:</td><td class="amount">{{vnd .VAT.PriceBeforeVAT}}</td></tr>
            <tr><td class="label">Thuế GTGT ({{percent .VAT.Rate}}):</td><td class="amount">{{vnd .VAT.VATAmount}}</td></tr>
            <tr class="total-row"><td class="label">Tổng thanh toán:</td><td class="amount">{{vnd .VAT.PriceWithVAT}}</td></tr>
        </table>
    </div>

    <div class="footer">
        <p>Cảm ơn quý khách đã mua hàng!</p>
        <p>Mọi thắc mắc xin liên hệ {{.Company.Email}} hoặc {{.Company.Phone}}</p>
    </div>
</body>
</html>
`
