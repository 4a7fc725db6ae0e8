// internal/domain/vat/calculator.go
package vat

import (
	"github.com/shopspring/decimal"
	"github.com/your-org/storefront/internal/config"
)

// Defaults for the Vietnamese storefront
const (
	DefaultRate                        = 0.10
	DefaultFreeShippingThreshold int64 = 500000
	DefaultShippingFee           int64 = 30000
	DefaultInvoiceThreshold      int64 = 200000
)

// Breakdown splits a VAT-inclusive amount into net and tax parts.
// PriceBeforeVAT + VATAmount == PriceWithVAT always holds.
type Breakdown struct {
	PriceBeforeVAT int64   `json:"price_before_vat"`
	VATAmount      int64   `json:"vat_amount"`
	PriceWithVAT   int64   `json:"price_with_vat"`
	Rate           float64 `json:"rate"`
}

// Item is one order line as seen by the calculator
type Item struct {
	Name     string
	Price    int64
	Quantity int
}

// OrderInput is what CalculateOrderVAT needs from an order or a cart
type OrderInput struct {
	Items           []Item
	ShippingFee     int64
	Discount        int64
	LoyaltyDiscount int64
}

// ItemBreakdown is the VAT split of one line total
type ItemBreakdown struct {
	Name      string `json:"name"`
	Quantity  int    `json:"quantity"`
	UnitPrice int64  `json:"unit_price"`
	Breakdown
}

// OrderBreakdown is the order-level VAT breakdown.
// The embedded Breakdown covers the payable total.
type OrderBreakdown struct {
	Subtotal        int64 `json:"subtotal"`
	ShippingFee     int64 `json:"shipping_fee"`
	Discount        int64 `json:"discount"`
	LoyaltyDiscount int64 `json:"loyalty_discount"`
	Breakdown
	Items    []ItemBreakdown `json:"items"`
	Shipping Breakdown       `json:"shipping"`
}

// Calculator applies one VAT rate and one shipping tier table.
// Rounding is half away from zero to the whole đồng.
type Calculator struct {
	rate                  decimal.Decimal
	freeShippingThreshold int64
	shippingFee           int64
	invoiceThreshold      int64
}

// NewCalculator creates a calculator with explicit parameters
func NewCalculator(rate float64, freeShippingThreshold, shippingFee, invoiceThreshold int64) *Calculator {
	return &Calculator{
		rate:                  decimal.NewFromFloat(rate),
		freeShippingThreshold: freeShippingThreshold,
		shippingFee:           shippingFee,
		invoiceThreshold:      invoiceThreshold,
	}
}

// NewCalculatorFromConfig creates a calculator from the store pricing rules
func NewCalculatorFromConfig(cfg *config.Config) *Calculator {
	return NewCalculator(
		cfg.Store.VATRate,
		cfg.Store.FreeShippingThreshold,
		cfg.Store.ShippingFee,
		cfg.Store.VATInvoiceThreshold,
	)
}

var defaultCalculator = NewCalculator(DefaultRate, DefaultFreeShippingThreshold, DefaultShippingFee, DefaultInvoiceThreshold)

// Default returns the calculator used by the package-level helpers
func Default() *Calculator { return defaultCalculator }

// Rate returns the VAT rate as a float
func (c *Calculator) Rate() float64 {
	return c.rate.InexactFloat64()
}

// FromInclusive splits a price that already contains VAT
func (c *Calculator) FromInclusive(priceWithVAT int64) Breakdown {
	divisor := decimal.NewFromInt(1).Add(c.rate)
	before := decimal.NewFromInt(priceWithVAT).Div(divisor).Round(0).IntPart()

	return Breakdown{
		PriceBeforeVAT: before,
		VATAmount:      priceWithVAT - before,
		PriceWithVAT:   priceWithVAT,
		Rate:           c.Rate(),
	}
}

// FromExclusive adds VAT on top of a net price
func (c *Calculator) FromExclusive(priceBeforeVAT int64) Breakdown {
	vatAmount := decimal.NewFromInt(priceBeforeVAT).Mul(c.rate).Round(0).IntPart()

	return Breakdown{
		PriceBeforeVAT: priceBeforeVAT,
		VATAmount:      vatAmount,
		PriceWithVAT:   priceBeforeVAT + vatAmount,
		Rate:           c.Rate(),
	}
}

// ShippingCost returns the flat fee, or zero once the subtotal reaches the free tier
func (c *Calculator) ShippingCost(subtotal int64) int64 {
	if subtotal >= c.freeShippingThreshold {
		return 0
	}
	return c.shippingFee
}

// IsEligibleForVATInvoice reports whether a red invoice may be issued for amount
func (c *Calculator) IsEligibleForVATInvoice(amount int64) bool {
	return amount >= c.invoiceThreshold
}

// InvoiceThreshold returns the minimum amount for a VAT invoice
func (c *Calculator) InvoiceThreshold() int64 {
	return c.invoiceThreshold
}

// Subtotal sums price × quantity over the items
func Subtotal(items []Item) int64 {
	var subtotal int64
	for _, item := range items {
		subtotal += item.Price * int64(item.Quantity)
	}
	return subtotal
}

// CalculateOrderVAT treats subtotal + shipping − discounts as the VAT-inclusive
// payable amount and splits it, along with every line and the shipping fee.
func (c *Calculator) CalculateOrderVAT(in OrderInput) OrderBreakdown {
	subtotal := Subtotal(in.Items)

	total := subtotal + in.ShippingFee - in.Discount - in.LoyaltyDiscount
	if total < 0 {
		total = 0
	}

	items := make([]ItemBreakdown, 0, len(in.Items))
	for _, item := range in.Items {
		items = append(items, ItemBreakdown{
			Name:      item.Name,
			Quantity:  item.Quantity,
			UnitPrice: item.Price,
			Breakdown: c.FromInclusive(item.Price * int64(item.Quantity)),
		})
	}

	return OrderBreakdown{
		Subtotal:        subtotal,
		ShippingFee:     in.ShippingFee,
		Discount:        in.Discount,
		LoyaltyDiscount: in.LoyaltyDiscount,
		Breakdown:       c.FromInclusive(total),
		Items:           items,
		Shipping:        c.FromInclusive(in.ShippingFee),
	}
}

// Package-level helpers on the default calculator

func FromInclusive(priceWithVAT int64) Breakdown { return defaultCalculator.FromInclusive(priceWithVAT) }
func FromExclusive(priceBeforeVAT int64) Breakdown { return defaultCalculator.FromExclusive(priceBeforeVAT) }
func ShippingCost(subtotal int64) int64 { return defaultCalculator.ShippingCost(subtotal) }
func IsEligibleForVATInvoice(amount int64) bool { return defaultCalculator.IsEligibleForVATInvoice(amount) }
func CalculateOrderVAT(in OrderInput) OrderBreakdown { return defaultCalculator.CalculateOrderVAT(in) }
