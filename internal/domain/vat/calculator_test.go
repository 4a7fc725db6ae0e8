package vat

import (
	"regexp"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromInclusiveReconciles(t *testing.T) {
	for _, p := range []int64{0, 1, 5, 9, 10, 11, 99, 1001, 29999, 30000, 199999, 1430000, 987654321} {
		b := FromInclusive(p)
		assert.Equal(t, p, b.PriceBeforeVAT+b.VATAmount, "price %d", p)
		assert.Equal(t, p, b.PriceWithVAT)
		assert.Equal(t, 0.10, b.Rate)
	}
}

func TestFromInclusiveRounding(t *testing.T) {
	// 10 / 1.1 = 9.0909 -> 9
	assert.Equal(t, int64(9), FromInclusive(10).PriceBeforeVAT)
	// 17 / 1.1 = 15.4545 -> 15
	assert.Equal(t, int64(15), FromInclusive(17).PriceBeforeVAT)
	// 18 / 1.1 = 16.3636 -> 16
	assert.Equal(t, int64(16), FromInclusive(18).PriceBeforeVAT)
	// 6 / 1.1 = 5.4545 -> 5
	assert.Equal(t, int64(5), FromInclusive(6).PriceBeforeVAT)
	// 1650000 / 1.1 = 1500000
	assert.Equal(t, int64(1500000), FromInclusive(1650000).PriceBeforeVAT)
}

func TestFromExclusive(t *testing.T) {
	b := FromExclusive(1300000)
	assert.Equal(t, int64(130000), b.VATAmount)
	assert.Equal(t, int64(1430000), b.PriceWithVAT)

	// 15 * 0.1 = 1.5 rounds half up
	assert.Equal(t, int64(2), FromExclusive(15).VATAmount)
	// 14 * 0.1 = 1.4
	assert.Equal(t, int64(1), FromExclusive(14).VATAmount)
}

func TestShippingCostBoundary(t *testing.T) {
	assert.Equal(t, int64(0), ShippingCost(500000))
	assert.Equal(t, int64(30000), ShippingCost(499999))
	assert.Equal(t, int64(0), ShippingCost(1430000))
}

func TestVATInvoiceEligibilityBoundary(t *testing.T) {
	assert.True(t, IsEligibleForVATInvoice(200000))
	assert.False(t, IsEligibleForVATInvoice(199999))
}

func TestCalculateOrderVAT(t *testing.T) {
	items := []Item{
		{Name: "Product A", Price: 550000, Quantity: 2},
		{Name: "Product B", Price: 330000, Quantity: 1},
	}
	subtotal := Subtotal(items)
	require.Equal(t, int64(1430000), subtotal)

	got := CalculateOrderVAT(OrderInput{Items: items, ShippingFee: ShippingCost(subtotal)})

	assert.Equal(t, int64(1430000), got.PriceWithVAT)
	assert.Equal(t, int64(1300000), got.PriceBeforeVAT)
	assert.Equal(t, int64(130000), got.VATAmount)
	require.Len(t, got.Items, 2)
	assert.Equal(t, int64(1000000), got.Items[0].PriceBeforeVAT)
	assert.Equal(t, int64(300000), got.Items[1].PriceBeforeVAT)
	assert.Equal(t, int64(0), got.Shipping.PriceWithVAT)
}

func TestCalculateOrderVATWithDiscounts(t *testing.T) {
	got := CalculateOrderVAT(OrderInput{
		Items:           []Item{{Name: "Tea set", Price: 200000, Quantity: 1}},
		ShippingFee:     30000,
		Discount:        20000,
		LoyaltyDiscount: 10000,
	})

	assert.Equal(t, int64(200000), got.PriceWithVAT)
	assert.Equal(t, got.PriceWithVAT, got.PriceBeforeVAT+got.VATAmount)
	assert.Equal(t, int64(30000), got.Shipping.PriceWithVAT)
	assert.Equal(t, int64(27273), got.Shipping.PriceBeforeVAT)
}

func TestCalculateOrderVATNeverNegative(t *testing.T) {
	got := CalculateOrderVAT(OrderInput{
		Items:    []Item{{Name: "Sticker", Price: 5000, Quantity: 1}},
		Discount: 50000,
	})
	assert.Equal(t, int64(0), got.PriceWithVAT)
	assert.Equal(t, int64(0), got.VATAmount)
}

func TestCustomCalculator(t *testing.T) {
	calc := NewCalculator(0.08, 300000, 25000, 100000)

	assert.Equal(t, int64(25000), calc.ShippingCost(299999))
	assert.Equal(t, int64(0), calc.ShippingCost(300000))
	assert.True(t, calc.IsEligibleForVATInvoice(100000))
	assert.Equal(t, int64(1000000), calc.FromInclusive(1080000).PriceBeforeVAT)
}

func TestValidateVATInfo(t *testing.T) {
	ok := ValidateVATInfo(Info{
		CompanyName: "Công ty TNHH Sao Mai",
		TaxCode:     "0312345678-001",
		Address:     "12 Nguyễn Huệ, Quận 1, TP.HCM",
		Email:       "ketoan@saomai.vn",
	})
	assert.True(t, ok.IsValid)
	assert.Empty(t, ok.Errors)

	optional := ValidateVATInfo(Info{CompanyName: "An", Address: "  45 Lê Lợi, Huế  "})
	assert.True(t, optional.IsValid, optional.Errors)
}

func TestValidateVATInfoReportsAllErrors(t *testing.T) {
	res := ValidateVATInfo(Info{
		CompanyName: " A ",
		TaxCode:     "12345",
		Address:     "short",
		Email:       "not-an-email",
	})

	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, 4)
	assert.Contains(t, res.Errors, "tax code must be 10 digits, optionally followed by -XXX")
	assert.Contains(t, res.Errors, "address must be at least 10 characters")
}

func TestValidateVATInfoTaxCodeFormats(t *testing.T) {
	base := Info{CompanyName: "Sao Mai", Address: "12 Nguyen Hue, Q1"}

	for code, valid := range map[string]bool{
		"0312345678":     true,
		"0312345678-001": true,
		"031234567":      false,
		"0312345678-01":  false,
		"03123456789":    false,
		"031234567a":     false,
	} {
		info := base
		info.TaxCode = code
		assert.Equal(t, valid, ValidateVATInfo(info).IsValid, code)
	}
}

func TestGenerateInvoiceNumber(t *testing.T) {
	date := time.Date(2024, 3, 9, 10, 0, 0, 0, time.UTC)
	n := GenerateInvoiceNumber(date)
	assert.Regexp(t, regexp.MustCompile(`^INV-20240309-\d{4}$`), n)
}
