package vat

import (
	"errors"
	"fmt"
	"math/rand"
	"reflect"
	"regexp"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
)

// Info is the buyer data printed on a VAT (red) invoice
type Info struct {
	CompanyName string `json:"company_name" gorm:"size:255" validate:"min=2"`
	TaxCode     string `json:"tax_code,omitempty" gorm:"size:20" validate:"omitempty,taxcode"`
	Address     string `json:"address" gorm:"size:500" validate:"min=10"`
	Email       string `json:"email,omitempty" gorm:"size:255" validate:"omitempty,email"`
}

// IsZero reports whether no invoice data was supplied
func (i Info) IsZero() bool {
	return strings.TrimSpace(i.CompanyName) == "" &&
		strings.TrimSpace(i.TaxCode) == "" &&
		strings.TrimSpace(i.Address) == "" &&
		strings.TrimSpace(i.Email) == ""
}

// Normalized returns a copy with surrounding whitespace removed
func (i Info) Normalized() Info {
	return Info{
		CompanyName: strings.TrimSpace(i.CompanyName),
		TaxCode:     strings.TrimSpace(i.TaxCode),
		Address:     strings.TrimSpace(i.Address),
		Email:       strings.TrimSpace(i.Email),
	}
}

// ValidationResult lists every rule the info violates
type ValidationResult struct {
	IsValid bool     `json:"is_valid"`
	Errors  []string `json:"errors"`
}

var taxCodePattern = regexp.MustCompile(`^\d{10}(-\d{3})?$`)

var infoValidator = newInfoValidator()

func newInfoValidator() *validator.Validate {
	v := validator.New()
	_ = v.RegisterValidation("taxcode", func(fl validator.FieldLevel) bool {
		return taxCodePattern.MatchString(fl.Field().String())
	})
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	return v
}

var fieldMessages = map[string]string{
	"company_name": "company or buyer name must be at least 2 characters",
	"address":      "address must be at least 10 characters",
	"tax_code":     "tax code must be 10 digits, optionally followed by -XXX",
	"email":        "email address is not valid",
}

// ValidateVATInfo checks buyer invoice data and reports all violations
func ValidateVATInfo(info Info) ValidationResult {
	result := ValidationResult{IsValid: true, Errors: []string{}}

	err := infoValidator.Struct(info.Normalized())
	if err == nil {
		return result
	}

	result.IsValid = false
	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		result.Errors = append(result.Errors, err.Error())
		return result
	}
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = fmt.Sprintf("%s is invalid", fe.Field())
		}
		result.Errors = append(result.Errors, msg)
	}
	return result
}

// GenerateInvoiceNumber returns INV-YYYYMMDD-RRRR with a random suffix.
// Numbers are not guaranteed unique within a day.
func GenerateInvoiceNumber(date time.Time) string {
	return fmt.Sprintf("INV-%s-%04d", date.Format("20060102"), rand.Intn(10000))
}
