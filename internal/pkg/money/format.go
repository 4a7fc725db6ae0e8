// Package money formats whole-đồng amounts for people.
package money

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.Vietnamese)

// VND formats an amount with Vietnamese digit grouping, e.g. 1.430.000 ₫
func VND(amount int64) string {
	return printer.Sprintf("%d ₫", amount)
}

// Number formats a plain integer with Vietnamese digit grouping
func Number(n int64) string {
	return printer.Sprintf("%d", n)
}

// Percent renders a rate such as 0.1 as 10%
func Percent(rate float64) string {
	return printer.Sprintf("%.0f%%", rate*100)
}
