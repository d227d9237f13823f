package currency

import (
	"math"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

const Symbol = "Rs."

var printer = message.NewPrinter(language.English)

// FormatAmount groups digits and drops the fraction when it is zero:
// 1500 -> "1,500", 1499.5 -> "1,499.50".
func FormatAmount(amount float64) string {
	if amount == math.Trunc(amount) {
		return printer.Sprintf("%d", int64(amount))
	}
	return printer.Sprintf("%.2f", amount)
}

// FormatPrice renders an amount for display, e.g. "Rs. 1,500".
func FormatPrice(amount float64) string {
	if amount < 0 {
		return "-" + Symbol + " " + FormatAmount(-amount)
	}
	return Symbol + " " + FormatAmount(amount)
}
