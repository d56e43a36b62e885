package ticker

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var usPrinter = message.NewPrinter(language.English)

// FormatPrice 美元金额，千分位 + 两位小数，如 $64,210.50
func FormatPrice(price float64) string {
	return usPrinter.Sprintf("$%.2f", price)
}

// FormatPercentage 正数带 + 号，如 +2.31% / -0.80%
func FormatPercentage(change float64) string {
	if change > 0 {
		return usPrinter.Sprintf("+%.2f%%", change)
	}
	return usPrinter.Sprintf("%.2f%%", change)
}

// Arrow 涨跌箭头，0 视为上涨
func Arrow(change float64) string {
	if change >= 0 {
		return "↑"
	}
	return "↓"
}
