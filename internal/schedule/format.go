package schedule

import (
	"math"

	"github.com/dustin/go-humanize"
)

// FormatCurrency renders an amount as "$1,234.56". Negative amounts are
// shown in accounting style, "($1,234.56)".
func FormatCurrency(amount float64) string {
	amount = finite(amount)
	abs := humanize.FormatFloat("#,###.##", math.Abs(amount))
	if amount < 0 && abs != "0.00" {
		return "($" + abs + ")"
	}
	return "$" + abs
}

// FormatPercent renders a percentage with up to two decimals, "10%" or
// "12.5%".
func FormatPercent(pct float64) string {
	return humanize.FtoaWithDigits(finite(pct), 2) + "%"
}
