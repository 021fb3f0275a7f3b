// Package schedule derives the computed columns of a schedule of values.
//
// Nothing here caches: callers recompute after every edit, and the store
// normalizes lines before persisting, so a stale TotalCost or Profit is
// never observable.
package schedule

import (
	"math"

	"github.com/nhle/po-intake/internal/model"
)

// LineCalc holds the derived fields of a single schedule line.
type LineCalc struct {
	TotalCost float64 // Qty * Unit
	Profit    float64 // ApexContractValue - TotalCost
}

// Loss reports whether the line loses money.
func (c LineCalc) Loss() bool {
	return c.Profit < 0
}

// Totals aggregates a schedule.
type Totals struct {
	TotalCost      float64
	TotalScheduled float64
	TotalApexValue float64
	TotalProfit    float64
}

// Loss reports whether the schedule as a whole loses money.
func (t Totals) Loss() bool {
	return t.TotalProfit < 0
}

// RecalcLine computes the derived fields of line from its inputs. Any
// non-finite input counts as 0.
func RecalcLine(line model.ScheduleLine) LineCalc {
	total := finite(line.Qty) * finite(line.Unit)
	return LineCalc{
		TotalCost: total,
		Profit:    finite(line.ApexContractValue) - total,
	}
}

// RecalcTotals sums every line. TotalProfit equals both
// TotalApexValue-TotalCost and the sum of per-line profits.
func RecalcTotals(lines []model.ScheduleLine) Totals {
	var t Totals
	for _, line := range lines {
		calc := RecalcLine(line)
		t.TotalCost += calc.TotalCost
		t.TotalScheduled += finite(line.Scheduled)
		t.TotalApexValue += finite(line.ApexContractValue)
	}
	t.TotalProfit = t.TotalApexValue - t.TotalCost
	return t
}

// Apply returns line with TotalCost and Profit recomputed and every
// numeric input made finite.
func Apply(line model.ScheduleLine) model.ScheduleLine {
	calc := RecalcLine(line)
	line.Qty = finite(line.Qty)
	line.Unit = finite(line.Unit)
	line.Scheduled = finite(line.Scheduled)
	line.ApexContractValue = finite(line.ApexContractValue)
	line.TotalCost = calc.TotalCost
	line.Profit = calc.Profit
	return line
}

// Normalize returns a copy of lines with derived fields recomputed. A nil
// input yields an empty, non-nil slice.
func Normalize(lines []model.ScheduleLine) []model.ScheduleLine {
	out := make([]model.ScheduleLine, len(lines))
	for i, line := range lines {
		out[i] = Apply(line)
	}
	return out
}

func finite(f float64) float64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}
