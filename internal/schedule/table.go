package schedule

import "github.com/nhle/po-intake/internal/model"

// Table is an editable schedule. Rows are recomputed on the way in and
// Totals is always derived from the current rows.
type Table struct {
	lines []model.ScheduleLine
}

// NewTable builds a table from existing lines, recomputing each.
func NewTable(lines []model.ScheduleLine) *Table {
	return &Table{lines: Normalize(lines)}
}

// Len returns the number of rows.
func (t *Table) Len() int {
	return len(t.lines)
}

// Remove deletes row i, preserving the order of the rest.
func (t *Table) Remove(i int) bool {
	if i < 0 || i >= len(t.lines) {
		return false
	}
	t.lines = append(t.lines[:i], t.lines[i+1:]...)
	return true
}

// Lines returns a copy of all rows in order.
func (t *Table) Lines() []model.ScheduleLine {
	out := make([]model.ScheduleLine, len(t.lines))
	copy(out, t.lines)
	return out
}

// Totals recomputes the aggregate row.
func (t *Table) Totals() Totals {
	return RecalcTotals(t.lines)
}
