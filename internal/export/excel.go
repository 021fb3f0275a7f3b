package export

import (
	"bytes"
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/schedule"
)

const sheetName = "Schedule of Values"

var (
	columns = []string{"A", "B", "C", "D", "E", "F", "G", "H", "I"}
	headers = []string{"Prime Line", "Budget Code", "Description", "Qty", "Unit",
		"Total Cost", "Scheduled", "Apex Contract Value", "Profit"}
	widths = []float64{12, 14, 40, 8, 12, 16, 16, 20, 16}
)

// currencyFormat shows losses in red parentheses.
const currencyFormat = `$#,##0.00;[Red]($#,##0.00)`

// ScheduleWorkbook renders the schedule of sub, with derived columns
// recomputed and a totals row, as an XLSX file.
func ScheduleWorkbook(sub model.Submission) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName(f.GetSheetName(0), sheetName); err != nil {
		return nil, fmt.Errorf("set sheet name: %w", err)
	}
	lastCol := columns[len(columns)-1]

	for i, col := range columns {
		if err := f.SetColWidth(sheetName, col, col, widths[i]); err != nil {
			return nil, fmt.Errorf("set col width %s: %w", col, err)
		}
	}

	titleStyle, err := f.NewStyle(&excelize.Style{
		Font: &excelize.Font{Bold: true, Size: 16},
	})
	if err != nil {
		return nil, fmt.Errorf("create title style: %w", err)
	}
	headerStyle, err := f.NewStyle(&excelize.Style{
		Font:      &excelize.Font{Bold: true, Color: "#FFFFFF", Size: 11},
		Fill:      excelize.Fill{Type: "pattern", Color: []string{"#333333"}, Pattern: 1},
		Alignment: &excelize.Alignment{Horizontal: "center", Vertical: "center"},
		Border:    thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create header style: %w", err)
	}
	textStyle, err := f.NewStyle(&excelize.Style{
		Font:   &excelize.Font{Size: 10},
		Border: thinBorders(),
	})
	if err != nil {
		return nil, fmt.Errorf("create text style: %w", err)
	}
	format := currencyFormat
	moneyStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Size: 10},
		Border:       thinBorders(),
		CustomNumFmt: &format,
	})
	if err != nil {
		return nil, fmt.Errorf("create money style: %w", err)
	}
	totalStyle, err := f.NewStyle(&excelize.Style{
		Font:         &excelize.Font{Bold: true, Size: 11},
		Border:       thinBorders(),
		CustomNumFmt: &format,
	})
	if err != nil {
		return nil, fmt.Errorf("create total style: %w", err)
	}

	// Rows 1-2: title and project details.
	if err := f.MergeCell(sheetName, "A1", lastCol+"1"); err != nil {
		return nil, fmt.Errorf("merge title: %w", err)
	}
	f.SetCellValue(sheetName, "A1", sanitizeExcelCell(sub.DisplayName()))
	f.SetCellStyle(sheetName, "A1", lastCol+"1", titleStyle)

	if err := f.MergeCell(sheetName, "A2", lastCol+"2"); err != nil {
		return nil, fmt.Errorf("merge details: %w", err)
	}
	details := fmt.Sprintf("PO #%d | %s | %s", sub.ID,
		sub.Meta.GeneralContractor, sub.CreatedAt.UTC().Format("2006-01-02"))
	f.SetCellValue(sheetName, "A2", sanitizeExcelCell(details))

	// Row 4: headers.
	for i, h := range headers {
		f.SetCellValue(sheetName, fmt.Sprintf("%s4", columns[i]), h)
	}
	f.SetCellStyle(sheetName, "A4", lastCol+"4", headerStyle)

	lines := schedule.Normalize(sub.Schedule)
	row := 5
	for _, line := range lines {
		r := fmt.Sprintf("%d", row)
		f.SetCellValue(sheetName, "A"+r, sanitizeExcelCell(line.PrimeLine))
		f.SetCellValue(sheetName, "B"+r, sanitizeExcelCell(line.BudgetCode))
		f.SetCellValue(sheetName, "C"+r, sanitizeExcelCell(line.Description))
		f.SetCellValue(sheetName, "D"+r, line.Qty)
		f.SetCellValue(sheetName, "E"+r, line.Unit)
		f.SetCellValue(sheetName, "F"+r, line.TotalCost)
		f.SetCellValue(sheetName, "G"+r, line.Scheduled)
		f.SetCellValue(sheetName, "H"+r, line.ApexContractValue)
		f.SetCellValue(sheetName, "I"+r, line.Profit)
		f.SetCellStyle(sheetName, "A"+r, "D"+r, textStyle)
		f.SetCellStyle(sheetName, "E"+r, "I"+r, moneyStyle)
		row++
	}

	totals := schedule.RecalcTotals(lines)
	r := fmt.Sprintf("%d", row)
	f.SetCellValue(sheetName, "C"+r, "Totals")
	f.SetCellValue(sheetName, "F"+r, totals.TotalCost)
	f.SetCellValue(sheetName, "G"+r, totals.TotalScheduled)
	f.SetCellValue(sheetName, "H"+r, totals.TotalApexValue)
	f.SetCellValue(sheetName, "I"+r, totals.TotalProfit)
	f.SetCellStyle(sheetName, "A"+r, lastCol+r, totalStyle)

	var buf bytes.Buffer
	if err := f.Write(&buf); err != nil {
		return nil, fmt.Errorf("write excel: %w", err)
	}
	return buf.Bytes(), nil
}

// sanitizeExcelCell prefixes values Excel would read as a formula.
func sanitizeExcelCell(s string) string {
	if len(s) == 0 {
		return s
	}
	switch s[0] {
	case '=', '+', '-', '@', '\t', '\r', '|':
		return "'" + s
	}
	return s
}

func thinBorders() []excelize.Border {
	sides := []string{"left", "top", "bottom", "right"}
	borders := make([]excelize.Border, len(sides))
	for i, side := range sides {
		borders[i] = excelize.Border{Type: side, Color: "#000000", Style: 1}
	}
	return borders
}
