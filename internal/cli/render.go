package cli

import (
	"fmt"
	"io"
	"strconv"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/schedule"
	"github.com/nhle/po-intake/internal/theme"
)

const dateLayout = "2006-01-02"

func newTable(headers ...string) *table.Table {
	return table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(lipgloss.NewStyle().Foreground(theme.ColorBorder)).
		Headers(headers...)
}

func renderList(w io.Writer, subs []model.Submission) {
	if len(subs) == 0 {
		fmt.Fprintln(w, theme.HelpStyle.Render("No submissions."))
		return
	}

	t := newTable("ID", "Created", "Project", "Company", "Contract", "Status")
	for _, s := range subs {
		t.Row(
			strconv.FormatInt(s.ID, 10),
			s.CreatedAt.Local().Format(dateLayout),
			s.Meta.ProjectName,
			s.Meta.CompanyName,
			theme.Money(s.Meta.ContractAmount),
			theme.StatusBadge(s.Sent),
		)
	}
	fmt.Fprintln(w, t)
}

func renderSubmission(w io.Writer, s model.Submission) {
	fmt.Fprintln(w, theme.HeaderStyle.Render(fmt.Sprintf("PO #%d  %s", s.ID, s.DisplayName())))

	field := func(label, value string) {
		if value == "" {
			return
		}
		fmt.Fprintf(w, "%s %s\n", theme.LabelStyle.Render(fmt.Sprintf("%-20s", label)), value)
	}
	m := s.Meta
	field("Status", theme.StatusBadge(s.Sent))
	field("Created", s.CreatedAt.Local().Format("2006-01-02 15:04"))
	if s.SentAt != nil {
		field("Sent", s.SentAt.Local().Format("2006-01-02 15:04"))
	}
	if s.RevisionOf > 0 {
		field("Revision of", "#"+strconv.FormatInt(s.RevisionOf, 10))
	}
	field("General contractor", m.GeneralContractor)
	field("Address", m.Address)
	field("Owner", m.Owner)
	field("Project manager", m.ProjectManager)
	field("Contract amount", theme.Money(m.ContractAmount))
	if m.AddAltAmount != 0 || m.AddAltDetails != "" {
		field("Add/alt", theme.Money(m.AddAltAmount)+" "+m.AddAltDetails)
	}
	field("Retainage", schedule.FormatPercent(m.RetainagePct))
	field("Company", m.CompanyName)
	field("Contact", m.ContactName)
	field("Email", m.Email)
	field("Cell", m.CellNumber)
	field("Office", m.OfficeNumber)
	field("Vendor / work type", joinNonEmpty(m.VendorType, m.WorkType))
	field("Notice to proceed", m.ImportantDates.NoticeToProceed)
	field("Anticipated start", m.ImportantDates.AnticipatedStart)
	field("Substantial compl.", m.ImportantDates.SubstantialCompletion)
	field("100% completion", m.ImportantDates.HundredPercent)

	if len(s.Schedule) > 0 {
		fmt.Fprintln(w)
		renderSchedule(w, s.Schedule)
	}

	if len(s.Scope) > 0 {
		fmt.Fprintln(w)
		t := newTable("Item", "Description", "Scope")
		for _, line := range s.Scope {
			mark := ""
			switch {
			case line.Included:
				mark = theme.SuccessStyle.Render("included")
			case line.Excluded:
				mark = theme.ErrorStyle.Render("excluded")
			}
			t.Row(line.Item, line.Description, mark)
		}
		fmt.Fprintln(w, t)
	}
}

func renderSchedule(w io.Writer, lines []model.ScheduleLine) {
	tbl := schedule.NewTable(lines)
	lines = tbl.Lines()
	totals := tbl.Totals()

	t := newTable("Line", "Budget", "Description", "Qty", "Unit", "Total cost", "Scheduled", "Apex value", "Profit")
	for _, l := range lines {
		t.Row(
			l.PrimeLine,
			l.BudgetCode,
			l.Description,
			strconv.FormatFloat(l.Qty, 'f', -1, 64),
			theme.Money(l.Unit),
			theme.Money(l.TotalCost),
			theme.Money(l.Scheduled),
			theme.Money(l.ApexContractValue),
			theme.Money(l.Profit),
		)
	}
	t.Row("", "", "Totals", "", "",
		theme.Money(totals.TotalCost),
		theme.Money(totals.TotalScheduled),
		theme.Money(totals.TotalApexValue),
		theme.Money(totals.TotalProfit),
	)
	fmt.Fprintln(w, t)
}

func joinNonEmpty(a, b string) string {
	switch {
	case a == "":
		return b
	case b == "":
		return a
	default:
		return a + " / " + b
	}
}
