package validate

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/nhle/po-intake/internal/model"
)

func validSubmission() model.Submission {
	return model.Submission{
		Meta: model.Meta{
			ProjectName:       "Riverside Lofts",
			GeneralContractor: "Apex Construction",
			Address:           "100 River Rd",
			Owner:             "Riverside LLC",
			ApexOwner:         "J. Ortiz",
			TypeStatus:        "New",
			ProjectManager:    "K. Lee",
			ContractAmount:    250000,
			RetainagePct:      10,
			RequestedBy:       "K. Lee",
			CompanyName:       "Northside Framing",
			ContactName:       "Sam Park",
			Email:             "sam@northside.example",
			CellNumber:        "(555) 010-2000",
			VendorType:        "Subcontractor",
			WorkType:          "Framing",
		},
		Schedule: []model.ScheduleLine{
			{PrimeLine: "1", BudgetCode: "06-100", Description: "Rough framing", Qty: 10, Unit: 5, ApexContractValue: 40},
		},
		Scope: []model.ScopeLine{
			{Item: "1", Description: "Framing labor", Included: true},
		},
	}
}

func TestSubmissionValid(t *testing.T) {
	res := Submission(validSubmission())
	assert.True(t, res.IsValid)
	assert.Empty(t, res.Errors)
}

func TestSubmissionCollectsAllMissingFields(t *testing.T) {
	sub := validSubmission()
	sub.Meta.ProjectName = ""
	sub.Meta.Email = "  "

	res := Submission(sub)
	assert.False(t, res.IsValid)
	assert.GreaterOrEqual(t, len(res.Errors), 2)
	assert.Contains(t, res.Errors, "meta.projectName is required")
	assert.Contains(t, res.Errors, "meta.email is required")
}

func TestSubmissionEmptyReportsEveryRequiredField(t *testing.T) {
	res := Submission(model.Submission{})
	assert.False(t, res.IsValid)
	assert.Len(t, res.Errors, len(RequiredFields))
}

func TestSubmissionBounds(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*model.Submission)
		want   string
	}{
		{"bad_email", func(s *model.Submission) { s.Meta.Email = "sam@northside" }, "Invalid email format"},
		{"negative_contract", func(s *model.Submission) { s.Meta.ContractAmount = -1 }, "Contract amount must be a valid positive number"},
		{"negative_add_alt", func(s *model.Submission) { s.Meta.AddAltAmount = -5 }, "Add/Alt amount must be a valid positive number"},
		{"retainage_high", func(s *model.Submission) { s.Meta.RetainagePct = 101 }, "Retainage percentage must be between 0 and 100"},
		{"retainage_negative", func(s *model.Submission) { s.Meta.RetainagePct = -0.5 }, "Retainage percentage must be between 0 and 100"},
		{"retainage_nan", func(s *model.Submission) { s.Meta.RetainagePct = math.NaN() }, "Retainage percentage must be between 0 and 100"},
		{"negative_qty", func(s *model.Submission) { s.Schedule[0].Qty = -1 }, "Schedule item 1: Quantity must be a valid positive number"},
		{"negative_unit", func(s *model.Submission) { s.Schedule[0].Unit = -3 }, "Schedule item 1: Unit cost must be a valid positive number"},
		{"missing_budget_code", func(s *model.Submission) { s.Schedule[0].BudgetCode = "" }, "Schedule item 1: Prime Line, Budget Code, and Description are required"},
		{"missing_scope_desc", func(s *model.Submission) { s.Scope[0].Description = "" }, "Scope item 1: Item number and Description are required"},
		{"scope_both_checked", func(s *model.Submission) { s.Scope[0].Excluded = true }, "Scope item 1: cannot be both included and excluded"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sub := validSubmission()
			tt.mutate(&sub)
			res := Submission(sub)
			assert.False(t, res.IsValid)
			assert.Contains(t, res.Errors, tt.want)
		})
	}
}

func TestSubmissionZeroAddAltAndRetainageAllowed(t *testing.T) {
	sub := validSubmission()
	sub.Meta.AddAltAmount = 0
	sub.Meta.RetainagePct = 0
	assert.True(t, Submission(sub).IsValid)
}

func TestEmail(t *testing.T) {
	assert.True(t, Email("a@b.co"))
	assert.False(t, Email("a@b"))
	assert.False(t, Email("a b@c.d"))
	assert.False(t, Email(""))
}
