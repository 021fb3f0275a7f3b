// Package validate gates submission creation. It collects every violation
// instead of stopping at the first so the form can show them all.
package validate

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/nhle/po-intake/internal/model"
)

// Result is the outcome of validating a submission.
type Result struct {
	IsValid bool     `json:"isValid"`
	Errors  []string `json:"errors"`
}

// RequiredFields are the meta paths that must be non-empty. A zero
// contract amount counts as missing.
var RequiredFields = []string{
	"meta.projectName",
	"meta.generalContractor",
	"meta.address",
	"meta.owner",
	"meta.apexOwner",
	"meta.typeStatus",
	"meta.projectManager",
	"meta.contractAmount",
	"meta.requestedBy",
	"meta.companyName",
	"meta.contactName",
	"meta.email",
	"meta.cellNumber",
	"meta.vendorType",
	"meta.workType",
}

var emailPattern = regexp.MustCompile(`^[^\s@]+@[^\s@]+\.[^\s@]+$`)

// Email reports whether s has the local@domain.tld shape.
func Email(s string) bool {
	return emailPattern.MatchString(s)
}

// Submission checks sub and never fails; problems are returned in the
// Result.
func Submission(sub model.Submission) Result {
	var errs []string
	add := func(err error) {
		if err != nil {
			errs = append(errs, err.Error())
		}
	}

	fields := metaFields(sub.Meta)
	for _, path := range RequiredFields {
		add(validation.Validate(fields[path],
			validation.Required.Error(path+" is required")))
	}

	m := sub.Meta
	add(validation.Validate(m.Email,
		validation.Match(emailPattern).Error("Invalid email format")))
	add(validation.Validate(m.ContractAmount,
		validation.By(finiteNumber("Contract amount must be a valid positive number")),
		validation.Min(0.0).Error("Contract amount must be a valid positive number")))
	add(validation.Validate(m.AddAltAmount,
		validation.By(finiteNumber("Add/Alt amount must be a valid positive number")),
		validation.Min(0.0).Error("Add/Alt amount must be a valid positive number")))
	add(validation.Validate(m.RetainagePct,
		validation.By(finiteNumber("Retainage percentage must be between 0 and 100")),
		validation.Min(0.0).Error("Retainage percentage must be between 0 and 100"),
		validation.Max(100.0).Error("Retainage percentage must be between 0 and 100")))

	for i, line := range sub.Schedule {
		n := i + 1
		if blank(line.PrimeLine) || blank(line.BudgetCode) || blank(line.Description) {
			errs = append(errs, fmt.Sprintf(
				"Schedule item %d: Prime Line, Budget Code, and Description are required", n))
		}
		add(validation.Validate(line.Qty,
			validation.By(finiteNumber(fmt.Sprintf("Schedule item %d: Quantity must be a valid positive number", n))),
			validation.Min(0.0).Error(fmt.Sprintf("Schedule item %d: Quantity must be a valid positive number", n))))
		add(validation.Validate(line.Unit,
			validation.By(finiteNumber(fmt.Sprintf("Schedule item %d: Unit cost must be a valid positive number", n))),
			validation.Min(0.0).Error(fmt.Sprintf("Schedule item %d: Unit cost must be a valid positive number", n))))
	}

	for i, line := range sub.Scope {
		n := i + 1
		if blank(line.Item) || blank(line.Description) {
			errs = append(errs, fmt.Sprintf(
				"Scope item %d: Item number and Description are required", n))
		}
		if line.Included && line.Excluded {
			errs = append(errs, fmt.Sprintf(
				"Scope item %d: cannot be both included and excluded", n))
		}
	}

	return Result{IsValid: len(errs) == 0, Errors: errs}
}

func metaFields(m model.Meta) map[string]any {
	return map[string]any{
		"meta.projectName":       strings.TrimSpace(m.ProjectName),
		"meta.generalContractor": strings.TrimSpace(m.GeneralContractor),
		"meta.address":           strings.TrimSpace(m.Address),
		"meta.owner":             strings.TrimSpace(m.Owner),
		"meta.apexOwner":         strings.TrimSpace(m.ApexOwner),
		"meta.typeStatus":        strings.TrimSpace(m.TypeStatus),
		"meta.projectManager":    strings.TrimSpace(m.ProjectManager),
		"meta.contractAmount":    m.ContractAmount,
		"meta.requestedBy":       strings.TrimSpace(m.RequestedBy),
		"meta.companyName":       strings.TrimSpace(m.CompanyName),
		"meta.contactName":       strings.TrimSpace(m.ContactName),
		"meta.email":             strings.TrimSpace(m.Email),
		"meta.cellNumber":        strings.TrimSpace(m.CellNumber),
		"meta.vendorType":        strings.TrimSpace(m.VendorType),
		"meta.workType":          strings.TrimSpace(m.WorkType),
	}
}

// finiteNumber rejects NaN and infinities, which Min/Max would let through.
func finiteNumber(msg string) validation.RuleFunc {
	return func(value interface{}) error {
		f, ok := value.(float64)
		if ok && (math.IsNaN(f) || math.IsInf(f, 0)) {
			return validation.NewError("validation_not_finite", msg)
		}
		return nil
	}
}

func blank(s string) bool {
	return strings.TrimSpace(s) == ""
}
