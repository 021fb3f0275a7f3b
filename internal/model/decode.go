package model

import (
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// DecodeSubmission builds a Submission from loosely typed form JSON.
// Missing or null strings become "", and numbers given as blank,
// non-numeric, or currency-formatted strings ("$1,250.00", "10%") are
// coerced, with anything unparseable becoming 0.
func DecodeSubmission(data []byte) (Submission, error) {
	var raw map[string]any
	if err := json.Unmarshal(data, &raw); err != nil {
		return Submission{}, fmt.Errorf("decoding submission: %w", err)
	}
	return SubmissionFromMap(raw), nil
}

// SubmissionFromMap is DecodeSubmission over an already-parsed object.
// It is total: every field of the result is set.
func SubmissionFromMap(raw map[string]any) Submission {
	meta := asMap(raw["meta"])
	dates := asMap(meta["importantDates"])

	sub := Submission{
		ID: int64(toNumber(raw["id"])),
		Meta: Meta{
			ProjectName:       toText(meta["projectName"]),
			GeneralContractor: toText(meta["generalContractor"]),
			Address:           toText(meta["address"]),
			Owner:             toText(meta["owner"]),
			ApexOwner:         toText(meta["apexOwner"]),
			TypeStatus:        toText(meta["typeStatus"]),
			ProjectManager:    toText(meta["projectManager"]),
			ContractAmount:    toNumber(meta["contractAmount"]),
			AddAltAmount:      toNumber(meta["addAltAmount"]),
			AddAltDetails:     toText(meta["addAltDetails"]),
			RetainagePct:      toNumber(meta["retainagePct"]),
			RequestedBy:       toText(meta["requestedBy"]),
			CompanyName:       toText(meta["companyName"]),
			ContactName:       toText(meta["contactName"]),
			CellNumber:        toText(meta["cellNumber"]),
			Email:             toText(meta["email"]),
			OfficeNumber:      toText(meta["officeNumber"]),
			VendorType:        toText(meta["vendorType"]),
			WorkType:          toText(meta["workType"]),
			ImportantDates: ImportantDates{
				NoticeToProceed:       toText(dates["noticeToProceed"]),
				AnticipatedStart:      toText(dates["anticipatedStart"]),
				SubstantialCompletion: toText(dates["substantialCompletion"]),
				HundredPercent:        toText(dates["hundredPercent"]),
			},
		},
		Schedule:   []ScheduleLine{},
		Scope:      []ScopeLine{},
		Timestamp:  int64(toNumber(raw["timestamp"])),
		Sent:       cast.ToBool(raw["sent"]),
		UserID:     toText(raw["userId"]),
		RevisionOf: int64(toNumber(raw["revisionOf"])),
	}
	if t, ok := toTime(raw["createdAt"]); ok {
		sub.CreatedAt = t
	}
	if t, ok := toTime(raw["sentAt"]); ok && sub.Sent {
		sub.SentAt = &t
	}

	for _, item := range asSlice(raw["schedule"]) {
		row := asMap(item)
		sub.Schedule = append(sub.Schedule, ScheduleLine{
			PrimeLine:         toText(row["primeLine"]),
			BudgetCode:        toText(row["budgetCode"]),
			Description:       toText(row["description"]),
			Qty:               toNumber(row["qty"]),
			Unit:              toNumber(row["unit"]),
			TotalCost:         toNumber(row["totalCost"]),
			Scheduled:         toNumber(row["scheduled"]),
			ApexContractValue: toNumber(row["apexContractValue"]),
			Profit:            toNumber(row["profit"]),
		})
	}

	for _, item := range asSlice(raw["scope"]) {
		row := asMap(item)
		line := ScopeLine{
			Item:        toText(row["item"]),
			Description: toText(row["description"]),
		}
		// Apply in form order so a row posted with both boxes checked
		// keeps only the last one, as the checkbox handlers would.
		line.SetIncluded(cast.ToBool(row["included"]))
		line.SetExcluded(cast.ToBool(row["excluded"]))
		sub.Scope = append(sub.Scope, line)
	}

	return sub
}

func asMap(v any) map[string]any {
	m, _ := v.(map[string]any)
	if m == nil {
		return map[string]any{}
	}
	return m
}

func asSlice(v any) []any {
	s, _ := v.([]any)
	return s
}

func toText(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}

// toTime parses an ISO-8601 string. Anything else is reported as absent.
func toTime(v any) (time.Time, bool) {
	s, ok := v.(string)
	if !ok || strings.TrimSpace(s) == "" {
		return time.Time{}, false
	}
	t, err := cast.ToTimeE(strings.TrimSpace(s))
	if err != nil {
		return time.Time{}, false
	}
	return t.UTC(), true
}

// toNumber coerces a form value to a finite float64, 0 on failure.
func toNumber(v any) float64 {
	if s, ok := v.(string); ok {
		v = stripNumeric(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	return f
}

// stripNumeric drops currency symbols, grouping commas, percent signs and
// whitespace, keeping digits, '.', and '-'.
func stripNumeric(s string) string {
	var b strings.Builder
	for _, r := range s {
		if (r >= '0' && r <= '9') || r == '.' || r == '-' {
			b.WriteRune(r)
		}
	}
	return b.String()
}
