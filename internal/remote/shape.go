package remote

import (
	"math"
	"strings"
	"time"

	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/schedule"
)

// ShapedPO is the exact object the webhook's schema accepts. Every field
// is always present; numbers are whole.
type ShapedPO struct {
	Meta      ShapedMeta    `json:"meta"`
	Schedule  []ShapedLine  `json:"schedule"`
	Scope     []ShapedScope `json:"scope"`
	CreatedAt string        `json:"createdAt"`
	Sent      bool          `json:"sent"`
	Timestamp int64         `json:"timestamp"`
	ID        int64         `json:"id"`
	SentAt    string        `json:"sentAt"`
}

type ShapedMeta struct {
	ProjectName       string      `json:"projectName"`
	GeneralContractor string      `json:"generalContractor"`
	Address           string      `json:"address"`
	Owner             string      `json:"owner"`
	ApexOwner         string      `json:"apexOwner"`
	TypeStatus        string      `json:"typeStatus"`
	ProjectManager    string      `json:"projectManager"`
	ContractAmount    int64       `json:"contractAmount"`
	AddAltAmount      int64       `json:"addAltAmount"`
	AddAltDetails     string      `json:"addAltDetails"`
	RetainagePct      int64       `json:"retainagePct"`
	RequestedBy       string      `json:"requestedBy"`
	CompanyName       string      `json:"companyName"`
	ContactName       string      `json:"contactName"`
	CellNumber        string      `json:"cellNumber"`
	Email             string      `json:"email"`
	OfficeNumber      string      `json:"officeNumber"`
	VendorType        string      `json:"vendorType"`
	WorkType          string      `json:"workType"`
	ImportantDates    ShapedDates `json:"importantDates"`
}

type ShapedDates struct {
	NoticeToProceed       string `json:"noticeToProceed"`
	AnticipatedStart      string `json:"anticipatedStart"`
	SubstantialCompletion string `json:"substantialCompletion"`
	HundredPercent        string `json:"hundredPercent"`
}

type ShapedLine struct {
	PrimeLine         string `json:"primeLine"`
	BudgetCode        string `json:"budgetCode"`
	Description       string `json:"description"`
	Qty               int64  `json:"qty"`
	Unit              int64  `json:"unit"`
	TotalCost         int64  `json:"totalCost"`
	Scheduled         int64  `json:"scheduled"`
	ApexContractValue int64  `json:"apexContractValue"`
	Profit            int64  `json:"profit"`
}

type ShapedScope struct {
	Item        string `json:"item"`
	Description string `json:"description"`
	Included    bool   `json:"included"`
	Excluded    bool   `json:"excluded"`
}

// Shape normalizes sub into the webhook schema. Derived schedule fields
// are recomputed first, then every number is truncated toward zero.
// A missing id, createdAt or timestamp is filled from now; sentAt is
// empty until the submission has been delivered.
func Shape(sub model.Submission, now time.Time) ShapedPO {
	m := sub.Meta
	out := ShapedPO{
		Meta: ShapedMeta{
			ProjectName:       text(m.ProjectName),
			GeneralContractor: text(m.GeneralContractor),
			Address:           text(m.Address),
			Owner:             text(m.Owner),
			ApexOwner:         text(m.ApexOwner),
			TypeStatus:        text(m.TypeStatus),
			ProjectManager:    text(m.ProjectManager),
			ContractAmount:    whole(m.ContractAmount),
			AddAltAmount:      whole(m.AddAltAmount),
			AddAltDetails:     text(m.AddAltDetails),
			RetainagePct:      whole(m.RetainagePct),
			RequestedBy:       text(m.RequestedBy),
			CompanyName:       text(m.CompanyName),
			ContactName:       text(m.ContactName),
			CellNumber:        text(m.CellNumber),
			Email:             text(m.Email),
			OfficeNumber:      text(m.OfficeNumber),
			VendorType:        text(m.VendorType),
			WorkType:          text(m.WorkType),
			ImportantDates: ShapedDates{
				NoticeToProceed:       text(m.ImportantDates.NoticeToProceed),
				AnticipatedStart:      text(m.ImportantDates.AnticipatedStart),
				SubstantialCompletion: text(m.ImportantDates.SubstantialCompletion),
				HundredPercent:        text(m.ImportantDates.HundredPercent),
			},
		},
		Schedule:  []ShapedLine{},
		Scope:     []ShapedScope{},
		Sent:      sub.Sent,
		Timestamp: sub.Timestamp,
		ID:        sub.ID,
	}

	for _, line := range schedule.Normalize(sub.Schedule) {
		out.Schedule = append(out.Schedule, ShapedLine{
			PrimeLine:         text(line.PrimeLine),
			BudgetCode:        text(line.BudgetCode),
			Description:       text(line.Description),
			Qty:               whole(line.Qty),
			Unit:              whole(line.Unit),
			TotalCost:         whole(line.TotalCost),
			Scheduled:         whole(line.Scheduled),
			ApexContractValue: whole(line.ApexContractValue),
			Profit:            whole(line.Profit),
		})
	}

	for _, sc := range sub.Scope {
		out.Scope = append(out.Scope, ShapedScope{
			Item:        text(sc.Item),
			Description: text(sc.Description),
			Included:    sc.Included && !sc.Excluded,
			Excluded:    sc.Excluded,
		})
	}

	if sub.CreatedAt.IsZero() {
		out.CreatedAt = model.FormatTime(now)
	} else {
		out.CreatedAt = model.FormatTime(sub.CreatedAt)
	}
	if out.Timestamp <= 0 {
		out.Timestamp = now.UnixMilli()
	}
	if out.ID <= 0 {
		out.ID = now.Unix()
	}
	if sub.Sent && sub.SentAt != nil {
		out.SentAt = model.FormatTime(*sub.SentAt)
	}

	return out
}

func text(s string) string {
	return strings.TrimSpace(s)
}

// whole truncates toward zero. Non-finite and out-of-range values become 0.
func whole(f float64) int64 {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0
	}
	t := math.Trunc(f)
	if t > math.MaxInt64 || t < math.MinInt64 {
		return 0
	}
	return int64(t)
}
