package model

import (
	"strconv"
	"time"
)

// ImportantDates holds the four named project milestones. Values are kept
// exactly as entered (typically YYYY-MM-DD) and default to "".
type ImportantDates struct {
	NoticeToProceed       string `json:"noticeToProceed"`
	AnticipatedStart      string `json:"anticipatedStart"`
	SubstantialCompletion string `json:"substantialCompletion"`
	HundredPercent        string `json:"hundredPercent"`
}

// Meta is the project metadata captured on the first page of the PO form.
type Meta struct {
	ProjectName       string         `json:"projectName"`
	GeneralContractor string         `json:"generalContractor"`
	Address           string         `json:"address"`
	Owner             string         `json:"owner"`
	ApexOwner         string         `json:"apexOwner"`
	TypeStatus        string         `json:"typeStatus"`
	ProjectManager    string         `json:"projectManager"`
	ContractAmount    float64        `json:"contractAmount"`
	AddAltAmount      float64        `json:"addAltAmount"`
	AddAltDetails     string         `json:"addAltDetails"`
	RetainagePct      float64        `json:"retainagePct"`
	RequestedBy       string         `json:"requestedBy"`
	CompanyName       string         `json:"companyName"`
	ContactName       string         `json:"contactName"`
	CellNumber        string         `json:"cellNumber"`
	Email             string         `json:"email"`
	OfficeNumber      string         `json:"officeNumber"`
	VendorType        string         `json:"vendorType"`
	WorkType          string         `json:"workType"`
	ImportantDates    ImportantDates `json:"importantDates"`
}

// ScheduleLine is one row of the schedule of values. TotalCost and Profit
// are derived; see the schedule package.
type ScheduleLine struct {
	PrimeLine         string  `json:"primeLine"`
	BudgetCode        string  `json:"budgetCode"`
	Description       string  `json:"description"`
	Qty               float64 `json:"qty"`
	Unit              float64 `json:"unit"`
	TotalCost         float64 `json:"totalCost"`
	Scheduled         float64 `json:"scheduled"`
	ApexContractValue float64 `json:"apexContractValue"`
	Profit            float64 `json:"profit"`
}

// ScopeLine is one row of the scope-of-work checklist.
// Included and Excluded are never both true.
type ScopeLine struct {
	Item        string `json:"item"`
	Description string `json:"description"`
	Included    bool   `json:"included"`
	Excluded    bool   `json:"excluded"`
}

// SetIncluded checks or unchecks the included box, clearing excluded when
// checking.
func (l *ScopeLine) SetIncluded(v bool) {
	l.Included = v
	if v {
		l.Excluded = false
	}
}

// SetExcluded checks or unchecks the excluded box, clearing included when
// checking.
func (l *ScopeLine) SetExcluded(v bool) {
	l.Excluded = v
	if v {
		l.Included = false
	}
}

// Submission is a purchase order as held by the local store. Business
// content is immutable once stored; only Sent and SentAt change.
type Submission struct {
	ID         int64          `json:"id"`
	Meta       Meta           `json:"meta"`
	Schedule   []ScheduleLine `json:"schedule"`
	Scope      []ScopeLine    `json:"scope"`
	CreatedAt  time.Time      `json:"createdAt"`
	Timestamp  int64          `json:"timestamp"`
	Sent       bool           `json:"sent"`
	SentAt     *time.Time     `json:"sentAt,omitempty"`
	UserID     string         `json:"userId,omitempty"`
	RevisionOf int64          `json:"revisionOf,omitempty"`
}

// Pending reports whether the submission still awaits remote acknowledgment.
func (s Submission) Pending() bool {
	return !s.Sent
}

// DisplayName is the label used in admin listings: the project name, then
// the company name, then a dash.
func (s Submission) DisplayName() string {
	switch {
	case s.Meta.ProjectName != "":
		return s.Meta.ProjectName
	case s.Meta.CompanyName != "":
		return s.Meta.CompanyName
	default:
		return "—"
	}
}

// Renumber rewrites each scope item identifier to its 1-based position.
func Renumber(scope []ScopeLine) {
	for i := range scope {
		scope[i].Item = strconv.Itoa(i + 1)
	}
}

// TimeLayout matches JavaScript's Date.toISOString: UTC, millisecond
// precision, fixed width so formatted values sort lexically.
const TimeLayout = "2006-01-02T15:04:05.000Z"

// FormatTime renders t in TimeLayout.
func FormatTime(t time.Time) string {
	return t.UTC().Format(TimeLayout)
}
