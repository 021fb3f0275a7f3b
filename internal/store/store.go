package store

import (
	"context"
	"errors"
	"time"

	"github.com/nhle/po-intake/internal/model"
)

var (
	// ErrNotFound is returned when a record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateID is returned when a caller-assigned id is taken.
	ErrDuplicateID = errors.New("id already exists")
)

// Delivery-state filters for SubmissionFilter.Status.
const (
	StatusAll     = ""
	StatusSent    = "sent"
	StatusPending = "pending"
)

// SubmissionFilter controls filtering, sorting, and pagination for
// submission queries.
type SubmissionFilter struct {
	Status     string     // "sent", "pending", or "" (all)
	Query      *string    // project, company, contractor, contact, or id
	Contractor *string    // substring of the general contractor
	UserID     *string    // exact submitter id
	DateFrom   *time.Time // created on or after
	DateTo     *time.Time // created on or before the end of this day
	MinAmount  *float64   // contract amount lower bound
	MaxAmount  *float64   // contract amount upper bound
	Oldest     bool       // oldest first; newest first by default
	Limit      int
	Offset     int
}

// Stats summarizes the submissions table.
type Stats struct {
	Total      int     `json:"total" db:"total"`
	Sent       int     `json:"sent" db:"sent"`
	Pending    int     `json:"pending" db:"pending"`
	TotalValue float64 `json:"totalValue" db:"total_value"`
	AvgValue   float64 `json:"avgValue" db:"-"`
}

// Store is the local durable store. Every method is a single atomic unit
// against the database; none of them touch the network.
type Store interface {
	// === Submissions ===

	// Save stores a new submission, pending, and returns its id. An id of
	// zero is assigned by the store; a non-zero id is used as given.
	Save(ctx context.Context, sub model.Submission) (int64, error)

	// Restore stores a submission with its delivery state as given. It is
	// used by imports of records that already carry an id.
	Restore(ctx context.Context, sub model.Submission) error

	GetAll(ctx context.Context) ([]model.Submission, error)
	GetPending(ctx context.Context) ([]model.Submission, error)
	GetByID(ctx context.Context, id int64) (*model.Submission, error)

	// MarkSent flags a submission delivered. It is idempotent and a no-op
	// for ids that no longer exist.
	MarkSent(ctx context.Context, id int64) error

	Delete(ctx context.Context, id int64) error
	Search(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error)
	Count(ctx context.Context, filter SubmissionFilter) (int, error)
	Stats(ctx context.Context, userID *string) (Stats, error)

	// === Retry queue ===

	EnqueueRetry(ctx context.Context, entry model.RetryEntry) (model.RetryEntry, error)
	GetRetryQueue(ctx context.Context) ([]model.RetryEntry, error)
	UpdateRetryAttempts(ctx context.Context, id string, attempts int) error
	RemoveRetry(ctx context.Context, id string) error

	// === Settings ===

	GetSetting(ctx context.Context, key string) (string, error)
	SetSetting(ctx context.Context, key, value string) error
	DeleteSetting(ctx context.Context, key string) error

	Close() error
}
