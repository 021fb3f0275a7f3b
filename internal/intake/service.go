// Package intake is the API-style surface over the local store: form
// submission, create / revise / import / delete, listing and drafts.
package intake

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/remote"
	"github.com/nhle/po-intake/internal/store"
	posync "github.com/nhle/po-intake/internal/sync"
	"github.com/nhle/po-intake/internal/validate"
)

var (
	// ErrInvalid is returned when a submission fails validation. The
	// accompanying result carries every message.
	ErrInvalid = errors.New("submission is invalid")

	// ErrForbidden is returned when the current user lacks a permission.
	ErrForbidden = errors.New("insufficient permissions")
)

// Sync status values reported by Create, Revise and Delete.
const (
	SyncSynced   = "synced"
	SyncQueued   = "queued"
	SyncFailed   = "failed"
	SyncDisabled = "disabled"
)

// Delivery is the resilient webhook client.
type Delivery interface {
	SyncSubmission(ctx context.Context, sub model.Submission) remote.Result
	SyncAction(ctx context.Context, action string, data any) remote.Result
}

// Pusher runs sync passes.
type Pusher interface {
	Pass(ctx context.Context, trigger posync.Trigger) posync.PassReport
}

// Service implements the intake operations.
type Service struct {
	store    store.Store
	delivery Delivery
	pusher   Pusher
	auth     model.Auth
	notifier model.Notifier
	now      func() time.Time
	logger   *slog.Logger
}

// Option configures a Service.
type Option func(*Service)

// WithAuth sets the authentication collaborator.
func WithAuth(a model.Auth) Option {
	return func(s *Service) { s.auth = a }
}

// WithNotifier sets where outcomes are surfaced.
func WithNotifier(n model.Notifier) Option {
	return func(s *Service) { s.notifier = n }
}

// WithClock sets the time source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(s *Service) { s.logger = l }
}

// New creates a Service. delivery and pusher may be nil, in which case
// records are only stored.
func New(st store.Store, delivery Delivery, pusher Pusher, opts ...Option) *Service {
	s := &Service{
		store:    st,
		delivery: delivery,
		pusher:   pusher,
		now:      time.Now,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SubmitResult is the outcome of Submit.
type SubmitResult struct {
	ID         int64           `json:"id,omitempty"`
	Validation validate.Result `json:"validation"`
	Delivered  bool            `json:"delivered"`
}

// Submit is the form path: validate, store as pending, clear the draft,
// then run a sync pass. Delivery failure leaves the record pending and is
// not an error.
func (s *Service) Submit(ctx context.Context, sub model.Submission) (SubmitResult, error) {
	res := SubmitResult{Validation: validate.Submission(sub)}
	if !res.Validation.IsValid {
		s.notifyError("Submission invalid", fmt.Sprintf("%d problem(s) found", len(res.Validation.Errors)))
		return res, ErrInvalid
	}

	sub.ID = 0
	sub.RevisionOf = 0
	sub.UserID = s.userID()
	id, err := s.store.Save(ctx, sub)
	if err != nil {
		s.notifyError("Save failed", err.Error())
		return res, fmt.Errorf("saving submission: %w", err)
	}
	res.ID = id
	s.logger.Info("submission saved", "submission_id", id)

	if err := s.ClearDraft(ctx); err != nil {
		s.logger.Warn("clearing draft", "error", err)
	}

	if s.pusher != nil {
		s.pusher.Pass(ctx, posync.TriggerManual)
	}

	stored, err := s.store.GetByID(ctx, id)
	if err == nil {
		res.Delivered = stored.Sent
	}

	if res.Delivered {
		s.notifySuccess("Submitted", fmt.Sprintf("PO #%d submitted and synced", id))
	} else {
		s.notifySuccess("Submitted", fmt.Sprintf("PO #%d saved; it will sync when the webhook is reachable", id))
	}
	return res, nil
}

// CreateResult is the outcome of Create, Revise and Delete.
type CreateResult struct {
	Submission *model.Submission `json:"po,omitempty"`
	Validation validate.Result   `json:"validation"`
	SyncStatus string            `json:"syncStatus,omitempty"`
	Error      string            `json:"error,omitempty"`
}

// Create is the API path: validate, store as pending, then deliver through
// the resilient client. The record is marked sent only once the webhook
// acknowledges it.
func (s *Service) Create(ctx context.Context, sub model.Submission) (CreateResult, error) {
	sub.ID = 0
	sub.RevisionOf = 0
	return s.create(ctx, sub)
}

// Revise stores a new pending submission carrying the content of id with
// edit applied. The original is never modified.
func (s *Service) Revise(ctx context.Context, id int64, edit func(*model.Submission)) (CreateResult, error) {
	orig, err := s.owned(ctx, id)
	if err != nil {
		return CreateResult{}, err
	}

	rev := *orig
	rev.Schedule = append([]model.ScheduleLine(nil), orig.Schedule...)
	rev.Scope = append([]model.ScopeLine(nil), orig.Scope...)
	if edit != nil {
		edit(&rev)
	}
	rev.ID = 0
	rev.RevisionOf = id
	rev.CreatedAt = time.Time{}
	return s.create(ctx, rev)
}

func (s *Service) create(ctx context.Context, sub model.Submission) (CreateResult, error) {
	out := CreateResult{Validation: validate.Submission(sub)}
	if !out.Validation.IsValid {
		return out, ErrInvalid
	}

	if sub.UserID == "" {
		sub.UserID = s.userID()
	}
	id, err := s.store.Save(ctx, sub)
	if err != nil {
		return out, fmt.Errorf("saving submission: %w", err)
	}

	stored, err := s.store.GetByID(ctx, id)
	if err != nil {
		return out, err
	}
	out.Submission = stored

	if s.delivery == nil {
		out.SyncStatus = SyncQueued
		return out, nil
	}

	res := s.delivery.SyncSubmission(ctx, *stored)
	out.SyncStatus = syncStatus(res)
	out.Error = res.Error
	if out.SyncStatus == SyncSynced {
		if err := s.store.MarkSent(ctx, id); err != nil {
			return out, fmt.Errorf("marking submission %d sent: %w", id, err)
		}
		if fresh, err := s.store.GetByID(ctx, id); err == nil {
			out.Submission = fresh
		}
	}
	return out, nil
}

// Import stores records from a backup or an external system. Records with
// an id keep it along with their delivery state; an id already in use is
// skipped. Records without one are stored as new pending submissions.
func (s *Service) Import(ctx context.Context, subs []model.Submission) (ImportResult, error) {
	if !s.can(model.PermManagePOs) {
		return ImportResult{}, ErrForbidden
	}

	var out ImportResult
	for i, sub := range subs {
		var err error
		if sub.ID > 0 {
			err = s.store.Restore(ctx, sub)
		} else {
			_, err = s.store.Save(ctx, sub)
		}
		switch {
		case errors.Is(err, store.ErrDuplicateID):
			out.Skipped++
			out.Errors = append(out.Errors, fmt.Sprintf("record %d: id %d already exists", i+1, sub.ID))
		case err != nil:
			out.Failed++
			out.Errors = append(out.Errors, fmt.Sprintf("record %d: %v", i+1, err))
		default:
			out.Imported++
		}
	}
	s.logger.Info("import finished", "imported", out.Imported, "skipped", out.Skipped, "failed", out.Failed)
	return out, nil
}

// ImportResult reports an Import.
type ImportResult struct {
	Imported int      `json:"imported"`
	Skipped  int      `json:"skipped"`
	Failed   int      `json:"failed"`
	Errors   []string `json:"errors,omitempty"`
}

// Delete removes a submission locally, then tells the webhook with a
// DELETE_PO action.
func (s *Service) Delete(ctx context.Context, id int64) (CreateResult, error) {
	if !s.can(model.PermManagePOs) {
		return CreateResult{}, ErrForbidden
	}

	sub, err := s.owned(ctx, id)
	if err != nil {
		return CreateResult{}, err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return CreateResult{}, err
	}
	s.logger.Info("submission deleted", "submission_id", id)

	out := CreateResult{Submission: sub, Validation: validate.Result{IsValid: true}}
	if s.delivery == nil {
		return out, nil
	}
	res := s.delivery.SyncAction(ctx, model.ActionDeletePO, remote.Shape(*sub, s.now()))
	out.SyncStatus = syncStatus(res)
	out.Error = res.Error
	return out, nil
}

// DeleteMany deletes each id in turn, continuing past failures.
func (s *Service) DeleteMany(ctx context.Context, ids []int64) posync.BulkResult {
	out := posync.BulkResult{Total: len(ids)}
	for _, id := range ids {
		if _, err := s.Delete(ctx, id); err != nil {
			s.logger.Warn("bulk delete", "submission_id", id, "error", err)
			out.Failed = append(out.Failed, id)
			continue
		}
		out.Succeeded++
	}
	return out
}

// Get returns one submission visible to the current user.
func (s *Service) Get(ctx context.Context, id int64) (*model.Submission, error) {
	return s.owned(ctx, id)
}

// owned loads id and fails with ErrForbidden when it belongs to someone
// else and the current user may not view all submissions.
func (s *Service) owned(ctx context.Context, id int64) (*model.Submission, error) {
	sub, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if scope := s.scope(); scope != nil && sub.UserID != *scope {
		return nil, fmt.Errorf("submission %d: %w", id, ErrForbidden)
	}
	return sub, nil
}

// Stats summarizes the submissions visible to the current user.
func (s *Service) Stats(ctx context.Context) (store.Stats, error) {
	return s.store.Stats(ctx, s.scope())
}

func syncStatus(res remote.Result) string {
	switch {
	case res.Success && res.Message == remote.MessageDisabled:
		return SyncDisabled
	case res.Success:
		return SyncSynced
	case res.Queued:
		return SyncQueued
	default:
		return SyncFailed
	}
}

func (s *Service) userID() string {
	if s.auth == nil {
		return ""
	}
	if u := s.auth.CurrentUser(); u != nil {
		return u.ID
	}
	return ""
}

// can reports whether the current user holds perm. Without an Auth
// collaborator everything is allowed.
func (s *Service) can(perm string) bool {
	return s.auth == nil || s.auth.HasPermission(perm)
}

// scope limits queries to the current user unless they may view all.
func (s *Service) scope() *string {
	if s.can(model.PermViewAll) {
		return nil
	}
	id := s.userID()
	return &id
}

func (s *Service) notifySuccess(title, msg string) {
	if s.notifier != nil {
		s.notifier.ShowSuccess(title, msg)
	}
}

func (s *Service) notifyError(title, msg string) {
	if s.notifier != nil {
		s.notifier.ShowError(title, msg)
	}
}
