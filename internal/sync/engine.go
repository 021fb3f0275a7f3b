// Package sync delivers locally pending submissions to the webhook.
//
// Passes are re-entrant and take no lock: a timer pass, an online pass and
// a manual push may overlap and post the same submission twice. Delivery
// is at-least-once; MarkSent is idempotent, so the local state converges.
package sync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	gosync "sync"
	"time"

	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/remote"
	"github.com/nhle/po-intake/internal/store"
)

// Trigger names what started a pass.
type Trigger string

const (
	TriggerStartup  Trigger = "startup"
	TriggerInterval Trigger = "interval"
	TriggerOnline   Trigger = "online"
	TriggerManual   Trigger = "manual"
	TriggerResend   Trigger = "resend"
)

// Reasons a pass did nothing.
const (
	SkipNoStore  = "store unavailable"
	SkipOffline  = "offline"
	SkipDisabled = "sync disabled"
)

// DefaultInterval is the periodic pass interval.
const DefaultInterval = 5 * time.Minute

// Sender makes one delivery of a submission.
type Sender interface {
	Send(ctx context.Context, sub model.Submission) remote.Result
}

// Replayer makes one delivery of a parked retry entry.
type Replayer interface {
	Replay(ctx context.Context, entry model.RetryEntry) remote.Result
}

// PassReport summarizes one pass.
type PassReport struct {
	Trigger   Trigger   `json:"trigger"`
	Attempted int       `json:"attempted"`
	Sent      int       `json:"sent"`
	Failed    int       `json:"failed"`
	FailedIDs []int64   `json:"failedIds,omitempty"`
	Skipped   string    `json:"skipped,omitempty"`
	Err       error     `json:"-"`
	Started   time.Time `json:"started"`
	Finished  time.Time `json:"finished"`
}

// Observer is told after every pass that state may have changed.
type Observer func(PassReport)

// SyncState is the coarse state of the engine.
type SyncState int

const (
	SyncIdle SyncState = iota
	SyncRunning
	SyncError
)

func (s SyncState) String() string {
	switch s {
	case SyncRunning:
		return "running"
	case SyncError:
		return "error"
	default:
		return "idle"
	}
}

// Status is a snapshot of the engine.
type Status struct {
	State    SyncState
	Active   int
	Passes   int
	LastPass PassReport
	LastSync time.Time
}

// Engine reconciles the local store with the webhook.
type Engine struct {
	store       store.Store
	sender      Sender
	replayer    Replayer
	maxAttempts int
	online      func() bool
	enabled     func() bool
	interval    time.Duration
	logger      *slog.Logger

	mu        gosync.Mutex
	observers []Observer
	status    Status
	triggerCh chan Trigger
	stopCh    chan struct{}
	running   bool
}

// Option configures an Engine.
type Option func(*Engine)

// WithOnline sets the connectivity check consulted before each pass.
func WithOnline(online func() bool) Option {
	return func(e *Engine) { e.online = online }
}

// WithEnabled sets the switch consulted before each pass.
func WithEnabled(enabled func() bool) Option {
	return func(e *Engine) { e.enabled = enabled }
}

// WithReplayer enables retry queue replay. Entries are dropped once they
// have been tried maxAttempts times.
func WithReplayer(r Replayer, maxAttempts int) Option {
	return func(e *Engine) {
		e.replayer = r
		if maxAttempts > 0 {
			e.maxAttempts = maxAttempts
		}
	}
}

// WithInterval sets the periodic pass interval.
func WithInterval(d time.Duration) Option {
	return func(e *Engine) {
		if d > 0 {
			e.interval = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// New creates an Engine. A nil store makes every pass a no-op.
func New(s store.Store, sender Sender, opts ...Option) *Engine {
	e := &Engine{
		store:       s,
		sender:      sender,
		maxAttempts: remote.DefaultRetryAttempts,
		online:      func() bool { return true },
		enabled:     func() bool { return true },
		interval:    DefaultInterval,
		logger:      slog.Default(),
		triggerCh:   make(chan Trigger, 16),
		stopCh:      make(chan struct{}),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Subscribe registers an observer.
func (e *Engine) Subscribe(o Observer) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.observers = append(e.observers, o)
}

// Status returns a snapshot of the engine state.
func (e *Engine) Status() Status {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.status
}

// Pass delivers every pending submission once, in order. A failure is
// logged and the pass moves on; failed submissions stay pending for the
// next pass. Once started a pass runs to the end of its batch even if ctx
// is cancelled.
func (e *Engine) Pass(ctx context.Context, trigger Trigger) PassReport {
	report := PassReport{Trigger: trigger, Started: time.Now()}

	switch {
	case e.store == nil:
		report.Skipped = SkipNoStore
	case !e.enabled():
		report.Skipped = SkipDisabled
	case !e.online():
		report.Skipped = SkipOffline
	}
	if report.Skipped != "" {
		report.Finished = time.Now()
		e.logger.Debug("sync pass skipped", "trigger", trigger, "reason", report.Skipped)
		return report
	}

	e.begin()
	ctx = context.WithoutCancel(ctx)

	pending, err := e.store.GetPending(ctx)
	if err != nil {
		report.Err = fmt.Errorf("loading pending submissions: %w", err)
		e.logger.Error("sync pass aborted", "trigger", trigger, "error", report.Err)
		e.finish(report)
		return report
	}

	for _, sub := range pending {
		report.Attempted++
		if err := e.deliver(ctx, sub); err != nil {
			report.Failed++
			report.FailedIDs = append(report.FailedIDs, sub.ID)
			continue
		}
		report.Sent++
	}

	report.Finished = time.Now()
	e.logger.Info("sync pass complete",
		"trigger", trigger,
		"attempted", report.Attempted,
		"sent", report.Sent,
		"failed", report.Failed,
	)
	e.finish(report)
	return report
}

// Resend delivers one submission now, whatever its delivery state, and
// marks it sent on success. The returned error covers local failures
// only; a delivery failure is reported in the Result.
func (e *Engine) Resend(ctx context.Context, id int64) (remote.Result, error) {
	if e.store == nil {
		return remote.Result{}, errors.New(SkipNoStore)
	}

	sub, err := e.store.GetByID(ctx, id)
	if err != nil {
		return remote.Result{}, err
	}

	e.begin()
	report := PassReport{Trigger: TriggerResend, Started: time.Now(), Attempted: 1}

	res := e.sender.Send(ctx, *sub)
	if res.Success {
		if err := e.store.MarkSent(ctx, id); err != nil {
			report.Failed = 1
			report.Err = err
			report.Finished = time.Now()
			e.finish(report)
			return res, err
		}
		report.Sent = 1
	} else {
		report.Failed = 1
		report.FailedIDs = []int64{id}
		e.logFailure(*sub, res)
	}

	report.Finished = time.Now()
	e.finish(report)
	return res, nil
}

// BulkResult reports a multi-record admin action.
type BulkResult struct {
	Total     int     `json:"total"`
	Succeeded int     `json:"succeeded"`
	Failed    []int64 `json:"failed,omitempty"`
}

func (b BulkResult) String() string {
	return fmt.Sprintf("%d/%d", b.Succeeded, b.Total)
}

// ResendMany resends each id in turn, continuing past failures.
func (e *Engine) ResendMany(ctx context.Context, ids []int64) BulkResult {
	out := BulkResult{Total: len(ids)}
	for _, id := range ids {
		res, err := e.Resend(ctx, id)
		if err != nil || !res.Success {
			out.Failed = append(out.Failed, id)
			continue
		}
		out.Succeeded++
	}
	return out
}

func (e *Engine) deliver(ctx context.Context, sub model.Submission) error {
	res := e.sender.Send(ctx, sub)
	if !res.Success {
		e.logFailure(sub, res)
		return res.Err
	}
	if err := e.store.MarkSent(ctx, sub.ID); err != nil {
		e.logger.Error("marking submission sent",
			"submission_id", sub.ID,
			"error", err,
		)
		return err
	}
	return nil
}

func (e *Engine) logFailure(sub model.Submission, res remote.Result) {
	attrs := []any{"submission_id", sub.ID, "error", res.Error}
	var statusErr *remote.StatusError
	if errors.As(res.Err, &statusErr) {
		// A 4xx is still retried on the next pass; it is only reported.
		attrs = append(attrs, "status", statusErr.Code, "permanent", statusErr.Permanent())
	}
	e.logger.Warn("submission delivery failed", attrs...)
}

func (e *Engine) begin() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.status.Active++
	e.status.State = SyncRunning
}

// finish records the report and notifies observers.
func (e *Engine) finish(report PassReport) {
	e.mu.Lock()
	e.status.Active--
	e.status.Passes++
	e.status.LastPass = report
	switch {
	case e.status.Active > 0:
		e.status.State = SyncRunning
	case report.Err != nil || report.Failed > 0:
		e.status.State = SyncError
	default:
		e.status.State = SyncIdle
	}
	if report.Err == nil && report.Failed == 0 {
		e.status.LastSync = report.Finished
	}
	observers := make([]Observer, len(e.observers))
	copy(observers, e.observers)
	e.mu.Unlock()

	for _, o := range observers {
		o(report)
	}
}
