package remote

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/nhle/po-intake/internal/model"
)

// Defaults for Resilient.
const (
	DefaultRetryAttempts = 3
	DefaultRetryDelay    = time.Second
)

// MessageDisabled is the Result message returned while sync is turned off.
const MessageDisabled = "sync disabled"

// Queue parks deliveries that exhausted their retries.
type Queue interface {
	EnqueueRetry(ctx context.Context, entry model.RetryEntry) (model.RetryEntry, error)
}

// Resilient wraps Client with bounded retry and linear backoff. An
// operation that still fails is parked in the queue for later replay.
type Resilient struct {
	client   *Client
	queue    Queue
	auth     model.Auth
	attempts int
	delay    time.Duration
	enabled  atomic.Bool
	now      func() time.Time
	sleep    func(ctx context.Context, d time.Duration) error
	logger   *slog.Logger
}

// ResilientOption configures a Resilient client.
type ResilientOption func(*Resilient)

// WithRetry sets the number of tries and the base backoff delay.
func WithRetry(attempts int, delay time.Duration) ResilientOption {
	return func(r *Resilient) {
		if attempts > 0 {
			r.attempts = attempts
		}
		if delay >= 0 {
			r.delay = delay
		}
	}
}

// WithAuth sets the collaborator whose user is stamped on envelopes.
func WithAuth(a model.Auth) ResilientOption {
	return func(r *Resilient) { r.auth = a }
}

// WithResilientLogger sets the logger.
func WithResilientLogger(l *slog.Logger) ResilientOption {
	return func(r *Resilient) { r.logger = l }
}

// WithSleep replaces the backoff wait. Tests use it to skip real delays.
func WithSleep(sleep func(ctx context.Context, d time.Duration) error) ResilientOption {
	return func(r *Resilient) { r.sleep = sleep }
}

// NewResilient wraps client. queue may be nil, in which case exhausted
// operations are only logged.
func NewResilient(client *Client, queue Queue, opts ...ResilientOption) *Resilient {
	r := &Resilient{
		client:   client,
		queue:    queue,
		attempts: DefaultRetryAttempts,
		delay:    DefaultRetryDelay,
		now:      client.now,
		sleep:    sleepCtx,
		logger:   slog.Default(),
	}
	r.enabled.Store(true)
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// SetEnabled turns delivery on or off. While off every call succeeds
// without touching the network.
func (r *Resilient) SetEnabled(on bool) {
	r.enabled.Store(on)
}

// Enabled reports whether delivery is on.
func (r *Resilient) Enabled() bool {
	return r.enabled.Load()
}

// SyncDirect posts data unwrapped.
func (r *Resilient) SyncDirect(ctx context.Context, data any) Result {
	return r.deliver(ctx, model.ActionDirectSync, data)
}

// SyncSubmission shapes sub and posts it unwrapped.
func (r *Resilient) SyncSubmission(ctx context.Context, sub model.Submission) Result {
	return r.SyncDirect(ctx, Shape(sub, r.now()))
}

// SyncAction posts data inside an action envelope.
func (r *Resilient) SyncAction(ctx context.Context, action string, data any) Result {
	return r.deliver(ctx, action, data)
}

// Replay makes one delivery of a parked entry, without retrying or
// re-queueing.
func (r *Resilient) Replay(ctx context.Context, entry model.RetryEntry) Result {
	if !r.Enabled() {
		return disabled()
	}
	return r.client.Post(ctx, r.payload(entry.Action, entry.Data))
}

func (r *Resilient) payload(action string, data any) any {
	if action == model.ActionDirectSync {
		return data
	}
	return NewEnvelope(action, data, r.auth, r.now())
}

func (r *Resilient) deliver(ctx context.Context, action string, data any) Result {
	if !r.Enabled() {
		return disabled()
	}

	var res Result
	for attempt := 1; attempt <= r.attempts; attempt++ {
		res = r.client.Post(ctx, r.payload(action, data))
		if res.Success {
			return res
		}

		r.logger.Warn("webhook delivery failed",
			"action", action,
			"attempt", attempt,
			"of", r.attempts,
			"error", res.Error,
		)

		// Retrying cannot help until an endpoint is configured.
		if errors.Is(res.Err, ErrNoEndpoint) || attempt == r.attempts {
			break
		}
		if err := r.sleep(ctx, r.delay*time.Duration(attempt)); err != nil {
			break
		}
	}

	res.Queued = r.park(ctx, action, data)
	return res
}

// park enqueues a failed operation. It runs even if ctx was cancelled so
// the operation is not lost.
func (r *Resilient) park(ctx context.Context, action string, data any) bool {
	if r.queue == nil {
		r.logger.Error("delivery exhausted with no retry queue", "action", action)
		return false
	}

	raw, err := json.Marshal(data)
	if err != nil {
		r.logger.Error("encoding parked delivery", "action", action, "error", err)
		return false
	}

	entry, err := r.queue.EnqueueRetry(context.WithoutCancel(ctx), model.RetryEntry{
		Action: action,
		Data:   raw,
	})
	if err != nil {
		r.logger.Error("parking delivery", "action", action, "error", err)
		return false
	}

	r.logger.Info("delivery parked for replay", "action", action, "entry_id", entry.ID)
	return true
}

func disabled() Result {
	return Result{Success: true, Message: MessageDisabled}
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return fmt.Errorf("waiting to retry: %w", ctx.Err())
	case <-t.C:
		return nil
	}
}
