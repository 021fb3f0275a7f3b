package sync

import (
	"context"
	"time"
)

// Run drives the engine until ctx is cancelled or Stop is called: a replay
// and a pass at startup, on every interval tick, and on every Trigger.
// Triggers arriving mid-pass are buffered and run as separate passes.
// An engine may be run again after it stops.
func (e *Engine) Run(ctx context.Context) error {
	e.mu.Lock()
	if e.running {
		e.mu.Unlock()
		return nil
	}
	e.running = true
	e.stopCh = make(chan struct{})
	stopCh := e.stopCh
	e.mu.Unlock()

	defer func() {
		e.mu.Lock()
		if e.stopCh == stopCh {
			e.running = false
		}
		e.mu.Unlock()
	}()

	ticker := time.NewTicker(e.interval)
	defer ticker.Stop()

	e.logger.Info("sync engine started", "interval", e.interval)
	e.cycle(ctx, TriggerStartup)

	for {
		select {
		case <-ctx.Done():
			e.logger.Info("sync engine stopped")
			return nil
		case <-stopCh:
			e.logger.Info("sync engine stopped")
			return nil
		case <-ticker.C:
			e.cycle(ctx, TriggerInterval)
		case t := <-e.triggerCh:
			e.cycle(ctx, t)
		}
	}
}

// Stop halts Run. A pass in progress completes first.
func (e *Engine) Stop() {
	e.mu.Lock()
	defer e.mu.Unlock()

	if !e.running {
		return
	}

	close(e.stopCh)
	e.running = false
}

// Trigger asks Run for an extra pass without blocking. It reports false
// when the trigger buffer is full.
func (e *Engine) Trigger(t Trigger) bool {
	select {
	case e.triggerCh <- t:
		return true
	default:
		return false
	}
}

// PushNow is the manual "push pending" action: replay parked operations,
// then run a pass, synchronously.
func (e *Engine) PushNow(ctx context.Context) (ReplayReport, PassReport) {
	replay := e.Replay(ctx)
	return replay, e.Pass(ctx, TriggerManual)
}

func (e *Engine) cycle(ctx context.Context, t Trigger) {
	e.Replay(ctx)
	e.Pass(ctx, t)
}
