package sync

import (
	"context"
	"encoding/json"

	"github.com/spf13/cast"

	"github.com/nhle/po-intake/internal/model"
)

// ReplayReport summarizes one walk over the retry queue.
type ReplayReport struct {
	Delivered int    `json:"delivered"`
	GaveUp    int    `json:"gaveUp"`
	Kept      int    `json:"kept"`
	Skipped   string `json:"skipped,omitempty"`
}

// Replay tries every parked operation once. Delivered entries are removed;
// an entry that has now been tried maxAttempts times is dropped and logged.
// A delivered DIRECT_SYNC entry carrying a submission id marks that
// submission sent.
func (e *Engine) Replay(ctx context.Context) ReplayReport {
	var report ReplayReport
	switch {
	case e.replayer == nil || e.store == nil:
		report.Skipped = SkipNoStore
	case !e.enabled():
		report.Skipped = SkipDisabled
	case !e.online():
		report.Skipped = SkipOffline
	}
	if report.Skipped != "" {
		return report
	}

	ctx = context.WithoutCancel(ctx)
	entries, err := e.store.GetRetryQueue(ctx)
	if err != nil {
		e.logger.Error("loading retry queue", "error", err)
		return report
	}
	if len(entries) == 0 {
		return report
	}

	e.logger.Info("replaying parked operations", "count", len(entries))

	for _, entry := range entries {
		entry.Attempts++
		res := e.replayer.Replay(ctx, entry)

		switch {
		case res.Success:
			report.Delivered++
			if err := e.store.RemoveRetry(ctx, entry.ID); err != nil {
				e.logger.Error("removing replayed entry", "entry_id", entry.ID, "error", err)
			}
			e.markReplayed(ctx, entry)

		case entry.Attempts >= e.maxAttempts:
			report.GaveUp++
			e.logger.Error("giving up on parked operation",
				"entry_id", entry.ID,
				"action", entry.Action,
				"attempts", entry.Attempts,
				"error", res.Error,
			)
			if err := e.store.RemoveRetry(ctx, entry.ID); err != nil {
				e.logger.Error("removing abandoned entry", "entry_id", entry.ID, "error", err)
			}

		default:
			report.Kept++
			if err := e.store.UpdateRetryAttempts(ctx, entry.ID, entry.Attempts); err != nil {
				e.logger.Error("updating retry attempts", "entry_id", entry.ID, "error", err)
			}
		}
	}

	return report
}

func (e *Engine) markReplayed(ctx context.Context, entry model.RetryEntry) {
	if entry.Action != model.ActionDirectSync {
		return
	}
	id := entryID(entry.Data)
	if id <= 0 {
		return
	}
	if err := e.store.MarkSent(ctx, id); err != nil {
		e.logger.Error("marking replayed submission sent", "submission_id", id, "error", err)
	}
}

func entryID(data json.RawMessage) int64 {
	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		return 0
	}
	return cast.ToInt64(m["id"])
}
