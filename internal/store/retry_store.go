package store

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/nhle/po-intake/internal/model"
)

type retryRow struct {
	ID        string `db:"id"`
	Action    string `db:"action"`
	Data      string `db:"data"`
	Timestamp string `db:"timestamp"`
	Attempts  int    `db:"attempts"`
}

// EnqueueRetry parks an operation for later replay. A UUID and timestamp
// are assigned when absent. The stored entry is returned.
func (s *SQLiteStore) EnqueueRetry(ctx context.Context, entry model.RetryEntry) (model.RetryEntry, error) {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	if entry.Timestamp.IsZero() {
		entry.Timestamp = s.now()
	}
	if len(entry.Data) == 0 || !json.Valid(entry.Data) {
		return model.RetryEntry{}, fmt.Errorf("enqueueing %s: data is not valid JSON", entry.Action)
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO retry_queue (id, action, data, timestamp, attempts)
		VALUES (?, ?, ?, ?, ?)`,
		entry.ID, entry.Action, string(entry.Data), formatTime(entry.Timestamp), entry.Attempts,
	)
	if err != nil {
		return model.RetryEntry{}, fmt.Errorf("enqueueing %s: %w", entry.Action, err)
	}
	return entry, nil
}

// GetRetryQueue returns every parked entry, oldest first.
func (s *SQLiteStore) GetRetryQueue(ctx context.Context) ([]model.RetryEntry, error) {
	var rows []retryRow
	err := s.db.SelectContext(ctx, &rows,
		"SELECT id, action, data, timestamp, attempts FROM retry_queue ORDER BY timestamp, rowid")
	if err != nil {
		return nil, fmt.Errorf("querying retry queue: %w", err)
	}

	entries := make([]model.RetryEntry, 0, len(rows))
	for _, r := range rows {
		ts, err := parseTime(r.Timestamp)
		if err != nil {
			return nil, fmt.Errorf("parsing timestamp of retry entry %s: %w", r.ID, err)
		}
		entries = append(entries, model.RetryEntry{
			ID:        r.ID,
			Action:    r.Action,
			Data:      json.RawMessage(r.Data),
			Timestamp: ts,
			Attempts:  r.Attempts,
		})
	}
	return entries, nil
}

// UpdateRetryAttempts records how many replays an entry has had.
func (s *SQLiteStore) UpdateRetryAttempts(ctx context.Context, id string, attempts int) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE retry_queue SET attempts = ? WHERE id = ?", attempts, id)
	if err != nil {
		return fmt.Errorf("updating retry entry %s: %w", id, err)
	}
	return nil
}

// RemoveRetry drops an entry from the queue.
func (s *SQLiteStore) RemoveRetry(ctx context.Context, id string) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM retry_queue WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("removing retry entry %s: %w", id, err)
	}
	return nil
}
