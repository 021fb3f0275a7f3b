package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/schedule"
)

// submissionRow is the on-disk shape of a submission.
type submissionRow struct {
	ID         int64          `db:"id"`
	Meta       string         `db:"meta"`
	Schedule   string         `db:"schedule"`
	Scope      string         `db:"scope"`
	CreatedAt  string         `db:"created_at"`
	Timestamp  int64          `db:"timestamp"`
	Sent       int            `db:"sent"`
	SentAt     sql.NullString `db:"sent_at"`
	UserID     string         `db:"user_id"`
	RevisionOf sql.NullInt64  `db:"revision_of"`
}

const submissionColumns = `id, meta, schedule, scope, created_at, timestamp,
	sent, sent_at, user_id, revision_of`

// Save inserts a new pending submission. CreatedAt and Timestamp are always
// stamped from the store clock; use Restore to keep caller timestamps.
// Derived schedule fields are recomputed before writing.
func (s *SQLiteStore) Save(ctx context.Context, sub model.Submission) (int64, error) {
	now := s.now().UTC().Truncate(time.Millisecond)
	sub.CreatedAt = now
	sub.Timestamp = now.UnixMilli()
	sub.Sent = false
	sub.SentAt = nil

	return s.insert(ctx, sub)
}

// Restore inserts a submission keeping its id, timestamps, and delivery
// state.
func (s *SQLiteStore) Restore(ctx context.Context, sub model.Submission) error {
	if sub.ID <= 0 {
		return fmt.Errorf("restoring submission: id is required")
	}
	if sub.CreatedAt.IsZero() {
		sub.CreatedAt = s.now()
	}
	if sub.Timestamp == 0 {
		sub.Timestamp = sub.CreatedAt.UnixMilli()
	}
	if sub.Sent && sub.SentAt == nil {
		t := s.now()
		sub.SentAt = &t
	}
	if !sub.Sent {
		sub.SentAt = nil
	}

	_, err := s.insert(ctx, sub)
	return err
}

func (s *SQLiteStore) insert(ctx context.Context, sub model.Submission) (int64, error) {
	row, err := toRow(sub)
	if err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback()

	var idArg any
	if row.ID > 0 {
		var exists int
		err := tx.GetContext(ctx, &exists,
			"SELECT COUNT(*) FROM submissions WHERE id = ?", row.ID)
		if err != nil {
			return 0, fmt.Errorf("checking submission %d: %w", row.ID, err)
		}
		if exists > 0 {
			return 0, fmt.Errorf("saving submission %d: %w", row.ID, ErrDuplicateID)
		}
		idArg = row.ID
	}

	res, err := tx.ExecContext(ctx, `
		INSERT INTO submissions (`+submissionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		idArg, row.Meta, row.Schedule, row.Scope, row.CreatedAt, row.Timestamp,
		row.Sent, row.SentAt, row.UserID, row.RevisionOf,
	)
	if err != nil {
		return 0, fmt.Errorf("saving submission: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("reading submission id: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("committing submission: %w", err)
	}
	return id, nil
}

// GetAll returns every submission in insertion order.
func (s *SQLiteStore) GetAll(ctx context.Context) ([]model.Submission, error) {
	return s.query(ctx,
		"SELECT "+submissionColumns+" FROM submissions ORDER BY id")
}

// GetPending returns undelivered submissions, oldest first. The partial
// index on sent = 0 keeps this proportional to the pending count.
func (s *SQLiteStore) GetPending(ctx context.Context) ([]model.Submission, error) {
	return s.query(ctx,
		"SELECT "+submissionColumns+" FROM submissions WHERE sent = 0 ORDER BY timestamp, id")
}

// GetByID retrieves a single submission, or ErrNotFound.
func (s *SQLiteStore) GetByID(ctx context.Context, id int64) (*model.Submission, error) {
	var row submissionRow
	err := s.db.GetContext(ctx, &row,
		"SELECT "+submissionColumns+" FROM submissions WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("getting submission %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("getting submission %d: %w", id, err)
	}

	sub, err := fromRow(row)
	if err != nil {
		return nil, err
	}
	return &sub, nil
}

// MarkSent sets sent and sentAt. A record already sent keeps its original
// sentAt; a missing record is not an error.
func (s *SQLiteStore) MarkSent(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx,
		"UPDATE submissions SET sent = 1, sent_at = ? WHERE id = ? AND sent = 0",
		formatTime(s.now()), id,
	)
	if err != nil {
		return fmt.Errorf("marking submission %d sent: %w", id, err)
	}
	return nil
}

// Delete removes a submission. Deleting a missing id is not an error.
func (s *SQLiteStore) Delete(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, "DELETE FROM submissions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting submission %d: %w", id, err)
	}
	return nil
}

// Search retrieves submissions matching the filter, newest first unless
// filter.Oldest is set.
func (s *SQLiteStore) Search(ctx context.Context, filter SubmissionFilter) ([]model.Submission, error) {
	where, args := buildWhere(filter)

	query := "SELECT " + submissionColumns + " FROM submissions" + where
	if filter.Oldest {
		query += " ORDER BY timestamp ASC, id ASC"
	} else {
		query += " ORDER BY timestamp DESC, id DESC"
	}

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d", filter.Limit)
		if filter.Offset > 0 {
			query += fmt.Sprintf(" OFFSET %d", filter.Offset)
		}
	}

	return s.query(ctx, query, args...)
}

// Count returns how many submissions match the filter, ignoring paging.
func (s *SQLiteStore) Count(ctx context.Context, filter SubmissionFilter) (int, error) {
	where, args := buildWhere(filter)

	var n int
	if err := s.db.GetContext(ctx, &n, "SELECT COUNT(*) FROM submissions"+where, args...); err != nil {
		return 0, fmt.Errorf("counting submissions: %w", err)
	}
	return n, nil
}

// Stats summarizes all submissions, or one user's when userID is set.
func (s *SQLiteStore) Stats(ctx context.Context, userID *string) (Stats, error) {
	query := `
		SELECT
			COUNT(*) AS total,
			COALESCE(SUM(sent), 0) AS sent,
			COALESCE(SUM(json_extract(meta, '$.contractAmount')), 0.0) AS total_value
		FROM submissions`
	var args []any
	if userID != nil {
		query += " WHERE user_id = ?"
		args = append(args, *userID)
	}

	var st Stats
	if err := s.db.GetContext(ctx, &st, query, args...); err != nil {
		return Stats{}, fmt.Errorf("computing stats: %w", err)
	}
	st.Pending = st.Total - st.Sent
	if st.Total > 0 {
		st.AvgValue = st.TotalValue / float64(st.Total)
	}
	return st, nil
}

func (s *SQLiteStore) query(ctx context.Context, query string, args ...any) ([]model.Submission, error) {
	var rows []submissionRow
	if err := s.db.SelectContext(ctx, &rows, query, args...); err != nil {
		return nil, fmt.Errorf("querying submissions: %w", err)
	}

	subs := make([]model.Submission, 0, len(rows))
	for _, row := range rows {
		sub, err := fromRow(row)
		if err != nil {
			return nil, err
		}
		subs = append(subs, sub)
	}
	return subs, nil
}

// buildWhere turns a filter into a WHERE clause and its arguments.
func buildWhere(f SubmissionFilter) (string, []any) {
	var conditions []string
	var args []any

	switch f.Status {
	case StatusSent:
		conditions = append(conditions, "sent = 1")
	case StatusPending:
		conditions = append(conditions, "sent = 0")
	}

	if f.Query != nil && strings.TrimSpace(*f.Query) != "" {
		conditions = append(conditions, `(
			json_extract(meta, '$.projectName') LIKE ? ESCAPE '\' OR
			json_extract(meta, '$.companyName') LIKE ? ESCAPE '\' OR
			json_extract(meta, '$.generalContractor') LIKE ? ESCAPE '\' OR
			json_extract(meta, '$.contactName') LIKE ? ESCAPE '\' OR
			CAST(id AS TEXT) LIKE ? ESCAPE '\')`)
		q := containsPattern(strings.TrimSpace(*f.Query))
		args = append(args, q, q, q, q, q)
	}
	if f.Contractor != nil && *f.Contractor != "" {
		conditions = append(conditions, `json_extract(meta, '$.generalContractor') LIKE ? ESCAPE '\'`)
		args = append(args, containsPattern(*f.Contractor))
	}
	if f.UserID != nil {
		conditions = append(conditions, "user_id = ?")
		args = append(args, *f.UserID)
	}
	if f.DateFrom != nil {
		conditions = append(conditions, "timestamp >= ?")
		args = append(args, f.DateFrom.UnixMilli())
	}
	if f.DateTo != nil {
		y, m, d := f.DateTo.Date()
		endOfDay := time.Date(y, m, d, 23, 59, 59, int(999*time.Millisecond), f.DateTo.Location())
		conditions = append(conditions, "timestamp <= ?")
		args = append(args, endOfDay.UnixMilli())
	}
	if f.MinAmount != nil {
		conditions = append(conditions, "json_extract(meta, '$.contractAmount') >= ?")
		args = append(args, *f.MinAmount)
	}
	if f.MaxAmount != nil {
		conditions = append(conditions, "json_extract(meta, '$.contractAmount') <= ?")
		args = append(args, *f.MaxAmount)
	}

	if len(conditions) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conditions, " AND "), args
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// containsPattern matches text literally anywhere in a LIKE ... ESCAPE '\'
// comparison.
func containsPattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

func toRow(sub model.Submission) (submissionRow, error) {
	lines := schedule.Normalize(sub.Schedule)
	scope := sub.Scope
	if scope == nil {
		scope = []model.ScopeLine{}
	}

	meta, err := json.Marshal(sub.Meta)
	if err != nil {
		return submissionRow{}, fmt.Errorf("marshaling meta: %w", err)
	}
	sched, err := json.Marshal(lines)
	if err != nil {
		return submissionRow{}, fmt.Errorf("marshaling schedule: %w", err)
	}
	sc, err := json.Marshal(scope)
	if err != nil {
		return submissionRow{}, fmt.Errorf("marshaling scope: %w", err)
	}

	row := submissionRow{
		ID:        sub.ID,
		Meta:      string(meta),
		Schedule:  string(sched),
		Scope:     string(sc),
		CreatedAt: formatTime(sub.CreatedAt),
		Timestamp: sub.Timestamp,
		Sent:      boolToInt(sub.Sent),
		UserID:    sub.UserID,
	}
	if sub.SentAt != nil {
		row.SentAt = sql.NullString{String: formatTime(*sub.SentAt), Valid: true}
	}
	if sub.RevisionOf > 0 {
		row.RevisionOf = sql.NullInt64{Int64: sub.RevisionOf, Valid: true}
	}
	return row, nil
}

func fromRow(row submissionRow) (model.Submission, error) {
	sub := model.Submission{
		ID:         row.ID,
		Timestamp:  row.Timestamp,
		Sent:       row.Sent != 0,
		UserID:     row.UserID,
		RevisionOf: row.RevisionOf.Int64,
	}

	if err := json.Unmarshal([]byte(row.Meta), &sub.Meta); err != nil {
		return model.Submission{}, fmt.Errorf("unmarshaling meta of submission %d: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Schedule), &sub.Schedule); err != nil {
		return model.Submission{}, fmt.Errorf("unmarshaling schedule of submission %d: %w", row.ID, err)
	}
	if err := json.Unmarshal([]byte(row.Scope), &sub.Scope); err != nil {
		return model.Submission{}, fmt.Errorf("unmarshaling scope of submission %d: %w", row.ID, err)
	}
	// Never trust what was cached on disk.
	sub.Schedule = schedule.Normalize(sub.Schedule)

	created, err := parseTime(row.CreatedAt)
	if err != nil {
		return model.Submission{}, fmt.Errorf("parsing created_at of submission %d: %w", row.ID, err)
	}
	sub.CreatedAt = created

	if row.SentAt.Valid {
		sentAt, err := parseTime(row.SentAt.String)
		if err != nil {
			return model.Submission{}, fmt.Errorf("parsing sent_at of submission %d: %w", row.ID, err)
		}
		sub.SentAt = &sentAt
	}

	return sub, nil
}
