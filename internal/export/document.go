// Package export writes submissions out as a JSON backup document or as
// a schedule-of-values workbook, and reads the JSON document back.
package export

import (
	"encoding/json"
	"fmt"
	"io"
	"time"

	"github.com/nhle/po-intake/internal/model"
)

// Version is the document format version.
const Version = "1.0"

// Document is the JSON backup of a set of submissions.
type Document struct {
	Timestamp string             `json:"timestamp"`
	Version   string             `json:"version"`
	POs       []model.Submission `json:"pos"`
}

// NewDocument wraps subs in a document stamped with now.
func NewDocument(subs []model.Submission, now time.Time) Document {
	if subs == nil {
		subs = []model.Submission{}
	}
	return Document{
		Timestamp: model.FormatTime(now),
		Version:   Version,
		POs:       subs,
	}
}

// Filename is the suggested file name for an export of kind taken on now.
func Filename(kind string, now time.Time) string {
	return fmt.Sprintf("apex_po_export_%s_%s.json", kind, now.UTC().Format("2006-01-02"))
}

// WriteJSON writes doc as indented JSON.
func WriteJSON(w io.Writer, doc Document) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encoding export: %w", err)
	}
	return nil
}

// ParseDocument reads submissions from an export document or from a bare
// JSON array of submissions. Records are decoded leniently.
func ParseDocument(data []byte) ([]model.Submission, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing import: %w", err)
	}

	var items []any
	switch v := raw.(type) {
	case []any:
		items = v
	case map[string]any:
		pos, ok := v["pos"].([]any)
		if !ok {
			return nil, fmt.Errorf("parsing import: missing \"pos\" array")
		}
		items = pos
	default:
		return nil, fmt.Errorf("parsing import: expected an object or array")
	}

	subs := make([]model.Submission, 0, len(items))
	for i, item := range items {
		m, ok := item.(map[string]any)
		if !ok {
			return nil, fmt.Errorf("parsing import: record %d is not an object", i+1)
		}
		subs = append(subs, model.SubmissionFromMap(m))
	}
	return subs, nil
}
