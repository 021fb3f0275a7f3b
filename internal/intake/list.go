package intake

import (
	"context"
	"math"

	"github.com/nhle/po-intake/internal/export"
	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/store"
)

// DefaultPageSize is used when a query asks for a page without a limit.
const DefaultPageSize = 20

// Query selects and pages submissions. Page is 1-based; zero returns every
// match on a single page.
type Query struct {
	store.SubmissionFilter
	Page int
}

// Page is one page of results.
type Page struct {
	Items       []model.Submission `json:"items"`
	CurrentPage int                `json:"currentPage"`
	TotalPages  int                `json:"totalPages"`
	TotalItems  int                `json:"totalItems"`
	HasNext     bool               `json:"hasNext"`
	HasPrev     bool               `json:"hasPrev"`
}

// List returns the submissions matching q, newest first unless q.Oldest.
// Users without the view-all permission only see their own.
func (s *Service) List(ctx context.Context, q Query) (Page, error) {
	f := q.SubmissionFilter
	if scope := s.scope(); scope != nil {
		f.UserID = scope
	}

	total, err := s.store.Count(ctx, f)
	if err != nil {
		return Page{}, err
	}

	page := Page{TotalItems: total, CurrentPage: 1, TotalPages: 1}
	if q.Page > 0 {
		if f.Limit <= 0 {
			f.Limit = DefaultPageSize
		}
		f.Offset = (q.Page - 1) * f.Limit
		page.CurrentPage = q.Page
		page.TotalPages = int(math.Ceil(float64(total) / float64(f.Limit)))
		page.HasNext = q.Page < page.TotalPages
		page.HasPrev = q.Page > 1
	}

	items, err := s.store.Search(ctx, f)
	if err != nil {
		return Page{}, err
	}
	page.Items = items
	return page, nil
}

// Export returns the visible submissions with the given delivery status
// ("", "sent" or "pending") as a backup document, oldest first.
func (s *Service) Export(ctx context.Context, status string) (export.Document, error) {
	f := store.SubmissionFilter{Status: status, Oldest: true}
	if scope := s.scope(); scope != nil {
		f.UserID = scope
	}
	subs, err := s.store.Search(ctx, f)
	if err != nil {
		return export.Document{}, err
	}
	return export.NewDocument(subs, s.now()), nil
}
