package intake

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/nhle/po-intake/internal/store"
)

// SaveDraft stores an in-progress form as an opaque JSON blob.
func (s *Service) SaveDraft(ctx context.Context, draft json.RawMessage) error {
	if !json.Valid(draft) {
		return fmt.Errorf("saving draft: not valid JSON")
	}
	return s.store.SetSetting(ctx, store.SettingDraft, string(draft))
}

// LoadDraft returns the saved draft, or nil when there is none.
func (s *Service) LoadDraft(ctx context.Context) (json.RawMessage, error) {
	v, err := s.store.GetSetting(ctx, store.SettingDraft)
	if errors.Is(err, store.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return json.RawMessage(v), nil
}

// ClearDraft drops the saved draft.
func (s *Service) ClearDraft(ctx context.Context) error {
	return s.store.DeleteSetting(ctx, store.SettingDraft)
}
