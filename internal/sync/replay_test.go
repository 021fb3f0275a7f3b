package sync_test

import (
	"context"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/remote"
	posync "github.com/nhle/po-intake/internal/sync"
)

func (f fixture) resilient() *remote.Resilient {
	return remote.NewResilient(f.client, f.store)
}

func (f fixture) park(t *testing.T, action, data string) model.RetryEntry {
	t.Helper()
	entry, err := f.store.EnqueueRetry(context.Background(), model.RetryEntry{
		Action: action,
		Data:   []byte(data),
	})
	require.NoError(t, err)
	return entry
}

func TestReplayDeliversAndMarksDirectSync(t *testing.T) {
	f := newFixture(t)
	ids := f.save(t, 1)
	f.park(t, model.ActionDirectSync, fmt.Sprintf(`{"id":%d}`, ids[0]))
	f.park(t, model.ActionDeletePO, `{"id":77}`)

	e := posync.New(f.store, f.client, posync.WithReplayer(f.resilient(), 3))
	ctx := context.Background()

	report := e.Replay(ctx)
	assert.Equal(t, 2, report.Delivered)

	queue, err := f.store.GetRetryQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	sub, err := f.store.GetByID(ctx, ids[0])
	require.NoError(t, err)
	assert.True(t, sub.Sent)

	reqs := f.webhook.Requests()
	require.Len(t, reqs, 2)
	assert.Nil(t, reqs[0].JSON(t)["action"], "direct sync is posted unwrapped")
	assert.Equal(t, model.ActionDeletePO, reqs[1].JSON(t)["action"])
}

func TestReplayGivesUpAfterMaxAttempts(t *testing.T) {
	f := newFixture(t)
	f.webhook.SetDefault(http.StatusInternalServerError)
	entry := f.park(t, model.ActionUpdatePO, `{"id":1}`)

	e := posync.New(f.store, f.client, posync.WithReplayer(f.resilient(), 2))
	ctx := context.Background()

	report := e.Replay(ctx)
	assert.Equal(t, 1, report.Kept)

	queue, err := f.store.GetRetryQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, entry.ID, queue[0].ID)
	assert.Equal(t, 1, queue[0].Attempts)

	report = e.Replay(ctx)
	assert.Equal(t, 1, report.GaveUp)

	queue, err = f.store.GetRetryQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)
	assert.Equal(t, 2, f.webhook.Count())
}

func TestReplaySkippedOffline(t *testing.T) {
	f := newFixture(t)
	f.park(t, model.ActionDeletePO, `{"id":1}`)
	e := posync.New(f.store, f.client,
		posync.WithReplayer(f.resilient(), 3),
		posync.WithOnline(func() bool { return false }),
	)

	report := e.Replay(context.Background())
	assert.Equal(t, posync.SkipOffline, report.Skipped)
	assert.Zero(t, f.webhook.Count())
}

func TestPushNowReplaysThenPasses(t *testing.T) {
	f := newFixture(t)
	f.save(t, 2)
	f.park(t, model.ActionDeletePO, `{"id":9}`)
	e := posync.New(f.store, f.client, posync.WithReplayer(f.resilient(), 3))

	replay, pass := e.PushNow(context.Background())
	assert.Equal(t, 1, replay.Delivered)
	assert.Equal(t, 2, pass.Sent)
	assert.Equal(t, 3, f.webhook.Count())
}
