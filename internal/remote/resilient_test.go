package remote_test

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/remote"
	"github.com/nhle/po-intake/internal/store"
	"github.com/nhle/po-intake/internal/testutil"
)

type sleepRecorder struct {
	waits []time.Duration
}

func (s *sleepRecorder) sleep(_ context.Context, d time.Duration) error {
	s.waits = append(s.waits, d)
	return nil
}

func newResilient(t *testing.T, wh *testutil.Webhook, opts ...remote.ResilientOption) (*remote.Resilient, *store.SQLiteStore, *sleepRecorder) {
	t.Helper()
	s := testutil.NewTestStore(t)
	rec := &sleepRecorder{}
	opts = append([]remote.ResilientOption{
		remote.WithRetry(3, 100*time.Millisecond),
		remote.WithSleep(rec.sleep),
	}, opts...)
	return remote.NewResilient(newClient(t, wh), s, opts...), s, rec
}

func TestResilientRetriesWithLinearBackoff(t *testing.T) {
	wh := testutil.NewWebhook(t, http.StatusInternalServerError, http.StatusServiceUnavailable)
	r, s, rec := newResilient(t, wh)

	res := r.SyncDirect(context.Background(), map[string]any{"id": 1})
	require.True(t, res.Success, res.Error)
	assert.False(t, res.Queued)
	assert.Equal(t, 3, wh.Count())
	assert.Equal(t, []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}, rec.waits)

	queue, err := s.GetRetryQueue(context.Background())
	require.NoError(t, err)
	assert.Empty(t, queue)
}

func TestResilientQueuesAfterExhaustion(t *testing.T) {
	wh := testutil.NewWebhook(t)
	wh.SetDefault(http.StatusBadRequest)
	r, s, rec := newResilient(t, wh)

	res := r.SyncDirect(context.Background(), map[string]any{"id": 5})
	assert.False(t, res.Success)
	assert.True(t, res.Queued)
	assert.True(t, remote.IsStatusError(res.Err))
	assert.Equal(t, 3, wh.Count())
	assert.Len(t, rec.waits, 2)

	queue, err := s.GetRetryQueue(context.Background())
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, model.ActionDirectSync, queue[0].Action)
	assert.JSONEq(t, `{"id":5}`, string(queue[0].Data))
	assert.Zero(t, queue[0].Attempts)
}

func TestResilientWithoutEndpointQueuesImmediately(t *testing.T) {
	s := testutil.NewTestStore(t)
	rec := &sleepRecorder{}
	r := remote.NewResilient(remote.NewClient(model.DefaultRemote()), s, remote.WithSleep(rec.sleep))

	res := r.SyncAction(context.Background(), model.ActionDeletePO, map[string]any{"id": 3})
	assert.False(t, res.Success)
	assert.True(t, res.Queued)
	assert.ErrorIs(t, res.Err, remote.ErrNoEndpoint)
	assert.Empty(t, rec.waits)
}

func TestResilientDisabled(t *testing.T) {
	wh := testutil.NewWebhook(t)
	r, _, _ := newResilient(t, wh)

	r.SetEnabled(false)
	assert.False(t, r.Enabled())

	res := r.SyncDirect(context.Background(), map[string]any{})
	assert.True(t, res.Success)
	assert.Equal(t, "sync disabled", res.Message)

	res = r.Replay(context.Background(), model.RetryEntry{Action: model.ActionCreatePO})
	assert.True(t, res.Success)
	assert.Zero(t, wh.Count())
}

func TestSyncActionWrapsInEnvelope(t *testing.T) {
	wh := testutil.NewWebhook(t)
	user := &model.User{ID: "u-1", Name: "Dana", Role: "admin"}
	r, _, _ := newResilient(t, wh, remote.WithAuth(model.StaticAuth{User: user}))

	res := r.SyncAction(context.Background(), model.ActionDeletePO, map[string]any{"id": 12})
	require.True(t, res.Success)

	body := wh.Requests()[0].JSON(t)
	assert.Equal(t, model.ActionDeletePO, body["action"])
	assert.Equal(t, map[string]any{"id": float64(12)}, body["data"])
	assert.Equal(t, "2024-03-15T09:30:00.000Z", body["timestamp"])
	assert.Equal(t, "u-1", body["userId"])
	assert.Equal(t, "Dana", body["userInfo"].(map[string]any)["name"])
}

func TestEnvelopeWithoutUser(t *testing.T) {
	env := remote.NewEnvelope(model.ActionUpdatePO, nil, model.StaticAuth{}, shapeNow)
	assert.Nil(t, env.UserID)
	assert.Nil(t, env.UserInfo)

	env = remote.NewEnvelope(model.ActionUpdatePO, nil, nil, shapeNow)
	assert.Nil(t, env.UserInfo)
}

func TestReplayMakesOneAttempt(t *testing.T) {
	wh := testutil.NewWebhook(t, http.StatusInternalServerError)
	r, s, rec := newResilient(t, wh)
	ctx := context.Background()

	entry := model.RetryEntry{Action: model.ActionDirectSync, Data: []byte(`{"id":4}`)}
	res := r.Replay(ctx, entry)
	assert.False(t, res.Success)
	assert.False(t, res.Queued)
	assert.Equal(t, 1, wh.Count())
	assert.Empty(t, rec.waits)

	queue, err := s.GetRetryQueue(ctx)
	require.NoError(t, err)
	assert.Empty(t, queue)

	res = r.Replay(ctx, entry)
	require.True(t, res.Success)
	assert.Equal(t, float64(4), wh.Requests()[1].JSON(t)["id"])

	res = r.Replay(ctx, model.RetryEntry{Action: model.ActionDeletePO, Data: []byte(`{"id":4}`)})
	require.True(t, res.Success)
	assert.Equal(t, model.ActionDeletePO, wh.Requests()[2].JSON(t)["action"])
}
