package remote_test

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/remote"
	"github.com/nhle/po-intake/internal/testutil"
)

func newClient(t *testing.T, wh *testutil.Webhook, opts ...remote.Option) *remote.Client {
	t.Helper()
	clock := testutil.NewClock()
	opts = append([]remote.Option{remote.WithClock(clock.Now)}, opts...)
	return remote.NewClient(model.RemoteConfig{Endpoint: wh.URL, APIKey: "k-123"}, opts...)
}

func TestPostSendsJSONWithAPIKey(t *testing.T) {
	wh := testutil.NewWebhook(t)
	c := newClient(t, wh)

	res := c.Post(context.Background(), map[string]any{"hello": "world"})
	require.True(t, res.Success, res.Error)
	assert.Equal(t, map[string]any{"ok": true}, res.Data)

	reqs := wh.Requests()
	require.Len(t, reqs, 1)
	assert.Equal(t, http.MethodPost, reqs[0].Method)
	assert.Equal(t, "application/json", reqs[0].ContentType)
	assert.Equal(t, "k-123", reqs[0].APIKey)
	assert.Equal(t, "world", reqs[0].JSON(t)["hello"])
}

func TestPostOmitsEmptyAPIKey(t *testing.T) {
	wh := testutil.NewWebhook(t)
	c := remote.NewClient(model.RemoteConfig{Endpoint: wh.URL})

	res := c.Post(context.Background(), map[string]any{})
	require.True(t, res.Success)
	assert.Empty(t, wh.Requests()[0].APIKey)
}

func TestPostTextResponse(t *testing.T) {
	wh := testutil.NewWebhook(t)
	wh.Handler = func(w http.ResponseWriter, r *http.Request) bool {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusAccepted)
		_, _ = w.Write([]byte("queued by flow"))
		return true
	}
	c := newClient(t, wh)

	res := c.Post(context.Background(), map[string]any{})
	require.True(t, res.Success)
	assert.Equal(t, "queued by flow", res.Data)
}

func TestPostEmptyAcceptedBody(t *testing.T) {
	wh := testutil.NewWebhook(t)
	wh.Handler = func(w http.ResponseWriter, r *http.Request) bool {
		w.WriteHeader(http.StatusAccepted)
		return true
	}
	c := newClient(t, wh)

	res := c.Post(context.Background(), map[string]any{})
	assert.True(t, res.Success)
	assert.Nil(t, res.Data)
}

func TestPostNon2xxIsStatusError(t *testing.T) {
	wh := testutil.NewWebhook(t, http.StatusInternalServerError)
	c := newClient(t, wh)

	res := c.Post(context.Background(), map[string]any{})
	assert.False(t, res.Success)
	assert.True(t, remote.IsStatusError(res.Err))
	assert.Contains(t, res.Error, "HTTP 500")

	var statusErr *remote.StatusError
	require.True(t, errors.As(res.Err, &statusErr))
	assert.Equal(t, http.StatusInternalServerError, statusErr.Code)
	assert.False(t, statusErr.Permanent())
	assert.Contains(t, statusErr.Body, "rejected")
}

func TestPostWithoutEndpoint(t *testing.T) {
	c := remote.NewClient(model.DefaultRemote())

	res := c.Post(context.Background(), map[string]any{})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, remote.ErrNoEndpoint)
}

func TestPostTimeout(t *testing.T) {
	wh := testutil.NewWebhook(t)
	wh.Handler = func(w http.ResponseWriter, r *http.Request) bool {
		<-r.Context().Done()
		return true
	}
	c := newClient(t, wh, remote.WithTimeout(50*time.Millisecond))

	res := c.Post(context.Background(), map[string]any{})
	assert.False(t, res.Success)
	assert.ErrorIs(t, res.Err, context.DeadlineExceeded)
	assert.Contains(t, res.Error, "timeout")
}

func TestSetConfigRedirectsDelivery(t *testing.T) {
	first := testutil.NewWebhook(t)
	second := testutil.NewWebhook(t)
	c := newClient(t, first)

	c.SetConfig(model.RemoteConfig{Endpoint: second.URL})
	require.True(t, c.Post(context.Background(), map[string]any{}).Success)

	assert.Zero(t, first.Count())
	assert.Equal(t, 1, second.Count())
	assert.Equal(t, second.URL, c.Config().Endpoint)
}

func TestSendPostsShapedSubmission(t *testing.T) {
	wh := testutil.NewWebhook(t)
	c := newClient(t, wh)

	sub := testutil.ValidSubmission()
	sub.ID = 7
	require.True(t, c.Send(context.Background(), sub).Success)

	body := wh.Requests()[0].JSON(t)
	assert.EqualValues(t, 7, body["id"])
	assert.Equal(t, false, body["sent"])
	assert.Equal(t, "", body["sentAt"])

	line := body["schedule"].([]any)[0].(map[string]any)
	assert.EqualValues(t, 50, line["totalCost"])
	assert.EqualValues(t, -10, line["profit"])
}

func TestTestPostAndHealthCheck(t *testing.T) {
	wh := testutil.NewWebhook(t)
	c := newClient(t, wh)
	ctx := context.Background()

	require.True(t, c.TestPost(ctx).Success)
	body := wh.Requests()[0].JSON(t)
	assert.Equal(t, true, body["test"])
	assert.Equal(t, "admin_test", body["source"])
	assert.Equal(t, "2024-03-15T09:30:00.000Z", body["ts"])

	h := c.HealthCheck(ctx)
	assert.True(t, h.Success)
	assert.True(t, h.Online)
	assert.Equal(t, model.ActionHealthCheck, wh.Requests()[1].JSON(t)["action"])

	wh.SetDefault(http.StatusBadGateway)
	h = c.HealthCheck(ctx)
	assert.False(t, h.Online)
	assert.NotEmpty(t, h.Error)
}
