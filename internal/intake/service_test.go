package intake_test

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nhle/po-intake/internal/intake"
	"github.com/nhle/po-intake/internal/model"
	"github.com/nhle/po-intake/internal/remote"
	"github.com/nhle/po-intake/internal/store"
	posync "github.com/nhle/po-intake/internal/sync"
	"github.com/nhle/po-intake/internal/testutil"
)

type notice struct {
	ok    bool
	title string
}

type recorder struct {
	mu      sync.Mutex
	notices []notice
}

func (r *recorder) ShowSuccess(title, _ string) { r.add(notice{ok: true, title: title}) }
func (r *recorder) ShowError(title, _ string)   { r.add(notice{ok: false, title: title}) }

func (r *recorder) add(n notice) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.notices = append(r.notices, n)
}

func (r *recorder) last() notice {
	r.mu.Lock()
	defer r.mu.Unlock()
	if len(r.notices) == 0 {
		return notice{}
	}
	return r.notices[len(r.notices)-1]
}

type fixture struct {
	svc       *intake.Service
	store     *store.SQLiteStore
	webhook   *testutil.Webhook
	resilient *remote.Resilient
	notes     *recorder
}

func newFixture(t *testing.T, auth model.Auth, statuses ...int) fixture {
	t.Helper()
	wh := testutil.NewWebhook(t, statuses...)
	st := testutil.NewTestStore(t)
	client := remote.NewClient(model.RemoteConfig{Endpoint: wh.URL})
	res := remote.NewResilient(client, st,
		remote.WithRetry(3, time.Millisecond),
		remote.WithSleep(func(context.Context, time.Duration) error { return nil }),
		remote.WithAuth(auth),
	)
	engine := posync.New(st, client)
	notes := &recorder{}

	opts := []intake.Option{intake.WithNotifier(notes)}
	if auth != nil {
		opts = append(opts, intake.WithAuth(auth))
	}
	return fixture{
		svc:       intake.New(st, res, engine, opts...),
		store:     st,
		webhook:   wh,
		resilient: res,
		notes:     notes,
	}
}

func admin() model.Auth {
	return model.StaticAuth{User: &model.User{ID: "u-admin", Name: "Ada", Role: "admin"}}
}

func member(id string) model.Auth {
	return model.StaticAuth{User: &model.User{ID: id, Name: "Field", Role: "user"}}
}

func viewer() model.Auth {
	return viewerAuth{}
}

type viewerAuth struct{}

func (viewerAuth) CurrentUser() *model.User    { return &model.User{ID: "u-view", Role: "viewer"} }
func (viewerAuth) HasPermission(p string) bool { return false }

func TestSubmitRejectsInvalid(t *testing.T) {
	f := newFixture(t, nil)
	sub := testutil.ValidSubmission()
	sub.Meta.ProjectName = ""

	res, err := f.svc.Submit(context.Background(), sub)
	assert.ErrorIs(t, err, intake.ErrInvalid)
	assert.False(t, res.Validation.IsValid)
	assert.Zero(t, res.ID)

	all, err := f.store.GetAll(context.Background())
	require.NoError(t, err)
	assert.Empty(t, all)
	assert.Zero(t, f.webhook.Count())
	assert.False(t, f.notes.last().ok)
}

func TestSubmitStoresClearsDraftAndDelivers(t *testing.T) {
	f := newFixture(t, member("u-1"))
	ctx := context.Background()
	require.NoError(t, f.svc.SaveDraft(ctx, json.RawMessage(`{"meta":{"projectName":"half done"}}`)))

	res, err := f.svc.Submit(ctx, testutil.ValidSubmission())
	require.NoError(t, err)
	assert.True(t, res.Validation.IsValid)
	assert.True(t, res.Delivered)

	sub, err := f.store.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.True(t, sub.Sent)
	assert.Equal(t, "u-1", sub.UserID)

	draft, err := f.svc.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, draft)

	assert.Equal(t, 1, f.webhook.Count())
	assert.True(t, f.notes.last().ok)
}

func TestSubmitKeepsPendingWhenWebhookFails(t *testing.T) {
	f := newFixture(t, nil)
	f.webhook.SetDefault(http.StatusInternalServerError)
	ctx := context.Background()

	res, err := f.svc.Submit(ctx, testutil.ValidSubmission())
	require.NoError(t, err)
	assert.False(t, res.Delivered)

	pending, err := f.store.GetPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, res.ID, pending[0].ID)
	assert.True(t, f.notes.last().ok)
}

func TestCreateMarksSentOnAck(t *testing.T) {
	f := newFixture(t, admin())
	ctx := context.Background()

	res, err := f.svc.Create(ctx, testutil.ValidSubmission())
	require.NoError(t, err)
	assert.Equal(t, intake.SyncSynced, res.SyncStatus)
	require.NotNil(t, res.Submission)
	assert.True(t, res.Submission.Sent)
	assert.Equal(t, "u-admin", res.Submission.UserID)

	body := f.webhook.Requests()[0].JSON(t)
	assert.EqualValues(t, res.Submission.ID, body["id"])
	assert.Contains(t, body, "meta")
}

func TestCreateQueuesWhenWebhookKeepsFailing(t *testing.T) {
	f := newFixture(t, admin())
	f.webhook.SetDefault(http.StatusServiceUnavailable)
	ctx := context.Background()

	res, err := f.svc.Create(ctx, testutil.ValidSubmission())
	require.NoError(t, err)
	assert.Equal(t, intake.SyncQueued, res.SyncStatus)
	assert.NotEmpty(t, res.Error)
	assert.False(t, res.Submission.Sent)
	assert.Equal(t, 3, f.webhook.Count())

	queue, err := f.store.GetRetryQueue(ctx)
	require.NoError(t, err)
	require.Len(t, queue, 1)
	assert.Equal(t, model.ActionDirectSync, queue[0].Action)
}

func TestCreateWhileDisabledStaysPending(t *testing.T) {
	f := newFixture(t, admin())
	f.resilient.SetEnabled(false)

	res, err := f.svc.Create(context.Background(), testutil.ValidSubmission())
	require.NoError(t, err)
	assert.Equal(t, intake.SyncDisabled, res.SyncStatus)
	assert.False(t, res.Submission.Sent)
	assert.Zero(t, f.webhook.Count())
}

func TestReviseCreatesLinkedSubmission(t *testing.T) {
	f := newFixture(t, admin())
	ctx := context.Background()

	orig, err := f.svc.Create(ctx, testutil.ValidSubmission())
	require.NoError(t, err)

	rev, err := f.svc.Revise(ctx, orig.Submission.ID, func(s *model.Submission) {
		s.Meta.ContractAmount = 300000
		s.Schedule[0].ApexContractValue = 60
	})
	require.NoError(t, err)
	require.NotNil(t, rev.Submission)
	assert.NotEqual(t, orig.Submission.ID, rev.Submission.ID)
	assert.Equal(t, orig.Submission.ID, rev.Submission.RevisionOf)
	assert.Equal(t, 300000.0, rev.Submission.Meta.ContractAmount)
	assert.Equal(t, 10.0, rev.Submission.Schedule[0].Profit)

	before, err := f.store.GetByID(ctx, orig.Submission.ID)
	require.NoError(t, err)
	assert.Equal(t, 250000.0, before.Meta.ContractAmount)
	assert.Equal(t, 40.0, before.Schedule[0].ApexContractValue)
}

func TestReviseMissing(t *testing.T) {
	f := newFixture(t, admin())
	_, err := f.svc.Revise(context.Background(), 404, nil)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestImportKeepsIDsAndSkipsDuplicates(t *testing.T) {
	f := newFixture(t, admin())
	ctx := context.Background()

	withID := testutil.ValidSubmission()
	withID.ID = 42
	withID.Sent = true
	fresh := testutil.ValidSubmission()
	dup := testutil.ValidSubmission()
	dup.ID = 42

	res, err := f.svc.Import(ctx, []model.Submission{withID, fresh, dup})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Imported)
	assert.Equal(t, 1, res.Skipped)
	assert.Len(t, res.Errors, 1)

	got, err := f.store.GetByID(ctx, 42)
	require.NoError(t, err)
	assert.True(t, got.Sent)

	pending, err := f.store.GetPending(ctx)
	require.NoError(t, err)
	assert.Len(t, pending, 1)
}

func TestDeleteTellsWebhook(t *testing.T) {
	f := newFixture(t, admin())
	ctx := context.Background()
	id, err := f.store.Save(ctx, testutil.ValidSubmission())
	require.NoError(t, err)

	res, err := f.svc.Delete(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, intake.SyncSynced, res.SyncStatus)

	_, err = f.store.GetByID(ctx, id)
	assert.ErrorIs(t, err, store.ErrNotFound)

	body := f.webhook.Requests()[0].JSON(t)
	assert.Equal(t, model.ActionDeletePO, body["action"])
	data, ok := body["data"].(map[string]any)
	require.True(t, ok)
	assert.EqualValues(t, id, data["id"])
	user, ok := body["userInfo"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "u-admin", user["id"])
}

func TestDeleteRequiresPermission(t *testing.T) {
	f := newFixture(t, viewer())
	ctx := context.Background()
	id, err := f.store.Save(ctx, testutil.ValidSubmission())
	require.NoError(t, err)

	_, err = f.svc.Delete(ctx, id)
	assert.ErrorIs(t, err, intake.ErrForbidden)

	_, err = f.store.GetByID(ctx, id)
	assert.NoError(t, err)
	assert.Zero(t, f.webhook.Count())
}

func TestOtherUsersSubmissionsAreOffLimits(t *testing.T) {
	f := newFixture(t, member("u-bob"))
	ctx := context.Background()

	theirs := testutil.ValidSubmission()
	theirs.UserID = "u-alice"
	aliceID, err := f.store.Save(ctx, theirs)
	require.NoError(t, err)

	mine := testutil.ValidSubmission()
	mine.UserID = "u-bob"
	bobID, err := f.store.Save(ctx, mine)
	require.NoError(t, err)

	_, err = f.svc.Delete(ctx, aliceID)
	assert.ErrorIs(t, err, intake.ErrForbidden)
	_, err = f.svc.Get(ctx, aliceID)
	assert.ErrorIs(t, err, intake.ErrForbidden)
	_, err = f.svc.Revise(ctx, aliceID, nil)
	assert.ErrorIs(t, err, intake.ErrForbidden)

	_, err = f.store.GetByID(ctx, aliceID)
	require.NoError(t, err, "another user's submission must survive")
	assert.Zero(t, f.webhook.Count())

	got, err := f.svc.Get(ctx, bobID)
	require.NoError(t, err)
	assert.Equal(t, "u-bob", got.UserID)

	_, err = f.svc.Delete(ctx, bobID)
	require.NoError(t, err)
	_, err = f.store.GetByID(ctx, bobID)
	assert.ErrorIs(t, err, store.ErrNotFound)
}

func TestDeleteMany(t *testing.T) {
	f := newFixture(t, admin())
	ctx := context.Background()
	a, err := f.store.Save(ctx, testutil.ValidSubmission())
	require.NoError(t, err)
	b, err := f.store.Save(ctx, testutil.ValidSubmission())
	require.NoError(t, err)

	res := f.svc.DeleteMany(ctx, []int64{a, 999, b})
	assert.Equal(t, "2/3", res.String())
	assert.Equal(t, []int64{999}, res.Failed)
}

func TestDraftRoundTrip(t *testing.T) {
	f := newFixture(t, nil)
	ctx := context.Background()

	draft, err := f.svc.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, draft)

	assert.Error(t, f.svc.SaveDraft(ctx, json.RawMessage(`{not json`)))

	want := json.RawMessage(`{"meta":{"projectName":"Riverside"}}`)
	require.NoError(t, f.svc.SaveDraft(ctx, want))
	draft, err = f.svc.LoadDraft(ctx)
	require.NoError(t, err)
	assert.JSONEq(t, string(want), string(draft))

	require.NoError(t, f.svc.ClearDraft(ctx))
	draft, err = f.svc.LoadDraft(ctx)
	require.NoError(t, err)
	assert.Nil(t, draft)
}
