package sync

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	gosync "sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/exp/slog"

	"fieldsync/internal/domain/mutation"
	"fieldsync/internal/domain/snapshot"
	"fieldsync/internal/infrastructure/storage/memory"
)

// MockRemote мок удаленного сервиса
type MockRemote struct {
	mock.Mock
}

func (m *MockRemote) Send(ctx context.Context, mu mutation.Mutation) (int, error) {
	args := m.Called(ctx, mu)
	return args.Int(0), args.Error(1)
}

func (m *MockRemote) List(ctx context.Context, path string) ([]snapshot.Record, error) {
	args := m.Called(ctx, path)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]snapshot.Record), args.Error(1)
}

// MockReplayer мок фонового повтора
type MockReplayer struct {
	mock.Mock
}

func (m *MockReplayer) RequestReplay(ctx context.Context) error {
	args := m.Called(ctx)
	return args.Error(0)
}

var visitsOnly = []snapshot.Family{
	{Key: "visits", Listings: []snapshot.Listing{{Name: "all", Path: "/fieldflow/visits"}}},
}

type fixture struct {
	orch   *Orchestrator
	queue  *mutation.Queue
	cache  *snapshot.Cache
	remote *MockRemote
}

func newFixture(t *testing.T, opts ...Option) *fixture {
	t.Helper()
	ctx := context.Background()
	store := memory.New()
	log := slog.Default()

	queue, err := mutation.NewQueue(ctx, store, log)
	require.NoError(t, err)
	cache, err := snapshot.NewCache(ctx, store, log)
	require.NoError(t, err)

	remote := new(MockRemote)
	base := []Option{WithOnline(true), WithConfig(Config{Families: visitsOnly})}
	orch, err := NewOrchestrator(ctx, queue, cache, remote, log, append(base, opts...)...)
	require.NoError(t, err)

	return &fixture{orch: orch, queue: queue, cache: cache, remote: remote}
}

func endpoint(ep string) interface{} {
	return mock.MatchedBy(func(m mutation.Mutation) bool { return m.Endpoint == ep })
}

func sentEndpoints(r *MockRemote) []string {
	var out []string
	for _, c := range r.Calls {
		if c.Method == "Send" {
			out = append(out, c.Arguments.Get(1).(mutation.Mutation).Endpoint)
		}
	}
	return out
}

func TestOrchestrator_PendingCountTracksQueueWhileOffline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithOnline(false))

	var last Status
	unsubscribe := f.orch.SubscribeToStatus(func(s Status) { last = s })
	defer unsubscribe()

	for i := 0; i < 4; i++ {
		_, err := f.orch.EnqueueMutation(ctx, "/fieldflow/visits", http.MethodPost, nil, []byte(`{}`))
		require.NoError(t, err)

		n, err := f.queue.Count(ctx)
		require.NoError(t, err)
		assert.Equal(t, n, last.PendingCount)
	}
	assert.Equal(t, 4, last.PendingCount)
	assert.False(t, last.IsOnline)

	res, err := f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)
	assert.True(t, res.Skipped)
	f.remote.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func TestOrchestrator_ServerErrorRetriedUpToLimitThenDiscarded(t *testing.T) {
	ctx := context.Background()
	var dead []mutation.DeadLetter
	f := newFixture(t, WithDeadLetterHandler(func(dl mutation.DeadLetter) { dead = append(dead, dl) }))
	f.remote.On("Send", mock.Anything, mock.Anything).Return(http.StatusServiceUnavailable, nil)

	m, err := f.orch.EnqueueMutation(ctx, "/fieldflow/visits", http.MethodPost, nil, nil)
	require.NoError(t, err)

	for i := 1; i <= DefaultMaxRetry; i++ {
		res, err := f.orch.DrainPendingMutations(ctx)
		require.NoError(t, err)
		assert.Equal(t, DrainResult{Transient: 1, Failed: 1}, res)
		assert.Equal(t, 1, f.orch.Status().PendingCount)

		stored, err := f.queue.Get(ctx, m.ID)
		require.NoError(t, err)
		assert.Equal(t, i, stored.RetryCount)
	}

	res, err := f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Terminal: 1, Failed: 1}, res)
	assert.Zero(t, f.orch.Status().PendingCount)

	f.remote.AssertNumberOfCalls(t, "Send", DefaultMaxRetry)
	require.Len(t, dead, 1)
	assert.Equal(t, mutation.ReasonRetriesExceeded, dead[0].Reason)
	assert.Equal(t, m.ID, dead[0].Mutation.ID)
}

func TestOrchestrator_ClientErrorDiscardedAfterOneAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.On("Send", mock.Anything, mock.Anything).Return(http.StatusUnprocessableEntity, nil)

	_, err := f.orch.EnqueueMutation(ctx, "/fieldflow/visits", http.MethodPost, nil, nil)
	require.NoError(t, err)

	res, err := f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Terminal: 1, Failed: 1}, res)
	f.remote.AssertNumberOfCalls(t, "Send", 1)

	dead, err := f.queue.ListDeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, mutation.ReasonRejected, dead[0].Reason)
	assert.Equal(t, http.StatusUnprocessableEntity, dead[0].StatusCode)
	assert.Zero(t, f.orch.Status().PendingCount)
}

func TestOrchestrator_UnsendableDiscardedAfterOneAttempt(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.On("Send", mock.Anything, mock.Anything).Return(0, fmt.Errorf("%w: build request: bad url", ErrUnsendable))

	_, err := f.orch.EnqueueMutation(ctx, "/fieldflow/visits", http.MethodPost, nil, nil)
	require.NoError(t, err)

	res, err := f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Terminal: 1, Failed: 1}, res)
	f.remote.AssertNumberOfCalls(t, "Send", 1)

	dead, err := f.queue.ListDeadLetters(ctx)
	require.NoError(t, err)
	require.Len(t, dead, 1)
	assert.Equal(t, mutation.ReasonRejected, dead[0].Reason)
	assert.Zero(t, f.orch.Status().PendingCount)
}

func TestOrchestrator_SuccessRemovedAfterOneAttempt(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture(t, WithClock(func() time.Time { return now }))
	f.remote.On("Send", mock.Anything, mock.Anything).Return(http.StatusCreated, nil)

	_, err := f.orch.EnqueueMutation(ctx, "/fieldflow/visits", http.MethodPost, nil, nil)
	require.NoError(t, err)

	res, err := f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)
	assert.Equal(t, DrainResult{Succeeded: 1}, res)
	f.remote.AssertNumberOfCalls(t, "Send", 1)

	s := f.orch.Status()
	assert.Zero(t, s.PendingCount)
	assert.Equal(t, now, s.LastSyncAt)
	assert.False(t, s.IsSyncing)
}

func TestOrchestrator_DrainKeepsInsertionOrder(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.On("Send", mock.Anything, endpoint("/a")).Return(http.StatusOK, nil)
	f.remote.On("Send", mock.Anything, endpoint("/b")).Return(0, errors.New("connection reset"))
	f.remote.On("Send", mock.Anything, endpoint("/c")).Return(http.StatusOK, nil)

	for _, ep := range []string{"/a", "/b", "/c"} {
		_, err := f.orch.EnqueueMutation(ctx, ep, http.MethodPut, nil, nil)
		require.NoError(t, err)
	}

	res, err := f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"/a", "/b", "/c"}, sentEndpoints(f.remote))
	assert.Equal(t, DrainResult{Succeeded: 2, Transient: 1, Failed: 1}, res)

	left, err := f.queue.ListAll(ctx)
	require.NoError(t, err)
	require.Len(t, left, 1)
	assert.Equal(t, "/b", left[0].Endpoint)
	assert.Equal(t, 1, left[0].RetryCount)
}

func TestOrchestrator_TransientFailureKeepsPositionAcrossDrains(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.On("Send", mock.Anything, endpoint("/a")).Return(http.StatusBadGateway, nil).Once()
	f.remote.On("Send", mock.Anything, endpoint("/a")).Return(http.StatusOK, nil)
	f.remote.On("Send", mock.Anything, endpoint("/b")).Return(http.StatusBadGateway, nil).Once()
	f.remote.On("Send", mock.Anything, endpoint("/b")).Return(http.StatusOK, nil)

	for _, ep := range []string{"/a", "/b"} {
		_, err := f.orch.EnqueueMutation(ctx, ep, http.MethodPost, nil, nil)
		require.NoError(t, err)
	}

	_, err := f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)
	_, err = f.orch.EnqueueMutation(ctx, "/c", http.MethodPost, nil, nil)
	require.NoError(t, err)
	f.remote.On("Send", mock.Anything, endpoint("/c")).Return(http.StatusOK, nil)

	_, err = f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)

	assert.Equal(t, []string{"/a", "/b", "/a", "/b", "/c"}, sentEndpoints(f.remote))
}

func TestOrchestrator_DrainCanceledDoesNotBurnRetries(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	f := newFixture(t)
	f.remote.On("Send", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) { cancel() }).
		Return(0, context.Canceled)

	m, err := f.orch.EnqueueMutation(context.Background(), "/a", http.MethodPost, nil, nil)
	require.NoError(t, err)

	_, err = f.orch.DrainPendingMutations(ctx)
	assert.ErrorIs(t, err, context.Canceled)

	stored, err := f.queue.Get(context.Background(), m.ID)
	require.NoError(t, err)
	assert.Zero(t, stored.RetryCount)
	assert.False(t, f.orch.Status().IsSyncing)
}

type failingQueue struct {
	*mutation.Queue
	err error
}

func (q failingQueue) ListAll(context.Context) ([]mutation.Mutation, error) {
	return nil, q.err
}

func TestOrchestrator_StorageErrorPropagates(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	storageErr := errors.New("disk full")

	orch, err := NewOrchestrator(ctx, failingQueue{Queue: f.queue, err: storageErr}, f.cache, f.remote, slog.Default(), WithOnline(true))
	require.NoError(t, err)

	_, err = orch.DrainPendingMutations(ctx)
	assert.ErrorIs(t, err, storageErr)
	assert.Equal(t, "disk full", orch.Status().Error)
	assert.False(t, orch.Status().IsSyncing)
	f.remote.AssertNotCalled(t, "Send", mock.Anything, mock.Anything)
}

func records(pairs ...string) []snapshot.Record {
	out := make([]snapshot.Record, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, snapshot.Record{ID: pairs[i], Data: json.RawMessage(pairs[i+1])})
	}
	return out
}

func TestOrchestrator_RefreshMergesOverlappingListings(t *testing.T) {
	ctx := context.Background()
	meetings := []snapshot.Family{{
		Key: "meetings",
		Listings: []snapshot.Listing{
			{Name: "all", Path: "/m/all"},
			{Name: "today", Path: "/m/today"},
			{Name: "upcoming", Path: "/m/upcoming"},
		},
	}}
	f := newFixture(t, WithConfig(Config{Families: meetings}))
	f.remote.On("List", mock.Anything, "/m/all").Return(records("1", `"x"`), nil)
	f.remote.On("List", mock.Anything, "/m/today").Return(records("1", `"y"`, "2", `"z"`), nil)
	f.remote.On("List", mock.Anything, "/m/upcoming").Return([]snapshot.Record{}, nil)

	res, err := f.orch.RefreshSnapshotCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Refreshed)
	assert.Equal(t, []FamilyResult{{Family: "meetings", Records: 2}}, res.Families)

	one, err := f.cache.Get(ctx, "meetings", "1")
	require.NoError(t, err)
	assert.Equal(t, `"y"`, string(one.Data))
	two, err := f.cache.Get(ctx, "meetings", "2")
	require.NoError(t, err)
	assert.Equal(t, `"z"`, string(two.Data))
}

func TestOrchestrator_RefreshFamilyFailureIsIsolated(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithConfig(Config{Families: snapshot.DefaultFamilies(7)}))
	f.remote.On("List", mock.Anything, "/fieldflow/visits").Return(nil, errors.New("gateway timeout")).Once()
	f.remote.On("List", mock.Anything, mock.Anything).Return(records("1", `{}`), nil)

	res, err := f.orch.RefreshSnapshotCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Refreshed)
	assert.Equal(t, 1, res.Failed)
	assert.Contains(t, f.orch.Status().Error, "gateway timeout")

	_, ok, err := f.orch.LastSyncTime(ctx, "visits")
	require.NoError(t, err)
	assert.False(t, ok)
	_, ok, err = f.orch.LastSyncTime(ctx, "meetings")
	require.NoError(t, err)
	assert.True(t, ok)

	res, err = f.orch.RefreshSnapshotCache(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, res.Refreshed)
	assert.Empty(t, f.orch.Status().Error)
}

func TestOrchestrator_LastSyncTime(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 7, 1, 10, 0, 0, 0, time.UTC)
	f := newFixture(t)
	f.cache.WithClock(func() time.Time { return now })
	f.remote.On("List", mock.Anything, "/fieldflow/visits").Return(records("5", `{}`), nil)

	_, ok, err := f.orch.LastSyncTime(ctx, "visits")
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = f.orch.RefreshSnapshotCache(ctx)
	require.NoError(t, err)

	at, ok, err := f.orch.LastSyncTime(ctx, "visits")
	require.NoError(t, err)
	assert.True(t, ok)
	assert.True(t, at.Equal(now))

	_, _, err = f.orch.LastSyncTime(ctx, "orders")
	assert.ErrorIs(t, err, snapshot.ErrUnknownFamily)
}

func TestOrchestrator_SubscribeReceivesCurrentStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithOnline(false))

	for i := 0; i < 3; i++ {
		_, err := f.orch.EnqueueMutation(ctx, "/a", http.MethodPost, nil, nil)
		require.NoError(t, err)
	}
	f.orch.HandleOffline()

	var got []Status
	unsubscribe := f.orch.SubscribeToStatus(func(s Status) { got = append(got, s) })

	require.Len(t, got, 1)
	assert.Equal(t, 3, got[0].PendingCount)
	assert.False(t, got[0].IsOnline)

	unsubscribe()
	_, err := f.orch.EnqueueMutation(ctx, "/a", http.MethodPost, nil, nil)
	require.NoError(t, err)
	assert.Len(t, got, 1)
}

func TestOrchestrator_SubscriberMayReadStatus(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	var seen []int
	unsubscribe := f.orch.SubscribeToStatus(func(s Status) {
		seen = append(seen, f.orch.Status().PendingCount)
	})
	defer unsubscribe()

	done := make(chan error, 1)
	go func() {
		_, err := f.orch.EnqueueMutation(ctx, "/fieldflow/visits", http.MethodPost, nil, nil)
		done <- err
	}()

	select {
	case err := <-done:
		require.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("enqueue blocked while a subscriber read the status")
	}
	assert.Equal(t, []int{0, 1}, seen)
}

func TestOrchestrator_NotifiesEveryTransition(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	f.remote.On("Send", mock.Anything, mock.Anything).Return(http.StatusOK, nil)

	_, err := f.orch.EnqueueMutation(ctx, "/a", http.MethodPost, nil, nil)
	require.NoError(t, err)

	var seen []Status
	f.orch.SubscribeToStatus(func(s Status) { seen = append(seen, s) })
	_, err = f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)

	// текущее, начало, итог прохода, конец
	require.Len(t, seen, 4)
	assert.False(t, seen[0].IsSyncing)
	assert.True(t, seen[1].IsSyncing)
	assert.Equal(t, 0, seen[2].PendingCount)
	assert.True(t, seen[2].IsSyncing)
	assert.False(t, seen[3].IsSyncing)
}

func TestOrchestrator_OnlineDrainsBeforeRefresh(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithOnline(false))

	for _, ep := range []string{"/a", "/b"} {
		m, err := f.orch.EnqueueMutation(ctx, ep, http.MethodPost, nil, nil)
		require.NoError(t, err)
		// обе записи уже получали временную ошибку
		_, err = f.queue.MarkRetried(ctx, m.ID)
		require.NoError(t, err)
	}
	f.remote.On("Send", mock.Anything, mock.Anything).Return(http.StatusOK, nil)
	f.remote.On("List", mock.Anything, "/fieldflow/visits").Return(records("1", `{}`), nil)

	res, err := f.orch.HandleOnline(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, res.Drain.Succeeded)
	assert.Equal(t, 1, res.Refresh.Refreshed)

	s := f.orch.Status()
	assert.True(t, s.IsOnline)
	assert.Zero(t, s.PendingCount)

	require.Len(t, f.remote.Calls, 3)
	assert.Equal(t, "Send", f.remote.Calls[0].Method)
	assert.Equal(t, "Send", f.remote.Calls[1].Method)
	assert.Equal(t, "List", f.remote.Calls[2].Method)
}

func TestOrchestrator_OfflineOnlyFlipsFlag(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	_, err := f.orch.EnqueueMutation(ctx, "/a", http.MethodPost, nil, nil)
	require.NoError(t, err)

	var notified int
	f.orch.SubscribeToStatus(func(Status) { notified++ })
	f.orch.HandleOffline()
	f.orch.HandleOffline()

	assert.Equal(t, 2, notified)
	s := f.orch.Status()
	assert.False(t, s.IsOnline)
	assert.Equal(t, 1, s.PendingCount)
	assert.Empty(t, f.remote.Calls)
}

func TestOrchestrator_BackgroundReplayOnlyRepublishesCount(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	// запись добавлена в обход оркестратора, например другим процессом
	_, err := f.queue.Enqueue(ctx, "/a", http.MethodPost, nil, nil)
	require.NoError(t, err)
	assert.Zero(t, f.orch.Status().PendingCount)

	require.NoError(t, f.orch.HandleBackgroundReplay(ctx))
	assert.Equal(t, 1, f.orch.Status().PendingCount)
	assert.Empty(t, f.remote.Calls)
}

func TestOrchestrator_EnqueueRequestsBackgroundReplay(t *testing.T) {
	ctx := context.Background()
	replayer := new(MockReplayer)
	replayer.On("RequestReplay", mock.Anything).Return(errors.New("not registered")).Once()
	replayer.On("RequestReplay", mock.Anything).Return(nil)
	f := newFixture(t, WithReplayer(replayer))

	_, err := f.orch.EnqueueMutation(ctx, "/a", http.MethodPost, nil, nil)
	require.NoError(t, err)
	_, err = f.orch.EnqueueMutation(ctx, "/b", http.MethodPost, nil, nil)
	require.NoError(t, err)

	replayer.AssertNumberOfCalls(t, "RequestReplay", 2)
	assert.Equal(t, 2, f.orch.Status().PendingCount)
}

func TestOrchestrator_SingleGuardCoversPushAndPull(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)

	started := make(chan struct{})
	release := make(chan struct{})
	f.remote.On("Send", mock.Anything, mock.Anything).
		Run(func(mock.Arguments) {
			close(started)
			<-release
		}).
		Return(http.StatusOK, nil)

	_, err := f.orch.EnqueueMutation(ctx, "/a", http.MethodPost, nil, nil)
	require.NoError(t, err)

	var (
		wg  gosync.WaitGroup
		res DrainResult
	)
	wg.Add(1)
	go func() {
		defer wg.Done()
		res, _ = f.orch.DrainPendingMutations(ctx)
	}()
	<-started

	refresh, err := f.orch.RefreshSnapshotCache(ctx)
	require.NoError(t, err)
	assert.True(t, refresh.Skipped)

	drain, err := f.orch.DrainPendingMutations(ctx)
	require.NoError(t, err)
	assert.True(t, drain.Skipped)

	cycle, err := f.orch.SyncNow(ctx)
	require.NoError(t, err)
	assert.True(t, cycle.Skipped)

	close(release)
	wg.Wait()
	assert.Equal(t, 1, res.Succeeded)
	f.remote.AssertNotCalled(t, "List", mock.Anything, mock.Anything)
}

func TestOrchestrator_Scheduler(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithConfig(Config{Interval: 10 * time.Millisecond, Families: visitsOnly}))
	f.remote.On("List", mock.Anything, "/fieldflow/visits").Return(records("1", `{}`), nil)
	f.remote.On("Send", mock.Anything, mock.Anything).Return(http.StatusOK, nil)

	_, err := f.orch.EnqueueMutation(ctx, "/a", http.MethodPost, nil, nil)
	require.NoError(t, err)

	require.NoError(t, f.orch.StartScheduler(ctx))
	assert.ErrorIs(t, f.orch.StartScheduler(ctx), ErrSchedulerRunning)
	assert.True(t, f.orch.SchedulerRunning())

	assert.Eventually(t, func() bool {
		return f.orch.Status().PendingCount == 0
	}, time.Second, 5*time.Millisecond)

	f.orch.StopScheduler()
	f.orch.StopScheduler()
	assert.False(t, f.orch.SchedulerRunning())

	// таймер: сначала снимки, затем очередь
	require.GreaterOrEqual(t, len(f.remote.Calls), 2)
	assert.Equal(t, "List", f.remote.Calls[0].Method)
	assert.Equal(t, "Send", f.remote.Calls[1].Method)

	calls := len(f.remote.Calls)
	time.Sleep(30 * time.Millisecond)
	assert.Equal(t, calls, len(f.remote.Calls))
}

func TestOrchestrator_SchedulerSkipsWhileOffline(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t, WithOnline(false), WithConfig(Config{Interval: 5 * time.Millisecond, Families: visitsOnly}))

	require.NoError(t, f.orch.StartScheduler(ctx))
	time.Sleep(40 * time.Millisecond)
	f.orch.StopScheduler()

	assert.Empty(t, f.remote.Calls)
}

func TestOrchestrator_SetInterval(t *testing.T) {
	f := newFixture(t)

	assert.ErrorIs(t, f.orch.SetInterval(0), ErrInvalidInterval)
	require.NoError(t, f.orch.SetInterval(time.Minute))
	assert.Equal(t, time.Minute, f.orch.Config().Interval)

	require.NoError(t, f.orch.StartScheduler(context.Background()))
	require.NoError(t, f.orch.SetInterval(2*time.Minute))
	require.NoError(t, f.orch.SetInterval(3*time.Minute))
	f.orch.StopScheduler()
	assert.Equal(t, 3*time.Minute, f.orch.Config().Interval)
}

func TestOrchestrator_IndependentInstances(t *testing.T) {
	a := newFixture(t, WithOnline(false))
	b := newFixture(t)

	a.orch.HandleOffline()
	assert.False(t, a.orch.Status().IsOnline)
	assert.True(t, b.orch.Status().IsOnline)
}
