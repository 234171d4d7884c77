package session

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain"
	"github.com/kailas-cloud/searchgate/internal/domain/geo"
	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/domain/query/contentdom"
	"github.com/kailas-cloud/searchgate/internal/domain/query/strategy"
	"github.com/kailas-cloud/searchgate/internal/domain/result"
)

func testParams(term string) query.Params {
	return query.NewParams(query.NewGoal([]string{term}, nil), query.Modifier{},
		contentdom.Text, "", nil, strategy.IfExist, false, 100)
}

func newTestCoordinator(t *testing.T, cfg Config) *Coordinator {
	t.Helper()
	if cfg.WaitTimeout == 0 {
		cfg.WaitTimeout = 2 * time.Second
	}
	c, err := New(cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func staticBuild(set result.Set) BuildFunc {
	return func(context.Context, func(result.Set)) (*result.Set, error) {
		return &set, nil
	}
}

func scoredSet() result.Set {
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	return result.Set{
		Items: []result.Item{
			{URL: "a", Score: 3, Date: base},
			{URL: "b", Score: 2, Date: base.Add(48 * time.Hour)},
			{URL: "c", Score: 1, Date: base.Add(24 * time.Hour)},
		},
		Counters: result.Counters{LocalAvailable: 3, LocalStored: 3},
	}
}

func itemURLs(s *Session) []string {
	var out []string
	for _, it := range s.Items() {
		out = append(out, it.URL)
	}
	return out
}

func TestGetOrCreate_ConcurrentSameIdentityBuildsOnce(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	var calls atomic.Int32
	release := make(chan struct{})
	build := func(ctx context.Context, _ func(result.Set)) (*result.Set, error) {
		calls.Add(1)
		<-release
		set := scoredSet()
		return &set, nil
	}

	const callers = 10
	var wg sync.WaitGroup
	sessions := make([]*Session, callers)
	created := make([]bool, callers)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			s, isNew, err := c.GetOrCreate(context.Background(), testParams("berlin"), build)
			assert.NoError(t, err)
			sessions[i], created[i] = s, isNew
		}(i)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int32(1), calls.Load())
	creators := 0
	for i := range sessions {
		assert.Same(t, sessions[0], sessions[i])
		if created[i] {
			creators++
		}
	}
	assert.Equal(t, 1, creators)
	assert.Len(t, sessions[0].Items(), 3)
	assert.Equal(t, StateReady, sessions[0].State())
}

func TestGetOrCreate_DistinctIdentitiesDoNotBlock(t *testing.T) {
	c := newTestCoordinator(t, Config{WaitTimeout: 5 * time.Second})
	block := make(chan struct{})
	defer close(block)

	go func() {
		_, _, _ = c.GetOrCreate(context.Background(), testParams("slow"),
			func(context.Context, func(result.Set)) (*result.Set, error) {
				<-block
				return &result.Set{}, nil
			})
	}()

	done := make(chan struct{})
	go func() {
		defer close(done)
		s, _, err := c.GetOrCreate(context.Background(), testParams("fast"), staticBuild(scoredSet()))
		assert.NoError(t, err)
		assert.Equal(t, StateReady, s.State())
	}()

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("request for a distinct identity was blocked")
	}
}

func TestGetOrCreate_WaitTimeoutReturnsPartial(t *testing.T) {
	c := newTestCoordinator(t, Config{WaitTimeout: 20 * time.Millisecond})
	published := make(chan struct{})
	release := make(chan struct{})
	defer close(release)

	build := func(ctx context.Context, publish func(result.Set)) (*result.Set, error) {
		publish(result.Set{Items: []result.Item{{URL: "early"}}, Partial: true})
		close(published)
		<-release
		set := scoredSet()
		return &set, nil
	}

	s, created, err := c.GetOrCreate(context.Background(), testParams("berlin"), build)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, s.Partial())

	<-published
	assert.Equal(t, []string{"early"}, itemURLs(s))
	assert.Equal(t, StateBuilding, s.State())
}

func TestGetOrCreate_CanceledContextReturnsImmediately(t *testing.T) {
	c := newTestCoordinator(t, Config{WaitTimeout: time.Minute})
	release := make(chan struct{})
	defer close(release)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	s, _, err := c.GetOrCreate(ctx, testParams("berlin"),
		func(context.Context, func(result.Set)) (*result.Set, error) {
			<-release
			return &result.Set{}, nil
		})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), time.Second)
	assert.True(t, s.Partial())
}

func TestGetOrCreate_BackendErrorDegradesAndRetries(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	var calls atomic.Int32
	build := func(context.Context, func(result.Set)) (*result.Set, error) {
		calls.Add(1)
		return nil, errors.New("connection refused")
	}

	s, created, err := c.GetOrCreate(context.Background(), testParams("berlin"), build)
	require.NoError(t, err)
	assert.True(t, created)
	assert.True(t, s.Partial())
	assert.ErrorIs(t, s.Err(), domain.ErrBackendUnavailable)
	assert.Empty(t, s.Items())
	require.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)

	_, created, err = c.GetOrCreate(context.Background(), testParams("berlin"), build)
	require.NoError(t, err)
	assert.True(t, created)
	assert.Equal(t, int32(2), calls.Load())
}

func TestGetOrCreate_NilResultIsInconsistent(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	release := make(chan struct{})
	build := func(context.Context, func(result.Set)) (*result.Set, error) {
		<-release
		return nil, nil
	}

	errs := make(chan error, 2)
	for i := 0; i < 2; i++ {
		go func() {
			_, _, err := c.GetOrCreate(context.Background(), testParams("berlin"), build)
			errs <- err
		}()
	}
	time.Sleep(20 * time.Millisecond)
	close(release)

	for i := 0; i < 2; i++ {
		select {
		case err := <-errs:
			assert.ErrorIs(t, err, domain.ErrInternalInconsistency)
		case <-time.After(time.Second):
			t.Fatal("waiter was not released")
		}
	}
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestGetOrCreate_PanicIsInconsistent(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	_, _, err := c.GetOrCreate(context.Background(), testParams("berlin"),
		func(context.Context, func(result.Set)) (*result.Set, error) {
			panic("boom")
		})
	assert.ErrorIs(t, err, domain.ErrInternalInconsistency)
	assert.Eventually(t, func() bool { return c.Len() == 0 }, time.Second, 5*time.Millisecond)
}

func TestGetOrCreate_BuildGetsOwnBudget(t *testing.T) {
	c := newTestCoordinator(t, Config{BuildTimeout: 30 * time.Millisecond})
	s, _, err := c.GetOrCreate(context.Background(), testParams("berlin"),
		func(ctx context.Context, _ func(result.Set)) (*result.Set, error) {
			<-ctx.Done()
			return nil, ctx.Err()
		})
	require.NoError(t, err)
	assert.ErrorIs(t, s.Err(), context.DeadlineExceeded)
	assert.ErrorIs(t, s.Err(), domain.ErrBackendUnavailable)
}

func TestGetOrCreate_TTLExpiry(t *testing.T) {
	c := newTestCoordinator(t, Config{SessionTTL: time.Minute})
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	c.now = func() time.Time { return now }

	first, created, err := c.GetOrCreate(context.Background(), testParams("berlin"), staticBuild(scoredSet()))
	require.NoError(t, err)
	require.True(t, created)

	now = now.Add(30 * time.Second)
	again, created, _ := c.GetOrCreate(context.Background(), testParams("berlin"), staticBuild(scoredSet()))
	assert.False(t, created)
	assert.Same(t, first, again)

	now = now.Add(time.Minute)
	_, ok := c.Get(first.Identity())
	assert.False(t, ok)

	fresh, created, _ := c.GetOrCreate(context.Background(), testParams("berlin"), staticBuild(scoredSet()))
	assert.True(t, created)
	assert.NotEqual(t, first.InstanceID(), fresh.InstanceID())
}

func TestResort_PermitsAreConsumedOnce(t *testing.T) {
	c := newTestCoordinator(t, Config{ResortPermits: 2})
	s, _, err := c.GetOrCreate(context.Background(), testParams("berlin"), staticBuild(scoredSet()))
	require.NoError(t, err)

	ok, err := c.Resort(s.Identity(), result.OrderDate)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"b", "c", "a"}, itemURLs(s))

	ok, err = c.Resort(s.Identity(), result.OrderRelevance)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, itemURLs(s))

	ok, err = c.Resort(s.Identity(), result.OrderDate)
	require.NoError(t, err)
	assert.False(t, ok)
	assert.Equal(t, []string{"a", "b", "c"}, itemURLs(s), "refused resort must not reorder")
	assert.Equal(t, result.OrderRelevance, s.Order())
	assert.Equal(t, 0, s.ResortPermits())
}

func TestResort_ConcurrentPermitUse(t *testing.T) {
	c := newTestCoordinator(t, Config{ResortPermits: 3})
	s, _, err := c.GetOrCreate(context.Background(), testParams("berlin"), staticBuild(scoredSet()))
	require.NoError(t, err)

	var applied atomic.Int32
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ok, _ := c.Resort(s.Identity(), result.OrderDate); ok {
				applied.Add(1)
			}
		}()
	}
	wg.Wait()
	assert.Equal(t, int32(3), applied.Load())
}

func TestResort_Errors(t *testing.T) {
	c := newTestCoordinator(t, Config{WaitTimeout: 10 * time.Millisecond})

	_, err := c.Resort(testParams("missing").Identity(), result.OrderDate)
	assert.ErrorIs(t, err, domain.ErrSessionNotFound)

	_, err = c.Resort(testParams("missing").Identity(), result.Order("random"))
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)

	release := make(chan struct{})
	defer close(release)
	s, _, _ := c.GetOrCreate(context.Background(), testParams("slow"),
		func(context.Context, func(result.Set)) (*result.Set, error) {
			<-release
			return &result.Set{}, nil
		})
	_, err = c.Resort(s.Identity(), result.OrderDate)
	assert.ErrorIs(t, err, domain.ErrSessionNotReady)

	ready, _, _ := c.GetOrCreate(context.Background(), testParams("berlin"), staticBuild(scoredSet()))
	_, err = c.Resort(ready.Identity(), result.OrderLocation)
	assert.ErrorIs(t, err, domain.ErrInvalidParameter)
	assert.Equal(t, DefaultResortPermits, ready.ResortPermits())
}

func TestResort_Location(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	p := query.NewParams(query.NewGoal([]string{"cafe"}, nil),
		query.Modifier{Radius: geo.Circle{Lat: 52.52, Lon: 13.405, RadiusKm: 500}},
		contentdom.Text, "", nil, strategy.IfExist, false, 100)
	set := result.Set{Items: []result.Item{
		{URL: "far", Lat: 48.137, Lon: 11.575, HasGeo: true},
		{URL: "near", Lat: 52.39, Lon: 13.06, HasGeo: true},
	}}

	s, _, err := c.GetOrCreate(context.Background(), p, staticBuild(set))
	require.NoError(t, err)
	ok, err := c.Resort(s.Identity(), result.OrderLocation)
	require.NoError(t, err)
	assert.True(t, ok)
	assert.Equal(t, []string{"near", "far"}, itemURLs(s))
}

func TestEviction_LeastRecentlyUsed(t *testing.T) {
	c := newTestCoordinator(t, Config{MaxSessions: 2})
	ctx := context.Background()

	a, _, _ := c.GetOrCreate(ctx, testParams("a"), staticBuild(scoredSet()))
	b, _, _ := c.GetOrCreate(ctx, testParams("b"), staticBuild(scoredSet()))
	_, ok := c.Get(a.Identity())
	require.True(t, ok)

	c.GetOrCreate(ctx, testParams("c"), staticBuild(scoredSet())) //nolint:errcheck

	require.Eventually(t, func() bool { return c.Len() == 2 }, time.Second, 5*time.Millisecond)
	_, ok = c.Get(b.Identity())
	assert.False(t, ok)
	_, ok = c.Get(a.Identity())
	assert.True(t, ok)
}

func TestEviction_SkipsBuildingSessions(t *testing.T) {
	c := newTestCoordinator(t, Config{MaxSessions: 1, WaitTimeout: 10 * time.Millisecond})
	ctx := context.Background()
	release := make(chan struct{})

	slow, _, _ := c.GetOrCreate(ctx, testParams("slow"),
		func(context.Context, func(result.Set)) (*result.Set, error) {
			<-release
			set := scoredSet()
			return &set, nil
		})
	fast, _, _ := c.GetOrCreate(ctx, testParams("fast"), staticBuild(scoredSet()))
	<-fast.Done()

	_, ok := c.Get(slow.Identity())
	assert.True(t, ok, "building session must not be evicted")

	close(release)
	<-slow.Done()
	require.Eventually(t, func() bool { return c.Len() == 1 }, time.Second, 5*time.Millisecond)
	assert.Len(t, slow.Items(), 3)
}

func TestCleanup(t *testing.T) {
	c := newTestCoordinator(t, Config{WaitTimeout: 10 * time.Millisecond})
	ctx := context.Background()

	ready, _, _ := c.GetOrCreate(ctx, testParams("ready"), staticBuild(scoredSet()))

	var calls atomic.Int32
	release := make(chan struct{})
	slowBuild := func(context.Context, func(result.Set)) (*result.Set, error) {
		calls.Add(1)
		<-release
		set := scoredSet()
		return &set, nil
	}
	building, _, _ := c.GetOrCreate(ctx, testParams("building"), slowBuild)

	c.Cleanup()
	_, ok := c.Get(ready.Identity())
	assert.False(t, ok)
	assert.Equal(t, StateEvicted, ready.State())
	assert.Equal(t, 1, c.Len())

	fresh, created, _ := c.GetOrCreate(ctx, testParams("building"), slowBuild)
	assert.True(t, created, "stale building session is not reused")
	assert.NotSame(t, building, fresh)
	require.Eventually(t, func() bool { return calls.Load() == 2 }, time.Second, 5*time.Millisecond)

	close(release)
	<-building.Done()
	<-fresh.Done()
	require.Eventually(t, func() bool {
		s, ok := c.Get(fresh.Identity())
		return ok && s == fresh
	}, time.Second, 5*time.Millisecond)
}

func TestNavGeneration(t *testing.T) {
	c := newTestCoordinator(t, Config{})
	hostsA := result.Facets{"hosts": {"a.example": 1}}
	hostsB := result.Facets{"hosts": {"a.example": 1, "b.example": 2}}

	s, _, err := c.GetOrCreate(context.Background(), testParams("berlin"),
		func(_ context.Context, publish func(result.Set)) (*result.Set, error) {
			publish(result.Set{Facets: hostsA})
			publish(result.Set{Facets: hostsA})
			return &result.Set{Facets: hostsB}, nil
		})
	require.NoError(t, err)
	assert.Equal(t, uint64(2), s.NavGeneration())
	assert.Equal(t, hostsB, s.Facets())
}

func TestClose(t *testing.T) {
	c, err := New(Config{}, zap.NewNop())
	require.NoError(t, err)
	c.Close()

	_, _, err = c.GetOrCreate(context.Background(), testParams("x"), staticBuild(scoredSet()))
	assert.ErrorIs(t, err, ErrClosed)
}
