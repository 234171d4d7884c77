// Package session coordinates search sessions: at most one RetrieveAndRank
// computation per canonical query identity, shared by every request that
// presents the same identity while the session lives in the cache.
package session

import (
	"container/list"
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"

	"github.com/kailas-cloud/searchgate/internal/domain"
	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/domain/result"
	"github.com/kailas-cloud/searchgate/internal/metrics"
)

// ErrClosed is returned by GetOrCreate after Close.
var ErrClosed = errors.New("session coordinator closed")

// BuildFunc runs RetrieveAndRank for a new session. It may call publish with
// progress snapshots; the returned set is final. ctx carries the build budget.
type BuildFunc func(ctx context.Context, publish func(result.Set)) (*result.Set, error)

// Coordinator owns the identity -> session cache. It is safe for concurrent use.
type Coordinator struct {
	cfg    Config
	logger *zap.Logger
	pool   *ants.Pool
	now    func() time.Time

	mu      sync.Mutex
	entries map[query.Identity]*list.Element
	lru     *list.List // front is most recently used
	closed  bool
}

// New creates a coordinator and its build pool.
func New(cfg Config, logger *zap.Logger) (*Coordinator, error) {
	cfg.ApplyDefaults()
	pool, err := ants.NewPool(cfg.PoolSize, ants.WithMaxBlockingTasks(cfg.PoolSize*4))
	if err != nil {
		return nil, fmt.Errorf("create build pool: %w", err)
	}
	return &Coordinator{
		cfg:     cfg,
		logger:  logger,
		pool:    pool,
		now:     time.Now,
		entries: make(map[query.Identity]*list.Element),
		lru:     list.New(),
	}, nil
}

// GetOrCreate returns the session for params' identity, starting a build when
// none is cached. created reports whether this call started the build. The
// caller waits for the build up to WaitTimeout or until ctx ends, then gets
// the session in whatever state it has reached.
func (c *Coordinator) GetOrCreate(
	ctx context.Context, params query.Params, build BuildFunc,
) (s *Session, created bool, err error) {
	id := params.Identity()
	now := c.now()

	c.mu.Lock()
	if c.closed {
		c.mu.Unlock()
		return nil, false, ErrClosed
	}
	if el, ok := c.entries[id]; ok {
		existing := el.Value.(*Session)
		switch {
		case existing.expired(now, c.cfg.SessionTTL):
			c.removeLocked(el)
			metrics.SessionEventsTotal.WithLabelValues("expired").Inc()
		case existing.stale.Load():
			c.removeLocked(el)
		default:
			c.lru.MoveToFront(el)
			c.mu.Unlock()
			metrics.SessionEventsTotal.WithLabelValues("reused").Inc()
			return c.wait(ctx, existing, false)
		}
	}

	s = newSession(params, c.cfg.ResortPermits, now)
	c.entries[id] = c.lru.PushFront(s)
	c.evictLocked()
	metrics.SessionsActive.Set(float64(c.lru.Len()))
	c.mu.Unlock()

	metrics.SessionEventsTotal.WithLabelValues("created").Inc()
	c.logger.Debug("Session created",
		zap.String("identity", id.String()),
		zap.String("instance_id", s.instanceID),
	)

	if err := c.pool.Submit(func() { c.run(s, build) }); err != nil {
		c.logger.Warn("Session build rejected", zap.String("identity", id.String()), zap.Error(err))
		s.degrade(fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err))
		c.release(s)
	}
	return c.wait(ctx, s, true)
}

// wait blocks until the build finishes, WaitTimeout passes or ctx ends.
func (c *Coordinator) wait(ctx context.Context, s *Session, created bool) (*Session, bool, error) {
	timer := time.NewTimer(c.cfg.WaitTimeout)
	defer timer.Stop()

	select {
	case <-s.Done():
	case <-timer.C:
	case <-ctx.Done():
	}

	if err := s.Err(); err != nil && errors.Is(err, domain.ErrInternalInconsistency) {
		return nil, created, err
	}
	return s, created, nil
}

// run executes build on a pool worker.
func (c *Coordinator) run(s *Session, build BuildFunc) {
	ctx, cancel := context.WithTimeout(context.Background(), c.cfg.BuildTimeout)
	defer cancel()

	start := time.Now()
	set, err := safeBuild(ctx, build, s.publish)
	elapsed := time.Since(start)
	log := c.logger.With(
		zap.String("identity", s.identity.String()),
		zap.String("instance_id", s.instanceID),
		zap.Duration("duration", elapsed),
	)

	switch {
	case errors.Is(err, domain.ErrInternalInconsistency):
		metrics.SessionBuildDuration.WithLabelValues("inconsistent").Observe(elapsed.Seconds())
		log.Error("Session build inconsistent", zap.Error(err))
		s.abort(err)
		c.release(s)
	case err != nil:
		metrics.SessionBuildDuration.WithLabelValues("error").Observe(elapsed.Seconds())
		metrics.SessionEventsTotal.WithLabelValues("failed").Inc()
		log.Warn("Session build failed, serving partial state", zap.Error(err))
		if !errors.Is(err, domain.ErrBackendUnavailable) {
			err = fmt.Errorf("%w: %w", domain.ErrBackendUnavailable, err)
		}
		s.degrade(err)
		c.release(s)
	case set == nil:
		metrics.SessionBuildDuration.WithLabelValues("inconsistent").Observe(elapsed.Seconds())
		err = fmt.Errorf("%w: build returned no result set", domain.ErrInternalInconsistency)
		log.Error("Session build inconsistent", zap.Error(err))
		s.abort(err)
		c.release(s)
	default:
		metrics.SessionBuildDuration.WithLabelValues("ok").Observe(elapsed.Seconds())
		s.finish(set)
		log.Debug("Session ready", zap.Int("items", len(set.Items)))
		if s.stale.Load() {
			c.release(s)
			return
		}
		c.mu.Lock()
		c.evictLocked()
		c.mu.Unlock()
	}
}

func safeBuild(ctx context.Context, build BuildFunc, publish func(result.Set)) (set *result.Set, err error) {
	defer func() {
		if r := recover(); r != nil {
			set = nil
			err = fmt.Errorf("%w: build panicked: %v", domain.ErrInternalInconsistency, r)
		}
	}()
	return build(ctx, publish)
}

// Get returns a live session by identity.
func (c *Coordinator) Get(id query.Identity) (*Session, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[id]
	if !ok {
		return nil, false
	}
	s := el.Value.(*Session)
	if s.expired(c.now(), c.cfg.SessionTTL) {
		c.removeLocked(el)
		metrics.SessionEventsTotal.WithLabelValues("expired").Inc()
		return nil, false
	}
	c.lru.MoveToFront(el)
	return s, true
}

// Resort reorders a ready session if it has a resort permit left. It returns
// false without touching the order when the permits are exhausted.
func (c *Coordinator) Resort(id query.Identity, order result.Order) (bool, error) {
	if !order.IsValid() {
		return false, fmt.Errorf("%w: order %q", domain.ErrInvalidParameter, order)
	}
	s, ok := c.Get(id)
	if !ok {
		return false, domain.ErrSessionNotFound
	}
	if s.State() != StateReady {
		return false, domain.ErrSessionNotReady
	}
	if order == result.OrderLocation && s.params.Modifier.Radius.IsZero() {
		return false, fmt.Errorf("%w: location order needs a /radius center", domain.ErrInvalidParameter)
	}
	if !s.takePermit() {
		metrics.SessionResortsTotal.WithLabelValues("refused").Inc()
		return false, nil
	}
	s.resort(order)
	metrics.SessionResortsTotal.WithLabelValues("applied").Inc()
	return true, nil
}

// Cleanup drops every ready session. Building sessions are marked stale and
// dropped when their build completes; new requests start a fresh build.
func (c *Coordinator) Cleanup() {
	c.mu.Lock()
	defer c.mu.Unlock()

	dropped, stale := 0, 0
	for el := c.lru.Front(); el != nil; {
		next := el.Next()
		s := el.Value.(*Session)
		if s.State() == StateBuilding {
			s.stale.Store(true)
			stale++
		} else {
			c.removeLocked(el)
			dropped++
		}
		el = next
	}
	metrics.SessionEventsTotal.WithLabelValues("cleared").Add(float64(dropped))
	c.logger.Info("Sessions cleared", zap.Int("dropped", dropped), zap.Int("stale", stale))
}

// Len returns the number of cached sessions.
func (c *Coordinator) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.lru.Len()
}

// Close stops the build pool. Running builds finish; new requests fail.
func (c *Coordinator) Close() {
	c.mu.Lock()
	c.closed = true
	c.mu.Unlock()
	c.pool.Release()
}

// release removes s from the cache if it is still the entry for its identity.
func (c *Coordinator) release(s *Session) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if el, ok := c.entries[s.identity]; ok && el.Value.(*Session) == s {
		c.removeLocked(el)
	}
}

// evictLocked drops least recently used sessions over capacity, skipping
// sessions that are still building. Caller holds c.mu.
func (c *Coordinator) evictLocked() {
	for el := c.lru.Back(); el != nil && c.lru.Len() > c.cfg.MaxSessions; {
		prev := el.Prev()
		if el.Value.(*Session).State() != StateBuilding {
			c.removeLocked(el)
			metrics.SessionEventsTotal.WithLabelValues("evicted").Inc()
		}
		el = prev
	}
}

func (c *Coordinator) removeLocked(el *list.Element) {
	s := el.Value.(*Session)
	c.lru.Remove(el)
	delete(c.entries, s.identity)
	s.markEvicted()
	metrics.SessionsActive.Set(float64(c.lru.Len()))
}
