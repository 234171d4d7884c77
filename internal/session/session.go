package session

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/kailas-cloud/searchgate/internal/domain/query"
	"github.com/kailas-cloud/searchgate/internal/domain/result"
)

// State is the lifecycle position of a session.
type State string

// State constants.
const (
	StateBuilding State = "building"
	StateReady    State = "ready"
	StateEvicted  State = "evicted"
)

// Session is one search computation shared by every request with the same
// canonical identity. Items are swapped atomically, so readers see either the
// order before or after a resort.
type Session struct {
	instanceID string
	identity   query.Identity
	params     query.Params
	createdAt  time.Time

	done     chan struct{}
	doneOnce sync.Once

	items         atomic.Pointer[[]result.Item]
	resortPermits atomic.Int32
	navGeneration atomic.Uint64
	stale         atomic.Bool

	mu          sync.RWMutex
	state       State
	order       result.Order
	counters    result.Counters
	facets      result.Facets
	suggestions []string
	partial     bool
	err         error
}

func newSession(params query.Params, permits int, now time.Time) *Session {
	s := &Session{
		instanceID: newInstanceID(),
		identity:   params.Identity(),
		params:     params,
		createdAt:  now,
		done:       make(chan struct{}),
		state:      StateBuilding,
		order:      result.OrderRelevance,
	}
	empty := []result.Item{}
	s.items.Store(&empty)
	s.resortPermits.Store(int32(permits))
	return s
}

func newInstanceID() string {
	if id, err := uuid.NewV7(); err == nil {
		return id.String()
	}
	return uuid.NewString()
}

// InstanceID distinguishes this computation from earlier ones for the same identity.
func (s *Session) InstanceID() string { return s.instanceID }

// Identity returns the canonical query identity.
func (s *Session) Identity() query.Identity { return s.identity }

// Params returns the resolved query parameters.
func (s *Session) Params() query.Params { return s.params }

// CreatedAt returns when the build started.
func (s *Session) CreatedAt() time.Time { return s.createdAt }

// Done is closed when the build has finished, successfully or not.
func (s *Session) Done() <-chan struct{} { return s.done }

// State returns the lifecycle state.
func (s *Session) State() State {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Items returns the current ordered snapshot. Callers must not modify it.
func (s *Session) Items() []result.Item { return *s.items.Load() }

// Page returns a copy of the items in [offset, offset+count).
func (s *Session) Page(offset, count int) []result.Item {
	return result.Page(s.Items(), offset, count)
}

// Order returns the order the items are currently sorted by.
func (s *Session) Order() result.Order {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.order
}

// Counters returns the result counters.
func (s *Session) Counters() result.Counters {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.counters
}

// Facets returns a copy of the navigator facets.
func (s *Session) Facets() result.Facets {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.facets.Clone()
}

// Suggestions returns query suggestions from the backend.
func (s *Session) Suggestions() []string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return append([]string(nil), s.suggestions...)
}

// Partial reports whether the session is still building, or finished with
// only part of the sources answering.
func (s *Session) Partial() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.partial || s.state == StateBuilding
}

// Err returns the build error of a degraded session.
func (s *Session) Err() error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.err
}

// NavGeneration increases every time the facets change.
func (s *Session) NavGeneration() uint64 { return s.navGeneration.Load() }

// ResortPermits returns the number of resorts left.
func (s *Session) ResortPermits() int { return int(s.resortPermits.Load()) }

// publish merges a progress snapshot from the backend into the session.
func (s *Session) publish(set result.Set) {
	items := append([]result.Item(nil), set.Items...)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state != StateBuilding {
		return
	}
	s.items.Store(&items)
	s.counters = set.Counters
	s.suggestions = append([]string(nil), set.Suggestions...)
	s.partial = set.Partial
	if !facetsEqual(s.facets, set.Facets) {
		s.facets = set.Facets.Clone()
		s.navGeneration.Add(1)
	}
}

// finish publishes the final set and releases waiters.
func (s *Session) finish(set *result.Set) {
	s.publish(*set)
	s.mu.Lock()
	s.state = StateReady
	s.mu.Unlock()
	s.close()
}

// degrade marks the session ready with whatever it holds and records err.
func (s *Session) degrade(err error) {
	s.mu.Lock()
	s.state = StateReady
	s.partial = true
	s.err = err
	s.mu.Unlock()
	s.close()
}

// abort ends the session without a usable result.
func (s *Session) abort(err error) {
	s.mu.Lock()
	s.state = StateEvicted
	s.err = err
	s.mu.Unlock()
	s.close()
}

func (s *Session) markEvicted() {
	s.mu.Lock()
	if s.state == StateReady {
		s.state = StateEvicted
	}
	s.mu.Unlock()
}

func (s *Session) close() {
	s.doneOnce.Do(func() { close(s.done) })
}

// takePermit consumes one resort permit.
func (s *Session) takePermit() bool {
	for {
		n := s.resortPermits.Load()
		if n <= 0 {
			return false
		}
		if s.resortPermits.CompareAndSwap(n, n-1) {
			return true
		}
	}
}

// resort sorts the items and swaps them in.
func (s *Session) resort(order result.Order) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sorted := result.Sort(s.Items(), order, s.params.Modifier.Radius)
	s.items.Store(&sorted)
	s.order = order
}

func (s *Session) expired(now time.Time, ttl time.Duration) bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state == StateReady && now.Sub(s.createdAt) >= ttl
}

func facetsEqual(a, b result.Facets) bool {
	if len(a) != len(b) {
		return false
	}
	for name, ac := range a {
		bc, ok := b[name]
		if !ok || len(ac) != len(bc) {
			return false
		}
		for k, v := range ac {
			if bv, ok := bc[k]; !ok || bv != v {
				return false
			}
		}
	}
	return true
}
