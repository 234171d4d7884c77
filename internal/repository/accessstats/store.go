package accessstats

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/kailas-cloud/searchgate/internal/domain"
	"github.com/kailas-cloud/searchgate/internal/domain/access"
)

// DefaultTTL keeps a daily counter for two days.
const DefaultTTL = 48 * time.Hour

// BlockReasons are the reasons with a persisted counter.
var BlockReasons = []access.Reason{
	access.ReasonBlacklisted,
	access.ReasonTenMinuteLimit,
	access.ReasonOneMinuteLimit,
	access.ReasonThreeSecondLimit,
}

// store is the consumer interface for counter operations (ISP).
type store interface {
	MGet(ctx context.Context, keys []string) ([][]byte, error)
	IncrBy(ctx context.Context, key string, val int64) error
	Expire(ctx context.Context, key string, ttl time.Duration, nx bool) error
}

// Store persists daily per-reason block counters (INCRBY + EXPIRE NX).
type Store struct {
	store store
	ttl   time.Duration
}

// New creates a counter store. A non-positive ttl falls back to DefaultTTL.
func New(s store, ttl time.Duration) *Store {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Store{store: s, ttl: ttl}
}

// Key returns the counter key for reason on the UTC day of t.
func Key(reason access.Reason, t time.Time) string {
	return fmt.Sprintf("%saccess:%s:%s", domain.KeyPrefix, reason, t.UTC().Format("2006-01-02"))
}

// Record increments the counter for reason on the day of at.
func (s *Store) Record(ctx context.Context, reason access.Reason, at time.Time) error {
	key := Key(reason, at)
	if err := s.store.IncrBy(ctx, key, 1); err != nil {
		return fmt.Errorf("access stats INCRBY %s: %w", key, err)
	}

	// Set TTL only if the key has no expiry yet, so repeated hits do not extend it.
	if err := s.store.Expire(ctx, key, s.ttl, true); err != nil {
		return fmt.Errorf("access stats EXPIRE %s: %w", key, err)
	}
	return nil
}

// Daily returns the block counters of the day of t. Missing keys count as 0.
func (s *Store) Daily(ctx context.Context, t time.Time) (map[access.Reason]int64, error) {
	keys := make([]string, len(BlockReasons))
	for i, r := range BlockReasons {
		keys[i] = Key(r, t)
	}
	vals, err := s.store.MGet(ctx, keys)
	if err != nil {
		return nil, fmt.Errorf("access stats MGET: %w", err)
	}

	out := make(map[access.Reason]int64, len(BlockReasons))
	for i, r := range BlockReasons {
		out[r] = 0
		if i >= len(vals) || vals[i] == nil {
			continue
		}
		n, err := strconv.ParseInt(string(vals[i]), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("access stats %s parse: %w", keys[i], err)
		}
		out[r] = n
	}
	return out, nil
}
