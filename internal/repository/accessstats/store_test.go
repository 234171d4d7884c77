package accessstats

import (
	"context"
	"errors"
	"strconv"
	"testing"
	"time"

	"github.com/redis/rueidis/mock"
	"go.uber.org/mock/gomock"

	"github.com/kailas-cloud/searchgate/internal/db/redis"
	"github.com/kailas-cloud/searchgate/internal/domain/access"
)

type fakeStore struct {
	counters map[string]int64
	expires  map[string]time.Duration
	err      error
}

func newFakeStore() *fakeStore {
	return &fakeStore{counters: map[string]int64{}, expires: map[string]time.Duration{}}
}

func (f *fakeStore) MGet(_ context.Context, keys []string) ([][]byte, error) {
	if f.err != nil {
		return nil, f.err
	}
	out := make([][]byte, len(keys))
	for i, k := range keys {
		if v, ok := f.counters[k]; ok {
			out[i] = []byte(strconv.FormatInt(v, 10))
		}
	}
	return out, nil
}

func (f *fakeStore) IncrBy(_ context.Context, key string, val int64) error {
	if f.err != nil {
		return f.err
	}
	f.counters[key] += val
	return nil
}

func (f *fakeStore) Expire(_ context.Context, key string, ttl time.Duration, nx bool) error {
	if _, ok := f.expires[key]; ok && nx {
		return nil
	}
	f.expires[key] = ttl
	return nil
}

var day = time.Date(2024, 6, 1, 23, 30, 0, 0, time.UTC)

func TestKey(t *testing.T) {
	got := Key(access.ReasonTenMinuteLimit, day)
	if got != "searchgate:access:ten-minute-limit:2024-06-01" {
		t.Errorf("unexpected key: %s", got)
	}

	berlin := time.FixedZone("CEST", 2*3600)
	if got := Key(access.ReasonBlacklisted, day.In(berlin)); got != "searchgate:access:blacklisted:2024-06-01" {
		t.Errorf("key must use the UTC day, got %s", got)
	}
}

func TestRecordAndDaily(t *testing.T) {
	fs := newFakeStore()
	s := New(fs, 0)
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		if err := s.Record(ctx, access.ReasonThreeSecondLimit, day); err != nil {
			t.Fatalf("record: %v", err)
		}
	}
	if err := s.Record(ctx, access.ReasonBlacklisted, day); err != nil {
		t.Fatalf("record: %v", err)
	}

	got, err := s.Daily(ctx, day)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if got[access.ReasonThreeSecondLimit] != 3 || got[access.ReasonBlacklisted] != 1 {
		t.Errorf("unexpected counters: %v", got)
	}
	if got[access.ReasonOneMinuteLimit] != 0 {
		t.Errorf("missing counter should be 0, got %d", got[access.ReasonOneMinuteLimit])
	}
	if ttl := fs.expires[Key(access.ReasonThreeSecondLimit, day)]; ttl != DefaultTTL {
		t.Errorf("expected default TTL, got %v", ttl)
	}
}

func TestRecord_StoreError(t *testing.T) {
	fs := newFakeStore()
	fs.err = errors.New("down")
	s := New(fs, time.Hour)

	if err := s.Record(context.Background(), access.ReasonBlacklisted, day); err == nil {
		t.Fatal("expected error")
	}
	if _, err := s.Daily(context.Background(), day); err == nil {
		t.Fatal("expected error")
	}
}

func TestDaily_WithRedisStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)

	c.EXPECT().
		Do(gomock.Any(), mock.Match("MGET",
			"searchgate:access:blacklisted:2024-06-01",
			"searchgate:access:ten-minute-limit:2024-06-01",
			"searchgate:access:one-minute-limit:2024-06-01",
			"searchgate:access:three-second-limit:2024-06-01",
		)).
		Return(mock.Result(mock.RedisArray(
			mock.RedisNil(),
			mock.RedisBlobString("7"),
			mock.RedisNil(),
			mock.RedisBlobString("12"),
		)))

	s := New(redis.NewStoreForTest(c), time.Hour)
	got, err := s.Daily(context.Background(), day)
	if err != nil {
		t.Fatalf("daily: %v", err)
	}
	if got[access.ReasonTenMinuteLimit] != 7 || got[access.ReasonThreeSecondLimit] != 12 {
		t.Errorf("unexpected counters: %v", got)
	}
}

func TestRecord_WithRedisStore(t *testing.T) {
	ctrl := gomock.NewController(t)
	c := mock.NewClient(ctrl)
	key := "searchgate:access:one-minute-limit:2024-06-01"

	gomock.InOrder(
		c.EXPECT().Do(gomock.Any(), mock.Match("INCRBY", key, "1")).
			Return(mock.Result(mock.RedisInt64(1))),
		c.EXPECT().Do(gomock.Any(), mock.Match("EXPIRE", key, "172800", "NX")).
			Return(mock.Result(mock.RedisInt64(1))),
	)

	s := New(redis.NewStoreForTest(c), 0)
	if err := s.Record(context.Background(), access.ReasonOneMinuteLimit, day); err != nil {
		t.Fatalf("record: %v", err)
	}
}
