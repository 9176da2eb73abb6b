package rate

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
)

func newTestStore(t *testing.T) (*Store, *miniredis.Miniredis) {
	t.Helper()

	mr, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis run failed: %v", err)
	}
	t.Cleanup(mr.Close)

	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = rdb.Close() })

	return NewStore(rdb), mr
}

func TestIncrIsMonotonicWithinWindow(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	var last int64
	for i := 1; i <= 5; i++ {
		count, err := store.Incr(ctx, "rlip:203.0.113.7:202501010000", time.Minute)
		if err != nil {
			t.Fatalf("incr %d failed: %v", i, err)
		}
		if count != int64(i) {
			t.Fatalf("expected count %d, got %d", i, count)
		}
		if count < last {
			t.Fatalf("counter decreased: %d -> %d", last, count)
		}
		last = count
	}
}

func TestIncrTTLNotRefreshed(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	key := "rlip:203.0.113.7:202501010000"
	if _, err := store.Incr(ctx, key, time.Minute); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(30 * time.Second)
	if _, err := store.Incr(ctx, key, time.Minute); err != nil {
		t.Fatal(err)
	}

	// The second increment must not reset the window.
	mr.FastForward(31 * time.Second)
	count, err := store.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected key expired after original TTL, got count %d", count)
	}
}

func TestKeyExpiresAfterWindow(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	key := "rlip:198.51.100.1:202501010000"
	if _, err := store.Incr(ctx, key, 5*time.Minute); err != nil {
		t.Fatal(err)
	}

	mr.FastForward(5*time.Minute + time.Second)

	count, err := store.Get(ctx, key)
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected expired key to read as absent, got %d", count)
	}
}

func TestSumSkipsMissingKeys(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Incr(ctx, "rlip:a:1", time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Incr(ctx, "rlip:a:1", time.Minute); err != nil {
		t.Fatal(err)
	}
	if _, err := store.Incr(ctx, "rlip:a:2", time.Minute); err != nil {
		t.Fatal(err)
	}

	total, err := store.Sum(ctx, []string{"rlip:a:1", "rlip:a:2", "rlip:a:missing"})
	if err != nil {
		t.Fatal(err)
	}
	if total != 3 {
		t.Fatalf("expected sum 3, got %d", total)
	}
}

func TestDeleteManyIgnoresMissing(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()

	if _, err := store.Incr(ctx, "rlip:b:1", time.Minute); err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteMany(ctx, []string{"rlip:b:1", "rlip:b:never-existed"}); err != nil {
		t.Fatalf("delete_many failed: %v", err)
	}

	count, err := store.Get(ctx, "rlip:b:1")
	if err != nil {
		t.Fatal(err)
	}
	if count != 0 {
		t.Fatalf("expected deleted key to be absent, got %d", count)
	}
}

func TestDeleteByPatternRemovesOnlyMatches(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()

	for _, key := range []string{
		"rlacct:203.0.113.7:alice:202501010000",
		"rlacct:203.0.113.7:bob:202501010000",
		"rlacct:198.51.100.9:alice:202501010000",
		"rlip:203.0.113.7:202501010000",
	} {
		if _, err := store.Incr(ctx, key, time.Minute); err != nil {
			t.Fatal(err)
		}
	}

	if err := store.DeleteByPattern(ctx, "rlacct:203.0.113.7:*"); err != nil {
		t.Fatalf("delete_by_pattern failed: %v", err)
	}

	for _, key := range []string{
		"rlacct:203.0.113.7:alice:202501010000",
		"rlacct:203.0.113.7:bob:202501010000",
	} {
		if mr.Exists(key) {
			t.Fatalf("key %q survived pattern delete", key)
		}
	}
	for _, key := range []string{
		"rlacct:198.51.100.9:alice:202501010000",
		"rlip:203.0.113.7:202501010000",
	} {
		if !mr.Exists(key) {
			t.Fatalf("key %q outside the pattern was deleted", key)
		}
	}
}

func TestStoreErrorsWrapRedisUnavailable(t *testing.T) {
	store, mr := newTestStore(t)
	mr.Close()

	_, err := store.Incr(context.Background(), "rlip:c:1", time.Minute)
	if err == nil {
		t.Fatal("expected error after backend shutdown")
	}
}
