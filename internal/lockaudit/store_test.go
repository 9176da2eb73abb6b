package lockaudit

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestHumanizeDelta(t *testing.T) {
	cases := []struct {
		in   time.Duration
		want string
	}{
		{0, "0 seconds"},
		{-time.Minute, "0 seconds"},
		{time.Second, "1 second"},
		{90 * time.Second, "1 minute, 30 seconds"},
		{3 * time.Hour, "3 hours"},
		{76*time.Hour + 30*time.Minute, "3 days, 4 hours"},
		{25 * time.Hour, "1 day, 1 hour"},
	}
	for _, tc := range cases {
		if got := humanizeDelta(tc.in); got != tc.want {
			t.Errorf("humanizeDelta(%v) = %q, want %q", tc.in, got, tc.want)
		}
	}
}

func TestAccountLockLockedAt(t *testing.T) {
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	var l AccountLock
	if l.LockedAt(now) {
		t.Fatal("zero record should not be locked")
	}

	future := now.Add(5 * time.Minute)
	l.LockoutUntil = &future
	if !l.LockedAt(now) {
		t.Fatal("record with future lockout_until should be locked")
	}
	if l.LockedAt(future.Add(time.Second)) {
		t.Fatal("record should unlock after lockout_until passes")
	}
}

func TestMemoryStoreIPLockLifecycle(t *testing.T) {
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore(func() time.Time { return clock })
	ctx := context.Background()

	if _, err := store.GetIPLock(ctx, "10.0.0.9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}

	if err := store.UpsertIPLock(ctx, "10.0.0.9", "alice"); err != nil {
		t.Fatalf("UpsertIPLock error: %v", err)
	}
	clock = clock.Add(3 * time.Hour)
	if err := store.UpsertIPLock(ctx, "10.0.0.9", ""); err != nil {
		t.Fatalf("UpsertIPLock error: %v", err)
	}

	rec, err := store.GetIPLock(ctx, "10.0.0.9")
	if err != nil {
		t.Fatalf("GetIPLock error: %v", err)
	}
	if rec.LockoutCount != 2 {
		t.Fatalf("lockout count = %d, want 2", rec.LockoutCount)
	}
	if rec.LatestUsername != "alice" {
		t.Fatalf("empty username should not overwrite latest, got %q", rec.LatestUsername)
	}
	if got := rec.LockoutDuration(); got != "3 hours" {
		t.Fatalf("LockoutDuration = %q, want %q", got, "3 hours")
	}

	if err := store.DeleteIPLock(ctx, "10.0.0.9"); err != nil {
		t.Fatalf("DeleteIPLock error: %v", err)
	}
	if _, err := store.GetIPLock(ctx, "10.0.0.9"); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := store.DeleteIPLock(ctx, "10.0.0.9"); err != nil {
		t.Fatalf("deleting an absent record should not error: %v", err)
	}
}

func TestMemoryStoreListIPLocksOrderAndPaging(t *testing.T) {
	clock := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	store := NewMemoryStore(func() time.Time { return clock })
	ctx := context.Background()

	for _, ip := range []string{"10.0.0.1", "10.0.0.2", "10.0.0.3"} {
		if err := store.UpsertIPLock(ctx, ip, ""); err != nil {
			t.Fatalf("UpsertIPLock error: %v", err)
		}
		clock = clock.Add(time.Minute)
	}

	out, err := store.ListIPLocks(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("ListIPLocks error: %v", err)
	}
	if len(out) != 3 || out[0].IPAddress != "10.0.0.3" {
		t.Fatalf("expected most recently updated first, got %+v", out)
	}

	page, err := store.ListIPLocks(ctx, ListFilter{Page: 2, PerPage: 2})
	if err != nil {
		t.Fatalf("ListIPLocks error: %v", err)
	}
	if len(page) != 1 || page[0].IPAddress != "10.0.0.1" {
		t.Fatalf("unexpected second page: %+v", page)
	}

	empty, err := store.ListIPLocks(ctx, ListFilter{Page: 5, PerPage: 2})
	if err != nil {
		t.Fatalf("ListIPLocks error: %v", err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty page, got %+v", empty)
	}
}

func TestMemoryStoreAccountFailureThreshold(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	now := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

	for i := 1; i < 5; i++ {
		rec, err := store.RecordAccountFailure(ctx, "alice", 5, 15*time.Minute, now)
		if err != nil {
			t.Fatalf("RecordAccountFailure error: %v", err)
		}
		if rec.FailureCount != i {
			t.Fatalf("failure count = %d, want %d", rec.FailureCount, i)
		}
		if rec.LockoutUntil != nil {
			t.Fatalf("lockout set before threshold: %+v", rec)
		}
	}

	rec, err := store.RecordAccountFailure(ctx, "alice", 5, 15*time.Minute, now)
	if err != nil {
		t.Fatalf("RecordAccountFailure error: %v", err)
	}
	if rec.FailureCount != 0 {
		t.Fatalf("failure count should reset at threshold, got %d", rec.FailureCount)
	}
	want := now.Add(15 * time.Minute)
	if rec.LockoutUntil == nil || !rec.LockoutUntil.Equal(want) {
		t.Fatalf("lockout_until = %v, want %v", rec.LockoutUntil, want)
	}
	if !rec.LockedAt(now.Add(time.Minute)) {
		t.Fatal("account should be locked during cooldown")
	}

	if err := store.ClearAccountLock(ctx, "alice"); err != nil {
		t.Fatalf("ClearAccountLock error: %v", err)
	}
	got, err := store.GetAccountLock(ctx, "alice")
	if err != nil {
		t.Fatalf("GetAccountLock error: %v", err)
	}
	if got.FailureCount != 0 || got.LockoutUntil != nil {
		t.Fatalf("clear should zero the record, got %+v", got)
	}
}

func TestMemoryStoreListAccountLocksOrder(t *testing.T) {
	store := NewMemoryStore(nil)
	ctx := context.Background()
	now := time.Now()

	for i := 0; i < 3; i++ {
		if _, err := store.RecordAccountFailure(ctx, "bob", 10, time.Minute, now); err != nil {
			t.Fatalf("RecordAccountFailure error: %v", err)
		}
	}
	if _, err := store.RecordAccountFailure(ctx, "alice", 10, time.Minute, now); err != nil {
		t.Fatalf("RecordAccountFailure error: %v", err)
	}

	out, err := store.ListAccountLocks(ctx, ListFilter{})
	if err != nil {
		t.Fatalf("ListAccountLocks error: %v", err)
	}
	if len(out) != 2 || out[0].Username != "bob" || out[1].Username != "alice" {
		t.Fatalf("expected most failures first, got %+v", out)
	}
}
