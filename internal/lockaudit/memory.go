package lockaudit

import (
	"context"
	"sort"
	"sync"
	"time"
)

// MemoryStore is a mutex-guarded [Store] for tests and single-node
// development. Semantics mirror the Postgres implementation.
type MemoryStore struct {
	mu       sync.Mutex
	ips      map[string]*IPLock
	accounts map[string]*AccountLock
	now      func() time.Time
}

// NewMemoryStore creates an empty in-memory store. The clock is
// injectable for tests; nil means time.Now.
func NewMemoryStore(now func() time.Time) *MemoryStore {
	if now == nil {
		now = time.Now
	}
	return &MemoryStore{
		ips:      make(map[string]*IPLock),
		accounts: make(map[string]*AccountLock),
		now:      now,
	}
}

func (s *MemoryStore) UpsertIPLock(_ context.Context, ip, latestUsername string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	if rec, ok := s.ips[ip]; ok {
		rec.LockoutCount++
		rec.UpdatedAt = now
		if latestUsername != "" {
			rec.LatestUsername = latestUsername
		}
		return nil
	}

	s.ips[ip] = &IPLock{
		IPAddress:      ip,
		LockoutCount:   1,
		LatestUsername: latestUsername,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	return nil
}

func (s *MemoryStore) GetIPLock(_ context.Context, ip string) (IPLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.ips[ip]
	if !ok {
		return IPLock{}, ErrNotFound
	}
	return *rec, nil
}

func (s *MemoryStore) ListIPLocks(_ context.Context, f ListFilter) ([]IPLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]IPLock, 0, len(s.ips))
	for _, rec := range s.ips {
		if f.IP != "" && rec.IPAddress != f.IP {
			continue
		}
		if f.Username != "" && rec.LatestUsername != f.Username {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].UpdatedAt.After(out[j].UpdatedAt) })

	return pageSlice(out, f), nil
}

func (s *MemoryStore) DeleteIPLock(_ context.Context, ip string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	delete(s.ips, ip)
	return nil
}

func (s *MemoryStore) RecordAccountFailure(_ context.Context, username string, threshold int, cooldown time.Duration, now time.Time) (AccountLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[username]
	if !ok {
		rec = &AccountLock{Username: username}
		s.accounts[username] = rec
	}
	rec.FailureCount++

	if threshold > 0 && rec.FailureCount >= threshold {
		until := now.Add(cooldown)
		rec.FailureCount = 0
		rec.LockoutUntil = &until
	}
	return *rec, nil
}

func (s *MemoryStore) GetAccountLock(_ context.Context, username string) (AccountLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, ok := s.accounts[username]
	if !ok {
		return AccountLock{}, ErrNotFound
	}
	return *rec, nil
}

func (s *MemoryStore) ListAccountLocks(_ context.Context, f ListFilter) ([]AccountLock, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]AccountLock, 0, len(s.accounts))
	for _, rec := range s.accounts {
		if f.Username != "" && rec.Username != f.Username {
			continue
		}
		out = append(out, *rec)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].FailureCount != out[j].FailureCount {
			return out[i].FailureCount > out[j].FailureCount
		}
		return out[i].Username < out[j].Username
	})

	return pageSlice(out, f), nil
}

func (s *MemoryStore) ClearAccountLock(_ context.Context, username string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if rec, ok := s.accounts[username]; ok {
		rec.FailureCount = 0
		rec.LockoutUntil = nil
	}
	return nil
}

func pageSlice[T any](in []T, f ListFilter) []T {
	limit, offset := f.limitOffset()
	if offset >= uint64(len(in)) {
		return nil
	}
	in = in[offset:]
	if uint64(len(in)) > limit {
		in = in[:limit]
	}
	return in
}
