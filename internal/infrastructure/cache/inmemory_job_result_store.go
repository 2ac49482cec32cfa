package cache

import (
	"context"
	"sync"
	"time"
)

type jobEntry struct {
	rec       JobRecord
	expiresAt time.Time
}

// InMemoryJobResultStore implements JobResultStore with a map.
// Records are only visible to the process that wrote them.
type InMemoryJobResultStore struct {
	mu        sync.RWMutex
	entries   map[string]jobEntry
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryJobResultStore creates the store and starts its expiry sweep
func NewInMemoryJobResultStore() *InMemoryJobResultStore {
	return newInMemoryJobResultStore(5*time.Minute, time.Now)
}

func newInMemoryJobResultStore(sweepEvery time.Duration, now func() time.Time) *InMemoryJobResultStore {
	s := &InMemoryJobResultStore{
		entries:  make(map[string]jobEntry),
		now:      now,
		stopChan: make(chan struct{}),
	}
	s.wg.Add(1)
	go s.cleanupLoop(sweepEvery)
	return s
}

// Put stores the record. A non-positive ttl keeps it until Close.
func (s *InMemoryJobResultStore) Put(ctx context.Context, rec JobRecord, ttl time.Duration) error {
	if rec.JobID == "" {
		return ErrEmptyJobID
	}
	now := s.now()
	if rec.UpdatedAt.IsZero() {
		rec.UpdatedAt = now
	}
	rec.Result = append(rec.Result[:0:0], rec.Result...)

	var expiresAt time.Time
	if ttl > 0 {
		expiresAt = now.Add(ttl)
	}

	s.mu.Lock()
	s.entries[rec.JobID] = jobEntry{rec: rec, expiresAt: expiresAt}
	s.mu.Unlock()
	return nil
}

// Get returns a copy of the record
func (s *InMemoryJobResultStore) Get(ctx context.Context, jobID string) (*JobRecord, bool, error) {
	s.mu.RLock()
	e, ok := s.entries[jobID]
	s.mu.RUnlock()

	if !ok || e.expired(s.now()) {
		return nil, false, nil
	}
	rec := e.rec
	return &rec, true, nil
}

// Close stops the sweep goroutine. Safe to call multiple times.
func (s *InMemoryJobResultStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

// Size returns the number of stored entries, expired ones included
func (s *InMemoryJobResultStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *InMemoryJobResultStore) cleanupLoop(every time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-s.stopChan:
			return
		case <-ticker.C:
			s.cleanup()
		}
	}
}

func (s *InMemoryJobResultStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if e.expired(now) {
			delete(s.entries, id)
		}
	}
}

func (e jobEntry) expired(now time.Time) bool {
	return !e.expiresAt.IsZero() && !now.Before(e.expiresAt)
}

var _ JobResultStore = (*InMemoryJobResultStore)(nil)
