package cache

import (
	"context"
	"maps"
	"sync"
	"time"
)

const defaultCleanupInterval = time.Minute

type flashEntry struct {
	messages  map[string]string
	expiresAt time.Time
}

// InMemoryFlashStore implements FlashStore using an in-memory map.
// This is suitable for single-instance deployments and testing
type InMemoryFlashStore struct {
	mu        sync.Mutex
	entries   map[string]*flashEntry
	ttl       time.Duration
	now       func() time.Time
	stopChan  chan struct{}
	wg        sync.WaitGroup
	closeOnce sync.Once
}

// NewInMemoryFlashStore creates a store whose sessions expire ttl after the
// last Put. A background goroutine sweeps expired sessions.
func NewInMemoryFlashStore(ttl time.Duration) *InMemoryFlashStore {
	return newInMemoryFlashStore(ttl, defaultCleanupInterval, time.Now)
}

func newInMemoryFlashStore(ttl, cleanupInterval time.Duration, now func() time.Time) *InMemoryFlashStore {
	store := &InMemoryFlashStore{
		entries:  make(map[string]*flashEntry),
		ttl:      ttl,
		now:      now,
		stopChan: make(chan struct{}),
	}

	store.wg.Add(1)
	go store.cleanupLoop(cleanupInterval)

	return store
}

// Put stores a message for the session
func (s *InMemoryFlashStore) Put(_ context.Context, sessionID, key, message string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	e, ok := s.entries[sessionID]
	if !ok || !now.Before(e.expiresAt) {
		e = &flashEntry{messages: make(map[string]string)}
		s.entries[sessionID] = e
	}
	e.messages[key] = message
	e.expiresAt = now.Add(s.ttl)
	return nil
}

// Take returns and clears the session's messages
func (s *InMemoryFlashStore) Take(_ context.Context, sessionID string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	e, ok := s.entries[sessionID]
	if !ok {
		return map[string]string{}, nil
	}
	delete(s.entries, sessionID)

	if !s.now().Before(e.expiresAt) {
		return map[string]string{}, nil
	}
	return maps.Clone(e.messages), nil
}

// Close stops the cleanup goroutine. Safe to call multiple times
func (s *InMemoryFlashStore) Close() error {
	s.closeOnce.Do(func() {
		close(s.stopChan)
		s.wg.Wait()
	})
	return nil
}

func (s *InMemoryFlashStore) cleanupLoop(interval time.Duration) {
	defer s.wg.Done()

	ticker := time.NewTicker(interval)
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

func (s *InMemoryFlashStore) cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for id, e := range s.entries {
		if !now.Before(e.expiresAt) {
			delete(s.entries, id)
		}
	}
}

// Size returns the number of sessions held (for testing/monitoring)
func (s *InMemoryFlashStore) Size() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

var _ FlashStore = (*InMemoryFlashStore)(nil)
