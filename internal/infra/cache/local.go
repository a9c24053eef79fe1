package cache

import (
	"sync"
	"time"

	"feedback-analysis-service/internal/domain/model"
)

type localEntry struct {
	session   *model.Session
	storedAt  time.Time
	expiresAt time.Time
}

// localTier is a bounded TTL map holding the authoritative in-process copy of
// every session this process created, live retrieval handle included.
// Expired entries are dropped lazily on access and by a periodic sweep; when
// the map is full the oldest entry is evicted.
type localTier struct {
	mu      sync.Mutex
	entries map[string]localEntry
	ttl     time.Duration
	maxSize int
	done    chan struct{}
}

func newLocalTier(ttl time.Duration, maxSize int) *localTier {
	t := &localTier{
		entries: make(map[string]localEntry),
		ttl:     ttl,
		maxSize: maxSize,
		done:    make(chan struct{}),
	}
	go t.sweepLoop(ttl / 2)
	return t
}

func (t *localTier) set(session *model.Session) {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	if _, exists := t.entries[session.ID]; !exists && len(t.entries) >= t.maxSize {
		t.evictOldestLocked()
	}
	t.entries[session.ID] = localEntry{
		session:   session,
		storedAt:  now,
		expiresAt: now.Add(t.ttl),
	}
}

// get also extends the entry's lifetime on a hit, mirroring the remote tier's
// expiry refresh.
func (t *localTier) get(id string) (*model.Session, bool) {
	now := time.Now()
	t.mu.Lock()
	defer t.mu.Unlock()
	e, ok := t.entries[id]
	if !ok {
		return nil, false
	}
	if now.After(e.expiresAt) {
		delete(t.entries, id)
		return nil, false
	}
	e.expiresAt = now.Add(t.ttl)
	t.entries[id] = e
	return e.session, true
}

func (t *localTier) delete(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	delete(t.entries, id)
}

func (t *localTier) size() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.entries)
}

func (t *localTier) close() {
	close(t.done)
}

func (t *localTier) evictOldestLocked() {
	var oldest string
	var oldestAt time.Time
	for id, e := range t.entries {
		if oldest == "" || e.storedAt.Before(oldestAt) {
			oldest, oldestAt = id, e.storedAt
		}
	}
	if oldest != "" {
		delete(t.entries, oldest)
	}
}

func (t *localTier) sweepLoop(interval time.Duration) {
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-t.done:
			return
		case <-ticker.C:
			now := time.Now()
			t.mu.Lock()
			for id, e := range t.entries {
				if now.After(e.expiresAt) {
					delete(t.entries, id)
				}
			}
			t.mu.Unlock()
		}
	}
}
