package scheduler

import (
	"sync"
	"time"
)

// DefaultLockGrace is how long an unreferenced lock of a terminated or missing process is kept.
const DefaultLockGrace = time.Minute

type lockEntry struct {
	mu           sync.Mutex
	refs         int
	terminatedAt *time.Time
}

// lockTable serializes dispatches of the same process. Entries are created
// on first acquire, reference counted, and evicted once unreferenced and
// marked terminated for longer than grace.
type lockTable struct {
	entries map[string]*lockEntry
	grace   time.Duration
	now     func() time.Time
	mux     sync.Mutex
}

func (t *lockTable) acquire(processID string) func() {
	t.mux.Lock()
	entry, ok := t.entries[processID]
	if !ok {
		entry = &lockEntry{}
		t.entries[processID] = entry
	}
	entry.refs++
	t.mux.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		t.mux.Lock()
		entry.refs--
		t.mux.Unlock()
	}
}

// terminated marks the entry of a terminated or missing process evictable;
// caller holds its lock.
func (t *lockTable) terminated(processID string) {
	t.mux.Lock()
	defer t.mux.Unlock()
	if entry, ok := t.entries[processID]; ok && entry.terminatedAt == nil {
		at := t.now()
		entry.terminatedAt = &at
	}
}

func (t *lockTable) evict() int {
	t.mux.Lock()
	defer t.mux.Unlock()
	now := t.now()
	evicted := 0
	for id, entry := range t.entries {
		if entry.refs > 0 || entry.terminatedAt == nil {
			continue
		}
		if now.Sub(*entry.terminatedAt) < t.grace {
			continue
		}
		delete(t.entries, id)
		evicted++
	}
	return evicted
}

func (t *lockTable) size() int {
	t.mux.Lock()
	defer t.mux.Unlock()
	return len(t.entries)
}

func newLockTable(grace time.Duration, now func() time.Time) *lockTable {
	if grace <= 0 {
		grace = DefaultLockGrace
	}
	return &lockTable{entries: map[string]*lockEntry{}, grace: grace, now: now}
}
