package service

import "sync"

// reportLocker serializes Submit/Act per report id. There is no optimistic
// concurrency token on the report row, so concurrent actions against one
// report would clobber each other's workflow array without this.
type reportLocker struct {
	mu      sync.Mutex
	entries map[string]*lockEntry
}

type lockEntry struct {
	mu   sync.Mutex
	refs int
}

func newReportLocker() *reportLocker {
	return &reportLocker{entries: make(map[string]*lockEntry)}
}

// Lock acquires the per-report critical section and returns its release
// function. Entries are reference counted so the map does not grow with
// every report id ever seen.
func (l *reportLocker) Lock(id string) func() {
	l.mu.Lock()
	entry, ok := l.entries[id]
	if !ok {
		entry = &lockEntry{}
		l.entries[id] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()
	return func() {
		entry.mu.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.entries, id)
		}
		l.mu.Unlock()
	}
}
