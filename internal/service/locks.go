package service

import "sync"

// groupLocks serializes read-modify-write cycles per group id. Operations
// on different groups proceed in parallel; two mutations of the same group
// never interleave.
type groupLocks struct {
	mu    sync.Mutex
	locks map[string]*groupLock
}

type groupLock struct {
	sync.Mutex
	refs int
}

func newGroupLocks() *groupLocks {
	return &groupLocks{locks: make(map[string]*groupLock)}
}

// lock acquires the lock for the given group id and returns the matching
// unlock function. Lock entries are dropped once the last holder releases.
func (l *groupLocks) lock(groupID string) func() {
	l.mu.Lock()
	entry, ok := l.locks[groupID]
	if !ok {
		entry = &groupLock{}
		l.locks[groupID] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.Lock()
	return func() {
		entry.Unlock()
		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, groupID)
		}
		l.mu.Unlock()
	}
}
