package service

import "sync"

// SessionLocks serializes turns for the same (bot, user) pair. Two messages
// arriving in quick succession from one user must not interleave their
// read-modify-write of the session row; the dispatcher holds the pair's
// lock for the whole turn. Entries are refcounted so the map does not grow
// with every user ever seen.
type SessionLocks struct {
	mu    sync.Mutex
	locks map[string]*sessionLock
}

type sessionLock struct {
	mu   sync.Mutex
	refs int
}

func NewSessionLocks() *SessionLocks {
	return &SessionLocks{locks: make(map[string]*sessionLock)}
}

func (l *SessionLocks) key(botID, userKey string) string {
	return botID + "|" + userKey
}

// Size reports how many pairs currently hold or wait on a lock.
func (l *SessionLocks) Size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.locks)
}

// Lock acquires the pair's lock and returns the matching unlock function.
func (l *SessionLocks) Lock(botID, userKey string) func() {
	key := l.key(botID, userKey)

	l.mu.Lock()
	entry, ok := l.locks[key]
	if !ok {
		entry = &sessionLock{}
		l.locks[key] = entry
	}
	entry.refs++
	l.mu.Unlock()

	entry.mu.Lock()

	return func() {
		entry.mu.Unlock()

		l.mu.Lock()
		entry.refs--
		if entry.refs == 0 {
			delete(l.locks, key)
		}
		l.mu.Unlock()
	}
}
