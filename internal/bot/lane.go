package bot

import "sync"

// laneLock serializes updates from the same user while letting different
// users proceed in parallel. Polling hands updates to a worker group, so
// without it two messages from one user could be classified out of order.
//
// A global mutex guards the lane map and is held only to look up or create
// a lane. Lanes are reference counted and removed once nobody holds or
// waits on them, so the map only ever contains users with updates in flight.
type laneLock struct {
	mu    sync.Mutex
	lanes map[int64]*lane
}

type lane struct {
	mu   sync.Mutex
	refs int
}

func newLaneLock() *laneLock {
	return &laneLock{lanes: make(map[int64]*lane)}
}

// acquire locks the lane for userID. Callers must release it.
func (l *laneLock) acquire(userID int64) {
	l.mu.Lock()
	ln, ok := l.lanes[userID]
	if !ok {
		ln = &lane{}
		l.lanes[userID] = ln
	}
	ln.refs++
	l.mu.Unlock()

	// Lock outside the global mutex so other users are not blocked.
	ln.mu.Lock()
}

func (l *laneLock) release(userID int64) {
	l.mu.Lock()
	ln, ok := l.lanes[userID]
	if !ok {
		l.mu.Unlock()
		return
	}
	ln.refs--
	if ln.refs == 0 {
		delete(l.lanes, userID)
	}
	l.mu.Unlock()

	ln.mu.Unlock()
}

// size reports how many lanes are live.
func (l *laneLock) size() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.lanes)
}
