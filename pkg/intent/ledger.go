package intent

import (
	"fmt"
	"sync"
	"time"
)

// ledger remembers consumed action ids until their tokens expire. An
// expired token is rejected by Decode, so its id can be forgotten.
type ledger struct {
	now func() time.Time

	mu   sync.Mutex
	used map[string]time.Time
}

func newLedger(now func() time.Time) *ledger {
	return &ledger{now: now, used: make(map[string]time.Time)}
}

func (l *ledger) consume(id string, until time.Time) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	for k, exp := range l.used {
		if !now.Before(exp) {
			delete(l.used, k)
		}
	}
	if _, ok := l.used[id]; ok {
		return fmt.Errorf("%w: %s", ErrConsumed, id)
	}
	l.used[id] = until
	return nil
}

func (l *ledger) len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.used)
}
