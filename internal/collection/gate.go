package collection

import (
	"errors"
	"sync"
)

// ErrBusy is returned when another mutation of the same parent is in flight.
var ErrBusy = errors.New("another change to this list is in progress")

// Gate grants one in-flight mutation per parent record. A second attempt is
// rejected, not queued. The zero value is ready to use.
type Gate struct {
	mu   sync.Mutex
	busy map[string]bool
}

// TryAcquire claims parentID. The returned release must be called exactly once.
func (g *Gate) TryAcquire(parentID string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.busy == nil {
		g.busy = map[string]bool{}
	}
	if g.busy[parentID] {
		return nil, ErrBusy
	}
	g.busy[parentID] = true
	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.busy, parentID)
			g.mu.Unlock()
		})
	}, nil
}

func (g *Gate) Busy(parentID string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.busy[parentID]
}
