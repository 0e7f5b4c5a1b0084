package client

import "sync"

// Gate admits at most one outstanding write per key.
type Gate struct {
	mu       sync.Mutex
	inflight map[string]struct{}
}

// NewGate returns an empty Gate.
func NewGate() *Gate {
	return &Gate{inflight: make(map[string]struct{})}
}

// Acquire claims key. The returned release must be called once the write has
// finished. A key that is already claimed fails with ErrSubmissionInFlight.
func (g *Gate) Acquire(key string) (release func(), err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	if _, busy := g.inflight[key]; busy {
		return nil, ErrSubmissionInFlight
	}
	g.inflight[key] = struct{}{}

	var once sync.Once
	return func() {
		once.Do(func() {
			g.mu.Lock()
			delete(g.inflight, key)
			g.mu.Unlock()
		})
	}, nil
}

// Busy reports whether key is claimed.
func (g *Gate) Busy(key string) bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	_, busy := g.inflight[key]
	return busy
}
