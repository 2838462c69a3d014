package playback

import (
	"context"
	"sync"
)

// Gate holds the pause and stop state shared by Player implementations.
type Gate struct {
	mu      sync.Mutex
	paused  bool
	stopped bool
	resumed chan struct{}
	done    chan struct{}
}

func NewGate() *Gate {
	return &Gate{done: make(chan struct{})}
}

// Wait blocks while the gate is paused. It returns ErrStopped once stopped.
func (g *Gate) Wait(ctx context.Context) error {
	for {
		g.mu.Lock()
		if g.stopped {
			g.mu.Unlock()
			return ErrStopped
		}
		if !g.paused {
			g.mu.Unlock()
			return nil
		}
		resumed := g.resumed
		g.mu.Unlock()

		select {
		case <-resumed:
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}

func (g *Gate) Pause() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return ErrStopped
	}
	if !g.paused {
		g.paused = true
		g.resumed = make(chan struct{})
	}
	return nil
}

func (g *Gate) Resume() error {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return ErrStopped
	}
	if g.paused {
		g.paused = false
		close(g.resumed)
	}
	return nil
}

func (g *Gate) Stop() {
	g.mu.Lock()
	defer g.mu.Unlock()
	if g.stopped {
		return
	}
	g.stopped = true
	if g.paused {
		g.paused = false
		close(g.resumed)
	}
	close(g.done)
}

// Done is closed by Stop.
func (g *Gate) Done() <-chan struct{} {
	return g.done
}

func (g *Gate) Paused() bool {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.paused
}
