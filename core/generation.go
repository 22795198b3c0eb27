package core

import "sync"

// Generation identifies the current user-visible context. It starts at 0 and only grows.
type Generation uint64

// GenerationGuard owns the live generation. Operations snapshot it before an
// asynchronous gap and check it again before touching shared state.
type GenerationGuard struct {
	mu      sync.RWMutex
	current Generation
}

// NewGenerationGuard creates a guard at generation 0
func NewGenerationGuard() *GenerationGuard {
	return &GenerationGuard{}
}

// Current returns the live generation
func (g *GenerationGuard) Current() Generation {
	g.mu.RLock()
	defer g.mu.RUnlock()
	return g.current
}

// Bump advances the generation once for a context change and returns the new value
func (g *GenerationGuard) Bump() Generation {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	return g.current
}

// BumpWith advances the generation and runs fn before any operation can observe
// the new value. fn must not call back into the guard.
func (g *GenerationGuard) BumpWith(fn func()) Generation {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.current++
	fn()
	return g.current
}

// Snapshot is taken by a caller about to start a long-running operation
func (g *GenerationGuard) Snapshot() Generation {
	return g.Current()
}

// IsStale reports whether the generation moved on since snapshot was taken
func (g *GenerationGuard) IsStale(snapshot Generation) bool {
	return g.Current() != snapshot
}

// Apply runs fn only if snapshot is still current and reports whether it ran.
// No Bump can happen while fn executes, so fn must not call Bump.
func (g *GenerationGuard) Apply(snapshot Generation, fn func()) bool {
	g.mu.RLock()
	defer g.mu.RUnlock()

	if g.current != snapshot {
		return false
	}
	fn()
	return true
}
