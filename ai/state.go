package ai

import (
	"errors"
	"sync"
)

// State is the lifecycle state of an inference backend.
type State int

const (
	// StateUnloaded is the initial state; no resources are held.
	StateUnloaded State = iota
	// StateLoading marks a load in progress.
	StateLoading
	// StateReady marks a successfully loaded backend.
	StateReady
	// StateFailed marks a load that did not complete; Unload resets it.
	StateFailed
)

func (s State) String() string {
	switch s {
	case StateUnloaded:
		return "unloaded"
	case StateLoading:
		return "loading"
	case StateReady:
		return "ready"
	case StateFailed:
		return "failed"
	default:
		return "unknown"
	}
}

var (
	// ErrAlreadyLoaded indicates Load was called on a ready or loading backend.
	ErrAlreadyLoaded = errors.New("backend already loaded")

	// ErrNotLoaded indicates an operation that requires a ready backend.
	ErrNotLoaded = errors.New("backend not loaded")
)

// Lifecycle tracks a backend's load state through the
// unloaded -> loading -> ready/failed transitions. Backend implementations
// embed it and drive the transitions from their Load and Unload methods, so
// "is it loaded" is a state query rather than a caught exception.
type Lifecycle struct {
	mu    sync.Mutex
	state State
}

// BeginLoad transitions unloaded -> loading.
func (l *Lifecycle) BeginLoad() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.state == StateReady || l.state == StateLoading {
		return ErrAlreadyLoaded
	}
	l.state = StateLoading
	return nil
}

// FinishLoad resolves a pending load: loading -> ready on success,
// loading -> failed otherwise.
func (l *Lifecycle) FinishLoad(ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ok {
		l.state = StateReady
	} else {
		l.state = StateFailed
	}
}

// Release transitions any state back to unloaded.
func (l *Lifecycle) Release() {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.state = StateUnloaded
}

// State returns the current lifecycle state.
func (l *Lifecycle) State() State {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.state
}

// Ready reports whether the backend is loaded and usable.
func (l *Lifecycle) Ready() bool {
	return l.State() == StateReady
}
