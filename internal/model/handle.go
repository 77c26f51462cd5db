package model

import (
	"errors"
	"sync"
)

// ErrModelUnavailable is returned by every prediction-path call made before
// a model artifact has been successfully loaded. Callers fail fast; there is
// no automatic retry of the load.
var ErrModelUnavailable = errors.New("model: artifact not loaded")

// Handle is the explicit loaded-model slot shared by all prediction callers.
// It replaces a nullable global with a clear not-yet-loaded sentinel state:
// requests racing the startup load observe ErrModelUnavailable rather than
// triggering a duplicate load or reading a half-initialized artifact.
type Handle struct {
	mu  sync.RWMutex
	art *Artifact
}

// NewHandle returns an empty, not-yet-loaded Handle.
func NewHandle() *Handle { return &Handle{} }

// Set installs a loaded artifact. Later Sets replace earlier ones atomically;
// in-flight predictions keep the artifact they already resolved.
func (h *Handle) Set(a *Artifact) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.art = a
}

// Artifact returns the loaded artifact, or ErrModelUnavailable if no load
// has succeeded yet.
func (h *Handle) Artifact() (*Artifact, error) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	if h.art == nil {
		return nil, ErrModelUnavailable
	}
	return h.art, nil
}

// Loaded reports whether an artifact is available.
func (h *Handle) Loaded() bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.art != nil
}
