package main

import (
	"sync"

	"github.com/itohio/ballbeam/pkg/display"
)

// frameBridge hands frames from the monitor goroutine to the UI thread.
// Frames arriving while an update is still queued replace the queued one, so
// the UI applies at most one frame per scheduled callback.
type frameBridge struct {
	schedule func(func())
	apply    func(display.Frame)

	mu      sync.Mutex
	latest  display.Frame
	pending bool
}

// newFrameBridge creates a bridge. schedule runs a callback on the UI thread
// (fyne.Do); apply draws a frame there.
func newFrameBridge(schedule func(func()), apply func(display.Frame)) *frameBridge {
	return &frameBridge{schedule: schedule, apply: apply}
}

// Render implements display.Renderer.
func (b *frameBridge) Render(f display.Frame) {
	b.mu.Lock()
	b.latest = f
	if b.pending {
		b.mu.Unlock()
		return
	}
	b.pending = true
	b.mu.Unlock()

	b.schedule(b.flush)
}

func (b *frameBridge) flush() {
	b.mu.Lock()
	f := b.latest
	b.pending = false
	b.mu.Unlock()

	b.apply(f)
}
