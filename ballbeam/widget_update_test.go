package main

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/ballbeam/pkg/display"
)

// queue collects scheduled callbacks instead of running them.
type queue struct {
	fns []func()
}

func (q *queue) schedule(fn func()) {
	q.fns = append(q.fns, fn)
}

func (q *queue) runAll() {
	fns := q.fns
	q.fns = nil
	for _, fn := range fns {
		fn()
	}
}

func TestFrameBridge_CoalescesQueuedFrames(t *testing.T) {
	q := &queue{}
	var applied []display.Frame
	b := newFrameBridge(q.schedule, func(f display.Frame) { applied = append(applied, f) })

	b.Render(display.Frame{KpLabel: "Kp: 1.0"})
	b.Render(display.Frame{KpLabel: "Kp: 2.0"})
	b.Render(display.Frame{KpLabel: "Kp: 3.0"})
	require.Len(t, q.fns, 1)

	q.runAll()
	require.Len(t, applied, 1)
	assert.Equal(t, "Kp: 3.0", applied[0].KpLabel)
}

func TestFrameBridge_SchedulesAgainAfterFlush(t *testing.T) {
	q := &queue{}
	var applied []display.Frame
	b := newFrameBridge(q.schedule, func(f display.Frame) { applied = append(applied, f) })

	b.Render(display.Frame{RefLabel: "Ref: 1.0"})
	q.runAll()
	b.Render(display.Frame{RefLabel: "Ref: 2.0"})
	require.Len(t, q.fns, 1)
	q.runAll()

	require.Len(t, applied, 2)
	assert.Equal(t, "Ref: 2.0", applied[1].RefLabel)
}

func TestFrameBridge_IsRenderer(t *testing.T) {
	var _ display.Renderer = newFrameBridge(func(fn func()) { fn() }, func(display.Frame) {})
}
