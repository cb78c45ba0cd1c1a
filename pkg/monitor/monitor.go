// Package monitor runs the poll, decode, update, render pass and executes
// operator commands between passes, all on one goroutine.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/ballbeam/pkg/display"
	"github.com/itohio/ballbeam/pkg/link"
	"github.com/itohio/ballbeam/pkg/logging"
	"github.com/itohio/ballbeam/pkg/protocol"
	"github.com/itohio/ballbeam/pkg/session"
)

// DefaultPollInterval is used when the configured interval is not positive.
const DefaultPollInterval = 10 * time.Millisecond

// Monitor connects a transport to a session and its display adapter.
// Tick, SetReference, RestartAutotune and Clear are not safe for concurrent
// use; either call them from one goroutine or use Run and Do.
type Monitor struct {
	transport    link.Transport
	state        *session.State
	adapter      *display.Adapter
	logger       *zap.Logger
	pollInterval time.Duration

	actions chan func()
	stopped chan struct{}
}

// New creates a monitor. The adapter may be nil.
func New(t link.Transport, state *session.State, adapter *display.Adapter, pollInterval time.Duration, logger *zap.Logger) *Monitor {
	if pollInterval <= 0 {
		pollInterval = DefaultPollInterval
	}

	return &Monitor{
		transport:    t,
		state:        state,
		adapter:      adapter,
		logger:       logging.OrNop(logger).With(zap.String("component", "monitor")),
		pollInterval: pollInterval,
		actions:      make(chan func(), 16),
		stopped:      make(chan struct{}),
	}
}

// State returns the session state.
func (m *Monitor) State() *session.State {
	return m.state
}

// Tick polls the transport once. An available line is decoded and applied;
// the returned event is Unrecognized when there was nothing to apply.
func (m *Monitor) Tick() (protocol.Event, bool) {
	line, ok := m.transport.Poll()
	if !ok {
		return protocol.Event{}, false
	}

	ev := protocol.Decode(line)
	if ev.Kind == protocol.Unrecognized {
		m.logger.Debug("Dropping line", zap.String("line", line))
		return ev, true
	}

	m.state.Apply(ev)
	return ev, true
}

// SetReference parses operator input and sends it to the device. Invalid
// input is shown on the display and nothing is sent. On success the
// reference is updated locally before the device echoes it.
func (m *Monitor) SetReference(text string) error {
	cmd, err := protocol.SetReference(text)
	if err != nil {
		if m.adapter != nil {
			m.adapter.ReferenceRejected(m.state, err)
		}
		return err
	}

	if err := m.transport.Send(cmd.Encode()); err != nil {
		m.logger.Warn("Failed to send reference", zap.Float64("reference", cmd.Reference), zap.Error(err))
		return fmt.Errorf("failed to send reference: %w", err)
	}

	m.logger.Info("Reference sent", zap.Float64("reference", cmd.Reference))
	m.state.SetReference(cmd.Reference)
	return nil
}

// RestartAutotune asks the device to re-tune and clears the telemetry buffer.
// The buffer is cleared even when the command could not be written.
func (m *Monitor) RestartAutotune() error {
	cmd := protocol.RestartAutotune()
	err := m.transport.Send(cmd.Encode())
	if err != nil {
		m.logger.Warn("Failed to send autotune restart", zap.Error(err))
		err = fmt.Errorf("failed to restart autotune: %w", err)
	} else {
		m.logger.Info("Autotune restart sent")
	}

	m.state.Reset()
	return err
}

// Clear discards the displayed history only.
func (m *Monitor) Clear() {
	m.state.Reset()
}

// Run ticks every poll interval until ctx is done and executes actions
// queued by Do between ticks. It returns ctx.Err().
func (m *Monitor) Run(ctx context.Context) error {
	defer close(m.stopped)

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()

	m.logger.Info("Monitor started", zap.Duration("poll_interval", m.pollInterval))

	for {
		select {
		case <-ctx.Done():
			m.logger.Info("Monitor stopped")
			return ctx.Err()
		case fn := <-m.actions:
			fn()
		case <-ticker.C:
			m.Tick()
		}
	}
}

// ErrStopped is returned by Do after Run has returned.
var ErrStopped = errors.New("monitor stopped")

// Do queues fn to run on the Run goroutine. It blocks while the queue is full.
func (m *Monitor) Do(fn func()) error {
	select {
	case <-m.stopped:
		return ErrStopped
	default:
	}

	select {
	case m.actions <- fn:
		return nil
	case <-m.stopped:
		return ErrStopped
	}
}

// Close closes the transport.
func (m *Monitor) Close() error {
	return m.transport.Close()
}
