package link

import (
	"fmt"
	"math"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/itohio/ballbeam/pkg/config"
	"github.com/itohio/ballbeam/pkg/logging"
	"github.com/itohio/ballbeam/pkg/protocol"
)

// Mock simulates the ball-and-beam controller for testing and development.
// It speaks the same line protocol as the firmware: an autotune phase during
// which the ball oscillates around the reference, then the tuned gains
// (Kd last), then position reports every sample period while tracking.
type Mock struct {
	cfg    config.MockConfig
	logger *zap.Logger

	lines     chan string
	mu        sync.Mutex
	done      chan struct{}
	stop      chan struct{}
	connected bool

	// Simulation state, guarded by mu
	start     time.Time
	tuneStart time.Time
	tuning    bool
	reference float64
	position  float64
	velocity  float64
	pending   []string // Replies queued by Send, flushed on the next tick
}

// NewMock creates a new simulated rig.
func NewMock(cfg *config.MockConfig, logger *zap.Logger) *Mock {
	if cfg == nil {
		def := config.Default().Mock
		cfg = &def
	}
	c := *cfg
	if c.SampleRate <= 0 {
		c.SampleRate = config.Default().Mock.SampleRate
	}

	return &Mock{
		cfg:    c,
		logger: logging.OrNop(logger).With(zap.String("component", "mock")),
		lines:  make(chan string, DefaultBufferSize),
	}
}

// Connect starts the simulation.
func (m *Mock) Connect() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.connected {
		return ErrAlreadyConnected
	}

	now := time.Now()
	m.connected = true
	m.start = now
	m.reference = m.cfg.InitialReference
	m.position = m.cfg.BeamLength / 2
	m.velocity = 0
	m.pending = nil
	m.beginAutotune(now)
	m.stop = make(chan struct{})
	m.done = make(chan struct{})

	go m.run(m.stop, m.done)

	m.logger.Info("Simulated rig started", zap.Duration("sample_rate", m.cfg.SampleRate))
	return nil
}

// Close stops the simulation, waits for it to exit and discards unread lines.
func (m *Mock) Close() error {
	m.mu.Lock()
	if !m.connected {
		m.mu.Unlock()
		return nil
	}
	m.connected = false
	close(m.stop)
	done := m.done
	m.mu.Unlock()

	<-done
	drain(m.lines)
	return nil
}

// Poll returns the next line emitted by the simulation without blocking.
func (m *Mock) Poll() (string, bool) {
	select {
	case line := <-m.lines:
		return line, true
	default:
		return "", false
	}
}

// Send handles a command the way the firmware does. Unknown commands are ignored.
func (m *Mock) Send(line string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if !m.connected {
		return ErrNotConnected
	}

	cmd, ok := protocol.ParseCommand(line)
	if !ok {
		m.logger.Debug("Ignoring unknown command", zap.String("line", line))
		return nil
	}

	switch cmd.Kind {
	case protocol.CmdSetReference:
		m.reference = clamp(cmd.Reference, 0, m.cfg.BeamLength)
		m.pending = append(m.pending, protocol.ReferencePrefix+protocol.FormatValue(m.reference))
	case protocol.CmdRestartAutotune:
		m.beginAutotune(time.Now())
		m.pending = append(m.pending, "Autotune reiniciado")
	}

	return nil
}

// beginAutotune restarts the tuning phase. Callers hold m.mu.
func (m *Mock) beginAutotune(now time.Time) {
	m.tuning = true
	m.tuneStart = now
}

// run generates lines on every sample tick.
func (m *Mock) run(stop <-chan struct{}, done chan<- struct{}) {
	defer close(done)

	ticker := time.NewTicker(m.cfg.SampleRate)
	defer ticker.Stop()

	for {
		select {
		case <-stop:
			return
		case now := <-ticker.C:
			for _, line := range m.step(now) {
				select {
				case m.lines <- line:
				case <-stop:
					return
				default:
					// Nobody is polling, drop like a real UART would
				}
			}
		}
	}
}

// step advances the simulation by one sample period and returns the lines to emit.
func (m *Mock) step(now time.Time) []string {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := m.pending
	m.pending = nil

	dt := m.cfg.SampleRate.Seconds()

	if m.tuning && now.Sub(m.tuneStart) >= m.cfg.AutotuneDuration {
		m.tuning = false
		out = append(out,
			fmt.Sprintf("Autotune concluido Kp:%s", protocol.FormatValue(m.cfg.Kp)),
			protocol.KiMarker+protocol.FormatValue(m.cfg.Ki),
			protocol.KdMarker+protocol.FormatValue(m.cfg.Kd),
		)
	}

	target := m.reference
	if m.tuning {
		// Relay test: the ball swings around the reference while gains are identified
		phase := now.Sub(m.tuneStart).Seconds() * 2 * math.Pi / 1.5
		target += 0.15 * m.cfg.BeamLength * math.Copysign(1, math.Sin(phase))
	}
	m.position, m.velocity = m.advance(m.position, m.velocity, target, dt)

	elapsed := now.Sub(m.start).Seconds()
	noise := (math.Sin(elapsed*37.0) + math.Cos(elapsed*23.0)) * 0.5 * m.cfg.NoiseLevel
	reported := clamp(m.position+noise, 0, m.cfg.BeamLength)

	out = append(out, protocol.PositionPrefix+fmt.Sprintf("%.2f", reported))

	return out
}

// advance integrates a damped second-order response of the ball toward target.
func (m *Mock) advance(x, v, target, dt float64) (float64, float64) {
	const (
		wn   = 2.5 // Natural frequency (rad/s)
		zeta = 0.45
	)

	a := wn*wn*(target-x) - 2*zeta*wn*v
	v += a * dt
	x += v * dt

	// Ball stops at the beam ends
	if x < 0 {
		x, v = 0, 0
	} else if x > m.cfg.BeamLength {
		x, v = m.cfg.BeamLength, 0
	}
	return x, v
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}
