// Package display turns session state into render requests. It holds no
// widgets: a Renderer (plot widget, terminal view) draws the Frames.
package display

import (
	"time"

	"go.uber.org/zap"

	"github.com/itohio/ballbeam/pkg/config"
	"github.com/itohio/ballbeam/pkg/logging"
	"github.com/itohio/ballbeam/pkg/sample"
	"github.com/itohio/ballbeam/pkg/session"
)

// InvalidReferenceText is shown on the reference label after rejected input.
const InvalidReferenceText = "Error: invalid value"

// Frame is a complete render request. It is a snapshot: renderers may keep it
// and use it from another goroutine.
type Frame struct {
	Samples  []sample.Sample // Full telemetry series, oldest first
	Interval time.Duration   // Nominal sample interval, x = Index * Interval

	XMin, XMax float64 // Seconds
	YMin, YMax float64 // Fixed position range

	Reference session.Value // For the setpoint line

	KpLabel  string
	KiLabel  string
	KdLabel  string
	RefLabel string
	RefError bool
}

// X returns the time of s in seconds.
func (f Frame) X(s sample.Sample) float64 {
	return s.Seconds(f.Interval)
}

// Renderer draws frames.
type Renderer interface {
	Render(f Frame)
}

// RendererFunc adapts a function to Renderer.
type RendererFunc func(f Frame)

// Render calls fn(f).
func (fn RendererFunc) Render(f Frame) {
	fn(f)
}

// Adapter recomputes a Frame after every session mutation.
type Adapter struct {
	cfg      config.DisplayConfig
	interval time.Duration
	renderer Renderer
	logger   *zap.Logger

	// Label state that outlives single mutations
	shownGains session.GainSet
	refError   bool
}

// New creates an adapter rendering into r.
func New(cfg config.DisplayConfig, interval time.Duration, r Renderer, logger *zap.Logger) *Adapter {
	return &Adapter{
		cfg:      cfg,
		interval: interval,
		renderer: r,
		logger:   logging.OrNop(logger).With(zap.String("component", "display")),
	}
}

// Attach subscribes to s and renders its current state.
func (a *Adapter) Attach(s *session.State) {
	s.OnChange(a.Update)
	a.shownGains = s.Gains()
	a.render(s)
}

// Update is the session listener.
func (a *Adapter) Update(s *session.State, c session.Change) {
	// Gain labels follow the device convention of refreshing once Kd arrives.
	if c.Has(session.ChangeGainsComplete) {
		a.shownGains = s.Gains()
	}
	if c.Has(session.ChangeReference) {
		a.refError = false
	}
	a.render(s)
}

// ReferenceRejected shows the invalid-input state on the reference label.
// The session reference is not touched.
func (a *Adapter) ReferenceRejected(s *session.State, err error) {
	a.logger.Debug("Reference input rejected", zap.Error(err))
	a.refError = true
	a.render(s)
}

// Frame computes the render request for s.
func (a *Adapter) Frame(s *session.State) Frame {
	f := Frame{
		Samples:   s.Samples(),
		Interval:  a.interval,
		XMin:      0,
		YMin:      a.cfg.YMin,
		YMax:      a.cfg.YMax,
		Reference: s.Reference(),
		KpLabel:   "Kp: " + a.shownGains.Kp.String(),
		KiLabel:   "Ki: " + a.shownGains.Ki.String(),
		KdLabel:   "Kd: " + a.shownGains.Kd.String(),
		RefLabel:  "Ref: " + s.ReferenceText(),
		RefError:  a.refError,
	}

	f.XMax = a.cfg.DefaultXSpan.Seconds()
	if last, ok := s.Last(); ok {
		if x := last.Seconds(a.interval); x > 0 {
			f.XMax = x
		}
	}

	if a.refError {
		f.RefLabel = InvalidReferenceText
	}

	return f
}

func (a *Adapter) render(s *session.State) {
	if a.renderer == nil {
		return
	}
	a.renderer.Render(a.Frame(s))
}
