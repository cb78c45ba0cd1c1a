package scope

import (
	"image/color"
	"sync"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"fyne.io/fyne/v2/widget"

	"github.com/itohio/ballbeam/pkg/config"
	"github.com/itohio/ballbeam/pkg/display"
	"github.com/itohio/ballbeam/pkg/sample"
)

// ScopeWidget is a custom Fyne widget that plots the ball position over time.
type ScopeWidget struct {
	widget.BaseWidget

	cfg config.DisplayConfig

	// Data (protected by mu)
	mu    sync.RWMutex
	frame display.Frame

	// Display buffer (reused for downsampling)
	displaySamples []sample.Sample
}

// New creates a new ScopeWidget instance.
func New(cfg config.DisplayConfig) *ScopeWidget {
	maxPoints := cfg.MaxPoints
	if maxPoints <= 0 {
		maxPoints = 1000
	}

	s := &ScopeWidget{
		cfg: cfg,
		frame: display.Frame{
			XMax: cfg.DefaultXSpan.Seconds(),
			YMin: cfg.YMin,
			YMax: cfg.YMax,
		},
		displaySamples: make([]sample.Sample, 0, maxPoints),
	}
	s.cfg.MaxPoints = maxPoints
	s.ExtendBaseWidget(s)
	s.Refresh()
	return s
}

// Render updates the widget with a new frame. Must be called on the Fyne
// main thread (fyne.Do).
func (s *ScopeWidget) Render(f display.Frame) {
	s.mu.Lock()
	s.displaySamples = sample.Downsample(s.displaySamples, f.Samples, s.cfg.MaxPoints)
	s.frame = f
	s.mu.Unlock()

	// Refresh outside the lock, the renderer takes a read lock
	s.Refresh()
}

// CreateRenderer creates the widget renderer.
func (s *ScopeWidget) CreateRenderer() fyne.WidgetRenderer {
	bg := canvas.NewRectangle(color.RGBA{R: 20, G: 20, B: 20, A: 255})
	return &scopeRenderer{
		scope:   s,
		bg:      bg,
		objects: []fyne.CanvasObject{bg},
	}
}
