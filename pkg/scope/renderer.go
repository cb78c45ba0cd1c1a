package scope

import (
	"image/color"
	"strconv"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/canvas"
	"github.com/chewxy/math32"

	"github.com/itohio/ballbeam/pkg/display"
	"github.com/itohio/ballbeam/pkg/sample"
)

var (
	gridColor      = color.RGBA{R: 40, G: 40, B: 40, A: 255}
	axisTextColor  = color.RGBA{R: 150, G: 150, B: 150, A: 255}
	positionColor  = color.RGBA{R: 255, G: 165, B: 0, A: 255}   // Orange
	referenceColor = color.RGBA{R: 100, G: 200, B: 255, A: 255} // Light blue
)

const (
	marginLeft   = float32(60)
	marginRight  = float32(20)
	marginTop    = float32(20)
	marginBottom = float32(45)
)

// plotArea maps data coordinates to canvas positions.
type plotArea struct {
	x, y, w, h float32
	xMin, xMax float64
	yMin, yMax float64
}

func newPlotArea(size fyne.Size, f display.Frame) plotArea {
	return plotArea{
		x:    marginLeft,
		y:    marginTop,
		w:    math32.Max(size.Width-marginLeft-marginRight, 1),
		h:    math32.Max(size.Height-marginTop-marginBottom, 1),
		xMin: f.XMin,
		xMax: f.XMax,
		yMin: f.YMin,
		yMax: f.YMax,
	}
}

// pos converts a data point to a canvas position. Values outside the fixed
// ranges are pinned to the plot border.
func (p plotArea) pos(x, y float64) fyne.Position {
	fx := float32((x - p.xMin) / span(p.xMin, p.xMax))
	fy := float32((y - p.yMin) / span(p.yMin, p.yMax))
	fx = math32.Min(math32.Max(fx, 0), 1)
	fy = math32.Min(math32.Max(fy, 0), 1)
	return fyne.NewPos(p.x+fx*p.w, p.y+p.h-fy*p.h)
}

func span(lo, hi float64) float64 {
	if hi <= lo {
		return 1
	}
	return hi - lo
}

// scopeRenderer renders the scope widget.
type scopeRenderer struct {
	scope *ScopeWidget

	bg      *canvas.Rectangle
	objects []fyne.CanvasObject

	lastSize fyne.Size
}

// MinSize returns the minimum size of the widget.
func (r *scopeRenderer) MinSize() fyne.Size {
	return fyne.NewSize(400, 300)
}

// Layout arranges the widget components.
func (r *scopeRenderer) Layout(size fyne.Size) {
	r.bg.Resize(size)

	if r.lastSize != size {
		r.lastSize = size
		r.scope.BaseWidget.Refresh()
	}
}

// Refresh redraws the whole plot from the latest frame.
func (r *scopeRenderer) Refresh() {
	r.scope.mu.RLock()
	f := r.scope.frame
	samples := r.scope.displaySamples
	r.scope.mu.RUnlock()

	size := r.scope.Size()
	if size.Width == 0 || size.Height == 0 {
		return
	}

	area := newPlotArea(size, f)

	r.objects = []fyne.CanvasObject{r.bg}
	r.drawGrid(area)
	r.drawAxisTitles(area)
	if f.Reference.Set {
		r.drawReference(area, f.Reference.Value)
	}
	r.drawPositions(area, f, samples)

	canvas.Refresh(r.scope)
}

// drawGrid draws the grid with position and time labels.
func (r *scopeRenderer) drawGrid(a plotArea) {
	const numHLines = 10
	for i := range numHLines + 1 {
		value := a.yMax - float64(i)*(a.yMax-a.yMin)/numHLines
		p := a.pos(a.xMin, value)

		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(a.x, p.Y)
		line.Position2 = fyne.NewPos(a.x+a.w, p.Y)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		text := canvas.NewText(formatFloat(value, 0), axisTextColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignTrailing
		text.Move(fyne.NewPos(a.x-45, p.Y-6))
		r.objects = append(r.objects, text)
	}

	const numVLines = 10
	for i := range numVLines + 1 {
		value := a.xMin + float64(i)*(a.xMax-a.xMin)/numVLines
		p := a.pos(value, a.yMin)

		line := canvas.NewLine(gridColor)
		line.Position1 = fyne.NewPos(p.X, a.y)
		line.Position2 = fyne.NewPos(p.X, a.y+a.h)
		line.StrokeWidth = 1
		r.objects = append(r.objects, line)

		text := canvas.NewText(formatFloat(value, 2), axisTextColor)
		text.TextSize = 10
		text.Alignment = fyne.TextAlignCenter
		text.Move(fyne.NewPos(p.X-15, a.y+a.h+4))
		r.objects = append(r.objects, text)
	}
}

func (r *scopeRenderer) drawAxisTitles(a plotArea) {
	xTitle := canvas.NewText("Time (s)", axisTextColor)
	xTitle.TextSize = 11
	xTitle.Move(fyne.NewPos(a.x+a.w/2-20, a.y+a.h+22))

	yTitle := canvas.NewText("Position", axisTextColor)
	yTitle.TextSize = 11
	yTitle.Move(fyne.NewPos(4, 2))

	r.objects = append(r.objects, xTitle, yTitle)
}

// drawReference draws the setpoint as a horizontal line.
func (r *scopeRenderer) drawReference(a plotArea, ref float64) {
	p := a.pos(a.xMin, ref)

	line := canvas.NewLine(referenceColor)
	line.Position1 = fyne.NewPos(a.x, p.Y)
	line.Position2 = fyne.NewPos(a.x+a.w, p.Y)
	line.StrokeWidth = 1
	r.objects = append(r.objects, line)
}

// drawPositions draws the position series (orange).
func (r *scopeRenderer) drawPositions(a plotArea, f display.Frame, samples []sample.Sample) {
	if len(samples) < 2 {
		return
	}

	prev := a.pos(f.X(samples[0]), samples[0].Position)
	for _, s := range samples[1:] {
		next := a.pos(f.X(s), s.Position)

		line := canvas.NewLine(positionColor)
		line.Position1 = prev
		line.Position2 = next
		line.StrokeWidth = 1.5
		r.objects = append(r.objects, line)

		prev = next
	}
}

// Objects returns all canvas objects for rendering.
func (r *scopeRenderer) Objects() []fyne.CanvasObject {
	return r.objects
}

// Destroy cleans up resources.
func (r *scopeRenderer) Destroy() {}

func formatFloat(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
