package main

import (
	"math"
	"strconv"

	"github.com/guptarohit/asciigraph"

	"github.com/itohio/ballbeam/pkg/display"
)

const (
	gutterWidth   = 7 // Y labels plus the axis
	minPlotWidth  = 10
	minPlotHeight = 3
)

// renderChart plots the position series of f in roughly width x height cells
// with the fixed Y range of the frame and the reference as a flat line. The
// caption carries the time span.
func renderChart(f display.Frame, width, height int, colored bool) string {
	plotW := max(width-gutterWidth, minPlotWidth)
	plotH := max(height-1, minPlotHeight)

	var (
		series [][]float64
		colors []asciigraph.AnsiColor
	)
	if f.Reference.Set {
		series = append(series, constant(clampY(f, f.Reference.Value), plotW))
		colors = append(colors, asciigraph.LightBlue)
	}
	// Drawn last so the position line stays on top of the reference
	series = append(series, columns(f, plotW))
	colors = append(colors, asciigraph.Orange)

	opts := []asciigraph.Option{
		asciigraph.Height(plotH - 1),
		asciigraph.LowerBound(f.YMin),
		asciigraph.UpperBound(f.YMax),
		asciigraph.Precision(0),
		asciigraph.Caption("Time (s): " + formatTick(f.XMin, 2) + " - " + formatTick(f.XMax, 2)),
	}
	if colored {
		opts = append(opts, asciigraph.SeriesColors(colors...))
	}

	return asciigraph.PlotMany(series, opts...)
}

// columns resamples the series onto width evenly spaced times between XMin
// and XMax, interpolating between neighbouring samples. Columns outside the
// recorded span are NaN and left blank.
func columns(f display.Frame, width int) []float64 {
	out := constant(math.NaN(), width)

	ss := f.Samples
	switch len(ss) {
	case 0:
		return out
	case 1:
		out[scaleIndex(f.X(ss[0]), f.XMin, f.XMax, width)] = clampY(f, ss[0].Position)
		return out
	}

	span := f.XMax - f.XMin
	j := 0
	for c := range out {
		x := f.XMin + span*float64(c)/float64(width-1)
		for j < len(ss)-2 && f.X(ss[j+1]) < x {
			j++
		}

		x0, x1 := f.X(ss[j]), f.X(ss[j+1])
		if x < x0 || x > x1 {
			continue
		}
		y := ss[j].Position
		if x1 > x0 {
			y += (ss[j+1].Position - y) * (x - x0) / (x1 - x0)
		}
		out[c] = clampY(f, y)
	}
	return out
}

func constant(v float64, n int) []float64 {
	out := make([]float64, n)
	for i := range out {
		out[i] = v
	}
	return out
}

// clampY pins v to the fixed Y range so the plot never rescales.
func clampY(f display.Frame, v float64) float64 {
	return math.Min(math.Max(v, f.YMin), f.YMax)
}

// scaleIndex maps v in [lo, hi] to a cell index in [0, n). Values outside the
// range are pinned to the edges.
func scaleIndex(v, lo, hi float64, n int) int {
	span := hi - lo
	if span <= 0 || math.IsNaN(v) {
		return 0
	}
	frac := math.Min(math.Max((v-lo)/span, 0), 1)
	return int(math.Round(frac * float64(n-1)))
}

func formatTick(v float64, decimals int) string {
	return strconv.FormatFloat(v, 'f', decimals, 64)
}
