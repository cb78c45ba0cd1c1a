package main

import (
	"math"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/itohio/ballbeam/pkg/display"
	"github.com/itohio/ballbeam/pkg/sample"
	"github.com/itohio/ballbeam/pkg/session"
)

func testFrame() display.Frame {
	return display.Frame{
		Interval: time.Second,
		XMin:     0,
		XMax:     4,
		YMin:     0,
		YMax:     500,
	}
}

func ramp(positions ...float64) []sample.Sample {
	out := make([]sample.Sample, len(positions))
	for i, p := range positions {
		out[i] = sample.Sample{Index: i, Position: p}
	}
	return out
}

func TestRenderChart_FixedRange(t *testing.T) {
	f := testFrame()
	f.Samples = ramp(0, 10, 20, 30, 40)

	out := renderChart(f, gutterWidth+40, 10, false)
	lines := strings.Split(out, "\n")

	// Y bounds come from the frame, not from the data
	assert.Contains(t, lines[0], "500")
	assert.Contains(t, out, " 0 ")
	assert.Contains(t, lines[len(lines)-1], "Time (s): 0.00 - 4.00")
}

func TestRenderChart_OutOfRangeDoesNotRescale(t *testing.T) {
	f := testFrame()
	f.Samples = ramp(900, -50, 900)

	out := renderChart(f, gutterWidth+40, 10, false)
	assert.Contains(t, out, "500")
	assert.NotContains(t, out, "900")
	assert.NotContains(t, out, "-50")
}

func TestRenderChart_ReferenceLine(t *testing.T) {
	f := testFrame()
	f.Reference = session.Some(250)

	out := renderChart(f, gutterWidth+40, 10, false)
	assert.Contains(t, out, strings.Repeat("─", 30))
}

func TestRenderChart_Height(t *testing.T) {
	f := testFrame()
	f.Samples = ramp(100, 200)

	lines := strings.Split(renderChart(f, 80, 12, false), "\n")
	// Plot rows plus the caption
	assert.GreaterOrEqual(t, len(lines), 11)
	assert.LessOrEqual(t, len(lines), 13)
}

func TestRenderChart_Empty(t *testing.T) {
	assert.NotPanics(t, func() {
		out := renderChart(testFrame(), 0, 0, false)
		assert.Contains(t, out, "Time (s)")
	})
}

func TestRenderChart_Colored(t *testing.T) {
	f := testFrame()
	f.Samples = ramp(100, 200)
	f.Reference = session.Some(150)

	plain := renderChart(f, 60, 10, false)
	colored := renderChart(f, 60, 10, true)
	assert.NotContains(t, plain, "\x1b[")
	assert.Contains(t, colored, "\x1b[")
}

func TestColumns_Interpolates(t *testing.T) {
	f := testFrame()
	f.Samples = ramp(0, 10, 20, 30, 40)

	got := columns(f, 9)
	require.Len(t, got, 9)
	for c, v := range got {
		assert.InDelta(t, float64(c)*5, v, 1e-9, "column %d", c)
	}
}

func TestColumns_BlankOutsideRecordedSpan(t *testing.T) {
	f := testFrame()
	f.Samples = []sample.Sample{{Index: 2, Position: 100}, {Index: 4, Position: 300}}

	got := columns(f, 5)
	assert.True(t, math.IsNaN(got[0]))
	assert.True(t, math.IsNaN(got[1]))
	assert.InDelta(t, 100, got[2], 1e-9)
	assert.InDelta(t, 200, got[3], 1e-9)
	assert.InDelta(t, 300, got[4], 1e-9)
}

func TestColumns_SingleSample(t *testing.T) {
	f := testFrame()
	f.XMax = 10
	f.Samples = ramp(120)

	got := columns(f, 11)
	assert.InDelta(t, 120, got[0], 1e-9)
	for _, v := range got[1:] {
		assert.True(t, math.IsNaN(v))
	}
}

func TestColumns_ClampsToRange(t *testing.T) {
	f := testFrame()
	f.Samples = ramp(900, -50)
	f.XMax = 1

	got := columns(f, 2)
	assert.Equal(t, []float64{500, 0}, got)
}

func TestScaleIndex(t *testing.T) {
	tests := []struct {
		name   string
		v      float64
		lo, hi float64
		n      int
		want   int
	}{
		{"low edge", 0, 0, 10, 11, 0},
		{"high edge", 10, 0, 10, 11, 10},
		{"middle", 5, 0, 10, 11, 5},
		{"below", -1, 0, 10, 11, 0},
		{"above", 11, 0, 10, 11, 10},
		{"empty span", 3, 5, 5, 11, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, scaleIndex(tt.v, tt.lo, tt.hi, tt.n))
		})
	}
}
