// Package charts computes SVG geometry for the cost/reimbursement bar chart
// and the margin gauge.
package charts

import (
	"fmt"
	"math"

	"github.com/shopspring/decimal"

	"github.com/Simplici0/ncrsim/internal/format"
)

const (
	ColorCost          = "#00558c"
	ColorReimbursement = "#98c15c"
	ColorNegative      = "#D00000"
	colorStepNegative  = "#ffebee"
	colorStepPositive  = "#e8f5e9"

	GaugeMin = -20.0
	GaugeMax = 40.0
)

// Bar is one column of the bar chart.
type Bar struct {
	Label  string
	Text   string
	Color  string
	X      float64
	Y      float64
	Width  float64
	Height float64
}

// Mid is the horizontal centre of the bar.
func (b Bar) Mid() float64 { return b.X + b.Width/2 }

// TextY is where the value label sits, just above the bar.
func (b Bar) TextY() float64 { return b.Y - 6 }

// BarChart is the grouped cost vs. reimbursement chart.
type BarChart struct {
	Width     float64
	Height    float64
	BaselineY float64
	Bars      []Bar
}

// AxisY is where category labels sit, below the baseline.
func (c BarChart) AxisY() float64 { return c.BaselineY + 20 }

const (
	barWidth       = 400.0
	barHeight      = 300.0
	barPadTop      = 30.0
	barPadBottom   = 40.0
	barWidthFactor = 0.4
)

// NewBarChart lays out the cost basis and weighted reimbursement bars.
// Negative values render as empty bars.
func NewBarChart(costBasis, reimbursement decimal.Decimal) BarChart {
	values := []struct {
		label string
		value float64
		color string
	}{
		{"Cost Basis", costBasis.InexactFloat64(), ColorCost},
		{"Avg Reimbursement", reimbursement.InexactFloat64(), ColorReimbursement},
	}

	maxValue := 0.0
	for _, v := range values {
		maxValue = math.Max(maxValue, v.value)
	}

	plot := barHeight - barPadTop - barPadBottom
	baseline := barHeight - barPadBottom
	slot := barWidth / float64(len(values))
	w := slot * barWidthFactor

	chart := BarChart{Width: barWidth, Height: barHeight, BaselineY: baseline}
	for i, v := range values {
		h := 0.0
		if maxValue > 0 && v.value > 0 {
			h = v.value / maxValue * plot
		}
		chart.Bars = append(chart.Bars, Bar{
			Label:  v.label,
			Text:   format.SIMoney(v.value),
			Color:  v.color,
			X:      slot*float64(i) + (slot-w)/2,
			Y:      baseline - h,
			Width:  w,
			Height: h,
		})
	}
	return chart
}

// Arc is a stroked arc segment of the gauge.
type Arc struct {
	Path  string
	Color string
}

// Gauge is the margin-percent gauge with a fixed display range.
type Gauge struct {
	Text    string
	Color   string
	Min     float64
	Max     float64
	Steps   []Arc
	Bar     Arc
	CenterX float64
	CenterY float64
	// Threshold marker at zero margin.
	ThresholdX1, ThresholdY1, ThresholdX2, ThresholdY2 float64
}

const (
	gaugeCX     = 150.0
	gaugeCY     = 140.0
	gaugeRadius = 110.0
	gaugeBand   = 30.0
)

// NewGauge builds the gauge for a margin percentage. The arc is clamped to
// the display range; the printed number is not.
func NewGauge(marginPercent decimal.Decimal) Gauge {
	v := marginPercent.InexactFloat64()
	color := ColorReimbursement
	if marginPercent.IsNegative() {
		color = ColorNegative
	}

	inner := gaugeRadius - gaugeBand
	tx1, ty1 := polar(angleFor(0), inner)
	tx2, ty2 := polar(angleFor(0), gaugeRadius+4)

	return Gauge{
		Text:    format.Percent(marginPercent),
		Color:   color,
		Min:     GaugeMin,
		Max:     GaugeMax,
		CenterX: gaugeCX,
		CenterY: gaugeCY,
		Steps: []Arc{
			{Path: arcPath(GaugeMin, 0), Color: colorStepNegative},
			{Path: arcPath(0, GaugeMax), Color: colorStepPositive},
		},
		Bar:         Arc{Path: arcPath(GaugeMin, clamp(v, GaugeMin, GaugeMax)), Color: color},
		ThresholdX1: tx1,
		ThresholdY1: ty1,
		ThresholdX2: tx2,
		ThresholdY2: ty2,
	}
}

// angleFor maps a gauge value to radians, with GaugeMin at pi and GaugeMax at 0.
func angleFor(v float64) float64 {
	frac := (clamp(v, GaugeMin, GaugeMax) - GaugeMin) / (GaugeMax - GaugeMin)
	return math.Pi * (1 - frac)
}

func polar(theta, r float64) (float64, float64) {
	return round2(gaugeCX + r*math.Cos(theta)), round2(gaugeCY - r*math.Sin(theta))
}

// arcPath draws the band's centre line from one value to another, clockwise.
func arcPath(from, to float64) string {
	r := gaugeRadius - gaugeBand/2
	x1, y1 := polar(angleFor(from), r)
	x2, y2 := polar(angleFor(to), r)
	return fmt.Sprintf("M %.2f %.2f A %.2f %.2f 0 0 1 %.2f %.2f", x1, y1, r, r, x2, y2)
}

// StrokeWidth is the gauge band thickness.
func (Gauge) StrokeWidth() float64 { return gaugeBand }

// BarStrokeWidth is the thickness of the value arc drawn over the band.
func (Gauge) BarStrokeWidth() float64 { return gaugeBand / 2 }

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
