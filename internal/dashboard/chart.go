package dashboard

import "fintrack/internal/core"

const (
	ColorIncome   = "#48bb78"
	ColorExpenses = "#fc8181"
	ColorBalance  = "#4f46e5"
)

// Chart is the three-bar monthly overview laid out for an SVG viewBox.
type Chart struct {
	Width  float64
	Height float64
	// ZeroY is where the x axis sits; it moves up when the balance is negative.
	ZeroY float64
	Bars  []Bar
}

type Bar struct {
	Label  string
	Color  string
	Value  core.Money
	X      float64
	Y      float64
	Width  float64
	Height float64
}

const (
	chartWidth  = 360
	chartHeight = 200
	chartTop    = 10
	chartBottom = 24
	barWidth    = 72
)

// NewChart lays out Income, Expenses and Balance as bars sharing one scale.
func NewChart(s core.MonthlySummary) Chart {
	series := []struct {
		label string
		color string
		value core.Money
	}{
		{"Income", ColorIncome, s.TotalIncome},
		{"Expenses", ColorExpenses, s.TotalExpenses},
		{"Balance", ColorBalance, s.Balance},
	}

	var maxPos, maxNeg float64
	for _, p := range series {
		v := p.value.InexactFloat64()
		if v > maxPos {
			maxPos = v
		}
		if -v > maxNeg {
			maxNeg = -v
		}
	}
	span := maxPos + maxNeg
	plot := float64(chartHeight - chartTop - chartBottom)

	ch := Chart{Width: chartWidth, Height: chartHeight, ZeroY: chartTop + plot}
	if span > 0 {
		ch.ZeroY = chartTop + plot*maxPos/span
	}

	slot := float64(chartWidth) / float64(len(series))
	for i, p := range series {
		v := p.value.InexactFloat64()
		b := Bar{
			Label: p.label,
			Color: p.color,
			Value: p.value,
			X:     slot*float64(i) + (slot-barWidth)/2,
			Width: barWidth,
			Y:     ch.ZeroY,
		}
		if span > 0 {
			if v >= 0 {
				b.Height = plot * v / span
				b.Y = ch.ZeroY - b.Height
			} else {
				b.Height = plot * -v / span
			}
		}
		ch.Bars = append(ch.Bars, b)
	}
	return ch
}
