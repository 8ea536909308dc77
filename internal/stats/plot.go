package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"github.com/mattn/go-runewidth"
	"golang.org/x/term"
)

// Series is a named data series for plotting.
type Series struct {
	Name   string
	Values []float64
}

const (
	defaultPlotHeight = 8
	minPlotWidth      = 10
	fallbackWidth     = 80
	axisSeparator     = " ┤"
	colorReset        = "\x1b[0m"
)

var seriesColors = []string{"\x1b[36m", "\x1b[35m", "\x1b[33m", "\x1b[32m"}

// brailleBits maps a dot at (column, row) within a 2x4 braille cell to its
// bit in the U+2800 block.
var brailleBits = [2][4]uint8{
	{0x01, 0x02, 0x04, 0x40},
	{0x08, 0x10, 0x20, 0x80},
}

// canvas is a grid of braille cells, each two dots wide and four tall. Every
// cell remembers the first series that touched it for coloring.
type canvas struct {
	width, height int
	bits          [][]uint8
	owner         [][]int
}

func newCanvas(width, height int) *canvas {
	c := &canvas{width: width, height: height}
	c.bits = make([][]uint8, height)
	c.owner = make([][]int, height)
	for y := range c.bits {
		c.bits[y] = make([]uint8, width)
		c.owner[y] = make([]int, width)
		for x := range c.owner[y] {
			c.owner[y][x] = -1
		}
	}
	return c
}

func (c *canvas) set(dx, dy, series int) {
	cx, cy := dx/2, dy/4
	if dx < 0 || dy < 0 || cx >= c.width || cy >= c.height {
		return
	}
	c.bits[cy][cx] |= brailleBits[dx%2][dy%4]
	if c.owner[cy][cx] < 0 {
		c.owner[cy][cx] = series
	}
}

// line joins two dot positions with a vertical run at the midpoint column.
func (c *canvas) line(x0, y0, x1, y1, series int) {
	mid := (x0 + x1) / 2
	for x := x0; x <= x1; x++ {
		switch {
		case x < mid:
			c.set(x, y0, series)
		case x > mid:
			c.set(x, y1, series)
		default:
			lo, hi := min(y0, y1), max(y0, y1)
			for y := lo; y <= hi; y++ {
				c.set(x, y, series)
			}
		}
	}
}

func (c *canvas) row(y int, useColor bool) string {
	var b strings.Builder
	for x := 0; x < c.width; x++ {
		ch := rune(0x2800 + int(c.bits[y][x]))
		if useColor && c.owner[y][x] >= 0 {
			b.WriteString(seriesColors[c.owner[y][x]%len(seriesColors)])
			b.WriteRune(ch)
			b.WriteString(colorReset)
			continue
		}
		b.WriteRune(ch)
	}
	return b.String()
}

// PlotSeries renders series as a braille line chart. Each series is scaled to
// its own range; the ranges are listed under the chart. A non-positive width
// fits the chart to the terminal.
func PlotSeries(w io.Writer, title string, series []Series, width, height int, useColor bool) error {
	var kept []Series
	for _, s := range series {
		if len(s.Values) > 0 {
			kept = append(kept, s)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	if width <= 0 {
		width = PlotWidthFor(terminalWidth())
	}
	width = max(width, minPlotWidth)
	if height <= 0 {
		height = defaultPlotHeight
	}
	if os.Getenv("NO_COLOR") != "" {
		useColor = false
	}

	c := newCanvas(width, height)
	dotRows := height * 4
	ranges := make([][2]float64, len(kept))
	for si, s := range kept {
		values := resample(s.Values, width*2)
		lo, hi := valueRange(values)
		ranges[si] = [2]float64{lo, hi}
		prevX, prevY := -1, 0
		for x, v := range values {
			y := dotRows - 1 - int(math.Round((v-lo)/(hi-lo)*float64(dotRows-1)))
			if prevX < 0 {
				c.set(x, y, si)
			} else {
				c.line(prevX, prevY, x, y, si)
			}
			prevX, prevY = x, y
		}
	}

	var b strings.Builder
	if title != "" {
		b.WriteString(title + "\n")
	}
	labels := axisLabels(height)
	labelWidth := runewidth.StringWidth("max")
	for y := 0; y < height; y++ {
		fmt.Fprintf(&b, "%*s%s%s\n", labelWidth, labels[y], axisSeparator, c.row(y, useColor))
	}
	for si, s := range kept {
		name := s.Name
		if useColor {
			name = seriesColors[si%len(seriesColors)] + name + colorReset
		}
		fmt.Fprintf(&b, "  %s  min %.0f  max %.0f\n", name, ranges[si][0], ranges[si][1])
	}
	_, err := io.WriteString(w, b.String())
	return err
}

// PlotWidthFor computes the chart width that fits in totalWidth columns
// including the axis.
func PlotWidthFor(totalWidth int) int {
	axis := runewidth.StringWidth("max" + axisSeparator)
	return max(totalWidth-axis, minPlotWidth)
}

func terminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return fallbackWidth
	}
	return width
}

func axisLabels(height int) []string {
	labels := make([]string, height)
	labels[0] = "max"
	if height > 1 {
		labels[height-1] = "min"
	}
	return labels
}

func valueRange(values []float64) (float64, float64) {
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	if hi-lo < 1e-9 {
		lo--
		hi++
	}
	return lo, hi
}

// resample stretches or shrinks values to n points. Shrinking averages
// buckets and stretching interpolates linearly.
func resample(values []float64, n int) []float64 {
	out := make([]float64, n)
	switch {
	case len(values) == 1 || n == 1:
		for i := range out {
			out[i] = values[0]
		}
	case len(values) >= n:
		for i := range out {
			start := i * len(values) / n
			end := max((i+1)*len(values)/n, start+1)
			var sum float64
			for _, v := range values[start:end] {
				sum += v
			}
			out[i] = sum / float64(end-start)
		}
	default:
		step := float64(len(values)-1) / float64(n-1)
		for i := range out {
			pos := float64(i) * step
			idx := min(int(pos), len(values)-2)
			frac := pos - float64(idx)
			out[i] = values[idx]*(1-frac) + values[idx+1]*frac
		}
	}
	return out
}
