/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package render

import (
	"image/color"
	"math"
)

const defaultGridCount = 3

var (
	gridBorderColor   = color.NRGBA{R: 239, G: 68, B: 68, A: 191}
	gridInteriorColor = color.NRGBA{R: 239, G: 68, B: 68, A: 140}
)

// GridLines returns the x positions of the interior vertical lines and the
// y positions of the interior horizontal lines of a rows x cols grid.
func GridLines(width, height float64, rows, cols int) (xs, ys []float64) {
	for c := 1; c < cols; c++ {
		xs = append(xs, width*float64(c)/float64(cols))
	}

	for r := 1; r < rows; r++ {
		ys = append(ys, height*float64(r)/float64(rows))
	}

	return xs, ys
}

// GridThickness resolves the configured line width: unset means 2, and
// anything thinner than 1 is raised to 1.
func GridThickness(configured float64) float64 {
	if configured == 0 || math.IsNaN(configured) || math.IsInf(configured, 0) {
		configured = 2
	}

	return math.Max(1, configured)
}

// GridCounts resolves row and column counts, falling back from the grid
// counts to the block counts to 3.
func GridCounts(cfg Config) (rows, cols int) {
	return firstPositive(cfg.GridRows, cfg.BlockRows), firstPositive(cfg.GridCols, cfg.BlockCols)
}

func firstPositive(values ...int) int {
	for _, v := range values {
		if v > 0 {
			return v
		}
	}

	return defaultGridCount
}

func drawGridGuide(s *Surface, width, height, thickness float64, rows, cols int) {
	t := GridThickness(thickness)

	s.StrokeRect(Rect{X: t / 2, Y: t / 2, W: width - t, H: height - t}, t, gridBorderColor)

	xs, ys := GridLines(width, height, rows, cols)

	for _, x := range xs {
		s.StrokeLine(x, 0, x, height, t, gridInteriorColor)
	}

	for _, y := range ys {
		s.StrokeLine(0, y, width, y, t, gridInteriorColor)
	}
}
