/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package render

import (
	"math"
	"strings"
)

// Fit is the policy for mapping a background image onto a canvas of a
// different aspect ratio.
type Fit string

const (
	FitCover   Fit = "cover"
	FitContain Fit = "contain"
	FitStretch Fit = "stretch"
)

// ParseFit maps a stored fit name onto a Fit. Unknown or empty values
// become FitCover.
func ParseFit(s string) Fit {
	switch Fit(strings.ToLower(strings.TrimSpace(s))) {
	case FitContain:
		return FitContain
	case FitStretch:
		return FitStretch
	default:
		return FitCover
	}
}

// Place returns the CSS rectangle an imgW x imgH image occupies on a
// canvasW x canvasH canvas. Cover overflows and clips, contain letterboxes,
// and both are centred.
func Place(fit Fit, canvasW, canvasH, imgW, imgH float64) Rect {
	if fit == FitStretch || imgW <= 0 || imgH <= 0 {
		return Rect{W: canvasW, H: canvasH}
	}

	var scale float64
	if fit == FitContain {
		scale = math.Min(canvasW/imgW, canvasH/imgH)
	} else {
		scale = math.Max(canvasW/imgW, canvasH/imgH)
	}

	w := imgW * scale
	h := imgH * scale

	return Rect{
		X: (canvasW - w) / 2,
		Y: (canvasH - h) / 2,
		W: w,
		H: h,
	}
}
