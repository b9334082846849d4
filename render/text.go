/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package render

import (
	"fmt"
	"image/color"
	"math"
	"strings"
	"sync"
	"unicode/utf8"

	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"
	"golang.org/x/text/unicode/norm"
)

const defaultFontSize = 48

// FaceSource provides font faces by family. size is in device pixels.
// Callers close the returned face.
type FaceSource interface {
	Face(family string, size float64) (font.Face, error)
}

// TextMetrics describes a string's ink box the way a centre-aligned,
// baseline-anchored canvas measures it. All values are in CSS pixels.
type TextMetrics struct {
	Width float64

	// Left and Right are the ink extents to either side of the anchor.
	Left, Right float64
	// Ascent and Descent are the ink extents above and below the baseline.
	Ascent, Descent float64

	// HasBox is false when the face reports no ink for the string.
	HasBox bool
}

// MeasureText measures text on a face sized in device pixels and reports
// the result in CSS pixels.
func MeasureText(face font.Face, text string, dpr float64) TextMetrics {
	bounds, advance := font.BoundString(face, text)

	width := fromFixed(advance) / dpr
	m := TextMetrics{Width: width}

	if bounds.Max.X <= bounds.Min.X || bounds.Max.Y <= bounds.Min.Y {
		return m
	}

	minX, maxX := fromFixed(bounds.Min.X)/dpr, fromFixed(bounds.Max.X)/dpr
	minY, maxY := fromFixed(bounds.Min.Y)/dpr, fromFixed(bounds.Max.Y)/dpr

	m.Left = width/2 - minX
	m.Right = maxX - width/2
	m.Ascent = -minY
	m.Descent = maxY
	m.HasBox = true

	return m
}

// CenterShift returns how far the anchor must move so the ink box, rather
// than the baseline, is centred on it.
func (m TextMetrics) CenterShift() (dx, dy float64) {
	if !m.HasBox {
		return 0, 0
	}

	return (m.Right - m.Left) / 2, (m.Descent - m.Ascent) / 2
}

// TextAnchor converts normalised coordinates into a CSS-pixel anchor,
// treating non-finite input as 0.5 and clamping to the canvas.
func TextAnchor(width, height, tx, ty float64) (x, y float64) {
	return width * unit(tx), height * unit(ty)
}

func unit(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return 0.5
	}

	return clamp(v, 0, 1)
}

func drawText(s *Surface, faces FaceSource, cfg Config, width, height float64) {
	text := norm.NFC.String(cfg.Text)

	size := cfg.FontSize
	if !(size > 0) || math.IsInf(size, 0) {
		size = defaultFontSize
	}

	face, err := faces.Face(cfg.Font, size*s.DevicePixelRatio())
	if err != nil {
		return
	}
	defer face.Close()

	var fill color.Color = color.Black
	if c, err := ParseColor(cfg.TextColor); err == nil {
		fill = c
	}

	text = substituteMissing(face, text)

	x, y := TextAnchor(width, height, cfg.TextX, cfg.TextY)

	m := MeasureText(face, text, s.DevicePixelRatio())
	dx, dy := m.CenterShift()

	s.DrawText(face, text, x-dx-m.Width/2, y-dy, fill)
}

// substituteMissing replaces runes the face has no glyph for with U+FFFD.
// font.BoundString and font.Drawer fall back differently for missing
// glyphs, and the measured box must match the drawn ink.
func substituteMissing(face font.Face, text string) string {
	return strings.Map(func(r rune) rune {
		if _, _, ok := face.GlyphBounds(r); !ok {
			return utf8.RuneError
		}

		return r
	}, text)
}

var parseGoRegular = sync.OnceValues(func() (*opentype.Font, error) {
	return opentype.Parse(goregular.TTF)
})

type goFaces struct{}

// DefaultFaces draws every family with Go Regular.
var DefaultFaces FaceSource = goFaces{}

func (goFaces) Face(_ string, size float64) (font.Face, error) {
	f, err := parseGoRegular()
	if err != nil {
		return nil, fmt.Errorf("parse go regular: %w", err)
	}

	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}
