/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package render draws a quiz's base image: a white base coat, an optional
// background image placed by fit mode, an optional calibration grid and a
// visually centred text label.
package render

import (
	"context"
	"errors"
	"fmt"
	"image/color"
	"math"
)

const (
	DefaultWidth  = 480
	DefaultHeight = 360

	DefaultDevicePixelRatio = 1

	// MaxDevicePixels caps the backing buffer of a render.
	MaxDevicePixels = 4096 * 4096
)

var ErrTooLarge = errors.New("render size too large")

// Config is read once per Render call and never modified.
type Config struct {
	Text      string
	Font      string
	TextColor string
	FontSize  float64
	TextX     float64
	TextY     float64

	BackgroundURL string
	BackgroundFit Fit

	GridGuide     bool
	GridThickness float64
	GridRows      int
	GridCols      int
	BlockRows     int
	BlockCols     int
}

// Options carries sizing hints and collaborators for a Render call. Zero
// values fall back to the surface's display size, the default device pixel
// ratio and DefaultFaces. A nil Loader skips background images.
type Options struct {
	Width            float64
	Height           float64
	DevicePixelRatio float64

	Loader ImageLoader
	Faces  FaceSource
}

// Render draws cfg onto s. Unloadable backgrounds, unknown fonts and bad
// colours are skipped. It fails with ErrTooLarge, leaving s untouched, when
// the device-pixel buffer would exceed MaxDevicePixels, and otherwise only
// returns ctx's error when the render was cancelled before it finished.
func Render(ctx context.Context, s *Surface, cfg Config, opts Options) error {
	cssW, cssH := targetSize(s, opts)
	dpr := devicePixelRatio(opts.DevicePixelRatio)

	if w, h := deviceSize(cssW, cssH, dpr); int64(w)*int64(h) > MaxDevicePixels {
		return fmt.Errorf("%w: %dx%d device pixels", ErrTooLarge, w, h)
	}

	s.Resize(cssW, cssH, dpr)

	width, height := s.Size()

	s.Clear(color.White)

	if cfg.BackgroundURL != "" && opts.Loader != nil {
		img, err := opts.Loader.Load(ctx, cfg.BackgroundURL)
		if ctxErr := ctx.Err(); ctxErr != nil {
			return ctxErr
		}

		if err == nil {
			b := img.Bounds()
			p := Place(cfg.BackgroundFit, width, height, float64(b.Dx()), float64(b.Dy()))
			s.DrawImage(img, p.X, p.Y, p.W, p.H)
		}
	}

	if cfg.GridGuide {
		rows, cols := GridCounts(cfg)
		drawGridGuide(s, width, height, cfg.GridThickness, rows, cols)
	}

	if cfg.Text != "" {
		faces := opts.Faces
		if faces == nil {
			faces = DefaultFaces
		}

		drawText(s, faces, cfg, width, height)
	}

	return ctx.Err()
}

func targetSize(s *Surface, opts Options) (width, height float64) {
	dw, dh := s.DisplaySize()

	return firstFinite(opts.Width, dw, DefaultWidth), firstFinite(opts.Height, dh, DefaultHeight)
}

func firstFinite(values ...float64) float64 {
	for _, v := range values {
		if v > 0 && !math.IsInf(v, 0) {
			return v
		}
	}

	return 0
}

func devicePixelRatio(requested float64) float64 {
	if !(requested > 0) || math.IsInf(requested, 0) {
		requested = DefaultDevicePixelRatio
	}

	return math.Max(1, requested)
}
