/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package render

import (
	"image"
	"image/color"
	"image/draw"
	"math"

	xdraw "golang.org/x/image/draw"
	"golang.org/x/image/font"
	"golang.org/x/image/math/f64"
	"golang.org/x/image/math/fixed"
	"golang.org/x/image/vector"
)

// Surface is a drawing target with a backing pixel buffer and a separate
// display size in CSS pixels. Every drawing method takes CSS-pixel
// coordinates and scales them by the device pixel ratio, so strokes and
// text keep their CSS size regardless of the backing resolution.
type Surface struct {
	img *image.RGBA
	dpr float64

	displayWidth  float64
	displayHeight float64
}

// NewSurface returns a surface whose on-screen size is displayWidth x
// displayHeight CSS pixels. Either may be zero when the size is unknown.
// The backing buffer is allocated by Render.
func NewSurface(displayWidth, displayHeight float64) *Surface {
	return &Surface{
		img:           image.NewRGBA(image.Rect(0, 0, 1, 1)),
		dpr:           1,
		displayWidth:  displayWidth,
		displayHeight: displayHeight,
	}
}

// SetDisplaySize updates the on-screen size used when a render call does
// not request explicit dimensions.
func (s *Surface) SetDisplaySize(width, height float64) {
	s.displayWidth = width
	s.displayHeight = height
}

func (s *Surface) DisplaySize() (width, height float64) {
	return s.displayWidth, s.displayHeight
}

// Image returns the backing buffer. It is replaced on every resize.
func (s *Surface) Image() *image.RGBA {
	return s.img
}

func (s *Surface) DevicePixelRatio() float64 {
	return s.dpr
}

// Size returns the drawable area in CSS pixels.
func (s *Surface) Size() (width, height float64) {
	b := s.img.Bounds()

	return float64(b.Dx()) / s.dpr, float64(b.Dy()) / s.dpr
}

// Resize reallocates the backing buffer to round(css*dpr) pixels in each
// dimension, never smaller than 1x1.
func (s *Surface) Resize(cssWidth, cssHeight, dpr float64) {
	w, h := deviceSize(cssWidth, cssHeight, dpr)

	s.img = image.NewRGBA(image.Rect(0, 0, w, h))
	s.dpr = dpr
}

func deviceSize(cssWidth, cssHeight, dpr float64) (int, int) {
	return max(1, int(math.Round(cssWidth*dpr))), max(1, int(math.Round(cssHeight*dpr)))
}

// Clear replaces every pixel with c.
func (s *Surface) Clear(c color.Color) {
	draw.Draw(s.img, s.img.Bounds(), image.NewUniform(c), image.Point{}, draw.Src)
}

// Rect is an axis-aligned rectangle in CSS pixels.
type Rect struct {
	X, Y, W, H float64
}

// FillRects paints the union of rects with c in a single rasterizer pass,
// so rectangles that share an edge are not composited twice.
func (s *Surface) FillRects(c color.Color, rects ...Rect) {
	b := s.img.Bounds()
	bw, bh := float64(b.Dx()), float64(b.Dy())

	z := vector.NewRasterizer(b.Dx(), b.Dy())

	drawn := false
	for _, r := range rects {
		x0 := clamp(r.X*s.dpr, 0, bw)
		y0 := clamp(r.Y*s.dpr, 0, bh)
		x1 := clamp((r.X+r.W)*s.dpr, 0, bw)
		y1 := clamp((r.Y+r.H)*s.dpr, 0, bh)

		if x1 <= x0 || y1 <= y0 {
			continue
		}

		z.MoveTo(float32(x0), float32(y0))
		z.LineTo(float32(x1), float32(y0))
		z.LineTo(float32(x1), float32(y1))
		z.LineTo(float32(x0), float32(y1))
		z.ClosePath()

		drawn = true
	}

	if !drawn {
		return
	}

	z.Draw(s.img, b, image.NewUniform(c), image.Point{})
}

// StrokeLine strokes an axis-aligned line of the given width. Diagonal
// lines are not needed by any caller.
func (s *Surface) StrokeLine(x0, y0, x1, y1, width float64, c color.Color) {
	half := width / 2

	switch {
	case x0 == x1:
		s.FillRects(c, Rect{X: x0 - half, Y: min(y0, y1), W: width, H: math.Abs(y1 - y0)})
	case y0 == y1:
		s.FillRects(c, Rect{X: min(x0, x1), Y: y0 - half, W: math.Abs(x1 - x0), H: width})
	}
}

// StrokeRect strokes the outline of r with a line of the given width
// centred on its edges.
func (s *Surface) StrokeRect(r Rect, width float64, c color.Color) {
	half := width / 2

	outer := Rect{X: r.X - half, Y: r.Y - half, W: r.W + width, H: r.H + width}
	innerW := r.W - width
	innerH := r.H - width

	if innerW <= 0 || innerH <= 0 {
		s.FillRects(c, outer)

		return
	}

	s.FillRects(c,
		Rect{X: outer.X, Y: outer.Y, W: outer.W, H: width},
		Rect{X: outer.X, Y: outer.Y + outer.H - width, W: outer.W, H: width},
		Rect{X: outer.X, Y: outer.Y + width, W: width, H: innerH},
		Rect{X: outer.X + outer.W - width, Y: outer.Y + width, W: width, H: innerH},
	)
}

// DrawImage composites src scaled into the CSS rectangle (x, y, w, h).
// Parts that fall outside the surface are clipped.
func (s *Surface) DrawImage(src image.Image, x, y, w, h float64) {
	sb := src.Bounds()
	if sb.Empty() || w <= 0 || h <= 0 {
		return
	}

	sx := w * s.dpr / float64(sb.Dx())
	sy := h * s.dpr / float64(sb.Dy())

	m := f64.Aff3{
		sx, 0, x*s.dpr - sx*float64(sb.Min.X),
		0, sy, y*s.dpr - sy*float64(sb.Min.Y),
	}

	xdraw.CatmullRom.Transform(s.img, m, src, sb, xdraw.Over, nil)
}

// DrawText draws text with its baseline-left origin at (x, y). The face must
// already be sized in device pixels.
func (s *Surface) DrawText(face font.Face, text string, x, y float64, c color.Color) {
	d := &font.Drawer{
		Dst:  s.img,
		Src:  image.NewUniform(c),
		Face: face,
		Dot:  fixed.Point26_6{X: toFixed(x * s.dpr), Y: toFixed(y * s.dpr)},
	}
	d.DrawString(text)
}

func toFixed(v float64) fixed.Int26_6 {
	return fixed.Int26_6(math.Round(v * 64))
}

func fromFixed(v fixed.Int26_6) float64 {
	return float64(v) / 64
}

func clamp(v, lo, hi float64) float64 {
	return math.Min(math.Max(v, lo), hi)
}
