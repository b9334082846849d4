/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package mask

import (
	"fmt"
	"image"
	"image/color"
	"image/draw"
	"math"
	"strconv"

	"github.com/anthonynsimon/bild/blur"
	"github.com/fogleman/gg"

	"github.com/Seednode/guessword/render"
	"github.com/Seednode/guessword/store"
)

const (
	defaultBlockFill = "#0f172a"
	defaultTint      = "#ffffff"
	defaultOpacity   = 0.45
	defaultBlur      = 12
)

// Numbers controls the labels drawn on closed blocks.
type Numbers struct {
	Enabled bool
	Font    string
	Size    float64 // CSS pixels
	Color   string
	Shadow  string // none, soft or strong
	Style   string // badge or plain
}

// NumbersFor reads the numbering settings of a quiz.
func NumbersFor(cfg store.QuizConfig) Numbers {
	return Numbers{
		Enabled: cfg.BlockNumberEnabled,
		Font:    cfg.BlockNumberFont,
		Size:    cfg.BlockNumberSize,
		Color:   cfg.BlockNumberColor,
		Shadow:  cfg.BlockNumberShadow,
		Style:   cfg.BlockNumberStyle,
	}
}

func colorOr(s, fallback string) color.NRGBA {
	c, err := render.ParseColor(s)
	if err != nil {
		c, _ = render.ParseColor(fallback)
	}

	return color.NRGBAModel.Convert(c).(color.NRGBA)
}

func withAlpha(c color.NRGBA, a float64) color.NRGBA {
	c.A = uint8(math.Round(float64(c.A) * math.Max(0, math.Min(1, a))))

	return c
}

// blockRect returns block i in device pixels. Edges are rounded so
// neighbouring blocks share them exactly.
func blockRect(b image.Rectangle, m *BlockMask, i int) image.Rectangle {
	row, col := i/m.Cols(), i%m.Cols()

	x := func(c int) int { return b.Min.X + int(math.Round(float64(c*b.Dx())/float64(m.Cols()))) }
	y := func(r int) int { return b.Min.Y + int(math.Round(float64(r*b.Dy())/float64(m.Rows()))) }

	return image.Rect(x(col), y(row), x(col+1), y(row+1))
}

// DrawBlocks hides every closed block of m on s using style, then labels
// the closed blocks when numbering is enabled.
func DrawBlocks(s *render.Surface, m *BlockMask, style store.BlockStyle, nums Numbers, faces render.FaceSource) error {
	img := s.Image()
	dpr := s.DevicePixelRatio()

	var closed []int
	for i := range m.Len() {
		if !m.IsOpen(i) {
			closed = append(closed, i)
		}
	}

	if len(closed) == 0 {
		return nil
	}

	frosted := style.Blur > 0 || style.Tint != ""
	gradient := style.From != "" && style.To != ""

	if frosted {
		radius := style.Blur
		if radius <= 0 {
			radius = defaultBlur
		}

		blurred := make(map[int]*image.RGBA, len(closed))
		for _, i := range closed {
			r := blockRect(img.Bounds(), m, i)

			block := image.NewRGBA(image.Rect(0, 0, r.Dx(), r.Dy()))
			draw.Draw(block, block.Bounds(), img, r.Min, draw.Src)

			blurred[i] = blur.Gaussian(block, radius*dpr)
		}

		for _, i := range closed {
			r := blockRect(img.Bounds(), m, i)
			draw.Draw(img, r, blurred[i], blurred[i].Bounds().Min, draw.Src)
		}
	}

	dc := gg.NewContextForRGBA(img)

	for _, i := range closed {
		r := blockRect(img.Bounds(), m, i)
		x, y := float64(r.Min.X), float64(r.Min.Y)
		w, h := float64(r.Dx()), float64(r.Dy())

		dc.DrawRectangle(x, y, w, h)

		switch {
		case frosted:
			opacity := style.Opacity
			if opacity <= 0 {
				opacity = defaultOpacity
			}

			dc.SetColor(withAlpha(colorOr(style.Tint, defaultTint), opacity))
		case gradient:
			g := gg.NewLinearGradient(x, y, x+w, y+h)
			g.AddColorStop(0, colorOr(style.From, defaultBlockFill))
			g.AddColorStop(1, colorOr(style.To, defaultBlockFill))
			dc.SetFillStyle(g)
		default:
			dc.SetColor(colorOr(style.Fill, defaultBlockFill))
		}

		dc.Fill()

		if style.Border != "" {
			dc.SetLineWidth(dpr)
			dc.DrawRectangle(x+dpr/2, y+dpr/2, w-dpr, h-dpr)
			dc.SetColor(colorOr(style.Border, defaultBlockFill))
			dc.Stroke()
		}
	}

	if !nums.Enabled {
		return nil
	}

	return drawNumbers(dc, img.Bounds(), m, closed, nums, faces, dpr)
}

func drawNumbers(dc *gg.Context, b image.Rectangle, m *BlockMask, closed []int, nums Numbers, faces render.FaceSource, dpr float64) error {
	size := nums.Size
	if size <= 0 {
		size = 50
	}

	face, err := faces.Face(nums.Font, size*dpr)
	if err != nil {
		return fmt.Errorf("block number face: %w", err)
	}
	defer face.Close()

	dc.SetFontFace(face)

	ink := colorOr(nums.Color, "#111111")

	var shadow float64
	switch nums.Shadow {
	case "soft":
		shadow = 0.35
	case "strong":
		shadow = 0.6
	}

	for _, i := range closed {
		r := blockRect(b, m, i)
		cx := float64(r.Min.X+r.Max.X) / 2
		cy := float64(r.Min.Y+r.Max.Y) / 2
		label := strconv.Itoa(i + 1)

		if nums.Style == "badge" {
			dc.DrawCircle(cx, cy, size*0.75*dpr)
			dc.SetColor(color.NRGBA{R: 255, G: 255, B: 255, A: 217})
			dc.Fill()
		}

		if shadow > 0 {
			offset := math.Max(1, size*dpr/25)
			dc.SetColor(color.NRGBA{A: uint8(shadow * 255)})
			dc.DrawStringAnchored(label, cx+offset, cy+offset, 0.5, 0.35)
		}

		dc.SetColor(ink)
		dc.DrawStringAnchored(label, cx, cy, 0.5, 0.35)
	}

	return nil
}

// DrawBigMask paints the big mask's shape on s.
func DrawBigMask(s *render.Surface, m BigMask) {
	dpr := s.DevicePixelRatio()
	dc := gg.NewContextForRGBA(s.Image())

	x, y := m.X*dpr, m.Y*dpr
	w, h := m.Width*dpr, m.Height*dpr

	switch m.Shape {
	case Square:
		dc.DrawRectangle(x, y, w, h)
	case Trapezoid:
		inset := w * 0.2
		dc.MoveTo(x+inset, y)
		dc.LineTo(x+w-inset, y)
		dc.LineTo(x+w, y+h)
		dc.LineTo(x, y+h)
		dc.ClosePath()
	default:
		dc.DrawEllipse(x+w/2, y+h/2, w/2, h/2)
	}

	dc.SetColor(colorOr(m.Color, "#ffffff"))
	dc.Fill()
}
