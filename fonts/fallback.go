/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package fonts

import (
	"errors"
	"image"

	"golang.org/x/image/font"
	"golang.org/x/image/math/fixed"
)

// fallbackFace draws each rune with the first of its faces that has a
// glyph for it. Metrics come from the first face.
type fallbackFace struct {
	faces []font.Face
}

func newFallbackFace(faces ...font.Face) font.Face {
	if len(faces) == 1 {
		return faces[0]
	}

	return &fallbackFace{faces: faces}
}

func (f *fallbackFace) faceFor(r rune) font.Face {
	for _, face := range f.faces {
		if _, ok := face.GlyphAdvance(r); ok {
			return face
		}
	}

	return f.faces[0]
}

func (f *fallbackFace) Close() error {
	var errs []error

	for _, face := range f.faces {
		errs = append(errs, face.Close())
	}

	return errors.Join(errs...)
}

func (f *fallbackFace) Glyph(dot fixed.Point26_6, r rune) (image.Rectangle, image.Image, image.Point, fixed.Int26_6, bool) {
	return f.faceFor(r).Glyph(dot, r)
}

func (f *fallbackFace) GlyphBounds(r rune) (fixed.Rectangle26_6, fixed.Int26_6, bool) {
	return f.faceFor(r).GlyphBounds(r)
}

func (f *fallbackFace) GlyphAdvance(r rune) (fixed.Int26_6, bool) {
	return f.faceFor(r).GlyphAdvance(r)
}

// Kern only applies between runes drawn by the same face.
func (f *fallbackFace) Kern(r0, r1 rune) fixed.Int26_6 {
	face := f.faceFor(r0)
	if face != f.faceFor(r1) {
		return 0
	}

	return face.Kern(r0, r1)
}

func (f *fallbackFace) Metrics() font.Metrics {
	return f.faces[0].Metrics()
}

var _ font.Face = (*fallbackFace)(nil)
