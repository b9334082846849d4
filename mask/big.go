/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package mask

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"slices"
)

type Shape string

const (
	Circle    Shape = "circle"
	Square    Shape = "square"
	Trapezoid Shape = "trapezoid"
)

var Shapes = []Shape{Circle, Square, Trapezoid}

type Direction string

const (
	Up    Direction = "up"
	Down  Direction = "down"
	Left  Direction = "left"
	Right Direction = "right"
)

var (
	ErrDirection = errors.New("unknown direction")
	ErrPatch     = errors.New("invalid mask patch")
)

// BigMask is a single movable shape hiding part of the base image.
// Coordinates are in display pixels.
type BigMask struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
	Shape  Shape   `json:"shape"`
	Color  string  `json:"color"`
	Step   float64 `json:"step"`
}

func DefaultBigMask() BigMask {
	return BigMask{
		Width:  900,
		Height: 900,
		Shape:  Circle,
		Color:  "#ffffff",
		Step:   12,
	}
}

// Update merges the fields present in patch. Unknown shapes and negative
// sizes leave the current values in place.
func (m *BigMask) Update(patch []byte) error {
	next := *m

	if err := json.Unmarshal(patch, &next); err != nil {
		return fmt.Errorf("%w: %w", ErrPatch, err)
	}

	if !slices.Contains(Shapes, next.Shape) {
		next.Shape = m.Shape
	}
	if next.Width < 0 || math.IsNaN(next.Width) {
		next.Width = m.Width
	}
	if next.Height < 0 || math.IsNaN(next.Height) {
		next.Height = m.Height
	}

	next.X = math.Max(0, next.X)
	next.Y = math.Max(0, next.Y)

	*m = next

	return nil
}

// Move shifts the mask by step×multiplier towards dir, stopping at the
// top and left edges.
func (m *BigMask) Move(dir Direction, multiplier float64) error {
	step := m.Step
	if step == 0 {
		step = 12
	}

	step *= multiplier

	switch dir {
	case Up:
		m.Y -= step
	case Down:
		m.Y += step
	case Left:
		m.X -= step
	case Right:
		m.X += step
	default:
		return fmt.Errorf("%w: %q", ErrDirection, dir)
	}

	m.X = math.Max(0, m.X)
	m.Y = math.Max(0, m.Y)

	return nil
}
