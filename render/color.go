/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package render

import (
	"fmt"
	"image/color"
	"math"
	"strconv"
	"strings"

	"github.com/lucasb-eyer/go-colorful"
	"golang.org/x/image/colornames"
)

// ParseColor parses a CSS colour string: #rgb, #rgba, #rrggbb, #rrggbbaa,
// rgb(), rgba(), "transparent" or an SVG colour keyword.
func ParseColor(s string) (color.Color, error) {
	v := strings.ToLower(strings.TrimSpace(s))

	switch {
	case v == "":
		return nil, fmt.Errorf("empty color")
	case v == "transparent":
		return color.Transparent, nil
	case strings.HasPrefix(v, "#"):
		return parseHex(v)
	case strings.HasPrefix(v, "rgb"):
		return parseFunctional(v)
	}

	if c, ok := colornames.Map[v]; ok {
		return c, nil
	}

	return nil, fmt.Errorf("unrecognized color %q", s)
}

func parseHex(v string) (color.Color, error) {
	rgb, alpha := v, ""

	switch len(v) {
	case 5:
		rgb, alpha = v[:4], strings.Repeat(v[4:], 2)
	case 9:
		rgb, alpha = v[:7], v[7:]
	}

	c, err := colorful.Hex(rgb)
	if err != nil {
		return nil, fmt.Errorf("invalid hex color %q: %w", v, err)
	}

	r, g, b := c.Clamped().RGB255()
	out := color.NRGBA{R: r, G: g, B: b, A: 255}

	if alpha != "" {
		a, err := strconv.ParseUint(alpha, 16, 8)
		if err != nil {
			return nil, fmt.Errorf("invalid hex alpha %q: %w", v, err)
		}
		out.A = uint8(a)
	}

	return out, nil
}

func parseFunctional(v string) (color.Color, error) {
	open := strings.IndexByte(v, '(')
	if open < 0 || !strings.HasSuffix(v, ")") {
		return nil, fmt.Errorf("invalid color function %q", v)
	}

	parts := strings.FieldsFunc(v[open+1:len(v)-1], func(r rune) bool {
		return r == ',' || r == ' ' || r == '/'
	})
	if len(parts) != 3 && len(parts) != 4 {
		return nil, fmt.Errorf("invalid color function %q", v)
	}

	var channels [3]uint8
	for i := range channels {
		n, err := parseComponent(parts[i], 255)
		if err != nil {
			return nil, fmt.Errorf("invalid color %q: %w", v, err)
		}
		channels[i] = uint8(math.Round(n))
	}

	alpha := 1.0
	if len(parts) == 4 {
		a, err := parseComponent(parts[3], 1)
		if err != nil {
			return nil, fmt.Errorf("invalid color %q: %w", v, err)
		}
		alpha = a
	}

	return color.NRGBA{
		R: channels[0],
		G: channels[1],
		B: channels[2],
		A: uint8(math.Round(alpha * 255)),
	}, nil
}

// parseComponent parses a number or percentage and clamps it to [0, scale].
func parseComponent(s string, scale float64) (float64, error) {
	if p, ok := strings.CutSuffix(s, "%"); ok {
		f, err := strconv.ParseFloat(p, 64)
		if err != nil {
			return 0, err
		}

		return clamp(f/100*scale, 0, scale), nil
	}

	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, err
	}

	return clamp(f, 0, scale), nil
}
