/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package render

import (
	"image/color"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseColor(t *testing.T) {
	cases := map[string]color.NRGBA{
		"#222":                  {R: 0x22, G: 0x22, B: 0x22, A: 255},
		"#111111":               {R: 0x11, G: 0x11, B: 0x11, A: 255},
		"#ff000080":             {R: 255, A: 0x80},
		"#0f08":                 {G: 255, A: 0x88},
		"rgb(1, 2, 3)":          {R: 1, G: 2, B: 3, A: 255},
		"rgba(239, 68, 68, .5)": {R: 239, G: 68, B: 68, A: 128},
		"rgba(0,0,0,0.6)":       {A: 153},
		"rgb(100% 0% 0% / 50%)": {R: 255, A: 128},
	}

	for in, want := range cases {
		got, err := ParseColor(in)
		require.NoError(t, err, in)
		assert.Equal(t, want, color.NRGBAModel.Convert(got), in)
	}

	named, err := ParseColor("White")
	require.NoError(t, err)
	r, g, b, a := named.RGBA()
	assert.Equal(t, []uint32{0xffff, 0xffff, 0xffff, 0xffff}, []uint32{r, g, b, a})

	for _, bad := range []string{"", "#12", "#zzzzzz", "rgb(1,2)", "hsl(0, 0%, 0%)", "notacolor"} {
		_, err := ParseColor(bad)
		assert.Error(t, err, bad)
	}
}
