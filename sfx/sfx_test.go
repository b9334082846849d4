/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package sfx

import (
	"bytes"
	"encoding/binary"
	"math"
	"testing"
	"time"

	"github.com/faiface/beep"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func drain(s beep.Streamer) [][2]float64 {
	var out [][2]float64

	buf := make([][2]float64, 512)
	for {
		n, ok := s.Stream(buf)
		out = append(out, buf[:n]...)
		if !ok {
			return out
		}
	}
}

func peak(samples [][2]float64) float64 {
	var p float64
	for _, s := range samples {
		p = math.Max(p, math.Abs(s[0]))
	}

	return p
}

func TestSynthesizeLength(t *testing.T) {
	for id, voices := range builtins {
		samples := drain(Synthesize(SampleRate, voices, DefaultVolume))

		assert.Equal(t, SampleRate.N(Length(voices)), len(samples), id)
		assert.LessOrEqual(t, peak(samples), 1.0, id)
		assert.Greater(t, peak(samples), 0.05, id)
	}
}

func TestSynthesizeVolume(t *testing.T) {
	voices := builtins["pop-2"]

	quiet := peak(drain(Synthesize(SampleRate, voices, 0.1)))
	loud := peak(drain(Synthesize(SampleRate, voices, 0.8)))

	assert.Greater(t, loud, quiet*4)

	silent := peak(drain(Synthesize(SampleRate, voices, 0)))
	assert.Less(t, silent, 0.001)
}

func TestOffsetVoiceStartsLate(t *testing.T) {
	voices := []Voice{{Wave: Sine, From: 440, To: 440, Duration: 50 * time.Millisecond, Gain: 1, Offset: 100 * time.Millisecond}}

	samples := drain(Synthesize(SampleRate, voices, 1))

	assert.Zero(t, peak(samples[:SampleRate.N(100*time.Millisecond)]))
	assert.Greater(t, peak(samples[SampleRate.N(100*time.Millisecond):]), 0.5)
}

func TestWave(t *testing.T) {
	assert.InDelta(t, 1, wave(Sine, 0.25), 1e-9)
	assert.InDelta(t, -1, wave(Triangle, 0), 1e-9)
	assert.InDelta(t, 1, wave(Triangle, 0.5), 1e-9)
	assert.Equal(t, 1.0, wave(Square, 0.1))
	assert.Equal(t, -1.0, wave(Square, 0.6))
	assert.InDelta(t, 0, wave(Sawtooth, 0.5), 1e-9)
}

func TestClampVolume(t *testing.T) {
	assert.Equal(t, 0.0, ClampVolume(-1))
	assert.Equal(t, 1.0, ClampVolume(3))
	assert.Equal(t, 0.5, ClampVolume(0.5))
	assert.Equal(t, DefaultVolume, ClampVolume(math.NaN()))
}

func TestClipBuiltin(t *testing.T) {
	cache := afero.NewMemMapFs()

	c, err := Load(nil, cache, "/sfx")
	require.NoError(t, err)

	clip, err := c.Clip("pop-10", 0.35)
	require.NoError(t, err)

	assert.Equal(t, "audio/wav", clip.ContentType)
	require.Greater(t, len(clip.Data), 44)
	assert.Equal(t, "RIFF", string(clip.Data[:4]))
	assert.Equal(t, "WAVE", string(clip.Data[8:12]))

	channels := binary.LittleEndian.Uint16(clip.Data[22:24])
	rate := binary.LittleEndian.Uint32(clip.Data[24:28])
	bits := binary.LittleEndian.Uint16(clip.Data[34:36])

	assert.Equal(t, uint16(1), channels)
	assert.Equal(t, uint32(SampleRate), rate)
	assert.Equal(t, uint16(16), bits)

	cached, err := afero.Exists(cache, "pop-10@0.35.wav")
	require.NoError(t, err)
	assert.True(t, cached)

	again, err := c.Clip("pop-10", 0.35)
	require.NoError(t, err)
	assert.True(t, bytes.Equal(clip.Data, again.Data))
}

func TestClipUnknown(t *testing.T) {
	c, err := Load(nil, nil, "/sfx")
	require.NoError(t, err)

	_, err = c.Clip("pop-11", 0.35)
	assert.ErrorIs(t, err, ErrUnknown)

	_, err = c.Clip("asset:nope", 0.35)
	assert.ErrorIs(t, err, ErrUnknown)
}

func TestAssets(t *testing.T) {
	assets := afero.NewMemMapFs()
	wavData := []byte("RIFF\x24\x00\x00\x00WAVEfmt \x10\x00\x00\x00\x01\x00\x01\x00\x44\xac\x00\x00\x88\x58\x01\x00\x02\x00\x10\x00data\x00\x00\x00\x00")

	require.NoError(t, afero.WriteFile(assets, "Ding.wav", wavData, 0o644))
	require.NoError(t, afero.WriteFile(assets, "more/ding.mp3", []byte("ID3\x03\x00\x00\x00\x00\x00\x00"), 0o644))
	require.NoError(t, afero.WriteFile(assets, "鐘聲.ogg", []byte("OggS\x00"), 0o644))
	require.NoError(t, afero.WriteFile(assets, "readme.txt", []byte("x"), 0o644))

	c, err := Load(assets, nil, "/sfx")
	require.NoError(t, err)

	opts := c.Options()
	require.Len(t, opts, len(builtinOptions)+3)
	assert.Equal(t, "pop-1", opts[0].Value)

	local := opts[len(builtinOptions):]
	for i := 1; i < len(local); i++ {
		assert.Less(t, local[i-1].Value, local[i].Value)
	}

	ids := map[string]bool{}
	for _, o := range local {
		ids[o.Value] = true
		assert.Equal(t, "/sfx/"+o.Value, o.URL)
	}

	assert.True(t, ids["asset:ding"])
	assert.Len(t, ids, 3)

	assert.True(t, c.Known("asset:ding"))
	assert.True(t, c.Known("pop-3"))
	assert.False(t, c.Known("asset:readme"))

	clip, err := c.Clip("asset:ding", 1)
	require.NoError(t, err)
	assert.Equal(t, wavData, clip.Data)
	assert.Contains(t, clip.ContentType, "wav")
}

func TestAssetIDKeepsInnerDots(t *testing.T) {
	assets := afero.NewMemMapFs()
	require.NoError(t, afero.WriteFile(assets, "a.b.mp3", []byte("ID3\x03\x00\x00\x00\x00\x00\x00"), 0o644))
	require.NoError(t, afero.WriteFile(assets, "v1.2 final.wav", []byte("RIFF"), 0o644))

	c, err := Load(assets, nil, "/sfx")
	require.NoError(t, err)

	assert.True(t, c.Known("asset:a-b"))
	assert.False(t, c.Known("asset:a"))
	assert.True(t, c.Known("asset:v1-2-final"))

	for _, o := range c.Options()[len(builtinOptions):] {
		if o.Value == "asset:a-b" {
			assert.Equal(t, "Local: a.b", o.Label)
		}
	}
}
