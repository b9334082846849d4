/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package sfx

import (
	"math"
	"time"

	"github.com/faiface/beep"
)

// Waveform is an oscillator shape.
type Waveform int

const (
	Sine Waveform = iota
	Triangle
	Square
	Sawtooth
)

const (
	minFrequency = 40
	silentGain   = 0.0001

	// the oscillator keeps running briefly after the release ends
	tail = 20 * time.Millisecond
)

// Voice is one oscillator with a pitch sweep and an attack/release
// envelope, both exponential.
type Voice struct {
	Wave     Waveform
	From     float64 // Hz
	To       float64 // Hz
	Duration time.Duration
	Gain     float64 // fraction of the effect volume
	Detune   float64 // cents
	Offset   time.Duration
}

var builtins = map[string][]Voice{
	"pop-1": {{Wave: Triangle, From: 900, To: 520, Duration: 110 * time.Millisecond, Gain: 1}},
	"pop-2": {{Wave: Sine, From: 520, To: 220, Duration: 130 * time.Millisecond, Gain: 1}},
	"pop-3": {{Wave: Square, From: 760, To: 320, Duration: 120 * time.Millisecond, Gain: 0.85}},
	"pop-4": {{Wave: Sawtooth, From: 420, To: 180, Duration: 140 * time.Millisecond, Gain: 0.75}},
	"pop-5": {
		{Wave: Triangle, From: 680, To: 260, Duration: 140 * time.Millisecond, Gain: 0.55, Detune: -9},
		{Wave: Triangle, From: 680, To: 260, Duration: 140 * time.Millisecond, Gain: 0.55, Detune: 9},
	},
	"pop-6": {{Wave: Sine, From: 240, To: 860, Duration: 120 * time.Millisecond, Gain: 0.8}},
	"pop-7": {
		{Wave: Sine, From: 880, To: 660, Duration: 180 * time.Millisecond, Gain: 0.6},
		{Wave: Sine, From: 1320, To: 990, Duration: 140 * time.Millisecond, Gain: 0.35, Offset: 10 * time.Millisecond},
	},
	"pop-8": {{Wave: Triangle, From: 1200, To: 520, Duration: 90 * time.Millisecond, Gain: 0.75}},
	"pop-9": {{Wave: Sine, From: 260, To: 120, Duration: 160 * time.Millisecond, Gain: 0.85}},
	"pop-10": {
		{Wave: Sine, From: 523.25, To: 523.25, Duration: 120 * time.Millisecond, Gain: 0.55},
		{Wave: Sine, From: 659.25, To: 659.25, Duration: 120 * time.Millisecond, Gain: 0.55, Offset: 90 * time.Millisecond},
		{Wave: Sine, From: 783.99, To: 783.99, Duration: 140 * time.Millisecond, Gain: 0.6, Offset: 180 * time.Millisecond},
	},
}

// Length is the time from the start of the effect until its last voice
// stops.
func Length(voices []Voice) time.Duration {
	var longest time.Duration

	for _, v := range voices {
		longest = max(longest, v.Offset+v.Duration+tail)
	}

	return longest
}

// Synthesize mixes voices at volume into a single finite streamer.
func Synthesize(sr beep.SampleRate, voices []Voice, volume float64) beep.Streamer {
	streams := make([]beep.Streamer, 0, len(voices))

	for _, v := range voices {
		s := oscillator(sr, v, volume)
		if v.Offset > 0 {
			s = beep.Seq(beep.Silence(sr.N(v.Offset)), s)
		}

		streams = append(streams, s)
	}

	// silence pads the mix so rounding of offsets never shortens it
	streams = append(streams, beep.Silence(-1))

	return beep.Take(sr.N(Length(voices)), beep.Mix(streams...))
}

func oscillator(sr beep.SampleRate, v Voice, volume float64) beep.Streamer {
	rate := float64(sr)
	dur := v.Duration.Seconds()
	sweep := dur * 0.65
	attack := math.Min(0.012, dur*0.25)
	peak := math.Max(silentGain, volume*v.Gain)
	ratio := math.Pow(2, v.Detune/1200)

	from := math.Max(minFrequency, v.From) * ratio
	to := math.Max(minFrequency, v.To) * ratio

	total := sr.N(v.Duration + tail)
	phase := 0.0
	i := 0

	return beep.StreamerFunc(func(samples [][2]float64) (n int, ok bool) {
		for n < len(samples) && i < total {
			t := float64(i) / rate

			freq := to
			if t < sweep {
				freq = expRamp(from, to, t/sweep)
			}

			var gain float64
			switch {
			case t < attack:
				gain = expRamp(silentGain, peak, t/attack)
			case t < dur:
				gain = expRamp(peak, silentGain, (t-attack)/(dur-attack))
			default:
				gain = silentGain
			}

			s := wave(v.Wave, phase) * gain
			samples[n] = [2]float64{s, s}

			phase += freq / rate
			phase -= math.Floor(phase)

			n++
			i++
		}

		return n, n > 0
	})
}

// expRamp interpolates exponentially from a to b as f goes from 0 to 1.
func expRamp(a, b, f float64) float64 {
	return a * math.Pow(b/a, f)
}

// wave samples a unit-amplitude waveform at phase in cycles [0, 1).
func wave(w Waveform, phase float64) float64 {
	switch w {
	case Square:
		if phase < 0.5 {
			return 1
		}

		return -1
	case Sawtooth:
		return 2*phase - 1
	case Triangle:
		return 1 - 4*math.Abs(phase-0.5)
	default:
		return math.Sin(2 * math.Pi * phase)
	}
}
