/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package sfx provides the block sound effects: ten synthesized pops and
// any audio files found in the sound directory at startup.
package sfx

import (
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"slices"
	"strconv"
	"strings"
	"sync"

	"github.com/faiface/beep"
	"github.com/faiface/beep/wav"
	"github.com/gabriel-vasile/mimetype"
	"github.com/spf13/afero"

	"github.com/Seednode/guessword/manifest"
)

const (
	AssetPrefix   = "asset:"
	DefaultVolume = 0.35
	SampleRate    = beep.SampleRate(44100)
)

var ErrUnknown = errors.New("unknown sound effect")

// Option is one entry of the sound picker.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
	URL   string `json:"url,omitempty"`
}

var builtinOptions = []Option{
	{Label: "Pop 1 (light)", Value: "pop-1"},
	{Label: "Pop 2 (thick)", Value: "pop-2"},
	{Label: "Pop 3 (crisp)", Value: "pop-3"},
	{Label: "Pop 4 (soft)", Value: "pop-4"},
	{Label: "Pop 5 (double)", Value: "pop-5"},
	{Label: "Pop 6 (bright)", Value: "pop-6"},
	{Label: "Pop 7 (bell)", Value: "pop-7"},
	{Label: "Pop 8 (short)", Value: "pop-8"},
	{Label: "Pop 9 (low)", Value: "pop-9"},
	{Label: "Pop 10 (bingo)", Value: "pop-10"},
}

// Clip is a playable sound.
type Clip struct {
	Data        []byte
	ContentType string
}

// Catalog holds the built-in and local effects. Rendered built-ins are
// cached on an afero filesystem keyed by id and volume.
type Catalog struct {
	assets afero.Fs
	cache  afero.Fs

	entries []manifest.Entry
	byID    map[string]manifest.Entry

	mu sync.Mutex
}

// Load builds a catalog from the audio files in assets. Rendered WAVs go to
// cache, or to memory when cache is nil.
func Load(assets, cache afero.Fs, urlPrefix string) (*Catalog, error) {
	if cache == nil {
		cache = afero.NewMemMapFs()
	}

	c := &Catalog{
		assets: assets,
		cache:  cache,
		byID:   make(map[string]manifest.Entry),
	}

	files, err := manifest.Scan(assets, ".", ".mp3", ".wav", ".ogg", ".m4a")
	if err != nil {
		return nil, fmt.Errorf("scan sounds: %w", err)
	}

	seen := make(map[string]bool)

	for _, file := range files {
		base := manifest.BaseName(file)
		id := AssetPrefix + uniqueID(manifest.Slug(path.Base(file)), seen, file)

		e := manifest.Entry{
			ID:    id,
			Label: "Local: " + base,
			File:  file,
			URL:   urlPrefix + "/" + id,
		}

		c.entries = append(c.entries, e)
		c.byID[id] = e
	}

	slices.SortFunc(c.entries, func(a, b manifest.Entry) int {
		return strings.Compare(a.ID, b.ID)
	})

	return c, nil
}

func uniqueID(id string, seen map[string]bool, salt string) string {
	if id == "" {
		id = "sfx-" + manifest.Hash36(salt)
	}

	if seen[id] {
		id = id + "-" + manifest.Hash36(salt+"-"+id)
	}

	seen[id] = true

	return id
}

// Options lists the built-in effects followed by the local ones.
func (c *Catalog) Options() []Option {
	opts := append([]Option(nil), builtinOptions...)

	for _, e := range c.entries {
		opts = append(opts, Option{Label: e.Label, Value: e.ID, URL: e.URL})
	}

	return opts
}

// Entries returns the local effects sorted by id.
func (c *Catalog) Entries() []manifest.Entry {
	return append([]manifest.Entry(nil), c.entries...)
}

// Known reports whether id names an effect.
func (c *Catalog) Known(id string) bool {
	if _, ok := builtins[id]; ok {
		return true
	}

	_, ok := c.byID[id]

	return ok
}

// ClampVolume limits v to [0, 1]. Values that are not finite become the
// default volume.
func ClampVolume(v float64) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return DefaultVolume
	}

	return math.Max(0, math.Min(1, v))
}

// Clip returns the sound for id. Built-ins are synthesized at volume; local
// files are returned as stored and volume is left to the player.
func (c *Catalog) Clip(id string, volume float64) (Clip, error) {
	if voices, ok := builtins[id]; ok {
		data, err := c.render(id, voices, ClampVolume(volume))
		if err != nil {
			return Clip{}, err
		}

		return Clip{Data: data, ContentType: "audio/wav"}, nil
	}

	e, ok := c.byID[id]
	if !ok || c.assets == nil {
		return Clip{}, fmt.Errorf("%w: %q", ErrUnknown, id)
	}

	data, err := afero.ReadFile(c.assets, e.File)
	if err != nil {
		return Clip{}, fmt.Errorf("read %s: %w", e.File, err)
	}

	return Clip{Data: data, ContentType: mimetype.Detect(data).String()}, nil
}

func (c *Catalog) render(id string, voices []Voice, volume float64) ([]byte, error) {
	name := id + "@" + strconv.FormatFloat(volume, 'f', 2, 64) + ".wav"

	c.mu.Lock()
	defer c.mu.Unlock()

	data, err := afero.ReadFile(c.cache, name)
	switch {
	case err == nil:
		return data, nil
	case !errors.Is(err, os.ErrNotExist):
		return nil, fmt.Errorf("read %s: %w", name, err)
	}

	f, err := c.cache.Create(name)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", name, err)
	}

	format := beep.Format{SampleRate: SampleRate, NumChannels: 1, Precision: 2}

	if err := wav.Encode(f, Synthesize(SampleRate, voices, volume), format); err != nil {
		f.Close()
		c.cache.Remove(name)

		return nil, fmt.Errorf("encode %s: %w", id, err)
	}

	if err := f.Close(); err != nil {
		return nil, fmt.Errorf("close %s: %w", name, err)
	}

	return afero.ReadFile(c.cache, name)
}
