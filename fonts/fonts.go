/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package fonts keeps the set of font families available to the renderer:
// the built-in system families plus local fonts listed in a manifest that
// is built once at startup.
package fonts

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path"
	"strings"
	"sync"

	"github.com/go-fonts/latin-modern/lmroman10regular"
	"github.com/spf13/afero"
	"golang.org/x/image/font"
	"golang.org/x/image/font/gofont/gomono"
	"golang.org/x/image/font/gofont/goregular"
	"golang.org/x/image/font/opentype"

	"github.com/Seednode/guessword/manifest"
)

const (
	SansSerif = "sans-serif"
	Serif     = "serif"
	Monospace = "monospace"

	ManifestFile = "manifest.json"
)

var ErrUnsupportedFormat = errors.New("font format cannot be rasterized")

// Option is one entry of the font picker.
type Option struct {
	Label string `json:"label"`
	Value string `json:"value"`
}

var systemOptions = []Option{
	{Label: "System sans-serif", Value: SansSerif},
	{Label: "System serif", Value: Serif},
	{Label: "System monospace", Value: Monospace},
}

var builtin = map[string][]byte{
	SansSerif: goregular.TTF,
	Serif:     lmroman10regular.TTF,
	Monospace: gomono.TTF,
}

// Weight accepts both numeric and string weights in manifest.json.
type Weight string

func (w *Weight) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*w = Weight(s)

		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("font weight: %w", err)
	}

	*w = Weight(n.String())

	return nil
}

// ManifestFont is one entry of manifest.json.
type ManifestFont struct {
	File   string `json:"file"`
	Label  string `json:"label,omitempty"`
	Family string `json:"family,omitempty"`
	Weight Weight `json:"weight,omitempty"`
	Style  string `json:"style,omitempty"`
}

type Manifest struct {
	Fonts []ManifestFont `json:"fonts"`
}

// Format maps a font file name onto its CSS format name.
func Format(filename string) (string, bool) {
	lower := strings.ToLower(filename)

	switch {
	case strings.HasSuffix(lower, ".woff2"):
		return "woff2", true
	case strings.HasSuffix(lower, ".woff"):
		return "woff", true
	case strings.HasSuffix(lower, ".ttf"):
		return "truetype", true
	case strings.HasSuffix(lower, ".otf"):
		return "opentype", true
	}

	return "", false
}

func rasterizable(format string) bool {
	return format == "truetype" || format == "opentype"
}

// Registry resolves family names to faces. It is safe for concurrent use.
type Registry struct {
	fs      afero.Fs
	entries []manifest.Entry
	family  map[string]manifest.Entry

	mu     sync.Mutex
	parsed map[string]*opentype.Font
}

// NewRegistry returns a registry holding only the built-in families.
func NewRegistry() *Registry {
	return &Registry{
		family: make(map[string]manifest.Entry),
		parsed: make(map[string]*opentype.Font),
	}
}

// Load builds a registry from the fonts found in fsys: every font file in
// it, then every entry of its manifest.json that names a file not already
// seen. urlPrefix is prepended to file names to form browser URLs.
func Load(fsys afero.Fs, urlPrefix string) (*Registry, error) {
	r := NewRegistry()
	r.fs = fsys

	if fsys == nil {
		return r, nil
	}

	seen := make(map[string]bool)
	files := make(map[string]bool)

	found, err := manifest.Scan(fsys, ".", ".woff2", ".woff", ".ttf", ".otf")
	if err != nil {
		return nil, fmt.Errorf("scan fonts: %w", err)
	}

	m, err := readManifest(fsys)
	if err != nil {
		return nil, err
	}

	listed := make(map[string]bool, len(m.Fonts))
	for _, f := range m.Fonts {
		listed[path.Clean(f.File)] = true
	}

	for _, file := range found {
		if listed[file] {
			continue
		}

		format, _ := Format(file)
		base := manifest.BaseName(file)

		r.add(manifest.Entry{
			ID:     uniqueFamily(manifest.Slug("local-"+base), seen, file),
			Label:  "Local: " + base,
			File:   file,
			URL:    urlPrefix + "/" + file,
			Format: format,
		})
		files[file] = true
	}

	for _, f := range m.Fonts {
		file := path.Clean(f.File)
		if f.File == "" || files[file] {
			continue
		}

		format, ok := Format(file)
		if !ok {
			continue
		}

		if exists, _ := afero.Exists(fsys, file); !exists {
			continue
		}

		base := manifest.BaseName(file)

		family := f.Family
		if family == "" {
			family = manifest.Slug("local-" + base)
		}

		label := f.Label
		if label == "" {
			label = "Local: " + base
		}

		r.add(manifest.Entry{
			ID:     uniqueFamily(family, seen, f.File),
			Label:  label,
			File:   file,
			URL:    urlPrefix + "/" + file,
			Format: format,
		})
		files[file] = true
	}

	return r, nil
}

func readManifest(fsys afero.Fs) (Manifest, error) {
	var m Manifest

	data, err := afero.ReadFile(fsys, ManifestFile)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return m, nil
	case err != nil:
		return m, fmt.Errorf("read %s: %w", ManifestFile, err)
	}

	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("parse %s: %w", ManifestFile, err)
	}

	return m, nil
}

// uniqueFamily replaces empty or bare "local" families with a hash of salt
// and disambiguates repeats.
func uniqueFamily(family string, seen map[string]bool, salt string) string {
	if family == "" || family == "local" || family == "local-" {
		family = "local-" + manifest.Hash36(salt)
	}

	if seen[family] {
		family = "local-" + manifest.Hash36(salt+"-"+family)
	}

	seen[family] = true

	return family
}

func (r *Registry) add(e manifest.Entry) {
	r.entries = append(r.entries, e)
	r.family[e.ID] = e
}

// Entries returns the local fonts in load order.
func (r *Registry) Entries() []manifest.Entry {
	return append([]manifest.Entry(nil), r.entries...)
}

// Options lists the system families followed by the local fonts.
func (r *Registry) Options() []Option {
	opts := append([]Option(nil), systemOptions...)

	for _, e := range r.entries {
		opts = append(opts, Option{Label: e.Label, Value: e.ID})
	}

	return opts
}

// Lookup returns the local font file served under name.
func (r *Registry) Lookup(file string) (manifest.Entry, bool) {
	for _, e := range r.entries {
		if e.File == file {
			return e, true
		}
	}

	return manifest.Entry{}, false
}

// ReadFile returns the bytes of a local font listed in the registry.
func (r *Registry) ReadFile(file string) ([]byte, error) {
	if _, ok := r.Lookup(file); !ok || r.fs == nil {
		return nil, os.ErrNotExist
	}

	return afero.ReadFile(r.fs, file)
}

// Resolve picks the first registered family of a CSS font-family list,
// falling back to sans-serif.
func (r *Registry) Resolve(families string) string {
	for _, name := range strings.Split(families, ",") {
		name = strings.Trim(strings.TrimSpace(name), `"'`)

		if _, ok := builtin[name]; ok {
			return name
		}

		if e, ok := r.family[name]; ok && rasterizable(e.Format) {
			return name
		}
	}

	return SansSerif
}

// Face returns a new face for families at size pixels. A local font that
// fails to load is replaced by sans-serif. Runes the chosen font lacks are
// drawn with the other local fonts in load order, then sans-serif, so
// scripts such as Han need a font covering them in the fonts directory.
func (r *Registry) Face(families string, size float64) (font.Face, error) {
	primary := r.Resolve(families)

	f, err := r.font(primary)
	if err != nil {
		primary = SansSerif
		f, err = r.font(SansSerif)
	}
	if err != nil {
		return nil, err
	}

	face, err := newFace(f, size)
	if err != nil {
		return nil, err
	}

	faces := []font.Face{face}

	for _, family := range r.fallbacks(primary) {
		fb, err := r.font(family)
		if err != nil {
			continue
		}

		if face, err := newFace(fb, size); err == nil {
			faces = append(faces, face)
		}
	}

	return newFallbackFace(faces...), nil
}

// fallbacks lists the families tried after primary.
func (r *Registry) fallbacks(primary string) []string {
	var families []string

	for _, e := range r.entries {
		if e.ID != primary && rasterizable(e.Format) {
			families = append(families, e.ID)
		}
	}

	if len(families) > 0 && primary != SansSerif {
		families = append(families, SansSerif)
	}

	return families
}

func newFace(f *opentype.Font, size float64) (font.Face, error) {
	return opentype.NewFace(f, &opentype.FaceOptions{
		Size:    size,
		DPI:     72,
		Hinting: font.HintingNone,
	})
}

func (r *Registry) font(family string) (*opentype.Font, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if f, ok := r.parsed[family]; ok {
		return f, nil
	}

	data, ok := builtin[family]
	if !ok {
		e := r.family[family]
		if !rasterizable(e.Format) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, e.File)
		}

		var err error

		data, err = afero.ReadFile(r.fs, e.File)
		if err != nil {
			return nil, fmt.Errorf("read font %s: %w", e.File, err)
		}
	}

	f, err := opentype.Parse(data)
	if err != nil {
		return nil, fmt.Errorf("parse font %s: %w", family, err)
	}

	r.parsed[family] = f

	return f, nil
}
