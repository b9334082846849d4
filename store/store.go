/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Package store persists quiz configurations as JSON documents, one per
// storage key, and upgrades documents written by older versions on load.
package store

import (
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path"
	"regexp"
	"strconv"
	"strings"
	"sync"

	"github.com/spf13/afero"
)

var (
	ErrInvalidKey   = errors.New("invalid storage key")
	ErrInvalidPatch = errors.New("invalid config patch")

	validKey = regexp.MustCompile(`^[a-z0-9][a-z0-9._-]*$`)
)

// Placeholder strings older versions stored as real values.
const (
	legacyTitle = "今日題目"
	legacyClue  = "請根據提示猜出底圖文字"
)

type Store struct {
	fs  afero.Fs
	dir string

	mu sync.Mutex
}

func New(fsys afero.Fs, dir string) *Store {
	return &Store{
		fs:  fsys,
		dir: dir,
	}
}

func (s *Store) filename(key string) (string, error) {
	if !validKey.MatchString(key) {
		return "", fmt.Errorf("%w: %q", ErrInvalidKey, key)
	}

	return path.Join(s.dir, key+".json"), nil
}

// Load returns the stored configuration merged over the defaults. Missing
// or unreadable documents yield the defaults.
func (s *Store) Load(key string) (QuizConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.load(key)
}

func (s *Store) load(key string) (QuizConfig, error) {
	name, err := s.filename(key)
	if err != nil {
		return QuizConfig{}, err
	}

	data, err := afero.ReadFile(s.fs, name)
	switch {
	case errors.Is(err, os.ErrNotExist):
		return Defaults(), nil
	case err != nil:
		return QuizConfig{}, fmt.Errorf("read %s: %w", name, err)
	}

	return Decode(data), nil
}

// Save replaces the stored configuration.
func (s *Store) Save(key string, cfg QuizConfig) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.save(key, cfg)
}

func (s *Store) save(key string, cfg QuizConfig) error {
	name, err := s.filename(key)
	if err != nil {
		return err
	}

	data, err := json.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}

	if err := s.fs.MkdirAll(s.dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", s.dir, err)
	}

	tmp := name + ".tmp"

	if err := afero.WriteFile(s.fs, tmp, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", tmp, err)
	}

	if err := s.fs.Rename(tmp, name); err != nil {
		return fmt.Errorf("rename %s: %w", tmp, err)
	}

	return nil
}

// Update merges a partial JSON document over the stored configuration and
// saves the result. Top-level fields in patch replace stored ones; block
// styles are merged by name.
func (s *Store) Update(key string, patch []byte) (QuizConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg, err := s.load(key)
	if err != nil {
		return QuizConfig{}, err
	}

	if err := json.Unmarshal(patch, &cfg); err != nil {
		return QuizConfig{}, fmt.Errorf("%w: %w", ErrInvalidPatch, err)
	}

	if err := s.save(key, cfg); err != nil {
		return QuizConfig{}, err
	}

	return cfg, nil
}

// Reset restores the defaults.
func (s *Store) Reset(key string) (QuizConfig, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cfg := Defaults()

	if err := s.save(key, cfg); err != nil {
		return QuizConfig{}, err
	}

	return cfg, nil
}

// Decode parses a stored document over the defaults and migrates fields
// written by older versions. Fields with the wrong JSON type keep their
// defaults; a document that is not a JSON object yields the defaults.
func Decode(data []byte) QuizConfig {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return Defaults()
	}

	cfg := Defaults()

	var typeErr *json.UnmarshalTypeError
	if err := json.Unmarshal(data, &cfg); err != nil && !errors.As(err, &typeErr) {
		return Defaults()
	}

	migrate(&cfg, raw)

	return cfg
}

func migrate(cfg *QuizConfig, raw map[string]json.RawMessage) {
	if cfg.Title == legacyTitle {
		cfg.Title = ""
	}
	if cfg.Clue == legacyClue {
		cfg.Clue = ""
	}

	if cfg.BackgroundFit == "" {
		cfg.BackgroundFit = "cover"
	}

	if !isNumber(raw, "canvasGridRows") {
		cfg.CanvasGridRows = countOr(raw, "blockRows", 3)
	}
	if !isNumber(raw, "canvasGridCols") {
		cfg.CanvasGridCols = countOr(raw, "blockCols", 3)
	}

	if !isNumber(raw, "textX") {
		cfg.TextX = 0.5
	}
	if !isNumber(raw, "textY") {
		cfg.TextY = 0.5
	}

	if !isNumber(raw, "blockNumberSize") {
		cfg.BlockNumberSize = 50
	}
	if cfg.BlockNumberFont == "" {
		cfg.BlockNumberFont = "sans-serif"
	}
	if cfg.BlockNumberColor == "" {
		cfg.BlockNumberColor = "#111111"
	}
	if cfg.BlockNumberShadow == "" {
		cfg.BlockNumberShadow = "soft"
	}
	if cfg.BlockNumberStyle == "" {
		cfg.BlockNumberStyle = "badge"
	}

	if cfg.BlockStyleConfig == nil {
		cfg.BlockStyleConfig = Defaults().BlockStyleConfig
	}
}

func isNumber(raw map[string]json.RawMessage, key string) bool {
	v, ok := raw[key]
	if !ok {
		return false
	}

	var n any
	if err := json.Unmarshal(v, &n); err != nil {
		return false
	}

	_, ok = n.(float64)

	return ok
}

// looseNumber reads key the way older versions did, accepting numeric
// strings, booleans and null alongside numbers.
func looseNumber(raw map[string]json.RawMessage, key string) (float64, bool) {
	v, ok := raw[key]
	if !ok {
		return 0, false
	}

	var n any
	if err := json.Unmarshal(v, &n); err != nil {
		return 0, false
	}

	switch n := n.(type) {
	case float64:
		return n, true
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, true
		}

		f, err := strconv.ParseFloat(s, 64)
		if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
			return 0, false
		}

		return f, true
	case bool:
		if n {
			return 1, true
		}

		return 0, true
	case nil:
		return 0, true
	}

	return 0, false
}

// countOr returns key as a whole count of at least one, or fallback.
func countOr(raw map[string]json.RawMessage, key string, fallback int) int {
	if n, ok := looseNumber(raw, key); ok && n >= 1 && n <= math.MaxInt32 {
		return int(n)
	}

	return fallback
}
