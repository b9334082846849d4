/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"maps"

	"github.com/Seednode/guessword/render"
)

// Default sound effects for block events, shared by every block style.
const (
	DefaultSoundOpen  = "pop-1"
	DefaultSoundClose = "pop-2"
	DefaultSoundBingo = "pop-10"
)

// BlockStyle holds the appearance and sounds of one mask block style. Only
// some fields apply to each style.
type BlockStyle struct {
	Fill    string  `json:"fill,omitempty"`
	Border  string  `json:"border,omitempty"`
	Tint    string  `json:"tint,omitempty"`
	Blur    float64 `json:"blur,omitempty"`
	Opacity float64 `json:"opacity,omitempty"`
	From    string  `json:"from,omitempty"`
	To      string  `json:"to,omitempty"`

	SoundOpen    string `json:"soundOpen"`
	SoundClose   string `json:"soundClose"`
	SoundBingo   string `json:"soundBingo"`
	SoundAllOpen string `json:"soundAllOpen"`

	HoverFx       string `json:"hoverFx"`
	DisappearAnim string `json:"disappearAnim"`
}

// QuizConfig is the persisted configuration of one quiz, shared by the
// editor and the player. Field names match the browser's storage format.
type QuizConfig struct {
	Title       string `json:"title"`
	Clue        string `json:"clue"`
	Answer      string `json:"answer"`
	DisplayText string `json:"displayText"`

	TextColor string  `json:"textColor"`
	FontSize  float64 `json:"fontSize"`
	Font      string  `json:"font"`
	TextX     float64 `json:"textX"`
	TextY     float64 `json:"textY"`

	BackgroundURL string `json:"backgroundUrl"`
	BackgroundFit string `json:"backgroundFit"`

	SoundEnabled                bool `json:"soundEnabled"`
	HoverEnabled                bool `json:"hoverEnabled"`
	BlockDisappearAnimEnabled   bool `json:"blockDisappearAnimEnabled"`
	BlockReappearOnClickEnabled bool `json:"blockReappearOnClickEnabled"`

	BlockNumberEnabled bool    `json:"blockNumberEnabled"`
	BlockNumberFont    string  `json:"blockNumberFont"`
	BlockNumberSize    float64 `json:"blockNumberSize"`
	BlockNumberColor   string  `json:"blockNumberColor"`
	BlockNumberShadow  string  `json:"blockNumberShadow"`
	BlockNumberStyle   string  `json:"blockNumberStyle"`

	CanvasRounded       bool    `json:"canvasRounded"`
	CanvasGridGuide     bool    `json:"canvasGridGuide"`
	CanvasGridThickness float64 `json:"canvasGridThickness"`
	CanvasGridRows      int     `json:"canvasGridRows"`
	CanvasGridCols      int     `json:"canvasGridCols"`

	BlockRows        int                   `json:"blockRows"`
	BlockCols        int                   `json:"blockCols"`
	BlockStyle       string                `json:"blockStyle"`
	BlockStyleConfig map[string]BlockStyle `json:"blockStyleConfig"`
}

func commonStyle(s BlockStyle) BlockStyle {
	s.SoundOpen = DefaultSoundOpen
	s.SoundClose = DefaultSoundClose
	s.SoundBingo = DefaultSoundBingo
	s.SoundAllOpen = DefaultSoundBingo
	s.HoverFx = "glow"
	s.DisappearAnim = "fade"

	return s
}

var defaultStyles = map[string]BlockStyle{
	"solid-dark": commonStyle(BlockStyle{Fill: "#0f172a", Border: "#1f2937"}),
	"frosted":    commonStyle(BlockStyle{Tint: "#ffffff", Blur: 12, Border: "#e2e8f0", Opacity: 0.45}),
	"neon":       commonStyle(BlockStyle{From: "#84cc16", To: "#4d7c0f", Border: "#e0f2fe"}),
	"silver":     commonStyle(BlockStyle{From: "#1f2937", To: "#0b1220", Border: "#ffffff"}),
	"plum":       commonStyle(BlockStyle{From: "#a855f7", To: "#4c1d95", Border: "#f3e8ff"}),
}

// Defaults returns a fresh copy of the default quiz configuration.
func Defaults() QuizConfig {
	return QuizConfig{
		Answer:      "天",
		DisplayText: "天",

		TextColor: "#111111",
		FontSize:  750,
		Font:      "sans-serif",
		TextX:     0.5,
		TextY:     0.5,

		BackgroundFit: string(render.FitCover),

		SoundEnabled:                true,
		HoverEnabled:                true,
		BlockDisappearAnimEnabled:   true,
		BlockReappearOnClickEnabled: true,

		BlockNumberFont:   "sans-serif",
		BlockNumberSize:   50,
		BlockNumberColor:  "#111111",
		BlockNumberShadow: "soft",
		BlockNumberStyle:  "badge",

		CanvasGridGuide:     true,
		CanvasGridThickness: 2,
		CanvasGridRows:      3,
		CanvasGridCols:      3,

		BlockRows:        3,
		BlockCols:        3,
		BlockStyle:       "solid-dark",
		BlockStyleConfig: maps.Clone(defaultStyles),
	}
}

// Style returns the active block style, falling back to the default set
// and then to solid-dark.
func (c QuizConfig) Style() BlockStyle {
	if s, ok := c.BlockStyleConfig[c.BlockStyle]; ok {
		return s
	}

	if s, ok := defaultStyles[c.BlockStyle]; ok {
		return s
	}

	return defaultStyles["solid-dark"]
}

// RenderConfig maps the quiz onto the base-image renderer's input. The
// display text is what gets drawn.
func (c QuizConfig) RenderConfig() render.Config {
	return render.Config{
		Text:      c.DisplayText,
		Font:      c.Font,
		TextColor: c.TextColor,
		FontSize:  c.FontSize,
		TextX:     c.TextX,
		TextY:     c.TextY,

		BackgroundURL: c.BackgroundURL,
		BackgroundFit: render.ParseFit(c.BackgroundFit),

		GridGuide:     c.CanvasGridGuide,
		GridThickness: c.CanvasGridThickness,
		GridRows:      c.CanvasGridRows,
		GridCols:      c.CanvasGridCols,
		BlockRows:     c.BlockRows,
		BlockCols:     c.BlockCols,
	}
}
