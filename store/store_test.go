/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package store

import (
	"testing"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/guessword/render"
)

const key = "guessword-quiz-config"

func TestLoadMissingReturnsDefaults(t *testing.T) {
	s := New(afero.NewMemMapFs(), "data")

	cfg, err := s.Load(key)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)
}

func TestInvalidKey(t *testing.T) {
	s := New(afero.NewMemMapFs(), "data")

	for _, k := range []string{"", "../etc/passwd", "Upper", "a/b"} {
		_, err := s.Load(k)
		assert.ErrorIs(t, err, ErrInvalidKey, k)
	}
}

func TestSaveThenLoad(t *testing.T) {
	fsys := afero.NewMemMapFs()
	s := New(fsys, "data")

	cfg := Defaults()
	cfg.DisplayText = "地"
	cfg.BackgroundFit = "contain"
	cfg.BlockRows = 4

	require.NoError(t, s.Save(key, cfg))

	exists, err := afero.Exists(fsys, "data/"+key+".json")
	require.NoError(t, err)
	assert.True(t, exists)

	got, err := s.Load(key)
	require.NoError(t, err)
	assert.Equal(t, cfg, got)
}

func TestUpdateMerges(t *testing.T) {
	s := New(afero.NewMemMapFs(), "data")

	cfg, err := s.Update(key, []byte(`{"title":"Round 1","blockRows":5}`))
	require.NoError(t, err)
	assert.Equal(t, "Round 1", cfg.Title)
	assert.Equal(t, 5, cfg.BlockRows)
	assert.Equal(t, "天", cfg.DisplayText)

	cfg, err = s.Update(key, []byte(`{"clue":"sky"}`))
	require.NoError(t, err)
	assert.Equal(t, "Round 1", cfg.Title)
	assert.Equal(t, "sky", cfg.Clue)

	_, err = s.Update(key, []byte(`{"blockRows":"many"}`))
	assert.ErrorIs(t, err, ErrInvalidPatch)

	_, err = s.Update(key, []byte(`not json`))
	assert.ErrorIs(t, err, ErrInvalidPatch)

	cfg, err = s.Load(key)
	require.NoError(t, err)
	assert.Equal(t, 5, cfg.BlockRows)
}

func TestReset(t *testing.T) {
	s := New(afero.NewMemMapFs(), "data")

	_, err := s.Update(key, []byte(`{"title":"Round 1"}`))
	require.NoError(t, err)

	cfg, err := s.Reset(key)
	require.NoError(t, err)
	assert.Equal(t, Defaults(), cfg)

	cfg, err = s.Load(key)
	require.NoError(t, err)
	assert.Empty(t, cfg.Title)
}

func TestDecodeCorrupt(t *testing.T) {
	assert.Equal(t, Defaults(), Decode([]byte(`{"title":`)))
	assert.Equal(t, Defaults(), Decode([]byte(`[1,2,3]`)))
}

func TestDecodeMigratesLegacyDocuments(t *testing.T) {
	cfg := Decode([]byte(`{
		"title": "今日題目",
		"clue": "請根據提示猜出底圖文字",
		"backgroundFit": "",
		"blockRows": 4,
		"blockCols": 6,
		"textX": "left",
		"blockNumberSize": null,
		"blockNumberFont": ""
	}`))

	assert.Empty(t, cfg.Title)
	assert.Empty(t, cfg.Clue)
	assert.Equal(t, "cover", cfg.BackgroundFit)
	assert.Equal(t, 4, cfg.CanvasGridRows)
	assert.Equal(t, 6, cfg.CanvasGridCols)
	assert.Equal(t, 0.5, cfg.TextX)
	assert.Equal(t, 50.0, cfg.BlockNumberSize)
	assert.Equal(t, "sans-serif", cfg.BlockNumberFont)
	assert.True(t, cfg.CanvasGridGuide)
	assert.Equal(t, 2.0, cfg.CanvasGridThickness)
	assert.Len(t, cfg.BlockStyleConfig, 5)
}

func TestDecodeKeepsExplicitGrid(t *testing.T) {
	cfg := Decode([]byte(`{"canvasGridRows": 2, "canvasGridCols": 7, "blockRows": 4, "textY": 0.25}`))

	assert.Equal(t, 2, cfg.CanvasGridRows)
	assert.Equal(t, 7, cfg.CanvasGridCols)
	assert.Equal(t, 0.25, cfg.TextY)
}

func TestDecodeGridFollowsLooseBlockCounts(t *testing.T) {
	cfg := Decode([]byte(`{"blockRows": "4", "blockCols": " 5 "}`))
	assert.Equal(t, 4, cfg.CanvasGridRows)
	assert.Equal(t, 5, cfg.CanvasGridCols)

	cfg = Decode([]byte(`{"blockRows": "four", "blockCols": "0"}`))
	assert.Equal(t, 3, cfg.CanvasGridRows)
	assert.Equal(t, 3, cfg.CanvasGridCols)

	cfg = Decode([]byte(`{"blockRows": true, "blockCols": null}`))
	assert.Equal(t, 1, cfg.CanvasGridRows)
	assert.Equal(t, 3, cfg.CanvasGridCols)

	cfg = Decode([]byte(`{"blockRows": "2.7", "blockCols": "1e99"}`))
	assert.Equal(t, 2, cfg.CanvasGridRows)
	assert.Equal(t, 3, cfg.CanvasGridCols)
}

func TestDefaultsAreIndependent(t *testing.T) {
	a := Defaults()
	a.BlockStyleConfig["solid-dark"] = BlockStyle{Fill: "#fff"}

	b := Defaults()
	assert.Equal(t, "#0f172a", b.BlockStyleConfig["solid-dark"].Fill)
}

func TestStyleFallback(t *testing.T) {
	cfg := Defaults()
	cfg.BlockStyle = "plum"
	assert.Equal(t, "#a855f7", cfg.Style().From)

	cfg.BlockStyle = "missing"
	assert.Equal(t, "#0f172a", cfg.Style().Fill)
	assert.Equal(t, DefaultSoundBingo, cfg.Style().SoundBingo)
}

func TestRenderConfig(t *testing.T) {
	cfg := Defaults()
	cfg.DisplayText = "海"
	cfg.BackgroundFit = "stretch"

	rc := cfg.RenderConfig()

	assert.Equal(t, "海", rc.Text)
	assert.Equal(t, render.FitStretch, rc.BackgroundFit)
	assert.Equal(t, 750.0, rc.FontSize)
	assert.True(t, rc.GridGuide)
	assert.Equal(t, 3, rc.GridRows)
}
