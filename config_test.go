package main

import (
	"bytes"
	"context"
	"image/png"
	"os"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestValidate(t *testing.T) {
	assert.NoError(t, testConfig().validate())

	for name, mutate := range map[string]func(*Config){
		"cert without key": func(c *Config) { c.tlsCert = "cert.pem" },
		"key without cert": func(c *Config) { c.tlsKey = "key.pem" },
		"port zero":        func(c *Config) { c.port = 0 },
		"port too high":    func(c *Config) { c.port = 70000 },
		"negative cache":   func(c *Config) { c.imageCacheSize = -1 },
		"negative timeout": func(c *Config) { c.fetchTimeout = -time.Second },
		"bad hash":         func(c *Config) { c.adminHash = "plaintext" },
	} {
		cfg := testConfig()
		mutate(cfg)
		assert.Error(t, cfg.validate(), name)
	}

	cfg := testConfig()
	cfg.userHash = hashOf(t, "pw")
	assert.NoError(t, cfg.validate())
}

func TestScheme(t *testing.T) {
	cfg := testConfig()
	assert.Equal(t, "http", cfg.scheme())

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"
	assert.Equal(t, "https", cfg.scheme())
}

func TestFlagsFromEnvironment(t *testing.T) {
	t.Setenv("GUESSWORD_PORT", "9123")
	t.Setenv("GUESSWORD_DATA_DIR", "/srv/quiz")

	cfg := &Config{}
	cmd := newCmd(cfg)

	assert.Equal(t, 9123, cfg.port)
	assert.Equal(t, "/srv/quiz", cfg.dataDir)
	assert.Equal(t, 64, cfg.imageCacheSize)

	require.NoError(t, cmd.Flags().Parse([]string{"--image_cache_size", "8"}))
	assert.Equal(t, 8, cfg.imageCacheSize)
}

func TestRenderCmd(t *testing.T) {
	dir := t.TempDir()

	require.NoError(t, os.WriteFile(dir+"/quiz.json", []byte(`{"displayText":"A","blockRows":2,"blockCols":2}`), 0o644))

	var out bytes.Buffer

	cfg := &Config{}
	cmd := newCmd(cfg)
	cmd.SetOut(&out)
	cmd.SetArgs([]string{
		"render",
		"--config", dir + "/quiz.json",
		"--out", dir + "/quiz.png",
		"--width", "64",
		"--height", "48",
		"--dpr", "2",
		"--fonts-dir", dir + "/fonts",
		"--backgrounds-dir", dir + "/backgrounds",
		"--masked",
	})
	require.NoError(t, cmd.Execute())
	assert.Contains(t, out.String(), "(128x96)")

	data, err := os.ReadFile(dir + "/quiz.png")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 128, img.Bounds().Dx())
	assert.Equal(t, 96, img.Bounds().Dy())
}

func TestRenderFileDefaults(t *testing.T) {
	fsys := afero.NewMemMapFs()

	cmd := newRenderCmd(viper.New())
	cmd.SetOut(&bytes.Buffer{})
	cmd.SetContext(context.Background())

	err := renderFile(cmd, fsys, renderOptions{out: "out.png", fontsDir: "fonts", backgroundsDir: "backgrounds", width: 40, height: 30})
	require.NoError(t, err)

	data, err := afero.ReadFile(fsys, "out.png")
	require.NoError(t, err)

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)
	assert.Equal(t, 40, img.Bounds().Dx())

	err = renderFile(cmd, fsys, renderOptions{config: "missing.json", out: "out.png"})
	assert.Error(t, err)
}
