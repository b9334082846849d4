/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bytes"
	"encoding/json"
	"image"
	"image/color"
	"image/png"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Seednode/guessword/store"
)

func testConfig() *Config {
	return &Config{
		backgroundsDir: "backgrounds",
		bind:           "127.0.0.1",
		dataDir:        "data",
		fetchTimeout:   time.Second,
		fontsDir:       "fonts",
		imageCacheSize: 4,
		port:           8080,
		sessionTimeout: time.Hour,
		sfxDir:         "sfx",
	}
}

func newTestServer(t *testing.T, cfg *Config, fsys afero.Fs) (*server, http.Handler) {
	t.Helper()

	if fsys == nil {
		fsys = afero.NewMemMapFs()
	}

	s, err := newServer(cfg, fsys)
	require.NoError(t, err)

	errs := make(chan error, 64)
	go func() {
		for range errs {
		}
	}()

	return s, s.routes(errs)
}

func do(t *testing.T, h http.Handler, method, target string, body string) *httptest.ResponseRecorder {
	t.Helper()

	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

func decodePNG(t *testing.T, data []byte) image.Image {
	t.Helper()

	img, err := png.Decode(bytes.NewReader(data))
	require.NoError(t, err)

	return img
}

func TestRootRedirectsHome(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodGet, "/", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/home", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/home", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "/game/game1_guessword/quiz")
	assert.Contains(t, rec.Body.String(), "game2 (reserved)")
	assert.NotContains(t, rec.Body.String(), "/game/game2_xxx")
}

func TestPrefix(t *testing.T) {
	cfg := testConfig()
	cfg.prefix = "/quiz/"

	_, h := newTestServer(t, cfg, nil)

	rec := do(t, h, http.MethodGet, "/quiz/", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/quiz/home", rec.Header().Get("Location"))

	rec = do(t, h, http.MethodGet, "/quiz/healthz", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestGameRoutes(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodGet, "/game/game1_guessword", "")
	assert.Equal(t, http.StatusSeeOther, rec.Code)
	assert.Equal(t, "/game/game1_guessword/quiz", rec.Header().Get("Location"))

	for _, target := range []string{
		"/game/game2_xxx",
		"/game/game2_xxx/quiz",
		"/game/game2_xxx/config",
		"/game/nope/frame.png",
	} {
		rec := do(t, h, http.MethodGet, target, "")
		assert.Equal(t, http.StatusNotFound, rec.Code, target)
	}

	rec = do(t, h, http.MethodGet, "/game/game1_guessword/quiz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `data-view="quiz"`)
	assert.Contains(t, rec.Body.String(), `id="frame"`)

	rec = do(t, h, http.MethodGet, "/game/game1_guessword/editor", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `id="editor"`)
	assert.Contains(t, rec.Body.String(), `name="blockStyle"`)
	assert.Contains(t, rec.Body.String(), `name="backgroundUrl" list="backgrounds"`)
}

func TestConfigRoundTrip(t *testing.T) {
	fsys := afero.NewMemMapFs()

	_, h := newTestServer(t, testConfig(), fsys)

	rec := do(t, h, http.MethodGet, "/game/game1_guessword/config", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "no-store", rec.Header().Get("Cache-Control"))

	var got store.QuizConfig
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, store.Defaults().BlockRows, got.BlockRows)

	rec = do(t, h, http.MethodPut, "/game/game1_guessword/config", `{"title":"Animals","blockRows":4}`)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Animals", got.Title)
	assert.Equal(t, 4, got.BlockRows)

	exists, err := afero.Exists(fsys, "data/guessword-quiz-config.json")
	require.NoError(t, err)
	assert.True(t, exists)

	rec = do(t, h, http.MethodGet, "/game/game1_guessword/config", "")
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "Animals", got.Title)

	rec = do(t, h, http.MethodPost, "/game/game1_guessword/config/reset", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Empty(t, got.Title)
	assert.Equal(t, 3, got.BlockRows)
}

func TestConfigRejectsBadPatches(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	for _, body := range []string{`[1,2]`, `"title"`, `{"title":`, `{"blockRows":"many"}`} {
		rec := do(t, h, http.MethodPut, "/game/game1_guessword/config", body)
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

func TestBaseImage(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodGet, "/game/game1_guessword/base.png?w=100&h=50", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img := decodePNG(t, rec.Body.Bytes())
	assert.Equal(t, image.Rect(0, 0, 100, 50), img.Bounds())

	rec = do(t, h, http.MethodGet, "/game/game1_guessword/base.png?w=100&h=50&dpr=2", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, image.Rect(0, 0, 200, 100), decodePNG(t, rec.Body.Bytes()).Bounds())

	rec = do(t, h, http.MethodGet, "/game/game1_guessword/base.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, image.Rect(0, 0, 480, 360), decodePNG(t, rec.Body.Bytes()).Bounds())
}

func TestImageRejectsBadDimensions(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	for _, q := range []string{"w=abc", "h=-1", "w=99999", "dpr=9", "dpr=NaN", "w=4096&h=4096&dpr=4", "w=2048&h=2048&dpr=4"} {
		for _, img := range []string{"frame.png", "base.png"} {
			rec := do(t, h, http.MethodGet, "/game/game1_guessword/"+img+"?"+q, "")
			assert.Equal(t, http.StatusBadRequest, rec.Code, "%s?%s", img, q)
		}
	}
}

func darkShare(img image.Image) float64 {
	b := img.Bounds()

	var dark int
	for y := b.Min.Y; y < b.Max.Y; y++ {
		for x := b.Min.X; x < b.Max.X; x++ {
			c := color.RGBAModel.Convert(img.At(x, y)).(color.RGBA)
			if c.R < 0x40 && c.G < 0x40 && c.B < 0x60 {
				dark++
			}
		}
	}

	return float64(dark) / float64(b.Dx()*b.Dy())
}

func TestFrameDrawsClosedBlocks(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodPut, "/game/game1_guessword/config", `{"displayText":"","canvasGridGuide":false}`)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/game/game1_guessword/frame.png?w=120&h=90", "")
	require.Equal(t, http.StatusOK, rec.Code)

	frame := decodePNG(t, rec.Body.Bytes())
	assert.Greater(t, darkShare(frame), 0.5)

	rec = do(t, h, http.MethodGet, "/game/game1_guessword/base.png?w=120&h=90", "")
	require.Equal(t, http.StatusOK, rec.Code)

	assert.Zero(t, darkShare(decodePNG(t, rec.Body.Bytes())))
}

func TestQR(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodGet, "/game/game1_guessword/qr", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	img := decodePNG(t, rec.Body.Bytes())
	assert.Equal(t, 320, img.Bounds().Dx())
}

func TestLibraryLists(t *testing.T) {
	fsys := afero.NewMemMapFs()

	var bg bytes.Buffer
	require.NoError(t, png.Encode(&bg, image.NewRGBA(image.Rect(0, 0, 4, 4))))
	require.NoError(t, afero.WriteFile(fsys, "backgrounds/sky.png", bg.Bytes(), 0o644))
	require.NoError(t, afero.WriteFile(fsys, "backgrounds/notes.txt", []byte("x"), 0o644))

	_, h := newTestServer(t, testConfig(), fsys)

	rec := do(t, h, http.MethodGet, "/fonts", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var fonts fontList
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &fonts))
	assert.GreaterOrEqual(t, len(fonts.Options), 3)
	assert.Empty(t, fonts.Fonts)

	rec = do(t, h, http.MethodGet, "/sfx", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var sounds []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &sounds))
	assert.Len(t, sounds, 10)

	rec = do(t, h, http.MethodGet, "/backgrounds", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var backgrounds []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &backgrounds))
	require.Len(t, backgrounds, 1)
	assert.Equal(t, "/backgrounds/sky.png", backgrounds[0]["url"])

	rec = do(t, h, http.MethodGet, "/backgrounds/sky.png", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/png", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodGet, "/backgrounds/missing.png", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestListedBackgroundRenders(t *testing.T) {
	fsys := afero.NewMemMapFs()

	red := image.NewRGBA(image.Rect(0, 0, 8, 8))
	for y := 0; y < 8; y++ {
		for x := 0; x < 8; x++ {
			red.Set(x, y, color.RGBA{R: 255, A: 255})
		}
	}

	var bg bytes.Buffer
	require.NoError(t, png.Encode(&bg, red))
	require.NoError(t, afero.WriteFile(fsys, "backgrounds/red.png", bg.Bytes(), 0o644))

	cfg := testConfig()
	cfg.prefix = "/p"

	_, h := newTestServer(t, cfg, fsys)

	rec := do(t, h, http.MethodGet, "/p/backgrounds", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var backgrounds []map[string]string
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &backgrounds))
	require.Len(t, backgrounds, 1)

	listed := backgrounds[0]["url"]
	require.Equal(t, "/p/backgrounds/red.png", listed)

	body, err := json.Marshal(map[string]any{
		"backgroundUrl":   listed,
		"backgroundFit":   "stretch",
		"displayText":     "",
		"canvasGridGuide": false,
	})
	require.NoError(t, err)

	rec = do(t, h, http.MethodPut, "/p/game/game1_guessword/config", string(body))
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/p/game/game1_guessword/base.png?w=40&h=30", "")
	require.Equal(t, http.StatusOK, rec.Code)

	img := decodePNG(t, rec.Body.Bytes())
	for _, p := range []image.Point{{2, 2}, {20, 15}, {37, 27}} {
		c := color.RGBAModel.Convert(img.At(p.X, p.Y)).(color.RGBA)
		assert.True(t, c.R > 0xf0 && c.G < 0x10 && c.B < 0x10, "pixel %v is %v", p, c)
	}
}

func TestSoundEffects(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodGet, "/sfx/pop-1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "audio/wav", rec.Header().Get("Content-Type"))
	assert.Equal(t, "RIFF", rec.Body.String()[:4])

	rec = do(t, h, http.MethodGet, "/sfx/pop-1?volume=0.8", "")
	assert.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/sfx/pop-1?volume=loud", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodGet, "/sfx/pop-99", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestStaticRoutes(t *testing.T) {
	_, h := newTestServer(t, testConfig(), nil)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	assert.Equal(t, "Ok\n", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/version", "")
	assert.Equal(t, "guessword v"+releaseVersion+"\n", rec.Body.String())

	rec = do(t, h, http.MethodGet, "/robots.txt", "")
	assert.Contains(t, rec.Body.String(), "Disallow: /game/")

	rec = do(t, h, http.MethodGet, "/assets/guessword/app.js", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/javascript; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodGet, "/assets/guessword/app.css", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/css; charset=utf-8", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodGet, "/assets/guessword/missing.js", "")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/favicon.svg", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "image/svg+xml", rec.Header().Get("Content-Type"))

	rec = do(t, h, http.MethodGet, "/favicons/favicon.svg", "")
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestSecurityHeaders(t *testing.T) {
	cfg := testConfig()

	rec := httptest.NewRecorder()
	securityHeaders(cfg, rec)

	assert.Equal(t, "nosniff", rec.Header().Get("X-Content-Type-Options"))
	assert.Contains(t, rec.Header().Get("Content-Security-Policy"), "default-src 'self'")
	assert.Empty(t, rec.Header().Get("Strict-Transport-Security"))

	cfg.tlsCert, cfg.tlsKey = "cert.pem", "key.pem"

	rec = httptest.NewRecorder()
	securityHeaders(cfg, rec)

	assert.NotEmpty(t, rec.Header().Get("Strict-Transport-Security"))
}

func TestRealIP(t *testing.T) {
	r := httptest.NewRequest(http.MethodGet, "/", nil)
	r.RemoteAddr = "10.0.0.1:1234"
	assert.Equal(t, "10.0.0.1:1234", realIP(r))

	r.Header.Set("X-Real-IP", "192.0.2.7")
	assert.Equal(t, "192.0.2.7:1234", realIP(r))

	r.Header.Set("CF-Connecting-IP", "2001:db8::1")
	assert.Equal(t, "[2001:db8::1]:1234", realIP(r))

	r.Header.Set("CF-Connecting-IP", "not-an-ip")
	assert.Equal(t, "10.0.0.1:1234", realIP(r))
}

func TestHumanReadableSize(t *testing.T) {
	assert.Equal(t, "999 B", humanReadableSize(999))
	assert.Equal(t, "1.0 kB", humanReadableSize(1000))
	assert.Equal(t, "1.5 MB", humanReadableSize(1_500_000))
}

func TestProfileNeedsAdmin(t *testing.T) {
	cfg := testConfig()
	cfg.profile = true

	_, h := newTestServer(t, cfg, nil)

	rec := do(t, h, http.MethodGet, "/pprof/heap", "")
	assert.Equal(t, http.StatusForbidden, rec.Code)

	cfg = lockedConfig(t)
	cfg.profile = true

	_, h = newTestServer(t, cfg, nil)

	rec = login(t, h, "admin-pw")
	require.Equal(t, http.StatusSeeOther, rec.Code)

	req := httptest.NewRequest(http.MethodGet, "/pprof/heap", nil)
	req.AddCookie(rec.Result().Cookies()[0])

	rec = httptest.NewRecorder()
	h.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
