/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package render

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
	"github.com/spf13/afero"
	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultImageCacheSize = 64

	maxImageBytes  = 32 << 20
	maxImagePixels = 8192 * 8192
)

var (
	ErrUnsupportedURL = errors.New("unsupported image url")
	ErrImageTooLarge  = errors.New("image too large")
)

// ImageLoader turns a URL into a decoded bitmap.
type ImageLoader interface {
	Load(ctx context.Context, url string) (image.Image, error)
}

// Loader fetches http(s) and data: URLs, and reads any other URL as a path
// inside its filesystem. Decoded images are kept in an LRU cache; failed
// loads are not cached, and concurrent loads of one URL share a single fetch.
type Loader struct {
	client *http.Client
	fs     afero.Fs

	localPrefix string

	cache *lru.Cache[string, image.Image]
	group singleflight.Group
}

// NewLoader returns a Loader reading local paths from fsys, which may be nil
// to disable them. A nil client uses one with a 30 second timeout.
func NewLoader(fsys afero.Fs, client *http.Client, cacheSize int) (*Loader, error) {
	if cacheSize <= 0 {
		cacheSize = DefaultImageCacheSize
	}

	cache, err := lru.New[string, image.Image](cacheSize)
	if err != nil {
		return nil, fmt.Errorf("create image cache: %w", err)
	}

	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	return &Loader{
		client: client,
		fs:     fsys,
		cache:  cache,
	}, nil
}

// SetLocalPrefix makes local URLs under prefix resolve relative to the
// filesystem root, so the URLs the server lists its files under load.
// It must be called before the first Load.
func (l *Loader) SetLocalPrefix(prefix string) {
	l.localPrefix = prefix
}

func (l *Loader) Load(ctx context.Context, rawURL string) (image.Image, error) {
	key := cacheKey(rawURL)

	if img, ok := l.cache.Get(key); ok {
		return img, nil
	}

	ch := l.group.DoChan(key, func() (any, error) {
		img, err := l.fetch(context.WithoutCancel(ctx), rawURL)
		if err != nil {
			return nil, err
		}

		l.cache.Add(key, img)

		return img, nil
	})

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return nil, res.Err
		}

		return res.Val.(image.Image), nil
	}
}

// Purge drops every cached image.
func (l *Loader) Purge() {
	l.cache.Purge()
}

func (l *Loader) fetch(ctx context.Context, rawURL string) (image.Image, error) {
	switch {
	case strings.HasPrefix(rawURL, "http://"), strings.HasPrefix(rawURL, "https://"):
		return l.fetchHTTP(ctx, rawURL)
	case strings.HasPrefix(rawURL, "data:"):
		return decodeDataURL(rawURL)
	default:
		return l.fetchFile(rawURL)
	}
}

func (l *Loader) fetchHTTP(ctx context.Context, rawURL string) (image.Image, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return nil, err
	}

	resp, err := l.client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch %s: %s", rawURL, resp.Status)
	}

	return decode(io.LimitReader(resp.Body, maxImageBytes))
}

func (l *Loader) fetchFile(rawURL string) (image.Image, error) {
	if l.fs == nil {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}

	if l.localPrefix != "" {
		rawURL = strings.TrimPrefix(rawURL, l.localPrefix)
	}

	name := path.Clean("/" + rawURL)[1:]
	if name == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedURL, rawURL)
	}

	f, err := l.fs.Open(name)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return decode(io.LimitReader(f, maxImageBytes))
}

func decodeDataURL(rawURL string) (image.Image, error) {
	meta, payload, ok := strings.Cut(strings.TrimPrefix(rawURL, "data:"), ",")
	if !ok {
		return nil, fmt.Errorf("%w: malformed data url", ErrUnsupportedURL)
	}

	var data []byte
	var err error

	if strings.HasSuffix(meta, ";base64") {
		data, err = base64.StdEncoding.DecodeString(payload)
	} else {
		var s string
		s, err = url.PathUnescape(payload)
		data = []byte(s)
	}
	if err != nil {
		return nil, fmt.Errorf("decode data url: %w", err)
	}

	return decode(bytes.NewReader(data))
}

// decode reads the image header first and refuses anything over
// maxImagePixels before allocating the bitmap.
func decode(r io.Reader) (image.Image, error) {
	var header bytes.Buffer

	cfg, _, err := image.DecodeConfig(io.TeeReader(r, &header))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	if int64(cfg.Width)*int64(cfg.Height) > maxImagePixels {
		return nil, fmt.Errorf("%w: %dx%d", ErrImageTooLarge, cfg.Width, cfg.Height)
	}

	img, _, err := image.Decode(io.MultiReader(&header, r))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	return img, nil
}

// cacheKey hashes data: URLs, which can be megabytes long.
func cacheKey(rawURL string) string {
	if !strings.HasPrefix(rawURL, "data:") {
		return rawURL
	}

	sum := sha256.Sum256([]byte(rawURL))

	return "data:" + hex.EncodeToString(sum[:])
}
