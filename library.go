/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gabriel-vasile/mimetype"
	"github.com/julienschmidt/httprouter"
	"github.com/spf13/afero"

	"github.com/Seednode/guessword/fonts"
	"github.com/Seednode/guessword/manifest"
	"github.com/Seednode/guessword/sfx"
)

var backgroundExtensions = []string{".png", ".jpg", ".jpeg", ".gif", ".webp", ".bmp"}

func writeFile(cfg *Config, w http.ResponseWriter, data []byte, contentType string, errs chan<- error) {
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
	w.Header().Set("Content-Type", contentType)
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(cfg, w)

	if _, err := w.Write(data); err != nil {
		errs <- err
	}
}

type fontList struct {
	Options []fonts.Option   `json:"options"`
	Fonts   []manifest.Entry `json:"fonts"`
}

func serveFontList(s *server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(s.cfg, w, http.StatusOK, fontList{
			Options: s.fonts.Options(),
			Fonts:   s.fonts.Entries(),
		}, errs)
	}
}

func serveFontFile(s *server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		file := strings.TrimPrefix(ps.ByName("file"), "/")

		entry, ok := s.fonts.Lookup(file)
		if !ok {
			http.NotFound(w, r)

			return
		}

		data, err := s.fonts.ReadFile(file)
		if err != nil {
			http.NotFound(w, r)

			return
		}

		contentType := "font/ttf"
		switch entry.Format {
		case "woff2":
			contentType = "font/woff2"
		case "woff":
			contentType = "font/woff"
		case "opentype":
			contentType = "font/otf"
		}

		writeFile(s.cfg, w, data, contentType, errs)
	}
}

func serveSfxList(s *server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		writeJSON(s.cfg, w, http.StatusOK, s.sounds.Options(), errs)
	}
}

// serveSfx plays one effect. The optional volume query parameter applies
// to synthesized effects.
func serveSfx(s *server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		volume := sfx.DefaultVolume
		if v := r.URL.Query().Get("volume"); v != "" {
			f, err := strconv.ParseFloat(v, 64)
			if err != nil {
				http.Error(w, "invalid volume", http.StatusBadRequest)

				return
			}

			volume = sfx.ClampVolume(f)
		}

		clip, err := s.sounds.Clip(ps.ByName("id"), volume)
		switch {
		case errors.Is(err, sfx.ErrUnknown):
			http.NotFound(w, r)

			return
		case err != nil:
			errs <- err

			http.Error(w, "failed to load sound", http.StatusInternalServerError)

			return
		}

		writeFile(s.cfg, w, clip.Data, clip.ContentType, errs)
	}
}

func serveBackgroundList(s *server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		files, err := manifest.Scan(s.backgrounds, ".", backgroundExtensions...)
		if err != nil {
			errs <- err

			http.Error(w, "failed to list backgrounds", http.StatusInternalServerError)

			return
		}

		entries := make([]manifest.Entry, 0, len(files))
		for _, file := range files {
			entries = append(entries, manifest.Entry{
				ID:    file,
				Label: manifest.BaseName(file),
				File:  file,
				URL:   s.cfg.prefix + "/backgrounds/" + file,
			})
		}

		writeJSON(s.cfg, w, http.StatusOK, entries, errs)
	}
}

func serveBackground(s *server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		data, err := afero.ReadFile(s.backgrounds, strings.TrimPrefix(ps.ByName("file"), "/"))
		if err != nil {
			http.NotFound(w, r)

			return
		}

		writeFile(s.cfg, w, data, mimetype.Detect(data).String(), errs)
	}
}
