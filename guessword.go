/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

// Guess the Word
//
// The host picks a word and a background; players see the rendered base
// image hidden behind a grid of blocks (or one movable big mask) and guess
// the word as blocks are opened.
//
// Features:
// - Base image rendered server-side: /game/:gameName/base.png
// - Current frame with the mask drawn over it: /game/:gameName/frame.png
// - WebSocket per game: /game/:gameName/ws, broadcasting mask state and sound cues
// - Quiz configuration stored per game, editable at /game/:gameName/editor
// - QR code of the quiz page, backed by go-qrcode

package main

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"math"
	"net/http"
	"strconv"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/skip2/go-qrcode"

	"github.com/Seednode/guessword/mask"
	"github.com/Seednode/guessword/render"
	"github.com/Seednode/guessword/store"
)

const (
	maxDimension        = 4096
	maxDevicePixelRatio = 4
	maxConfigBytes      = 16 << 20
)

var errBadDimension = errors.New("invalid image dimension")

func writeJSON(cfg *Config, w http.ResponseWriter, status int, v any, errs chan<- error) {
	data, err := json.Marshal(v)
	if err != nil {
		errs <- err

		http.Error(w, "encoding failed", http.StatusInternalServerError)

		return
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Content-Length", strconv.Itoa(len(data)))
	securityHeaders(cfg, w)
	w.WriteHeader(status)

	if _, err := w.Write(data); err != nil {
		errs <- err
	}
}

// gameFrom resolves :gameName, answering 404 for unknown or disabled games.
func gameFrom(w http.ResponseWriter, r *http.Request, ps httprouter.Params) (Game, bool) {
	game, ok := lookupGame(ps.ByName("gameName"))
	if !ok {
		http.NotFound(w, r)
	}

	return game, ok
}

func redirectToQuiz(cfg *Config) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		game, ok := gameFrom(w, r, ps)
		if !ok {
			return
		}

		http.Redirect(w, r, game.path(cfg)+"/quiz", http.StatusSeeOther)
	}
}

func serveGamePage(s *server, view string, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		game, ok := gameFrom(w, r, ps)
		if !ok {
			return
		}

		role, _ := s.auth.Role(r)

		writePage(s.cfg, w, http.StatusOK, gamePage(s.cfg, game, view, role), errs)
	}
}

func serveConfig(s *server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		game, ok := gameFrom(w, r, ps)
		if !ok {
			return
		}

		quiz, err := s.store.Load(game.StorageKey)
		if err != nil {
			errs <- err

			http.Error(w, "failed to load configuration", http.StatusInternalServerError)

			return
		}

		writeJSON(s.cfg, w, http.StatusOK, quiz, errs)
	}
}

// styleKeys may only be changed by roles that can edit block styles.
var styleKeys = []string{"blockStyle", "blockStyleConfig"}

func updateConfig(s *server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		game, ok := gameFrom(w, r, ps)
		if !ok {
			return
		}

		patch, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxConfigBytes))
		if err != nil {
			http.Error(w, "request too large", http.StatusRequestEntityTooLarge)

			return
		}

		var fields map[string]json.RawMessage
		if err := json.Unmarshal(patch, &fields); err != nil {
			http.Error(w, "configuration must be a JSON object", http.StatusBadRequest)

			return
		}

		role, _ := s.auth.Role(r)
		for _, key := range styleKeys {
			if _, ok := fields[key]; ok && !role.Can(AbilityStylesEdit) {
				http.Error(w, "forbidden", http.StatusForbidden)

				return
			}
		}

		quiz, err := s.store.Update(game.StorageKey, patch)
		switch {
		case errors.Is(err, store.ErrInvalidPatch):
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		case err != nil:
			errs <- err

			http.Error(w, "failed to save configuration", http.StatusInternalServerError)

			return
		}

		if hub, ok := s.hubs.existing(game); ok {
			hub.notify()
		}

		logf(s.cfg, "GAMES: Updated %s for %s in %s",
			game.StorageKey,
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)

		writeJSON(s.cfg, w, http.StatusOK, quiz, errs)
	}
}

func resetConfig(s *server, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		game, ok := gameFrom(w, r, ps)
		if !ok {
			return
		}

		quiz, err := s.store.Reset(game.StorageKey)
		if err != nil {
			errs <- err

			http.Error(w, "failed to reset configuration", http.StatusInternalServerError)

			return
		}

		if hub, ok := s.hubs.existing(game); ok {
			hub.notify()
		}

		logf(s.cfg, "GAMES: Reset %s for %s", game.StorageKey, realIP(r))

		writeJSON(s.cfg, w, http.StatusOK, quiz, errs)
	}
}

// parseDimension reads an optional positive number no larger than limit.
func parseDimension(v string, limit float64) (float64, error) {
	if v == "" {
		return 0, nil
	}

	f, err := strconv.ParseFloat(v, 64)
	if err != nil || math.IsNaN(f) || f < 0 || f > limit {
		return 0, fmt.Errorf("%w: %q", errBadDimension, v)
	}

	return f, nil
}

// frameState returns the mask state of game, or a fully closed grid when
// no one has connected yet.
func (s *server) frameState(game Game, quiz store.QuizConfig) (Mode, *mask.BlockMask, mask.BigMask) {
	if hub, ok := s.hubs.existing(game); ok {
		mode, blocks, big := hub.snapshot()
		blocks.Resize(quiz.BlockRows, quiz.BlockCols)

		return mode, blocks, big
	}

	return ModeBlocks, mask.NewBlockMask(quiz.BlockRows, quiz.BlockCols), mask.DefaultBigMask()
}

// serveImage renders the base image, with the current mask drawn over it
// when masked is set. Query parameters w, h and dpr size the image.
func serveImage(s *server, masked bool, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		startTime := time.Now()

		game, ok := gameFrom(w, r, ps)
		if !ok {
			return
		}

		q := r.URL.Query()

		width, errW := parseDimension(q.Get("w"), maxDimension)
		height, errH := parseDimension(q.Get("h"), maxDimension)
		dpr, errD := parseDimension(q.Get("dpr"), maxDevicePixelRatio)
		if err := errors.Join(errW, errH, errD); err != nil {
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		}

		quiz, err := s.store.Load(game.StorageKey)
		if err != nil {
			errs <- err

			http.Error(w, "failed to load configuration", http.StatusInternalServerError)

			return
		}

		surface := render.NewSurface(0, 0)

		err = render.Render(r.Context(), surface, quiz.RenderConfig(), render.Options{
			Width:            width,
			Height:           height,
			DevicePixelRatio: dpr,
			Loader:           s.loader,
			Faces:            s.fonts,
		})
		switch {
		case errors.Is(err, render.ErrTooLarge):
			http.Error(w, err.Error(), http.StatusBadRequest)

			return
		case err != nil:
			// the client went away
			return
		}

		if masked {
			mode, blocks, big := s.frameState(game, quiz)

			switch mode {
			case ModeBlocks:
				err = mask.DrawBlocks(surface, blocks, quiz.Style(), mask.NumbersFor(quiz), s.fonts)
			case ModeBigMask:
				mask.DrawBigMask(surface, big)
			}

			if err != nil {
				errs <- err
			}
		}

		var buf bytes.Buffer
		if err := png.Encode(&buf, surface.Image()); err != nil {
			errs <- err

			http.Error(w, "encoding failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Content-Length", strconv.Itoa(buf.Len()))
		securityHeaders(s.cfg, w)

		written, err := w.Write(buf.Bytes())
		if err != nil {
			errs <- err

			return
		}

		logf(s.cfg, "SERVE: %s image (%s) to %s in %s",
			game.Key,
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// QR handler: generates a PNG QR code for the quiz page using go-qrcode.
func serveQR(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		game, ok := gameFrom(w, r, ps)
		if !ok {
			return
		}

		// Derive scheme (respecting TLS and X-Forwarded-Proto if present).
		scheme := "http"
		if r.TLS != nil {
			scheme = "https"
		}
		if proto := r.Header.Get("X-Forwarded-Proto"); proto == "http" || proto == "https" {
			scheme = proto
		}

		url := scheme + "://" + r.Host + game.path(cfg) + "/quiz"

		const qrSize = 320 // mobile-friendly size
		data, err := qrcode.Encode(url, qrcode.Medium, qrSize)
		if err != nil {
			errs <- err

			http.Error(w, "qr generation failed", http.StatusInternalServerError)

			return
		}

		w.Header().Set("Content-Type", "image/png")
		securityHeaders(cfg, w)

		if _, err := w.Write(data); err != nil {
			errs <- err
		}
	}
}

// registerGuessword sets up routes so that:
//   - /game/:gameName              → redirects to the quiz page
//   - /game/:gameName/quiz         → player view
//   - /game/:gameName/editor       → configuration editor
//   - /game/:gameName/config       → stored configuration (GET, PUT) and reset (POST …/reset)
//   - /game/:gameName/base.png     → base image; frame.png adds the mask
//   - /game/:gameName/ws           → WebSocket for that game
//   - /game/:gameName/qr           → PNG QR code of the quiz page
func registerGuessword(s *server, mux *httprouter.Router, errs chan<- error) {
	cfg := s.cfg
	path := cfg.prefix + "/game/:gameName"

	page := func(h httprouter.Handle) httprouter.Handle {
		return requirePage(cfg, s.auth, h)
	}
	api := func(ability Ability, h httprouter.Handle) httprouter.Handle {
		return requireAbility(cfg, s.auth, ability, h)
	}

	mux.GET(path, page(redirectToQuiz(cfg)))
	mux.GET(path+"/quiz", page(serveGamePage(s, "quiz", errs)))
	mux.GET(path+"/editor", page(api(AbilityQuizEdit, serveGamePage(s, "editor", errs))))

	mux.GET(path+"/config", api("", serveConfig(s, errs)))
	mux.PUT(path+"/config", api(AbilityQuizEdit, updateConfig(s, errs)))
	mux.POST(path+"/config/reset", api(AbilityQuizEdit, resetConfig(s, errs)))

	mux.GET(path+"/base.png", api("", serveImage(s, false, errs)))
	mux.GET(path+"/frame.png", api("", serveImage(s, true, errs)))

	mux.GET(path+"/ws", api("", serveWS(cfg, s.auth, s.hubs)))

	mux.GET(path+"/qr", api("", serveQR(cfg, errs)))
}
