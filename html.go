/*
Copyright © 2025 Seednode <seednode@seedno.de>
*/

package main

import (
	"embed"
	"fmt"
	"html"
	"net/http"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
)

//go:embed assets/*
var assets embed.FS

func serveHomePage(cfg *Config, auth *Auth, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		role, _ := auth.Role(r)

		var body strings.Builder

		body.WriteString(`<h1>Games</h1><ul class="games">`)
		for _, g := range games {
			if !g.Enabled {
				body.WriteString(fmt.Sprintf(`<li class="disabled">%s</li>`, html.EscapeString(g.DisplayName)))

				continue
			}

			body.WriteString(fmt.Sprintf(`<li><a href="%s/quiz">%s</a>`, g.path(cfg), html.EscapeString(g.DisplayName)))
			if role.Can(AbilityQuizEdit) {
				body.WriteString(fmt.Sprintf(` <a class="edit" href="%s/editor">Edit</a>`, g.path(cfg)))
			}
			body.WriteString(`</li>`)
		}
		body.WriteString(`</ul>`)

		if !auth.open() {
			body.WriteString(fmt.Sprintf(`<p class="role">Signed in as %s.</p>`, html.EscapeString(string(role))))
			body.WriteString(fmt.Sprintf(`<form method="post" action="%s/logout"><button type="submit">Log out</button></form>`, cfg.prefix))
		}

		writePage(cfg, w, http.StatusOK, newPage(cfg, "guessword", body.String()), errs)
	}
}

func loginPage(cfg *Config, message string) string {
	var body strings.Builder

	body.WriteString(`<h1>Log in</h1>`)
	if message != "" {
		body.WriteString(fmt.Sprintf(`<p class="error">%s</p>`, html.EscapeString(message)))
	}
	body.WriteString(fmt.Sprintf(`<form method="post" action="%s/login" class="login">`, cfg.prefix))
	body.WriteString(`<input type="password" name="password" autocomplete="current-password" autofocus required>`)
	body.WriteString(`<button type="submit">Enter</button></form>`)

	return newPage(cfg, "Log in", body.String())
}

var editorFields = []struct {
	name, label, kind string
}{
	{"title", "Title", "text"},
	{"clue", "Clue", "text"},
	{"answer", "Answer", "text"},
	{"displayText", "Display text", "text"},
	{"font", "Font", "font"},
	{"fontSize", "Font size", "number"},
	{"textColor", "Text colour", "text"},
	{"textX", "Text X (0-1)", "number"},
	{"textY", "Text Y (0-1)", "number"},
	{"backgroundUrl", "Background URL", "background"},
	{"backgroundFit", "Background fit", "fit"},
	{"blockRows", "Block rows", "number"},
	{"blockCols", "Block columns", "number"},
	{"blockStyle", "Block style", "style"},
	{"blockNumberEnabled", "Number blocks", "checkbox"},
	{"soundEnabled", "Sound", "checkbox"},
	{"canvasGridGuide", "Grid guide", "checkbox"},
	{"canvasGridThickness", "Grid thickness", "number"},
	{"canvasGridRows", "Grid rows", "number"},
	{"canvasGridCols", "Grid columns", "number"},
}

func editorField(name, label, kind string) string {
	id := html.EscapeString(name)

	switch kind {
	case "font":
		return fmt.Sprintf(`<label>%s <select name="%s" data-options="fonts"></select></label>`, label, id)
	case "fit":
		return fmt.Sprintf(`<label>%s <select name="%s"><option>cover</option><option>contain</option><option>stretch</option></select></label>`, label, id)
	case "style":
		return fmt.Sprintf(`<label>%s <select name="%s"><option>solid-dark</option><option>frosted</option><option>neon</option><option>silver</option><option>plum</option></select></label>`, label, id)
	case "background":
		return fmt.Sprintf(`<label>%s <input type="text" name="%s" list="backgrounds"></label><datalist id="backgrounds" data-options="backgrounds"></datalist>`, label, id)
	case "checkbox":
		return fmt.Sprintf(`<label><input type="checkbox" name="%s"> %s</label>`, id, label)
	case "number":
		return fmt.Sprintf(`<label>%s <input type="number" step="any" name="%s"></label>`, label, id)
	}

	return fmt.Sprintf(`<label>%s <input type="text" name="%s"></label>`, label, id)
}

// gamePage builds the quiz and editor views. Both are driven by app.js.
func gamePage(cfg *Config, game Game, view string, role Role) string {
	var body strings.Builder

	body.WriteString(fmt.Sprintf(`<section id="game" data-view="%s" data-base="%s" data-prefix="%s" data-can-edit="%t">`,
		view,
		html.EscapeString(game.path(cfg)),
		html.EscapeString(cfg.prefix),
		role.Can(AbilityQuizEdit),
	))
	body.WriteString(fmt.Sprintf(`<nav><a href="%s/home">Home</a></nav>`, cfg.prefix))

	switch view {
	case "editor":
		body.WriteString(`<h1>Edit quiz</h1><form id="editor" class="editor">`)
		for _, f := range editorFields {
			body.WriteString(editorField(f.name, f.label, f.kind))
		}
		body.WriteString(`<div class="actions"><button type="submit">Save</button> <button type="button" id="reset">Reset to defaults</button></div></form>`)
		body.WriteString(`<p id="status" class="status"></p>`)
		body.WriteString(fmt.Sprintf(`<img id="preview" class="stage" alt="base image preview" src="%s/base.png">`, game.path(cfg)))
	default:
		body.WriteString(`<header><h1 id="title"></h1><p id="clue"></p></header>`)
		body.WriteString(fmt.Sprintf(`<img id="frame" class="stage" alt="quiz image" src="%s/frame.png">`, game.path(cfg)))
		if role.Can(AbilityQuizEdit) {
			body.WriteString(`<div id="controls" class="controls">`)
			body.WriteString(`<button data-cmd="reveal">Reveal</button> <button data-cmd="reset">Reset</button> `)
			body.WriteString(`<button data-mode="blocks">Blocks</button> <button data-mode="bigmask">Big mask</button> `)
			body.WriteString(`<button data-move="left">←</button><button data-move="up">↑</button><button data-move="down">↓</button><button data-move="right">→</button>`)
			body.WriteString(fmt.Sprintf(` <a href="%s/editor">Edit</a></div>`, game.path(cfg)))
		}
		body.WriteString(fmt.Sprintf(`<img class="qr" alt="QR code" src="%s/qr">`, game.path(cfg)))
	}

	body.WriteString(`</section>`)
	body.WriteString(fmt.Sprintf(`<script src="%s/assets/guessword/app.js" defer></script>`, cfg.prefix))

	return newPage(cfg, game.DisplayName, body.String())
}

func serveHealthCheck(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)

		_, err := w.Write([]byte("Ok\n"))
		if err != nil {
			errs <- err

			return
		}
	}
}

func serveAssets(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		fname := "assets" + p.ByName("asset")

		data, err := assets.ReadFile(fname)
		if err != nil {
			http.NotFound(w, r)

			return
		}

		contentType := "application/octet-stream"

		ext := strings.ToLower(filepath.Ext(fname))
		switch ext {
		case ".css":
			contentType = "text/css; charset=utf-8"
		case ".js":
			contentType = "text/javascript; charset=utf-8"
		case ".svg":
			contentType = "image/svg+xml"
		}

		writeFile(cfg, w, data, contentType, errs)
	}
}

func serveRobots(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		data := `User-agent: *
Disallow: /game/
Disallow: /fonts
Disallow: /sfx
Disallow: /backgrounds

User-agent: GPTBot
Disallow: /

User-agent: CCBot
Disallow: /`

		w.Header().Set("Cache-Control", "public, max-age=3600")
		w.Header().Set("Expires", time.Now().Add(time.Hour).UTC().Format(http.TimeFormat))
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.Header().Set("Content-Length", strconv.Itoa(len(data)))
		securityHeaders(cfg, w)

		_, err := w.Write([]byte(data))
		if err != nil {
			errs <- err

			return
		}
	}
}
