package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/julienschmidt/httprouter"
	"github.com/spf13/afero"

	"github.com/Seednode/guessword/fonts"
	"github.com/Seednode/guessword/render"
	"github.com/Seednode/guessword/sfx"
	"github.com/Seednode/guessword/store"
)

const (
	logDate string        = `2006-01-02T15:04:05.000-07:00`
	timeout time.Duration = 10 * time.Second
)

func securityHeaders(cfg *Config, w http.ResponseWriter) {
	w.Header().Set("Cross-Origin-Opener-Policy", "same-origin")
	w.Header().Set("Cross-Origin-Resource-Policy", "same-site")
	w.Header().Set("Permissions-Policy", "geolocation=(), midi=(), sync-xhr=(), microphone=(), camera=(), magnetometer=(), gyroscope=(), payment=()")
	w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")
	w.Header().Set("X-Content-Type-Options", "nosniff")
	w.Header().Set("Content-Security-Policy", "default-src 'self'; img-src 'self' data: blob:; media-src 'self' blob:")

	if cfg.scheme() == "https" {
		w.Header().Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
	}
}

func realIP(r *http.Request) string {
	host, port, _ := net.SplitHostPort(r.RemoteAddr)
	if ip := r.Header.Get("CF-Connecting-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	} else if ip := r.Header.Get("X-Real-IP"); ip != "" {
		if net.ParseIP(ip) != nil {
			host = ip
		}
	}
	if net.ParseIP(host) != nil && strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port != "" {
		return host + ":" + port
	}
	return host
}

func serveVersion(cfg *Config, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		startTime := time.Now()

		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusOK)

		written, err := w.Write([]byte("guessword v" + releaseVersion + "\n"))
		if err != nil {
			errs <- err

			return
		}

		logf(cfg, "SERVE: Version page (%s) to %s in %s",
			humanReadableSize(int64(written)),
			realIP(r),
			time.Since(startTime).Round(time.Microsecond),
		)
	}
}

// server bundles the collaborators the handlers share.
type server struct {
	cfg *Config

	auth        *Auth
	store       *store.Store
	fonts       *fonts.Registry
	sounds      *sfx.Catalog
	loader      *render.Loader
	backgrounds afero.Fs
	hubs        *GameManager
}

// newServer reads fonts and sound effects from fsys once, so nothing
// scans directories while serving.
func newServer(cfg *Config, fsys afero.Fs) (*server, error) {
	cfg.prefix = strings.TrimSuffix(cfg.prefix, "/")

	fontRegistry, err := fonts.Load(afero.NewBasePathFs(fsys, cfg.fontsDir), cfg.prefix+"/fonts")
	if err != nil {
		return nil, err
	}

	sounds, err := sfx.Load(afero.NewBasePathFs(fsys, cfg.sfxDir), afero.NewMemMapFs(), cfg.prefix+"/sfx")
	if err != nil {
		return nil, err
	}

	backgrounds := afero.NewReadOnlyFs(afero.NewBasePathFs(fsys, cfg.backgroundsDir))

	loader, err := render.NewLoader(backgrounds, &http.Client{Timeout: cfg.fetchTimeout}, cfg.imageCacheSize)
	if err != nil {
		return nil, err
	}
	loader.SetLocalPrefix(cfg.prefix + "/backgrounds/")

	st := store.New(fsys, cfg.dataDir)

	return &server{
		cfg:         cfg,
		auth:        newAuth(cfg),
		store:       st,
		fonts:       fontRegistry,
		sounds:      sounds,
		loader:      loader,
		backgrounds: backgrounds,
		hubs:        newGameManager(cfg.sessionTimeout, st, sounds, cfg.prefix+"/sfx"),
	}, nil
}

func (s *server) routes(errs chan<- error) *httprouter.Router {
	cfg := s.cfg

	mux := httprouter.New()

	mux.PanicHandler = func(w http.ResponseWriter, r *http.Request, i any) {
		errs <- fmt.Errorf("panic serving %s: %v", r.URL.Path, i)

		w.Header().Set("Content-Type", "text/html; charset=utf-8")
		securityHeaders(cfg, w)
		w.WriteHeader(http.StatusInternalServerError)

		io.WriteString(w, newPage(cfg, "Server Error", "<p>An error has occurred. Please try again.</p>"))
	}

	page := func(h httprouter.Handle) httprouter.Handle {
		return requirePage(cfg, s.auth, h)
	}
	api := func(ability Ability, h httprouter.Handle) httprouter.Handle {
		return requireAbility(cfg, s.auth, ability, h)
	}

	mux.GET(cfg.prefix+"/", redirectTo(cfg, "/home"))

	mux.GET(cfg.prefix+"/login", serveLoginPage(cfg, s.auth, errs))
	mux.POST(cfg.prefix+"/login", serveLogin(cfg, s.auth, errs))
	mux.POST(cfg.prefix+"/logout", serveLogout(cfg, s.auth))

	mux.GET(cfg.prefix+"/home", page(serveHomePage(cfg, s.auth, errs)))

	registerGuessword(s, mux, errs)

	mux.GET(cfg.prefix+"/fonts", api("", serveFontList(s, errs)))
	mux.GET(cfg.prefix+"/fonts/*file", serveFontFile(s, errs))

	mux.GET(cfg.prefix+"/sfx", api("", serveSfxList(s, errs)))
	mux.GET(cfg.prefix+"/sfx/:id", serveSfx(s, errs))

	mux.GET(cfg.prefix+"/backgrounds", api("", serveBackgroundList(s, errs)))
	mux.GET(cfg.prefix+"/backgrounds/*file", serveBackground(s, errs))

	mux.GET(cfg.prefix+"/assets/*asset", serveAssets(cfg, errs))

	mux.GET(cfg.prefix+"/favicons/*favicon", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/favicon.svg", serveFavicons(cfg, errs))

	mux.GET(cfg.prefix+"/healthz", serveHealthCheck(cfg, errs))

	mux.GET(cfg.prefix+"/robots.txt", serveRobots(cfg, errs))

	mux.GET(cfg.prefix+"/version", serveVersion(cfg, errs))

	if cfg.profile {
		registerProfileHandlers(cfg, s.auth, mux)
	}

	return mux
}

func redirectTo(cfg *Config, path string) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		http.Redirect(w, r, cfg.prefix+path, http.StatusSeeOther)
	}
}

func ServePage(ctx context.Context, cfg *Config, args []string) error {
	var err error

	timeZone := os.Getenv("TZ")
	if timeZone != "" {
		time.Local, err = time.LoadLocation(timeZone)
		if err != nil {
			return err
		}
	}

	logf(cfg, "START: guessword v%s", releaseVersion)

	s, err := newServer(cfg, afero.NewOsFs())
	if err != nil {
		return err
	}

	logf(cfg, "START: Loaded %d local fonts and %d local sound effects",
		len(s.fonts.Entries()),
		len(s.sounds.Entries()),
	)

	if s.auth.open() {
		logf(cfg, "START: No password hashes configured, every visitor is a guest")
	}

	errs := make(chan error, 64)

	srv := &http.Server{
		Addr:              net.JoinHostPort(cfg.bind, strconv.Itoa(cfg.port)),
		Handler:           s.routes(errs),
		IdleTimeout:       10 * time.Minute,
		ReadTimeout:       timeout,
		ReadHeaderTimeout: timeout,
		WriteTimeout:      cfg.fetchTimeout + timeout,
	}

	go func() {
		for err := range errs {
			logf(cfg, "ERROR: %v", err)
		}
	}()

	go func() {
		var err error
		if cfg.tlsKey != "" && cfg.tlsCert != "" {
			logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
			err = srv.ListenAndServeTLS(cfg.tlsCert, cfg.tlsKey)
		} else {
			logf(cfg, "SERVE: Listening on %s://%s%s/", cfg.scheme(), srv.Addr, cfg.prefix)
			err = srv.ListenAndServe()
		}
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			fmt.Printf("%s | ERROR: %v\n", time.Now().Format(logDate), err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = srv.Shutdown(shutdownCtx)

	return nil
}
