/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"net/http"
	"net/http/pprof"

	"github.com/julienschmidt/httprouter"
)

// registerProfileHandlers exposes net/http/pprof to admins only.
func registerProfileHandlers(cfg *Config, auth *Auth, mux *httprouter.Router) {
	admin := func(h http.Handler) httprouter.Handle {
		return requireAbility(cfg, auth, AbilityAdminAll, func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
			h.ServeHTTP(w, r)
		})
	}

	for _, name := range []string{"allocs", "block", "goroutine", "heap", "mutex", "threadcreate"} {
		mux.GET(cfg.prefix+"/pprof/"+name, admin(pprof.Handler(name)))
	}

	mux.GET(cfg.prefix+"/pprof/cmdline", admin(http.HandlerFunc(pprof.Cmdline)))
	mux.GET(cfg.prefix+"/pprof/profile", admin(http.HandlerFunc(pprof.Profile)))
	mux.GET(cfg.prefix+"/pprof/symbol", admin(http.HandlerFunc(pprof.Symbol)))
	mux.GET(cfg.prefix+"/pprof/trace", admin(http.HandlerFunc(pprof.Trace)))
}
