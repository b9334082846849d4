/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"bufio"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/julienschmidt/httprouter"
	"github.com/spf13/cobra"
	"golang.org/x/crypto/bcrypt"
)

type Role string

const (
	RoleGuest Role = "guest"
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

type Ability string

const (
	AbilityQuizEdit   Ability = "quiz:edit"
	AbilityStylesEdit Ability = "styles:edit"
	AbilityAdminAll   Ability = "admin:all"
)

var roleAbilities = map[Role]map[Ability]bool{
	RoleGuest: {AbilityQuizEdit: true, AbilityStylesEdit: true},
	RoleUser:  {AbilityQuizEdit: true, AbilityStylesEdit: true},
	RoleAdmin: {AbilityQuizEdit: true, AbilityStylesEdit: true, AbilityAdminAll: true},
}

func (r Role) Can(a Ability) bool {
	return roleAbilities[r][a]
}

const (
	sessionCookieName = "guessword_session"
	maxSessions       = 4096
)

var errNoCredentials = errors.New("no password hashes configured")

type credential struct {
	role Role
	hash []byte
}

// Auth maps passwords onto roles and tracks logged-in sessions. With no
// password hashes configured every visitor is a guest.
type Auth struct {
	credentials []credential
	sessions    *expirable.LRU[string, Role]
}

func newAuth(cfg *Config) *Auth {
	a := &Auth{
		sessions: expirable.NewLRU[string, Role](maxSessions, nil, cfg.sessionTimeout),
	}

	for _, c := range []struct {
		role Role
		hash string
	}{
		{RoleGuest, cfg.guestHash},
		{RoleUser, cfg.userHash},
		{RoleAdmin, cfg.adminHash},
	} {
		if c.hash != "" {
			a.credentials = append(a.credentials, credential{role: c.role, hash: []byte(c.hash)})
		}
	}

	return a
}

func (a *Auth) open() bool {
	return len(a.credentials) == 0
}

// Login returns a new session token for the role whose password matches.
func (a *Auth) Login(password string) (string, Role, error) {
	if a.open() {
		return "", "", errNoCredentials
	}

	role := Role("")

	// every hash is checked so response time does not reveal the role
	for _, c := range a.credentials {
		if bcrypt.CompareHashAndPassword(c.hash, []byte(password)) == nil && role == "" {
			role = c.role
		}
	}

	if role == "" {
		return "", "", bcrypt.ErrMismatchedHashAndPassword
	}

	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", "", fmt.Errorf("session token: %w", err)
	}

	token := hex.EncodeToString(buf)
	a.sessions.Add(token, role)

	return token, role, nil
}

func (a *Auth) Logout(token string) {
	a.sessions.Remove(token)
}

// Role returns the role of the request's session.
func (a *Auth) Role(r *http.Request) (Role, bool) {
	return a.SessionRole(sessionToken(r))
}

// SessionRole returns the role of a live session and refreshes its idle
// timer.
func (a *Auth) SessionRole(token string) (Role, bool) {
	if a.open() {
		return RoleGuest, true
	}

	if token == "" {
		return "", false
	}

	role, ok := a.sessions.Get(token)
	if ok {
		a.sessions.Add(token, role)
	}

	return role, ok
}

func sessionToken(r *http.Request) string {
	c, err := r.Cookie(sessionCookieName)
	if err != nil {
		return ""
	}

	return c.Value
}

func setSessionCookie(cfg *Config, w http.ResponseWriter, token string, maxAge int) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    token,
		Path:     cfg.prefix + "/",
		MaxAge:   maxAge,
		HttpOnly: true,
		Secure:   cfg.scheme() == "https",
		SameSite: http.SameSiteLaxMode,
	})
}

// requirePage sends visitors without a session to the login page.
func requirePage(cfg *Config, auth *Auth, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		if _, ok := auth.Role(r); !ok {
			http.Redirect(w, r, cfg.prefix+"/login", http.StatusSeeOther)

			return
		}

		h(w, r, p)
	}
}

// requireAbility rejects requests whose session lacks ability.
func requireAbility(cfg *Config, auth *Auth, ability Ability, h httprouter.Handle) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, p httprouter.Params) {
		role, ok := auth.Role(r)

		switch {
		case !ok:
			securityHeaders(cfg, w)
			http.Error(w, "login required", http.StatusUnauthorized)
		case ability != "" && !role.Can(ability):
			securityHeaders(cfg, w)
			http.Error(w, "forbidden", http.StatusForbidden)
		default:
			h(w, r, p)
		}
	}
}

func serveLoginPage(cfg *Config, auth *Auth, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if _, ok := auth.Role(r); ok {
			http.Redirect(w, r, cfg.prefix+"/home", http.StatusSeeOther)

			return
		}

		writePage(cfg, w, http.StatusOK, loginPage(cfg, ""), errs)
	}
}

func serveLogin(cfg *Config, auth *Auth, errs chan<- error) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		startTime := time.Now()

		if auth.open() {
			http.Redirect(w, r, cfg.prefix+"/home", http.StatusSeeOther)

			return
		}

		token, role, err := auth.Login(r.PostFormValue("password"))
		if err != nil {
			logf(cfg, "AUTH: Failed login from %s", realIP(r))

			writePage(cfg, w, http.StatusUnauthorized, loginPage(cfg, "Incorrect password."), errs)

			return
		}

		setSessionCookie(cfg, w, token, int(cfg.sessionTimeout.Seconds()))

		logf(cfg, "AUTH: Logged in %s as %s in %s",
			realIP(r),
			role,
			time.Since(startTime).Round(time.Microsecond),
		)

		http.Redirect(w, r, cfg.prefix+"/home", http.StatusSeeOther)
	}
}

func serveLogout(cfg *Config, auth *Auth) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, _ httprouter.Params) {
		if token := sessionToken(r); token != "" {
			auth.Logout(token)
		}

		setSessionCookie(cfg, w, "", -1)

		http.Redirect(w, r, cfg.prefix+"/login", http.StatusSeeOther)
	}
}

func newHashPasswordCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "hash-password [password]",
		Short: "Print the bcrypt hash of a password, read from stdin when not given.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			var password string

			if len(args) == 1 {
				password = args[0]
			} else {
				line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
				if err != nil && line == "" {
					return fmt.Errorf("read password: %w", err)
				}

				password = strings.TrimRight(line, "\r\n")
			}

			if password == "" {
				return errors.New("password must not be empty")
			}

			hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
			if err != nil {
				return err
			}

			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(hash))

			return err
		},
	}
}
