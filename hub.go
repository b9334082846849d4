/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

import (
	"encoding/json"
	"net/http"
	"slices"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/julienschmidt/httprouter"

	"github.com/Seednode/guessword/mask"
	"github.com/Seednode/guessword/sfx"
	"github.com/Seednode/guessword/store"
)

// Mode selects what hides the base image.
type Mode string

const (
	ModeBlocks  Mode = "blocks"
	ModeBigMask Mode = "bigmask"
	ModeReveal  Mode = "reveal"
)

var modes = []Mode{ModeBlocks, ModeBigMask, ModeReveal}

// Messages coming from clients
type ClientMessage struct {
	Type       string          `json:"type"`                 // "open", "close", "toggle", "reset", "reveal", "mask_move", "mask_update", "mode"
	Index      *int            `json:"index,omitempty"`      // open / close / toggle
	Direction  mask.Direction  `json:"direction,omitempty"`  // mask_move
	Multiplier float64         `json:"multiplier,omitempty"` // mask_move
	Mask       json.RawMessage `json:"mask,omitempty"`       // mask_update
	Mode       Mode            `json:"mode,omitempty"`       // mode
}

// SessionInfoMessage is sent immediately on connect so the client knows
// whether it may send commands.
type SessionInfoMessage struct {
	Type    string `json:"type"` // "session_info"
	Role    Role   `json:"role"`
	CanEdit bool   `json:"can_edit"`
}

// StateMessage carries everything needed to draw the current frame.
type StateMessage struct {
	Type     string          `json:"type"` // "state"
	Mode     Mode            `json:"mode"`
	Blocks   *mask.BlockMask `json:"blocks"`
	BigMask  mask.BigMask    `json:"big_mask"`
	AllOpen  bool            `json:"all_open"`
	Revision int             `json:"revision"`
}

// SfxMessage asks clients to play a sound effect.
type SfxMessage struct {
	Type   string  `json:"type"` // "sfx"
	Sound  string  `json:"sound"`
	URL    string  `json:"url"`
	Volume float64 `json:"volume"`
}

// SimpleMessage is for generic notifications ("forbidden", "error").
type SimpleMessage struct {
	Type    string `json:"type"`
	Message string `json:"message"`
}

type Client struct {
	conn *websocket.Conn
	send chan any
	role Role

	// auth and token recheck the session on every command; a nil auth
	// keeps role for the life of the client.
	auth  *Auth
	token string
}

// currentRole returns the client's role now, which is lost once its
// session is logged out or expires.
func (c *Client) currentRole() (Role, bool) {
	if c.auth == nil {
		return c.role, true
	}

	return c.auth.SessionRole(c.token)
}

type command struct {
	client *Client
	msg    ClientMessage
}

type Hub struct {
	game    Game
	store   *store.Store
	sounds  *sfx.Catalog
	sfxPath string

	clients map[*Client]bool

	register chan *Client
	unreg    chan *Client
	commands chan command
	refresh  chan struct{}
	done     chan struct{}

	mu sync.RWMutex

	lastActive time.Time
	mode       Mode
	blocks     *mask.BlockMask
	bigMask    mask.BigMask
	revision   int
}

func newHub(game Game, st *store.Store, sounds *sfx.Catalog, sfxPath string) *Hub {
	return &Hub{
		game:       game,
		store:      st,
		sounds:     sounds,
		sfxPath:    sfxPath,
		clients:    make(map[*Client]bool),
		register:   make(chan *Client),
		unreg:      make(chan *Client),
		commands:   make(chan command),
		refresh:    make(chan struct{}, 1),
		done:       make(chan struct{}),
		lastActive: time.Now(),
		mode:       ModeBlocks,
		blocks:     mask.NewBlockMask(0, 0),
		bigMask:    mask.DefaultBigMask(),
	}
}

func (h *Hub) run(cfg *Config) {
	for {
		select {
		case <-h.done:
			return

		case c := <-h.register:
			h.mu.Lock()
			h.lastActive = time.Now()
			h.clients[c] = true

			h.sendLocked(c, SessionInfoMessage{
				Type:    "session_info",
				Role:    c.role,
				CanEdit: c.role.Can(AbilityQuizEdit),
			})

			h.syncLocked(cfg)
			h.sendLocked(c, h.stateLocked())
			h.mu.Unlock()

		case c := <-h.unreg:
			h.mu.Lock()
			h.lastActive = time.Now()

			if _, ok := h.clients[c]; ok {
				delete(h.clients, c)
				close(c.send)
			}
			h.mu.Unlock()

		case cmd := <-h.commands:
			h.handleCommand(cfg, cmd)

		case <-h.refresh:
			h.mu.Lock()
			h.syncLocked(cfg)
			h.revision++
			h.broadcastLocked(h.stateLocked())
			h.mu.Unlock()
		}
	}
}

// syncLocked resizes the block grid to the stored configuration and
// returns that configuration.
func (h *Hub) syncLocked(cfg *Config) store.QuizConfig {
	quiz, err := h.store.Load(h.game.StorageKey)
	if err != nil {
		logf(cfg, "GAMES: Failed to load %s: %v", h.game.StorageKey, err)

		quiz = store.Defaults()
	}

	h.blocks.Resize(quiz.BlockRows, quiz.BlockCols)

	return quiz
}

func (h *Hub) stateLocked() StateMessage {
	return StateMessage{
		Type:     "state",
		Mode:     h.mode,
		Blocks:   h.blocks.Clone(),
		BigMask:  h.bigMask,
		AllOpen:  h.blocks.AllOpen(),
		Revision: h.revision,
	}
}

// snapshot returns a copy of the mask state for drawing a frame.
func (h *Hub) snapshot() (Mode, *mask.BlockMask, mask.BigMask) {
	h.mu.RLock()
	defer h.mu.RUnlock()

	return h.mode, h.blocks.Clone(), h.bigMask
}

func (h *Hub) handleCommand(cfg *Config, cmd command) {
	h.mu.Lock()
	defer h.mu.Unlock()

	h.lastActive = time.Now()

	if role, ok := cmd.client.currentRole(); !ok || !role.Can(AbilityQuizEdit) {
		h.sendLocked(cmd.client, SimpleMessage{
			Type:    "forbidden",
			Message: "You may not control this quiz.",
		})

		return
	}

	quiz := h.syncLocked(cfg)

	sound, changed, err := h.applyLocked(quiz, cmd.msg)
	if err != nil {
		h.sendLocked(cmd.client, SimpleMessage{
			Type:    "error",
			Message: err.Error(),
		})

		return
	}

	if !changed {
		return
	}

	h.revision++
	h.broadcastLocked(h.stateLocked())

	if quiz.SoundEnabled && sound != "" && h.sounds.Known(sound) {
		h.broadcastLocked(SfxMessage{
			Type:   "sfx",
			Sound:  sound,
			URL:    h.sfxPath + "/" + sound,
			Volume: sfx.DefaultVolume,
		})
	}
}

// applyLocked performs msg and reports the sound it triggers and whether
// the state changed.
func (h *Hub) applyLocked(quiz store.QuizConfig, msg ClientMessage) (string, bool, error) {
	style := quiz.Style()

	opened := func() string {
		if h.blocks.AllOpen() {
			return firstNonEmpty(style.SoundAllOpen, style.SoundBingo, store.DefaultSoundBingo)
		}

		return firstNonEmpty(style.SoundOpen, store.DefaultSoundOpen)
	}
	closed := firstNonEmpty(style.SoundClose, store.DefaultSoundClose)

	switch msg.Type {
	case "open":
		if msg.Index == nil || !h.blocks.Open(*msg.Index) {
			return "", false, nil
		}

		return opened(), true, nil

	case "close":
		if msg.Index == nil || !h.blocks.Close(*msg.Index) {
			return "", false, nil
		}

		return closed, true, nil

	case "toggle":
		if msg.Index == nil {
			return "", false, nil
		}

		was := h.blocks.IsOpen(*msg.Index)
		now := h.blocks.Toggle(*msg.Index)

		switch {
		case now == was:
			return "", false, nil
		case now:
			return opened(), true, nil
		default:
			return closed, true, nil
		}

	case "reset":
		h.blocks.Reset()
		h.bigMask = mask.DefaultBigMask()
		h.mode = ModeBlocks

		return "", true, nil

	case "reveal":
		h.blocks.OpenAll()
		h.mode = ModeReveal

		return firstNonEmpty(style.SoundBingo, store.DefaultSoundBingo), true, nil

	case "mask_move":
		multiplier := msg.Multiplier
		if multiplier == 0 {
			multiplier = 1
		}

		if err := h.bigMask.Move(msg.Direction, multiplier); err != nil {
			return "", false, err
		}

		return "", true, nil

	case "mask_update":
		if err := h.bigMask.Update(msg.Mask); err != nil {
			return "", false, err
		}

		return "", true, nil

	case "mode":
		if !slices.Contains(modes, msg.Mode) || msg.Mode == h.mode {
			return "", false, nil
		}

		h.mode = msg.Mode

		return "", true, nil
	}

	return "", false, nil
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}

	return ""
}

func (h *Hub) sendLocked(c *Client, msg any) {
	select {
	case c.send <- msg:
	default:
		delete(h.clients, c)
		close(c.send)
	}
}

func (h *Hub) broadcastLocked(msg any) {
	for client := range h.clients {
		h.sendLocked(client, msg)
	}
}

// notify asks the hub to reload the stored configuration.
func (h *Hub) notify() {
	select {
	case h.refresh <- struct{}{}:
	default:
	}
}

// closeAll disconnects all clients of this hub and stops it (used by reaper).
func (h *Hub) closeAll() {
	h.mu.Lock()
	defer h.mu.Unlock()

	for c := range h.clients {
		close(c.send)
		_ = c.conn.Close()
		delete(h.clients, c)
	}

	close(h.done)
}

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// GameManager holds one hub per game, created on first use.
type GameManager struct {
	mu          sync.Mutex
	hubs        map[string]*Hub
	idleTimeout time.Duration

	store   *store.Store
	sounds  *sfx.Catalog
	sfxPath string
}

func newGameManager(idleTimeout time.Duration, st *store.Store, sounds *sfx.Catalog, sfxPath string) *GameManager {
	gm := &GameManager{
		hubs:        make(map[string]*Hub),
		idleTimeout: idleTimeout,
		store:       st,
		sounds:      sounds,
		sfxPath:     sfxPath,
	}

	if idleTimeout > 0 {
		go gm.reaperLoop()
	}

	return gm
}

func (gm *GameManager) getHub(cfg *Config, game Game) *Hub {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	if hub, ok := gm.hubs[game.Key]; ok {
		return hub
	}

	hub := newHub(game, gm.store, gm.sounds, gm.sfxPath)
	gm.hubs[game.Key] = hub

	go hub.run(cfg)

	return hub
}

// existing returns the running hub of game, if any.
func (gm *GameManager) existing(game Game) (*Hub, bool) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	hub, ok := gm.hubs[game.Key]

	return hub, ok
}

// reaperLoop periodically removes hubs that have been idle longer than idleTimeout.
func (gm *GameManager) reaperLoop() {
	ticker := time.NewTicker(gm.idleTimeout / 2)
	for range ticker.C {
		gm.reap(time.Now().Add(-gm.idleTimeout))
	}
}

func (gm *GameManager) reap(cutoff time.Time) {
	gm.mu.Lock()
	defer gm.mu.Unlock()

	for id, hub := range gm.hubs {
		hub.mu.RLock()
		last := hub.lastActive
		connected := len(hub.clients)
		hub.mu.RUnlock()

		if connected == 0 && last.Before(cutoff) {
			delete(gm.hubs, id)
			go hub.closeAll()
		}
	}
}

func serveWS(cfg *Config, auth *Auth, gm *GameManager) httprouter.Handle {
	return func(w http.ResponseWriter, r *http.Request, ps httprouter.Params) {
		game, ok := lookupGame(ps.ByName("gameName"))
		if !ok {
			http.NotFound(w, r)

			return
		}

		token := sessionToken(r)
		role, _ := auth.SessionRole(token)

		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			logf(cfg, "GAMES: Websocket upgrade failed for %s: %v", realIP(r), err)

			return
		}

		hub := gm.getHub(cfg, game)

		client := &Client{
			conn:  conn,
			send:  make(chan any, 16),
			role:  role,
			auth:  auth,
			token: token,
		}

		select {
		case hub.register <- client:
		case <-hub.done:
			_ = conn.Close()

			return
		}

		go client.writePump()
		client.readPump(hub)
	}
}

func (c *Client) readPump(h *Hub) {
	defer func() {
		select {
		case h.unreg <- c:
		case <-h.done:
		}
		_ = c.conn.Close()
	}()

	for {
		var msg ClientMessage
		if err := c.conn.ReadJSON(&msg); err != nil {
			return
		}

		select {
		case h.commands <- command{client: c, msg: msg}:
		case <-h.done:
			return
		}
	}
}

func (c *Client) writePump() {
	defer c.conn.Close()

	for msg := range c.send {
		if err := c.conn.WriteJSON(msg); err != nil {
			return
		}
	}
}
