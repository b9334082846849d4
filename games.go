/*
Copyright © 2026 Seednode <seednode@seedno.de>
*/

package main

// Game is one entry of the game list on the home page.
type Game struct {
	Key         string
	DisplayName string
	StorageKey  string
	Enabled     bool
}

var games = []Game{
	{
		Key:         "game1_guessword",
		DisplayName: "Guess the Word",
		StorageKey:  "guessword-quiz-config",
		Enabled:     true,
	},
	{
		Key:         "game2_xxx",
		DisplayName: "game2 (reserved)",
		Enabled:     false,
	},
}

// lookupGame finds an enabled game by key.
func lookupGame(key string) (Game, bool) {
	for _, g := range games {
		if g.Key == key && g.Enabled {
			return g, true
		}
	}

	return Game{}, false
}

func (g Game) path(cfg *Config) string {
	return cfg.prefix + "/game/" + g.Key
}
