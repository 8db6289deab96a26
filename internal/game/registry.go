package game

import (
	"fmt"
	"sort"
	"sync"

	"dice-casino-bot/internal/model"
)

// Registry manages game registration and lookup by game type.
type Registry struct {
	games map[model.GameType]Game
	mu    sync.RWMutex
}

// NewRegistry creates a registry holding the given games.
func NewRegistry(games ...Game) (*Registry, error) {
	r := &Registry{
		games: make(map[model.GameType]Game),
	}
	for _, g := range games {
		if err := r.Register(g); err != nil {
			return nil, err
		}
	}
	return r, nil
}

// Register adds a game to the registry.
// If a game with the same type already exists, it will be replaced.
func (r *Registry) Register(g Game) error {
	if g == nil {
		return fmt.Errorf("cannot register nil game")
	}
	if g.Type() == "" || g.Type() == model.GameUnknown {
		return fmt.Errorf("game %q has no usable type", g.Name())
	}
	if len(g.Choices()) == 0 {
		return fmt.Errorf("game %q has no choices", g.Name())
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	r.games[g.Type()] = g
	return nil
}

// Get retrieves a game by its type.
func (r *Registry) Get(t model.GameType) (Game, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[t]
	return g, ok
}

// List returns all registered games ordered by type.
func (r *Registry) List() []Game {
	r.mu.RLock()
	defer r.mu.RUnlock()

	games := make([]Game, 0, len(r.games))
	for _, g := range r.games {
		games = append(games, g)
	}
	sort.Slice(games, func(i, j int) bool { return games[i].Type() < games[j].Type() })
	return games
}

// Count returns the number of registered games.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.games)
}
