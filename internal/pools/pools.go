// Package pools holds the immutable content pools mini-games draw from:
// question and prompt records keyed by id, with per-language text, a
// canonical answer and optional aliases. The seeded selector only needs the
// ids; the guess matcher only needs answer plus aliases.
package pools

import (
	"encoding/json"
	"fmt"
	"os"

	"partydeck/internal/match"
)

// Item is one question or prompt record.
type Item struct {
	ID      string            `json:"id"`
	Text    map[string]string `json:"text"`
	Answer  string            `json:"answer,omitempty"`
	Aliases []string          `json:"aliases,omitempty"`
	Points  int               `json:"points,omitempty"`
}

// Pool is the content for one game id.
type Pool struct {
	GameID string `json:"gameId"`
	Items  []Item `json:"items"`
}

// Library indexes pools by game id and items by id within each pool.
type Library struct {
	pools map[string]Pool
	items map[string]map[string]Item
}

func NewLibrary(pools ...Pool) *Library {
	lib := &Library{
		pools: make(map[string]Pool, len(pools)),
		items: make(map[string]map[string]Item, len(pools)),
	}
	for _, p := range pools {
		lib.pools[p.GameID] = p
		byID := make(map[string]Item, len(p.Items))
		for _, item := range p.Items {
			byID[item.ID] = item
		}
		lib.items[p.GameID] = byID
	}
	return lib
}

// LoadFile reads a JSON file holding a list of pools.
func LoadFile(path string) (*Library, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read pools: %w", err)
	}
	var pools []Pool
	if err := json.Unmarshal(data, &pools); err != nil {
		return nil, fmt.Errorf("parse pools: %w", err)
	}
	return NewLibrary(pools...), nil
}

// Pool returns the content for a game id; the empty pool for unknown ids.
func (l *Library) Pool(gameID string) Pool {
	return l.pools[gameID]
}

// IDs returns the item ids of a pool, in pool order, for seeded selection.
func (l *Library) IDs(gameID string) []string {
	p := l.pools[gameID]
	ids := make([]string, len(p.Items))
	for i, item := range p.Items {
		ids[i] = item.ID
	}
	return ids
}

// Item looks an item up by game and id.
func (l *Library) Item(gameID, itemID string) (Item, bool) {
	item, ok := l.items[gameID][itemID]
	return item, ok
}

// GameIDs lists games with loaded content.
func (l *Library) GameIDs() []string {
	ids := make([]string, 0, len(l.pools))
	for id := range l.pools {
		ids = append(ids, id)
	}
	return ids
}

// CheckGuess answers the drawing/photo-prompt check with nothing but a
// boolean. The canonical text and aliases never leave this package through
// this path, not even on a miss. Unknown item ids are a client-input error.
func (l *Library) CheckGuess(gameID, itemID, guess string) (bool, error) {
	item, ok := l.items[gameID][itemID]
	if !ok {
		return false, fmt.Errorf("unknown item %q in pool %q", itemID, gameID)
	}
	return match.Matches(guess, item.Answer, item.Aliases...), nil
}
