// Package catalog loads the games and updates documents and keeps them as
// one immutable snapshot.
package catalog

import (
	"time"

	"gamecal/internal/model"
)

// Catalog is one loaded pair of documents. It is never mutated after New;
// reloads produce a new Catalog.
type Catalog struct {
	Games    []model.Game
	Updates  []model.Update
	LoadedAt time.Time

	byID map[string]model.Game
}

// New builds a Catalog and its game lookup map. Later games win on
// duplicate ids.
func New(games []model.Game, updates []model.Update) *Catalog {
	if games == nil {
		games = []model.Game{}
	}
	if updates == nil {
		updates = []model.Update{}
	}
	byID := make(map[string]model.Game, len(games))
	for _, g := range games {
		byID[g.ID] = g
	}
	return &Catalog{
		Games:    games,
		Updates:  updates,
		LoadedAt: time.Now(),
		byID:     byID,
	}
}

// GameMap returns the lookup map. Callers must not modify it.
func (c *Catalog) GameMap() map[string]model.Game {
	return c.byID
}
