// room/catalog.go
package room

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/wfunc/gameengine/engine"
)

var (
	ErrUnknownGame   = errors.New("unknown game type")
	ErrDuplicateGame = errors.New("game type already registered")
)

// Definition is everything needed to run one game type.
type Definition struct {
	GameType string
	NewGame  func() engine.Game
	Strategy func() engine.Strategy
	// Settings are the defaults for new rooms of this type.
	Settings engine.Settings
	Teams    *engine.TeamConfig
	// DecodeMove turns a move received from a client into the game's move
	// type. Without it the raw JSON is handed to the game.
	DecodeMove func(raw []byte) (engine.Move, error)
}

// Catalog maps game-type tags to definitions.
type Catalog struct {
	defs  map[string]Definition
	mutex sync.RWMutex
}

func NewCatalog() *Catalog {
	return &Catalog{defs: make(map[string]Definition)}
}

func (c *Catalog) Register(def Definition) error {
	if def.GameType == "" || def.NewGame == nil || def.Strategy == nil {
		return fmt.Errorf("%w: incomplete definition for %q", engine.ErrInvalidSettings, def.GameType)
	}
	if err := def.Settings.Validate(); err != nil {
		return fmt.Errorf("game %q: %w", def.GameType, err)
	}

	c.mutex.Lock()
	defer c.mutex.Unlock()
	if _, exists := c.defs[def.GameType]; exists {
		return fmt.Errorf("%w: %s", ErrDuplicateGame, def.GameType)
	}
	c.defs[def.GameType] = def
	return nil
}

// MustRegister is Register for package init code.
func (c *Catalog) MustRegister(def Definition) {
	if err := c.Register(def); err != nil {
		panic(err)
	}
}

func (c *Catalog) Lookup(gameType string) (Definition, error) {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	def, ok := c.defs[gameType]
	if !ok {
		return Definition{}, fmt.Errorf("%w: %s", ErrUnknownGame, gameType)
	}
	return def, nil
}

// Types lists the registered game types in order.
func (c *Catalog) Types() []string {
	c.mutex.RLock()
	defer c.mutex.RUnlock()
	types := make([]string, 0, len(c.defs))
	for t := range c.defs {
		types = append(types, t)
	}
	sort.Strings(types)
	return types
}
