package strategy

import (
	"errors"
	"fmt"
	"sort"
)

// ErrStrategyNotFound means no strategy is registered under the requested
// (style, substyle) key. Callers must surface it, never default silently.
var ErrStrategyNotFound = errors.New("strategy not found")

// Key identifies a strategy variant.
type Key struct {
	Style    string
	Substyle string
}

func (k Key) String() string {
	if k.Substyle == "" {
		return k.Style
	}
	return k.Style + "/" + k.Substyle
}

// Registry is the closed catalog of strategies, built once at startup and
// never mutated afterwards, so lookups need no locking.
type Registry struct {
	strategies map[Key]Strategy
}

// NewRegistry builds the registry with every built-in strategy variant.
func NewRegistry() *Registry {
	r := &Registry{strategies: make(map[Key]Strategy)}

	r.register("momentum", "steady", NewMomentum("steady"))
	r.register("momentum", "aggressive", NewMomentum("aggressive"))
	r.register("meanreversion", "rsi", NewMeanReversion("rsi"))
	r.register("meanreversion", "range", NewMeanReversion("range"))
	r.register("breakout", "range", NewBreakout())
	r.register("volumesurge", "scalp", NewVolumeSurge())

	return r
}

func (r *Registry) register(style, substyle string, s Strategy) {
	r.strategies[Key{Style: style, Substyle: substyle}] = s
}

// Resolve looks up a strategy by its compound key. An unknown key fails
// with ErrStrategyNotFound.
func (r *Registry) Resolve(style, substyle string) (Strategy, error) {
	key := Key{Style: style, Substyle: substyle}
	s, ok := r.strategies[key]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrStrategyNotFound, key)
	}
	return s, nil
}

// List returns every registered key in sorted order.
func (r *Registry) List() []Key {
	keys := make([]Key, 0, len(r.strategies))
	for k := range r.strategies {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
	return keys
}
