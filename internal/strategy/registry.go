package strategy

import (
	"fmt"
	"sort"

	"github.com/tidwall/gjson"
)

// Factory builds a strategy instance from its JSON parameter blob.
type Factory func(id string, params gjson.Result) (Strategy, error)

var registry = map[string]Factory{}

// Register installs a named strategy factory. Called from init.
func Register(name string, factory Factory) {
	if _, dup := registry[name]; dup {
		panic("strategy: duplicate registration of " + name)
	}
	registry[name] = factory
}

// Names returns the registered strategy names, sorted.
func Names() []string {
	names := make([]string, 0, len(registry))
	for name := range registry {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// New builds a strategy by registered name. paramsJSON may be empty; a
// non-empty blob must be valid JSON.
func New(name, id, paramsJSON string) (Strategy, error) {
	factory, ok := registry[name]
	if !ok {
		return nil, fmt.Errorf("unknown strategy %q (have %v)", name, Names())
	}
	if paramsJSON != "" && !gjson.Valid(paramsJSON) {
		return nil, fmt.Errorf("strategy %q: params is not valid JSON", name)
	}
	return factory(id, gjson.Parse(paramsJSON))
}
