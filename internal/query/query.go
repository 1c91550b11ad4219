// Package query runs JSONPath expressions against pipeline configurations.
package query

import (
	"fmt"

	"github.com/agentic-research/pipeconv/api"
	"github.com/ohler55/ojg/jp"
)

// Match is one value selected by a query.
type Match struct {
	value any
}

// Value returns the selected value as decoded from the configuration.
func (m Match) Value() any {
	return m.value
}

// Values returns mappings as-is and wraps anything else under "value".
func (m Match) Values() map[string]any {
	switch v := m.value.(type) {
	case map[string]any:
		return v
	default:
		return map[string]any{"value": v}
	}
}

// Query evaluates selector against generic data (maps, slices, scalars).
func Query(root any, selector string) ([]Match, error) {
	x, err := jp.ParseString(selector)
	if err != nil {
		return nil, fmt.Errorf("invalid jsonpath '%s': %w", selector, err)
	}
	results := x.Get(root)
	matches := make([]Match, len(results))
	for i, r := range results {
		matches[i] = Match{value: r}
	}
	return matches, nil
}

// Config evaluates selector against cfg.
func Config(cfg *api.Config, selector string) ([]Match, error) {
	root, err := api.ToGeneric(cfg)
	if err != nil {
		return nil, err
	}
	return Query(root, selector)
}
