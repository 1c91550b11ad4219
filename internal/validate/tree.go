package validate

import (
	"fmt"

	"github.com/ohler55/ojg/jp"
)

// Tree nests issue messages under their paths, the shape a config editor
// uses to mark fields. List indices become string keys. When two issues
// share a path the later message wins.
func Tree(issues []Issue) (map[string]any, error) {
	tree := map[string]any{}
	for _, is := range issues {
		if len(is.Path) == 0 {
			continue
		}
		x := jp.R()
		for _, p := range is.Path {
			x = x.C(fmt.Sprint(p))
		}
		if err := x.Set(tree, is.Message); err != nil {
			return nil, fmt.Errorf("set %s: %w", joinPath(is.Path), err)
		}
	}
	return tree, nil
}
