// Package validate checks the structural rules of a normalized
// configuration: references resolve, mixer channels are in range and the
// pipeline has no empty steps.
package validate

import (
	"fmt"
	"strings"

	"github.com/agentic-research/pipeconv/api"
	"github.com/spf13/cast"
)

// Issue is one validation failure. Path holds map keys (string) and list
// indices (int) leading to the offending value.
type Issue struct {
	Path    []any
	Message string
}

func (i Issue) String() string {
	return joinPath(i.Path) + " : " + i.Message
}

func joinPath(path []any) string {
	parts := make([]string, len(path))
	for i, p := range path {
		parts[i] = fmt.Sprint(p)
	}
	return strings.Join(parts, "/")
}

// Format renders issues one per line as "a/b/c : message".
func Format(issues []Issue) string {
	lines := make([]string, len(issues))
	for i, is := range issues {
		lines[i] = is.String()
	}
	return strings.Join(lines, "\n")
}

type checker struct {
	cfg    *api.Config
	issues []Issue
}

func (c *checker) add(msg string, path ...any) {
	c.issues = append(c.issues, Issue{Path: path, Message: msg})
}

// Config returns every issue found in cfg, in document order.
func Config(cfg *api.Config) []Issue {
	c := &checker{cfg: cfg}
	c.filters()
	c.mixers()
	c.pipeline()
	return c.issues
}

func (c *checker) filters() {
	if c.cfg.Filters == nil {
		return
	}
	for p := c.cfg.Filters.Oldest(); p != nil; p = p.Next() {
		name, f := p.Key, p.Value
		if !f.Type.Known() {
			c.add(fmt.Sprintf("unknown filter type %q", f.Type), "filters", name, "type")
			continue
		}
		if f.Parameters == nil {
			c.add("missing parameters", "filters", name, "parameters")
			continue
		}
		for _, key := range requiredParameters(f) {
			if _, ok := f.Param(key); !ok {
				c.add("missing required parameter", "filters", name, "parameters", key)
			}
		}
		for _, key := range numericParameters(f.Type) {
			if v, ok := f.Param(key); ok {
				if _, err := cast.ToFloat64E(v); err != nil {
					c.add(fmt.Sprintf("must be a number, got %v", v), "filters", name, "parameters", key)
				}
			}
		}
	}
}

func requiredParameters(f api.Filter) []string {
	switch f.Type {
	case api.FilterConv:
		v, _ := f.Param("type")
		switch strings.ToLower(cast.ToString(v)) {
		case "wav", "raw":
			return []string{"type", "filename"}
		}
		return []string{"type"}
	case api.FilterBiquad, api.FilterBiquadCombo, api.FilterDither:
		return []string{"type"}
	case api.FilterDelay:
		return []string{"delay"}
	case api.FilterGain:
		return []string{"gain"}
	}
	return nil
}

func numericParameters(t api.FilterType) []string {
	switch t {
	case api.FilterBiquad:
		return []string{"freq", "q", "gain", "bandwidth"}
	case api.FilterDelay:
		return []string{"delay"}
	case api.FilterGain:
		return []string{"gain"}
	}
	return nil
}

func (c *checker) mixers() {
	if c.cfg.Mixers == nil {
		return
	}
	for p := c.cfg.Mixers.Oldest(); p != nil; p = p.Next() {
		name, m := p.Key, p.Value
		if m.Channels.In < 1 {
			c.add("must be at least 1", "mixers", name, "channels", "in")
		}
		if m.Channels.Out < 1 {
			c.add("must be at least 1", "mixers", name, "channels", "out")
		}
		seen := make(map[int]bool)
		for i, mp := range m.Mapping {
			if mp.Dest < 0 || mp.Dest >= m.Channels.Out {
				c.add(fmt.Sprintf("destination %d is outside 0..%d", mp.Dest, m.Channels.Out-1),
					"mixers", name, "mapping", i, "dest")
			} else if seen[mp.Dest] {
				c.add(fmt.Sprintf("destination %d is mapped more than once", mp.Dest),
					"mixers", name, "mapping", i, "dest")
			}
			seen[mp.Dest] = true
			if len(mp.Sources) == 0 {
				c.add("mapping has no sources", "mixers", name, "mapping", i, "sources")
			}
			for j, src := range mp.Sources {
				if src.Channel < 0 || src.Channel >= m.Channels.In {
					c.add(fmt.Sprintf("source channel %d is outside 0..%d", src.Channel, m.Channels.In-1),
						"mixers", name, "mapping", i, "sources", j, "channel")
				}
				switch src.Scale {
				case "", api.ScaleLinear, api.ScaleDB:
				default:
					c.add(fmt.Sprintf("scale must be %s or %s", api.ScaleLinear, api.ScaleDB),
						"mixers", name, "mapping", i, "sources", j, "scale")
				}
			}
		}
	}
}

// captureChannels is the channel count entering the pipeline, or -1 when
// the config does not say.
func (c *checker) captureChannels() int {
	d := c.cfg.Devices
	if d == nil || d.Capture == nil {
		return -1
	}
	n, err := cast.ToIntE(d.Capture.Extra["channels"])
	if err != nil || n < 1 {
		return -1
	}
	return n
}

func (c *checker) pipeline() {
	channels := c.captureChannels()
	for i, s := range c.cfg.Steps() {
		switch s.Type {
		case api.StepFilter:
			c.filterStep(i, s, channels)
		case api.StepMixer:
			m, ok := c.mixer(s.Name)
			if !ok {
				c.add(fmt.Sprintf("unknown mixer %q", s.Name), "pipeline", i, "name")
				channels = -1
				continue
			}
			if channels >= 0 && m.Channels.In != channels {
				c.add(fmt.Sprintf("mixer expects %d input channels, pipeline carries %d", m.Channels.In, channels),
					"pipeline", i, "name")
			}
			channels = m.Channels.Out
		case api.StepProcessor:
		}
	}
}

func (c *checker) filterStep(i int, s api.Step, channels int) {
	if len(s.Names) == 0 {
		c.add("filter step has no filters", "pipeline", i, "names")
	}
	for j, name := range s.Names {
		if _, ok := c.filter(name); !ok {
			c.add(fmt.Sprintf("unknown filter %q", name), "pipeline", i, "names", j)
		}
	}
	if s.Channel != nil && s.Channels.Set {
		c.add("use either channel or channels", "pipeline", i, "channel")
	}
	if channels < 0 {
		return
	}
	check := func(ch int, path ...any) {
		if ch < 0 || ch >= channels {
			c.add(fmt.Sprintf("channel %d is outside 0..%d", ch, channels-1), path...)
		}
	}
	if s.Channel != nil {
		check(*s.Channel, "pipeline", i, "channel")
	}
	if s.Channels.Value != nil {
		for j, ch := range *s.Channels.Value {
			check(ch, "pipeline", i, "channels", j)
		}
	}
}

func (c *checker) filter(name string) (api.Filter, bool) {
	if c.cfg.Filters == nil {
		return api.Filter{}, false
	}
	return c.cfg.Filters.Get(name)
}

func (c *checker) mixer(name string) (api.Mixer, bool) {
	if c.cfg.Mixers == nil {
		return api.Mixer{}, false
	}
	return c.cfg.Mixers.Get(name)
}
