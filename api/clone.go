package api

import (
	"maps"
	"slices"
)

// Clone returns a deep copy of the configuration. Values keep their
// dynamic types, so a 3.0 parameter stays a float64.
func (c *Config) Clone() *Config {
	if c == nil {
		return nil
	}
	out := &Config{
		Title:       c.Title,
		Description: c.Description,
		Extra:       copyMap(c.Extra),
	}
	if c.Devices != nil {
		out.Devices = c.Devices.clone()
	}
	if c.Filters != nil {
		out.Filters = NewFilters()
		for p := c.Filters.Oldest(); p != nil; p = p.Next() {
			f := p.Value
			f.Parameters = copyMap(f.Parameters)
			f.Extra = copyMap(f.Extra)
			out.Filters.Set(p.Key, f)
		}
	}
	if c.Mixers != nil {
		out.Mixers = NewMixers()
		for p := c.Mixers.Oldest(); p != nil; p = p.Next() {
			out.Mixers.Set(p.Key, p.Value.clone())
		}
	}
	if c.Pipeline != nil {
		out.Pipeline = &Pipeline{Single: c.Pipeline.Single}
		if c.Pipeline.Steps != nil {
			out.Pipeline.Steps = make([]Step, len(c.Pipeline.Steps))
			for i, s := range c.Pipeline.Steps {
				out.Pipeline.Steps[i] = s.clone()
			}
		}
	}
	return out
}

func (d *Devices) clone() *Devices {
	out := *d
	out.Samplerate = clonePtr(d.Samplerate)
	out.EnableResampling = clonePtr(d.EnableResampling)
	if d.ResamplerType != nil {
		rt := *d.ResamplerType
		rt.FreeAsync = clonePtr(rt.FreeAsync)
		out.ResamplerType = &rt
	}
	out.Resampler = cloneNullable(d.Resampler)
	if d.Capture != nil {
		out.Capture = d.Capture.clone()
	}
	if d.Playback != nil {
		out.Playback = d.Playback.clone()
	}
	out.Extra = copyMap(d.Extra)
	return &out
}

func (d *Device) clone() *Device {
	out := *d
	out.ChangeFormat = clonePtr(d.ChangeFormat)
	out.Format = cloneNullable(d.Format)
	out.Extra = copyMap(d.Extra)
	return &out
}

func (m Mixer) clone() Mixer {
	m.Extra = copyMap(m.Extra)
	if m.Mapping != nil {
		mapping := make([]Mapping, len(m.Mapping))
		for i, mp := range m.Mapping {
			mp.Mute = clonePtr(mp.Mute)
			mp.Extra = copyMap(mp.Extra)
			if mp.Sources != nil {
				sources := make([]Source, len(mp.Sources))
				for j, src := range mp.Sources {
					src.Extra = copyMap(src.Extra)
					sources[j] = src
				}
				mp.Sources = sources
			}
			mapping[i] = mp
		}
		m.Mapping = mapping
	}
	return m
}

func (s Step) clone() Step {
	s.Channel = clonePtr(s.Channel)
	s.Bypassed = clonePtr(s.Bypassed)
	s.Names = slices.Clone(s.Names)
	if s.Channels.Value != nil {
		s.Channels = Some(slices.Clone(*s.Channels.Value))
	}
	s.Extra = copyMap(s.Extra)
	return s
}

func clonePtr[T any](p *T) *T {
	if p == nil {
		return nil
	}
	v := *p
	return &v
}

func cloneNullable[T any](n Nullable[T]) Nullable[T] {
	return Nullable[T]{Set: n.Set, Value: clonePtr(n.Value)}
}

// copyMap deep copies the generic values produced by YAML decoding.
func copyMap(m map[string]any) map[string]any {
	if m == nil {
		return nil
	}
	out := maps.Clone(m)
	for k, v := range out {
		out[k] = copyValue(v)
	}
	return out
}

func copyValue(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return copyMap(v)
	case map[any]any:
		out := make(map[any]any, len(v))
		for k, e := range v {
			out[k] = copyValue(e)
		}
		return out
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = copyValue(e)
		}
		return out
	default:
		return v
	}
}
