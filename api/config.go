package api

import (
	"fmt"

	orderedmap "github.com/wk8/go-ordered-map/v2"
	"gopkg.in/yaml.v3"
)

// Config is the normalized pipeline configuration shared by all importers,
// the validator and the DSP engine.
type Config struct {
	Title       string                                 `yaml:"title,omitempty"`
	Description string                                 `yaml:"description,omitempty"`
	Devices     *Devices                               `yaml:"devices,omitempty"`
	Filters     *orderedmap.OrderedMap[string, Filter] `yaml:"filters,omitempty"`
	Mixers      *orderedmap.OrderedMap[string, Mixer]  `yaml:"mixers,omitempty"`
	Pipeline    *Pipeline                              `yaml:"pipeline,omitempty"`
	// Extra holds top-level keys this package does not model (processors, ...).
	Extra map[string]any `yaml:",inline"`
}

// NewConfig returns a config with empty filter and mixer tables and an empty pipeline.
func NewConfig() *Config {
	return &Config{
		Filters:  NewFilters(),
		Mixers:   NewMixers(),
		Pipeline: &Pipeline{},
	}
}

// NewFilters returns an empty insertion-ordered filter table.
func NewFilters() *orderedmap.OrderedMap[string, Filter] {
	return orderedmap.New[string, Filter]()
}

// NewMixers returns an empty insertion-ordered mixer table.
func NewMixers() *orderedmap.OrderedMap[string, Mixer] {
	return orderedmap.New[string, Mixer]()
}

// Steps returns the pipeline steps, or nil when there is no pipeline.
func (c *Config) Steps() []Step {
	if c.Pipeline == nil {
		return nil
	}
	return c.Pipeline.Steps
}

// Devices is the devices section. Only the keys touched by the importers and
// the migrator are modelled; everything else round-trips through Extra.
type Devices struct {
	Samplerate       *int                `yaml:"samplerate,omitempty"`
	EnableResampling *bool               `yaml:"enable_resampling,omitempty"`
	ResamplerType    *LegacyResampler    `yaml:"resampler_type,omitempty"`
	Resampler        Nullable[Resampler] `yaml:"resampler,omitempty"`
	Capture          *Device             `yaml:"capture,omitempty"`
	Playback         *Device             `yaml:"playback,omitempty"`
	Extra            map[string]any      `yaml:",inline"`
}

func (d *Devices) UnmarshalYAML(node *yaml.Node) error {
	type plain Devices
	if err := node.Decode((*plain)(d)); err != nil {
		return err
	}
	markNull(node, "resampler", &d.Resampler)
	return nil
}

// Device types referenced by the migrator.
const (
	DeviceCoreAudio = "CoreAudio"
	DeviceFile      = "File"
	DeviceRawFile   = "RawFile"
)

// Device is a capture or playback device.
type Device struct {
	Type         string           `yaml:"type"`
	ChangeFormat *bool            `yaml:"change_format,omitempty"`
	Format       Nullable[string] `yaml:"format,omitempty"`
	Extra        map[string]any   `yaml:",inline"`
}

func (d *Device) UnmarshalYAML(node *yaml.Node) error {
	type plain Device
	if err := node.Decode((*plain)(d)); err != nil {
		return err
	}
	markNull(node, "format", &d.Format)
	return nil
}

// Resampler is the unified resampler section.
type Resampler struct {
	Type               string  `yaml:"type"`
	Profile            string  `yaml:"profile,omitempty"`
	SincLen            int     `yaml:"sinc_len,omitempty"`
	OversamplingFactor int     `yaml:"oversampling_factor,omitempty"`
	Interpolation      string  `yaml:"interpolation,omitempty"`
	Window             string  `yaml:"window,omitempty"`
	FCutoff            float64 `yaml:"f_cutoff,omitempty"`
}

// LegacyResampler is the old resampler_type value: either a preset name or
// a {FreeAsync: {...}} object.
type LegacyResampler struct {
	Preset    string
	FreeAsync *FreeAsync
}

// FreeAsync holds the parameters of a free-form legacy async resampler.
type FreeAsync struct {
	SincLen           int     `yaml:"sinc_len"`
	OversamplingRatio int     `yaml:"oversampling_ratio"`
	Interpolation     string  `yaml:"interpolation"`
	Window            string  `yaml:"window"`
	FCutoff           float64 `yaml:"f_cutoff"`
}

func (r LegacyResampler) MarshalYAML() (any, error) {
	if r.FreeAsync != nil {
		return map[string]*FreeAsync{"FreeAsync": r.FreeAsync}, nil
	}
	return r.Preset, nil
}

func (r *LegacyResampler) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.ScalarNode:
		return node.Decode(&r.Preset)
	case yaml.MappingNode:
		var m struct {
			FreeAsync *FreeAsync `yaml:"FreeAsync"`
		}
		if err := node.Decode(&m); err != nil {
			return err
		}
		r.FreeAsync = m.FreeAsync
		return nil
	default:
		return fmt.Errorf("line %d: resampler_type must be a string or a mapping", node.Line)
	}
}

// FilterType names a filter kind.
type FilterType string

const (
	FilterConv        FilterType = "Conv"
	FilterBiquad      FilterType = "Biquad"
	FilterBiquadCombo FilterType = "BiquadCombo"
	FilterDiffEq      FilterType = "DiffEq"
	FilterDelay       FilterType = "Delay"
	FilterGain        FilterType = "Gain"
	FilterVolume      FilterType = "Volume"
	FilterLoudness    FilterType = "Loudness"
	FilterDither      FilterType = "Dither"
	FilterLimiter     FilterType = "Limiter"
)

// Known reports whether t is one of the filter types above.
func (t FilterType) Known() bool {
	switch t {
	case FilterConv, FilterBiquad, FilterBiquadCombo, FilterDiffEq, FilterDelay,
		FilterGain, FilterVolume, FilterLoudness, FilterDither, FilterLimiter:
		return true
	}
	return false
}

// Filter is a named filter definition. Parameters are type specific.
type Filter struct {
	Type        FilterType     `yaml:"type"`
	Parameters  map[string]any `yaml:"parameters"`
	Description string         `yaml:"description,omitempty"`
	Extra       map[string]any `yaml:",inline"`
}

// Param returns the named parameter and whether it is present.
func (f Filter) Param(name string) (any, bool) {
	v, ok := f.Parameters[name]
	return v, ok
}

// Scale is the unit of a mixer source gain.
type Scale string

const (
	ScaleLinear Scale = "linear"
	ScaleDB     Scale = "dB"
)

// Mixer is an N-in/M-out gain matrix expressed as per-destination source lists.
type Mixer struct {
	Description string         `yaml:"description,omitempty"`
	Channels    MixerChannels  `yaml:"channels"`
	Mapping     []Mapping      `yaml:"mapping"`
	Extra       map[string]any `yaml:",inline"`
}

// MixerChannels holds the input and output channel counts of a mixer.
type MixerChannels struct {
	In  int `yaml:"in"`
	Out int `yaml:"out"`
}

// Mapping routes a list of sources into one destination channel.
type Mapping struct {
	Dest    int            `yaml:"dest"`
	Sources []Source       `yaml:"sources"`
	Mute    *bool          `yaml:"mute,omitempty"`
	Extra   map[string]any `yaml:",inline"`
}

// Source is one input of a mapping.
type Source struct {
	Channel  int            `yaml:"channel"`
	Gain     float64        `yaml:"gain"`
	Scale    Scale          `yaml:"scale,omitempty"`
	Inverted bool           `yaml:"inverted"`
	Extra    map[string]any `yaml:",inline"`
}

// DropEmptyMappings removes mapping entries without sources.
func (m *Mixer) DropEmptyMappings() {
	kept := m.Mapping[:0]
	for _, mp := range m.Mapping {
		if len(mp.Sources) > 0 {
			kept = append(kept, mp)
		}
	}
	m.Mapping = kept
}

// StepType tags a pipeline step.
type StepType int

const (
	StepFilter StepType = iota
	StepMixer
	StepProcessor
)

func (t StepType) String() string {
	switch t {
	case StepFilter:
		return "Filter"
	case StepMixer:
		return "Mixer"
	case StepProcessor:
		return "Processor"
	}
	return fmt.Sprintf("StepType(%d)", int(t))
}

func (t StepType) MarshalYAML() (any, error) {
	return t.String(), nil
}

func (t *StepType) UnmarshalYAML(node *yaml.Node) error {
	switch node.Value {
	case "Filter":
		*t = StepFilter
	case "Mixer":
		*t = StepMixer
	case "Processor":
		*t = StepProcessor
	default:
		return fmt.Errorf("line %d: unknown pipeline step type %q", node.Line, node.Value)
	}
	return nil
}

// Step is one pipeline step. Filter steps use Channel (or Channels) and
// Names; mixer and processor steps use Name.
type Step struct {
	Type        StepType        `yaml:"type"`
	Channel     *int            `yaml:"channel,omitempty"`
	Channels    Nullable[[]int] `yaml:"channels,omitempty"`
	Name        string          `yaml:"name,omitempty"`
	Names       []string        `yaml:"names,omitempty"`
	Bypassed    *bool           `yaml:"bypassed,omitempty"`
	Description string          `yaml:"description,omitempty"`
	Extra       map[string]any  `yaml:",inline"`
}

func (s *Step) UnmarshalYAML(node *yaml.Node) error {
	type plain Step
	if err := node.Decode((*plain)(s)); err != nil {
		return err
	}
	markNull(node, "channels", &s.Channels)
	return nil
}

// FilterStep returns a filter step applying names to a single channel.
func FilterStep(channel int, names ...string) Step {
	return Step{Type: StepFilter, Channel: &channel, Names: names}
}

// MixerStep returns a step applying the named mixer.
func MixerStep(name string) Step {
	return Step{Type: StepMixer, Name: name}
}

// Pipeline is the ordered list of steps. Single is set when the source held
// a bare step object instead of a list.
type Pipeline struct {
	Steps  []Step
	Single bool
}

func (p Pipeline) MarshalYAML() (any, error) {
	if p.Single && len(p.Steps) == 1 {
		return p.Steps[0], nil
	}
	if p.Steps == nil {
		return []Step{}, nil
	}
	return p.Steps, nil
}

func (p *Pipeline) UnmarshalYAML(node *yaml.Node) error {
	switch node.Kind {
	case yaml.SequenceNode:
		p.Single = false
		return node.Decode(&p.Steps)
	case yaml.MappingNode:
		var s Step
		if err := node.Decode(&s); err != nil {
			return err
		}
		p.Steps = []Step{s}
		p.Single = true
		return nil
	default:
		return fmt.Errorf("line %d: pipeline must be a list of steps", node.Line)
	}
}
