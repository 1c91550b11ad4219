package api

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const sampleYAML = `
title: test
devices:
  samplerate: 44100
  chunksize: 1024
  resampler: null
  capture:
    type: Alsa
    channels: 2
    format: null
filters:
  hp:
    type: Biquad
    parameters:
      type: Highpass
      freq: 80
      q: 0.5
  lp:
    type: Biquad
    parameters:
      type: Lowpass
      freq: 8000
      q: 0.7
mixers:
  swap:
    channels:
      in: 2
      out: 2
    mapping:
      - dest: 0
        sources:
          - channel: 1
            gain: 0
            scale: dB
            inverted: false
pipeline:
  - type: Mixer
    name: swap
  - type: Filter
    channels: null
    names: [hp, lp]
`

func TestDecode_YAML(t *testing.T) {
	cfg, err := Decode([]byte(sampleYAML))
	require.NoError(t, err)

	assert.Equal(t, "test", cfg.Title)
	require.NotNil(t, cfg.Devices)
	require.NotNil(t, cfg.Devices.Samplerate)
	assert.Equal(t, 44100, *cfg.Devices.Samplerate)
	assert.Equal(t, 1024, cfg.Devices.Extra["chunksize"])
	assert.True(t, cfg.Devices.Resampler.IsNull())
	require.NotNil(t, cfg.Devices.Capture)
	assert.True(t, cfg.Devices.Capture.Format.IsNull())
	assert.Equal(t, 2, cfg.Devices.Capture.Extra["channels"])

	var names []string
	for p := cfg.Filters.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	assert.Equal(t, []string{"hp", "lp"}, names)

	steps := cfg.Steps()
	require.Len(t, steps, 2)
	assert.Equal(t, StepMixer, steps[0].Type)
	assert.Equal(t, "swap", steps[0].Name)
	assert.Equal(t, StepFilter, steps[1].Type)
	assert.True(t, steps[1].Channels.IsNull())
	assert.Nil(t, steps[1].Channel)
}

func TestDecode_JSONWithTabs(t *testing.T) {
	input := "{\n\t\"filters\": {\n\t\t\"g\": {\"type\": \"Gain\", \"parameters\": {\"gain\": -3}}\n\t}\n}"
	cfg, err := Decode([]byte(input))
	require.NoError(t, err)

	f, ok := cfg.Filters.Get("g")
	require.True(t, ok)
	assert.Equal(t, FilterGain, f.Type)
	assert.Equal(t, -3, f.Parameters["gain"])
	assert.Nil(t, cfg.Devices)
	assert.Nil(t, cfg.Pipeline)
}

func TestDecode_SingleStepPipeline(t *testing.T) {
	cfg, err := Decode([]byte(`
pipeline:
  type: Filter
  names: [eq]
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Pipeline)
	assert.True(t, cfg.Pipeline.Single)
	require.Len(t, cfg.Pipeline.Steps, 1)
	assert.Equal(t, []string{"eq"}, cfg.Pipeline.Steps[0].Names)
	assert.False(t, cfg.Pipeline.Steps[0].Channels.Set)
}

func TestDecode_UnknownStepType(t *testing.T) {
	_, err := Decode([]byte("pipeline:\n  - type: Splitter\n"))
	assert.Error(t, err)
}

func TestDecode_LegacyResampler(t *testing.T) {
	cfg, err := Decode([]byte(`
devices:
  enable_resampling: true
  resampler_type:
    FreeAsync:
      f_cutoff: 0.9
      sinc_len: 128
      window: Hann2
      oversampling_ratio: 64
      interpolation: Cubic
`))
	require.NoError(t, err)
	require.NotNil(t, cfg.Devices.ResamplerType)
	require.NotNil(t, cfg.Devices.ResamplerType.FreeAsync)
	assert.Equal(t, 64, cfg.Devices.ResamplerType.FreeAsync.OversamplingRatio)

	cfg, err = Decode([]byte("devices:\n  resampler_type: FastAsync\n"))
	require.NoError(t, err)
	assert.Equal(t, "FastAsync", cfg.Devices.ResamplerType.Preset)
}

func TestEncodeJSON_PreservesOrderAndNulls(t *testing.T) {
	cfg := NewConfig()
	cfg.Filters.Set("zeta", Filter{Type: FilterGain, Parameters: map[string]any{"gain": -6.0, "scale": "dB"}})
	cfg.Filters.Set("alpha", Filter{Type: FilterDelay, Parameters: map[string]any{"delay": 3, "unit": "ms"}})
	step := Step{Type: StepFilter, Channels: Null[[]int](), Names: []string{"zeta", "alpha"}}
	cfg.Pipeline.Steps = append(cfg.Pipeline.Steps, step)

	out, err := EncodeJSON(cfg)
	require.NoError(t, err)

	assert.JSONEq(t, `{
		"filters": {
			"zeta": {"type": "Gain", "parameters": {"gain": -6, "scale": "dB"}},
			"alpha": {"type": "Delay", "parameters": {"delay": 3, "unit": "ms"}}
		},
		"mixers": {},
		"pipeline": [{"type": "Filter", "channels": null, "names": ["zeta", "alpha"]}]
	}`, string(out))
	assert.Less(t, strings.Index(string(out), "zeta"), strings.Index(string(out), "alpha"))
}

func TestEncodeYAML_RoundTrip(t *testing.T) {
	cfg, err := Decode([]byte(sampleYAML))
	require.NoError(t, err)

	out, err := EncodeYAML(cfg)
	require.NoError(t, err)

	again, err := Decode(out)
	require.NoError(t, err)

	first, err := ToGeneric(cfg)
	require.NoError(t, err)
	second, err := ToGeneric(again)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestClone_IsIndependent(t *testing.T) {
	cfg, err := Decode([]byte(sampleYAML))
	require.NoError(t, err)

	clone := cfg.Clone()
	clone.Filters.Delete("hp")
	clone.Pipeline.Steps[1].Names = []string{"lp"}

	_, ok := cfg.Filters.Get("hp")
	assert.True(t, ok)
	assert.Equal(t, []string{"hp", "lp"}, cfg.Pipeline.Steps[1].Names)
}

func TestMixer_DropEmptyMappings(t *testing.T) {
	m := Mixer{
		Channels: MixerChannels{In: 2, Out: 2},
		Mapping: []Mapping{
			{Dest: 0},
			{Dest: 1, Sources: []Source{{Channel: 0, Gain: 1, Scale: ScaleLinear}}},
		},
	}
	m.DropEmptyMappings()
	require.Len(t, m.Mapping, 1)
	assert.Equal(t, 1, m.Mapping[0].Dest)
}
