package legacy

import (
	"testing"

	"github.com/agentic-research/pipeconv/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const basicConfig = `
devices:
  samplerate: 96000
  chunksize: 2048
  queuelimit: 4
  silence_threshold: -60
  silence_timeout: 3.0
  target_level: 500
  adjust_period: 10
  enable_rate_adjust: true
  resampler_type: BalancedAsync
  enable_resampling: false
  capture_samplerate: 44100
  stop_on_rate_change: false
  rate_measure_interval: 1.0
  capture:
    type: Stdin
    channels: 2
    format: S16LE
  playback:
    type: Stdout
    channels: 2
    format: S32LE
filters:
  vol:
    type: Volume
    parameters:
      ramp_time: 200
  hp_80:
    type: Biquad
    parameters:
      type: Highpass
      freq: 80
      q: 0.5
  loudness:
    type: Loudness
    parameters:
      ramp_time: 200.0
      reference_level: -25.0
      high_boost: 7.0
      low_boost: 7.0
  dither:
    type: Dither
    parameters:
      type: Simple
      bits: 16
mixers: {}
pipeline:
  - type: Filter
    channel: 0
    names: [vol, hp_80]
  - type: Filter
    channel: 1
    names: [vol]
`

func decode(t *testing.T, text string) *api.Config {
	t.Helper()
	cfg, err := api.Decode([]byte(text))
	require.NoError(t, err)
	return cfg
}

func migrate(t *testing.T, cfg *api.Config) *api.Config {
	t.Helper()
	return Migrate(cfg, nil)
}

func TestMigrate_BasicConfig(t *testing.T) {
	cfg := decode(t, basicConfig)
	require.Equal(t, V1, Identify(cfg))

	out := migrate(t, cfg)
	assert.Equal(t, Current, Identify(out))

	t.Run("volume filters removed", func(t *testing.T) {
		_, ok := out.Filters.Get("vol")
		assert.False(t, ok)
		require.Len(t, out.Pipeline.Steps, 1)
		assert.Equal(t, []string{"hp_80"}, out.Pipeline.Steps[0].Names)
	})

	t.Run("loudness updated", func(t *testing.T) {
		f, _ := out.Filters.Get("loudness")
		assert.NotContains(t, f.Parameters, "ramp_time")
		assert.Equal(t, "Main", f.Parameters["fader"])
		assert.Equal(t, false, f.Parameters["attenuate_mid"])
		assert.Equal(t, -25.0, f.Parameters["reference_level"])
	})

	t.Run("dither renamed", func(t *testing.T) {
		f, _ := out.Filters.Get("dither")
		assert.Equal(t, "Highpass", f.Parameters["type"])
	})

	t.Run("resampling disabled", func(t *testing.T) {
		assert.Nil(t, out.Devices.EnableResampling)
		assert.Nil(t, out.Devices.ResamplerType)
		assert.True(t, out.Devices.Resampler.IsNull())
	})

	t.Run("scalar channel becomes list", func(t *testing.T) {
		s := out.Pipeline.Steps[0]
		assert.Nil(t, s.Channel)
		require.NotNil(t, s.Channels.Value)
		assert.Equal(t, []int{0}, *s.Channels.Value)
	})

	t.Run("unknown keys survive", func(t *testing.T) {
		assert.Equal(t, 2048, out.Devices.Extra["chunksize"])
		assert.Equal(t, 2, out.Devices.Capture.Extra["channels"])
	})

	t.Run("input untouched", func(t *testing.T) {
		_, ok := cfg.Filters.Get("vol")
		assert.True(t, ok)
		assert.NotNil(t, cfg.Devices.EnableResampling)
		assert.Len(t, cfg.Pipeline.Steps, 2)
	})
}

func TestMigrate_Idempotent(t *testing.T) {
	once := migrate(t, decode(t, basicConfig))
	twice := migrate(t, once)

	a, err := api.EncodeYAML(once)
	require.NoError(t, err)
	b, err := api.EncodeYAML(twice)
	require.NoError(t, err)
	assert.Equal(t, string(a), string(b))
}

func TestMigrate_RemovesVolumeFilterAndReferences(t *testing.T) {
	cfg := decode(t, `
filters:
  vol:
    type: Volume
    parameters: {ramp_time: 200}
  keep:
    type: Volume
    parameters: {ramp_time: 200, fader: Aux1}
pipeline:
  - {type: Filter, channels: [0, 1], names: [vol]}
  - {type: Mixer, name: mix}
  - {type: Filter, channels: [0], names: [vol, keep]}
`)
	out := migrate(t, cfg)

	_, ok := out.Filters.Get("vol")
	assert.False(t, ok)
	_, ok = out.Filters.Get("keep")
	assert.True(t, ok)
	assert.Equal(t, []api.Step{
		api.MixerStep("mix"),
		{Type: api.StepFilter, Channels: api.Some([]int{0}), Names: []string{"keep"}},
	}, out.Pipeline.Steps)
}

func TestMigrate_FiltersOnly(t *testing.T) {
	full := decode(t, basicConfig)
	cfg := api.NewConfig()
	cfg.Mixers, cfg.Pipeline = nil, nil
	cfg.Filters = full.Filters

	out := migrate(t, cfg)
	assert.Equal(t, 3, out.Filters.Len())
	assert.Nil(t, out.Devices)
	assert.Nil(t, out.Pipeline)
}

func TestMigrate_FreeResampler(t *testing.T) {
	cfg := decode(t, `
devices:
  samplerate: 44100
  enable_resampling: true
  resampler_type:
    FreeAsync:
      f_cutoff: 0.9
      sinc_len: 128
      window: Hann2
      oversampling_ratio: 64
      interpolation: Cubic
`)
	out := migrate(t, cfg)
	assert.Nil(t, out.Devices.EnableResampling)
	require.NotNil(t, out.Devices.Resampler.Value)
	assert.Equal(t, api.Resampler{
		Type:               "AsyncSinc",
		SincLen:            128,
		OversamplingFactor: 64,
		Interpolation:      "Cubic",
		Window:             "Hann2",
		FCutoff:            0.9,
	}, *out.Devices.Resampler.Value)
}

func TestMigrate_ResamplerPresets(t *testing.T) {
	tests := []struct {
		preset string
		want   api.Resampler
	}{
		{"Synchronous", api.Resampler{Type: "Synchronous"}},
		{"FastAsync", api.Resampler{Type: "AsyncSinc", Profile: "Fast"}},
		{"BalancedAsync", api.Resampler{Type: "AsyncSinc", Profile: "Balanced"}},
		{"AccurateAsync", api.Resampler{Type: "AsyncSinc", Profile: "Accurate"}},
	}
	for _, tt := range tests {
		t.Run(tt.preset, func(t *testing.T) {
			cfg := decode(t, "devices:\n  enable_resampling: true\n  resampler_type: "+tt.preset+"\n")
			out := migrate(t, cfg)
			require.NotNil(t, out.Devices.Resampler.Value)
			assert.Equal(t, tt.want, *out.Devices.Resampler.Value)
			assert.Nil(t, out.Devices.ResamplerType)
		})
	}

	t.Run("unknown preset", func(t *testing.T) {
		out := migrate(t, decode(t, "devices:\n  enable_resampling: true\n  resampler_type: Mystery\n"))
		assert.False(t, out.Devices.Resampler.Set)
		assert.Nil(t, out.Devices.EnableResampling)
		assert.Nil(t, out.Devices.ResamplerType)
	})
}

func TestMigrate_CoreAudioDevices(t *testing.T) {
	cfg := decode(t, `
devices:
  samplerate: 44100
  capture:
    type: CoreAudio
    channels: 2
    device: Soundflower (2ch)
    format: S32LE
    change_format: true
  playback:
    type: CoreAudio
    channels: 2
    device: Built-in Output
    format: S32LE
    exclusive: false
    change_format: false
`)
	out := migrate(t, cfg)
	capture, playback := out.Devices.Capture, out.Devices.Playback
	assert.Nil(t, capture.ChangeFormat)
	assert.Nil(t, playback.ChangeFormat)
	require.NotNil(t, capture.Format.Value)
	assert.Equal(t, "S32LE", *capture.Format.Value)
	assert.True(t, playback.Format.IsNull())
	assert.Equal(t, false, playback.Extra["exclusive"])
}

func TestMigrate_CoreAudioWithoutChangeFormat(t *testing.T) {
	const devices = `
devices:
  samplerate: 44100
  capture:
    type: CoreAudio
    channels: 2
    format: S32LE
`
	t.Run("legacy config drops format", func(t *testing.T) {
		out := migrate(t, decode(t, devices+"  enable_resampling: false\n"))
		assert.True(t, out.Devices.Capture.Format.IsNull())
	})

	t.Run("current config drops format", func(t *testing.T) {
		cfg := decode(t, `
devices:
  samplerate: 48000
  playback: {type: CoreAudio, channels: 2, format: S32LE}
`)
		require.Equal(t, Current, Identify(cfg))
		out := migrate(t, cfg)
		assert.True(t, out.Devices.Playback.Format.IsNull())

		once, err := api.EncodeYAML(out)
		require.NoError(t, err)
		twice, err := api.EncodeYAML(migrate(t, out))
		require.NoError(t, err)
		assert.Equal(t, string(once), string(twice))
	})
}

func TestMigrate_FilePlaybackBecomesRawFile(t *testing.T) {
	out := migrate(t, decode(t, `
devices:
  samplerate: 44100
  capture: {type: File, filename: in.raw}
  playback: {type: File, filename: out.raw}
`))
	assert.Equal(t, api.DeviceFile, out.Devices.Capture.Type)
	assert.Equal(t, api.DeviceRawFile, out.Devices.Playback.Type)
}

func TestMigrate_SingleStepPipeline(t *testing.T) {
	out := migrate(t, decode(t, `
filters:
  eq1: {type: Biquad, parameters: {type: Peaking, freq: 100, gain: -2, q: 1}}
pipeline:
  type: Filter
  names: [eq1]
`))
	require.NotNil(t, out.Pipeline)
	assert.False(t, out.Pipeline.Single)
	require.Len(t, out.Pipeline.Steps, 1)
	assert.True(t, out.Pipeline.Steps[0].Channels.IsNull())

	data, err := api.EncodeYAML(out)
	require.NoError(t, err)
	assert.Contains(t, string(data), "- type: Filter\n")
	assert.Contains(t, string(data), "channels: null")

	t.Run("existing channel is kept", func(t *testing.T) {
		out := migrate(t, decode(t, "pipeline:\n  type: Filter\n  channel: 1\n  names: [eq1]\n"))
		assert.Equal(t, []int{1}, *out.Pipeline.Steps[0].Channels.Value)
	})
}
