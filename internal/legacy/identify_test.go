package legacy

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestIdentify(t *testing.T) {
	tests := []struct {
		name   string
		config string
		want   Version
		reason string
	}{
		{
			name:   "volume without fader",
			config: "filters:\n  v: {type: Volume, parameters: {ramp_time: 200}}\n",
			want:   V1,
			reason: "Volume filter without fader",
		},
		{
			name:   "loudness with ramp_time",
			config: "filters:\n  l: {type: Loudness, parameters: {ramp_time: 200, reference_level: -25}}\n",
			want:   V1,
			reason: "Loudness filter with ramp_time",
		},
		{
			name:   "enable_resampling",
			config: "devices:\n  enable_resampling: false\n",
			want:   V1,
			reason: "devices.enable_resampling is set",
		},
		{
			name:   "coreaudio change_format",
			config: "devices:\n  playback: {type: CoreAudio, change_format: true}\n",
			want:   V1,
			reason: "CoreAudio device with change_format",
		},
		{
			name:   "uniform dither",
			config: "filters:\n  d: {type: Dither, parameters: {type: Uniform, bits: 16}}\n",
			want:   V1,
			reason: "Dither filter of type Uniform or Simple",
		},
		{
			name:   "scalar channel",
			config: "pipeline:\n  - {type: Filter, channel: 0, names: [a]}\n",
			want:   V2,
			reason: "Filter step with scalar channel",
		},
		{
			name:   "file capture",
			config: "devices:\n  capture: {type: File, filename: in.raw}\n",
			want:   V2,
			reason: "capture device of type File",
		},
		{
			name:   "v1 rules win over v2",
			config: "devices:\n  enable_resampling: true\npipeline:\n  - {type: Filter, channel: 0, names: [a]}\n",
			want:   V1,
			reason: "devices.enable_resampling is set",
		},
		{
			name:   "current",
			config: "filters:\n  v: {type: Volume, parameters: {fader: Aux1}}\npipeline:\n  - {type: Filter, channels: [0], names: [v]}\n",
			want:   Current,
		},
		{
			name:   "empty",
			config: "{}",
			want:   Current,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := decode(t, tt.config)
			v, reason := Explain(cfg)
			assert.Equal(t, tt.want, v)
			assert.Equal(t, tt.reason, reason)
			assert.Equal(t, tt.want, Identify(cfg))
		})
	}
}
