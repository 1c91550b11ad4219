// Package legacy detects the schema version of a pipeline configuration and
// migrates older configurations to the current schema.
package legacy

import (
	"github.com/agentic-research/pipeconv/api"
	"github.com/spf13/cast"
)

// Version is a configuration schema version.
type Version int

const (
	V1      Version = 1
	V2      Version = 2
	Current Version = 3
)

type fingerprint struct {
	version Version
	reason  string
	match   func(*api.Config) bool
}

// Checked in order, first match wins.
var fingerprints = []fingerprint{
	{V1, "Volume filter without fader", func(c *api.Config) bool { return anyFilter(c, isLegacyVolume) }},
	{V1, "Loudness filter with ramp_time", func(c *api.Config) bool { return anyFilter(c, isLegacyLoudness) }},
	{V1, "devices.enable_resampling is set", func(c *api.Config) bool {
		return c.Devices != nil && c.Devices.EnableResampling != nil
	}},
	{V1, "CoreAudio device with change_format", hasLegacyCoreAudio},
	{V1, "Dither filter of type Uniform or Simple", func(c *api.Config) bool { return anyFilter(c, isLegacyDither) }},
	{V2, "Filter step with scalar channel", hasScalarChannelStep},
	{V2, "capture device of type File", func(c *api.Config) bool {
		return c.Devices != nil && c.Devices.Capture != nil && c.Devices.Capture.Type == api.DeviceFile
	}},
}

// Identify returns the schema version cfg was written for.
func Identify(cfg *api.Config) Version {
	v, _ := Explain(cfg)
	return v
}

// Explain is Identify plus the fingerprint that decided the version. The
// reason is empty for current configurations.
func Explain(cfg *api.Config) (Version, string) {
	for _, fp := range fingerprints {
		if fp.match(cfg) {
			return fp.version, fp.reason
		}
	}
	return Current, ""
}

func anyFilter(cfg *api.Config, match func(api.Filter) bool) bool {
	if cfg.Filters == nil {
		return false
	}
	for p := cfg.Filters.Oldest(); p != nil; p = p.Next() {
		if match(p.Value) {
			return true
		}
	}
	return false
}

func isLegacyVolume(f api.Filter) bool {
	_, ok := f.Param("fader")
	return f.Type == api.FilterVolume && !ok
}

func isLegacyLoudness(f api.Filter) bool {
	_, ok := f.Param("ramp_time")
	return f.Type == api.FilterLoudness && ok
}

func isLegacyDither(f api.Filter) bool {
	if f.Type != api.FilterDither {
		return false
	}
	v, _ := f.Param("type")
	switch cast.ToString(v) {
	case "Uniform", "Simple":
		return true
	}
	return false
}

func hasLegacyCoreAudio(cfg *api.Config) bool {
	if cfg.Devices == nil {
		return false
	}
	for _, dev := range []*api.Device{cfg.Devices.Capture, cfg.Devices.Playback} {
		if dev != nil && dev.Type == api.DeviceCoreAudio && dev.ChangeFormat != nil {
			return true
		}
	}
	return false
}

func hasScalarChannelStep(cfg *api.Config) bool {
	for _, s := range cfg.Steps() {
		if s.Type == api.StepFilter && s.Channel != nil {
			return true
		}
	}
	return false
}
