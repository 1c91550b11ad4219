package legacy

import (
	"log/slog"
	"slices"

	"github.com/agentic-research/pipeconv/api"
	"github.com/spf13/cast"
)

// Migrate returns a copy of cfg upgraded to the current schema. cfg is not
// modified. Every step is a no-op when its trigger is absent, so migrating a
// current configuration returns an equal copy.
func Migrate(cfg *api.Config, logger *slog.Logger) *api.Config {
	if logger == nil {
		logger = slog.Default()
	}
	version, reason := Explain(cfg)
	out := cfg.Clone()
	if version < Current {
		logger.Info("migrating legacy config", "version", int(version), "reason", reason)
	}

	fixSingleStepPipeline(out)
	removeLegacyVolumeFilters(out)
	updateLoudnessFilters(out)
	renameDitherTypes(out)
	if out.Devices != nil {
		updateCoreAudioDevice(out.Devices.Capture)
		updateCoreAudioDevice(out.Devices.Playback)
		updateFilePlayback(out.Devices.Playback)
		updateResampler(out.Devices, logger)
	}
	scalarChannelToList(out)
	return out
}

// fixSingleStepPipeline turns a bare step object, as exported by REW, into a
// one-element list. A step without channel information applies to all
// channels.
func fixSingleStepPipeline(cfg *api.Config) {
	if cfg.Pipeline == nil || !cfg.Pipeline.Single {
		return
	}
	for i := range cfg.Pipeline.Steps {
		s := &cfg.Pipeline.Steps[i]
		if s.Channel == nil && !s.Channels.Set {
			s.Channels = api.Null[[]int]()
		}
	}
	cfg.Pipeline.Single = false
}

// removeLegacyVolumeFilters drops Volume filters without a fader, removes
// their names from the pipeline and drops filter steps left empty.
func removeLegacyVolumeFilters(cfg *api.Config) {
	if cfg.Filters == nil {
		return
	}
	var removed []string
	for p := cfg.Filters.Oldest(); p != nil; p = p.Next() {
		if isLegacyVolume(p.Value) {
			removed = append(removed, p.Key)
		}
	}
	for _, name := range removed {
		cfg.Filters.Delete(name)
	}
	if cfg.Pipeline == nil {
		return
	}

	steps := cfg.Pipeline.Steps[:0]
	for _, s := range cfg.Pipeline.Steps {
		if s.Type == api.StepFilter {
			s.Names = slices.DeleteFunc(s.Names, func(n string) bool { return slices.Contains(removed, n) })
			if len(s.Names) == 0 {
				continue
			}
		}
		steps = append(steps, s)
	}
	cfg.Pipeline.Steps = steps
}

func updateLoudnessFilters(cfg *api.Config) {
	if cfg.Filters == nil {
		return
	}
	for p := cfg.Filters.Oldest(); p != nil; p = p.Next() {
		if p.Value.Type != api.FilterLoudness {
			continue
		}
		params := ensureParameters(&p.Value)
		delete(params, "ramp_time")
		params["fader"] = "Main"
		params["attenuate_mid"] = false
	}
}

var ditherRenames = map[string]string{
	"Uniform": "Flat",
	"Simple":  "Highpass",
}

func renameDitherTypes(cfg *api.Config) {
	if cfg.Filters == nil {
		return
	}
	for p := cfg.Filters.Oldest(); p != nil; p = p.Next() {
		if p.Value.Type != api.FilterDither {
			continue
		}
		v, _ := p.Value.Param("type")
		if renamed, ok := ditherRenames[cast.ToString(v)]; ok {
			p.Value.Parameters["type"] = renamed
		}
	}
}

// updateCoreAudioDevice replaces change_format with an optional format. The
// format survives only when change_format was explicitly true.
func updateCoreAudioDevice(dev *api.Device) {
	if dev == nil || dev.Type != api.DeviceCoreAudio {
		return
	}
	if dev.ChangeFormat == nil || !*dev.ChangeFormat {
		dev.Format = api.Null[string]()
	}
	dev.ChangeFormat = nil
}

func updateFilePlayback(dev *api.Device) {
	if dev != nil && dev.Type == api.DeviceFile {
		dev.Type = api.DeviceRawFile
	}
}

var resamplerProfiles = map[string]string{
	"FastAsync":     "Fast",
	"BalancedAsync": "Balanced",
	"AccurateAsync": "Accurate",
}

// updateResampler converts enable_resampling and resampler_type into the
// unified resampler section.
func updateResampler(d *api.Devices, logger *slog.Logger) {
	if d.EnableResampling != nil {
		if *d.EnableResampling {
			if r, ok := convertResampler(d.ResamplerType); ok {
				d.Resampler = api.Some(r)
			} else {
				logger.Warn("cannot convert resampler_type, resampler left unset", "resampler_type", d.ResamplerType)
			}
		} else {
			d.Resampler = api.Null[api.Resampler]()
		}
		d.EnableResampling = nil
	}
	d.ResamplerType = nil
}

func convertResampler(old *api.LegacyResampler) (api.Resampler, bool) {
	switch {
	case old == nil:
		return api.Resampler{}, false
	case old.FreeAsync != nil:
		fa := old.FreeAsync
		return api.Resampler{
			Type:               "AsyncSinc",
			SincLen:            fa.SincLen,
			OversamplingFactor: fa.OversamplingRatio,
			Interpolation:      fa.Interpolation,
			Window:             fa.Window,
			FCutoff:            fa.FCutoff,
		}, true
	case old.Preset == "Synchronous":
		return api.Resampler{Type: "Synchronous"}, true
	}
	if profile, ok := resamplerProfiles[old.Preset]; ok {
		return api.Resampler{Type: "AsyncSinc", Profile: profile}, true
	}
	return api.Resampler{}, false
}

func scalarChannelToList(cfg *api.Config) {
	for i := range cfg.Steps() {
		s := &cfg.Pipeline.Steps[i]
		if s.Type == api.StepFilter && s.Channel != nil {
			s.Channels = api.Some([]int{*s.Channel})
			s.Channel = nil
		}
	}
}

func ensureParameters(f *api.Filter) map[string]any {
	if f.Parameters == nil {
		f.Parameters = make(map[string]any)
	}
	return f.Parameters
}
