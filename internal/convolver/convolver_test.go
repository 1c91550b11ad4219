package convolver

import (
	"errors"
	"strings"
	"testing"

	"github.com/agentic-research/pipeconv/api"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// text joins lines with newlines, mirroring a config file on disk.
func text(lines ...string) string {
	return strings.Join(lines, "\n") + "\n"
}

func filterNames(cfg *api.Config) []string {
	var names []string
	for p := cfg.Filters.Oldest(); p != nil; p = p.Next() {
		names = append(names, p.Key)
	}
	return names
}

func translate(t *testing.T, input string) *api.Config {
	t.Helper()
	cfg, _, err := Translate(input, nil)
	require.NoError(t, err)
	return cfg
}

func TestTranslate_Samplerate(t *testing.T) {
	cfg := translate(t, text("96000 1 2 0", "0", "0"))
	require.NotNil(t, cfg.Devices)
	require.NotNil(t, cfg.Devices.Samplerate)
	assert.Equal(t, 96000, *cfg.Devices.Samplerate)
}

func TestTranslate_DelaysAndMixers(t *testing.T) {
	cfg := translate(t, text("96000 2 3 0", "3", "0 4"))

	assert.Equal(t, []string{"Delay3", "Delay4"}, filterNames(cfg))
	d3, _ := cfg.Filters.Get("Delay3")
	assert.Equal(t, api.Filter{
		Type:       api.FilterDelay,
		Parameters: map[string]any{"delay": 3, "unit": "ms", "subsample": false},
	}, d3)

	in, ok := cfg.Mixers.Get(MixerIn)
	require.True(t, ok)
	assert.Equal(t, api.MixerChannels{In: 2, Out: 1}, in.Channels)
	out, ok := cfg.Mixers.Get(MixerOut)
	require.True(t, ok)
	assert.Equal(t, api.MixerChannels{In: 1, Out: 3}, out.Channels)
	assert.Empty(t, out.Mapping, "output channels without sources are dropped")

	assert.Equal(t, []api.Step{
		api.FilterStep(0, "Delay3"),
		api.MixerStep(MixerIn),
		api.MixerStep(MixerOut),
		api.FilterStep(1, "Delay4"),
	}, cfg.Pipeline.Steps)
}

func TestTranslate_SharedDelayIsDefinedOnce(t *testing.T) {
	cfg := translate(t, text("48000 2 2 0", "5 5", "0 5"))
	assert.Equal(t, []string{"Delay5"}, filterNames(cfg))
	assert.Equal(t, []api.Step{
		api.FilterStep(0, "Delay5"),
		api.FilterStep(1, "Delay5"),
		api.MixerStep(MixerIn),
		api.MixerStep(MixerOut),
		api.FilterStep(1, "Delay5"),
	}, cfg.Pipeline.Steps)
}

func TestTranslate_SimpleImpulseResponse(t *testing.T) {
	cfg := translate(t, text("0 1 1 0", "0", "0", "IR.wav", "0", "0.0", "0.0"))

	assert.Equal(t, []string{"IR.wav-0"}, filterNames(cfg))
	f, _ := cfg.Filters.Get("IR.wav-0")
	assert.Equal(t, api.Filter{
		Type:       api.FilterConv,
		Parameters: map[string]any{"type": "Wav", "filename": "IR.wav", "channel": 0},
	}, f)
	assert.Equal(t, []api.Step{
		api.MixerStep(MixerIn),
		api.FilterStep(0, "IR.wav-0"),
		api.MixerStep(MixerOut),
	}, cfg.Pipeline.Steps)
}

func TestTranslate_PathIsIgnoredForImpulseResponseFiles(t *testing.T) {
	cfg := translate(t, text("0 1 1 0", "0", "0",
		"IR1.wav", "0", "0.0", "0.0",
		`C:\any/path/IR2.wav`, "0", "0.0", "0.0",
		"/some/other/path/IR3.wav", "0", "0.0", "0.0",
	))
	for name, file := range map[string]string{
		"IR1.wav-0": "IR1.wav",
		"IR2.wav-0": "IR2.wav",
		"IR3.wav-0": "IR3.wav",
	} {
		f, ok := cfg.Filters.Get(name)
		require.True(t, ok, name)
		assert.Equal(t, file, f.Parameters["filename"])
	}
}

func TestFilenameOfPath(t *testing.T) {
	assert.Equal(t, "File.wav", FilenameOfPath("File.wav"))
	assert.Equal(t, "File.wav", FilenameOfPath("/some/path/File.wav"))
	assert.Equal(t, "File.wav", FilenameOfPath(`C:\some\path\File.wav`))
	assert.Equal(t, "", FilenameOfPath(""))
}

func TestTranslate_WavFileWithMultipleImpulseResponses(t *testing.T) {
	cfg := translate(t, text("0 1 1 0", "0", "0",
		"IR.wav", "0", "0.0", "0.0",
		"IR.wav", "1", "0.0", "0.0",
	))
	f0, _ := cfg.Filters.Get("IR.wav-0")
	f1, _ := cfg.Filters.Get("IR.wav-1")
	assert.Equal(t, 0, f0.Parameters["channel"])
	assert.Equal(t, 1, f1.Parameters["channel"])
}

func TestTranslate_ImpulseResponsesAreMappedToCorrectChannels(t *testing.T) {
	cfg := translate(t, text("0 1 1 0", "0", "0",
		"IR1.wav", "0", "0.0", "0.0",
		"IR2.wav", "0", "0.0", "0.0",
	))
	assert.Equal(t, []api.Step{
		api.MixerStep(MixerIn),
		api.FilterStep(0, "IR1.wav-0"),
		api.FilterStep(1, "IR2.wav-0"),
		api.MixerStep(MixerOut),
	}, cfg.Pipeline.Steps)
}

func TestTranslate_InputScaling(t *testing.T) {
	cfg := translate(t, text("0 2 2 0", "0 0", "0 0",
		"IR.wav", "0", "0.0 1.1", "0.0",
		"IR.wav", "1", "0.2 1.3", "0.0",
		"IR.wav", "2", "-1.5 -0.4", "0.0",
	))
	in, _ := cfg.Mixers.Get(MixerIn)
	assert.Equal(t, api.Mixer{
		Channels: api.MixerChannels{In: 2, Out: 3},
		Mapping: []api.Mapping{
			{Dest: 0, Sources: []api.Source{
				{Channel: 0, Gain: 1.0, Scale: api.ScaleLinear},
				{Channel: 1, Gain: 0.1, Scale: api.ScaleLinear},
			}},
			{Dest: 1, Sources: []api.Source{
				{Channel: 0, Gain: 0.2, Scale: api.ScaleLinear},
				{Channel: 1, Gain: 0.3, Scale: api.ScaleLinear},
			}},
			{Dest: 2, Sources: []api.Source{
				{Channel: 1, Gain: 0.5, Scale: api.ScaleLinear, Inverted: true},
				{Channel: 0, Gain: 0.4, Scale: api.ScaleLinear, Inverted: true},
			}},
		},
	}, in)
}

func TestTranslate_OutputScaling(t *testing.T) {
	cfg := translate(t, text("0 2 2 0", "0 0", "0 0",
		"IR.wav", "0", "0.0", "0.0 1.1",
		"IR.wav", "1", "0.0", "0.2 1.3",
		"IR.wav", "2", "0.0", "-1.5 -0.4",
	))
	out, _ := cfg.Mixers.Get(MixerOut)
	assert.Equal(t, api.Mixer{
		Channels: api.MixerChannels{In: 3, Out: 2},
		Mapping: []api.Mapping{
			{Dest: 0, Sources: []api.Source{
				{Channel: 0, Gain: 1.0, Scale: api.ScaleLinear},
				{Channel: 1, Gain: 0.2, Scale: api.ScaleLinear},
				{Channel: 2, Gain: 0.4, Scale: api.ScaleLinear, Inverted: true},
			}},
			{Dest: 1, Sources: []api.Source{
				{Channel: 0, Gain: 0.1, Scale: api.ScaleLinear},
				{Channel: 1, Gain: 0.3, Scale: api.ScaleLinear},
				{Channel: 2, Gain: 0.5, Scale: api.ScaleLinear, Inverted: true},
			}},
		},
	}, out)
}

func TestTranslate_TrailingPartialRecordWarns(t *testing.T) {
	input := text("44100 1 1 0", "0", "0", "IR.wav", "0", "0.0", "0.0", "extra.wav", "0")
	cfg, warnings, err := Translate(input, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"IR.wav-0"}, filterNames(cfg))
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "2 trailing line(s)")
}

func TestTranslate_TrailingBlankLinesAreIgnored(t *testing.T) {
	input := "44100 1 1 0\r\n0\r\n0\r\nIR.wav\r\n0\r\n0.0\r\n0.0\r\n\r\n\r\n"
	cfg, warnings, err := Translate(input, nil)
	require.NoError(t, err)
	assert.Empty(t, warnings)
	assert.Equal(t, []string{"IR.wav-0"}, filterNames(cfg))
}

func TestTranslate_DuplicateFilterWarns(t *testing.T) {
	input := text("44100 1 1 0", "0", "0",
		"a/IR.wav", "0", "0.0", "0.0",
		"b/IR.wav", "0", "0.0", "0.0",
	)
	_, warnings, err := Translate(input, nil)
	require.NoError(t, err)
	require.Len(t, warnings, 1)
	assert.Contains(t, warnings[0], "IR.wav-0")
}

func TestParse_StructuralErrors(t *testing.T) {
	tests := []struct {
		name  string
		input string
		line  int
	}{
		{"short header", text("44100 2"), 0},
		{"missing delay lines", text("44100 2 2 0"), 0},
		{"non-numeric samplerate", text("fast 1 1 0", "0", "0"), 1},
		{"non-numeric delay", text("44100 1 1 0", "x", "0"), 2},
		{"non-numeric channel in file", text("44100 1 1 0", "0", "0", "IR.wav", "one", "0.0", "0.0"), 5},
		{"bad input gain", text("44100 1 1 0", "0", "0", "IR.wav", "0", "0.q", "0.0"), 6},
		{"bad output gain", text("44100 1 1 0", "0", "0", "IR.wav", "0", "0.0", "zero"), 7},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse(tt.input)
			require.Error(t, err)
			if tt.line == 0 {
				assert.ErrorIs(t, err, ErrHeader)
				return
			}
			var pe *ParseError
			require.True(t, errors.As(err, &pe))
			assert.Equal(t, tt.line, pe.Line)
		})
	}
}

func TestTranslate_WrapsParseErrors(t *testing.T) {
	_, _, err := Translate("", nil)
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrHeader)
	assert.Contains(t, err.Error(), "convolver config")
}
