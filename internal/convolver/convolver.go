// Package convolver translates configurations of the Convolver VST plugin
// (https://convolver.sourceforge.net/config.html) into the normalized model.
package convolver

import (
	"fmt"
	"log/slog"
	"path"
	"strconv"
	"strings"

	"github.com/agentic-research/pipeconv/api"
)

// Names of the synthetic mixers around the convolution stage.
const (
	MixerIn  = "Mixer in"
	MixerOut = "Mixer out"
)

const linesPerFilter = 4

// Filter is one 4-line filter record.
type Filter struct {
	Index         int // pipeline slot, also the record's position in the file
	Filename      string
	ChannelInFile int
	Inputs        []Gain
	Outputs       []Gain
}

// Name is the filter's name in the translated config.
func (f Filter) Name() string {
	return f.Filename + "-" + strconv.Itoa(f.ChannelInFile)
}

// Document is a parsed Convolver config.
type Document struct {
	Samplerate     int
	InputChannels  int
	OutputChannels int
	InputDelays    []int
	OutputDelays   []int
	Filters        []Filter
	// Leftover holds trailing lines that do not complete a filter record.
	Leftover []string
}

// Parse reads a Convolver config. Malformed headers, delays, channel numbers
// and gain tokens are fatal.
func Parse(text string) (*Document, error) {
	lines := splitLines(text)
	if len(lines) < 3 {
		return nil, fmt.Errorf("%w: expected 3 header lines, got %d", ErrHeader, len(lines))
	}

	header := strings.Fields(lines[0])
	if len(header) < 3 {
		return nil, fmt.Errorf("%w: line 1 needs samplerate, input and output channel counts", ErrHeader)
	}
	var counts [3]int
	for i := range counts {
		n, err := strconv.Atoi(header[i])
		if err != nil {
			return nil, atLine(err, 1, header[i])
		}
		counts[i] = n
	}
	doc := &Document{
		Samplerate:     counts[0],
		InputChannels:  counts[1],
		OutputChannels: counts[2],
	}

	var err error
	if doc.InputDelays, err = parseDelays(lines[1], 2); err != nil {
		return nil, err
	}
	if doc.OutputDelays, err = parseDelays(lines[2], 3); err != nil {
		return nil, err
	}

	body := lines[3:]
	count := len(body) / linesPerFilter
	for i := 0; i < count; i++ {
		first := 3 + i*linesPerFilter // zero-based index of the record's first line
		f, err := parseFilter(i, body[i*linesPerFilter:(i+1)*linesPerFilter], first+1)
		if err != nil {
			return nil, err
		}
		doc.Filters = append(doc.Filters, f)
	}
	doc.Leftover = body[count*linesPerFilter:]
	return doc, nil
}

func parseFilter(index int, record []string, lineNo int) (Filter, error) {
	filename := FilenameOfPath(strings.TrimSpace(record[0]))
	if filename == "" {
		return Filter{}, &ParseError{Line: lineNo, Token: record[0], Err: fmt.Errorf("missing filename")}
	}
	channelText := strings.TrimSpace(record[1])
	channel, err := strconv.Atoi(channelText)
	if err != nil {
		return Filter{}, atLine(err, lineNo+1, channelText)
	}
	inputs, err := ParseGainLine(record[2])
	if err != nil {
		return Filter{}, atLine(err, lineNo+2, record[2])
	}
	outputs, err := ParseGainLine(record[3])
	if err != nil {
		return Filter{}, atLine(err, lineNo+3, record[3])
	}
	return Filter{
		Index:         index,
		Filename:      filename,
		ChannelInFile: channel,
		Inputs:        inputs,
		Outputs:       outputs,
	}, nil
}

func parseDelays(line string, lineNo int) ([]int, error) {
	fields := strings.Fields(line)
	delays := make([]int, 0, len(fields))
	for _, f := range fields {
		d, err := strconv.Atoi(f)
		if err != nil {
			return nil, atLine(err, lineNo, f)
		}
		delays = append(delays, d)
	}
	return delays, nil
}

// FilenameOfPath strips directories from both Windows and POSIX paths.
func FilenameOfPath(p string) string {
	if p == "" {
		return ""
	}
	return path.Base(strings.ReplaceAll(p, `\`, "/"))
}

// splitLines splits on line breaks and drops trailing blank lines.
func splitLines(text string) []string {
	lines := strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n")
	for len(lines) > 0 && strings.TrimSpace(lines[len(lines)-1]) == "" {
		lines = lines[:len(lines)-1]
	}
	return lines
}

// Config builds the normalized configuration:
// input delays, "Mixer in", one convolution per filter, "Mixer out", output delays.
func (d *Document) Config() *api.Config {
	cfg := api.NewConfig()
	samplerate := d.Samplerate
	cfg.Devices = &api.Devices{Samplerate: &samplerate}

	for _, delay := range d.distinctDelays() {
		cfg.Filters.Set(delayName(delay), api.Filter{
			Type:       api.FilterDelay,
			Parameters: map[string]any{"delay": delay, "unit": "ms", "subsample": false},
		})
	}
	for _, f := range d.Filters {
		cfg.Filters.Set(f.Name(), api.Filter{
			Type: api.FilterConv,
			Parameters: map[string]any{
				"type":     "Wav",
				"filename": f.Filename,
				"channel":  f.ChannelInFile,
			},
		})
	}

	cfg.Mixers.Set(MixerIn, d.mixerIn())
	cfg.Mixers.Set(MixerOut, d.mixerOut())

	steps := delaySteps(d.InputDelays)
	steps = append(steps, api.MixerStep(MixerIn))
	for _, f := range d.Filters {
		steps = append(steps, api.FilterStep(f.Index, f.Name()))
	}
	steps = append(steps, api.MixerStep(MixerOut))
	steps = append(steps, delaySteps(d.OutputDelays)...)
	cfg.Pipeline.Steps = steps
	return cfg
}

func (d *Document) filterSlots() int {
	return max(1, len(d.Filters))
}

func (d *Document) mixerIn() api.Mixer {
	m := api.Mixer{Channels: api.MixerChannels{In: d.InputChannels, Out: d.filterSlots()}}
	for _, f := range d.Filters {
		mp := api.Mapping{Dest: f.Index}
		for _, g := range f.Inputs {
			mp.Sources = append(mp.Sources, source(g.Channel, g))
		}
		m.Mapping = append(m.Mapping, mp)
	}
	m.DropEmptyMappings()
	return m
}

// mixerOut sums every filter slot routed to each output channel. The source
// channel is the filter's slot, not the channel written in its gain line.
func (d *Document) mixerOut() api.Mixer {
	m := api.Mixer{Channels: api.MixerChannels{In: d.filterSlots(), Out: d.OutputChannels}}
	for out := 0; out < d.OutputChannels; out++ {
		mp := api.Mapping{Dest: out}
		for _, f := range d.Filters {
			for _, g := range f.Outputs {
				if g.Channel == out {
					mp.Sources = append(mp.Sources, source(f.Index, g))
				}
			}
		}
		m.Mapping = append(m.Mapping, mp)
	}
	m.DropEmptyMappings()
	return m
}

func source(channel int, g Gain) api.Source {
	return api.Source{Channel: channel, Gain: g.Gain, Scale: api.ScaleLinear, Inverted: g.Inverted}
}

// distinctDelays lists nonzero delays in order of first appearance.
func (d *Document) distinctDelays() []int {
	seen := make(map[int]bool)
	var out []int
	for _, delay := range append(append([]int{}, d.InputDelays...), d.OutputDelays...) {
		if delay == 0 || seen[delay] {
			continue
		}
		seen[delay] = true
		out = append(out, delay)
	}
	return out
}

func delaySteps(delays []int) []api.Step {
	var steps []api.Step
	for ch, delay := range delays {
		if delay != 0 {
			steps = append(steps, api.FilterStep(ch, delayName(delay)))
		}
	}
	return steps
}

func delayName(delay int) string {
	return "Delay" + strconv.Itoa(delay)
}

// Warnings lists recoverable problems found while parsing.
func (d *Document) Warnings() []string {
	var warnings []string
	if len(d.Leftover) > 0 {
		warnings = append(warnings, fmt.Sprintf(
			"ignoring %d trailing line(s) that do not form a complete %d-line filter record: %q",
			len(d.Leftover), linesPerFilter, d.Leftover))
	}
	seen := make(map[string]int)
	for _, f := range d.Filters {
		if prev, ok := seen[f.Name()]; ok {
			warnings = append(warnings, fmt.Sprintf(
				"filter records %d and %d both use %s, the later definition wins", prev+1, f.Index+1, f.Name()))
			continue
		}
		seen[f.Name()] = f.Index
	}
	return warnings
}

// Translate parses text and returns the normalized config together with any
// warnings, which are also logged.
func Translate(text string, logger *slog.Logger) (*api.Config, []string, error) {
	if logger == nil {
		logger = slog.Default()
	}
	doc, err := Parse(text)
	if err != nil {
		return nil, nil, fmt.Errorf("convolver config: %w", err)
	}
	warnings := doc.Warnings()
	for _, w := range warnings {
		logger.Warn(w, "format", "convolver")
	}
	logger.Debug("translated convolver config",
		"samplerate", doc.Samplerate, "filters", len(doc.Filters))
	return doc.Config(), warnings, nil
}
