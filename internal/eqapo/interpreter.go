// Package eqapo translates Equalizer APO configuration files into the
// normalized model. The interpreter is a line-by-line state machine: Channel
// commands change which channels later filters apply to, and Copy commands
// insert a mixer into the running pipeline.
package eqapo

import (
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/RoaringBitmap/roaring"
	"github.com/agentic-research/pipeconv/api"
	orderedmap "github.com/wk8/go-ordered-map/v2"
)

const defaultStepDescription = "Default, all channels"

// stepBuilder is a pipeline step under construction. Filter steps keep their
// channel selection until Finish expands them to one step per channel.
type stepBuilder struct {
	mixer       string // non-empty for mixer steps
	names       []string
	description string
	channels    []int // nil selects every channel
}

// Interpreter holds the state of one translation. It is not safe for
// concurrent use; create one per document.
type Interpreter struct {
	channels int
	layout   map[string]int
	logger   *slog.Logger

	filters  *orderedmap.OrderedMap[string, api.Filter]
	mixers   *orderedmap.OrderedMap[string, api.Mixer]
	counters map[Command]int

	selected []int // nil selects every channel
	steps    []*stepBuilder
	current  *stepBuilder // filter step that receives new filters

	line     int
	warnings []string
}

// New returns an interpreter for a device with the given channel count.
func New(channels int, logger *slog.Logger) *Interpreter {
	if logger == nil {
		logger = slog.Default()
	}
	in := &Interpreter{
		channels: channels,
		layout:   layoutFor(channels),
		logger:   logger,
		filters:  api.NewFilters(),
		mixers:   api.NewMixers(),
		counters: make(map[Command]int),
	}
	in.openFilterStep(defaultStepDescription)
	return in
}

// Translate interprets every line of text and returns the resulting config
// with the collected warnings. The config has no devices section.
func Translate(text string, channels int, logger *slog.Logger) (*api.Config, []string) {
	in := New(channels, logger)
	for line := range strings.Lines(text) {
		in.ParseLine(line)
	}
	cfg := in.Finish()
	in.logger.Debug("translated eqapo config",
		"lines", in.line, "filters", cfg.Filters.Len(), "mixers", cfg.Mixers.Len())
	return cfg, in.Warnings()
}

// ParseLine applies one line. Blank lines, comments and lines without a
// colon are ignored; unsupported constructs are logged and skipped.
func (in *Interpreter) ParseLine(line string) {
	in.line++
	line = strings.TrimSpace(line)
	if line == "" || strings.HasPrefix(line, "#") {
		return
	}
	head, params, ok := strings.Cut(line, ":")
	if !ok {
		return
	}
	fields := strings.Fields(head)
	if len(fields) == 0 {
		in.warn("missing command keyword before ':'")
		return
	}

	cmd := ParseCommand(fields[0])
	switch {
	case cmd == CmdUnknown:
		in.warn("skipping unrecognized command %q", fields[0])
	case !cmd.Supported():
		in.warn("command %q is not supported, skipping", cmd)
	case cmd.emitsFilter():
		in.addFilter(cmd, params, line)
	case cmd == CmdChannel:
		in.selectChannels(params, line)
	case cmd == CmdCopy:
		in.addCopy(params, line)
	}
}

// Warnings returns the warnings collected so far.
func (in *Interpreter) Warnings() []string {
	return slices.Clone(in.warnings)
}

// Finish runs the final normalization and returns the config: empty filter
// steps and mapping entries without sources are dropped, then each filter
// step is expanded into one step per selected channel.
func (in *Interpreter) Finish() *api.Config {
	cfg := api.NewConfig()
	for p := in.filters.Oldest(); p != nil; p = p.Next() {
		cfg.Filters.Set(p.Key, p.Value)
	}
	for p := in.mixers.Oldest(); p != nil; p = p.Next() {
		m := p.Value
		m.Mapping = slices.Clone(m.Mapping)
		m.DropEmptyMappings()
		cfg.Mixers.Set(p.Key, m)
	}

	var steps []api.Step
	for _, s := range in.steps {
		if s.mixer != "" {
			steps = append(steps, api.MixerStep(s.mixer))
			continue
		}
		if len(s.names) == 0 {
			continue
		}
		for _, ch := range in.expand(s.channels) {
			step := api.FilterStep(ch, slices.Clone(s.names)...)
			step.Description = s.description
			steps = append(steps, step)
		}
	}
	cfg.Pipeline.Steps = steps
	return cfg
}

func (in *Interpreter) expand(channels []int) []int {
	if channels != nil {
		return channels
	}
	all := make([]int, max(in.channels, 0))
	for i := range all {
		all[i] = i
	}
	return all
}

func (in *Interpreter) openFilterStep(description string) {
	in.current = &stepBuilder{description: description, channels: slices.Clone(in.selected)}
	in.steps = append(in.steps, in.current)
}

func (in *Interpreter) nextName(cmd Command) string {
	in.counters[cmd]++
	return fmt.Sprintf("%s_%d", cmd, in.counters[cmd])
}

func (in *Interpreter) warn(format string, args ...any) {
	msg := fmt.Sprintf(format, args...)
	in.warnings = append(in.warnings, fmt.Sprintf("line %d: %s", in.line, msg))
	in.logger.Warn(msg, "format", "eqapo", "line", in.line)
}

func (in *Interpreter) addFilter(cmd Command, params, line string) {
	var (
		f   api.Filter
		err error
	)
	switch cmd {
	case CmdFilter:
		f, err = in.biquad(params)
	case CmdConvolution:
		f, err = convolution(params)
	case CmdPreamp:
		f, err = preamp(params)
	case CmdDelay:
		f, err = delay(params)
	default:
		err = fmt.Errorf("command %q does not define a filter", cmd)
	}
	if err != nil {
		in.warn("%s: %v, skipping", cmd, err)
		return
	}
	f.Description = line
	name := in.nextName(cmd)
	in.filters.Set(name, f)
	in.current.names = append(in.current.names, name)
}

func (in *Interpreter) biquad(params string) (api.Filter, error) {
	tokens := strings.Fields(params)
	if len(tokens) < 2 {
		return api.Filter{}, fmt.Errorf("expected ON|OFF and a filter type")
	}
	switch tokens[0] {
	case "ON":
	case "OFF":
		return api.Filter{}, fmt.Errorf("filter is disabled")
	default:
		return api.Filter{}, fmt.Errorf("expected ON or OFF, got %q", tokens[0])
	}
	kind := ParseBiquadKind(tokens[1])
	if !kind.Supported() {
		return api.Filter{}, fmt.Errorf("unsupported filter type %q", tokens[1])
	}

	parameters := map[string]any{"type": kind.String()}
	rest := tokens[2:]
	for len(rest) > 0 {
		n, key, value, err := biquadParameter(rest)
		if err != nil {
			in.warn("Filter: %v", err)
		} else {
			parameters[key] = value
		}
		rest = rest[n:]
	}
	return api.Filter{Type: api.FilterBiquad, Parameters: parameters}, nil
}

// biquadParameter reads one parameter from the front of tokens and reports
// how many tokens it consumed.
func biquadParameter(tokens []string) (n int, key string, value float64, err error) {
	var valueText, unit, want string
	switch tokens[0] {
	case "Fc":
		n, key, want = 3, "freq", "hz"
		if len(tokens) >= n {
			valueText, unit = tokens[1], tokens[2]
		}
	case "Q":
		n, key = 2, "q"
		if len(tokens) >= n {
			valueText = tokens[1]
		}
	case "Gain":
		n, key, want = 3, "gain", "db"
		if len(tokens) >= n {
			valueText, unit = tokens[1], tokens[2]
		}
	case "BW":
		n, key, want = 3, "bandwidth", "oct"
		if len(tokens) >= n {
			unit, valueText = tokens[1], tokens[2]
		}
	default:
		return 1, "", 0, fmt.Errorf("skipping unknown token %q", tokens[0])
	}
	if len(tokens) < n {
		return len(tokens), "", 0, fmt.Errorf("incomplete %s parameter", tokens[0])
	}
	if want != "" && strings.ToLower(unit) != want {
		return n, "", 0, fmt.Errorf("%s: unexpected unit %q", tokens[0], unit)
	}
	value, err = parseNumber(valueText)
	if err != nil {
		return n, "", 0, fmt.Errorf("%s: %w", tokens[0], err)
	}
	return n, key, value, nil
}

func parseNumber(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("cannot parse %q as a number, inline expressions are not supported", s)
	}
	return v, nil
}

func convolution(params string) (api.Filter, error) {
	filename := strings.TrimSpace(params)
	if filename == "" {
		return api.Filter{}, fmt.Errorf("missing filename")
	}
	return api.Filter{
		Type:       api.FilterConv,
		Parameters: map[string]any{"filename": filename, "type": "wav"},
	}, nil
}

func preamp(params string) (api.Filter, error) {
	tokens := strings.Fields(params)
	if len(tokens) < 2 || strings.ToLower(tokens[1]) != "db" {
		return api.Filter{}, fmt.Errorf("expected <gain> dB, got %q", strings.TrimSpace(params))
	}
	gain, err := parseNumber(tokens[0])
	if err != nil {
		return api.Filter{}, err
	}
	return api.Filter{
		Type:       api.FilterGain,
		Parameters: map[string]any{"gain": gain, "scale": string(api.ScaleDB)},
	}, nil
}

func delay(params string) (api.Filter, error) {
	tokens := strings.Fields(params)
	if len(tokens) < 2 {
		return api.Filter{}, fmt.Errorf("expected <delay> ms|samples, got %q", strings.TrimSpace(params))
	}
	value, err := parseNumber(tokens[0])
	if err != nil {
		return api.Filter{}, err
	}
	unit := parseDelayUnit(tokens[1])
	if unit == DelayUnitUnknown {
		return api.Filter{}, fmt.Errorf("unsupported delay unit %q", tokens[1])
	}
	return api.Filter{
		Type:       api.FilterDelay,
		Parameters: map[string]any{"delay": value, "unit": unit.String()},
	}, nil
}

func (in *Interpreter) selectChannels(params, line string) {
	labels := strings.Fields(params)
	if len(labels) == 1 && strings.EqualFold(labels[0], "all") {
		in.selected = nil
	} else {
		selected := make([]int, 0, len(labels))
		for _, label := range labels {
			ch, err := in.resolveChannel(label)
			if err != nil {
				in.warn("Channel: %v, skipping", err)
				continue
			}
			selected = append(selected, ch)
		}
		if len(selected) == 0 {
			in.warn("Channel: no usable channels selected")
		}
		in.selected = selected
	}
	in.openFilterStep(line)
}

func (in *Interpreter) addCopy(params, line string) {
	mixer := api.Mixer{
		Description: line,
		Channels:    api.MixerChannels{In: in.channels, Out: in.channels},
	}
	handled := roaring.New()
	for _, pair := range strings.Fields(params) {
		destLabel, expr, ok := strings.Cut(pair, "=")
		if !ok {
			in.warn("Copy: expected <dest>=<expression>, got %q", pair)
			continue
		}
		dest, err := in.resolveChannel(destLabel)
		if err != nil {
			in.warn("Copy: %v, skipping %q", err, pair)
			continue
		}
		handled.Add(uint32(dest))
		mapping := api.Mapping{Dest: dest, Mute: unmuted()}
		for _, term := range strings.Split(expr, "+") {
			src, ok, err := in.copySource(term)
			if err != nil {
				in.warn("Copy: %v, skipping term %q", err, term)
				continue
			}
			if ok {
				mapping.Sources = append(mapping.Sources, src)
			}
		}
		mixer.Mapping = append(mixer.Mapping, mapping)
	}

	// Channels that are not a destination pass through unchanged.
	passthrough := roaring.New()
	passthrough.AddRange(0, uint64(max(in.channels, 0)))
	passthrough.AndNot(handled)
	for it := passthrough.Iterator(); it.HasNext(); {
		ch := int(it.Next())
		mixer.Mapping = append(mixer.Mapping, api.Mapping{
			Dest:    ch,
			Mute:    unmuted(),
			Sources: []api.Source{{Channel: ch, Gain: 0, Scale: api.ScaleDB}},
		})
	}

	name := in.nextName(CmdCopy)
	in.mixers.Set(name, mixer)
	in.steps = append(in.steps, &stepBuilder{mixer: name})
	in.openFilterStep("Continued after mixer")
}

// copySource parses one term of a Copy expression. A "0.0" term is a
// constant silent input and yields no source. A bare label is unity gain,
// written as 0 dB.
func (in *Interpreter) copySource(term string) (api.Source, bool, error) {
	term = strings.TrimSpace(term)
	if term == "0.0" {
		return api.Source{}, false, nil
	}
	gainText, label, scaled := strings.Cut(term, "*")
	if !scaled {
		ch, err := in.resolveChannel(term)
		if err != nil {
			return api.Source{}, false, err
		}
		return api.Source{Channel: ch, Gain: 0, Scale: api.ScaleDB}, true, nil
	}

	scale := api.ScaleLinear
	if trimmed, ok := strings.CutSuffix(gainText, "dB"); ok {
		gainText, scale = trimmed, api.ScaleDB
	}
	gain, err := parseNumber(gainText)
	if err != nil {
		return api.Source{}, false, err
	}
	ch, err := in.resolveChannel(label)
	if err != nil {
		return api.Source{}, false, err
	}
	return api.Source{Channel: ch, Gain: gain, Scale: scale}, true, nil
}

func unmuted() *bool {
	mute := false
	return &mute
}
