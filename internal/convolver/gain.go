package convolver

import (
	"fmt"
	"strconv"
	"strings"
)

// Gain is one parsed "<channel>.<fraction>" token of a gain-spec line.
type Gain struct {
	Channel  int
	Gain     float64
	Inverted bool
}

// ParseGain parses a single gain token such as "0.0", "1.1" or "-9.9".
//
// The integer part selects the channel; a leading minus sign inverts it, so
// "-0.0" is channel 0 inverted. A fractional part of zero means unity gain,
// anything else is read as the digits after a decimal point ("99" is 0.99).
func ParseGain(token string) (Gain, error) {
	channelText, fraction, ok := strings.Cut(token, ".")
	if !ok || strings.Contains(fraction, ".") {
		return Gain{}, &ParseError{Token: token, Err: fmt.Errorf("expected <channel>.<fraction>")}
	}
	// The sign is read from the text: -0 is still an inversion.
	inverted := strings.HasPrefix(channelText, "-")
	channel, err := strconv.Atoi(strings.TrimPrefix(channelText, "-"))
	if err != nil {
		return Gain{}, &ParseError{Token: token, Err: fmt.Errorf("channel: %w", err)}
	}
	if channel < 0 {
		return Gain{}, &ParseError{Token: token, Err: fmt.Errorf("channel: invalid sign in %q", channelText)}
	}
	gain, err := fractionToGain(fraction)
	if err != nil {
		return Gain{}, &ParseError{Token: token, Err: err}
	}
	return Gain{Channel: channel, Gain: gain, Inverted: inverted}, nil
}

func fractionToGain(fraction string) (float64, error) {
	n, err := strconv.Atoi(fraction)
	if err != nil {
		return 0, fmt.Errorf("fraction: %w", err)
	}
	if n == 0 {
		return 1.0, nil
	}
	if strings.ContainsAny(fraction, "+-") {
		return 0, fmt.Errorf("fraction: unexpected sign in %q", fraction)
	}
	return strconv.ParseFloat("0."+fraction, 64)
}

// ParseGainLine parses a whitespace separated list of gain tokens, keeping order.
func ParseGainLine(line string) ([]Gain, error) {
	fields := strings.Fields(line)
	gains := make([]Gain, 0, len(fields))
	for _, f := range fields {
		g, err := ParseGain(f)
		if err != nil {
			return nil, err
		}
		gains = append(gains, g)
	}
	return gains, nil
}
