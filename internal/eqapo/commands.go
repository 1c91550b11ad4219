package eqapo

import "strings"

// Command is an EqAPO command keyword.
type Command int

const (
	CmdUnknown Command = iota
	CmdFilter
	CmdConvolution
	CmdPreamp
	CmdDelay
	CmdChannel
	CmdCopy
	CmdDevice
	CmdInclude
	CmdEval
	CmdIf
	CmdElseIf
	CmdElse
	CmdEndIf
	CmdStage
	CmdGraphicEQ
)

var commandNames = [...]string{
	CmdUnknown:     "",
	CmdFilter:      "Filter",
	CmdConvolution: "Convolution",
	CmdPreamp:      "Preamp",
	CmdDelay:       "Delay",
	CmdChannel:     "Channel",
	CmdCopy:        "Copy",
	CmdDevice:      "Device",
	CmdInclude:     "Include",
	CmdEval:        "Eval",
	CmdIf:          "If",
	CmdElseIf:      "ElseIf",
	CmdElse:        "Else",
	CmdEndIf:       "EndIf",
	CmdStage:       "Stage",
	CmdGraphicEQ:   "GraphicEQ",
}

// ParseCommand maps a keyword to its Command, CmdUnknown if unrecognized.
// Keywords are case sensitive, as in EqAPO itself.
func ParseCommand(word string) Command {
	for c, name := range commandNames {
		if name != "" && name == word {
			return Command(c)
		}
	}
	return CmdUnknown
}

func (c Command) String() string {
	if c < 0 || int(c) >= len(commandNames) {
		return "Command(?)"
	}
	return commandNames[c]
}

// Supported reports whether the interpreter translates c. Recognized but
// unsupported commands are logged and skipped.
func (c Command) Supported() bool {
	switch c {
	case CmdFilter, CmdConvolution, CmdPreamp, CmdDelay, CmdChannel, CmdCopy:
		return true
	case CmdDevice, CmdInclude, CmdEval, CmdIf, CmdElseIf, CmdElse, CmdEndIf, CmdStage, CmdGraphicEQ:
		return false
	default:
		return false
	}
}

// emitsFilter reports whether c registers a named filter.
func (c Command) emitsFilter() bool {
	switch c {
	case CmdFilter, CmdConvolution, CmdPreamp, CmdDelay:
		return true
	}
	return false
}

// BiquadKind is the filter type code of a Filter command.
type BiquadKind int

const (
	BiquadUnknown BiquadKind = iota
	BiquadPeaking
	BiquadHighpass
	BiquadLowpass
	BiquadBandpass
	BiquadNotch
	BiquadLowshelf
	BiquadHighshelf
	// BiquadIIR is a raw coefficient filter, not translated.
	BiquadIIR
)

// ParseBiquadKind maps an EqAPO type code (PK, HPQ, LSC, ...) to its kind.
func ParseBiquadKind(code string) BiquadKind {
	switch code {
	case "PK", "PEQ":
		return BiquadPeaking
	case "HP", "HPQ":
		return BiquadHighpass
	case "LP", "LPQ":
		return BiquadLowpass
	case "BP":
		return BiquadBandpass
	case "NO":
		return BiquadNotch
	case "LS", "LSC":
		return BiquadLowshelf
	case "HS", "HSC":
		return BiquadHighshelf
	case "IIR":
		return BiquadIIR
	default:
		return BiquadUnknown
	}
}

// String is the biquad type name used in the translated parameters.
func (k BiquadKind) String() string {
	switch k {
	case BiquadPeaking:
		return "Peaking"
	case BiquadHighpass:
		return "Highpass"
	case BiquadLowpass:
		return "Lowpass"
	case BiquadBandpass:
		return "Bandpass"
	case BiquadNotch:
		return "Notch"
	case BiquadLowshelf:
		return "Lowshelf"
	case BiquadHighshelf:
		return "Highshelf"
	case BiquadIIR:
		return "IIR"
	default:
		return "Unknown"
	}
}

// Supported reports whether k has a biquad equivalent.
func (k BiquadKind) Supported() bool {
	switch k {
	case BiquadPeaking, BiquadHighpass, BiquadLowpass, BiquadBandpass,
		BiquadNotch, BiquadLowshelf, BiquadHighshelf:
		return true
	case BiquadIIR, BiquadUnknown:
		return false
	default:
		return false
	}
}

// DelayUnit is the unit of a Delay command.
type DelayUnit int

const (
	DelayUnitUnknown DelayUnit = iota
	DelayMillis
	DelaySamples
)

func parseDelayUnit(s string) DelayUnit {
	switch strings.ToLower(s) {
	case "ms":
		return DelayMillis
	case "samples":
		return DelaySamples
	default:
		return DelayUnitUnknown
	}
}

func (u DelayUnit) String() string {
	switch u {
	case DelayMillis:
		return "ms"
	case DelaySamples:
		return "samples"
	default:
		return ""
	}
}
