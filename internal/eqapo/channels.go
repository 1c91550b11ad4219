package eqapo

import (
	"fmt"
	"strconv"
)

// Speaker label tables by channel count. Counts without a table use the
// 8-channel layout.
var channelLayouts = map[int]map[string]int{
	1: {"C": 0},
	2: {"L": 0, "R": 1},
	4: {"L": 0, "R": 1, "RL": 2, "RR": 3},
	6: {"L": 0, "R": 1, "C": 2, "LFE": 3, "RL": 4, "RR": 5},
	8: {"L": 0, "R": 1, "C": 2, "LFE": 3, "RL": 4, "RR": 5, "SL": 6, "SR": 7},
}

func layoutFor(channels int) map[string]int {
	if l, ok := channelLayouts[channels]; ok {
		return l
	}
	return channelLayouts[8]
}

// resolveChannel turns a speaker label or a 1-based channel number into a
// zero-based index below the configured channel count.
func (in *Interpreter) resolveChannel(label string) (int, error) {
	idx, ok := in.layout[label]
	if !ok {
		if !isDigits(label) {
			return 0, fmt.Errorf("virtual channel %q is not supported", label)
		}
		n, err := strconv.Atoi(label)
		if err != nil {
			return 0, fmt.Errorf("channel %q: %w", label, err)
		}
		idx = n - 1
	}
	if idx < 0 || idx >= in.channels {
		return 0, fmt.Errorf("channel %q is outside 1..%d", label, in.channels)
	}
	return idx, nil
}

func isDigits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
