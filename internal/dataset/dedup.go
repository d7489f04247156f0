package dataset

import (
	"math"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
	"github.com/MikeSquared-Agency/anselm/internal/timestamp"
)

// dedupWindow is the tolerance in seconds for matching timestamps across exports.
const dedupWindow = 1.0

// overlapThreshold is the fraction of timestamps that must match to consider inputs duplicates.
const overlapThreshold = 0.8

// inputFingerprint holds the resolvable message times of one input file.
type inputFingerprint struct {
	Path       string
	Timestamps []float64
}

// buildFingerprint collects the resolvable timestamps of msgs.
func buildFingerprint(path string, msgs []chat.RawMessage) inputFingerprint {
	fp := inputFingerprint{Path: path}
	for _, m := range msgs {
		if ts, err := timestamp.Resolve(m.Date); err == nil {
			fp.Timestamps = append(fp.Timestamps, ts)
		}
	}
	return fp
}

// findDuplicateInputs returns the paths of inputs that repeat an earlier,
// kept input. Earlier inputs win.
func findDuplicateInputs(fps []inputFingerprint) map[string]bool {
	duplicates := make(map[string]bool)

	for i, later := range fps {
		if len(later.Timestamps) == 0 {
			continue
		}
		for _, earlier := range fps[:i] {
			if duplicates[earlier.Path] {
				continue
			}
			if isOverlapping(earlier, later) {
				duplicates[later.Path] = true
				break
			}
		}
	}

	return duplicates
}

// isOverlapping checks if at least 80% of b's timestamps appear in a within dedupWindow.
func isOverlapping(a, b inputFingerprint) bool {
	if len(b.Timestamps) == 0 {
		return false
	}

	matches := 0
	for _, bt := range b.Timestamps {
		for _, at := range a.Timestamps {
			if math.Abs(bt-at) <= dedupWindow {
				matches++
				break
			}
		}
	}

	return float64(matches)/float64(len(b.Timestamps)) >= overlapThreshold
}
