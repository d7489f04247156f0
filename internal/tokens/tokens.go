// Package tokens estimates token counts for window budget accounting.
// Estimates only need to be deterministic and monotonic in word count.
package tokens

import (
	"fmt"
	"math"
	"regexp"
	"strings"
)

// Estimator returns a positive token estimate for text.
type Estimator interface {
	Estimate(text string) int
}

// Func adapts a plain function to Estimator.
type Func func(text string) int

func (f Func) Estimate(text string) int { return f(text) }

// DefaultWordMultiplier approximates subword tokens per whitespace word for
// English chat text.
const DefaultWordMultiplier = 1.3

// Words scales the whitespace word count by Multiplier, rounded up, minimum 1.
type Words struct {
	Multiplier float64
}

func (w Words) Estimate(text string) int {
	m := w.Multiplier
	if m <= 0 {
		m = DefaultWordMultiplier
	}
	n := int(math.Ceil(float64(len(strings.Fields(text))) * m))
	if n < 1 {
		return 1
	}
	return n
}

var pieceRegex = regexp.MustCompile(`\w+(?:[-_]\w+)*|\S`)

// Pieces counts word runs and standalone punctuation, the way GLiNER-style
// splitters do, minimum 1. Punctuation-heavy chat text scores higher than
// with Words.
type Pieces struct{}

func (Pieces) Estimate(text string) int {
	n := len(pieceRegex.FindAllStringIndex(text, -1))
	if n < 1 {
		return 1
	}
	return n
}

// Fixed charges the same cost for every text. Useful for tests.
func Fixed(cost int) Estimator {
	return Func(func(string) int { return cost })
}

// ByName returns the estimator for a configuration name.
func ByName(name string) (Estimator, error) {
	switch name {
	case "", "words":
		return Words{Multiplier: DefaultWordMultiplier}, nil
	case "regex", "pieces":
		return Pieces{}, nil
	default:
		return nil, fmt.Errorf("unknown token estimator %q", name)
	}
}
