package window

import (
	"math"
	"sort"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
	"github.com/MikeSquared-Agency/anselm/internal/redact"
	"github.com/MikeSquared-Agency/anselm/internal/timestamp"
	"github.com/MikeSquared-Agency/anselm/internal/tokens"
)

const (
	DefaultGapSeconds  = 600
	DefaultTokenBudget = 768
)

// Grouper holds the window thresholds.
type Grouper struct {
	GapSeconds float64
	Budget     int
	Estimator  tokens.Estimator
}

// New returns a Grouper using the thresholds as given. A zero gap keeps only
// equal timestamps together. A nil estimator uses Words with the default
// multiplier.
func New(gapSeconds float64, budget int, est tokens.Estimator) *Grouper {
	if est == nil {
		est = tokens.Words{Multiplier: tokens.DefaultWordMultiplier}
	}
	return &Grouper{GapSeconds: gapSeconds, Budget: budget, Estimator: est}
}

// Prepare resolves dates, orders the stream and redacts text. Messages whose
// text is empty after redaction are dropped. Messages with an unresolvable date
// stay anchored behind the message that preceded them in the original stream.
func (g *Grouper) Prepare(raw []chat.RawMessage) ([]Message, []DateError, int) {
	type keyed struct {
		msg Message
		key float64
	}

	items := make([]keyed, len(raw))
	var dateErrs []DateError
	anchor := math.Inf(-1)
	for i, r := range raw {
		m := Message{
			Index:    i,
			ChatID:   string(r.ChatID),
			SenderID: string(r.SenderID),
			IsOut:    r.IsOut,
		}
		ts, err := timestamp.Resolve(r.Date)
		if err != nil {
			dateErrs = append(dateErrs, DateError{Index: i, Err: err})
		} else {
			m.Time = ts
			m.HasTime = true
			anchor = ts
		}
		items[i] = keyed{msg: m, key: anchor}
	}

	// Stable: equal keys keep stream order, so an unknown-time message sorts
	// right after its anchor.
	sort.SliceStable(items, func(a, b int) bool {
		return items[a].key < items[b].key
	})

	out := make([]Message, 0, len(items))
	dropped := 0
	for _, it := range items {
		m := it.msg
		m.Text = redact.Normalize(raw[m.Index].Text)
		if m.Text == "" {
			dropped++
			continue
		}
		m.Tokens = g.Estimator.Estimate(m.Text)
		out = append(out, m)
	}
	return out, dateErrs, dropped
}

// Group sorts, normalizes and windows raw in one forward pass.
func (g *Grouper) Group(raw []chat.RawMessage) Result {
	msgs, dateErrs, dropped := g.Prepare(raw)
	return Result{
		Groups:       g.Split(msgs),
		DateErrors:   dateErrs,
		DroppedEmpty: dropped,
		Messages:     len(msgs),
	}
}

// Split windows an already prepared stream. A new group starts when the
// previous member's time is unknown, when the gap to it exceeds GapSeconds,
// or when adding the message would push the running token total past Budget.
// A single oversized message still forms its own group.
func (g *Grouper) Split(msgs []Message) []Group {
	var groups []Group
	var current Group

	for _, msg := range msgs {
		if len(current.Messages) > 0 && g.breaksBefore(current, msg) {
			groups = append(groups, current)
			current = Group{}
		}
		current.Messages = append(current.Messages, msg)
		current.Tokens += msg.Tokens
	}

	// Flush remaining.
	if len(current.Messages) > 0 {
		groups = append(groups, current)
	}
	return groups
}

func (g *Grouper) breaksBefore(current Group, msg Message) bool {
	prev := current.Last()
	if !prev.HasTime {
		return true
	}
	if msg.HasTime && msg.Time-prev.Time > g.GapSeconds {
		return true
	}
	return current.Tokens+msg.Tokens > g.Budget
}
