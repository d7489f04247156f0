// Package window groups a chat message stream into contiguous training
// windows bounded by an inactivity gap and a token budget.
package window

import (
	"time"

	"github.com/MikeSquared-Agency/anselm/internal/timestamp"
)

// Message is a raw message after date resolution and text redaction.
type Message struct {
	Index    int // position in the original stream
	ChatID   string
	SenderID string
	Text     string
	Time     float64 // epoch seconds, meaningful only when HasTime
	HasTime  bool
	IsOut    bool
	Tokens   int
}

// Timestamp returns the message time, or the zero time when unknown.
func (m Message) Timestamp() time.Time {
	if !m.HasTime {
		return time.Time{}
	}
	return timestamp.ToTime(m.Time)
}

// Group is a non-empty, chronologically ordered run of messages.
type Group struct {
	Messages []Message
	Tokens   int
}

// Last returns the final member of the group.
func (g Group) Last() Message {
	return g.Messages[len(g.Messages)-1]
}

// EndTime returns the last known member time.
func (g Group) EndTime() time.Time {
	for i := len(g.Messages) - 1; i >= 0; i-- {
		if g.Messages[i].HasTime {
			return g.Messages[i].Timestamp()
		}
	}
	return time.Time{}
}

// DateError records a message whose date could not be resolved.
type DateError struct {
	Index int
	Err   error
}

// Result is the output of one grouping pass.
type Result struct {
	Groups       []Group
	DateErrors   []DateError
	DroppedEmpty int
	Messages     int // messages that survived normalization
}
