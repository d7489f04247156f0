// Package sample turns message windows into supervised fine-tuning samples.
package sample

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
	"github.com/MikeSquared-Agency/anselm/internal/identity"
	"github.com/MikeSquared-Agency/anselm/internal/redact"
	"github.com/MikeSquared-Agency/anselm/internal/timestamp"
	"github.com/MikeSquared-Agency/anselm/internal/window"
)

// sampleNamespace derives deterministic sample ids from member indices and text.
var sampleNamespace = uuid.MustParse("0b6c7a52-4e61-5f3a-8d2c-7c1e9a4b3f60")

// Turn is one role/content pair in the chat-template shape.
type Turn struct {
	Role    string `json:"role"`
	Content string `json:"content"`
	Name    string `json:"name,omitempty"`
}

// Metadata carries the keys the splitter orders and buckets by.
type Metadata struct {
	ID        string `json:"id,omitempty"`
	ChatID    string `json:"chat_id,omitempty"`
	Timestamp string `json:"timestamp,omitempty"` // RFC 3339, time of the final turn
	Turns     int    `json:"turns,omitempty"`
}

// Sample is one training conversation. The last turn is always the owner's.
type Sample struct {
	Messages []Turn    `json:"messages"`
	Metadata *Metadata `json:"metadata,omitempty"`
}

// metadataJSON accepts ids and timestamps written as JSON strings or numbers.
type metadataJSON struct {
	ID        chat.FlexString `json:"id"`
	ChatID    chat.FlexString `json:"chat_id"`
	Timestamp chat.FlexString `json:"timestamp"`
	Turns     int             `json:"turns"`
}

func (m *Metadata) UnmarshalJSON(data []byte) error {
	var raw metadataJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*m = Metadata{
		ID:        string(raw.ID),
		ChatID:    string(raw.ChatID),
		Timestamp: string(raw.Timestamp),
		Turns:     raw.Turns,
	}
	return nil
}

// sampleJSON also reads the top-level chat_id and timestamp keys older
// sample files carry instead of metadata.
type sampleJSON struct {
	Messages  []Turn          `json:"messages"`
	Metadata  *Metadata       `json:"metadata"`
	ChatID    chat.FlexString `json:"chat_id"`
	Timestamp chat.FlexString `json:"timestamp"`
}

// UnmarshalJSON decodes a sample. Top-level chat_id and timestamp fill the
// metadata keys that are missing; metadata wins when both are present.
func (s *Sample) UnmarshalJSON(data []byte) error {
	var raw sampleJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	*s = Sample{Messages: raw.Messages, Metadata: raw.Metadata}
	if raw.ChatID == "" && raw.Timestamp == "" {
		return nil
	}
	if s.Metadata == nil {
		s.Metadata = &Metadata{}
	}
	if s.Metadata.ChatID == "" {
		s.Metadata.ChatID = string(raw.ChatID)
	}
	if s.Metadata.Timestamp == "" {
		s.Metadata.Timestamp = string(raw.Timestamp)
	}
	return nil
}

// Time returns the sample timestamp from its metadata. ISO-8601 strings and
// epoch seconds are both accepted.
func (s Sample) Time() (time.Time, bool) {
	if s.Metadata == nil || s.Metadata.Timestamp == "" {
		return time.Time{}, false
	}
	sec, err := timestamp.Resolve(s.Metadata.Timestamp)
	if err != nil {
		return time.Time{}, false
	}
	return timestamp.ToTime(sec), true
}

// ChatID returns the leakage key, or "" when the sample has none.
func (s Sample) ChatID() string {
	if s.Metadata == nil {
		return ""
	}
	return s.Metadata.ChatID
}

// Builder converts groups into samples.
type Builder struct {
	Pseudonymizer   identity.Pseudonymizer
	IncludeMetadata bool
}

// NewBuilder returns a Builder that attaches metadata.
func NewBuilder(p identity.Pseudonymizer) *Builder {
	return &Builder{Pseudonymizer: p, IncludeMetadata: true}
}

// Build returns a sample for g when its final member is outgoing. Members
// with empty text are skipped. A window that yields no turns is discarded.
func (b *Builder) Build(g window.Group) (Sample, bool) {
	if len(g.Messages) == 0 || !g.Last().IsOut {
		return Sample{}, false
	}

	turns := make([]Turn, 0, len(g.Messages))
	var idSeed strings.Builder
	for _, m := range g.Messages {
		content := redact.Normalize(m.Text)
		if content == "" {
			continue
		}
		role := identity.RoleOwner
		name := ""
		if !m.IsOut {
			role = b.Pseudonymizer.Role(m.SenderID)
			name = b.Pseudonymizer.Name(m.SenderID)
		}
		turns = append(turns, Turn{Role: role, Content: content, Name: name})
		idSeed.WriteString(strconv.Itoa(m.Index))
		idSeed.WriteByte(0)
		idSeed.WriteString(content)
		idSeed.WriteByte(0)
	}
	if len(turns) == 0 || turns[len(turns)-1].Role != identity.RoleOwner {
		return Sample{}, false
	}

	s := Sample{Messages: turns}
	if b.IncludeMetadata {
		last := g.Last()
		md := &Metadata{
			ID:     uuid.NewSHA1(sampleNamespace, []byte(idSeed.String())).String(),
			ChatID: last.ChatID,
			Turns:  len(turns),
		}
		if end := g.EndTime(); !end.IsZero() {
			md.Timestamp = end.Format(time.RFC3339Nano)
		}
		s.Metadata = md
	}
	return s, true
}

// BuildAll converts every group and returns the kept samples in group order.
func (b *Builder) BuildAll(groups []window.Group) []Sample {
	var out []Sample
	for _, g := range groups {
		if s, ok := b.Build(g); ok {
			out = append(out, s)
		}
	}
	return out
}
