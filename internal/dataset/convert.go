package dataset

import (
	"bytes"
	"encoding/json"
	"strings"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
	"github.com/MikeSquared-Agency/anselm/internal/identity"
	"github.com/MikeSquared-Agency/anselm/internal/sample"
)

// legacySample is the older prompt/completion shape: context turns plus a
// separate reply in "output".
type legacySample struct {
	Messages []sample.Turn    `json:"messages"`
	Output   string           `json:"output"`
	Metadata *sample.Metadata `json:"metadata,omitempty"`
}

// ConvertStats counts converted and skipped records.
type ConvertStats struct {
	Converted int
	Skipped   int
}

// ConvertChatTemplate rewrites legacy samples into the chat-template shape by
// appending "output" as an assistant turn. A record that is a bare array is
// read as its messages list. Records without an output are skipped.
func ConvertChatTemplate(data []byte) ([]sample.Sample, ConvertStats, error) {
	records, _, err := chat.DecodeFramed[json.RawMessage](data)
	if err != nil {
		return nil, ConvertStats{}, err
	}

	var out []sample.Sample
	var stats ConvertStats
	for _, rec := range records {
		var ls legacySample
		rec = bytes.TrimSpace(rec)
		if len(rec) > 0 && rec[0] == '[' {
			err = json.Unmarshal(rec, &ls.Messages)
		} else {
			err = json.Unmarshal(rec, &ls)
		}
		if err != nil {
			stats.Skipped++
			continue
		}

		output := strings.TrimSpace(ls.Output)
		if output == "" {
			stats.Skipped++
			continue
		}
		msgs := make([]sample.Turn, 0, len(ls.Messages)+1)
		msgs = append(msgs, ls.Messages...)
		msgs = append(msgs, sample.Turn{Role: identity.RoleOwner, Content: output})
		out = append(out, sample.Sample{Messages: msgs, Metadata: ls.Metadata})
		stats.Converted++
	}
	return out, stats, nil
}
