// Package chat holds the raw message shape produced by the acquisition side
// and the parser that accepts either a JSON array or newline-delimited records.
package chat

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// RawMessage is one record of the ingested stream. Date is left undecoded
// (json.Number, string or nil) and resolved later by the timestamp package.
type RawMessage struct {
	ID       FlexString `json:"id,omitempty"`
	ChatID   FlexString `json:"chat_id,omitempty"`
	SenderID FlexString `json:"sender_id"`
	Text     string     `json:"text"`
	Date     any        `json:"date"`
	IsOut    bool       `json:"is_out"`
}

// FlexString accepts a JSON string or number. Telegram exports carry numeric
// sender and chat ids while other producers send strings.
type FlexString string

func (f *FlexString) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*f = ""
		return nil
	}
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*f = FlexString(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("id must be a string or number: %w", err)
	}
	*f = FlexString(n.String())
	return nil
}

func (f FlexString) String() string { return string(f) }

// ResolveOwner returns the sender id of the first outgoing record, or "" when
// the stream has no outgoing messages.
func ResolveOwner(msgs []RawMessage) string {
	for _, m := range msgs {
		if m.IsOut && m.SenderID != "" {
			return string(m.SenderID)
		}
	}
	return ""
}
