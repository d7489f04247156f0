package sample

import (
	"encoding/json"
	"reflect"
	"strings"
	"testing"
	"time"

	"github.com/MikeSquared-Agency/anselm/internal/identity"
	"github.com/MikeSquared-Agency/anselm/internal/redact"
	"github.com/MikeSquared-Agency/anselm/internal/window"
)

func group(msgs ...window.Message) window.Group {
	g := window.Group{Messages: msgs}
	for i := range msgs {
		g.Messages[i].Index = i
	}
	return g
}

func TestBuild_EndsWithOutgoing(t *testing.T) {
	g := group(
		window.Message{SenderID: "A", Text: "call " + redact.PhonePlaceholder, Time: 0, HasTime: true, ChatID: "c1"},
		window.Message{SenderID: "OWNER", Text: "ok", Time: 30, HasTime: true, IsOut: true, ChatID: "c1"},
	)

	s, ok := NewBuilder(identity.New("OWNER")).Build(g)
	if !ok {
		t.Fatal("expected a sample")
	}
	if len(s.Messages) != 2 {
		t.Fatalf("expected 2 turns, got %d", len(s.Messages))
	}
	if s.Messages[0].Role != identity.RoleOther || s.Messages[1].Role != identity.RoleOwner {
		t.Errorf("roles = %q, %q", s.Messages[0].Role, s.Messages[1].Role)
	}
	if !strings.Contains(s.Messages[0].Content, redact.PhonePlaceholder) {
		t.Errorf("content = %q", s.Messages[0].Content)
	}
	if s.Metadata == nil || s.Metadata.ChatID != "c1" || s.Metadata.Turns != 2 {
		t.Fatalf("metadata = %+v", s.Metadata)
	}
	if s.Metadata.Timestamp != time.Unix(30, 0).UTC().Format(time.RFC3339Nano) {
		t.Errorf("timestamp = %q", s.Metadata.Timestamp)
	}
}

func TestBuild_DiscardsIncomingTail(t *testing.T) {
	g := group(
		window.Message{SenderID: "OWNER", Text: "hi", IsOut: true},
		window.Message{SenderID: "A", Text: "hello?"},
	)
	if _, ok := NewBuilder(identity.New("OWNER")).Build(g); ok {
		t.Error("group ending on an incoming message should be discarded")
	}
}

func TestBuild_SkipsEmptyMembers(t *testing.T) {
	g := group(
		window.Message{SenderID: "A", Text: "question"},
		window.Message{SenderID: "A", Text: "   "},
		window.Message{SenderID: "OWNER", Text: "answer", IsOut: true},
	)
	s, ok := NewBuilder(identity.New("OWNER")).Build(g)
	if !ok {
		t.Fatal("expected a sample")
	}
	if len(s.Messages) != 2 {
		t.Errorf("expected 2 turns, got %d", len(s.Messages))
	}
}

func TestBuild_AllEmptyDiscarded(t *testing.T) {
	g := group(window.Message{SenderID: "OWNER", Text: " ", IsOut: true})
	if _, ok := NewBuilder(identity.New("OWNER")).Build(g); ok {
		t.Error("sample with zero turns should be discarded")
	}
}

func TestBuild_OutgoingIsOwnerEvenWithForeignSender(t *testing.T) {
	g := group(
		window.Message{SenderID: "A", Text: "ping"},
		window.Message{SenderID: "other-device", Text: "pong", IsOut: true},
	)
	s, ok := NewBuilder(identity.New("OWNER")).Build(g)
	if !ok {
		t.Fatal("expected a sample")
	}
	if s.Messages[1].Role != identity.RoleOwner {
		t.Errorf("last turn role = %q", s.Messages[1].Role)
	}
}

func TestBuild_Idempotent(t *testing.T) {
	g := group(
		window.Message{SenderID: "A", Text: "mail a@b.c", Time: 5, HasTime: true},
		window.Message{SenderID: "OWNER", Text: "got it", Time: 6, HasTime: true, IsOut: true},
	)
	b := NewBuilder(identity.Pseudonymizer{Owner: "OWNER", Mode: identity.ModeHashed})
	first, _ := b.Build(g)
	second, _ := b.Build(g)
	if !reflect.DeepEqual(first, second) {
		t.Errorf("Build not idempotent:\n%+v\n%+v", first, second)
	}
	if first.Messages[0].Name == "" {
		t.Error("hashed mode should name other participants")
	}
}

func TestBuild_NoMetadata(t *testing.T) {
	g := group(window.Message{SenderID: "OWNER", Text: "note to self", IsOut: true})
	b := NewBuilder(identity.New("OWNER"))
	b.IncludeMetadata = false
	s, ok := b.Build(g)
	if !ok {
		t.Fatal("expected a sample")
	}
	if s.Metadata != nil {
		t.Errorf("metadata should be omitted, got %+v", s.Metadata)
	}
}

func TestBuildAll(t *testing.T) {
	groups := []window.Group{
		group(window.Message{SenderID: "A", Text: "x"}, window.Message{SenderID: "OWNER", Text: "y", IsOut: true}),
		group(window.Message{SenderID: "A", Text: "dangling"}),
		group(window.Message{SenderID: "OWNER", Text: "z", IsOut: true}),
	}
	samples := NewBuilder(identity.New("OWNER")).BuildAll(groups)
	if len(samples) != 2 {
		t.Errorf("expected 2 samples, got %d", len(samples))
	}
}

func TestSample_TimeAndChatID(t *testing.T) {
	s := Sample{Metadata: &Metadata{Timestamp: "2026-02-11T10:00:00Z", ChatID: "c"}}
	ts, ok := s.Time()
	if !ok || !ts.Equal(time.Date(2026, 2, 11, 10, 0, 0, 0, time.UTC)) {
		t.Errorf("Time = %v, %v", ts, ok)
	}
	if s.ChatID() != "c" {
		t.Errorf("ChatID = %q", s.ChatID())
	}
	if _, ok := (Sample{}).Time(); ok {
		t.Error("sample without metadata has no time")
	}
}

func TestSample_UnmarshalNumericIDs(t *testing.T) {
	var s Sample
	data := `{"messages":[{"role":"assistant","content":"ok"}],"metadata":{"id":17,"chat_id":-1001234567890,"timestamp":1704067200,"turns":1}}`
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.ChatID() != "-1001234567890" {
		t.Errorf("ChatID = %q", s.ChatID())
	}
	if s.Metadata.ID != "17" || s.Metadata.Turns != 1 {
		t.Errorf("metadata = %+v", s.Metadata)
	}
	ts, ok := s.Time()
	if !ok || !ts.Equal(time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)) {
		t.Errorf("Time = %v, %v", ts, ok)
	}
}

func TestSample_UnmarshalTopLevelKeys(t *testing.T) {
	var s Sample
	data := `{"messages":[{"role":"assistant","content":"ok"}],"chat_id":"c1","timestamp":"2024-01-01T00:00:00Z"}`
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.ChatID() != "c1" {
		t.Errorf("ChatID = %q, want c1", s.ChatID())
	}
	if _, ok := s.Time(); !ok {
		t.Error("expected top-level timestamp to be used")
	}
}

func TestSample_UnmarshalMetadataWins(t *testing.T) {
	var s Sample
	data := `{"messages":[],"chat_id":"outer","metadata":{"chat_id":"inner"}}`
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.ChatID() != "inner" {
		t.Errorf("ChatID = %q, want inner", s.ChatID())
	}
	if s.Metadata.Timestamp != "" {
		t.Errorf("unexpected timestamp %q", s.Metadata.Timestamp)
	}
}

func TestSample_UnmarshalWithoutKeys(t *testing.T) {
	var s Sample
	if err := json.Unmarshal([]byte(`{"messages":[{"role":"user","content":"hi"}]}`), &s); err != nil {
		t.Fatalf("Unmarshal: %v", err)
	}
	if s.Metadata != nil {
		t.Errorf("expected nil metadata, got %+v", s.Metadata)
	}
}
