package window

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"testing"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
	"github.com/MikeSquared-Agency/anselm/internal/redact"
	"github.com/MikeSquared-Agency/anselm/internal/tokens"
)

func msg(sender, text string, date any, out bool) chat.RawMessage {
	return chat.RawMessage{SenderID: chat.FlexString(sender), Text: text, Date: date, IsOut: out}
}

func TestGroup_PhoneScenario(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "call 5551234567", 0, false),
		msg("OWNER", "ok", 30, true),
	}

	res := New(600, 768, nil).Group(raw)
	if len(res.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(res.Groups))
	}
	g := res.Groups[0]
	if len(g.Messages) != 2 {
		t.Fatalf("expected 2 messages, got %d", len(g.Messages))
	}
	if !strings.Contains(g.Messages[0].Text, redact.PhonePlaceholder) || strings.Contains(g.Messages[0].Text, "5551234567") {
		t.Errorf("phone not redacted: %q", g.Messages[0].Text)
	}
}

func TestGroup_SplitsOnGap(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "hello", 0, false),
		msg("B", "hi", 900, true),
	}

	res := New(600, 768, nil).Group(raw)
	if len(res.Groups) != 2 {
		t.Fatalf("expected 2 groups for a 900s gap, got %d", len(res.Groups))
	}
}

func TestGroup_GapAtThresholdStaysTogether(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "hello", 0, false),
		msg("B", "hi", 600, true),
	}

	res := New(600, 768, nil).Group(raw)
	if len(res.Groups) != 1 {
		t.Fatalf("a gap equal to the threshold should not split, got %d groups", len(res.Groups))
	}
}

func TestGroup_ZeroGapKeepsOnlyEqualTimes(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "a", 0, false),
		msg("B", "b", 0, true),
		msg("A", "c", 300, false),
	}

	res := New(0, 768, nil).Group(raw)
	if len(res.Groups) != 2 {
		t.Fatalf("expected 2 groups with a zero gap, got %d", len(res.Groups))
	}
	if len(res.Groups[0].Messages) != 2 {
		t.Errorf("equal timestamps should share a group, got %d messages", len(res.Groups[0].Messages))
	}
}

func TestGroup_EmptyTextDropped(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "first", 0, false),
		msg("A", "   ", 10, false),
		msg("B", "second", 20, true),
	}

	// Budget fits exactly two messages at cost 5; the empty one must not count.
	g := New(600, 10, tokens.Fixed(5))
	res := g.Group(raw)
	if res.DroppedEmpty != 1 {
		t.Errorf("dropped = %d, want 1", res.DroppedEmpty)
	}
	if len(res.Groups) != 1 || len(res.Groups[0].Messages) != 2 {
		t.Fatalf("expected one group of 2, got %+v", res.Groups)
	}
	if res.Groups[0].Tokens != 10 {
		t.Errorf("tokens = %d, want 10", res.Groups[0].Tokens)
	}
}

func TestGroup_SplitsOnBudget(t *testing.T) {
	var raw []chat.RawMessage
	for i := 0; i < 7; i++ {
		raw = append(raw, msg("A", fmt.Sprintf("m%d", i), i, i%2 == 1))
	}

	res := New(600, 9, tokens.Fixed(3)).Group(raw)
	if len(res.Groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(res.Groups))
	}
	sizes := []int{3, 3, 1}
	for i, want := range sizes {
		if got := len(res.Groups[i].Messages); got != want {
			t.Errorf("group %d: %d messages, want %d", i, got, want)
		}
	}
}

func TestGroup_OversizedMessageOwnGroup(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "short", 0, false),
		msg("A", strings.Repeat("word ", 50), 1, false),
		msg("B", "reply", 2, true),
	}

	res := New(600, 10, tokens.Words{Multiplier: 1}).Group(raw)
	if len(res.Groups) != 3 {
		t.Fatalf("expected 3 groups, got %d", len(res.Groups))
	}
	if res.Groups[1].Tokens != 50 {
		t.Errorf("oversized group tokens = %d, want 50", res.Groups[1].Tokens)
	}
}

func TestGroup_SortsByTime(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "third", 30, false),
		msg("A", "first", 10, false),
		msg("B", "second", 20, true),
	}

	res := New(600, 768, nil).Group(raw)
	if len(res.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(res.Groups))
	}
	var got []string
	for _, m := range res.Groups[0].Messages {
		got = append(got, m.Text)
	}
	if strings.Join(got, ",") != "first,second,third" {
		t.Errorf("order = %v", got)
	}
}

func TestGroup_EqualTimestampsDoNotSplit(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "a", 100, false),
		msg("B", "b", 100, true),
		msg("A", "c", 100, false),
	}

	res := New(600, 768, nil).Group(raw)
	if len(res.Groups) != 1 {
		t.Fatalf("expected 1 group, got %d", len(res.Groups))
	}
	if res.Groups[0].Messages[1].Text != "b" {
		t.Errorf("equal timestamps should keep stream order")
	}
}

func TestGroup_UnknownDate(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "one", 10, false),
		msg("A", "mystery", "sometime", false),
		msg("B", "two", 20, true),
	}

	res := New(600, 768, nil).Group(raw)
	if len(res.DateErrors) != 1 || res.DateErrors[0].Index != 1 {
		t.Fatalf("date errors = %+v", res.DateErrors)
	}
	// The unknown-time message stays after its anchor and the next message
	// starts a new group because its predecessor's time is unknown.
	if len(res.Groups) != 2 {
		t.Fatalf("expected 2 groups, got %d", len(res.Groups))
	}
	if got := res.Groups[0].Messages[1].Text; got != "mystery" {
		t.Errorf("unknown-time message placed wrong: %q", got)
	}
	if res.Groups[0].Tokens != res.Groups[0].Messages[0].Tokens+res.Groups[0].Messages[1].Tokens {
		t.Error("unknown-time message tokens should be accounted for")
	}
}

func TestGroup_LeadingUnknownDateSortsFirst(t *testing.T) {
	raw := []chat.RawMessage{
		msg("A", "late", 500, false),
		msg("A", "undated", nil, false),
	}
	raw = append([]chat.RawMessage{msg("A", "head", nil, false)}, raw...)

	res := New(600, 768, nil).Group(raw)
	if res.Groups[0].Messages[0].Text != "head" {
		t.Errorf("leading undated message should stay first, got %q", res.Groups[0].Messages[0].Text)
	}
}

func TestGroup_Empty(t *testing.T) {
	res := New(600, 768, nil).Group(nil)
	if len(res.Groups) != 0 {
		t.Errorf("expected no groups, got %d", len(res.Groups))
	}
}

func TestGroup_Invariants(t *testing.T) {
	var raw []chat.RawMessage
	times := []int{5, 3, 1000, 1001, 4000, 2, 1002, 1500, 1550, 1560, 9000, 9001, 9002, 9003}
	for i, ts := range times {
		text := strings.Repeat("w ", (i%4)+1)
		if i == 6 {
			text = " "
		}
		raw = append(raw, msg(fmt.Sprint(i%3), text, json.Number(fmt.Sprint(ts)), i%2 == 0))
	}

	const gap, budget = 600.0, 4
	g := New(gap, budget, tokens.Words{Multiplier: 1})
	prepared, _, _ := g.Prepare(raw)
	res := g.Group(raw)

	var flat []Message
	for gi, grp := range res.Groups {
		if len(grp.Messages) == 0 {
			t.Fatalf("group %d is empty", gi)
		}
		running := 0
		for i, m := range grp.Messages {
			if i > 0 {
				prev := grp.Messages[i-1]
				if m.Time-prev.Time > gap {
					t.Errorf("group %d: gap %v exceeds threshold", gi, m.Time-prev.Time)
				}
				if m.Time < prev.Time {
					t.Errorf("group %d: out of order", gi)
				}
			}
			running += m.Tokens
			if i > 0 && running > budget {
				t.Errorf("group %d: running tokens %d exceed budget", gi, running)
			}
		}
		flat = append(flat, grp.Messages...)
	}

	if len(flat) != len(prepared) {
		t.Fatalf("groups cover %d messages, prepared stream has %d", len(flat), len(prepared))
	}
	for i := range flat {
		if flat[i].Index != prepared[i].Index {
			t.Fatalf("concatenated groups diverge from prepared stream at %d", i)
		}
	}
}

func TestGroupPartitioned(t *testing.T) {
	raw := []chat.RawMessage{
		{ChatID: "x", SenderID: "A", Text: "x1", Date: 1},
		{ChatID: "y", SenderID: "B", Text: "y1", Date: 2},
		{ChatID: "x", SenderID: "me", Text: "x2", Date: 3, IsOut: true},
		{ChatID: "y", SenderID: "me", Text: "y2", Date: "bad", IsOut: true},
	}

	res, err := New(600, 768, nil).GroupPartitioned(context.Background(), raw)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(res.Groups) != 2 {
		t.Fatalf("expected 2 groups (one per chat), got %d", len(res.Groups))
	}
	if res.Groups[0].Messages[0].ChatID != "x" || res.Groups[1].Messages[0].ChatID != "y" {
		t.Error("groups should follow chat first appearance")
	}
	if res.Groups[0].Messages[1].Index != 2 {
		t.Errorf("index not remapped: %d", res.Groups[0].Messages[1].Index)
	}
	if len(res.DateErrors) != 1 || res.DateErrors[0].Index != 3 {
		t.Errorf("date errors = %+v", res.DateErrors)
	}
}

func TestGroupPartitioned_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	raw := []chat.RawMessage{{ChatID: "x", SenderID: "A", Text: "hi", Date: 1}}
	if _, err := New(600, 768, nil).GroupPartitioned(ctx, raw); err == nil {
		t.Error("expected context error")
	}
}
