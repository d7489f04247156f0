package tokens

import "testing"

func TestWords_Estimate(t *testing.T) {
	w := Words{Multiplier: 1.3}
	if got := w.Estimate(""); got != 1 {
		t.Errorf("empty = %d, want 1", got)
	}
	if got := w.Estimate("one"); got != 2 {
		t.Errorf("one word = %d, want 2", got)
	}
	if got := w.Estimate("one two three four five six seven eight nine ten"); got != 13 {
		t.Errorf("ten words = %d, want 13", got)
	}
}

func TestWords_Monotonic(t *testing.T) {
	w := Words{}
	text := ""
	prev := 0
	for i := 0; i < 50; i++ {
		text += " word"
		got := w.Estimate(text)
		if got < prev {
			t.Fatalf("estimate decreased at %d words: %d < %d", i+1, got, prev)
		}
		prev = got
	}
}

func TestPieces_Estimate(t *testing.T) {
	p := Pieces{}
	if got := p.Estimate("hello, world!"); got != 4 {
		t.Errorf("Pieces = %d, want 4", got)
	}
	if got := p.Estimate("   "); got != 1 {
		t.Errorf("blank = %d, want 1", got)
	}
	if got := p.Estimate("state-of-the-art"); got != 1 {
		t.Errorf("hyphenated run = %d, want 1", got)
	}
}

func TestFixed(t *testing.T) {
	e := Fixed(7)
	if e.Estimate("anything at all") != 7 || e.Estimate("") != 7 {
		t.Error("Fixed should ignore input")
	}
}

func TestByName(t *testing.T) {
	if _, err := ByName("words"); err != nil {
		t.Errorf("words: %v", err)
	}
	if _, err := ByName("regex"); err != nil {
		t.Errorf("regex: %v", err)
	}
	if _, err := ByName("tiktoken"); err == nil {
		t.Error("expected error for unknown estimator")
	}
}
