package dataset

import (
	"context"
	"math"
	"testing"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
)

func TestBuild_ZeroGap(t *testing.T) {
	raw := []chat.RawMessage{
		{SenderID: "7", Text: "first", Date: 0, IsOut: true},
		{SenderID: "7", Text: "second", Date: 300, IsOut: true},
	}
	opts := DefaultOptions()
	opts.GapSeconds = 0

	res, err := Build(context.Background(), raw, opts)
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	if len(res.Window.Groups) != 2 {
		t.Errorf("expected 2 groups with a zero gap, got %d", len(res.Window.Groups))
	}
	if len(res.Samples) != 2 {
		t.Errorf("expected 2 samples, got %d", len(res.Samples))
	}
}

func TestBuild_InvalidThresholds(t *testing.T) {
	for _, mutate := range []func(*Options){
		func(o *Options) { o.GapSeconds = -1 },
		func(o *Options) { o.GapSeconds = math.NaN() },
		func(o *Options) { o.TokenBudget = 0 },
		func(o *Options) { o.TokenBudget = -5 },
	} {
		opts := DefaultOptions()
		mutate(&opts)
		if _, err := Build(context.Background(), nil, opts); err == nil {
			t.Errorf("expected error for %+v", opts)
		}
	}
}

func TestOptions_Validate(t *testing.T) {
	if err := DefaultOptions().Validate(); err != nil {
		t.Errorf("defaults should validate: %v", err)
	}
	opts := DefaultOptions()
	opts.GapSeconds = 0
	if err := opts.Validate(); err != nil {
		t.Errorf("zero gap should validate: %v", err)
	}
}
