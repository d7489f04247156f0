// Package dataset runs the message-to-sample pipeline end to end and reads
// and writes its artifacts.
package dataset

import (
	"context"
	"fmt"
	"math"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
	"github.com/MikeSquared-Agency/anselm/internal/identity"
	"github.com/MikeSquared-Agency/anselm/internal/sample"
	"github.com/MikeSquared-Agency/anselm/internal/tokens"
	"github.com/MikeSquared-Agency/anselm/internal/window"
)

// Options configures the grouping and sample stages.
type Options struct {
	GapSeconds      float64
	TokenBudget     int
	Estimator       string // "words" or "regex"
	OwnerID         string // "" resolves from the first outgoing record
	PseudonymMode   identity.Mode
	PartitionByChat bool
	IncludeMetadata bool
}

// DefaultOptions mirrors the configuration defaults.
func DefaultOptions() Options {
	return Options{
		GapSeconds:      window.DefaultGapSeconds,
		TokenBudget:     window.DefaultTokenBudget,
		Estimator:       "words",
		PseudonymMode:   identity.ModeBinary,
		IncludeMetadata: true,
	}
}

// Validate rejects thresholds the grouper cannot honour. A zero gap is valid.
func (o Options) Validate() error {
	if o.GapSeconds < 0 || math.IsNaN(o.GapSeconds) || math.IsInf(o.GapSeconds, 0) {
		return fmt.Errorf("gap seconds %v must be a finite value >= 0", o.GapSeconds)
	}
	if o.TokenBudget <= 0 {
		return fmt.Errorf("token budget %d must be positive", o.TokenBudget)
	}
	return nil
}

// BuildResult is the output of Build.
type BuildResult struct {
	Samples []sample.Sample
	Window  window.Result
	Owner   string
}

// Build groups raw into windows and converts the qualifying windows into
// samples. Cancellation is honoured only between whole stages.
func Build(ctx context.Context, raw []chat.RawMessage, opts Options) (*BuildResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	est, err := tokens.ByName(opts.Estimator)
	if err != nil {
		return nil, err
	}
	g := window.New(opts.GapSeconds, opts.TokenBudget, est)

	var res window.Result
	if opts.PartitionByChat {
		res, err = g.GroupPartitioned(ctx, raw)
		if err != nil {
			return nil, fmt.Errorf("group: %w", err)
		}
	} else {
		res = g.Group(raw)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	owner := opts.OwnerID
	if owner == "" {
		owner = chat.ResolveOwner(raw)
	}
	b := sample.NewBuilder(identity.Pseudonymizer{Owner: owner, Mode: opts.PseudonymMode})
	b.IncludeMetadata = opts.IncludeMetadata

	return &BuildResult{
		Samples: b.BuildAll(res.Groups),
		Window:  res,
		Owner:   owner,
	}, nil
}
