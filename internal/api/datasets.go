package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
	"github.com/MikeSquared-Agency/anselm/internal/dataset"
	"github.com/MikeSquared-Agency/anselm/internal/identity"
	"github.com/MikeSquared-Agency/anselm/internal/sample"
	"github.com/MikeSquared-Agency/anselm/internal/split"
)

// SamplesResponse is returned by POST /api/v1/samples.
type SamplesResponse struct {
	Samples      []sample.Sample `json:"samples"`
	Count        int             `json:"count"`
	Groups       int             `json:"groups"`
	DateErrors   int             `json:"date_errors"`
	DroppedEmpty int             `json:"dropped_empty"`
	SkippedLines int             `json:"skipped_lines"`
	Owner        string          `json:"owner,omitempty"`
}

// SplitRequest is the body of POST /api/v1/split. Unset fields take the
// server defaults.
type SplitRequest struct {
	Samples              []sample.Sample `json:"samples"`
	Strategy             *string         `json:"strategy,omitempty"`
	TrainRatio           *float64        `json:"train_ratio,omitempty"`
	Seed                 *int64          `json:"seed,omitempty"`
	ValidationMostRecent *bool           `json:"validation_most_recent,omitempty"`
}

// SplitResponse is returned by POST /api/v1/split.
type SplitResponse struct {
	Train      []sample.Sample `json:"train"`
	Validation []sample.Sample `json:"validation"`
	Strategy   string          `json:"strategy"`
	FellBack   bool            `json:"fell_back"`
	Note       string          `json:"note,omitempty"`
}

// buildSamples handles POST /api/v1/samples. The body is a message stream
// (JSON array or JSON lines); query parameters override the grouping defaults.
func (s *Server) buildSamples(w http.ResponseWriter, r *http.Request) {
	opts, err := s.pipelineOptions(r)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		writeError(w, http.StatusRequestEntityTooLarge, "body too large")
		return
	}
	raw, stats, err := chat.ParseMessageStream(data)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	built, err := dataset.Build(r.Context(), raw, opts)
	if err != nil {
		if errors.Is(err, r.Context().Err()) {
			return
		}
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	samples := built.Samples
	if samples == nil {
		samples = []sample.Sample{}
	}
	s.logger.Info("samples built via api",
		"messages", len(raw),
		"samples", len(samples),
		"date_errors", len(built.Window.DateErrors),
	)
	s.publish(dataset.SubjectBuilt, map[string]any{
		"source":    "api",
		"messages":  len(raw),
		"samples":   len(samples),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})

	writeJSON(w, http.StatusOK, SamplesResponse{
		Samples:      samples,
		Count:        len(samples),
		Groups:       len(built.Window.Groups),
		DateErrors:   len(built.Window.DateErrors),
		DroppedEmpty: built.Window.DroppedEmpty,
		SkippedLines: stats.SkippedLines,
		Owner:        built.Owner,
	})
}

// splitSamples handles POST /api/v1/split.
func (s *Server) splitSamples(w http.ResponseWriter, r *http.Request) {
	var req SplitRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid JSON: %v", err))
		return
	}

	opts := s.cfg.Split
	if req.Strategy != nil {
		strategy, err := split.ParseStrategy(*req.Strategy)
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		opts.Strategy = strategy
	}
	if req.TrainRatio != nil {
		opts.TrainRatio = *req.TrainRatio
	}
	if req.Seed != nil {
		opts.Seed = *req.Seed
	}
	if req.ValidationMostRecent != nil {
		opts.ValidationMostRecent = *req.ValidationMostRecent
	}

	res, err := split.Assign(req.Samples, opts)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	resp := SplitResponse{
		Train:      res.Train,
		Validation: res.Validation,
		Strategy:   string(res.Strategy),
		FellBack:   res.FellBack,
		Note:       res.Note,
	}
	if resp.Train == nil {
		resp.Train = []sample.Sample{}
	}
	if resp.Validation == nil {
		resp.Validation = []sample.Sample{}
	}
	s.publish(dataset.SubjectSplit, map[string]any{
		"source":     "api",
		"strategy":   resp.Strategy,
		"train":      len(resp.Train),
		"validation": len(resp.Validation),
		"fell_back":  resp.FellBack,
		"timestamp":  time.Now().UTC().Format(time.RFC3339),
	})
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) pipelineOptions(r *http.Request) (dataset.Options, error) {
	opts := s.cfg.Pipeline
	q := r.URL.Query()

	if v := q.Get("gap_seconds"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil || f < 0 {
			return opts, fmt.Errorf("invalid gap_seconds %q", v)
		}
		opts.GapSeconds = f
	}
	if v := q.Get("token_budget"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n <= 0 {
			return opts, fmt.Errorf("invalid token_budget %q", v)
		}
		opts.TokenBudget = n
	}
	if v := q.Get("owner_id"); v != "" {
		opts.OwnerID = v
	}
	if v := q.Get("estimator"); v != "" {
		opts.Estimator = v
	}
	if v := q.Get("pseudonyms"); v != "" {
		mode, err := identity.ParseMode(v)
		if err != nil {
			return opts, err
		}
		opts.PseudonymMode = mode
	}
	if v := q.Get("partition_by_chat"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return opts, fmt.Errorf("invalid partition_by_chat %q", v)
		}
		opts.PartitionByChat = b
	}
	return opts, opts.Validate()
}

func (s *Server) publish(subject string, data any) {
	if s.events == nil {
		return
	}
	if err := s.events.Publish(subject, data); err != nil {
		s.logger.Warn("failed to publish event", "subject", subject, "error", err)
	}
}
