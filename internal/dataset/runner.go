package dataset

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/MikeSquared-Agency/anselm/internal/chat"
	"github.com/MikeSquared-Agency/anselm/internal/sample"
	"github.com/MikeSquared-Agency/anselm/internal/split"
)

// Event subjects published after a run.
const (
	SubjectBuilt = "anselm.dataset.built"
	SubjectSplit = "anselm.dataset.split"
)

// Persister stores a finished run. Implemented by store.Store.
type Persister interface {
	SaveRun(ctx context.Context, report *RunReport, res split.Result) error
}

// Publisher emits run events. Implemented by hermes.Client.
type Publisher interface {
	Publish(subject string, data any) error
}

// Notifier posts a human-readable run summary. Implemented by slack.Poster.
type Notifier interface {
	PostMessage(ctx context.Context, text string) error
}

// Config holds the build command configuration.
type Config struct {
	Inputs  []string
	OutDir  string
	Format  Format
	DryRun  bool
	Options Options
	Split   split.Options
}

// Runner orchestrates read -> group -> build -> split -> write.
type Runner struct {
	cfg      Config
	store    Persister
	events   Publisher
	notifier Notifier
	logger   *slog.Logger
}

// NewRunner creates a runner. store, events and notifier may be nil.
func NewRunner(cfg Config, store Persister, events Publisher, notifier Notifier, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		cfg:      cfg,
		store:    store,
		events:   events,
		notifier: notifier,
		logger:   logger,
	}
}

// Run executes a full build and returns its report. Per-record problems are
// recorded in the report; structural problems abort the run.
func (r *Runner) Run(ctx context.Context) (*RunReport, error) {
	report := NewRunReport()
	report.DryRun = r.cfg.DryRun

	raw, err := r.readInputs(report)
	if err != nil {
		return report, fmt.Errorf("read: %w", err)
	}
	r.logger.Info("messages read",
		"run_id", report.RunID,
		"inputs", len(report.Inputs),
		"skipped_inputs", len(report.SkippedInputs),
		"messages_read", report.MessagesRead,
		"skipped_lines", report.SkippedLines,
	)
	if len(raw) == 0 {
		return report, &EmptyInputError{Stage: "read"}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	built, err := Build(ctx, raw, r.cfg.Options)
	if err != nil {
		return report, fmt.Errorf("build: %w", err)
	}
	report.OwnerResolved = built.Owner != ""
	report.DateErrors = len(built.Window.DateErrors)
	report.DroppedEmpty = built.Window.DroppedEmpty
	report.Groups = len(built.Window.Groups)
	report.Samples = len(built.Samples)
	for _, de := range built.Window.DateErrors {
		report.AddError(fmt.Sprintf("message %d: %v", de.Index, de.Err))
	}
	r.logger.Info("samples built",
		"run_id", report.RunID,
		"date_errors", report.DateErrors,
		"dropped_empty", report.DroppedEmpty,
		"groups", report.Groups,
		"samples", report.Samples,
		"owner_resolved", report.OwnerResolved,
	)
	if !report.OwnerResolved {
		r.logger.Warn("no owner id configured and no outgoing messages found")
	}
	if len(built.Samples) == 0 {
		return report, &EmptyInputError{Stage: "build"}
	}
	if err := ctx.Err(); err != nil {
		return report, err
	}

	res, err := r.split(report, built.Samples)
	if err != nil {
		return report, err
	}

	if !r.cfg.DryRun {
		if err := r.writeOutputs(report, built.Samples, res); err != nil {
			return report, fmt.Errorf("write: %w", err)
		}
	}
	report.FinishedAt = time.Now().UTC()

	r.finish(ctx, report, res)
	return report, nil
}

// RunSplit re-splits an existing sample file into training and validation artifacts.
func (r *Runner) RunSplit(ctx context.Context) (*RunReport, error) {
	report := NewRunReport()
	report.DryRun = r.cfg.DryRun

	var samples []sample.Sample
	for _, path := range r.cfg.Inputs {
		ss, stats, err := ReadSamplesFile(expandHome(path))
		if err != nil {
			return report, fmt.Errorf("read: %w", err)
		}
		report.SkippedLines += stats.SkippedLines
		if stats.SkippedLines > 0 {
			r.logger.Warn("skipped malformed sample lines", "path", path, "lines", stats.SkippedLines)
		}
		report.Inputs = append(report.Inputs, path)
		samples = append(samples, ss...)
	}
	report.Samples = len(samples)
	r.logger.Info("samples read",
		"run_id", report.RunID,
		"inputs", len(report.Inputs),
		"samples", report.Samples,
		"skipped_lines", report.SkippedLines,
	)

	res, err := r.split(report, samples)
	if err != nil {
		return report, err
	}
	if !r.cfg.DryRun {
		if err := r.writeSplit(report, res); err != nil {
			return report, fmt.Errorf("write: %w", err)
		}
	}
	report.FinishedAt = time.Now().UTC()

	r.finish(ctx, report, res)
	return report, nil
}

func (r *Runner) split(report *RunReport, samples []sample.Sample) (split.Result, error) {
	res, err := split.Assign(samples, r.cfg.Split)
	if err != nil {
		return split.Result{}, fmt.Errorf("split: %w", err)
	}
	report.Train = len(res.Train)
	report.Validation = len(res.Validation)
	report.Strategy = string(res.Strategy)
	report.FellBack = res.FellBack
	report.Note = res.Note
	if res.FellBack {
		r.logger.Info("time split fell back to group split", "note", res.Note)
	}
	r.logger.Info("samples split",
		"run_id", report.RunID,
		"strategy", report.Strategy,
		"train", report.Train,
		"validation", report.Validation,
	)
	return res, nil
}

// readInputs parses every input, skipping files that repeat an earlier export.
// A file that cannot be parsed under either framing aborts the run.
func (r *Runner) readInputs(report *RunReport) ([]chat.RawMessage, error) {
	type parsedInput struct {
		path string
		msgs []chat.RawMessage
	}

	var parsed []parsedInput
	var fps []inputFingerprint
	for _, path := range r.cfg.Inputs {
		data, err := os.ReadFile(expandHome(path))
		if err != nil {
			return nil, fmt.Errorf("open %s: %w", path, err)
		}
		msgs, stats, err := chat.ParseMessageStream(data)
		if err != nil {
			return nil, fmt.Errorf("parse %s: %w", path, err)
		}
		report.SkippedLines += stats.SkippedLines
		if stats.SkippedLines > 0 {
			r.logger.Warn("skipped malformed lines", "path", path, "lines", stats.SkippedLines)
		}
		parsed = append(parsed, parsedInput{path: path, msgs: msgs})
		fps = append(fps, buildFingerprint(path, msgs))
	}

	duplicates := findDuplicateInputs(fps)

	var raw []chat.RawMessage
	for _, p := range parsed {
		if duplicates[p.path] {
			r.logger.Info("skipping duplicate export", "path", p.path)
			report.SkippedInputs = append(report.SkippedInputs, p.path)
			continue
		}
		report.Inputs = append(report.Inputs, p.path)
		raw = append(raw, p.msgs...)
	}
	report.MessagesRead = len(raw)
	return raw, nil
}

func (r *Runner) writeOutputs(report *RunReport, samples []sample.Sample, res split.Result) error {
	if err := WriteSamplesFile(r.outPath("samples"+r.cfg.Format.Ext()), samples, r.cfg.Format); err != nil {
		return err
	}
	return r.writeSplit(report, res)
}

func (r *Runner) writeSplit(report *RunReport, res split.Result) error {
	if err := WriteSamplesFile(r.outPath("train"+r.cfg.Format.Ext()), res.Train, r.cfg.Format); err != nil {
		return err
	}
	if err := WriteSamplesFile(r.outPath("validation"+r.cfg.Format.Ext()), res.Validation, r.cfg.Format); err != nil {
		return err
	}
	report.FinishedAt = time.Now().UTC()
	return report.Save(r.outPath("report.json"))
}

func (r *Runner) outPath(name string) string {
	return filepath.Join(expandHome(r.cfg.OutDir), name)
}

// finish persists, publishes and notifies. Failures here are logged, not
// returned: the artifacts on disk are the run's result.
func (r *Runner) finish(ctx context.Context, report *RunReport, res split.Result) {
	if r.store != nil && !r.cfg.DryRun {
		if err := r.store.SaveRun(ctx, report, res); err != nil {
			r.logger.Error("persist run failed", "run_id", report.RunID, "error", err)
		} else {
			r.logger.Info("run persisted", "run_id", report.RunID)
		}
	}

	if r.events != nil {
		if err := r.events.Publish(SubjectBuilt, report); err != nil {
			r.logger.Warn("failed to publish build event", "error", err)
		}
		if err := r.events.Publish(SubjectSplit, map[string]any{
			"run_id":     report.RunID,
			"strategy":   report.Strategy,
			"train":      report.Train,
			"validation": report.Validation,
			"fell_back":  report.FellBack,
			"timestamp":  time.Now().UTC().Format(time.RFC3339),
		}); err != nil {
			r.logger.Warn("failed to publish split event", "error", err)
		}
	}

	text := FormatSummary(report)
	if r.notifier == nil {
		r.logger.Debug("run summary (no notifier configured)", "summary", text)
		return
	}
	if err := r.notifier.PostMessage(ctx, text); err != nil {
		r.logger.Warn("failed to post run summary", "error", err)
	}
}

// Stage reports which stage an error came from, for CLI messaging.
func Stage(err error) string {
	var empty *EmptyInputError
	var malformed *chat.MalformedInputError
	switch {
	case errors.As(err, &empty):
		return empty.Stage
	case errors.As(err, &malformed):
		return "read"
	default:
		return "run"
	}
}
