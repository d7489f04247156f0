package dataset

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunReport records stage counts for one pipeline run. It is written next to
// the output artifacts as report.json.
type RunReport struct {
	RunID         uuid.UUID `json:"run_id"`
	StartedAt     time.Time `json:"started_at"`
	FinishedAt    time.Time `json:"finished_at"`
	Inputs        []string  `json:"inputs"`
	SkippedInputs []string  `json:"skipped_inputs,omitempty"`
	MessagesRead  int       `json:"messages_read"`
	SkippedLines  int       `json:"skipped_lines"`
	DateErrors    int       `json:"date_errors"`
	DroppedEmpty  int       `json:"dropped_empty"`
	Groups        int       `json:"groups"`
	Samples       int       `json:"samples"`
	Train         int       `json:"train"`
	Validation    int       `json:"validation"`
	Strategy      string    `json:"strategy"`
	FellBack      bool      `json:"fell_back"`
	Note          string    `json:"note,omitempty"`
	OwnerResolved bool      `json:"owner_resolved"`
	DryRun        bool      `json:"dry_run"`
	Errors        []string  `json:"errors"`
}

// NewRunReport starts a report with a fresh run id.
func NewRunReport() *RunReport {
	return &RunReport{
		RunID:     uuid.New(),
		StartedAt: time.Now().UTC(),
	}
}

// AddError records a recovered per-record problem.
func (r *RunReport) AddError(msg string) {
	r.Errors = append(r.Errors, msg)
}

// Save writes the report as indented JSON, creating parent directories.
func (r *RunReport) Save(path string) error {
	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("mkdir: %w", err)
	}

	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	return os.WriteFile(path, data, 0o644)
}

// LoadRunReport reads a report written by Save.
func LoadRunReport(path string) (*RunReport, error) {
	data, err := os.ReadFile(expandHome(path))
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	var r RunReport
	if err := json.Unmarshal(data, &r); err != nil {
		return nil, fmt.Errorf("parse report: %w", err)
	}
	return &r, nil
}

// FormatSummary renders the stage counts for terminals and chat notifications.
func FormatSummary(r *RunReport) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "*Dataset Build %s*\n", r.RunID.String()[:8])
	fmt.Fprintf(&sb, "Inputs: %d", len(r.Inputs))
	if len(r.SkippedInputs) > 0 {
		fmt.Fprintf(&sb, " (%d skipped as duplicate exports)", len(r.SkippedInputs))
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Messages read: %d\n", r.MessagesRead)
	if r.SkippedLines > 0 {
		fmt.Fprintf(&sb, "Malformed lines skipped: %d\n", r.SkippedLines)
	}
	fmt.Fprintf(&sb, "Unparseable dates: %d\n", r.DateErrors)
	fmt.Fprintf(&sb, "Empty after redaction: %d\n", r.DroppedEmpty)
	fmt.Fprintf(&sb, "Groups formed: %d\n", r.Groups)
	fmt.Fprintf(&sb, "Samples kept: %d\n", r.Samples)
	fmt.Fprintf(&sb, "Split (%s): train=%d, validation=%d\n", r.Strategy, r.Train, r.Validation)
	if r.Note != "" {
		fmt.Fprintf(&sb, "Note: %s\n", r.Note)
	}
	if len(r.Errors) > 0 {
		fmt.Fprintf(&sb, "Errors: %d\n", len(r.Errors))
	}
	if r.DryRun {
		sb.WriteString("Mode: DRY RUN (no files written)\n")
	}
	return sb.String()
}

func expandHome(path string) string {
	if len(path) > 1 && path[0] == '~' && path[1] == '/' {
		home, err := os.UserHomeDir()
		if err != nil {
			return path
		}
		return filepath.Join(home, path[2:])
	}
	return path
}
