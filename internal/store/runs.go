package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"github.com/MikeSquared-Agency/anselm/internal/dataset"
	"github.com/MikeSquared-Agency/anselm/internal/sample"
	"github.com/MikeSquared-Agency/anselm/internal/split"
)

// Split labels stored on each sample row.
const (
	LabelTrain      = "train"
	LabelValidation = "validation"
)

// sampleRow is one dataset_samples insert.
type sampleRow struct {
	ID        uuid.UUID
	Split     string
	Position  int
	ChatID    *string
	SampledAt *time.Time
	Turns     int
	Messages  []byte
}

// sampleRows flattens a split into rows. Samples without a parseable id get
// a fresh one; ids repeated across the run are re-keyed so the insert
// cannot collide.
func sampleRows(res split.Result) ([]sampleRow, error) {
	rows := make([]sampleRow, 0, res.Total())
	seen := make(map[uuid.UUID]bool, res.Total())

	add := func(label string, samples []sample.Sample) error {
		for i, sm := range samples {
			msgs, err := json.Marshal(sm.Messages)
			if err != nil {
				return fmt.Errorf("marshal %s sample %d: %w", label, i, err)
			}
			row := sampleRow{
				ID:       uuid.New(),
				Split:    label,
				Position: i,
				Turns:    len(sm.Messages),
				Messages: msgs,
			}
			if sm.Metadata != nil {
				if id, err := uuid.Parse(sm.Metadata.ID); err == nil && !seen[id] {
					row.ID = id
				}
			}
			seen[row.ID] = true
			if chatID := sm.ChatID(); chatID != "" {
				row.ChatID = &chatID
			}
			if ts, ok := sm.Time(); ok {
				row.SampledAt = &ts
			}
			rows = append(rows, row)
		}
		return nil
	}

	if err := add(LabelTrain, res.Train); err != nil {
		return nil, err
	}
	if err := add(LabelValidation, res.Validation); err != nil {
		return nil, err
	}
	return rows, nil
}

// SaveRun writes the run report and every split sample in one transaction.
func (s *Store) SaveRun(ctx context.Context, report *dataset.RunReport, res split.Result) error {
	rows, err := sampleRows(res)
	if err != nil {
		return err
	}
	reportJSON, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}

	tx, err := s.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx)

	_, err = tx.Exec(ctx, `
		INSERT INTO dataset_runs (id, started_at, finished_at, strategy, fell_back, samples, train, validation, dry_run, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		report.RunID, report.StartedAt, report.FinishedAt, report.Strategy, report.FellBack,
		report.Samples, report.Train, report.Validation, report.DryRun, reportJSON,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}

	batch := &pgx.Batch{}
	for _, row := range rows {
		batch.Queue(`
			INSERT INTO dataset_samples (id, run_id, split, position, chat_id, sampled_at, turns, messages)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`,
			row.ID, report.RunID, row.Split, row.Position, row.ChatID, row.SampledAt, row.Turns, row.Messages,
		)
	}
	if err := tx.SendBatch(ctx, batch).Close(); err != nil {
		return fmt.Errorf("insert samples: %w", err)
	}

	if err := tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit: %w", err)
	}
	return nil
}

// LatestRun returns the most recently finished run, or nil when none exist.
func (s *Store) LatestRun(ctx context.Context) (*dataset.RunReport, error) {
	var raw []byte
	err := s.pool.QueryRow(ctx, `
		SELECT report FROM dataset_runs ORDER BY finished_at DESC LIMIT 1`,
	).Scan(&raw)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query latest run: %w", err)
	}

	var report dataset.RunReport
	if err := json.Unmarshal(raw, &report); err != nil {
		return nil, fmt.Errorf("decode run report: %w", err)
	}
	return &report, nil
}

// CountSamples returns how many samples a run stored under the given label.
func (s *Store) CountSamples(ctx context.Context, runID uuid.UUID, label string) (int, error) {
	var n int
	err := s.pool.QueryRow(ctx, `
		SELECT count(*) FROM dataset_samples WHERE run_id = $1 AND split = $2`,
		runID, label,
	).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count samples: %w", err)
	}
	return n, nil
}
