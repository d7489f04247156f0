package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/MikeSquared-Agency/anselm/internal/config"
	"github.com/MikeSquared-Agency/anselm/internal/dataset"
	"github.com/MikeSquared-Agency/anselm/internal/hermes"
	"github.com/MikeSquared-Agency/anselm/internal/slack"
	"github.com/MikeSquared-Agency/anselm/internal/store"
)

// services holds the optional collaborators a run reports to. Each field is
// left nil when its connection is not configured.
type services struct {
	db       *store.Store
	events   *hermes.Client
	notifier *slack.Poster
}

// connectServices opens whatever DATABASE_URL, NATS_URL and the Slack settings
// point at. A configured service that cannot be reached is an error.
func connectServices(ctx context.Context, cfg config.Config, logger *slog.Logger) (*services, error) {
	svc := &services{}

	if cfg.DatabaseURL != "" {
		db, err := store.New(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.EnsureSchema(ctx); err != nil {
			db.Close()
			return nil, err
		}
		svc.db = db
		logger.Info("database connected")
	}

	if cfg.NatsURL != "" {
		client, err := hermes.NewClient(ctx, cfg.NatsURL, cfg.NatsToken, logger)
		if err != nil {
			svc.close()
			return nil, err
		}
		svc.events = client
		logger.Info("NATS connected", "url", cfg.NatsURL)
	}

	if cfg.SlackToken != "" && cfg.SlackChannel != "" {
		svc.notifier = slack.NewPoster(cfg.SlackToken, cfg.SlackChannel, logger)
		logger.Info("slack poster ready", "channel", cfg.SlackChannel)
	}
	return svc, nil
}

// runner builds a dataset runner. Interfaces are only set for live services
// so a nil pointer never reaches the runner as a non-nil interface.
func (s *services) runner(rc dataset.Config, logger *slog.Logger) *dataset.Runner {
	var (
		persister dataset.Persister
		publisher dataset.Publisher
		notifier  dataset.Notifier
	)
	if s.db != nil {
		persister = s.db
	}
	if s.events != nil {
		publisher = s.events
	}
	if s.notifier != nil {
		notifier = s.notifier
	}
	return dataset.NewRunner(rc, persister, publisher, notifier, logger)
}

func (s *services) publisher() dataset.Publisher {
	if s.events == nil {
		return nil
	}
	return s.events
}

func (s *services) close() {
	if s.events != nil {
		s.events.Close()
	}
	if s.db != nil {
		s.db.Close()
	}
}

// stageError prefixes err with the pipeline stage it came from.
func stageError(err error) error {
	return fmt.Errorf("%s stage: %w", dataset.Stage(err), err)
}
