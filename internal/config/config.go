package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/MikeSquared-Agency/anselm/internal/dataset"
	"github.com/MikeSquared-Agency/anselm/internal/identity"
	"github.com/MikeSquared-Agency/anselm/internal/split"
)

type Config struct {
	LogLevel string

	GapSeconds      float64
	TokenBudget     int
	TokenEstimator  string
	OwnerID         string
	PseudonymMode   string
	PartitionByChat bool
	IncludeMetadata bool

	SplitStrategy        string
	TrainRatio           float64
	Seed                 int64
	ValidationMostRecent bool

	OutputFormat string

	Port         int
	APIToken     string
	DatabaseURL  string
	NatsURL      string
	NatsToken    string
	SlackToken   string
	SlackChannel string
}

// Load reads configuration from the environment, after loading a .env file
// from the working directory if one exists.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		LogLevel: envStr("LOG_LEVEL", "info"),

		GapSeconds:      envFloat("ANSELM_GAP_SECONDS", 600),
		TokenBudget:     envInt("ANSELM_TOKEN_BUDGET", 768),
		TokenEstimator:  envStr("ANSELM_TOKEN_ESTIMATOR", "words"),
		OwnerID:         envStr("ANSELM_OWNER_ID", ""),
		PseudonymMode:   envStr("ANSELM_PSEUDONYMS", "binary"),
		PartitionByChat: envBool("ANSELM_PARTITION_BY_CHAT", false),
		IncludeMetadata: envBool("ANSELM_INCLUDE_METADATA", true),

		SplitStrategy:        envStr("ANSELM_SPLIT_STRATEGY", "time"),
		TrainRatio:           envFloat("ANSELM_TRAIN_RATIO", 0.9),
		Seed:                 int64(envInt("ANSELM_SEED", 42)),
		ValidationMostRecent: envBool("ANSELM_VALIDATION_MOST_RECENT", true),

		OutputFormat: envStr("ANSELM_OUTPUT_FORMAT", "jsonl"),

		Port:         envInt("ANSELM_PORT", 8760),
		APIToken:     envStr("ANSELM_API_TOKEN", ""),
		DatabaseURL:  envStr("DATABASE_URL", ""),
		NatsURL:      envStr("NATS_URL", ""),
		NatsToken:    envStr("NATS_TOKEN", ""),
		SlackToken:   envStr("SLACK_BOT_TOKEN", ""),
		SlackChannel: envStr("SLACK_CHANNEL", ""),
	}
}

// fileConfig is the YAML overlay. Pointer fields distinguish "unset" from zero.
type fileConfig struct {
	LogLevel *string `yaml:"log_level"`
	Window   struct {
		GapSeconds     *float64 `yaml:"gap_seconds"`
		TokenBudget    *int     `yaml:"token_budget"`
		TokenEstimator *string  `yaml:"token_estimator"`
	} `yaml:"window"`
	Samples struct {
		OwnerID         *string `yaml:"owner_id"`
		Pseudonyms      *string `yaml:"pseudonyms"`
		PartitionByChat *bool   `yaml:"partition_by_chat"`
		IncludeMetadata *bool   `yaml:"include_metadata"`
	} `yaml:"samples"`
	Split struct {
		Strategy             *string  `yaml:"strategy"`
		TrainRatio           *float64 `yaml:"train_ratio"`
		Seed                 *int64   `yaml:"seed"`
		ValidationMostRecent *bool    `yaml:"validation_most_recent"`
	} `yaml:"split"`
	Output struct {
		Format *string `yaml:"format"`
	} `yaml:"output"`
}

// ApplyFile overlays values from a YAML file onto c. Keys missing from the
// file leave c unchanged.
func (c *Config) ApplyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parse config %s: %w", path, err)
	}

	set(&c.LogLevel, fc.LogLevel)
	set(&c.GapSeconds, fc.Window.GapSeconds)
	set(&c.TokenBudget, fc.Window.TokenBudget)
	set(&c.TokenEstimator, fc.Window.TokenEstimator)
	set(&c.OwnerID, fc.Samples.OwnerID)
	set(&c.PseudonymMode, fc.Samples.Pseudonyms)
	set(&c.PartitionByChat, fc.Samples.PartitionByChat)
	set(&c.IncludeMetadata, fc.Samples.IncludeMetadata)
	set(&c.SplitStrategy, fc.Split.Strategy)
	set(&c.TrainRatio, fc.Split.TrainRatio)
	set(&c.Seed, fc.Split.Seed)
	set(&c.ValidationMostRecent, fc.Split.ValidationMostRecent)
	set(&c.OutputFormat, fc.Output.Format)
	return nil
}

func set[T any](dst *T, v *T) {
	if v != nil {
		*dst = *v
	}
}

// Pipeline returns the grouping and sample options.
func (c Config) Pipeline() (dataset.Options, error) {
	mode, err := identity.ParseMode(c.PseudonymMode)
	if err != nil {
		return dataset.Options{}, err
	}
	opts := dataset.Options{
		GapSeconds:      c.GapSeconds,
		TokenBudget:     c.TokenBudget,
		Estimator:       c.TokenEstimator,
		OwnerID:         c.OwnerID,
		PseudonymMode:   mode,
		PartitionByChat: c.PartitionByChat,
		IncludeMetadata: c.IncludeMetadata,
	}
	if err := opts.Validate(); err != nil {
		return dataset.Options{}, err
	}
	return opts, nil
}

// Split returns the split options.
func (c Config) Split() (split.Options, error) {
	strategy, err := split.ParseStrategy(c.SplitStrategy)
	if err != nil {
		return split.Options{}, err
	}
	if c.TrainRatio < 0 || c.TrainRatio > 1 {
		return split.Options{}, fmt.Errorf("train ratio %v out of range [0,1]", c.TrainRatio)
	}
	return split.Options{
		Strategy:             strategy,
		TrainRatio:           c.TrainRatio,
		Seed:                 c.Seed,
		ValidationMostRecent: c.ValidationMostRecent,
	}, nil
}

// Format returns the output format.
func (c Config) Format() (dataset.Format, error) {
	return dataset.ParseFormat(c.OutputFormat)
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}
