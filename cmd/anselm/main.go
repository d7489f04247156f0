package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/anselm/internal/config"
)

// Version info set via ldflags at build time.
var (
	Version = "dev"
	Commit  = "none"
	Date    = "unknown"
)

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	logLevel   string
}

func newRootCmd() *cobra.Command {
	var gf globalFlags

	cmd := &cobra.Command{
		Use:          "anselm",
		Short:        "Anselm: chat history to fine-tuning samples",
		Long:         "Anselm groups an exported chat history into conversation windows, turns them into supervised fine-tuning samples and splits them into training and validation sets.",
		SilenceUsage: true,
	}
	cmd.PersistentFlags().StringVarP(&gf.configPath, "config", "c", "", "optional YAML config file overlaid on the environment")
	cmd.PersistentFlags().StringVar(&gf.logLevel, "log-level", "", "log level (debug, info, warn, error); overrides LOG_LEVEL")

	cmd.AddCommand(newVersionCmd())
	cmd.AddCommand(newBuildCmd(&gf))
	cmd.AddCommand(newSplitCmd(&gf))
	cmd.AddCommand(newScaleCmd(&gf))
	cmd.AddCommand(newConvertCmd(&gf))
	cmd.AddCommand(newServeCmd(&gf))
	return cmd
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "anselm %s (commit: %s, built: %s)\n", Version, Commit, Date)
		},
	}
}

// loadConfig reads the environment, applies the optional YAML overlay and
// installs the JSON logger.
func loadConfig(gf *globalFlags) (config.Config, error) {
	cfg := config.Load()
	if gf.configPath != "" {
		if err := cfg.ApplyFile(gf.configPath); err != nil {
			return cfg, err
		}
	}
	if gf.logLevel != "" {
		cfg.LogLevel = gf.logLevel
	}
	setupLogging(cfg.LogLevel)
	return cfg, nil
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}
	// Logs go to stderr; stdout carries command output.
	handler := slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}

func execute(cmd *cobra.Command) int {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()
	if err := cmd.ExecuteContext(ctx); err != nil {
		return 1
	}
	return 0
}

func main() {
	os.Exit(execute(newRootCmd()))
}
