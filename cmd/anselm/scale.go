package main

import (
	"fmt"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/anselm/internal/dataset"
)

func newScaleCmd(gf *globalFlags) *cobra.Command {
	var (
		input, output string
		k             int
		seed          int64
	)

	cmd := &cobra.Command{
		Use:   "scale",
		Short: "Randomly keep K samples from a sample file",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			if k <= 0 {
				return fmt.Errorf("--k must be positive, got %d", k)
			}
			if !cmd.Flags().Changed("seed") {
				seed = cfg.Seed
			}
			format, err := cfg.Format()
			if err != nil {
				return err
			}

			samples, stats, err := dataset.ReadSamplesFile(input)
			if err != nil {
				return err
			}
			if stats.SkippedLines > 0 {
				slog.Warn("skipped malformed sample lines", "input", input, "lines", stats.SkippedLines)
			}
			kept := dataset.ReservoirSample(samples, k, seed)
			if err := dataset.WriteSamplesFile(output, kept, format); err != nil {
				return err
			}

			slog.Info("scaled samples", "input", input, "output", output, "read", len(samples), "skipped_lines", stats.SkippedLines, "kept", len(kept), "seed", seed)
			fmt.Fprintf(cmd.OutOrStdout(), "Kept %d of %d samples -> %s\n", len(kept), len(samples), output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "sample file to read")
	cmd.Flags().StringVarP(&output, "output", "o", "", "sample file to write")
	cmd.Flags().IntVar(&k, "k", 0, "number of samples to keep")
	cmd.Flags().Int64Var(&seed, "seed", 0, "random seed (defaults to ANSELM_SEED)")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	_ = cmd.MarkFlagRequired("k")
	return cmd
}

func newConvertCmd(gf *globalFlags) *cobra.Command {
	var input, output string

	cmd := &cobra.Command{
		Use:   "convert",
		Short: "Convert {messages, output} samples to the chat-template shape",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(gf)
			if err != nil {
				return err
			}
			format, err := cfg.Format()
			if err != nil {
				return err
			}

			data, err := os.ReadFile(input)
			if err != nil {
				return fmt.Errorf("read %s: %w", input, err)
			}
			samples, stats, err := dataset.ConvertChatTemplate(data)
			if err != nil {
				return stageError(err)
			}
			if err := dataset.WriteSamplesFile(output, samples, format); err != nil {
				return err
			}

			slog.Info("converted samples", "input", input, "output", output, "converted", stats.Converted, "skipped", stats.Skipped)
			fmt.Fprintf(cmd.OutOrStdout(), "Converted %d samples (%d skipped without output) -> %s\n", stats.Converted, stats.Skipped, output)
			return nil
		},
	}
	cmd.Flags().StringVarP(&input, "input", "i", "", "legacy sample file to read")
	cmd.Flags().StringVarP(&output, "output", "o", "", "converted sample file to write")
	_ = cmd.MarkFlagRequired("input")
	_ = cmd.MarkFlagRequired("output")
	return cmd
}
