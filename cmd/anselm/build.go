package main

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/MikeSquared-Agency/anselm/internal/dataset"
)

type runFlags struct {
	inputs []string
	outDir string
	dryRun bool
}

func newBuildCmd(gf *globalFlags) *cobra.Command {
	var rf runFlags

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Build samples from exported message streams",
		Long: "Reads one or more message streams (JSON array or JSON lines), groups them into windows, " +
			"builds samples, splits them and writes samples, train, validation and report.json to --out.",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, gf, rf, false)
		},
	}
	cmd.Flags().StringSliceVarP(&rf.inputs, "input", "i", nil, "message stream file (repeatable)")
	cmd.Flags().StringVarP(&rf.outDir, "out", "o", "dataset", "output directory")
	cmd.Flags().BoolVar(&rf.dryRun, "dry-run", false, "run every stage but write nothing")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func newSplitCmd(gf *globalFlags) *cobra.Command {
	var rf runFlags

	cmd := &cobra.Command{
		Use:   "split",
		Short: "Split an existing sample file into train and validation sets",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBuild(cmd, gf, rf, true)
		},
	}
	cmd.Flags().StringSliceVarP(&rf.inputs, "input", "i", nil, "sample file (repeatable)")
	cmd.Flags().StringVarP(&rf.outDir, "out", "o", "dataset", "output directory")
	cmd.Flags().BoolVar(&rf.dryRun, "dry-run", false, "split but write nothing")
	_ = cmd.MarkFlagRequired("input")
	return cmd
}

func runBuild(cmd *cobra.Command, gf *globalFlags, rf runFlags, splitOnly bool) error {
	cfg, err := loadConfig(gf)
	if err != nil {
		return err
	}
	pipeline, err := cfg.Pipeline()
	if err != nil {
		return err
	}
	splitOpts, err := cfg.Split()
	if err != nil {
		return err
	}
	format, err := cfg.Format()
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	logger := slog.Default()
	svc, err := connectServices(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer svc.close()

	runner := svc.runner(dataset.Config{
		Inputs:  rf.inputs,
		OutDir:  rf.outDir,
		Format:  format,
		DryRun:  rf.dryRun,
		Options: pipeline,
		Split:   splitOpts,
	}, logger)

	var report *dataset.RunReport
	if splitOnly {
		report, err = runner.RunSplit(ctx)
	} else {
		report, err = runner.Run(ctx)
	}
	if err != nil {
		return stageError(err)
	}

	fmt.Fprint(cmd.OutOrStdout(), dataset.FormatSummary(report))
	return nil
}
