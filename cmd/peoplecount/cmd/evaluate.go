package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/peoplecount/internal/batch"
	"github.com/MeKo-Tech/peoplecount/internal/config"
	"github.com/MeKo-Tech/peoplecount/internal/groundtruth"
)

func newEvaluateCommand(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate [files or directories...]",
		Short: "Score detections against annotated ground truth",
		Long: `Detect people in every image found under the given paths, match the
centroid labels to the ground-truth points of the same image name and
report precision, recall, F1, accuracy and mean squared error per image
and micro-averaged over the whole run.

Ground truth is read from JSON, YAML or CSV. An image without annotations
or without detections has undefined accuracy; such images abort the run
unless --continue-on-error is set, in which case they are reported as
failed and still contribute their counts to the summary.

Examples:
  peoplecount evaluate images/ --ground-truth truth.json
  peoplecount evaluate a.png b.png --ground-truth truth.csv --threshold 25 --format json
  peoplecount evaluate images/ --ground-truth truth.yaml --workers 8 --progress --stats`,
		Args:         cobra.MinimumNArgs(1),
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.config()
			if err != nil {
				return err
			}
			applyDetectionFlags(cmd, cfg)
			applyOutputFlags(cmd, cfg)
			applyEvaluateFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}

			truthFile, _ := cmd.Flags().GetString("ground-truth")
			if truthFile == "" {
				return errors.New("--ground-truth is required")
			}
			truth, err := groundtruth.Load(truthFile)
			if err != nil {
				return err
			}
			return runEvaluate(cmd, cfg, truth, args)
		},
	}
	addDetectionFlags(cmd)
	addOutputFlags(cmd)
	f := cmd.Flags()
	f.StringP("ground-truth", "g", "", "ground-truth file (.json, .yaml, .csv)")
	f.Float64P("threshold", "t", config.DefaultConfig().Matching.Threshold,
		"maximum distance between a detection and its ground-truth point")
	f.IntP("workers", "w", config.DefaultConfig().Batch.Workers, "number of parallel workers")
	f.Bool("continue-on-error", false, "report failed images instead of aborting")
	f.BoolP("recursive", "r", true, "search directories recursively")
	f.StringSlice("include", nil, "glob patterns of files to include")
	f.StringSlice("exclude", nil, "glob patterns of files to exclude")
	f.Bool("progress", false, "show a progress bar on stderr")
	f.BoolP("quiet", "q", false, "suppress progress output")
	f.Bool("stats", false, "print processing statistics")
	return cmd
}

func applyEvaluateFlags(cmd *cobra.Command, cfg *config.Config) {
	f := cmd.Flags()
	if f.Changed("threshold") {
		cfg.Matching.Threshold, _ = f.GetFloat64("threshold")
	}
	if f.Changed("workers") {
		cfg.Batch.Workers, _ = f.GetInt("workers")
	}
	if f.Changed("continue-on-error") {
		cfg.Batch.ContinueOnError, _ = f.GetBool("continue-on-error")
	}
}

func runEvaluate(cmd *cobra.Command, cfg *config.Config, truth groundtruth.Set, paths []string) error {
	bc := cfg.ToBatchConfig()
	f := cmd.Flags()
	bc.Recursive, _ = f.GetBool("recursive")
	bc.IncludePatterns, _ = f.GetStringSlice("include")
	bc.ExcludePatterns, _ = f.GetStringSlice("exclude")
	bc.ShowProgress, _ = f.GetBool("progress")
	bc.Quiet, _ = f.GetBool("quiet")
	bc.ShowStats, _ = f.GetBool("stats")
	bc.ProgressWriter = cmd.ErrOrStderr()

	result, err := batch.Evaluate(cmd.Context(), paths, truth, bc)
	if err != nil {
		return fmt.Errorf("evaluation failed: %w", err)
	}

	out, closeOut, err := openOutput(cmd, bc.OutputFile)
	if err != nil {
		return err
	}
	defer func() { _ = closeOut() }()

	if err := result.WriteResults(out, bc.Format); err != nil {
		return err
	}
	if bc.ShowStats {
		result.PrintStats(cmd.ErrOrStderr())
	}
	return nil
}
