package cmd

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"slices"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/MeKo-Tech/peoplecount/internal/batch"
	"github.com/MeKo-Tech/peoplecount/internal/groundtruth"
	"github.com/MeKo-Tech/peoplecount/internal/matching"
	"github.com/MeKo-Tech/peoplecount/internal/metrics"
)

// imageScore is the score of one image in a label-file comparison.
type imageScore struct {
	Image  string          `json:"image"`
	Match  matching.Result `json:"match"`
	Report metrics.Report  `json:"report"`
	Error  string          `json:"error,omitempty"`
}

// matchOutput is the full result of the match command.
type matchOutput struct {
	Images  []imageScore     `json:"images"`
	Summary *metrics.Summary `json:"summary"`
	Report  *metrics.Report  `json:"report,omitempty"`
	Error   string           `json:"error,omitempty"`
}

func newMatchCommand(st *cliState) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "match",
		Short: "Score a predicted label file against a ground-truth file",
		Long: `Match predicted labels to ground-truth labels image by image without
running detection. Both files use the ground-truth formats (JSON, YAML or
CSV with image,label_name,label_x,label_y columns).

Every image named in either file is scored; an image present on one side
only has undefined accuracy and is reported with an error.

Examples:
  peoplecount match --predicted predictions.json --truth truth.json
  peoplecount match --predicted predictions.csv --truth truth.csv --threshold 10 --format json`,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := st.config()
			if err != nil {
				return err
			}
			applyOutputFlags(cmd, cfg)
			applyEvaluateFlags(cmd, cfg)
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid options: %w", err)
			}

			predFile, _ := cmd.Flags().GetString("predicted")
			truthFile, _ := cmd.Flags().GetString("truth")
			if predFile == "" || truthFile == "" {
				return errors.New("--predicted and --truth are required")
			}
			predicted, err := groundtruth.Load(predFile)
			if err != nil {
				return fmt.Errorf("predicted labels: %w", err)
			}
			truth, err := groundtruth.Load(truthFile)
			if err != nil {
				return fmt.Errorf("ground truth: %w", err)
			}

			res := matchSets(predicted, truth, cfg.Matching.Threshold)
			out, closeOut, err := openOutput(cmd, cfg.Output.File)
			if err != nil {
				return err
			}
			defer func() { _ = closeOut() }()
			return writeMatchOutput(out, res, cfg.Output.Format)
		},
	}
	f := cmd.Flags()
	f.StringP("predicted", "p", "", "predicted label file")
	f.StringP("truth", "g", "", "ground-truth label file")
	f.Float64P("threshold", "t", matching.DefaultThreshold,
		"maximum distance between a prediction and its ground-truth point")
	f.StringP("format", "f", batch.FormatText, "output format (text, json, csv)")
	f.StringP("output", "o", "", "output file (default: stdout)")
	return cmd
}

// matchSets scores every image named in either set, in name order.
func matchSets(predicted, truth groundtruth.Set, threshold float64) *matchOutput {
	keys := make([]string, 0, len(predicted)+len(truth))
	for k := range predicted {
		keys = append(keys, k)
	}
	for k := range truth {
		if _, ok := predicted[k]; !ok {
			keys = append(keys, k)
		}
	}
	slices.Sort(keys)

	out := &matchOutput{Images: make([]imageScore, 0, len(keys)), Summary: &metrics.Summary{}}
	for _, k := range keys {
		rep, m, err := metrics.Evaluate(predicted.Points(k), truth, k, threshold)
		score := imageScore{Image: k, Match: m, Report: rep}
		out.Summary.Add(m)
		if err != nil {
			score.Error = err.Error()
			out.Summary.AddFailure()
			slog.Warn("Image not scored", "image", k, "error", err)
		}
		out.Images = append(out.Images, score)
	}

	rep, err := out.Summary.Report()
	if err != nil {
		out.Error = err.Error()
	} else {
		out.Report = &rep
	}
	return out
}

func writeMatchOutput(w io.Writer, res *matchOutput, format string) error {
	switch format {
	case batch.FormatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(res)
	case batch.FormatCSV:
		cw := csv.NewWriter(w)
		_ = cw.Write([]string{"image", "tp", "fp", "fn", "precision", "recall", "f1", "accuracy", "mse", "error"})
		for _, s := range res.Images {
			_ = cw.Write([]string{
				s.Image,
				strconv.Itoa(s.Match.TruePositives),
				strconv.Itoa(s.Match.FalsePositives),
				strconv.Itoa(s.Match.FalseNegatives),
				formatScore(s.Report.Precision),
				formatScore(s.Report.Recall),
				formatScore(s.Report.F1),
				formatScore(s.Report.Accuracy),
				formatScore(s.Report.MeanSquaredError),
				s.Error,
			})
		}
		cw.Flush()
		return cw.Error()
	default:
		var b strings.Builder
		for _, s := range res.Images {
			fmt.Fprintf(&b, "# %s\n", s.Image)
			writeReport(&b, s.Report)
			if s.Error != "" {
				fmt.Fprintf(&b, "error: %s\n", s.Error)
			}
		}
		fmt.Fprintf(&b, "\n== summary: %d images, %d failed\n", res.Summary.Images, res.Summary.Failed)
		if res.Report != nil {
			writeReport(&b, *res.Report)
		} else {
			fmt.Fprintf(&b, "error: %s\n", res.Error)
		}
		_, err := io.WriteString(w, b.String())
		return err
	}
}

func writeReport(b *strings.Builder, r metrics.Report) {
	fmt.Fprintf(b, "tp=%d fp=%d fn=%d precision=%s recall=%s f1=%s accuracy=%s mse=%s\n",
		r.TruePositives, r.FalsePositives, r.FalseNegatives,
		formatScore(r.Precision), formatScore(r.Recall), formatScore(r.F1),
		formatScore(r.Accuracy), formatScore(r.MeanSquaredError))
}

func formatScore(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }
