package batch

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/MeKo-Tech/peoplecount/internal/metrics"
	"github.com/MeKo-Tech/peoplecount/internal/pipeline"
)

// Output formats.
const (
	FormatText = "text"
	FormatJSON = "json"
	FormatCSV  = "csv"
)

// Formats lists the supported output formats.
func Formats() []string { return []string{FormatText, FormatJSON, FormatCSV} }

// FormatDetection renders a single detection result. CSV output lists one
// label per row with the label_name,label_x,label_y columns.
func FormatDetection(res *pipeline.DetectionResult, format string) (string, error) {
	if res == nil {
		return "", fmt.Errorf("nil detection result")
	}
	switch format {
	case FormatJSON:
		bts, err := json.MarshalIndent(res, "", "  ")
		return string(bts) + "\n", err
	case FormatCSV:
		rows := [][]string{{"label_name", "label_x", "label_y"}}
		for _, l := range res.Labels {
			rows = append(rows, []string{l.Name, strconv.Itoa(l.X), strconv.Itoa(l.Y)})
		}
		return writeCSV(rows)
	default:
		var b strings.Builder
		if res.ImageID != "" {
			fmt.Fprintf(&b, "# %s\n", res.ImageID)
		}
		fmt.Fprintf(&b, "count: %d\n", res.Count)
		fmt.Fprintf(&b, "labels: %d\n", len(res.Labels))
		for _, l := range res.Labels {
			fmt.Fprintf(&b, "  %s (%d, %d)\n", l.Name, l.X, l.Y)
		}
		return b.String(), nil
	}
}

// formatEvaluation renders batch evaluation results in format.
func formatEvaluation(results []*pipeline.EvaluationResult, imagePaths []string, summary *metrics.Summary,
	format string) (string, error) {
	switch format {
	case FormatJSON:
		return formatJSON(results, imagePaths, summary)
	case FormatCSV:
		return formatCSV(results, imagePaths)
	default:
		return formatText(results, imagePaths, summary)
	}
}

type imageEntry struct {
	File       string                     `json:"file"`
	Evaluation *pipeline.EvaluationResult `json:"evaluation"`
}

type summaryEntry struct {
	*metrics.Summary
	Report *metrics.Report `json:"report,omitempty"`
	Error  string          `json:"error,omitempty"`
}

func formatJSON(results []*pipeline.EvaluationResult, imagePaths []string, summary *metrics.Summary) (string, error) {
	out := struct {
		Images  []imageEntry  `json:"images"`
		Summary *summaryEntry `json:"summary,omitempty"`
	}{Images: make([]imageEntry, len(results))}

	for i, r := range results {
		out.Images[i] = imageEntry{File: imagePaths[i], Evaluation: r}
	}
	if summary != nil {
		se := &summaryEntry{Summary: summary}
		rep, err := summary.Report()
		if err != nil {
			se.Error = err.Error()
		} else {
			se.Report = &rep
		}
		out.Summary = se
	}

	bts, err := json.MarshalIndent(out, "", "  ")
	return string(bts) + "\n", err
}

func formatCSV(results []*pipeline.EvaluationResult, imagePaths []string) (string, error) {
	rows := [][]string{{
		"file", "count", "labels", "tp", "fp", "fn", "precision", "recall", "f1", "accuracy", "mse", "error",
	}}
	for i, r := range results {
		if r == nil {
			rows = append(rows, []string{imagePaths[i], "", "", "", "", "", "", "", "", "", "", "not processed"})
			continue
		}
		count, labels := "", ""
		if r.Detection != nil {
			count = strconv.Itoa(r.Detection.Count)
			labels = strconv.Itoa(len(r.Detection.Labels))
		}
		rows = append(rows, []string{
			imagePaths[i],
			count,
			labels,
			strconv.Itoa(r.Match.TruePositives),
			strconv.Itoa(r.Match.FalsePositives),
			strconv.Itoa(r.Match.FalseNegatives),
			formatFloat(r.Report.Precision),
			formatFloat(r.Report.Recall),
			formatFloat(r.Report.F1),
			formatFloat(r.Report.Accuracy),
			formatFloat(r.Report.MeanSquaredError),
			r.Error,
		})
	}
	return writeCSV(rows)
}

func formatText(results []*pipeline.EvaluationResult, imagePaths []string, summary *metrics.Summary) (string, error) {
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n")
		}
		fmt.Fprintf(&b, "# %s\n", imagePaths[i])
		if r == nil {
			b.WriteString("not processed\n")
			continue
		}
		if r.Detection != nil {
			fmt.Fprintf(&b, "count: %d  labels: %d\n", r.Detection.Count, len(r.Detection.Labels))
			writeScores(&b, r.Report)
		}
		if r.Error != "" {
			fmt.Fprintf(&b, "error: %s\n", r.Error)
		}
	}

	if summary != nil {
		fmt.Fprintf(&b, "\n== summary: %d images, %d failed\n", summary.Images, summary.Failed)
		rep, err := summary.Report()
		if err != nil {
			fmt.Fprintf(&b, "error: %s\n", err)
		} else {
			writeScores(&b, rep)
		}
	}
	return b.String(), nil
}

func writeScores(b *strings.Builder, r metrics.Report) {
	fmt.Fprintf(b, "tp=%d fp=%d fn=%d precision=%s recall=%s f1=%s accuracy=%s mse=%s\n",
		r.TruePositives, r.FalsePositives, r.FalseNegatives,
		formatFloat(r.Precision), formatFloat(r.Recall), formatFloat(r.F1),
		formatFloat(r.Accuracy), formatFloat(r.MeanSquaredError))
}

func formatFloat(v float64) string { return strconv.FormatFloat(v, 'f', 3, 64) }

func writeCSV(rows [][]string) (string, error) {
	var out strings.Builder
	w := csv.NewWriter(&out)
	if err := w.WriteAll(rows); err != nil {
		return "", err
	}
	return out.String(), nil
}
