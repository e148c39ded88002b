// Package groundtruth loads annotated person positions keyed by image name.
package groundtruth

import (
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path"
	"path/filepath"
	"strconv"
	"strings"

	"golang.org/x/text/unicode/norm"
	"gopkg.in/yaml.v3"

	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// ErrUnsupportedFormat is returned for files whose extension has no loader.
var ErrUnsupportedFormat = errors.New("groundtruth: unsupported file format")

// Label is one annotated position.
type Label struct {
	Name string  `json:"label_name" yaml:"label_name"`
	X    float64 `json:"label_x"    yaml:"label_x"`
	Y    float64 `json:"label_y"    yaml:"label_y"`
}

// Set maps normalised image names to their annotations.
type Set map[string][]Label

// Key normalises an image identifier: base name only, NFC form.
func Key(imageID string) string {
	id := strings.ReplaceAll(strings.TrimSpace(imageID), `\`, "/")
	return norm.NFC.String(path.Base(id))
}

// Add appends labels for an image.
func (s Set) Add(imageID string, labels ...Label) {
	k := Key(imageID)
	s[k] = append(s[k], labels...)
}

// Lookup returns the labels of an image, or nil if it has none.
func (s Set) Lookup(imageID string) []Label {
	return s[Key(imageID)]
}

// Points returns the label positions of an image in file order.
func (s Set) Points(imageID string) []utils.Point {
	labels := s.Lookup(imageID)
	if len(labels) == 0 {
		return nil
	}
	pts := make([]utils.Point, len(labels))
	for i, l := range labels {
		pts[i] = utils.Point{X: l.X, Y: l.Y}
	}
	return pts
}

// Images returns the number of annotated images.
func (s Set) Images() int { return len(s) }

// Load reads a ground-truth file. The format follows the extension:
// .json and .yaml/.yml hold an object of image name to label list, .csv holds
// rows of image,label_name,label_x,label_y under a header.
func Load(file string) (Set, error) {
	f, err := os.Open(file) //nolint:gosec // G304: user-provided annotation file
	if err != nil {
		return nil, fmt.Errorf("open ground truth: %w", err)
	}
	defer func() { _ = f.Close() }()

	switch strings.ToLower(filepath.Ext(file)) {
	case ".json":
		return DecodeJSON(f)
	case ".yaml", ".yml":
		return DecodeYAML(f)
	case ".csv":
		return DecodeCSV(f)
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, filepath.Ext(file))
	}
}

// DecodeJSON parses the JSON object form.
func DecodeJSON(r io.Reader) (Set, error) {
	var raw map[string][]Label
	if err := json.NewDecoder(r).Decode(&raw); err != nil {
		return nil, fmt.Errorf("decode ground truth json: %w", err)
	}
	return fromMap(raw), nil
}

// DecodeYAML parses the YAML mapping form.
func DecodeYAML(r io.Reader) (Set, error) {
	var raw map[string][]Label
	if err := yaml.NewDecoder(r).Decode(&raw); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("decode ground truth yaml: %w", err)
	}
	return fromMap(raw), nil
}

// DecodeCSV parses image,label_name,label_x,label_y rows. The header is
// required; columns are located by name.
func DecodeCSV(r io.Reader) (Set, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true
	header, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return Set{}, nil
		}
		return nil, fmt.Errorf("read ground truth header: %w", err)
	}
	col := map[string]int{}
	for i, h := range header {
		col[strings.ToLower(strings.TrimSpace(h))] = i
	}
	for _, name := range []string{"image", "label_x", "label_y"} {
		if _, ok := col[name]; !ok {
			return nil, fmt.Errorf("ground truth csv: missing column %q", name)
		}
	}

	set := Set{}
	line := 1
	for {
		rec, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		}
		line++
		if err != nil {
			return nil, fmt.Errorf("ground truth csv line %d: %w", line, err)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(rec[col["label_x"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("ground truth csv line %d: label_x: %w", line, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(rec[col["label_y"]]), 64)
		if err != nil {
			return nil, fmt.Errorf("ground truth csv line %d: label_y: %w", line, err)
		}
		l := Label{Name: "Person", X: x, Y: y}
		if i, ok := col["label_name"]; ok && strings.TrimSpace(rec[i]) != "" {
			l.Name = strings.TrimSpace(rec[i])
		}
		set.Add(rec[col["image"]], l)
	}
	return set, nil
}

func fromMap(raw map[string][]Label) Set {
	set := make(Set, len(raw))
	for k, v := range raw {
		set.Add(k, v...)
	}
	return set
}
