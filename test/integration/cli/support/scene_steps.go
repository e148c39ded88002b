package support

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/cucumber/godog"

	"github.com/MeKo-Tech/peoplecount/internal/groundtruth"
	"github.com/MeKo-Tech/peoplecount/internal/testutil"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// crowdScene lays out n people in a row, each a 7px blob 16px apart, so every
// centroid sits at (8+16i, 8) inside the top zone.
func crowdScene(n int) testutil.Scene {
	s := testutil.Scene{Width: 16*n + 16, Height: 48}
	for i := 0; i < n; i++ {
		s.People = append(s.People, testutil.Person{X: 5 + 16*i, Y: 5, Size: 7})
	}
	return s
}

// aCrowdImageWithPeople renders a synthetic crowd image into the scenario directory.
func (testCtx *TestContext) aCrowdImageWithPeople(name string, n int) error {
	s := crowdScene(n)
	if err := utils.SaveImage(testutil.RenderScene(s), testCtx.Path(name)); err != nil {
		return fmt.Errorf("failed to write scene %s: %w", name, err)
	}
	testCtx.Scenes[name] = s
	return nil
}

// theDefaultSceneImage renders the reference three-person scene.
func (testCtx *TestContext) theDefaultSceneImage(name string) error {
	s := testutil.DefaultScene()
	if err := utils.SaveImage(testutil.RenderScene(s), testCtx.Path(name)); err != nil {
		return fmt.Errorf("failed to write scene %s: %w", name, err)
	}
	testCtx.Scenes[name] = s
	return nil
}

// groundTruthMatchingScene writes ground truth whose points are the exact
// centroids of a previously rendered scene. Existing entries in the file are
// kept so several images can share one file.
func (testCtx *TestContext) groundTruthMatchingScene(file, image string) error {
	s, ok := testCtx.Scenes[image]
	if !ok {
		return fmt.Errorf("no scene named %s", image)
	}
	labels := make([]groundtruth.Label, 0, len(s.People))
	for _, p := range s.Centroids() {
		labels = append(labels, groundtruth.Label{Name: "Person", X: p.X, Y: p.Y})
	}
	return testCtx.addGroundTruth(file, image, labels)
}

// groundTruthWithPoints writes ground truth from "x,y;x,y" points.
func (testCtx *TestContext) groundTruthWithPoints(file, image, points string) error {
	labels, err := parsePoints(points)
	if err != nil {
		return err
	}
	return testCtx.addGroundTruth(file, image, labels)
}

func (testCtx *TestContext) addGroundTruth(file, image string, labels []groundtruth.Label) error {
	path := testCtx.Path(file)
	set := map[string][]groundtruth.Label{}
	if data, err := os.ReadFile(path); err == nil {
		if err := json.Unmarshal(data, &set); err != nil {
			return fmt.Errorf("existing ground truth %s: %w", file, err)
		}
	}
	set[image] = append(set[image], labels...)
	data, err := json.MarshalIndent(set, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func parsePoints(points string) ([]groundtruth.Label, error) {
	var labels []groundtruth.Label
	for _, p := range strings.Split(points, ";") {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		xy := strings.Split(p, ",")
		if len(xy) != 2 {
			return nil, fmt.Errorf("invalid point %q", p)
		}
		x, err := strconv.ParseFloat(strings.TrimSpace(xy[0]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid x in %q: %w", p, err)
		}
		y, err := strconv.ParseFloat(strings.TrimSpace(xy[1]), 64)
		if err != nil {
			return nil, fmt.Errorf("invalid y in %q: %w", p, err)
		}
		labels = append(labels, groundtruth.Label{Name: "Person", X: x, Y: y})
	}
	return labels, nil
}

// RegisterSceneSteps registers synthetic image and ground-truth steps.
func (testCtx *TestContext) RegisterSceneSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a crowd image "([^"]*)" with (\d+) people$`, testCtx.aCrowdImageWithPeople)
	sc.Step(`^the default scene image "([^"]*)"$`, testCtx.theDefaultSceneImage)
	sc.Step(`^ground truth "([^"]*)" for "([^"]*)" matching its people$`, testCtx.groundTruthMatchingScene)
	sc.Step(`^ground truth "([^"]*)" for "([^"]*)" with points "([^"]*)"$`, testCtx.groundTruthWithPoints)
}
