package testutil

import (
	"image"
	"image/color"
	"image/draw"
	"path/filepath"
	"testing"

	"github.com/disintegration/imaging"
	"github.com/stretchr/testify/require"
	"golang.org/x/image/font"
	"golang.org/x/image/font/basicfont"
	"golang.org/x/image/math/fixed"

	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

// Person is a filled square blob standing in for one head in a scene.
// X and Y are the top-left pixel; Size is the side length.
type Person struct {
	X, Y, Size int
}

// Scene describes a synthetic crowd image.
type Scene struct {
	Width      int
	Height     int
	People     []Person
	Background color.Color
	Foreground color.Color
	// Caption is drawn near the bottom edge when set.
	Caption string
}

// DefaultScene returns a 64x48 black scene with three 7px people, sized so
// every blob passes the default area filter of the first zone.
func DefaultScene() Scene {
	return Scene{
		Width:      64,
		Height:     48,
		Background: color.Black,
		Foreground: color.White,
		People: []Person{
			{X: 5, Y: 5, Size: 7},
			{X: 30, Y: 10, Size: 7},
			{X: 12, Y: 30, Size: 7},
		},
	}
}

// RenderScene draws s as an RGBA image.
func RenderScene(s Scene) *image.RGBA {
	bg, fg := s.Background, s.Foreground
	if bg == nil {
		bg = color.Black
	}
	if fg == nil {
		fg = color.White
	}
	img := image.NewRGBA(image.Rect(0, 0, s.Width, s.Height))
	draw.Draw(img, img.Bounds(), &image.Uniform{bg}, image.Point{}, draw.Src)
	for _, p := range s.People {
		r := image.Rect(p.X, p.Y, p.X+p.Size, p.Y+p.Size)
		draw.Draw(img, r, &image.Uniform{fg}, image.Point{}, draw.Src)
	}
	if s.Caption != "" {
		d := &font.Drawer{Dst: img, Src: &image.Uniform{fg}, Face: basicfont.Face7x13}
		d.Dot = fixed.P(2, s.Height-2)
		d.DrawString(s.Caption)
	}
	return img
}

// Centroids returns the label position the detector produces for each
// person: the integer-truncated centroid of the square's border polygon.
func (s Scene) Centroids() []utils.Point {
	pts := make([]utils.Point, len(s.People))
	for i, p := range s.People {
		off := (p.Size - 1) / 2
		pts[i] = utils.Point{X: float64(p.X + off), Y: float64(p.Y + off)}
	}
	return pts
}

// CreateTestImage creates a uniform image of the given size.
func CreateTestImage(width, height int, background color.Color) image.Image {
	img := image.NewRGBA(image.Rect(0, 0, width, height))
	draw.Draw(img, img.Bounds(), &image.Uniform{background}, image.Point{}, draw.Src)
	return img
}

// SaveImage writes img to path, creating parent directories. The format
// follows the file extension.
func SaveImage(t *testing.T, img image.Image, path string) {
	t.Helper()
	require.NoError(t, EnsureDir(filepath.Dir(path)), "create directory for %s", path)
	require.NoError(t, imaging.Save(img, path), "save image %s", path)
}

// WriteScene renders s into dir/name and returns the file path.
func WriteScene(t *testing.T, dir, name string, s Scene) string {
	t.Helper()
	path := filepath.Join(dir, name)
	SaveImage(t, RenderScene(s), path)
	return path
}

// LoadImage decodes the image at path.
func LoadImage(t *testing.T, path string) image.Image {
	t.Helper()
	img, err := imaging.Open(path)
	require.NoError(t, err, "open image %s", path)
	return img
}
