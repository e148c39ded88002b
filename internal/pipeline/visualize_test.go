package pipeline

import (
	"image"
	"image/color"
	"testing"

	"github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MeKo-Tech/peoplecount/internal/testutil"
	"github.com/MeKo-Tech/peoplecount/internal/utils"
)

func TestParseOverlayColor(t *testing.T) {
	c, err := ParseOverlayColor("")
	require.NoError(t, err)
	assert.Equal(t, "#ff0000", c.Hex())

	c, err = ParseOverlayColor("#00ff00")
	require.NoError(t, err)
	assert.Equal(t, "#00ff00", c.Hex())

	_, err = ParseOverlayColor("green")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "green")
}

func TestComplement(t *testing.T) {
	red, _ := ParseOverlayColor("#FF0000")
	comp, ok := colorful.MakeColor(Complement(red))
	require.True(t, ok)
	assert.Equal(t, "#00ffff", comp.Hex())
}

func TestRenderOverlay(t *testing.T) {
	p := newMaskPipeline(t)
	scene := testutil.DefaultScene()
	scene.Foreground = color.Gray{Y: 80}
	img := testutil.RenderScene(scene)

	res, err := p.DetectImage(img)
	require.NoError(t, err)

	red, _ := ParseOverlayColor("#FF0000")
	blue := color.RGBA{0, 0, 255, 255}
	out := RenderOverlay(img, res, OverlayOptions{
		Color:       red,
		TruthColor:  blue,
		Truth:       []utils.Point{{X: 50, Y: 40}},
		TruthRadius: 3,
	})
	require.NotNil(t, out)
	assert.Equal(t, img.Bounds(), out.Bounds())

	// Contour corner and centroid cross use the overlay colour.
	p0 := scene.People[0]
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(p0.X, p0.Y))
	c0 := scene.Centroids()[0].Round()
	assert.Equal(t, color.RGBA{255, 0, 0, 255}, out.RGBAAt(c0.X, c0.Y))

	// Truth circle passes through (53, 40).
	assert.Equal(t, blue, out.RGBAAt(53, 40))

	// Source untouched.
	assert.Equal(t, color.RGBA{80, 80, 80, 255}, img.RGBAAt(p0.X, p0.Y))
}

func TestRenderOverlay_Nil(t *testing.T) {
	assert.Nil(t, RenderOverlay(nil, nil, OverlayOptions{}))

	img := image.NewRGBA(image.Rect(0, 0, 3, 3))
	img.Set(1, 1, color.White)
	out := RenderOverlay(img, nil, OverlayOptions{})
	assert.Equal(t, img.Pix, out.Pix)
}
