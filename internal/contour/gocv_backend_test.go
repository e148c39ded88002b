//go:build gocv

package contour

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewFinder_GoCV(t *testing.T) {
	f, err := NewFinder(BackendGoCV)
	require.NoError(t, err)
	assert.Equal(t, BackendGoCV, f.Name())
	assert.True(t, GoCVAvailable())
}

func TestGoCVFinder_MatchesNative(t *testing.T) {
	tests := []struct {
		name string
		mask *Mask
	}{
		{"filled square", maskFromArt(
			".....",
			".###.",
			".###.",
			".###.",
			".....",
		)},
		{"touching border", maskFromArt(
			"###",
			"###",
			"###",
		)},
		{"region inside hole", maskFromArt(
			".........",
			".#######.",
			".#.....#.",
			".#.....#.",
			".#..#..#.",
			".#.....#.",
			".#.....#.",
			".#######.",
			".........",
		)},
		{"raster order", maskFromArt(
			"..........",
			"......##..",
			"......##..",
			"..........",
			".##.......",
			".##.......",
			"..........",
		)},
		{"empty", NewMask(4, 4)},
	}

	native := NativeFinder{}
	ocv := gocvFinder{}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			want := native.FindExternal(tt.mask)
			got := ocv.FindExternal(tt.mask)
			require.Len(t, got, len(want))
			for i := range want {
				assert.Equal(t, want[i].Bounds(), got[i].Bounds(), "contour %d bounds", i)
				assert.InDelta(t, Area(want[i]), Area(got[i]), 1e-9, "contour %d area", i)
				assert.Equal(t, want[i][0], got[i][0], "contour %d start point", i)
			}
		})
	}
}

func TestGoCVFinder_RasterOrder(t *testing.T) {
	m := maskFromArt(
		"..........",
		"......##..",
		"......##..",
		"..........",
		".##.......",
		".##.......",
		"..........",
	)
	got := gocvFinder{}.FindExternal(m)
	require.Len(t, got, 2)
	assert.Equal(t, 1, got[0][0].Y)
	assert.Equal(t, 4, got[1][0].Y)
}
