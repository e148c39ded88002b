//go:build !gocv

package contour

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewFinder_GoCVWithoutTag(t *testing.T) {
	f, err := NewFinder(BackendGoCV)
	assert.Nil(t, f)
	assert.True(t, errors.Is(err, ErrNoBackend))
	assert.False(t, GoCVAvailable())
}
