package common

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTimer(t *testing.T) {
	timer := NewNamedTimer("detect")
	assert.Equal(t, "detect", timer.Name())

	time.Sleep(5 * time.Millisecond)

	d := timer.Stop()
	assert.GreaterOrEqual(t, d, 5*time.Millisecond)
	assert.Equal(t, d, timer.Duration())
	assert.Equal(t, d.Nanoseconds(), timer.Nanoseconds())
	assert.Contains(t, timer.String(), "detect: ")
}

func TestTimer_Unnamed(t *testing.T) {
	timer := NewTimer()
	timer.Stop()
	assert.NotContains(t, timer.String(), ":")
}

func TestStages(t *testing.T) {
	var s Stages
	stopPre := s.Track("preprocess")
	time.Sleep(2 * time.Millisecond)
	stopPre()
	s.Track("detect")()

	require.Len(t, s, 2)
	assert.Equal(t, "preprocess", s[0].Name)
	assert.Equal(t, "detect", s[1].Name)
	assert.GreaterOrEqual(t, s.Get("preprocess"), 2*time.Millisecond)
	assert.Zero(t, s.Get("match"))
	assert.Equal(t, s.Get("preprocess")+s.Get("detect"), s.Total())
}
