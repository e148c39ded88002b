// Package common provides shared timing helpers for the detection pipeline.
package common

import (
	"fmt"
	"time"
)

// Timer measures one named stage.
type Timer struct {
	start    time.Time
	name     string
	duration time.Duration
}

// NewTimer starts an unnamed timer.
func NewTimer() *Timer {
	return &Timer{start: time.Now()}
}

// NewNamedTimer starts a timer labelled with a stage name.
func NewNamedTimer(name string) *Timer {
	return &Timer{name: name, start: time.Now()}
}

// Stop records and returns the elapsed time. Calling Stop again extends the
// measurement to the new instant.
func (t *Timer) Stop() time.Duration {
	t.duration = time.Since(t.start)
	return t.duration
}

// Duration returns the time recorded by the last Stop.
func (t *Timer) Duration() time.Duration { return t.duration }

// Nanoseconds is Duration as an int64, the unit used in JSON results.
func (t *Timer) Nanoseconds() int64 { return t.duration.Nanoseconds() }

// Name returns the stage name.
func (t *Timer) Name() string { return t.name }

func (t *Timer) String() string {
	if t.name != "" {
		return fmt.Sprintf("%s: %v", t.name, t.duration)
	}
	return t.duration.String()
}

// Stage is a finished timing entry.
type Stage struct {
	Name       string `json:"name"`
	DurationNs int64  `json:"duration_ns"`
}

// Stages collects stage timings in the order they finished.
type Stages []Stage

// Track starts a timer for name and returns the function that stops it and
// appends the entry.
func (s *Stages) Track(name string) func() time.Duration {
	t := NewNamedTimer(name)
	return func() time.Duration {
		d := t.Stop()
		*s = append(*s, Stage{Name: name, DurationNs: d.Nanoseconds()})
		return d
	}
}

// Get returns the recorded duration of name, or 0 if it never ran.
func (s Stages) Get(name string) time.Duration {
	for _, st := range s {
		if st.Name == name {
			return time.Duration(st.DurationNs)
		}
	}
	return 0
}

// Total sums every recorded stage.
func (s Stages) Total() time.Duration {
	var sum int64
	for _, st := range s {
		sum += st.DurationNs
	}
	return time.Duration(sum)
}
