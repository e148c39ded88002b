package contour

import (
	"errors"
	"fmt"
	"strings"
)

// Backend names accepted by NewFinder.
const (
	BackendNative = "native"
	BackendGoCV   = "gocv"
)

// ErrNoBackend is returned when a backend was requested that is not linked into the binary.
var ErrNoBackend = errors.New("contour: backend not linked; build with -tags=gocv to enable the OpenCV finder")

// Finder extracts outer contours from a mask.
type Finder interface {
	FindExternal(m *Mask) []Contour
	Name() string
}

// NativeFinder is the pure Go border follower.
type NativeFinder struct{}

// FindExternal implements Finder.
func (NativeFinder) FindExternal(m *Mask) []Contour { return findExternal(m) }

// Name implements Finder.
func (NativeFinder) Name() string { return BackendNative }

// NewFinder returns the finder registered under name. An empty name selects the native finder.
func NewFinder(name string) (Finder, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", BackendNative:
		return NativeFinder{}, nil
	case BackendGoCV:
		return newGoCVFinder()
	default:
		return nil, fmt.Errorf("contour: unknown backend %q", name)
	}
}

// FindExternal runs the native finder on m.
func FindExternal(m *Mask) []Contour { return findExternal(m) }
