//go:build !gocv

package contour

func newGoCVFinder() (Finder, error) { return nil, ErrNoBackend }

// GoCVAvailable reports whether the OpenCV finder is linked.
func GoCVAvailable() bool { return false }
