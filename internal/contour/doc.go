// Package contour finds the outer boundaries of foreground regions in a
// binary mask and computes their area and centroid.
//
// The default build uses a pure Go border follower that reproduces the
// external-retrieval, simple-chain behaviour of OpenCV's findContours.
// An OpenCV-backed finder can be linked with the build tag `gocv`:
//
//	go build -tags=gocv ./...
package contour
