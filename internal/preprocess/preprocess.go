// Package preprocess turns camera frames into binary masks for contour detection.
//
// Every method produces a mask where foreground pixels are 255:
//
//   - canny: Gaussian blur followed by Canny edge detection
//   - histeq: histogram equalisation followed by a binary threshold
//   - laplacian: 3x3 Laplacian high-pass, absolute value, binary threshold
//   - none: the input is already a mask; any non-zero luminance is foreground
package preprocess

import (
	"fmt"
	"image"
	"strings"

	"github.com/disintegration/gift"

	"github.com/MeKo-Tech/peoplecount/internal/contour"
)

// Method names.
const (
	MethodCanny     = "canny"
	MethodHistEq    = "histeq"
	MethodLaplacian = "laplacian"
	MethodNone      = "none"
)

// Methods lists the supported method names.
func Methods() []string {
	return []string{MethodCanny, MethodHistEq, MethodLaplacian, MethodNone}
}

// Config controls mask generation.
type Config struct {
	Method    string
	BlurSigma float32 // Gaussian sigma ahead of Canny; 1.1 matches a 5x5 kernel
	CannyLow  float64 // Hysteresis low threshold on the gradient magnitude
	CannyHigh float64 // Hysteresis high threshold on the gradient magnitude
	Threshold uint8   // Pixels strictly above this become foreground (histeq, laplacian)
}

// DefaultConfig returns the reference preprocessing parameters.
func DefaultConfig() Config {
	return Config{
		Method:    MethodCanny,
		BlurSigma: 1.1,
		CannyLow:  50,
		CannyHigh: 200,
		Threshold: 50,
	}
}

// Preprocessor converts images to masks with a fixed method.
type Preprocessor struct {
	cfg Config
}

// New validates cfg and returns a preprocessor.
func New(cfg Config) (*Preprocessor, error) {
	cfg.Method = strings.ToLower(strings.TrimSpace(cfg.Method))
	if cfg.Method == "" {
		cfg.Method = MethodCanny
	}
	switch cfg.Method {
	case MethodCanny, MethodHistEq, MethodLaplacian, MethodNone:
	default:
		return nil, fmt.Errorf("preprocess: unknown method %q (want one of %s)",
			cfg.Method, strings.Join(Methods(), ", "))
	}
	if cfg.CannyLow > cfg.CannyHigh {
		return nil, fmt.Errorf("preprocess: canny low threshold %v above high threshold %v",
			cfg.CannyLow, cfg.CannyHigh)
	}
	return &Preprocessor{cfg: cfg}, nil
}

// Method returns the configured method name.
func (p *Preprocessor) Method() string { return p.cfg.Method }

// Apply produces the mask for img.
func (p *Preprocessor) Apply(img image.Image) *contour.Mask {
	switch p.cfg.Method {
	case MethodHistEq:
		return HistEqualize(img, p.cfg.Threshold)
	case MethodLaplacian:
		return Laplacian(img, p.cfg.Threshold)
	case MethodNone:
		return contour.FromImage(img)
	default:
		return GaussianCanny(img, p.cfg.BlurSigma, p.cfg.CannyLow, p.cfg.CannyHigh)
	}
}

// grayscale renders img through the given filters into an 8-bit gray image
// with its origin at (0, 0).
func grayscale(img image.Image, filters ...gift.Filter) *image.Gray {
	g := gift.New(append([]gift.Filter{gift.Grayscale()}, filters...)...)
	b := g.Bounds(img.Bounds())
	dst := image.NewGray(image.Rect(0, 0, b.Dx(), b.Dy()))
	g.Draw(dst, img)
	return dst
}
