package plan

import (
	"image"

	"github.com/anthonynsimon/bild/blur"
	"github.com/anthonynsimon/bild/segment"
	"github.com/disintegration/imaging"
)

// BinaryMask is a foreground/background grid with the same dimensions
// as the source image. Derived, transient: one mask per detection call.
type BinaryMask struct {
	Width  int
	Height int
	Pix    []bool
}

// NewBinaryMask returns an all-background mask.
func NewBinaryMask(width, height int) *BinaryMask {
	return &BinaryMask{
		Width:  width,
		Height: height,
		Pix:    make([]bool, width*height),
	}
}

// At reports whether (x, y) is foreground. Out-of-bounds coordinates
// are background, which keeps boundary tracing free of edge checks.
func (m *BinaryMask) At(x, y int) bool {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return false
	}
	return m.Pix[y*m.Width+x]
}

// Set marks (x, y) as foreground or background.
func (m *BinaryMask) Set(x, y int, v bool) {
	if x < 0 || y < 0 || x >= m.Width || y >= m.Height {
		return
	}
	m.Pix[y*m.Width+x] = v
}

// Count returns the number of foreground pixels.
func (m *BinaryMask) Count() int {
	n := 0
	for _, v := range m.Pix {
		if v {
			n++
		}
	}
	return n
}

// Preprocess converts a raster image into a binary mask where wall
// strokes are foreground. Steps: grayscale, polarity normalization,
// Gaussian blur, Otsu threshold, morphological close then open.
// Deterministic for a fixed image and config.
func Preprocess(img image.Image, cfg DetectionConfig) *BinaryMask {
	gray := imaging.Grayscale(img)

	// Polarity rule, fixed: floor plans are typically dark strokes on a
	// light background, so a mean intensity above mid-range means the
	// image must be inverted to make strokes bright.
	if meanIntensity(gray) > 127.5 {
		gray = imaging.Invert(gray)
	}

	radius := float64(cfg.LineThickness) / 2.0
	if radius < 1 {
		radius = 1
	}
	blurred := blur.Gaussian(gray, radius)

	level := otsuLevel(blurred)
	binary := segment.Threshold(blurred, level)

	mask := maskFromGray(binary)

	kernel := cfg.LineThickness
	if kernel < 3 {
		kernel = 3
	}
	if kernel%2 == 0 {
		kernel++
	}

	// Close bridges gaps in wall strokes, open removes speckle noise.
	mask = morphClose(mask, kernel, 2)
	mask = morphOpen(mask, kernel, 1)

	return mask
}

// meanIntensity returns the average gray value over all pixels.
func meanIntensity(img *image.NRGBA) float64 {
	b := img.Bounds()
	if b.Dx() == 0 || b.Dy() == 0 {
		return 0
	}
	var sum uint64
	for y := b.Min.Y; y < b.Max.Y; y++ {
		row := img.Pix[(y-b.Min.Y)*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			sum += uint64(row[x*4])
		}
	}
	return float64(sum) / float64(b.Dx()*b.Dy())
}

// otsuLevel computes the global threshold that maximizes between-class
// variance of the intensity histogram.
func otsuLevel(img image.Image) uint8 {
	var hist [256]int
	total := 0

	b := img.Bounds()
	gray := imaging.Grayscale(img)
	for y := 0; y < b.Dy(); y++ {
		row := gray.Pix[y*gray.Stride:]
		for x := 0; x < b.Dx(); x++ {
			hist[row[x*4]]++
			total++
		}
	}
	if total == 0 {
		return 128
	}

	var sumAll float64
	for i, n := range hist {
		sumAll += float64(i) * float64(n)
	}

	var sumBack float64
	var weightBack int
	// A uniform image never produces a two-class split; returning the
	// top level leaves the mask empty instead of all-foreground.
	bestLevel := 255
	bestVariance := 0.0

	for t := 0; t < 256; t++ {
		weightBack += hist[t]
		if weightBack == 0 {
			continue
		}
		weightFore := total - weightBack
		if weightFore == 0 {
			break
		}

		sumBack += float64(t) * float64(hist[t])
		meanBack := sumBack / float64(weightBack)
		meanFore := (sumAll - sumBack) / float64(weightFore)

		diff := meanBack - meanFore
		variance := float64(weightBack) * float64(weightFore) * diff * diff
		if variance > bestVariance {
			bestVariance = variance
			bestLevel = t
		}
	}

	return uint8(bestLevel)
}

// maskFromGray converts a thresholded grayscale image to a mask.
// White pixels are foreground.
func maskFromGray(img *image.Gray) *BinaryMask {
	b := img.Bounds()
	mask := NewBinaryMask(b.Dx(), b.Dy())
	for y := 0; y < b.Dy(); y++ {
		row := img.Pix[y*img.Stride:]
		for x := 0; x < b.Dx(); x++ {
			if row[x] >= 128 {
				mask.Pix[y*mask.Width+x] = true
			}
		}
	}
	return mask
}

// dilate sets every pixel with a foreground neighbor within the square
// kernel to foreground.
func dilate(m *BinaryMask, kernel int) *BinaryMask {
	r := kernel / 2
	out := NewBinaryMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
		for x := 0; x < m.Width; x++ {
			if m.Pix[y*m.Width+x] {
				for dy := -r; dy <= r; dy++ {
					for dx := -r; dx <= r; dx++ {
						out.Set(x+dx, y+dy, true)
					}
				}
			}
		}
	}
	return out
}

// erode keeps only pixels whose entire square neighborhood is foreground.
func erode(m *BinaryMask, kernel int) *BinaryMask {
	r := kernel / 2
	out := NewBinaryMask(m.Width, m.Height)
	for y := 0; y < m.Height; y++ {
	pixels:
		for x := 0; x < m.Width; x++ {
			if !m.Pix[y*m.Width+x] {
				continue
			}
			for dy := -r; dy <= r; dy++ {
				for dx := -r; dx <= r; dx++ {
					if !m.At(x+dx, y+dy) {
						continue pixels
					}
				}
			}
			out.Pix[y*out.Width+x] = true
		}
	}
	return out
}

// morphClose runs dilate-then-erode for the given iteration count,
// bridging small gaps between nearby strokes.
func morphClose(m *BinaryMask, kernel, iterations int) *BinaryMask {
	for i := 0; i < iterations; i++ {
		m = dilate(m, kernel)
	}
	for i := 0; i < iterations; i++ {
		m = erode(m, kernel)
	}
	return m
}

// morphOpen runs erode-then-dilate, removing isolated speckle smaller
// than the kernel.
func morphOpen(m *BinaryMask, kernel, iterations int) *BinaryMask {
	for i := 0; i < iterations; i++ {
		m = erode(m, kernel)
	}
	for i := 0; i < iterations; i++ {
		m = dilate(m, kernel)
	}
	return m
}
