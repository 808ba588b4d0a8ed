// Package feature turns a cropped bird region into a fixed-length,
// normalized embedding. The descriptor is deliberately simple: color
// histograms capture plumage distribution and a local binary pattern
// histogram captures micro-texture. Same pixels always produce the
// same vector.
package feature

import (
	"image"
	"math"

	xdraw "golang.org/x/image/draw"
)

// Dimension is the embedding length: 32 bins each for R, G, B and the
// LBP texture histogram.
const Dimension = 128

const (
	histBins   = 32
	canvasSize = 64
	epsilon    = 1e-8
)

// Extractor computes an embedding from an image region. Implemented
// locally by HistogramExtractor; kept as an interface so the resolver
// can be exercised with fixed vectors in tests.
type Extractor interface {
	Extract(region image.Image) []float32
	Dimension() int
}

// HistogramExtractor is the deterministic color + texture descriptor.
type HistogramExtractor struct{}

func NewHistogramExtractor() *HistogramExtractor {
	return &HistogramExtractor{}
}

func (e *HistogramExtractor) Dimension() int {
	return Dimension
}

// Extract returns a normalized Dimension-length embedding, or nil for
// an empty or degenerate region. Callers treat nil as "no embedding
// available", not as an error.
func (e *HistogramExtractor) Extract(region image.Image) []float32 {
	if region == nil {
		return nil
	}
	bounds := region.Bounds()
	if bounds.Dx() < 1 || bounds.Dy() < 1 {
		return nil
	}

	canvas := resize(region)
	gray := grayscale(canvas)

	features := make([]float32, 0, Dimension)
	features = append(features, colorHistogram(canvas, 0)...)
	features = append(features, colorHistogram(canvas, 1)...)
	features = append(features, colorHistogram(canvas, 2)...)
	features = append(features, lbpHistogram(gray)...)

	return normalize(features)
}

// resize scales the region onto a fixed square canvas so histograms
// are comparable across capture resolutions.
func resize(src image.Image) *image.RGBA {
	dst := image.NewRGBA(image.Rect(0, 0, canvasSize, canvasSize))
	xdraw.ApproxBiLinear.Scale(dst, dst.Bounds(), src, src.Bounds(), xdraw.Src, nil)
	return dst
}

func grayscale(img *image.RGBA) [][]uint8 {
	gray := make([][]uint8, canvasSize)
	for y := 0; y < canvasSize; y++ {
		gray[y] = make([]uint8, canvasSize)
		for x := 0; x < canvasSize; x++ {
			i := img.PixOffset(x, y)
			r := img.Pix[i]
			g := img.Pix[i+1]
			b := img.Pix[i+2]
			// ITU-R BT.601 luma
			gray[y][x] = uint8((299*int(r) + 587*int(g) + 114*int(b)) / 1000)
		}
	}
	return gray
}

// colorHistogram bins one RGBA channel (0=R, 1=G, 2=B) into histBins
// buckets.
func colorHistogram(img *image.RGBA, channel int) []float32 {
	hist := make([]float32, histBins)
	for y := 0; y < canvasSize; y++ {
		for x := 0; x < canvasSize; x++ {
			v := img.Pix[img.PixOffset(x, y)+channel]
			hist[int(v)*histBins/256]++
		}
	}
	return hist
}

// lbpHistogram bins the 8-neighbor local binary pattern codes of the
// grayscale canvas. Border pixels are skipped; the code compares each
// clockwise neighbor against the center.
func lbpHistogram(gray [][]uint8) []float32 {
	hist := make([]float32, histBins)
	for y := 1; y < canvasSize-1; y++ {
		for x := 1; x < canvasSize-1; x++ {
			center := gray[y][x]
			var code int
			neighbors := [8][2]int{
				{y - 1, x - 1}, {y - 1, x}, {y - 1, x + 1},
				{y, x + 1},
				{y + 1, x + 1}, {y + 1, x}, {y + 1, x - 1},
				{y, x - 1},
			}
			for _, n := range neighbors {
				code <<= 1
				if gray[n[0]][n[1]] >= center {
					code |= 1
				}
			}
			hist[code*histBins/256]++
		}
	}
	return hist
}

// normalize divides by the L2 norm. The epsilon keeps a blank region
// from dividing by zero.
func normalize(features []float32) []float32 {
	var sum float64
	for _, f := range features {
		sum += float64(f) * float64(f)
	}
	norm := math.Sqrt(sum) + epsilon
	for i := range features {
		features[i] = float32(float64(features[i]) / norm)
	}
	return features
}
