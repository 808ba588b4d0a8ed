// Package resolver decides whether a captured bird is a previously
// seen individual or a new one. It never writes to the identity
// records or the similarity index; registering a new bird is the
// caller's job.
package resolver

import (
	"bytes"
	"context"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"strings"

	"hummingbird/internal/detector"
	"hummingbird/internal/feature"
	"hummingbird/internal/index"
	"hummingbird/pkg/logger"
)

// Outcome is the terminal state of one resolution request. Callers
// branch on data, never on recovered faults.
type Outcome string

const (
	OutcomeNoBird          Outcome = "no-bird-detected"
	OutcomeEmbeddingFailed Outcome = "embedding-failed"
	OutcomeExistingBird    Outcome = "existing-bird"
	OutcomeNewBird         Outcome = "new-bird"
	OutcomeError           Outcome = "error"
)

// Resolution is the resolver's answer for one image.
type Resolution struct {
	Outcome    Outcome             `json:"outcome"`
	BirdID     int64               `json:"bird_id,omitempty"`
	BirdName   string              `json:"bird_name,omitempty"`
	Confidence float64             `json:"confidence"`
	Embedding  []float32           `json:"embedding,omitempty"`
	Detection  *detector.Detection `json:"detection,omitempty"`
	Err        string              `json:"error,omitempty"`
}

// Searcher is the slice of the similarity index the resolver needs.
type Searcher interface {
	Search(query []float32, k int, threshold float64) ([]index.Match, error)
}

// Options tune the match policy.
type Options struct {
	MatchK         int
	MatchThreshold float64
	// MinConfidence filters detector predictions before cropping.
	MinConfidence float64
}

// Resolver runs detect -> embed -> match for one capture.
type Resolver struct {
	detector  detector.Detector
	extractor feature.Extractor
	searcher  Searcher
	opts      Options
}

func New(det detector.Detector, ext feature.Extractor, searcher Searcher, opts Options) *Resolver {
	if opts.MatchK <= 0 {
		opts.MatchK = 5
	}
	if opts.MatchThreshold <= 0 {
		opts.MatchThreshold = 0.7
	}
	return &Resolver{detector: det, extractor: ext, searcher: searcher, opts: opts}
}

// Resolve identifies the bird in an encoded image. Internal failures
// come back as a Resolution with OutcomeError; a bad frame must never
// take down the capture pipeline.
func (r *Resolver) Resolve(ctx context.Context, imageData []byte) Resolution {
	detections, err := r.detector.Detect(ctx, imageData)
	if err != nil {
		logger.Error("detection failed", "error", err)
		return Resolution{Outcome: OutcomeError, Err: err.Error()}
	}

	best, found := bestBird(detections, r.opts.MinConfidence)
	if !found {
		return Resolution{Outcome: OutcomeNoBird}
	}

	region, err := cropRegion(imageData, best.Bounds())
	if err != nil {
		logger.Error("crop failed", "error", err)
		return Resolution{Outcome: OutcomeError, Err: err.Error(), Detection: &best}
	}

	embedding := r.extractor.Extract(region)
	if len(embedding) == 0 {
		return Resolution{Outcome: OutcomeEmbeddingFailed, Detection: &best}
	}

	matches, err := r.searcher.Search(embedding, r.opts.MatchK, r.opts.MatchThreshold)
	if err != nil {
		logger.Error("index search failed", "error", err)
		return Resolution{Outcome: OutcomeError, Err: err.Error(), Embedding: embedding, Detection: &best}
	}

	if len(matches) == 0 {
		return Resolution{Outcome: OutcomeNewBird, Embedding: embedding, Detection: &best}
	}

	top := matches[0]
	return Resolution{
		Outcome:    OutcomeExistingBird,
		BirdID:     top.BirdID,
		BirdName:   top.BirdName,
		Confidence: top.Similarity,
		Embedding:  embedding,
		Detection:  &best,
	}
}

// bestBird picks the highest-confidence bird-labeled detection.
func bestBird(detections []detector.Detection, minConfidence float64) (detector.Detection, bool) {
	var best detector.Detection
	found := false
	for _, d := range detections {
		if !isBirdLabel(d.Label) || d.Confidence < minConfidence {
			continue
		}
		if !found || d.Confidence > best.Confidence {
			best = d
			found = true
		}
	}
	return best, found
}

func isBirdLabel(label string) bool {
	switch strings.ToLower(label) {
	case "bird", "hummingbird":
		return true
	}
	return false
}

type subImager interface {
	SubImage(r image.Rectangle) image.Image
}

// cropRegion decodes the image and cuts out the detection bounds,
// clamped to the frame.
func cropRegion(imageData []byte, bounds image.Rectangle) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(imageData))
	if err != nil {
		return nil, err
	}
	region := bounds.Intersect(img.Bounds())
	if region.Empty() {
		return nil, nil
	}
	if si, ok := img.(subImager); ok {
		return si.SubImage(region), nil
	}
	// Decoder types without SubImage get copied out.
	dst := image.NewRGBA(image.Rect(0, 0, region.Dx(), region.Dy()))
	for y := 0; y < region.Dy(); y++ {
		for x := 0; x < region.Dx(); x++ {
			dst.Set(x, y, img.At(region.Min.X+x, region.Min.Y+y))
		}
	}
	return dst, nil
}
