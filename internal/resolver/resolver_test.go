package resolver

import (
	"bytes"
	"context"
	"errors"
	"image"
	"image/color"
	"image/png"
	"testing"

	"hummingbird/internal/detector"
	"hummingbird/internal/feature"
	"hummingbird/internal/index"
)

type fakeDetector struct {
	detections []detector.Detection
	err        error
}

func (f *fakeDetector) Detect(ctx context.Context, imageData []byte) ([]detector.Detection, error) {
	return f.detections, f.err
}

type fakeSearcher struct {
	matches []index.Match
	err     error
}

func (f *fakeSearcher) Search(query []float32, k int, threshold float64) ([]index.Match, error) {
	return f.matches, f.err
}

func encodePNG(t *testing.T, w, h int) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.SetRGBA(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 90, A: 255})
		}
	}
	var buf bytes.Buffer
	if err := png.Encode(&buf, img); err != nil {
		t.Fatalf("encode png: %v", err)
	}
	return buf.Bytes()
}

func birdDetection(conf float64, x0, y0, x1, y1 int) detector.Detection {
	return detector.Detection{
		Label: "bird", Confidence: conf,
		XMin: x0, YMin: y0, XMax: x1, YMax: y1,
	}
}

func TestResolveDetectorError(t *testing.T) {
	r := New(&fakeDetector{err: errors.New("camera offline")},
		feature.NewHistogramExtractor(), &fakeSearcher{}, Options{})

	res := r.Resolve(context.Background(), encodePNG(t, 60, 60))
	if res.Outcome != OutcomeError {
		t.Fatalf("outcome: %s", res.Outcome)
	}
	if res.Err == "" {
		t.Fatal("error outcome missing message")
	}
}

func TestResolveNoBird(t *testing.T) {
	det := &fakeDetector{detections: []detector.Detection{
		{Label: "cat", Confidence: 0.95, XMax: 50, YMax: 50},
	}}
	r := New(det, feature.NewHistogramExtractor(), &fakeSearcher{}, Options{})

	res := r.Resolve(context.Background(), encodePNG(t, 60, 60))
	if res.Outcome != OutcomeNoBird {
		t.Fatalf("outcome: %s", res.Outcome)
	}
}

func TestResolveLowConfidenceFiltered(t *testing.T) {
	det := &fakeDetector{detections: []detector.Detection{
		birdDetection(0.2, 0, 0, 50, 50),
	}}
	r := New(det, feature.NewHistogramExtractor(), &fakeSearcher{},
		Options{MinConfidence: 0.6})

	res := r.Resolve(context.Background(), encodePNG(t, 60, 60))
	if res.Outcome != OutcomeNoBird {
		t.Fatalf("outcome: %s", res.Outcome)
	}
}

func TestResolveNewBird(t *testing.T) {
	det := &fakeDetector{detections: []detector.Detection{
		birdDetection(0.9, 5, 5, 55, 55),
	}}
	r := New(det, feature.NewHistogramExtractor(), &fakeSearcher{}, Options{})

	res := r.Resolve(context.Background(), encodePNG(t, 60, 60))
	if res.Outcome != OutcomeNewBird {
		t.Fatalf("outcome: %s", res.Outcome)
	}
	if len(res.Embedding) != feature.Dimension {
		t.Fatalf("embedding length: %d", len(res.Embedding))
	}
	if res.Detection == nil || res.Detection.Confidence != 0.9 {
		t.Fatalf("detection not carried: %+v", res.Detection)
	}
}

func TestResolveExistingBird(t *testing.T) {
	det := &fakeDetector{detections: []detector.Detection{
		birdDetection(0.85, 0, 0, 60, 60),
	}}
	searcher := &fakeSearcher{matches: []index.Match{
		{BirdID: 12, BirdName: "Ruby", Similarity: 0.93},
	}}
	r := New(det, feature.NewHistogramExtractor(), searcher, Options{})

	res := r.Resolve(context.Background(), encodePNG(t, 60, 60))
	if res.Outcome != OutcomeExistingBird {
		t.Fatalf("outcome: %s", res.Outcome)
	}
	if res.BirdID != 12 || res.BirdName != "Ruby" {
		t.Fatalf("wrong match: %+v", res)
	}
	if res.Confidence != 0.93 {
		t.Fatalf("confidence: %f", res.Confidence)
	}
}

func TestResolveHighestConfidenceDetectionWins(t *testing.T) {
	det := &fakeDetector{detections: []detector.Detection{
		birdDetection(0.6, 0, 0, 20, 20),
		birdDetection(0.95, 10, 10, 50, 50),
		{Label: "squirrel", Confidence: 0.99, XMax: 60, YMax: 60},
	}}
	r := New(det, feature.NewHistogramExtractor(), &fakeSearcher{}, Options{})

	res := r.Resolve(context.Background(), encodePNG(t, 60, 60))
	if res.Outcome != OutcomeNewBird {
		t.Fatalf("outcome: %s", res.Outcome)
	}
	if res.Detection.Confidence != 0.95 {
		t.Fatalf("picked wrong detection: %+v", res.Detection)
	}
}

func TestResolveEmbeddingFailed(t *testing.T) {
	// The box misses the frame entirely, so the crop is empty and no
	// embedding can be computed.
	det := &fakeDetector{detections: []detector.Detection{
		birdDetection(0.9, 200, 200, 260, 260),
	}}
	r := New(det, feature.NewHistogramExtractor(), &fakeSearcher{}, Options{})

	res := r.Resolve(context.Background(), encodePNG(t, 60, 60))
	if res.Outcome != OutcomeEmbeddingFailed {
		t.Fatalf("outcome: %s", res.Outcome)
	}
}

func TestResolveSearchError(t *testing.T) {
	det := &fakeDetector{detections: []detector.Detection{
		birdDetection(0.9, 0, 0, 60, 60),
	}}
	searcher := &fakeSearcher{err: errors.New("index unavailable")}
	r := New(det, feature.NewHistogramExtractor(), searcher, Options{})

	res := r.Resolve(context.Background(), encodePNG(t, 60, 60))
	if res.Outcome != OutcomeError {
		t.Fatalf("outcome: %s", res.Outcome)
	}
}

func TestResolveBadImage(t *testing.T) {
	det := &fakeDetector{detections: []detector.Detection{
		birdDetection(0.9, 0, 0, 60, 60),
	}}
	r := New(det, feature.NewHistogramExtractor(), &fakeSearcher{}, Options{})

	res := r.Resolve(context.Background(), []byte("not an image"))
	if res.Outcome != OutcomeError {
		t.Fatalf("outcome: %s", res.Outcome)
	}
}

func TestIsBirdLabel(t *testing.T) {
	for _, label := range []string{"bird", "Bird", "hummingbird", "HUMMINGBIRD"} {
		if !isBirdLabel(label) {
			t.Fatalf("%q should be a bird label", label)
		}
	}
	for _, label := range []string{"cat", "squirrel", ""} {
		if isBirdLabel(label) {
			t.Fatalf("%q should not be a bird label", label)
		}
	}
}
