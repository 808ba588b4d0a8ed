package capture

import (
	"bytes"
	"context"
	"image"
	"image/color"
	"image/png"
	"os"
	"path"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"hummingbird/internal/detector"
	"hummingbird/internal/feature"
	"hummingbird/internal/feeder"
	"hummingbird/internal/index"
	"hummingbird/internal/resolver"
	"hummingbird/internal/store"
)

type fakeDetector struct {
	detections []detector.Detection
	err        error
	calls      atomic.Int32
}

func (f *fakeDetector) Detect(ctx context.Context, imageData []byte) ([]detector.Detection, error) {
	f.calls.Add(1)
	return f.detections, f.err
}

func fullFrameBird(conf float64) []detector.Detection {
	return []detector.Detection{{Label: "bird", Confidence: conf, XMax: 80, YMax: 80}}
}

func capturePNG(t *testing.T, tint uint8) []byte {
	t.Helper()
	img := image.NewRGBA(image.Rect(0, 0, 80, 80))
	for y := 0; y < 80; y++ {
		for x := 0; x < 80; x++ {
			img.SetRGBA(x, y, color.RGBA{R: tint, G: uint8(x), B: uint8(y), A: 255})
		}
	}
	var buf bytes.Buffer
	require.NoError(t, png.Encode(&buf, img))
	return buf.Bytes()
}

func newTestIngestor(t *testing.T, det detector.Detector) (*Ingestor, *store.Store, *index.BirdIndex) {
	t.Helper()
	dir := t.TempDir()

	s, err := store.Open(path.Join(dir, "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })

	idx, err := index.Open(&index.Config{Dir: path.Join(dir, "index"), Dimension: feature.Dimension})
	require.NoError(t, err)
	t.Cleanup(func() { idx.Close() })

	r := resolver.New(det, feature.NewHistogramExtractor(), idx, resolver.Options{})
	fm := feeder.NewMonitor(s, 1000, 0)
	return NewIngestor(r, s, idx, fm, "feeder-1", "camera-1"), s, idx
}

func TestIngestNewBirdThenExisting(t *testing.T) {
	in, s, idx := newTestIngestor(t, &fakeDetector{detections: fullFrameBird(0.9)})
	ctx := context.Background()
	frame := capturePNG(t, 200)

	// First capture mints a new identity.
	result, err := in.Ingest(ctx, frame, "/captures/a.png")
	require.NoError(t, err)
	assert.Equal(t, resolver.OutcomeNewBird, result.Resolution.Outcome)
	require.NotNil(t, result.NewBird)
	require.NotNil(t, result.Visit)
	require.NotNil(t, result.Visit.BirdID)
	assert.Equal(t, result.NewBird.ID, *result.Visit.BirdID)
	assert.NotEmpty(t, result.EventID)
	assert.Len(t, result.Fingerprint, 16)
	assert.Equal(t, 1, idx.Count())

	entry, ok := idx.Get(result.NewBird.ID)
	require.True(t, ok)
	assert.Equal(t, "capture", entry.Metadata["source"])

	// The same plumage comes back as the same bird.
	result2, err := in.Ingest(ctx, frame, "/captures/b.png")
	require.NoError(t, err)
	assert.Equal(t, resolver.OutcomeExistingBird, result2.Resolution.Outcome)
	assert.Equal(t, result.NewBird.ID, result2.Resolution.BirdID)
	assert.Nil(t, result2.NewBird)
	assert.Equal(t, 1, idx.Count())

	bird, err := s.GetBird(ctx, result.NewBird.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, bird.TotalVisits)

	// Identical frames fingerprint identically.
	assert.Equal(t, result.Fingerprint, result2.Fingerprint)

	count, err := s.VisitCountSince(ctx, "feeder-1", bird.FirstSeen.Add(-time.Hour))
	require.NoError(t, err)
	assert.Equal(t, 2, count)
}

func TestIngestNoBird(t *testing.T) {
	in, s, idx := newTestIngestor(t, &fakeDetector{})
	ctx := context.Background()

	result, err := in.Ingest(ctx, capturePNG(t, 10), "")
	require.NoError(t, err)
	assert.Equal(t, resolver.OutcomeNoBird, result.Resolution.Outcome)
	assert.Nil(t, result.Visit)
	assert.Equal(t, 0, idx.Count())

	recent, err := s.RecentVisits(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestIngestDetectorFailure(t *testing.T) {
	in, s, _ := newTestIngestor(t, &fakeDetector{err: assert.AnError})
	ctx := context.Background()

	result, err := in.Ingest(ctx, capturePNG(t, 10), "")
	assert.Error(t, err)
	require.NotNil(t, result)
	assert.Equal(t, resolver.OutcomeError, result.Resolution.Outcome)

	recent, err := s.RecentVisits(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, recent)
}

func TestIngestEmbeddingFailureRecordsUnidentifiedVisit(t *testing.T) {
	// The detection box misses the frame, so no embedding can be
	// computed; the visit is still recorded, without an identity.
	det := &fakeDetector{detections: []detector.Detection{
		{Label: "bird", Confidence: 0.9, XMin: 500, YMin: 500, XMax: 600, YMax: 600},
	}}
	in, s, idx := newTestIngestor(t, det)
	ctx := context.Background()

	result, err := in.Ingest(ctx, capturePNG(t, 10), "/captures/c.png")
	require.NoError(t, err)
	assert.Equal(t, resolver.OutcomeEmbeddingFailed, result.Resolution.Outcome)
	require.NotNil(t, result.Visit)
	assert.Nil(t, result.Visit.BirdID)
	assert.Equal(t, 0, idx.Count())

	recent, err := s.RecentVisits(ctx, 10)
	require.NoError(t, err)
	assert.Len(t, recent, 1)
}

func TestIngestFile(t *testing.T) {
	in, _, idx := newTestIngestor(t, &fakeDetector{detections: fullFrameBird(0.9)})
	ctx := context.Background()

	filePath := path.Join(t.TempDir(), "capture.png")
	require.NoError(t, os.WriteFile(filePath, capturePNG(t, 120), 0644))

	result, err := in.IngestFile(ctx, filePath)
	require.NoError(t, err)
	assert.Equal(t, resolver.OutcomeNewBird, result.Resolution.Outcome)
	assert.Equal(t, filePath, result.Visit.ImagePath)
	assert.Equal(t, 1, idx.Count())

	_, err = in.IngestFile(ctx, path.Join(t.TempDir(), "missing.png"))
	assert.Error(t, err)
}
