// Package capture turns motion-capture images dropped by the camera
// into identity decisions, visit records, and feeder alerts.
package capture

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/twmb/murmur3"

	"hummingbird/internal/feeder"
	"hummingbird/internal/index"
	"hummingbird/internal/resolver"
	"hummingbird/internal/store"
	"hummingbird/pkg/logger"
)

// Result reports what one capture produced.
type Result struct {
	EventID     string              `json:"event_id"`
	Fingerprint string              `json:"fingerprint"`
	Resolution  resolver.Resolution `json:"resolution"`
	NewBird     *store.Bird         `json:"new_bird,omitempty"`
	Visit       *store.Visit        `json:"visit,omitempty"`
}

// Ingestor owns the post-resolution orchestration the resolver
// deliberately leaves to its caller: minting bird records and
// registering embeddings for new individuals.
type Ingestor struct {
	resolver *resolver.Resolver
	store    *store.Store
	index    *index.BirdIndex
	feeder   *feeder.Monitor

	feederID string
	cameraID string
}

func NewIngestor(r *resolver.Resolver, s *store.Store, idx *index.BirdIndex, fm *feeder.Monitor, feederID, cameraID string) *Ingestor {
	return &Ingestor{
		resolver: r,
		store:    s,
		index:    idx,
		feeder:   fm,
		feederID: feederID,
		cameraID: cameraID,
	}
}

// IngestFile reads and processes one capture file.
func (in *Ingestor) IngestFile(ctx context.Context, path string) (*Result, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read capture %s: %w", path, err)
	}
	return in.Ingest(ctx, data, path)
}

// Ingest resolves the capture and applies the outcome: a new bird is
// created in the store and registered in the index, an existing one
// has its statistics touched, and either way the visit is recorded.
func (in *Ingestor) Ingest(ctx context.Context, imageData []byte, imagePath string) (*Result, error) {
	result := &Result{
		EventID:     uuid.NewString(),
		Fingerprint: fmt.Sprintf("%016x", murmur3.Sum64(imageData)),
	}

	result.Resolution = in.resolver.Resolve(ctx, imageData)
	res := result.Resolution
	logger.Info("capture resolved",
		"event_id", result.EventID, "fingerprint", result.Fingerprint,
		"outcome", res.Outcome, "bird_id", res.BirdID)

	switch res.Outcome {
	case resolver.OutcomeError:
		return result, fmt.Errorf("resolution failed: %s", res.Err)
	case resolver.OutcomeNoBird:
		return result, nil
	}

	var birdID *int64
	var confidence *float64

	switch res.Outcome {
	case resolver.OutcomeNewBird:
		bird, err := in.registerNewBird(ctx, res)
		if err != nil {
			return result, err
		}
		result.NewBird = bird
		birdID = &bird.ID
	case resolver.OutcomeExistingBird:
		if err := in.store.TouchBird(ctx, res.BirdID, time.Now().UTC()); err != nil {
			logger.Warn("touch bird failed", "bird_id", res.BirdID, "error", err)
		}
		id := res.BirdID
		birdID = &id
		c := res.Confidence
		confidence = &c
	}
	// OutcomeEmbeddingFailed falls through: the visit is recorded
	// without an identity.

	visit, err := in.store.RecordVisit(ctx, &store.Visit{
		BirdID:     birdID,
		FeederID:   in.feederID,
		CameraID:   in.cameraID,
		Confidence: confidence,
		ImagePath:  imagePath,
	})
	if err != nil {
		return result, fmt.Errorf("record visit: %w", err)
	}
	result.Visit = visit

	if _, err := in.feeder.CheckRefill(ctx, in.feederID); err != nil {
		logger.Warn("refill check failed", "feeder_id", in.feederID, "error", err)
	}
	return result, nil
}

// registerNewBird mints the identity record, then registers the
// embedding. If registration fails the bird row is removed again so
// no identity exists without an index entry.
func (in *Ingestor) registerNewBird(ctx context.Context, res resolver.Resolution) (*store.Bird, error) {
	bird, err := in.store.CreateBird(ctx, "")
	if err != nil {
		return nil, fmt.Errorf("create bird: %w", err)
	}

	metadata := map[string]string{"source": "capture"}
	if res.Detection != nil {
		metadata["detect_confidence"] = fmt.Sprintf("%.3f", res.Detection.Confidence)
	}
	if err := in.index.Add(res.Embedding, bird.ID, bird.Name, metadata); err != nil {
		if delErr := in.store.DeleteBird(ctx, bird.ID); delErr != nil {
			logger.Error("orphaned bird row after failed index add",
				"bird_id", bird.ID, "error", delErr)
		}
		return nil, fmt.Errorf("register embedding: %w", err)
	}

	logger.Info("registered new bird", "bird_id", bird.ID)
	return bird, nil
}
