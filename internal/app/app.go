// Package app wires the monitor's components together. One App is
// opened per process; the index layer's directory lock makes a second
// instance pointing at the same data directory fail fast.
package app

import (
	"context"
	"fmt"
	"os"
	"time"

	"hummingbird/internal/capture"
	"hummingbird/internal/config"
	"hummingbird/internal/detector"
	"hummingbird/internal/feature"
	"hummingbird/internal/feeder"
	"hummingbird/internal/index"
	"hummingbird/internal/resolver"
	"hummingbird/internal/store"
	"hummingbird/internal/summary"
	"hummingbird/pkg/logger"
)

// App owns every long-lived component of the monitor.
type App struct {
	Config    *config.Config
	Store     *store.Store
	Index     *index.BirdIndex
	Extractor feature.Extractor
	Resolver  *resolver.Resolver
	Feeder    *feeder.Monitor
	Summaries *summary.Service
	Ingestor  *capture.Ingestor

	startedAt time.Time
}

// Uptime is the elapsed time since Open returned.
func (a *App) Uptime() time.Duration {
	return time.Since(a.startedAt)
}

// Open initializes the store, the similarity index, and the services
// built on them.
func Open(ctx context.Context, conf *config.Config) (*App, error) {
	if err := os.MkdirAll(conf.DataDir, 0755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	st, err := store.Open(conf.DBPath())
	if err != nil {
		return nil, err
	}

	idx, err := index.Open(&index.Config{
		Dir:       conf.IndexDir(),
		Dimension: conf.EmbeddingDim,
		SpaceType: index.SpaceType(conf.SpaceType),
	})
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	extractor := feature.NewHistogramExtractor()
	det := detector.NewClient(conf.DetectorURL, time.Duration(conf.DetectorTimeout)*time.Second)
	res := resolver.New(det, extractor, idx, resolver.Options{
		MatchK:         conf.MatchK,
		MatchThreshold: conf.MatchThreshold,
		MinConfidence:  conf.BirdConfidence,
	})

	monitor := feeder.NewMonitor(st, conf.VisitAlertThreshold, conf.NectarDepletionRate)

	var generator summary.Generator = summary.Disabled{}
	model := conf.GeminiModel
	if conf.GeminiAPIKey != "" {
		gen, err := summary.NewGeminiGenerator(ctx, conf.GeminiAPIKey, conf.GeminiModel)
		if err != nil {
			logger.Warn("gemini client unavailable, summaries fall back to statistics", "error", err)
		} else {
			generator = gen
		}
	}
	summaries := summary.NewService(st, generator, model)

	ingestor := capture.NewIngestor(res, st, idx, monitor, conf.FeederID, conf.CameraID)

	return &App{
		Config:    conf,
		Store:     st,
		Index:     idx,
		Extractor: extractor,
		Resolver:  res,
		Feeder:    monitor,
		Summaries: summaries,
		Ingestor:  ingestor,
		startedAt: time.Now(),
	}, nil
}

// Close releases the index lock and the database connection.
func (a *App) Close() {
	if a.Index != nil {
		if err := a.Index.Close(); err != nil {
			logger.Warn("close index", "error", err)
		}
	}
	if a.Store != nil {
		if err := a.Store.Close(); err != nil {
			logger.Warn("close store", "error", err)
		}
	}
}
