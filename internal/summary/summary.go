// Package summary generates daily activity reports from visit
// statistics, with the prose written by Gemini.
package summary

import (
	"context"
	"fmt"
	"time"

	"google.golang.org/genai"

	"hummingbird/internal/store"
	"hummingbird/pkg/logger"
)

// Generator produces summary prose from a prompt. The Gemini client
// implements it; tests substitute a stub.
type Generator interface {
	Generate(ctx context.Context, prompt string) (string, error)
}

// GeminiGenerator calls the Gemini API.
type GeminiGenerator struct {
	client *genai.Client
	model  string
}

// NewGeminiGenerator builds a generator with the given API key and
// model name.
func NewGeminiGenerator(ctx context.Context, apiKey, model string) (*GeminiGenerator, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("create gemini client: %w", err)
	}
	if model == "" {
		model = "gemini-2.0-flash"
	}
	return &GeminiGenerator{client: client, model: model}, nil
}

func (g *GeminiGenerator) Generate(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", fmt.Errorf("generate content: %w", err)
	}
	return result.Text(), nil
}

// Disabled is the generator used when no API key is configured; every
// summary falls back to plain statistics.
type Disabled struct{}

func (Disabled) Generate(ctx context.Context, prompt string) (string, error) {
	return "", fmt.Errorf("summary generation disabled: no API key configured")
}

// Service assembles daily summaries and stores them.
type Service struct {
	store     *store.Store
	generator Generator
	model     string
}

func NewService(s *store.Store, generator Generator, model string) *Service {
	return &Service{store: s, generator: generator, model: model}
}

// GenerateDaily builds the summary for one calendar day (UTC) and
// upserts it into the store. A generation failure still produces a
// stored summary with the plain statistics.
func (s *Service) GenerateDaily(ctx context.Context, day time.Time) (*store.Summary, error) {
	stats, err := s.store.DailyVisitStats(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}

	content, err := s.generator.Generate(ctx, buildPrompt(stats))
	model := s.model
	if err != nil {
		logger.Warn("summary generation failed, storing statistics only", "error", err)
		content = fallbackContent(stats)
		model = "fallback"
	}

	summary := &store.Summary{
		Date:             stats.Date,
		Title:            fmt.Sprintf("Daily Hummingbird Activity - %s", stats.Date),
		Content:          content,
		TotalVisits:      stats.TotalVisits,
		UniqueBirds:      stats.UniqueBirds,
		PeakHour:         stats.PeakHour,
		AvgVisitDuration: stats.AvgDuration,
		ModelUsed:        model,
	}
	return s.store.InsertSummary(ctx, summary)
}

func buildPrompt(stats *store.DayStats) string {
	return fmt.Sprintf(
		"Write a short, friendly daily summary of hummingbird feeder activity for %s. "+
			"Visits: %d. Distinct birds: %d. New birds first seen today: %d. "+
			"Peak hour (UTC): %s. Average visit duration: %.1f seconds. "+
			"Two or three sentences, no preamble.",
		stats.Date, stats.TotalVisits, stats.UniqueBirds, stats.NewBirds,
		stats.PeakHour, stats.AvgDuration)
}

func fallbackContent(stats *store.DayStats) string {
	return fmt.Sprintf("%d visits by %d distinct birds; %d new. Peak hour %s.",
		stats.TotalVisits, stats.UniqueBirds, stats.NewBirds, stats.PeakHour)
}
