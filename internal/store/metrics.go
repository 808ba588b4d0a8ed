package store

import (
	"context"
	"fmt"
)

// Metrics are whole-database counters for the status endpoint.
type Metrics struct {
	TotalBirds         int `json:"total_birds"`
	TotalVisits        int `json:"total_visits"`
	IdentifiedVisits   int `json:"identified_visits"`
	UnidentifiedVisits int `json:"unidentified_visits"`
	UniqueBirds        int `json:"unique_birds"`
	TotalAlerts        int `json:"total_alerts"`
	ActiveAlerts       int `json:"active_alerts"`
}

// Ping verifies the database connection is alive.
func (s *Store) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Metrics counts the store's records across all time.
func (s *Store) Metrics(ctx context.Context) (*Metrics, error) {
	m := &Metrics{}
	counters := []struct {
		query string
		dest  *int
	}{
		{"SELECT COUNT(*) FROM birds", &m.TotalBirds},
		{"SELECT COUNT(*) FROM visits", &m.TotalVisits},
		{"SELECT COUNT(*) FROM visits WHERE bird_id IS NOT NULL", &m.IdentifiedVisits},
		{"SELECT COUNT(DISTINCT bird_id) FROM visits WHERE bird_id IS NOT NULL", &m.UniqueBirds},
		{"SELECT COUNT(*) FROM alerts", &m.TotalAlerts},
		{"SELECT COUNT(*) FROM alerts WHERE is_active = 1", &m.ActiveAlerts},
	}
	for _, c := range counters {
		if err := s.db.QueryRowContext(ctx, c.query).Scan(c.dest); err != nil {
			return nil, fmt.Errorf("collect metrics: %w", err)
		}
	}
	m.UnidentifiedVisits = m.TotalVisits - m.IdentifiedVisits
	return m, nil
}
