// Package feeder estimates nectar depletion from visit activity and
// raises refill alerts.
package feeder

import (
	"context"
	"fmt"
	"math"
	"time"

	"hummingbird/internal/store"
	"hummingbird/pkg/logger"
)

const (
	nectarCapacity       = 100.0 // ml
	defaultDepletionRate = 0.5   // ml per visit, scaled by the visit weight

	criticalLevel = 10.0 // % remaining
	warningLevel  = 25.0
	infoLevel     = 50.0

	durationWeight   = 0.3
	confidenceWeight = 0.2
)

// Status is the depletion analysis for one feeder.
type Status struct {
	FeederID        string  `json:"feeder_id"`
	TotalVisits     int     `json:"total_visits"`
	EstDepletion    float64 `json:"estimated_depletion"`
	RemainingNectar float64 `json:"remaining_nectar"`
	DailyDepletion  float64 `json:"daily_depletion"`
	AlertLevel      string  `json:"alert_level"`
	// DaysUntilEmpty is -1 when there is no measurable depletion.
	DaysUntilEmpty float64 `json:"days_until_empty"`
}

// Monitor computes feeder status and creates refill alerts through
// the store.
type Monitor struct {
	store *store.Store

	// visits per day that trigger a refill alert
	visitAlertThreshold int

	// ml consumed per visit before weighting
	depletionRate float64
}

func NewMonitor(s *store.Store, visitAlertThreshold int, depletionRate float64) *Monitor {
	if visitAlertThreshold <= 0 {
		visitAlertThreshold = 50
	}
	if depletionRate <= 0 {
		depletionRate = defaultDepletionRate
	}
	return &Monitor{
		store:               s,
		visitAlertThreshold: visitAlertThreshold,
		depletionRate:       depletionRate,
	}
}

// Status analyzes the last `days` days of visits at one feeder.
func (m *Monitor) Status(ctx context.Context, feederID string, days int) (*Status, error) {
	if days <= 0 {
		days = 7
	}
	since := time.Now().UTC().AddDate(0, 0, -days)

	visits, err := m.store.FeederVisitsSince(ctx, feederID, since)
	if err != nil {
		return nil, fmt.Errorf("load feeder visits: %w", err)
	}

	status := &Status{
		FeederID:        feederID,
		TotalVisits:     len(visits),
		RemainingNectar: nectarCapacity,
		AlertLevel:      "none",
		DaysUntilEmpty:  -1,
	}
	if len(visits) == 0 {
		return status, nil
	}

	var depletion float64
	for _, v := range visits {
		depletion += m.depletionRate * visitWeight(v)
	}
	depletion *= seasonalFactor(time.Now())

	status.EstDepletion = depletion
	status.RemainingNectar = math.Max(0, nectarCapacity-depletion)
	status.DailyDepletion = depletion / float64(days)
	status.AlertLevel = alertLevel(status.RemainingNectar)
	if status.DailyDepletion > 0 {
		status.DaysUntilEmpty = status.RemainingNectar / status.DailyDepletion
	}
	return status, nil
}

// CheckRefill raises a refill alert when today's visit count crosses
// the threshold. Existing active refill alerts are not duplicated.
func (m *Monitor) CheckRefill(ctx context.Context, feederID string) (bool, error) {
	dayStart := time.Now().UTC().Truncate(24 * time.Hour)
	count, err := m.store.VisitCountSince(ctx, feederID, dayStart)
	if err != nil {
		return false, err
	}
	if count < m.visitAlertThreshold {
		return false, nil
	}

	exists, err := m.store.HasActiveAlert(ctx, feederID, "refill_needed")
	if err != nil {
		return false, err
	}
	if exists {
		return false, nil
	}

	nectar := math.Max(0, nectarCapacity-float64(count)*m.depletionRate)
	alert := &store.Alert{
		FeederID:    feederID,
		AlertType:   "refill_needed",
		Title:       fmt.Sprintf("Feeder %s needs a refill", feederID),
		Message:     fmt.Sprintf("%d visits today; estimated nectar remaining %.0f%%", count, nectar),
		Severity:    severityFor(nectar),
		VisitCount:  &count,
		NectarLevel: &nectar,
	}
	if _, err := m.store.CreateAlert(ctx, alert); err != nil {
		return false, fmt.Errorf("create refill alert: %w", err)
	}
	logger.Info("refill alert created", "feeder_id", feederID, "visits", count)
	return true, nil
}

// visitWeight scales a visit's nectar consumption by how long the
// bird stayed and how confident the identification was. Clamped to
// [0.1, 3.0].
func visitWeight(v *store.Visit) float64 {
	weight := 1.0
	if v.DurationSeconds != nil {
		durationFactor := math.Min(2.0, *v.DurationSeconds/30.0)
		weight *= 1.0 + (durationFactor-1.0)*durationWeight
	}
	if v.Confidence != nil {
		weight *= 1.0 + (*v.Confidence-0.5)*confidenceWeight
	}
	return math.Max(0.1, math.Min(3.0, weight))
}

func seasonalFactor(now time.Time) float64 {
	switch now.Month() {
	case time.March, time.April, time.May:
		return 1.2
	case time.June, time.July, time.August:
		return 1.5
	case time.September, time.October, time.November:
		return 1.0
	default:
		return 0.3
	}
}

func alertLevel(remaining float64) string {
	switch {
	case remaining <= criticalLevel:
		return "critical"
	case remaining <= warningLevel:
		return "warning"
	case remaining <= infoLevel:
		return "info"
	default:
		return "none"
	}
}

func severityFor(nectar float64) string {
	switch {
	case nectar <= criticalLevel:
		return "critical"
	case nectar <= warningLevel:
		return "high"
	default:
		return "medium"
	}
}
