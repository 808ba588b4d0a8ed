package store

import "time"

// Bird is the canonical identity record. The similarity index
// references birds by this id but never reads these rows.
type Bird struct {
	ID          int64     `json:"id"`
	Name        string    `json:"name,omitempty"`
	FirstSeen   time.Time `json:"first_seen"`
	LastSeen    time.Time `json:"last_seen"`
	TotalVisits int       `json:"total_visits"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// Visit is one feeder visit, identified or not.
type Visit struct {
	ID              int64     `json:"id"`
	BirdID          *int64    `json:"bird_id,omitempty"`
	FeederID        string    `json:"feeder_id"`
	CameraID        string    `json:"camera_id"`
	VisitTime       time.Time `json:"visit_time"`
	DurationSeconds *float64  `json:"duration_seconds,omitempty"`
	Confidence      *float64  `json:"confidence,omitempty"`
	ImagePath       string    `json:"image_path,omitempty"`
	CreatedAt       time.Time `json:"created_at"`
}

// Alert is a feeder notification such as a refill warning.
type Alert struct {
	ID             int64      `json:"id"`
	FeederID       string     `json:"feeder_id"`
	AlertType      string     `json:"alert_type"`
	Title          string     `json:"title"`
	Message        string     `json:"message"`
	Severity       string     `json:"severity"`
	IsActive       bool       `json:"is_active"`
	IsAcknowledged bool       `json:"is_acknowledged"`
	AcknowledgedAt *time.Time `json:"acknowledged_at,omitempty"`
	AcknowledgedBy string     `json:"acknowledged_by,omitempty"`
	VisitCount     *int       `json:"visit_count,omitempty"`
	NectarLevel    *float64   `json:"nectar_level,omitempty"`
	CreatedAt      time.Time  `json:"created_at"`
}

// Summary is a generated daily activity report.
type Summary struct {
	ID               int64     `json:"id"`
	Date             string    `json:"date"` // YYYY-MM-DD
	Title            string    `json:"title"`
	Content          string    `json:"content"`
	TotalVisits      int       `json:"total_visits"`
	UniqueBirds      int       `json:"unique_birds"`
	PeakHour         string    `json:"peak_hour,omitempty"`
	AvgVisitDuration float64   `json:"avg_visit_duration,omitempty"`
	ModelUsed        string    `json:"model_used,omitempty"`
	CreatedAt        time.Time `json:"created_at"`
}

// DayStats aggregates one day of visit activity for summaries and
// feeder monitoring.
type DayStats struct {
	Date        string  `json:"date"`
	TotalVisits int     `json:"total_visits"`
	UniqueBirds int     `json:"unique_birds"`
	PeakHour    string  `json:"peak_hour,omitempty"`
	AvgDuration float64 `json:"avg_duration,omitempty"`
	NewBirds    int     `json:"new_birds"`
}
