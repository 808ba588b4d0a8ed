package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// RecordVisit inserts a visit row and returns it with its id set.
func (s *Store) RecordVisit(ctx context.Context, visit *Visit) (*Visit, error) {
	now := time.Now().UTC()
	if visit.VisitTime.IsZero() {
		visit.VisitTime = now
	}
	visit.CreatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO visits (bird_id, feeder_id, camera_id, visit_time, duration_seconds, confidence, image_path, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		visit.BirdID, visit.FeederID, visit.CameraID,
		formatTime(visit.VisitTime), visit.DurationSeconds, visit.Confidence,
		visit.ImagePath, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert visit: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("visit id: %w", err)
	}
	visit.ID = id
	return visit, nil
}

// VisitCountSince counts visits at one feeder since a point in time.
func (s *Store) VisitCountSince(ctx context.Context, feederID string, since time.Time) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM visits WHERE feeder_id = ? AND visit_time >= ?`,
		feederID, formatTime(since)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count visits: %w", err)
	}
	return count, nil
}

// FeederVisitsSince returns one feeder's visits since a point in
// time, oldest first.
func (s *Store) FeederVisitsSince(ctx context.Context, feederID string, since time.Time) ([]*Visit, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bird_id, feeder_id, camera_id, visit_time, duration_seconds, confidence, image_path, created_at
         FROM visits WHERE feeder_id = ? AND visit_time >= ? ORDER BY visit_time ASC`,
		feederID, formatTime(since))
	if err != nil {
		return nil, fmt.Errorf("feeder visits: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

// RecentVisits returns the latest visits across all feeders.
func (s *Store) RecentVisits(ctx context.Context, limit int) ([]*Visit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bird_id, feeder_id, camera_id, visit_time, duration_seconds, confidence, image_path, created_at
         FROM visits ORDER BY visit_time DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent visits: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

// BirdVisits returns one bird's visit history, newest first.
func (s *Store) BirdVisits(ctx context.Context, birdID int64, limit int) ([]*Visit, error) {
	if limit <= 0 {
		limit = 50
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, bird_id, feeder_id, camera_id, visit_time, duration_seconds, confidence, image_path, created_at
         FROM visits WHERE bird_id = ? ORDER BY visit_time DESC LIMIT ?`, birdID, limit)
	if err != nil {
		return nil, fmt.Errorf("bird visits: %w", err)
	}
	defer rows.Close()
	return collectVisits(rows)
}

// DailyVisitStats aggregates one calendar day (UTC) of activity.
func (s *Store) DailyVisitStats(ctx context.Context, day time.Time) (*DayStats, error) {
	dayStart := time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, time.UTC)
	dayEnd := dayStart.Add(24 * time.Hour)
	from, to := formatTime(dayStart), formatTime(dayEnd)

	stats := &DayStats{Date: dayStart.Format("2006-01-02")}

	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*),
                COUNT(DISTINCT bird_id),
                COALESCE(AVG(duration_seconds), 0)
         FROM visits WHERE visit_time >= ? AND visit_time < ?`,
		from, to).Scan(&stats.TotalVisits, &stats.UniqueBirds, &stats.AvgDuration)
	if err != nil {
		return nil, fmt.Errorf("daily stats: %w", err)
	}

	// RFC3339 timestamps expose the hour at a fixed offset.
	var peakHour sql.NullString
	err = s.db.QueryRowContext(ctx,
		`SELECT substr(visit_time, 12, 2) AS hour
         FROM visits WHERE visit_time >= ? AND visit_time < ?
         GROUP BY hour ORDER BY COUNT(*) DESC, hour ASC LIMIT 1`,
		from, to).Scan(&peakHour)
	if err != nil && err != sql.ErrNoRows {
		return nil, fmt.Errorf("peak hour: %w", err)
	}
	if peakHour.Valid {
		stats.PeakHour = peakHour.String + ":00"
	}

	err = s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM birds WHERE first_seen >= ? AND first_seen < ?`,
		from, to).Scan(&stats.NewBirds)
	if err != nil {
		return nil, fmt.Errorf("new birds: %w", err)
	}

	return stats, nil
}

func collectVisits(rows *sql.Rows) ([]*Visit, error) {
	var visits []*Visit
	for rows.Next() {
		var (
			visit     Visit
			birdID    sql.NullInt64
			visitTime string
			duration  sql.NullFloat64
			conf      sql.NullFloat64
			imagePath sql.NullString
			createdAt string
		)
		if err := rows.Scan(&visit.ID, &birdID, &visit.FeederID, &visit.CameraID,
			&visitTime, &duration, &conf, &imagePath, &createdAt); err != nil {
			return nil, fmt.Errorf("scan visit: %w", err)
		}
		if birdID.Valid {
			visit.BirdID = &birdID.Int64
		}
		if duration.Valid {
			visit.DurationSeconds = &duration.Float64
		}
		if conf.Valid {
			visit.Confidence = &conf.Float64
		}
		visit.ImagePath = imagePath.String
		visit.VisitTime = parseTime(visitTime)
		visit.CreatedAt = parseTime(createdAt)
		visits = append(visits, &visit)
	}
	return visits, rows.Err()
}
