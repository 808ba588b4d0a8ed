package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	pkgerrors "hummingbird/pkg/errors"
)

// InsertSummary stores a generated daily summary, replacing any
// earlier one for the same date.
func (s *Store) InsertSummary(ctx context.Context, summary *Summary) (*Summary, error) {
	now := time.Now().UTC()
	summary.CreatedAt = now

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO summaries (summary_date, title, content, total_visits, unique_birds, peak_hour, avg_visit_duration, model_used, created_at)
         VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
         ON CONFLICT(summary_date) DO UPDATE SET
             title = excluded.title,
             content = excluded.content,
             total_visits = excluded.total_visits,
             unique_birds = excluded.unique_birds,
             peak_hour = excluded.peak_hour,
             avg_visit_duration = excluded.avg_visit_duration,
             model_used = excluded.model_used,
             created_at = excluded.created_at`,
		summary.Date, summary.Title, summary.Content, summary.TotalVisits,
		summary.UniqueBirds, summary.PeakHour, summary.AvgVisitDuration,
		summary.ModelUsed, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert summary: %w", err)
	}
	if id, err := res.LastInsertId(); err == nil {
		summary.ID = id
	}
	return summary, nil
}

// SummaryForDate fetches the summary for a YYYY-MM-DD date.
func (s *Store) SummaryForDate(ctx context.Context, date string) (*Summary, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, summary_date, title, content, total_visits, unique_birds, peak_hour, avg_visit_duration, model_used, created_at
         FROM summaries WHERE summary_date = ?`, date)
	return scanSummary(row)
}

// ListSummaries returns the latest summaries, newest date first.
func (s *Store) ListSummaries(ctx context.Context, limit int) ([]*Summary, error) {
	if limit <= 0 {
		limit = 30
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, summary_date, title, content, total_visits, unique_birds, peak_hour, avg_visit_duration, model_used, created_at
         FROM summaries ORDER BY summary_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list summaries: %w", err)
	}
	defer rows.Close()

	var summaries []*Summary
	for rows.Next() {
		summary, err := scanSummary(rows)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, summary)
	}
	return summaries, rows.Err()
}

func scanSummary(row rowScanner) (*Summary, error) {
	var (
		summary   Summary
		peakHour  sql.NullString
		avgDur    sql.NullFloat64
		modelUsed sql.NullString
		createdAt string
	)
	err := row.Scan(&summary.ID, &summary.Date, &summary.Title, &summary.Content,
		&summary.TotalVisits, &summary.UniqueBirds, &peakHour, &avgDur, &modelUsed, &createdAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkgerrors.ErrRecordNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan summary: %w", err)
	}
	summary.PeakHour = peakHour.String
	summary.AvgVisitDuration = avgDur.Float64
	summary.ModelUsed = modelUsed.String
	summary.CreatedAt = parseTime(createdAt)
	return &summary, nil
}
