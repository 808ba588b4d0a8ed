package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	pkgerrors "hummingbird/pkg/errors"
)

// CreateAlert inserts an alert row and returns it with its id set.
func (s *Store) CreateAlert(ctx context.Context, alert *Alert) (*Alert, error) {
	now := time.Now().UTC()
	alert.CreatedAt = now
	alert.IsActive = true
	if alert.Severity == "" {
		alert.Severity = "medium"
	}

	res, err := s.db.ExecContext(ctx,
		`INSERT INTO alerts (feeder_id, alert_type, title, message, severity, is_active, is_acknowledged, visit_count, nectar_level, created_at)
         VALUES (?, ?, ?, ?, ?, 1, 0, ?, ?, ?)`,
		alert.FeederID, alert.AlertType, alert.Title, alert.Message,
		alert.Severity, alert.VisitCount, alert.NectarLevel, formatTime(now))
	if err != nil {
		return nil, fmt.Errorf("insert alert: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("alert id: %w", err)
	}
	alert.ID = id
	return alert, nil
}

// ActiveAlerts returns unresolved alerts, optionally scoped to one
// feeder, newest first.
func (s *Store) ActiveAlerts(ctx context.Context, feederID string) ([]*Alert, error) {
	query := `SELECT id, feeder_id, alert_type, title, message, severity, is_active, is_acknowledged,
                     acknowledged_at, acknowledged_by, visit_count, nectar_level, created_at
              FROM alerts WHERE is_active = 1`
	args := []any{}
	if feederID != "" {
		query += ` AND feeder_id = ?`
		args = append(args, feederID)
	}
	query += ` ORDER BY created_at DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("active alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*Alert
	for rows.Next() {
		var (
			alert     Alert
			ackAt     sql.NullString
			ackBy     sql.NullString
			visits    sql.NullInt64
			nectar    sql.NullFloat64
			createdAt string
		)
		if err := rows.Scan(&alert.ID, &alert.FeederID, &alert.AlertType, &alert.Title,
			&alert.Message, &alert.Severity, &alert.IsActive, &alert.IsAcknowledged,
			&ackAt, &ackBy, &visits, &nectar, &createdAt); err != nil {
			return nil, fmt.Errorf("scan alert: %w", err)
		}
		if ackAt.Valid {
			t := parseTime(ackAt.String)
			alert.AcknowledgedAt = &t
		}
		alert.AcknowledgedBy = ackBy.String
		if visits.Valid {
			v := int(visits.Int64)
			alert.VisitCount = &v
		}
		if nectar.Valid {
			alert.NectarLevel = &nectar.Float64
		}
		alert.CreatedAt = parseTime(createdAt)
		alerts = append(alerts, &alert)
	}
	return alerts, rows.Err()
}

// AcknowledgeAlert marks an alert acknowledged and inactive.
func (s *Store) AcknowledgeAlert(ctx context.Context, id int64, ackBy string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE alerts SET is_acknowledged = 1, is_active = 0, acknowledged_at = ?, acknowledged_by = ?
         WHERE id = ?`,
		formatTime(time.Now().UTC()), ackBy, id)
	if err != nil {
		return fmt.Errorf("acknowledge alert: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return pkgerrors.ErrRecordNotFound
	}
	return nil
}

// HasActiveAlert reports whether the feeder already has an unresolved
// alert of the given type, so checks do not stack duplicates.
func (s *Store) HasActiveAlert(ctx context.Context, feederID, alertType string) (bool, error) {
	var count int
	err := s.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM alerts WHERE feeder_id = ? AND alert_type = ? AND is_active = 1`,
		feederID, alertType).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("check active alert: %w", err)
	}
	return count > 0, nil
}
