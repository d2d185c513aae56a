package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

type sqliteAlertRepo struct {
	db *sql.DB
}

// CreateIfAbsent inserts the alert unless an unresolved alert of the same
// kind exists for the bus. The partial unique index idx_alerts_unresolved
// makes the check-and-insert a single atomic statement: under concurrent
// submissions for the same bus, exactly one insert wins and the rest are
// ignored rather than failing.
func (r *sqliteAlertRepo) CreateIfAbsent(ctx context.Context, alert *models.Alert) (bool, error) {
	if alert.CreatedAt.IsZero() {
		alert.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO alerts (bus_id, kind, severity, detail, created_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT DO NOTHING
	`
	result, err := r.db.ExecContext(ctx, query,
		alert.BusID, alert.Kind, alert.Severity, alert.Detail, alert.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("insert alert: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("alert rows affected: %w", err)
	}
	if rows == 0 {
		// Suppressed: an unresolved alert of this kind already exists.
		return false, nil
	}

	id, err := result.LastInsertId()
	if err != nil {
		return false, fmt.Errorf("alert insert id: %w", err)
	}
	alert.ID = id
	return true, nil
}

func (r *sqliteAlertRepo) GetByID(ctx context.Context, id int64) (*models.Alert, error) {
	query := alertSelect + " WHERE id = ?"
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query alert: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanAlertRow(rows)
}

func (r *sqliteAlertRepo) HasUnresolved(ctx context.Context, busID string, kind models.AlertKind) (bool, error) {
	var count int
	err := r.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM alerts WHERE bus_id = ? AND kind = ? AND resolved_at IS NULL",
		busID, kind,
	).Scan(&count)
	if err != nil {
		return false, fmt.Errorf("count unresolved alerts: %w", err)
	}
	return count > 0, nil
}

func (r *sqliteAlertRepo) UnresolvedKinds(ctx context.Context, busID string) (map[models.AlertKind]bool, error) {
	rows, err := r.db.QueryContext(ctx,
		"SELECT DISTINCT kind FROM alerts WHERE bus_id = ? AND resolved_at IS NULL",
		busID,
	)
	if err != nil {
		return nil, fmt.Errorf("query unresolved kinds: %w", err)
	}
	defer rows.Close()

	kinds := make(map[models.AlertKind]bool)
	for rows.Next() {
		var kind models.AlertKind
		if err := rows.Scan(&kind); err != nil {
			return nil, fmt.Errorf("scan kind: %w", err)
		}
		kinds[kind] = true
	}
	return kinds, rows.Err()
}

// Resolve marks an alert resolved. The resolved_at guard keeps the operation
// from re-resolving an already closed alert.
func (r *sqliteAlertRepo) Resolve(ctx context.Context, id int64, resolverID string, at time.Time) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE alerts SET resolved_by = ?, resolved_at = ? WHERE id = ? AND resolved_at IS NULL",
		resolverID, at, id,
	)
	if err != nil {
		return fmt.Errorf("resolve alert: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		// Distinguish missing from already-resolved.
		existing, err := r.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if existing == nil {
			return fmt.Errorf("alert %d: %w", id, ErrNotFound)
		}
		return fmt.Errorf("alert %d already resolved: %w", id, ErrConflict)
	}
	return nil
}

func (r *sqliteAlertRepo) List(ctx context.Context, filter AlertFilter) ([]*models.Alert, error) {
	query := alertSelect
	var conds []string
	var args []interface{}

	if filter.Resolved != nil {
		if *filter.Resolved {
			conds = append(conds, "resolved_at IS NOT NULL")
		} else {
			conds = append(conds, "resolved_at IS NULL")
		}
	}
	if filter.Kind != "" {
		conds = append(conds, "kind = ?")
		args = append(args, filter.Kind)
	}
	if filter.Severity != "" {
		conds = append(conds, "severity = ?")
		args = append(args, filter.Severity)
	}
	if filter.BusID != "" {
		conds = append(conds, "bus_id = ?")
		args = append(args, filter.BusID)
	}

	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	query += " ORDER BY created_at DESC, id DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []*models.Alert
	for rows.Next() {
		alert, err := scanAlertRow(rows)
		if err != nil {
			return nil, err
		}
		alerts = append(alerts, alert)
	}
	return alerts, rows.Err()
}

const alertSelect = `
	SELECT id, bus_id, kind, severity, detail, created_at, resolved_by, resolved_at
	FROM alerts
`

func scanAlertRow(rows *sql.Rows) (*models.Alert, error) {
	alert := &models.Alert{}
	var resolvedBy sql.NullString
	var resolvedAt sql.NullTime

	err := rows.Scan(
		&alert.ID, &alert.BusID, &alert.Kind, &alert.Severity, &alert.Detail,
		&alert.CreatedAt, &resolvedBy, &resolvedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan alert: %w", err)
	}

	alert.ResolvedBy = resolvedBy.String
	alert.ResolvedAt = timePtr(resolvedAt)
	return alert, nil
}
