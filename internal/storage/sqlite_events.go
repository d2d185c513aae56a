package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

type sqliteEventRepo struct {
	db *sql.DB
}

func (r *sqliteEventRepo) Create(ctx context.Context, event *models.InspectionEvent) error {
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}

	var issuesJSON sql.NullString
	if len(event.Issues) > 0 {
		data, err := json.Marshal(event.Issues)
		if err != nil {
			return fmt.Errorf("marshal issues: %w", err)
		}
		issuesJSON = sql.NullString{String: string(data), Valid: true}
	}

	var confidence sql.NullFloat64
	if event.Confidence != nil {
		confidence = sql.NullFloat64{Float64: *event.Confidence, Valid: true}
	}

	query := `
		INSERT INTO inspection_events (bus_id, user_id, state, confidence, observations, issues_json, thumb_url, origin, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	result, err := r.db.ExecContext(ctx, query,
		event.BusID, event.UserID, event.State, confidence,
		nullString(event.Observations), issuesJSON, nullString(event.ThumbURL),
		event.Origin, event.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert event: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("event insert id: %w", err)
	}
	event.ID = id
	return nil
}

func (r *sqliteEventRepo) GetByID(ctx context.Context, id int64) (*models.InspectionEvent, error) {
	query := eventSelect + " WHERE id = ?"
	rows, err := r.db.QueryContext(ctx, query, id)
	if err != nil {
		return nil, fmt.Errorf("query event: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, rows.Err()
	}
	return scanEventRow(rows)
}

// ListForBusSince returns the bus's events with created_at strictly after
// since, oldest first. The strict comparison keeps the rule window half-open:
// an event exactly at now-window is excluded.
func (r *sqliteEventRepo) ListForBusSince(ctx context.Context, busID string, since time.Time) ([]*models.InspectionEvent, error) {
	query := eventSelect + " WHERE bus_id = ? AND created_at > ? ORDER BY created_at ASC, id ASC"
	rows, err := r.db.QueryContext(ctx, query, busID, since)
	if err != nil {
		return nil, fmt.Errorf("query events for bus: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

func (r *sqliteEventRepo) List(ctx context.Context, filter EventFilter) ([]*models.InspectionEvent, error) {
	query := `
		SELECT e.id, e.bus_id, e.user_id, e.state, e.confidence, e.observations, e.issues_json, e.thumb_url, e.origin, e.created_at
		FROM inspection_events e
	`
	var conds []string
	var args []interface{}

	if filter.Plate != "" {
		query += " JOIN buses b ON e.bus_id = b.id"
		conds = append(conds, "b.plate LIKE ?")
		args = append(args, "%"+filter.Plate+"%")
	}
	if filter.BusID != "" {
		conds = append(conds, "e.bus_id = ?")
		args = append(args, filter.BusID)
	}
	if filter.UserID != "" {
		conds = append(conds, "e.user_id = ?")
		args = append(args, filter.UserID)
	}
	if filter.State != "" {
		conds = append(conds, "e.state = ?")
		args = append(args, filter.State)
	}
	if filter.From != nil {
		conds = append(conds, "e.created_at >= ?")
		args = append(args, *filter.From)
	}
	if filter.To != nil {
		conds = append(conds, "e.created_at <= ?")
		args = append(args, *filter.To)
	}

	for i, c := range conds {
		if i == 0 {
			query += " WHERE " + c
		} else {
			query += " AND " + c
		}
	}

	query += " ORDER BY e.created_at DESC, e.id DESC"

	limit := filter.Limit
	if limit <= 0 || limit > 100 {
		limit = 100
	}
	query += " LIMIT ? OFFSET ?"
	args = append(args, limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	return scanEvents(rows)
}

const eventSelect = `
	SELECT id, bus_id, user_id, state, confidence, observations, issues_json, thumb_url, origin, created_at
	FROM inspection_events
`

func scanEvents(rows *sql.Rows) ([]*models.InspectionEvent, error) {
	var events []*models.InspectionEvent
	for rows.Next() {
		event, err := scanEventRow(rows)
		if err != nil {
			return nil, err
		}
		events = append(events, event)
	}
	return events, rows.Err()
}

func scanEventRow(rows *sql.Rows) (*models.InspectionEvent, error) {
	event := &models.InspectionEvent{}
	var confidence sql.NullFloat64
	var observations, issuesJSON, thumbURL sql.NullString

	err := rows.Scan(
		&event.ID, &event.BusID, &event.UserID, &event.State, &confidence,
		&observations, &issuesJSON, &thumbURL, &event.Origin, &event.CreatedAt,
	)
	if err != nil {
		return nil, fmt.Errorf("scan event: %w", err)
	}

	if confidence.Valid {
		v := confidence.Float64
		event.Confidence = &v
	}
	event.Observations = observations.String
	event.ThumbURL = thumbURL.String

	if issuesJSON.Valid && issuesJSON.String != "" {
		if err := json.Unmarshal([]byte(issuesJSON.String), &event.Issues); err != nil {
			return nil, fmt.Errorf("unmarshal issues: %w", err)
		}
	}

	return event, nil
}
