package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

type sqliteBusRepo struct {
	db *sql.DB
}

func (r *sqliteBusRepo) Create(ctx context.Context, bus *models.Bus) error {
	query := `
		INSERT INTO buses (id, plate, alias, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		bus.ID, bus.Plate, nullString(bus.Alias), boolToInt(bus.Active),
		bus.CreatedAt, nullTime(bus.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("bus %q: %w", bus.Plate, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert bus: %w", err)
	}
	return nil
}

func (r *sqliteBusRepo) GetByID(ctx context.Context, id string) (*models.Bus, error) {
	query := `
		SELECT id, plate, alias, active, created_at, updated_at
		FROM buses WHERE id = ?
	`
	return scanBus(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteBusRepo) GetByPlate(ctx context.Context, plate string) (*models.Bus, error) {
	query := `
		SELECT id, plate, alias, active, created_at, updated_at
		FROM buses WHERE plate = ?
	`
	return scanBus(r.db.QueryRowContext(ctx, query, plate))
}

func (r *sqliteBusRepo) Update(ctx context.Context, bus *models.Bus) error {
	now := time.Now().UTC()
	query := `
		UPDATE buses SET plate = ?, alias = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		bus.Plate, nullString(bus.Alias), boolToInt(bus.Active), now, bus.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("bus %q: %w", bus.Plate, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update bus: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("bus %s: %w", bus.ID, ErrNotFound)
	}
	bus.UpdatedAt = &now
	return nil
}

func (r *sqliteBusRepo) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE buses SET active = ?, updated_at = ? WHERE id = ?",
		boolToInt(active), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set bus active: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("bus %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *sqliteBusRepo) List(ctx context.Context, activeOnly bool) ([]*models.Bus, error) {
	query := `
		SELECT id, plate, alias, active, created_at, updated_at
		FROM buses
	`
	if activeOnly {
		query += " WHERE active = 1"
	}
	query += " ORDER BY plate"

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query buses: %w", err)
	}
	defer rows.Close()

	var buses []*models.Bus
	for rows.Next() {
		bus, err := scanBusRow(rows)
		if err != nil {
			return nil, err
		}
		buses = append(buses, bus)
	}
	return buses, rows.Err()
}

func scanBus(row *sql.Row) (*models.Bus, error) {
	bus := &models.Bus{}
	var alias sql.NullString
	var active int
	var updatedAt sql.NullTime

	err := row.Scan(&bus.ID, &bus.Plate, &alias, &active, &bus.CreatedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan bus: %w", err)
	}

	bus.Alias = alias.String
	bus.Active = active != 0
	bus.UpdatedAt = timePtr(updatedAt)
	return bus, nil
}

func scanBusRow(rows *sql.Rows) (*models.Bus, error) {
	bus := &models.Bus{}
	var alias sql.NullString
	var active int
	var updatedAt sql.NullTime

	err := rows.Scan(&bus.ID, &bus.Plate, &alias, &active, &bus.CreatedAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan bus: %w", err)
	}

	bus.Alias = alias.String
	bus.Active = active != 0
	bus.UpdatedAt = timePtr(updatedAt)
	return bus, nil
}
