package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

type sqliteUserRepo struct {
	db *sql.DB
}

// isUniqueViolation reports whether err is a unique-constraint failure.
func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}

func (r *sqliteUserRepo) Create(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (id, name, email, password_hash, role, active, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID, user.Name, user.Email, user.PasswordHash, user.Role,
		boolToInt(user.Active), user.CreatedAt, nullTime(user.UpdatedAt),
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", user.Email, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	return nil
}

func (r *sqliteUserRepo) GetByID(ctx context.Context, id string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, active, created_at, updated_at
		FROM users WHERE id = ?
	`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *sqliteUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, active, created_at, updated_at
		FROM users WHERE email = ?
	`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *sqliteUserRepo) Update(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	query := `
		UPDATE users SET name = ?, email = ?, password_hash = ?, role = ?, active = ?, updated_at = ?
		WHERE id = ?
	`
	result, err := r.db.ExecContext(ctx, query,
		user.Name, user.Email, user.PasswordHash, user.Role,
		boolToInt(user.Active), now, user.ID,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %q: %w", user.Email, ErrConflict)
	}
	if err != nil {
		return fmt.Errorf("update user: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user %s: %w", user.ID, ErrNotFound)
	}
	user.UpdatedAt = &now
	return nil
}

func (r *sqliteUserRepo) SetActive(ctx context.Context, id string, active bool) error {
	result, err := r.db.ExecContext(ctx,
		"UPDATE users SET active = ?, updated_at = ? WHERE id = ?",
		boolToInt(active), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("set user active: %w", err)
	}
	rows, _ := result.RowsAffected()
	if rows == 0 {
		return fmt.Errorf("user %s: %w", id, ErrNotFound)
	}
	return nil
}

func (r *sqliteUserRepo) List(ctx context.Context) ([]*models.User, error) {
	query := `
		SELECT id, name, email, password_hash, role, active, created_at, updated_at
		FROM users ORDER BY name
	`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query users: %w", err)
	}
	defer rows.Close()

	var users []*models.User
	for rows.Next() {
		user, err := scanUserRow(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, user)
	}
	return users, rows.Err()
}

func (r *sqliteUserRepo) Count(ctx context.Context) (int64, error) {
	var count int64
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM users").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count users: %w", err)
	}
	return count, nil
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	var active int
	var updatedAt sql.NullTime

	err := row.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &active, &user.CreatedAt, &updatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.Active = active != 0
	user.UpdatedAt = timePtr(updatedAt)
	return user, nil
}

func scanUserRow(rows *sql.Rows) (*models.User, error) {
	user := &models.User{}
	var active int
	var updatedAt sql.NullTime

	err := rows.Scan(&user.ID, &user.Name, &user.Email, &user.PasswordHash,
		&user.Role, &active, &user.CreatedAt, &updatedAt)
	if err != nil {
		return nil, fmt.Errorf("scan user: %w", err)
	}

	user.Active = active != 0
	user.UpdatedAt = timePtr(updatedAt)
	return user, nil
}
