// Package storage provides database storage interfaces and implementations.
package storage

import (
	"context"
	"errors"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// ErrConflict is returned when a unique constraint rejects a write, e.g. a
// duplicate bus plate or user email.
var ErrConflict = errors.New("record already exists")

// Storage is the main interface for database operations.
type Storage interface {
	// Open initializes the database connection.
	Open() error
	// Close closes the database connection.
	Close() error
	// Migrate runs database migrations.
	Migrate() error
	// EnsureAdminUser creates a default admin if no users exist.
	EnsureAdminUser() error

	// Repository accessors
	Users() UserRepository
	Buses() BusRepository
	Events() EventRepository
	Alerts() AlertRepository
	Tokens() TokenRepository
}

// UserRepository defines operations for user management.
type UserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context) ([]*models.User, error)
	Count(ctx context.Context) (int64, error)
}

// BusRepository defines operations for fleet vehicle management.
type BusRepository interface {
	Create(ctx context.Context, bus *models.Bus) error
	GetByID(ctx context.Context, id string) (*models.Bus, error)
	GetByPlate(ctx context.Context, plate string) (*models.Bus, error)
	Update(ctx context.Context, bus *models.Bus) error
	SetActive(ctx context.Context, id string, active bool) error
	List(ctx context.Context, activeOnly bool) ([]*models.Bus, error)
}

// EventFilter narrows event listings.
type EventFilter struct {
	From   *time.Time
	To     *time.Time
	BusID  string
	Plate  string // substring match on the bus plate
	State  models.CleanState
	UserID string
	Limit  int
	Offset int
}

// EventRepository is the append-only inspection event log. Events are
// immutable: there is no update or delete.
type EventRepository interface {
	// Create persists one event, assigning its id and server timestamp.
	// The stored record is written back into event.
	Create(ctx context.Context, event *models.InspectionEvent) error
	GetByID(ctx context.Context, id int64) (*models.InspectionEvent, error)
	// ListForBusSince returns all events for a bus with creation timestamp
	// strictly after since, ordered oldest-first. Together with a caller
	// passing since = now-window this yields the half-open interval
	// (now-window, now].
	ListForBusSince(ctx context.Context, busID string, since time.Time) ([]*models.InspectionEvent, error)
	List(ctx context.Context, filter EventFilter) ([]*models.InspectionEvent, error)
}

// AlertFilter narrows alert listings.
type AlertFilter struct {
	Resolved *bool
	Kind     models.AlertKind
	Severity models.Severity
	BusID    string
	Limit    int
	Offset   int
}

// AlertRepository defines operations for derived alerts.
type AlertRepository interface {
	// CreateIfAbsent inserts the alert unless an unresolved alert of the
	// same kind already exists for the bus. Returns true and fills in the
	// assigned id/timestamp when the row was inserted; returns false (and
	// no error) when a concurrent or earlier unresolved alert suppressed
	// it. The check-and-insert is atomic at the database.
	CreateIfAbsent(ctx context.Context, alert *models.Alert) (bool, error)
	GetByID(ctx context.Context, id int64) (*models.Alert, error)
	// HasUnresolved reports whether an unresolved alert of the given kind
	// exists for the bus.
	HasUnresolved(ctx context.Context, busID string, kind models.AlertKind) (bool, error)
	// UnresolvedKinds returns the set of kinds with an outstanding
	// unresolved alert for the bus.
	UnresolvedKinds(ctx context.Context, busID string) (map[models.AlertKind]bool, error)
	// Resolve marks an alert resolved. ErrConflict if already resolved.
	Resolve(ctx context.Context, id int64, resolverID string, at time.Time) error
	List(ctx context.Context, filter AlertFilter) ([]*models.Alert, error)
}

// TokenRepository defines operations for refresh token management.
type TokenRepository interface {
	Create(ctx context.Context, token *models.RefreshToken) error
	GetByTokenHash(ctx context.Context, tokenHash string) (*models.RefreshToken, error)
	RevokeByTokenHash(ctx context.Context, tokenHash string) error
	RevokeAllForUser(ctx context.Context, userID string) error
	DeleteExpired(ctx context.Context) (int64, error)
}
