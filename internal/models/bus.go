// Package models defines the core domain types for FleetWatch.
package models

import (
	"time"

	"github.com/google/uuid"
)

// Bus represents a fleet vehicle tracked for cleanliness inspections.
type Bus struct {
	ID        string     `json:"id"`
	Plate     string     `json:"plate"` // license plate, unique across the fleet
	Alias     string     `json:"alias,omitempty"`
	Active    bool       `json:"active"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt *time.Time `json:"updated_at,omitempty"`
}

// NewBus creates a new active Bus with a generated id.
func NewBus(plate, alias string) *Bus {
	return &Bus{
		ID:        uuid.New().String(),
		Plate:     plate,
		Alias:     alias,
		Active:    true,
		CreatedAt: time.Now().UTC(),
	}
}

// Label returns the human-readable identifier used in notification payloads.
func (b *Bus) Label() string {
	if b.Alias != "" {
		return b.Alias
	}
	return b.Plate
}
