package models

import (
	"time"
)

// CleanState is the classifier's verdict for one inspection.
type CleanState string

const (
	StateClean     CleanState = "clean"
	StateDirty     CleanState = "dirty"
	StateUncertain CleanState = "uncertain"
)

// Valid reports whether s is a known cleanliness state.
func (s CleanState) Valid() bool {
	switch s {
	case StateClean, StateDirty, StateUncertain:
		return true
	}
	return false
}

// Origin identifies where the classification was produced.
type Origin string

const (
	OriginEdge   Origin = "edge"   // on-device inference
	OriginServer Origin = "server" // server-side inference
	OriginManual Origin = "manual" // human classification
)

// Valid reports whether o is a known origin tag.
func (o Origin) Valid() bool {
	switch o {
	case OriginEdge, OriginServer, OriginManual:
		return true
	}
	return false
}

// InspectionEvent is one submitted cleanliness observation for a bus.
// Events are immutable once created: the id and timestamp are assigned at
// persistence time and the record is never updated or deleted.
type InspectionEvent struct {
	ID           int64      `json:"id"`
	BusID        string     `json:"bus_id"`
	UserID       string     `json:"user_id"`
	State        CleanState `json:"state"`
	Confidence   *float64   `json:"confidence,omitempty"` // 0.0-1.0 when present
	Observations string     `json:"observations,omitempty"`
	Issues       []string   `json:"issues,omitempty"` // classifier-detected issues, ordered
	ThumbURL     string     `json:"thumb_url,omitempty"`
	Origin       Origin     `json:"origin"`
	CreatedAt    time.Time  `json:"created_at"`
}

// IssueCount returns the number of detected issues.
func (e *InspectionEvent) IssueCount() int {
	return len(e.Issues)
}

// ConfidenceOrZero returns the confidence value, or 0 when absent.
func (e *InspectionEvent) ConfidenceOrZero() float64 {
	if e.Confidence == nil {
		return 0
	}
	return *e.Confidence
}
