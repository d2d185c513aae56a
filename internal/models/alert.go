package models

import (
	"time"
)

// AlertKind identifies the pattern an alert flags.
type AlertKind string

const (
	// AlertRepeatedDirty fires when a bus is marked dirty repeatedly
	// within the evaluation window.
	AlertRepeatedDirty AlertKind = "repeated_dirty"
	// AlertVeryDirty fires on a single high-confidence dirty event with
	// multiple detected issues.
	AlertVeryDirty AlertKind = "very_dirty"
	// AlertRecurrentUncertain fires when classification keeps coming back
	// uncertain, signalling the bus needs a manual check.
	AlertRecurrentUncertain AlertKind = "recurrent_uncertain"
)

// Valid reports whether k is a known alert kind.
func (k AlertKind) Valid() bool {
	switch k {
	case AlertRepeatedDirty, AlertVeryDirty, AlertRecurrentUncertain:
		return true
	}
	return false
}

// Severity represents alert severity level.
type Severity string

const (
	SeverityInfo     Severity = "info"
	SeverityWarn     Severity = "warn"
	SeverityCritical Severity = "critical"
)

// Alert is a derived record flagging a bus pattern that needs human
// follow-up. At most one unresolved alert per (bus, kind) may exist;
// the storage layer enforces this with a partial unique index.
type Alert struct {
	ID         int64      `json:"id"`
	BusID      string     `json:"bus_id"`
	Kind       AlertKind  `json:"kind"`
	Severity   Severity   `json:"severity"`
	Detail     string     `json:"detail"`
	CreatedAt  time.Time  `json:"created_at"`
	ResolvedBy string     `json:"resolved_by,omitempty"`
	ResolvedAt *time.Time `json:"resolved_at,omitempty"`
}

// Resolved reports whether the alert has been acknowledged and closed.
func (a *Alert) Resolved() bool {
	return a.ResolvedAt != nil
}

// ParseAlertKind converts a string to AlertKind. The boolean is false for
// unknown values.
func ParseAlertKind(s string) (AlertKind, bool) {
	k := AlertKind(s)
	return k, k.Valid()
}

// ParseSeverity converts a string to Severity, defaulting to warn.
func ParseSeverity(s string) Severity {
	switch s {
	case "info":
		return SeverityInfo
	case "critical":
		return SeverityCritical
	default:
		return SeverityWarn
	}
}
