package hub

import (
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

// Type tags a notification variant.
type Type string

const (
	// TypeEventCreated announces a newly recorded inspection event.
	TypeEventCreated Type = "event.created"
	// TypeAlertCreated announces a newly created alert.
	TypeAlertCreated Type = "alert.created"
)

// Notification is the tagged message broadcast to live viewers.
type Notification struct {
	Type Type `json:"type"`
	Data any  `json:"data"`
}

// EventPayload is the event.created payload.
type EventPayload struct {
	ID          int64             `json:"id"`
	BusID       string            `json:"bus_id"`
	BusLabel    string            `json:"bus_label"`
	SubmittedBy string            `json:"submitted_by"`
	State       models.CleanState `json:"state"`
	Confidence  *float64          `json:"confidence,omitempty"`
	CreatedAt   time.Time         `json:"created_at"`
}

// AlertPayload is the alert.created payload.
type AlertPayload struct {
	ID       int64            `json:"id"`
	BusID    string           `json:"bus_id"`
	BusLabel string           `json:"bus_label"`
	Kind     models.AlertKind `json:"kind"`
	Severity models.Severity  `json:"severity"`
	Detail   string           `json:"detail"`
}

// EventCreated builds an event.created notification.
func EventCreated(event *models.InspectionEvent, busLabel, submittedBy string) Notification {
	return Notification{
		Type: TypeEventCreated,
		Data: EventPayload{
			ID:          event.ID,
			BusID:       event.BusID,
			BusLabel:    busLabel,
			SubmittedBy: submittedBy,
			State:       event.State,
			Confidence:  event.Confidence,
			CreatedAt:   event.CreatedAt,
		},
	}
}

// AlertCreated builds an alert.created notification.
func AlertCreated(alert *models.Alert, busLabel string) Notification {
	return Notification{
		Type: TypeAlertCreated,
		Data: AlertPayload{
			ID:       alert.ID,
			BusID:    alert.BusID,
			BusLabel: busLabel,
			Kind:     alert.Kind,
			Severity: alert.Severity,
			Detail:   alert.Detail,
		},
	}
}
