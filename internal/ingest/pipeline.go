// Package ingest implements the inspection submission pipeline: validate the
// bus, durably record the event, evaluate alert rules, and broadcast to live
// viewers. The pipeline is split into a durable half whose errors abort the
// submission and an advisory half whose errors are logged and swallowed --
// losing an alert or a notification is recoverable, losing the inspection
// record is not.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/alerting"
	"github.com/good-yellow-bee/fleetwatch/internal/hub"
	"github.com/good-yellow-bee/fleetwatch/internal/metrics"
	"github.com/good-yellow-bee/fleetwatch/internal/models"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
)

// ErrBusNotFound is returned when the submission references an unknown bus.
var ErrBusNotFound = errors.New("bus not found")

// ErrInvalidSubmission is returned when the submission fails validation.
var ErrInvalidSubmission = errors.New("invalid submission")

// Broadcaster is the advisory fan-out half of the pipeline. It deliberately
// returns nothing: no broadcast outcome can abort a submission.
type Broadcaster interface {
	Broadcast(n hub.Notification)
}

// Submission is one validated inspection arriving from the transport layer,
// with the classifier output already attached.
type Submission struct {
	BusID        string
	UserID       string
	State        models.CleanState
	Confidence   *float64
	Observations string
	Issues       []string
	ThumbURL     string
	Origin       models.Origin
}

// Validate checks the submission's field-level constraints.
func (s Submission) Validate() error {
	if s.BusID == "" {
		return fmt.Errorf("%w: bus id is required", ErrInvalidSubmission)
	}
	if s.UserID == "" {
		return fmt.Errorf("%w: user id is required", ErrInvalidSubmission)
	}
	if !s.State.Valid() {
		return fmt.Errorf("%w: unknown state %q", ErrInvalidSubmission, s.State)
	}
	if s.Origin != "" && !s.Origin.Valid() {
		return fmt.Errorf("%w: unknown origin %q", ErrInvalidSubmission, s.Origin)
	}
	if s.Confidence != nil && (*s.Confidence < 0 || *s.Confidence > 1) {
		return fmt.Errorf("%w: confidence %g out of range", ErrInvalidSubmission, *s.Confidence)
	}
	return nil
}

// Service orchestrates event ingestion. One instance serves all concurrent
// submissions; duplicate-alert suppression is enforced by the alert store's
// conditional insert, so submissions for different buses never contend here.
type Service struct {
	buses  storage.BusRepository
	users  storage.UserRepository
	events storage.EventRepository
	alerts storage.AlertRepository
	engine *alerting.Engine
	hub    Broadcaster
	now    func() time.Time
}

// NewService creates the ingestion service.
func NewService(store storage.Storage, engine *alerting.Engine, b Broadcaster) *Service {
	return &Service{
		buses:  store.Buses(),
		users:  store.Users(),
		events: store.Events(),
		alerts: store.Alerts(),
		engine: engine,
		hub:    b,
		now:    time.Now,
	}
}

// Submit runs the pipeline for one inspection. On success the returned event
// is durably recorded; the returned alerts are the ones newly created by this
// submission. Alerting or broadcast failures do not fail the submission.
func (s *Service) Submit(ctx context.Context, sub Submission) (*models.InspectionEvent, []*models.Alert, error) {
	// Stage 1: validate. Nothing downstream runs on failure.
	if err := sub.Validate(); err != nil {
		return nil, nil, err
	}

	bus, err := s.buses.GetByID(ctx, sub.BusID)
	if err != nil {
		return nil, nil, fmt.Errorf("resolve bus: %w", err)
	}
	if bus == nil {
		return nil, nil, fmt.Errorf("bus %s: %w", sub.BusID, ErrBusNotFound)
	}

	// Stage 2: durable event write. Failure is fatal to the submission.
	origin := sub.Origin
	if origin == "" {
		origin = models.OriginEdge
	}
	event := &models.InspectionEvent{
		BusID:        sub.BusID,
		UserID:       sub.UserID,
		State:        sub.State,
		Confidence:   sub.Confidence,
		Observations: sub.Observations,
		Issues:       sub.Issues,
		ThumbURL:     sub.ThumbURL,
		Origin:       origin,
		CreatedAt:    s.now().UTC(),
	}
	if err := s.events.Create(ctx, event); err != nil {
		return nil, nil, fmt.Errorf("persist event: %w", err)
	}
	metrics.EventsIngested.WithLabelValues(string(event.State)).Inc()

	// Stages 3-4 are advisory: their failures are logged inside and can
	// not reach the caller. The inspection record is already durable.
	newAlerts := s.evaluateAlerts(ctx, event)
	s.broadcast(ctx, bus, event, newAlerts)

	return event, newAlerts, nil
}

// evaluateAlerts runs the rule engine over fresh history including the new
// event and persists the surviving proposals. All errors are swallowed.
func (s *Service) evaluateAlerts(ctx context.Context, event *models.InspectionEvent) []*models.Alert {
	now := s.now().UTC()
	window := s.engine.Config().Window

	history, err := s.events.ListForBusSince(ctx, event.BusID, now.Add(-window))
	if err != nil {
		log.Printf("ingest: alert evaluation skipped for bus %s: %v", event.BusID, err)
		metrics.AdvisoryFailures.WithLabelValues("alerting").Inc()
		return nil
	}

	unresolved, err := s.alerts.UnresolvedKinds(ctx, event.BusID)
	if err != nil {
		log.Printf("ingest: alert evaluation skipped for bus %s: %v", event.BusID, err)
		metrics.AdvisoryFailures.WithLabelValues("alerting").Inc()
		return nil
	}

	proposals := s.engine.Evaluate(history, event, unresolved, now)

	var created []*models.Alert
	for _, p := range proposals {
		alert := p.Alert()
		ok, err := s.alerts.CreateIfAbsent(ctx, alert)
		if err != nil {
			log.Printf("ingest: persist %s alert for bus %s failed: %v", p.Kind, event.BusID, err)
			metrics.AdvisoryFailures.WithLabelValues("alerting").Inc()
			continue
		}
		if !ok {
			// A concurrent submission won the insert; the invariant
			// holds either way.
			metrics.AlertsSuppressed.WithLabelValues(string(p.Kind)).Inc()
			continue
		}
		metrics.AlertsCreated.WithLabelValues(string(p.Kind)).Inc()
		created = append(created, alert)
	}
	return created
}

// broadcast fans the event and any new alerts out to live viewers. The hub
// already confines per-connection failures; this only enriches the payloads.
func (s *Service) broadcast(ctx context.Context, bus *models.Bus, event *models.InspectionEvent, alerts []*models.Alert) {
	submittedBy := event.UserID
	if user, err := s.users.GetByID(ctx, event.UserID); err != nil {
		log.Printf("ingest: submitter lookup for %s failed: %v", event.UserID, err)
		metrics.AdvisoryFailures.WithLabelValues("broadcast").Inc()
	} else if user != nil {
		submittedBy = user.Name
	}

	s.hub.Broadcast(hub.EventCreated(event, bus.Label(), submittedBy))
	for _, alert := range alerts {
		s.hub.Broadcast(hub.AlertCreated(alert, bus.Label()))
	}
}
