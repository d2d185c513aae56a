package alerting

import (
	"fmt"
	"sync/atomic"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
)

// Proposal is an alert the engine wants created. The store decides whether it
// survives deduplication against concurrent submissions.
type Proposal struct {
	BusID    string
	Kind     models.AlertKind
	Severity models.Severity
	Detail   string
}

// Alert converts the proposal into a persistable alert record.
func (p Proposal) Alert() *models.Alert {
	return &models.Alert{
		BusID:    p.BusID,
		Kind:     p.Kind,
		Severity: p.Severity,
		Detail:   p.Detail,
	}
}

// Engine evaluates a bus's recent event history against the alert rules.
// Evaluation is a pure function of its inputs; the only mutable state is the
// current Config, held behind an atomic pointer so a watcher can swap it
// while submissions are in flight.
type Engine struct {
	cfg atomic.Pointer[Config]
}

// NewEngine creates an engine with the given configuration.
func NewEngine(cfg Config) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	e := &Engine{}
	e.cfg.Store(&cfg)
	return e, nil
}

// Config returns the currently active configuration.
func (e *Engine) Config() Config {
	return *e.cfg.Load()
}

// UpdateConfig swaps in a new configuration after validating it.
func (e *Engine) UpdateConfig(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	e.cfg.Store(&cfg)
	return nil
}

// Evaluate runs all rules against the bus's history and the just-persisted
// latest event, at time now. history must contain the events inside the
// window, oldest first, including latest; events outside the window are
// ignored regardless. unresolved is the set of alert kinds with an
// outstanding unresolved alert for this bus: a rule whose kind is present is
// suppressed early. Rules are independent; one event may yield multiple
// proposals.
func (e *Engine) Evaluate(history []*models.InspectionEvent, latest *models.InspectionEvent, unresolved map[models.AlertKind]bool, now time.Time) []Proposal {
	cfg := e.Config()

	var proposals []Proposal

	if latest.State == models.StateDirty {
		if p := e.checkRepeatedDirty(cfg, history, latest, unresolved, now); p != nil {
			proposals = append(proposals, *p)
		}
		if p := e.checkVeryDirty(cfg, latest, unresolved); p != nil {
			proposals = append(proposals, *p)
		}
	}

	if latest.State == models.StateUncertain {
		if p := e.checkRecurrentUncertain(cfg, history, latest, unresolved, now); p != nil {
			proposals = append(proposals, *p)
		}
	}

	return proposals
}

// countInWindow counts events matching state within the half-open interval
// (now-window, now]. The strict lower bound means an event exactly at
// now-window does not count.
func countInWindow(history []*models.InspectionEvent, state models.CleanState, cutoff, now time.Time) int {
	count := 0
	for _, ev := range history {
		if ev.State != state {
			continue
		}
		if ev.CreatedAt.After(cutoff) && !ev.CreatedAt.After(now) {
			count++
		}
	}
	return count
}

func (e *Engine) checkRepeatedDirty(cfg Config, history []*models.InspectionEvent, latest *models.InspectionEvent, unresolved map[models.AlertKind]bool, now time.Time) *Proposal {
	if unresolved[models.AlertRepeatedDirty] {
		return nil
	}

	cutoff := now.Add(-cfg.Window)
	count := countInWindow(history, models.StateDirty, cutoff, now)
	if count < cfg.DirtyThreshold {
		return nil
	}

	return &Proposal{
		BusID:    latest.BusID,
		Kind:     models.AlertRepeatedDirty,
		Severity: models.SeverityWarn,
		Detail:   fmt.Sprintf("bus marked dirty %d times in the last %s", count, formatWindow(cfg.Window)),
	}
}

func (e *Engine) checkVeryDirty(cfg Config, latest *models.InspectionEvent, unresolved map[models.AlertKind]bool) *Proposal {
	if unresolved[models.AlertVeryDirty] {
		return nil
	}
	if latest.Confidence == nil || *latest.Confidence < cfg.HighConfidence {
		return nil
	}
	if latest.IssueCount() < cfg.MinIssues {
		return nil
	}

	return &Proposal{
		BusID:    latest.BusID,
		Kind:     models.AlertVeryDirty,
		Severity: models.SeverityCritical,
		Detail:   fmt.Sprintf("very dirty bus detected with %d issues (confidence %.2f)", latest.IssueCount(), *latest.Confidence),
	}
}

func (e *Engine) checkRecurrentUncertain(cfg Config, history []*models.InspectionEvent, latest *models.InspectionEvent, unresolved map[models.AlertKind]bool, now time.Time) *Proposal {
	if unresolved[models.AlertRecurrentUncertain] {
		return nil
	}

	cutoff := now.Add(-cfg.Window)
	count := countInWindow(history, models.StateUncertain, cutoff, now)
	if count < cfg.UncertainThreshold {
		return nil
	}

	return &Proposal{
		BusID:    latest.BusID,
		Kind:     models.AlertRecurrentUncertain,
		Severity: models.SeverityInfo,
		Detail:   fmt.Sprintf("bus classified uncertain %d times in the last %s - needs manual review", count, formatWindow(cfg.Window)),
	}
}

// formatWindow renders a window duration in whole hours when possible.
func formatWindow(w time.Duration) string {
	if w >= time.Hour && w%time.Hour == 0 {
		return fmt.Sprintf("%dh", int(w/time.Hour))
	}
	return w.String()
}
