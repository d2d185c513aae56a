// Package report renders inspection history into exportable reports.
package report

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
)

// ExportFormat defines the output format for exports.
type ExportFormat string

const (
	ExportJSON ExportFormat = "json"
	ExportCSV  ExportFormat = "csv"
)

// ParseExportFormat parses a string to ExportFormat.
func ParseExportFormat(s string) (ExportFormat, bool) {
	switch s {
	case "json":
		return ExportJSON, true
	case "csv":
		return ExportCSV, true
	default:
		return "", false
	}
}

// Row is one exported inspection event with display fields resolved.
type Row struct {
	EventID     int64     `json:"event_id"`
	BusPlate    string    `json:"bus_plate"`
	BusAlias    string    `json:"bus_alias,omitempty"`
	State       string    `json:"state"`
	Confidence  *float64  `json:"confidence,omitempty"`
	Issues      []string  `json:"issues,omitempty"`
	SubmittedBy string    `json:"submitted_by"`
	Origin      string    `json:"origin"`
	CreatedAt   time.Time `json:"created_at"`
}

// Exporter streams inspection events for a date range into CSV or JSON.
type Exporter struct {
	events storage.EventRepository
	buses  storage.BusRepository
	users  storage.UserRepository
}

// NewExporter creates an exporter backed by the given store.
func NewExporter(store storage.Storage) *Exporter {
	return &Exporter{
		events: store.Events(),
		buses:  store.Buses(),
		users:  store.Users(),
	}
}

// Export writes all events in [from, to] to w in the given format. An empty
// busID exports the whole fleet.
func (e *Exporter) Export(ctx context.Context, w io.Writer, format ExportFormat, busID string, from, to time.Time) error {
	rows, err := e.collect(ctx, busID, from, to)
	if err != nil {
		return err
	}

	switch format {
	case ExportCSV:
		return writeCSV(w, rows)
	default:
		return writeJSON(w, rows)
	}
}

// collect pages through the event store and resolves display names once per
// referenced bus and user.
func (e *Exporter) collect(ctx context.Context, busID string, from, to time.Time) ([]Row, error) {
	const pageSize = 100

	busCache := make(map[string]*models.Bus)
	userCache := make(map[string]string)

	var rows []Row
	offset := 0
	for {
		events, err := e.events.List(ctx, storage.EventFilter{
			From:   &from,
			To:     &to,
			BusID:  busID,
			Limit:  pageSize,
			Offset: offset,
		})
		if err != nil {
			return nil, fmt.Errorf("list events: %w", err)
		}
		if len(events) == 0 {
			break
		}

		for _, ev := range events {
			bus, ok := busCache[ev.BusID]
			if !ok {
				bus, err = e.buses.GetByID(ctx, ev.BusID)
				if err != nil {
					return nil, fmt.Errorf("resolve bus %s: %w", ev.BusID, err)
				}
				busCache[ev.BusID] = bus
			}

			name, ok := userCache[ev.UserID]
			if !ok {
				user, err := e.users.GetByID(ctx, ev.UserID)
				if err != nil {
					return nil, fmt.Errorf("resolve user %s: %w", ev.UserID, err)
				}
				if user != nil {
					name = user.Name
				}
				userCache[ev.UserID] = name
			}

			row := Row{
				EventID:     ev.ID,
				State:       string(ev.State),
				Confidence:  ev.Confidence,
				Issues:      ev.Issues,
				SubmittedBy: name,
				Origin:      string(ev.Origin),
				CreatedAt:   ev.CreatedAt,
			}
			if bus != nil {
				row.BusPlate = bus.Plate
				row.BusAlias = bus.Alias
			}
			rows = append(rows, row)
		}

		if len(events) < pageSize {
			break
		}
		offset += len(events)
	}

	return rows, nil
}

func writeJSON(w io.Writer, rows []Row) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(rows)
}

func writeCSV(w io.Writer, rows []Row) error {
	cw := csv.NewWriter(w)
	defer cw.Flush()

	cw.Write([]string{"event_id", "bus_plate", "bus_alias", "state", "confidence", "issues", "submitted_by", "origin", "created_at"})
	for _, r := range rows {
		confidence := ""
		if r.Confidence != nil {
			confidence = strconv.FormatFloat(*r.Confidence, 'f', 2, 64)
		}
		cw.Write([]string{
			strconv.FormatInt(r.EventID, 10),
			r.BusPlate,
			r.BusAlias,
			r.State,
			confidence,
			strings.Join(r.Issues, ";"),
			r.SubmittedBy,
			r.Origin,
			r.CreatedAt.UTC().Format(time.RFC3339),
		})
	}

	return cw.Error()
}
