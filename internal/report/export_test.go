package report

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
)

func newTestExporter(t *testing.T) (*Exporter, storage.Storage) {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}
	return NewExporter(store), store
}

func seedInspection(t *testing.T, store storage.Storage, at time.Time) (*models.Bus, *models.InspectionEvent) {
	t.Helper()
	ctx := context.Background()

	bus := models.NewBus("AB-123-CD", "Line 42")
	if err := store.Buses().Create(ctx, bus); err != nil {
		t.Fatalf("seed bus: %v", err)
	}
	user := models.NewUser("Alex", "alex@example.com", models.RoleOperator)
	user.PasswordHash = "x"
	if err := store.Users().Create(ctx, user); err != nil {
		t.Fatalf("seed user: %v", err)
	}

	conf := 0.92
	event := &models.InspectionEvent{
		BusID:      bus.ID,
		UserID:     user.ID,
		State:      models.StateDirty,
		Confidence: &conf,
		Issues:     []string{"trash", "spill"},
		Origin:     models.OriginEdge,
		CreatedAt:  at,
	}
	if err := store.Events().Create(ctx, event); err != nil {
		t.Fatalf("seed event: %v", err)
	}
	return bus, event
}

// TestExporter_CSV tests the CSV rendering with resolved display names.
func TestExporter_CSV(t *testing.T) {
	exporter, store := newTestExporter(t)

	now := time.Now().UTC()
	seedInspection(t, store, now)

	var buf bytes.Buffer
	err := exporter.Export(context.Background(), &buf, ExportCSV, "", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	records, err := csv.NewReader(&buf).ReadAll()
	if err != nil {
		t.Fatalf("parse CSV output: %v", err)
	}
	if len(records) != 2 {
		t.Fatalf("CSV has %d rows, want header + 1", len(records))
	}

	header := records[0]
	if header[0] != "event_id" || header[len(header)-1] != "created_at" {
		t.Errorf("unexpected header: %v", header)
	}

	row := records[1]
	if row[1] != "AB-123-CD" {
		t.Errorf("bus_plate = %s, want AB-123-CD", row[1])
	}
	if row[3] != "dirty" {
		t.Errorf("state = %s, want dirty", row[3])
	}
	if row[4] != "0.92" {
		t.Errorf("confidence = %s, want 0.92", row[4])
	}
	if row[5] != "trash;spill" {
		t.Errorf("issues = %s, want trash;spill", row[5])
	}
	if row[6] != "Alex" {
		t.Errorf("submitted_by = %s, want Alex", row[6])
	}
}

// TestExporter_JSON tests the JSON rendering.
func TestExporter_JSON(t *testing.T) {
	exporter, store := newTestExporter(t)

	now := time.Now().UTC()
	_, event := seedInspection(t, store, now)

	var buf bytes.Buffer
	err := exporter.Export(context.Background(), &buf, ExportJSON, "", now.Add(-time.Hour), now.Add(time.Hour))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}

	var rows []Row
	if err := json.Unmarshal(buf.Bytes(), &rows); err != nil {
		t.Fatalf("parse JSON output: %v", err)
	}
	if len(rows) != 1 {
		t.Fatalf("JSON has %d rows, want 1", len(rows))
	}
	if rows[0].EventID != event.ID {
		t.Errorf("event_id = %d, want %d", rows[0].EventID, event.ID)
	}
	if rows[0].BusPlate != "AB-123-CD" {
		t.Errorf("bus_plate = %s, want AB-123-CD", rows[0].BusPlate)
	}
}

// TestExporter_EmptyRange tests that an empty range still renders a valid
// document.
func TestExporter_EmptyRange(t *testing.T) {
	exporter, _ := newTestExporter(t)

	now := time.Now().UTC()

	var buf bytes.Buffer
	err := exporter.Export(context.Background(), &buf, ExportCSV, "", now.Add(-2*time.Hour), now.Add(-time.Hour))
	if err != nil {
		t.Fatalf("Export failed: %v", err)
	}
	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("empty export has %d lines, want header only", len(lines))
	}
}

// TestParseExportFormat tests format parsing.
func TestParseExportFormat(t *testing.T) {
	if f, ok := ParseExportFormat("csv"); !ok || f != ExportCSV {
		t.Errorf("csv parsed as (%s, %t)", f, ok)
	}
	if f, ok := ParseExportFormat("json"); !ok || f != ExportJSON {
		t.Errorf("json parsed as (%s, %t)", f, ok)
	}
	if _, ok := ParseExportFormat("xlsx"); ok {
		t.Error("xlsx should not parse")
	}
}
