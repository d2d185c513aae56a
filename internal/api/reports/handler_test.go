package reports

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
	"github.com/good-yellow-bee/fleetwatch/internal/report"
	"github.com/good-yellow-bee/fleetwatch/internal/storage"
)

// newTestRouter wires the handler into a chi router over a temp-file DB.
func newTestRouter(t *testing.T) (*chi.Mux, storage.Storage) {
	t.Helper()

	store := storage.NewSQLiteStorage(filepath.Join(t.TempDir(), "test.db"))
	if err := store.Open(); err != nil {
		t.Fatalf("Open failed: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	if err := store.Migrate(); err != nil {
		t.Fatalf("Migrate failed: %v", err)
	}

	h := NewHandler(report.NewExporter(store))
	r := chi.NewRouter()
	r.Get("/reports/summary", h.Summary)
	r.Get("/reports/inspections", h.Export)
	return r, store
}

func seedEvents(t *testing.T, store storage.Storage, now time.Time, states ...models.CleanState) {
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
	for i, state := range states {
		ev := &models.InspectionEvent{
			BusID:     bus.ID,
			UserID:    user.ID,
			State:     state,
			Origin:    models.OriginEdge,
			CreatedAt: now.Add(time.Duration(i) * time.Minute),
		}
		if err := store.Events().Create(ctx, ev); err != nil {
			t.Fatalf("seed event: %v", err)
		}
	}
}

// TestHandler_Summary tests the aggregate statistics endpoint.
func TestHandler_Summary(t *testing.T) {
	router, store := newTestRouter(t)

	now := time.Now().UTC()
	seedEvents(t, store, now.Add(-time.Hour), models.StateDirty, models.StateDirty, models.StateClean)

	t.Run("defaults to last thirty days", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/summary", nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Data report.Summary `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Data.TotalEvents != 3 {
			t.Errorf("total_events = %d, want 3", resp.Data.TotalEvents)
		}
		if got := resp.Data.ByState["dirty"]; got.Count != 2 {
			t.Errorf("dirty count = %d, want 2", got.Count)
		}
		if len(resp.Data.TopDirtyBuses) != 1 || resp.Data.TopDirtyBuses[0].BusPlate != "AB-123-CD" {
			t.Errorf("top dirty buses = %+v, want AB-123-CD", resp.Data.TopDirtyBuses)
		}
	})

	t.Run("explicit period excludes older events", func(t *testing.T) {
		from := now.Add(-10 * time.Minute).Format(time.RFC3339)
		to := now.Format(time.RFC3339)
		target := fmt.Sprintf("/reports/summary?from=%s&to=%s", from, to)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))

		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		var resp struct {
			Data report.Summary `json:"data"`
		}
		if err := json.NewDecoder(rec.Body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		if resp.Data.TotalEvents != 0 {
			t.Errorf("total_events = %d, want 0", resp.Data.TotalEvents)
		}
	})

	t.Run("rejects malformed timestamps", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/reports/summary?from=yesterday", nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("rejects inverted period", func(t *testing.T) {
		from := now.Format(time.RFC3339)
		to := now.Add(-time.Hour).Format(time.RFC3339)
		target := fmt.Sprintf("/reports/summary?from=%s&to=%s", from, to)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}
