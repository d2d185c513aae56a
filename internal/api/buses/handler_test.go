package buses

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/go-chi/chi/v5"

	"github.com/good-yellow-bee/fleetwatch/internal/models"
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

	h := NewHandler(store)
	r := chi.NewRouter()
	r.Post("/buses", h.Create)
	r.Get("/buses", h.List)
	r.Get("/buses/{id}", h.GetByID)
	r.Put("/buses/{id}", h.Update)
	r.Delete("/buses/{id}", h.Delete)
	return r, store
}

func decodeBus(t *testing.T, body *bytes.Buffer) models.Bus {
	t.Helper()
	var resp struct {
		Data models.Bus `json:"data"`
	}
	if err := json.NewDecoder(body).Decode(&resp); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	return resp.Data
}

// TestHandler_Create tests bus creation over HTTP.
func TestHandler_Create(t *testing.T) {
	router, _ := newTestRouter(t)

	t.Run("created with normalized plate", func(t *testing.T) {
		body := bytes.NewBufferString(`{"plate": " ab-123-cd ", "alias": "Line 42"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/buses", body))

		if rec.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201: %s", rec.Code, rec.Body.String())
		}
		bus := decodeBus(t, rec.Body)
		if bus.Plate != "AB-123-CD" {
			t.Errorf("plate = %s, want AB-123-CD", bus.Plate)
		}
		if bus.ID == "" {
			t.Error("bus has no id")
		}
		if !bus.Active {
			t.Error("new bus should be active")
		}
	})

	t.Run("duplicate plate conflicts", func(t *testing.T) {
		body := bytes.NewBufferString(`{"plate": "AB-123-CD"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/buses", body))
		if rec.Code != http.StatusConflict {
			t.Fatalf("status = %d, want 409", rec.Code)
		}
	})

	t.Run("missing plate rejected", func(t *testing.T) {
		body := bytes.NewBufferString(`{"alias": "no plate"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/buses", body))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})

	t.Run("malformed body rejected", func(t *testing.T) {
		body := bytes.NewBufferString(`{plate`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/buses", body))
		if rec.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", rec.Code)
		}
	})
}

// TestHandler_GetUpdateDelete tests the single-bus lifecycle endpoints.
func TestHandler_GetUpdateDelete(t *testing.T) {
	router, store := newTestRouter(t)

	bus := models.NewBus("XY-987-ZW", "Depot shuttle")
	if err := store.Buses().Create(context.Background(), bus); err != nil {
		t.Fatalf("seed bus: %v", err)
	}

	t.Run("get by id", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/buses/"+bus.ID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200", rec.Code)
		}
		got := decodeBus(t, rec.Body)
		if got.Plate != "XY-987-ZW" {
			t.Errorf("plate = %s, want XY-987-ZW", got.Plate)
		}
	})

	t.Run("unknown id is 404", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/buses/no-such-id", nil))
		if rec.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", rec.Code)
		}
	})

	t.Run("update alias keeps plate", func(t *testing.T) {
		body := bytes.NewBufferString(`{"alias": "Night line"}`)
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPut, "/buses/"+bus.ID, body))
		if rec.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200: %s", rec.Code, rec.Body.String())
		}
		got := decodeBus(t, rec.Body)
		if got.Alias != "Night line" {
			t.Errorf("alias = %s, want Night line", got.Alias)
		}
		if got.Plate != "XY-987-ZW" {
			t.Errorf("plate changed to %s", got.Plate)
		}
		if got.UpdatedAt == nil {
			t.Error("updated_at not set")
		}
	})

	t.Run("delete deactivates but retains", func(t *testing.T) {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/buses/"+bus.ID, nil))
		if rec.Code != http.StatusNoContent {
			t.Fatalf("status = %d, want 204", rec.Code)
		}

		rec = httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/buses/"+bus.ID, nil))
		if rec.Code != http.StatusOK {
			t.Fatalf("deleted bus no longer readable, status = %d", rec.Code)
		}
		got := decodeBus(t, rec.Body)
		if got.Active {
			t.Error("bus still active after delete")
		}
	})
}

// TestHandler_List tests listing with the active filter.
func TestHandler_List(t *testing.T) {
	router, store := newTestRouter(t)

	ctx := context.Background()
	active := models.NewBus("AA-111-AA", "")
	retired := models.NewBus("BB-222-BB", "")
	for _, b := range []*models.Bus{active, retired} {
		if err := store.Buses().Create(ctx, b); err != nil {
			t.Fatalf("seed bus: %v", err)
		}
	}
	if err := store.Buses().SetActive(ctx, retired.ID, false); err != nil {
		t.Fatalf("deactivate: %v", err)
	}

	decodeList := func(t *testing.T, body *bytes.Buffer) []models.Bus {
		t.Helper()
		var resp struct {
			Data []models.Bus `json:"data"`
		}
		if err := json.NewDecoder(body).Decode(&resp); err != nil {
			t.Fatalf("decode response: %v", err)
		}
		return resp.Data
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/buses", nil))
	if got := len(decodeList(t, rec.Body)); got != 2 {
		t.Errorf("full list has %d buses, want 2", got)
	}

	rec = httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/buses?active=true", nil))
	list := decodeList(t, rec.Body)
	if len(list) != 1 {
		t.Fatalf("active list has %d buses, want 1", len(list))
	}
	if list[0].Plate != "AA-111-AA" {
		t.Errorf("active bus plate = %s, want AA-111-AA", list[0].Plate)
	}
}
