package handler

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"

	"promotions-service/internal/database"
	"promotions-service/internal/factory"
	"promotions-service/internal/models"
	"promotions-service/internal/service"
)

func setupTestHandler(t *testing.T, opts NewHandlerOptions) (*chi.Mux, func()) {
	dbPath := filepath.Join(t.TempDir(), "test_handler_"+time.Now().Format("20060102150405")+".db")
	db, err := database.NewDB(database.DriverSQLite, dbPath)
	if err != nil {
		t.Fatalf("Failed to create test database: %v", err)
	}

	svc := service.NewService(db)
	h := NewHandlerWithOptions(svc, opts)

	r := chi.NewRouter()
	h.RegisterRoutes(r)

	cleanup := func() {
		db.Close()
		os.Remove(dbPath)
	}

	return r, cleanup
}

func doRequest(t *testing.T, r http.Handler, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()

	var reader *bytes.Reader
	switch b := body.(type) {
	case nil:
		reader = bytes.NewReader(nil)
	case string:
		reader = bytes.NewReader([]byte(b))
	default:
		data, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("Failed to marshal request: %v", err)
		}
		reader = bytes.NewReader(data)
	}

	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, req)
	return rr
}

func decodeObject(t *testing.T, rr *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", rr.Body.String(), err)
	}
	return out
}

func createPromotion(t *testing.T, r http.Handler) map[string]any {
	t.Helper()
	p := factory.NewPromotion()
	rr := doRequest(t, r, http.MethodPost, "/promotions", p.Serialize())
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}
	return decodeObject(t, rr)
}

func TestHealthCheck(t *testing.T) {
	r, cleanup := setupTestHandler(t, DefaultHandlerOptions())
	defer cleanup()

	rr := doRequest(t, r, http.MethodGet, "/health", nil)

	if rr.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rr.Code)
	}
	if rr.Body.String() != "OK" {
		t.Errorf("Expected body 'OK', got '%s'", rr.Body.String())
	}
}

func TestCreatePromotion_Success(t *testing.T) {
	r, cleanup := setupTestHandler(t, DefaultHandlerOptions())
	defer cleanup()

	p := factory.NewPromotion()
	payload := p.Serialize()
	payload["id"] = 12345

	rr := doRequest(t, r, http.MethodPost, "/promotions", payload)
	if rr.Code != http.StatusCreated {
		t.Fatalf("Expected status 201, got %d: %s", rr.Code, rr.Body.String())
	}

	got := decodeObject(t, rr)
	id, ok := got["id"].(float64)
	if !ok || id <= 0 {
		t.Fatalf("Expected a positive id, got %v", got["id"])
	}
	if id == 12345 {
		t.Error("Expected the id in the body to be ignored")
	}
	if loc := rr.Header().Get("Location"); loc != fmt.Sprintf("/promotions/%d", int64(id)) {
		t.Errorf("Unexpected Location header %q", loc)
	}

	for _, field := range []string{"title", "promo_code", "promo_type", "promo_value", "start_date", "created_date", "duration", "active"} {
		if got[field] != payload[field] {
			t.Errorf("Field %s: expected %v, got %v", field, payload[field], got[field])
		}
	}
}

func TestCreatePromotion_BadRequests(t *testing.T) {
	r, cleanup := setupTestHandler(t, DefaultHandlerOptions())
	defer cleanup()

	missing := factory.NewPromotion().Serialize()
	delete(missing, "promo_code")

	badType := factory.NewPromotion().Serialize()
	badType["promo_type"] = "BUY_ONE_GET_ONE"

	negative := factory.NewPromotion().Serialize()
	negative["duration"] = "-1 days, 00:00:00"

	tests := []struct {
		name string
		body any
	}{
		{"empty body", nil},
		{"invalid json", "{not json"},
		{"list body", []any{1, 2}},
		{"missing field", missing},
		{"unknown type", badType},
		{"negative duration", negative},
	}

	for _, tt := range tests {
		rr := doRequest(t, r, http.MethodPost, "/promotions", tt.body)
		if rr.Code != http.StatusBadRequest {
			t.Errorf("%s: expected status 400, got %d: %s", tt.name, rr.Code, rr.Body.String())
			continue
		}
		var resp models.ErrorResponse
		if err := json.NewDecoder(rr.Body).Decode(&resp); err != nil || resp.Error == "" {
			t.Errorf("%s: expected an error message, got %q (%v)", tt.name, resp.Error, err)
		}
	}

	list := doRequest(t, r, http.MethodGet, "/promotions", nil)
	if list.Body.String() != "[]\n" {
		t.Errorf("Expected no promotions to be stored, got %s", list.Body.String())
	}
}

func TestCreatePromotion_BodyTooLarge(t *testing.T) {
	r, cleanup := setupTestHandler(t, NewHandlerOptions{MaxBodySize: 64})
	defer cleanup()

	body := `{"title": "` + strings.Repeat("x", 256) + `"}`
	rr := doRequest(t, r, http.MethodPost, "/promotions", body)
	if rr.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected status 413, got %d", rr.Code)
	}
}

func TestGetPromotion(t *testing.T) {
	r, cleanup := setupTestHandler(t, DefaultHandlerOptions())
	defer cleanup()

	created := createPromotion(t, r)
	id := int64(created["id"].(float64))

	rr := doRequest(t, r, http.MethodGet, fmt.Sprintf("/promotions/%d", id), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	got := decodeObject(t, rr)
	if got["promo_code"] != created["promo_code"] {
		t.Errorf("Expected promo_code %v, got %v", created["promo_code"], got["promo_code"])
	}

	rr = doRequest(t, r, http.MethodGet, "/promotions/999999", nil)
	if rr.Code != http.StatusNotFound {
		t.Fatalf("Expected status 404, got %d", rr.Code)
	}
	var resp models.ErrorResponse
	json.NewDecoder(rr.Body).Decode(&resp)
	if resp.Error != "Promotion with id '999999' was not found." {
		t.Errorf("Unexpected message %q", resp.Error)
	}

	rr = doRequest(t, r, http.MethodGet, "/promotions/abc", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a non-numeric id, got %d", rr.Code)
	}
}

func TestListPromotions(t *testing.T) {
	r, cleanup := setupTestHandler(t, DefaultHandlerOptions())
	defer cleanup()

	first := createPromotion(t, r)
	createPromotion(t, r)
	createPromotion(t, r)

	rr := doRequest(t, r, http.MethodGet, "/promotions", nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var all []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&all); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("Expected 3 promotions, got %d", len(all))
	}

	rr = doRequest(t, r, http.MethodGet, "/promotions?promo_code="+first["promo_code"].(string), nil)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d", rr.Code)
	}
	var filtered []map[string]any
	if err := json.NewDecoder(rr.Body).Decode(&filtered); err != nil {
		t.Fatalf("Failed to decode response: %v", err)
	}
	if len(filtered) != 1 || filtered[0]["id"] != first["id"] {
		t.Errorf("Expected only promotion %v, got %v", first["id"], filtered)
	}

	rr = doRequest(t, r, http.MethodGet, "/promotions?not_present_field=-1", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for an unknown field, got %d", rr.Code)
	}

	rr = doRequest(t, r, http.MethodGet, "/promotions?active=perhaps", nil)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a bad boolean, got %d", rr.Code)
	}
}

func TestUpdatePromotion(t *testing.T) {
	r, cleanup := setupTestHandler(t, DefaultHandlerOptions())
	defer cleanup()

	created := createPromotion(t, r)
	target := fmt.Sprintf("/promotions/%d", int64(created["id"].(float64)))

	update := make(map[string]any, len(created))
	for k, v := range created {
		update[k] = v
	}
	update["title"] = "Black Friday"
	update["duration"] = "2 days, 00:00:00"

	rr := doRequest(t, r, http.MethodPut, target, update)
	if rr.Code != http.StatusOK {
		t.Fatalf("Expected status 200, got %d: %s", rr.Code, rr.Body.String())
	}

	rr = doRequest(t, r, http.MethodGet, target, nil)
	got := decodeObject(t, rr)
	if got["title"] != "Black Friday" {
		t.Errorf("Expected title 'Black Friday', got %v", got["title"])
	}
	if got["duration"] != "2 days, 00:00:00" {
		t.Errorf("Expected duration '2 days, 00:00:00', got %v", got["duration"])
	}
	if got["id"] != created["id"] {
		t.Errorf("Expected id %v, got %v", created["id"], got["id"])
	}

	update["duration"] = "-0 days, 00:00:05"
	rr = doRequest(t, r, http.MethodPut, target, update)
	if rr.Code != http.StatusBadRequest {
		t.Errorf("Expected status 400 for a negative duration, got %d", rr.Code)
	}

	rr = doRequest(t, r, http.MethodGet, target, nil)
	if got := decodeObject(t, rr); got["duration"] != "2 days, 00:00:00" {
		t.Errorf("Expected rejected update to leave the row alone, got %v", got["duration"])
	}

	rr = doRequest(t, r, http.MethodPut, "/promotions/999999", update)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404, got %d", rr.Code)
	}
}

func TestDeletePromotion(t *testing.T) {
	r, cleanup := setupTestHandler(t, DefaultHandlerOptions())
	defer cleanup()

	created := createPromotion(t, r)
	target := fmt.Sprintf("/promotions/%d", int64(created["id"].(float64)))

	rr := doRequest(t, r, http.MethodDelete, target, nil)
	if rr.Code != http.StatusNoContent {
		t.Fatalf("Expected status 204, got %d", rr.Code)
	}
	if rr.Body.Len() != 0 {
		t.Errorf("Expected empty body, got %q", rr.Body.String())
	}

	rr = doRequest(t, r, http.MethodGet, target, nil)
	if rr.Code != http.StatusNotFound {
		t.Errorf("Expected status 404 after delete, got %d", rr.Code)
	}

	rr = doRequest(t, r, http.MethodDelete, target, nil)
	if rr.Code != http.StatusNoContent {
		t.Errorf("Expected deleting twice to succeed, got %d", rr.Code)
	}
}
