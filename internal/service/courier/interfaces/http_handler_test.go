package interfaces

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dispatch/internal/service/courier/infrastructure"
)

func newTestServer(t *testing.T, couriers ...string) *httptest.Server {
	t.Helper()
	repo := infrastructure.NewMemoryCourierRepository()
	mux := http.NewServeMux()
	NewCourierHandler(repo).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	for _, id := range couriers {
		body := `{"id":"` + id + `","name":"courier ` + id + `"}`
		resp, err := http.Post(srv.URL+"/api/v1/couriers", "application/json", strings.NewReader(body))
		if err != nil {
			t.Fatalf("seed courier %s: %v", id, err)
		}
		resp.Body.Close()
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("seed courier %s: status = %d", id, resp.StatusCode)
		}
	}
	return srv
}

func post(t *testing.T, url string) *http.Response {
	t.Helper()
	resp, err := http.Post(url, "application/json", nil)
	if err != nil {
		t.Fatalf("POST %s: %v", url, err)
	}
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func TestAssignNextDrainsPoolThen204(t *testing.T) {
	srv := newTestServer(t, "c1", "c2")

	seen := make(map[string]bool)
	for i := 0; i < 2; i++ {
		resp := post(t, srv.URL+"/api/v1/couriers/assign-next")
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("assign-next #%d: status = %d", i+1, resp.StatusCode)
		}
		var payload struct {
			ID     string `json:"id"`
			Status string `json:"status"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			t.Fatalf("decode: %v", err)
		}
		if payload.Status != "busy" {
			t.Fatalf("assigned courier status = %s, want busy", payload.Status)
		}
		if seen[payload.ID] {
			t.Fatalf("courier %s assigned twice", payload.ID)
		}
		seen[payload.ID] = true
	}

	// 池子空了 -> 204，而不是错误
	resp := post(t, srv.URL+"/api/v1/couriers/assign-next")
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("assign-next on empty pool: status = %d, want 204", resp.StatusCode)
	}
}

func TestDirectAssignConflict(t *testing.T) {
	srv := newTestServer(t, "c1")

	if resp := post(t, srv.URL+"/api/v1/couriers/c1/assign"); resp.StatusCode != http.StatusOK {
		t.Fatalf("assign: status = %d", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/api/v1/couriers/c1/assign"); resp.StatusCode != http.StatusConflict {
		t.Fatalf("assign busy courier: status = %d, want 409", resp.StatusCode)
	}
	if resp := post(t, srv.URL+"/api/v1/couriers/ghost/assign"); resp.StatusCode != http.StatusNotFound {
		t.Fatalf("assign unknown courier: status = %d, want 404", resp.StatusCode)
	}
}

func TestFreeReturnsCourierToPool(t *testing.T) {
	srv := newTestServer(t, "c1")

	post(t, srv.URL+"/api/v1/couriers/c1/assign")
	if resp := post(t, srv.URL+"/api/v1/couriers/c1/free"); resp.StatusCode != http.StatusOK {
		t.Fatalf("free: status = %d", resp.StatusCode)
	}

	resp := post(t, srv.URL+"/api/v1/couriers/assign-next")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("assign-next after free: status = %d, want 200", resp.StatusCode)
	}
}
