package interfaces

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"dispatch/internal/service/catalog/infrastructure"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	repo := infrastructure.NewMemoryCatalogRepository()
	mux := http.NewServeMux()
	NewCatalogHandler(repo).RegisterRoutes(mux)
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func doJSON(t *testing.T, method, url, body string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequest(method, url, strings.NewReader(body))
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, url, err)
	}
	defer resp.Body.Close()
	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return resp, respBody
}

func TestRestaurantAndMenuFlow(t *testing.T) {
	srv := newTestServer(t)

	resp, _ := doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants", `{"id":"rest-1","name":"La Parilla"}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create restaurant: status = %d", resp.StatusCode)
	}

	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants/rest-1/menu", `{"id":"item-1","name":"Milanesa","price":12.5,"stock":4}`)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create item: status = %d", resp.StatusCode)
	}

	resp, body := doJSON(t, http.MethodGet, srv.URL+"/api/v1/restaurants/rest-1/menu", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get menu: status = %d", resp.StatusCode)
	}
	var menu struct {
		Menu []struct {
			ID    string `json:"id"`
			Stock int    `json:"stock"`
		} `json:"menu"`
	}
	if err := json.Unmarshal(body, &menu); err != nil {
		t.Fatalf("decode menu: %v", err)
	}
	if len(menu.Menu) != 1 || menu.Menu[0].Stock != 4 {
		t.Fatalf("menu = %+v", menu)
	}
}

func TestReserveEndpointStatusMapping(t *testing.T) {
	srv := newTestServer(t)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants", `{"id":"rest-1","name":"La Parilla"}`)
	doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants/rest-1/menu", `{"id":"item-1","name":"Milanesa","stock":2}`)

	// 成功预留返回扣减后的快照
	resp, body := doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants/rest-1/menu/item-1/reserve?quantity=2", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reserve: status = %d, body = %s", resp.StatusCode, body)
	}
	var item struct {
		Stock int `json:"stock"`
	}
	if err := json.Unmarshal(body, &item); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if item.Stock != 0 {
		t.Fatalf("stock after reserve = %d, want 0", item.Stock)
	}

	// 库存不足 -> 409
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants/rest-1/menu/item-1/reserve?quantity=1", "")
	if resp.StatusCode != http.StatusConflict {
		t.Fatalf("reserve short stock: status = %d, want 409", resp.StatusCode)
	}

	// 条目不存在 -> 404
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants/rest-1/menu/ghost/reserve", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("reserve unknown item: status = %d, want 404", resp.StatusCode)
	}

	// 非法数量 -> 400
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants/rest-1/menu/item-1/reserve?quantity=-1", "")
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("reserve bad quantity: status = %d, want 400", resp.StatusCode)
	}

	// 归还之后可以再预留
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants/rest-1/menu/item-1/release?quantity=2", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("release: status = %d", resp.StatusCode)
	}
	resp, _ = doJSON(t, http.MethodPost, srv.URL+"/api/v1/restaurants/rest-1/menu/item-1/reserve?quantity=1", "")
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("reserve after release: status = %d", resp.StatusCode)
	}
}

func TestUnknownRestaurant(t *testing.T) {
	srv := newTestServer(t)
	resp, _ := doJSON(t, http.MethodGet, srv.URL+"/api/v1/restaurants/ghost", "")
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("get unknown restaurant: status = %d, want 404", resp.StatusCode)
	}
}
