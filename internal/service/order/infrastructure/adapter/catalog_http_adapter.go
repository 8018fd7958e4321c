// internal/service/order/infrastructure/adapter/catalog_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strconv"

	"dispatch/internal/pkg/constants"
	"dispatch/internal/pkg/httpclient"
	"dispatch/internal/service/order/domain"
	"dispatch/internal/service/order/domain/port"
)

// CatalogHTTPAdapter 实现了 port.CatalogService，走目录服务的 HTTP API。
type CatalogHTTPAdapter struct {
	client *httpclient.Client
}

func NewCatalogHTTPAdapter(client *httpclient.Client) *CatalogHTTPAdapter {
	return &CatalogHTTPAdapter{client: client}
}

type menuItemDTO struct {
	ID    string  `json:"id"`
	Name  string  `json:"name"`
	Price float64 `json:"price"`
	Stock int     `json:"stock"`
}

type menuDTO struct {
	Menu []menuItemDTO `json:"menu"`
}

func (a *CatalogHTTPAdapter) GetMenu(ctx context.Context, restaurantID string) ([]port.MenuStock, error) {
	var resp menuDTO
	path := fmt.Sprintf("/api/v1/restaurants/%s/menu", url.PathEscape(restaurantID))
	if err := a.client.CallJSON(ctx, http.MethodGet, constants.CatalogService, path, nil, &resp); err != nil {
		return nil, err
	}
	out := make([]port.MenuStock, 0, len(resp.Menu))
	for _, m := range resp.Menu {
		out = append(out, port.MenuStock{ItemID: m.ID, Name: m.Name, Price: m.Price, Stock: m.Stock})
	}
	return out, nil
}

// Reserve 把下游的状态码翻译成领域错误：
// 404 -> 条目不存在，409 -> 库存不足，其余 -> 预留失败。
func (a *CatalogHTTPAdapter) Reserve(ctx context.Context, restaurantID, itemID string, quantity int) (*port.ReservedItem, error) {
	var resp menuItemDTO
	path := fmt.Sprintf("/api/v1/restaurants/%s/menu/%s/reserve", url.PathEscape(restaurantID), url.PathEscape(itemID))
	query := url.Values{"quantity": []string{strconv.Itoa(quantity)}}
	if err := a.client.CallJSON(ctx, http.MethodPost, constants.CatalogService, path, query, &resp); err != nil {
		switch httpclient.StatusCode(err) {
		case http.StatusNotFound:
			return nil, domain.ErrItemNotFound
		case http.StatusConflict:
			return nil, domain.ErrInsufficientStock
		default:
			return nil, fmt.Errorf("%w: %v", domain.ErrReservationFailed, err)
		}
	}
	return &port.ReservedItem{ItemID: resp.ID, Name: resp.Name, Price: resp.Price, Remaining: resp.Stock}, nil
}

func (a *CatalogHTTPAdapter) Release(ctx context.Context, restaurantID, itemID string, quantity int) error {
	path := fmt.Sprintf("/api/v1/restaurants/%s/menu/%s/release", url.PathEscape(restaurantID), url.PathEscape(itemID))
	query := url.Values{"quantity": []string{strconv.Itoa(quantity)}}
	return a.client.CallJSON(ctx, http.MethodPost, constants.CatalogService, path, query, nil)
}
