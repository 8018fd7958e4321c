// internal/service/order/infrastructure/adapter/courier_http_adapter.go
package adapter

import (
	"context"
	"fmt"
	"net/http"
	"net/url"

	"dispatch/internal/pkg/constants"
	"dispatch/internal/pkg/httpclient"
	"dispatch/internal/service/order/domain"
)

// CourierHTTPAdapter 实现了 port.CourierPool，走骑手服务的 HTTP API。
type CourierHTTPAdapter struct {
	client *httpclient.Client
}

func NewCourierHTTPAdapter(client *httpclient.Client) *CourierHTTPAdapter {
	return &CourierHTTPAdapter{client: client}
}

type courierDTO struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone"`
}

// AssignNext 申请一名空闲骑手。骑手服务在无人可派时返回 204，
// 此处转译为 (nil, nil) —— 池子空了不是错误。
func (a *CourierHTTPAdapter) AssignNext(ctx context.Context) (*domain.CourierSnapshot, error) {
	var resp courierDTO
	if err := a.client.CallJSON(ctx, http.MethodPost, constants.CourierService, "/api/v1/couriers/assign-next", nil, &resp); err != nil {
		return nil, err
	}
	if resp.ID == "" {
		return nil, nil
	}
	return &domain.CourierSnapshot{ID: resp.ID, Name: resp.Name, Phone: resp.Phone}, nil
}

func (a *CourierHTTPAdapter) Free(ctx context.Context, courierID string) error {
	path := fmt.Sprintf("/api/v1/couriers/%s/free", url.PathEscape(courierID))
	if err := a.client.CallJSON(ctx, http.MethodPost, constants.CourierService, path, nil, nil); err != nil {
		// 骑手已不存在时视为已释放
		if httpclient.StatusCode(err) == http.StatusNotFound {
			return nil
		}
		return err
	}
	return nil
}
