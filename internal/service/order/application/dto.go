// internal/service/order/application/dto.go
package application

import (
	"time"

	"dispatch/internal/service/order/domain"
)

// CreateOrderRequest 是创建订单用例的输入数据
type CreateOrderRequest struct {
	RestaurantID  string        `json:"restaurantId"`
	CustomerEmail string        `json:"customerEmail,omitempty"`
	Address       string        `json:"address"`
	Items         []ItemRequest `json:"items"`
}

// ItemRequest 是请求中的一个行项目
type ItemRequest struct {
	ItemID   string `json:"itemId"`
	Quantity int    `json:"quantity"`
}

// OrderResponse 是对外返回的订单快照
type OrderResponse struct {
	ID            string             `json:"id"`
	RestaurantID  string             `json:"restaurantId"`
	CustomerEmail string             `json:"customerEmail,omitempty"`
	Address       string             `json:"address"`
	Items         []LineItemResponse `json:"items"`
	State         domain.State       `json:"state"`
	Courier       *CourierResponse   `json:"courier,omitempty"`
	CreatedAt     time.Time          `json:"createdAt"`
}

type LineItemResponse struct {
	ItemID   string  `json:"itemId"`
	Name     string  `json:"name"`
	Price    float64 `json:"price"`
	Quantity int     `json:"quantity"`
}

type CourierResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Phone string `json:"phone,omitempty"`
}

// ToOrderResponse 把领域订单转换为响应 DTO。
func ToOrderResponse(o *domain.Order) *OrderResponse {
	resp := &OrderResponse{
		ID:            o.ID,
		RestaurantID:  o.RestaurantID,
		CustomerEmail: o.CustomerEmail,
		Address:       o.Address,
		State:         o.State,
		CreatedAt:     o.CreatedAt,
		Items:         make([]LineItemResponse, 0, len(o.Items)),
	}
	for _, it := range o.Items {
		resp.Items = append(resp.Items, LineItemResponse{
			ItemID:   it.ItemID,
			Name:     it.Name,
			Price:    it.Price,
			Quantity: it.Quantity,
		})
	}
	if o.Courier != nil {
		resp.Courier = &CourierResponse{ID: o.Courier.ID, Name: o.Courier.Name, Phone: o.Courier.Phone}
	}
	return resp
}
