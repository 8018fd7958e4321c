// internal/service/order/domain/events.go
package domain

import "time"

// 订单生命周期事件类型。推送网关按 OrderID 订阅后实时下发，
// 前端不必轮询 getOrder。
const (
	EventOrderCreated   = "order.created"
	EventOrderAssigned  = "order.assigned"
	EventOrderCompleted = "order.completed"
)

// OrderEvent 是发布到 Kafka 的订单生命周期事件。
type OrderEvent struct {
	Type         string    `json:"type"`
	OrderID      string    `json:"orderId"`
	RestaurantID string    `json:"restaurantId"`
	State        State     `json:"state"`
	CourierID    string    `json:"courierId,omitempty"`
	At           time.Time `json:"at"`
}

// NewOrderEvent 从订单当前状态构造一条事件。
func NewOrderEvent(eventType string, o *Order) *OrderEvent {
	evt := &OrderEvent{
		Type:         eventType,
		OrderID:      o.ID,
		RestaurantID: o.RestaurantID,
		State:        o.State,
		At:           time.Now(),
	}
	if o.Courier != nil {
		evt.CourierID = o.Courier.ID
	}
	return evt
}
