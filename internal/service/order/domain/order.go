// internal/service/order/domain/order.go
package domain

import (
	"fmt"
	"time"

	"github.com/google/uuid"
)

// LineItem 是订单中的一个行项目。
// Name/Price 是预留成功时从目录服务拷贝来的快照，
// 之后菜单怎么改都不影响历史订单。
type LineItem struct {
	ItemID   string
	Name     string
	Price    float64
	Quantity int
}

// CourierSnapshot 是指派时刻的骑手信息快照，按值嵌入订单，
// 不是指向骑手记录的外键。
type CourierSnapshot struct {
	ID    string
	Name  string
	Phone string
}

// Order 是订单聚合的根实体。
// 状态只会沿 created -> assigned -> completed 单向推进。
type Order struct {
	ID            string
	RestaurantID  string
	CustomerEmail string
	Address       string
	Items         []LineItem
	State         State
	Courier       *CourierSnapshot
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// LineItemRequest 是创建订单时调用方给出的行项目。
type LineItemRequest struct {
	ItemID   string
	Quantity int
}

// ValidateRequest 校验创建订单的入参。任何副作用之前必须先通过这里。
func ValidateRequest(restaurantID, address string, items []LineItemRequest) error {
	if restaurantID == "" {
		return fmt.Errorf("%w: restaurant id is required", ErrValidation)
	}
	if address == "" {
		return fmt.Errorf("%w: delivery address is required", ErrValidation)
	}
	if len(items) == 0 {
		return fmt.Errorf("%w: at least one item is required", ErrValidation)
	}
	for _, it := range items {
		if it.ItemID == "" {
			return fmt.Errorf("%w: item id is required", ErrValidation)
		}
		if it.Quantity <= 0 {
			return fmt.Errorf("%w: quantity for item %s must be positive", ErrValidation, it.ItemID)
		}
	}
	return nil
}

// NewOrder 创建一个 created 状态的订单实例。
// Items 由编排层在库存预留成功后用快照填充。
func NewOrder(restaurantID, customerEmail, address string, items []LineItem) *Order {
	now := time.Now()
	return &Order{
		ID:            uuid.NewString(),
		RestaurantID:  restaurantID,
		CustomerEmail: customerEmail,
		Address:       address,
		Items:         items,
		State:         StateCreated,
		CreatedAt:     now,
		UpdatedAt:     now,
	}
}

// AttachCourier 挂上骑手快照并推进到 assigned。
// 已有骑手或已不在 created 状态时不做任何修改。
func (o *Order) AttachCourier(snapshot CourierSnapshot) bool {
	if o.State != StateCreated || o.Courier != nil {
		return false
	}
	cp := snapshot
	o.Courier = &cp
	o.State = StateAssigned
	o.UpdatedAt = time.Now()
	return true
}

// Complete 推进到终态。重复调用是 no-op。
func (o *Order) Complete() bool {
	if o.State == StateCompleted {
		return false
	}
	o.State = StateCompleted
	o.UpdatedAt = time.Now()
	return true
}

// Unassigned 判断订单是否还在等骑手。
func (o *Order) Unassigned() bool {
	return o.State == StateCreated && o.Courier == nil
}
