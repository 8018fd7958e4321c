// internal/service/order/domain/errors.go
package domain

import "errors"

var (
	ErrOrderNotFound = errors.New("order not found")
	// ErrItemNotFound 表示某个行项目在餐厅菜单中不存在
	ErrItemNotFound = errors.New("menu item not found")
	// ErrInsufficientStock 表示请求数量超过了可用库存
	ErrInsufficientStock = errors.New("insufficient stock")
	// ErrReservationFailed 表示库存服务不可达或预留调用本身失败
	ErrReservationFailed = errors.New("stock reservation failed")
	// ErrValidation 表示请求本身不合法（空地址、非正数量等）
	ErrValidation = errors.New("invalid order request")
)
