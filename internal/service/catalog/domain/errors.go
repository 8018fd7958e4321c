// internal/service/catalog/domain/errors.go
package domain

import "errors"

var (
	ErrRestaurantNotFound = errors.New("restaurant not found")
	ErrItemNotFound       = errors.New("menu item not found")
	// ErrOutOfStock 表示请求的数量超过了当前库存
	ErrOutOfStock = errors.New("insufficient stock")
	// ErrAlreadyExists 表示指定 ID 的记录已存在
	ErrAlreadyExists = errors.New("already exists")
)
