// internal/service/courier/domain/courier.go
package domain

import "errors"

// Status 是骑手的可用性状态。
type Status string

const (
	StatusAvailable Status = "available"
	StatusBusy      Status = "busy"
)

// Courier 代表骑手池中的一名骑手。
// Status 的检查与翻转必须经由仓储的 AssignNext/Assign/Free 完成。
type Courier struct {
	ID     string
	Name   string
	Phone  string
	Status Status
}

var (
	ErrCourierNotFound = errors.New("courier not found")
	// ErrCourierBusy 表示指定骑手已被占用，无法直接指派
	ErrCourierBusy   = errors.New("courier already busy")
	ErrAlreadyExists = errors.New("courier already exists")
)
