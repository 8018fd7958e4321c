// internal/service/order/domain/state.go
package domain

// State 定义了订单的生命周期状态
type State string

const (
	// StateCreated 库存已预留、订单已落库，但还没有骑手
	StateCreated State = "created"
	// StateAssigned 已挂上骑手快照
	StateAssigned State = "assigned"
	// StateCompleted 终态：库存已归还，骑手已释放
	StateCompleted State = "completed"
)
