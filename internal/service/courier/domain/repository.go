// internal/service/courier/domain/repository.go
package domain

import "context"

// CourierRepository 定义了骑手池的持久化接口。
type CourierRepository interface {
	Create(ctx context.Context, c *Courier) error
	Get(ctx context.Context, id string) (*Courier, error)
	List(ctx context.Context) ([]*Courier, error)

	// AssignNext 原子地挑选一名可用骑手并置为 busy。
	// 并发调用方各自拿到不同的骑手——正被其他事务锁定的行要跳过，
	// 而不是排队等待。没有可用骑手时返回 (nil, nil)，这不是错误。
	AssignNext(ctx context.Context) (*Courier, error)

	// Assign 直接占用指定骑手。骑手已是 busy 时返回 ErrCourierBusy。
	Assign(ctx context.Context, id string) (*Courier, error)

	// Free 将骑手置回 available。对已经可用的骑手调用是幂等的 no-op。
	Free(ctx context.Context, id string) (*Courier, error)
}
