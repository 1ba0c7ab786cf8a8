package biz

import (
	"context"

	"github.com/google/wire"
)

// ProviderSet is biz providers.
var ProviderSet = wire.NewSet(
	NewSubscriptionUsecase,
	NewInvoiceUsecase,
	NewValidationUsecase,
)

// Transaction 数据层事务接口
type Transaction interface {
	Exec(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker 分布式锁接口 (数据层用 redsync 实现)
// Lock 成功后返回解锁函数, 失败说明同 key 操作正在处理中
type Locker interface {
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
