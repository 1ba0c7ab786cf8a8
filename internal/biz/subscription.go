package biz

import (
	"context"
	"time"

	"rankup_tech/subscription-service/internal/conf"

	"github.com/go-kratos/kratos/v2/log"
)

// UserSubscription 用户订阅记录
// 状态机: pending -> active -> {expired, cancelled}; pending -> cancelled
// 终态不可回退, 续费永远产生新记录而不是复活旧记录
type UserSubscription struct {
	ID             uint64
	UserID         uint64
	PlanID         string
	GatewayOrderID string
	OriginalAmount float64
	FinalAmount    float64
	Currency       string
	Status         string // pending, active, expired, cancelled
	StartTime      time.Time
	EndTime        time.Time
	AutoRenew      bool
	CancelReason   string
	CancelledAt    *time.Time
	CreatedAt      time.Time
	UpdatedAt      time.Time
}

// UserSubscriptionRepo 用户订阅仓库接口
type UserSubscriptionRepo interface {
	// GetSubscription 订阅不存在时返回 (nil, nil)
	GetSubscription(ctx context.Context, id uint64) (*UserSubscription, error)
	// GetSubscriptionByOrderID 按网关订单号查询, 不存在时返回 (nil, nil)
	GetSubscriptionByOrderID(ctx context.Context, gatewayOrderID string) (*UserSubscription, error)
	// GetLatestSubscription 获取用户最近一条订阅记录(任意状态), 不存在时返回 (nil, nil)
	GetLatestSubscription(ctx context.Context, userID uint64) (*UserSubscription, error)
	// GetActiveSubscription 获取用户当前生效的订阅: status=active 且 end_time >= at
	// 多条时取 end_time 最晚的一条, 不存在时返回 (nil, nil)
	GetActiveSubscription(ctx context.Context, userID uint64, at time.Time) (*UserSubscription, error)
	CreateSubscription(ctx context.Context, sub *UserSubscription) error
	SaveSubscription(ctx context.Context, sub *UserSubscription) error
	// ActivateSubscription 条件更新: 仅当状态仍为 pending 时置为 active
	// 返回 false 表示状态已被其他请求迁移过
	ActivateSubscription(ctx context.Context, id uint64, start, end time.Time) (bool, error)
	// 批量操作（用于定时任务）
	GetExpiringSubscriptions(ctx context.Context, daysBeforeExpiry, page, pageSize int) ([]*UserSubscription, int, error)
	UpdateExpiredSubscriptions(ctx context.Context) (int, []uint64, error)
	GetAutoRenewSubscriptions(ctx context.Context, daysBeforeExpiry int) ([]*UserSubscription, error)
}

// SubscriptionUsecase 订阅生命周期业务逻辑
// 订阅状态迁移的唯一写入方
type SubscriptionUsecase struct {
	planRepo    PlanRepo
	subRepo     UserSubscriptionRepo
	txnRepo     PaymentTransactionRepo
	historyRepo SubscriptionHistoryRepo
	gateway     PaymentGatewayClient
	invoiceUc   *InvoiceUsecase
	locker      Locker
	tm          Transaction
	config      *conf.Bootstrap
	log         *log.Helper
}

// NewSubscriptionUsecase 创建订阅业务用例
func NewSubscriptionUsecase(
	planRepo PlanRepo,
	subRepo UserSubscriptionRepo,
	txnRepo PaymentTransactionRepo,
	historyRepo SubscriptionHistoryRepo,
	gateway PaymentGatewayClient,
	invoiceUc *InvoiceUsecase,
	locker Locker,
	tm Transaction,
	config *conf.Bootstrap,
	logger log.Logger,
) *SubscriptionUsecase {
	return &SubscriptionUsecase{
		planRepo:    planRepo,
		subRepo:     subRepo,
		txnRepo:     txnRepo,
		historyRepo: historyRepo,
		gateway:     gateway,
		invoiceUc:   invoiceUc,
		locker:      locker,
		tm:          tm,
		config:      config,
		log:         log.NewHelper(logger),
	}
}

// withTransaction 执行事务
func (uc *SubscriptionUsecase) withTransaction(ctx context.Context, fn func(context.Context) error) error {
	return uc.tm.Exec(ctx, fn)
}
