package constants

import "time"

// 分页相关常量
const (
	// DefaultPageSize 默认分页大小
	DefaultPageSize = 10
	// MaxPageSize 最大分页大小
	MaxPageSize = 100
)

// 支付网关相关常量
const (
	// DefaultGatewayTimeout 默认网关调用超时
	DefaultGatewayTimeout = 10 * time.Second
)

// 订阅相关常量
const (
	// DefaultExpiryDays 默认过期检查天数
	DefaultExpiryDays = 7
	// MaxExpiryDays 最大过期检查天数
	MaxExpiryDays = 30
	// DefaultAutoRenewDays 默认自动续费提前天数
	DefaultAutoRenewDays = 3
	// DefaultRenewalReminderDays 默认续费提醒阈值(剩余天数)
	DefaultRenewalReminderDays = 7
)

// 试用(Demo)相关常量
const (
	// DefaultMaxDemoQuestions 默认免费试用题目配额
	DefaultMaxDemoQuestions = 10
)

// 分布式锁相关常量
const (
	// LockExpiration 通用锁过期时间(激活/退款/发票)
	LockExpiration = 30 * time.Second
	// LockRetries 通用锁重试次数
	LockRetries = 3
	// AutoRenewLockExpiration 自动续费锁过期时间
	AutoRenewLockExpiration = 10 * time.Minute
	// AutoRenewLockRetries 自动续费锁重试次数
	AutoRenewLockRetries = 1
)

// 分布式锁 key 前缀
const (
	// ActivateLockKeyPrefix 激活锁前缀, 按网关订单号加锁
	ActivateLockKeyPrefix = "activate_lock:order:"
	// RefundLockKeyPrefix 退款锁前缀, 按流水ID加锁
	RefundLockKeyPrefix = "refund_lock:txn:"
	// InvoiceLockKeyPrefix 发票生成锁前缀, 按订阅ID加锁
	InvoiceLockKeyPrefix = "invoice_lock:sub:"
	// AutoRenewLockKeyPrefix 自动续费锁前缀, 按用户ID加锁
	AutoRenewLockKeyPrefix = "auto_renew_lock:user:"
)

// InvoiceSeqKey 发票编号序列的 Redis key (全局单调递增, 永不回退)
const InvoiceSeqKey = "subscription:invoice:seq"

// 订阅状态
const (
	StatusPending   = "pending"
	StatusActive    = "active"
	StatusExpired   = "expired"
	StatusCancelled = "cancelled"
)

// 订阅操作(历史记录)
const (
	ActionCreated   = "created"
	ActionActivated = "activated"
	ActionRenewed   = "renewed"
	ActionCancelled = "cancelled"
	ActionExpired   = "expired"
)

// 支付流水状态
const (
	TxnStatusPending           = "pending"            // 待支付(订单已创建, 等待支付)
	TxnStatusCompleted         = "completed"          // 支付完成
	TxnStatusFailed            = "failed"             // 支付失败
	TxnStatusRefunded          = "refunded"           // 已全额退款
	TxnStatusPartiallyRefunded = "partially_refunded" // 部分退款
)

// GatewayRefundStatusProcessed 网关退款状态: 已全额处理
// 只有网关自己上报 processed 时才标记全额退款, 不做本地金额比对
const GatewayRefundStatusProcessed = "processed"

// 发票状态
const (
	InvoiceStatusGenerated  = "generated"
	InvoiceStatusSent       = "sent"
	InvoiceStatusDownloaded = "downloaded"
)

// InvoiceNumberFormat 发票编号格式 (序列值 -> 展示编号)
const InvoiceNumberFormat = "INV-%08d"

// PlanFeatureAll 套餐特性通配值, 表示覆盖全部考试分类
const PlanFeatureAll = "all"
