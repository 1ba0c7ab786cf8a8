package biz

import (
	"context"
	"time"

	"rankup_tech/subscription-service/internal/constants"
	"rankup_tech/subscription-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
)

// PaymentTransaction 支付流水
// 每次网关下单尝试对应一条流水, 只追加不删除
// 不变量: 只有离开 pending 后才会携带网关支付ID与签名
type PaymentTransaction struct {
	ID                 uint64
	UserSubscriptionID uint64
	TransactionID      string // 内部流水号, 幂等与客服查询用
	GatewayOrderID     string
	GatewayPaymentID   string
	Signature          string
	Amount             float64
	Currency           string
	Status             string // pending -> completed|failed; completed -> refunded|partially_refunded
	PaymentMethod      string
	GatewayResponse    string // 网关原始响应, 仅存档审计, 业务逻辑不解析
	RefundAmount       float64
	RefundID           string
	CompletedAt        *time.Time
	RefundedAt         *time.Time
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// PaymentTransactionRepo 支付流水仓库接口
type PaymentTransactionRepo interface {
	CreateTransaction(ctx context.Context, txn *PaymentTransaction) error
	// GetTransactionByOrderID 按网关订单号查询, 不存在时返回 (nil, nil)
	GetTransactionByOrderID(ctx context.Context, gatewayOrderID string) (*PaymentTransaction, error)
	// GetTransactionByPaymentID 按网关支付号查询, 不存在时返回 (nil, nil)
	GetTransactionByPaymentID(ctx context.Context, gatewayPaymentID string) (*PaymentTransaction, error)
	// CompleteTransaction 条件更新: 仅当状态仍为 pending 时写入支付结果并置为 completed
	// 返回 false 表示流水已被其他请求完成过
	CompleteTransaction(ctx context.Context, id uint64, gatewayPaymentID, signature, method, rawResponse string, completedAt time.Time) (bool, error)
	// AccumulateRefund 退款累加: refund_amount += amount, 同时更新状态与退款信息
	AccumulateRefund(ctx context.Context, id uint64, amount float64, refundID, status string, refundedAt time.Time) error
}

// GatewayOrder 网关侧订单
type GatewayOrder struct {
	OrderID   string
	Amount    float64
	Currency  string
	Receipt   string
	Status    string
	CreatedAt time.Time
}

// GatewayPayment 网关侧支付详情
type GatewayPayment struct {
	PaymentID string
	Method    string
	Raw       string // 原始响应, 仅存档
}

// GatewayRefund 网关侧退款结果
type GatewayRefund struct {
	RefundID string
	Status   string
	Raw      string
}

// PaymentGatewayClient 支付网关客户端接口 (防腐层)
// 网关返回的载荷不做业务解析, 原始体仅作为审计存档
type PaymentGatewayClient interface {
	CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*GatewayOrder, error)
	// VerifyPayment 验证支付签名, 签名不匹配返回 (false, nil), 传输错误返回 err
	VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (bool, error)
	GetPaymentDetail(ctx context.Context, paymentID string) (*GatewayPayment, error)
	ProcessRefund(ctx context.Context, paymentID string, amount float64) (*GatewayRefund, error)
}

// ProcessRefund 处理退款
// 金额不与原始扣款比对, 全额/部分的判定以网关每次上报的状态为准
func (uc *SubscriptionUsecase) ProcessRefund(ctx context.Context, gatewayPaymentID string, amount float64) (*PaymentTransaction, error) {
	uc.log.Infof("ProcessRefund: paymentID=%s, amount=%.2f", gatewayPaymentID, amount)

	// pending 流水的支付号为空串, 空查询会搂到任意一条
	if gatewayPaymentID == "" {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeTransactionNotFound)
	}

	txn, err := uc.txnRepo.GetTransactionByPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		uc.log.Errorf("Failed to get transaction by payment id %s: %v", gatewayPaymentID, err)
		return nil, err
	}
	if txn == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeTransactionNotFound)
	}

	// 退款累加是读改写, 按流水加锁防止并发部分退款互相覆盖
	unlock, err := uc.locker.Lock(ctx, constants.RefundLockKeyPrefix+txn.TransactionID)
	if err != nil {
		uc.log.Infof("Refund for transaction %s already in progress", txn.TransactionID)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOperationInProgress)
	}
	defer unlock()

	refund, err := uc.gateway.ProcessRefund(ctx, gatewayPaymentID, amount)
	if err != nil {
		uc.log.Errorf("Gateway refund failed for payment %s: %v", gatewayPaymentID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeGatewayUnavailable)
	}

	// 网关上报 processed 视为全额退款, 其余情况累加为部分退款
	status := constants.TxnStatusPartiallyRefunded
	if refund.Status == constants.GatewayRefundStatusProcessed {
		status = constants.TxnStatusRefunded
	}

	now := time.Now().UTC()
	if err := uc.txnRepo.AccumulateRefund(ctx, txn.ID, amount, refund.RefundID, status, now); err != nil {
		uc.log.Errorf("Failed to record refund for transaction %s: %v", txn.TransactionID, err)
		return nil, err
	}
	uc.log.Infof("Refund recorded: transaction=%s, refundID=%s, status=%s", txn.TransactionID, refund.RefundID, status)

	updated, err := uc.txnRepo.GetTransactionByPaymentID(ctx, gatewayPaymentID)
	if err != nil {
		return nil, err
	}
	return updated, nil
}
