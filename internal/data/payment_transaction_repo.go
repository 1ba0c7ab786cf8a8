package data

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/constants"
	"rankup_tech/subscription-service/internal/data/model"
)

type paymentTransactionRepo struct {
	data *Data
	log  *log.Helper
}

// NewPaymentTransactionRepo 创建支付流水仓库
func NewPaymentTransactionRepo(data *Data, logger log.Logger) biz.PaymentTransactionRepo {
	return &paymentTransactionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// CreateTransaction 创建支付流水, 回填自增主键
func (r *paymentTransactionRepo) CreateTransaction(ctx context.Context, txn *biz.PaymentTransaction) error {
	m := toModelTransaction(txn)
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to create transaction %s: %v", txn.TransactionID, err)
		return err
	}
	txn.ID = m.ID
	txn.CreatedAt = m.CreatedAt
	txn.UpdatedAt = m.UpdatedAt
	return nil
}

// GetTransactionByOrderID 按网关订单号查询, 不存在时返回 (nil, nil)
func (r *paymentTransactionRepo) GetTransactionByOrderID(ctx context.Context, gatewayOrderID string) (*biz.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	err := r.data.DB(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("Failed to get transaction by order %s: %v", gatewayOrderID, err)
		return nil, err
	}
	return toBizTransaction(&txn), nil
}

// GetTransactionByPaymentID 按网关支付号查询, 不存在时返回 (nil, nil)
func (r *paymentTransactionRepo) GetTransactionByPaymentID(ctx context.Context, gatewayPaymentID string) (*biz.PaymentTransaction, error) {
	var txn model.PaymentTransaction
	err := r.data.DB(ctx).Where("gateway_payment_id = ?", gatewayPaymentID).First(&txn).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("Failed to get transaction by payment %s: %v", gatewayPaymentID, err)
		return nil, err
	}
	return toBizTransaction(&txn), nil
}

// CompleteTransaction 条件更新: 仅当状态仍为 pending 时写入支付结果并置为 completed
func (r *paymentTransactionRepo) CompleteTransaction(ctx context.Context, id uint64, gatewayPaymentID, signature, method, rawResponse string, completedAt time.Time) (bool, error) {
	result := r.data.DB(ctx).Model(&model.PaymentTransaction{}).
		Where("payment_transaction_id = ? AND status = ?", id, constants.TxnStatusPending).
		Updates(map[string]interface{}{
			"status":             constants.TxnStatusCompleted,
			"gateway_payment_id": gatewayPaymentID,
			"signature":          signature,
			"payment_method":     method,
			"gateway_response":   rawResponse,
			"completed_at":       completedAt,
			"updated_at":         time.Now().UTC(),
		})
	if result.Error != nil {
		r.log.WithContext(ctx).Errorf("Failed to complete transaction %d: %v", id, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// AccumulateRefund 退款累加, refund_amount 在数据库侧原子加避免读改写竞争
func (r *paymentTransactionRepo) AccumulateRefund(ctx context.Context, id uint64, amount float64, refundID, status string, refundedAt time.Time) error {
	if err := r.data.DB(ctx).Model(&model.PaymentTransaction{}).
		Where("payment_transaction_id = ?", id).
		Updates(map[string]interface{}{
			"refund_amount": gorm.Expr("refund_amount + ?", amount),
			"refund_id":     refundID,
			"status":        status,
			"refunded_at":   refundedAt,
			"updated_at":    time.Now().UTC(),
		}).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to accumulate refund for transaction %d: %v", id, err)
		return err
	}
	return nil
}

// toBizTransaction 模型转换
func toBizTransaction(m *model.PaymentTransaction) *biz.PaymentTransaction {
	return &biz.PaymentTransaction{
		ID:                 m.ID,
		UserSubscriptionID: m.UserSubscriptionID,
		TransactionID:      m.TransactionID,
		GatewayOrderID:     m.GatewayOrderID,
		GatewayPaymentID:   m.GatewayPaymentID,
		Signature:          m.Signature,
		Amount:             m.Amount,
		Currency:           m.Currency,
		Status:             m.Status,
		PaymentMethod:      m.PaymentMethod,
		GatewayResponse:    m.GatewayResponse,
		RefundAmount:       m.RefundAmount,
		RefundID:           m.RefundID,
		CompletedAt:        m.CompletedAt,
		RefundedAt:         m.RefundedAt,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toModelTransaction(b *biz.PaymentTransaction) *model.PaymentTransaction {
	return &model.PaymentTransaction{
		ID:                 b.ID,
		UserSubscriptionID: b.UserSubscriptionID,
		TransactionID:      b.TransactionID,
		GatewayOrderID:     b.GatewayOrderID,
		GatewayPaymentID:   b.GatewayPaymentID,
		Signature:          b.Signature,
		Amount:             b.Amount,
		Currency:           b.Currency,
		Status:             b.Status,
		PaymentMethod:      b.PaymentMethod,
		GatewayResponse:    b.GatewayResponse,
		RefundAmount:       b.RefundAmount,
		RefundID:           b.RefundID,
		CompletedAt:        b.CompletedAt,
		RefundedAt:         b.RefundedAt,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}
