package model

import "time"

// PaymentTransaction 支付流水模型
// 每次网关下单尝试一行, 只追加不删除
type PaymentTransaction struct {
	ID                 uint64     `gorm:"primaryKey;column:payment_transaction_id;autoIncrement"`
	UserSubscriptionID uint64     `gorm:"column:user_subscription_id;index"`
	TransactionID      string     `gorm:"column:transaction_id;type:varchar(50);uniqueIndex"`
	GatewayOrderID     string     `gorm:"column:gateway_order_id;type:varchar(100);uniqueIndex"`
	GatewayPaymentID   string     `gorm:"column:gateway_payment_id;type:varchar(100);index"`
	Signature          string     `gorm:"column:signature;type:varchar(256)"`
	Amount             float64    `gorm:"column:amount;type:decimal(10,2)"`
	Currency           string     `gorm:"column:currency;type:varchar(10)"`
	Status             string     `gorm:"column:status;type:varchar(30)"` // pending, completed, failed, refunded, partially_refunded
	PaymentMethod      string     `gorm:"column:payment_method;type:varchar(50)"`
	GatewayResponse    string     `gorm:"column:gateway_response;type:text"` // 网关原始响应, 仅审计用
	RefundAmount       float64    `gorm:"column:refund_amount;type:decimal(10,2);default:0"`
	RefundID           string     `gorm:"column:refund_id;type:varchar(100)"`
	CompletedAt        *time.Time `gorm:"column:completed_at"`
	RefundedAt         *time.Time `gorm:"column:refunded_at"`
	CreatedAt          time.Time  `gorm:"column:created_at"`
	UpdatedAt          time.Time  `gorm:"column:updated_at"`
}

func (PaymentTransaction) TableName() string { return "payment_transaction" }
