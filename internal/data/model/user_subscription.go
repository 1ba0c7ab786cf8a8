package model

import "time"

// UserSubscription 用户订阅模型
// (user_id, gateway_order_id) 唯一: 一个订单恰好对应一条订阅
type UserSubscription struct {
	ID             uint64     `gorm:"primaryKey;column:user_subscription_id;autoIncrement"`
	UserID         uint64     `gorm:"column:user_id;index:idx_user_id"`
	PlanID         string     `gorm:"column:plan_id;type:varchar(50)"`
	GatewayOrderID string     `gorm:"column:gateway_order_id;type:varchar(100);uniqueIndex"`
	OriginalAmount float64    `gorm:"column:original_amount;type:decimal(10,2)"`
	FinalAmount    float64    `gorm:"column:final_amount;type:decimal(10,2)"`
	Currency       string     `gorm:"column:currency;type:varchar(10)"`
	Status         string     `gorm:"column:status;type:varchar(20)"` // pending, active, expired, cancelled
	StartTime      time.Time  `gorm:"column:start_time"`
	EndTime        time.Time  `gorm:"column:end_time;index"`
	AutoRenew      bool       `gorm:"column:auto_renew;default:false"`
	CancelReason   string     `gorm:"column:cancel_reason"`
	CancelledAt    *time.Time `gorm:"column:cancelled_at"`
	CreatedAt      time.Time  `gorm:"column:created_at"`
	UpdatedAt      time.Time  `gorm:"column:updated_at"`
}

func (UserSubscription) TableName() string { return "user_subscription" }
