package model

import "time"

// SubscriptionHistory 订阅历史模型
type SubscriptionHistory struct {
	ID             uint64    `gorm:"primaryKey;column:subscription_history_id;autoIncrement"`
	UserID         uint64    `gorm:"column:user_id;index"`
	SubscriptionID uint64    `gorm:"column:user_subscription_id;index"`
	PlanID         string    `gorm:"column:plan_id;type:varchar(50)"`
	PlanName       string    `gorm:"column:plan_name"`
	StartTime      time.Time `gorm:"column:start_time"`
	EndTime        time.Time `gorm:"column:end_time"`
	Status         string    `gorm:"column:status;type:varchar(20)"`
	Action         string    `gorm:"column:action;type:varchar(30)"` // created, activated, renewed, cancelled, expired
	CreatedAt      time.Time `gorm:"column:created_at"`
}

func (SubscriptionHistory) TableName() string { return "subscription_history" }
