package model

import "time"

// Invoice 发票模型
// user_subscription_id 唯一索引保证每个订阅至多一张
type Invoice struct {
	ID                 uint64    `gorm:"primaryKey;column:invoice_id;autoIncrement"`
	UserSubscriptionID uint64    `gorm:"column:user_subscription_id;uniqueIndex"`
	InvoiceNumber      string    `gorm:"column:invoice_number;type:varchar(30);uniqueIndex"`
	Subtotal           float64   `gorm:"column:subtotal;type:decimal(10,2)"`
	Tax                float64   `gorm:"column:tax;type:decimal(10,2);default:0"`
	Total              float64   `gorm:"column:total;type:decimal(10,2)"`
	Currency           string    `gorm:"column:currency;type:varchar(10)"`
	Status             string    `gorm:"column:status;type:varchar(20)"` // generated, sent, downloaded
	CustomerName       string    `gorm:"column:customer_name"`           // 生成时刻的抬头快照
	CustomerEmail      string    `gorm:"column:customer_email"`
	CreatedAt          time.Time `gorm:"column:created_at"`
	UpdatedAt          time.Time `gorm:"column:updated_at"`
}

func (Invoice) TableName() string { return "invoice" }
