package model

import "time"

// Plan 套餐模型
type Plan struct {
	PlanID       string    `gorm:"primaryKey;column:plan_id;type:varchar(50)"`
	Name         string    `gorm:"column:name"`
	Description  string    `gorm:"column:description"`
	Price        float64   `gorm:"column:price;type:decimal(10,2)"`
	Currency     string    `gorm:"column:currency;type:varchar(10);default:'INR'"`
	DurationDays int       `gorm:"column:duration_days"`
	Features     string    `gorm:"column:features"` // 逗号分隔的考试分类/特性列表
	IsActive     bool      `gorm:"column:is_active;default:true"`
	CreatedAt    time.Time `gorm:"column:created_at;autoCreateTime"`
	UpdatedAt    time.Time `gorm:"column:updated_at;autoUpdateTime"`
}

func (Plan) TableName() string { return "plan" }
