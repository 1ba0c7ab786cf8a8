package model

import "time"

// DemoAccessLog 试用访问模型 (只追加)
type DemoAccessLog struct {
	ID                 uint64    `gorm:"primaryKey;column:demo_access_log_id;autoIncrement"`
	UserID             uint64    `gorm:"column:user_id;index:idx_user_category"`
	ExamCategory       string    `gorm:"column:exam_category;type:varchar(50);index:idx_user_category"`
	QuestionsAttempted int       `gorm:"column:questions_attempted"`
	TimeSpentSec       int       `gorm:"column:time_spent_sec"`
	DeviceInfo         string    `gorm:"column:device_info"`
	Completed          bool      `gorm:"column:completed;default:false"`
	CreatedAt          time.Time `gorm:"column:created_at"`
}

func (DemoAccessLog) TableName() string { return "demo_access_log" }
