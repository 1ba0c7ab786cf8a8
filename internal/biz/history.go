package biz

import (
	"context"
	"time"
)

// SubscriptionHistory 订阅历史记录 (只追加的审计流水)
type SubscriptionHistory struct {
	ID             uint64
	UserID         uint64
	SubscriptionID uint64
	PlanID         string
	PlanName       string
	StartTime      time.Time
	EndTime        time.Time
	Status         string
	Action         string // created, activated, renewed, cancelled, expired
	CreatedAt      time.Time
}

// SubscriptionHistoryRepo 订阅历史记录仓库接口
type SubscriptionHistoryRepo interface {
	AddSubscriptionHistory(ctx context.Context, history *SubscriptionHistory) error
	GetSubscriptionHistory(ctx context.Context, userID uint64, page, pageSize int) ([]*SubscriptionHistory, int, error)
}

// addHistory 追加历史记录, 失败不影响主流程, 只记录日志
func (uc *SubscriptionUsecase) addHistory(ctx context.Context, sub *UserSubscription, planName, action string) {
	history := &SubscriptionHistory{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
		PlanName:       planName,
		StartTime:      sub.StartTime,
		EndTime:        sub.EndTime,
		Status:         sub.Status,
		Action:         action,
		CreatedAt:      time.Now().UTC(),
	}
	if err := uc.historyRepo.AddSubscriptionHistory(ctx, history); err != nil {
		uc.log.Errorf("Failed to add subscription history for %d: %v", sub.ID, err)
	}
}

// GetSubscriptionHistory 获取订阅历史记录
func (uc *SubscriptionUsecase) GetSubscriptionHistory(ctx context.Context, userID uint64, page, pageSize int) ([]*SubscriptionHistory, int, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > 100 {
		pageSize = 10
	}
	return uc.historyRepo.GetSubscriptionHistory(ctx, userID, page, pageSize)
}
