package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/data/model"
)

type subscriptionHistoryRepo struct {
	data *Data
	log  *log.Helper
}

// NewSubscriptionHistoryRepo 创建订阅历史仓库
func NewSubscriptionHistoryRepo(data *Data, logger log.Logger) biz.SubscriptionHistoryRepo {
	return &subscriptionHistoryRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// AddSubscriptionHistory 追加订阅历史记录
func (r *subscriptionHistoryRepo) AddSubscriptionHistory(ctx context.Context, history *biz.SubscriptionHistory) error {
	m := &model.SubscriptionHistory{
		UserID:         history.UserID,
		SubscriptionID: history.SubscriptionID,
		PlanID:         history.PlanID,
		PlanName:       history.PlanName,
		StartTime:      history.StartTime,
		EndTime:        history.EndTime,
		Status:         history.Status,
		Action:         history.Action,
		CreatedAt:      history.CreatedAt,
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to add subscription history for user %d: %v", history.UserID, err)
		return err
	}
	history.ID = m.ID
	return nil
}

// GetSubscriptionHistory 分页获取用户订阅历史(倒序)
func (r *subscriptionHistoryRepo) GetSubscriptionHistory(ctx context.Context, userID uint64, page, pageSize int) ([]*biz.SubscriptionHistory, int, error) {
	query := r.data.DB(ctx).Model(&model.SubscriptionHistory{}).Where("user_id = ?", userID)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to count subscription history for user %d: %v", userID, err)
		return nil, 0, err
	}

	var records []*model.SubscriptionHistory
	if err := query.Order("created_at DESC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&records).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to get subscription history for user %d: %v", userID, err)
		return nil, 0, err
	}

	result := make([]*biz.SubscriptionHistory, 0, len(records))
	for _, m := range records {
		result = append(result, &biz.SubscriptionHistory{
			ID:             m.ID,
			UserID:         m.UserID,
			SubscriptionID: m.SubscriptionID,
			PlanID:         m.PlanID,
			PlanName:       m.PlanName,
			StartTime:      m.StartTime,
			EndTime:        m.EndTime,
			Status:         m.Status,
			Action:         m.Action,
			CreatedAt:      m.CreatedAt,
		})
	}
	return result, int(total), nil
}
