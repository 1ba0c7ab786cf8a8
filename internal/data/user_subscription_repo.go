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

type userSubscriptionRepo struct {
	data *Data
	log  *log.Helper
}

// NewUserSubscriptionRepo 创建用户订阅仓库
func NewUserSubscriptionRepo(data *Data, logger log.Logger) biz.UserSubscriptionRepo {
	return &userSubscriptionRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetSubscription 按主键获取订阅, 不存在时返回 (nil, nil)
func (r *userSubscriptionRepo) GetSubscription(ctx context.Context, id uint64) (*biz.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.data.DB(ctx).Where("user_subscription_id = ?", id).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("Failed to get subscription %d: %v", id, err)
		return nil, err
	}
	return toBizSubscription(&sub), nil
}

// GetSubscriptionByOrderID 按网关订单号获取订阅, 不存在时返回 (nil, nil)
func (r *userSubscriptionRepo) GetSubscriptionByOrderID(ctx context.Context, gatewayOrderID string) (*biz.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.data.DB(ctx).Where("gateway_order_id = ?", gatewayOrderID).First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("Failed to get subscription by order %s: %v", gatewayOrderID, err)
		return nil, err
	}
	return toBizSubscription(&sub), nil
}

// GetLatestSubscription 获取用户最近一条订阅记录(任意状态)
func (r *userSubscriptionRepo) GetLatestSubscription(ctx context.Context, userID uint64) (*biz.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.data.DB(ctx).Where("user_id = ?", userID).
		Order("created_at DESC").First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("Failed to get latest subscription for user %d: %v", userID, err)
		return nil, err
	}
	return toBizSubscription(&sub), nil
}

// GetActiveSubscription 获取用户当前生效的订阅: status=active 且 end_time >= at
// 多条时取 end_time 最晚的一条, 不存在时返回 (nil, nil)
func (r *userSubscriptionRepo) GetActiveSubscription(ctx context.Context, userID uint64, at time.Time) (*biz.UserSubscription, error) {
	var sub model.UserSubscription
	err := r.data.DB(ctx).
		Where("user_id = ? AND status = ? AND end_time >= ?", userID, constants.StatusActive, at).
		Order("end_time DESC").First(&sub).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("Failed to get active subscription for user %d: %v", userID, err)
		return nil, err
	}
	return toBizSubscription(&sub), nil
}

// CreateSubscription 创建订阅, 回填自增主键与时间戳
func (r *userSubscriptionRepo) CreateSubscription(ctx context.Context, sub *biz.UserSubscription) error {
	m := toModelSubscription(sub)
	now := time.Now().UTC()
	m.CreatedAt = now
	m.UpdatedAt = now
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to create subscription for user %d: %v", sub.UserID, err)
		return err
	}
	sub.ID = m.ID
	sub.CreatedAt = m.CreatedAt
	sub.UpdatedAt = m.UpdatedAt
	return nil
}

// SaveSubscription 全量保存订阅
func (r *userSubscriptionRepo) SaveSubscription(ctx context.Context, sub *biz.UserSubscription) error {
	m := toModelSubscription(sub)
	m.UpdatedAt = time.Now().UTC()
	if err := r.data.DB(ctx).Model(&model.UserSubscription{}).
		Where("user_subscription_id = ?", sub.ID).
		Updates(map[string]interface{}{
			"status":        m.Status,
			"start_time":    m.StartTime,
			"end_time":      m.EndTime,
			"auto_renew":    m.AutoRenew,
			"cancel_reason": m.CancelReason,
			"cancelled_at":  m.CancelledAt,
			"updated_at":    m.UpdatedAt,
		}).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to save subscription %d: %v", sub.ID, err)
		return err
	}
	return nil
}

// ActivateSubscription 条件更新: 仅当状态仍为 pending 时置为 active
// 返回 false 表示已被其他请求迁移过, 由调用方决定如何处理
func (r *userSubscriptionRepo) ActivateSubscription(ctx context.Context, id uint64, start, end time.Time) (bool, error) {
	result := r.data.DB(ctx).Model(&model.UserSubscription{}).
		Where("user_subscription_id = ? AND status = ?", id, constants.StatusPending).
		Updates(map[string]interface{}{
			"status":     constants.StatusActive,
			"start_time": start,
			"end_time":   end,
			"updated_at": time.Now().UTC(),
		})
	if result.Error != nil {
		r.log.WithContext(ctx).Errorf("Failed to activate subscription %d: %v", id, result.Error)
		return false, result.Error
	}
	return result.RowsAffected > 0, nil
}

// GetExpiringSubscriptions 分页获取即将到期的有效订阅
func (r *userSubscriptionRepo) GetExpiringSubscriptions(ctx context.Context, daysBeforeExpiry, page, pageSize int) ([]*biz.UserSubscription, int, error) {
	now := time.Now().UTC()
	deadline := now.AddDate(0, 0, daysBeforeExpiry)

	query := r.data.DB(ctx).Model(&model.UserSubscription{}).
		Where("status = ? AND end_time > ? AND end_time <= ?", constants.StatusActive, now, deadline)

	var total int64
	if err := query.Count(&total).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to count expiring subscriptions: %v", err)
		return nil, 0, err
	}

	var subs []*model.UserSubscription
	if err := query.Order("end_time ASC").
		Offset((page - 1) * pageSize).Limit(pageSize).
		Find(&subs).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to get expiring subscriptions: %v", err)
		return nil, 0, err
	}

	result := make([]*biz.UserSubscription, 0, len(subs))
	for _, s := range subs {
		result = append(result, toBizSubscription(s))
	}
	return result, int(total), nil
}

// UpdateExpiredSubscriptions 把已过期的 active 订阅批量置为 expired
// 返回受影响行数与订阅ID列表(用于追加历史)
func (r *userSubscriptionRepo) UpdateExpiredSubscriptions(ctx context.Context) (int, []uint64, error) {
	now := time.Now().UTC()

	var expired []*model.UserSubscription
	if err := r.data.DB(ctx).
		Where("status = ? AND end_time < ?", constants.StatusActive, now).
		Find(&expired).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to find expired subscriptions: %v", err)
		return 0, nil, err
	}
	if len(expired) == 0 {
		return 0, nil, nil
	}

	ids := make([]uint64, 0, len(expired))
	for _, s := range expired {
		ids = append(ids, s.ID)
	}

	result := r.data.DB(ctx).Model(&model.UserSubscription{}).
		Where("user_subscription_id IN ? AND status = ?", ids, constants.StatusActive).
		Updates(map[string]interface{}{
			"status":     constants.StatusExpired,
			"updated_at": now,
		})
	if result.Error != nil {
		r.log.WithContext(ctx).Errorf("Failed to update expired subscriptions: %v", result.Error)
		return 0, nil, result.Error
	}
	return int(result.RowsAffected), ids, nil
}

// GetAutoRenewSubscriptions 获取开启自动续费且即将到期的订阅
func (r *userSubscriptionRepo) GetAutoRenewSubscriptions(ctx context.Context, daysBeforeExpiry int) ([]*biz.UserSubscription, error) {
	now := time.Now().UTC()
	deadline := now.AddDate(0, 0, daysBeforeExpiry)

	var subs []*model.UserSubscription
	if err := r.data.DB(ctx).
		Where("status = ? AND auto_renew = ? AND end_time > ? AND end_time <= ?",
			constants.StatusActive, true, now, deadline).
		Order("end_time ASC").
		Find(&subs).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to get auto renew subscriptions: %v", err)
		return nil, err
	}

	result := make([]*biz.UserSubscription, 0, len(subs))
	for _, s := range subs {
		result = append(result, toBizSubscription(s))
	}
	return result, nil
}

// toBizSubscription 模型转换
func toBizSubscription(m *model.UserSubscription) *biz.UserSubscription {
	return &biz.UserSubscription{
		ID:             m.ID,
		UserID:         m.UserID,
		PlanID:         m.PlanID,
		GatewayOrderID: m.GatewayOrderID,
		OriginalAmount: m.OriginalAmount,
		FinalAmount:    m.FinalAmount,
		Currency:       m.Currency,
		Status:         m.Status,
		StartTime:      m.StartTime,
		EndTime:        m.EndTime,
		AutoRenew:      m.AutoRenew,
		CancelReason:   m.CancelReason,
		CancelledAt:    m.CancelledAt,
		CreatedAt:      m.CreatedAt,
		UpdatedAt:      m.UpdatedAt,
	}
}

func toModelSubscription(b *biz.UserSubscription) *model.UserSubscription {
	return &model.UserSubscription{
		ID:             b.ID,
		UserID:         b.UserID,
		PlanID:         b.PlanID,
		GatewayOrderID: b.GatewayOrderID,
		OriginalAmount: b.OriginalAmount,
		FinalAmount:    b.FinalAmount,
		Currency:       b.Currency,
		Status:         b.Status,
		StartTime:      b.StartTime,
		EndTime:        b.EndTime,
		AutoRenew:      b.AutoRenew,
		CancelReason:   b.CancelReason,
		CancelledAt:    b.CancelledAt,
		CreatedAt:      b.CreatedAt,
		UpdatedAt:      b.UpdatedAt,
	}
}
