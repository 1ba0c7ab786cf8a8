package biz

import (
	"context"
	"strconv"

	"rankup_tech/subscription-service/internal/constants"
)

// AutoRenewResult 自动续费结果
type AutoRenewResult struct {
	UserID         uint64
	SubscriptionID uint64
	PlanID         string
	Success        bool
	NewOrderID     string
	ErrorMessage   string
}

// expiryCheckDays 续费提醒检查窗口, 配置缺省时回落到默认值
func (uc *SubscriptionUsecase) expiryCheckDays() int {
	if d := uc.config.ExpiryCheckDays(); d > 0 && d <= constants.MaxExpiryDays {
		return d
	}
	return constants.DefaultExpiryDays
}

// autoRenewDaysBefore 自动续费提前天数, 配置缺省时回落到默认值
func (uc *SubscriptionUsecase) autoRenewDaysBefore() int {
	if d := uc.config.AutoRenewDaysBefore(); d > 0 && d <= constants.MaxExpiryDays {
		return d
	}
	return constants.DefaultAutoRenewDays
}

// GetExpiringSubscriptions 获取即将过期的订阅 (续费提醒用)
func (uc *SubscriptionUsecase) GetExpiringSubscriptions(ctx context.Context, daysBeforeExpiry, page, pageSize int) ([]*UserSubscription, int, error) {
	if daysBeforeExpiry < 1 || daysBeforeExpiry > constants.MaxExpiryDays {
		daysBeforeExpiry = uc.expiryCheckDays()
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 || pageSize > constants.MaxPageSize {
		pageSize = constants.DefaultPageSize
	}

	subscriptions, total, err := uc.subRepo.GetExpiringSubscriptions(ctx, daysBeforeExpiry, page, pageSize)
	if err != nil {
		uc.log.Errorf("Failed to get expiring subscriptions: %v", err)
		return nil, 0, err
	}
	return subscriptions, total, nil
}

// UpdateExpiredSubscriptions 过期清扫: 把 end_time 已过的 active 订阅批量置为 expired
// 由 cmd/cron 周期触发
func (uc *SubscriptionUsecase) UpdateExpiredSubscriptions(ctx context.Context) (int, []uint64, error) {
	count, ids, err := uc.subRepo.UpdateExpiredSubscriptions(ctx)
	if err != nil {
		uc.log.Errorf("Failed to update expired subscriptions: %v", err)
		return 0, nil, err
	}

	// 为每条过期订阅补一条历史记录
	for _, id := range ids {
		sub, err := uc.subRepo.GetSubscription(ctx, id)
		if err != nil || sub == nil {
			continue
		}
		planName := sub.PlanID
		if plan, err := uc.planRepo.GetPlan(ctx, sub.PlanID); err == nil && plan != nil {
			planName = plan.Name
		}
		uc.addHistory(ctx, sub, planName, constants.ActionExpired)
	}

	uc.log.Infof("Updated %d expired subscriptions", count)
	return count, ids, nil
}

// ProcessAutoRenewals 处理自动续费
// 对每条开启了自动续费且临近到期的订阅发起续费:
// 产生新的 pending 订阅与流水, 旧订阅立即过期
// TODO: 接入网关的订阅扣款 token 后在此直接发起自动扣款,
// 当前新单仍需走标准 下单->激活 流程完成支付
func (uc *SubscriptionUsecase) ProcessAutoRenewals(ctx context.Context, daysBeforeExpiry int, dryRun bool) (int, int, int, []*AutoRenewResult, error) {
	uc.log.Infof("Starting auto-renewal process (daysBeforeExpiry=%d, dryRun=%v)", daysBeforeExpiry, dryRun)

	if daysBeforeExpiry < 1 || daysBeforeExpiry > constants.MaxExpiryDays {
		daysBeforeExpiry = uc.autoRenewDaysBefore()
	}

	subscriptions, err := uc.subRepo.GetAutoRenewSubscriptions(ctx, daysBeforeExpiry)
	if err != nil {
		uc.log.Errorf("Failed to get auto-renew subscriptions: %v", err)
		return 0, 0, 0, nil, err
	}

	totalCount := len(subscriptions)
	successCount := 0
	failedCount := 0
	results := make([]*AutoRenewResult, 0, totalCount)

	for _, sub := range subscriptions {
		result := uc.renewOne(ctx, sub, dryRun)
		if result.Success {
			successCount++
		} else if result.ErrorMessage != "lock busy or already processing" {
			failedCount++
		}
		results = append(results, result)
	}

	uc.log.Infof("Auto-renewal process completed: total=%d, success=%d, failed=%d", totalCount, successCount, failedCount)
	return totalCount, successCount, failedCount, results, nil
}

// renewOne 处理单条自动续费, 按用户加分布式锁防止重复续费
func (uc *SubscriptionUsecase) renewOne(ctx context.Context, sub *UserSubscription, dryRun bool) *AutoRenewResult {
	result := &AutoRenewResult{
		UserID:         sub.UserID,
		SubscriptionID: sub.ID,
		PlanID:         sub.PlanID,
	}

	unlock, err := uc.locker.Lock(ctx, constants.AutoRenewLockKeyPrefix+strconv.FormatUint(sub.UserID, 10))
	if err != nil {
		result.ErrorMessage = "lock busy or already processing"
		uc.log.Infof("Skipping auto-renew for user %d: lock busy", sub.UserID)
		return result
	}
	defer unlock()

	// 再次检查订阅状态, 防止重复处理
	current, err := uc.subRepo.GetSubscription(ctx, sub.ID)
	if err != nil {
		result.ErrorMessage = "failed to get current subscription: " + err.Error()
		return result
	}
	if current == nil || current.Status != constants.StatusActive {
		result.Success = true
		result.ErrorMessage = "already renewed or no longer active"
		return result
	}

	if dryRun {
		result.Success = true
		result.ErrorMessage = "dry run - not executed"
		uc.log.Infof("[DRY RUN] Would renew subscription %d for user %d", sub.ID, sub.UserID)
		return result
	}

	newSub, err := uc.RenewSubscription(ctx, sub.ID, true)
	if err != nil {
		result.ErrorMessage = err.Error()
		uc.log.Errorf("Failed to renew subscription %d for user %d: %v", sub.ID, sub.UserID, err)
		return result
	}

	result.Success = true
	result.NewOrderID = newSub.GatewayOrderID
	uc.log.Infof("Renewal order created for user %d: %s", sub.UserID, newSub.GatewayOrderID)
	return result
}
