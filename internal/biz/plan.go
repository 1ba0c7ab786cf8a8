package biz

import (
	"context"
	"time"

	"rankup_tech/subscription-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/google/uuid"
)

// Plan 订阅套餐
// 被订阅引用后价格等字段的修改不会回溯影响已有订阅:
// 下单时金额与有效期已拷贝到订阅自身
type Plan struct {
	PlanID       string
	Name         string
	Description  string
	Price        float64
	Currency     string
	DurationDays int
	Features     []string
	IsActive     bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// PlanRepo 套餐仓库接口
type PlanRepo interface {
	ListPlans(ctx context.Context) ([]*Plan, error)
	// GetPlan 套餐不存在时返回 (nil, nil)
	GetPlan(ctx context.Context, planID string) (*Plan, error)
	CreatePlan(ctx context.Context, plan *Plan) error
	UpdatePlan(ctx context.Context, plan *Plan) error
}

// ListPlans 获取所有订阅套餐列表
func (uc *SubscriptionUsecase) ListPlans(ctx context.Context) ([]*Plan, error) {
	return uc.planRepo.ListPlans(ctx)
}

// GetPlan 获取套餐信息
func (uc *SubscriptionUsecase) GetPlan(ctx context.Context, planID string) (*Plan, error) {
	plan, err := uc.planRepo.GetPlan(ctx, planID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodePlanNotFound)
	}
	return plan, nil
}

// CreatePlan 创建套餐(管理端)
func (uc *SubscriptionUsecase) CreatePlan(ctx context.Context, plan *Plan) error {
	if plan.PlanID == "" {
		plan.PlanID = uuid.New().String()
	}
	uc.log.Infof("CreatePlan: planID=%s, name=%s, price=%.2f %s, duration=%d days",
		plan.PlanID, plan.Name, plan.Price, plan.Currency, plan.DurationDays)
	return uc.planRepo.CreatePlan(ctx, plan)
}

// UpdatePlan 更新套餐(管理端)
// 只影响后续新订单, 已有订阅的金额与到期时间不变
func (uc *SubscriptionUsecase) UpdatePlan(ctx context.Context, plan *Plan) error {
	existing, err := uc.planRepo.GetPlan(ctx, plan.PlanID)
	if err != nil {
		return err
	}
	if existing == nil {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodePlanNotFound)
	}
	return uc.planRepo.UpdatePlan(ctx, plan)
}
