package data

import (
	"context"
	"errors"
	"strings"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/data/model"
)

type planRepo struct {
	data *Data
	log  *log.Helper
}

// NewPlanRepo 创建套餐仓库
func NewPlanRepo(data *Data, logger log.Logger) biz.PlanRepo {
	return &planRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// ListPlans 获取所有上架套餐
func (r *planRepo) ListPlans(ctx context.Context) ([]*biz.Plan, error) {
	var plans []*model.Plan
	if err := r.data.DB(ctx).Where("is_active = ?", true).
		Order("price ASC").Find(&plans).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to list plans: %v", err)
		return nil, err
	}
	result := make([]*biz.Plan, 0, len(plans))
	for _, p := range plans {
		result = append(result, toBizPlan(p))
	}
	return result, nil
}

// GetPlan 获取套餐, 不存在时返回 (nil, nil)
func (r *planRepo) GetPlan(ctx context.Context, planID string) (*biz.Plan, error) {
	var plan model.Plan
	err := r.data.DB(ctx).Where("plan_id = ?", planID).First(&plan).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("Failed to get plan %s: %v", planID, err)
		return nil, err
	}
	return toBizPlan(&plan), nil
}

// CreatePlan 创建套餐
func (r *planRepo) CreatePlan(ctx context.Context, plan *biz.Plan) error {
	m := toModelPlan(plan)
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to create plan %s: %v", plan.PlanID, err)
		return err
	}
	return nil
}

// UpdatePlan 更新套餐
func (r *planRepo) UpdatePlan(ctx context.Context, plan *biz.Plan) error {
	m := toModelPlan(plan)
	if err := r.data.DB(ctx).Model(&model.Plan{}).
		Where("plan_id = ?", plan.PlanID).
		Updates(map[string]interface{}{
			"name":          m.Name,
			"description":   m.Description,
			"price":         m.Price,
			"currency":      m.Currency,
			"duration_days": m.DurationDays,
			"features":      m.Features,
			"is_active":     m.IsActive,
		}).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to update plan %s: %v", plan.PlanID, err)
		return err
	}
	return nil
}

// toBizPlan 模型转换
func toBizPlan(m *model.Plan) *biz.Plan {
	var features []string
	if m.Features != "" {
		features = strings.Split(m.Features, ",")
	}
	return &biz.Plan{
		PlanID:       m.PlanID,
		Name:         m.Name,
		Description:  m.Description,
		Price:        m.Price,
		Currency:     m.Currency,
		DurationDays: m.DurationDays,
		Features:     features,
		IsActive:     m.IsActive,
		CreatedAt:    m.CreatedAt,
		UpdatedAt:    m.UpdatedAt,
	}
}

func toModelPlan(b *biz.Plan) *model.Plan {
	return &model.Plan{
		PlanID:       b.PlanID,
		Name:         b.Name,
		Description:  b.Description,
		Price:        b.Price,
		Currency:     b.Currency,
		DurationDays: b.DurationDays,
		Features:     strings.Join(b.Features, ","),
		IsActive:     b.IsActive,
	}
}
