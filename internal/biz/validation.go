package biz

import (
	"context"
	"math"
	"time"

	"rankup_tech/subscription-service/internal/conf"
	"rankup_tech/subscription-service/internal/constants"

	"github.com/go-kratos/kratos/v2/log"
)

// SubscriptionVerdict 订阅校验结论
type SubscriptionVerdict struct {
	IsValid               bool
	HasSubscription       bool // 是否存在过任何订阅
	HasActiveSubscription bool
	IsExpired             bool
	IsCancelled           bool
	DaysUntilExpiry       int
	RequiresRenewal       bool
	PlanID                string
	EndTime               *time.Time
}

// DemoVerdict 试用配额结论
type DemoVerdict struct {
	CanProceed         bool
	MaxQuestions       int
	AttemptedQuestions int
	RemainingQuestions int
}

// DemoAccessLog 试用访问记录 (只追加, 写入后不再修改)
type DemoAccessLog struct {
	ID                 uint64
	UserID             uint64
	ExamCategory       string
	QuestionsAttempted int
	TimeSpentSec       int
	DeviceInfo         string
	Completed          bool
	CreatedAt          time.Time
}

// DemoAccessRepo 试用访问仓库接口
type DemoAccessRepo interface {
	AddDemoAccess(ctx context.Context, entry *DemoAccessLog) error
	// CountDemoQuestions 聚合用户在某考试分类下已消耗的试用题数
	CountDemoQuestions(ctx context.Context, userID uint64, examCategory string) (int, error)
}

// ValidationUsecase 订阅校验业务逻辑
// 纯读/决策组件, 其他服务在每个受限请求上同步调用
type ValidationUsecase struct {
	subRepo  UserSubscriptionRepo
	planRepo PlanRepo
	demoRepo DemoAccessRepo
	config   *conf.Bootstrap
	log      *log.Helper
}

// NewValidationUsecase 创建订阅校验用例
func NewValidationUsecase(
	subRepo UserSubscriptionRepo,
	planRepo PlanRepo,
	demoRepo DemoAccessRepo,
	config *conf.Bootstrap,
	logger log.Logger,
) *ValidationUsecase {
	return &ValidationUsecase{
		subRepo:  subRepo,
		planRepo: planRepo,
		demoRepo: demoRepo,
		config:   config,
		log:      log.NewHelper(logger),
	}
}

// renewalReminderDays 续费提醒阈值
func (uc *ValidationUsecase) renewalReminderDays() int {
	if d := uc.config.RenewalReminderDays(); d > 0 {
		return d
	}
	return constants.DefaultRenewalReminderDays
}

// maxDemoQuestions 试用配额
func (uc *ValidationUsecase) maxDemoQuestions() int {
	if q := uc.config.MaxDemoQuestions(); q > 0 {
		return q
	}
	return constants.DefaultMaxDemoQuestions
}

// ValidateSubscription 校验用户当前是否具备访问某考试分类的权益
// 先查当前生效的订阅 (status=active 且 end_time >= now), 未支付的新下单不会遮蔽已有权益;
// 没有生效订阅时回看最近一条记录, 区分 过期 / 取消 / 从未订阅
func (uc *ValidationUsecase) ValidateSubscription(ctx context.Context, userID uint64, examCategory string) (*SubscriptionVerdict, error) {
	now := time.Now().UTC()
	sub, err := uc.subRepo.GetActiveSubscription(ctx, userID, now)
	if err != nil {
		uc.log.Errorf("Failed to get active subscription for user %d: %v", userID, err)
		return nil, err
	}

	verdict := &SubscriptionVerdict{}
	if sub != nil {
		verdict.HasSubscription = true
		verdict.HasActiveSubscription = true
		verdict.PlanID = sub.PlanID
		end := sub.EndTime
		verdict.EndTime = &end
		verdict.IsValid = uc.planCoversCategory(ctx, sub.PlanID, examCategory)
		// 剩余天数向上取整, 到期当天仍计 1 天
		verdict.DaysUntilExpiry = int(math.Ceil(sub.EndTime.Sub(now).Hours() / 24))
		verdict.RequiresRenewal = verdict.DaysUntilExpiry <= uc.renewalReminderDays()
		return verdict, nil
	}

	latest, err := uc.subRepo.GetLatestSubscription(ctx, userID)
	if err != nil {
		uc.log.Errorf("Failed to get subscription for user %d: %v", userID, err)
		return nil, err
	}
	if latest == nil {
		return verdict, nil
	}
	verdict.HasSubscription = true
	verdict.PlanID = latest.PlanID
	end := latest.EndTime
	verdict.EndTime = &end

	switch latest.Status {
	case constants.StatusCancelled:
		verdict.IsCancelled = true
	case constants.StatusPending:
		// 待支付的下单不构成权益, 也不算过期
	default:
		// expired 状态, 或 active 但已过期未被清扫
		verdict.IsExpired = true
	}
	return verdict, nil
}

// IsSubscriptionActive 订阅是否有效的布尔便捷接口, 与 ValidateSubscription 同一查询规则
func (uc *ValidationUsecase) IsSubscriptionActive(ctx context.Context, userID uint64) (bool, error) {
	sub, err := uc.subRepo.GetActiveSubscription(ctx, userID, time.Now().UTC())
	if err != nil {
		return false, err
	}
	return sub != nil, nil
}

// planCoversCategory 套餐特性是否覆盖指定考试分类
// 特性为空或包含 "all" 的套餐覆盖全部分类
func (uc *ValidationUsecase) planCoversCategory(ctx context.Context, planID, examCategory string) bool {
	if examCategory == "" {
		return true
	}
	plan, err := uc.planRepo.GetPlan(ctx, planID)
	if err != nil || plan == nil || len(plan.Features) == 0 {
		return true
	}
	for _, f := range plan.Features {
		if f == examCategory || f == constants.PlanFeatureAll {
			return true
		}
	}
	return false
}

// CheckDemoEligibility 查询试用配额, 纯计数无写副作用
// 剩余题数 = max(0, 配额 - 已消耗), 永不为负
func (uc *ValidationUsecase) CheckDemoEligibility(ctx context.Context, userID uint64, examCategory string) (*DemoVerdict, error) {
	attempted, err := uc.demoRepo.CountDemoQuestions(ctx, userID, examCategory)
	if err != nil {
		uc.log.Errorf("Failed to count demo questions for user %d: %v", userID, err)
		return nil, err
	}

	max := uc.maxDemoQuestions()
	remaining := max - attempted
	if remaining < 0 {
		remaining = 0
	}
	return &DemoVerdict{
		CanProceed:         remaining > 0,
		MaxQuestions:       max,
		AttemptedQuestions: attempted,
		RemainingQuestions: remaining,
	}, nil
}

// LogDemoAccess 记录一次试用访问 (独立的写入口, 试用会话结束后调用)
func (uc *ValidationUsecase) LogDemoAccess(ctx context.Context, entry *DemoAccessLog) error {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	if err := uc.demoRepo.AddDemoAccess(ctx, entry); err != nil {
		uc.log.Errorf("Failed to log demo access for user %d: %v", entry.UserID, err)
		return err
	}
	return nil
}
