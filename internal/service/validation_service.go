package service

import (
	"context"

	"rankup_tech/subscription-service/internal/biz"
)

// ValidationService 订阅校验对外服务
// 供其他服务在受限请求上同步调用
type ValidationService struct {
	uc *biz.ValidationUsecase
}

func NewValidationService(uc *biz.ValidationUsecase) *ValidationService {
	return &ValidationService{uc: uc}
}

type ValidateReply struct {
	IsValid               bool   `json:"is_valid"`
	HasSubscription       bool   `json:"has_subscription"`
	HasActiveSubscription bool   `json:"has_active_subscription"`
	IsExpired             bool   `json:"is_expired"`
	IsCancelled           bool   `json:"is_cancelled"`
	DaysUntilExpiry       int    `json:"days_until_expiry"`
	RequiresRenewal       bool   `json:"requires_renewal"`
	PlanID                string `json:"plan_id,omitempty"`
	EndTime               int64  `json:"end_time,omitempty"`
}

type ActiveReply struct {
	IsActive bool `json:"is_active"`
}

type DemoEligibilityReply struct {
	CanProceed         bool `json:"can_proceed"`
	MaxQuestions       int  `json:"max_questions"`
	AttemptedQuestions int  `json:"attempted_questions"`
	RemainingQuestions int  `json:"remaining_questions"`
}

type LogDemoAccessRequest struct {
	UserID             uint64 `json:"user_id"`
	ExamCategory       string `json:"exam_category"`
	QuestionsAttempted int    `json:"questions_attempted"`
	TimeSpentSec       int    `json:"time_spent_sec"`
	DeviceInfo         string `json:"device_info"`
	Completed          bool   `json:"completed"`
}

type LogDemoAccessReply struct {
	Success bool `json:"success"`
}

// Validate 校验用户订阅权益
func (s *ValidationService) Validate(ctx context.Context, userID uint64, examCategory string) (*ValidateReply, error) {
	verdict, err := s.uc.ValidateSubscription(ctx, userID, examCategory)
	if err != nil {
		return nil, err
	}
	reply := &ValidateReply{
		IsValid:               verdict.IsValid,
		HasSubscription:       verdict.HasSubscription,
		HasActiveSubscription: verdict.HasActiveSubscription,
		IsExpired:             verdict.IsExpired,
		IsCancelled:           verdict.IsCancelled,
		DaysUntilExpiry:       verdict.DaysUntilExpiry,
		RequiresRenewal:       verdict.RequiresRenewal,
		PlanID:                verdict.PlanID,
	}
	if verdict.EndTime != nil {
		reply.EndTime = verdict.EndTime.Unix()
	}
	return reply, nil
}

// IsActive 订阅是否有效的布尔便捷接口
func (s *ValidationService) IsActive(ctx context.Context, userID uint64) (*ActiveReply, error) {
	active, err := s.uc.IsSubscriptionActive(ctx, userID)
	if err != nil {
		return nil, err
	}
	return &ActiveReply{IsActive: active}, nil
}

// CheckDemoEligibility 查询试用配额
func (s *ValidationService) CheckDemoEligibility(ctx context.Context, userID uint64, examCategory string) (*DemoEligibilityReply, error) {
	verdict, err := s.uc.CheckDemoEligibility(ctx, userID, examCategory)
	if err != nil {
		return nil, err
	}
	return &DemoEligibilityReply{
		CanProceed:         verdict.CanProceed,
		MaxQuestions:       verdict.MaxQuestions,
		AttemptedQuestions: verdict.AttemptedQuestions,
		RemainingQuestions: verdict.RemainingQuestions,
	}, nil
}

// LogDemoAccess 记录一次试用访问
func (s *ValidationService) LogDemoAccess(ctx context.Context, req *LogDemoAccessRequest) (*LogDemoAccessReply, error) {
	entry := &biz.DemoAccessLog{
		UserID:             req.UserID,
		ExamCategory:       req.ExamCategory,
		QuestionsAttempted: req.QuestionsAttempted,
		TimeSpentSec:       req.TimeSpentSec,
		DeviceInfo:         req.DeviceInfo,
		Completed:          req.Completed,
	}
	if err := s.uc.LogDemoAccess(ctx, entry); err != nil {
		return nil, err
	}
	return &LogDemoAccessReply{Success: true}, nil
}
