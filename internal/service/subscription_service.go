package service

import (
	"context"

	"rankup_tech/subscription-service/internal/auth"
	"rankup_tech/subscription-service/internal/biz"
)

// SubscriptionService 订阅生命周期对外服务
type SubscriptionService struct {
	uc *biz.SubscriptionUsecase
}

func NewSubscriptionService(uc *biz.SubscriptionUsecase) *SubscriptionService {
	return &SubscriptionService{uc: uc}
}

type Plan struct {
	PlanID       string   `json:"plan_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency"`
	DurationDays int      `json:"duration_days"`
	Features     []string `json:"features"`
	IsActive     bool     `json:"is_active"`
}

type ListPlansReply struct {
	Plans []*Plan `json:"plans"`
}

type GetPlanRequest struct {
	PlanID string `json:"plan_id"`
}

type SavePlanRequest struct {
	PlanID       string   `json:"plan_id"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	Price        float64  `json:"price"`
	Currency     string   `json:"currency"`
	DurationDays int      `json:"duration_days"`
	Features     []string `json:"features"`
	IsActive     bool     `json:"is_active"`
}

type SavePlanReply struct {
	PlanID  string `json:"plan_id"`
	Success bool   `json:"success"`
}

type CreateOrderRequest struct {
	UserID    uint64 `json:"user_id"`
	PlanID    string `json:"plan_id"`
	AutoRenew bool   `json:"auto_renew"`
}

type CreateOrderReply struct {
	SubscriptionID uint64  `json:"subscription_id"`
	TransactionID  string  `json:"transaction_id"`
	GatewayOrderID string  `json:"gateway_order_id"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
	Receipt        string  `json:"receipt"`
}

type ActivateRequest struct {
	GatewayOrderID   string `json:"gateway_order_id"`
	GatewayPaymentID string `json:"gateway_payment_id"`
	Signature        string `json:"signature"`
}

type ActivateReply struct {
	SubscriptionID   uint64 `json:"subscription_id"`
	TransactionID    string `json:"transaction_id"`
	PlanID           string `json:"plan_id"`
	Status           string `json:"status"`
	StartTime        int64  `json:"start_time"`
	EndTime          int64  `json:"end_time"`
	AlreadyProcessed bool   `json:"already_processed"`
}

type RenewRequest struct {
	SubscriptionID uint64 `json:"subscription_id"`
	AutoRenew      bool   `json:"auto_renew"`
}

type RenewReply struct {
	SubscriptionID uint64  `json:"subscription_id"`
	GatewayOrderID string  `json:"gateway_order_id"`
	Status         string  `json:"status"`
	Amount         float64 `json:"amount"`
	Currency       string  `json:"currency"`
}

type CancelRequest struct {
	SubscriptionID uint64 `json:"subscription_id"`
	Reason         string `json:"reason"`
}

type CancelReply struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

type RefundRequest struct {
	GatewayPaymentID string  `json:"gateway_payment_id"`
	Amount           float64 `json:"amount"`
}

type RefundReply struct {
	TransactionID string  `json:"transaction_id"`
	Status        string  `json:"status"`
	RefundAmount  float64 `json:"refund_amount"`
	RefundID      string  `json:"refund_id"`
}

type HistoryItem struct {
	SubscriptionID uint64 `json:"subscription_id"`
	PlanID         string `json:"plan_id"`
	PlanName       string `json:"plan_name"`
	StartTime      int64  `json:"start_time"`
	EndTime        int64  `json:"end_time"`
	Status         string `json:"status"`
	Action         string `json:"action"`
	CreatedAt      int64  `json:"created_at"`
}

type HistoryReply struct {
	Items []*HistoryItem `json:"items"`
	Total int            `json:"total"`
}

// ListPlans 获取上架套餐列表
func (s *SubscriptionService) ListPlans(ctx context.Context) (*ListPlansReply, error) {
	plans, err := s.uc.ListPlans(ctx)
	if err != nil {
		return nil, err
	}
	items := make([]*Plan, 0, len(plans))
	for _, p := range plans {
		items = append(items, toServicePlan(p))
	}
	return &ListPlansReply{Plans: items}, nil
}

// GetPlan 获取套餐详情
func (s *SubscriptionService) GetPlan(ctx context.Context, req *GetPlanRequest) (*Plan, error) {
	plan, err := s.uc.GetPlan(ctx, req.PlanID)
	if err != nil {
		return nil, err
	}
	return toServicePlan(plan), nil
}

// CreatePlan 创建套餐(管理端)
func (s *SubscriptionService) CreatePlan(ctx context.Context, req *SavePlanRequest) (*SavePlanReply, error) {
	plan := toBizPlanInput(req)
	if err := s.uc.CreatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return &SavePlanReply{PlanID: plan.PlanID, Success: true}, nil
}

// UpdatePlan 更新套餐(管理端)
func (s *SubscriptionService) UpdatePlan(ctx context.Context, req *SavePlanRequest) (*SavePlanReply, error) {
	plan := toBizPlanInput(req)
	if err := s.uc.UpdatePlan(ctx, plan); err != nil {
		return nil, err
	}
	return &SavePlanReply{PlanID: plan.PlanID, Success: true}, nil
}

// CreateOrder 创建订阅订单
func (s *SubscriptionService) CreateOrder(ctx context.Context, req *CreateOrderRequest) (*CreateOrderReply, error) {
	order, err := s.uc.CreateOrder(ctx, req.UserID, req.PlanID, req.AutoRenew)
	if err != nil {
		return nil, err
	}
	return &CreateOrderReply{
		SubscriptionID: order.SubscriptionID,
		TransactionID:  order.TransactionID,
		GatewayOrderID: order.GatewayOrderID,
		Amount:         order.Amount,
		Currency:       order.Currency,
		Receipt:        order.Receipt,
	}, nil
}

// Activate 支付确认激活订阅
func (s *SubscriptionService) Activate(ctx context.Context, req *ActivateRequest) (*ActivateReply, error) {
	result, err := s.uc.ActivateSubscription(ctx, req.GatewayOrderID, req.GatewayPaymentID, req.Signature)
	if err != nil {
		return nil, err
	}
	return &ActivateReply{
		SubscriptionID:   result.SubscriptionID,
		TransactionID:    result.TransactionID,
		PlanID:           result.PlanID,
		Status:           result.Status,
		StartTime:        result.StartTime.Unix(),
		EndTime:          result.EndTime.Unix(),
		AlreadyProcessed: result.AlreadyProcessed,
	}, nil
}

// Renew 续费
func (s *SubscriptionService) Renew(ctx context.Context, req *RenewRequest) (*RenewReply, error) {
	newSub, err := s.uc.RenewSubscription(ctx, req.SubscriptionID, req.AutoRenew)
	if err != nil {
		return nil, err
	}
	return &RenewReply{
		SubscriptionID: newSub.ID,
		GatewayOrderID: newSub.GatewayOrderID,
		Status:         newSub.Status,
		Amount:         newSub.FinalAmount,
		Currency:       newSub.Currency,
	}, nil
}

// Cancel 取消订阅
func (s *SubscriptionService) Cancel(ctx context.Context, req *CancelRequest) (*CancelReply, error) {
	if err := s.uc.CancelSubscription(ctx, req.SubscriptionID, req.Reason); err != nil {
		return nil, err
	}
	return &CancelReply{Success: true, Message: "Subscription cancelled successfully"}, nil
}

// Refund 处理退款
func (s *SubscriptionService) Refund(ctx context.Context, req *RefundRequest) (*RefundReply, error) {
	txn, err := s.uc.ProcessRefund(ctx, req.GatewayPaymentID, req.Amount)
	if err != nil {
		return nil, err
	}
	return &RefundReply{
		TransactionID: txn.TransactionID,
		Status:        txn.Status,
		RefundAmount:  txn.RefundAmount,
		RefundID:      txn.RefundID,
	}, nil
}

// GetHistory 获取用户订阅历史
// 权限验证: 只能查询自己的历史, 管理员不受限
func (s *SubscriptionService) GetHistory(ctx context.Context, userID uint64, page, pageSize int) (*HistoryReply, error) {
	if err := auth.CheckOwnership(ctx, userID); err != nil {
		return nil, err
	}

	items, total, err := s.uc.GetSubscriptionHistory(ctx, userID, page, pageSize)
	if err != nil {
		return nil, err
	}
	result := make([]*HistoryItem, 0, len(items))
	for _, h := range items {
		result = append(result, &HistoryItem{
			SubscriptionID: h.SubscriptionID,
			PlanID:         h.PlanID,
			PlanName:       h.PlanName,
			StartTime:      h.StartTime.Unix(),
			EndTime:        h.EndTime.Unix(),
			Status:         h.Status,
			Action:         h.Action,
			CreatedAt:      h.CreatedAt.Unix(),
		})
	}
	return &HistoryReply{Items: result, Total: total}, nil
}

func toServicePlan(p *biz.Plan) *Plan {
	return &Plan{
		PlanID:       p.PlanID,
		Name:         p.Name,
		Description:  p.Description,
		Price:        p.Price,
		Currency:     p.Currency,
		DurationDays: p.DurationDays,
		Features:     p.Features,
		IsActive:     p.IsActive,
	}
}

func toBizPlanInput(req *SavePlanRequest) *biz.Plan {
	return &biz.Plan{
		PlanID:       req.PlanID,
		Name:         req.Name,
		Description:  req.Description,
		Price:        req.Price,
		Currency:     req.Currency,
		DurationDays: req.DurationDays,
		Features:     req.Features,
		IsActive:     req.IsActive,
	}
}
