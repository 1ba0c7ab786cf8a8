package biz

import (
	"context"
	"fmt"
	"time"

	"rankup_tech/subscription-service/internal/constants"
	"rankup_tech/subscription-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/google/uuid"
)

// OrderResult 下单结果, 返回给客户端用于发起网关侧收银台支付
type OrderResult struct {
	SubscriptionID uint64
	TransactionID  string
	GatewayOrderID string
	Amount         float64
	Currency       string
	Receipt        string
}

// ActivationResult 激活结果
type ActivationResult struct {
	SubscriptionID   uint64
	TransactionID    string
	PlanID           string
	Status           string
	StartTime        time.Time
	EndTime          time.Time
	AlreadyProcessed bool // 重复激活请求命中幂等快路径
}

// CreateOrder 创建订阅订单
// 套餐价格与币种在此时拷贝进订阅自身, 后续套餐改价不回溯
func (uc *SubscriptionUsecase) CreateOrder(ctx context.Context, userID uint64, planID string, autoRenew bool) (*OrderResult, error) {
	uc.log.Infof("CreateOrder: userID=%d, planID=%s, autoRenew=%v", userID, planID, autoRenew)

	// 1. 获取套餐信息
	plan, err := uc.planRepo.GetPlan(ctx, planID)
	if err != nil {
		uc.log.Errorf("Failed to get plan %s: %v", planID, err)
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		uc.log.Errorf("Plan not found or inactive: %s", planID)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodePlanNotFound)
	}

	// 2. 计算金额 (final = original, 预留折扣逻辑)
	originalAmount := plan.Price
	finalAmount := originalAmount

	// 3. 调用网关创建订单
	// 回执串确定性编码 用户+套餐+时间戳, 用于客服追溯, 不承担幂等职责
	now := time.Now().UTC()
	receipt := fmt.Sprintf("sub_%d_%.8s_%d", userID, planID, now.Unix())
	gwOrder, err := uc.gateway.CreateOrder(ctx, finalAmount, plan.Currency, receipt)
	if err != nil {
		uc.log.Errorf("Gateway order creation failed: %v", err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeGatewayUnavailable)
	}
	uc.log.Infof("Gateway order created: %s", gwOrder.OrderID)

	// 4. 本地创建 pending 订阅和 pending 流水
	sub := &UserSubscription{
		UserID:         userID,
		PlanID:         planID,
		GatewayOrderID: gwOrder.OrderID,
		OriginalAmount: originalAmount,
		FinalAmount:    finalAmount,
		Currency:       plan.Currency,
		Status:         constants.StatusPending,
		AutoRenew:      autoRenew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	txn := &PaymentTransaction{
		TransactionID:  "TXN-" + uuid.New().String(),
		GatewayOrderID: gwOrder.OrderID,
		Amount:         finalAmount,
		Currency:       plan.Currency,
		Status:         constants.TxnStatusPending,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.withTransaction(ctx, func(ctx context.Context) error {
		if err := uc.subRepo.CreateSubscription(ctx, sub); err != nil {
			return err
		}
		txn.UserSubscriptionID = sub.ID
		return uc.txnRepo.CreateTransaction(ctx, txn)
	}); err != nil {
		uc.log.Errorf("Failed to create order records: %v", err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOrderCreateFailed)
	}
	uc.log.Infof("Order created: subscription=%d, transaction=%s", sub.ID, txn.TransactionID)

	uc.addHistory(ctx, sub, plan.Name, constants.ActionCreated)

	return &OrderResult{
		SubscriptionID: sub.ID,
		TransactionID:  txn.TransactionID,
		GatewayOrderID: gwOrder.OrderID,
		Amount:         finalAmount,
		Currency:       plan.Currency,
		Receipt:        receipt,
	}, nil
}

// ActivateSubscription 激活订阅 (支付确认核心路径)
// 幂等: 流水已 completed 时直接返回既有结果, 不再调用网关也不再改状态
// (webhook 重发与用户端确认可能并发到达)
// 提交前任何失败不落任何变更; 提交后的发票失败只记日志不回滚
func (uc *SubscriptionUsecase) ActivateSubscription(ctx context.Context, gatewayOrderID, gatewayPaymentID, signature string) (*ActivationResult, error) {
	uc.log.Infof("ActivateSubscription: orderID=%s, paymentID=%s", gatewayOrderID, gatewayPaymentID)

	// 按订单加锁, 避免两个并发激活同时通过 "尚未完成" 检查
	unlock, err := uc.locker.Lock(ctx, constants.ActivateLockKeyPrefix+gatewayOrderID)
	if err != nil {
		uc.log.Infof("Activation for order %s already in progress", gatewayOrderID)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOperationInProgress)
	}
	defer unlock()

	txn, err := uc.txnRepo.GetTransactionByOrderID(ctx, gatewayOrderID)
	if err != nil {
		uc.log.Errorf("Failed to get transaction for order %s: %v", gatewayOrderID, err)
		return nil, err
	}
	if txn == nil {
		// 防御: 订单从未被跟踪, 或者属于其他环境
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}

	// 幂等快路径
	if txn.Status != constants.TxnStatusPending {
		uc.log.Infof("Transaction %s already %s, returning stored result (idempotent)", txn.TransactionID, txn.Status)
		return uc.storedActivationResult(ctx, txn)
	}

	// (a) 验证签名, 失败时一切保持 pending
	ok, err := uc.gateway.VerifyPayment(ctx, gatewayOrderID, gatewayPaymentID, signature)
	if err != nil {
		uc.log.Errorf("Gateway verification call failed for order %s: %v", gatewayOrderID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeGatewayUnavailable)
	}
	if !ok {
		uc.log.Errorf("Payment signature verification failed for order %s", gatewayOrderID)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeVerificationFailed)
	}

	// (b) 查找订阅
	sub, err := uc.subRepo.GetSubscriptionByOrderID(ctx, gatewayOrderID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}

	// (c) 获取支付详情, 得到支付方式与原始响应
	detail, err := uc.gateway.GetPaymentDetail(ctx, gatewayPaymentID)
	if err != nil {
		uc.log.Errorf("Failed to fetch payment detail for %s: %v", gatewayPaymentID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeGatewayUnavailable)
	}

	// 有效期从当前套餐读取并固化到订阅自身, 套餐后续编辑不再影响
	plan, err := uc.planRepo.GetPlan(ctx, sub.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodePlanNotFound)
	}

	now := time.Now().UTC()
	end := now.AddDate(0, 0, plan.DurationDays)

	// (d)(e) 流水与订阅的状态迁移, 两个条件更新在同一事务内
	if err := uc.withTransaction(ctx, func(ctx context.Context) error {
		done, err := uc.txnRepo.CompleteTransaction(ctx, txn.ID, gatewayPaymentID, signature, detail.Method, detail.Raw, now)
		if err != nil {
			return err
		}
		if !done {
			// 锁内不应出现, 留作 CAS 兜底
			return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvariantViolation)
		}
		activated, err := uc.subRepo.ActivateSubscription(ctx, sub.ID, now, end)
		if err != nil {
			return err
		}
		if !activated {
			// 订阅已不在 pending (如支付完成前被取消), 回滚流水完成, 保持一致
			uc.log.Errorf("Subscription %d no longer pending, aborting activation", sub.ID)
			return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvalidStatus)
		}
		return nil
	}); err != nil {
		return nil, err
	}
	uc.log.Infof("Subscription %d activated: start=%v, end=%v", sub.ID, now, end)

	// (f) 发票生成与历史记录都是尽力而为:
	// 支付已提交成功, 后续失败不允许反悔, 只记日志人工跟进
	if _, err := uc.invoiceUc.GenerateInvoice(ctx, sub.ID); err != nil {
		uc.log.Errorf("Failed to generate invoice for subscription %d: %v", sub.ID, err)
	}
	sub.Status = constants.StatusActive
	sub.StartTime = now
	sub.EndTime = end
	uc.addHistory(ctx, sub, plan.Name, constants.ActionActivated)

	return &ActivationResult{
		SubscriptionID: sub.ID,
		TransactionID:  txn.TransactionID,
		PlanID:         sub.PlanID,
		Status:         constants.StatusActive,
		StartTime:      now,
		EndTime:        end,
	}, nil
}

// storedActivationResult 幂等快路径: 从已完成的流水和订阅拼出与首次激活一致的结果
func (uc *SubscriptionUsecase) storedActivationResult(ctx context.Context, txn *PaymentTransaction) (*ActivationResult, error) {
	sub, err := uc.subRepo.GetSubscription(ctx, txn.UserSubscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}
	return &ActivationResult{
		SubscriptionID:   sub.ID,
		TransactionID:    txn.TransactionID,
		PlanID:           sub.PlanID,
		Status:           sub.Status,
		StartTime:        sub.StartTime,
		EndTime:          sub.EndTime,
		AlreadyProcessed: true,
	}, nil
}

// RenewSubscription 续费
// 续费发起即消耗旧的权益: 旧订阅立刻置为 expired, 新订阅以 pending 创建,
// 由调用方走正常的 下单->激活 流程完成支付
// 两次写入不要求原子成对, 中间崩溃留下 expired 无新单属于可重新触发的状态
func (uc *SubscriptionUsecase) RenewSubscription(ctx context.Context, subscriptionID uint64, autoRenew bool) (*UserSubscription, error) {
	uc.log.Infof("RenewSubscription: subscriptionID=%d, autoRenew=%v", subscriptionID, autoRenew)

	old, err := uc.subRepo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if old == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}

	// 重新读取套餐, 续费按当前价格计费
	plan, err := uc.planRepo.GetPlan(ctx, old.PlanID)
	if err != nil {
		return nil, err
	}
	if plan == nil || !plan.IsActive {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodePlanNotFound)
	}

	now := time.Now().UTC()
	renewalOrderID := fmt.Sprintf("renewal_%d_%d", old.ID, now.UnixNano())
	newSub := &UserSubscription{
		UserID:         old.UserID,
		PlanID:         old.PlanID,
		GatewayOrderID: renewalOrderID,
		OriginalAmount: plan.Price,
		FinalAmount:    plan.Price,
		Currency:       plan.Currency,
		Status:         constants.StatusPending,
		AutoRenew:      autoRenew,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := uc.subRepo.CreateSubscription(ctx, newSub); err != nil {
		uc.log.Errorf("Failed to create renewal subscription for %d: %v", old.ID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOrderCreateFailed)
	}

	// 续费产生独立的新流水, 不触碰历史流水
	txn := &PaymentTransaction{
		UserSubscriptionID: newSub.ID,
		TransactionID:      "TXN-" + uuid.New().String(),
		GatewayOrderID:     renewalOrderID,
		Amount:             plan.Price,
		Currency:           plan.Currency,
		Status:             constants.TxnStatusPending,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := uc.txnRepo.CreateTransaction(ctx, txn); err != nil {
		uc.log.Errorf("Failed to create renewal transaction for subscription %d: %v", newSub.ID, err)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOrderCreateFailed)
	}

	old.Status = constants.StatusExpired
	old.UpdatedAt = now
	if err := uc.subRepo.SaveSubscription(ctx, old); err != nil {
		uc.log.Errorf("Failed to expire old subscription %d: %v", old.ID, err)
		return nil, err
	}
	uc.log.Infof("Renewal created: old=%d expired, new=%d pending", old.ID, newSub.ID)

	uc.addHistory(ctx, newSub, plan.Name, constants.ActionRenewed)
	return newSub, nil
}

// CancelSubscription 取消订阅
// 任何先前状态都允许取消(含未支付的 pending 弃单), 不触碰支付流水也不自动退款
func (uc *SubscriptionUsecase) CancelSubscription(ctx context.Context, subscriptionID uint64, reason string) error {
	uc.log.Infof("CancelSubscription: subscriptionID=%d, reason=%s", subscriptionID, reason)

	sub, err := uc.subRepo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		uc.log.Errorf("Failed to get subscription %d: %v", subscriptionID, err)
		return err
	}
	if sub == nil {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}

	now := time.Now().UTC()
	sub.Status = constants.StatusCancelled
	sub.CancelReason = reason
	sub.CancelledAt = &now
	sub.AutoRenew = false // 取消时关闭自动续费
	sub.UpdatedAt = now

	if err := uc.subRepo.SaveSubscription(ctx, sub); err != nil {
		uc.log.Errorf("Failed to save subscription %d: %v", subscriptionID, err)
		return err
	}

	uc.addHistory(ctx, sub, "", constants.ActionCancelled)
	uc.log.Infof("Subscription %d cancelled", subscriptionID)
	return nil
}
