package biz_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankup_tech/subscription-service/internal/constants"
)

func TestCreateOrder(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("creates pending subscription and transaction", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)

		order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)
		require.NotEmpty(t, order.GatewayOrderID)
		assert.Equal(t, 499.0, order.Amount)
		assert.Equal(t, "INR", order.Currency)

		sub, err := env.store.GetSubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		require.NotNil(t, sub)
		assert.Equal(t, constants.StatusPending, sub.Status)
		assert.Equal(t, 499.0, sub.FinalAmount)

		txn, err := env.store.GetTransactionByOrderID(ctx, order.GatewayOrderID)
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, constants.TxnStatusPending, txn.Status)
		assert.Equal(t, order.SubscriptionID, txn.UserSubscriptionID)

		assert.Equal(t, []string{constants.ActionCreated}, env.store.historyActions(101))
	})

	t.Run("rejects unknown plan", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()

		_, err := env.subUc.CreateOrder(ctx, 101, "no-such-plan", false)
		require.Error(t, err)
		assert.Equal(t, 0, env.gateway.createCalls)
	})

	t.Run("rejects inactive plan", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		plan := env.seedPlan("plan-retired", 199, 30)
		plan.IsActive = false
		require.NoError(t, env.store.UpdatePlan(ctx, plan))

		_, err := env.subUc.CreateOrder(ctx, 101, "plan-retired", false)
		require.Error(t, err)
	})
}

func TestActivateSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("happy path activates and issues invoice", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)

		result, err := env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_ok")
		require.NoError(t, err)
		assert.False(t, result.AlreadyProcessed)
		assert.Equal(t, constants.StatusActive, result.Status)
		// 30 天有效期
		wantEnd := result.StartTime.AddDate(0, 0, 30)
		assert.Equal(t, wantEnd, result.EndTime)

		txn, err := env.store.GetTransactionByOrderID(ctx, order.GatewayOrderID)
		require.NoError(t, err)
		assert.Equal(t, constants.TxnStatusCompleted, txn.Status)
		assert.Equal(t, "pay_123", txn.GatewayPaymentID)
		assert.Equal(t, "upi", txn.PaymentMethod)
		require.NotNil(t, txn.CompletedAt)

		// 激活后自动出票, 总额等于订阅实付金额
		invoice, err := env.store.GetInvoiceBySubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		require.NotNil(t, invoice)
		assert.Equal(t, 499.0, invoice.Total)
		assert.Equal(t, "INR", invoice.Currency)
	})

	t.Run("second call is idempotent without touching gateway", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)

		first, err := env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_ok")
		require.NoError(t, err)
		verifyCallsAfterFirst := env.gateway.verifyCalls

		second, err := env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_ok")
		require.NoError(t, err)
		assert.True(t, second.AlreadyProcessed)
		assert.Equal(t, first.SubscriptionID, second.SubscriptionID)
		assert.Equal(t, first.EndTime, second.EndTime)
		// 幂等快路径不再调用网关
		assert.Equal(t, verifyCallsAfterFirst, env.gateway.verifyCalls)

		// 发票也只有一张
		invoice, err := env.store.GetInvoiceBySubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		require.NotNil(t, invoice)
	})

	t.Run("verification failure leaves everything pending", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)

		env.gateway.verifyOK = false
		_, err = env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_bad")
		require.Error(t, err)

		sub, err := env.store.GetSubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, constants.StatusPending, sub.Status)
		txn, err := env.store.GetTransactionByOrderID(ctx, order.GatewayOrderID)
		require.NoError(t, err)
		assert.Equal(t, constants.TxnStatusPending, txn.Status)
		invoice, err := env.store.GetInvoiceBySubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		assert.Nil(t, invoice)

		// 重试同一订单可以成功
		env.gateway.verifyOK = true
		result, err := env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_ok")
		require.NoError(t, err)
		assert.Equal(t, constants.StatusActive, result.Status)
	})

	t.Run("unknown order is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()

		_, err := env.subUc.ActivateSubscription(ctx, "order_unknown", "pay_123", "sig")
		require.Error(t, err)
	})

	t.Run("duration is read at activation time, not order time", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		plan := env.seedPlan("plan-monthly", 499, 30)
		order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)

		// 下单后套餐改为 60 天, 激活按最新配置固化
		plan.DurationDays = 60
		require.NoError(t, env.store.UpdatePlan(ctx, plan))

		result, err := env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_ok")
		require.NoError(t, err)
		assert.Equal(t, result.StartTime.AddDate(0, 0, 60), result.EndTime)

		// 激活之后再改套餐不回溯
		plan.DurationDays = 1
		require.NoError(t, env.store.UpdatePlan(ctx, plan))
		sub, err := env.store.GetSubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, result.EndTime, sub.EndTime)
	})
}

func TestRenewSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("expires old and creates new pending", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)
		_, err = env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_ok")
		require.NoError(t, err)

		newSub, err := env.subUc.RenewSubscription(ctx, order.SubscriptionID, true)
		require.NoError(t, err)
		assert.NotEqual(t, order.SubscriptionID, newSub.ID)
		assert.Equal(t, constants.StatusPending, newSub.Status)
		assert.True(t, newSub.AutoRenew)

		old, err := env.store.GetSubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, constants.StatusExpired, old.Status)

		// 新单有独立的 pending 流水
		txn, err := env.store.GetTransactionByOrderID(ctx, newSub.GatewayOrderID)
		require.NoError(t, err)
		require.NotNil(t, txn)
		assert.Equal(t, constants.TxnStatusPending, txn.Status)
	})

	t.Run("renewal uses current plan price", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		plan := env.seedPlan("plan-monthly", 499, 30)
		order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)
		_, err = env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_ok")
		require.NoError(t, err)

		plan.Price = 599
		require.NoError(t, env.store.UpdatePlan(ctx, plan))

		newSub, err := env.subUc.RenewSubscription(ctx, order.SubscriptionID, false)
		require.NoError(t, err)
		assert.Equal(t, 599.0, newSub.FinalAmount)

		// 旧订阅的金额不受影响
		old, err := env.store.GetSubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, 499.0, old.FinalAmount)
	})

	t.Run("unknown subscription is rejected", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		_, err := env.subUc.RenewSubscription(ctx, 9999, false)
		require.Error(t, err)
	})
}

func TestCancelSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("cancels active subscription", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", true)
		require.NoError(t, err)
		_, err = env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_ok")
		require.NoError(t, err)

		err = env.subUc.CancelSubscription(ctx, order.SubscriptionID, "too expensive")
		require.NoError(t, err)

		sub, err := env.store.GetSubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, constants.StatusCancelled, sub.Status)
		assert.Equal(t, "too expensive", sub.CancelReason)
		require.NotNil(t, sub.CancelledAt)
		assert.False(t, sub.AutoRenew)
	})

	t.Run("cancels pending subscription (abandoned order)", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)

		err = env.subUc.CancelSubscription(ctx, order.SubscriptionID, "changed my mind")
		require.NoError(t, err)

		sub, err := env.store.GetSubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, constants.StatusCancelled, sub.Status)

		// 取消后的迟到支付确认不再激活订阅
		_, err = env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_123", "sig_ok")
		require.Error(t, err)
		after, err := env.store.GetSubscription(ctx, order.SubscriptionID)
		require.NoError(t, err)
		assert.Equal(t, constants.StatusCancelled, after.Status)
	})
}

func TestSubscriptionEndToEnd(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	env := newTestEnv()
	env.seedPlan("plan-monthly", 499, 30)

	// 下单 -> 激活 -> 校验 -> 发票下载
	order, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
	require.NoError(t, err)

	result, err := env.subUc.ActivateSubscription(ctx, order.GatewayOrderID, "pay_e2e", "sig_ok")
	require.NoError(t, err)
	assert.Equal(t, constants.StatusActive, result.Status)

	verdict, err := env.valUc.ValidateSubscription(ctx, 101, "")
	require.NoError(t, err)
	assert.True(t, verdict.IsValid)
	assert.True(t, verdict.HasActiveSubscription)
	assert.Equal(t, 30, verdict.DaysUntilExpiry)

	doc, err := env.invoiceUc.DownloadInvoice(ctx, order.SubscriptionID, 101)
	require.NoError(t, err)
	assert.Equal(t, 499.0, doc.Total)
	assert.Equal(t, "INR", doc.Currency)
	assert.Equal(t, "Asha Verma", doc.CustomerName)
	assert.Equal(t, "Plan plan-monthly", doc.PlanName)

	actions := env.store.historyActions(101)
	assert.Equal(t, []string{constants.ActionCreated, constants.ActionActivated}, actions)

	// 历史分页
	items, total, err := env.subUc.GetSubscriptionHistory(ctx, 101, 1, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, total)
	assert.Len(t, items, 2)
}
