package biz_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/constants"
)

// seedSubscription 直接预置一条订阅记录
func seedSubscription(t *testing.T, env *testEnv, userID uint64, status string, end time.Time) *biz.UserSubscription {
	t.Helper()
	now := time.Now().UTC()
	sub := &biz.UserSubscription{
		UserID:    userID,
		PlanID:    "plan-monthly",
		Status:    status,
		StartTime: end.AddDate(0, 0, -30),
		EndTime:   end,
		CreatedAt: now,
		UpdatedAt: now,
	}
	require.NoError(t, env.store.CreateSubscription(context.Background(), sub))
	return sub
}

func TestValidateSubscription(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now().UTC()

	t.Run("no subscription at all", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()

		verdict, err := env.valUc.ValidateSubscription(ctx, 101, "")
		require.NoError(t, err)
		assert.False(t, verdict.IsValid)
		assert.False(t, verdict.HasSubscription)
		assert.False(t, verdict.HasActiveSubscription)
	})

	t.Run("active subscription is valid", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		seedSubscription(t, env, 101, constants.StatusActive, now.AddDate(0, 0, 20))

		verdict, err := env.valUc.ValidateSubscription(ctx, 101, "")
		require.NoError(t, err)
		assert.True(t, verdict.IsValid)
		assert.True(t, verdict.HasActiveSubscription)
		assert.Equal(t, 20, verdict.DaysUntilExpiry)
		assert.False(t, verdict.RequiresRenewal)
	})

	t.Run("expiring soon requires renewal", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		seedSubscription(t, env, 101, constants.StatusActive, now.AddDate(0, 0, 3))

		verdict, err := env.valUc.ValidateSubscription(ctx, 101, "")
		require.NoError(t, err)
		assert.True(t, verdict.IsValid)
		assert.Equal(t, 3, verdict.DaysUntilExpiry)
		assert.True(t, verdict.RequiresRenewal)
	})

	t.Run("expired yesterday is invalid", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		// 清扫任务尚未跑, 状态还是 active 但已过期
		seedSubscription(t, env, 101, constants.StatusActive, now.AddDate(0, 0, -1))

		verdict, err := env.valUc.ValidateSubscription(ctx, 101, "")
		require.NoError(t, err)
		assert.False(t, verdict.IsValid)
		assert.False(t, verdict.HasActiveSubscription)
		assert.True(t, verdict.IsExpired)
		assert.True(t, verdict.HasSubscription)
	})

	t.Run("cancelled subscription", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		seedSubscription(t, env, 101, constants.StatusCancelled, now.AddDate(0, 0, 10))

		verdict, err := env.valUc.ValidateSubscription(ctx, 101, "")
		require.NoError(t, err)
		assert.False(t, verdict.IsValid)
		assert.True(t, verdict.IsCancelled)
		assert.False(t, verdict.IsExpired)
	})

	t.Run("plan features gate exam categories", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30, "jee", "neet")
		seedSubscription(t, env, 101, constants.StatusActive, now.AddDate(0, 0, 20))

		covered, err := env.valUc.ValidateSubscription(ctx, 101, "jee")
		require.NoError(t, err)
		assert.True(t, covered.IsValid)

		uncovered, err := env.valUc.ValidateSubscription(ctx, 101, "upsc")
		require.NoError(t, err)
		assert.False(t, uncovered.IsValid)
		// 订阅本身仍然有效, 只是不覆盖该分类
		assert.True(t, uncovered.HasActiveSubscription)
	})

	t.Run("abandoned checkout does not mask a live subscription", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		seedSubscription(t, env, 101, constants.StatusActive, now.AddDate(0, 0, 20))
		// 新下单产生一条更新的 pending 记录, 用户随后放弃支付
		_, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)

		verdict, err := env.valUc.ValidateSubscription(ctx, 101, "")
		require.NoError(t, err)
		assert.True(t, verdict.IsValid)
		assert.True(t, verdict.HasActiveSubscription)
		assert.False(t, verdict.IsExpired)
		assert.Equal(t, 20, verdict.DaysUntilExpiry)
	})

	t.Run("newer cancelled record does not mask a live subscription", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		old := seedSubscription(t, env, 101, constants.StatusActive, now.AddDate(0, 0, 20))
		old.CreatedAt = now.Add(-48 * time.Hour)
		require.NoError(t, env.store.SaveSubscription(ctx, old))
		seedSubscription(t, env, 101, constants.StatusCancelled, now.AddDate(0, 0, 20))

		verdict, err := env.valUc.ValidateSubscription(ctx, 101, "")
		require.NoError(t, err)
		assert.True(t, verdict.IsValid)
		assert.True(t, verdict.HasActiveSubscription)
		assert.False(t, verdict.IsCancelled)
	})

	t.Run("pending only user has no entitlement", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		env.seedPlan("plan-monthly", 499, 30)
		_, err := env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
		require.NoError(t, err)

		verdict, err := env.valUc.ValidateSubscription(ctx, 101, "")
		require.NoError(t, err)
		assert.False(t, verdict.IsValid)
		assert.True(t, verdict.HasSubscription)
		assert.False(t, verdict.HasActiveSubscription)
		// 未支付的下单既不算过期也不算取消
		assert.False(t, verdict.IsExpired)
		assert.False(t, verdict.IsCancelled)
	})
}

func TestIsSubscriptionActive(t *testing.T) {
	t.Parallel()
	ctx := context.Background()
	now := time.Now().UTC()

	env := newTestEnv()
	env.seedPlan("plan-monthly", 499, 30)
	seedSubscription(t, env, 101, constants.StatusActive, now.AddDate(0, 0, 5))
	seedSubscription(t, env, 202, constants.StatusExpired, now.AddDate(0, 0, -5))

	active, err := env.valUc.IsSubscriptionActive(ctx, 101)
	require.NoError(t, err)
	assert.True(t, active)

	// 新下单不影响已有权益
	_, err = env.subUc.CreateOrder(ctx, 101, "plan-monthly", false)
	require.NoError(t, err)
	stillActive, err := env.valUc.IsSubscriptionActive(ctx, 101)
	require.NoError(t, err)
	assert.True(t, stillActive)

	expired, err := env.valUc.IsSubscriptionActive(ctx, 202)
	require.NoError(t, err)
	assert.False(t, expired)

	none, err := env.valUc.IsSubscriptionActive(ctx, 303)
	require.NoError(t, err)
	assert.False(t, none)
}

func TestCheckDemoEligibility(t *testing.T) {
	t.Parallel()
	ctx := context.Background()

	t.Run("fresh user has full quota", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()

		verdict, err := env.valUc.CheckDemoEligibility(ctx, 101, "jee")
		require.NoError(t, err)
		assert.True(t, verdict.CanProceed)
		assert.Equal(t, 10, verdict.MaxQuestions)
		assert.Equal(t, 10, verdict.RemainingQuestions)
	})

	t.Run("usage is summed per category", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		require.NoError(t, env.valUc.LogDemoAccess(ctx, &biz.DemoAccessLog{UserID: 101, ExamCategory: "jee", QuestionsAttempted: 4}))
		require.NoError(t, env.valUc.LogDemoAccess(ctx, &biz.DemoAccessLog{UserID: 101, ExamCategory: "jee", QuestionsAttempted: 3}))
		require.NoError(t, env.valUc.LogDemoAccess(ctx, &biz.DemoAccessLog{UserID: 101, ExamCategory: "neet", QuestionsAttempted: 9}))

		verdict, err := env.valUc.CheckDemoEligibility(ctx, 101, "jee")
		require.NoError(t, err)
		assert.True(t, verdict.CanProceed)
		assert.Equal(t, 7, verdict.AttemptedQuestions)
		assert.Equal(t, 3, verdict.RemainingQuestions)
	})

	t.Run("remaining never goes negative", func(t *testing.T) {
		t.Parallel()
		env := newTestEnv()
		require.NoError(t, env.valUc.LogDemoAccess(ctx, &biz.DemoAccessLog{UserID: 101, ExamCategory: "jee", QuestionsAttempted: 25}))

		verdict, err := env.valUc.CheckDemoEligibility(ctx, 101, "jee")
		require.NoError(t, err)
		assert.False(t, verdict.CanProceed)
		assert.Equal(t, 25, verdict.AttemptedQuestions)
		assert.Equal(t, 0, verdict.RemainingQuestions)
	})
}
