package biz_test

import (
	"context"
	"fmt"
	"io"
	"sort"
	"sync"
	"time"

	"github.com/go-kratos/kratos/v2/log"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/conf"
	"rankup_tech/subscription-service/internal/constants"
)

// memStore 内存仓库, 同时实现全部仓库接口
type memStore struct {
	mu sync.Mutex

	plans     map[string]*biz.Plan
	subs      map[uint64]*biz.UserSubscription
	nextSubID uint64
	txns      map[uint64]*biz.PaymentTransaction
	nextTxnID uint64
	invoices  map[uint64]*biz.Invoice
	nextInvID uint64
	histories []*biz.SubscriptionHistory
	demo      []*biz.DemoAccessLog
}

func newMemStore() *memStore {
	return &memStore{
		plans:    make(map[string]*biz.Plan),
		subs:     make(map[uint64]*biz.UserSubscription),
		txns:     make(map[uint64]*biz.PaymentTransaction),
		invoices: make(map[uint64]*biz.Invoice),
	}
}

// PlanRepo

func (s *memStore) ListPlans(ctx context.Context) ([]*biz.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var result []*biz.Plan
	for _, p := range s.plans {
		if p.IsActive {
			cp := *p
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Price < result[j].Price })
	return result, nil
}

func (s *memStore) GetPlan(ctx context.Context, planID string) (*biz.Plan, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	p, ok := s.plans[planID]
	if !ok {
		return nil, nil
	}
	cp := *p
	return &cp, nil
}

func (s *memStore) CreatePlan(ctx context.Context, plan *biz.Plan) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *plan
	s.plans[plan.PlanID] = &cp
	return nil
}

func (s *memStore) UpdatePlan(ctx context.Context, plan *biz.Plan) error {
	return s.CreatePlan(ctx, plan)
}

// UserSubscriptionRepo

func (s *memStore) GetSubscription(ctx context.Context, id uint64) (*biz.UserSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok {
		return nil, nil
	}
	cp := *sub
	return &cp, nil
}

func (s *memStore) GetSubscriptionByOrderID(ctx context.Context, gatewayOrderID string) (*biz.UserSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, sub := range s.subs {
		if sub.GatewayOrderID == gatewayOrderID {
			cp := *sub
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetLatestSubscription(ctx context.Context, userID uint64) (*biz.UserSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var latest *biz.UserSubscription
	for _, sub := range s.subs {
		if sub.UserID != userID {
			continue
		}
		if latest == nil || sub.CreatedAt.After(latest.CreatedAt) ||
			(sub.CreatedAt.Equal(latest.CreatedAt) && sub.ID > latest.ID) {
			latest = sub
		}
	}
	if latest == nil {
		return nil, nil
	}
	cp := *latest
	return &cp, nil
}

func (s *memStore) GetActiveSubscription(ctx context.Context, userID uint64, at time.Time) (*biz.UserSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var best *biz.UserSubscription
	for _, sub := range s.subs {
		if sub.UserID != userID || sub.Status != constants.StatusActive || sub.EndTime.Before(at) {
			continue
		}
		if best == nil || sub.EndTime.After(best.EndTime) {
			best = sub
		}
	}
	if best == nil {
		return nil, nil
	}
	cp := *best
	return &cp, nil
}

func (s *memStore) CreateSubscription(ctx context.Context, sub *biz.UserSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextSubID++
	sub.ID = s.nextSubID
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *memStore) SaveSubscription(ctx context.Context, sub *biz.UserSubscription) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *sub
	s.subs[sub.ID] = &cp
	return nil
}

func (s *memStore) ActivateSubscription(ctx context.Context, id uint64, start, end time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sub, ok := s.subs[id]
	if !ok || sub.Status != constants.StatusPending {
		return false, nil
	}
	sub.Status = constants.StatusActive
	sub.StartTime = start
	sub.EndTime = end
	sub.UpdatedAt = time.Now().UTC()
	return true, nil
}

func (s *memStore) GetExpiringSubscriptions(ctx context.Context, daysBeforeExpiry, page, pageSize int) ([]*biz.UserSubscription, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	deadline := now.AddDate(0, 0, daysBeforeExpiry)
	var result []*biz.UserSubscription
	for _, sub := range s.subs {
		if sub.Status == constants.StatusActive && sub.EndTime.After(now) && !sub.EndTime.After(deadline) {
			cp := *sub
			result = append(result, &cp)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].EndTime.Before(result[j].EndTime) })
	return result, len(result), nil
}

func (s *memStore) UpdateExpiredSubscriptions(ctx context.Context) (int, []uint64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	var ids []uint64
	for _, sub := range s.subs {
		if sub.Status == constants.StatusActive && sub.EndTime.Before(now) {
			sub.Status = constants.StatusExpired
			ids = append(ids, sub.ID)
		}
	}
	return len(ids), ids, nil
}

func (s *memStore) GetAutoRenewSubscriptions(ctx context.Context, daysBeforeExpiry int) ([]*biz.UserSubscription, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	now := time.Now().UTC()
	deadline := now.AddDate(0, 0, daysBeforeExpiry)
	var result []*biz.UserSubscription
	for _, sub := range s.subs {
		if sub.Status == constants.StatusActive && sub.AutoRenew && sub.EndTime.After(now) && !sub.EndTime.After(deadline) {
			cp := *sub
			result = append(result, &cp)
		}
	}
	return result, nil
}

// PaymentTransactionRepo

func (s *memStore) CreateTransaction(ctx context.Context, txn *biz.PaymentTransaction) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextTxnID++
	txn.ID = s.nextTxnID
	cp := *txn
	s.txns[txn.ID] = &cp
	return nil
}

func (s *memStore) GetTransactionByOrderID(ctx context.Context, gatewayOrderID string) (*biz.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.txns {
		if txn.GatewayOrderID == gatewayOrderID {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetTransactionByPaymentID(ctx context.Context, gatewayPaymentID string) (*biz.PaymentTransaction, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, txn := range s.txns {
		if txn.GatewayPaymentID == gatewayPaymentID {
			cp := *txn
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) CompleteTransaction(ctx context.Context, id uint64, gatewayPaymentID, signature, method, rawResponse string, completedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok || txn.Status != constants.TxnStatusPending {
		return false, nil
	}
	txn.Status = constants.TxnStatusCompleted
	txn.GatewayPaymentID = gatewayPaymentID
	txn.Signature = signature
	txn.PaymentMethod = method
	txn.GatewayResponse = rawResponse
	txn.CompletedAt = &completedAt
	return true, nil
}

func (s *memStore) AccumulateRefund(ctx context.Context, id uint64, amount float64, refundID, status string, refundedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	txn, ok := s.txns[id]
	if !ok {
		return fmt.Errorf("transaction %d not found", id)
	}
	txn.RefundAmount += amount
	txn.RefundID = refundID
	txn.Status = status
	txn.RefundedAt = &refundedAt
	return nil
}

// InvoiceRepo

func (s *memStore) GetInvoiceBySubscription(ctx context.Context, subscriptionID uint64) (*biz.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.UserSubscriptionID == subscriptionID {
			cp := *inv
			return &cp, nil
		}
	}
	return nil, nil
}

func (s *memStore) GetInvoice(ctx context.Context, id uint64) (*biz.Invoice, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return nil, nil
	}
	cp := *inv
	return &cp, nil
}

func (s *memStore) CreateInvoice(ctx context.Context, invoice *biz.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, inv := range s.invoices {
		if inv.UserSubscriptionID == invoice.UserSubscriptionID {
			return fmt.Errorf("duplicate invoice for subscription %d", invoice.UserSubscriptionID)
		}
	}
	s.nextInvID++
	invoice.ID = s.nextInvID
	cp := *invoice
	s.invoices[invoice.ID] = &cp
	return nil
}

func (s *memStore) UpdateInvoiceStatus(ctx context.Context, id uint64, status string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	inv, ok := s.invoices[id]
	if !ok {
		return fmt.Errorf("invoice %d not found", id)
	}
	inv.Status = status
	return nil
}

// SubscriptionHistoryRepo

func (s *memStore) AddSubscriptionHistory(ctx context.Context, history *biz.SubscriptionHistory) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *history
	cp.ID = uint64(len(s.histories) + 1)
	s.histories = append(s.histories, &cp)
	return nil
}

func (s *memStore) GetSubscriptionHistory(ctx context.Context, userID uint64, page, pageSize int) ([]*biz.SubscriptionHistory, int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var all []*biz.SubscriptionHistory
	for _, h := range s.histories {
		if h.UserID == userID {
			cp := *h
			all = append(all, &cp)
		}
	}
	total := len(all)
	start := (page - 1) * pageSize
	if start >= total {
		return nil, total, nil
	}
	end := start + pageSize
	if end > total {
		end = total
	}
	return all[start:end], total, nil
}

// historyActions 按动作过滤用户的历史记录
func (s *memStore) historyActions(userID uint64) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var actions []string
	for _, h := range s.histories {
		if h.UserID == userID {
			actions = append(actions, h.Action)
		}
	}
	return actions
}

// DemoAccessRepo

func (s *memStore) AddDemoAccess(ctx context.Context, entry *biz.DemoAccessLog) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	cp := *entry
	cp.ID = uint64(len(s.demo) + 1)
	s.demo = append(s.demo, &cp)
	return nil
}

func (s *memStore) CountDemoQuestions(ctx context.Context, userID uint64, examCategory string) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	total := 0
	for _, d := range s.demo {
		if d.UserID == userID && (examCategory == "" || d.ExamCategory == examCategory) {
			total += d.QuestionsAttempted
		}
	}
	return total, nil
}

// fakeGateway 可编程的支付网关
type fakeGateway struct {
	mu           sync.Mutex
	createCalls  int
	verifyCalls  int
	refundCalls  int
	nextOrderSeq int

	verifyOK     bool
	verifyErr    error
	refundStatus string
	refundErr    error
}

func newFakeGateway() *fakeGateway {
	return &fakeGateway{verifyOK: true, refundStatus: constants.GatewayRefundStatusProcessed}
}

func (g *fakeGateway) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*biz.GatewayOrder, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.createCalls++
	g.nextOrderSeq++
	return &biz.GatewayOrder{
		OrderID:   fmt.Sprintf("order_test_%04d", g.nextOrderSeq),
		Amount:    amount,
		Currency:  currency,
		Receipt:   receipt,
		Status:    "created",
		CreatedAt: time.Now().UTC(),
	}, nil
}

func (g *fakeGateway) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (bool, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.verifyCalls++
	if g.verifyErr != nil {
		return false, g.verifyErr
	}
	return g.verifyOK, nil
}

func (g *fakeGateway) GetPaymentDetail(ctx context.Context, paymentID string) (*biz.GatewayPayment, error) {
	return &biz.GatewayPayment{PaymentID: paymentID, Method: "upi", Raw: `{"method":"upi"}`}, nil
}

func (g *fakeGateway) ProcessRefund(ctx context.Context, paymentID string, amount float64) (*biz.GatewayRefund, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.refundCalls++
	if g.refundErr != nil {
		return nil, g.refundErr
	}
	return &biz.GatewayRefund{
		RefundID: fmt.Sprintf("rfnd_test_%04d", g.refundCalls),
		Status:   g.refundStatus,
		Raw:      `{"entity":"refund"}`,
	}, nil
}

// memLocker 进程内互斥锁, 模拟分布式锁的抢占语义
type memLocker struct {
	mu   sync.Mutex
	held map[string]bool
}

func newMemLocker() *memLocker {
	return &memLocker{held: make(map[string]bool)}
}

func (l *memLocker) Lock(ctx context.Context, key string) (func(), error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] {
		return nil, fmt.Errorf("lock %s is held", key)
	}
	l.held[key] = true
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.held, key)
	}, nil
}

// memSeq 内存发票号序列
type memSeq struct {
	mu sync.Mutex
	n  int64
}

func (s *memSeq) Next(ctx context.Context) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.n++
	return s.n, nil
}

// fakePassport 固定返回同一份用户资料
type fakePassport struct {
	profile *biz.UserProfile
	err     error
}

func (p *fakePassport) GetUserProfile(ctx context.Context, userID uint64) (*biz.UserProfile, error) {
	if p.err != nil {
		return nil, p.err
	}
	return p.profile, nil
}

// fakeEmail 记录发送的邮件
type fakeEmail struct {
	mu   sync.Mutex
	sent []string
	err  error
}

func (e *fakeEmail) SendInvoice(ctx context.Context, to, subject, body string) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return e.err
	}
	e.sent = append(e.sent, to)
	return nil
}

// memTx 直通事务
type memTx struct{}

func (memTx) Exec(ctx context.Context, fn func(ctx context.Context) error) error {
	return fn(ctx)
}

// testEnv 一套完整的用例依赖
type testEnv struct {
	store    *memStore
	gateway  *fakeGateway
	locker   *memLocker
	seq      *memSeq
	passport *fakePassport
	email    *fakeEmail

	subUc     *biz.SubscriptionUsecase
	invoiceUc *biz.InvoiceUsecase
	valUc     *biz.ValidationUsecase
}

func newTestEnv() *testEnv {
	store := newMemStore()
	gateway := newFakeGateway()
	locker := newMemLocker()
	seq := &memSeq{}
	passport := &fakePassport{profile: &biz.UserProfile{Name: "Asha Verma", Email: "asha@example.com"}}
	email := &fakeEmail{}

	cfg := &conf.Bootstrap{
		Subscription: &conf.Subscription{
			RenewalReminderDays: 7,
			MaxDemoQuestions:    10,
			ExpiryCheckDays:     15,
			AutoRenewDaysBefore: 5,
		},
	}
	logger := log.NewStdLogger(io.Discard)

	invoiceUc := biz.NewInvoiceUsecase(store, seq, store, store, passport, email, locker, logger)
	subUc := biz.NewSubscriptionUsecase(store, store, store, store, gateway, invoiceUc, locker, memTx{}, cfg, logger)
	valUc := biz.NewValidationUsecase(store, store, store, cfg, logger)

	return &testEnv{
		store:    store,
		gateway:  gateway,
		locker:   locker,
		seq:      seq,
		passport: passport,
		email:    email,

		subUc:     subUc,
		invoiceUc: invoiceUc,
		valUc:     valUc,
	}
}

// seedPlan 预置一个上架套餐
func (e *testEnv) seedPlan(planID string, price float64, durationDays int, features ...string) *biz.Plan {
	plan := &biz.Plan{
		PlanID:       planID,
		Name:         "Plan " + planID,
		Price:        price,
		Currency:     "INR",
		DurationDays: durationDays,
		Features:     features,
		IsActive:     true,
	}
	_ = e.store.CreatePlan(context.Background(), plan)
	return plan
}
