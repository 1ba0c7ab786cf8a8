package biz

import (
	"context"
	"fmt"
	"time"

	"rankup_tech/subscription-service/internal/constants"
	"rankup_tech/subscription-service/internal/errors"

	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	"github.com/go-kratos/kratos/v2/log"
)

// Invoice 账单发票
// 每个订阅至多一张, 惰性生成, 生成后除状态外不可变
// 抬头字段是生成时刻的快照, 用户资料后续变更不影响历史发票
type Invoice struct {
	ID                 uint64
	UserSubscriptionID uint64
	InvoiceNumber      string // 全局唯一, 单调分配
	Subtotal           float64
	Tax                float64
	Total              float64
	Currency           string
	Status             string // generated -> sent / downloaded (均单向)
	CustomerName       string
	CustomerEmail      string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// InvoiceDocument 可传输的发票单据表示
type InvoiceDocument struct {
	InvoiceNumber string    `json:"invoice_number"`
	IssuedAt      time.Time `json:"issued_at"`
	CustomerName  string    `json:"customer_name"`
	CustomerEmail string    `json:"customer_email"`
	PlanName      string    `json:"plan_name"`
	PeriodStart   time.Time `json:"period_start"`
	PeriodEnd     time.Time `json:"period_end"`
	Subtotal      float64   `json:"subtotal"`
	Tax           float64   `json:"tax"`
	Total         float64   `json:"total"`
	Currency      string    `json:"currency"`
}

// InvoiceRepo 发票仓库接口
type InvoiceRepo interface {
	// GetInvoiceBySubscription 不存在时返回 (nil, nil)
	GetInvoiceBySubscription(ctx context.Context, subscriptionID uint64) (*Invoice, error)
	// GetInvoice 不存在时返回 (nil, nil)
	GetInvoice(ctx context.Context, id uint64) (*Invoice, error)
	// CreateInvoice user_subscription_id 唯一索引兜底 "至多一张" 不变量
	CreateInvoice(ctx context.Context, invoice *Invoice) error
	UpdateInvoiceStatus(ctx context.Context, id uint64, status string) error
}

// InvoiceNumberSeq 发票编号序列
// 必须单调且永不重复, 禁止用 max(编号)+1 的表扫描方式分配
type InvoiceNumberSeq interface {
	Next(ctx context.Context) (int64, error)
}

// PassportClient 用户服务客户端接口（防腐层）
// 发票抬头快照来源, 不可用时优雅降级为空抬头
type PassportClient interface {
	GetUserProfile(ctx context.Context, userID uint64) (*UserProfile, error)
}

// UserProfile 用户资料(发票抬头快照用)
type UserProfile struct {
	Name  string
	Email string
}

// EmailClient 邮件客户端接口 (防腐层)
type EmailClient interface {
	SendInvoice(ctx context.Context, to, subject, body string) error
}

// InvoiceUsecase 发票业务逻辑
type InvoiceUsecase struct {
	invoiceRepo InvoiceRepo
	seq         InvoiceNumberSeq
	subRepo     UserSubscriptionRepo
	planRepo    PlanRepo
	passport    PassportClient
	email       EmailClient
	locker      Locker
	log         *log.Helper
}

// NewInvoiceUsecase 创建发票业务用例
func NewInvoiceUsecase(
	invoiceRepo InvoiceRepo,
	seq InvoiceNumberSeq,
	subRepo UserSubscriptionRepo,
	planRepo PlanRepo,
	passport PassportClient,
	email EmailClient,
	locker Locker,
	logger log.Logger,
) *InvoiceUsecase {
	return &InvoiceUsecase{
		invoiceRepo: invoiceRepo,
		seq:         seq,
		subRepo:     subRepo,
		planRepo:    planRepo,
		passport:    passport,
		email:       email,
		locker:      locker,
		log:         log.NewHelper(logger),
	}
}

// GenerateInvoice 生成发票
// 幂等: 已存在时原样返回, 不生成重复发票
func (uc *InvoiceUsecase) GenerateInvoice(ctx context.Context, subscriptionID uint64) (*Invoice, error) {
	existing, err := uc.invoiceRepo.GetInvoiceBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	unlock, err := uc.locker.Lock(ctx, constants.InvoiceLockKeyPrefix+fmt.Sprintf("%d", subscriptionID))
	if err != nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeOperationInProgress)
	}
	defer unlock()

	// 锁内二次检查
	existing, err = uc.invoiceRepo.GetInvoiceBySubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return existing, nil
	}

	sub, err := uc.subRepo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}

	n, err := uc.seq.Next(ctx)
	if err != nil {
		uc.log.Errorf("Failed to allocate invoice number: %v", err)
		return nil, err
	}

	// 抬头快照, passport 不可用时降级为空抬头
	var name, email string
	if profile, err := uc.passport.GetUserProfile(ctx, sub.UserID); err != nil {
		uc.log.Warnf("Failed to fetch user profile for %d, invoice issued without customer snapshot: %v", sub.UserID, err)
	} else if profile != nil {
		name = profile.Name
		email = profile.Email
	}

	now := time.Now().UTC()
	invoice := &Invoice{
		UserSubscriptionID: subscriptionID,
		InvoiceNumber:      fmt.Sprintf(constants.InvoiceNumberFormat, n),
		Subtotal:           sub.OriginalAmount,
		Tax:                0, // 预留税费规则
		Total:              sub.FinalAmount,
		Currency:           sub.Currency,
		Status:             constants.InvoiceStatusGenerated,
		CustomerName:       name,
		CustomerEmail:      email,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	if err := uc.invoiceRepo.CreateInvoice(ctx, invoice); err != nil {
		// 唯一索引兜底: 并发竞争输了就读回赢家那张
		uc.log.Warnf("Invoice insert conflict for subscription %d: %v", subscriptionID, err)
		winner, getErr := uc.invoiceRepo.GetInvoiceBySubscription(ctx, subscriptionID)
		if getErr == nil && winner != nil {
			return winner, nil
		}
		return nil, err
	}
	uc.log.Infof("Invoice %s generated for subscription %d", invoice.InvoiceNumber, subscriptionID)
	return invoice, nil
}

// DownloadInvoice 下载发票
// 校验请求者是订阅属主, 发票不存在时惰性生成, 并把状态置为 downloaded
func (uc *InvoiceUsecase) DownloadInvoice(ctx context.Context, subscriptionID, requestingUserID uint64) (*InvoiceDocument, error) {
	sub, err := uc.subRepo.GetSubscription(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}
	if sub == nil {
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}
	if sub.UserID != requestingUserID {
		uc.log.Infof("User %d denied access to invoice of subscription %d (owner %d)", requestingUserID, subscriptionID, sub.UserID)
		return nil, pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeAccessDenied)
	}

	invoice, err := uc.GenerateInvoice(ctx, subscriptionID)
	if err != nil {
		return nil, err
	}

	doc := uc.renderDocument(ctx, invoice, sub)

	if err := uc.invoiceRepo.UpdateInvoiceStatus(ctx, invoice.ID, constants.InvoiceStatusDownloaded); err != nil {
		// 单据已渲染好, 状态更新失败不阻断下载
		uc.log.Errorf("Failed to mark invoice %d downloaded: %v", invoice.ID, err)
	}
	return doc, nil
}

// SendInvoiceEmail 发送发票邮件
// generated -> sent 与 generated -> downloaded 相互独立, 不要求先下载
func (uc *InvoiceUsecase) SendInvoiceEmail(ctx context.Context, invoiceID uint64) error {
	invoice, err := uc.invoiceRepo.GetInvoice(ctx, invoiceID)
	if err != nil {
		return err
	}
	if invoice == nil {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvoiceNotFound)
	}
	if invoice.CustomerEmail == "" {
		uc.log.Errorf("Invoice %d has no customer email snapshot", invoiceID)
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvoiceEmailFailed)
	}

	sub, err := uc.subRepo.GetSubscription(ctx, invoice.UserSubscriptionID)
	if err != nil {
		return err
	}
	if sub == nil {
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeSubscriptionNotFound)
	}

	doc := uc.renderDocument(ctx, invoice, sub)
	subject := fmt.Sprintf("Your RankUp invoice %s", invoice.InvoiceNumber)
	body := fmt.Sprintf("Invoice %s\nPlan: %s\nPeriod: %s ~ %s\nTotal: %.2f %s\n",
		doc.InvoiceNumber, doc.PlanName,
		doc.PeriodStart.Format("2006-01-02"), doc.PeriodEnd.Format("2006-01-02"),
		doc.Total, doc.Currency)
	if err := uc.email.SendInvoice(ctx, invoice.CustomerEmail, subject, body); err != nil {
		uc.log.Errorf("Failed to send invoice %s to %s: %v", invoice.InvoiceNumber, invoice.CustomerEmail, err)
		return pkgErrors.NewBizErrorWithLang(ctx, errors.ErrCodeInvoiceEmailFailed)
	}

	if err := uc.invoiceRepo.UpdateInvoiceStatus(ctx, invoice.ID, constants.InvoiceStatusSent); err != nil {
		uc.log.Errorf("Failed to mark invoice %d sent: %v", invoice.ID, err)
		return err
	}
	uc.log.Infof("Invoice %s sent to %s", invoice.InvoiceNumber, invoice.CustomerEmail)
	return nil
}

// renderDocument 渲染可传输的发票单据
func (uc *InvoiceUsecase) renderDocument(ctx context.Context, invoice *Invoice, sub *UserSubscription) *InvoiceDocument {
	planName := sub.PlanID
	if plan, err := uc.planRepo.GetPlan(ctx, sub.PlanID); err == nil && plan != nil {
		planName = plan.Name
	}
	return &InvoiceDocument{
		InvoiceNumber: invoice.InvoiceNumber,
		IssuedAt:      invoice.CreatedAt,
		CustomerName:  invoice.CustomerName,
		CustomerEmail: invoice.CustomerEmail,
		PlanName:      planName,
		PeriodStart:   sub.StartTime,
		PeriodEnd:     sub.EndTime,
		Subtotal:      invoice.Subtotal,
		Tax:           invoice.Tax,
		Total:         invoice.Total,
		Currency:      invoice.Currency,
	}
}
