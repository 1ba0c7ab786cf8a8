package service

import (
	"context"

	kerrors "github.com/go-kratos/kratos/v2/errors"

	"rankup_tech/subscription-service/internal/auth"
	"rankup_tech/subscription-service/internal/biz"
)

// InvoiceService 发票对外服务
type InvoiceService struct {
	uc *biz.InvoiceUsecase
}

func NewInvoiceService(uc *biz.InvoiceUsecase) *InvoiceService {
	return &InvoiceService{uc: uc}
}

type GenerateInvoiceRequest struct {
	SubscriptionID uint64 `json:"subscription_id"`
}

type InvoiceReply struct {
	InvoiceID      uint64  `json:"invoice_id"`
	SubscriptionID uint64  `json:"subscription_id"`
	InvoiceNumber  string  `json:"invoice_number"`
	Subtotal       float64 `json:"subtotal"`
	Tax            float64 `json:"tax"`
	Total          float64 `json:"total"`
	Currency       string  `json:"currency"`
	Status         string  `json:"status"`
	CustomerName   string  `json:"customer_name"`
	CustomerEmail  string  `json:"customer_email"`
	CreatedAt      int64   `json:"created_at"`
}

type SendInvoiceRequest struct {
	InvoiceID uint64 `json:"invoice_id"`
}

type SendInvoiceReply struct {
	Success bool `json:"success"`
}

// Generate 生成发票 (幂等)
func (s *InvoiceService) Generate(ctx context.Context, req *GenerateInvoiceRequest) (*InvoiceReply, error) {
	invoice, err := s.uc.GenerateInvoice(ctx, req.SubscriptionID)
	if err != nil {
		return nil, err
	}
	return toInvoiceReply(invoice), nil
}

// Download 下载发票单据, 请求者身份取自鉴权上下文, 必须是订阅属主
func (s *InvoiceService) Download(ctx context.Context, subscriptionID uint64) (*biz.InvoiceDocument, error) {
	userID, ok := auth.GetUserIDFromContext(ctx)
	if !ok {
		return nil, kerrors.Unauthorized("UNAUTHORIZED", "authentication required")
	}
	return s.uc.DownloadInvoice(ctx, subscriptionID, userID)
}

// Send 发送发票邮件
func (s *InvoiceService) Send(ctx context.Context, req *SendInvoiceRequest) (*SendInvoiceReply, error) {
	if err := s.uc.SendInvoiceEmail(ctx, req.InvoiceID); err != nil {
		return nil, err
	}
	return &SendInvoiceReply{Success: true}, nil
}

func toInvoiceReply(inv *biz.Invoice) *InvoiceReply {
	return &InvoiceReply{
		InvoiceID:      inv.ID,
		SubscriptionID: inv.UserSubscriptionID,
		InvoiceNumber:  inv.InvoiceNumber,
		Subtotal:       inv.Subtotal,
		Tax:            inv.Tax,
		Total:          inv.Total,
		Currency:       inv.Currency,
		Status:         inv.Status,
		CustomerName:   inv.CustomerName,
		CustomerEmail:  inv.CustomerEmail,
		CreatedAt:      inv.CreatedAt.Unix(),
	}
}
