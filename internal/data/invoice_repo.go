package data

import (
	"context"
	"errors"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	"gorm.io/gorm"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/data/model"
)

type invoiceRepo struct {
	data *Data
	log  *log.Helper
}

// NewInvoiceRepo 创建发票仓库
func NewInvoiceRepo(data *Data, logger log.Logger) biz.InvoiceRepo {
	return &invoiceRepo{
		data: data,
		log:  log.NewHelper(logger),
	}
}

// GetInvoiceBySubscription 按订阅号获取发票, 不存在时返回 (nil, nil)
func (r *invoiceRepo) GetInvoiceBySubscription(ctx context.Context, subscriptionID uint64) (*biz.Invoice, error) {
	var invoice model.Invoice
	err := r.data.DB(ctx).Where("user_subscription_id = ?", subscriptionID).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("Failed to get invoice for subscription %d: %v", subscriptionID, err)
		return nil, err
	}
	return toBizInvoice(&invoice), nil
}

// GetInvoice 按主键获取发票, 不存在时返回 (nil, nil)
func (r *invoiceRepo) GetInvoice(ctx context.Context, id uint64) (*biz.Invoice, error) {
	var invoice model.Invoice
	err := r.data.DB(ctx).Where("invoice_id = ?", id).First(&invoice).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		r.log.WithContext(ctx).Errorf("Failed to get invoice %d: %v", id, err)
		return nil, err
	}
	return toBizInvoice(&invoice), nil
}

// CreateInvoice 创建发票, user_subscription_id 唯一索引兜底并发重复生成
func (r *invoiceRepo) CreateInvoice(ctx context.Context, invoice *biz.Invoice) error {
	m := toModelInvoice(invoice)
	if m.CreatedAt.IsZero() {
		now := time.Now().UTC()
		m.CreatedAt = now
		m.UpdatedAt = now
	}
	if err := r.data.DB(ctx).Create(m).Error; err != nil {
		return err
	}
	invoice.ID = m.ID
	return nil
}

// UpdateInvoiceStatus 更新发票状态
func (r *invoiceRepo) UpdateInvoiceStatus(ctx context.Context, id uint64, status string) error {
	if err := r.data.DB(ctx).Model(&model.Invoice{}).
		Where("invoice_id = ?", id).
		Updates(map[string]interface{}{
			"status":     status,
			"updated_at": time.Now().UTC(),
		}).Error; err != nil {
		r.log.WithContext(ctx).Errorf("Failed to update invoice %d status to %s: %v", id, status, err)
		return err
	}
	return nil
}

// toBizInvoice 模型转换
func toBizInvoice(m *model.Invoice) *biz.Invoice {
	return &biz.Invoice{
		ID:                 m.ID,
		UserSubscriptionID: m.UserSubscriptionID,
		InvoiceNumber:      m.InvoiceNumber,
		Subtotal:           m.Subtotal,
		Tax:                m.Tax,
		Total:              m.Total,
		Currency:           m.Currency,
		Status:             m.Status,
		CustomerName:       m.CustomerName,
		CustomerEmail:      m.CustomerEmail,
		CreatedAt:          m.CreatedAt,
		UpdatedAt:          m.UpdatedAt,
	}
}

func toModelInvoice(b *biz.Invoice) *model.Invoice {
	return &model.Invoice{
		ID:                 b.ID,
		UserSubscriptionID: b.UserSubscriptionID,
		InvoiceNumber:      b.InvoiceNumber,
		Subtotal:           b.Subtotal,
		Tax:                b.Tax,
		Total:              b.Total,
		Currency:           b.Currency,
		Status:             b.Status,
		CustomerName:       b.CustomerName,
		CustomerEmail:      b.CustomerEmail,
		CreatedAt:          b.CreatedAt,
		UpdatedAt:          b.UpdatedAt,
	}
}
