package data

import (
	"context"
	"crypto/hmac"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"math"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	razorpay "github.com/razorpay/razorpay-go"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/conf"
	"rankup_tech/subscription-service/internal/constants"
)

type razorpayClient struct {
	client    *razorpay.Client
	keySecret string
	log       *log.Helper
}

// NewPaymentGatewayClient 创建 Razorpay 支付网关客户端
// 网关调用必须有界, 超时后由调用方按 GatewayUnavailable 处理
func NewPaymentGatewayClient(c *conf.Bootstrap, logger log.Logger) biz.PaymentGatewayClient {
	client := razorpay.NewClient(c.Gateway.KeyID, c.Gateway.KeySecret)
	timeout := c.GatewayTimeout()
	if timeout <= 0 {
		timeout = constants.DefaultGatewayTimeout
	}
	client.SetTimeout(int16(timeout / time.Second))
	return &razorpayClient{
		client:    client,
		keySecret: c.Gateway.KeySecret,
		log:       log.NewHelper(logger),
	}
}

// CreateOrder 在网关侧创建订单
// Razorpay 金额单位是 paise, 上送前 x100 取整
func (c *razorpayClient) CreateOrder(ctx context.Context, amount float64, currency, receipt string) (*biz.GatewayOrder, error) {
	data := map[string]interface{}{
		"amount":   int64(math.Round(amount * 100)),
		"currency": currency,
		"receipt":  receipt,
	}
	body, err := c.client.Order.Create(data, nil)
	if err != nil {
		c.log.WithContext(ctx).Errorf("Gateway order create failed: receipt=%s, err=%v", receipt, err)
		return nil, err
	}

	orderID, _ := body["id"].(string)
	status, _ := body["status"].(string)
	if orderID == "" {
		return nil, fmt.Errorf("gateway order response missing id: %v", body)
	}
	c.log.WithContext(ctx).Infof("Gateway order created: orderID=%s, amount=%.2f %s", orderID, amount, currency)
	return &biz.GatewayOrder{
		OrderID:   orderID,
		Amount:    amount,
		Currency:  currency,
		Receipt:   receipt,
		Status:    status,
		CreatedAt: time.Now().UTC(),
	}, nil
}

// VerifyPayment 验证支付签名
// 签名是 key_secret 对 "orderID|paymentID" 的 HMAC-SHA256 十六进制摘要
// 不匹配返回 (false, nil), 不是错误
func (c *razorpayClient) VerifyPayment(ctx context.Context, orderID, paymentID, signature string) (bool, error) {
	mac := hmac.New(sha256.New, []byte(c.keySecret))
	mac.Write([]byte(orderID + "|" + paymentID))
	expected := hex.EncodeToString(mac.Sum(nil))
	ok := subtle.ConstantTimeCompare([]byte(expected), []byte(signature)) == 1
	if !ok {
		c.log.WithContext(ctx).Warnf("Payment signature mismatch: orderID=%s, paymentID=%s", orderID, paymentID)
	}
	return ok, nil
}

// GetPaymentDetail 获取网关侧支付详情, 原始响应仅存档不解析
func (c *razorpayClient) GetPaymentDetail(ctx context.Context, paymentID string) (*biz.GatewayPayment, error) {
	body, err := c.client.Payment.Fetch(paymentID, nil, nil)
	if err != nil {
		c.log.WithContext(ctx).Errorf("Gateway payment fetch failed: paymentID=%s, err=%v", paymentID, err)
		return nil, err
	}
	method, _ := body["method"].(string)
	raw, _ := json.Marshal(body)
	return &biz.GatewayPayment{
		PaymentID: paymentID,
		Method:    method,
		Raw:       string(raw),
	}, nil
}

// ProcessRefund 发起网关退款
func (c *razorpayClient) ProcessRefund(ctx context.Context, paymentID string, amount float64) (*biz.GatewayRefund, error) {
	data := map[string]interface{}{}
	body, err := c.client.Payment.Refund(paymentID, int(math.Round(amount*100)), data, nil)
	if err != nil {
		c.log.WithContext(ctx).Errorf("Gateway refund failed: paymentID=%s, amount=%.2f, err=%v", paymentID, amount, err)
		return nil, err
	}
	refundID, _ := body["id"].(string)
	status, _ := body["status"].(string)
	raw, _ := json.Marshal(body)
	c.log.WithContext(ctx).Infof("Gateway refund created: paymentID=%s, refundID=%s, status=%s", paymentID, refundID, status)
	return &biz.GatewayRefund{
		RefundID: refundID,
		Status:   status,
		Raw:      string(raw),
	}, nil
}
