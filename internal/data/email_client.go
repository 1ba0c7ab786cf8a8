package data

import (
	"context"
	"fmt"
	"net/smtp"

	"github.com/go-kratos/kratos/v2/log"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/conf"
)

type smtpEmailClient struct {
	host     string
	port     string
	username string
	password string
	from     string
	log      *log.Helper
}

// NewEmailClient 创建 SMTP 邮件客户端
func NewEmailClient(c *conf.Bootstrap, logger log.Logger) biz.EmailClient {
	client := &smtpEmailClient{log: log.NewHelper(logger)}
	if c != nil && c.Email != nil {
		client.host = c.Email.Host
		client.port = c.Email.Port
		client.username = c.Email.Username
		client.password = c.Email.Password
		client.from = c.Email.From
	}
	return client
}

// SendInvoice 发送发票邮件
func (c *smtpEmailClient) SendInvoice(ctx context.Context, to, subject, body string) error {
	if c.host == "" {
		return fmt.Errorf("email is not configured")
	}

	msg := []byte("From: " + c.from + "\r\n" +
		"To: " + to + "\r\n" +
		"Subject: " + subject + "\r\n" +
		"Content-Type: text/plain; charset=utf-8\r\n" +
		"\r\n" + body)

	auth := smtp.PlainAuth("", c.username, c.password, c.host)
	addr := c.host + ":" + c.port
	if err := smtp.SendMail(addr, auth, c.from, []string{to}, msg); err != nil {
		c.log.WithContext(ctx).Errorf("Failed to send email to %s: %v", to, err)
		return err
	}
	c.log.WithContext(ctx).Infof("Email sent to %s: %s", to, subject)
	return nil
}
