package data

import (
	"context"
	"fmt"
	"time"

	"github.com/go-kratos/kratos/v2/log"
	khttp "github.com/go-kratos/kratos/v2/transport/http"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/conf"
)

type passportServiceClient struct {
	client *khttp.Client
	log    *log.Helper
}

// passportUserReply 用户服务返回体
type passportUserReply struct {
	UserID uint64 `json:"user_id"`
	Name   string `json:"name"`
	Email  string `json:"email"`
}

// NewPassportClient 创建用户服务客户端
// 未配置或连接失败时返回空实现(优雅降级), 发票抬头留空不阻断主流程
func NewPassportClient(c *conf.Bootstrap, logger log.Logger) (biz.PassportClient, error) {
	helper := log.NewHelper(logger)

	addr := ""
	timeout := 3 * time.Second
	if c != nil && c.Client != nil && c.Client.PassportService != nil {
		addr = c.Client.PassportService.Addr
		if d, err := time.ParseDuration(c.Client.PassportService.Timeout); err == nil && d > 0 {
			timeout = d
		}
	}
	if addr == "" {
		helper.Warn("passport service addr not configured, invoices will be issued without customer snapshot")
		return &emptyPassportClient{}, nil
	}

	client, err := khttp.NewClient(context.Background(),
		khttp.WithEndpoint(addr),
		khttp.WithTimeout(timeout),
	)
	if err != nil {
		helper.Warnf("failed to connect passport service %s, falling back to empty client: %v", addr, err)
		return &emptyPassportClient{}, nil
	}
	return &passportServiceClient{
		client: client,
		log:    helper,
	}, nil
}

// GetUserProfile 获取用户资料(发票抬头快照)
func (c *passportServiceClient) GetUserProfile(ctx context.Context, userID uint64) (*biz.UserProfile, error) {
	var reply passportUserReply
	path := fmt.Sprintf("/v1/users/%d", userID)
	if err := c.client.Invoke(ctx, "GET", path, nil, &reply); err != nil {
		return nil, fmt.Errorf("failed to get user %d from passport service: %w", userID, err)
	}
	return &biz.UserProfile{
		Name:  reply.Name,
		Email: reply.Email,
	}, nil
}

// emptyPassportClient 空的用户服务客户端实现(优雅降级)
type emptyPassportClient struct{}

func (e *emptyPassportClient) GetUserProfile(ctx context.Context, userID uint64) (*biz.UserProfile, error) {
	return &biz.UserProfile{}, nil
}
