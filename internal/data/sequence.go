package data

import (
	"context"

	"github.com/redis/go-redis/v9"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/constants"
)

type redisInvoiceNumberSeq struct {
	rdb *redis.Client
}

// NewInvoiceNumberSeq 创建发票号序列, 基于 Redis INCR 保证单调递增
func NewInvoiceNumberSeq(rdb *redis.Client) biz.InvoiceNumberSeq {
	return &redisInvoiceNumberSeq{rdb: rdb}
}

func (s *redisInvoiceNumberSeq) Next(ctx context.Context) (int64, error) {
	return s.rdb.Incr(ctx, constants.InvoiceSeqKey).Result()
}
