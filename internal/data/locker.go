package data

import (
	"context"

	"github.com/go-kratos/kratos/v2/log"
	"github.com/go-redsync/redsync/v4"

	"rankup_tech/subscription-service/internal/biz"
	"rankup_tech/subscription-service/internal/constants"
)

type redsyncLocker struct {
	rs  *redsync.Redsync
	log *log.Helper
}

// NewLocker 创建基于 redsync 的分布式锁
func NewLocker(rs *redsync.Redsync, logger log.Logger) biz.Locker {
	return &redsyncLocker{
		rs:  rs,
		log: log.NewHelper(logger),
	}
}

// Lock 获取分布式锁, 获取失败返回 error, 成功返回解锁函数
func (l *redsyncLocker) Lock(ctx context.Context, key string) (func(), error) {
	mutex := l.rs.NewMutex(key,
		redsync.WithExpiry(constants.LockExpiration),
		redsync.WithTries(constants.LockRetries),
	)
	if err := mutex.LockContext(ctx); err != nil {
		return nil, err
	}
	unlock := func() {
		if _, err := mutex.UnlockContext(ctx); err != nil {
			l.log.WithContext(ctx).Warnf("failed to release lock: key=%s, err=%v", key, err)
		}
	}
	return unlock, nil
}
