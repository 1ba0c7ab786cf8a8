package auth

import (
	"context"
	"net/http"
	"strconv"

	"github.com/go-kratos/kratos/v2/errors"
)

// 定义 context key
type contextKey string

const (
	// UserIDKey 用户ID的context key
	UserIDKey contextKey = "user_id"
	// UserRoleKey 用户角色的context key
	UserRoleKey contextKey = "user_role"
)

const (
	// UserIDHeader 入口网关鉴权后注入的用户ID请求头
	UserIDHeader = "X-User-Id"
	// UserRoleHeader 入口网关鉴权后注入的角色请求头
	UserRoleHeader = "X-User-Role"
)

// ContextFilter 从网关注入的请求头恢复调用方身份, 写入请求上下文
// 服务部署在内网, 请求头由入口网关鉴权后写入, 服务内部直接信任
func ContextFilter(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()
		if v := r.Header.Get(UserIDHeader); v != "" {
			if uid, err := strconv.ParseUint(v, 10, 64); err == nil {
				ctx = context.WithValue(ctx, UserIDKey, uid)
			}
		}
		if v := r.Header.Get(UserRoleHeader); v != "" {
			ctx = context.WithValue(ctx, UserRoleKey, Role(v))
		}
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Role 用户角色
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

// GetUserIDFromContext 从context中获取用户ID
func GetUserIDFromContext(ctx context.Context) (uint64, bool) {
	userID, ok := ctx.Value(UserIDKey).(uint64)
	return userID, ok
}

// GetRoleFromContext 从context中获取用户角色
func GetRoleFromContext(ctx context.Context) (Role, bool) {
	role, ok := ctx.Value(UserRoleKey).(Role)
	return role, ok
}

// IsAdmin 判断当前用户是否为管理员
func IsAdmin(ctx context.Context) bool {
	role, ok := GetRoleFromContext(ctx)
	return ok && role == RoleAdmin
}

// CheckOwnership 检查用户是否有权限访问指定资源
func CheckOwnership(ctx context.Context, resourceUserID uint64) error {
	currentUserID, ok := GetUserIDFromContext(ctx)
	if !ok {
		return errors.Unauthorized("UNAUTHORIZED", "authentication required")
	}

	// 管理员可以访问所有资源
	if IsAdmin(ctx) {
		return nil
	}

	// 普通用户只能访问自己的资源
	if currentUserID != resourceUserID {
		return errors.Forbidden("FORBIDDEN", "permission denied: you can only access your own resources")
	}

	return nil
}
