package errors

import (
	pkgErrors "github.com/gaoyong06/go-pkg/errors"
	i18nPkg "github.com/gaoyong06/go-pkg/middleware/i18n"
)

func init() {
	// 初始化全局错误管理器（使用项目特定的配置）
	pkgErrors.InitGlobalErrorManager("i18n", i18nPkg.Language)
}

// 订阅服务错误码定义
// 错误码格式：SSMMEE (6位数字)，其中 SS=14 表示 subscription-service
// 模块划分：
//   00: 通用
//   01: 套餐模块
//   02: 订阅生命周期
//   03: 订单/流水模块
//   04: 支付网关
//   05: 发票模块

// 通用 (140000-140099)
const (
	// ErrCodeInvariantViolation 不变量被破坏(正常流程不可达, 出现即为 bug)
	ErrCodeInvariantViolation = 140001
)

// 套餐模块 (140100-140199)
const (
	// ErrCodePlanNotFound 套餐不存在或已下架错误
	ErrCodePlanNotFound = 140101
)

// 订阅生命周期模块 (140200-140299)
const (
	// ErrCodeSubscriptionNotFound 订阅不存在错误
	ErrCodeSubscriptionNotFound = 140201
	// ErrCodeInvalidStatus 无效的订阅状态迁移错误
	ErrCodeInvalidStatus = 140202
	// ErrCodeOperationInProgress 同一订阅的并发操作正在处理中
	ErrCodeOperationInProgress = 140203
)

// 订单/流水模块 (140300-140399)
const (
	// ErrCodeOrderCreateFailed 订单创建失败错误
	ErrCodeOrderCreateFailed = 140301
	// ErrCodeTransactionNotFound 支付流水不存在错误
	ErrCodeTransactionNotFound = 140302
)

// 支付网关模块 (140400-140499)
const (
	// ErrCodeVerificationFailed 支付签名验证失败(确定性拒绝, 不可重试)
	ErrCodeVerificationFailed = 140401
	// ErrCodeGatewayUnavailable 支付网关不可用(瞬时错误, 调用方可退避重试)
	ErrCodeGatewayUnavailable = 140402
)

// 发票模块 (140500-140599)
const (
	// ErrCodeInvoiceNotFound 发票不存在错误
	ErrCodeInvoiceNotFound = 140501
	// ErrCodeAccessDenied 越权访问他人发票错误
	ErrCodeAccessDenied = 140502
	// ErrCodeInvoiceEmailFailed 发票邮件发送失败错误
	ErrCodeInvoiceEmailFailed = 140503
)
