package conf

import (
	"fmt"
	"time"
)

type Bootstrap struct {
	Server       *Server       `yaml:"server" json:"server"`
	Data         *Data         `yaml:"data" json:"data"`
	Gateway      *Gateway      `yaml:"gateway" json:"gateway"`
	Client       *Client       `yaml:"client" json:"client"`
	Subscription *Subscription `yaml:"subscription" json:"subscription"`
	Email        *Email        `yaml:"email" json:"email"`
	Log          *Log          `yaml:"log" json:"log"`
}

type Server struct {
	Http struct {
		Addr    string `yaml:"addr" json:"addr"`
		Timeout string `yaml:"timeout" json:"timeout"`
	} `yaml:"http" json:"http"`
}

type Data struct {
	Database struct {
		Driver          string `yaml:"driver" json:"driver"`
		Source          string `yaml:"source" json:"source"`
		MaxIdleConns    int    `yaml:"max_idle_conns" json:"max_idle_conns"`
		MaxOpenConns    int    `yaml:"max_open_conns" json:"max_open_conns"`
		ConnMaxLifetime string `yaml:"conn_max_lifetime" json:"conn_max_lifetime"`
	} `yaml:"database" json:"database"`
	Redis struct {
		Addr         string `yaml:"addr" json:"addr"`
		Password     string `yaml:"password" json:"password"`
		Db           int32  `yaml:"db" json:"db"`
		ReadTimeout  string `yaml:"read_timeout" json:"read_timeout"`
		WriteTimeout string `yaml:"write_timeout" json:"write_timeout"`
		DialTimeout  string `yaml:"dial_timeout" json:"dial_timeout"`
		PoolSize     int32  `yaml:"pool_size" json:"pool_size"`
		MinIdleConns int32  `yaml:"min_idle_conns" json:"min_idle_conns"`
	} `yaml:"redis" json:"redis"`
}

// Gateway 支付网关(Razorpay)配置
type Gateway struct {
	KeyID     string `yaml:"key_id" json:"key_id"`
	KeySecret string `yaml:"key_secret" json:"key_secret"`
	// Timeout 网关调用超时, 如 "10s"
	Timeout string `yaml:"timeout" json:"timeout"`
}

type Client struct {
	PassportService *PassportService `yaml:"passport_service" json:"passport_service"`
}

// PassportService 用户服务地址(发票抬头快照来源)
type PassportService struct {
	Addr    string `yaml:"addr" json:"addr"`
	Timeout string `yaml:"timeout" json:"timeout"`
}

// Subscription 订阅业务配置
type Subscription struct {
	// RenewalReminderDays 剩余天数小于等于该值时 requires_renewal=true
	RenewalReminderDays int `yaml:"renewal_reminder_days" json:"renewal_reminder_days"`
	// MaxDemoQuestions 免费试用题目配额
	MaxDemoQuestions int `yaml:"max_demo_questions" json:"max_demo_questions"`
	// AutoRenewDaysBefore 自动续费提前天数(cron)
	AutoRenewDaysBefore int `yaml:"auto_renew_days_before" json:"auto_renew_days_before"`
	// ExpiryCheckDays 续费提醒检查天数(cron)
	ExpiryCheckDays int `yaml:"expiry_check_days" json:"expiry_check_days"`
}

// Email 发票邮件 SMTP 配置
type Email struct {
	Host     string `yaml:"host" json:"host"`
	Port     string `yaml:"port" json:"port"`
	Username string `yaml:"username" json:"username"`
	Password string `yaml:"password" json:"password"`
	From     string `yaml:"from" json:"from"`
}

type Log struct {
	Level      string `yaml:"level" json:"level"`
	Format     string `yaml:"format" json:"format"`
	Output     string `yaml:"output" json:"output"`
	FilePath   string `yaml:"file_path" json:"file_path"`
	MaxSize    int    `yaml:"max_size" json:"max_size"`
	MaxAge     int    `yaml:"max_age" json:"max_age"`
	MaxBackups int    `yaml:"max_backups" json:"max_backups"`
	Compress   bool   `yaml:"compress" json:"compress"`
}

// Validate validates the configuration
func (b *Bootstrap) Validate() error {
	if b.Server == nil {
		return fmt.Errorf("server configuration is required")
	}
	if b.Server.Http.Addr == "" {
		return fmt.Errorf("server.http.addr is required")
	}
	if b.Data == nil {
		return fmt.Errorf("data configuration is required")
	}
	if b.Data.Database.Source == "" {
		return fmt.Errorf("data.database.source is required")
	}
	if b.Gateway == nil || b.Gateway.KeyID == "" || b.Gateway.KeySecret == "" {
		return fmt.Errorf("gateway.key_id and gateway.key_secret are required")
	}
	if b.Log == nil {
		return fmt.Errorf("log configuration is required")
	}
	return nil
}

// RenewalReminderDays 获取续费提醒阈值, 未配置时返回 0 由调用方兜底
func (b *Bootstrap) RenewalReminderDays() int {
	if b == nil || b.Subscription == nil {
		return 0
	}
	return b.Subscription.RenewalReminderDays
}

// MaxDemoQuestions 获取试用配额, 未配置时返回 0 由调用方兜底
func (b *Bootstrap) MaxDemoQuestions() int {
	if b == nil || b.Subscription == nil {
		return 0
	}
	return b.Subscription.MaxDemoQuestions
}

// ExpiryCheckDays 获取续费提醒检查窗口, 未配置时返回 0 由调用方兜底
func (b *Bootstrap) ExpiryCheckDays() int {
	if b == nil || b.Subscription == nil {
		return 0
	}
	return b.Subscription.ExpiryCheckDays
}

// AutoRenewDaysBefore 获取自动续费提前天数, 未配置时返回 0 由调用方兜底
func (b *Bootstrap) AutoRenewDaysBefore() int {
	if b == nil || b.Subscription == nil {
		return 0
	}
	return b.Subscription.AutoRenewDaysBefore
}

// GatewayTimeout 获取网关调用超时, 未配置或无法解析时返回 0 由调用方兜底
func (b *Bootstrap) GatewayTimeout() time.Duration {
	if b == nil || b.Gateway == nil || b.Gateway.Timeout == "" {
		return 0
	}
	d, err := time.ParseDuration(b.Gateway.Timeout)
	if err != nil {
		return 0
	}
	return d
}
