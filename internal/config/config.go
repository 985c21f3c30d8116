package config

import (
	"fmt"
	"strings"

	"github.com/cubaneorg/cubane-sub000/internal/logger"

	"github.com/spf13/viper"
)

// Config is the application configuration tree.
type Config struct {
	Server   ServerConfig   `mapstructure:"server"`
	Log      LogConfig      `mapstructure:"log"`
	Database DatabaseConfig `mapstructure:"database"`
	Redis    RedisConfig    `mapstructure:"redis"`
	Queue    QueueConfig    `mapstructure:"queue"`
	JWT      JWTConfig      `mapstructure:"jwt"`
	Email    EmailConfig    `mapstructure:"email"`
	Security SecurityConfig `mapstructure:"security"`
	Gateway  GatewayConfig  `mapstructure:"gateway"`
	Shop     ShopConfig     `mapstructure:"shop"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host string `mapstructure:"host"`
	Port string `mapstructure:"port"`
	Mode string `mapstructure:"mode"` // debug / release
}

// LogConfig holds log output settings.
type LogConfig struct {
	Dir        string `mapstructure:"dir"`
	Filename   string `mapstructure:"filename"`
	MaxSizeMB  int    `mapstructure:"max_size_mb"`
	MaxBackups int    `mapstructure:"max_backups"`
	MaxAgeDays int    `mapstructure:"max_age_days"`
	Compress   bool   `mapstructure:"compress"`
}

// ToLoggerOptions converts to logger options.
func (c LogConfig) ToLoggerOptions() logger.Options {
	return logger.Options{
		Dir:        c.Dir,
		Filename:   c.Filename,
		MaxSizeMB:  c.MaxSizeMB,
		MaxBackups: c.MaxBackups,
		MaxAgeDays: c.MaxAgeDays,
		Compress:   c.Compress,
	}
}

// DatabasePoolConfig holds connection pool settings.
type DatabasePoolConfig struct {
	MaxOpenConns           int `mapstructure:"max_open_conns"`
	MaxIdleConns           int `mapstructure:"max_idle_conns"`
	ConnMaxLifetimeSeconds int `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTimeSeconds int `mapstructure:"conn_max_idle_time_seconds"`
}

// DatabaseConfig holds database settings.
type DatabaseConfig struct {
	Driver string             `mapstructure:"driver"` // sqlite / postgres
	DSN    string             `mapstructure:"dsn"`
	Pool   DatabasePoolConfig `mapstructure:"pool"`
}

// RedisConfig holds redis settings for cache and basket sessions.
type RedisConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
	Prefix   string `mapstructure:"prefix"`
}

// QueueConfig holds asynq settings.
type QueueConfig struct {
	Enabled     bool           `mapstructure:"enabled"`
	Host        string         `mapstructure:"host"`
	Port        int            `mapstructure:"port"`
	Password    string         `mapstructure:"password"`
	DB          int            `mapstructure:"db"`
	Concurrency int            `mapstructure:"concurrency"`
	Queues      map[string]int `mapstructure:"queues"`
}

// JWTConfig holds customer token settings.
type JWTConfig struct {
	SecretKey   string `mapstructure:"secret"`
	ExpireHours int    `mapstructure:"expire_hours"`
}

// EmailConfig holds order notification mail settings.
type EmailConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
	From     string `mapstructure:"from"`
	FromName string `mapstructure:"from_name"`
	UseSSL   bool   `mapstructure:"use_ssl"`
	UseTLS   bool   `mapstructure:"use_tls"`
}

// RateLimitConfig is a fixed-window rate limit rule.
type RateLimitConfig struct {
	WindowSeconds int `mapstructure:"window_seconds"`
	MaxRequests   int `mapstructure:"max_requests"`
}

// SecurityConfig groups abuse protection settings.
type SecurityConfig struct {
	CheckoutRateLimit RateLimitConfig `mapstructure:"checkout_rate_limit"`
	LoginRateLimit    RateLimitConfig `mapstructure:"login_rate_limit"`
}

// GatewayConfig holds hosted payment form credentials.
type GatewayConfig struct {
	Enabled     bool   `mapstructure:"enabled"`
	GatewayURL  string `mapstructure:"gateway_url"`
	MerchantID  string `mapstructure:"merchant_id"`
	MerchantKey string `mapstructure:"merchant_key"`
	APIPath     string `mapstructure:"api_path"`
	NotifyURL   string `mapstructure:"notify_url"`
	ReturnURL   string `mapstructure:"return_url"`
	Preauth     bool   `mapstructure:"preauth"`
	Moto        bool   `mapstructure:"moto"`
}

// TrackingProvider is a named shipment tracking provider with a URL
// template (the tracking code is appended).
type TrackingProvider struct {
	Name string `mapstructure:"name"`
	URL  string `mapstructure:"url"`
}

// OrderIDConfig controls public order reference generation.
type OrderIDConfig struct {
	Format string `mapstructure:"format"` // numeric / seq / alpha
	Prefix string `mapstructure:"prefix"`
	Suffix string `mapstructure:"suffix"`
}

// ShopConfig holds the checkout core settings.
type ShopConfig struct {
	MaxQuantity      int                `mapstructure:"max_quantity"`
	Preauth          bool               `mapstructure:"preauth"`
	LoanEnabled      bool               `mapstructure:"loan_enabled"`
	TestMode         bool               `mapstructure:"test_mode"`
	Currency         string             `mapstructure:"currency"`
	BarcodeSystem    string             `mapstructure:"barcode_system"`
	DefaultCountry   string             `mapstructure:"default_country"`
	DefaultOrdering  string             `mapstructure:"default_ordering"`
	NotifyEmail      string             `mapstructure:"notify_email"`
	ApprovalTTLHours int                `mapstructure:"approval_ttl_hours"`
	TaxPercent       float64            `mapstructure:"tax_percent"`
	OrderID          OrderIDConfig      `mapstructure:"order_id"`
	Tracking         []TrackingProvider `mapstructure:"tracking_providers"`
}

// Load reads config.yml plus CUBANE_-prefixed environment overrides.
func Load() *Config {
	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	viper.AddConfigPath("../")
	viper.AddConfigPath("./etc")

	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.port", "8080")
	viper.SetDefault("server.mode", "debug")
	viper.SetDefault("log.dir", "")
	viper.SetDefault("log.filename", "shop.log")
	viper.SetDefault("log.max_size_mb", 100)
	viper.SetDefault("log.max_backups", 7)
	viper.SetDefault("log.max_age_days", 30)
	viper.SetDefault("log.compress", true)
	viper.SetDefault("database.driver", "sqlite")
	viper.SetDefault("database.dsn", "./db/shop.db")
	viper.SetDefault("database.pool.max_open_conns", 1)
	viper.SetDefault("database.pool.max_idle_conns", 1)
	viper.SetDefault("database.pool.conn_max_lifetime_seconds", 0)
	viper.SetDefault("database.pool.conn_max_idle_time_seconds", 0)
	viper.SetDefault("redis.enabled", true)
	viper.SetDefault("redis.host", "127.0.0.1")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)
	viper.SetDefault("redis.prefix", "shop")
	viper.SetDefault("queue.enabled", true)
	viper.SetDefault("queue.host", "127.0.0.1")
	viper.SetDefault("queue.port", 6379)
	viper.SetDefault("queue.password", "")
	viper.SetDefault("queue.db", 1)
	viper.SetDefault("queue.concurrency", 10)
	viper.SetDefault("queue.queues", map[string]int{
		"default":  10,
		"critical": 5,
	})
	viper.SetDefault("jwt.secret", "change-me-in-production")
	viper.SetDefault("jwt.expire_hours", 24)
	viper.SetDefault("email.enabled", false)
	viper.SetDefault("email.port", 587)
	viper.SetDefault("email.use_ssl", false)
	viper.SetDefault("email.use_tls", true)
	viper.SetDefault("security.checkout_rate_limit.window_seconds", 60)
	viper.SetDefault("security.checkout_rate_limit.max_requests", 30)
	viper.SetDefault("security.login_rate_limit.window_seconds", 300)
	viper.SetDefault("security.login_rate_limit.max_requests", 10)
	viper.SetDefault("gateway.enabled", false)
	viper.SetDefault("gateway.api_path", "/api/v1/payment")
	viper.SetDefault("shop.max_quantity", 9999)
	viper.SetDefault("shop.preauth", false)
	viper.SetDefault("shop.loan_enabled", false)
	viper.SetDefault("shop.test_mode", false)
	viper.SetDefault("shop.currency", "GBP")
	viper.SetDefault("shop.barcode_system", "ean13")
	viper.SetDefault("shop.default_country", "GB")
	viper.SetDefault("shop.default_ordering", "relevance")
	viper.SetDefault("shop.notify_email", "")
	viper.SetDefault("shop.approval_ttl_hours", 120)
	viper.SetDefault("shop.tax_percent", 20.0)
	viper.SetDefault("shop.order_id.format", "numeric")
	viper.SetDefault("shop.order_id.prefix", "")
	viper.SetDefault("shop.order_id.suffix", "")

	viper.SetEnvPrefix("CUBANE")
	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		logger.Warnw("config_file_read_failed",
			"error", err,
			"fallback", "env_or_defaults",
		)
	} else {
		logger.Infow("config_file_loaded", "file", viper.ConfigFileUsed())
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		logger.Errorw("config_unmarshal_failed", "error", err)
		panic(fmt.Errorf("config parse failed: %w", err))
	}

	cfg.Shop = normalizeShop(cfg.Shop)
	return &cfg
}

func normalizeShop(shop ShopConfig) ShopConfig {
	if shop.MaxQuantity <= 0 || shop.MaxQuantity > 9999 {
		shop.MaxQuantity = 9999
	}
	if strings.TrimSpace(shop.Currency) == "" {
		shop.Currency = "GBP"
	}
	if strings.TrimSpace(shop.DefaultCountry) == "" {
		shop.DefaultCountry = "GB"
	}
	if strings.TrimSpace(shop.DefaultOrdering) == "" {
		shop.DefaultOrdering = "relevance"
	}
	switch strings.ToLower(strings.TrimSpace(shop.OrderID.Format)) {
	case "numeric", "seq", "alpha":
		shop.OrderID.Format = strings.ToLower(strings.TrimSpace(shop.OrderID.Format))
	default:
		shop.OrderID.Format = "numeric"
	}
	if shop.ApprovalTTLHours <= 0 {
		shop.ApprovalTTLHours = 120
	}
	return shop
}
