// Package config 提供配置管理
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config 应用配置
type Config struct {
	App      AppConfig      `envPrefix:"APP_"`
	Database DatabaseConfig `envPrefix:"DB_"`
	Planner  PlannerConfig  `envPrefix:"PLANNER_"`
}

// AppConfig 应用基础配置
type AppConfig struct {
	Name     string `env:"NAME" envDefault:"mathildanesth"`
	Env      string `env:"ENV" envDefault:"development"`
	Port     int    `env:"PORT" envDefault:"7080"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`
	// APIKeys 非空时启用API密钥认证
	APIKeys []string `env:"API_KEYS" envSeparator:","`
}

// DatabaseConfig 数据库配置
type DatabaseConfig struct {
	Host            string        `env:"HOST" envDefault:"localhost"`
	Port            int           `env:"PORT" envDefault:"5432"`
	Name            string        `env:"NAME" envDefault:"mathildanesth"`
	User            string        `env:"USER" envDefault:"mathildanesth"`
	Password        string        `env:"PASSWORD" envDefault:"mathildanesth123"`
	SSLMode         string        `env:"SSL_MODE" envDefault:"disable"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"25"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"5m"`
}

// DSN 返回数据库连接字符串
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode,
	)
}

// PlannerConfig 排班引擎配置
type PlannerConfig struct {
	DefaultTimeout    time.Duration `env:"DEFAULT_TIMEOUT" envDefault:"60s"`
	OptimizationLevel string        `env:"OPTIMIZATION_LEVEL" envDefault:"standard"` // fast/standard/thorough
	FatigueEnabled    bool          `env:"FATIGUE_ENABLED" envDefault:"true"`
}

// Load 从环境变量加载配置
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("解析环境变量失败: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate 校验配置合法性
func (c *Config) Validate() error {
	if c.App.Port <= 0 || c.App.Port > 65535 {
		return fmt.Errorf("无效的端口号: %d", c.App.Port)
	}
	switch c.Planner.OptimizationLevel {
	case "fast", "standard", "thorough":
	default:
		return fmt.Errorf("无效的优化级别: %s", c.Planner.OptimizationLevel)
	}
	return nil
}

// IsProduction 判断是否为生产环境
func (c *Config) IsProduction() bool {
	return c.App.Env == "production"
}
