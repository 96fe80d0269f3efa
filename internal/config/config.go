package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	RequestTimeout    time.Duration `mapstructure:"request_timeout" yaml:"request_timeout"`
	DatabasePath      string        `mapstructure:"db_path" yaml:"db_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	AdminSecret       string        `mapstructure:"admin_secret" yaml:"admin_secret"`
	SuperAdmins       []string      `mapstructure:"super_admins" yaml:"super_admins"`
	SendRateLimit     int           `mapstructure:"send_rate_limit" yaml:"send_rate_limit"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8080",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		RequestTimeout:    10 * time.Second,
		DatabasePath:      "pollchat.db",
		LogLevel:          "info",
		JWTSecret:         "pollchat-dev-secret",
		AdminSecret:       "",
		SendRateLimit:     120,
	}
}

// UpdateFrom overwrites non-zero values from other config into receiver.
func (c *Config) UpdateFrom(other Config) {
	if other.Addr != "" {
		c.Addr = other.Addr
	}
	if other.ReadHeaderTimeout != 0 {
		c.ReadHeaderTimeout = other.ReadHeaderTimeout
	}
	if other.ShutdownTimeout != 0 {
		c.ShutdownTimeout = other.ShutdownTimeout
	}
	if other.RequestTimeout != 0 {
		c.RequestTimeout = other.RequestTimeout
	}
	if other.DatabasePath != "" {
		c.DatabasePath = other.DatabasePath
	}
	if other.LogLevel != "" {
		c.LogLevel = other.LogLevel
	}
	if other.JWTSecret != "" {
		c.JWTSecret = other.JWTSecret
	}
	if other.AdminSecret != "" {
		c.AdminSecret = other.AdminSecret
	}
	if len(other.SuperAdmins) > 0 {
		c.SuperAdmins = other.SuperAdmins
	}
	if other.SendRateLimit != 0 {
		c.SendRateLimit = other.SendRateLimit
	}
}
