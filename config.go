package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"work_orders/report"
)

type Config struct {
	Server        ServerConfig        `yaml:"server"`
	Database      DatabaseConfig      `yaml:"database"`
	Logging       LoggingConfig       `yaml:"logging"`
	Report        ReportConfig        `yaml:"report"`
	Notifications NotificationsConfig `yaml:"notifications"`
}

type ServerConfig struct {
	Addr          string `yaml:"addr" env:"WO_SERVER_ADDR"`
	SessionSecret string `yaml:"session_secret" env:"WO_SESSION_SECRET"`
	// IdleTimeoutMinutes expires a session that saw no request for this long.
	IdleTimeoutMinutes int  `yaml:"idle_timeout_minutes" env:"WO_SESSION_IDLE_MINUTES"`
	SecureCookie       bool `yaml:"secure_cookie" env:"WO_SECURE_COOKIE"`
}

type DatabaseConfig struct {
	Host            string `yaml:"host" env:"WO_DB_HOST"`
	Port            int    `yaml:"port" env:"WO_DB_PORT"`
	User            string `yaml:"user" env:"WO_DB_USER"`
	Password        string `yaml:"password" env:"WO_DB_PASSWORD"`
	Name            string `yaml:"dbname" env:"WO_DB_NAME"`
	SSLMode         string `yaml:"sslmode" env:"WO_DB_SSLMODE"`
	MaxOpenConns    int    `yaml:"max_open_conns" env:"WO_DB_MAX_OPEN_CONNS"`
	MaxIdleConns    int    `yaml:"max_idle_conns" env:"WO_DB_MAX_IDLE_CONNS"`
	ConnMaxLifetime int    `yaml:"conn_max_lifetime" env:"WO_DB_CONN_MAX_LIFETIME"` // seconds
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Name, c.SSLMode)
}

type LoggingConfig struct {
	Level      string `yaml:"level" env:"WO_LOG_LEVEL"`   // debug / info / warn / error
	Output     string `yaml:"output" env:"WO_LOG_OUTPUT"` // console / file / both
	File       string `yaml:"file" env:"WO_LOG_FILE"`
	MaxSize    int    `yaml:"max_size"` // MB
	MaxBackups int    `yaml:"max_backups"`
	MaxAge     int    `yaml:"max_age"` // days
	Compress   bool   `yaml:"compress"`
}

type ReportConfig struct {
	TemplatePath string `yaml:"template_path" env:"WO_REPORT_TEMPLATE"`
	SheetName    string `yaml:"sheet_name" env:"WO_REPORT_SHEET"`
}

type NotificationsConfig struct {
	CleanupSchedule string `yaml:"cleanup_schedule" env:"WO_NOTIFICATION_CLEANUP"`
	RetentionDays   int    `yaml:"retention_days" env:"WO_NOTIFICATION_RETENTION_DAYS"`
}

func defaultConfig() Config {
	return Config{
		Server: ServerConfig{Addr: ":8084", IdleTimeoutMinutes: 5},
		Database: DatabaseConfig{
			Host: "localhost", Port: 5432, User: "postgres", Name: "work_orders", SSLMode: "disable",
			MaxOpenConns: 20, MaxIdleConns: 5, ConnMaxLifetime: 300,
		},
		Logging: LoggingConfig{Level: "info", Output: "console", File: "logs/work_orders.log",
			MaxSize: 50, MaxBackups: 5, MaxAge: 30},
		Report:        ReportConfig{TemplatePath: "public/template_file.xlsx", SheetName: report.DefaultSheetName},
		Notifications: NotificationsConfig{CleanupSchedule: "@hourly", RetentionDays: 30},
	}
}

// LoadConfig layers defaults, the YAML file (if present), a .env file (if
// present) and WO_* environment variables, in that order.
func LoadConfig(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config file: %w", err)
		}
	case errors.Is(err, fs.ErrNotExist):
	default:
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	if err := env.Parse(&cfg); err != nil {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) Validate() error {
	if len(c.Server.SessionSecret) < 32 {
		return errors.New("server.session_secret must be at least 32 characters")
	}
	if c.Server.IdleTimeoutMinutes <= 0 {
		return errors.New("server.idle_timeout_minutes must be positive")
	}
	if c.Database.Port <= 0 || c.Database.Port > 65535 {
		return fmt.Errorf("invalid database port: %d", c.Database.Port)
	}
	if c.Report.TemplatePath == "" || c.Report.SheetName == "" {
		return errors.New("report.template_path and report.sheet_name are required")
	}
	if c.Notifications.RetentionDays <= 0 {
		return errors.New("notifications.retention_days must be positive")
	}
	switch c.Logging.Output {
	case "console", "file", "both":
	default:
		return fmt.Errorf("invalid logging output %q", c.Logging.Output)
	}
	return nil
}
