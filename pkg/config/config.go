package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig    `mapstructure:"server"`
	Metrics   MetricsConfig   `mapstructure:"metrics"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Detection DetectionConfig `mapstructure:"detection"`
	Alerts    AlertsConfig    `mapstructure:"alerts"`
	Retention RetentionConfig `mapstructure:"retention"`
}

type ServerConfig struct {
	Port        int    `mapstructure:"port"`
	MetricsPort int    `mapstructure:"metrics_port"`
	Host        string `mapstructure:"host"`
	SecretKey   string `mapstructure:"secret_key"`
}

type MetricsConfig struct {
	Enabled bool `mapstructure:"enabled"`
}

type DatabaseConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"name"`
	SSLMode  string `mapstructure:"sslmode"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// DetectionConfig tunes the scanner. CustomPatterns are compiled at startup
// and appended after the built-in catalog; a pattern that fails to compile
// aborts the process.
type DetectionConfig struct {
	MaxScanBytes     int                      `mapstructure:"max_scan_bytes"`
	MaxMatchedLength int                      `mapstructure:"max_matched_length"`
	CustomPatterns   []map[string]interface{} `mapstructure:"custom_patterns"`
}

type AlertsConfig struct {
	SuppressionWindow time.Duration `mapstructure:"suppression_window"`
	MinSeverity       string        `mapstructure:"min_severity"`
	WebhookURL        string        `mapstructure:"webhook_url"`
	WebhookToken      string        `mapstructure:"webhook_token"`
}

type RetentionConfig struct {
	AttemptDays       int           `mapstructure:"attempt_days"`
	AuditDays         int           `mapstructure:"audit_days"`
	SecurityAlertDays int           `mapstructure:"security_alert_days"`
	Interval          time.Duration `mapstructure:"interval"`
}

var globalConfig Config

func Load(configPath string) error {
	if err := loadConfigFile(configPath, "config", &globalConfig); err != nil {
		return fmt.Errorf("could not load main config file: %w", err)
	}
	setDefaultValues()
	return nil
}

func loadConfigFile(configPath, fileName string, out interface{}) error {
	viper.SetConfigName(fileName)
	viper.SetConfigType("yaml")
	viper.AddConfigPath(configPath)
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		var configFileNotFoundError viper.ConfigFileNotFoundError
		if errors.As(err, &configFileNotFoundError) {
			return fmt.Errorf("config file %s.yaml not found, using only environment variables", fileName)
		}
		return fmt.Errorf("error reading config file %s.yaml: %w", fileName, err)
	}

	if err := viper.Unmarshal(out); err != nil {
		return fmt.Errorf("failed to unmarshal %s config: %w", fileName, err)
	}

	return nil
}

func setDefaultValues() {
	if globalConfig.Database.SSLMode == "" {
		globalConfig.Database.SSLMode = "disable"
	}
	if globalConfig.Detection.MaxScanBytes == 0 {
		globalConfig.Detection.MaxScanBytes = 1 << 20
	}
	if globalConfig.Detection.MaxMatchedLength == 0 {
		globalConfig.Detection.MaxMatchedLength = 200
	}
	if globalConfig.Alerts.SuppressionWindow == 0 {
		globalConfig.Alerts.SuppressionWindow = 15 * time.Minute
	}
	if globalConfig.Alerts.MinSeverity == "" {
		globalConfig.Alerts.MinSeverity = "high"
	}
	if globalConfig.Retention.AttemptDays == 0 {
		globalConfig.Retention.AttemptDays = 90
	}
	if globalConfig.Retention.AuditDays == 0 {
		globalConfig.Retention.AuditDays = 90
	}
	if globalConfig.Retention.SecurityAlertDays == 0 {
		globalConfig.Retention.SecurityAlertDays = 30
	}
	if globalConfig.Retention.Interval == 0 {
		globalConfig.Retention.Interval = 24 * time.Hour
	}
}

func GetConfig() *Config {
	return &globalConfig
}
