package config

import (
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Goldflow   GoldflowConfig   `yaml:"goldflow"`
	Shopify    ShopifyConfig    `yaml:"shopify"`
	RateSource RateSourceConfig `yaml:"rate_source"`
	Storage    StorageConfig    `yaml:"storage"`
	Notifier   NotifierConfig   `yaml:"notifier"`
	Metrics    MetricsConfig    `yaml:"metrics"`
	Logging    LoggingConfig    `yaml:"logging"`
}

type GoldflowConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

type ShopifyConfig struct {
	ShopURL     string          `yaml:"shop_url"`
	AccessToken string          `yaml:"access_token"`
	APIVersion  string          `yaml:"api_version"`
	ThemeID     int64           `yaml:"theme_id"`
	PageSize    int             `yaml:"page_size"`
	Timeout     time.Duration   `yaml:"timeout"`
	RateLimit   RateLimitConfig `yaml:"rate_limit"`
	Bulk        BulkConfig      `yaml:"bulk"`
}

type RateSourceConfig struct {
	URL       string          `yaml:"url"`
	APIKey    string          `yaml:"api_key"`
	Currency  string          `yaml:"currency"`
	Timeout   time.Duration   `yaml:"timeout"`
	RateLimit RateLimitConfig `yaml:"rate_limit"`
}

type RateLimitConfig struct {
	RequestsPerSecond int `yaml:"requests_per_second"`
	BurstSize         int `yaml:"burst_size"`
}

// BulkConfig controls the asynchronous bulk mutation lifecycle: how often the
// current operation is polled and how many polls are attempted before the
// batch is declared failed.
type BulkConfig struct {
	PollInterval time.Duration `yaml:"poll_interval"`
	MaxPolls     int           `yaml:"max_polls"`
}

type StorageConfig struct {
	S3 S3Config `yaml:"s3"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type NotifierConfig struct {
	SMTPHost  string   `yaml:"smtp_host"`
	SMTPPort  int      `yaml:"smtp_port"`
	SMTPUser  string   `yaml:"smtp_user"`
	SMTPPass  string   `yaml:"smtp_password"`
	FromEmail string   `yaml:"from_email"`
	ToEmails  []string `yaml:"to_emails"`
}

type MetricsConfig struct {
	CloudWatch CloudWatchConfig `yaml:"cloudwatch"`
}

type CloudWatchConfig struct {
	Enabled   bool   `yaml:"enabled"`
	Region    string `yaml:"region"`
	Namespace string `yaml:"namespace"`
	Dashboard string `yaml:"dashboard"`
}

type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
	MaxAge int    `yaml:"max_age"`
}

func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := Config{}
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyDefaults(&config)
	applyEnvOverrides(&config)

	config.Shopify.ShopURL = strings.TrimSuffix(strings.TrimSpace(config.Shopify.ShopURL), "/")
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyDefaults(cfg *Config) {
	if cfg.Shopify.APIVersion == "" {
		cfg.Shopify.APIVersion = "2024-01"
	}
	if cfg.Shopify.PageSize <= 0 {
		cfg.Shopify.PageSize = 50
	}
	if cfg.Shopify.Timeout <= 0 {
		cfg.Shopify.Timeout = 30 * time.Second
	}
	if cfg.Shopify.RateLimit.RequestsPerSecond <= 0 {
		cfg.Shopify.RateLimit.RequestsPerSecond = 2
	}
	if cfg.Shopify.RateLimit.BurstSize <= 0 {
		cfg.Shopify.RateLimit.BurstSize = 1
	}
	if cfg.Shopify.Bulk.PollInterval <= 0 {
		cfg.Shopify.Bulk.PollInterval = 5 * time.Second
	}
	if cfg.Shopify.Bulk.MaxPolls <= 0 {
		cfg.Shopify.Bulk.MaxPolls = 180
	}
	if cfg.RateSource.URL == "" {
		cfg.RateSource.URL = "https://www.goldapi.io/api"
	}
	if cfg.RateSource.Currency == "" {
		cfg.RateSource.Currency = "INR"
	}
	if cfg.RateSource.Timeout <= 0 {
		cfg.RateSource.Timeout = 15 * time.Second
	}
	if cfg.RateSource.RateLimit.RequestsPerSecond <= 0 {
		cfg.RateSource.RateLimit.RequestsPerSecond = 1
	}
	if cfg.RateSource.RateLimit.BurstSize <= 0 {
		cfg.RateSource.RateLimit.BurstSize = 2
	}
	if cfg.Notifier.SMTPHost == "" {
		cfg.Notifier.SMTPHost = "smtp.gmail.com"
	}
	if cfg.Notifier.SMTPPort == 0 {
		cfg.Notifier.SMTPPort = 587
	}
}

// applyEnvOverrides lets deployment secrets win over anything committed in
// the yaml file. Workflow run parameters (manual rates, handle filters) are
// read separately in environment.go.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SHOPIFY_SHOP_URL"); v != "" {
		cfg.Shopify.ShopURL = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHOPIFY_ACCESS_TOKEN"); v != "" {
		cfg.Shopify.AccessToken = strings.TrimSpace(v)
	}
	if v := os.Getenv("SHOPIFY_THEME_ID"); v != "" {
		if id, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			cfg.Shopify.ThemeID = id
		}
	}
	if v := os.Getenv("GOLDAPI_KEY"); v != "" {
		cfg.RateSource.APIKey = strings.TrimSpace(v)
	}
	if v := os.Getenv("SMTP_HOST"); v != "" {
		cfg.Notifier.SMTPHost = strings.TrimSpace(v)
	}
	if v := os.Getenv("SMTP_PORT"); v != "" {
		if port, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			cfg.Notifier.SMTPPort = port
		}
	}
	if v := os.Getenv("SMTP_USER"); v != "" {
		cfg.Notifier.SMTPUser = strings.TrimSpace(v)
	}
	if v := os.Getenv("SMTP_PASSWORD"); v != "" {
		cfg.Notifier.SMTPPass = strings.TrimSpace(v)
	}
	if v := os.Getenv("FROM_EMAIL"); v != "" {
		cfg.Notifier.FromEmail = strings.TrimSpace(v)
	}
	if v := os.Getenv("TO_EMAILS"); v != "" {
		emails := make([]string, 0)
		for _, e := range strings.Split(v, ",") {
			if e = strings.TrimSpace(e); e != "" {
				emails = append(emails, e)
			}
		}
		cfg.Notifier.ToEmails = emails
	}
	if cfg.Storage.S3.Enabled {
		if v := os.Getenv("AWS_ACCESS_KEY_ID"); v != "" {
			cfg.Storage.S3.AccessKeyID = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_SECRET_ACCESS_KEY"); v != "" {
			cfg.Storage.S3.SecretAccessKey = strings.TrimSpace(v)
		}
		if v := os.Getenv("AWS_REGION"); v != "" {
			cfg.Storage.S3.Region = strings.TrimSpace(v)
		}
		if v := os.Getenv("S3_BUCKET"); v != "" {
			cfg.Storage.S3.Bucket = strings.TrimSpace(v)
		}
	}
}

func validateConfig(cfg *Config) error {
	if cfg.Goldflow.Name == "" {
		return fmt.Errorf("goldflow.name is required")
	}

	if cfg.Goldflow.Version == "" {
		return fmt.Errorf("goldflow.version is required")
	}

	if cfg.Shopify.ShopURL == "" {
		return fmt.Errorf("shopify.shop_url is required")
	}
	if cfg.Shopify.AccessToken == "" {
		return fmt.Errorf("shopify.access_token is required")
	}
	if cfg.Shopify.PageSize > 250 {
		return fmt.Errorf("shopify.page_size must not exceed 250")
	}

	if cfg.Storage.S3.Enabled {
		if cfg.Storage.S3.Bucket == "" {
			return fmt.Errorf("storage.s3.bucket is required when S3 is enabled")
		}
		if cfg.Storage.S3.Region == "" {
			return fmt.Errorf("storage.s3.region is required when S3 is enabled")
		}
		if !isValidS3Bucket(cfg.Storage.S3.Bucket) {
			return fmt.Errorf("storage.s3.bucket '%s' is invalid", cfg.Storage.S3.Bucket)
		}
	}

	return nil
}

var s3BucketRegexp = regexp.MustCompile(`^[a-z0-9][a-z0-9.-]{1,61}[a-z0-9]$`)

func isValidS3Bucket(name string) bool {
	if len(name) < 3 || len(name) > 63 {
		return false
	}
	if strings.Contains(name, "..") || strings.HasPrefix(name, ".") || strings.HasSuffix(name, ".") {
		return false
	}
	return s3BucketRegexp.MatchString(name)
}
