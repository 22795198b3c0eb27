// Package config loads the trade client configuration from an optional YAML
// file, a .env file and TRADECLIENT_* environment variables, in that order.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"runtime"
	"strings"
	"time"

	"github.com/joeshaw/envdecode"
	"github.com/joho/godotenv"
	"github.com/layer-3/tradeclient/service"
	"gopkg.in/yaml.v3"
)

// Config holds every setting of the trade client
type Config struct {
	Domain string `yaml:"domain" env:"TRADECLIENT_DOMAIN"`
	// SigningDomain must be given explicitly, it is never derived from Domain
	SigningDomain string        `yaml:"signing_domain" env:"TRADECLIENT_SIGNING_DOMAIN"`
	Scheme        string        `yaml:"scheme" env:"TRADECLIENT_SCHEME"`
	UserAgent     string        `yaml:"user_agent" env:"TRADECLIENT_USER_AGENT"`
	HTTPTimeout   time.Duration `yaml:"http_timeout" env:"TRADECLIENT_HTTP_TIMEOUT"`

	OperationTimeout time.Duration `yaml:"operation_timeout" env:"TRADECLIENT_OPERATION_TIMEOUT"`
	LateResultPolicy string        `yaml:"late_result_policy" env:"TRADECLIENT_LATE_RESULT_POLICY"`

	RateLimit struct {
		RPS   float64 `yaml:"rps" env:"TRADECLIENT_RATE_LIMIT_RPS"`
		Burst int     `yaml:"burst" env:"TRADECLIENT_RATE_LIMIT_BURST"`
	} `yaml:"rate_limit"`

	// RedisURL switches credentials and events to Redis when set
	RedisURL string `yaml:"redis_url" env:"TRADECLIENT_REDIS_URL"`
	Account  string `yaml:"account" env:"TRADECLIENT_ACCOUNT"`

	ListenAddr         string        `yaml:"listen_addr" env:"TRADECLIENT_LISTEN_ADDR"`
	ControlTokenSecret string        `yaml:"control_token_secret" env:"TRADECLIENT_CONTROL_TOKEN_SECRET"`
	ControlTokenTTL    time.Duration `yaml:"control_token_ttl" env:"TRADECLIENT_CONTROL_TOKEN_TTL"`

	App struct {
		ClientType  string `yaml:"client_type" env:"TRADECLIENT_APP_CLIENT_TYPE"`
		Version     string `yaml:"version" env:"TRADECLIENT_APP_VERSION"`
		BuildNumber string `yaml:"build_number" env:"TRADECLIENT_APP_BUILD_NUMBER"`
		Tier        string `yaml:"tier" env:"TRADECLIENT_APP_TIER"`
	} `yaml:"app"`

	LogLevel string `yaml:"log_level" env:"TRADECLIENT_LOG_LEVEL"`
}

// Default returns a configuration with every optional field filled in
func Default() *Config {
	cfg := &Config{
		Scheme:           "https",
		HTTPTimeout:      30 * time.Second,
		OperationTimeout: 15 * time.Second,
		LateResultPolicy: string(service.LateIgnore),
		Account:          "default",
		ListenAddr:       ":9000",
		ControlTokenTTL:  24 * time.Hour,
		LogLevel:         "info",
	}
	cfg.RateLimit.RPS = 5
	cfg.RateLimit.Burst = 1
	cfg.App.ClientType = "cli"
	cfg.App.Version = "0.1.0"
	cfg.App.BuildNumber = "1"
	cfg.App.Tier = "dev"
	return cfg
}

// Load builds the configuration. An empty path skips the YAML file; a missing
// .env file is not an error.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to parse config: %w", err)
		}
	}

	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}

	if err := envdecode.Decode(cfg); err != nil && !errors.Is(err, envdecode.ErrNoTargetFieldsAreSet) {
		return nil, fmt.Errorf("failed to read environment: %w", err)
	}

	if cfg.UserAgent == "" {
		cfg.UserAgent = PlatformUserAgent(cfg.App.Version)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// Validate checks configuration validity
func (c *Config) Validate() error {
	if c.Domain == "" {
		return errors.New("domain is required")
	}
	if c.SigningDomain == "" {
		return errors.New("signing_domain is required")
	}
	if c.Scheme != "https" && c.Scheme != "http" {
		return fmt.Errorf("unsupported scheme: %s", c.Scheme)
	}
	if c.HTTPTimeout <= 0 {
		return errors.New("http_timeout must be positive")
	}
	if c.OperationTimeout < 0 {
		return errors.New("operation_timeout must not be negative")
	}
	if _, err := service.ParseLatePolicy(c.LateResultPolicy); err != nil {
		return fmt.Errorf("late_result_policy: %w", err)
	}
	if c.RateLimit.RPS < 0 || c.RateLimit.Burst < 0 {
		return errors.New("rate_limit values must not be negative")
	}
	if c.RateLimit.RPS > 0 && c.RateLimit.Burst == 0 {
		return errors.New("rate_limit.burst must be positive when rps is set")
	}
	if c.ListenAddr != "" && len(c.ControlTokenSecret) < 16 {
		return errors.New("control_token_secret must be at least 16 bytes")
	}
	if c.ControlTokenTTL <= 0 {
		return errors.New("control_token_ttl must be positive")
	}
	return nil
}

// PlatformUserAgent describes this client and the platform it runs on
func PlatformUserAgent(version string) string {
	return fmt.Sprintf("tradeclient/%s (%s; %s)", strings.TrimPrefix(version, "v"), PlatformOS(), runtime.GOARCH)
}

// PlatformOS names the operating system the way login requests report it
func PlatformOS() string {
	switch runtime.GOOS {
	case "darwin":
		return "macOS"
	case "windows":
		return "Windows"
	case "linux":
		return "Linux"
	default:
		return runtime.GOOS
	}
}
