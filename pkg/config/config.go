// Package config loads settings for programs built on gotweet from a YAML
// file, a .env file and GOTWEET_ prefixed environment variables.
package config

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/spf13/viper"

	gotweet "github.com/jamesprial/go-twitter-api-wrapper"
	pkgerrs "github.com/jamesprial/go-twitter-api-wrapper/pkg/errors"
)

// EnvPrefix is prepended to every environment variable override, so
// credentials.bearer_token is read from GOTWEET_CREDENTIALS_BEARER_TOKEN.
const EnvPrefix = "GOTWEET"

// Config is the file and environment backed configuration.
type Config struct {
	Credentials CredentialsConfig `mapstructure:"credentials"`
	Client      ClientConfig      `mapstructure:"client"`
	Logging     LoggingConfig     `mapstructure:"logging"`
	Webhook     WebhookConfig     `mapstructure:"webhook"`
}

// CredentialsConfig holds the API keys and tokens.
type CredentialsConfig struct {
	BearerToken       string `mapstructure:"bearer_token"`
	ConsumerKey       string `mapstructure:"consumer_key"`
	ConsumerSecret    string `mapstructure:"consumer_secret"`
	AccessToken       string `mapstructure:"access_token"`
	AccessTokenSecret string `mapstructure:"access_token_secret"`
}

// ClientConfig tunes the HTTP behaviour of the client.
type ClientConfig struct {
	UserAgent         string        `mapstructure:"user_agent"`
	BaseURL           string        `mapstructure:"base_url"`
	UploadURL         string        `mapstructure:"upload_url"`
	Timeout           time.Duration `mapstructure:"timeout"`
	MaxRetries        int           `mapstructure:"max_retries"`
	RequestsPerMinute float64       `mapstructure:"requests_per_minute"`
	CacheSize         int           `mapstructure:"cache_size"`
}

// LoggingConfig selects the log level and output format.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
	Color  bool   `mapstructure:"color"`
}

// WebhookConfig configures the Account Activity receiver.
type WebhookConfig struct {
	Addr    string `mapstructure:"addr"`
	Path    string `mapstructure:"path"`
	Workers int    `mapstructure:"workers"`
}

// Load reads configuration from configPath, or from config.yaml in the
// working directory, ~/.gotweet or /etc/gotweet when configPath is empty.
// A .env file in the working directory is loaded into the environment
// first. A missing config file is not an error when searching; settings
// then come from defaults and the environment alone.
func Load(configPath string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("error reading .env: %w", err)
	}

	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if configPath != "" {
		v.SetConfigFile(configPath)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		if home, err := os.UserHomeDir(); err == nil {
			v.AddConfigPath(filepath.Join(home, ".gotweet"))
		}
		v.AddConfigPath("/etc/gotweet/")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if configPath != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("error unmarshaling config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// Keys must be known to viper for AutomaticEnv to apply during Unmarshal.
	v.SetDefault("credentials.bearer_token", "")
	v.SetDefault("credentials.consumer_key", "")
	v.SetDefault("credentials.consumer_secret", "")
	v.SetDefault("credentials.access_token", "")
	v.SetDefault("credentials.access_token_secret", "")

	v.SetDefault("client.user_agent", gotweet.DefaultUserAgent)
	v.SetDefault("client.base_url", "")
	v.SetDefault("client.upload_url", "")
	v.SetDefault("client.timeout", gotweet.DefaultTimeout)
	v.SetDefault("client.max_retries", 0)
	v.SetDefault("client.requests_per_minute", 0)
	v.SetDefault("client.cache_size", 0)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")
	v.SetDefault("logging.color", true)

	v.SetDefault("webhook.addr", ":8080")
	v.SetDefault("webhook.path", "/webhooks/twitter")
	v.SetDefault("webhook.workers", 8)
}

// Validate checks the logging settings and that enough credentials are
// present for at least app-only access.
func (c *Config) Validate() error {
	switch strings.ToLower(c.Logging.Level) {
	case "debug", "info", "warn", "error":
	default:
		return &pkgerrs.ConfigError{Field: "logging.level", Message: fmt.Sprintf("invalid level %q (must be debug, info, warn or error)", c.Logging.Level)}
	}

	switch strings.ToLower(c.Logging.Format) {
	case "console", "json":
	default:
		return &pkgerrs.ConfigError{Field: "logging.format", Message: fmt.Sprintf("invalid format %q (must be console or json)", c.Logging.Format)}
	}

	creds := c.Credentials
	hasBearer := strings.TrimSpace(creds.BearerToken) != ""
	hasConsumer := strings.TrimSpace(creds.ConsumerKey) != "" && strings.TrimSpace(creds.ConsumerSecret) != ""
	if !hasBearer && !hasConsumer {
		return &pkgerrs.ConfigError{Field: "credentials", Message: "bearer_token or consumer_key and consumer_secret are required"}
	}

	if c.Webhook.Workers < 0 {
		return &pkgerrs.ConfigError{Field: "webhook.workers", Message: "cannot be negative"}
	}
	return nil
}

// Logger builds a zerolog logger writing to w in the configured format.
func (c *Config) Logger(w io.Writer) zerolog.Logger {
	return NewLogger(c.Logging, w)
}

// NewLogger builds a zerolog logger from cfg. Unknown levels fall back to info.
func NewLogger(cfg LoggingConfig, w io.Writer) zerolog.Logger {
	level := zerolog.InfoLevel
	switch strings.ToLower(cfg.Level) {
	case "debug":
		level = zerolog.DebugLevel
	case "warn":
		level = zerolog.WarnLevel
	case "error":
		level = zerolog.ErrorLevel
	}

	if strings.ToLower(cfg.Format) == "json" {
		return zerolog.New(w).Level(level).With().Timestamp().Logger()
	}

	output := zerolog.ConsoleWriter{
		Out:        w,
		TimeFormat: time.RFC3339,
		NoColor:    !cfg.Color,
	}
	return zerolog.New(output).Level(level).With().Timestamp().Logger()
}

// ClientOptions converts the loaded settings into a gotweet.Config that logs
// through logger.
func (c *Config) ClientOptions(logger *zerolog.Logger) *gotweet.Config {
	cfg := &gotweet.Config{
		BearerToken:       c.Credentials.BearerToken,
		ConsumerKey:       c.Credentials.ConsumerKey,
		ConsumerSecret:    c.Credentials.ConsumerSecret,
		AccessToken:       c.Credentials.AccessToken,
		AccessTokenSecret: c.Credentials.AccessTokenSecret,
		UserAgent:         c.Client.UserAgent,
		BaseURL:           c.Client.BaseURL,
		UploadURL:         c.Client.UploadURL,
		MaxRetries:        c.Client.MaxRetries,
		CacheSize:         c.Client.CacheSize,
		Logger:            logger,
	}
	if c.Client.Timeout > 0 {
		cfg.HTTPClient = &http.Client{Timeout: c.Client.Timeout}
	}
	if c.Client.RequestsPerMinute > 0 {
		cfg.RateLimit = &gotweet.RateLimitConfig{RequestsPerMinute: c.Client.RequestsPerMinute}
	}
	return cfg
}
