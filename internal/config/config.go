package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
)

// Config is the runtime configuration. Values come from defaults, then the
// optional TOML file, then ACE_* environment variables.
type Config struct {
	DatabaseURL string `toml:"database_url"` // ACE_DATABASE_URL (required unless Memory)
	Memory      bool   `toml:"memory"`       // ACE_MEMORY (in-process store)
	GRPCAddr    string `toml:"grpc_addr"`    // ACE_GRPC_ADDR (default ":9090")
	HTTPAddr    string `toml:"http_addr"`    // ACE_HTTP_ADDR (default ":8080")
	NATSURL     string `toml:"nats_url"`     // ACE_NATS_URL (optional, empty = no fan-out)
	AuthToken   string `toml:"auth_token"`   // ACE_AUTH_TOKEN (optional, empty = auth disabled)

	// DisableEventLogging turns agent lifecycle events off. ACE_DISABLE_EVENT_LOGGING.
	DisableEventLogging bool `toml:"disable_event_logging"`

	Log     LogConfig     `toml:"log"`
	LLM     LLMConfig     `toml:"llm"`
	Storage StorageConfig `toml:"storage"`
	Upload  UploadConfig  `toml:"upload"`
	Status  StatusConfig  `toml:"status"`
	Archive ArchiveConfig `toml:"archive"`
}

type LogConfig struct {
	Level  string `toml:"level"`  // ACE_LOG_LEVEL (default "info")
	Format string `toml:"format"` // ACE_LOG_FORMAT (text|json, default "text")
}

type LLMConfig struct {
	Provider          string   `toml:"provider"`            // ACE_LLM_PROVIDER (openai|anthropic|offline, default "offline")
	APIKey            string   `toml:"api_key"`             // ACE_LLM_API_KEY (falls back to the SDK's own env var)
	BaseURL           string   `toml:"base_url"`            // ACE_LLM_BASE_URL
	PrimaryModel      string   `toml:"primary_model"`       // ACE_LLM_PRIMARY_MODEL
	FallbackModel     string   `toml:"fallback_model"`      // ACE_LLM_FALLBACK_MODEL
	MaxTokens         int      `toml:"max_tokens"`          // ACE_LLM_MAX_TOKENS
	FallbackMaxTokens int      `toml:"fallback_max_tokens"` // ACE_LLM_FALLBACK_MAX_TOKENS
	Temperature       *float64 `toml:"temperature"`         // ACE_LLM_TEMPERATURE
}

type StorageConfig struct {
	Backend       string `toml:"backend"`         // ACE_STORAGE_BACKEND (local|s3, default "local")
	LocalPath     string `toml:"local_path"`      // ACE_STORAGE_LOCAL_PATH (default "./data/media")
	PublicBaseURL string `toml:"public_base_url"` // ACE_STORAGE_PUBLIC_URL
	S3Bucket      string `toml:"s3_bucket"`       // ACE_STORAGE_S3_BUCKET
	S3Region      string `toml:"s3_region"`       // ACE_STORAGE_S3_REGION (default "us-east-1")
	S3Endpoint    string `toml:"s3_endpoint"`     // ACE_STORAGE_S3_ENDPOINT (MinIO, LocalStack)
}

type UploadConfig struct {
	MaxAttempts int           `toml:"max_attempts"` // ACE_UPLOAD_MAX_ATTEMPTS (default 3)
	BaseDelay   time.Duration `toml:"base_delay"`   // ACE_UPLOAD_BASE_DELAY (default 500ms)
}

type StatusConfig struct {
	Window     int           `toml:"window"`      // ACE_STATUS_WINDOW (default 20)
	StaleAfter time.Duration `toml:"stale_after"` // ACE_STATUS_STALE_AFTER (0 = never stale)
}

type ArchiveConfig struct {
	Interval  time.Duration `toml:"interval"`  // ACE_ARCHIVE_INTERVAL (0 = disabled)
	Retention time.Duration `toml:"retention"` // ACE_ARCHIVE_RETENTION (0 = keep everything)
	Prefix    string        `toml:"prefix"`    // ACE_ARCHIVE_PREFIX (default "archive/events")
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		GRPCAddr: ":9090",
		HTTPAddr: ":8080",
		Log:      LogConfig{Level: "info", Format: "text"},
		LLM:      LLMConfig{Provider: "offline"},
		Storage:  StorageConfig{Backend: "local", LocalPath: "./data/media", S3Region: "us-east-1"},
		Upload:   UploadConfig{MaxAttempts: 3, BaseDelay: 500 * time.Millisecond},
		Status:   StatusConfig{Window: 20},
		Archive:  ArchiveConfig{Prefix: "archive/events"},
	}
}

// Load builds the configuration. path names a TOML file; when empty,
// ACE_CONFIG is consulted, and when that is empty too no file is read.
// overrides run after the environment is applied, before validation.
func Load(path string, overrides ...func(*Config)) (*Config, error) {
	c := Default()
	if path == "" {
		path = os.Getenv("ACE_CONFIG")
	}
	if path != "" {
		if _, err := toml.DecodeFile(path, c); err != nil {
			return nil, fmt.Errorf("read config %s: %w", path, err)
		}
	}
	if err := c.applyEnv(); err != nil {
		return nil, err
	}
	for _, o := range overrides {
		o(c)
	}
	if err := c.Validate(); err != nil {
		return nil, err
	}
	return c, nil
}

// Validate checks cross-field requirements.
func (c *Config) Validate() error {
	if c.DatabaseURL == "" && !c.Memory {
		return fmt.Errorf("ACE_DATABASE_URL is required (or set ACE_MEMORY)")
	}
	switch c.LLM.Provider {
	case "openai", "anthropic":
		if c.LLM.PrimaryModel == "" {
			return fmt.Errorf("ACE_LLM_PRIMARY_MODEL is required for provider %q", c.LLM.Provider)
		}
	case "offline":
	default:
		return fmt.Errorf("ACE_LLM_PROVIDER: unknown provider %q", c.LLM.Provider)
	}
	switch c.Storage.Backend {
	case "local":
	case "s3":
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("ACE_STORAGE_S3_BUCKET is required for the s3 backend")
		}
	default:
		return fmt.Errorf("ACE_STORAGE_BACKEND: unknown backend %q", c.Storage.Backend)
	}
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("ACE_LOG_FORMAT: unknown format %q", c.Log.Format)
	}
	if c.Upload.MaxAttempts < 1 {
		return fmt.Errorf("ACE_UPLOAD_MAX_ATTEMPTS must be at least 1")
	}
	return nil
}

func (c *Config) applyEnv() error {
	c.DatabaseURL = envOrDefault("ACE_DATABASE_URL", c.DatabaseURL)
	c.GRPCAddr = envOrDefault("ACE_GRPC_ADDR", c.GRPCAddr)
	c.HTTPAddr = envOrDefault("ACE_HTTP_ADDR", c.HTTPAddr)
	c.NATSURL = envOrDefault("ACE_NATS_URL", c.NATSURL)
	c.AuthToken = envOrDefault("ACE_AUTH_TOKEN", c.AuthToken)

	c.Log.Level = strings.ToLower(envOrDefault("ACE_LOG_LEVEL", c.Log.Level))
	c.Log.Format = strings.ToLower(envOrDefault("ACE_LOG_FORMAT", c.Log.Format))

	c.LLM.Provider = strings.ToLower(envOrDefault("ACE_LLM_PROVIDER", c.LLM.Provider))
	c.LLM.APIKey = envOrDefault("ACE_LLM_API_KEY", c.LLM.APIKey)
	c.LLM.BaseURL = envOrDefault("ACE_LLM_BASE_URL", c.LLM.BaseURL)
	c.LLM.PrimaryModel = envOrDefault("ACE_LLM_PRIMARY_MODEL", c.LLM.PrimaryModel)
	c.LLM.FallbackModel = envOrDefault("ACE_LLM_FALLBACK_MODEL", c.LLM.FallbackModel)

	c.Storage.Backend = strings.ToLower(envOrDefault("ACE_STORAGE_BACKEND", c.Storage.Backend))
	c.Storage.LocalPath = envOrDefault("ACE_STORAGE_LOCAL_PATH", c.Storage.LocalPath)
	c.Storage.PublicBaseURL = envOrDefault("ACE_STORAGE_PUBLIC_URL", c.Storage.PublicBaseURL)
	c.Storage.S3Bucket = envOrDefault("ACE_STORAGE_S3_BUCKET", c.Storage.S3Bucket)
	c.Storage.S3Region = envOrDefault("ACE_STORAGE_S3_REGION", c.Storage.S3Region)
	c.Storage.S3Endpoint = envOrDefault("ACE_STORAGE_S3_ENDPOINT", c.Storage.S3Endpoint)

	c.Archive.Prefix = envOrDefault("ACE_ARCHIVE_PREFIX", c.Archive.Prefix)

	var err error
	if c.Memory, err = envBool("ACE_MEMORY", c.Memory); err != nil {
		return err
	}
	if c.DisableEventLogging, err = envBool("ACE_DISABLE_EVENT_LOGGING", c.DisableEventLogging); err != nil {
		return err
	}
	if c.LLM.MaxTokens, err = envInt("ACE_LLM_MAX_TOKENS", c.LLM.MaxTokens); err != nil {
		return err
	}
	if c.LLM.FallbackMaxTokens, err = envInt("ACE_LLM_FALLBACK_MAX_TOKENS", c.LLM.FallbackMaxTokens); err != nil {
		return err
	}
	if v := os.Getenv("ACE_LLM_TEMPERATURE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("ACE_LLM_TEMPERATURE: %w", err)
		}
		c.LLM.Temperature = &f
	}
	if c.Upload.MaxAttempts, err = envInt("ACE_UPLOAD_MAX_ATTEMPTS", c.Upload.MaxAttempts); err != nil {
		return err
	}
	if c.Upload.BaseDelay, err = envDuration("ACE_UPLOAD_BASE_DELAY", c.Upload.BaseDelay); err != nil {
		return err
	}
	if c.Status.Window, err = envInt("ACE_STATUS_WINDOW", c.Status.Window); err != nil {
		return err
	}
	if c.Status.StaleAfter, err = envDuration("ACE_STATUS_STALE_AFTER", c.Status.StaleAfter); err != nil {
		return err
	}
	if c.Archive.Interval, err = envDuration("ACE_ARCHIVE_INTERVAL", c.Archive.Interval); err != nil {
		return err
	}
	if c.Archive.Retention, err = envDuration("ACE_ARCHIVE_RETENTION", c.Archive.Retention); err != nil {
		return err
	}
	return nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return n, nil
}

func envBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s: %w", key, err)
	}
	return b, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
