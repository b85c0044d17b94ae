package config

import (
	"fmt"
	"net/url"
	"os"
	"regexp"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	App     AppConfig     `yaml:"fxrisk"`
	API     APIConfig     `yaml:"api"`
	Stream  StreamConfig  `yaml:"stream"`
	Risk    RiskConfig    `yaml:"risk"`
	Storage StorageConfig `yaml:"storage"`
	Notify  NotifyConfig  `yaml:"notify"`
	Metrics MetricsConfig `yaml:"metrics"`
	Logging LoggingConfig `yaml:"logging"`
}

type AppConfig struct {
	Name    string `yaml:"name"`
	Version string `yaml:"version"`
}

// APIConfig describes the brokerage REST API used for sessions, positions,
// master data and quote tokens.
type APIConfig struct {
	BaseURL           string        `yaml:"base_url"`
	Account           string        `yaml:"account"`
	Username          string        `yaml:"username"`
	Password          string        `yaml:"password"`
	UserAgent         string        `yaml:"user_agent"`
	Timeout           time.Duration `yaml:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"`
	Burst             int           `yaml:"burst"`
	OptionRoots       []string      `yaml:"option_roots"`
}

// StreamConfig drives the dxLink session. SnapshotTimeout has no default: a
// run must say how long it is willing to wait for the last symbol.
type StreamConfig struct {
	URL                    string        `yaml:"url"`
	Channel                int           `yaml:"channel"`
	SnapshotTimeout        time.Duration `yaml:"snapshot_timeout"`
	KeepaliveTimeout       int           `yaml:"keepalive_timeout"`
	AcceptKeepaliveTimeout int           `yaml:"accept_keepalive_timeout"`
	KeepaliveInterval      time.Duration `yaml:"keepalive_interval"`
	AggregationPeriod      float64       `yaml:"aggregation_period"`
	QueueSize              int           `yaml:"queue_size"`
	HandshakeTimeout       time.Duration `yaml:"handshake_timeout"`
}

type RiskConfig struct {
	// DeskTimezone is an IANA zone name. When empty DeskUTCOffsetHours is used.
	DeskTimezone       string `yaml:"desk_timezone"`
	DeskUTCOffsetHours int    `yaml:"desk_utc_offset_hours"`
}

type StorageConfig struct {
	SQLite SQLiteConfig `yaml:"sqlite"`
	S3     S3Config     `yaml:"s3"`
}

type SQLiteConfig struct {
	Path string `yaml:"path"`
}

type S3Config struct {
	Enabled         bool   `yaml:"enabled"`
	Bucket          string `yaml:"bucket"`
	Region          string `yaml:"region"`
	Endpoint        string `yaml:"endpoint"`
	PathStyle       bool   `yaml:"path_style"`
	Prefix          string `yaml:"prefix"`
	AccessKeyID     string `yaml:"access_key_id"`
	SecretAccessKey string `yaml:"secret_access_key"`
}

type NotifyConfig struct {
	Discord DiscordConfig `yaml:"discord"`
}

type DiscordConfig struct {
	Enabled    bool          `yaml:"enabled"`
	WebhookURL string        `yaml:"webhook_url"`
	Timeout    time.Duration `yaml:"timeout"`
}

type MetricsConfig struct {
	ListenAddr string           `yaml:"listen_addr"`
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

func defaults() Config {
	return Config{
		API: APIConfig{
			BaseURL:           "https://api.tastyworks.com",
			UserAgent:         "fxrisk/1.0",
			Timeout:           15 * time.Second,
			RequestsPerSecond: 2,
			Burst:             1,
			OptionRoots:       []string{"6A", "6B", "6C", "6E", "6J"},
		},
		Stream: StreamConfig{
			Channel:                3,
			KeepaliveTimeout:       15,
			AcceptKeepaliveTimeout: 20,
			AggregationPeriod:      0.1,
			QueueSize:              256,
			HandshakeTimeout:       10 * time.Second,
		},
		Risk: RiskConfig{DeskUTCOffsetHours: -6},
		Storage: StorageConfig{
			SQLite: SQLiteConfig{Path: "fxrisk.db"},
		},
		Notify: NotifyConfig{
			Discord: DiscordConfig{Timeout: 10 * time.Second},
		},
		Logging: LoggingConfig{Level: "info", Format: "json", Output: "stdout"},
	}
}

// LoadConfig reads the YAML file at path (or the APP_ENV specific variant of
// the default path), applies environment overrides and validates the result.
func LoadConfig(path string) (*Config, error) {
	resolved := resolveEnvSpecificPath(path, DefaultConfigPath, envConfigPaths)
	if resolved != path && path != "" {
		if _, err := os.Stat(resolved); err != nil {
			resolved = path
		}
	}

	data, err := os.ReadFile(resolved)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := defaults()
	if err := yaml.Unmarshal(data, &config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}

	applyEnvOverrides(&config)

	if err := validateConfig(&config); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &config, nil
}

func applyEnvOverrides(config *Config) {
	override := func(dst *string, key string) {
		if v := strings.TrimSpace(os.Getenv(key)); v != "" {
			*dst = v
		}
	}

	override(&config.API.Username, "TASTY_USER")
	override(&config.API.Password, "TASTY_PASSWORD")
	override(&config.API.Account, "TASTY_ACCOUNT")
	override(&config.Stream.URL, "DXLINK_URL")
	override(&config.Storage.SQLite.Path, "FXRISK_DB_PATH")
	override(&config.Notify.Discord.WebhookURL, "DISCORD_WEBHOOK_URL")

	if config.Storage.S3.Enabled {
		override(&config.Storage.S3.AccessKeyID, "AWS_ACCESS_KEY_ID")
		override(&config.Storage.S3.SecretAccessKey, "AWS_SECRET_ACCESS_KEY")
		override(&config.Storage.S3.Region, "AWS_REGION")
		override(&config.Storage.S3.Bucket, "S3_BUCKET")
	}
	config.Storage.S3.Bucket = strings.TrimSpace(config.Storage.S3.Bucket)
}

func validateConfig(cfg *Config) error {
	if cfg.App.Name == "" {
		return fmt.Errorf("fxrisk.name is required")
	}
	if cfg.App.Version == "" {
		return fmt.Errorf("fxrisk.version is required")
	}

	if _, err := url.ParseRequestURI(cfg.API.BaseURL); err != nil {
		return fmt.Errorf("api.base_url '%s' is invalid: %w", cfg.API.BaseURL, err)
	}
	if cfg.API.Timeout <= 0 {
		return fmt.Errorf("api.timeout must be greater than 0")
	}
	if cfg.API.RequestsPerSecond <= 0 {
		return fmt.Errorf("api.requests_per_second must be greater than 0")
	}

	if cfg.Stream.Channel <= 0 {
		return fmt.Errorf("stream.channel must be greater than 0 (channel 0 is reserved for control)")
	}
	if cfg.Stream.SnapshotTimeout <= 0 {
		return fmt.Errorf("stream.snapshot_timeout is required")
	}
	if cfg.Stream.KeepaliveTimeout <= 0 {
		return fmt.Errorf("stream.keepalive_timeout must be greater than 0")
	}
	if cfg.Stream.KeepaliveInterval < 0 ||
		cfg.Stream.KeepaliveInterval >= time.Duration(cfg.Stream.KeepaliveTimeout)*time.Second {
		return fmt.Errorf("stream.keepalive_interval must be shorter than stream.keepalive_timeout")
	}
	if cfg.Stream.QueueSize <= 0 {
		return fmt.Errorf("stream.queue_size must be greater than 0")
	}

	if cfg.Storage.SQLite.Path == "" {
		return fmt.Errorf("storage.sqlite.path is required")
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

	if cfg.Notify.Discord.Enabled && cfg.Notify.Discord.WebhookURL == "" {
		return fmt.Errorf("notify.discord.webhook_url is required when discord is enabled")
	}

	env := AppEnvironment()
	if IsProductionLike(env) {
		if !cfg.Notify.Discord.Enabled {
			return fmt.Errorf("notify.discord must be enabled in %s", env)
		}
		if cfg.API.Password != "" && os.Getenv("TASTY_PASSWORD") == "" {
			return fmt.Errorf("api.password must come from TASTY_PASSWORD in %s", env)
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

// KeepaliveEvery returns how often the session sends KEEPALIVE: the
// configured interval, or half the proposed keepalive timeout.
func (s StreamConfig) KeepaliveEvery() time.Duration {
	if s.KeepaliveInterval > 0 {
		return s.KeepaliveInterval
	}
	return time.Duration(s.KeepaliveTimeout) * time.Second / 2
}

// DeskLocation returns the trading desk time zone used to anchor the
// evaluation instant.
func (r RiskConfig) DeskLocation() (*time.Location, error) {
	if r.DeskTimezone != "" {
		loc, err := time.LoadLocation(r.DeskTimezone)
		if err != nil {
			return nil, fmt.Errorf("risk.desk_timezone: %w", err)
		}
		return loc, nil
	}
	return time.FixedZone(fmt.Sprintf("UTC%+d", r.DeskUTCOffsetHours), r.DeskUTCOffsetHours*3600), nil
}
