package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"hls-downloader/pkg/constants"
)

type Config struct {
	Server   ServerConfig   `yaml:"server"`
	Database DatabaseConfig `yaml:"database"`
	Redis    RedisConfig    `yaml:"redis"`
	Download DownloadConfig `yaml:"download"`
	S3       S3Config       `yaml:"s3"`
	Cleanup  CleanupConfig  `yaml:"cleanup"`
	Log      LogConfig      `yaml:"log"`
}

type ServerConfig struct {
	Port   string `yaml:"port"`
	Host   string `yaml:"host"`
	Locale string `yaml:"locale"`
}

type DatabaseConfig struct {
	Driver        string `yaml:"driver"` // sqlite | postgres
	Path          string `yaml:"path"`   // sqlite file
	Host          string `yaml:"host"`
	Port          string `yaml:"port"`
	User          string `yaml:"user"`
	Password      string `yaml:"password"`
	DBName        string `yaml:"dbname"`
	SSLMode       string `yaml:"sslmode"`
	AutoMigration bool   `yaml:"auto_migration"` // goose migrations instead of gorm AutoMigrate
}

// DSN is the postgres connection string.
func (d DatabaseConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

type RedisConfig struct {
	Enabled         bool   `yaml:"enabled"`
	Addr            string `yaml:"addr"`
	Password        string `yaml:"password"`
	DB              int    `yaml:"db"`
	ProgressPrefix  string `yaml:"progress_prefix"`
	SubmissionQueue string `yaml:"submission_queue"`
}

type DownloadConfig struct {
	RootDir           string        `yaml:"root_dir"`
	UserAgent         string        `yaml:"user_agent"`
	RequestTimeout    time.Duration `yaml:"request_timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second"` // 0 = unlimited
	PollInterval      time.Duration `yaml:"poll_interval"`
	MinFreeBytes      uint64        `yaml:"min_free_bytes"`
	// UnmeteredInterfaces are name prefixes treated as wifi/ethernet.
	UnmeteredInterfaces []string `yaml:"unmetered_interfaces"`
}

type S3Config struct {
	Enabled bool   `yaml:"enabled"`
	Bucket  string `yaml:"bucket"`
	Region  string `yaml:"region"`
	Prefix  string `yaml:"prefix"`
}

type CleanupConfig struct {
	Schedule      string        `yaml:"schedule"`
	PartialMaxAge time.Duration `yaml:"partial_max_age"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Env   string `yaml:"env"` // development | production
}

func defaults() *Config {
	return &Config{
		Server: ServerConfig{
			Port:   "3000",
			Host:   "localhost",
			Locale: "en",
		},
		Database: DatabaseConfig{
			Driver:  "sqlite",
			Path:    "downloads.db",
			Host:    "localhost",
			Port:    "5432",
			User:    "postgres",
			DBName:  "hls_downloader",
			SSLMode: "disable",
		},
		Redis: RedisConfig{
			Addr:            "localhost:6379",
			ProgressPrefix:  "download_progress",
			SubmissionQueue: "download_queue",
		},
		Download: DownloadConfig{
			RootDir:             "downloads",
			UserAgent:           constants.DefaultUserAgent,
			RequestTimeout:      30 * time.Second,
			PollInterval:        constants.DefaultPollInterval,
			MinFreeBytes:        200 * 1024 * 1024, // 200MB
			UnmeteredInterfaces: []string{"wl", "wlan", "en", "eth"},
		},
		S3: S3Config{
			Region: "eu-central-1",
		},
		Cleanup: CleanupConfig{
			Schedule:      "0 */5 * * * *",
			PartialMaxAge: time.Hour,
		},
		Log: LogConfig{
			Level: "info",
			Env:   "production",
		},
	}
}

// LoadConfig builds the config from defaults, then the optional CONFIG_FILE
// yaml, then environment variables.
func LoadConfig() (*Config, error) {
	cfg := defaults()

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		if err := loadFile(path, cfg); err != nil {
			return nil, err
		}
	}

	applyEnv(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func loadFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("config dosyası okunamadı %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("config dosyası çözümlenemedi %s: %w", path, err)
	}
	return nil
}

func applyEnv(cfg *Config) {
	cfg.Server.Port = getEnv("SERVER_PORT", cfg.Server.Port)
	cfg.Server.Host = getEnv("SERVER_HOST", cfg.Server.Host)
	cfg.Server.Locale = getEnv("LOCALE", cfg.Server.Locale)

	cfg.Database.Driver = getEnv("DB_DRIVER", cfg.Database.Driver)
	cfg.Database.Path = getEnv("DB_PATH", cfg.Database.Path)
	cfg.Database.Host = getEnv("DB_HOST", cfg.Database.Host)
	cfg.Database.Port = getEnv("DB_PORT", cfg.Database.Port)
	cfg.Database.User = getEnv("DB_USER", cfg.Database.User)
	cfg.Database.Password = getEnv("DB_PASSWORD", cfg.Database.Password)
	cfg.Database.DBName = getEnv("DB_NAME", cfg.Database.DBName)
	cfg.Database.SSLMode = getEnv("DB_SSLMODE", cfg.Database.SSLMode)
	cfg.Database.AutoMigration = getEnvAsBool("RUN_AUTO_MIGRATION", cfg.Database.AutoMigration)

	cfg.Redis.Enabled = getEnvAsBool("REDIS_ENABLED", cfg.Redis.Enabled)
	if host := os.Getenv("REDIS_HOST"); host != "" {
		cfg.Redis.Addr = host + ":" + getEnv("REDIS_PORT", "6379")
	}
	cfg.Redis.Password = getEnv("REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = getEnvAsInt("REDIS_DB", cfg.Redis.DB)
	cfg.Redis.ProgressPrefix = getEnv("REDIS_PROGRESS_PREFIX", cfg.Redis.ProgressPrefix)
	cfg.Redis.SubmissionQueue = getEnv("REDIS_SUBMISSION_QUEUE", cfg.Redis.SubmissionQueue)

	cfg.Download.RootDir = getEnv("DOWNLOAD_DIR", cfg.Download.RootDir)
	cfg.Download.UserAgent = getEnv("DOWNLOAD_USER_AGENT", cfg.Download.UserAgent)
	cfg.Download.RequestTimeout = getEnvAsDuration("DOWNLOAD_REQUEST_TIMEOUT", cfg.Download.RequestTimeout)
	cfg.Download.RequestsPerSecond = getEnvAsFloat("DOWNLOAD_RPS", cfg.Download.RequestsPerSecond)
	cfg.Download.PollInterval = getEnvAsDuration("DOWNLOAD_POLL_INTERVAL", cfg.Download.PollInterval)
	cfg.Download.MinFreeBytes = uint64(getEnvAsInt64("DOWNLOAD_MIN_FREE_BYTES", int64(cfg.Download.MinFreeBytes)))
	if v := os.Getenv("DOWNLOAD_UNMETERED_INTERFACES"); v != "" {
		cfg.Download.UnmeteredInterfaces = splitList(v)
	}

	cfg.S3.Enabled = getEnvAsBool("S3_ENABLED", cfg.S3.Enabled)
	cfg.S3.Bucket = getEnv("S3_BUCKET", cfg.S3.Bucket)
	cfg.S3.Region = getEnv("AWS_REGION", cfg.S3.Region)
	cfg.S3.Prefix = getEnv("S3_PREFIX", cfg.S3.Prefix)

	cfg.Cleanup.Schedule = getEnv("CLEANUP_SCHEDULE", cfg.Cleanup.Schedule)
	cfg.Cleanup.PartialMaxAge = getEnvAsDuration("CLEANUP_PARTIAL_MAX_AGE", cfg.Cleanup.PartialMaxAge)

	cfg.Log.Level = getEnv("LOG_LEVEL", cfg.Log.Level)
	cfg.Log.Env = getEnv("APP_ENV", cfg.Log.Env)
}

func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "sqlite", "postgres":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.Database.Driver)
	}
	if c.S3.Enabled && c.S3.Bucket == "" {
		return fmt.Errorf("S3_ENABLED is set but S3_BUCKET is empty")
	}
	if c.Download.RootDir == "" {
		return fmt.Errorf("DOWNLOAD_DIR must not be empty")
	}
	if c.Download.PollInterval <= 0 {
		c.Download.PollInterval = constants.DefaultPollInterval
	}
	return nil
}

// EnsureDirs creates the download root, resolving a relative root against
// the working directory.
func (c *Config) EnsureDirs() error {
	if !filepath.IsAbs(c.Download.RootDir) {
		wd, err := os.Getwd()
		if err != nil {
			return err
		}
		c.Download.RootDir = filepath.Join(wd, c.Download.RootDir)
	}
	return os.MkdirAll(c.Download.RootDir, 0755)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseInt(value, 10, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.ParseDuration(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
