package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Env       string          `mapstructure:"env"`
	Server    ServerConfig    `mapstructure:"server"`
	Database  DatabaseConfig  `mapstructure:"database"`
	Auth      AuthConfig      `mapstructure:"auth"`
	Upload    UploadConfig    `mapstructure:"upload"`
	Redis     RedisConfig     `mapstructure:"redis"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Report    ReportConfig    `mapstructure:"report"`
	Events    EventsConfig    `mapstructure:"events"`
	Email     EmailConfig     `mapstructure:"email"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

type ServerConfig struct {
	Port         string   `mapstructure:"port"`
	ReadTimeout  int      `mapstructure:"read_timeout_seconds"`
	WriteTimeout int      `mapstructure:"write_timeout_seconds"`
	IdleTimeout  int      `mapstructure:"idle_timeout_seconds"`
	CORSOrigins  []string `mapstructure:"cors_origins"`
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            string `mapstructure:"port"`
	User            string `mapstructure:"user"`
	Password        string `mapstructure:"password"`
	DBName          string `mapstructure:"name"`
	SSLMode         string `mapstructure:"ssl_mode"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime_seconds"`
	ConnMaxIdleTime int    `mapstructure:"conn_max_idle_time_seconds"`
	QueryTimeout    int    `mapstructure:"query_timeout_seconds"`
}

type AuthConfig struct {
	JWTSecret        string `mapstructure:"jwt_secret"`
	Issuer           string `mapstructure:"issuer"`
	AccessTTLMinutes int    `mapstructure:"access_ttl_minutes"`
	RefreshTTLHours  int    `mapstructure:"refresh_ttl_hours"`
	PasswordResetURL string `mapstructure:"password_reset_url"`
	BcryptCost       int    `mapstructure:"bcrypt_cost"`
}

type UploadConfig struct {
	Dir         string `mapstructure:"dir"`
	PublicPath  string `mapstructure:"public_path"`
	MaxFileSize int64  `mapstructure:"max_file_size"`
	MaxFiles    int    `mapstructure:"max_files"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type RateLimitConfig struct {
	Requests      int `mapstructure:"requests"`
	WindowSeconds int `mapstructure:"window_seconds"`
}

type ReportConfig struct {
	CacheTTLSeconds int `mapstructure:"cache_ttl_seconds"`
}

type EventsConfig struct {
	Driver string      `mapstructure:"driver"`
	NATS   NATSConfig  `mapstructure:"nats"`
	Kafka  KafkaConfig `mapstructure:"kafka"`
}

type NATSConfig struct {
	URL           string `mapstructure:"url"`
	SubjectPrefix string `mapstructure:"subject_prefix"`
}

type KafkaConfig struct {
	Brokers []string `mapstructure:"brokers"`
	Topic   string   `mapstructure:"topic"`
}

type EmailConfig struct {
	SendgridAPIKey string `mapstructure:"sendgrid_api_key"`
	AppName        string `mapstructure:"app_name"`
	FromEmail      string `mapstructure:"from_email"`
	Workers        int    `mapstructure:"workers"`
	QueueSize      int    `mapstructure:"queue_size"`
}

type TelemetryConfig struct {
	Enabled  bool   `mapstructure:"enabled"`
	Endpoint string `mapstructure:"endpoint"`
}

func (c DatabaseConfig) QueryTimeoutDuration() time.Duration {
	return time.Duration(c.QueryTimeout) * time.Second
}

func (c ReportConfig) CacheTTL() time.Duration {
	return time.Duration(c.CacheTTLSeconds) * time.Second
}

// SecureCookies reports whether auth cookies need the Secure flag.
func (c *Config) SecureCookies() bool {
	switch c.Env {
	case "production", "prod", "gcp-gke":
		return true
	}
	return false
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("env", "local")
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.read_timeout_seconds", 15)
	v.SetDefault("server.write_timeout_seconds", 30)
	v.SetDefault("server.idle_timeout_seconds", 60)
	v.SetDefault("server.cors_origins", []string{"http://localhost:5173"})
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", "5432")
	v.SetDefault("database.name", "achievements")
	v.SetDefault("database.query_timeout_seconds", 5)
	v.SetDefault("auth.issuer", "achievement-service")
	v.SetDefault("auth.access_ttl_minutes", 15)
	v.SetDefault("auth.refresh_ttl_hours", 168)
	v.SetDefault("auth.password_reset_url", "http://localhost:5173/reset-password")
	v.SetDefault("upload.dir", "./uploads")
	v.SetDefault("upload.public_path", "/uploads")
	v.SetDefault("upload.max_file_size", 5*1024*1024)
	v.SetDefault("upload.max_files", 5)
	v.SetDefault("rate_limit.requests", 20)
	v.SetDefault("rate_limit.window_seconds", 60)
	v.SetDefault("report.cache_ttl_seconds", 60)
	v.SetDefault("events.driver", "none")
	v.SetDefault("events.nats.subject_prefix", "achievements")
	v.SetDefault("events.kafka.topic", "achievement-events")
	v.SetDefault("email.app_name", "SOEIT Achievement Portal")
	v.SetDefault("email.from_email", "no-reply@localhost")
	v.SetDefault("email.workers", 2)
	v.SetDefault("email.queue_size", 100)
	v.SetDefault("telemetry.enabled", false)
	v.SetDefault("telemetry.endpoint", "otel-collector.infra.svc.cluster.local:4317")
}

func Load() (*Config, error) {
	// Get environment from ENV, default to "local"
	env := os.Getenv("ENV")
	if env == "" {
		env = "local"
	}

	v := viper.New()
	setDefaults(v)
	v.Set("env", env)

	v.SetConfigName(fmt.Sprintf("config.%s", env))
	v.SetConfigType("yaml")
	v.AddConfigPath("/configs")      // Kubernetes mount
	v.AddConfigPath("./configs")     // repo root
	v.AddConfigPath("../configs")    // IDE from cmd/
	v.AddConfigPath("../../configs") // package tests

	// Config file is optional - continue with ENV variables
	if err := v.ReadInConfig(); err != nil {
		fmt.Printf("No config file found (will use ENV variables): %v\n", err)
	}

	// Environment variables take precedence over the config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	_ = v.BindEnv("database.user", "DB_USER")
	_ = v.BindEnv("database.password", "DB_PASSWORD")
	_ = v.BindEnv("database.host", "DB_HOST")
	_ = v.BindEnv("auth.jwt_secret", "JWT_SECRET")
	_ = v.BindEnv("email.sendgrid_api_key", "SENDGRID_API_KEY")
	_ = v.BindEnv("redis.addr", "REDIS_ADDR")
	_ = v.BindEnv("redis.password", "REDIS_PASSWORD")
	_ = v.BindEnv("telemetry.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if config.Auth.JWTSecret == "" {
		return nil, fmt.Errorf("auth.jwt_secret (JWT_SECRET) is required")
	}

	return &config, nil
}
