// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// GRPCAddr is the address the gRPC server listens on (e.g. :8080).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Empty selects the in-memory store (not allowed in production).
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// DBLockTimeout bounds how long verify/reset wait for the challenge row lock (e.g. "5s").
	DBLockTimeout string `mapstructure:"DB_LOCK_TIMEOUT"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// LogFormat is "text" (colored, for terminals) or "json".
	LogFormat string `mapstructure:"LOG_FORMAT"`

	// TokenSigningSecret keys the HS256 session token signature. Required.
	TokenSigningSecret string `mapstructure:"TOKEN_SIGNING_SECRET"`
	// TokenIssuer is the iss claim written to and required on session tokens.
	TokenIssuer string `mapstructure:"TOKEN_ISSUER"`
	// OTPHashSecret keys the code digest; falls back to TokenSigningSecret when empty.
	OTPHashSecret string `mapstructure:"OTP_HASH_SECRET"`

	// OTPTTLMinutes is the lifetime of an issued code.
	OTPTTLMinutes int `mapstructure:"OTP_TTL_MINUTES"`
	// OTPMaxAttempts is the number of wrong submissions after which a challenge is consumed.
	OTPMaxAttempts int `mapstructure:"OTP_MAX_ATTEMPTS"`
	// OTPRatePerIdentityPurpose10Min bounds issuance per email+purpose in a 10 minute window.
	OTPRatePerIdentityPurpose10Min int `mapstructure:"OTP_RATE_PER_IDENTITY_PURPOSE_10MIN"`
	// OTPRatePerIdentityDay bounds issuance per email across purposes in 24 hours.
	OTPRatePerIdentityDay int `mapstructure:"OTP_RATE_PER_IDENTITY_DAY"`
	// OTPRatePerOriginIP10Min bounds issuance per origin IP in a 10 minute window.
	OTPRatePerOriginIP10Min int `mapstructure:"OTP_RATE_PER_ORIGIN_IP_10MIN"`
	// OTPReturnToClient when true enables dev OTP mode: no email, codes kept for DevService/GetOTP.
	// Must not be true when Env is production.
	OTPReturnToClient bool `mapstructure:"OTP_RETURN_TO_CLIENT"`

	// BcryptCost is the bcrypt cost factor (4–31); default 12.
	BcryptCost int `mapstructure:"BCRYPT_COST"`
	// RootAdminKey must be presented at registration to create the single root admin. Empty disables root registration.
	RootAdminKey string `mapstructure:"ROOT_ADMIN_KEY"`

	// SMTP delivery. When SMTPHost is empty codes are not emailed.
	SMTPHost     string `mapstructure:"SMTP_HOST"`
	SMTPPort     int    `mapstructure:"SMTP_PORT"`
	SMTPUsername string `mapstructure:"SMTP_USERNAME"`
	SMTPPassword string `mapstructure:"SMTP_PASSWORD"`
	SMTPFrom     string `mapstructure:"SMTP_FROM"`
	SMTPFromName string `mapstructure:"SMTP_FROM_NAME"`
	SMTPTLS      bool   `mapstructure:"SMTP_TLS"`

	// RPCRateLimitPerMinute is the per-client-IP request rate for public OTP and auth RPCs.
	RPCRateLimitPerMinute int `mapstructure:"RPC_RATE_LIMIT_PER_MINUTE"`
	// RPCRateLimitBurst is the burst size for the per-client-IP limiter.
	RPCRateLimitBurst int `mapstructure:"RPC_RATE_LIMIT_BURST"`
	// TrustForwardedIdentity makes the server accept x-user-id / x-user-root metadata set by the edge
	// instead of validating bearer tokens itself.
	TrustForwardedIdentity bool `mapstructure:"TRUST_FORWARDED_IDENTITY"`

	// OTLPEndpoint is the OpenTelemetry collector gRPC endpoint. Empty disables export.
	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	// OTLPInsecure disables TLS to the collector.
	OTLPInsecure bool `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`

	// Telemetry (optional). When Kafka brokers are set, gRPC server emits telemetry to Kafka.
	// TelemetryKafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	TelemetryKafkaBrokers string `mapstructure:"KAFKA_BROKERS"`
	// TelemetryKafkaTopic is the Kafka topic for telemetry events.
	TelemetryKafkaTopic string `mapstructure:"TELEMETRY_KAFKA_TOPIC"`

	// Worker-only: Loki URL for the telemetry worker to push logs (e.g. http://localhost:3100).
	LokiURL string `mapstructure:"LOKI_URL"`
	// KafkaGroupID is the consumer group ID for the telemetry worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Returns an error if required fields are invalid.
func Load() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if err := cfg.validateServer(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// LoadWorker loads config for the telemetry worker. Only the Kafka and Loki
// settings are validated; signing secrets are not needed.
func LoadWorker() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if len(cfg.TelemetryKafkaBrokersList()) == 0 {
		return nil, errors.New("config: KAFKA_BROKERS must be set for the worker")
	}
	if cfg.LokiURL == "" {
		return nil, errors.New("config: LOKI_URL must be set for the worker")
	}
	if cfg.TelemetryKafkaTopic == "" {
		return nil, errors.New("config: TELEMETRY_KAFKA_TOPIC must be set for the worker")
	}
	return cfg, nil
}

// LoadMigrate loads config for the migrate and seed commands. Only
// DATABASE_URL is required.
func LoadMigrate() (*Config, error) {
	cfg, err := read()
	if err != nil {
		return nil, err
	}
	if cfg.DatabaseURL == "" {
		return nil, errors.New("config: DATABASE_URL must be set; create a .env from .env.example or export it")
	}
	return cfg, nil
}

func read() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("GRPC_ADDR", ":8080")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_LOCK_TIMEOUT", "5s")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "text")
	v.SetDefault("TOKEN_SIGNING_SECRET", "")
	v.SetDefault("TOKEN_ISSUER", "taskmgr-auth")
	v.SetDefault("OTP_HASH_SECRET", "")
	v.SetDefault("OTP_TTL_MINUTES", 10)
	v.SetDefault("OTP_MAX_ATTEMPTS", 5)
	v.SetDefault("OTP_RATE_PER_IDENTITY_PURPOSE_10MIN", 3)
	v.SetDefault("OTP_RATE_PER_IDENTITY_DAY", 10)
	v.SetDefault("OTP_RATE_PER_ORIGIN_IP_10MIN", 15)
	v.SetDefault("OTP_RETURN_TO_CLIENT", false)
	v.SetDefault("BCRYPT_COST", 12)
	v.SetDefault("ROOT_ADMIN_KEY", "")
	v.SetDefault("SMTP_HOST", "")
	v.SetDefault("SMTP_PORT", 587)
	v.SetDefault("SMTP_USERNAME", "")
	v.SetDefault("SMTP_PASSWORD", "")
	v.SetDefault("SMTP_FROM", "no-reply@taskmgr.local")
	v.SetDefault("SMTP_FROM_NAME", "Task Manager")
	v.SetDefault("SMTP_TLS", true)
	v.SetDefault("RPC_RATE_LIMIT_PER_MINUTE", 20)
	v.SetDefault("RPC_RATE_LIMIT_BURST", 20)
	v.SetDefault("TRUST_FORWARDED_IDENTITY", false)
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("TELEMETRY_KAFKA_TOPIC", "taskmgr-telemetry")
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("LOKI_URL", "")
	v.SetDefault("KAFKA_GROUP_ID", "taskmgr-telemetry-worker")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (cfg *Config) validateServer() error {
	if cfg.GRPCAddr == "" {
		return errors.New("config: GRPC_ADDR must be set")
	}
	if strings.TrimSpace(cfg.TokenSigningSecret) == "" {
		return errors.New("config: TOKEN_SIGNING_SECRET must be set")
	}
	if cfg.OTPHashSecret == "" {
		cfg.OTPHashSecret = cfg.TokenSigningSecret
	}
	if cfg.IsProduction() {
		if cfg.OTPReturnToClient {
			return errors.New("config: OTP_RETURN_TO_CLIENT must not be true when APP_ENV=production")
		}
		if cfg.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL must be set when APP_ENV=production")
		}
	}

	if cfg.OTPTTLMinutes <= 0 {
		return errors.New("config: OTP_TTL_MINUTES must be positive")
	}
	if cfg.OTPMaxAttempts <= 0 {
		return errors.New("config: OTP_MAX_ATTEMPTS must be positive")
	}
	if cfg.OTPRatePerIdentityPurpose10Min <= 0 || cfg.OTPRatePerIdentityDay <= 0 || cfg.OTPRatePerOriginIP10Min <= 0 {
		return errors.New("config: OTP rate limits must be positive")
	}
	if _, err := time.ParseDuration(cfg.DBLockTimeout); err != nil {
		return errors.New("config: DB_LOCK_TIMEOUT must be a duration (e.g. 5s)")
	}

	if cfg.BcryptCost == 0 {
		cfg.BcryptCost = 12
	}
	if cfg.BcryptCost < 4 || cfg.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if cfg.SMTPHost != "" && (cfg.SMTPPort <= 0 || cfg.SMTPPort > 65535) {
		return errors.New("config: SMTP_PORT must be a valid port")
	}

	return nil
}

// IsProduction reports whether APP_ENV is production.
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// OTPTTL returns the code lifetime as a duration.
func (c *Config) OTPTTL() time.Duration {
	return time.Duration(c.OTPTTLMinutes) * time.Minute
}

// LockTimeout parses DBLockTimeout. Returns 5s if unset or invalid.
func (c *Config) LockTimeout() time.Duration {
	d, err := time.ParseDuration(c.DBLockTimeout)
	if err != nil || d <= 0 {
		return 5 * time.Second
	}
	return d
}

// TelemetryKafkaBrokersList returns Kafka broker addresses from the comma-separated config.
// Used to decide if telemetry is enabled (non-empty list) and to create the producer.
func (c *Config) TelemetryKafkaBrokersList() []string {
	if c == nil || c.TelemetryKafkaBrokers == "" {
		return nil
	}
	parts := strings.Split(c.TelemetryKafkaBrokers, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
