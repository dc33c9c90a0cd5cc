package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type AppConfig struct {
	App       AppSettings       `mapstructure:"app"`
	Postgres  PostgresSettings  `mapstructure:"postgres"`
	Redis     RedisSettings     `mapstructure:"redis"`
	Kafka     KafkaSettings     `mapstructure:"kafka"`
	Token     TokenSettings     `mapstructure:"token"`
	Session   SessionSettings   `mapstructure:"session"`
	RateLimit RateLimitSettings `mapstructure:"rate_limit"`
	Telemetry TelemetrySettings `mapstructure:"telemetry"`
}

type AppSettings struct {
	Name string `mapstructure:"name"`
	Env  string `mapstructure:"env"`
	Host string `mapstructure:"host"`
	Port int    `mapstructure:"port"`
}

type PostgresSettings struct {
	Host              string        `mapstructure:"host"`
	Port              int           `mapstructure:"port"`
	User              string        `mapstructure:"user"`
	Password          string        `mapstructure:"password"`
	Database          string        `mapstructure:"database"`
	SSLMode           string        `mapstructure:"ssl_mode"`
	MaxConns          int32         `mapstructure:"max_conns"`
	MinConns          int32         `mapstructure:"min_conns"`
	MaxConnLifetime   time.Duration `mapstructure:"max_conn_lifetime"`
	MaxConnIdleTime   time.Duration `mapstructure:"max_conn_idle_time"`
	HealthCheckPeriod time.Duration `mapstructure:"health_check_period"`
}

// RedisSettings configures the shared store connection and namespaces.
type RedisSettings struct {
	Host          string `mapstructure:"host"`
	Port          int    `mapstructure:"port"`
	DB            int    `mapstructure:"db"`
	Password      string `mapstructure:"password"`
	TLSEnabled    bool   `mapstructure:"tls_enabled"`
	SessionPrefix string `mapstructure:"session_prefix"`
	CachePrefix   string `mapstructure:"cache_prefix"`
	LimitPrefix   string `mapstructure:"limit_prefix"`
	EventPrefix   string `mapstructure:"event_prefix"`
}

// KafkaSettings configures the audit event producer.
type KafkaSettings struct {
	Brokers     []string `mapstructure:"brokers"`
	TopicPrefix string   `mapstructure:"topic_prefix"`
	Async       bool     `mapstructure:"async"`
}

// TokenSettings configures bearer credential signing.
type TokenSettings struct {
	Secret string        `mapstructure:"secret"`
	Issuer string        `mapstructure:"issuer"`
	TTL    time.Duration `mapstructure:"ttl"`
}

// SessionSettings configures session lifetime and sliding extension.
type SessionSettings struct {
	TTL             time.Duration `mapstructure:"ttl"`
	SlidingExtend   bool          `mapstructure:"sliding_extend"`
	ExtendThreshold time.Duration `mapstructure:"extend_threshold"`
}

// RateLimitSettings configures the named throttling policies and the
// progressive slow-down layer.
type RateLimitSettings struct {
	LoginMaxAttempts    int           `mapstructure:"login_max_attempts"`
	LoginWindow         time.Duration `mapstructure:"login_window"`
	RegisterMaxAttempts int           `mapstructure:"register_max_attempts"`
	RegisterWindow      time.Duration `mapstructure:"register_window"`
	ResetMaxAttempts    int           `mapstructure:"reset_max_attempts"`
	ResetWindow         time.Duration `mapstructure:"reset_window"`
	GeneralMaxAttempts  int           `mapstructure:"general_max_attempts"`
	GeneralWindow       time.Duration `mapstructure:"general_window"`
	SlowDownAfter       int           `mapstructure:"slow_down_after"`
	SlowDownStep        time.Duration `mapstructure:"slow_down_step"`
	SlowDownMax         time.Duration `mapstructure:"slow_down_max"`
}

type TelemetrySettings struct {
	OTLPEndpoint string  `mapstructure:"otlp_endpoint"`
	ServiceName  string  `mapstructure:"service_name"`
	SamplingRate float64 `mapstructure:"sampling_rate"`
	Enabled      bool    `mapstructure:"enabled"`
}

func Load() (*AppConfig, error) {
	v := viper.New()

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.SetEnvPrefix("SEPULKI")

	setDefaults(v)

	if err := bindEnvs(v, []string{
		"app.name",
		"app.env",
		"app.host",
		"app.port",
		"postgres.host",
		"postgres.port",
		"postgres.user",
		"postgres.password",
		"postgres.database",
		"postgres.ssl_mode",
		"postgres.max_conns",
		"postgres.min_conns",
		"postgres.max_conn_lifetime",
		"postgres.max_conn_idle_time",
		"postgres.health_check_period",
		"redis.host",
		"redis.port",
		"redis.db",
		"redis.password",
		"redis.tls_enabled",
		"redis.session_prefix",
		"redis.cache_prefix",
		"redis.limit_prefix",
		"redis.event_prefix",
		"kafka.brokers",
		"kafka.topic_prefix",
		"kafka.async",
		"token.secret",
		"token.issuer",
		"token.ttl",
		"session.ttl",
		"session.sliding_extend",
		"session.extend_threshold",
		"rate_limit.login_max_attempts",
		"rate_limit.login_window",
		"rate_limit.register_max_attempts",
		"rate_limit.register_window",
		"rate_limit.reset_max_attempts",
		"rate_limit.reset_window",
		"rate_limit.general_max_attempts",
		"rate_limit.general_window",
		"rate_limit.slow_down_after",
		"rate_limit.slow_down_step",
		"rate_limit.slow_down_max",
		"telemetry.otlp_endpoint",
		"telemetry.service_name",
		"telemetry.sampling_rate",
		"telemetry.enabled",
	}); err != nil {
		return nil, err
	}

	v.AutomaticEnv()

	var cfg AppConfig
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("app.name", "hammer-gate")
	v.SetDefault("app.env", "development")
	v.SetDefault("app.host", "0.0.0.0")
	v.SetDefault("app.port", 4000)

	v.SetDefault("postgres.host", "localhost")
	v.SetDefault("postgres.port", 5432)
	v.SetDefault("postgres.user", "smith")
	v.SetDefault("postgres.password", "forge_dev")
	v.SetDefault("postgres.database", "sepulki")
	v.SetDefault("postgres.ssl_mode", "disable")
	v.SetDefault("postgres.max_conns", 20)
	v.SetDefault("postgres.min_conns", 2)
	v.SetDefault("postgres.max_conn_lifetime", "60m")
	v.SetDefault("postgres.max_conn_idle_time", "15m")
	v.SetDefault("postgres.health_check_period", "30s")

	v.SetDefault("redis.host", "localhost")
	v.SetDefault("redis.port", 6379)
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.tls_enabled", false)
	v.SetDefault("redis.session_prefix", "session")
	v.SetDefault("redis.cache_prefix", "cache")
	v.SetDefault("redis.limit_prefix", "ratelimit")
	v.SetDefault("redis.event_prefix", "events")

	v.SetDefault("kafka.brokers", []string{})
	v.SetDefault("kafka.topic_prefix", "sepulki")
	v.SetDefault("kafka.async", true)

	v.SetDefault("token.secret", "")
	v.SetDefault("token.issuer", "hammer-gate")
	v.SetDefault("token.ttl", "24h")

	v.SetDefault("session.ttl", "24h")
	v.SetDefault("session.sliding_extend", true)
	v.SetDefault("session.extend_threshold", "1h")

	v.SetDefault("rate_limit.login_max_attempts", 5)
	v.SetDefault("rate_limit.login_window", "15m")
	v.SetDefault("rate_limit.register_max_attempts", 3)
	v.SetDefault("rate_limit.register_window", "1h")
	v.SetDefault("rate_limit.reset_max_attempts", 3)
	v.SetDefault("rate_limit.reset_window", "1h")
	v.SetDefault("rate_limit.general_max_attempts", 100)
	v.SetDefault("rate_limit.general_window", "15m")
	v.SetDefault("rate_limit.slow_down_after", 30)
	v.SetDefault("rate_limit.slow_down_step", "200ms")
	v.SetDefault("rate_limit.slow_down_max", "10s")

	v.SetDefault("telemetry.otlp_endpoint", "http://localhost:4318")
	v.SetDefault("telemetry.service_name", "hammer-gate")
	v.SetDefault("telemetry.sampling_rate", 1.0)
	v.SetDefault("telemetry.enabled", false)
}

func bindEnvs(v *viper.Viper, keys []string) error {
	for _, key := range keys {
		if err := v.BindEnv(key); err != nil {
			return fmt.Errorf("bind env %s: %w", key, err)
		}
	}
	return nil
}
