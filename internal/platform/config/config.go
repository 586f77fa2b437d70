package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

// EnvironmentProduction refuses the development secret and an unguarded
// development directory.
const EnvironmentProduction = "production"

const defaultSecret = "dev-secret-key-change-in-production"

// Config is the full runtime configuration of the service.
type Config struct {
	Environment string          `koanf:"environment"`
	Server      Server          `koanf:"server"`
	Log         LogConfig       `koanf:"log"`
	Database    DatabaseConfig  `koanf:"database"`
	Redis       RedisConfig     `koanf:"redis"`
	Kafka       KafkaConfig     `koanf:"kafka"`
	Auth        AuthConfig      `koanf:"auth"`
	Mail        MailConfig      `koanf:"mail"`
	Archive     ArchiveConfig   `koanf:"archive"`
	Reference   ReferenceConfig `koanf:"reference"`
	SideEffects SideEffects     `koanf:"side_effects"`
	Tracing     TracingConfig   `koanf:"tracing"`
}

// Server captures HTTP server level configuration.
type Server struct {
	Addr            string        `koanf:"addr"`
	BaseURL         string        `koanf:"base_url"`
	BodyLimit       int64         `koanf:"body_limit"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type LogConfig struct {
	Level string `koanf:"level"`
}

type DatabaseConfig struct {
	URL             string        `koanf:"url"`
	MaxOpenConns    int           `koanf:"max_open_conns"`
	MaxIdleConns    int           `koanf:"max_idle_conns"`
	ConnMaxLifetime time.Duration `koanf:"conn_max_lifetime"`
	TxTimeout       time.Duration `koanf:"tx_timeout"`
}

// RedisConfig holds the token revocation list and reference cache backend.
// An empty URL selects the in-memory fallbacks.
type RedisConfig struct {
	URL          string        `koanf:"url"`
	PoolSize     int           `koanf:"pool_size"`
	MinIdleConns int           `koanf:"min_idle_conns"`
	DialTimeout  time.Duration `koanf:"dial_timeout"`
	ReadTimeout  time.Duration `koanf:"read_timeout"`
	WriteTimeout time.Duration `koanf:"write_timeout"`
}

// KafkaConfig enables the Kafka side-effect sink when Brokers is set.
type KafkaConfig struct {
	Brokers string `koanf:"brokers"`
	GroupID string `koanf:"group_id"`
}

// AuthConfig selects RS256 when key paths are set, HS256 with Secret otherwise.
// DevPassword, when set, is the shared password of the development directory;
// empty accepts any non-empty password.
type AuthConfig struct {
	Secret         string        `koanf:"secret"`
	PublicKeyPath  string        `koanf:"public_key_path"`
	PrivateKeyPath string        `koanf:"private_key_path"`
	Issuer         string        `koanf:"issuer"`
	TokenTTL       time.Duration `koanf:"token_ttl"`
	DevPassword    string        `koanf:"dev_password"`
}

// MailConfig configures the SMTP relay. An empty Host logs mails instead of
// sending them.
type MailConfig struct {
	Host           string `koanf:"host"`
	Port           int    `koanf:"port"`
	User           string `koanf:"user"`
	Password       string `koanf:"password"`
	From           string `koanf:"from"`
	AlerteN4       string `koanf:"alerte_n4"`
	AlerteRecidive string `koanf:"alerte_recidive"`
}

type ArchiveConfig struct {
	PDFPath string `koanf:"pdf_path"`
}

type ReferenceConfig struct {
	CacheTTL time.Duration `koanf:"cache_ttl"`
}

// SideEffects sizes the post-commit dispatcher.
type SideEffects struct {
	Workers   int           `koanf:"workers"`
	QueueSize int           `koanf:"queue_size"`
	Timeout   time.Duration `koanf:"timeout"`
}

type TracingConfig struct {
	Endpoint    string `koanf:"endpoint"`
	ServiceName string `koanf:"service_name"`
}

// IsProduction reports whether internal details must be hidden from callers.
func (c *Config) IsProduction() bool {
	return c.Environment == EnvironmentProduction
}

// Validate rejects settings that are only acceptable outside production.
func (c *Config) Validate() error {
	if !c.IsProduction() {
		return nil
	}
	if c.Auth.PublicKeyPath == "" && (c.Auth.Secret == "" || c.Auth.Secret == defaultSecret) {
		return fmt.Errorf("production requires JWT_SECRET or an RS256 key pair")
	}
	if c.Auth.DevPassword == "" {
		return fmt.Errorf("production requires AUTH_DEV_PASSWORD for the agent directory")
	}
	return nil
}

// Load layers defaults, the optional YAML file at path and environment
// overrides, in increasing precedence.
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("load config file: %w", err)
		}
	}

	applyDefaults(k)
	applyEnvOverrides(k)

	var cfg Config
	if err := k.UnmarshalWithConf("", &cfg, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	return &cfg, nil
}

// FromEnv loads configuration from CONFIG_FILE (if set) and the environment.
func FromEnv() (*Config, error) {
	return Load(os.Getenv("CONFIG_FILE"))
}

func applyDefaults(k *koanf.Koanf) {
	setDefault(k, "environment", "development")

	setDefault(k, "server.addr", ":3001")
	setDefault(k, "server.base_url", "https://cp-caisse.intranet.banque.tn")
	setDefault(k, "server.body_limit", int64(2<<20))
	setDefault(k, "server.shutdown_timeout", 10*time.Second)

	setDefault(k, "log.level", "info")

	setDefault(k, "database.max_open_conns", 20)
	setDefault(k, "database.max_idle_conns", 5)
	setDefault(k, "database.conn_max_lifetime", 5*time.Minute)
	setDefault(k, "database.tx_timeout", 5*time.Second)

	setDefault(k, "redis.pool_size", 10)
	setDefault(k, "redis.min_idle_conns", 2)
	setDefault(k, "redis.dial_timeout", 5*time.Second)
	setDefault(k, "redis.read_timeout", 3*time.Second)
	setDefault(k, "redis.write_timeout", 3*time.Second)

	setDefault(k, "kafka.group_id", "cp-caisse-side-effects")

	setDefault(k, "auth.secret", defaultSecret)
	setDefault(k, "auth.issuer", "bq-cp-intranet")
	setDefault(k, "auth.token_ttl", 8*time.Hour)

	setDefault(k, "mail.port", 587)
	setDefault(k, "mail.from", `"Contrôle Permanent BQ" <noreply-cp@banque.tn>`)
	setDefault(k, "mail.alerte_n4", "direction.generale@banque.tn")
	setDefault(k, "mail.alerte_recidive", "rh@banque.tn")

	setDefault(k, "archive.pdf_path", "./archives/pdf")

	setDefault(k, "reference.cache_ttl", 24*time.Hour)

	setDefault(k, "side_effects.workers", 4)
	setDefault(k, "side_effects.queue_size", 256)
	setDefault(k, "side_effects.timeout", 15*time.Second)

	setDefault(k, "tracing.service_name", "cp-caisse")
}

func applyEnvOverrides(k *koanf.Koanf) {
	setString(k, "environment", "ENVIRONMENT")

	if port := os.Getenv("PORT"); port != "" {
		k.Set("server.addr", ":"+strings.TrimPrefix(port, ":"))
	}
	setString(k, "server.addr", "CP_ADDR")
	setString(k, "server.base_url", "BASE_URL")

	setString(k, "log.level", "LOG_LEVEL")

	setString(k, "database.url", "DATABASE_URL")
	setDuration(k, "database.tx_timeout", "TX_TIMEOUT")

	setString(k, "redis.url", "REDIS_URL")

	setString(k, "kafka.brokers", "KAFKA_BROKERS")
	setString(k, "kafka.group_id", "KAFKA_GROUP_ID")

	setString(k, "auth.secret", "JWT_SECRET")
	setString(k, "auth.public_key_path", "JWT_PUBLIC_KEY_PATH")
	setString(k, "auth.private_key_path", "JWT_PRIVATE_KEY_PATH")
	setString(k, "auth.issuer", "JWT_ISSUER")
	setDuration(k, "auth.token_ttl", "JWT_EXPIRES_IN")
	setString(k, "auth.dev_password", "AUTH_DEV_PASSWORD")

	setString(k, "mail.host", "SMTP_HOST")
	setInt(k, "mail.port", "SMTP_PORT")
	setString(k, "mail.user", "SMTP_USER")
	setString(k, "mail.password", "SMTP_PASS")
	setString(k, "mail.from", "SMTP_FROM")
	setString(k, "mail.alerte_n4", "MAIL_ALERTE_N4")
	setString(k, "mail.alerte_recidive", "MAIL_ALERTE_RECIDIVE")

	setString(k, "archive.pdf_path", "PDF_ARCHIVE_PATH")

	setDuration(k, "reference.cache_ttl", "REFERENCE_CACHE_TTL")

	setInt(k, "side_effects.workers", "SIDE_EFFECT_WORKERS")
	setInt(k, "side_effects.queue_size", "SIDE_EFFECT_QUEUE_SIZE")
	setDuration(k, "side_effects.timeout", "SIDE_EFFECT_TIMEOUT")

	setString(k, "tracing.endpoint", "OTEL_EXPORTER_OTLP_ENDPOINT")
}

// setDefault only sets the value if the key doesn't already exist
func setDefault(k *koanf.Koanf, key string, value any) {
	if !k.Exists(key) {
		_ = k.Set(key, value)
	}
}

func setString(k *koanf.Koanf, key, env string) {
	if v := os.Getenv(env); v != "" {
		_ = k.Set(key, v)
	}
}

// setInt ignores non-numeric and non-positive values so the default stands.
func setInt(k *koanf.Koanf, key, env string) {
	if n, err := strconv.Atoi(os.Getenv(env)); err == nil && n > 0 {
		_ = k.Set(key, n)
	}
}

// setDuration ignores unparsable values so the default stands.
func setDuration(k *koanf.Koanf, key, env string) {
	if d, err := time.ParseDuration(os.Getenv(env)); err == nil && d > 0 {
		_ = k.Set(key, d)
	}
}
