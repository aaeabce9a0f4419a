package config

import (
	"database/sql"
	"errors"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション設定を表す
type Config struct {
	Env       string
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	RabbitMQ  RabbitMQConfig
	RateLimit RateLimitConfig
	Audit     AuditConfig
	Metrics   MetricsConfig
}

// ServerConfig はサーバー設定
type ServerConfig struct {
	Port         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// DatabaseConfig はデータベース設定
type DatabaseConfig struct {
	Driver         string // postgres または sqlite
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	SQLitePath     string
	Isolation      string // read_committed または serializable
	MigrationsPath string // 空なら組み込みのマイグレーションを使う
	MaxOpenConns   int
}

// RedisConfig はRedis設定
type RedisConfig struct {
	Enabled  bool
	Host     string
	Port     string
	Password string
	DB       int
}

// AuthConfig はJWT検証の設定
type AuthConfig struct {
	JWTSecret string
}

// RabbitMQConfig は予約通知の送信先。URLが空なら通知しない
type RabbitMQConfig struct {
	URL string
}

// RateLimitConfig は予約APIのユーザー単位レート制限
type RateLimitConfig struct {
	Requests int
	Window   time.Duration
}

// AuditConfig は在庫監査ワーカーの設定
type AuditConfig struct {
	Interval time.Duration
	LockTTL  time.Duration
}

// MetricsConfig は /metrics の Basic 認証。どちらかが空なら認証しない
type MetricsConfig struct {
	User     string
	Password string
}

// AuthEnabled は Basic 認証が有効かを返す
func (c MetricsConfig) AuthEnabled() bool {
	return c.User != "" && c.Password != ""
}

const (
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"

	IsolationReadCommitted = "read_committed"
	IsolationSerializable  = "serializable"
)

// 開発用の既定シークレット。本番では使わせない
const defaultJWTSecret = "dev-secret-change-me"

// ErrJWTSecretRequired は本番環境で JWT_SECRET が未設定（または既定値のまま）のとき返す
var ErrJWTSecretRequired = errors.New("本番環境では JWT_SECRET の設定が必須です")

// Load は .env（存在すれば）と環境変数から設定を読み込む
func Load() (*Config, error) {
	// .env がなくてもエラーにしない
	_ = godotenv.Load()

	cfg := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:         getEnv("PORT", "8080"),
			ReadTimeout:  getDurationEnv("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout: getDurationEnv("SERVER_WRITE_TIMEOUT", 30*time.Second),
		},
		Database: DatabaseConfig{
			Driver:         getEnv("DB_DRIVER", DriverPostgres),
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", "postgres"),
			DBName:         getEnv("DB_NAME", "seat_booking"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			SQLitePath:     getEnv("DB_SQLITE_PATH", "seat_booking.db"),
			Isolation:      getEnv("DB_ISOLATION", IsolationReadCommitted),
			MigrationsPath: getEnv("DB_MIGRATIONS_PATH", ""),
			MaxOpenConns:   getIntEnv("DB_MAX_OPEN_CONNS", 25),
		},
		Redis: RedisConfig{
			Enabled:  getBoolEnv("REDIS_ENABLED", true),
			Host:     getEnv("REDIS_HOST", "localhost"),
			Port:     getEnv("REDIS_PORT", "6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getIntEnv("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			JWTSecret: getEnv("JWT_SECRET", defaultJWTSecret),
		},
		RabbitMQ: RabbitMQConfig{
			URL: getEnv("RABBITMQ_URL", ""),
		},
		RateLimit: RateLimitConfig{
			Requests: getIntEnv("RATE_LIMIT_REQUESTS", 20),
			Window:   getDurationEnv("RATE_LIMIT_WINDOW", time.Minute),
		},
		Audit: AuditConfig{
			Interval: getDurationEnv("AUDIT_INTERVAL", 5*time.Minute),
			LockTTL:  getDurationEnv("AUDIT_LOCK_TTL", time.Minute),
		},
		Metrics: MetricsConfig{
			User:     getEnv("METRICS_USER", ""),
			Password: getEnv("METRICS_PASSWORD", ""),
		},
	}

	// PaaS 形式の接続URLが与えられたら個別設定より優先する
	if raw := os.Getenv("DATABASE_URL"); raw != "" {
		applyDatabaseURL(&cfg.Database, raw)
	}
	if raw := os.Getenv("REDIS_URL"); raw != "" {
		applyRedisURL(&cfg.Redis, raw)
	}

	if cfg.IsProduction() && cfg.Auth.JWTSecret == defaultJWTSecret {
		return nil, ErrJWTSecretRequired
	}
	return cfg, nil
}

// IsProduction は APP_ENV=production かを返す
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// DSN はPostgreSQL接続文字列を返す
func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" port=" + c.Port +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.DBName +
		" sslmode=" + c.SSLMode
}

// TxOptions は設定された分離レベルに対応する sql.TxOptions を返す
// read_committed はドライバのデフォルトを使うため nil
func (c *DatabaseConfig) TxOptions() *sql.TxOptions {
	if strings.EqualFold(c.Isolation, IsolationSerializable) {
		return &sql.TxOptions{Isolation: sql.LevelSerializable}
	}
	return nil
}

// Addr はRedis接続アドレスを返す
func (c *RedisConfig) Addr() string {
	return c.Host + ":" + c.Port
}

func applyDatabaseURL(c *DatabaseConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	c.Driver = DriverPostgres
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		c.User = u.User.Username()
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if name := strings.TrimPrefix(u.Path, "/"); name != "" {
		c.DBName = name
	}
	c.SSLMode = "require"
	if mode := u.Query().Get("sslmode"); mode != "" {
		c.SSLMode = mode
	}
}

func applyRedisURL(c *RedisConfig, raw string) {
	u, err := url.Parse(raw)
	if err != nil || u.Host == "" {
		return
	}
	c.Host = u.Hostname()
	if p := u.Port(); p != "" {
		c.Port = p
	}
	if u.User != nil {
		if pw, ok := u.User.Password(); ok {
			c.Password = pw
		}
	}
	if db, err := strconv.Atoi(strings.TrimPrefix(u.Path, "/")); err == nil {
		c.DB = db
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
