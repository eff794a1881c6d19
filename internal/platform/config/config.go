package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config captures process-level configuration. FromEnv builds it from
// environment variables so main stays lean.
type Config struct {
	Addr          string
	Env           string // "dev" or "prod"; controls log handler choice
	JWTSigningKey string

	// PostgresDSN enables the postgres stores when set; empty means the
	// in-memory stores are used.
	PostgresDSN string

	Redis RedisConfig

	// KafkaSeeds enables the Kafka audit publisher when non-empty.
	KafkaSeeds []string
	AuditTopic string

	Ledger LedgerConfig
}

// RedisConfig configures the optional Redis client used for the
// active-season info cache.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// LedgerConfig points at the external ledger oracle.
type LedgerConfig struct {
	BaseURL string
	// Account is the service's own ledger account; confirmed transfers must
	// be directed to it.
	Account string
	// BalanceRetries bounds the balance-query retry wrapper. Confirmation
	// and transfer calls are never retried here; that policy belongs to the
	// oracle.
	BalanceRetries int
	// TransferFee is the ledger's flat per-transfer fee, charged on top of
	// every withdrawal.
	TransferFee    uint64
	RequestTimeout time.Duration
}

// FromEnv builds a Config from environment variables.
func FromEnv() Config {
	return Config{
		Addr:          envOr("NAMEMINT_ADDR", ":8080"),
		Env:           envOr("NAMEMINT_ENV", "dev"),
		JWTSigningKey: envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		PostgresDSN:   os.Getenv("POSTGRES_DSN"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     envIntOr("REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("REDIS_MIN_IDLE_CONNS", 2),
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		KafkaSeeds: splitNonEmpty(os.Getenv("KAFKA_SEEDS")),
		AuditTopic: envOr("AUDIT_TOPIC", "namemint.audit"),
		Ledger: LedgerConfig{
			BaseURL:        envOr("LEDGER_URL", "http://localhost:9090"),
			Account:        envOr("LEDGER_ACCOUNT", "namemint-treasury"),
			BalanceRetries: envIntOr("LEDGER_BALANCE_RETRIES", 3),
			TransferFee:    uint64(envIntOr("LEDGER_TRANSFER_FEE", 10000)),
			RequestTimeout: 10 * time.Second,
		},
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fallback
	}
	return n
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
