package config

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var ErrMissingSessionKeys = errors.New("SESSION_KEYS must be set outside dev")

type Config struct {
	Env   string
	Port  int
	DBURL string

	// Session cookie. The first key signs, every key verifies.
	SessionKeys   []string
	SessionCookie string
	SessionMaxAge time.Duration
	SessionSecure bool

	RedisAddr     string
	RedisPassword string
	RedisDB       int

	Ledger LedgerConfig

	OTLPEndpoint   string
	LoginRateLimit int

	// Short-lived binaries push their metrics here; empty disables pushing.
	PushgatewayURL string

	WorkerHealthPort int
}

type LedgerConfig struct {
	ConfigDir       string
	WalletDir       string
	CryptoDir       string
	OrgDomain       string
	AsLocalhost     bool
	PermissionTx    string
	ConnectTimeout  time.Duration
	EvaluateTimeout time.Duration
}

// Load reads the process environment, after merging an optional .env file.
func Load() (Config, error) {
	cfg := LoadShared()

	if len(cfg.SessionKeys) == 0 {
		if cfg.Env != "dev" {
			return Config{}, ErrMissingSessionKeys
		}

		key, err := ephemeralKey()
		if err != nil {
			return Config{}, fmt.Errorf("generate dev session key: %w", err)
		}
		cfg.SessionKeys = []string{key}
	}

	return cfg, nil
}

// LoadShared is Load without the session key requirement, for the binaries
// that serve no pages.
func LoadShared() Config {
	// a missing .env file is fine, real deployments use the environment
	_ = godotenv.Load()

	env := getEnv("APP_ENV", "dev")

	cfg := Config{
		Env:           env,
		Port:          getEnvInt("PORT", 3000),
		DBURL:         getEnv("DATABASE_URL", buildDBURL()),
		SessionKeys:   splitList(os.Getenv("SESSION_KEYS")),
		SessionCookie: getEnv("SESSION_COOKIE", "session"),
		SessionMaxAge: time.Duration(getEnvInt("SESSION_MAX_AGE_SECONDS", 3600)) * time.Second,
		SessionSecure: getEnvBool("SESSION_SECURE", env != "dev"),

		RedisAddr:     getEnv("REDIS_ADDR", "127.0.0.1:6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),

		Ledger: LedgerConfig{
			ConfigDir:       getEnv("LEDGER_CONFIG_DIR", "./config"),
			WalletDir:       getEnv("LEDGER_WALLET_DIR", "./wallets"),
			CryptoDir:       getEnv("LEDGER_CRYPTO_DIR", "./organizations"),
			OrgDomain:       getEnv("LEDGER_ORG_DOMAIN", "example.com"),
			AsLocalhost:     getEnvBool("LEDGER_AS_LOCALHOST", true),
			PermissionTx:    getEnv("LEDGER_PERMISSION_TX", "GetUser"),
			ConnectTimeout:  time.Duration(getEnvInt("LEDGER_CONNECT_TIMEOUT_SECONDS", 5)) * time.Second,
			EvaluateTimeout: time.Duration(getEnvInt("LEDGER_EVALUATE_TIMEOUT_SECONDS", 5)) * time.Second,
		},

		OTLPEndpoint:   os.Getenv("OTEL_EXPORTER_OTLP_ENDPOINT"),
		LoginRateLimit: getEnvInt("LOGIN_RATE_LIMIT", 20),
		PushgatewayURL: os.Getenv("PROMETHEUS_PUSHGATEWAY_URL"),

		WorkerHealthPort: getEnvInt("WORKER_HEALTH_PORT", 8081),
	}

	return cfg
}

// EphemeralSessionKey reports whether the session key was generated at startup,
// meaning every restart logs all users out.
func (c Config) EphemeralSessionKey() bool {
	return os.Getenv("SESSION_KEYS") == ""
}

func buildDBURL() string {
	host := getEnv("DB_HOST", "127.0.0.1")
	port := getEnv("DB_PORT", "5432")
	user := getEnv("DB_USER", "ledgerauth")
	pass := getEnv("DB_PASSWORD", "ledgerauth")
	name := getEnv("DB_NAME", "ledgerauth")
	ssl := getEnv("DB_SSLMODE", "disable")

	return "postgres://" + user + ":" + pass + "@" + host + ":" + port + "/" + name + "?sslmode=" + ssl
}

func WithTimeout(duration time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(context.Background(), duration)
}

func ephemeralKey() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}

	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		num, err := strconv.Atoi(v)
		if err != nil {
			return fallback
		}

		return num
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fallback
		}
		return b
	}
	return fallback
}

func splitList(raw string) []string {
	out := make([]string, 0)
	for _, part := range strings.Split(raw, ",") {
		part = strings.TrimSpace(part)
		if part != "" {
			out = append(out, part)
		}
	}
	return out
}
