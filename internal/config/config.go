package config

import (
	"fmt"
	"os"
	"strconv"
	"time"
)

const (
	CartStorePostgres = "postgres"
	CartStoreMemory   = "memory"
)

// Configはアプリ全体の設定
type Config struct {
	Port     string // サーバーポート（8080）
	GoEnv    string // dev/prod
	LogLevel string // debug/info/warn/error

	DatabaseURL      string // あれば最優先
	PostgresUser     string // DBユーザー
	PostgresPassword string // DBパスワード
	PostgresDB       string // DB名
	PostgresHost     string // DBホスト（localhost）
	PostgresPort     int    // DBポート（5432）
	PostgresSSLMode  string

	CartStore     string        // postgres/memory
	CartKeyPrefix string        // 保存キーの名前空間
	CartTTL       time.Duration // 保存したカートの有効期限
	CartIdleTTL   time.Duration // メモリ上のEngineを保持する時間

	SessionSecret string        // セッションcookie署名シークレット
	SessionTTL    time.Duration // セッションcookieの有効期限
	CookieSecure  bool

	CMSWebhookSecret string // 空ならCMS webhookは無効
}

func (c Config) IsDev() bool {
	return c.GoEnv == "dev"
}

// Loadは環境変数
func Load() (Config, error) {
	pgPort, err := intOr("POSTGRES_PORT", 5432)
	if err != nil {
		return Config{}, err
	}
	cartTTL, err := durationOr("CART_TTL", 7*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	idleTTL, err := durationOr("CART_IDLE_TTL", 30*time.Minute)
	if err != nil {
		return Config{}, err
	}
	sessionTTL, err := durationOr("SESSION_TTL", 7*24*time.Hour)
	if err != nil {
		return Config{}, err
	}
	secure, err := boolOr("COOKIE_SECURE", false)
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Port:     getenv("PORT", "8080"),
		GoEnv:    getenv("GO_ENV", "dev"),
		LogLevel: getenv("LOG_LEVEL", "info"),

		DatabaseURL:      os.Getenv("DATABASE_URL"),
		PostgresUser:     getenv("POSTGRES_USER", "postgres"),
		PostgresPassword: getenv("POSTGRES_PASSWORD", "postgres"),
		PostgresDB:       getenv("POSTGRES_DB", "app"),
		PostgresHost:     getenv("POSTGRES_HOST", "localhost"),
		PostgresPort:     pgPort,
		PostgresSSLMode:  getenv("POSTGRES_SSLMODE", "disable"),

		CartStore:     getenv("CART_STORE", CartStorePostgres),
		CartKeyPrefix: getenv("CART_KEY_PREFIX", "storefront:cart"),
		CartTTL:       cartTTL,
		CartIdleTTL:   idleTTL,

		SessionSecret: os.Getenv("SESSION_SECRET"),
		SessionTTL:    sessionTTL,
		CookieSecure:  secure,

		CMSWebhookSecret: os.Getenv("CMS_WEBHOOK_SECRET"),
	}

	//必須チェック
	if cfg.CartStore != CartStorePostgres && cfg.CartStore != CartStoreMemory {
		return Config{}, fmt.Errorf("CART_STORE must be %q or %q", CartStorePostgres, CartStoreMemory)
	}
	if cfg.CartKeyPrefix == "" {
		return Config{}, fmt.Errorf("CART_KEY_PREFIX is required")
	}
	if cfg.SessionSecret == "" {
		if !cfg.IsDev() {
			return Config{}, fmt.Errorf("SESSION_SECRET is required")
		}
		cfg.SessionSecret = "dev_secret_change_me"
	}

	return cfg, nil
}

// PostgresのDSN
func (c Config) DSN() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.PostgresHost, c.PostgresPort, c.PostgresUser, c.PostgresPassword, c.PostgresDB, c.PostgresSSLMode,
	)
}

func getenv(key string, def string) string {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	return v
}

func intOr(key string, def int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be number: %w", key, err)
	}
	return i, nil
}

func durationOr(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be duration: %w", key, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("%s must be positive", key)
	}
	return d, nil
}

func boolOr(key string, def bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("%s must be bool: %w", key, err)
	}
	return b, nil
}
