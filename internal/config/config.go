package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAPIBaseURL        = "http://localhost:5001"
	defaultLogtoCallbackPath = "/api/auth/logto/sign-in-callback"
	defaultLogtoScopes       = "openid profile email"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Server
	ServerPort string
	BaseURL    string

	// Backend API
	APIBaseURL string
	APITimeout time.Duration

	// Logto
	LogtoEndpoint       string
	LogtoAppID          string
	LogtoAppSecret      string
	LogtoScopes         []string
	LogtoCallbackPath   string
	LogtoExchangeSecret string
	LogtoSessionMaxAge  int

	// Cookie
	CookieSecure      bool
	CookieDomain      string
	AccessTokenMaxAge int

	// Database（未設定の場合はプロバイダーセッションをメモリに保持する）
	DatabaseURL            string
	SessionCleanupInterval time.Duration

	// Rate Limit（req/min）
	RateLimitGeneral int
	RateLimitSignIn  int

	// Profile cache
	ProfileCacheTTL  time.Duration
	ProfileCacheSize int

	// URL preview
	PreviewTimeout time.Duration
	PreviewMaxSize int64

	// CORS
	CORSAllowedOrigin string

	// Logging
	LogLevel string
}

// LogtoConfigured はLogtoのエンドポイントとアプリIDが設定されているかを返す。
func (c *Config) LogtoConfigured() bool {
	return c.LogtoEndpoint != "" && c.LogtoAppID != ""
}

// LogtoCookieName はLogtoセッションCookieの名前を返す。
// Cookie名に":"は使えないため"logto_<appId>"とする。
func (c *Config) LogtoCookieName() string {
	return "logto_" + c.LogtoAppID
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	var missing []string

	cfg.BaseURL = strings.TrimRight(os.Getenv("BASE_URL"), "/")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	cfg.ServerPort = getEnvString("SERVER_PORT", "3000")

	cfg.APIBaseURL = strings.TrimRight(getEnvString("API_BASE_URL", defaultAPIBaseURL), "/")
	cfg.APITimeout = getEnvDuration("API_TIMEOUT", 10*time.Second)

	cfg.LogtoEndpoint = strings.TrimRight(os.Getenv("LOGTO_ENDPOINT"), "/")
	cfg.LogtoAppID = os.Getenv("LOGTO_APP_ID")
	cfg.LogtoAppSecret = os.Getenv("LOGTO_APP_SECRET")
	cfg.LogtoScopes = strings.Fields(getEnvString("LOGTO_SCOPES", defaultLogtoScopes))
	cfg.LogtoCallbackPath = getEnvString("LOGTO_CALLBACK_PATH", defaultLogtoCallbackPath)
	if !strings.HasPrefix(cfg.LogtoCallbackPath, "/") {
		cfg.LogtoCallbackPath = "/" + cfg.LogtoCallbackPath
	}
	cfg.LogtoExchangeSecret = os.Getenv("LOGTO_EXCHANGE_SECRET")
	cfg.LogtoSessionMaxAge = getEnvInt("LOGTO_SESSION_MAX_AGE", 14*24*60*60)

	cfg.CookieSecure = getEnvBool("LOGTO_COOKIE_SECURE", strings.HasPrefix(cfg.BaseURL, "https://"))
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.AccessTokenMaxAge = getEnvInt("ACCESS_TOKEN_MAX_AGE", 7*24*60*60)

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	cfg.SessionCleanupInterval = getEnvDuration("SESSION_CLEANUP_INTERVAL", time.Hour)

	cfg.RateLimitGeneral = getEnvInt("RATE_LIMIT_GENERAL", 120)
	cfg.RateLimitSignIn = getEnvInt("RATE_LIMIT_SIGN_IN", 10)

	cfg.ProfileCacheTTL = getEnvDuration("PROFILE_CACHE_TTL", time.Minute)
	cfg.ProfileCacheSize = getEnvInt("PROFILE_CACHE_SIZE", 1024)

	cfg.PreviewTimeout = getEnvDuration("PREVIEW_TIMEOUT", 10*time.Second)
	cfg.PreviewMaxSize = getEnvInt64("PREVIEW_MAX_SIZE", 5242880)

	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", cfg.BaseURL)
	cfg.LogLevel = getEnvString("LOG_LEVEL", "info")

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

func getEnvInt(key string, defaultVal int) int {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvInt64(key string, defaultVal int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	i, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return defaultVal
	}
	return i
}

func getEnvBool(key string, defaultVal bool) bool {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return defaultVal
	}
	return b
}

func getEnvDuration(key string, defaultVal time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
