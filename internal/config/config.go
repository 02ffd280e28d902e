// Package config はアプリケーション設定の読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
// シークレット類も含め、実行中に変更されることはない。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionSecret string
	SessionMaxAge time.Duration

	// Basic認証ゲート（ステージング環境のロックアウト用）
	BasicAuthEnabled  bool
	BasicAuthUsername string
	BasicAuthPassword string

	// Cronジョブ
	CronSecret string

	// 環境（"production"の場合のみcron認可を必須とする）
	Environment string

	// Stripe
	StripeAPIKey        string
	StripeWebhookSecret string
	StripeProPriceID    string

	// Mail
	MailFrom string

	// Server
	ServerPort string
	BaseURL    string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// IsProduction は本番環境かどうかを返す。
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Load は環境変数からConfigを読み込む。
// カレントディレクトリに.envがあれば先に読み込む（ローカル開発用、未設定の変数のみ）。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	// .envはローカル開発の便宜のためで、存在しなくてもエラーにしない
	_ = godotenv.Load()

	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.SessionSecret = os.Getenv("SESSION_SECRET")
	if cfg.SessionSecret == "" {
		missing = append(missing, "SESSION_SECRET")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionMaxAge = getEnvDuration("SESSION_MAX_AGE", 30*24*time.Hour)
	cfg.BasicAuthEnabled = getEnvBool("BASIC_AUTH_ENABLED", false)
	cfg.BasicAuthUsername = getEnvString("BASIC_AUTH_USERNAME", "")
	cfg.BasicAuthPassword = getEnvString("BASIC_AUTH_PASSWORD", "")
	cfg.CronSecret = getEnvString("CRON_SECRET", "")
	cfg.Environment = getEnvString("APP_ENV", "development")
	cfg.StripeAPIKey = getEnvString("STRIPE_API_KEY", "")
	cfg.StripeWebhookSecret = getEnvString("STRIPE_WEBHOOK_SECRET", "")
	cfg.StripeProPriceID = getEnvString("STRIPE_PRO_PRICE_ID", "")
	cfg.MailFrom = getEnvString("SMTP_FROM", "Post Writer <noreply@example.com>")
	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

	// 本番環境でCRON_SECRET未設定はクリーンアップAPIが無防備になるため拒否する
	if cfg.IsProduction() && cfg.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required in production")
	}

	return cfg, nil
}

func getEnvString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
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
	// 秒数の整数値（next-authのmaxAge互換）とGoのduration表記の両方を受け付ける
	if sec, err := strconv.Atoi(v); err == nil {
		return time.Duration(sec) * time.Second
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return defaultVal
	}
	return d
}
