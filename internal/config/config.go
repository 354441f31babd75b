// Package config は環境変数からのアプリケーション設定読み込みを提供する。
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config はアプリケーション全体の設定を保持する。
// 環境変数から起動時に1回読み込み、イミュータブルとして扱う。
type Config struct {
	// Database
	DatabaseURL string

	// Session
	SessionCookieName   string
	SessionCookieMaxAge int           // 秒
	SessionIdleTimeout  time.Duration // 無操作タイムアウト
	SessionRotateEvery  time.Duration // 識別子ローテーション間隔

	// Notification
	PostmarkServerToken  string
	PostmarkAccountToken string
	NotifySenderEmail    string
	NotifyInterval       time.Duration
	NotifyRatePerSec     float64
	NotifyMaxPerCycle    int
	WebhookTimeout       time.Duration

	// Cleanup
	CleanupInterval           time.Duration
	NotificationRetentionDays int

	// Server
	ServerPort  string
	MetricsPort string
	BaseURL     string

	// Cookie
	CookieSecure bool
	CookieDomain string

	// CORS
	CORSAllowedOrigin string
}

// Load は環境変数からConfigを読み込む。
// 必須環境変数が未設定の場合はエラーを返す。
func Load() (*Config, error) {
	cfg := &Config{}

	// Required fields
	var missing []string

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		missing = append(missing, "DATABASE_URL")
	}

	cfg.BaseURL = os.Getenv("BASE_URL")
	if cfg.BaseURL == "" {
		missing = append(missing, "BASE_URL")
	}

	if len(missing) > 0 {
		return nil, fmt.Errorf("required environment variables are not set: %v", missing)
	}

	// Optional fields with defaults
	cfg.SessionCookieName = getEnvString("SESSION_COOKIE_NAME", "taskdeck_session")
	cfg.SessionCookieMaxAge = getEnvInt("SESSION_COOKIE_MAX_AGE", 3600)
	cfg.SessionIdleTimeout = getEnvDuration("SESSION_IDLE_TIMEOUT", 30*time.Minute)
	cfg.SessionRotateEvery = getEnvDuration("SESSION_ROTATE_INTERVAL", 5*time.Minute)

	cfg.PostmarkServerToken = getEnvString("POSTMARK_SERVER_TOKEN", "")
	cfg.PostmarkAccountToken = getEnvString("POSTMARK_ACCOUNT_TOKEN", "")
	cfg.NotifySenderEmail = getEnvString("NOTIFY_SENDER_EMAIL", "")
	cfg.NotifyInterval = getEnvDuration("NOTIFY_INTERVAL", time.Minute)
	cfg.NotifyRatePerSec = getEnvFloat("NOTIFY_RATE_PER_SEC", 2.0)
	cfg.NotifyMaxPerCycle = getEnvInt("NOTIFY_MAX_PER_CYCLE", 100)
	cfg.WebhookTimeout = getEnvDuration("WEBHOOK_TIMEOUT", 10*time.Second)

	cfg.CleanupInterval = getEnvDuration("CLEANUP_INTERVAL", time.Hour)
	cfg.NotificationRetentionDays = getEnvInt("NOTIFICATION_RETENTION_DAYS", 30)

	cfg.ServerPort = getEnvString("SERVER_PORT", "8080")
	cfg.MetricsPort = getEnvString("METRICS_PORT", "9090")
	cfg.CookieSecure = strings.HasPrefix(cfg.BaseURL, "https://")
	cfg.CookieDomain = getEnvString("COOKIE_DOMAIN", "")
	cfg.CORSAllowedOrigin = getEnvString("CORS_ALLOWED_ORIGIN", "http://localhost:3000")

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

func getEnvFloat(key string, defaultVal float64) float64 {
	v := os.Getenv(key)
	if v == "" {
		return defaultVal
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return defaultVal
	}
	return f
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
