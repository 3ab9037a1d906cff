package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type Config struct {
	ListenAddr string
	// PublicBaseURL is the externally visible origin used when
	// building download links, e.g. https://shop.example.com.
	PublicBaseURL string

	JWTSecret []byte
	AdminKey  string
	// AdminTokenTTL bounds the diagnostic-surface bearer tokens, not
	// the download tokens.
	AdminTokenTTL time.Duration

	TokenTTL      time.Duration
	MinPrice      decimal.Decimal
	Currency      string
	StrictCapture bool

	CatalogFile string
	CatalogJSON string

	StoreBackend  string
	RedisAddr     string
	RedisPassword string
	RedisDB       int

	ObjectBackend string
	FilesDir      string
	S3Region      string
	S3Bucket      string
	S3AccessKey   string
	S3SecretKey   string
	S3Endpoint    string

	PayPalBaseURL  string
	PayPalClientID string
	PayPalSecret   string

	TelegramBotToken string
	TelegramChatID   string
	WebhookURL       string
}

func Load() (Config, error) {
	cfg := Config{
		ListenAddr:    getenv("PAYDROP_LISTEN", ":8080"),
		PublicBaseURL: strings.TrimRight(strings.TrimSpace(getenv("PAYDROP_PUBLIC_BASE_URL", "http://localhost:8080")), "/"),

		JWTSecret:     []byte(getenv("PAYDROP_JWT_SECRET", "")),
		AdminKey:      strings.TrimSpace(getenv("PAYDROP_ADMIN_KEY", "")),
		AdminTokenTTL: mustDuration(getenv("PAYDROP_ADMIN_TOKEN_TTL", "1h"), time.Hour),

		TokenTTL:      mustDuration(getenv("PAYDROP_TOKEN_TTL", "3600"), time.Hour),
		Currency:      strings.ToUpper(strings.TrimSpace(getenv("PAYDROP_CURRENCY", "EUR"))),
		StrictCapture: mustBool(getenv("PAYDROP_STRICT_CAPTURE", "false")),

		CatalogFile: strings.TrimSpace(getenv("PAYDROP_CATALOG_FILE", "./data/catalog.json")),
		CatalogJSON: strings.TrimSpace(os.Getenv("PAYDROP_CATALOG_JSON")),

		StoreBackend:  strings.ToLower(strings.TrimSpace(getenv("PAYDROP_STORE_BACKEND", "memory"))),
		RedisAddr:     strings.TrimSpace(getenv("PAYDROP_REDIS_ADDR", "")),
		RedisPassword: getenv("PAYDROP_REDIS_PASSWORD", ""),
		RedisDB:       mustInt(getenv("PAYDROP_REDIS_DB", "0"), 0),

		ObjectBackend: strings.ToLower(strings.TrimSpace(getenv("PAYDROP_OBJECT_BACKEND", "fs"))),
		FilesDir:      strings.TrimSpace(getenv("PAYDROP_FILES_DIR", "./files")),
		S3Region:      strings.TrimSpace(getenv("PAYDROP_S3_REGION", "us-east-1")),
		S3Bucket:      strings.TrimSpace(getenv("PAYDROP_S3_BUCKET", "")),
		S3AccessKey:   strings.TrimSpace(getenv("PAYDROP_S3_ACCESS_KEY", "")),
		S3SecretKey:   getenv("PAYDROP_S3_SECRET_KEY", ""),
		S3Endpoint:    strings.TrimSpace(getenv("PAYDROP_S3_ENDPOINT", "")),

		PayPalBaseURL:  strings.TrimSpace(getenv("PAYDROP_PAYPAL_BASE_URL", "")),
		PayPalClientID: strings.TrimSpace(getenv("PAYDROP_PAYPAL_CLIENT_ID", "")),
		PayPalSecret:   getenv("PAYDROP_PAYPAL_SECRET", ""),

		TelegramBotToken: strings.TrimSpace(getenv("PAYDROP_TELEGRAM_BOT_TOKEN", "")),
		TelegramChatID:   strings.TrimSpace(getenv("PAYDROP_TELEGRAM_CHAT_ID", "")),
		WebhookURL:       strings.TrimSpace(getenv("PAYDROP_WEBHOOK_URL", "")),
	}

	minPrice, err := decimal.NewFromString(getenv("PAYDROP_MIN_PRICE", "0"))
	if err != nil {
		return Config{}, fmt.Errorf("parse PAYDROP_MIN_PRICE: %w", err)
	}
	if minPrice.IsNegative() {
		return Config{}, errors.New("PAYDROP_MIN_PRICE must not be negative")
	}
	cfg.MinPrice = minPrice

	if cfg.AdminKey != "" && len(cfg.JWTSecret) < 16 {
		return Config{}, errors.New("PAYDROP_JWT_SECRET must be at least 16 bytes when PAYDROP_ADMIN_KEY is set")
	}
	if cfg.PayPalClientID != "" && cfg.PayPalSecret == "" {
		return Config{}, errors.New("PAYDROP_PAYPAL_SECRET required when PAYDROP_PAYPAL_CLIENT_ID is set")
	}
	if cfg.ObjectBackend == "s3" && cfg.S3Bucket == "" {
		return Config{}, errors.New("PAYDROP_S3_BUCKET required when PAYDROP_OBJECT_BACKEND=s3")
	}

	return cfg, nil
}

func getenv(k, def string) string {
	if v := os.Getenv(k); v != "" {
		return v
	}
	return def
}

func mustDuration(v string, def time.Duration) time.Duration {
	d, err := time.ParseDuration(v)
	if err == nil {
		return d
	}
	// Support seconds-only integer.
	if n, err2 := strconv.Atoi(v); err2 == nil {
		return time.Duration(n) * time.Second
	}
	return def
}

func mustInt(v string, def int) int {
	v = strings.TrimSpace(v)
	if v == "" {
		return def
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def
	}
	return n
}

func mustBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
