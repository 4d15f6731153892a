package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	_ "github.com/joho/godotenv/autoload"
	"github.com/shopspring/decimal"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	JWT        JWTConfig
	Payment    PaymentConfig
	Pricing    PricingConfig
	Cooldown   CooldownConfig
	RateLimit  RateLimitConfig
	Redis      RedisConfig
	Cloudinary CloudinaryConfig
	Firebase   FirebaseConfig
	Mail       MailConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

type DatabaseConfig struct {
	Driver          string // mysql or sqlite
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

// PaymentMode selects whether checkouts go through the gateway or are settled in-process.
type PaymentMode string

const (
	PaymentModeLive      PaymentMode = "live"
	PaymentModeSimulated PaymentMode = "simulated"
)

type PaymentConfig struct {
	Mode              PaymentMode
	Provider          string // stripe or stub
	StripePublicKey   string
	StripeSecretKey   string
	WebhookSecret     string
	Currency          string
	PublicBaseURL     string // success/cancel redirects are built on this
	CheckoutTimeout   time.Duration
	SubscriptionPrice decimal.Decimal
}

type PricingConfig struct {
	PlatformFee decimal.Decimal
	TaxRate     decimal.Decimal
}

type CooldownConfig struct {
	ChatCreation time.Duration
}

// RateLimitConfig is the per-IP request budget, parsed from "<seconds>:<requests>".
type RateLimitConfig struct {
	Window   time.Duration
	Requests int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

type MailConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

func Load() (*Config, error) {
	platformFee, err := decimal.NewFromString(getEnv("PLATFORM_FEE", "2.00"))
	if err != nil {
		return nil, fmt.Errorf("PLATFORM_FEE: %w", err)
	}
	taxRate, err := decimal.NewFromString(getEnv("TAX_RATE", "0.14975"))
	if err != nil {
		return nil, fmt.Errorf("TAX_RATE: %w", err)
	}
	subPrice, err := decimal.NewFromString(getEnv("SUBSCRIPTION_PRICE", "15.00"))
	if err != nil {
		return nil, fmt.Errorf("SUBSCRIPTION_PRICE: %w", err)
	}
	rl, err := ParseRateLimit(getEnv("RATELIMIT_DEFAULT", "60:8"))
	if err != nil {
		return nil, err
	}

	payment := PaymentConfig{
		Provider:          getEnv("PAYMENT_PROVIDER", "stripe"),
		StripePublicKey:   os.Getenv("STRIPE_PUBLIC_KEY"),
		StripeSecretKey:   os.Getenv("STRIPE_SECRET_KEY"),
		WebhookSecret:     os.Getenv("STRIPE_WEBHOOK_SECRET"),
		Currency:          getEnv("PAYMENT_CURRENCY", "cad"),
		PublicBaseURL:     strings.TrimRight(getEnv("PUBLIC_BASE_URL", "http://localhost:8099"), "/"),
		CheckoutTimeout:   getDuration("CHECKOUT_TIMEOUT", 15*time.Second),
		SubscriptionPrice: subPrice,
	}
	payment.Mode, err = resolvePaymentMode(os.Getenv("PAYMENT_MODE"), payment)
	if err != nil {
		return nil, err
	}
	if err := validatePayment(payment); err != nil {
		return nil, err
	}

	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", "8099"),
			Env:          getEnv("APP_ENV", "development"),
			ReadTimeout:  10 * time.Second,
			WriteTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Driver:          getEnv("DB_DRIVER", "mysql"),
			DSN:             getEnv("DB_DSN", "guardian:guardian@tcp(localhost:3306)/guardianangel?charset=utf8mb4&parseTime=True&loc=Local"),
			MaxIdleConns:    10,
			MaxOpenConns:    100,
			ConnMaxLifetime: time.Hour,
		},
		JWT: JWTConfig{
			AccessSecret: getEnv("JWT_SECRET", "change-me-in-production"),
			AccessExpiry: getDuration("JWT_EXPIRY", time.Hour),
			Issuer:       "guardianangel",
		},
		Payment: payment,
		Pricing: PricingConfig{
			PlatformFee: platformFee,
			TaxRate:     taxRate,
		},
		Cooldown: CooldownConfig{
			ChatCreation: getDuration("CHAT_COOLDOWN", 3*time.Minute),
		},
		RateLimit: rl,
		Redis: RedisConfig{
			Addr:     os.Getenv("REDIS_ADDR"),
			Password: os.Getenv("REDIS_PASSWORD"),
			DB:       getInt("REDIS_DB", 0),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: os.Getenv("CLOUDINARY_CLOUD_NAME"),
			APIKey:    os.Getenv("CLOUDINARY_API_KEY"),
			APISecret: os.Getenv("CLOUDINARY_API_SECRET"),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: os.Getenv("FIREBASE_SERVICE_ACCOUNT"),
		},
		Mail: MailConfig{
			Host:     os.Getenv("SMTP_HOST"),
			Port:     getInt("SMTP_PORT", 587),
			Username: os.Getenv("SMTP_USER"),
			Password: os.Getenv("SMTP_PASSWORD"),
			From:     getEnv("DEFAULT_FROM_EMAIL", "noreply@guardianangel.local"),
		},
	}, nil
}

// resolvePaymentMode honours an explicit PAYMENT_MODE; otherwise live needs both Stripe keys.
// validatePayment rejects live setups that could never settle a payment. The stub
// gateway signs its events with the webhook secret, so it is useless without one.
func validatePayment(p PaymentConfig) error {
	if p.Mode == PaymentModeLive && p.Provider == "stub" && p.WebhookSecret == "" {
		return errors.New("PAYMENT_PROVIDER=stub in live mode requires STRIPE_WEBHOOK_SECRET")
	}
	return nil
}

func resolvePaymentMode(raw string, p PaymentConfig) (PaymentMode, error) {
	switch PaymentMode(strings.ToLower(raw)) {
	case PaymentModeLive:
		return PaymentModeLive, nil
	case PaymentModeSimulated:
		return PaymentModeSimulated, nil
	case "":
		if p.Provider == "stub" || (p.StripePublicKey != "" && p.StripeSecretKey != "") {
			return PaymentModeLive, nil
		}
		return PaymentModeSimulated, nil
	default:
		return "", fmt.Errorf("PAYMENT_MODE: unknown mode %q", raw)
	}
}

// ParseRateLimit parses "60:8" as 8 requests per 60 seconds.
func ParseRateLimit(s string) (RateLimitConfig, error) {
	parts := strings.SplitN(s, ":", 2)
	if len(parts) != 2 {
		return RateLimitConfig{}, fmt.Errorf("RATELIMIT_DEFAULT: expected <seconds>:<requests>, got %q", s)
	}
	secs, err := strconv.Atoi(parts[0])
	if err != nil || secs <= 0 {
		return RateLimitConfig{}, fmt.Errorf("RATELIMIT_DEFAULT: bad window %q", parts[0])
	}
	n, err := strconv.Atoi(parts[1])
	if err != nil || n <= 0 {
		return RateLimitConfig{}, fmt.Errorf("RATELIMIT_DEFAULT: bad request count %q", parts[1])
	}
	return RateLimitConfig{Window: time.Duration(secs) * time.Second, Requests: n}, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getInt(key string, fallback int) int {
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

func getDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
