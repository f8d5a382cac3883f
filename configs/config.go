package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Port        string
	DatabaseURL string
	JWTSecret   string
	LogLevel    string
	CORSOrigins string

	AdminPhone string
	AdminName  string

	MidtransServerKey  string
	MidtransProduction bool
	PaymentFinishURL   string

	CloudinaryURL string

	BiteshipAPIKey           string
	BiteshipBaseURL          string
	ShippingOriginPostalCode string
	ShippingCouriers         string

	RedisAddr string
	AMQPURL   string

	BrevoAPIKey     string
	EmailSender     string
	EmailSenderName string

	SMSAPIURL   string
	SMSAPIToken string

	PendingTTL time.Duration
}

// Load reads .env when present and falls back to the process environment.
func Load() *Config {
	if err := godotenv.Load(".env"); err != nil {
		log.Println("Warning: .env file not found, reading from system environment variables")
	}

	return &Config{
		Port:        Get("PORT", "8080"),
		DatabaseURL: Get("DATABASE_URL"),
		JWTSecret:   Get("JWT_SECRET"),
		LogLevel:    Get("LOG_LEVEL", "info"),
		CORSOrigins: Get("CORS_ORIGINS", "*"),

		AdminPhone: Get("ADMIN_PHONE"),
		AdminName:  Get("ADMIN_NAME", "Administrator"),

		MidtransServerKey:  Get("MIDTRANS_SERVER_KEY"),
		MidtransProduction: getBool("MIDTRANS_PRODUCTION"),
		PaymentFinishURL:   Get("PAYMENT_FINISH_URL"),

		CloudinaryURL: Get("CLOUDINARY_URL"),

		BiteshipAPIKey:           Get("BITESHIP_API_KEY"),
		BiteshipBaseURL:          Get("BITESHIP_BASE_URL", "https://api.biteship.com"),
		ShippingOriginPostalCode: Get("SHIPPING_ORIGIN_POSTAL_CODE"),
		ShippingCouriers:         Get("SHIPPING_COURIERS", "jne,sicepat,jnt,anteraja"),

		RedisAddr: Get("REDIS_ADDR"),
		AMQPURL:   Get("AMQP_URL"),

		BrevoAPIKey:     Get("BREVO_API_KEY"),
		EmailSender:     Get("EMAIL_SENDER"),
		EmailSenderName: Get("EMAIL_SENDER_NAME"),

		SMSAPIURL:   Get("SMS_API_URL"),
		SMSAPIToken: Get("SMS_API_TOKEN"),

		PendingTTL: getDuration("PENDING_TTL", 24*time.Hour),
	}
}

func Get(key string, def ...string) string {
	v, ok := os.LookupEnv(key)
	if (!ok || v == "") && len(def) > 0 {
		return def[0]
	}
	return v
}

func getBool(key string) bool {
	b, _ := strconv.ParseBool(strings.TrimSpace(os.Getenv(key)))
	return b
}

func getDuration(key string, def time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return def
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		log.Printf("Warning: invalid %s=%q, using %s", key, v, def)
		return def
	}
	return d
}
