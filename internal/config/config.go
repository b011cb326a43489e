package config

import (
	"log"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

var AppEnv Config

type Config struct {
	Port      string
	MongoURI  string
	DBName    string
	JWTSecret string

	// RazorpayKeySecret signs the client-side payment confirmation and
	// authenticates gateway API calls. RazorpayWebhookSecret signs webhook
	// bodies. The two must never be interchanged.
	RazorpayKeyID         string
	RazorpayKeySecret     string
	RazorpayWebhookSecret string
	RazorpayBaseURL       string
	GatewayTimeout        time.Duration

	Currency              string
	ShippingCharge        float64
	FreeShippingThreshold float64
	CheckoutSessionTTL    time.Duration

	KafkaBrokers      []string
	NotificationTopic string

	JaegerEndpoint string
	ServiceName    string
}

func Load() {
	if err := godotenv.Load(); err != nil {
		log.Println(".env not loaded:", err)
	}
	AppEnv = Config{
		Port:                  getEnvOrDefault("PORT", "8080"),
		MongoURI:              getEnvOrDefault("MONGO_URI", ""),
		DBName:                getEnvOrDefault("DB_NAME", "storefront"),
		JWTSecret:             getEnvOrDefault("JWT_SECRET", ""),
		RazorpayKeyID:         getEnvOrDefault("RAZORPAY_KEY_ID", ""),
		RazorpayKeySecret:     getEnvOrDefault("RAZORPAY_KEY_SECRET", ""),
		RazorpayWebhookSecret: getEnvOrDefault("RAZORPAY_WEBHOOK_SECRET", ""),
		RazorpayBaseURL:       getEnvOrDefault("RAZORPAY_BASE_URL", "https://api.razorpay.com"),
		GatewayTimeout:        getDurationEnv("GATEWAY_TIMEOUT_SECONDS", 10, time.Second),
		Currency:              getEnvOrDefault("CURRENCY", "INR"),
		ShippingCharge:        getFloatEnv("SHIPPING_CHARGE", 49),
		FreeShippingThreshold: getFloatEnv("FREE_SHIPPING_THRESHOLD", 999),
		CheckoutSessionTTL:    getDurationEnv("CHECKOUT_SESSION_TTL_MINUTES", 60, time.Minute),
		KafkaBrokers:          getListEnv("KAFKA_BROKERS"),
		NotificationTopic:     getEnvOrDefault("NOTIFICATION_TOPIC", "storefront-notifications"),
		JaegerEndpoint:        getEnvOrDefault("JAEGER_ENDPOINT", ""),
		ServiceName:           getEnvOrDefault("SERVICE_NAME", "storefront"),
	}

	if AppEnv.RazorpayKeySecret == "" {
		log.Println("[CONFIG] [WARN] RAZORPAY_KEY_SECRET is empty, payment verification will be rejected")
	}
	if AppEnv.RazorpayWebhookSecret == "" {
		log.Println("[CONFIG] [WARN] RAZORPAY_WEBHOOK_SECRET is empty, webhooks will be rejected")
	}
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		return value
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue int, unit time.Duration) time.Duration {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil && parsed > 0 {
			return time.Duration(parsed) * unit
		}
	}
	return time.Duration(defaultValue) * unit
}

func getFloatEnv(key string, defaultValue float64) float64 {
	if value := strings.TrimSpace(os.Getenv(key)); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil && parsed >= 0 {
			return parsed
		}
	}
	return defaultValue
}

// getListEnv splits a comma separated variable, dropping blanks.
func getListEnv(key string) []string {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	return values
}
