package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	DatabaseURL    string
	RedisURL       string
	KafkaBrokers   []string
	StatusTopic    string
	CreatedTopic   string
	JaegerEndpoint string
	Port           string
	LogLevel       string
	ServiceVersion string

	JWTSecret string
	JWTTTL    time.Duration

	SMTPHost      string
	SMTPPort      int
	SMTPSecure    bool
	SMTPUser      string
	SMTPPass      string
	SMTPFromName  string
	SMTPFromEmail string
	EmailDryRun   bool
	EmailRate     float64
	CompanyName   string

	HeuristicsFile string
	MaxUploadBytes int64
}

// Load reads the environment, after an optional .env in the working directory.
func Load() *Config {
	_ = godotenv.Load()

	port := os.Getenv("PORT")
	if port == "" {
		port = "8080"
	}

	jwtSecret := os.Getenv("JWT_SECRET")
	if jwtSecret == "" {
		jwtSecret = "dev-secret-change-me"
	}

	return &Config{
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		KafkaBrokers:   splitList(os.Getenv("KAFKA_BROKERS")),
		StatusTopic:    getEnv("KAFKA_TOPIC_STATUS", "discrepancy.status.changed"),
		CreatedTopic:   getEnv("KAFKA_TOPIC_CREATED", "discrepancy.created"),
		JaegerEndpoint: os.Getenv("JAEGER_ENDPOINT"),
		Port:           port,
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		ServiceVersion: getEnv("SERVICE_VERSION", "1.0.0"),

		JWTSecret: jwtSecret,
		JWTTTL:    getDuration("JWT_TTL", 24*time.Hour),

		SMTPHost:      os.Getenv("SMTP_HOST"),
		SMTPPort:      getInt("SMTP_PORT", 587),
		SMTPSecure:    getBool("SMTP_SECURE", false),
		SMTPUser:      os.Getenv("SMTP_USER"),
		SMTPPass:      os.Getenv("SMTP_PASS"),
		SMTPFromName:  getEnv("SMTP_FROM_NAME", "Accounts Receivable"),
		SMTPFromEmail: os.Getenv("SMTP_FROM_EMAIL"),
		EmailDryRun:   getBool("EMAIL_DRY_RUN", false),
		EmailRate:     getFloat("EMAIL_RATE_PER_SECOND", 2),
		CompanyName:   os.Getenv("COMPANY_NAME"),

		HeuristicsFile: os.Getenv("HEURISTICS_FILE"),
		MaxUploadBytes: int64(getInt("MAX_UPLOAD_BYTES", 10<<20)),
	}
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getInt(key string, def int) int {
	if v, err := strconv.Atoi(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getFloat(key string, def float64) float64 {
	if v, err := strconv.ParseFloat(os.Getenv(key), 64); err == nil && v > 0 {
		return v
	}
	return def
}

func getBool(key string, def bool) bool {
	if v, err := strconv.ParseBool(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func getDuration(key string, def time.Duration) time.Duration {
	if v, err := time.ParseDuration(os.Getenv(key)); err == nil {
		return v
	}
	return def
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
