package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Server  ServerConfig
	Store   StoreConfig
	Upload  UploadConfig
	Quality QualityConfig
	Queue   QueueConfig
	Payment PaymentConfig
	Email   EmailConfig
	Redis   RedisConfig
	Kafka   KafkaConfig
	Admin   AdminConfig
}

type ServerConfig struct {
	Port         string
	BaseURL      string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

type StoreConfig struct {
	// Driver is "sqlite" or "postgres".
	Driver string
	// Path of the sqlite database file (sqlite driver only).
	Path string
	// DSN for PostgreSQL (postgres driver only).
	DSN string
}

type UploadConfig struct {
	Dir          string
	MaxSizeBytes int64
}

// QualityConfig holds the tunable thresholds of the image quality gate.
// Defaults match the calibration the funnel shipped with.
type QualityConfig struct {
	BrightnessMin  float64
	BrightnessMax  float64
	SharpnessMin   float64
	MinWidth       int
	MinHeight      int
	WorkingMaxSide int
}

type QueueConfig struct {
	// DefaultAvgMinutes seeds the estimate before the first completion sample.
	DefaultAvgMinutes float64
	// Deadline is the hard cutoff shown to customers ("will it arrive in time").
	Deadline time.Time
}

type PaymentConfig struct {
	StripeSecretKey      string
	StripePublishableKey string
}

type EmailConfig struct {
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromAddress  string
}

type RedisConfig struct {
	Addr        string
	LockTTL     time.Duration
	LockEnabled bool
}

type KafkaConfig struct {
	Brokers []string
	Enabled bool
	Topics  TopicConfig
}

type TopicConfig struct {
	OrderCreated   string
	OrderPaid      string
	OrderCompleted string
}

type AdminConfig struct {
	Key string
}

func Load() *Config {
	return &Config{
		Server: ServerConfig{
			Port:         getEnv("PORT", ":8080"),
			BaseURL:      getEnv("BASE_URL", "http://localhost:8080"),
			ReadTimeout:  15 * time.Second,
			WriteTimeout: 15 * time.Second,
			IdleTimeout:  60 * time.Second,
		},
		Store: StoreConfig{
			Driver: getEnv("STORE_DRIVER", "sqlite"),
			Path:   getEnv("STORE_PATH", "data/orders.db"),
			DSN:    getEnv("POSTGRES_DSN", ""),
		},
		Upload: UploadConfig{
			Dir:          getEnv("UPLOAD_DIR", "uploads"),
			MaxSizeBytes: int64(getEnvInt("UPLOAD_MAX_MB", 10)) * 1024 * 1024,
		},
		Quality: QualityConfig{
			BrightnessMin:  getEnvFloat("QUALITY_BRIGHTNESS_MIN", 50),
			BrightnessMax:  getEnvFloat("QUALITY_BRIGHTNESS_MAX", 210),
			SharpnessMin:   getEnvFloat("QUALITY_SHARPNESS_MIN", 12),
			MinWidth:       getEnvInt("QUALITY_MIN_WIDTH", 400),
			MinHeight:      getEnvInt("QUALITY_MIN_HEIGHT", 400),
			WorkingMaxSide: getEnvInt("QUALITY_WORKING_MAX_SIDE", 200),
		},
		Queue: QueueConfig{
			DefaultAvgMinutes: getEnvFloat("QUEUE_DEFAULT_AVG_MINUTES", 30),
			Deadline:          getEnvTime("QUEUE_DEADLINE", time.Date(time.Now().Year(), time.December, 24, 23, 59, 0, 0, time.Local)),
		},
		Payment: PaymentConfig{
			StripeSecretKey:      getEnv("STRIPE_SECRET_KEY", ""),
			StripePublishableKey: getEnv("STRIPE_PUBLISHABLE_KEY", ""),
		},
		Email: EmailConfig{
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromAddress:  getEnv("SMTP_FROM", "santa@santamoment.shop"),
		},
		Redis: RedisConfig{
			Addr:        getEnv("REDIS_ADDR", "localhost:6379"),
			LockTTL:     time.Duration(getEnvInt("ORDER_LOCK_TTL_SECONDS", 30)) * time.Second,
			LockEnabled: getEnvBool("ORDER_LOCK_ENABLED", true),
		},
		Kafka: KafkaConfig{
			Brokers: []string{getEnv("KAFKA_BROKERS", "localhost:9092")},
			Enabled: getEnvBool("KAFKA_ENABLED", false),
			Topics: TopicConfig{
				OrderCreated:   getEnv("KAFKA_TOPIC_ORDER_CREATED", "santa.order.created"),
				OrderPaid:      getEnv("KAFKA_TOPIC_ORDER_PAID", "santa.order.paid"),
				OrderCompleted: getEnv("KAFKA_TOPIC_ORDER_COMPLETED", "santa.order.completed"),
			},
		},
		Admin: AdminConfig{
			Key: getEnv("ADMIN_KEY", ""),
		},
	}
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return defaultValue
}

func getEnvTime(key string, defaultValue time.Time) time.Time {
	if value := os.Getenv(key); value != "" {
		if parsed, err := time.Parse(time.RFC3339, value); err == nil {
			return parsed
		}
	}
	return defaultValue
}
