package config

import (
	"fmt"
	"strings"

	"github.com/spf13/viper"

	"github.com/DriveShare-Marketplace/service-rental/internal/pkg/database"
)

// ServiceConfig holds all configuration for the rental service.
type ServiceConfig struct {
	Port   string
	AppEnv string

	DBConfig    database.PostgresConfig
	RedisURL    string
	KafkaConfig KafkaConfig
	JWTConfig   JWTConfig
	Payment     PaymentConfig
	Storage     StorageConfig
}

// KafkaConfig holds Kafka connection settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
}

// JWTConfig holds token signing settings.
type JWTConfig struct {
	Secret string
}

// PaymentConfig holds payment provider settings plus the platform bank
// account surfaced in bank transfer instructions.
type PaymentConfig struct {
	BaseURL       string
	APIKey        string
	WebhookSecret string
	Currency      string
	BankName      string
	BankIBAN      string
}

// StorageConfig holds object storage gateway settings.
type StorageConfig struct {
	BaseURL string
	APIKey  string
	Bucket  string
}

// Load reads configuration from RENTAL_-prefixed environment variables.
func Load() (*ServiceConfig, error) {
	v := viper.New()
	v.SetEnvPrefix("RENTAL")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	v.SetDefault("SERVICE_PORT", ":8080")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "rental")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("REDIS_URL", "redis://localhost:6379/0")
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_GROUP_PREFIX", "driveshare-")
	v.SetDefault("PAYMENT_BASE_URL", "https://api.payments.example.com")
	v.SetDefault("PAYMENT_CURRENCY", "AED")
	v.SetDefault("PAYMENT_BANK_NAME", "DriveShare Platform Bank")
	v.SetDefault("PAYMENT_BANK_IBAN", "AE070331234567890123456")
	v.SetDefault("STORAGE_BASE_URL", "https://storage.example.com")
	v.SetDefault("STORAGE_BUCKET", "driveshare-cars")

	jwtSecret := v.GetString("JWT_SECRET")
	if jwtSecret == "" {
		return nil, fmt.Errorf("RENTAL_JWT_SECRET is required")
	}

	port := v.GetString("SERVICE_PORT")
	if !strings.HasPrefix(port, ":") {
		port = ":" + port
	}

	return &ServiceConfig{
		Port:   port,
		AppEnv: v.GetString("APP_ENV"),
		DBConfig: database.PostgresConfig{
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		RedisURL: v.GetString("REDIS_URL"),
		KafkaConfig: KafkaConfig{
			Brokers:     strings.Split(v.GetString("KAFKA_BROKERS"), ","),
			GroupPrefix: v.GetString("KAFKA_GROUP_PREFIX"),
		},
		JWTConfig: JWTConfig{Secret: jwtSecret},
		Payment: PaymentConfig{
			BaseURL:       v.GetString("PAYMENT_BASE_URL"),
			APIKey:        v.GetString("PAYMENT_API_KEY"),
			WebhookSecret: v.GetString("PAYMENT_WEBHOOK_SECRET"),
			Currency:      v.GetString("PAYMENT_CURRENCY"),
			BankName:      v.GetString("PAYMENT_BANK_NAME"),
			BankIBAN:      v.GetString("PAYMENT_BANK_IBAN"),
		},
		Storage: StorageConfig{
			BaseURL: v.GetString("STORAGE_BASE_URL"),
			APIKey:  v.GetString("STORAGE_API_KEY"),
			Bucket:  v.GetString("STORAGE_BUCKET"),
		},
	}, nil
}
