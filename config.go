package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all configuration for the marketplace service.
type Config struct {
	Port         string
	Env          string
	MongoURI     string
	MongoDB      string
	JWTSecret    string
	RedisAddr    string
	KafkaBrokers []string
	KafkaTopic   string
	StaticDir    string
	S3Bucket     string
	AWSRegion    string
}

// LoadConfig loads environment variables into a Config struct. A local
// .env file is honored when present.
func LoadConfig() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Port:       getEnv("PORT", "8080"),
		Env:        getEnv("APP_ENV", "development"),
		MongoURI:   getEnv("MONGO_URI", "mongodb://localhost:27017"),
		MongoDB:    getEnv("MONGO_DB", "medicine_marketplace"),
		JWTSecret:  os.Getenv("JWT_SECRET"),
		RedisAddr:  os.Getenv("REDIS_ADDR"),
		KafkaTopic: getEnv("KAFKA_TOPIC", "order.events"),
		StaticDir:  getEnv("STATIC_DIR", "./static"),
		S3Bucket:   os.Getenv("S3_BUCKET"),
		AWSRegion:  getEnv("AWS_REGION", "us-east-1"),
	}
	if brokers := os.Getenv("KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	if cfg.JWTSecret == "" {
		return nil, fmt.Errorf("JWT_SECRET is required")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return fallback
}
