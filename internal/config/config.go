package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

// Config is the runtime configuration shared by the api and worker binaries.
type Config struct {
	DatabaseURL      string
	RabbitMQURL      string
	RedisURL         string
	PrivateKeyPath   string
	PublicKeyPath    string
	HTTPAddr         string
	SessionTTL       time.Duration
	LockTimeout      time.Duration
	CategoryCacheTTL time.Duration
	CookieSecure     bool
}

// Load reads .env.local then .env (local overrides .env) and the process
// environment.
func Load() (*Config, error) {
	_ = godotenv.Load(".env.local")
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the environment without touching dotenv files.
func FromEnv() (*Config, error) {
	cfg := &Config{
		DatabaseURL:    os.Getenv("COMMERCE_DB_URL"),
		RabbitMQURL:    os.Getenv("RABBITMQ_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		PrivateKeyPath: os.Getenv("AUTH_PRIVATE_KEY_PATH"),
		PublicKeyPath:  os.Getenv("AUTH_PUBLIC_KEY_PATH"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
	}

	var err error
	if cfg.SessionTTL, err = getDuration("SESSION_TTL", 24*time.Hour); err != nil {
		return nil, err
	}
	if cfg.LockTimeout, err = getDuration("LOCK_TIMEOUT", 3*time.Second); err != nil {
		return nil, err
	}
	if cfg.CategoryCacheTTL, err = getDuration("CATEGORY_CACHE_TTL", 5*time.Minute); err != nil {
		return nil, err
	}
	if cfg.CookieSecure, err = getBool("COOKIE_SECURE", false); err != nil {
		return nil, err
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("COMMERCE_DB_URL is not set")
	}
	if cfg.RabbitMQURL == "" {
		return nil, errors.New("RABBITMQ_URL is not set")
	}
	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getBool(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
