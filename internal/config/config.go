package config

import (
	"log"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	Store     StoreConfig
	Jobs      JobsConfig
	RateLimit RateLimitConfig
}

type ServerConfig struct {
	Port           string
	Env            string
	AllowedOrigins []string
}

// IsDevelopment reports whether the server runs outside production.
func (s ServerConfig) IsDevelopment() bool {
	return s.Env != "production"
}

type DatabaseConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Database string
	Schema   string
	MaxConns int
}

type RedisConfig struct {
	Host     string
	Port     string
	Password string
	DB       int
}

// Addr returns the host:port redis address.
func (r RedisConfig) Addr() string {
	return r.Host + ":" + r.Port
}

type JWTConfig struct {
	Secret        string
	AccessExpiry  int // in minutes
	RefreshExpiry int // in days
}

// StoreConfig holds storefront-wide pricing settings.
type StoreConfig struct {
	BaseCurrency         string
	DefaultCurrency      string
	DefaultCustomerGroup string
	PricePrecision       int32
}

type JobsConfig struct {
	CartRetentionDays   int
	CartCleanupInterval time.Duration
	LockTTL             time.Duration
}

type RateLimitConfig struct {
	RequestsPerWindow int
	Window            time.Duration
}

func Load() *Config {
	// .env only fills variables that are not already set
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: Could not read .env file: %v", err)
	}

	viper.AutomaticEnv()

	// Set defaults
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_ENV", "development")
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_SCHEMA", "public")
	viper.SetDefault("DB_MAX_CONNS", 25)
	viper.SetDefault("REDIS_HOST", "localhost")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("JWT_ACCESS_EXPIRY", 15)
	viper.SetDefault("JWT_REFRESH_EXPIRY", 7)
	viper.SetDefault("STORE_BASE_CURRENCY", "RON")
	viper.SetDefault("STORE_DEFAULT_CURRENCY", "RON")
	viper.SetDefault("STORE_DEFAULT_CUSTOMER_GROUP", "B2C")
	viper.SetDefault("STORE_PRICE_PRECISION", 2)
	viper.SetDefault("JOBS_CART_RETENTION_DAYS", 30)
	viper.SetDefault("JOBS_CART_CLEANUP_INTERVAL", "24h")
	viper.SetDefault("JOBS_LOCK_TTL", "30m")
	viper.SetDefault("RATE_LIMIT_REQUESTS", 60)
	viper.SetDefault("RATE_LIMIT_WINDOW", "1m")

	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Env:            viper.GetString("SERVER_ENV"),
			AllowedOrigins: splitList(viper.GetString("SERVER_ALLOWED_ORIGINS")),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			Database: viper.GetString("DB_DATABASE"),
			Schema:   viper.GetString("DB_SCHEMA"),
			MaxConns: viper.GetInt("DB_MAX_CONNS"),
		},
		Redis: RedisConfig{
			Host:     viper.GetString("REDIS_HOST"),
			Port:     viper.GetString("REDIS_PORT"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
		},
		JWT: JWTConfig{
			Secret:        viper.GetString("JWT_SECRET"),
			AccessExpiry:  viper.GetInt("JWT_ACCESS_EXPIRY"),
			RefreshExpiry: viper.GetInt("JWT_REFRESH_EXPIRY"),
		},
		Store: StoreConfig{
			BaseCurrency:         strings.ToUpper(viper.GetString("STORE_BASE_CURRENCY")),
			DefaultCurrency:      strings.ToUpper(viper.GetString("STORE_DEFAULT_CURRENCY")),
			DefaultCustomerGroup: viper.GetString("STORE_DEFAULT_CUSTOMER_GROUP"),
			PricePrecision:       viper.GetInt32("STORE_PRICE_PRECISION"),
		},
		Jobs: JobsConfig{
			CartRetentionDays:   viper.GetInt("JOBS_CART_RETENTION_DAYS"),
			CartCleanupInterval: viper.GetDuration("JOBS_CART_CLEANUP_INTERVAL"),
			LockTTL:             viper.GetDuration("JOBS_LOCK_TTL"),
		},
		RateLimit: RateLimitConfig{
			RequestsPerWindow: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Window:            viper.GetDuration("RATE_LIMIT_WINDOW"),
		},
	}
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
