package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	JWT       JWTConfig
	CORS      CORSConfig
	RateLimit RateLimitConfig
	Redis     RedisConfig
	Session   SessionConfig
	Log       LogConfig
}

type AppConfig struct {
	Name  string
	Env   string
	Port  string
	Debug bool
	Seed  bool
}

type DatabaseConfig struct {
	Host     string
	Port     string
	Name     string
	User     string
	Password string
	SSLMode  string
	Timezone string
}

type JWTConfig struct {
	Secret      string
	ExpiryHours time.Duration
}

type CORSConfig struct {
	AllowedOrigins []string
	AllowedMethods []string
	AllowedHeaders []string
}

type RateLimitConfig struct {
	Requests int
	Duration int
}

// RedisConfig enables the shared currency cache when Addr is set
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	TTL      time.Duration
}

func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

type SessionConfig struct {
	IdleTTL         time.Duration
	JanitorInterval time.Duration
	RemoteTimeout   time.Duration
	DefaultCurrency string
	DefaultLimit    int
	VATPercentage   float64
	ValidityDays    int
	IdempotencyTTL  time.Duration
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() *Config {
	viper.SetConfigFile(".env")
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err != nil {
		log.Printf("Warning: .env file not found, using environment variables: %v", err)
	}

	// Set defaults
	viper.SetDefault("APP_NAME", "quoteflow-api")
	viper.SetDefault("APP_ENV", "development")
	viper.SetDefault("APP_PORT", "8080")
	viper.SetDefault("APP_DEBUG", true)
	viper.SetDefault("APP_SEED", true)
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_NAME", "quoteflow")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_SSL_MODE", "disable")
	viper.SetDefault("DB_TIMEZONE", "UTC")
	viper.SetDefault("JWT_SECRET", "change-this-secret-in-production")
	viper.SetDefault("JWT_EXPIRY_HOURS", 24)
	viper.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000")
	viper.SetDefault("CORS_ALLOWED_HEADERS", []string{})
	viper.SetDefault("RATE_LIMIT_REQUESTS", 100)
	viper.SetDefault("RATE_LIMIT_DURATION", 60)
	viper.SetDefault("REDIS_ADDR", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("REDIS_TTL_SECONDS", 300)
	viper.SetDefault("SESSION_IDLE_TTL_MINUTES", 30)
	viper.SetDefault("SESSION_JANITOR_INTERVAL_SECONDS", 60)
	viper.SetDefault("SESSION_REMOTE_TIMEOUT_SECONDS", 10)
	viper.SetDefault("SESSION_DEFAULT_CURRENCY", "USD")
	viper.SetDefault("SESSION_DEFAULT_LIMIT", 15)
	viper.SetDefault("SESSION_VAT_PERCENTAGE", 5)
	viper.SetDefault("QUOTATION_VALIDITY_DAYS", 30)
	viper.SetDefault("IDEMPOTENCY_TTL_HOURS", 24)
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("LOG_FORMAT", "json")

	return &Config{
		App: AppConfig{
			Name:  viper.GetString("APP_NAME"),
			Env:   viper.GetString("APP_ENV"),
			Port:  viper.GetString("APP_PORT"),
			Debug: viper.GetBool("APP_DEBUG"),
			Seed:  viper.GetBool("APP_SEED"),
		},
		Database: DatabaseConfig{
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			Name:     viper.GetString("DB_NAME"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			SSLMode:  viper.GetString("DB_SSL_MODE"),
			Timezone: viper.GetString("DB_TIMEZONE"),
		},
		JWT: JWTConfig{
			Secret:      viper.GetString("JWT_SECRET"),
			ExpiryHours: time.Duration(viper.GetInt("JWT_EXPIRY_HOURS")) * time.Hour,
		},
		CORS: CORSConfig{
			AllowedOrigins: viper.GetStringSlice("CORS_ALLOWED_ORIGINS"),
			AllowedMethods: viper.GetStringSlice("CORS_ALLOWED_METHODS"),
			AllowedHeaders: viper.GetStringSlice("CORS_ALLOWED_HEADERS"),
		},
		RateLimit: RateLimitConfig{
			Requests: viper.GetInt("RATE_LIMIT_REQUESTS"),
			Duration: viper.GetInt("RATE_LIMIT_DURATION"),
		},
		Redis: RedisConfig{
			Addr:     viper.GetString("REDIS_ADDR"),
			Password: viper.GetString("REDIS_PASSWORD"),
			DB:       viper.GetInt("REDIS_DB"),
			TTL:      time.Duration(viper.GetInt("REDIS_TTL_SECONDS")) * time.Second,
		},
		Session: SessionConfig{
			IdleTTL:         time.Duration(viper.GetInt("SESSION_IDLE_TTL_MINUTES")) * time.Minute,
			JanitorInterval: time.Duration(viper.GetInt("SESSION_JANITOR_INTERVAL_SECONDS")) * time.Second,
			RemoteTimeout:   time.Duration(viper.GetInt("SESSION_REMOTE_TIMEOUT_SECONDS")) * time.Second,
			DefaultCurrency: viper.GetString("SESSION_DEFAULT_CURRENCY"),
			DefaultLimit:    viper.GetInt("SESSION_DEFAULT_LIMIT"),
			VATPercentage:   viper.GetFloat64("SESSION_VAT_PERCENTAGE"),
			ValidityDays:    viper.GetInt("QUOTATION_VALIDITY_DAYS"),
			IdempotencyTTL:  time.Duration(viper.GetInt("IDEMPOTENCY_TTL_HOURS")) * time.Hour,
		},
		Log: LogConfig{
			Level:  viper.GetString("LOG_LEVEL"),
			Format: viper.GetString("LOG_FORMAT"),
		},
	}
}

func (c *DatabaseConfig) DSN() string {
	return "host=" + c.Host +
		" user=" + c.User +
		" password=" + c.Password +
		" dbname=" + c.Name +
		" port=" + c.Port +
		" sslmode=" + c.SSLMode +
		" TimeZone=" + c.Timezone
}
