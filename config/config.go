package config

import (
	"fmt"
	"log"
	"net"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Server     ServerConfig
	Database   DatabaseConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Firebase   FirebaseConfig
	Storage    StorageConfig
	Mail       MailConfig
	Automation AutomationConfig
	Reports    ReportsConfig
	App        AppConfig
}

type ServerConfig struct {
	Port               string
	ShutdownTimeout    time.Duration
	WebRoot            string
	CORSAllowedOrigins []string
	TrustedProxies     []string
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

const (
	AuthProviderJWT      = "jwt"
	AuthProviderFirebase = "firebase"
)

type AuthConfig struct {
	Provider        string
	JWTSecret       string
	JWTIssuer       string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	ResetTokenTTL   time.Duration
	CookieHost      string
	CookieSecure    bool
	LoginRatePerMin int
	FrontendURL     string
}

type FirebaseConfig struct {
	CredentialsPath string
}

const (
	StorageDriverLocal = "local"
	StorageDriverS3    = "s3"
)

type StorageConfig struct {
	Driver             string
	LocalDir           string
	S3Bucket           string
	S3Region           string
	S3Prefix           string
	AttachmentMaxBytes int64
}

type MailConfig struct {
	SMTPHost     string
	SMTPPort     int
	SMTPUser     string
	SMTPPassword string
	From         string
}

type AutomationConfig struct {
	SweepCron string
	DueSoon   time.Duration
}

type ReportsConfig struct {
	CacheTTL time.Duration
}

type AppConfig struct {
	Environment string
	LogLevel    string
	LogFile     string
	Version     string
}

func Load() (*Config, error) {
	// Load .env file if it exists (ignore error in production)
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using environment variables")
	}

	cfg := FromEnv()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// FromEnv builds a Config from the current environment without validating it.
func FromEnv() *Config {
	return &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ShutdownTimeout:    getEnvAsDuration("SHUTDOWN_TIMEOUT", 10*time.Second),
			WebRoot:            getEnv("WEB_ROOT", ""),
			CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:3000"}),
			TrustedProxies:     getEnvAsList("TRUSTED_PROXIES", nil),
		},
		Database: DatabaseConfig{
			Host:         getEnv("DB_HOST", "localhost"),
			Port:         getEnvAsInt("DB_PORT", 5432),
			User:         getEnv("DB_USER", "postgres"),
			Password:     getEnv("DB_PASSWORD", ""),
			Name:         getEnv("DB_NAME", "taskdeck"),
			SSLMode:      getEnv("DB_SSLMODE", "disable"),
			MaxOpenConns: getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
			MaxIdleConns: getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvAsInt("REDIS_DB", 0),
		},
		Auth: AuthConfig{
			Provider:        strings.ToLower(getEnv("AUTH_PROVIDER", AuthProviderJWT)),
			JWTSecret:       getEnv("JWT_SECRET", ""),
			JWTIssuer:       getEnv("JWT_ISSUER", "taskdeck"),
			AccessTokenTTL:  getEnvAsDuration("ACCESS_TOKEN_TTL", 24*time.Hour),
			RefreshTokenTTL: getEnvAsDuration("REFRESH_TOKEN_TTL", 30*24*time.Hour),
			ResetTokenTTL:   getEnvAsDuration("RESET_TOKEN_TTL", time.Hour),
			CookieHost:      getEnv("COOKIE_HOST", ""),
			CookieSecure:    getEnvAsBool("COOKIE_SECURE", false),
			LoginRatePerMin: getEnvAsInt("LOGIN_RATE_PER_MIN", 10),
			FrontendURL:     strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		},
		Firebase: FirebaseConfig{
			CredentialsPath: getEnv("FIREBASE_CREDENTIALS_PATH", ""),
		},
		Storage: StorageConfig{
			Driver:             strings.ToLower(getEnv("STORAGE_DRIVER", StorageDriverLocal)),
			LocalDir:           getEnv("STORAGE_LOCAL_DIR", "./data/attachments"),
			S3Bucket:           getEnv("STORAGE_S3_BUCKET", ""),
			S3Region:           getEnv("STORAGE_S3_REGION", ""),
			S3Prefix:           getEnv("STORAGE_S3_PREFIX", "attachments/"),
			AttachmentMaxBytes: int64(getEnvAsInt("ATTACHMENT_MAX_BYTES", 25<<20)),
		},
		Mail: MailConfig{
			SMTPHost:     getEnv("SMTP_HOST", ""),
			SMTPPort:     getEnvAsInt("SMTP_PORT", 587),
			SMTPUser:     getEnv("SMTP_USER", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			From:         getEnv("MAIL_FROM", "no-reply@taskdeck.local"),
		},
		Automation: AutomationConfig{
			SweepCron: getEnv("AUTOMATION_SWEEP_CRON", "0 */15 * * * *"),
			DueSoon:   getEnvAsDuration("AUTOMATION_DUE_SOON", 24*time.Hour),
		},
		Reports: ReportsConfig{
			CacheTTL: getEnvAsDuration("REPORT_CACHE_TTL", 60*time.Second),
		},
		App: AppConfig{
			Environment: getEnv("APP_ENV", "development"),
			LogLevel:    getEnv("LOG_LEVEL", "info"),
			LogFile:     getEnv("LOG_FILE", ""),
			Version:     getEnv("APP_VERSION", "1.0.0"),
		},
	}
}

func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	for _, p := range c.Server.TrustedProxies {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return fmt.Errorf("TRUSTED_PROXIES: %q is not an IP or CIDR", p)
			}
		}
	}

	if c.Database.Host == "" {
		return fmt.Errorf("DB_HOST is required")
	}

	switch c.Auth.Provider {
	case AuthProviderJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("JWT_SECRET is required when AUTH_PROVIDER=jwt")
		}
	case AuthProviderFirebase:
		if c.Firebase.CredentialsPath == "" {
			return fmt.Errorf("FIREBASE_CREDENTIALS_PATH is required when AUTH_PROVIDER=firebase")
		}
	default:
		return fmt.Errorf("AUTH_PROVIDER must be %q or %q", AuthProviderJWT, AuthProviderFirebase)
	}

	switch c.Storage.Driver {
	case StorageDriverLocal:
		if c.Storage.LocalDir == "" {
			return fmt.Errorf("STORAGE_LOCAL_DIR is required when STORAGE_DRIVER=local")
		}
	case StorageDriverS3:
		if c.Storage.S3Bucket == "" {
			return fmt.Errorf("STORAGE_S3_BUCKET is required when STORAGE_DRIVER=s3")
		}
	default:
		return fmt.Errorf("STORAGE_DRIVER must be %q or %q", StorageDriverLocal, StorageDriverS3)
	}

	if c.Storage.AttachmentMaxBytes <= 0 {
		return fmt.Errorf("ATTACHMENT_MAX_BYTES must be positive")
	}

	return nil
}

func (c *Config) IsProduction() bool {
	return c.App.Environment == "production"
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid integer for %s, using default: %d", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid boolean for %s, using default: %t", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := time.ParseDuration(valueStr)
	if err != nil {
		log.Printf("Warning: Invalid duration for %s, using default: %s", key, defaultValue)
		return defaultValue
	}

	return value
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
