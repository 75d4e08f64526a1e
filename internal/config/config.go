package config

import (
	"crypto/sha256"
	"io"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/crypto/hkdf"
)

// Config holds application configuration
type Config struct {
	ServerPort   string
	DatabaseType string
	DatabaseURL  string
	DatabasePath string
	AppBaseURL   string
	AppSecret    string

	SessionDuration time.Duration
	MagicLinkTTL    time.Duration
	InviteLinkTTL   time.Duration
	SignedURLTTL    time.Duration
	UploadMaxSize   int64

	AWSRegion        string
	S3Bucket         string
	S3Endpoint       string
	S3ForcePathStyle bool
	SESFromEmail     string
	SESFromName      string

	GoogleClientID     string
	GoogleClientSecret string

	BootstrapMemberEmail string
	RateLimitPerMinute   int
	MetricsToken         string

	LogLevel string
	Debug    bool
}

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is honoured when present.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		ServerPort:   getEnv("PORT", "8080"),
		DatabaseType: getEnv("DB_TYPE", "sqlite"),
		DatabaseURL:  getEnv("DB_URL", ""),
		DatabasePath: getEnv("DB_PATH", "./familyphotos.db"),
		AppBaseURL:   strings.TrimSuffix(getEnv("APP_BASE_URL", "http://localhost:8080"), "/"),
		AppSecret:    getEnv("APP_SECRET", "change-me-in-production"),

		SessionDuration: getDuration("SESSION_DURATION", 30*24*time.Hour),
		MagicLinkTTL:    getDuration("MAGIC_LINK_TTL", time.Hour),
		InviteLinkTTL:   getDuration("INVITE_LINK_TTL", 7*24*time.Hour),
		SignedURLTTL:    getDuration("SIGNED_URL_TTL", time.Hour),
		UploadMaxSize:   getInt64("UPLOAD_MAX_BYTES", 20*1024*1024), // 20MB

		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		S3Bucket:         getEnv("S3_BUCKET", ""),
		S3Endpoint:       getEnv("S3_ENDPOINT", ""),
		S3ForcePathStyle: getBool("S3_FORCE_PATH_STYLE", false),
		SESFromEmail:     getEnv("SES_FROM_EMAIL", ""),
		SESFromName:      getEnv("SES_FROM_NAME", "Family Photos"),

		GoogleClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
		GoogleClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),

		BootstrapMemberEmail: getEnv("BOOTSTRAP_MEMBER_EMAIL", ""),
		RateLimitPerMinute:   int(getInt64("RATE_LIMIT_PER_MINUTE", 10)),
		MetricsToken:         getEnv("METRICS_TOKEN", ""),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		Debug:    getBool("DEBUG", false),
	}
}

// DeriveKey returns a purpose-bound key of the given length derived from AppSecret.
// Distinct purposes never share key material.
func (c *Config) DeriveKey(purpose string, length int) []byte {
	r := hkdf.New(sha256.New, []byte(c.AppSecret), nil, []byte("familyphotos/"+purpose))
	key := make([]byte, length)
	if _, err := io.ReadFull(r, key); err != nil {
		// hkdf only fails when more than 255*HashLen bytes are requested
		panic(err)
	}
	return key
}

// getEnv reads an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}

func getInt64(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.ParseInt(value, 10, 64); err == nil && n > 0 {
			return n
		}
	}
	return defaultValue
}

func getBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}
