package app

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/aussiebroadwan/bartab-security/internal/auth/service"
	"github.com/aussiebroadwan/bartab-security/internal/auth/store/drivers/redis"
	"github.com/aussiebroadwan/bartab-security/pkg/jwtx"
	"github.com/joho/godotenv"
)

const (
	AlgorithmHS256 = jwtx.AlgorithmHS256
	AlgorithmEdDSA = jwtx.AlgorithmEdDSA

	minSecretLength = 32
)

type Config struct {
	Issuer         string // Optional: issuer claim for tokens (default: bartab-security)
	BootstrapToken string // Optional: token required to perform bootstrap

	Algorithm      string // Optional: HS256 or EdDSA (default: HS256)
	SigningSecret  string // HS256 secret; generated into SigningKeyFile when empty
	SigningKeyFile string // Optional: HS256 secret or EdDSA PEM key file (default: ./signing.key)

	AccessTTL             time.Duration // Optional: access token lifetime (default: 15m)
	RefreshTTL            time.Duration // Optional: refresh token lifetime (default: 7d)
	RotateRevokesPrevious bool          // Optional: blacklist the presented refresh token on rotation (default: false)
	ResetTokenTTL         time.Duration // Optional: reset token lifetime (default: 30m)
	ResetBaseURL          string        // Optional: link target embedded in reset events
	ResetRetention        time.Duration // Optional: how long finished reset tokens are kept (default: 7d)
	AuditRetention        time.Duration // Optional: how long audit events are kept, 0 keeps forever
	PasswordPolicy        service.PasswordPolicy

	RedisAddr       string // Optional: Redis address for the blacklist (default: localhost:6379)
	RedisPassword   string
	RedisDB         int
	BlacklistPrefix string // Optional: key prefix for revoked jtis (default: security:blacklist:)

	KafkaBrokers []string // Optional: events are only logged when empty
	KafkaTopic   string   // Optional: (default: security.password.events)

	DatabaseFile         string        // Optional: path to SQLite database file (default: ./auth.db)
	PepperFile           string        // Optional: path to file containing pepper for password hashing (default: ./pepper)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)
}

// LoadConfig reads the environment, after loading a local .env file when one
// exists. Variables already set in the environment win over the file.
func LoadConfig() Config {
	_ = godotenv.Load()

	defPolicy := service.DefaultPasswordPolicy()

	return Config{
		Issuer:         getEnvOrDefault("AUTH_ISSUER", "bartab-security"),
		BootstrapToken: os.Getenv("BOOTSTRAP_TOKEN"),

		Algorithm:      getEnvOrDefault("AUTH_ALGORITHM", AlgorithmHS256),
		SigningSecret:  os.Getenv("AUTH_SIGNING_SECRET"),
		SigningKeyFile: getEnvOrDefault("AUTH_SIGNING_KEY_FILE", "signing.key"),

		AccessTTL:             getEnvDurationOrDefault("AUTH_ACCESS_TTL", jwtx.DefaultAccessTokenTTL),
		RefreshTTL:            getEnvDurationOrDefault("AUTH_REFRESH_TTL", jwtx.DefaultRefreshTokenTTL),
		RotateRevokesPrevious: getEnvBoolOrDefault("AUTH_ROTATE_REVOKES_PREVIOUS", false),
		ResetTokenTTL:         getEnvDurationOrDefault("RESET_TOKEN_TTL", service.DefaultResetTokenTTL),
		ResetBaseURL:          getEnvOrDefault("RESET_BASE_URL", service.DefaultResetBaseURL),
		ResetRetention:        getEnvDurationOrDefault("RESET_RETENTION", 7*24*time.Hour),
		AuditRetention:        getEnvDurationOrDefault("AUDIT_RETENTION", 0),
		PasswordPolicy: service.PasswordPolicy{
			MinLength:      getEnvIntOrDefault("PASSWORD_MIN_LENGTH", defPolicy.MinLength),
			MaxLength:      getEnvIntOrDefault("PASSWORD_MAX_LENGTH", defPolicy.MaxLength),
			RequireUpper:   getEnvBoolOrDefault("PASSWORD_REQUIRE_UPPER", defPolicy.RequireUpper),
			RequireLower:   getEnvBoolOrDefault("PASSWORD_REQUIRE_LOWER", defPolicy.RequireLower),
			RequireDigit:   getEnvBoolOrDefault("PASSWORD_REQUIRE_DIGIT", defPolicy.RequireDigit),
			RequireSpecial: getEnvBoolOrDefault("PASSWORD_REQUIRE_SPECIAL", defPolicy.RequireSpecial),
		},

		RedisAddr:       getEnvOrDefault("REDIS_ADDR", "localhost:6379"),
		RedisPassword:   os.Getenv("REDIS_PASSWORD"),
		RedisDB:         getEnvIntOrDefault("REDIS_DB", 0),
		BlacklistPrefix: getEnvOrDefault("BLACKLIST_PREFIX", redis.DefaultPrefix),

		KafkaBrokers: splitList(os.Getenv("KAFKA_BROKERS")),
		KafkaTopic:   os.Getenv("KAFKA_TOPIC"),

		DatabaseFile:         getEnvOrDefault("AUTH_DATABASE_FILE", "auth.db"),
		PepperFile:           getEnvOrDefault("AUTH_PEPPER_FILE", "pepper"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),
	}
}

// Validate rejects settings the service cannot start with.
func (c Config) Validate() error {
	var errs []error

	switch c.Algorithm {
	case AlgorithmHS256:
		if c.SigningSecret != "" && len(c.SigningSecret) < minSecretLength {
			errs = append(errs, fmt.Errorf("AUTH_SIGNING_SECRET must be at least %d bytes", minSecretLength))
		}
	case AlgorithmEdDSA:
	default:
		errs = append(errs, fmt.Errorf("AUTH_ALGORITHM %q is not supported (HS256, EdDSA)", c.Algorithm))
	}

	if c.AccessTTL <= 0 {
		errs = append(errs, errors.New("AUTH_ACCESS_TTL must be positive"))
	}
	if c.RefreshTTL <= c.AccessTTL {
		errs = append(errs, errors.New("AUTH_REFRESH_TTL must be longer than AUTH_ACCESS_TTL"))
	}
	if c.ResetTokenTTL <= 0 {
		errs = append(errs, errors.New("RESET_TOKEN_TTL must be positive"))
	}
	if c.PasswordPolicy.MinLength < 1 || c.PasswordPolicy.MaxLength < c.PasswordPolicy.MinLength {
		errs = append(errs, errors.New("PASSWORD_MIN_LENGTH and PASSWORD_MAX_LENGTH are inconsistent"))
	}
	if c.Port <= 0 || c.Port > 65535 {
		errs = append(errs, fmt.Errorf("PORT %d is out of range", c.Port))
	}

	return errors.Join(errs...)
}

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if intValue, err := strconv.Atoi(value); err == nil {
		return intValue
	}

	return defaultValue
}

func getEnvBoolOrDefault(key string, defaultValue bool) bool {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if b, err := strconv.ParseBool(value); err == nil {
		return b
	}

	return defaultValue
}

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	// Try parsing as duration (e.g., "1h", "30m", "90s")
	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	// Try parsing as integer minutes (for backwards compatibility)
	if minutes, err := strconv.Atoi(value); err == nil {
		return time.Duration(minutes) * time.Minute
	}

	return defaultValue
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
