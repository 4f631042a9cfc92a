package app

import (
	"encoding/base64"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/opencustody/strongroom/pkg/cryptox"
)

type Config struct {
	Issuer        string // Issuer claim for tokens and TOTP label (default: strongroom)
	SigningSecret string // Required: HMAC secret for token signing
	MasterKey     string // Base64 master key; this or MasterKeyFile is required
	MasterKeyFile string // Path to a file holding the base64 master key

	DatabaseFile         string        // Path to SQLite database file (default: ./strongroom.db)
	Env                  string        // Environment (dev, staging, prod) (default: dev)
	LogLevel             string        // Log level (debug, info, warn, error) (default: info)
	LogFormat            string        // Log format (json, text) (default: json)
	Port                 int           // HTTP server port (default: 8080)
	ShutdownGracePeriod  time.Duration // Graceful shutdown timeout (default: 10s)
	HousekeepingInterval time.Duration // Housekeeping interval (default: 1h)

	VerificationTTL time.Duration // Verification token lifetime (default: 5m)
	AccessTTL       time.Duration // Access token lifetime (default: 60m)
	RefreshTTL      time.Duration // Refresh token lifetime (default: 168h)
	ShareLinkTTL    time.Duration // Default share link lifetime (default: 24h)
}

func LoadConfig() Config {
	return Config{
		Issuer:        getEnvOrDefault("STRONGROOM_ISSUER", "strongroom"),
		SigningSecret: os.Getenv("STRONGROOM_SIGNING_SECRET"),
		MasterKey:     os.Getenv("STRONGROOM_MASTER_KEY"),
		MasterKeyFile: os.Getenv("STRONGROOM_MASTER_KEY_FILE"),

		DatabaseFile:         getEnvOrDefault("STRONGROOM_DATABASE_FILE", "strongroom.db"),
		Env:                  getEnvOrDefault("ENV", "dev"),
		LogLevel:             getEnvOrDefault("LOG_LEVEL", "info"),
		LogFormat:            getEnvOrDefault("LOG_FORMAT", "json"),
		Port:                 getEnvIntOrDefault("PORT", 8080),
		ShutdownGracePeriod:  getEnvDurationOrDefault("SHUTDOWN_GRACE_PERIOD", 10*time.Second),
		HousekeepingInterval: getEnvDurationOrDefault("HOUSEKEEPING_INTERVAL", 1*time.Hour),

		VerificationTTL: getEnvDurationOrDefault("STRONGROOM_VERIFICATION_TTL", 0),
		AccessTTL:       getEnvDurationOrDefault("STRONGROOM_ACCESS_TTL", 0),
		RefreshTTL:      getEnvDurationOrDefault("STRONGROOM_REFRESH_TTL", 0),
		ShareLinkTTL:    getEnvDurationOrDefault("STRONGROOM_SHARE_LINK_TTL", 0),
	}
}

// masterKey decodes and validates the configured master key. Key custody is
// the whole point of the service, so a missing or malformed key is a fatal
// startup error, never a silent fallback.
func (c Config) masterKey() ([]byte, error) {
	encoded := c.MasterKey
	if encoded == "" && c.MasterKeyFile != "" {
		raw, err := os.ReadFile(c.MasterKeyFile)
		if err != nil {
			return nil, fmt.Errorf("failed to read master key file: %w", err)
		}
		encoded = strings.TrimSpace(string(raw))
	}
	if encoded == "" {
		return nil, errors.New("STRONGROOM_MASTER_KEY or STRONGROOM_MASTER_KEY_FILE must be set")
	}

	key, err := base64.StdEncoding.DecodeString(encoded)
	if err != nil {
		return nil, fmt.Errorf("master key is not valid base64: %w", err)
	}
	if len(key) != cryptox.MasterKeySize {
		return nil, fmt.Errorf("master key must be %d bytes, got %d", cryptox.MasterKeySize, len(key))
	}
	return key, nil
}

func (c Config) signingSecret() ([]byte, error) {
	if c.SigningSecret == "" {
		return nil, errors.New("STRONGROOM_SIGNING_SECRET must be set")
	}
	return []byte(c.SigningSecret), nil
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

func getEnvDurationOrDefault(key string, defaultValue time.Duration) time.Duration {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue
	}

	if duration, err := time.ParseDuration(value); err == nil {
		return duration
	}

	return defaultValue
}
