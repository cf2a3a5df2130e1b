package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	applog "frugal/internal/log"
)

const (
	DefaultAPIBaseURL = "https://finance-buddy-notebook.onrender.com"

	ChatContractMessage = "message"
	ChatContractLegacy  = "legacy"
)

type Config struct {
	// Backend API
	APIBaseURL     string
	RequestTimeout time.Duration
	RateLimit      float64 // requests per second, 0 disables

	// Refresh
	PollInterval time.Duration // 0 disables interval polling

	// Chat
	ChatContract string
	ChatUserID   string

	// Logging
	LogLevel  string
	LogFormat string

	// Development backend
	DevServerPort    string
	DevServerBackend string
	SQLiteDBPath     string
	CategoriesFile   string // optional "<name> <budget>" seed for the memory backend
}

func Load() *Config {
	cfg := &Config{
		APIBaseURL:     getEnv("FRUGAL_API_BASE_URL", DefaultAPIBaseURL),
		RequestTimeout: getEnvDuration("FRUGAL_REQUEST_TIMEOUT", 30*time.Second),
		RateLimit:      getEnvFloat("FRUGAL_RATE_LIMIT", 0),

		PollInterval: getEnvDuration("FRUGAL_POLL_INTERVAL", 0),

		ChatContract: getEnv("FRUGAL_CHAT_CONTRACT", ChatContractMessage),
		ChatUserID:   getEnv("FRUGAL_CHAT_USER_ID", "1234"),

		LogLevel:  getEnv("LOG_LEVEL", "info"),
		LogFormat: getEnv("LOG_FORMAT", "text"),

		DevServerPort:    getEnv("DEVSERVER_PORT", "8000"),
		DevServerBackend: getEnv("DEVSERVER_BACKEND", "memory"),
		SQLiteDBPath:     getEnv("SQLITE_DB_PATH", "./data/frugal.db"),
		CategoriesFile:   getEnv("DEVSERVER_CATEGORIES_FILE", ""),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid
func (c *Config) Validate() error {
	var errors []string

	// Validate API base URL
	if parsedURL, err := url.Parse(c.APIBaseURL); err != nil {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': %v", c.APIBaseURL, err))
	} else if parsedURL.Scheme != "http" && parsedURL.Scheme != "https" {
		errors = append(errors, fmt.Sprintf("invalid API base URL scheme '%s': must be 'http' or 'https'", parsedURL.Scheme))
	} else if parsedURL.Host == "" {
		errors = append(errors, fmt.Sprintf("invalid API base URL '%s': missing host", c.APIBaseURL))
	}

	if c.RequestTimeout < 100*time.Millisecond {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at least 100ms", c.RequestTimeout))
	} else if c.RequestTimeout > 10*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid request timeout %v: must be at most 10 minutes", c.RequestTimeout))
	}

	if c.RateLimit < 0 {
		errors = append(errors, fmt.Sprintf("invalid rate limit %v: must not be negative", c.RateLimit))
	}

	if c.PollInterval != 0 && c.PollInterval < time.Second {
		errors = append(errors, fmt.Sprintf("invalid poll interval %v: must be 0 (disabled) or at least 1 second", c.PollInterval))
	}

	switch c.ChatContract {
	case ChatContractMessage:
	case ChatContractLegacy:
		if strings.TrimSpace(c.ChatUserID) == "" {
			errors = append(errors, "chat user id cannot be empty when using the legacy chat contract")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid chat contract '%s': must be one of [%s %s]", c.ChatContract, ChatContractMessage, ChatContractLegacy))
	}

	if _, ok := applog.ParseLevel(c.LogLevel); !ok {
		errors = append(errors, fmt.Sprintf("invalid log level '%s': must be one of [debug info warn error]", c.LogLevel))
	}
	if c.LogFormat != "text" && c.LogFormat != "json" {
		errors = append(errors, fmt.Sprintf("invalid log format '%s': must be 'text' or 'json'", c.LogFormat))
	}

	if err := c.validateDevServer(); err != "" {
		errors = append(errors, err)
	}

	// Return combined errors
	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func (c *Config) validateDevServer() string {
	if port, err := strconv.Atoi(c.DevServerPort); err != nil {
		return fmt.Sprintf("invalid devserver port '%s': must be a number", c.DevServerPort)
	} else if port < 1 || port > 65535 {
		return fmt.Sprintf("invalid devserver port %d: must be between 1 and 65535", port)
	}

	switch c.DevServerBackend {
	case "memory":
		if c.CategoriesFile != "" {
			if _, err := os.Stat(c.CategoriesFile); err != nil {
				return fmt.Sprintf("cannot read categories file '%s': %v", c.CategoriesFile, err)
			}
		}
	case "sqlite":
		if c.SQLiteDBPath == "" {
			return "SQLite database path cannot be empty when using sqlite backend"
		}
		// Check if directory exists or can be created
		dir := filepath.Dir(c.SQLiteDBPath)
		if dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					return fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err)
				}
			}
		}
	default:
		return fmt.Sprintf("invalid devserver backend '%s': must be one of [memory sqlite]", c.DevServerBackend)
	}
	return ""
}

// Legacy reports whether POST /chat should use the {user_id, message} body.
func (c *Config) Legacy() bool {
	return c.ChatContract == ChatContractLegacy
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvFloat(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if f, err := strconv.ParseFloat(value, 64); err == nil {
			return f
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return defaultValue
}
