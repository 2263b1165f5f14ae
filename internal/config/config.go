package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	// HTTP Server
	Port string

	// Database
	DBBackend    string
	SQLiteDBPath string
	PostgresDSN  string

	// Auth
	SecretKey            string
	AccessTokenTTL       time.Duration
	VerificationTokenTTL time.Duration

	// Uploads
	UploadDir string

	// AI providers
	GroqAPIKey      string
	GeminiAPIKey    string
	OpenAIAPIKey    string
	AssistantName   string
	ProviderTimeout time.Duration

	// Email
	SMTPHost      string
	SMTPPort      int
	SMTPUser      string
	SMTPPassword  string
	SMTPFromEmail string
	SMTPFromName  string
	FrontendURL   string

	// AMQP (optional; empty URL sends verification mail inline)
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string
}

func Load() *Config {
	cfg := &Config{
		Port: getEnv("PORT", "8080"),

		DBBackend:    getEnv("DB_BACKEND", "sqlite"),
		SQLiteDBPath: getEnv("SQLITE_DB_PATH", "./data/finmate.db"),
		PostgresDSN:  getEnv("POSTGRES_DSN", ""),

		SecretKey:            getEnv("SECRET_KEY", "change-me"),
		AccessTokenTTL:       getEnvDuration("ACCESS_TOKEN_TTL", time.Hour),
		VerificationTokenTTL: getEnvDuration("VERIFICATION_TOKEN_TTL", 24*time.Hour),

		UploadDir: getEnv("UPLOAD_DIR", "./uploads"),

		GroqAPIKey:      getEnv("GROQ_API_KEY", ""),
		GeminiAPIKey:    getEnv("GOOGLE_GEMINI_API_KEY", ""),
		OpenAIAPIKey:    getEnv("OPENAI_API_KEY", ""),
		AssistantName:   getEnv("AI_ASSISTANT_NAME", "FinMate"),
		ProviderTimeout: getEnvDuration("AI_PROVIDER_TIMEOUT", 30*time.Second),

		SMTPHost:      getEnv("SMTP_HOST", ""),
		SMTPPort:      getEnvInt("SMTP_PORT", 587),
		SMTPUser:      getEnv("SMTP_USER", ""),
		SMTPPassword:  getEnv("SMTP_PASSWORD", ""),
		SMTPFromEmail: getEnv("SMTP_FROM_EMAIL", ""),
		SMTPFromName:  getEnv("SMTP_FROM_NAME", "FinMate"),
		FrontendURL:   getEnv("FRONTEND_URL", "http://localhost:5173"),

		AMQPURL:      getEnv("AMQP_URL", ""),
		AMQPExchange: getEnv("AMQP_EXCHANGE", "finmate"),
		AMQPQueue:    getEnv("AMQP_QUEUE", "verification_emails"),
	}

	return cfg
}

// Validate validates the configuration and returns an error if invalid.
func (c *Config) Validate() error {
	var errors []string

	if port, err := strconv.Atoi(c.Port); err != nil {
		errors = append(errors, fmt.Sprintf("invalid port '%s': must be a number", c.Port))
	} else if port < 1 || port > 65535 {
		errors = append(errors, fmt.Sprintf("invalid port %d: must be between 1 and 65535", port))
	}

	switch c.DBBackend {
	case "sqlite":
		if c.SQLiteDBPath == "" {
			errors = append(errors, "SQLite database path cannot be empty when using sqlite backend")
		} else if dir := filepath.Dir(c.SQLiteDBPath); dir != "." && dir != "" {
			if _, err := os.Stat(dir); os.IsNotExist(err) {
				if err := os.MkdirAll(dir, 0755); err != nil {
					errors = append(errors, fmt.Sprintf("cannot create SQLite database directory '%s': %v", dir, err))
				}
			}
		}
	case "postgres":
		if c.PostgresDSN == "" {
			errors = append(errors, "POSTGRES_DSN is required when using postgres backend")
		}
	default:
		errors = append(errors, fmt.Sprintf("invalid database backend '%s': must be one of [sqlite postgres]", c.DBBackend))
	}

	if c.SecretKey == "" {
		errors = append(errors, "secret key cannot be empty")
	}

	if c.AccessTokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid access token TTL %v: must be at least 1 minute", c.AccessTokenTTL))
	}
	if c.VerificationTokenTTL < time.Minute {
		errors = append(errors, fmt.Sprintf("invalid verification token TTL %v: must be at least 1 minute", c.VerificationTokenTTL))
	}

	if c.ProviderTimeout < time.Second {
		errors = append(errors, fmt.Sprintf("invalid AI provider timeout %v: must be at least 1 second", c.ProviderTimeout))
	} else if c.ProviderTimeout > 5*time.Minute {
		errors = append(errors, fmt.Sprintf("invalid AI provider timeout %v: must be at most 5 minutes", c.ProviderTimeout))
	}

	if c.UploadDir == "" {
		errors = append(errors, "upload directory cannot be empty")
	}

	if c.SMTPPort < 1 || c.SMTPPort > 65535 {
		errors = append(errors, fmt.Sprintf("invalid SMTP port %d: must be between 1 and 65535", c.SMTPPort))
	}

	if c.AMQPURL != "" {
		if parsedURL, err := url.Parse(c.AMQPURL); err != nil {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL '%s': %v", c.AMQPURL, err))
		} else if parsedURL.Scheme != "amqp" && parsedURL.Scheme != "amqps" {
			errors = append(errors, fmt.Sprintf("invalid AMQP URL scheme '%s': must be 'amqp' or 'amqps'", parsedURL.Scheme))
		}
		if c.AMQPExchange == "" {
			errors = append(errors, "AMQP exchange name cannot be empty when AMQP URL is provided")
		}
		if c.AMQPQueue == "" {
			errors = append(errors, "AMQP queue name cannot be empty when AMQP URL is provided")
		}
	}

	if len(errors) > 0 {
		return fmt.Errorf("configuration validation failed:\n- %s", strings.Join(errors, "\n- "))
	}

	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
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
