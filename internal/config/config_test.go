package config

import (
	"strings"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "DB_BACKEND", "ACCESS_TOKEN_TTL", "VERIFICATION_TOKEN_TTL", "AI_PROVIDER_TIMEOUT", "AI_ASSISTANT_NAME", "SMTP_PORT", "AMQP_QUEUE"} {
		t.Setenv(key, "")
	}

	cfg := Load()

	if cfg.Port != "8080" {
		t.Errorf("Port = %q, want 8080", cfg.Port)
	}
	if cfg.DBBackend != "sqlite" {
		t.Errorf("DBBackend = %q, want sqlite", cfg.DBBackend)
	}
	if cfg.AccessTokenTTL != time.Hour {
		t.Errorf("AccessTokenTTL = %v, want 1h", cfg.AccessTokenTTL)
	}
	if cfg.VerificationTokenTTL != 24*time.Hour {
		t.Errorf("VerificationTokenTTL = %v, want 24h", cfg.VerificationTokenTTL)
	}
	if cfg.ProviderTimeout != 30*time.Second {
		t.Errorf("ProviderTimeout = %v, want 30s", cfg.ProviderTimeout)
	}
	if cfg.AssistantName != "FinMate" {
		t.Errorf("AssistantName = %q, want FinMate", cfg.AssistantName)
	}
	if cfg.SMTPPort != 587 {
		t.Errorf("SMTPPort = %d, want 587", cfg.SMTPPort)
	}
	if cfg.AMQPQueue != "verification_emails" {
		t.Errorf("AMQPQueue = %q, want verification_emails", cfg.AMQPQueue)
	}
}

func TestLoadReadsEnvironment(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("DB_BACKEND", "postgres")
	t.Setenv("POSTGRES_DSN", "postgres://localhost/finmate")
	t.Setenv("ACCESS_TOKEN_TTL", "15m")
	t.Setenv("AI_ASSISTANT_NAME", "Penny")

	cfg := Load()

	if cfg.Port != "9090" {
		t.Errorf("Port = %q, want 9090", cfg.Port)
	}
	if cfg.DBBackend != "postgres" {
		t.Errorf("DBBackend = %q, want postgres", cfg.DBBackend)
	}
	if cfg.AccessTokenTTL != 15*time.Minute {
		t.Errorf("AccessTokenTTL = %v, want 15m", cfg.AccessTokenTTL)
	}
	if cfg.AssistantName != "Penny" {
		t.Errorf("AssistantName = %q, want Penny", cfg.AssistantName)
	}
}

func validTestConfig(t *testing.T) *Config {
	t.Helper()
	return &Config{
		Port:                 "8080",
		DBBackend:            "sqlite",
		SQLiteDBPath:         t.TempDir() + "/test.db",
		SecretKey:            "secret",
		AccessTokenTTL:       time.Hour,
		VerificationTokenTTL: 24 * time.Hour,
		ProviderTimeout:      30 * time.Second,
		UploadDir:            t.TempDir(),
		SMTPPort:             587,
	}
}

func TestValidateAcceptsGoodConfig(t *testing.T) {
	if err := validTestConfig(t).Validate(); err != nil {
		t.Errorf("Validate() = %v, want nil", err)
	}
}

func TestValidateCollectsAllErrors(t *testing.T) {
	cfg := validTestConfig(t)
	cfg.Port = "not-a-port"
	cfg.SecretKey = ""
	cfg.DBBackend = "mysql"
	cfg.ProviderTimeout = 0

	err := cfg.Validate()
	if err == nil {
		t.Fatal("Validate() = nil, want error")
	}
	msg := err.Error()
	for _, want := range []string{"invalid port", "secret key", "invalid database backend", "AI provider timeout"} {
		if !strings.Contains(msg, want) {
			t.Errorf("Validate() error missing %q:\n%s", want, msg)
		}
	}
}

func TestValidateRejectsBadValues(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{"port out of range", func(c *Config) { c.Port = "70000" }, "invalid port"},
		{"postgres without dsn", func(c *Config) { c.DBBackend = "postgres"; c.PostgresDSN = "" }, "POSTGRES_DSN"},
		{"short access ttl", func(c *Config) { c.AccessTokenTTL = time.Second }, "access token TTL"},
		{"short verification ttl", func(c *Config) { c.VerificationTokenTTL = time.Second }, "verification token TTL"},
		{"huge provider timeout", func(c *Config) { c.ProviderTimeout = time.Hour }, "AI provider timeout"},
		{"empty upload dir", func(c *Config) { c.UploadDir = "" }, "upload directory"},
		{"smtp port out of range", func(c *Config) { c.SMTPPort = 0 }, "SMTP port"},
		{"bad amqp scheme", func(c *Config) { c.AMQPURL = "http://broker:5672" }, "AMQP URL scheme"},
		{"amqp without queue", func(c *Config) { c.AMQPURL = "amqp://broker:5672"; c.AMQPQueue = "" }, "queue name"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validTestConfig(t)
			tt.mutate(cfg)
			err := cfg.Validate()
			if err == nil {
				t.Fatal("Validate() = nil, want error")
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Validate() error = %q, missing %q", err.Error(), tt.want)
			}
		})
	}
}
