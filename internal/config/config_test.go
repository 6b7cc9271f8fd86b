package config

import (
	"strings"
	"testing"
	"time"
)

func validLocal() Config {
	return Config{
		App:    AppConfig{Env: "local", Port: 8080},
		DB:     DBConfig{Host: "localhost", Port: 5432, User: "postgres", Password: "x", Name: "calls"},
		Auth:   AuthConfig{JWTSecret: "secret"},
		Twilio: TwilioConfig{Sandbox: true},
	}
}

func TestValidate_ReportsMissingRequired(t *testing.T) {
	c := Config{}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected validation error")
	}
	for _, want := range []string{"APP_ENV is required", "DB_HOST is required", "JWT_SECRET is required", "TWILIO_ACCOUNT_SID"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("expected %q in %v", want, err)
		}
	}
}

func TestValidate_ProductionRequiresSSLMode(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.App.BaseURL = "https://api.example.com"
	c.Auth.JWTIssuer = "call-assistant"
	c.Auth.JWTAudience = "dashboard"
	c.Twilio = TwilioConfig{AccountSID: "AC123", AuthToken: "tok"}
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "DB_SSLMODE is required in production") {
		t.Fatalf("expected error for production without DB_SSLMODE, got %v", err)
	}
}

func TestValidate_ProductionRejectsSandbox(t *testing.T) {
	c := validLocal()
	c.App.Env = "production"
	c.App.BaseURL = "https://api.example.com"
	c.DB.SSLMode = "require"
	c.Auth.JWTIssuer = "call-assistant"
	c.Auth.JWTAudience = "dashboard"
	if err := c.Validate(); err == nil || !strings.Contains(err.Error(), "TWILIO_SANDBOX") {
		t.Fatalf("expected sandbox rejection, got %v", err)
	}
}

func TestValidate_LocalDefaults(t *testing.T) {
	c := validLocal()
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.DB.SSLMode != "disable" {
		t.Fatalf("expected sslmode disable default, got %q", c.DB.SSLMode)
	}
	if c.App.BaseURL != "http://localhost:8080" {
		t.Fatalf("unexpected base url default %q", c.App.BaseURL)
	}
	if c.Auth.AccessTokenTTL != 30*time.Minute {
		t.Fatalf("unexpected access ttl %v", c.Auth.AccessTokenTTL)
	}
	if c.Auth.CookieName != "access_token" {
		t.Fatalf("unexpected cookie name %q", c.Auth.CookieName)
	}
	if c.VoiceAgent.StreamPath != "/webhooks/twilio/ai-media-stream" {
		t.Fatalf("unexpected stream path %q", c.VoiceAgent.StreamPath)
	}
	if c.VoiceAgent.RealtimeURL != "wss://api.openai.com/v1/realtime" {
		t.Fatalf("unexpected realtime url %q", c.VoiceAgent.RealtimeURL)
	}
	if c.RedisEnabled() {
		t.Fatalf("redis should be disabled without REDIS_HOST")
	}
}

func TestValidate_RealtimeURLMustBeWebSocket(t *testing.T) {
	c := validLocal()
	c.VoiceAgent.RealtimeURL = "https://api.openai.com/v1/realtime"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error for non-websocket realtime url")
	}
}

func TestValidate_DatabaseURLSkipsDiscreteFields(t *testing.T) {
	c := Config{
		App:    AppConfig{Env: "dev", Port: 8080},
		DB:     DBConfig{URL: "postgres://u:p@db:5432/calls"},
		Auth:   AuthConfig{JWTSecret: "secret"},
		Twilio: TwilioConfig{Sandbox: true},
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("expected no error, got %v", err)
	}
	if c.PostgresDSN() != "postgres://u:p@db:5432/calls" {
		t.Fatalf("expected DATABASE_URL to win, got %q", c.PostgresDSN())
	}
}

func TestValidate_AdminSeedPair(t *testing.T) {
	c := validLocal()
	c.Auth.AdminEmail = "admin@example.com"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error when only ADMIN_EMAIL is set")
	}
}

func TestFromEnv(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/calls")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TWILIO_SANDBOX", "true")
	t.Setenv("REDIS_HOST", "redis")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")
	t.Setenv("JWT_ACCESS_TTL", "10m")

	c, err := FromEnv()
	if err != nil {
		t.Fatalf("unexpected err: %v", err)
	}
	if c.HTTPAddr() != ":9000" {
		t.Fatalf("unexpected addr %q", c.HTTPAddr())
	}
	if c.RedisAddr() != "redis:6379" {
		t.Fatalf("unexpected redis addr %q", c.RedisAddr())
	}
	if len(c.App.CORSOrigins) != 2 || c.App.CORSOrigins[1] != "http://b.test" {
		t.Fatalf("unexpected cors origins %v", c.App.CORSOrigins)
	}
	if c.Auth.AccessTokenTTL != 10*time.Minute {
		t.Fatalf("unexpected access ttl %v", c.Auth.AccessTokenTTL)
	}
}

func TestFromEnv_BadBool(t *testing.T) {
	t.Setenv("APP_ENV", "dev")
	t.Setenv("APP_PORT", "9000")
	t.Setenv("DATABASE_URL", "postgres://u:p@db:5432/calls")
	t.Setenv("JWT_SECRET", "secret")
	t.Setenv("TWILIO_SANDBOX", "maybe")

	if _, err := FromEnv(); err == nil || !strings.Contains(err.Error(), "TWILIO_SANDBOX must be a boolean") {
		t.Fatalf("expected bool parse error, got %v", err)
	}
}
