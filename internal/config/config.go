package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all configuration required by the API process.
// Values come from the environment, optionally seeded from a .env file.
// No business logic should depend on raw environment variables.
type Config struct {
	App        AppConfig
	DB         DBConfig
	Redis      RedisConfig
	Auth       AuthConfig
	Twilio     TwilioConfig
	VoiceAgent VoiceAgentConfig
	SMTP       SMTPConfig
	NATS       NATSConfig
	Notify     NotifyConfig
	RateLimit  RateLimitConfig
}

type AppConfig struct {
	Env  string
	Port int
	// BaseURL is the public URL Twilio uses to reach the webhooks.
	BaseURL     string
	FrontendURL string
	CORSOrigins []string
}

type DBConfig struct {
	// URL takes precedence over the discrete fields when set.
	URL      string
	Host     string
	Port     int
	User     string
	Password string
	Name     string

	// Accepts: disable, require, verify-ca, verify-full
	SSLMode string
}

// RedisConfig is optional; an empty Host disables redis-backed features.
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

type AuthConfig struct {
	JWTSecret       string
	JWTIssuer       string
	JWTAudience     string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration
	CookieName      string
	CookieSecure    bool
	BcryptCost      int
	AdminEmail      string
	AdminPassword   string
}

type TwilioConfig struct {
	AccountSID        string
	AuthToken         string
	ValidateSignature bool
	// Sandbox swaps the REST client for an in-memory provider (local/dev only).
	Sandbox bool
}

type VoiceAgentConfig struct {
	StreamPath       string
	RealtimeURL      string
	DefaultVoice     string
	DefaultModel     string
	MaxConcurrentAI  int
	SessionCapWindow time.Duration
}

type SMTPConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	From     string
}

type NATSConfig struct {
	URL           string
	SubjectPrefix string
}

type NotifyConfig struct {
	PoolSize       int
	WebhookTimeout time.Duration
}

type RateLimitConfig struct {
	LoginRPS     float64
	LoginBurst   int
	WebhookRPS   float64
	WebhookBurst int
}

// Load reads .env (when present) and the environment, then validates.
func Load() (Config, error) {
	// A missing .env is the normal case outside local development.
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv builds a Config from the current environment only.
func FromEnv() (Config, error) {
	c := Config{}
	var parseErrs []error

	c.App.Env = strings.TrimSpace(os.Getenv("APP_ENV"))
	{
		n, err := mustInt("APP_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.App.Port = n
	}
	c.App.BaseURL = strings.TrimRight(strings.TrimSpace(os.Getenv("WEBHOOK_BASE_URL")), "/")
	c.App.FrontendURL = strings.TrimRight(strings.TrimSpace(os.Getenv("FRONTEND_URL")), "/")
	c.App.CORSOrigins = splitList(os.Getenv("CORS_ORIGINS"))

	c.DB.URL = strings.TrimSpace(os.Getenv("DATABASE_URL"))
	c.DB.Host = strings.TrimSpace(os.Getenv("DB_HOST"))
	if c.DB.URL == "" {
		n, err := mustInt("DB_PORT")
		n, parseErrs = appendParseErr(parseErrs, n, err)
		c.DB.Port = n
	}
	c.DB.User = strings.TrimSpace(os.Getenv("DB_USER"))
	c.DB.Password = os.Getenv("DB_PASSWORD")
	c.DB.Name = strings.TrimSpace(os.Getenv("DB_NAME"))
	c.DB.SSLMode = strings.TrimSpace(os.Getenv("DB_SSLMODE"))

	c.Redis.Host = strings.TrimSpace(os.Getenv("REDIS_HOST"))
	c.Redis.Password = os.Getenv("REDIS_PASSWORD")
	c.Redis.Port, parseErrs = optionalInt(parseErrs, "REDIS_PORT", 6379)
	c.Redis.DB, parseErrs = optionalInt(parseErrs, "REDIS_DB", 0)

	c.Auth.JWTSecret = os.Getenv("JWT_SECRET")
	c.Auth.JWTIssuer = strings.TrimSpace(os.Getenv("JWT_ISSUER"))
	c.Auth.JWTAudience = strings.TrimSpace(os.Getenv("JWT_AUDIENCE"))
	// Duration env vars are optional; defaults applied in Validate().
	c.Auth.AccessTokenTTL = mustDuration("JWT_ACCESS_TTL")
	c.Auth.RefreshTokenTTL = mustDuration("JWT_REFRESH_TTL")
	c.Auth.CookieName = strings.TrimSpace(os.Getenv("AUTH_COOKIE_NAME"))
	c.Auth.CookieSecure, parseErrs = optionalBool(parseErrs, "AUTH_COOKIE_SECURE", false)
	c.Auth.BcryptCost, parseErrs = optionalInt(parseErrs, "BCRYPT_COST", 0)
	c.Auth.AdminEmail = strings.TrimSpace(os.Getenv("ADMIN_EMAIL"))
	c.Auth.AdminPassword = os.Getenv("ADMIN_PASSWORD")

	c.Twilio.AccountSID = strings.TrimSpace(os.Getenv("TWILIO_ACCOUNT_SID"))
	c.Twilio.AuthToken = os.Getenv("TWILIO_AUTH_TOKEN")
	c.Twilio.ValidateSignature, parseErrs = optionalBool(parseErrs, "TWILIO_VALIDATE_SIGNATURE", c.App.Env == "production")
	c.Twilio.Sandbox, parseErrs = optionalBool(parseErrs, "TWILIO_SANDBOX", false)

	c.VoiceAgent.StreamPath = strings.TrimSpace(os.Getenv("VOICE_AGENT_STREAM_PATH"))
	c.VoiceAgent.RealtimeURL = strings.TrimSpace(os.Getenv("VOICE_AGENT_REALTIME_URL"))
	c.VoiceAgent.DefaultVoice = strings.TrimSpace(os.Getenv("VOICE_AGENT_VOICE"))
	c.VoiceAgent.DefaultModel = strings.TrimSpace(os.Getenv("VOICE_AGENT_MODEL"))
	c.VoiceAgent.MaxConcurrentAI, parseErrs = optionalInt(parseErrs, "VOICE_AGENT_MAX_CONCURRENT", 0)
	c.VoiceAgent.SessionCapWindow = mustDuration("VOICE_AGENT_SESSION_TTL")

	c.SMTP.Host = strings.TrimSpace(os.Getenv("SMTP_HOST"))
	c.SMTP.Port, parseErrs = optionalInt(parseErrs, "SMTP_PORT", 587)
	c.SMTP.User = strings.TrimSpace(os.Getenv("SMTP_USER"))
	c.SMTP.Password = os.Getenv("SMTP_PASSWORD")
	c.SMTP.From = strings.TrimSpace(os.Getenv("SMTP_FROM"))

	c.NATS.URL = strings.TrimSpace(os.Getenv("NATS_URL"))
	c.NATS.SubjectPrefix = strings.TrimSpace(os.Getenv("NATS_SUBJECT_PREFIX"))

	c.Notify.PoolSize, parseErrs = optionalInt(parseErrs, "NOTIFY_POOL_SIZE", 0)
	c.Notify.WebhookTimeout = mustDuration("NOTIFY_WEBHOOK_TIMEOUT")

	c.RateLimit.LoginRPS, parseErrs = optionalFloat(parseErrs, "RATE_LIMIT_LOGIN_RPS", 0)
	c.RateLimit.LoginBurst, parseErrs = optionalInt(parseErrs, "RATE_LIMIT_LOGIN_BURST", 0)
	c.RateLimit.WebhookRPS, parseErrs = optionalFloat(parseErrs, "RATE_LIMIT_WEBHOOK_RPS", 0)
	c.RateLimit.WebhookBurst, parseErrs = optionalInt(parseErrs, "RATE_LIMIT_WEBHOOK_BURST", 0)

	if err := errors.Join(parseErrs...); err != nil {
		return Config{}, err
	}
	if err := c.Validate(); err != nil {
		return Config{}, err
	}
	return c, nil
}

// Validate fills defaults and reports every problem at once.
func (c *Config) Validate() error {
	var errs []error

	if c.App.Env == "" {
		errs = append(errs, errors.New("APP_ENV is required"))
	} else if !isValidEnv(c.App.Env) {
		errs = append(errs, fmt.Errorf("APP_ENV must be one of local, dev, development, staging, production, got %q", c.App.Env))
	}
	if c.App.Port <= 0 || c.App.Port > 65535 {
		errs = append(errs, fmt.Errorf("APP_PORT must be a valid port, got %d", c.App.Port))
	}
	if c.App.BaseURL == "" {
		if c.IsProduction() {
			errs = append(errs, errors.New("WEBHOOK_BASE_URL is required in production"))
		} else {
			c.App.BaseURL = fmt.Sprintf("http://localhost:%d", c.App.Port)
		}
	}
	if c.App.BaseURL != "" {
		if u, err := url.Parse(c.App.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
			errs = append(errs, fmt.Errorf("WEBHOOK_BASE_URL must be an absolute URL, got %q", c.App.BaseURL))
		}
	}
	if c.App.FrontendURL == "" {
		c.App.FrontendURL = "http://localhost:3000"
	}
	if len(c.App.CORSOrigins) == 0 {
		c.App.CORSOrigins = []string{c.App.FrontendURL}
	}

	if c.DB.URL == "" {
		if c.DB.Host == "" {
			errs = append(errs, errors.New("DB_HOST is required"))
		}
		if c.DB.Port <= 0 || c.DB.Port > 65535 {
			errs = append(errs, fmt.Errorf("DB_PORT must be a valid port, got %d", c.DB.Port))
		}
		if c.DB.User == "" {
			errs = append(errs, errors.New("DB_USER is required"))
		}
		if c.DB.Name == "" {
			errs = append(errs, errors.New("DB_NAME is required"))
		}
		if strings.TrimSpace(c.DB.SSLMode) == "" {
			if c.IsProduction() {
				errs = append(errs, errors.New("DB_SSLMODE is required in production"))
			} else {
				c.DB.SSLMode = "disable"
			}
		}
		if c.DB.SSLMode != "" && !isValidSSLMode(c.DB.SSLMode) {
			errs = append(errs, fmt.Errorf("DB_SSLMODE must be one of disable, require, verify-ca, verify-full, got %q", c.DB.SSLMode))
		}
		if c.IsProduction() && c.DB.SSLMode == "disable" {
			errs = append(errs, errors.New("DB_SSLMODE=disable is not allowed in production"))
		}
	}

	if c.Redis.Host != "" && (c.Redis.Port <= 0 || c.Redis.Port > 65535) {
		errs = append(errs, fmt.Errorf("REDIS_PORT must be a valid port, got %d", c.Redis.Port))
	}

	if c.Auth.JWTSecret == "" {
		errs = append(errs, errors.New("JWT_SECRET is required"))
	}
	if c.IsProduction() {
		if c.Auth.JWTIssuer == "" {
			errs = append(errs, errors.New("JWT_ISSUER is required in production"))
		}
		if c.Auth.JWTAudience == "" {
			errs = append(errs, errors.New("JWT_AUDIENCE is required in production"))
		}
	}
	if c.Auth.AccessTokenTTL <= 0 {
		c.Auth.AccessTokenTTL = 30 * time.Minute
	}
	if c.Auth.RefreshTokenTTL <= 0 {
		c.Auth.RefreshTokenTTL = 7 * 24 * time.Hour
	}
	if c.Auth.RefreshTokenTTL <= c.Auth.AccessTokenTTL {
		errs = append(errs, errors.New("JWT_REFRESH_TTL must be greater than JWT_ACCESS_TTL"))
	}
	if c.Auth.CookieName == "" {
		c.Auth.CookieName = "access_token"
	}
	if c.IsProduction() {
		c.Auth.CookieSecure = true
	}
	if (c.Auth.AdminEmail == "") != (c.Auth.AdminPassword == "") {
		errs = append(errs, errors.New("ADMIN_EMAIL and ADMIN_PASSWORD must be set together"))
	}

	if c.Twilio.Sandbox {
		if c.IsProduction() {
			errs = append(errs, errors.New("TWILIO_SANDBOX is not allowed in production"))
		}
	} else {
		if c.Twilio.AccountSID == "" {
			errs = append(errs, errors.New("TWILIO_ACCOUNT_SID is required unless TWILIO_SANDBOX=true"))
		}
		if c.Twilio.AuthToken == "" {
			errs = append(errs, errors.New("TWILIO_AUTH_TOKEN is required unless TWILIO_SANDBOX=true"))
		}
	}
	if c.Twilio.ValidateSignature && c.Twilio.AuthToken == "" {
		errs = append(errs, errors.New("TWILIO_VALIDATE_SIGNATURE requires TWILIO_AUTH_TOKEN"))
	}

	if c.VoiceAgent.StreamPath == "" {
		c.VoiceAgent.StreamPath = "/webhooks/twilio/ai-media-stream"
	}
	if !strings.HasPrefix(c.VoiceAgent.StreamPath, "/") {
		errs = append(errs, fmt.Errorf("VOICE_AGENT_STREAM_PATH must start with '/', got %q", c.VoiceAgent.StreamPath))
	}
	if c.VoiceAgent.RealtimeURL == "" {
		c.VoiceAgent.RealtimeURL = "wss://api.openai.com/v1/realtime"
	}
	if u, err := url.Parse(c.VoiceAgent.RealtimeURL); err != nil || u.Host == "" || (u.Scheme != "wss" && u.Scheme != "ws") {
		errs = append(errs, fmt.Errorf("VOICE_AGENT_REALTIME_URL must be a ws:// or wss:// url, got %q", c.VoiceAgent.RealtimeURL))
	}
	if c.VoiceAgent.DefaultVoice == "" {
		c.VoiceAgent.DefaultVoice = "alloy"
	}
	if c.VoiceAgent.DefaultModel == "" {
		c.VoiceAgent.DefaultModel = "gpt-4o-realtime-preview"
	}
	if c.VoiceAgent.MaxConcurrentAI <= 0 {
		c.VoiceAgent.MaxConcurrentAI = 5
	}
	if c.VoiceAgent.SessionCapWindow <= 0 {
		c.VoiceAgent.SessionCapWindow = 2 * time.Hour
	}

	if c.SMTP.Host != "" && c.SMTP.From == "" {
		errs = append(errs, errors.New("SMTP_FROM is required when SMTP_HOST is set"))
	}

	if c.NATS.SubjectPrefix == "" {
		c.NATS.SubjectPrefix = "callassistant"
	}

	if c.Notify.PoolSize <= 0 {
		c.Notify.PoolSize = 16
	}
	if c.Notify.WebhookTimeout <= 0 {
		c.Notify.WebhookTimeout = 5 * time.Second
	}

	if c.RateLimit.LoginRPS <= 0 {
		c.RateLimit.LoginRPS = 1
	}
	if c.RateLimit.LoginBurst <= 0 {
		c.RateLimit.LoginBurst = 5
	}
	if c.RateLimit.WebhookRPS <= 0 {
		c.RateLimit.WebhookRPS = 20
	}
	if c.RateLimit.WebhookBurst <= 0 {
		c.RateLimit.WebhookBurst = 40
	}

	return errors.Join(errs...)
}

func (c Config) IsProduction() bool {
	return c.App.Env == "production"
}

func (c Config) HTTPAddr() string {
	return fmt.Sprintf(":%d", c.App.Port)
}

func (c Config) PostgresDSN() string {
	// Avoid logging this string; it contains secrets.
	if c.DB.URL != "" {
		return c.DB.URL
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.DB.Host,
		c.DB.Port,
		c.DB.User,
		c.DB.Password,
		c.DB.Name,
		c.DB.SSLMode,
	)
}

func (c Config) RedisEnabled() bool {
	return c.Redis.Host != ""
}

func (c Config) RedisAddr() string {
	return fmt.Sprintf("%s:%d", c.Redis.Host, c.Redis.Port)
}

func mustInt(key string) (int, error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0, fmt.Errorf("%s is required", key)
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("%s must be an integer, got %q", key, v)
	}
	return n, nil
}

func optionalInt(errs []error, key string, def int) (int, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be an integer, got %q", key, v))
	}
	return n, errs
}

func optionalFloat(errs []error, key string, def float64) (float64, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be a number, got %q", key, v))
	}
	return f, errs
}

func optionalBool(errs []error, key string, def bool) (bool, []error) {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def, errs
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return def, append(errs, fmt.Errorf("%s must be a boolean, got %q", key, v))
	}
	return b, errs
}

func mustDuration(key string) time.Duration {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return 0
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0
	}
	return d
}

func appendParseErr(errs []error, n int, err error) (int, []error) {
	if err != nil {
		errs = append(errs, err)
	}
	return n, errs
}

func splitList(v string) []string {
	var out []string
	for _, p := range strings.Split(v, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func isValidEnv(v string) bool {
	switch v {
	case "local", "dev", "development", "staging", "production":
		return true
	default:
		return false
	}
}

func isValidSSLMode(v string) bool {
	switch v {
	case "disable", "require", "verify-ca", "verify-full":
		return true
	default:
		return false
	}
}
