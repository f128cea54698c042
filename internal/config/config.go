// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"fmt"
	"net"
	"net/url"
	"strings"
	"time"

	"github.com/spf13/viper"

	"careers-portal/backend/internal/platform/autherr"
)

// EnvProduction is the APP_ENV value that enables Secure cookies and forbids dev shortcuts.
const EnvProduction = "production"

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the HTTP API listens on (e.g. :8080).
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// GRPCAddr is the address of the gRPC health listener (e.g. :9090).
	GRPCAddr string `mapstructure:"GRPC_ADDR"`
	// DatabaseURL is the Postgres DSN. Required.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogLevel is the zap level name (debug, info, warn, error).
	LogLevel string `mapstructure:"LOG_LEVEL"`
	// TrustedProxies is a comma-separated list of proxy IPs or CIDRs whose forwarding headers
	// are believed. Empty means the socket address is the client address.
	TrustedProxies string `mapstructure:"TRUSTED_PROXIES"`

	// PublicBaseURL is the absolute origin that magic links point at (e.g. https://careers.example.com).
	PublicBaseURL string `mapstructure:"PUBLIC_BASE_URL"`
	// CookieName is the session cookie name.
	CookieName string `mapstructure:"COOKIE_NAME"`
	// CookieDomain scopes the session cookie to the apex domain (e.g. .example.com). Empty means host-only.
	CookieDomain string `mapstructure:"COOKIE_DOMAIN"`
	// NextPathPrefixes is a comma-separated allow-list of internal redirect prefixes.
	NextPathPrefixes string `mapstructure:"NEXT_PATH_PREFIXES"`

	// TokenTTLRaw is the access token lifetime (default 20m).
	TokenTTLRaw string `mapstructure:"TOKEN_TTL"`
	// SessionTTLRaw is the session lifetime (default 168h).
	SessionTTLRaw string `mapstructure:"SESSION_TTL"`
	// LastSeenIntervalRaw throttles last-seen writes per session (default 1m).
	LastSeenIntervalRaw string `mapstructure:"LAST_SEEN_INTERVAL"`
	DBTimeoutRaw        string `mapstructure:"DB_TIMEOUT"`
	MailTimeoutRaw      string `mapstructure:"MAIL_TIMEOUT"`
	// WorkerTimeoutRaw bounds the detached issuance worker (persist + send).
	WorkerTimeoutRaw string `mapstructure:"WORKER_TIMEOUT"`

	// Mail delivery (Postmark-compatible HTTP API).
	MailAPIURL        string `mapstructure:"MAIL_API_URL"`
	MailServerToken   string `mapstructure:"MAIL_SERVER_TOKEN"`
	MailFrom          string `mapstructure:"MAIL_FROM"`
	MailMessageStream string `mapstructure:"MAIL_MESSAGE_STREAM"`

	// DevLinkReturn when true logs links instead of mailing them and serves the latest one at
	// GET /dev/magic-link. Must not be true when Env is production.
	DevLinkReturn bool `mapstructure:"DEV_LINK_RETURN"`

	// RedisURL enables issuance rate limiting when set (e.g. redis://localhost:6379/0).
	RedisURL           string `mapstructure:"REDIS_URL"`
	IssueRateLimit     int    `mapstructure:"ISSUE_RATE_LIMIT"`
	IssueRateWindowRaw string `mapstructure:"ISSUE_RATE_WINDOW"`

	// AuditSink selects the audit destination: "postgres" (default) or "kafka".
	AuditSink       string `mapstructure:"AUDIT_SINK"`
	AuditBufferSize int    `mapstructure:"AUDIT_BUFFER_SIZE"`
	// KafkaBrokers is a comma-separated list of Kafka broker addresses (e.g. "localhost:9092").
	KafkaBrokers    string `mapstructure:"KAFKA_BROKERS"`
	AuditKafkaTopic string `mapstructure:"AUDIT_KAFKA_TOPIC"`
	// KafkaGroupID is the consumer group ID for the audit worker.
	KafkaGroupID string `mapstructure:"KAFKA_GROUP_ID"`

	// OTLPEndpoint enables OpenTelemetry export when set (e.g. localhost:4317).
	OTLPEndpoint    string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure    bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
	OTELServiceName string `mapstructure:"OTEL_SERVICE_NAME"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
// Missing .env is ignored (e.g. in CI). Env vars override .env. Every validation failure wraps
// autherr.ErrMisconfigured; callers must not start serving on error.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("GRPC_ADDR", ":9090")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("TRUSTED_PROXIES", "")
	v.SetDefault("PUBLIC_BASE_URL", "")
	v.SetDefault("COOKIE_NAME", "cp_session")
	v.SetDefault("COOKIE_DOMAIN", "")
	v.SetDefault("NEXT_PATH_PREFIXES", "/dashboard,/jobs,/applications,/profile,/admin")
	v.SetDefault("TOKEN_TTL", "20m")
	v.SetDefault("SESSION_TTL", "168h") // 7d
	v.SetDefault("LAST_SEEN_INTERVAL", "1m")
	v.SetDefault("DB_TIMEOUT", "5s")
	v.SetDefault("MAIL_TIMEOUT", "10s")
	v.SetDefault("WORKER_TIMEOUT", "30s")
	v.SetDefault("MAIL_API_URL", "https://api.postmarkapp.com/email")
	v.SetDefault("MAIL_SERVER_TOKEN", "")
	v.SetDefault("MAIL_FROM", "careers@example.com")
	v.SetDefault("MAIL_MESSAGE_STREAM", "outbound")
	v.SetDefault("DEV_LINK_RETURN", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("ISSUE_RATE_LIMIT", 5)
	v.SetDefault("ISSUE_RATE_WINDOW", "15m")
	v.SetDefault("AUDIT_SINK", "postgres")
	v.SetDefault("AUDIT_BUFFER_SIZE", 256)
	v.SetDefault("KAFKA_BROKERS", "")
	v.SetDefault("AUDIT_KAFKA_TOPIC", "careers-auth-audit")
	v.SetDefault("KAFKA_GROUP_ID", "careers-audit-worker")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", true)
	v.SetDefault("OTEL_SERVICE_NAME", "careers-access")

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, misconfigured("%v", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.HTTPAddr == "" {
		return misconfigured("HTTP_ADDR must be set")
	}
	if c.DatabaseURL == "" {
		return misconfigured("DATABASE_URL must be set")
	}
	u, err := url.Parse(c.PublicBaseURL)
	if c.PublicBaseURL == "" || err != nil || u.Scheme == "" || u.Host == "" {
		return misconfigured("PUBLIC_BASE_URL must be an absolute URL")
	}
	if c.CookieName == "" {
		return misconfigured("COOKIE_NAME must be set")
	}
	for key, raw := range map[string]string{
		"TOKEN_TTL":          c.TokenTTLRaw,
		"SESSION_TTL":        c.SessionTTLRaw,
		"LAST_SEEN_INTERVAL": c.LastSeenIntervalRaw,
		"DB_TIMEOUT":         c.DBTimeoutRaw,
		"MAIL_TIMEOUT":       c.MailTimeoutRaw,
		"WORKER_TIMEOUT":     c.WorkerTimeoutRaw,
		"ISSUE_RATE_WINDOW":  c.IssueRateWindowRaw,
	} {
		if d, err := time.ParseDuration(raw); err != nil || d <= 0 {
			return misconfigured("%s must be a positive duration, got %q", key, raw)
		}
	}
	if c.IsProduction() {
		if c.DevLinkReturn {
			return misconfigured("DEV_LINK_RETURN must not be true when APP_ENV=production")
		}
		if c.MailServerToken == "" {
			return misconfigured("MAIL_SERVER_TOKEN must be set when APP_ENV=production")
		}
		if u.Scheme != "https" {
			return misconfigured("PUBLIC_BASE_URL must use https when APP_ENV=production")
		}
	}
	if c.IssueRateLimit < 1 {
		return misconfigured("ISSUE_RATE_LIMIT must be at least 1")
	}
	if c.AuditBufferSize < 1 {
		return misconfigured("AUDIT_BUFFER_SIZE must be at least 1")
	}
	switch c.AuditSink {
	case "postgres":
	case "kafka":
		if len(c.KafkaBrokersList()) == 0 {
			return misconfigured("KAFKA_BROKERS must be set when AUDIT_SINK=kafka")
		}
	default:
		return misconfigured("AUDIT_SINK must be postgres or kafka, got %q", c.AuditSink)
	}
	for _, p := range c.TrustedProxiesList() {
		if net.ParseIP(p) == nil {
			if _, _, err := net.ParseCIDR(p); err != nil {
				return misconfigured("TRUSTED_PROXIES entry %q must be an IP or CIDR", p)
			}
		}
	}
	if len(c.NextPrefixes()) == 0 {
		return misconfigured("NEXT_PATH_PREFIXES must list at least one path")
	}
	for _, p := range c.NextPrefixes() {
		if !strings.HasPrefix(p, "/") || strings.HasPrefix(p, "//") {
			return misconfigured("NEXT_PATH_PREFIXES entry %q must be an absolute path", p)
		}
	}
	return nil
}

func misconfigured(format string, args ...any) error {
	return fmt.Errorf("config: %w: %s", autherr.ErrMisconfigured, fmt.Sprintf(format, args...))
}

// IsProduction reports whether APP_ENV is production. Controls the Secure cookie flag.
func (c *Config) IsProduction() bool {
	return c != nil && c.Env == EnvProduction
}

// TokenTTL is the access token lifetime. Returns 20m if unset or invalid.
func (c *Config) TokenTTL() time.Duration { return parseDuration(c.TokenTTLRaw, 20*time.Minute) }

// SessionTTL is the session lifetime and cookie max-age. Returns 168h if unset or invalid.
func (c *Config) SessionTTL() time.Duration { return parseDuration(c.SessionTTLRaw, 168*time.Hour) }

func (c *Config) LastSeenInterval() time.Duration {
	return parseDuration(c.LastSeenIntervalRaw, time.Minute)
}

func (c *Config) DBTimeout() time.Duration { return parseDuration(c.DBTimeoutRaw, 5*time.Second) }
func (c *Config) MailTimeout() time.Duration { return parseDuration(c.MailTimeoutRaw, 10*time.Second) }
func (c *Config) WorkerTimeout() time.Duration { return parseDuration(c.WorkerTimeoutRaw, 30*time.Second) }

func (c *Config) IssueRateWindow() time.Duration {
	return parseDuration(c.IssueRateWindowRaw, 15*time.Minute)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}

// KafkaBrokersList returns Kafka broker addresses from the comma-separated config.
func (c *Config) KafkaBrokersList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.KafkaBrokers)
}

// NextPrefixes returns the allow-listed redirect prefixes.
func (c *Config) NextPrefixes() []string {
	if c == nil {
		return nil
	}
	return splitList(c.NextPathPrefixes)
}

// TrustedProxiesList returns the proxies whose X-Forwarded-For headers are trusted.
func (c *Config) TrustedProxiesList() []string {
	if c == nil {
		return nil
	}
	return splitList(c.TrustedProxies)
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}
