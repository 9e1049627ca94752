// Package config loads the auth service settings from defaults, an optional
// YAML file, YAPYAP_* environment variables and command line flags, in that
// order of precedence.
package config

import (
	"errors"
	"net/url"
	"time"

	validation "github.com/go-ozzo/ozzo-validation"

	auth "github.com/yapyap/go-auth"
)

type Config struct {
	Debug     bool            `koanf:"debug"`
	Server    ServerConfig    `koanf:"server"`
	Auth      AuthConfig      `koanf:"auth"`
	Database  DatabaseConfig  `koanf:"database"`
	Mail      MailConfig      `koanf:"mail"`
	Storage   StorageConfig   `koanf:"storage"`
	RateLimit RateLimitConfig `koanf:"ratelimit"`
	Log       LogConfig       `koanf:"log"`
}

type ServerConfig struct {
	Addr            string        `koanf:"addr"`
	MetricsAddr     string        `koanf:"metrics_addr"`
	BasePath        string        `koanf:"base_path"`
	BodyLimit       int           `koanf:"body_limit"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

type AuthConfig struct {
	SigningKey       string        `koanf:"signing_key"`
	Issuer           string        `koanf:"issuer"`
	PendingTokenTTL  time.Duration `koanf:"pending_token_ttl"`
	SessionTTL       time.Duration `koanf:"session_ttl"`
	CookieName       string        `koanf:"cookie_name"`
	CookieSecure     bool          `koanf:"cookie_secure"`
	CookieSameSite   string        `koanf:"cookie_same_site"`
	ClientBaseURL    string        `koanf:"client_base_url"`
	PasswordHashCost int           `koanf:"password_hash_cost"`
	UseHashid        bool          `koanf:"use_hashid"`
}

type DatabaseConfig struct {
	Driver         string        `koanf:"driver"`
	DSN            string        `koanf:"dsn"`
	MaxOpenConns   int           `koanf:"max_open_conns"`
	ConnectRetries uint64        `koanf:"connect_retries"`
	ConnectBackoff time.Duration `koanf:"connect_backoff"`
	AutoMigrate    bool          `koanf:"auto_migrate"`
}

type MailConfig struct {
	Driver   string `koanf:"driver"`
	Host     string `koanf:"host"`
	Port     int    `koanf:"port"`
	Username string `koanf:"username"`
	Password string `koanf:"password"`
	From     string `koanf:"from"`
	TLS      string `koanf:"tls"`
}

type StorageConfig struct {
	Driver        string `koanf:"driver"`
	Bucket        string `koanf:"bucket"`
	Region        string `koanf:"region"`
	Endpoint      string `koanf:"endpoint"`
	AccessKey     string `koanf:"access_key"`
	SecretKey     string `koanf:"secret_key"`
	PublicBaseURL string `koanf:"public_base_url"`
	UsePathStyle  bool   `koanf:"use_path_style"`
}

type RateLimitConfig struct {
	Enabled       bool          `koanf:"enabled"`
	RedisAddr     string        `koanf:"redis_addr"`
	RedisPassword string        `koanf:"redis_password"`
	RedisDB       int           `koanf:"redis_db"`
	Max           int64         `koanf:"max"`
	Window        time.Duration `koanf:"window"`
}

type LogConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
}

var _ auth.Config = (*Config)(nil)

// Defaults returns the development defaults as a flat koanf map.
func Defaults() map[string]any {
	return map[string]any{
		"debug":                    false,
		"server.addr":              ":5001",
		"server.metrics_addr":      ":9090",
		"server.base_path":         "/api/auth",
		"server.body_limit":        10 * 1024 * 1024,
		"server.shutdown_timeout":  "10s",
		"auth.issuer":              "yapyap",
		"auth.pending_token_ttl":   auth.DefaultPendingTokenTTL.String(),
		"auth.session_ttl":         auth.DefaultSessionTTL.String(),
		"auth.cookie_name":         auth.DefaultSessionCookieName,
		"auth.cookie_secure":       true,
		"auth.cookie_same_site":    "strict",
		"auth.client_base_url":     "http://localhost:5173",
		"auth.password_hash_cost":  auth.DefaultPasswordHashCost,
		"auth.use_hashid":          false,
		"database.driver":          "sqlite",
		"database.dsn":             "file:yapyap.db?cache=shared",
		"database.max_open_conns":  10,
		"database.connect_retries": 5,
		"database.connect_backoff": "500ms",
		"database.auto_migrate":    true,
		"mail.driver":              "log",
		"mail.port":                587,
		"mail.from":                "YapYap <no-reply@yapyap.local>",
		"mail.tls":                 "mandatory",
		"storage.driver":           "memory",
		"storage.region":           "us-east-1",
		"storage.public_base_url":  "http://localhost:5001/media",
		"ratelimit.enabled":        false,
		"ratelimit.redis_addr":     "localhost:6379",
		"ratelimit.max":            10,
		"ratelimit.window":         "1m",
		"log.level":                "info",
		"log.format":               "json",
	}
}

// Validate will run validation rules
func (c Config) Validate() error {
	return validation.ValidateStruct(&c,
		validation.Field(&c.Auth),
		validation.Field(&c.Database),
		validation.Field(&c.Mail),
		validation.Field(&c.Storage),
		validation.Field(&c.RateLimit),
	)
}

func (a AuthConfig) Validate() error {
	return validation.ValidateStruct(&a,
		validation.Field(&a.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&a.ClientBaseURL, validation.Required, validation.By(absoluteURL)),
		validation.Field(&a.PendingTokenTTL, validation.Required),
		validation.Field(&a.SessionTTL, validation.Required),
		validation.Field(&a.CookieSameSite, validation.In("strict", "lax", "none", "Strict", "Lax", "None")),
	)
}

func (d DatabaseConfig) Validate() error {
	return validation.ValidateStruct(&d,
		validation.Field(&d.Driver, validation.Required, validation.In("sqlite", "postgres")),
		validation.Field(&d.DSN, validation.Required),
	)
}

func (m MailConfig) Validate() error {
	return validation.ValidateStruct(&m,
		validation.Field(&m.Driver, validation.Required, validation.In("smtp", "log")),
		validation.Field(&m.From, validation.Required),
		validation.Field(&m.Host, when(m.Driver == "smtp", validation.Required)),
		validation.Field(&m.TLS, validation.In("mandatory", "opportunistic", "none")),
	)
}

func (s StorageConfig) Validate() error {
	return validation.ValidateStruct(&s,
		validation.Field(&s.Driver, validation.Required, validation.In("s3", "memory")),
		validation.Field(&s.Bucket, when(s.Driver == "s3", validation.Required)),
		validation.Field(&s.Region, when(s.Driver == "s3", validation.Required)),
	)
}

func (r RateLimitConfig) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.RedisAddr, when(r.Enabled, validation.Required)),
		validation.Field(&r.Max, when(r.Enabled, validation.Required, validation.Min(int64(1)))),
		validation.Field(&r.Window, when(r.Enabled, validation.Required)),
	)
}

type skipRule struct{}

func (skipRule) Validate(any) error { return nil }

// when applies rules only if cond holds.
func when(cond bool, rules ...validation.Rule) validation.Rule {
	if !cond {
		return skipRule{}
	}
	return validation.By(func(value any) error {
		return validation.Validate(value, rules...)
	})
}

func absoluteURL(value any) error {
	s, _ := value.(string)
	u, err := url.Parse(s)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return errors.New("must be an absolute URL")
	}
	return nil
}

func (c *Config) GetSigningKey() string             { return c.Auth.SigningKey }
func (c *Config) GetIssuer() string                 { return c.Auth.Issuer }
func (c *Config) GetPendingTokenTTL() time.Duration { return c.Auth.PendingTokenTTL }
func (c *Config) GetSessionTTL() time.Duration      { return c.Auth.SessionTTL }
func (c *Config) GetCookieName() string             { return c.Auth.CookieName }
func (c *Config) GetCookieSecure() bool             { return c.Auth.CookieSecure }
func (c *Config) GetCookieSameSite() string         { return c.Auth.CookieSameSite }
func (c *Config) GetClientBaseURL() string          { return c.Auth.ClientBaseURL }
func (c *Config) GetPasswordHashCost() int          { return c.Auth.PasswordHashCost }
func (c *Config) GetUseHashid() bool                { return c.Auth.UseHashid }
func (c *Config) GetDebug() bool                    { return c.Debug }
