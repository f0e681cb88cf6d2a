package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Auth      AuthConfig
	Quota     QuotaConfig
	Events    EventsConfig
	Cache     CacheConfig
	Logging   LoggingConfig
	Server    ServerConfig
	CORS      CORSConfig
	Security  SecurityConfig
	RateLimit RateLimitConfig
}

type AppConfig struct {
	Name        string
	Environment string
	Port        int
}

type DatabaseConfig struct {
	Host            string
	Port            int
	Name            string
	User            string
	Password        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

// RedisConfig holds the connection settings for the shared keyed store
// backing the permission-version gate and the read caches.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type AuthConfig struct {
	// JWTSecret is the HMAC key used to verify identity assertions
	JWTSecret string
	// PermVersionTTL is how long a bumped permission version stays
	// authoritative (seconds)
	PermVersionTTL int
}

// PermVersionTTLDuration returns the permission version TTL as duration
func (a *AuthConfig) PermVersionTTLDuration() time.Duration {
	return time.Duration(a.PermVersionTTL) * time.Second
}

// QuotaConfig holds configuration for the billing/quota service.
// The connection is optional; when the service is unreachable the
// fallback limits table below applies.
type QuotaConfig struct {
	// Enabled controls whether the remote quota service is consulted
	Enabled bool
	// BaseURL is the quota service base URL
	BaseURL string
	// ServiceName identifies this service to the quota service
	ServiceName string
	// ServiceSecret authenticates service-to-service calls both ways
	ServiceSecret string
	// CheckTimeout is the limit-check timeout (seconds)
	CheckTimeout int
	// SyncTimeout is the usage-sync timeout (seconds)
	SyncTimeout int
	// FallbackPlan is the plan tier assumed when the service is down
	FallbackPlan string
	// FallbackLimits maps feature name to limit for the fallback plan;
	// 0 means unlimited
	FallbackLimits map[string]int64
}

// CheckTimeoutDuration returns the check timeout as duration
func (q *QuotaConfig) CheckTimeoutDuration() time.Duration {
	return time.Duration(q.CheckTimeout) * time.Second
}

// SyncTimeoutDuration returns the sync timeout as duration
func (q *QuotaConfig) SyncTimeoutDuration() time.Duration {
	return time.Duration(q.SyncTimeout) * time.Second
}

// EventsConfig holds the MQTT event bus settings
type EventsConfig struct {
	Enabled     bool
	BrokerURL   string
	ClientID    string
	Username    string
	Password    string
	TopicPrefix string
}

// CacheConfig holds TTLs for the redis-backed read caches (seconds)
type CacheConfig struct {
	PipelineTTL      int
	ActivityStatsTTL int
}

// PipelineTTLDuration returns the pipeline cache TTL as duration
func (c *CacheConfig) PipelineTTLDuration() time.Duration {
	return time.Duration(c.PipelineTTL) * time.Second
}

// ActivityStatsTTLDuration returns the activity stats cache TTL as duration
func (c *CacheConfig) ActivityStatsTTLDuration() time.Duration {
	return time.Duration(c.ActivityStatsTTL) * time.Second
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	MaxAge           int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	FrameOptions          string
	ContentTypeNosniff    bool
	XSSProtection         string
	ReferrerPolicy        string
	PermissionsPolicy     string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled               bool
	RequestsPerMinute     int
	RequestsPerMinuteAuth int
	WhitelistPaths        []string
}

// ConnectionString builds PostgreSQL connection string
func (d *DatabaseConfig) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.Name, d.SSLMode,
	)
}

// ConnMaxLifetimeDuration returns connection max lifetime as duration
func (d *DatabaseConfig) ConnMaxLifetimeDuration() time.Duration {
	return time.Duration(d.ConnMaxLifetime) * time.Second
}

// ReadTimeoutDuration returns read timeout as duration
func (s *ServerConfig) ReadTimeoutDuration() time.Duration {
	return time.Duration(s.ReadTimeout) * time.Second
}

// WriteTimeoutDuration returns write timeout as duration
func (s *ServerConfig) WriteTimeoutDuration() time.Duration {
	return time.Duration(s.WriteTimeout) * time.Second
}

// RequestTimeoutDuration returns request timeout as duration
func (s *ServerConfig) RequestTimeoutDuration() time.Duration {
	return time.Duration(s.RequestTimeout) * time.Second
}

// Load loads configuration from file and environment variables
func Load() (*Config, error) {
	// Load .env file if it exists (ignore error if not found)
	_ = godotenv.Load()

	v := viper.New()

	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("json")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	// Environment variables override config file
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	if cfg.Auth.JWTSecret == "" {
		cfg.Auth.JWTSecret = v.GetString("JWT_SECRET")
	}
	if cfg.Quota.ServiceSecret == "" {
		cfg.Quota.ServiceSecret = v.GetString("SERVICE_SECRET")
	}
	if cfg.Redis.Password == "" {
		cfg.Redis.Password = v.GetString("REDIS_PASSWORD")
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "TrueValue CRM API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "truevalue_crm")
	v.SetDefault("database.user", "crm_user")
	v.SetDefault("database.password", "crm_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Redis defaults
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)

	// Auth defaults
	v.SetDefault("auth.permVersionTTL", 86400) // 24 hours

	// Quota service defaults (optional external dependency)
	v.SetDefault("quota.enabled", false)
	v.SetDefault("quota.baseURL", "http://localhost:9090")
	v.SetDefault("quota.serviceName", "crm-api")
	v.SetDefault("quota.checkTimeout", 5)
	v.SetDefault("quota.syncTimeout", 10)
	v.SetDefault("quota.fallbackPlan", "free")
	v.SetDefault("quota.fallbackLimits", map[string]int64{
		"contacts":      1000,
		"companies":     500,
		"leads":         1000,
		"deals":         500,
		"pipelines":     3,
		"custom_fields": 20,
		"tags":          0, // unlimited
		"activities":    0, // unlimited
	})

	// Event bus defaults
	v.SetDefault("events.enabled", false)
	v.SetDefault("events.brokerURL", "tcp://localhost:1883")
	v.SetDefault("events.clientID", "crm-api")
	v.SetDefault("events.topicPrefix", "crm/events")

	// Cache defaults
	v.SetDefault("cache.pipelineTTL", 300)      // 5 minutes
	v.SetDefault("cache.activityStatsTTL", 60)  // 1 minute

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 30)
	v.SetDefault("server.requestTimeout", 60)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "PATCH", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID", "X-Permission-Stale"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults - secure by default
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000)
	v.SetDefault("security.hstsIncludeSubdomains", true)
	v.SetDefault("security.hstsPreload", false)
	v.SetDefault("security.contentSecurityPolicy", "default-src 'self'")
	v.SetDefault("security.frameOptions", "DENY")
	v.SetDefault("security.contentTypeNosniff", true)
	v.SetDefault("security.xssProtection", "1; mode=block")
	v.SetDefault("security.referrerPolicy", "strict-origin-when-cross-origin")
	v.SetDefault("security.permissionsPolicy", "geolocation=(), microphone=(), camera=()")

	// Rate limiting defaults
	v.SetDefault("rateLimit.enabled", true)
	v.SetDefault("rateLimit.requestsPerMinute", 60)
	v.SetDefault("rateLimit.requestsPerMinuteAuth", 120)
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/db", "/health/ready"})
}
