package config

import (
	"context"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// minProductionSecretLength is the shortest session secret accepted in production
const minProductionSecretLength = 32

// Config represents the complete application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Session       SessionConfig
	Redis         RedisConfig
	RBAC          RBACConfig
	Activity      ActivityConfig
	Observability ObservabilityConfig
	CORS          CORSConfig
	Bootstrap     BootstrapConfig
	Environment   string
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host            string
	Port            int
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	ShutdownTimeout time.Duration
	RequestTimeout  time.Duration
	TLS             struct {
		Enabled  bool
		CertFile string
		KeyFile  string
	}
}

// DatabaseConfig holds PostgreSQL database configuration.
// When ConnectionString (from DATABASE_URL) is set, it takes precedence over individual fields.
type DatabaseConfig struct {
	ConnectionString string // From DATABASE_URL when set
	Host             string
	Port             int
	User             string
	Password         string
	Database         string
	SSLMode          string
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetime  time.Duration
}

// SessionConfig holds session token and password hashing settings
type SessionConfig struct {
	Secret     string
	TTL        time.Duration
	Issuer     string
	CookieName string
	BcryptCost int

	// Failed logins allowed per username inside LoginWindow. Zero disables
	// throttling.
	LoginMaxAttempts int
	LoginWindow      time.Duration
}

// RedisConfig holds the realtime channel connection. Empty Addr disables it.
type RedisConfig struct {
	Addr          string
	Password      string
	DB            int
	ChannelPrefix string
}

// Enabled reports whether a Redis address is configured
func (c RedisConfig) Enabled() bool {
	return c.Addr != ""
}

// RBACConfig holds the page keys and paths the permission layer depends on
type RBACConfig struct {
	DashboardRoot    string
	UnauthorizedPath string
	PositionsPageKey string
	OverridesPageKey string
	AccountsPageKey  string
	ActivityPageKey  string
	CacheTTL         time.Duration
	CacheSize        int
}

// ActivityConfig sizes the activity log worker pool
type ActivityConfig struct {
	BufferSize int
	Workers    int
}

// ObservabilityConfig holds monitoring and logging configuration
type ObservabilityConfig struct {
	LogLevel       string
	LogFormat      string // json or text
	MetricsEnabled bool
	MetricsPort    int
}

// CORSConfig holds the dashboard front-end origins
type CORSConfig struct {
	AllowedOrigins []string
}

// BootstrapConfig holds the superadmin account created by the seed command
type BootstrapConfig struct {
	Username string
	Password string
}

// New creates a new Config instance by loading environment variables
func New(ctx context.Context) (*Config, error) {
	_ = godotenv.Load(".env")

	cfg := &Config{
		Environment: getEnv("ENVIRONMENT", "development"),
		Server: ServerConfig{
			Host:            getEnv("SERVER_HOST", "0.0.0.0"),
			Port:            getPort(),
			ReadTimeout:     getEnvAsDuration("SERVER_READ_TIMEOUT", 30*time.Second),
			WriteTimeout:    getEnvAsDuration("SERVER_WRITE_TIMEOUT", 30*time.Second),
			ShutdownTimeout: getEnvAsDuration("SERVER_SHUTDOWN_TIMEOUT", 10*time.Second),
			RequestTimeout:  getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 60*time.Second),
			TLS: struct {
				Enabled  bool
				CertFile string
				KeyFile  string
			}{
				Enabled:  getEnvAsBool("TLS_ENABLED", false),
				CertFile: getEnv("TLS_CERT_FILE", "certs/cert.pem"),
				KeyFile:  getEnv("TLS_KEY_FILE", "certs/key.pem"),
			},
		},
		Database: loadDatabaseConfig(),
		Session: SessionConfig{
			Secret:     getEnv("SESSION_SECRET", "dev-session-secret-change-me"),
			TTL:        getEnvAsDuration("SESSION_TTL", 12*time.Hour),
			Issuer:     getEnv("SESSION_ISSUER", "glassline-admin"),
			CookieName: getEnv("SESSION_COOKIE_NAME", "auth_token"),
			BcryptCost: getEnvAsInt("BCRYPT_COST", 12),

			LoginMaxAttempts: getEnvAsInt("LOGIN_MAX_ATTEMPTS", 5),
			LoginWindow:      getEnvAsDuration("LOGIN_ATTEMPT_WINDOW", 15*time.Minute),
		},
		Redis: RedisConfig{
			Addr:          getEnv("REDIS_ADDR", ""),
			Password:      getEnv("REDIS_PASSWORD", ""),
			DB:            getEnvAsInt("REDIS_DB", 0),
			ChannelPrefix: getEnv("REDIS_CHANNEL_PREFIX", "admin-dashboard"),
		},
		RBAC: RBACConfig{
			DashboardRoot:    getEnv("RBAC_DASHBOARD_ROOT", "/dashboard"),
			UnauthorizedPath: getEnv("RBAC_UNAUTHORIZED_PATH", "/dashboard/unauthorized"),
			PositionsPageKey: getEnv("RBAC_POSITIONS_PAGE_KEY", "positions"),
			OverridesPageKey: getEnv("RBAC_OVERRIDES_PAGE_KEY", "page-access"),
			AccountsPageKey:  getEnv("RBAC_ACCOUNTS_PAGE_KEY", "accounts"),
			ActivityPageKey:  getEnv("RBAC_ACTIVITY_PAGE_KEY", "activity-logs"),
			CacheTTL:         getEnvAsDuration("RBAC_CACHE_TTL", 30*time.Second),
			CacheSize:        getEnvAsInt("RBAC_CACHE_SIZE", 1000),
		},
		Activity: ActivityConfig{
			BufferSize: getEnvAsInt("ACTIVITY_BUFFER_SIZE", 1000),
			Workers:    getEnvAsInt("ACTIVITY_WORKERS", 2),
		},
		Observability: ObservabilityConfig{
			LogLevel:       getEnv("LOG_LEVEL", "info"),
			LogFormat:      getEnv("LOG_FORMAT", "json"),
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
			MetricsPort:    getEnvAsInt("METRICS_PORT", 9090),
		},
		CORS: CORSConfig{
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"http://localhost:5173"}),
		},
		Bootstrap: BootstrapConfig{
			Username: getEnv("BOOTSTRAP_ADMIN_USERNAME", "superadmin"),
			Password: getEnv("BOOTSTRAP_ADMIN_PASSWORD", ""),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if all required configuration fields are set
func (c *Config) Validate() error {
	// Database validation (DATABASE_URL or DB_* vars)
	if c.Database.ConnectionString == "" && c.Database.Host == "" {
		return fmt.Errorf("database configuration required: set DATABASE_URL or DB_HOST")
	}
	if c.Database.ConnectionString == "" {
		if c.Database.User == "" {
			return fmt.Errorf("database user is required")
		}
		if c.Database.Database == "" {
			return fmt.Errorf("database name is required")
		}
	}

	if c.Session.Secret == "" {
		return fmt.Errorf("session secret is required")
	}
	if c.IsProduction() && len(c.Session.Secret) < minProductionSecretLength {
		return fmt.Errorf("session secret must be at least %d bytes in production", minProductionSecretLength)
	}
	if c.Session.TTL <= 0 {
		return fmt.Errorf("session TTL must be positive")
	}
	if c.Session.BcryptCost < 4 || c.Session.BcryptCost > 31 {
		return fmt.Errorf("bcrypt cost must be between 4 and 31")
	}
	if c.Session.LoginMaxAttempts > 0 && c.Session.LoginWindow <= 0 {
		return fmt.Errorf("login attempt window must be positive when throttling is enabled")
	}

	if !strings.HasPrefix(c.RBAC.DashboardRoot, "/") {
		return fmt.Errorf("dashboard root must start with /")
	}
	if !strings.HasPrefix(c.RBAC.UnauthorizedPath, "/") {
		return fmt.Errorf("unauthorized path must start with /")
	}
	if c.RBAC.CacheSize <= 0 {
		return fmt.Errorf("rbac cache size must be positive")
	}

	if c.Activity.BufferSize <= 0 || c.Activity.Workers <= 0 {
		return fmt.Errorf("activity buffer size and workers must be positive")
	}

	// Observability validation
	if c.Observability.LogLevel == "" {
		return fmt.Errorf("log level is required")
	}

	return nil
}

// IsProduction returns true if running in production environment
func (c *Config) IsProduction() bool {
	return c.Environment == "production" || c.Environment == "prod"
}

// IsDevelopment returns true if running in development environment
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development" || c.Environment == "dev"
}

// DSN returns the PostgreSQL connection string.
// Uses ConnectionString (from DATABASE_URL) when set; otherwise builds from individual fields.
func (c *DatabaseConfig) DSN() string {
	if c.ConnectionString != "" {
		return c.ConnectionString
	}
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// LogString returns a safe string for logging (no password). Parses ConnectionString when set.
func (c *DatabaseConfig) LogString() string {
	if c.ConnectionString != "" {
		u, err := url.Parse(c.ConnectionString)
		if err == nil {
			host := u.Hostname()
			port := u.Port()
			if port == "" {
				port = "5432"
			}
			db := strings.TrimPrefix(u.Path, "/")
			return fmt.Sprintf("host=%s port=%s database=%s", host, port, db)
		}
		return "host=<from DATABASE_URL>"
	}
	return fmt.Sprintf("host=%s port=%d database=%s", c.Host, c.Port, c.Database)
}

// loadDatabaseConfig loads database config from DATABASE_URL or DB_* env vars
func loadDatabaseConfig() DatabaseConfig {
	pool := DatabaseConfig{
		MaxOpenConns:    getEnvAsInt("DB_MAX_OPEN_CONNS", 25),
		MaxIdleConns:    getEnvAsInt("DB_MAX_IDLE_CONNS", 5),
		ConnMaxLifetime: getEnvAsDuration("DB_CONN_MAX_LIFETIME", 5*time.Minute),
	}

	if dbURL := getEnv("DATABASE_URL", ""); dbURL != "" {
		pool.ConnectionString = dbURL
		return pool
	}

	pool.Host = getEnv("DB_HOST", "localhost")
	pool.Port = getEnvAsInt("DB_PORT", 5432)
	pool.User = getEnv("DB_USER", "dashboard")
	pool.Password = getEnv("DB_PASSWORD", "dashboard")
	pool.Database = getEnv("DB_NAME", "admin_dashboard")
	pool.SSLMode = getEnv("DB_SSLMODE", "disable")
	return pool
}

// Address returns the HTTP server address
func (c *ServerConfig) Address() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Helper functions

// getPort returns the server port from PORT or SERVER_PORT env vars (default: 8080)
func getPort() int {
	for _, key := range []string{"PORT", "SERVER_PORT"} {
		if value := os.Getenv(key); value != "" {
			if p, err := strconv.Atoi(value); err == nil {
				return p
			}
		}
	}
	return 8080
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

// getEnvAsList splits a comma-separated value, dropping empty items
func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, item := range strings.Split(valueStr, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	if len(out) == 0 {
		return defaultValue
	}
	return out
}
