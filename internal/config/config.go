package config

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"github.com/straye-as/crm-api/internal/secrets"
	"go.uber.org/zap"
)

// Store backends
const (
	StoreBackendSQLite    = "sqlite"
	StoreBackendPostgres  = "postgres"
	StoreBackendFirestore = "firestore"
)

// Auth providers
const (
	AuthProviderFirebase = "firebase"
	AuthProviderJWT      = "jwt"
)

// Config holds all application configuration
type Config struct {
	App       AppConfig
	Store     StoreConfig
	Database  DatabaseConfig
	Firestore FirestoreConfig
	Auth      AuthConfig
	Bootstrap BootstrapConfig
	Access    AccessConfig
	Redis     RedisConfig
	Jobs      JobsConfig
	Live      LiveConfig
	Secrets   SecretsConfig
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

// StoreConfig selects the document store backend
type StoreConfig struct {
	// Backend is "sqlite", "postgres" or "firestore"
	Backend string
	// AutoMigrate creates the documents table on startup (sqlite/development)
	AutoMigrate bool
}

type DatabaseConfig struct {
	Host     string
	Port     int
	Name     string
	User     string
	Password string
	SSLMode  string
	// SQLitePath is the SQLite DSN used when the store backend is sqlite
	SQLitePath      string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime int
}

type FirestoreConfig struct {
	ProjectID string
	// CredentialsFile is a service account JSON file; empty uses application default credentials
	CredentialsFile string
	// CredentialsJSON is the service account JSON itself (from the FIREBASE-CREDENTIALS secret)
	CredentialsJSON string
	// EmulatorHost points the client at the Firestore emulator
	EmulatorHost string
}

type AuthConfig struct {
	// Provider is "firebase" or "jwt"
	Provider  string
	JWTSecret string
	JWTIssuer string
}

// BootstrapConfig names the one identity that may act as Admin while no Admin exists.
// Both fields must be set to enable bootstrap.
type BootstrapConfig struct {
	Email string
	UID   string
}

type AccessConfig struct {
	// PublicReadable lists resource kinds unauthenticated callers may read
	PublicReadable []string
}

type RedisConfig struct {
	Enabled  bool
	Addr     string
	Password string
	DB       int
	// SummaryTTL is how long a positive admin summary is cached (seconds)
	SummaryTTL int
	// ChangeChannelPrefix prefixes the pub/sub channels used for change notifications
	ChangeChannelPrefix string
}

type JobsConfig struct {
	Enabled              bool
	SummaryReconcileCron string
}

type LiveConfig struct {
	// HeartbeatInterval is the SSE keep-alive comment interval (seconds)
	HeartbeatInterval int
}

type SecretsConfig struct {
	// Source determines where secrets are loaded from: "environment", "vault", or "auto"
	// "auto" uses environment in development, vault in staging/production
	Source       string
	KeyVaultName string
	CacheEnabled bool
	CacheTTL     int // seconds
}

type LoggingConfig struct {
	Level  string
	Format string
}

type ServerConfig struct {
	ReadTimeout    int
	WriteTimeout   int
	RequestTimeout int
	EnableSwagger  bool
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	// AllowedOrigins is a list of allowed origins for CORS requests
	// Use "*" to allow all origins (not recommended for production)
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	ExposedHeaders   []string
	AllowCredentials bool
	// MaxAge is the max age (in seconds) for preflight cache
	MaxAge int
}

// SecurityConfig holds security header configuration
type SecurityConfig struct {
	EnableHSTS            bool
	HSTSMaxAge            int
	HSTSIncludeSubdomains bool
	HSTSPreload           bool
	ContentSecurityPolicy string
	// FrameOptions sets the X-Frame-Options header (DENY, SAMEORIGIN, or empty to disable)
	FrameOptions       string
	ContentTypeNosniff bool
	XSSProtection      string
	ReferrerPolicy     string
	PermissionsPolicy  string
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	Enabled bool
	// RequestsPerMinute is the default rate limit for unauthenticated requests (per IP)
	RequestsPerMinute int
	// RequestsPerMinuteAuth is the rate limit for authenticated requests (per user)
	RequestsPerMinuteAuth int
	WhitelistIPs          []string
	// WhitelistPaths is a list of paths that bypass rate limiting (e.g., /health)
	WhitelistPaths []string
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

// SummaryTTLDuration returns the admin summary cache TTL as duration
func (r *RedisConfig) SummaryTTLDuration() time.Duration {
	return time.Duration(r.SummaryTTL) * time.Second
}

// HeartbeatDuration returns the SSE heartbeat interval as duration
func (l *LiveConfig) HeartbeatDuration() time.Duration {
	return time.Duration(l.HeartbeatInterval) * time.Second
}

// Validate checks settings that would otherwise fail late
func (c *Config) Validate() error {
	switch c.Store.Backend {
	case StoreBackendSQLite, StoreBackendPostgres:
	case StoreBackendFirestore:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore.projectId is required for the firestore store backend")
		}
	default:
		return fmt.Errorf("unknown store backend %q", c.Store.Backend)
	}

	switch c.Auth.Provider {
	case AuthProviderFirebase:
		if c.Firestore.ProjectID == "" {
			return fmt.Errorf("firestore.projectId is required for the firebase auth provider")
		}
	case AuthProviderJWT:
		if c.Auth.JWTSecret == "" {
			return fmt.Errorf("auth.jwtSecret is required for the jwt auth provider")
		}
	default:
		return fmt.Errorf("unknown auth provider %q", c.Auth.Provider)
	}

	if (c.Bootstrap.Email == "") != (c.Bootstrap.UID == "") {
		return fmt.Errorf("bootstrap.email and bootstrap.uid must be set together")
	}
	return nil
}

// Load loads configuration from file and environment variables
// This is a basic load that doesn't fetch secrets from vault
// Use LoadWithSecrets for full secret resolution
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
	if cfg.Bootstrap.Email == "" {
		cfg.Bootstrap.Email = v.GetString("BOOTSTRAP_ADMIN_EMAIL")
	}
	if cfg.Bootstrap.UID == "" {
		cfg.Bootstrap.UID = v.GetString("BOOTSTRAP_ADMIN_UID")
	}
	if cfg.Firestore.ProjectID == "" {
		cfg.Firestore.ProjectID = v.GetString("GOOGLE_CLOUD_PROJECT")
	}
	if cfg.Firestore.EmulatorHost == "" {
		cfg.Firestore.EmulatorHost = v.GetString("FIRESTORE_EMULATOR_HOST")
	}
	if cfg.Secrets.KeyVaultName == "" {
		cfg.Secrets.KeyVaultName = v.GetString("AZURE_KEY_VAULT_NAME")
	}

	return &cfg, nil
}

// LoadWithSecrets loads configuration and resolves secrets from the configured source.
// Key Vault is used when USE_AZURE_KEY_VAULT=true and the environment is staging or production;
// otherwise secrets come from environment variables.
func LoadWithSecrets(ctx context.Context, logger *zap.Logger) (*Config, error) {
	cfg, err := Load()
	if err != nil {
		return nil, err
	}

	useKeyVault := strings.ToLower(os.Getenv("USE_AZURE_KEY_VAULT")) == "true"
	isValidEnv := cfg.App.Environment == "staging" || cfg.App.Environment == "production"

	if !useKeyVault {
		logger.Info("USE_AZURE_KEY_VAULT not enabled, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if !isValidEnv {
		logger.Warn("USE_AZURE_KEY_VAULT is enabled but environment is not staging or production, using environment variables for secrets",
			zap.String("environment", cfg.App.Environment),
		)
		return cfg, nil
	}

	if cfg.Secrets.KeyVaultName == "" {
		return nil, fmt.Errorf("AZURE_KEY_VAULT_NAME is required when USE_AZURE_KEY_VAULT=true")
	}

	logger.Info("Azure Key Vault enabled for secrets",
		zap.String("environment", cfg.App.Environment),
		zap.String("key_vault_name", cfg.Secrets.KeyVaultName),
	)

	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:       secrets.SourceVault,
		VaultName:    cfg.Secrets.KeyVaultName,
		Environment:  cfg.App.Environment,
		CacheEnabled: cfg.Secrets.CacheEnabled,
		CacheTTL:     time.Duration(cfg.Secrets.CacheTTL) * time.Second,
	}, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize secrets provider (USE_AZURE_KEY_VAULT=true requires valid vault): %w", err)
	}

	if err := ApplySecrets(ctx, cfg, provider); err != nil {
		return nil, err
	}

	logger.Info("Secrets loaded from vault successfully")
	return cfg, nil
}

// SecretSource is the part of secrets.Provider used to resolve configuration secrets
type SecretSource interface {
	GetSecretOrEnv(ctx context.Context, secretName, envVar string) (string, error)
}

// ApplySecrets overwrites configuration values with the secrets available from src
func ApplySecrets(ctx context.Context, cfg *Config, src SecretSource) error {
	set := func(secretName, envVar string, dst *string) {
		if v, err := src.GetSecretOrEnv(ctx, secretName, envVar); err == nil && v != "" {
			*dst = v
		}
	}

	set("POSTGRES-MAIN-HOST", "DATABASE_HOST", &cfg.Database.Host)
	set("POSTGRES-MAIN-USER", "DATABASE_USER", &cfg.Database.User)
	set("POSTGRES-MAIN-PASSWORD", "DATABASE_PASSWORD", &cfg.Database.Password)
	if defaultDB := os.Getenv("DEFAULT_DATABASE"); defaultDB != "" {
		cfg.Database.Name = defaultDB
	}
	if sslMode := os.Getenv("DATABASE_SSLMODE"); sslMode != "" {
		cfg.Database.SSLMode = sslMode
	}

	set("JWT-SECRET", "JWT_SECRET", &cfg.Auth.JWTSecret)
	set("BOOTSTRAP-ADMIN-EMAIL", "BOOTSTRAP_ADMIN_EMAIL", &cfg.Bootstrap.Email)
	set("BOOTSTRAP-ADMIN-UID", "BOOTSTRAP_ADMIN_UID", &cfg.Bootstrap.UID)
	set("REDIS-PASSWORD", "REDIS_PASSWORD", &cfg.Redis.Password)
	set("FIREBASE-CREDENTIALS", "FIREBASE_CREDENTIALS", &cfg.Firestore.CredentialsJSON)

	if cfg.Auth.Provider == AuthProviderJWT && cfg.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT-SECRET is required for the jwt auth provider")
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	// App defaults
	v.SetDefault("app.name", "Straye CRM API")
	v.SetDefault("app.environment", "development")
	v.SetDefault("app.port", 8080)

	// Store defaults
	v.SetDefault("store.backend", StoreBackendSQLite)
	v.SetDefault("store.autoMigrate", true)

	// Database defaults
	v.SetDefault("database.host", "localhost")
	v.SetDefault("database.port", 5432)
	v.SetDefault("database.name", "crm")
	v.SetDefault("database.user", "crm_user")
	v.SetDefault("database.password", "crm_password")
	v.SetDefault("database.sslMode", "disable")
	v.SetDefault("database.sqlitePath", "file:crm.db?cache=shared&_foreign_keys=on")
	v.SetDefault("database.maxOpenConns", 25)
	v.SetDefault("database.maxIdleConns", 5)
	v.SetDefault("database.connMaxLifetime", 300)

	// Auth defaults
	v.SetDefault("auth.provider", AuthProviderJWT)
	v.SetDefault("auth.jwtIssuer", "crm-api")

	// Access defaults: reference metadata is readable without signing in
	v.SetDefault("access.publicReadable", []string{"metadata"})

	// Redis defaults (optional)
	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.summaryTTL", 60)
	v.SetDefault("redis.changeChannelPrefix", "crm:changes:")

	// Jobs defaults
	v.SetDefault("jobs.enabled", true)
	v.SetDefault("jobs.summaryReconcileCron", "@every 10m")

	// Live defaults
	v.SetDefault("live.heartbeatInterval", 25)

	// Secrets defaults
	v.SetDefault("secrets.source", "auto")
	v.SetDefault("secrets.cacheEnabled", true)
	v.SetDefault("secrets.cacheTTL", 300) // 5 minutes

	// Logging defaults
	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "console")

	// Server defaults. WriteTimeout 0 keeps live streams open.
	v.SetDefault("server.readTimeout", 30)
	v.SetDefault("server.writeTimeout", 0)
	v.SetDefault("server.requestTimeout", 60)
	v.SetDefault("server.enableSwagger", true)

	// CORS defaults - restrictive by default
	v.SetDefault("cors.allowedOrigins", []string{})
	v.SetDefault("cors.allowedMethods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowedHeaders", []string{"Accept", "Authorization", "Content-Type", "X-Client-ID", "X-Request-ID"})
	v.SetDefault("cors.exposedHeaders", []string{"Location", "X-Request-ID"})
	v.SetDefault("cors.allowCredentials", true)
	v.SetDefault("cors.maxAge", 300)

	// Security header defaults - secure by default
	v.SetDefault("security.enableHSTS", false)
	v.SetDefault("security.hstsMaxAge", 31536000) // 1 year
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
	v.SetDefault("rateLimit.whitelistIPs", []string{"127.0.0.1", "::1"})
	v.SetDefault("rateLimit.whitelistPaths", []string{"/health", "/health/ready"})
}
