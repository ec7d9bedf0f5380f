package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const (
	EnvDevelopment = "development"
	EnvProduction  = "production"
)

type Config struct {
	Env       string
	Port      int
	APIPrefix string

	Database  DatabaseConfig
	Redis     RedisConfig
	JWT       JWTConfig
	CORS      CORSConfig
	Log       LogConfig
	Chain     ChainConfig
	Workflow  WorkflowConfig
	Documents DocumentsConfig
	Assistant AssistantConfig
	Verifier  VerifierConfig
	Events    EventsConfig
	RateLimit RateLimitConfig
	Dashboard DashboardConfig
	Exports   ExportsConfig
}

type DatabaseConfig struct {
	Host         string
	Port         int
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxOpenConns int
	MaxIdleConns int
	AutoMigrate  bool
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// JWTConfig signs wallet session tokens.
type JWTConfig struct {
	Secret     string
	Expiration time.Duration
	Issuer     string
}

type CORSConfig struct {
	AllowedOrigins []string
}

type LogConfig struct {
	Level  string
	Format string
}

// ChainConfig describes the network wallets must be connected to.
type ChainConfig struct {
	ChainID      int64
	NetworkName  string
	OwnerAddress string
	NonceTTL     time.Duration
}

// WorkflowConfig tunes the application state machine and operation runner.
type WorkflowConfig struct {
	SagThreshold       int
	AdminThreshold     int
	StandardAmount     int64
	ConfirmTimeout     time.Duration
	PendingTTL         time.Duration
	SweepSchedule      string
	CapabilityCacheTTL time.Duration
	RunnerWorkers      int
}

// DocumentsConfig controls the document store integration.
type DocumentsConfig struct {
	PinningURL       string
	PinningJWT       string
	GatewayURL       string
	LocalDir         string
	MaxFileSizeBytes int64
	AllowedMIMEs     []string
	Timeout          time.Duration
	SignedURLSecret  string
	SignedURLTTL     time.Duration
}

// AssistantConfig toggles the conversational assistant proxy.
type AssistantConfig struct {
	Enabled bool
	URL     string
	Timeout time.Duration
}

// VerifierConfig toggles the document authenticity checker.
type VerifierConfig struct {
	Enabled    bool
	URL        string
	Timeout    time.Duration
	Retries    int
	RetryDelay time.Duration
	Workers    int
}

// EventsConfig governs live refresh delivery.
type EventsConfig struct {
	WebsocketEnabled bool
	RedisChannel     string
	BufferSize       int
	PollInterval     time.Duration
}

// RateLimitConfig bounds requests per wallet (or IP when anonymous).
type RateLimitConfig struct {
	Enabled           bool
	RequestsPerSecond float64
	Burst             int
}

// DashboardConfig governs aggregate dashboard caching.
type DashboardConfig struct {
	CacheTTL     time.Duration
	WarmSchedule string
}

// ExportsConfig toggles application register exports.
type ExportsConfig struct {
	Enabled bool
}

func Load() (*Config, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigFile(".env")
	v.SetConfigType("env")
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !isMissingFile(err) {
			return nil, err
		}
	}

	cfg := &Config{}

	cfg.Env = v.GetString("ENV")
	cfg.Port = v.GetInt("PORT")
	cfg.APIPrefix = v.GetString("API_PREFIX")

	cfg.Database = DatabaseConfig{
		Host:         v.GetString("DB_HOST"),
		Port:         v.GetInt("DB_PORT"),
		User:         v.GetString("DB_USER"),
		Password:     v.GetString("DB_PASSWORD"),
		Name:         v.GetString("DB_NAME"),
		SSLMode:      v.GetString("DB_SSL_MODE"),
		MaxOpenConns: v.GetInt("DB_MAX_OPEN_CONNS"),
		MaxIdleConns: v.GetInt("DB_MAX_IDLE_CONNS"),
		AutoMigrate:  v.GetBool("DB_AUTO_MIGRATE"),
	}

	cfg.Redis = RedisConfig{
		Host:     v.GetString("REDIS_HOST"),
		Port:     v.GetInt("REDIS_PORT"),
		Password: v.GetString("REDIS_PASSWORD"),
		DB:       v.GetInt("REDIS_DB"),
	}

	cfg.JWT = JWTConfig{
		Secret:     v.GetString("JWT_SECRET"),
		Expiration: parseDuration(v.GetString("JWT_EXPIRATION"), 12*time.Hour),
		Issuer:     v.GetString("JWT_ISSUER"),
	}

	cfg.CORS = CORSConfig{AllowedOrigins: splitAndTrim(v.GetString("ALLOWED_ORIGINS"))}

	cfg.Log = LogConfig{
		Level:  v.GetString("LOG_LEVEL"),
		Format: v.GetString("LOG_FORMAT"),
	}

	cfg.Chain = ChainConfig{
		ChainID:      v.GetInt64("CHAIN_ID"),
		NetworkName:  v.GetString("CHAIN_NETWORK_NAME"),
		OwnerAddress: v.GetString("OWNER_ADDRESS"),
		NonceTTL:     parseDuration(v.GetString("WALLET_NONCE_TTL"), 5*time.Minute),
	}

	cfg.Workflow = WorkflowConfig{
		SagThreshold:       v.GetInt("WORKFLOW_SAG_THRESHOLD"),
		AdminThreshold:     v.GetInt("WORKFLOW_ADMIN_THRESHOLD"),
		StandardAmount:     v.GetInt64("WORKFLOW_STANDARD_AMOUNT"),
		ConfirmTimeout:     parseDuration(v.GetString("WORKFLOW_CONFIRM_TIMEOUT"), 10*time.Second),
		PendingTTL:         parseDuration(v.GetString("WORKFLOW_PENDING_TTL"), 15*time.Minute),
		SweepSchedule:      v.GetString("WORKFLOW_SWEEP_SCHEDULE"),
		CapabilityCacheTTL: parseDuration(v.GetString("CAPABILITY_CACHE_TTL"), 10*time.Minute),
		RunnerWorkers:      v.GetInt("WORKFLOW_RUNNER_WORKERS"),
	}

	maxDocSize := v.GetInt64("DOCUMENTS_MAX_FILE_SIZE")
	if maxDocSize <= 0 {
		maxDocSize = 5 * 1024 * 1024
	}
	cfg.Documents = DocumentsConfig{
		PinningURL:       v.GetString("DOCUMENTS_PINNING_URL"),
		PinningJWT:       v.GetString("DOCUMENTS_PINNING_JWT"),
		GatewayURL:       v.GetString("DOCUMENTS_GATEWAY_URL"),
		LocalDir:         v.GetString("DOCUMENTS_LOCAL_DIR"),
		MaxFileSizeBytes: maxDocSize,
		AllowedMIMEs:     splitAndTrim(v.GetString("DOCUMENTS_ALLOWED_MIME_TYPES")),
		Timeout:          parseDuration(v.GetString("DOCUMENTS_TIMEOUT"), 30*time.Second),
		SignedURLSecret:  v.GetString("DOCUMENTS_SIGNED_URL_SECRET"),
		SignedURLTTL:     parseDuration(v.GetString("DOCUMENTS_SIGNED_URL_TTL"), 15*time.Minute),
	}

	cfg.Assistant = AssistantConfig{
		Enabled: v.GetBool("ENABLE_ASSISTANT"),
		URL:     v.GetString("ASSISTANT_URL"),
		Timeout: parseDuration(v.GetString("ASSISTANT_TIMEOUT"), 20*time.Second),
	}

	cfg.Verifier = VerifierConfig{
		Enabled:    v.GetBool("ENABLE_VERIFIER"),
		URL:        v.GetString("VERIFIER_URL"),
		Timeout:    parseDuration(v.GetString("VERIFIER_TIMEOUT"), 30*time.Second),
		Retries:    v.GetInt("VERIFIER_RETRIES"),
		RetryDelay: parseDuration(v.GetString("VERIFIER_RETRY_DELAY"), time.Second),
		Workers:    v.GetInt("VERIFIER_WORKERS"),
	}

	cfg.Events = EventsConfig{
		WebsocketEnabled: v.GetBool("ENABLE_EVENTS_WS"),
		RedisChannel:     v.GetString("EVENTS_REDIS_CHANNEL"),
		BufferSize:       v.GetInt("EVENTS_BUFFER_SIZE"),
		PollInterval:     parseDuration(v.GetString("EVENTS_POLL_INTERVAL"), 30*time.Second),
	}

	cfg.RateLimit = RateLimitConfig{
		Enabled:           v.GetBool("ENABLE_RATE_LIMIT"),
		RequestsPerSecond: v.GetFloat64("RATE_LIMIT_RPS"),
		Burst:             v.GetInt("RATE_LIMIT_BURST"),
	}

	cfg.Dashboard = DashboardConfig{
		CacheTTL:     parseDuration(v.GetString("DASHBOARD_CACHE_TTL"), time.Minute),
		WarmSchedule: v.GetString("DASHBOARD_WARM_SCHEDULE"),
	}

	cfg.Exports = ExportsConfig{
		Enabled: v.GetBool("ENABLE_EXPORTS"),
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

const (
	devJWTSecret      = "dev_secret"
	devDocumentSecret = "dev_document_secret"
)

func (c *Config) validate() error {
	var problems []string
	if c.Workflow.SagThreshold < 1 || c.Workflow.AdminThreshold < 1 {
		problems = append(problems, "workflow thresholds must be at least 1")
	}
	if c.Workflow.StandardAmount <= 0 {
		problems = append(problems, "WORKFLOW_STANDARD_AMOUNT must be positive")
	}
	if c.Verifier.Enabled && c.Verifier.URL == "" {
		problems = append(problems, "ENABLE_VERIFIER requires VERIFIER_URL")
	}
	if c.Assistant.Enabled && c.Assistant.URL == "" {
		problems = append(problems, "ENABLE_ASSISTANT requires ASSISTANT_URL")
	}
	if c.Env == EnvProduction {
		if c.JWT.Secret == "" || c.JWT.Secret == devJWTSecret {
			problems = append(problems, "JWT_SECRET must be set in production")
		}
		if c.Documents.SignedURLSecret == "" || c.Documents.SignedURLSecret == devDocumentSecret {
			problems = append(problems, "DOCUMENTS_SIGNED_URL_SECRET must be set in production")
		}
	}
	if len(problems) > 0 {
		return fmt.Errorf("invalid configuration: %s", strings.Join(problems, "; "))
	}
	return nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("ENV", EnvDevelopment)
	v.SetDefault("PORT", 8080)
	v.SetDefault("API_PREFIX", "/api/v1")

	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", 5432)
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "scholarship")
	v.SetDefault("DB_SSL_MODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 10)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_AUTO_MIGRATE", true)

	v.SetDefault("REDIS_HOST", "localhost")
	v.SetDefault("REDIS_PORT", 6379)
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("JWT_SECRET", devJWTSecret)
	v.SetDefault("JWT_EXPIRATION", "12h")
	v.SetDefault("JWT_ISSUER", "scholarship-api")

	v.SetDefault("ALLOWED_ORIGINS", "")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "json")

	v.SetDefault("CHAIN_ID", 11155111)
	v.SetDefault("CHAIN_NETWORK_NAME", "sepolia")
	v.SetDefault("OWNER_ADDRESS", "")
	v.SetDefault("WALLET_NONCE_TTL", "5m")

	v.SetDefault("WORKFLOW_SAG_THRESHOLD", 1)
	v.SetDefault("WORKFLOW_ADMIN_THRESHOLD", 2)
	v.SetDefault("WORKFLOW_STANDARD_AMOUNT", 50000)
	v.SetDefault("WORKFLOW_CONFIRM_TIMEOUT", "10s")
	v.SetDefault("WORKFLOW_PENDING_TTL", "15m")
	v.SetDefault("WORKFLOW_SWEEP_SCHEDULE", "@every 1m")
	v.SetDefault("CAPABILITY_CACHE_TTL", "10m")
	v.SetDefault("WORKFLOW_RUNNER_WORKERS", 4)

	v.SetDefault("DOCUMENTS_PINNING_URL", "")
	v.SetDefault("DOCUMENTS_PINNING_JWT", "")
	v.SetDefault("DOCUMENTS_GATEWAY_URL", "https://gateway.pinata.cloud/ipfs")
	v.SetDefault("DOCUMENTS_LOCAL_DIR", "./documents")
	v.SetDefault("DOCUMENTS_MAX_FILE_SIZE", 5*1024*1024)
	v.SetDefault("DOCUMENTS_ALLOWED_MIME_TYPES", "application/pdf,image/jpeg,image/png")
	v.SetDefault("DOCUMENTS_TIMEOUT", "30s")
	v.SetDefault("DOCUMENTS_SIGNED_URL_SECRET", devDocumentSecret)
	v.SetDefault("DOCUMENTS_SIGNED_URL_TTL", "15m")

	v.SetDefault("ENABLE_ASSISTANT", false)
	v.SetDefault("ASSISTANT_URL", "")
	v.SetDefault("ASSISTANT_TIMEOUT", "20s")

	v.SetDefault("ENABLE_VERIFIER", false)
	v.SetDefault("VERIFIER_URL", "")
	v.SetDefault("VERIFIER_TIMEOUT", "30s")
	v.SetDefault("VERIFIER_RETRIES", 3)
	v.SetDefault("VERIFIER_RETRY_DELAY", "1s")
	v.SetDefault("VERIFIER_WORKERS", 2)

	v.SetDefault("ENABLE_EVENTS_WS", true)
	v.SetDefault("EVENTS_REDIS_CHANNEL", "scholarship:events")
	v.SetDefault("EVENTS_BUFFER_SIZE", 32)
	v.SetDefault("EVENTS_POLL_INTERVAL", "30s")

	v.SetDefault("ENABLE_RATE_LIMIT", true)
	v.SetDefault("RATE_LIMIT_RPS", 10)
	v.SetDefault("RATE_LIMIT_BURST", 20)

	v.SetDefault("DASHBOARD_CACHE_TTL", "1m")
	v.SetDefault("DASHBOARD_WARM_SCHEDULE", "@every 1m")

	v.SetDefault("ENABLE_EXPORTS", true)
}

func parseDuration(raw string, fallback time.Duration) time.Duration {
	if raw == "" {
		return fallback
	}

	d, err := time.ParseDuration(raw)
	if err != nil {
		return fallback
	}

	return d
}

func splitAndTrim(raw string) []string {
	if raw == "" {
		return nil
	}

	parts := strings.Split(raw, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

// viper reports a missing explicit config file as an *fs.PathError rather than ConfigFileNotFoundError.
func isMissingFile(err error) bool {
	return err != nil && strings.Contains(err.Error(), "no such file or directory")
}
