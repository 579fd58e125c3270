package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"

	ProviderOpenAI = "openai"
	ProviderGemini = "gemini"
)

type Config struct {
	// Server settings
	ServerPort   string        `mapstructure:"server_port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
	Debug        bool          `mapstructure:"debug"`
	Env          string        `mapstructure:"env"`

	// Application version
	Version string `mapstructure:"version"`

	// Request and shutdown timeouts. A zero RequestTimeout leaves requests
	// unbounded.
	RequestTimeout  time.Duration `mapstructure:"request_timeout"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	Log       LogConfig       `mapstructure:"log"`
	CORS      CORSConfig      `mapstructure:"cors"`
	RateLimit RateLimitConfig `mapstructure:"rate_limit"`
	Datastore DatastoreConfig `mapstructure:"datastore"`
	LLM       LLMConfig       `mapstructure:"llm"`
	Storage   StorageConfig   `mapstructure:"storage"`

	// Middleware toggles are derived from Env, not read from the environment.
	Middleware MiddlewareConfig `mapstructure:"-"`
}

type LogConfig struct {
	Level string `mapstructure:"level"`
	Dir   string `mapstructure:"dir"`
}

type MiddlewareConfig struct {
	EnableRecover   bool
	EnableRequestID bool
	EnableLogger    bool
	EnableCORS      bool
	EnableRateLimit bool
	EnableSession   bool
}

type CORSConfig struct {
	Enabled          bool     `mapstructure:"enabled"`
	AllowedOrigins   []string `mapstructure:"allowed_origins"`
	AllowedMethods   []string `mapstructure:"allowed_methods"`
	AllowedHeaders   []string `mapstructure:"allowed_headers"`
	ExposedHeaders   []string `mapstructure:"exposed_headers"`
	AllowCredentials bool     `mapstructure:"allow_credentials"`
	MaxAge           int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	Enabled           bool `mapstructure:"enabled"`
	RequestsPerMinute int  `mapstructure:"requests_per_minute"`
	BurstSize         int  `mapstructure:"burst_size"`
}

type DatastoreConfig struct {
	Backend  string         `mapstructure:"backend"`
	Supabase SupabaseConfig `mapstructure:"supabase"`
	Postgres PostgresConfig `mapstructure:"postgres"`
	SQLite   SQLiteConfig   `mapstructure:"sqlite"`
}

type SupabaseConfig struct {
	URL        string        `mapstructure:"url"`
	AnonKey    string        `mapstructure:"anon_key"`
	AuthCookie string        `mapstructure:"auth_cookie"`
	Timeout    time.Duration `mapstructure:"timeout"`
}

type PostgresConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
}

type SQLiteConfig struct {
	Path string `mapstructure:"path"`
}

type LLMConfig struct {
	Provider      string `mapstructure:"provider"`
	OpenAIAPIKey  string `mapstructure:"openai_api_key"`
	OpenAIBaseURL string `mapstructure:"openai_base_url"`
	GeminiAPIKey  string `mapstructure:"gemini_api_key"`
	TweetModel    string `mapstructure:"tweet_model"`
	AnalysisModel string `mapstructure:"analysis_model"`
}

type StorageConfig struct {
	PresignEnabled bool          `mapstructure:"presign_enabled"`
	Endpoint       string        `mapstructure:"endpoint"`
	Region         string        `mapstructure:"region"`
	Bucket         string        `mapstructure:"bucket"`
	AccessKey      string        `mapstructure:"access_key"`
	SecretKey      string        `mapstructure:"secret_key"`
	URLTTL         time.Duration `mapstructure:"url_ttl"`
}

func defaultDevConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableCORS:      true,
		EnableRateLimit: false, // Disabled for local testing
		EnableSession:   true,
	}
}

func defaultProdConfig() MiddlewareConfig {
	return MiddlewareConfig{
		EnableRecover:   true,
		EnableRequestID: true,
		EnableLogger:    true,
		EnableCORS:      true,
		EnableRateLimit: true,
		EnableSession:   true,
	}
}

// envBindings maps configuration keys to the environment variables that set
// them. Later names act as aliases.
var envBindings = map[string][]string{
	"server_port":      {"SERVER_PORT"},
	"read_timeout":     {"READ_TIMEOUT"},
	"write_timeout":    {"WRITE_TIMEOUT"},
	"idle_timeout":     {"IDLE_TIMEOUT"},
	"request_timeout":  {"REQUEST_TIMEOUT"},
	"shutdown_timeout": {"SHUTDOWN_TIMEOUT"},
	"debug":            {"DEBUG"},
	"env":              {"ENV"},
	"version":          {"VERSION"},

	"log.level": {"LOG_LEVEL"},
	"log.dir":   {"LOG_DIR"},

	"cors.enabled":           {"CORS_ENABLED"},
	"cors.allowed_origins":   {"CORS_ALLOWED_ORIGINS"},
	"cors.allowed_methods":   {"CORS_ALLOWED_METHODS"},
	"cors.allowed_headers":   {"CORS_ALLOWED_HEADERS"},
	"cors.exposed_headers":   {"CORS_EXPOSED_HEADERS"},
	"cors.allow_credentials": {"CORS_ALLOW_CREDENTIALS"},
	"cors.max_age":           {"CORS_MAX_AGE"},

	"rate_limit.enabled":             {"RATE_LIMIT_ENABLED"},
	"rate_limit.requests_per_minute": {"RATE_LIMIT_RPM"},
	"rate_limit.burst_size":          {"RATE_LIMIT_BURST"},

	"datastore.backend":              {"DATASTORE_BACKEND"},
	"datastore.supabase.url":         {"SUPABASE_URL", "NEXT_PUBLIC_SUPABASE_URL"},
	"datastore.supabase.anon_key":    {"SUPABASE_ANON_KEY", "NEXT_PUBLIC_SUPABASE_ANON_KEY"},
	"datastore.supabase.auth_cookie": {"SUPABASE_AUTH_COOKIE"},
	"datastore.supabase.timeout":     {"SUPABASE_TIMEOUT"},
	"datastore.postgres.url":         {"DATABASE_URL"},
	"datastore.postgres.max_connections": {"DB_MAX_CONNECTIONS"},
	"datastore.sqlite.path":          {"SQLITE_PATH"},

	"llm.provider":        {"LLM_PROVIDER"},
	"llm.openai_api_key":  {"OPENAI_API_KEY"},
	"llm.openai_base_url": {"OPENAI_BASE_URL"},
	"llm.gemini_api_key":  {"GEMINI_API_KEY"},
	"llm.tweet_model":     {"TWEET_MODEL"},
	"llm.analysis_model":  {"ANALYSIS_MODEL"},

	"storage.presign_enabled": {"STORAGE_PRESIGN_ENABLED"},
	"storage.endpoint":        {"STORAGE_ENDPOINT"},
	"storage.region":          {"STORAGE_REGION"},
	"storage.bucket":          {"STORAGE_BUCKET"},
	"storage.access_key":      {"STORAGE_ACCESS_KEY"},
	"storage.secret_key":      {"STORAGE_SECRET_KEY"},
	"storage.url_ttl":         {"STORAGE_URL_TTL"},
}

func setDefaults(v *viper.Viper) {
	// Server settings. A zero write timeout leaves response writing
	// unbounded, since a completion call has no upper bound of its own.
	v.SetDefault("server_port", "8080")
	v.SetDefault("read_timeout", 15*time.Second)
	v.SetDefault("write_timeout", time.Duration(0))
	v.SetDefault("idle_timeout", 60*time.Second)
	v.SetDefault("request_timeout", time.Duration(0))
	v.SetDefault("shutdown_timeout", 30*time.Second)
	v.SetDefault("debug", false)
	v.SetDefault("env", "development")
	v.SetDefault("version", "1.0.0")

	v.SetDefault("log.level", "info")
	v.SetDefault("log.dir", "")

	v.SetDefault("cors.enabled", true)
	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Content-Type"})
	v.SetDefault("cors.exposed_headers", []string{})
	v.SetDefault("cors.allow_credentials", false)
	v.SetDefault("cors.max_age", 86400)

	v.SetDefault("rate_limit.enabled", true)
	v.SetDefault("rate_limit.requests_per_minute", 30)
	v.SetDefault("rate_limit.burst_size", 5)

	v.SetDefault("datastore.backend", BackendSupabase)
	v.SetDefault("datastore.supabase.auth_cookie", "sb-access-token")
	v.SetDefault("datastore.supabase.timeout", time.Duration(0))
	v.SetDefault("datastore.postgres.max_connections", 10)
	v.SetDefault("datastore.sqlite.path", "./data/yt-recap.db")

	v.SetDefault("llm.provider", ProviderOpenAI)

	v.SetDefault("storage.presign_enabled", false)
	v.SetDefault("storage.region", "us-east-1")
	v.SetDefault("storage.url_ttl", 15*time.Minute)
}

// Load reads configuration from defaults, an optional YAML file named by
// CONFIG_FILE, and environment variables, in increasing order of precedence.
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	for key, names := range envBindings {
		args := append([]string{key}, names...)
		if err := v.BindEnv(args...); err != nil {
			return nil, fmt.Errorf("failed to bind %s: %w", key, err)
		}
	}

	if path := os.Getenv("CONFIG_FILE"); path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode configuration: %w", err)
	}

	cfg.Datastore.Backend = strings.ToLower(strings.TrimSpace(cfg.Datastore.Backend))
	cfg.LLM.Provider = strings.ToLower(strings.TrimSpace(cfg.LLM.Provider))
	applyModelDefaults(&cfg.LLM)

	cfg.Middleware = defaultDevConfig()
	if cfg.IsProduction() {
		cfg.Middleware = defaultProdConfig()
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// defaultModels holds the tweet and analysis model per provider.
var defaultModels = map[string][2]string{
	ProviderOpenAI: {"gpt-4-turbo-preview", "gpt-4o-mini"},
	ProviderGemini: {"gemini-1.5-pro", "gemini-1.5-flash"},
}

func applyModelDefaults(c *LLMConfig) {
	models, ok := defaultModels[c.Provider]
	if !ok {
		return
	}
	if c.TweetModel == "" {
		c.TweetModel = models[0]
	}
	if c.AnalysisModel == "" {
		c.AnalysisModel = models[1]
	}
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

func (c *Config) Validate() error {
	if err := validateTimeouts(c); err != nil {
		return err
	}

	if err := validateDatastore(c); err != nil {
		return err
	}

	if err := validateLLM(c); err != nil {
		return err
	}

	if err := validateStorage(c); err != nil {
		return err
	}

	return nil
}

func validateTimeouts(c *Config) error {
	if c.ReadTimeout <= 0 {
		return fmt.Errorf("read timeout must be positive")
	}
	if c.WriteTimeout < 0 {
		return fmt.Errorf("write timeout must not be negative")
	}
	if c.RequestTimeout < 0 {
		return fmt.Errorf("request timeout must not be negative")
	}
	return nil
}

func validateDatastore(c *Config) error {
	switch c.Datastore.Backend {
	case BackendSupabase:
		if c.Datastore.Supabase.URL == "" || c.Datastore.Supabase.AnonKey == "" {
			return fmt.Errorf("missing Supabase environment variables")
		}
	case BackendPostgres:
		if c.Datastore.Postgres.URL == "" {
			return fmt.Errorf("DATABASE_URL is required for the postgres backend")
		}
	case BackendSQLite:
		if c.Datastore.SQLite.Path == "" {
			return fmt.Errorf("SQLITE_PATH is required for the sqlite backend")
		}
	default:
		return fmt.Errorf("unsupported datastore backend: %q", c.Datastore.Backend)
	}
	return nil
}

func validateLLM(c *Config) error {
	switch c.LLM.Provider {
	case ProviderOpenAI:
		if c.LLM.OpenAIAPIKey == "" {
			return fmt.Errorf("OPENAI_API_KEY is required for the openai provider")
		}
	case ProviderGemini:
		if c.LLM.GeminiAPIKey == "" {
			return fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
	default:
		return fmt.Errorf("unsupported llm provider: %q", c.LLM.Provider)
	}

	if c.LLM.TweetModel == "" || c.LLM.AnalysisModel == "" {
		return fmt.Errorf("tweet and analysis model names must be set")
	}
	return nil
}

func validateStorage(c *Config) error {
	if !c.Storage.PresignEnabled {
		return nil
	}
	if c.Storage.Bucket == "" {
		return fmt.Errorf("STORAGE_BUCKET is required when presigning is enabled")
	}
	if c.Storage.URLTTL <= 0 {
		return fmt.Errorf("storage url ttl must be positive")
	}
	return nil
}
