// Package config loads service configuration from the environment. Each
// module sees only the narrow interface it needs, not the whole Config.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// RedisConfig provides settings for the session store.
type RedisConfig interface {
	GetRedisAddr() string
	GetRedisPassword() string
	GetRedisDB() int
	GetSessionTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// OracleConfig provides settings for the language-model oracle.
type OracleConfig interface {
	GetOracleAPIKey() string
	GetOracleBaseURL() string
	GetOracleModel() string
}

// ImageSearchConfig provides settings for image lookup collaborators.
type ImageSearchConfig interface {
	GetImageEmbedURL() string
	GetImageEmbedAPIKey() string
	GetVectorSearchURL() string
	GetVectorSearchAPIKey() string
	GetVectorSearchCollection() string
	IsImageSearchEnabled() bool
}

// ChatConfig provides tunables for the resolution pipeline. The thresholds
// are empirically chosen constants; treat them as knobs, not business rules.
type ChatConfig interface {
	GetAttemptBudget() int
	GetMaxCandidates() int
	GetNarrowLimit() int
	GetTurnCap() int
	GetRequestTimeout() time.Duration
}

// Config is the full set of loaded values. Constructors receive it through
// the interfaces above.
type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	RedisAddr      string
	RedisPassword  string
	RedisDB        int
	SessionTTL     time.Duration
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool
	RateLimitRPS   float64
	RateLimitBurst int

	OracleAPIKey  string
	OracleBaseURL string
	OracleModel   string

	ImageEmbedURL          string
	ImageEmbedAPIKey       string
	VectorSearchURL        string
	VectorSearchAPIKey     string
	VectorSearchCollection string

	AttemptBudget  int
	MaxCandidates  int
	NarrowLimit    int
	TurnCap        int
	RequestTimeout time.Duration
}

// Load reads configuration from the environment, honoring a local .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisAddr:      getEnv("REDIS_ADDR", "localhost:6379"),
		RedisPassword:  getEnv("REDIS_PASSWORD", ""),
		RedisDB:        mustInt(getEnv("REDIS_DB", "0")),
		SessionTTL:     mustDuration(getEnv("CHAT_SESSION_TTL", "30m")),
		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RateLimitRPS:   mustFloat(getEnv("RATE_LIMIT_RPS", "10")),
		RateLimitBurst: mustInt(getEnv("RATE_LIMIT_BURST", "20")),

		OracleAPIKey:  getEnv("ORACLE_API_KEY", ""),
		OracleBaseURL: getEnv("ORACLE_BASE_URL", ""),
		OracleModel:   getEnv("ORACLE_MODEL", ""),

		ImageEmbedURL:          getEnv("IMAGE_EMBED_URL", ""),
		ImageEmbedAPIKey:       getEnv("IMAGE_EMBED_API_KEY", ""),
		VectorSearchURL:        getEnv("VECTOR_SEARCH_URL", ""),
		VectorSearchAPIKey:     getEnv("VECTOR_SEARCH_API_KEY", ""),
		VectorSearchCollection: getEnv("VECTOR_SEARCH_COLLECTION", "product-images"),

		AttemptBudget:  mustInt(getEnv("CHAT_ATTEMPT_BUDGET", "5")),
		MaxCandidates:  mustInt(getEnv("CHAT_MAX_CANDIDATES", "10")),
		NarrowLimit:    mustInt(getEnv("CHAT_NARROW_LIMIT", "5")),
		TurnCap:        mustInt(getEnv("CHAT_TURN_CAP", "9")),
		RequestTimeout: mustDuration(getEnv("CHAT_REQUEST_TIMEOUT", "60s")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.OracleAPIKey == "" && cfg.Env == "production" {
		return nil, fmt.Errorf("ORACLE_API_KEY is required in production")
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && v != "" {
		return v
	}
	return fallback
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func mustDuration(s string) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil {
		panic("invalid duration: " + s)
	}
	return d
}

func mustInt(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		panic("invalid integer: " + s)
	}
	return n
}

func mustFloat(s string) float64 {
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		panic("invalid float: " + s)
	}
	return f
}

func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

func (c *Config) GetRedisAddr() string         { return c.RedisAddr }
func (c *Config) GetRedisPassword() string     { return c.RedisPassword }
func (c *Config) GetRedisDB() int              { return c.RedisDB }
func (c *Config) GetSessionTTL() time.Duration { return c.SessionTTL }

func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

func (c *Config) GetOracleAPIKey() string  { return c.OracleAPIKey }
func (c *Config) GetOracleBaseURL() string { return c.OracleBaseURL }
func (c *Config) GetOracleModel() string   { return c.OracleModel }

func (c *Config) GetImageEmbedURL() string          { return c.ImageEmbedURL }
func (c *Config) GetImageEmbedAPIKey() string       { return c.ImageEmbedAPIKey }
func (c *Config) GetVectorSearchURL() string        { return c.VectorSearchURL }
func (c *Config) GetVectorSearchAPIKey() string     { return c.VectorSearchAPIKey }
func (c *Config) GetVectorSearchCollection() string { return c.VectorSearchCollection }
func (c *Config) IsImageSearchEnabled() bool {
	return c.ImageEmbedURL != "" && c.VectorSearchURL != ""
}

func (c *Config) GetAttemptBudget() int            { return c.AttemptBudget }
func (c *Config) GetMaxCandidates() int            { return c.MaxCandidates }
func (c *Config) GetNarrowLimit() int              { return c.NarrowLimit }
func (c *Config) GetTurnCap() int                  { return c.TurnCap }
func (c *Config) GetRequestTimeout() time.Duration { return c.RequestTimeout }
