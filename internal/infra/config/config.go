package config

import (
	"os"
	"strconv"
	"strings"
)

type Config struct {
	Env  string
	Port string

	DB        DBConfig
	Scorer    ScorerConfig
	Embedder  EmbedderConfig
	Search    SearchConfig
	RateLimit RateLimitConfig
	Auth      AuthConfig
	IPGuard   IPGuardConfig
}

type DBConfig struct {
	Host     string
	Port     string
	User     string
	Password string
	Name     string
}

// ScorerConfig covers the cross-encoder inference endpoint.
type ScorerConfig struct {
	URL             string
	Model           string
	APIKey          string
	TimeoutSeconds  int
	RetryCooldownMs int
	BatchDelayMs    int
	BatchSize       int
	TopK            int
}

type EmbedderConfig struct {
	URL            string
	Model          string
	APIKey         string
	TimeoutSeconds int
}

type SearchConfig struct {
	FullTextWeight float64
	SemanticWeight float64
	RRFK           int
	MatchCount     int
}

type RateLimitConfig struct {
	ConfigCacheTTLSeconds int
}

type AuthConfig struct {
	JWTSecret  string
	AdminToken string
}

// IPGuardConfig tunes the in-process per-IP limiter in front of auth.
type IPGuardConfig struct {
	RequestsPerSecond float64
	Burst             int
}

func Load() *Config {
	return &Config{
		Env:  getEnv("ENV", "development"),
		Port: getEnv("PORT", "9020"),
		DB: DBConfig{
			Host:     getEnv("DB_HOST", "relevance-db"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "relevance_user"),
			Password: getSecret("DB_PASSWORD", "DB_PASSWORD_FILE", "relevance_password"),
			Name:     getEnv("DB_NAME", "relevance_db"),
		},
		Scorer: ScorerConfig{
			URL:             getEnv("SCORER_URL", "https://api-inference.huggingface.co"),
			Model:           getEnv("RERANK_MODEL", "cross-encoder/ms-marco-MiniLM-L-12-v2"),
			APIKey:          getSecret("HUGGINGFACE_API_KEY", "HUGGINGFACE_API_KEY_FILE", ""),
			TimeoutSeconds:  getEnvInt("SCORER_TIMEOUT_SECONDS", 30),
			RetryCooldownMs: getEnvInt("SCORER_RETRY_COOLDOWN_MS", 5000),
			BatchDelayMs:    getEnvInt("RERANK_BATCH_DELAY_MS", 100),
			BatchSize:       getEnvInt("RERANK_BATCH_SIZE", 5),
			TopK:            getEnvInt("RERANK_TOP_K", 5),
		},
		Embedder: EmbedderConfig{
			URL:            getEnv("EMBEDDER_URL", "https://api.openai.com"),
			Model:          getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
			APIKey:         getSecret("OPENAI_API_KEY", "OPENAI_API_KEY_FILE", ""),
			TimeoutSeconds: getEnvInt("EMBEDDER_TIMEOUT_SECONDS", 15),
		},
		Search: SearchConfig{
			FullTextWeight: getEnvFloat("SEARCH_FULL_TEXT_WEIGHT", 1.0),
			SemanticWeight: getEnvFloat("SEARCH_SEMANTIC_WEIGHT", 1.0),
			RRFK:           getEnvInt("SEARCH_RRF_K", 60),
			MatchCount:     getEnvInt("SEARCH_MATCH_COUNT", 20),
		},
		RateLimit: RateLimitConfig{
			ConfigCacheTTLSeconds: getEnvInt("RATE_LIMIT_CONFIG_CACHE_TTL_SECONDS", 30),
		},
		Auth: AuthConfig{
			JWTSecret:  getSecret("JWT_SECRET", "JWT_SECRET_FILE", ""),
			AdminToken: getSecret("ADMIN_TOKEN", "ADMIN_TOKEN_FILE", ""),
		},
		IPGuard: IPGuardConfig{
			RequestsPerSecond: getEnvFloat("IP_GUARD_RPS", 20),
			Burst:             getEnvInt("IP_GUARD_BURST", 40),
		},
	}
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok {
		return value
	}
	return fallback
}

func getSecret(envKey, fileEnvKey, fallback string) string {
	if value, ok := os.LookupEnv(envKey); ok {
		return value
	}
	if filePath, ok := os.LookupEnv(fileEnvKey); ok {
		content, err := os.ReadFile(filePath)
		if err == nil {
			return strings.TrimSpace(string(content))
		}
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

func getEnvFloat(key string, fallback float64) float64 {
	if value, ok := os.LookupEnv(key); ok {
		if parsed, err := strconv.ParseFloat(value, 64); err == nil {
			return parsed
		}
	}
	return fallback
}
