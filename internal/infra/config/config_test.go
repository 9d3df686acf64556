package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	cfg := Load()

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "9020", cfg.Port)
	assert.Equal(t, "https://api-inference.huggingface.co", cfg.Scorer.URL)
	assert.Equal(t, "cross-encoder/ms-marco-MiniLM-L-12-v2", cfg.Scorer.Model)
	assert.Equal(t, 30, cfg.Scorer.TimeoutSeconds)
	assert.Equal(t, 5000, cfg.Scorer.RetryCooldownMs)
	assert.Equal(t, 100, cfg.Scorer.BatchDelayMs)
	assert.Equal(t, 5, cfg.Scorer.BatchSize)
	assert.Equal(t, 5, cfg.Scorer.TopK)
	assert.Equal(t, "text-embedding-3-small", cfg.Embedder.Model)
	assert.Equal(t, 60, cfg.Search.RRFK)
	assert.Equal(t, 20, cfg.Search.MatchCount)
	assert.Equal(t, 1.0, cfg.Search.FullTextWeight)
	assert.Equal(t, 30, cfg.RateLimit.ConfigCacheTTLSeconds)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("ENV", "production")
	t.Setenv("PORT", "8080")
	t.Setenv("RERANK_MODEL", "cross-encoder/ms-marco-TinyBERT-L-2-v2")
	t.Setenv("RERANK_TOP_K", "10")
	t.Setenv("SEARCH_SEMANTIC_WEIGHT", "0.7")

	cfg := Load()

	assert.Equal(t, "production", cfg.Env)
	assert.Equal(t, "8080", cfg.Port)
	assert.Equal(t, "cross-encoder/ms-marco-TinyBERT-L-2-v2", cfg.Scorer.Model)
	assert.Equal(t, 10, cfg.Scorer.TopK)
	assert.Equal(t, 0.7, cfg.Search.SemanticWeight)
}

func TestLoad_InvalidNumbersFallBack(t *testing.T) {
	t.Setenv("RERANK_TOP_K", "not-a-number")
	t.Setenv("SEARCH_SEMANTIC_WEIGHT", "also-not")

	cfg := Load()

	assert.Equal(t, 5, cfg.Scorer.TopK)
	assert.Equal(t, 1.0, cfg.Search.SemanticWeight)
}

func TestGetSecret_FileFallback(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "jwt_secret")
	require.NoError(t, os.WriteFile(secretFile, []byte("file-secret\n"), 0o600))
	t.Setenv("JWT_SECRET_FILE", secretFile)

	cfg := Load()
	assert.Equal(t, "file-secret", cfg.Auth.JWTSecret)
}

func TestGetSecret_EnvWinsOverFile(t *testing.T) {
	secretFile := filepath.Join(t.TempDir(), "jwt_secret")
	require.NoError(t, os.WriteFile(secretFile, []byte("file-secret"), 0o600))
	t.Setenv("JWT_SECRET_FILE", secretFile)
	t.Setenv("JWT_SECRET", "env-secret")

	cfg := Load()
	assert.Equal(t, "env-secret", cfg.Auth.JWTSecret)
}
