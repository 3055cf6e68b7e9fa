package config

import (
	"testing"
	"time"

	"vizora/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	for _, key := range []string{
		"LLM_PROVIDER", "LLM_API_KEY", "OPENAI_API_KEY", "GEMINI_API_KEY", "LLM_MODEL",
		"LLM_TIMEOUT", "STORE_DRIVER", "DATABASE_URL", "SUMMARY_METHOD", "CORS_ORIGINS",
		"PIPELINE_CONCURRENCY", "DATA_MAX_ROWS", "MAX_UPLOAD_MB",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("OPENAI_API_KEY", "sk-test")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "openai", cfg.LLM.Provider)
	assert.Equal(t, "sk-test", cfg.LLM.APIKey)
	assert.Equal(t, "gpt-4o-mini", cfg.LLM.Model)
	assert.Equal(t, 90*time.Second, cfg.LLM.Timeout)
	assert.Equal(t, "memory", cfg.Store.Driver)
	assert.Equal(t, 4500, cfg.Data.MaxRows)
	assert.Equal(t, int64(42), cfg.Data.SampleSeed)
	assert.Equal(t, 3, cfg.Pipeline.NumPersonas)
	assert.Equal(t, 5, cfg.Pipeline.NumGoals)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Equal(t, int64(50<<20), cfg.Server.MaxUploadBytes)
}

func TestLoadOllamaNeedsNoKey(t *testing.T) {
	clearEnv(t)
	t.Setenv("LLM_PROVIDER", "ollama")
	t.Setenv("CORS_ORIGINS", "http://a.test, http://b.test")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, "llama3.1", cfg.LLM.Model)
	assert.Equal(t, []string{"http://a.test", "http://b.test"}, cfg.Server.CORSOrigins)
}

func TestLoadRejectsInvalid(t *testing.T) {
	tests := []struct {
		name string
		env  map[string]string
	}{
		{"missing key", map[string]string{"LLM_PROVIDER": "openai"}},
		{"unknown provider", map[string]string{"LLM_PROVIDER": "acme"}},
		{"postgres without url", map[string]string{"LLM_PROVIDER": "ollama", "STORE_DRIVER": "postgres"}},
		{"bad summary method", map[string]string{"LLM_PROVIDER": "ollama", "SUMMARY_METHOD": "fancy"}},
		{"zero concurrency", map[string]string{"LLM_PROVIDER": "ollama", "PIPELINE_CONCURRENCY": "0"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			clearEnv(t)
			for k, v := range tt.env {
				t.Setenv(k, v)
			}
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
