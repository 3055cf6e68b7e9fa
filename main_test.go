package main

import (
	"context"
	"testing"
	"time"

	"vizora/internal/config"
	"vizora/internal/container"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testContainer(t *testing.T, port, inbox string) *container.Container {
	t.Helper()
	cfg := &config.Config{
		LLM:      config.LLMConfig{Provider: "ollama", Model: "llama3.1", Timeout: time.Second},
		Server:   config.ServerConfig{Port: port, GinMode: "test", CORSOrigins: []string{"*"}, MaxUploadBytes: 1 << 20},
		Data:     config.DataConfig{MaxRows: 100, SampleSeed: 42, InboxDir: inbox},
		Pipeline: config.PipelineConfig{NumPersonas: 1, NumGoals: 1, Concurrency: 1, SummaryMethod: "default"},
		Store:    config.StoreConfig{Driver: "memory"},
	}
	c, err := container.New(context.Background(), cfg)
	require.NoError(t, err)
	return c
}

func TestRun_ListenFailureReturnsError(t *testing.T) {
	c := testContainer(t, "not-a-port", t.TempDir())

	err := run(context.Background(), c)
	assert.Error(t, err)
	assert.NotNil(t, c.Inbox)
	assert.NoError(t, c.Shutdown(context.Background()))
}
