package options

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
)

func validOptions() *ServerOptions {
	o := NewServerOptions()
	o.ChatOptions.APIKey = "test-key"
	return o
}

func TestServerOptions_Flags(t *testing.T) {
	o := NewServerOptions()
	fss := o.Flags()

	assert.Equal(t, []string{"http", "log", "milvus", "redis", "embedding", "chat", "rag", "database", "tracing", "pool", "misc"}, fss.Order)

	cases := map[string]string{
		"http":      "http.addr",
		"milvus":    "milvus.address",
		"redis":     "redis.host",
		"embedding": "embedding.model",
		"chat":      "chat.temperature",
		"rag":       "rag.chunk-size",
		"database":  "database.driver",
		"misc":      "shutdown-timeout",
	}
	for section, flag := range cases {
		assert.NotNil(t, fss.FlagSets[section].Lookup(flag), "%s should define %s", section, flag)
	}
	assert.Nil(t, fss.FlagSets["embedding"].Lookup("embedding.temperature"))

	require.NoError(t, fss.FlagSets["misc"].Parse([]string{"--shutdown-timeout=5s"}))
	assert.Equal(t, 5*time.Second, o.ShutdownTimeout)
}

func TestServerOptions_Validate(t *testing.T) {
	require.NoError(t, validOptions().Validate())

	tests := []struct {
		name    string
		mutate  func(*ServerOptions)
		wantErr string
	}{
		{"missing chat key", func(o *ServerOptions) { o.ChatOptions.APIKey = "" }, "chat.api-key"},
		{"bad shutdown timeout", func(o *ServerOptions) { o.ShutdownTimeout = 0 }, "shutdown-timeout"},
		{"milvus without address", func(o *ServerOptions) { o.MilvusOptions.Address = "" }, "milvus.address is required"},
		{"redis without host", func(o *ServerOptions) { o.RedisOptions.Host = "" }, "redis.host is required"},
		{"bad overlap", func(o *ServerOptions) { o.RAGOptions.ChunkOverlap = 600 }, "rag.chunk-overlap"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			o := validOptions()
			tt.mutate(o)
			err := o.Validate()
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestServerOptions_ValidateMemoryBackends(t *testing.T) {
	o := validOptions()
	o.RAGOptions.VectorStore = ragopts.BackendMemory
	o.RAGOptions.SessionStore = ragopts.BackendMemory
	o.MilvusOptions.Address = ""
	o.RedisOptions.Host = ""

	assert.NoError(t, o.Validate())
}

func TestServerOptions_Complete(t *testing.T) {
	o := validOptions()
	o.RAGOptions.SystemPrompt = ""
	o.EmbeddingOptions.Timeout = 0

	require.NoError(t, o.Complete())
	assert.Equal(t, ragopts.DefaultSystemPrompt, o.RAGOptions.SystemPrompt)
	assert.Equal(t, 60*time.Second, o.EmbeddingOptions.Timeout)
}

func TestServerOptions_Config(t *testing.T) {
	o := validOptions()
	cfg, err := o.Config()
	require.NoError(t, err)

	assert.Same(t, o.HTTPOptions, cfg.HTTPOptions)
	assert.Same(t, o.RAGOptions, cfg.RAGOptions)
	assert.Same(t, o.PoolOptions, cfg.PoolOptions)
	assert.Equal(t, o.ShutdownTimeout, cfg.ShutdownTimeout)
}
