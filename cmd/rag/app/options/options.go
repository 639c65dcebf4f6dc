// Package options contains flags and options for initializing the RAG server.
package options

import (
	"fmt"
	"time"

	utilerrors "k8s.io/apimachinery/pkg/util/errors"

	ragsvc "github.com/kart-io/sentinel-rag/internal/rag"
	"github.com/kart-io/sentinel-rag/pkg/app"
	"github.com/kart-io/sentinel-rag/pkg/options"
	dbopts "github.com/kart-io/sentinel-rag/pkg/options/database"
	httpopts "github.com/kart-io/sentinel-rag/pkg/options/http"
	llmopts "github.com/kart-io/sentinel-rag/pkg/options/llm"
	logopts "github.com/kart-io/sentinel-rag/pkg/options/logger"
	milvusopts "github.com/kart-io/sentinel-rag/pkg/options/milvus"
	poolopts "github.com/kart-io/sentinel-rag/pkg/options/pool"
	ragopts "github.com/kart-io/sentinel-rag/pkg/options/rag"
	redisopts "github.com/kart-io/sentinel-rag/pkg/options/redis"
	tracingopts "github.com/kart-io/sentinel-rag/pkg/options/tracing"
)

var _ app.CliOptions = (*ServerOptions)(nil)

// ServerOptions contains the configuration options for the server.
type ServerOptions struct {
	// HTTPOptions contains HTTP server configuration.
	HTTPOptions *httpopts.Options `json:"http" mapstructure:"http"`

	// LogOptions contains logger configuration.
	LogOptions *logopts.Options `json:"log" mapstructure:"log"`

	// MilvusOptions contains Milvus connection configuration.
	MilvusOptions *milvusopts.Options `json:"milvus" mapstructure:"milvus"`

	// RedisOptions contains Redis configuration for session memory and the
	// embedding cache.
	RedisOptions *redisopts.Options `json:"redis" mapstructure:"redis"`

	// EmbeddingOptions contains embedding provider configuration.
	EmbeddingOptions *llmopts.ProviderOptions `json:"embedding" mapstructure:"embedding"`

	// ChatOptions contains chat provider configuration.
	ChatOptions *llmopts.ProviderOptions `json:"chat" mapstructure:"chat"`

	// RAGOptions contains RAG-specific configuration.
	RAGOptions *ragopts.Options `json:"rag" mapstructure:"rag"`

	// DatabaseOptions contains record store configuration.
	DatabaseOptions *dbopts.Options `json:"database" mapstructure:"database"`

	// TracingOptions contains OpenTelemetry configuration.
	TracingOptions *tracingopts.Options `json:"tracing" mapstructure:"tracing"`

	// PoolOptions contains background pool configuration.
	PoolOptions *poolopts.Options `json:"pool" mapstructure:"pool"`

	// ShutdownTimeout is the timeout for graceful shutdown.
	ShutdownTimeout time.Duration `json:"shutdown-timeout" mapstructure:"shutdown-timeout"`
}

// NewServerOptions creates a ServerOptions instance with default values.
func NewServerOptions() *ServerOptions {
	return &ServerOptions{
		HTTPOptions:      httpopts.NewOptions(),
		LogOptions:       logopts.NewOptions(),
		MilvusOptions:    milvusopts.NewOptions(),
		RedisOptions:     redisopts.NewOptions(),
		EmbeddingOptions: llmopts.NewEmbeddingOptions(),
		ChatOptions:      llmopts.NewChatOptions(),
		RAGOptions:       ragopts.NewOptions(),
		DatabaseOptions:  dbopts.NewOptions(),
		TracingOptions:   tracingopts.NewOptions(),
		PoolOptions:      poolopts.NewOptions(),
		ShutdownTimeout:  30 * time.Second,
	}
}

// groups lists every option group in flag section order.
func (o *ServerOptions) groups() []struct {
	name string
	opts options.IOptions
} {
	return []struct {
		name string
		opts options.IOptions
	}{
		{"http", o.HTTPOptions},
		{"log", o.LogOptions},
		{"milvus", o.MilvusOptions},
		{"redis", o.RedisOptions},
		{"embedding", o.EmbeddingOptions},
		{"chat", o.ChatOptions},
		{"rag", o.RAGOptions},
		{"database", o.DatabaseOptions},
		{"tracing", o.TracingOptions},
		{"pool", o.PoolOptions},
	}
}

// Flags returns flags for a specific server by section name. Each group
// adds its own section prefix to the flag names.
func (o *ServerOptions) Flags() (fss app.NamedFlagSets) {
	for _, g := range o.groups() {
		g.opts.AddFlags(fss.FlagSet(g.name))
	}

	// misc flags
	fs := fss.FlagSet("misc")
	fs.DurationVar(&o.ShutdownTimeout, "shutdown-timeout", o.ShutdownTimeout, "Graceful shutdown timeout")

	return fss
}

// Complete completes all the required options.
func (o *ServerOptions) Complete() error {
	for _, g := range o.groups() {
		c, ok := g.opts.(options.Completer)
		if !ok {
			continue
		}
		if err := c.Complete(); err != nil {
			return fmt.Errorf("%s: %w", g.name, err)
		}
	}
	return nil
}

// Validate checks whether the options in ServerOptions are valid.
func (o *ServerOptions) Validate() error {
	errs := []error{}
	for _, g := range o.groups() {
		errs = append(errs, g.opts.Validate()...)
	}
	if o.ShutdownTimeout <= 0 {
		errs = append(errs, fmt.Errorf("shutdown-timeout must be positive"))
	}

	// Backends that need a client must have it configured.
	r := o.RAGOptions
	if r.VectorStore == ragopts.BackendMilvus && o.MilvusOptions.Address == "" {
		errs = append(errs, fmt.Errorf("milvus.address is required when rag.vector-store is %q", ragopts.BackendMilvus))
	}
	if (r.SessionStore == ragopts.BackendRedis || r.EmbeddingCache) && o.RedisOptions.Host == "" {
		errs = append(errs, fmt.Errorf("redis.host is required for redis session memory or the embedding cache"))
	}

	return utilerrors.NewAggregate(errs)
}

// Config builds a ragsvc.Config based on ServerOptions.
func (o *ServerOptions) Config() (*ragsvc.Config, error) {
	return &ragsvc.Config{
		HTTPOptions:      o.HTTPOptions,
		LogOptions:       o.LogOptions,
		MilvusOptions:    o.MilvusOptions,
		RedisOptions:     o.RedisOptions,
		EmbeddingOptions: o.EmbeddingOptions,
		ChatOptions:      o.ChatOptions,
		RAGOptions:       o.RAGOptions,
		DatabaseOptions:  o.DatabaseOptions,
		TracingOptions:   o.TracingOptions,
		PoolOptions:      o.PoolOptions,
		ShutdownTimeout:  o.ShutdownTimeout,
	}, nil
}
