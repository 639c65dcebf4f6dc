// Package pool provides worker pool options.
package pool

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"

	"github.com/kart-io/sentinel-rag/pkg/infra/pool"
	"github.com/kart-io/sentinel-rag/pkg/options"
)

var _ options.IOptions = (*Options)(nil)

// Options configures the background worker pool.
type Options struct {
	Capacity         int           `json:"capacity" mapstructure:"capacity"`
	ExpiryDuration   time.Duration `json:"expiry-duration" mapstructure:"expiry-duration"`
	Nonblocking      bool          `json:"nonblocking" mapstructure:"nonblocking"`
	MaxBlockingTasks int           `json:"max-blocking-tasks" mapstructure:"max-blocking-tasks"`
	ReleaseTimeout   time.Duration `json:"release-timeout" mapstructure:"release-timeout"`
}

// NewOptions returns the background pool defaults.
func NewOptions() *Options {
	c := pool.BackgroundPoolConfig()
	return &Options{
		Capacity:         c.Capacity,
		ExpiryDuration:   c.ExpiryDuration,
		Nonblocking:      c.Nonblocking,
		MaxBlockingTasks: c.MaxBlockingTasks,
		ReleaseTimeout:   10 * time.Second,
	}
}

// AddFlags adds flags for pool options to the specified FlagSet.
func (o *Options) AddFlags(fs *pflag.FlagSet, prefixes ...string) {
	p := options.Join(prefixes...) + "pool."
	fs.IntVar(&o.Capacity, p+"capacity", o.Capacity, "Background pool capacity.")
	fs.DurationVar(&o.ExpiryDuration, p+"expiry-duration", o.ExpiryDuration, "Idle worker expiry.")
	fs.BoolVar(&o.Nonblocking, p+"nonblocking", o.Nonblocking, "Reject tasks instead of blocking when the pool is full.")
	fs.IntVar(&o.MaxBlockingTasks, p+"max-blocking-tasks", o.MaxBlockingTasks, "Maximum tasks waiting for a worker.")
	fs.DurationVar(&o.ReleaseTimeout, p+"release-timeout", o.ReleaseTimeout, "Wait for running tasks on shutdown.")
}

// Validate validates the pool options.
func (o *Options) Validate() []error {
	if o == nil {
		return nil
	}
	var errs []error
	if o.Capacity <= 0 {
		errs = append(errs, fmt.Errorf("pool.capacity must be positive"))
	}
	if o.ReleaseTimeout <= 0 {
		errs = append(errs, fmt.Errorf("pool.release-timeout must be positive"))
	}
	return errs
}

// Config converts the options to a pool config.
func (o *Options) Config() *pool.Config {
	return &pool.Config{
		Capacity:         o.Capacity,
		ExpiryDuration:   o.ExpiryDuration,
		Nonblocking:      o.Nonblocking,
		MaxBlockingTasks: o.MaxBlockingTasks,
	}
}
