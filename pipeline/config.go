package pipeline

import (
	"fmt"
	"runtime"
	"strings"

	"github.com/go-sif/incbench"
	"github.com/go-sif/incbench/codec"
	"github.com/go-sif/incbench/errors"
)

// Config configures a batch of chains
type Config struct {
	Bucket           string               // output location for every artifact
	Iterations       int                  // iterations per chain; 0 runs nothing
	Cache            incbench.CachePolicy // applied unchanged to every read and write
	CompressionLevel int                  // gzip level in [0,9] for compressed outputs
	Strategy         incbench.Strategy
	Workers          int  // concurrent chains under the Deferred strategy, defaults to runtime.NumCPU()
	Anonymous        bool // read each chain's source without credentials
}

// Validate returns a ConfigError describing the first invalid option, if any
func (c *Config) Validate() error {
	if err := codec.ValidateLevel(c.CompressionLevel); err != nil {
		return err
	}
	if c.Iterations < 0 {
		return errors.ConfigError{Option: "iterations", Reason: fmt.Sprintf("%d is negative", c.Iterations)}
	}
	if strings.TrimSpace(incbench.TrimScheme(c.Bucket)) == "" {
		return errors.ConfigError{Option: "output location", Reason: "must not be empty"}
	}
	if c.Strategy != incbench.Immediate && c.Strategy != incbench.Deferred {
		return errors.ConfigError{Option: "strategy", Reason: c.Strategy.String() + " is unknown"}
	}
	if c.Workers < 0 {
		return errors.ConfigError{Option: "workers", Reason: fmt.Sprintf("%d is negative", c.Workers)}
	}
	return nil
}

func ensureDefaultConfigValues(c *Config) {
	if c.Workers == 0 {
		c.Workers = runtime.NumCPU()
	}
	if c.Cache.Enabled && c.Cache.StorageDir == "" {
		c.Cache.StorageDir = incbench.DefaultCacheDir
	}
}
