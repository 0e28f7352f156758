package s3

import (
	"errors"
	"fmt"
	"strings"

	"github.com/go-sif/incbench/internal/env"
)

// Config locates and authenticates against an S3-compatible endpoint
type Config struct {
	Endpoint  string
	AccessKey string
	SecretKey string
	Region    string
	UseSSL    bool
}

// ConfigFromEnv reads a Config from INCBENCH_S3_* environment variables
func ConfigFromEnv() (Config, error) {
	useSSL, err := env.Bool("INCBENCH_S3_USE_SSL", true)
	if err != nil {
		return Config{}, err
	}
	cfg := Config{
		Endpoint:  env.String("INCBENCH_S3_ENDPOINT", "s3.amazonaws.com"),
		AccessKey: env.String("INCBENCH_S3_ACCESS_KEY", env.String("AWS_ACCESS_KEY_ID", "")),
		SecretKey: env.String("INCBENCH_S3_SECRET_KEY", env.String("AWS_SECRET_ACCESS_KEY", "")),
		Region:    env.String("INCBENCH_S3_REGION", env.String("AWS_REGION", "us-east-1")),
		UseSSL:    useSSL,
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// HasCredentials returns true iff both halves of a static key pair are configured
func (c Config) HasCredentials() bool {
	return strings.TrimSpace(c.AccessKey) != "" && strings.TrimSpace(c.SecretKey) != ""
}

// Validate checks the Config. Credentials are optional, since anonymous reads need none.
func (c Config) Validate() error {
	if strings.TrimSpace(c.Endpoint) == "" {
		return errors.New("endpoint is required")
	}
	if strings.Contains(c.Endpoint, "://") {
		return fmt.Errorf("endpoint must not include scheme: %q", c.Endpoint)
	}
	if (strings.TrimSpace(c.AccessKey) == "") != (strings.TrimSpace(c.SecretKey) == "") {
		return errors.New("access key and secret key must be supplied together")
	}
	return nil
}
