// Package config loads the service's environment-variable configuration
// (§6 "Environment / configuration (recognized)").
package config

import (
	"time"

	"github.com/caarlos0/env/v11"
)

// Config is the full set of environment-recognized settings for urumid.
type Config struct {
	Port        string `env:"PORT" envDefault:"8080"`
	Environment string `env:"ENVIRONMENT" envDefault:"production"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`

	DatabaseURL string `env:"DATABASE_URL,required"`

	// Cluster config location. Empty means autodetect: in-cluster via
	// service-account env vars, else KUBECONFIG, else ~/.kube/config.
	KubeconfigPath string `env:"KUBECONFIG_PATH" envDefault:""`

	StoreDomain string `env:"STORE_DOMAIN" envDefault:"stores.urumi.local"`
	IngressClass string `env:"INGRESS_CLASS" envDefault:"nginx"`

	DatabaseReadyTimeout    time.Duration `env:"DATABASE_READY_TIMEOUT" envDefault:"90s"`
	ApplicationReadyTimeout time.Duration `env:"APPLICATION_READY_TIMEOUT" envDefault:"180s"`
	ProvisioningDeadline    time.Duration `env:"PROVISIONING_DEADLINE" envDefault:"300s"`
	DeleteWaitTimeout       time.Duration `env:"DELETE_WAIT_TIMEOUT" envDefault:"60s"`
	PostInstallCommandTimeout time.Duration `env:"POST_INSTALL_COMMAND_TIMEOUT" envDefault:"30s"`

	DatabaseStorageSize    string `env:"DATABASE_STORAGE_SIZE" envDefault:"5Gi"`
	ApplicationStorageSize string `env:"APPLICATION_STORAGE_SIZE" envDefault:"5Gi"`

	RetryMaxRetries   int           `env:"RETRY_MAX_RETRIES" envDefault:"3"`
	RetryInitialDelay time.Duration `env:"RETRY_INITIAL_DELAY" envDefault:"1s"`
	RetryMaxDelay     time.Duration `env:"RETRY_MAX_DELAY" envDefault:"30s"`

	ActiveStoreCap int `env:"ACTIVE_STORE_CAP" envDefault:"10"`

	ReaperInterval time.Duration `env:"REAPER_INTERVAL" envDefault:"1m"`
	ReaperGrace    time.Duration `env:"REAPER_GRACE" envDefault:"30s"`

	ShutdownGrace time.Duration `env:"SHUTDOWN_GRACE" envDefault:"30s"`
}

// Load parses Config from the process environment.
func Load() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}
