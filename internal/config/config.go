package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// The audit drivers supported by the AuditDriver configuration value
const (
	AuditDriverInMemory = "inmem"
	AuditDriverPostgres = "postgres"
	AuditDriverNone     = "none"
)

var (
	errNoAuthlanderURI = errors.New("GATEKEEPER_AUTHLANDER_URI must not be empty")
	errNoPostgresDSN   = errors.New("the postgres audit driver requires GATEKEEPER_POSTGRES_DSN to be set")
)

// Config represents the application configuration structure
type Config struct {
	Environment string `default:"development"`

	ListenAddress  string   `default:":8081" split_words:"true"`
	AllowedOrigins []string `default:"http://*,https://*" split_words:"true"`

	AuthlanderURI     string        `required:"true" split_words:"true"`
	AuthlanderTimeout time.Duration `default:"10s" split_words:"true"`
	RetryMaxAttempts  int           `default:"1" split_words:"true"`
	RetryBackoff      time.Duration `default:"100ms" split_words:"true"`
	RetryMaxBackoff   time.Duration `default:"2s" split_words:"true"`
	RequireActiveUser bool          `default:"false" split_words:"true"`

	AuditDriver        string        `default:"inmem" split_words:"true"`
	PostgresDSN        string        `split_words:"true"`
	AuditRetention     time.Duration `default:"168h" split_words:"true"`
	AuditPruneInterval time.Duration `default:"10m" split_words:"true"`
}

// LoadFromEnv loads a new configuration structure using environment variables and an optional .env file
func LoadFromEnv() (*Config, error) {
	// Load a .env file if it exists
	_ = godotenv.Overload()

	// Load a new configuration structure using environment variables
	config := new(Config)
	if err := envconfig.Process("gatekeeper", config); err != nil {
		return nil, err
	}
	if err := config.validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// IsEnvProduction returns whether the application runs in production mode
func (config *Config) IsEnvProduction() bool {
	return strings.EqualFold(config.Environment, "production")
}

// AuditEnabled returns whether verification outcomes should be recorded
func (config *Config) AuditEnabled() bool {
	return config.AuditDriver != AuditDriverNone
}

func (config *Config) validate() error {
	config.AuthlanderURI = strings.TrimSuffix(strings.TrimSpace(config.AuthlanderURI), "/")
	if config.AuthlanderURI == "" {
		return errNoAuthlanderURI
	}
	config.AuditDriver = strings.ToLower(config.AuditDriver)

	switch config.AuditDriver {
	case AuditDriverInMemory, AuditDriverNone:
	case AuditDriverPostgres:
		if config.PostgresDSN == "" {
			return errNoPostgresDSN
		}
	default:
		return fmt.Errorf("unknown audit driver '%s'", config.AuditDriver)
	}

	if config.RetryMaxAttempts < 1 {
		return fmt.Errorf("retry max attempts must be at least 1 (got %d)", config.RetryMaxAttempts)
	}
	if config.AuditPruneInterval <= 0 {
		return errors.New("the audit prune interval must be positive")
	}
	return nil
}
