// Package config loads the migration configuration file into one explicit
// Config struct, constructed once at startup and passed into each
// component's constructor. There is no ambient global lookup.
package config

import (
	"fmt"
	"path/filepath"
	"time"

	"github.com/spf13/viper"

	"github.com/spaceferry/spaceferry/internal/state"
)

// Target identifies the space the migration writes into.
type Target struct {
	SpaceID       string `mapstructure:"spaceId"`
	EnvironmentID string `mapstructure:"environmentId"`
	AccessToken   string `mapstructure:"accessToken"`
	Host          string `mapstructure:"host"`
}

// Import holds the driver's import options.
type Import struct {
	UploadAssets          bool          `mapstructure:"uploadAssets"`
	SkipContentPublishing bool          `mapstructure:"skipContentPublishing"`
	SkipExisting          bool          `mapstructure:"skipExisting"`
	MaxRetries            int           `mapstructure:"maxRetries"`
	RetryDelay            time.Duration `mapstructure:"retryDelay"`
	DelayBetweenBatches   time.Duration `mapstructure:"delayBetweenBatches"`
	PollInterval          time.Duration `mapstructure:"pollInterval"`
	MaxPollAttempts       int           `mapstructure:"maxPollAttempts"`
}

// RateLimit holds the admission controller's options.
type RateLimit struct {
	Enabled           bool    `mapstructure:"enabled"`
	RequestsPerSecond float64 `mapstructure:"requestsPerSecond"`
	RequestsPerHour   float64 `mapstructure:"requestsPerHour"`
	Verbose           bool    `mapstructure:"verbose"`
}

// Config is the full migration configuration.
type Config struct {
	BatchSize  int    `mapstructure:"batchSize"`
	ExportFile string `mapstructure:"exportFile"`
	AssetsDir  string `mapstructure:"assetsDir"`
	OutputDir  string `mapstructure:"outputDir"`
	StateFile  string `mapstructure:"stateFile"`

	Target    Target    `mapstructure:"target"`
	Import    Import    `mapstructure:"import"`
	RateLimit RateLimit `mapstructure:"rateLimit"`
}

// Default returns the configuration used when the file omits a field.
// Rate defaults stay under the common 10/sec ceiling with headroom for
// other clients of the same space.
func Default() *Config {
	return &Config{
		BatchSize: 400,
		OutputDir: "batches",
		Import: Import{
			UploadAssets:        true,
			MaxRetries:          3,
			RetryDelay:          5 * time.Second,
			DelayBetweenBatches: 10 * time.Second,
			PollInterval:        3 * time.Second,
			MaxPollAttempts:     20,
		},
		RateLimit: RateLimit{
			Enabled:           true,
			RequestsPerSecond: 7,
			RequestsPerHour:   14400,
		},
	}
}

// Load reads a YAML or JSON configuration file over the defaults.
func Load(path string) (*Config, error) {
	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config file %s: %w", path, err)
	}

	cfg := Default()
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return cfg, nil
}

// StatePath returns the state file location, defaulting to the output
// directory.
func (c *Config) StatePath() string {
	if c.StateFile != "" {
		return c.StateFile
	}
	return filepath.Join(c.OutputDir, state.DefaultFileName)
}

// ValidateSplit checks the fields the split step needs.
func (c *Config) ValidateSplit() error {
	if c.ExportFile == "" {
		return fmt.Errorf("config: exportFile is required for split")
	}
	if c.AssetsDir == "" {
		return fmt.Errorf("config: assetsDir is required for split")
	}
	if c.BatchSize <= 0 {
		return fmt.Errorf("config: batchSize must be positive, got %d", c.BatchSize)
	}
	return nil
}

// ValidateImport checks the fields the import/resume/validate steps need.
func (c *Config) ValidateImport() error {
	if c.Target.SpaceID == "" {
		return fmt.Errorf("config: target.spaceId is required")
	}
	if c.Target.EnvironmentID == "" {
		return fmt.Errorf("config: target.environmentId is required")
	}
	if c.Target.AccessToken == "" {
		return fmt.Errorf("config: target.accessToken is required")
	}
	if c.Import.MaxRetries < 0 {
		return fmt.Errorf("config: import.maxRetries must not be negative")
	}
	if c.RateLimit.Enabled {
		if c.RateLimit.RequestsPerSecond <= 0 {
			return fmt.Errorf("config: rateLimit.requestsPerSecond must be positive")
		}
		if c.RateLimit.RequestsPerHour <= 0 {
			return fmt.Errorf("config: rateLimit.requestsPerHour must be positive")
		}
	}
	return nil
}
