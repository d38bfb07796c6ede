// Package config holds the portscout configuration file model. Values here are
// the defaults a scan starts from; CLI flags and PORTSCOUT_* environment
// variables override them.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/logging"
)

const (
	configDirPerm  = 0750
	configFilePerm = 0600

	// MaxWorkers is the hard upper bound on concurrent probes.
	MaxWorkers = 500
)

// Config represents the complete portscout configuration.
type Config struct {
	// Scanning configuration
	Scanning ScanningConfig `yaml:"scanning" json:"scanning" mapstructure:"scanning"`

	// Logging configuration
	Logging logging.Config `yaml:"logging" json:"logging" mapstructure:"logging"`
}

// ScanningConfig holds scanning-related settings.
type ScanningConfig struct {
	// Default port expression when none is given on the command line
	DefaultPorts string `yaml:"default_ports" json:"default_ports" mapstructure:"default_ports" validate:"required,max=1000"`

	// Default scan type
	ScanType string `yaml:"scan_type" json:"scan_type" mapstructure:"scan_type" validate:"oneof=tcp udp semi-open syn"`

	// Number of concurrent probe workers, clamped to MaxWorkers
	Workers int `yaml:"workers" json:"workers" mapstructure:"workers" validate:"min=1"`

	// Per-probe timeout
	Timeout time.Duration `yaml:"timeout" json:"timeout" mapstructure:"timeout" validate:"gt=0"`

	// Read a banner from open TCP ports
	GrabBanner bool `yaml:"grab_banner" json:"grab_banner" mapstructure:"grab_banner"`

	// Label open ports with a service name
	DetectService bool `yaml:"detect_service" json:"detect_service" mapstructure:"detect_service"`

	// Keep closed and filtered ports in the report
	Verbose bool `yaml:"verbose" json:"verbose" mapstructure:"verbose"`

	// Report format
	OutputFormat string `yaml:"output_format" json:"output_format" mapstructure:"output_format" validate:"oneof=text json csv xml"`

	// Probe dispatch rate in jobs per second, 0 disables limiting
	RateLimit float64 `yaml:"rate_limit" json:"rate_limit" mapstructure:"rate_limit" validate:"min=0"`

	// Optional DNS server (host or host:port) used instead of the system resolver
	Nameserver string `yaml:"nameserver" json:"nameserver" mapstructure:"nameserver" validate:"omitempty,max=255"`
}

// Default returns a configuration with sensible defaults.
func Default() *Config {
	return &Config{
		Scanning: ScanningConfig{
			DefaultPorts:  "common",
			ScanType:      "tcp",
			Workers:       50,
			Timeout:       1 * time.Second,
			GrabBanner:    false,
			DetectService: false,
			Verbose:       false,
			OutputFormat:  "text",
			RateLimit:     0,
		},
		Logging: logging.DefaultConfig(),
	}
}

// Load loads configuration from a file. A missing file yields the defaults.
func Load(path string) (*Config, error) {
	config := Default()

	if _, err := os.Stat(path); os.IsNotExist(err) {
		return config, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, errors.WrapScanError(errors.CodeConfiguration, "failed to read config file", err).
			WithContext("path", path)
	}

	// JSON is a subset of YAML, so one decoder serves both extensions.
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, errors.WrapScanError(errors.CodeConfiguration,
			fmt.Sprintf("failed to parse config (%s)", formatFor(path)), err).
			WithContext("path", path)
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func formatFor(path string) string {
	switch filepath.Ext(path) {
	case ".json":
		return "json"
	default:
		return "yaml"
	}
}

// Save saves configuration to a file as YAML.
func (c *Config) Save(path string) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, configDirPerm); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, configFilePerm); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}

var validate = validator.New()

// Validate checks every field against its struct tag. The first failing
// field is reported as a validation error.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		if verrs, ok := err.(validator.ValidationErrors); ok && len(verrs) > 0 {
			fe := verrs[0]
			return errors.ErrConfigInvalid(fe.Namespace(), fe.Value()).
				WithContext("rule", fe.Tag())
		}
		return errors.WrapScanError(errors.CodeValidation, "configuration validation failed", err)
	}
	return nil
}

// WorkerCount returns the configured worker count clamped to MaxWorkers.
func (c *Config) WorkerCount() int {
	return min(c.Scanning.Workers, MaxWorkers)
}
