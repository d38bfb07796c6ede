// Package cli provides the command-line interface for the portscout port
// scanner. Commands are built with Cobra; configuration is layered with Viper
// so that flags override PORTSCOUT_* environment variables, which override the
// config file, which overrides built-in defaults.
package cli

import (
	"fmt"
	"io"
	"maps"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/spf13/viper"

	"github.com/anstrom/portscout/internal/config"
	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/logging"
)

const (
	envPrefix      = "PORTSCOUT"
	configFileName = "portscout.yaml"
)

// Build information - these will be set by ldflags during build.
var (
	version   = "dev"
	commit    = "none"
	buildTime = "unknown"
)

// app carries state shared by every command of one invocation.
type app struct {
	cfgFile  string
	logLevel string
	viper    *viper.Viper
	config   *config.Config
}

// NewRootCommand builds the portscout command tree.
func NewRootCommand() *cobra.Command {
	a := &app{viper: viper.New()}

	root := &cobra.Command{
		Use:   "portscout",
		Short: "Concurrent multi-protocol port scanner",
		Long: `portscout probes the ports of a single host over TCP connect, UDP or
semi-open (SYN) scans, optionally grabbing banners and labelling services,
and reports the results as text, JSON, CSV or XML.`,
		Version:       getVersion(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, _ []string) error {
			return a.loadConfig(cmd.Flags())
		},
	}

	root.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is ./portscout.yaml, then the user config dir)")
	root.PersistentFlags().StringVar(&a.logLevel, "log-level", "",
		"log level: debug, info, warn, error (overrides config)")

	root.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return errors.WrapScanError(errors.CodeValidation, "invalid command line", err)
	})

	root.AddCommand(newScanCommand(a))
	root.AddCommand(newPortsCommand())
	root.AddCommand(newConfigCommand(a))

	return root
}

// Execute runs the root command and exits with the status the error maps to.
// This is called by main.main().
func Execute() {
	if err := NewRootCommand().Execute(); err != nil {
		printError(os.Stderr, err)
		os.Exit(errors.ExitCode(err))
	}
}

// SetVersion sets the version information (called from main).
func SetVersion(v, c, bt string) {
	version = v
	commit = c
	buildTime = bt
}

func getVersion() string {
	return fmt.Sprintf("%s (commit: %s, built: %s)", version, commit, buildTime)
}

// printError writes err and any structured context it carries.
func printError(w io.Writer, err error) {
	fmt.Fprintf(w, "Error: %v\n", err)

	se, ok := errors.AsScanError(err)
	if !ok || len(se.Context) == 0 {
		return
	}
	for _, k := range slices.Sorted(maps.Keys(se.Context)) {
		fmt.Fprintf(w, "  %s: %v\n", k, se.Context[k])
	}
}

// configPath returns the config file to load, or "" when none is found.
func (a *app) configPath() (string, error) {
	if a.cfgFile != "" {
		if _, err := os.Stat(a.cfgFile); err != nil {
			return "", errors.WrapScanError(errors.CodeConfiguration, "config file not readable", err).
				WithContext("path", a.cfgFile)
		}
		return a.cfgFile, nil
	}

	candidates := []string{configFileName}
	if dir, err := os.UserConfigDir(); err == nil {
		candidates = append(candidates, filepath.Join(dir, "portscout", "config.yaml"))
	}
	for _, c := range candidates {
		if _, err := os.Stat(c); err == nil {
			return c, nil
		}
	}
	return "", nil
}

// loadConfig reads the config file, then layers environment and flags on
// top through Viper and validates the result.
func (a *app) loadConfig(flags *pflag.FlagSet) error {
	path, err := a.configPath()
	if err != nil {
		return err
	}

	base := config.Default()
	if path != "" {
		if base, err = config.Load(path); err != nil {
			return err
		}
	}

	v := a.viper
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	setConfigDefaults(v, base)

	if err := bindFlags(v, flags); err != nil {
		return err
	}

	cfg := *base
	if err := v.Unmarshal(&cfg); err != nil {
		return errors.WrapScanError(errors.CodeConfiguration, "failed to decode configuration", err)
	}
	if a.logLevel != "" {
		cfg.Logging.Level = logging.LogLevel(a.logLevel)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	a.config = &cfg
	return initLogging(&cfg)
}

// setConfigDefaults seeds Viper with the file-or-default values so that
// environment variables for every key are recognised.
func setConfigDefaults(v *viper.Viper, c *config.Config) {
	s := c.Scanning
	v.SetDefault("scanning.default_ports", s.DefaultPorts)
	v.SetDefault("scanning.scan_type", s.ScanType)
	v.SetDefault("scanning.workers", s.Workers)
	v.SetDefault("scanning.timeout", s.Timeout)
	v.SetDefault("scanning.grab_banner", s.GrabBanner)
	v.SetDefault("scanning.detect_service", s.DetectService)
	v.SetDefault("scanning.verbose", s.Verbose)
	v.SetDefault("scanning.output_format", s.OutputFormat)
	v.SetDefault("scanning.rate_limit", s.RateLimit)
	v.SetDefault("scanning.nameserver", s.Nameserver)

	l := c.Logging
	v.SetDefault("logging.level", string(l.Level))
	v.SetDefault("logging.format", string(l.Format))
	v.SetDefault("logging.output", l.Output)
	v.SetDefault("logging.add_source", l.AddSource)
}

// flagKeys maps command flags to the config keys they override.
var flagKeys = map[string]string{
	"ports":      "scanning.default_ports",
	"type":       "scanning.scan_type",
	"workers":    "scanning.workers",
	"timeout":    "scanning.timeout",
	"banner":     "scanning.grab_banner",
	"service":    "scanning.detect_service",
	"verbose":    "scanning.verbose",
	"format":     "scanning.output_format",
	"rate":       "scanning.rate_limit",
	"nameserver": "scanning.nameserver",
}

func bindFlags(v *viper.Viper, flags *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := flags.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return errors.WrapScanError(errors.CodeConfiguration, "failed to bind flag", err).
				WithContext("flag", name)
		}
	}
	return nil
}

// initLogging installs the configured logger as the package default.
func initLogging(cfg *config.Config) error {
	logger, err := logging.New(cfg.Logging)
	if err != nil {
		return errors.WrapScanError(errors.CodeConfiguration, "failed to initialize logging", err)
	}
	logging.SetDefault(logger)
	return nil
}
