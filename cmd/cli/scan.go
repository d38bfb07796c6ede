package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strconv"
	"strings"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/anstrom/portscout/internal/config"
	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/logging"
	"github.com/anstrom/portscout/internal/metrics"
	"github.com/anstrom/portscout/internal/ports"
	"github.com/anstrom/portscout/internal/report"
	"github.com/anstrom/portscout/internal/scanning"
	"github.com/anstrom/portscout/internal/target"
)

// scanFlags are the scan command's flags that are not part of the config
// model. The rest are bound through Viper.
type scanFlags struct {
	host        string
	output      string
	metricsFile string
}

func newScanCommand(a *app) *cobra.Command {
	var f scanFlags
	timeout := timeoutValue(time.Second)

	cmd := &cobra.Command{
		Use:   "scan [host]",
		Short: "Scan a host for open ports",
		Long: `Scan probes every port of the port expression on a single host and
reports the results.

Port expressions are a single port ("22"), a range ("1-1024"), a list
("22,80,443"), or a named set ("all", "common", "top-N").

Scan types:
  tcp        full TCP connect (default, no privileges required)
  udp        empty datagram; any reply counts as open (requires raw socket rights)
  semi-open  TCP SYN scan via nmap (requires raw socket rights and nmap)`,
		Example: `  portscout scan 192.168.1.10
  portscout scan example.com --ports 1-1024 --service
  portscout scan localhost --ports top-100 --banner --format json
  portscout scan 10.0.0.5 --type semi-open --ports common --output report.xml --format xml`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if len(args) == 1 {
				if f.host != "" && f.host != args[0] {
					return errors.NewScanError(errors.CodeValidation, "host given both as argument and --host").
						WithContext("argument", args[0]).
						WithContext("flag", f.host)
				}
				f.host = args[0]
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()
			return runScan(ctx, cmd, a.config, f)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&f.host, "host", "H", "", "Target host name or IP address")
	flags.StringP("ports", "p", "common", "Port expression: 22, 1-1024, 22,80,443, all, common, top-N")
	flags.StringP("type", "t", string(scanning.ScanTCP), "Scan type: tcp, udp, semi-open")
	flags.VarP(&timeout, "timeout", "T", "Per-port timeout in seconds, or a duration such as 500ms")
	flags.IntP("workers", "w", 50, fmt.Sprintf("Concurrent probes (capped at %d)", config.MaxWorkers))
	flags.BoolP("banner", "b", false, "Read a banner from open ports")
	flags.BoolP("service", "s", false, "Label open ports with a service name")
	flags.BoolP("verbose", "v", false, "Include closed and filtered ports in the report")
	flags.StringP("format", "f", string(report.FormatText), "Output format: text, json, csv, xml")
	flags.Float64("rate", 0, "Maximum probes started per second (0 = unlimited)")
	flags.String("nameserver", "", "DNS server (host or host:port) for resolving the target")
	flags.StringVarP(&f.output, "output", "o", "", "Write the report to a file instead of stdout")
	flags.StringVar(&f.metricsFile, "metrics-file", "", "Write Prometheus metrics for this scan to a textfile")

	return cmd
}

// runScan resolves the target and ports, runs the engine and writes the
// report. Every failure is returned as a ScanError so Execute can pick the
// exit status.
func runScan(ctx context.Context, cmd *cobra.Command, cfg *config.Config, f scanFlags) error {
	if strings.TrimSpace(f.host) == "" {
		return errors.NewScanError(errors.CodeValidation, "a target host is required")
	}

	sc := cfg.Scanning
	scanType, err := scanning.ParseScanType(sc.ScanType)
	if err != nil {
		return errors.WrapScanError(errors.CodeValidation, "invalid scan type", err)
	}
	format, err := report.ParseFormat(sc.OutputFormat)
	if err != nil {
		return err
	}

	portList, err := ports.Resolve(sc.DefaultPorts)
	if err != nil {
		return err
	}

	var resolverOpts []target.Option
	if sc.Nameserver != "" {
		resolverOpts = append(resolverOpts, target.WithNameserver(sc.Nameserver))
	}
	tgt, err := target.NewResolver(resolverOpts...).Resolve(ctx, f.host)
	if err != nil {
		return err
	}

	var m *metrics.PrometheusMetrics
	if f.metricsFile != "" {
		m = metrics.NewPrometheusMetrics()
	}

	engine := scanning.NewEngine(
		scanning.WithLogger(logging.Default()),
		scanning.WithMetrics(m),
	)
	rep, err := engine.Run(ctx, tgt, portList, scanning.Options{
		ScanType:      scanType,
		Timeout:       sc.Timeout,
		Workers:       cfg.WorkerCount(),
		GrabBanner:    sc.GrabBanner,
		DetectService: sc.DetectService,
		Verbose:       sc.Verbose,
		RateLimit:     sc.RateLimit,
	})
	if err != nil {
		return err
	}

	if f.output != "" {
		if err := report.WriteFile(f.output, rep, format); err != nil {
			return err
		}
		logging.Info("Report written", "path", f.output, "format", format)
	} else if err := report.Encode(cmd.OutOrStdout(), rep, format); err != nil {
		return err
	}

	if m != nil {
		if err := m.WriteTextfile(f.metricsFile); err != nil {
			return errors.WrapScanError(errors.CodeFileWrite, "failed to write metrics", err).
				WithContext("path", f.metricsFile)
		}
	}
	return nil
}

// timeoutValue is a pflag.Value accepting plain seconds ("2", "0.5") or a Go
// duration ("750ms").
type timeoutValue time.Duration

func (t *timeoutValue) String() string {
	return time.Duration(*t).String()
}

func (t *timeoutValue) Set(s string) error {
	d, err := parseTimeout(s)
	if err != nil {
		return err
	}
	*t = timeoutValue(d)
	return nil
}

func (t *timeoutValue) Type() string {
	return "seconds"
}

func parseTimeout(s string) (time.Duration, error) {
	s = strings.TrimSpace(s)
	var d time.Duration
	if secs, err := strconv.ParseFloat(s, 64); err == nil {
		d = time.Duration(secs * float64(time.Second))
	} else if d, err = time.ParseDuration(s); err != nil {
		return 0, fmt.Errorf("invalid timeout %q: want seconds or a duration", s)
	}
	if d <= 0 {
		return 0, fmt.Errorf("timeout must be positive, got %q", s)
	}
	return d, nil
}
