package cli

import (
	"bytes"
	"encoding/json"
	"io"
	"net"
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/portscout/internal/config"
	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/scanning"
)

// isolate points config discovery at empty directories.
func isolate(t *testing.T) {
	t.Helper()
	home := t.TempDir()
	t.Setenv("HOME", home)
	t.Setenv("XDG_CONFIG_HOME", filepath.Join(home, ".config"))
}

// writeConfig saves cfg to a temp file and returns its path.
func writeConfig(t *testing.T, cfg *config.Config) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "portscout.yaml")
	require.NoError(t, cfg.Save(path))
	return path
}

// runCLI executes the command tree with args and returns what it wrote to
// stdout.
func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	isolate(t)

	var out bytes.Buffer
	root := NewRootCommand()
	root.SetOut(&out)
	root.SetErr(io.Discard)
	root.SetArgs(args)
	err := root.Execute()
	return out.String(), err
}

func TestParseTimeout(t *testing.T) {
	tests := []struct {
		in      string
		want    time.Duration
		wantErr bool
	}{
		{"1", time.Second, false},
		{"2.5", 2500 * time.Millisecond, false},
		{" 0.25 ", 250 * time.Millisecond, false},
		{"750ms", 750 * time.Millisecond, false},
		{"1m", time.Minute, false},
		{"0", 0, true},
		{"-1", 0, true},
		{"-5s", 0, true},
		{"soon", 0, true},
		{"", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := parseTimeout(tt.in)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestScanCommand_EndToEnd(t *testing.T) {
	ln, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)
	t.Cleanup(func() { _ = ln.Close() })
	go func() {
		for {
			conn, err := ln.Accept()
			if err != nil {
				return
			}
			_, _ = conn.Write([]byte("SSH-2.0-TestServer\r\n"))
			time.Sleep(50 * time.Millisecond)
			_ = conn.Close()
		}
	}()
	port := strconv.Itoa(ln.Addr().(*net.TCPAddr).Port)

	cfgPath := writeConfig(t, config.Default())
	out, err := runCLI(t, "--config", cfgPath,
		"scan", "127.0.0.1", "--ports", port, "--format", "json", "--banner", "--timeout", "1")
	require.NoError(t, err)

	var rep scanning.Report
	require.NoError(t, json.Unmarshal([]byte(out), &rep))
	assert.Equal(t, 1, rep.TotalPorts)
	assert.Equal(t, 1, rep.OpenPorts)
	require.Len(t, rep.Results, 1)
	assert.Equal(t, "SSH-2.0-TestServer", rep.Results[0].Banner)
	assert.Equal(t, "SSH", rep.Results[0].Service)
	assert.Equal(t, "127.0.0.1", rep.Address)
}

func TestScanCommand_WritesFiles(t *testing.T) {
	dir := t.TempDir()
	reportPath := filepath.Join(dir, "report.csv")
	metricsPath := filepath.Join(dir, "portscout.prom")

	cfgPath := writeConfig(t, config.Default())
	out, err := runCLI(t, "--config", cfgPath,
		"scan", "--host", "127.0.0.1", "-p", "1-3", "-v", "-T", "0.2",
		"-f", "csv", "-o", reportPath, "--metrics-file", metricsPath)
	require.NoError(t, err)
	assert.Empty(t, out)

	data, err := os.ReadFile(reportPath)
	require.NoError(t, err)
	assert.Contains(t, string(data), "port,protocol,status,service,banner,latency_ms")

	prom, err := os.ReadFile(metricsPath)
	require.NoError(t, err)
	assert.Contains(t, string(prom), `portscout_scan_total{scan_type="tcp",status="completed"} 1`)
}

func TestScanCommand_ExitCodes(t *testing.T) {
	tests := []struct {
		name string
		args []string
		want int
	}{
		{"missing host", []string{"scan"}, errors.ExitInvalidArgument},
		{"invalid port expression", []string{"scan", "127.0.0.1", "-p", "22-abc"}, errors.ExitInvalidArgument},
		{"port out of range", []string{"scan", "127.0.0.1", "-p", "70000"}, errors.ExitInvalidArgument},
		{"unknown scan type", []string{"scan", "127.0.0.1", "-t", "xmas"}, errors.ExitInvalidArgument},
		{"unknown format", []string{"scan", "127.0.0.1", "-f", "yaml"}, errors.ExitInvalidArgument},
		{"zero timeout", []string{"scan", "127.0.0.1", "-T", "0"}, errors.ExitInvalidArgument},
		{"unknown flag", []string{"scan", "127.0.0.1", "--bogus"}, errors.ExitInvalidArgument},
		{"conflicting hosts", []string{"scan", "127.0.0.1", "--host", "127.0.0.2"}, errors.ExitInvalidArgument},
		{"missing config file", []string{"--config", "/nonexistent/portscout.yaml", "scan", "127.0.0.1"}, errors.ExitFailure},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := runCLI(t, tt.args...)
			require.Error(t, err)
			assert.Equal(t, tt.want, errors.ExitCode(err), err.Error())
		})
	}
}

func TestScanCommand_PrivilegedTypesWithoutRawSockets(t *testing.T) {
	original := scanning.HasRawSocketPrivilege
	scanning.HasRawSocketPrivilege = func() bool { return false }
	t.Cleanup(func() { scanning.HasRawSocketPrivilege = original })

	for _, scanType := range []string{"udp", "semi-open", "syn"} {
		t.Run(scanType, func(t *testing.T) {
			out, err := runCLI(t, "scan", "127.0.0.1", "-p", "53", "-t", scanType)
			require.Error(t, err)
			assert.Equal(t, errors.ExitPermissionDenied, errors.ExitCode(err), err.Error())
			assert.Empty(t, out)
		})
	}

	t.Run("tcp needs no privilege", func(t *testing.T) {
		_, err := runCLI(t, "scan", "127.0.0.1", "-p", "1", "-t", "tcp", "-T", "0.2")
		require.NoError(t, err)
	})
}

func TestScanCommand_UnresolvableHost(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping DNS lookup in short mode")
	}
	_, err := runCLI(t, "scan", "no-such-host.invalid", "-p", "22")
	require.Error(t, err)
	assert.Equal(t, errors.ExitInvalidArgument, errors.ExitCode(err))
}

func TestPortsCommand(t *testing.T) {
	out, err := runCLI(t, "ports", "20-25")
	require.NoError(t, err)
	assert.Contains(t, out, "20-25 (range): 6 ports")
	assert.Contains(t, out, "20,21,22,23,24,25")

	out, err = runCLI(t, "ports", "22,443", "--services")
	require.NoError(t, err)
	assert.Contains(t, out, "SSH")
	assert.Contains(t, out, "HTTPS")

	_, err = runCLI(t, "ports", "0")
	require.Error(t, err)
	assert.Equal(t, errors.ExitInvalidArgument, errors.ExitCode(err))
}

func TestPrintError(t *testing.T) {
	var buf bytes.Buffer
	printError(&buf, errors.ErrInvalidPortSpec("22-abc", "invalid range end"))

	out := buf.String()
	assert.Contains(t, out, "Error: [INVALID_PORT_SPEC] Invalid port specification")
	assert.Contains(t, out, "  reason: invalid range end\n  spec: 22-abc\n")
}
