package report

import (
	"bytes"
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/scanning"
)

func sampleReport() *scanning.Report {
	start := time.Date(2026, 3, 14, 9, 26, 53, 0, time.UTC)
	return &scanning.Report{
		ScanID:     "6f1c1a52-5d2b-4c55-9c5e-0b7a2f0d8e11",
		Target:     "example.test (192.0.2.10)",
		Address:    "192.0.2.10",
		ScanType:   scanning.ScanTCP,
		TotalPorts: 1024,
		OpenPorts:  3,
		Results: []scanning.Result{
			{Port: 22, Protocol: "tcp", Status: scanning.StatusOpen, Service: "SSH", Banner: "SSH-2.0-OpenSSH_9.6", Latency: 1500 * time.Microsecond},
			{Port: 80, Protocol: "tcp", Status: scanning.StatusOpen, Service: "HTTP"},
			{Port: 2525, Protocol: "tcp", Status: scanning.StatusOpen, Service: "Unknown", Banner: `220 "mail, relay" <ready> & waiting`},
		},
		StartTime: start,
		EndTime:   start.Add(2 * time.Second),
		Duration:  2 * time.Second,
	}
}

func TestParseFormat(t *testing.T) {
	for _, f := range Formats {
		got, err := ParseFormat(strings.ToUpper(string(f)))
		require.NoError(t, err)
		assert.Equal(t, f, got)
	}

	_, err := ParseFormat("yaml")
	require.Error(t, err)
	assert.Equal(t, errors.ExitInvalidArgument, errors.ExitCode(err))
}

func TestEncode_JSONRoundTrip(t *testing.T) {
	r := sampleReport()

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, r, FormatJSON))

	var decoded scanning.Report
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))

	assert.Equal(t, r.OpenPorts, decoded.OpenPorts)
	assert.Equal(t, r.TotalPorts, decoded.TotalPorts)
	assert.Equal(t, r.ScanID, decoded.ScanID)
	require.Len(t, decoded.Results, 3)
	assert.Equal(t, r.Results[2].Banner, decoded.Results[2].Banner)
	assert.Equal(t, r.Results[0].Latency, decoded.Results[0].Latency)

	open := 0
	for _, res := range decoded.Results {
		if res.Status == scanning.StatusOpen {
			open++
		}
	}
	assert.Equal(t, r.OpenPorts, open)
}

func TestEncode_JSONOmitsEmptyFields(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, EncodeJSON(&buf, &scanning.Report{
		Results: []scanning.Result{{Port: 9, Protocol: "udp", Status: scanning.StatusOpen}},
	}))

	assert.NotContains(t, buf.String(), `"service"`)
	assert.NotContains(t, buf.String(), `"banner"`)
	assert.NotContains(t, buf.String(), `"interrupted"`)
}

func TestEncode_CSVEscaping(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleReport(), FormatCSV))

	records, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 4)

	assert.Equal(t, csvHeader, records[0])
	assert.Equal(t, []string{"22", "tcp", "open", "SSH", "SSH-2.0-OpenSSH_9.6", "1.500"}, records[1])
	assert.Equal(t, `220 "mail, relay" <ready> & waiting`, records[3][4])
}

func TestEncode_XML(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleReport(), FormatXML))

	out := buf.String()
	assert.True(t, strings.HasPrefix(out, xml.Header))
	assert.Contains(t, out, `&lt;ready&gt; &amp; waiting`)

	var doc reportXML
	require.NoError(t, xml.Unmarshal(buf.Bytes(), &doc))
	assert.Equal(t, 3, doc.OpenPorts)
	assert.Equal(t, 1024, doc.TotalPorts)
	require.Len(t, doc.Ports, 3)
	assert.Equal(t, uint16(2525), doc.Ports[2].Port)
	assert.Equal(t, scanning.StatusOpen, doc.Ports[2].Status)
	assert.Equal(t, `220 "mail, relay" <ready> & waiting`, doc.Ports[2].Banner)
}

func TestEncode_Text(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, sampleReport(), FormatText))

	out := buf.String()
	assert.Contains(t, out, "Scan report for example.test (192.0.2.10)")
	assert.Contains(t, out, "SSH-2.0-OpenSSH_9.6")
	assert.Contains(t, out, "2525")
	assert.Contains(t, out, "3 open of 1024 ports scanned")
	assert.NotContains(t, out, "interrupted")

	// Table rows keep the order the engine produced.
	assert.Less(t, strings.Index(out, "SSH-2.0"), strings.Index(out, "2525"))
}

func TestEncode_TextNoOpenPorts(t *testing.T) {
	r := &scanning.Report{Target: "127.0.0.1", ScanType: scanning.ScanTCP, TotalPorts: 10, Interrupted: true}

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, r, FormatText))
	assert.Contains(t, buf.String(), "No open ports found.")
	assert.Contains(t, buf.String(), "0 open of 10 ports scanned")
	assert.Contains(t, buf.String(), "interrupted")
}

func TestEncode_Errors(t *testing.T) {
	err := Encode(&bytes.Buffer{}, nil, FormatJSON)
	assert.True(t, errors.IsCode(err, errors.CodeEncodeFailed))

	err = Encode(&bytes.Buffer{}, sampleReport(), Format("yaml"))
	assert.True(t, errors.IsCode(err, errors.CodeValidation))
}

func TestWriteFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "out", "report.json")

	require.NoError(t, WriteFile(path, sampleReport(), FormatJSON))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	var decoded scanning.Report
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.Equal(t, 3, decoded.OpenPorts)

	// Overwrite in place; no temp files left behind.
	require.NoError(t, WriteFile(path, &scanning.Report{TotalPorts: 1}, FormatJSON))
	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "report.json", entries[0].Name())
}

func TestWriteFile_Failure(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o600))

	err := WriteFile(filepath.Join(blocker, "report.csv"), sampleReport(), FormatCSV)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeFileWrite))
	assert.Equal(t, errors.ExitFailure, errors.ExitCode(err))
}
