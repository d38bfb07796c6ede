package report

import (
	"encoding/csv"
	"encoding/json"
	"encoding/xml"
	"io"
	"strconv"
	"time"

	"github.com/anstrom/portscout/internal/scanning"
)

// EncodeJSON writes the report as indented JSON.
func EncodeJSON(w io.Writer, r *scanning.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(r)
}

var csvHeader = []string{"port", "protocol", "status", "service", "banner", "latency_ms"}

// EncodeCSV writes one row per result with a header row.
func EncodeCSV(w io.Writer, r *scanning.Report) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for i := range r.Results {
		res := &r.Results[i]
		record := []string{
			strconv.Itoa(int(res.Port)),
			res.Protocol,
			string(res.Status),
			res.Service,
			res.Banner,
			strconv.FormatFloat(float64(res.Latency)/float64(time.Millisecond), 'f', 3, 64),
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

// reportXML is the root element for XML serialization of a report.
type reportXML struct {
	XMLName     xml.Name          `xml:"portscan"`
	ScanID      string            `xml:"scan_id,attr"`
	Target      string            `xml:"target,attr"`
	Address     string            `xml:"address,attr"`
	ScanType    string            `xml:"scan_type,attr"`
	StartTime   string            `xml:"start_time,attr"`
	EndTime     string            `xml:"end_time,attr"`
	Duration    string            `xml:"duration,attr"`
	TotalPorts  int               `xml:"total_ports,attr"`
	OpenPorts   int               `xml:"open_ports,attr"`
	Interrupted bool              `xml:"interrupted,attr,omitempty"`
	Ports       []scanning.Result `xml:"port"`
}

// EncodeXML writes the report as an indented XML document.
func EncodeXML(w io.Writer, r *scanning.Report) error {
	doc := reportXML{
		ScanID:      r.ScanID,
		Target:      r.Target,
		Address:     r.Address,
		ScanType:    string(r.ScanType),
		StartTime:   r.StartTime.Format(time.RFC3339),
		EndTime:     r.EndTime.Format(time.RFC3339),
		Duration:    r.Duration.String(),
		TotalPorts:  r.TotalPorts,
		OpenPorts:   r.OpenPorts,
		Interrupted: r.Interrupted,
		Ports:       r.Results,
	}

	if _, err := io.WriteString(w, xml.Header); err != nil {
		return err
	}
	enc := xml.NewEncoder(w)
	enc.Indent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return err
	}
	if err := enc.Close(); err != nil {
		return err
	}
	_, err := io.WriteString(w, "\n")
	return err
}
