package report

import (
	"fmt"
	"io"
	"strconv"
	"time"

	"github.com/olekukonko/tablewriter"

	"github.com/anstrom/portscout/internal/scanning"
)

const textTimeFormat = "2006-01-02 15:04:05 MST"

// EncodeText writes a human-readable summary followed by a table of results.
func EncodeText(w io.Writer, r *scanning.Report) error {
	if _, err := fmt.Fprintf(w, "Scan report for %s\n", r.Target); err != nil {
		return err
	}
	fmt.Fprintf(w, "Scan ID:   %s\n", r.ScanID)
	fmt.Fprintf(w, "Scan type: %s\n", r.ScanType)
	fmt.Fprintf(w, "Started:   %s\n", r.StartTime.Format(textTimeFormat))
	fmt.Fprintf(w, "Duration:  %s\n", r.Duration.Round(time.Millisecond))
	if r.Interrupted {
		fmt.Fprintln(w, "Scan was interrupted; unprobed ports are reported as filtered")
	}
	fmt.Fprintln(w)

	if len(r.Results) == 0 {
		fmt.Fprintln(w, "No open ports found.")
	} else {
		table := tablewriter.NewWriter(w)
		table.Header("Port", "Protocol", "State", "Service", "Banner")
		for i := range r.Results {
			res := &r.Results[i]
			_ = table.Append([]string{
				strconv.Itoa(int(res.Port)),
				res.Protocol,
				string(res.Status),
				res.Service,
				res.Banner,
			})
		}
		if err := table.Render(); err != nil {
			return err
		}
	}

	_, err := fmt.Fprintf(w, "\n%d open of %d ports scanned\n", r.OpenPorts, r.TotalPorts)
	return err
}
