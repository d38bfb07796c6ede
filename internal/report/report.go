// Package report renders scan reports as text, JSON, CSV or XML.
//
// Encoders only format what the engine produced: they never reorder,
// filter or re-probe. Every encoder carries port, protocol, status, and the
// service and banner when present, escaped for its format.
package report

import (
	"fmt"
	"io"
	"strings"

	"github.com/anstrom/portscout/internal/errors"
	"github.com/anstrom/portscout/internal/scanning"
)

// Format selects an encoder.
type Format string

const (
	FormatText Format = "text"
	FormatJSON Format = "json"
	FormatCSV  Format = "csv"
	FormatXML  Format = "xml"
)

// Formats lists every supported output format.
var Formats = []Format{FormatText, FormatJSON, FormatCSV, FormatXML}

// EncodeFunc writes a report to w.
type EncodeFunc func(w io.Writer, r *scanning.Report) error

var encoders = map[Format]EncodeFunc{
	FormatText: EncodeText,
	FormatJSON: EncodeJSON,
	FormatCSV:  EncodeCSV,
	FormatXML:  EncodeXML,
}

// ParseFormat converts a user-supplied format name.
func ParseFormat(s string) (Format, error) {
	f := Format(strings.ToLower(strings.TrimSpace(s)))
	if _, ok := encoders[f]; !ok {
		return "", errors.ErrConfigInvalid("format", s).
			WithContext("allowed", "text, json, csv, xml")
	}
	return f, nil
}

// Encode writes r to w in the given format.
func Encode(w io.Writer, r *scanning.Report, format Format) error {
	if r == nil {
		return errors.NewScanError(errors.CodeEncodeFailed, "cannot encode nil report")
	}
	enc, ok := encoders[format]
	if !ok {
		return errors.ErrConfigInvalid("format", string(format))
	}
	if err := enc(w, r); err != nil {
		return errors.WrapScanErrorWithTarget(errors.CodeEncodeFailed,
			fmt.Sprintf("failed to encode %s report", format), r.Target, err)
	}
	return nil
}
