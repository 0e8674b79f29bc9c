// Package report provides output formatters for sounding analysis
// reports in JSON, markdown and human-readable text formats.
package report

import (
	"encoding/json"
	"io"

	"github.com/unbound-force/sounding/internal/engine"
)

// JSONReport is the top-level JSON output structure.
type JSONReport struct {
	Version string         `json:"version"`
	Report  *engine.Report `json:"report"`
}

// WriteJSON writes the report as formatted JSON to the writer.
func WriteJSON(w io.Writer, rpt *engine.Report, version string) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(JSONReport{
		Version: version,
		Report:  rpt,
	})
}
