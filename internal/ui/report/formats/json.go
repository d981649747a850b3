package formats

import (
	"encoding/json"
	"io"
	"virtualmod/internal/core/ports"
)

// JSONReporter writes the report as indented JSON, paths left absolute.
type JSONReporter struct{}

func (r *JSONReporter) Report(w io.Writer, report *ports.Report) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
