package report

import (
	"encoding/json"
	"fmt"
	"io"
)

// WriteJSON renders the report as a single JSON document.
func WriteJSON(w io.Writer, r *Report) error {
	enc := json.NewEncoder(w)
	if err := enc.Encode(r); err != nil {
		return fmt.Errorf("failed to encode report: %w", err)
	}
	return nil
}
