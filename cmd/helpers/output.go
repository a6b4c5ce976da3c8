package helpers

import (
	"encoding/json"
	"fmt"
	"io"

	"github.com/prasisiri/pycode-cronjob/internal/output"
)

// OutputJSON marshals and prints the result as JSON
func OutputJSON(w io.Writer, result *output.Result) error {
	jsonOutput, err := json.Marshal(result)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON output: %w", err)
	}

	_, err = fmt.Fprintln(w, string(jsonOutput))
	return err
}
