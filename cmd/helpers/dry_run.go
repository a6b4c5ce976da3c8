package helpers

import (
	"fmt"
	"io"
	"slices"

	"github.com/prasisiri/pycode-cronjob/internal/upload"
)

// PrintUploadInfo prints the resolved transport settings in verbose/dry-run mode
func PrintUploadInfo(w io.Writer, req upload.Request, settings map[string]string, dryRun bool) {
	header := "Upload Configuration"
	if dryRun {
		header = "Upload Configuration (DRY RUN)"
	}

	fmt.Fprintln(w, "========================================")
	fmt.Fprintln(w, header)
	fmt.Fprintln(w, "========================================")
	fmt.Fprintf(w, "%-16s%s\n", "File:", req.FilePath)
	fmt.Fprintf(w, "%-16s%s\n", "Method:", req.Kind)

	keys := make([]string, 0, len(settings))
	for k := range settings {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	for _, k := range keys {
		if settings[k] == "" {
			continue
		}
		fmt.Fprintf(w, "%-16s%s\n", k+":", settings[k])
	}

	fmt.Fprintln(w, "----------------------------------------")
}
