package output

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/prasisiri/pycode-cronjob/internal/upload"
)

const (
	ExitSuccess = 0
	ExitFailure = 1
)

// Report logs the final line for an upload attempt and returns the process
// exit status for it.
func Report(logger *slog.Logger, req upload.Request, outcome upload.Outcome) int {
	if outcome.Succeeded {
		logger.Info(fmt.Sprintf("File %s uploaded successfully using %s", req.FilePath, req.Kind),
			"destination", outcome.Destination,
			"duration", outcome.Duration.Round(time.Millisecond).String(),
		)
		return ExitSuccess
	}

	logger.Error(fmt.Sprintf("Failed to upload file %s using %s", req.FilePath, req.Kind),
		"error", outcome.Message,
	)
	return ExitFailure
}
