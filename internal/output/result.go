package output

import (
	"github.com/dustin/go-humanize"
	"github.com/prasisiri/pycode-cronjob/internal/upload"
	"github.com/shopspring/decimal"
)

const (
	StatusSuccess = "success"
	StatusFailed  = "failed"
)

// Result is the JSON document printed with --json
type Result struct {
	File        string           `json:"file"`
	Transport   string           `json:"transport"`
	Status      string           `json:"status"`
	Message     string           `json:"message"`
	Destination string           `json:"destination,omitempty"`
	Bytes       int64            `json:"bytes"`
	Size        string           `json:"size,omitempty"`
	Duration    int64            `json:"duration_ms"` // in milliseconds
	Throughput  *decimal.Decimal `json:"throughput_kib_s,omitempty"`
}

// NewResult builds the JSON result for one upload attempt
func NewResult(req upload.Request, outcome upload.Outcome) *Result {
	result := &Result{
		File:        req.FilePath,
		Transport:   req.Kind.String(),
		Status:      StatusFailed,
		Message:     outcome.Message,
		Destination: outcome.Destination,
		Bytes:       outcome.Bytes,
		Duration:    outcome.Duration.Milliseconds(),
	}

	if outcome.Succeeded {
		result.Status = StatusSuccess
	}

	if outcome.Bytes > 0 {
		result.Size = humanize.IBytes(uint64(outcome.Bytes))
		if outcome.Duration > 0 {
			kib := decimal.NewFromInt(outcome.Bytes).Div(decimal.NewFromInt(1024))
			seconds := decimal.NewFromFloat(outcome.Duration.Seconds())
			throughput := kib.Div(seconds).Round(2)
			result.Throughput = &throughput
		}
	}

	return result
}
