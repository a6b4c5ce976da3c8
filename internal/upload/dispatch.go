package upload

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prasisiri/pycode-cronjob/internal/config"
)

// Dispatcher routes a Request to the transport registered for its kind
type Dispatcher struct {
	logger *slog.Logger
}

// NewDispatcher creates a Dispatcher that hands logger to every transport
func NewDispatcher(logger *slog.Logger) *Dispatcher {
	return &Dispatcher{logger: logger}
}

// Dispatch runs exactly one upload attempt and returns its outcome
func (d *Dispatcher) Dispatch(ctx context.Context, req Request, cfg *config.Config) (outcome Outcome) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			outcome = Failure(req.Kind, fmt.Errorf("%s: upload aborted: %v", req.Kind, r))
		}
		outcome.Duration = time.Since(start)
	}()

	transport, err := NewTransport(req.Kind, d.logger)
	if err != nil {
		d.logger.Error("Transport unavailable", "transport", req.Kind, "error", err)
		return Failure(req.Kind, err)
	}

	return transport.Upload(ctx, req.FilePath, cfg.Section(req.Kind.String()))
}

// Inspect validates the configuration for req without touching the network
func (d *Dispatcher) Inspect(req Request, cfg *config.Config) (map[string]string, error) {
	transport, err := NewTransport(req.Kind, d.logger)
	if err != nil {
		return nil, err
	}
	return transport.Inspect(cfg.Section(req.Kind.String()))
}
