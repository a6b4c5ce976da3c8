package helpers

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/prasisiri/pycode-cronjob/cmd/config"
	appconfig "github.com/prasisiri/pycode-cronjob/internal/config"
	"github.com/prasisiri/pycode-cronjob/internal/upload"
)

// BuildUploadConfig builds the configuration from env, the INI file and --set overrides
func BuildUploadConfig(cfg *config.UploadConfig) (*appconfig.Config, error) {
	conf, err := appconfig.Build(cfg.Config, cfg.Set)
	if err != nil {
		return nil, fmt.Errorf("failed to build upload config: %w", err)
	}
	return conf, nil
}

// InspectUpload resolves and validates the transport settings for req
func InspectUpload(logger *slog.Logger, req upload.Request, conf *appconfig.Config) (map[string]string, error) {
	return upload.NewDispatcher(logger).Inspect(req, conf)
}

// HandleUpload runs the upload, bounded by timeout when it is positive
func HandleUpload(ctx context.Context, logger *slog.Logger, req upload.Request, conf *appconfig.Config, timeout time.Duration) upload.Outcome {
	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	logger.Debug("Dispatching upload", "file", req.FilePath, "transport", req.Kind, "timeout", timeout.String())
	return upload.NewDispatcher(logger).Dispatch(ctx, req, conf)
}
