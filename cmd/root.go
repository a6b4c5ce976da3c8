package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"strings"

	"github.com/prasisiri/pycode-cronjob/cmd/config"
	"github.com/prasisiri/pycode-cronjob/cmd/helpers"
	"github.com/prasisiri/pycode-cronjob/internal/logging"
	"github.com/prasisiri/pycode-cronjob/internal/output"
	"github.com/prasisiri/pycode-cronjob/internal/upload"
	"github.com/spf13/cobra"
)

// ExitError carries a process exit status out of a command that already
// reported its failure
type ExitError struct {
	Code int
}

func (e *ExitError) Error() string {
	return fmt.Sprintf("exit status %d", e.Code)
}

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	var (
		uploadFlags config.UploadConfig
		commonFlags config.CommonFlags
	)

	cmd := &cobra.Command{
		Use:   "file-upload",
		Short: "Upload one local file over SFTP, S3 or HTTP",
		Long: `file-upload sends a single local file to a remote destination using the
transport selected with --method. Connection settings are read from the
matching section of an INI configuration file ([sftp], [s3] or [http]),
optionally overridden by FILE_UPLOAD_<SECTION>_<KEY> environment variables
and --set flags.

Available transports in this build: ` + availableTransports(),
		Example: `  file-upload -f report.csv -c upload.ini -m sftp
  file-upload -f report.csv -c upload.ini -m s3 --set s3.bucket=archive
  file-upload -f report.csv -c upload.ini -m http --json --timeout 1m`,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runUpload(cmd, &uploadFlags, &commonFlags)
		},
	}

	helpers.SetupUploadFlags(cmd, &uploadFlags)
	helpers.SetupCommonFlags(cmd, &commonFlags)
	return cmd
}

func runUpload(cmd *cobra.Command, uploadFlags *config.UploadConfig, commonFlags *config.CommonFlags) error {
	logger := logging.New(cmd.ErrOrStderr(), logging.Options{Verbose: commonFlags.Verbose})

	timeout, err := helpers.ParseTimeout(commonFlags.TimeoutStr)
	if err != nil {
		return err
	}
	commonFlags.Timeout = timeout

	if err := helpers.CheckFile(uploadFlags.File); err != nil {
		logger.Error(err.Error())
		return &ExitError{Code: output.ExitFailure}
	}

	req, err := upload.NewRequest(uploadFlags.File, uploadFlags.Method)
	if err != nil {
		return err
	}

	conf, err := helpers.BuildUploadConfig(uploadFlags)
	if err != nil {
		logger.Error("Failed to load configuration", "config", uploadFlags.Config, "error", err)
		return &ExitError{Code: output.ExitFailure}
	}

	if commonFlags.DryRun || commonFlags.Verbose {
		settings, err := helpers.InspectUpload(logger, req, conf)
		if err != nil {
			if commonFlags.DryRun {
				return reportResult(cmd, logger, req, upload.Failure(req.Kind, err), commonFlags.JSON)
			}
		} else {
			helpers.PrintUploadInfo(cmd.ErrOrStderr(), req, settings, commonFlags.DryRun)
		}
		if commonFlags.DryRun {
			logger.Info("Dry run complete, no upload performed", "transport", req.Kind)
			return nil
		}
	}

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	outcome := helpers.HandleUpload(ctx, logger, req, conf, commonFlags.Timeout)
	return reportResult(cmd, logger, req, outcome, commonFlags.JSON)
}

func reportResult(cmd *cobra.Command, logger *slog.Logger, req upload.Request, outcome upload.Outcome, asJSON bool) error {
	code := output.Report(logger, req, outcome)

	if asJSON {
		if err := helpers.OutputJSON(cmd.OutOrStdout(), output.NewResult(req, outcome)); err != nil {
			return err
		}
	}

	if code != output.ExitSuccess {
		return &ExitError{Code: code}
	}
	return nil
}

func availableTransports() string {
	kinds := upload.Available()
	if len(kinds) == 0 {
		return "none"
	}
	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.String()
	}
	return strings.Join(names, ", ")
}

// Execute runs the root command and exits with its status
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *ExitError
		if errors.As(err, &exitErr) {
			os.Exit(exitErr.Code)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(output.ExitFailure)
	}
}
