package helpers

import (
	"github.com/prasisiri/pycode-cronjob/cmd/config"
	"github.com/spf13/cobra"
)

// SetupUploadFlags adds upload-related flags to a command
func SetupUploadFlags(cmd *cobra.Command, cfg *config.UploadConfig) {
	cmd.Flags().StringVarP(&cfg.File, "file", "f", "", "Path to the file to upload")
	cmd.Flags().StringVarP(&cfg.Config, "config", "c", "", "Path to the INI configuration file")
	cmd.Flags().StringVarP(&cfg.Method, "method", "m", "", "Upload method: sftp, s3, http")
	cmd.Flags().StringArrayVar(&cfg.Set, "set", nil, "Override a config value as section.key=value (can be used multiple times)")

	_ = cmd.MarkFlagRequired("file")
	_ = cmd.MarkFlagRequired("config")
	_ = cmd.MarkFlagRequired("method")
}

// SetupCommonFlags adds commonly used flags to a command
func SetupCommonFlags(cmd *cobra.Command, flags *config.CommonFlags) {
	cmd.Flags().BoolVarP(&flags.Verbose, "verbose", "v", false, "Enable debug logging")
	cmd.Flags().BoolVar(&flags.DryRun, "dry-run", false, "Validate configuration and print resolved settings without uploading")
	cmd.Flags().BoolVar(&flags.JSON, "json", false, "Print the upload result as JSON on stdout")
	cmd.Flags().StringVarP(&flags.TimeoutStr, "timeout", "t", "", "Overall upload deadline (e.g., 30s, 2m, 500ms)")
}
