package config

import "time"

// UploadConfig holds upload-related flags
type UploadConfig struct {
	File   string
	Config string
	Method string
	Set    []string // section.key=value overrides
}

// CommonFlags holds the flags that shape how an upload runs and reports
type CommonFlags struct {
	Verbose    bool
	DryRun     bool
	JSON       bool
	TimeoutStr string
	Timeout    time.Duration
}
