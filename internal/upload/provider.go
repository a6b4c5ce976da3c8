package upload

import (
	"context"
	"fmt"
	"strings"

	"github.com/prasisiri/pycode-cronjob/internal/config"
)

// Kind identifies a transport and the configuration section it reads
type Kind string

const (
	KindSFTP Kind = "sftp"
	KindS3   Kind = "s3"
	KindHTTP Kind = "http"
)

// Kinds lists every supported transport kind
var Kinds = []Kind{KindSFTP, KindS3, KindHTTP}

func (k Kind) String() string {
	return string(k)
}

// ParseKind converts a selector such as "sftp" into a Kind
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	for _, known := range Kinds {
		if k == known {
			return k, nil
		}
	}
	return "", fmt.Errorf("unknown upload method %q: must be one of sftp, s3, http", s)
}

// Transport defines the interface for upload transports
type Transport interface {
	// Kind returns the transport kind
	Kind() Kind

	// Inspect validates the section and returns the resolved settings with secrets masked
	Inspect(section config.Section) (map[string]string, error)

	// Upload sends the file at filePath to the destination described by section.
	// Every failure is reported through the returned Outcome.
	Upload(ctx context.Context, filePath string, section config.Section) Outcome
}

// Request is a single upload invocation
type Request struct {
	FilePath string
	Kind     Kind
}

// NewRequest validates the selector and builds a Request
func NewRequest(filePath, selector string) (Request, error) {
	kind, err := ParseKind(selector)
	if err != nil {
		return Request{}, err
	}
	if filePath == "" {
		return Request{}, fmt.Errorf("file path is required")
	}
	return Request{FilePath: filePath, Kind: kind}, nil
}

func maskSecret(s string) string {
	if s == "" {
		return ""
	}
	return "********"
}
