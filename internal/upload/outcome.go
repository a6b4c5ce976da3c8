package upload

import (
	"strings"
	"time"
)

// Outcome is the normalized result of one upload attempt
type Outcome struct {
	Succeeded   bool
	Message     string
	Kind        Kind
	Destination string
	Bytes       int64
	Duration    time.Duration
}

// Success builds a successful outcome
func Success(kind Kind, destination string, bytes int64, message string) Outcome {
	if message == "" {
		message = kind.String() + " upload completed successfully"
	}
	return Outcome{
		Succeeded:   true,
		Message:     message,
		Kind:        kind,
		Destination: destination,
		Bytes:       bytes,
	}
}

// Failure builds a failed outcome from err. The message is never empty.
func Failure(kind Kind, err error) Outcome {
	message := ""
	if err != nil {
		message = strings.TrimSpace(err.Error())
	}
	if message == "" {
		message = kind.String() + " upload failed"
	}
	return Outcome{
		Succeeded: false,
		Message:   message,
		Kind:      kind,
	}
}
