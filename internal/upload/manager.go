package upload

import (
	"fmt"
	"log/slog"
	"slices"
)

// TransportFactory is a function that creates a new transport instance
type TransportFactory func(logger *slog.Logger) Transport

// Registry holds the transports compiled into this binary.
// Each transport registers itself from an init function guarded by a build tag.
var Registry = make(map[Kind]TransportFactory)

// RegisterTransport registers a new upload transport
func RegisterTransport(kind Kind, factory TransportFactory) {
	Registry[kind] = factory
}

// UnavailableError reports a known transport whose driver is not compiled in
type UnavailableError struct {
	Kind Kind
}

func (e *UnavailableError) Error() string {
	return fmt.Sprintf("%s: transport driver is not available in this build (built with the no_%s tag)", e.Kind, e.Kind)
}

// NewTransport creates a new transport instance by kind
func NewTransport(kind Kind, logger *slog.Logger) (Transport, error) {
	factory, ok := Registry[kind]
	if !ok {
		if slices.Contains(Kinds, kind) {
			return nil, &UnavailableError{Kind: kind}
		}
		return nil, fmt.Errorf("unknown upload transport: %s", kind)
	}
	return factory(logger), nil
}

// Available returns the kinds whose driver is compiled in
func Available() []Kind {
	var kinds []Kind
	for _, k := range Kinds {
		if _, ok := Registry[k]; ok {
			kinds = append(kinds, k)
		}
	}
	return kinds
}
