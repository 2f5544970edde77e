package materialization

import (
	"fmt"

	"github.com/pkg/errors"
)

// Causes carried by ConfigError, match them with errors.Is.
var (
	ErrInvalidTimeColumn      = errors.New("invalid time column")
	ErrPrimaryKeyMissing      = errors.New("primary key missing")
	ErrInvalidPrimaryKey      = errors.New("invalid primary key")
	ErrPrimaryKeyIsTimeColumn = errors.New("primary key is the time column")
	ErrColumnsUnknown         = errors.New("model columns unknown")
	ErrTimeColumnNotFound     = errors.New("time column not found")
	ErrUnsupportedDialect     = errors.New("unsupported dialect")
)

// ErrMissingBatchWindow is the cause of the IntegrationError returned when a batch is run
// without its start or end.
var ErrMissingBatchWindow = errors.New("missing batch window")

// ConfigError is returned for problems the user fixes in the model definition.
type ConfigError struct {
	Cause error
	Msg   string
}

func (e *ConfigError) Error() string {
	return e.Msg
}

func (e *ConfigError) Unwrap() error {
	return e.Cause
}

// IntegrationError means the caller broke the contract of the strategy, it is never caused
// by user configuration.
type IntegrationError struct {
	Cause error
	Msg   string
}

func (e *IntegrationError) Error() string {
	return e.Msg
}

func (e *IntegrationError) Unwrap() error {
	return e.Cause
}

func configErrorf(cause error, format string, args ...any) *ConfigError {
	return &ConfigError{Cause: cause, Msg: fmt.Sprintf(format, args...)}
}
