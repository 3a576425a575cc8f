package worker

import (
	"errors"
	"fmt"
	"strings"
)

// Sentinel markers tag job failures for classification at the intake
// boundary. The typed errors from the leaf packages (probe, runner,
// splitter, merger) remain reachable through errors.As.
var (
	ErrValidation = errors.New("validation error")
	ErrProbe      = errors.New("probe error")
	ErrExecution  = errors.New("execution error")
)

// Wrap tags err with the given marker and operation context.
func Wrap(marker error, operation string, err error) error {
	if marker == nil {
		marker = ErrExecution
	}
	operation = strings.TrimSpace(operation)
	if err != nil {
		if operation != "" {
			return fmt.Errorf("%w: %s: %w", marker, operation, err)
		}
		return fmt.Errorf("%w: %w", marker, err)
	}
	return fmt.Errorf("%w: %s", marker, operation)
}
