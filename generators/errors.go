package generators

import (
	"errors"
	"strings"
)

var (
	ErrRetryable = errors.New("retryable")
	// ErrOutOfMemory reports accelerator memory exhaustion
	ErrOutOfMemory = errors.New("accelerator out of memory")
)

// classify joins sentinel errors recognized from a backend error message.
func classify(err error, message string) error {
	lower := strings.ToLower(message)
	if strings.Contains(lower, "out of memory") ||
		strings.Contains(lower, "cuda error") ||
		strings.Contains(lower, "requires more system memory") {
		return errors.Join(err, ErrOutOfMemory)
	}
	return err
}
