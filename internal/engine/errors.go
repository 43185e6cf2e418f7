package engine

import (
	"context"
	"errors"
	"fmt"
	"strings"
)

// TransientStoreError marks a store failure worth retrying with backoff:
// connection drops, timeouts, serialization conflicts.
type TransientStoreError struct {
	Op  string
	Err error
}

func (e *TransientStoreError) Error() string {
	return fmt.Sprintf("transient store failure in %s: %v", e.Op, e.Err)
}
func (e *TransientStoreError) Unwrap() error { return e.Err }

// FatalStoreError marks a store failure retrying cannot fix: constraint
// violations, schema drift, authorization.
type FatalStoreError struct {
	Op  string
	Err error
}

func (e *FatalStoreError) Error() string {
	return fmt.Sprintf("fatal store failure in %s: %v", e.Op, e.Err)
}
func (e *FatalStoreError) Unwrap() error { return e.Err }

// IsTransient classifies an error for the retry loop. Explicit markers win;
// otherwise fall back to message inspection since the drivers do not share a
// typed error surface.
func IsTransient(err error) bool {
	if err == nil {
		return false
	}
	var transient *TransientStoreError
	if errors.As(err, &transient) {
		return true
	}
	var fatal *FatalStoreError
	if errors.As(err, &fatal) {
		return false
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"connection refused",
		"connection reset",
		"broken pipe",
		"i/o timeout",
		"deadlock detected",
		"could not serialize access",
		"too many connections",
		"temporarily unavailable",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
