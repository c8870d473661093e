package build

import (
	"errors"
	"fmt"
	"sort"
	"strings"
)

// PageError is a failure to render one output.
type PageError struct {
	Owner  string // source file that owns the output
	Output string
	Err    error
}

func (e *PageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Output, e.Err)
}

func (e *PageError) Unwrap() error { return e.Err }

// BatchError collects every failure in a render batch. Pages that fail do not
// stop the others.
type BatchError struct {
	Errors []error
}

func (e *BatchError) Error() string {
	msgs := make([]string, len(e.Errors))
	for i, err := range e.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d page(s) failed:\n%s", len(e.Errors), strings.Join(msgs, "\n"))
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e *BatchError) Unwrap() []error { return e.Errors }

// Joined returns the failures as a single errors.Join error.
func (e *BatchError) Joined() error { return errors.Join(e.Errors...) }

// newBatchError returns nil when there is nothing to report. Page errors are
// ordered by output so reports are stable.
func newBatchError(errs []error) error {
	if len(errs) == 0 {
		return nil
	}
	sort.SliceStable(errs, func(i, j int) bool {
		return errorKey(errs[i]) < errorKey(errs[j])
	})
	return &BatchError{Errors: errs}
}

func errorKey(err error) string {
	var pe *PageError
	if errors.As(err, &pe) {
		return pe.Output
	}
	return ""
}
