package dispatch

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

var (
	// ErrOperational marks failures of the dispatch machinery itself, as
	// opposed to failures of the tasks it runs.
	ErrOperational = errors.New("dispatch unavailable")

	// ErrPoolClosed is returned when acquiring from a closed pool.
	ErrPoolClosed = errors.New("pool is closed")
)

// TaskError reports the task that stopped a sequential run.
type TaskError struct {
	Index int
	Err   error
}

func (e *TaskError) Error() string {
	return fmt.Sprintf("task %d failed: %v", e.Index, e.Err)
}

func (e *TaskError) Unwrap() error {
	return e.Err
}

// DispatchError is returned by the concurrent strategy. Either Operational
// is set with Err, or Failed lists every task index that returned an error.
type DispatchError struct {
	Operational bool
	Err         error

	Failed []int
	Errs   map[int]error
}

func (e *DispatchError) Error() string {
	if e.Operational {
		return fmt.Sprintf("concurrent dispatch unavailable: %v", e.Err)
	}

	parts := make([]string, 0, len(e.Failed))
	for _, i := range e.Failed {
		parts = append(parts, fmt.Sprintf("task %d: %v", i, e.Errs[i]))
	}
	return fmt.Sprintf("%d task(s) failed: %s", len(e.Failed), strings.Join(parts, "; "))
}

func (e *DispatchError) Is(target error) bool {
	return target == ErrOperational && e.Operational
}

func (e *DispatchError) Unwrap() []error {
	var errs []error
	if e.Err != nil {
		errs = append(errs, e.Err)
	}
	for _, i := range e.Failed {
		errs = append(errs, e.Errs[i])
	}
	return errs
}

// FirstFailed returns the lowest failed index and its error.
func (e *DispatchError) FirstFailed() (int, error, bool) {
	if len(e.Failed) == 0 {
		return 0, nil, false
	}
	i := slices.Min(e.Failed)
	return i, e.Errs[i], true
}

func operational(err error) *DispatchError {
	return &DispatchError{Operational: true, Err: err}
}
