// Package dispatch runs independent tasks either one after another or
// concurrently on a bounded pool.
package dispatch

import (
	"context"
	"fmt"
)

// Task is one unit of work. Its result is returned at its submission index.
type Task func(ctx context.Context) (any, error)

// Strategy executes a batch of tasks.
type Strategy interface {
	// Name returns the strategy name.
	Name() string

	// Run executes tasks and returns their results in submission order.
	Run(ctx context.Context, tasks []Task) ([]any, error)
}

// StrategyType represents the type of dispatch strategy.
type StrategyType string

const (
	StrategySequential StrategyType = "sequential"
	StrategyConcurrent StrategyType = "concurrent"
)

// IsValid checks if the strategy type is valid.
func (s StrategyType) IsValid() bool {
	switch s {
	case StrategySequential, StrategyConcurrent:
		return true
	}
	return false
}

// String returns string representation.
func (s StrategyType) String() string {
	return string(s)
}

// runTask converts a panicking task into an error.
func runTask(ctx context.Context, task Task) (res any, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("task panicked: %v", r)
		}
	}()
	return task(ctx)
}
