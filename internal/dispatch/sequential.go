package dispatch

import "context"

// Sequential runs tasks in order and stops at the first failure.
type Sequential struct{}

func NewSequential() *Sequential {
	return &Sequential{}
}

func (s *Sequential) Name() string {
	return string(StrategySequential)
}

func (s *Sequential) Run(ctx context.Context, tasks []Task) ([]any, error) {
	results := make([]any, len(tasks))

	for i, task := range tasks {
		if err := ctx.Err(); err != nil {
			return nil, &TaskError{Index: i, Err: err}
		}

		res, err := runTask(ctx, task)
		if err != nil {
			return nil, &TaskError{Index: i, Err: err}
		}
		results[i] = res
	}

	return results, nil
}
