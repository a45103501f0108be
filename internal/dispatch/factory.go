package dispatch

import "fmt"

// Factory creates dispatch strategies bound to one pool.
type Factory struct {
	pool           *Pool
	maxConcurrency int
}

func NewFactory(pool *Pool, maxConcurrency int) *Factory {
	return &Factory{
		pool:           pool,
		maxConcurrency: maxConcurrency,
	}
}

// CreateByType creates a strategy of the specified type.
func (f *Factory) CreateByType(strategyType StrategyType) (Strategy, error) {
	switch strategyType {
	case StrategySequential:
		return NewSequential(), nil

	case StrategyConcurrent:
		return NewConcurrent(f.pool, f.maxConcurrency), nil

	default:
		return nil, fmt.Errorf("unknown strategy type: %s", strategyType)
	}
}
