package sim

import (
	"context"
	"sync"

	"go.uber.org/zap"

	"github.com/san-kum/resodyn/internal/dynamo"
)

// Ensemble runs independent targets concurrently on the same output grid.
// Each run gets fresh metrics from the factory since metrics keep state.
type Ensemble struct {
	metrics func() []dynamo.Metric
	logger  *zap.Logger
}

func NewEnsemble(metrics func() []dynamo.Metric, logger *zap.Logger) *Ensemble {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Ensemble{metrics: metrics, logger: logger}
}

// Run returns one result per target in order. Targets must not share state.
func (e *Ensemble) Run(ctx context.Context, targets []Integrable, times []float64) ([]*Result, error) {
	results := make([]*Result, len(targets))
	errs := make([]error, len(targets))

	var wg sync.WaitGroup
	for i, target := range targets {
		wg.Add(1)
		go func(idx int, target Integrable) {
			defer wg.Done()

			r := New(e.logger.With(zap.Int("member", idx)))
			if e.metrics != nil {
				for _, m := range e.metrics() {
					r.AddMetric(m)
				}
			}
			results[idx], errs[idx] = r.Run(ctx, target, times)
		}(i, target)
	}

	wg.Wait()

	for _, err := range errs {
		if err != nil {
			return results, err
		}
	}
	return results, nil
}
