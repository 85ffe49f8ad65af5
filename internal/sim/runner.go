package sim

import (
	"context"
	"math"

	"go.uber.org/zap"
	"gonum.org/v1/gonum/floats"

	"github.com/san-kum/resodyn/internal/dynamo"
)

// Runner samples an Integrable on a grid of output times.
type Runner struct {
	metrics   []dynamo.Metric
	observers []dynamo.Observer
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{logger: logger}
}

func (r *Runner) AddMetric(m dynamo.Metric)     { r.metrics = append(r.metrics, m) }
func (r *Runner) AddObserver(o dynamo.Observer) { r.observers = append(r.observers, o) }

// Grid returns n evenly spaced times from 0 to tEnd inclusive.
func Grid(tEnd float64, n int) []float64 {
	if n < 2 {
		return []float64{tEnd}
	}
	return floats.Span(make([]float64, n), 0, tEnd)
}

// Run integrates target to each of times in turn and records the state there.
// On failure the partial result is returned with a *SampleError.
func (r *Runner) Run(ctx context.Context, target Integrable, times []float64) (*Result, error) {
	if err := validateTimes(times); err != nil {
		return nil, err
	}

	result := &Result{
		Times:   make([]float64, 0, len(times)),
		States:  make([]dynamo.State, 0, len(times)),
		Metrics: make(map[string]float64),
	}
	for _, m := range r.metrics {
		m.Reset()
	}

	energy, hasEnergy := target.(dynamo.Hamiltonian)
	var initialEnergy float64
	if hasEnergy {
		initialEnergy = energy.Energy(target.State())
	}

	var x dynamo.State
	for i, t := range times {
		select {
		case <-ctx.Done():
			return result, ctx.Err()
		default:
		}

		if err := target.Integrate(t); err != nil {
			r.logger.Warn("run stopped", zap.Int("sample", i), zap.Float64("time", t), zap.Error(err))
			return result, &SampleError{Index: i, Time: t, Err: err}
		}
		x = target.State()

		for _, m := range r.metrics {
			m.Observe(x, t)
		}
		for _, obs := range r.observers {
			obs.OnStep(x, t)
		}
		result.Times = append(result.Times, t)
		result.States = append(result.States, x)
		result.Samples++
	}

	if hasEnergy && initialEnergy != 0 {
		result.EnergyDrift = math.Abs(energy.Energy(x)-initialEnergy) / math.Abs(initialEnergy)
	}
	for _, m := range r.metrics {
		result.Metrics[m.Name()] = m.Value()
	}
	r.logger.Debug("run finished",
		zap.Int("samples", result.Samples),
		zap.Float64("energy_drift", result.EnergyDrift),
	)
	return result, nil
}

func validateTimes(times []float64) error {
	if len(times) == 0 {
		return ErrTimeGrid
	}
	for i := 1; i < len(times); i++ {
		if times[i] <= times[i-1] {
			return ErrTimeGrid
		}
	}
	return nil
}
