package sim

import (
	"errors"
	"fmt"

	"github.com/san-kum/resodyn/internal/dynamo"
)

var ErrTimeGrid = errors.New("sim: output times must be non-empty and strictly increasing")

// Integrable advances to an absolute time and exposes its state there.
// *hamiltonian.Model satisfies it.
type Integrable interface {
	Integrate(t float64) error
	State() dynamo.State
}

type Result struct {
	Times   []float64
	States  []dynamo.State
	Metrics map[string]float64
	// EnergyDrift is |E_end - E_0| / |E_0| when the target reports energy.
	EnergyDrift float64
	Samples     int
}

// SampleError reports the output time a run stopped at.
type SampleError struct {
	Index int
	Time  float64
	Err   error
}

func (e *SampleError) Error() string {
	return fmt.Sprintf("sample %d (t=%.4f): %v", e.Index, e.Time, e.Err)
}

func (e *SampleError) Unwrap() error { return e.Err }
