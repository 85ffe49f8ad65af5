package integrators

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/resodyn/internal/dynamo"
)

// ErrMaxSteps indicates the driver hit its internal step budget before reaching
// the requested time.
var ErrMaxSteps = errors.New("integrators: maximum number of internal steps exceeded")

type Method string

const (
	MethodDOPRI5 Method = "dopri5"
	MethodRK4    Method = "rk4"
)

// Settings configures an ODE driver.
type Settings struct {
	Method      Method
	RTol        float64
	ATol        float64
	MaxSteps    int
	InitialStep float64
	MinStep     float64
	FixedStep   float64
}

func DefaultSettings() Settings {
	return Settings{
		Method:      MethodDOPRI5,
		RTol:        1e-10,
		ATol:        1e-12,
		MaxSteps:    10000,
		InitialStep: 1e-3,
		MinStep:     1e-14,
		FixedStep:   1e-3,
	}
}

func (s Settings) Validate() error {
	switch s.Method {
	case MethodDOPRI5:
		if s.RTol <= 0 {
			return fmt.Errorf("rtol must be positive, got %g", s.RTol)
		}
		if s.InitialStep <= 0 {
			return fmt.Errorf("initial step must be positive, got %g", s.InitialStep)
		}
	case MethodRK4:
		if s.FixedStep <= 0 {
			return fmt.Errorf("fixed step must be positive, got %g", s.FixedStep)
		}
	default:
		return fmt.Errorf("unknown integration method: %q", s.Method)
	}
	if s.MaxSteps <= 0 {
		return fmt.Errorf("max steps must be positive, got %d", s.MaxSteps)
	}
	return nil
}

// ODE advances a System forward in time and keeps the current (t, y).
// Each Integrate call has its own budget of Settings.MaxSteps internal steps.
type ODE struct {
	sys      dynamo.System
	settings Settings
	dopri    *RK45
	rk4      *RK4

	t float64
	y dynamo.State
	h float64
}

func NewODE(sys dynamo.System, settings Settings) (*ODE, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}
	o := &ODE{
		sys:      sys,
		settings: settings,
		dopri:    NewRK45(),
		rk4:      NewRK4(),
		h:        settings.InitialStep,
	}
	o.dopri.SetAbsTol(settings.ATol)
	return o, nil
}

func (o *ODE) SetInitialValue(y0 []float64, t0 float64) error {
	if dim := o.sys.StateDim(); dim != len(y0) {
		return fmt.Errorf("%w: state has %d components, system expects %d", dynamo.ErrDimensionMismatch, len(y0), dim)
	}
	o.y = dynamo.State(y0).Clone()
	o.t = t0
	o.h = o.settings.InitialStep
	return nil
}

func (o *ODE) T() float64 { return o.t }

func (o *ODE) Y() dynamo.State { return o.y.Clone() }

// Integrate advances the solution to tEnd. Requests at or before the current
// time leave the state untouched.
func (o *ODE) Integrate(tEnd float64) error {
	if tEnd <= o.t {
		return nil
	}
	if o.settings.Method == MethodRK4 {
		return o.integrateFixed(tEnd)
	}
	return o.integrateAdaptive(tEnd)
}

func (o *ODE) integrateAdaptive(tEnd float64) error {
	h := o.h
	for step := 0; o.t < tEnd; step++ {
		if step >= o.settings.MaxSteps {
			return &dynamo.SimulationError{Step: step, Time: o.t, State: o.y.Clone(), Wrapped: ErrMaxSteps}
		}

		last := false
		if o.t+h >= tEnd {
			h = tEnd - o.t
			last = true
		}

		xNew, hNew, err := o.dopri.StepAdaptive(o.sys, o.y, o.t, h, o.settings.RTol)
		if errors.Is(err, ErrStepRejected) {
			h = hNew
			if h < o.settings.MinStep {
				return &dynamo.SimulationError{Step: step, Time: o.t, State: o.y.Clone(), Wrapped: dynamo.ErrStepTooSmall}
			}
			continue
		}
		if err != nil {
			return &dynamo.SimulationError{Step: step, Time: o.t, State: o.y.Clone(), Wrapped: err}
		}
		if !xNew.IsValid() {
			return &dynamo.SimulationError{Step: step, Time: o.t, State: o.y.Clone(), Wrapped: dynamo.ErrInvalidState}
		}

		o.y = xNew
		if last {
			o.t = tEnd
		} else {
			o.t += h
			o.h = hNew
		}
		h = hNew
	}
	return nil
}

func (o *ODE) integrateFixed(tEnd float64) error {
	n := int(math.Ceil((tEnd - o.t) / o.settings.FixedStep))
	if n > o.settings.MaxSteps {
		return &dynamo.SimulationError{Step: 0, Time: o.t, State: o.y.Clone(), Wrapped: ErrMaxSteps}
	}
	dt := (tEnd - o.t) / float64(n)
	for step := 0; step < n; step++ {
		x := o.rk4.Step(o.sys, o.y, o.t, dt)
		if !x.IsValid() {
			return &dynamo.SimulationError{Step: step, Time: o.t, State: o.y.Clone(), Wrapped: dynamo.ErrInvalidState}
		}
		o.y = x
		o.t += dt
	}
	o.t = tEnd
	return nil
}
