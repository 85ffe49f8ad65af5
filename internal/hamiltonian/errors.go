package hamiltonian

import (
	"errors"
	"fmt"
)

var (
	// ErrInitializationRequired is matched by every error that means the model
	// cannot currently produce a trajectory: never built, or its solver failed.
	ErrInitializationRequired = errors.New("hamiltonian: initialization required")

	ErrNotInitialized     = fmt.Errorf("%w: model has not been built", ErrInitializationRequired)
	ErrIntegrationFailed  = errors.New("hamiltonian: integration failed")
	ErrMissingParameter   = errors.New("hamiltonian: missing parameter")
	ErrParameterCount     = errors.New("hamiltonian: parameter count mismatch")
	ErrDuplicateVariable  = errors.New("hamiltonian: duplicate canonical variable")
	ErrDuplicateParameter = errors.New("hamiltonian: parameter already bound to a different value")
	ErrUnknownParameter   = errors.New("hamiltonian: unknown parameter")
	ErrStateLength        = errors.New("hamiltonian: state length does not match the pair list")
	ErrNoPairs            = errors.New("hamiltonian: no canonical pairs")
)

// MissingParameterError names a symbol of the Hamiltonian that is neither a
// canonical variable nor a bound parameter.
type MissingParameterError struct {
	Symbol string
}

func (e *MissingParameterError) Error() string {
	return fmt.Sprintf("hamiltonian: missing parameter %q", e.Symbol)
}

func (e *MissingParameterError) Is(target error) bool { return target == ErrMissingParameter }

// IntegrationError wraps a solver failure while advancing to Time.
type IntegrationError struct {
	Time float64
	Err  error
}

func (e *IntegrationError) Error() string {
	return fmt.Sprintf("hamiltonian: integration to t=%g failed: %v", e.Time, e.Err)
}

func (e *IntegrationError) Unwrap() error { return e.Err }

func (e *IntegrationError) Is(target error) bool {
	return target == ErrIntegrationFailed || target == ErrInitializationRequired
}
