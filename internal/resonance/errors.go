package resonance

import (
	"errors"
	"fmt"
)

var ErrInvalidResonanceTerm = errors.New("resonance: invalid resonance term")

// InvalidTermError describes a rejected AddSingleResonance call.
type InvalidTermError struct {
	In, Out int
	J, K, L int
	Reason  string
}

func (e *InvalidTermError) Error() string {
	return fmt.Sprintf("resonance: invalid term (in=%d out=%d j=%d k=%d l=%d): %s",
		e.In, e.Out, e.J, e.K, e.L, e.Reason)
}

func (e *InvalidTermError) Is(target error) bool { return target == ErrInvalidResonanceTerm }
