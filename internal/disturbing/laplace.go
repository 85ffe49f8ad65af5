// Package disturbing evaluates coefficients of the planar disturbing function
// for mean-motion resonances.
package disturbing

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/integrate/quad"
)

var (
	ErrAlphaRange     = errors.New("disturbing: semimajor axis ratio must lie in (0, 1)")
	ErrInvalidIndices = errors.New("disturbing: invalid resonance indices")
)

// quadPoints is the Gauss-Legendre order used for the base Laplace integral.
const quadPoints = 256

type laplaceKey struct {
	s    float64
	j, n int
}

// laplace caches Laplace coefficients at one alpha while a coefficient is
// being assembled; the derivative recurrence revisits the same entries.
type laplace struct {
	alpha float64
	memo  map[laplaceKey]float64
}

func newLaplace(alpha float64) *laplace {
	return &laplace{alpha: alpha, memo: make(map[laplaceKey]float64)}
}

// LaplaceCoefficient returns the n-th derivative with respect to alpha of the
// Laplace coefficient b_s^(j)(alpha).
func LaplaceCoefficient(s float64, j, n int, alpha float64) (float64, error) {
	if !(alpha > 0 && alpha < 1) {
		return 0, fmt.Errorf("%w: alpha=%g", ErrAlphaRange, alpha)
	}
	if n < 0 {
		return 0, fmt.Errorf("%w: derivative order %d", ErrInvalidIndices, n)
	}
	return newLaplace(alpha).eval(s, j, n), nil
}

func (l *laplace) eval(s float64, j, n int) float64 {
	if j < 0 {
		j = -j
	}
	if n < 0 {
		return 0
	}
	key := laplaceKey{s: s, j: j, n: n}
	if v, ok := l.memo[key]; ok {
		return v
	}

	var v float64
	if n == 0 {
		v = l.integral(s, j)
	} else {
		a := l.alpha
		v = s * (l.eval(s+1, j-1, n-1) - 2*a*l.eval(s+1, j, n-1) + l.eval(s+1, j+1, n-1))
		if n > 1 {
			v -= s * 2 * float64(n-1) * l.eval(s+1, j, n-2)
		}
	}
	l.memo[key] = v
	return v
}

// integral computes (2/pi) * int_0^pi cos(j psi) (1 - 2 alpha cos psi + alpha^2)^-s dpsi.
func (l *laplace) integral(s float64, j int) float64 {
	a := l.alpha
	f := func(psi float64) float64 {
		return math.Cos(float64(j)*psi) * math.Pow(1-2*a*math.Cos(psi)+a*a, -s)
	}
	return 2 / math.Pi * quad.Fixed(f, 0, math.Pi, quadPoints, nil, 0)
}
