// Package transform converts between N-body states and canonical action-angle
// variables.
package transform

import (
	"fmt"
	"math"

	"github.com/san-kum/resodyn/internal/disturbing"
	"github.com/san-kum/resodyn/internal/nbody"
)

// Poincare holds the canonical Poincaré variables of one body.
type Poincare struct {
	Lambda        float64
	MeanLongitude float64
	Gamma         float64
	GammaAngle    float64
}

// ActionAngleToXY maps an action-angle pair to Cartesian canonical variables.
func ActionAngleToXY(action, angle float64) (x, y float64) {
	r := math.Sqrt(2 * action)
	return r * math.Cos(angle), r * math.Sin(angle)
}

func XYToActionAngle(x, y float64) (action, angle float64) {
	return (x*x + y*y) / 2, math.Atan2(y, x)
}

// Mod2Pi wraps an angle into [0, 2pi).
func Mod2Pi(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x
}

// PoincareVars returns the Poincaré variables of bodies 1..N-1 of sim. With
// averageSynodic the first order synodic oscillation of each Lambda is removed.
func PoincareVars(sim *nbody.Simulation, averageSynodic bool) ([]Poincare, error) {
	n := sim.N()
	if n < 2 {
		return nil, fmt.Errorf("transform: need a central body and at least one orbit, have %d particles", n)
	}
	mjac, Mjac, mu := sim.JacobiMasses()

	orbits := make([]nbody.Orbit, n)
	vars := make([]Poincare, n-1)
	for i := 1; i < n; i++ {
		o, err := sim.Orbit(i)
		if err != nil {
			return nil, err
		}
		orbits[i] = o
		L := mjac[i] * math.Sqrt(sim.G*Mjac[i]*o.A)
		vars[i-1] = Poincare{
			Lambda:        L,
			MeanLongitude: o.L,
			Gamma:         L * (1 - math.Sqrt(1-o.E*o.E)),
			GammaAngle:    -o.Pomega,
		}
	}

	if !averageSynodic {
		return vars, nil
	}

	corrections := make([]float64, n-1)
	for i1 := 1; i1 < n; i1++ {
		for i2 := i1 + 1; i2 < n; i2++ {
			c, err := synodicCorrection(orbits, vars, mjac, Mjac, mu, i1, i2)
			if err != nil {
				return nil, err
			}
			corrections[i1-1] += c
			corrections[i2-1] -= c
		}
	}
	for i := range vars {
		vars[i].Lambda += corrections[i]
	}
	return vars, nil
}

// synodicCorrection is the first order change of Lambda_i1 that averages the
// interaction of bodies i1 < i2 over their synodic angle.
func synodicCorrection(orbits []nbody.Orbit, vars []Poincare, mjac, Mjac, mu []float64, i1, i2 int) (float64, error) {
	alpha := orbits[i1].A / orbits[i2].A
	b0, err := disturbing.LaplaceCoefficient(0.5, 0, 0, alpha)
	if err != nil {
		return 0, fmt.Errorf("transform: synodic correction %d-%d: %w", i1, i2, err)
	}
	L1, L2 := vars[i1-1].Lambda, vars[i2-1].Lambda
	n1 := mu[i1] / (L1 * L1 * L1)
	n2 := mu[i2] / (L2 * L2 * L2)

	psi := vars[i1-1].MeanLongitude - vars[i2-1].MeanLongitude
	cospsi := math.Cos(psi)
	s := math.Pow(1-2*alpha*cospsi+alpha*alpha, -0.5) - b0/2 - alpha*cospsi

	prefactor := -mu[i2] * (mjac[i1] / Mjac[i1]) / (L2 * L2)
	return prefactor * s / (n1 - n2), nil
}

// Flatten lays the variables out as (Lambda, lambda, Gamma, gamma) per body.
func Flatten(vars []Poincare) []float64 {
	out := make([]float64, 0, 4*len(vars))
	for _, v := range vars {
		out = append(out, v.Lambda, v.MeanLongitude, v.Gamma, v.GammaAngle)
	}
	return out
}
