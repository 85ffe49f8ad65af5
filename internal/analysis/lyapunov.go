package analysis

import (
	"math"

	"github.com/san-kum/resodyn/internal/dynamo"
)

// LyapunovExponent estimates the largest Lyapunov exponent of sys from x0.
// A companion trajectory starts d0 away along the first component and is
// pulled back to distance d0 after every step; the exponent is the mean
// logarithmic stretch per unit time.
func LyapunovExponent(
	sys dynamo.System,
	integ dynamo.Integrator,
	x0 dynamo.State,
	dt, duration float64,
	d0 float64,
) float64 {
	if len(x0) == 0 || dt <= 0 || duration <= 0 || d0 <= 0 {
		return 0
	}

	x := x0.Clone()
	xp := x0.Clone()
	xp[0] += d0

	t := 0.0
	sumLog := 0.0
	for t < duration {
		x = integ.Step(sys, x, t, dt)
		xp = integ.Step(sys, xp, t, dt)
		t += dt

		sep := xp.Sub(x).Norm()
		if sep == 0 || math.IsNaN(sep) || math.IsInf(sep, 0) {
			break
		}
		sumLog += math.Log(sep / d0)

		scale := d0 / sep
		for i := range xp {
			xp[i] = x[i] + (xp[i]-x[i])*scale
		}
	}

	if t == 0 {
		return 0
	}
	return sumLog / t
}
