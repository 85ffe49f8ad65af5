// Package andoyer reduces a two-planet j:j-k resonance to Andoyer variables
// and converts them to and from Poincaré variables and N-body states.
package andoyer

import (
	"errors"
	"fmt"
	"math"

	"github.com/san-kum/resodyn/internal/disturbing"
)

var ErrInvalidResonance = errors.New("andoyer: invalid resonance")

// ExpansionParams are the reference quantities of a j:j-k resonance between
// masses[1] (inner) and masses[2] (outer) orbiting masses[0].
type ExpansionParams struct {
	J, K   int
	G      float64
	Masses [3]float64

	A10, A20           float64
	Lambda10, Lambda20 float64
	N10, N20           float64
	FF, GG             float64

	Acoeff    float64
	Ccoeff    float64
	Phiscale  float64
	Timescale float64

	// Bcoeff and Phiprime depend on the Brouwer momentum and are only set on
	// the copy returned by (*State).Params.
	Bcoeff   float64
	Phiprime float64
}

// CalcExpansionParams is deterministic in its inputs. Only the supplier can
// fail besides invalid (j, k).
func CalcExpansionParams(sup disturbing.Supplier, G float64, masses [3]float64, j, k int, a10 float64) (ExpansionParams, error) {
	if k < 1 || j <= k {
		return ExpansionParams{}, fmt.Errorf("%w: need j > k >= 1, got %d:%d", ErrInvalidResonance, j, j-k)
	}
	if k == 4 {
		return ExpansionParams{}, fmt.Errorf("%w: the action scale is singular for k = 4", ErrInvalidResonance)
	}
	if sup == nil {
		sup = disturbing.Default
	}

	fj, fk := float64(j), float64(k)
	m0, m1, m2 := masses[0], masses[1], masses[2]
	p := ExpansionParams{J: j, K: k, G: G, Masses: masses, A10: a10}

	p.A20 = a10 * math.Pow(fj/(fj-fk), 2.0/3.0)
	p.Lambda10 = m1 * math.Sqrt(G*m0*p.A10)
	p.Lambda20 = m2 * math.Sqrt(G*m0*p.A20)
	p.N10 = m1 * m1 * m1 * (G * m0) * (G * m0) / (p.Lambda10 * p.Lambda10 * p.Lambda10)
	p.N20 = m2 * m2 * m2 * (G * m0) * (G * m0) / (p.Lambda20 * p.Lambda20 * p.Lambda20)
	dn1 := -3 * p.N10 / p.Lambda10
	dn2 := -3 * p.N20 / p.Lambda20

	f, g, err := sup.FGCoeffs(j, k)
	if err != nil {
		return ExpansionParams{}, fmt.Errorf("andoyer: fg coefficients for %d:%d: %w", j, j-k, err)
	}
	p.FF = math.Sqrt2 * f / math.Sqrt(p.Lambda10)
	p.GG = math.Sqrt2 * g / math.Sqrt(p.Lambda20)
	fac := math.Pow(math.Sqrt(2*fk*(p.FF*p.FF+p.GG*p.GG)), fk)

	p.Acoeff = dn1*(fj-fk)*(fj-fk) + dn2*fj*fj
	p.Ccoeff = -G * G * m0 * m2 * m2 * m2 * m1 / (p.Lambda20 * p.Lambda20) * fac
	p.Phiscale = math.Pow(2, (fk-6)/(fk-4)) * math.Pow(p.Ccoeff/p.Acoeff, 2/(4-fk))
	p.Timescale = 8 / (p.Phiscale * p.Acoeff)

	if math.IsNaN(p.Phiscale) || math.IsInf(p.Phiscale, 0) || p.Phiscale == 0 {
		return ExpansionParams{}, fmt.Errorf("%w: degenerate action scale %g", ErrInvalidResonance, p.Phiscale)
	}
	return p, nil
}
