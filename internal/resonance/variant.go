package resonance

import (
	"fmt"

	"github.com/san-kum/resodyn/internal/symbolic"
	"github.com/san-kum/resodyn/internal/transform"
)

// Variant fixes the canonical variables a Composer works in. Each body i
// contributes two pairs, (Momentum_i, Angle_i) and (EccMomentum_i, EccAngle_i).
type Variant struct {
	Name string

	Momentum    string
	Angle       string
	EccMomentum string
	EccAngle    string

	// lambda is the Keplerian action of body i in this variant's variables.
	lambda func(v Variant, i int) symbolic.Expr
	// argument is the resonant angle of the j:j-k term with inner power l.
	argument func(v Variant, in, out, j, k, l int) symbolic.Expr
	// toState maps Poincaré variables of bodies 1..N-1 onto the state layout.
	toState func(vars []transform.Poincare) []float64
	// fromState inverts toState.
	fromState func(y []float64) []transform.Poincare
}

func (v Variant) sym(prefix string, i int) *symbolic.Sym {
	return symbolic.Symbol(fmt.Sprintf("%s%d", prefix, i))
}

func (v Variant) pairs(i int) (mom, ang, ecc, eccAng string) {
	return fmt.Sprintf("%s%d", v.Momentum, i), fmt.Sprintf("%s%d", v.Angle, i),
		fmt.Sprintf("%s%d", v.EccMomentum, i), fmt.Sprintf("%s%d", v.EccAngle, i)
}

// Poincare works directly in (Lambda, lambda, Gamma, gamma).
var Poincare = Variant{
	Name:        "poincare",
	Momentum:    "Lambda",
	Angle:       "lambda",
	EccMomentum: "Gamma",
	EccAngle:    "gamma",

	lambda: func(v Variant, i int) symbolic.Expr { return v.sym(v.Momentum, i) },
	argument: func(v Variant, in, out, j, k, l int) symbolic.Expr {
		return symbolic.Sum(
			symbolic.Product(symbolic.Int(int64(j)), v.sym(v.Angle, out)),
			symbolic.Product(symbolic.Int(int64(k-j)), v.sym(v.Angle, in)),
			symbolic.Product(symbolic.Int(int64(l)), v.sym(v.EccAngle, in)),
			symbolic.Product(symbolic.Int(int64(k-l)), v.sym(v.EccAngle, out)),
		)
	},
	toState: transform.Flatten,
	fromState: func(y []float64) []transform.Poincare {
		n := len(y) / 4
		out := make([]transform.Poincare, n)
		for i := range out {
			out[i] = transform.Poincare{
				Lambda:        y[4*i],
				MeanLongitude: y[4*i+1],
				Gamma:         y[4*i+2],
				GammaAngle:    y[4*i+3],
			}
		}
		return out
	},
}

// CombinedEccentricity uses
//
//	Phi_i = Gamma_i, Psi_i = sum_{m<=i} (Gamma_m - Lambda_m),
//	psi_i = lambda_{i+1} - lambda_i (psi_N = -lambda_N), phi_i = lambda_i + gamma_i,
//
// so that Lambda_i = Phi_i - Psi_i + Psi_{i-1} and the resonant angle of
// adjacent bodies depends on a single psi.
var CombinedEccentricity = Variant{
	Name:        "combined",
	Momentum:    "Psi",
	Angle:       "psi",
	EccMomentum: "Phi",
	EccAngle:    "phi",

	lambda: func(v Variant, i int) symbolic.Expr {
		L := symbolic.Subtract(v.sym(v.EccMomentum, i), v.sym(v.Momentum, i))
		if i == 1 {
			return L
		}
		return symbolic.Sum(L, v.sym(v.Momentum, i-1))
	},
	argument: func(v Variant, in, out, j, k, l int) symbolic.Expr {
		return symbolic.Sum(
			symbolic.Product(symbolic.Int(int64(j-k+l)), v.sym(v.Angle, in)),
			symbolic.Product(symbolic.Int(int64(l)), v.sym(v.EccAngle, in)),
			symbolic.Product(symbolic.Int(int64(k-l)), v.sym(v.EccAngle, out)),
		)
	},
	toState: func(vars []transform.Poincare) []float64 {
		n := len(vars)
		y := make([]float64, 4*n)
		psiSum := 0.0
		for i, p := range vars {
			psiSum += p.Gamma - p.Lambda
			psi := -p.MeanLongitude
			if i+1 < n {
				psi = vars[i+1].MeanLongitude - p.MeanLongitude
			}
			y[4*i] = psiSum
			y[4*i+1] = psi
			y[4*i+2] = p.Gamma
			y[4*i+3] = p.MeanLongitude + p.GammaAngle
		}
		return y
	},
	fromState: func(y []float64) []transform.Poincare {
		n := len(y) / 4
		out := make([]transform.Poincare, n)
		prevPsi := 0.0
		for i := 0; i < n; i++ {
			Psi, Phi := y[4*i], y[4*i+2]
			out[i].Lambda = Phi - Psi + prevPsi
			out[i].Gamma = Phi
			prevPsi = Psi
		}
		// mean longitudes unwind from the outermost body inwards
		lam := -y[4*(n-1)+1]
		for i := n - 1; i >= 0; i-- {
			if i < n-1 {
				lam = out[i+1].MeanLongitude - y[4*i+1]
			}
			out[i].MeanLongitude = lam
			out[i].GammaAngle = y[4*i+3] - lam
		}
		return out
	},
}
