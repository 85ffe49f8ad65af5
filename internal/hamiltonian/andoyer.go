package hamiltonian

import (
	"math"

	"github.com/san-kum/resodyn/internal/symbolic"
)

// Reduced single-resonance Hamiltonians. Each is a plain Model configured with
// its own pair, expression and parameter schema.

// NewAndoyerPendulum returns H = (Phi - Phiprime)^2/2 + Phi^(k/2) cos(phi)
// over the pair (Phi, phi).
func NewAndoyerPendulum(k int, phiprime, Phi0, phi0 float64, opts ...Option) (*Model, error) {
	Phi := symbolic.Symbol("Phi")
	phi := symbolic.Symbol("phi")
	pp := symbolic.Symbol("Phiprime")

	H := symbolic.Sum(
		symbolic.Product(symbolic.Rat(1, 2), symbolic.Power(symbolic.Subtract(Phi, pp), symbolic.Int(2))),
		symbolic.Product(symbolic.Power(Phi, symbolic.Rat(int64(k), 2)), symbolic.Cos(phi)),
	)
	params := Params{{Name: "Phiprime", Value: phiprime}}
	return New([]Pair{{P: "Phi", Q: "phi"}}, H, Schema{"Phiprime"}, params, []float64{Phi0, phi0}, opts...)
}

// NewAndoyerPolynomial returns H = A Phi^2/2 + B Phi + C Phi^(k/2) cos(phi).
func NewAndoyerPolynomial(k int, A, B, C, Phi0, phi0 float64, opts ...Option) (*Model, error) {
	Phi := symbolic.Symbol("Phi")
	phi := symbolic.Symbol("phi")

	H := symbolic.Sum(
		symbolic.Product(symbolic.Rat(1, 2), symbolic.Symbol("A"), symbolic.Power(Phi, symbolic.Int(2))),
		symbolic.Product(symbolic.Symbol("B"), Phi),
		symbolic.Product(symbolic.Symbol("C"), symbolic.Power(Phi, symbolic.Rat(int64(k), 2)), symbolic.Cos(phi)),
	)
	params, err := NewParams([]string{"A", "B", "C"}, []float64{A, B, C})
	if err != nil {
		return nil, err
	}
	return New([]Pair{{P: "Phi", Q: "phi"}}, H, Schema{"A", "B", "C"}, params, []float64{Phi0, phi0}, opts...)
}

// NewCartesianAndoyer is NewAndoyerPendulum in the regular variables
// X = sqrt(2 Phi) cos(phi), Y = sqrt(2 Phi) sin(phi):
// H = ((X^2+Y^2)/2 - Phiprime)^2/2 + X ((X^2+Y^2)/2)^((k-1)/2) / sqrt(2).
func NewCartesianAndoyer(k int, phiprime, Phi0, phi0 float64, opts ...Option) (*Model, error) {
	X := symbolic.Symbol("X")
	Y := symbolic.Symbol("Y")
	pp := symbolic.Symbol("Phiprime")

	half := symbolic.Product(symbolic.Rat(1, 2), symbolic.Sum(symbolic.Power(X, symbolic.Int(2)), symbolic.Power(Y, symbolic.Int(2))))
	H := symbolic.Sum(
		symbolic.Product(symbolic.Rat(1, 2), symbolic.Power(symbolic.Subtract(half, pp), symbolic.Int(2))),
		symbolic.Product(
			symbolic.Power(symbolic.Int(2), symbolic.Rat(-1, 2)),
			X,
			symbolic.Power(half, symbolic.Rat(int64(k-1), 2)),
		),
	)

	r := math.Sqrt(2 * Phi0)
	y0 := []float64{r * math.Cos(phi0), r * math.Sin(phi0)}
	params := Params{{Name: "Phiprime", Value: phiprime}}
	return New([]Pair{{P: "X", Q: "Y"}}, H, Schema{"Phiprime"}, params, y0, opts...)
}
