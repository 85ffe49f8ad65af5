package disturbing

import (
	"fmt"
	"math"
)

// poly is a polynomial in the operator D = alpha d/dalpha; index is the power.
type poly []float64

func (p poly) mul(q poly) poly {
	if len(p) == 0 || len(q) == 0 {
		return nil
	}
	out := make(poly, len(p)+len(q)-1)
	for i, a := range p {
		for j, b := range q {
			out[i+j] += a * b
		}
	}
	return out
}

func (p poly) add(q poly) poly {
	n := len(p)
	if len(q) > n {
		n = len(q)
	}
	out := make(poly, n)
	copy(out, p)
	for i, b := range q {
		out[i] += b
	}
	return out
}

func (p poly) scale(c float64) poly {
	out := make(poly, len(p))
	for i, a := range p {
		out[i] = a * c
	}
	return out
}

// newcomb returns the leading Newcomb operator X_{a,0}^{n,m} with n = n0 + n1*D.
func newcomb(a int, n0, n1 float64, m int) poly {
	switch {
	case a < 0:
		return nil
	case a == 0:
		return poly{1}
	}
	fm := float64(m)
	t1 := newcomb(a-1, n0, n1, m+1).mul(poly{4*fm - 2*n0, -2 * n1})
	t2 := newcomb(a-2, n0, n1, m+2).mul(poly{fm - n0, -n1})
	return t1.add(t2).scale(1 / (4 * float64(a)))
}

// stirling2 returns the Stirling number of the second kind S(n, k).
func stirling2(n, k int) float64 {
	if n == k {
		return 1
	}
	if k == 0 || k > n {
		return 0
	}
	return float64(k)*stirling2(n-1, k) + stirling2(n-1, k-1)
}

// GeneralOrderCoefficient returns the direct-part coefficient of
// e1^l e2^(k-l) cos(j lambda2 - (j-k) lambda1 - l varpi1 - (k-l) varpi2)
// at leading order in the eccentricities, with alpha = a1/a2.
func GeneralOrderCoefficient(j, k, l int, alpha float64) (float64, error) {
	if k < 0 || l < 0 || l > k || j < k {
		return 0, fmt.Errorf("%w: j=%d k=%d l=%d", ErrInvalidIndices, j, k, l)
	}
	if !(alpha > 0 && alpha < 1) {
		return 0, fmt.Errorf("%w: alpha=%g", ErrAlphaRange, alpha)
	}

	m := j - k + l
	inner := newcomb(l, 0, 1, -m)
	outer := newcomb(k-l, -1, -1, m)
	op := inner.mul(outer)

	lc := newLaplace(alpha)
	total := 0.0
	for p, c := range op {
		if c == 0 {
			continue
		}
		// D^p = sum_i S(p,i) alpha^i d^i/dalpha^i
		for i := 0; i <= p; i++ {
			s := stirling2(p, i)
			if s == 0 {
				continue
			}
			total += c * s * math.Pow(alpha, float64(i)) * lc.eval(0.5, m, i)
		}
	}
	return total, nil
}

// FGCoeffs returns the rotation coefficients (f, g) of the j:j-k resonance at
// exact commensurability. f weights the inner eccentricity and g the outer.
func FGCoeffs(j, k int) (f, g float64, err error) {
	if k < 1 || j <= k {
		return 0, 0, fmt.Errorf("%w: j=%d k=%d", ErrInvalidIndices, j, k)
	}
	alpha := math.Pow(float64(j-k)/float64(j), 2.0/3.0)
	cf, err := GeneralOrderCoefficient(j, k, k, alpha)
	if err != nil {
		return 0, 0, err
	}
	cg, err := GeneralOrderCoefficient(j, k, 0, alpha)
	if err != nil {
		return 0, 0, err
	}
	return kthRoot(cf, k), kthRoot(cg, k), nil
}

func kthRoot(x float64, k int) float64 {
	return math.Copysign(math.Pow(math.Abs(x), 1/float64(k)), x)
}
