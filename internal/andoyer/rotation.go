package andoyer

import (
	"math"

	"gonum.org/v1/gonum/mat"

	"github.com/san-kum/resodyn/internal/transform"
)

// RotateGammasToZW mixes the eccentricity pairs of two bodies into the
// resonant (Z, z) and non-resonant (W, w) modes with the orthonormal matrix
// [[f, g], [-g, f]] / sqrt(f^2+g^2). With inverse set it undoes the rotation.
func RotateGammasToZW(G1, g1, G2, g2, f, g float64, inverse bool) (Z, z, W, w float64) {
	if inverse {
		g = -g
	}
	norm := math.Hypot(f, g)
	rot := mat.NewDense(2, 2, []float64{f / norm, g / norm, -g / norm, f / norm})

	x1, y1 := transform.ActionAngleToXY(G1, g1)
	x2, y2 := transform.ActionAngleToXY(G2, g2)

	var xs, ys mat.VecDense
	xs.MulVec(rot, mat.NewVecDense(2, []float64{x1, x2}))
	ys.MulVec(rot, mat.NewVecDense(2, []float64{y1, y2}))

	Z, z = transform.XYToActionAngle(xs.AtVec(0), ys.AtVec(0))
	W, w = transform.XYToActionAngle(xs.AtVec(1), ys.AtVec(1))
	return Z, z, W, w
}
