// Package nbody holds a planar gravitational N-body state addressed through
// Jacobi orbital elements.
package nbody

import (
	"errors"
	"fmt"
	"math"

	"gonum.org/v1/gonum/spatial/r2"
)

var (
	ErrNoPrimary  = errors.New("nbody: a central body must be added first")
	ErrIndex      = errors.New("nbody: particle index out of range")
	ErrUnbound    = errors.New("nbody: orbit is not bound")
	ErrBadElement = errors.New("nbody: invalid orbital element")
)

type Particle struct {
	M   float64
	Pos r2.Vec
	Vel r2.Vec
}

// Orbit holds planar Keplerian elements: semimajor axis, eccentricity,
// longitude of pericenter and mean longitude.
type Orbit struct {
	A      float64
	E      float64
	Pomega float64
	L      float64
}

// Simulation is an ordered list of particles. Particle 0 is the central body;
// orbits of the others are Jacobi orbits about the barycentre of all interior
// particles.
type Simulation struct {
	G         float64
	particles []Particle
}

func New(G float64) *Simulation {
	return &Simulation{G: G}
}

func (s *Simulation) N() int { return len(s.particles) }

func (s *Simulation) Add(p Particle) {
	s.particles = append(s.particles, p)
}

func (s *Simulation) Particle(i int) (Particle, error) {
	if i < 0 || i >= len(s.particles) {
		return Particle{}, fmt.Errorf("%w: %d", ErrIndex, i)
	}
	return s.particles[i], nil
}

func (s *Simulation) Masses() []float64 {
	m := make([]float64, len(s.particles))
	for i, p := range s.particles {
		m[i] = p.M
	}
	return m
}

// AddOrbit appends a body of mass m on the Jacobi orbit o.
func (s *Simulation) AddOrbit(m float64, o Orbit) error {
	if len(s.particles) == 0 {
		return ErrNoPrimary
	}
	if !(o.A > 0) || !(o.E >= 0 && o.E < 1) || math.IsNaN(o.Pomega) || math.IsNaN(o.L) {
		return fmt.Errorf("%w: %+v", ErrBadElement, o)
	}

	mInt, com, vcom := s.interior(len(s.particles))
	mu := s.G * (mInt + m)
	pos, vel := orbitToCartesian(o, mu)

	s.particles = append(s.particles, Particle{
		M:   m,
		Pos: r2.Add(com, pos),
		Vel: r2.Add(vcom, vel),
	})
	return nil
}

// Orbit returns the Jacobi orbit of particle i (i >= 1).
func (s *Simulation) Orbit(i int) (Orbit, error) {
	if i < 1 || i >= len(s.particles) {
		return Orbit{}, fmt.Errorf("%w: %d", ErrIndex, i)
	}
	mInt, com, vcom := s.interior(i)
	p := s.particles[i]
	return cartesianToOrbit(r2.Sub(p.Pos, com), r2.Sub(p.Vel, vcom), s.G*(mInt+p.M))
}

// interior returns the mass, barycentre and barycentric velocity of the first
// n particles.
func (s *Simulation) interior(n int) (float64, r2.Vec, r2.Vec) {
	var m float64
	var com, vcom r2.Vec
	for _, p := range s.particles[:n] {
		m += p.M
		com = r2.Add(com, r2.Scale(p.M, p.Pos))
		vcom = r2.Add(vcom, r2.Scale(p.M, p.Vel))
	}
	if m == 0 {
		return 0, r2.Vec{}, r2.Vec{}
	}
	return m, r2.Scale(1/m, com), r2.Scale(1/m, vcom)
}

// MoveToCOM shifts every particle into the barycentric frame.
func (s *Simulation) MoveToCOM() {
	_, com, vcom := s.interior(len(s.particles))
	for i := range s.particles {
		s.particles[i].Pos = r2.Sub(s.particles[i].Pos, com)
		s.particles[i].Vel = r2.Sub(s.particles[i].Vel, vcom)
	}
}

// JacobiMasses returns the reduced Jacobi masses m, the effective central
// masses M and mu = G^2 M^2 m^3 for every particle. Index 0 is unused.
func (s *Simulation) JacobiMasses() (mjac, Mjac, mu []float64) {
	n := len(s.particles)
	mjac = make([]float64, n)
	Mjac = make([]float64, n)
	mu = make([]float64, n)
	if n == 0 {
		return
	}
	m0 := s.particles[0].M
	interior := m0
	for i := 1; i < n; i++ {
		mi := s.particles[i].M
		mjac[i] = mi * interior / (mi + interior)
		Mjac[i] = m0 * (mi + interior) / interior
		interior += mi
		mu[i] = s.G * s.G * Mjac[i] * Mjac[i] * mjac[i] * mjac[i] * mjac[i]
	}
	return mjac, Mjac, mu
}

func (s *Simulation) Energy() float64 {
	ke, pe := 0.0, 0.0
	for i, p := range s.particles {
		ke += 0.5 * p.M * r2.Norm2(p.Vel)
		for _, q := range s.particles[i+1:] {
			pe -= s.G * p.M * q.M / r2.Norm(r2.Sub(q.Pos, p.Pos))
		}
	}
	return ke + pe
}

func (s *Simulation) Momentum() r2.Vec {
	var P r2.Vec
	for _, p := range s.particles {
		P = r2.Add(P, r2.Scale(p.M, p.Vel))
	}
	return P
}

func (s *Simulation) AngularMomentum() float64 {
	L := 0.0
	for _, p := range s.particles {
		L += p.M * r2.Cross(p.Pos, p.Vel)
	}
	return L
}

func orbitToCartesian(o Orbit, mu float64) (r2.Vec, r2.Vec) {
	E := solveKepler(wrap(o.L-o.Pomega), o.E)
	cosE, sinE := math.Cos(E), math.Sin(E)
	b := math.Sqrt(1 - o.E*o.E)
	n := math.Sqrt(mu / (o.A * o.A * o.A))
	denom := 1 - o.E*cosE

	pos := r2.Vec{X: o.A * (cosE - o.E), Y: o.A * b * sinE}
	vel := r2.Vec{X: -o.A * n * sinE / denom, Y: o.A * n * b * cosE / denom}

	return rotate(pos, o.Pomega), rotate(vel, o.Pomega)
}

func rotate(v r2.Vec, angle float64) r2.Vec {
	c, s := math.Cos(angle), math.Sin(angle)
	return r2.Vec{X: c*v.X - s*v.Y, Y: s*v.X + c*v.Y}
}

func cartesianToOrbit(pos, vel r2.Vec, mu float64) (Orbit, error) {
	r := r2.Norm(pos)
	v2 := r2.Norm2(vel)
	energy := v2/2 - mu/r
	if energy >= 0 {
		return Orbit{}, fmt.Errorf("%w: specific energy %g", ErrUnbound, energy)
	}
	a := -mu / (2 * energy)

	rv := r2.Dot(pos, vel)
	evec := r2.Scale(1/mu, r2.Sub(r2.Scale(v2-mu/r, pos), r2.Scale(rv, vel)))
	e := r2.Norm(evec)

	pomega := 0.0
	if e > 1e-14 {
		pomega = math.Atan2(evec.Y, evec.X)
	}
	f := math.Atan2(pos.Y, pos.X) - pomega
	E := 2 * math.Atan2(math.Sqrt(1-e)*math.Sin(f/2), math.Sqrt(1+e)*math.Cos(f/2))
	M := E - e*math.Sin(E)

	return Orbit{A: a, E: e, Pomega: wrap(pomega), L: wrap(pomega + M)}, nil
}

// solveKepler solves M = E - e sin E by Newton iteration.
func solveKepler(M, e float64) float64 {
	E := M
	if e > 0.8 {
		E = math.Pi
	}
	for i := 0; i < 50; i++ {
		dE := (E - e*math.Sin(E) - M) / (1 - e*math.Cos(E))
		E -= dE
		if math.Abs(dE) < 1e-15 {
			break
		}
	}
	return E
}

func wrap(x float64) float64 {
	x = math.Mod(x, 2*math.Pi)
	if x < 0 {
		x += 2 * math.Pi
	}
	return x
}
