package andoyer_test

import (
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/resodyn/internal/andoyer"
	"github.com/san-kum/resodyn/internal/disturbing"
	"github.com/san-kum/resodyn/internal/nbody"
	"github.com/san-kum/resodyn/internal/transform"
)

var masses = [3]float64{1, 1e-5, 1e-5}

func angleDiff(a, b float64) float64 {
	d := math.Mod(a-b, 2*math.Pi)
	if d > math.Pi {
		d -= 2 * math.Pi
	}
	if d < -math.Pi {
		d += 2 * math.Pi
	}
	return math.Abs(d)
}

var _ = Describe("CalcExpansionParams", func() {
	It("places the outer body at exact resonance", func() {
		p, err := andoyer.CalcExpansionParams(nil, 1, masses, 3, 1, 1)
		Expect(err).NotTo(HaveOccurred())
		Expect(p.A20).To(BeNumerically("~", 1.3103706971044482, 1e-12))
		Expect(p.Lambda10).To(BeNumerically("~", 1e-5, 1e-18))
		Expect(p.N10).To(BeNumerically("~", 1, 1e-12))
		Expect(p.Acoeff).To(BeNumerically("<", 0))
		Expect(p.Ccoeff).To(BeNumerically("<", 0))
		Expect(p.Phiscale).To(BeNumerically(">", 0))
		Expect(p.Timescale).To(BeNumerically("~", 8/(p.Phiscale*p.Acoeff), 1e-12*math.Abs(p.Timescale)))
	})

	It("is deterministic", func() {
		sup := disturbing.NewCache()
		a, err := andoyer.CalcExpansionParams(sup, 1, masses, 5, 2, 1.3)
		Expect(err).NotTo(HaveOccurred())
		b, err := andoyer.CalcExpansionParams(disturbing.NewCache(), 1, masses, 5, 2, 1.3)
		Expect(err).NotTo(HaveOccurred())
		Expect(a).To(Equal(b))
	})

	DescribeTable("rejects invalid resonances",
		func(j, k int) {
			_, err := andoyer.CalcExpansionParams(nil, 1, masses, j, k, 1)
			Expect(err).To(MatchError(andoyer.ErrInvalidResonance))
		},
		Entry("j equal to k", 2, 2),
		Entry("zeroth order", 3, 0),
		Entry("fourth order", 5, 4),
	)
})

var _ = Describe("RotateGammasToZW", func() {
	It("is orthonormal and inverted by the inverse flag", func() {
		f, g := -1.19, 0.43
		Z, z, W, w := andoyer.RotateGammasToZW(2e-3, 0.7, 1e-3, 4.0, f, g, false)
		Expect(Z + W).To(BeNumerically("~", 3e-3, 1e-15))

		G1, g1, G2, g2 := andoyer.RotateGammasToZW(Z, z, W, w, f, g, true)
		Expect(G1).To(BeNumerically("~", 2e-3, 1e-15))
		Expect(G2).To(BeNumerically("~", 1e-3, 1e-15))
		Expect(angleDiff(g1, 0.7)).To(BeNumerically("<", 1e-12))
		Expect(angleDiff(g2, 4.0)).To(BeNumerically("<", 1e-12))
	})
})

var _ = Describe("State", func() {
	It("stores the regular variables of Phi and phi", func() {
		s, err := andoyer.New(2, 1, 0.8, 0.3, andoyer.WithW(0.1, 0.2), andoyer.WithK(0.05))
		Expect(err).NotTo(HaveOccurred())
		Expect(s.Phi()).To(BeNumerically("~", 0.8, 1e-15))
		Expect(s.PhiAngle()).To(BeNumerically("~", 0.3, 1e-15))
		Expect(s.Brouwer).To(Equal(-1e-4))
		Expect(s.DeltaLambda).To(Equal(math.Pi))

		names := make([]string, 0, 8)
		for _, f := range s.Fields() {
			names = append(names, f.Name)
		}
		Expect(names).To(Equal([]string{"X", "Y", "W", "w", "Brouwer", "K", "DeltaLambda", "lambda1"}))
		Expect(s.Fields()[2].Value).To(Equal(0.1))
	})

	It("rejects a negative action", func() {
		_, err := andoyer.New(2, 1, -0.1, 0)
		Expect(err).To(HaveOccurred())
	})

	It("undoes ScaleActions with the reciprocal scale", func() {
		s, err := andoyer.New(3, 1, 0.4, 2.2, andoyer.WithW(0.3, 1.0), andoyer.WithK(0.02))
		Expect(err).NotTo(HaveOccurred())
		before := s.Fields()

		s.ScaleActions(3.7)
		Expect(s.Phi()).To(BeNumerically("~", 0.4*3.7, 1e-14))
		s.ScaleActions(1 / 3.7)

		for i, f := range s.Fields() {
			Expect(f.Value).To(BeNumerically("~", before[i].Value, 1e-14), f.Name)
		}
	})

	It("derives Phiprime from the Brouwer momentum", func() {
		s, err := andoyer.New(2, 1, 0.5, 0, andoyer.WithBrouwer(-2e-4))
		Expect(err).NotTo(HaveOccurred())
		p := s.Params()
		Expect(p.Bcoeff).To(BeNumerically("~", -2e-4*p.Acoeff, 1e-15*math.Abs(p.Bcoeff)))
		Expect(p.Phiprime).To(BeNumerically("~", -p.Bcoeff*p.Timescale/3, 1e-12*math.Abs(p.Phiprime)))
		Expect(s.Phiprime()).To(Equal(p.Phiprime))
	})

	Describe("Poincaré round trip", func() {
		var (
			params andoyer.ExpansionParams
			vars   [2]transform.Poincare
		)

		BeforeEach(func() {
			var err error
			params, err = andoyer.CalcExpansionParams(nil, 1, masses, 2, 1, 1)
			Expect(err).NotTo(HaveOccurred())
			vars = [2]transform.Poincare{
				{Lambda: params.Lambda10 * (1 + 2e-4), MeanLongitude: 0.4, Gamma: 3e-9, GammaAngle: 2.0},
				{Lambda: params.Lambda20 * (1 - 1e-4), MeanLongitude: 1.3, Gamma: 1e-9, GammaAngle: 5.5},
			}
		})

		It("reproduces the Poincaré variables", func() {
			s, err := andoyer.FromPoincare(vars, 1, masses, 2, 1, 1)
			Expect(err).NotTo(HaveOccurred())

			got := s.ToPoincare()
			for i := range vars {
				Expect(got[i].Lambda).To(BeNumerically("~", vars[i].Lambda, 1e-12*vars[i].Lambda))
				Expect(got[i].Gamma).To(BeNumerically("~", vars[i].Gamma, 1e-9*vars[i].Gamma))
				Expect(angleDiff(got[i].MeanLongitude, vars[i].MeanLongitude)).To(BeNumerically("<", 1e-12))
				Expect(angleDiff(got[i].GammaAngle, vars[i].GammaAngle)).To(BeNumerically("<", 1e-9))
			}
		})

		It("leaves the state in normalized units", func() {
			s, err := andoyer.FromPoincare(vars, 1, masses, 2, 1, 1)
			Expect(err).NotTo(HaveOccurred())
			before := s.Fields()
			s.ToPoincare()
			for i, f := range s.Fields() {
				Expect(f.Value).To(BeNumerically("~", before[i].Value, 1e-12*(1+math.Abs(before[i].Value))), f.Name)
			}
		})
	})

	Describe("second order round trip", func() {
		var params andoyer.ExpansionParams

		BeforeEach(func() {
			var err error
			params, err = andoyer.CalcExpansionParams(nil, 1, masses, 3, 2, 1)
			Expect(err).NotTo(HaveOccurred())
		})

		// varsWithZ builds Poincaré variables whose resonant mode has angle z.
		varsWithZ := func(z float64) [2]transform.Poincare {
			G1, g1, G2, g2 := andoyer.RotateGammasToZW(2e-9, z, 1e-9, 0.7, params.FF, params.GG, true)
			return [2]transform.Poincare{
				{Lambda: params.Lambda10 * (1 + 1e-4), MeanLongitude: 0.9, Gamma: G1, GammaAngle: g1},
				{Lambda: params.Lambda20 * (1 - 2e-4), MeanLongitude: 2.2, Gamma: G2, GammaAngle: g2},
			}
		}

		resonantAngle := func(vars [2]transform.Poincare) float64 {
			_, z, _, _ := andoyer.RotateGammasToZW(vars[0].Gamma, vars[0].GammaAngle,
				vars[1].Gamma, vars[1].GammaAngle, params.FF, params.GG, false)
			return z
		}

		It("reproduces the Poincaré variables for z in [0, pi)", func() {
			vars := varsWithZ(1.0)
			s, err := andoyer.FromPoincare(vars, 1, masses, 3, 2, 1)
			Expect(err).NotTo(HaveOccurred())

			got := s.ToPoincare()
			for i := range vars {
				Expect(got[i].Lambda).To(BeNumerically("~", vars[i].Lambda, 1e-12*vars[i].Lambda))
				Expect(got[i].Gamma).To(BeNumerically("~", vars[i].Gamma, 1e-8*vars[i].Gamma))
				Expect(angleDiff(got[i].MeanLongitude, vars[i].MeanLongitude)).To(BeNumerically("<", 1e-12))
				Expect(angleDiff(got[i].GammaAngle, vars[i].GammaAngle)).To(BeNumerically("<", 1e-8))
			}
		})

		It("recovers z modulo pi otherwise", func() {
			vars := varsWithZ(4.0)
			s, err := andoyer.FromPoincare(vars, 1, masses, 3, 2, 1)
			Expect(err).NotTo(HaveOccurred())

			got := s.ToPoincare()
			Expect(angleDiff(resonantAngle(got), 4.0-math.Pi)).To(BeNumerically("<", 1e-8))
			Expect(math.Abs(got[0].Gamma-vars[0].Gamma)).To(BeNumerically(">", 1e-3*vars[0].Gamma))
			for i := range vars {
				Expect(got[i].Lambda).To(BeNumerically("~", vars[i].Lambda, 1e-12*vars[i].Lambda))
			}
		})
	})

	Describe("simulations", func() {
		var sim *nbody.Simulation

		BeforeEach(func() {
			sim = nbody.New(1)
			sim.Add(nbody.Particle{M: 1})
			Expect(sim.AddOrbit(1e-5, nbody.Orbit{A: 1, E: 0.01, Pomega: 0.5, L: 0.2})).To(Succeed())
			Expect(sim.AddOrbit(1e-5, nbody.Orbit{A: math.Pow(2, 2.0/3.0) * 1.001, E: 0.02, Pomega: 2.5, L: 3.0})).To(Succeed())
		})

		It("uses the inner semimajor axis as a10", func() {
			s, err := andoyer.FromSimulation(sim, 2, 1)
			Expect(err).NotTo(HaveOccurred())
			p := s.Params()
			Expect(p.A10).To(BeNumerically("~", 1, 1e-12))
			Expect(p.Masses).To(Equal(masses))
		})

		It("rejects missing bodies", func() {
			_, err := andoyer.FromSimulation(sim, 2, 1, andoyer.WithBodies(1, 3))
			Expect(err).To(MatchError(nbody.ErrIndex))
		})

		It("rebuilds a simulation with the same orbits", func() {
			s, err := andoyer.FromSimulation(sim, 2, 1)
			Expect(err).NotTo(HaveOccurred())

			out, err := s.ToSimulation()
			Expect(err).NotTo(HaveOccurred())
			Expect(out.N()).To(Equal(3))

			for i, want := range []nbody.Orbit{
				{A: 1, E: 0.01, Pomega: 0.5, L: 0.2},
				{A: math.Pow(2, 2.0/3.0) * 1.001, E: 0.02, Pomega: 2.5, L: 3.0},
			} {
				got, err := out.Orbit(i + 1)
				Expect(err).NotTo(HaveOccurred())
				Expect(got.A).To(BeNumerically("~", want.A, 1e-4*want.A))
				Expect(got.E).To(BeNumerically("~", want.E, 1e-8))
				Expect(angleDiff(got.Pomega, want.Pomega)).To(BeNumerically("<", 1e-6))
				Expect(angleDiff(got.L, want.L)).To(BeNumerically("<", 1e-9))
			}
		})
	})

	Describe("reduced Hamiltonian", func() {
		It("starts at rest on the equilibrium", func() {
			s, err := andoyer.FromEquilibrium(3, 2, 0.5)
			Expect(err).NotTo(HaveOccurred())
			Expect(s.X).To(BeNumerically("~", -1, 1e-15))
			Expect(s.Y).To(BeNumerically("~", 0, 1e-15))
			Expect(s.Phiprime()).To(BeNumerically("~", 2.0/3.0, 1e-12))

			E, err := s.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(E).To(BeNumerically("~", -1, 1e-12))

			Expect(s.Integrate(5)).To(Succeed())
			Expect(s.Time()).To(BeNumerically("~", 5, 1e-12))
			Expect(s.X).To(BeNumerically("~", -1, 1e-6))
			Expect(s.Y).To(BeNumerically("~", 0, 1e-6))
		})

		It("librates around the equilibrium when displaced", func() {
			s, err := andoyer.FromEquilibrium(3, 2, 0.5)
			Expect(err).NotTo(HaveOccurred())
			s.X *= 1.05

			E0, err := s.Energy()
			Expect(err).NotTo(HaveOccurred())
			for t := 0.5; t <= 5; t += 0.5 {
				Expect(s.Integrate(t)).To(Succeed())
				Expect(s.Phi()).To(And(BeNumerically(">", 0.3), BeNumerically("<", 0.8)))
			}
			E1, err := s.Energy()
			Expect(err).NotTo(HaveOccurred())
			Expect(E1).To(BeNumerically("~", E0, 1e-6))
		})
	})
})
