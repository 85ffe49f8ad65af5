package resonance_test

import (
	"context"
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/resodyn/internal/config"
	"github.com/san-kum/resodyn/internal/disturbing"
	"github.com/san-kum/resodyn/internal/hamiltonian"
	"github.com/san-kum/resodyn/internal/metrics"
	"github.com/san-kum/resodyn/internal/nbody"
	"github.com/san-kum/resodyn/internal/resonance"
	runner "github.com/san-kum/resodyn/internal/sim"
	"github.com/san-kum/resodyn/internal/transform"
)

var errNoCoefficient = errors.New("no coefficient")

type failingSupplier struct{}

func (failingSupplier) Coefficient(j, k, l int, alpha float64) (float64, error) {
	return 0, errNoCoefficient
}

func (failingSupplier) FGCoeffs(j, k int) (float64, float64, error) {
	return 0, 0, errNoCoefficient
}

func threePlanets() *nbody.Simulation {
	sim := nbody.New(1)
	sim.Add(nbody.Particle{M: 1})
	orbits := []nbody.Orbit{
		{A: 1, E: 0.02, Pomega: 0.3, L: 0.5},
		{A: math.Pow(1.5, 2.0/3.0), E: 0.03, Pomega: 1.7, L: 2.9},
		{A: math.Pow(2.25, 2.0/3.0), E: 0.01, Pomega: 4.1, L: 5.2},
	}
	for _, o := range orbits {
		Expect(sim.AddOrbit(1e-5, o)).To(Succeed())
	}
	return sim
}

var _ = Describe("Composer", func() {
	var sim *nbody.Simulation

	BeforeEach(func() {
		sim = threePlanets()
	})

	Describe("initialization", func() {
		It("creates two pairs and one Keplerian term per planet", func() {
			c := resonance.New(resonance.Poincare, nil)
			Expect(c.InitializeFromSimulation(sim)).To(Succeed())

			Expect(c.N()).To(Equal(4))
			Expect(c.Model().Pairs()).To(HaveLen(6))
			Expect(c.Model().NumTerms()).To(Equal(3))
			Expect(c.Records()).To(BeEmpty())
			Expect(c.Lambda()).To(HaveLen(3))
			Expect(c.GammaAngle()).To(HaveLen(3))
		})

		It("seeds the Poincaré variant with the Poincaré variables", func() {
			want, err := transform.PoincareVars(sim, false)
			Expect(err).NotTo(HaveOccurred())

			c := resonance.New(resonance.Poincare, nil)
			Expect(c.InitializeFromSimulation(sim)).To(Succeed())
			for i, L := range c.Lambda() {
				Expect(L).To(Equal(want[i].Lambda))
				Expect(c.Gamma()[i]).To(Equal(want[i].Gamma))
			}
		})

		It("maps the combined variant canonically and back", func() {
			want, err := transform.PoincareVars(sim, false)
			Expect(err).NotTo(HaveOccurred())

			c := resonance.New(resonance.CombinedEccentricity, nil)
			Expect(c.InitializeFromSimulation(sim)).To(Succeed())

			got := c.PoincareVars()
			Expect(got).To(HaveLen(len(want)))
			for i := range want {
				Expect(got[i].Lambda).To(BeNumerically("~", want[i].Lambda, 1e-15))
				Expect(got[i].Gamma).To(Equal(want[i].Gamma))
				Expect(got[i].MeanLongitude).To(BeNumerically("~", want[i].MeanLongitude, 1e-12))
				Expect(got[i].GammaAngle).To(BeNumerically("~", want[i].GammaAngle, 1e-12))
			}
		})

		It("reports Poincaré variables from the combined variant", func() {
			want, err := transform.PoincareVars(sim, false)
			Expect(err).NotTo(HaveOccurred())

			c := resonance.New(resonance.CombinedEccentricity, nil)
			Expect(c.InitializeFromSimulation(sim)).To(Succeed())

			Expect(c.Lambda()).To(HaveLen(len(want)))
			for i := range want {
				Expect(c.Lambda()[i]).To(BeNumerically("~", want[i].Lambda, 1e-15))
				Expect(c.Lambda()[i]).To(BeNumerically(">", 0))
				Expect(c.Gamma()[i]).To(Equal(want[i].Gamma))
				Expect(c.LambdaAngle()[i]).To(BeNumerically("~", transform.Mod2Pi(want[i].MeanLongitude), 1e-12))
				Expect(c.GammaAngle()[i]).To(BeNumerically("~", transform.Mod2Pi(want[i].GammaAngle), 1e-12))
			}
			Expect(c.Momenta(0)[0]).To(BeNumerically("<", 0))
		})

		It("applies synodic averaging when asked", func() {
			plain := resonance.New(resonance.Poincare, nil)
			averaged := resonance.New(resonance.Poincare, nil, resonance.WithSynodicAveraging(true))
			Expect(plain.InitializeFromSimulation(sim)).To(Succeed())
			Expect(averaged.InitializeFromSimulation(sim)).To(Succeed())

			Expect(averaged.Lambda()[0]).NotTo(Equal(plain.Lambda()[0]))
			Expect(averaged.Gamma()).To(Equal(plain.Gamma()))
		})

		It("needs a planet", func() {
			star := nbody.New(1)
			star.Add(nbody.Particle{M: 1})
			c := resonance.New(resonance.Poincare, nil)
			Expect(c.InitializeFromSimulation(star)).NotTo(Succeed())
			Expect(c.Model()).To(BeNil())
		})
	})

	Describe("resonance terms", func() {
		var c *resonance.Composer

		BeforeEach(func() {
			c = resonance.New(resonance.Poincare, nil)
			Expect(c.InitializeFromSimulation(sim)).To(Succeed())
		})

		It("requires initialization", func() {
			fresh := resonance.New(resonance.Poincare, nil)
			Expect(fresh.AddSingleResonance(1, 2, 3, 1, 0)).To(MatchError(hamiltonian.ErrNotInitialized))
		})

		It("adds every subterm and records them", func() {
			Expect(c.AddAllResonanceSubterms(1, 2, 3, 1)).To(Succeed())
			Expect(c.Model().NumTerms()).To(Equal(5))
			Expect(c.Records()).To(Equal([]resonance.TermRecord{
				{Inner: 1, Outer: 2, J: 3, K: 1, L: 0},
				{Inner: 1, Outer: 2, J: 3, K: 1, L: 1},
			}))
			_, ok := c.Model().Params().Lookup("C_1_2_3_1_1")
			Expect(ok).To(BeTrue())
		})

		DescribeTable("rejects invalid terms",
			func(in, out, j, k, l int) {
				err := c.AddSingleResonance(in, out, j, k, l)
				Expect(err).To(MatchError(resonance.ErrInvalidResonanceTerm))

				var term *resonance.InvalidTermError
				Expect(errors.As(err, &term)).To(BeTrue())
				Expect(term.In).To(Equal(in))
				Expect(c.Model().NumTerms()).To(Equal(3))
				Expect(c.Records()).To(BeEmpty())
			},
			Entry("non adjacent bodies", 1, 3, 3, 1, 0),
			Entry("reversed bodies", 2, 1, 3, 1, 0),
			Entry("outer index out of range", 3, 4, 3, 1, 0),
			Entry("central body", 0, 1, 3, 1, 0),
			Entry("l above k", 1, 2, 3, 1, 2),
			Entry("negative l", 1, 2, 3, 1, -1),
			Entry("j not above k", 1, 2, 1, 1, 0),
		)

		It("propagates supplier errors without changing the model", func() {
			bad := resonance.New(resonance.Poincare, failingSupplier{})
			Expect(bad.InitializeFromSimulation(sim)).To(Succeed())
			Expect(bad.AddSingleResonance(1, 2, 3, 1, 0)).To(MatchError(errNoCoefficient))
			Expect(bad.Model().NumTerms()).To(Equal(3))
		})

		It("applies configured resonances", func() {
			one := 1
			err := c.Apply([]config.ResonanceConfig{
				{Inner: 1, Outer: 2, J: 3, K: 1},
				{Inner: 2, Outer: 3, J: 3, K: 1, L: &one},
			})
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Records()).To(HaveLen(3))
			Expect(c.Records()[2]).To(Equal(resonance.TermRecord{Inner: 2, Outer: 3, J: 3, K: 1, L: 1}))
		})

		It("integrates the composed Hamiltonian conserving energy", func() {
			Expect(c.AddAllResonanceSubterms(1, 2, 3, 1)).To(Succeed())
			Expect(c.AddAllResonanceSubterms(2, 3, 3, 1)).To(Succeed())

			E0 := c.Model().CurrentEnergy()
			Expect(c.Integrate(10)).To(Succeed())
			Expect(c.Model().Time()).To(BeNumerically("~", 10, 1e-12))

			E1 := c.Model().CurrentEnergy()
			Expect(math.Abs((E1 - E0) / E0)).To(BeNumerically("<", 1e-8))
			for _, angle := range c.LambdaAngle() {
				Expect(angle).To(And(BeNumerically(">=", 0), BeNumerically("<", 2*math.Pi)))
			}
		})
	})

	It("gives the same energy in both variants", func() {
		sup := disturbing.NewCache()
		poincare := resonance.New(resonance.Poincare, sup)
		combined := resonance.New(resonance.CombinedEccentricity, sup)

		for _, c := range []*resonance.Composer{poincare, combined} {
			Expect(c.InitializeFromSimulation(sim)).To(Succeed())
			Expect(c.AddAllResonanceSubterms(1, 2, 3, 1)).To(Succeed())
			Expect(c.AddAllResonanceSubterms(2, 3, 3, 1)).To(Succeed())
		}

		Ep := poincare.Model().CurrentEnergy()
		Ec := combined.Model().CurrentEnergy()
		Expect(Ec).To(BeNumerically("~", Ep, 1e-12*math.Abs(Ep)))
	})

	Describe("FromConfig", func() {
		It("honours the configured synodic averaging", func() {
			cfg := config.GetPreset("3:2")
			cfg.AverageSynodic = true
			system, err := cfg.BuildSimulation()
			Expect(err).NotTo(HaveOccurred())
			want, err := transform.PoincareVars(system, true)
			Expect(err).NotTo(HaveOccurred())
			plain, err := transform.PoincareVars(system, false)
			Expect(err).NotTo(HaveOccurred())

			c, err := resonance.FromConfig(cfg, resonance.Poincare, nil)
			Expect(err).NotTo(HaveOccurred())
			Expect(c.Records()).To(HaveLen(2))
			Expect(c.Lambda()[0]).To(Equal(want[0].Lambda))
			Expect(c.Lambda()[0]).NotTo(Equal(plain[0].Lambda))
		})

		It("rejects an invalid configured resonance", func() {
			cfg := config.GetPreset("2:1")
			cfg.Resonances[0].Outer = 3
			_, err := resonance.FromConfig(cfg, resonance.Poincare, nil)
			Expect(err).To(MatchError(resonance.ErrInvalidResonanceTerm))
		})
	})

	It("samples a configured preset through the runner", func() {
		cfg := config.GetPreset("2:1")
		c, err := resonance.FromConfig(cfg, resonance.CombinedEccentricity, nil)
		Expect(err).NotTo(HaveOccurred())
		Expect(c.Records()).To(HaveLen(2))

		r := runner.New(nil)
		drift := metrics.NewEnergyDrift(c.Model())
		r.AddMetric(drift)
		result, err := r.Run(context.Background(), c.Model(), runner.Grid(5, 6))
		Expect(err).NotTo(HaveOccurred())
		Expect(result.Samples).To(Equal(6))
		Expect(result.EnergyDrift).To(BeNumerically("<", 1e-8))
		Expect(result.Metrics).To(HaveKey(drift.Name()))
	})
})
