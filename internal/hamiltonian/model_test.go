package hamiltonian_test

import (
	"errors"
	"math"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"

	"github.com/san-kum/resodyn/internal/dynamo"
	"github.com/san-kum/resodyn/internal/hamiltonian"
	"github.com/san-kum/resodyn/internal/integrators"
	"github.com/san-kum/resodyn/internal/symbolic"
)

type recorder struct {
	calls int
	lastT float64
	lastX dynamo.State
}

func (r *recorder) OnStep(x dynamo.State, t float64) {
	r.calls++
	r.lastT = t
	r.lastX = x.Clone()
}

// H = p^2/2 + w^2 q^2/2
func oscillator() symbolic.Expr {
	p, q, w := symbolic.Symbol("p"), symbolic.Symbol("q"), symbolic.Symbol("w")
	return symbolic.Sum(
		symbolic.Product(symbolic.Rat(1, 2), symbolic.Power(p, symbolic.Int(2))),
		symbolic.Product(symbolic.Rat(1, 2), symbolic.Power(w, symbolic.Int(2)), symbolic.Power(q, symbolic.Int(2))),
	)
}

var _ = Describe("Model", func() {
	pairs := []hamiltonian.Pair{{P: "p", Q: "q"}}

	Describe("construction", func() {
		It("integrates a harmonic oscillator over one period", func() {
			m, err := hamiltonian.New(pairs, oscillator(), hamiltonian.Schema{"w"},
				hamiltonian.Params{{Name: "w", Value: 2}}, []float64{0, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Initialized()).To(BeTrue())

			E0 := m.CurrentEnergy()
			Expect(E0).To(BeNumerically("~", 2, 1e-15))

			Expect(m.Integrate(math.Pi / 4)).To(Succeed())
			p, _ := m.Value("p")
			q, _ := m.Value("q")
			Expect(p).To(BeNumerically("~", -2, 1e-8))
			Expect(q).To(BeNumerically("~", 0, 1e-8))

			Expect(m.Integrate(math.Pi)).To(Succeed())
			Expect(m.Time()).To(Equal(math.Pi))
			x := m.State()
			Expect(x[0]).To(BeNumerically("~", 0, 1e-8))
			Expect(x[1]).To(BeNumerically("~", 1, 1e-8))
			Expect(m.CurrentEnergy()).To(BeNumerically("~", E0, 1e-8))
		})

		It("reports a missing parameter by name", func() {
			_, err := hamiltonian.New(pairs, oscillator(), nil, nil, []float64{0, 1})
			Expect(err).To(MatchError(hamiltonian.ErrMissingParameter))

			var mpe *hamiltonian.MissingParameterError
			Expect(errors.As(err, &mpe)).To(BeTrue())
			Expect(mpe.Symbol).To(Equal("w"))
		})

		It("validates parameters against the schema", func() {
			_, err := hamiltonian.New(pairs, oscillator(), hamiltonian.Schema{"w", "v"},
				hamiltonian.Params{{Name: "w", Value: 1}}, []float64{0, 1})
			Expect(err).To(MatchError(hamiltonian.ErrParameterCount))

			_, err = hamiltonian.New(pairs, oscillator(), hamiltonian.Schema{"v"},
				hamiltonian.Params{{Name: "w", Value: 1}}, []float64{0, 1})
			Expect(err).To(MatchError(hamiltonian.ErrMissingParameter))

			_, err = hamiltonian.NewParams([]string{"a", "b"}, []float64{1})
			Expect(err).To(MatchError(hamiltonian.ErrParameterCount))
		})

		It("rejects repeated canonical variables", func() {
			dup := []hamiltonian.Pair{{P: "p", Q: "q"}, {P: "q", Q: "r"}}
			_, err := hamiltonian.New(dup, oscillator(), nil,
				hamiltonian.Params{{Name: "w", Value: 1}}, []float64{0, 1, 0, 0})
			Expect(err).To(MatchError(hamiltonian.ErrDuplicateVariable))
		})

		It("rejects a state of the wrong length", func() {
			_, err := hamiltonian.New(pairs, oscillator(), nil,
				hamiltonian.Params{{Name: "w", Value: 1}}, []float64{0})
			Expect(err).To(MatchError(hamiltonian.ErrStateLength))
		})
	})

	Describe("integration", func() {
		It("requires a build", func() {
			m := hamiltonian.NewEmpty()
			err := m.Integrate(1)
			Expect(err).To(MatchError(hamiltonian.ErrNotInitialized))
			Expect(errors.Is(err, hamiltonian.ErrInitializationRequired)).To(BeTrue())
			Expect(m.Initialized()).To(BeFalse())
		})

		It("ignores requests that are not ahead of the current time", func() {
			m, err := hamiltonian.New(pairs, oscillator(), nil,
				hamiltonian.Params{{Name: "w", Value: 1}}, []float64{0, 1})
			Expect(err).NotTo(HaveOccurred())
			Expect(m.Integrate(1)).To(Succeed())
			before := m.State()

			Expect(m.Integrate(0.5)).To(Succeed())
			Expect(m.Integrate(1)).To(Succeed())
			Expect(m.Time()).To(Equal(1.0))
			Expect(m.State()).To(Equal(before))
		})

		It("splits solver failures from missing builds", func() {
			// q' = q^2 diverges at t = 1 from q = 1.
			H := symbolic.Product(symbolic.Symbol("p"), symbolic.Power(symbolic.Symbol("q"), symbolic.Int(2)))
			s := integrators.DefaultSettings()
			s.MaxSteps = 500
			m, err := hamiltonian.New(pairs, H, nil, nil, []float64{1, 1}, hamiltonian.WithIntegrator(s))
			Expect(err).NotTo(HaveOccurred())

			err = m.Integrate(2)
			Expect(err).To(HaveOccurred())
			Expect(errors.Is(err, hamiltonian.ErrIntegrationFailed)).To(BeTrue())
			Expect(errors.Is(err, hamiltonian.ErrInitializationRequired)).To(BeTrue())
			Expect(errors.Is(err, hamiltonian.ErrNotInitialized)).To(BeFalse())

			var ie *hamiltonian.IntegrationError
			Expect(errors.As(err, &ie)).To(BeTrue())
			Expect(ie.Time).To(Equal(2.0))
		})

		It("notifies observers after each call", func() {
			m, err := hamiltonian.New(pairs, oscillator(), nil,
				hamiltonian.Params{{Name: "w", Value: 1}}, []float64{0, 1})
			Expect(err).NotTo(HaveOccurred())
			rec := &recorder{}
			m.AddObserver(rec)

			Expect(m.Integrate(0.5)).To(Succeed())
			Expect(m.Integrate(1)).To(Succeed())
			Expect(m.Integrate(1)).To(Succeed())
			Expect(rec.calls).To(Equal(2))
			Expect(rec.lastT).To(Equal(1.0))
			Expect(rec.lastX[1]).To(BeNumerically("~", math.Cos(1), 1e-8))
		})
	})

	Describe("incremental terms", func() {
		var m *hamiltonian.Model

		BeforeEach(func() {
			m = hamiltonian.NewEmpty()
			Expect(m.AddPair(hamiltonian.Pair{P: "p", Q: "q"}, 0.3, 0.8)).To(Succeed())
			Expect(m.AddTerm(symbolic.Product(symbolic.Rat(1, 2), symbolic.Power(symbolic.Symbol("p"), symbolic.Int(2))))).To(Succeed())
		})

		It("matches a model built in one piece", func() {
			Expect(m.AddTerm(symbolic.Product(symbolic.Rat(1, 2), symbolic.Power(symbolic.Symbol("w"), symbolic.Int(2)), symbolic.Power(symbolic.Symbol("q"), symbolic.Int(2))),
				hamiltonian.Param{Name: "w", Value: 1.5})).To(Succeed())

			whole, err := hamiltonian.New(pairs, oscillator(), nil,
				hamiltonian.Params{{Name: "w", Value: 1.5}}, []float64{0.3, 0.8})
			Expect(err).NotTo(HaveOccurred())

			x := dynamo.State{0.7, -0.2}
			Expect(m.Energy(x)).To(BeNumerically("~", whole.Energy(x), 1e-15))
			d1, d2 := m.Derive(x, 0), whole.Derive(x, 0)
			Expect(d1[0]).To(BeNumerically("~", d2[0], 1e-15))
			Expect(d1[1]).To(BeNumerically("~", d2[1], 1e-15))
			Expect(m.NumTerms()).To(Equal(2))
		})

		It("rolls back a term with an unbound symbol", func() {
			E := m.CurrentEnergy()
			err := m.AddTerm(symbolic.Product(symbolic.Symbol("mu"), symbolic.Symbol("q")))
			Expect(err).To(MatchError(hamiltonian.ErrMissingParameter))

			Expect(m.NumTerms()).To(Equal(1))
			Expect(m.Params()).To(BeEmpty())
			Expect(m.CurrentEnergy()).To(Equal(E))
			Expect(m.Integrate(1)).To(Succeed())
			q, _ := m.Value("q")
			Expect(q).To(BeNumerically("~", 0.8+0.3, 1e-9))
		})

		It("rejects rebinding a parameter to a different value", func() {
			term := symbolic.Product(symbolic.Symbol("a"), symbolic.Symbol("q"))
			Expect(m.AddTerm(term, hamiltonian.Param{Name: "a", Value: 1})).To(Succeed())
			Expect(m.AddTerm(term, hamiltonian.Param{Name: "a", Value: 1})).To(Succeed())
			err := m.AddTerm(term, hamiltonian.Param{Name: "a", Value: 2})
			Expect(err).To(MatchError(hamiltonian.ErrDuplicateParameter))
			Expect(m.NumTerms()).To(Equal(3))
		})

		It("restarts from the initial state when a parameter changes", func() {
			Expect(m.AddTerm(symbolic.Product(symbolic.Symbol("a"), symbolic.Symbol("q")), hamiltonian.Param{Name: "a", Value: 1})).To(Succeed())
			Expect(m.Integrate(0.5)).To(Succeed())
			Expect(m.SetParam("a", 2)).To(Succeed())
			Expect(m.Time()).To(Equal(0.0))
			Expect(m.CurrentEnergy()).To(BeNumerically("~", 0.045+1.6, 1e-15))

			Expect(m.SetParam("b", 1)).To(MatchError(hamiltonian.ErrUnknownParameter))
		})

		It("slices the state by stride", func() {
			Expect(m.AddPair(hamiltonian.Pair{P: "P2", Q: "Q2"}, 5, 6)).To(Succeed())
			Expect(m.Rebuild()).To(Succeed())
			Expect(m.Slice(0, 2)).To(Equal([]float64{0.3, 5}))
			Expect(m.Slice(1, 2)).To(Equal([]float64{0.8, 6}))
		})
	})

	Describe("reduced Andoyer variants", func() {
		It("agree between polar and Cartesian forms", func() {
			for _, k := range []int{1, 2, 3} {
				polar, err := hamiltonian.NewAndoyerPendulum(k, 0.4, 0.7, 2.2)
				Expect(err).NotTo(HaveOccurred())
				cart, err := hamiltonian.NewCartesianAndoyer(k, 0.4, 0.7, 2.2)
				Expect(err).NotTo(HaveOccurred())
				Expect(cart.CurrentEnergy()).To(BeNumerically("~", polar.CurrentEnergy(), 1e-12))
			}
		})

		It("reduces the polynomial form to the pendulum", func() {
			pend, err := hamiltonian.NewAndoyerPendulum(2, 0.4, 0.7, 2.2)
			Expect(err).NotTo(HaveOccurred())
			poly, err := hamiltonian.NewAndoyerPolynomial(2, 1, -0.4, 1, 0.7, 2.2)
			Expect(err).NotTo(HaveOccurred())
			Expect(poly.CurrentEnergy() + 0.08).To(BeNumerically("~", pend.CurrentEnergy(), 1e-14))
		})

		It("conserves energy while librating", func() {
			m, err := hamiltonian.NewAndoyerPendulum(2, 2, 1.2, math.Pi)
			Expect(err).NotTo(HaveOccurred())
			E0 := m.CurrentEnergy()
			Expect(m.Integrate(20)).To(Succeed())
			Expect(math.Abs((m.CurrentEnergy() - E0) / E0)).To(BeNumerically("<", 1e-7))
		})
	})
})
