// Package resonance composes an N-planet Hamiltonian incrementally: Keplerian
// terms first, then individual mean-motion resonance cosine terms.
package resonance

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/resodyn/internal/config"
	"github.com/san-kum/resodyn/internal/disturbing"
	"github.com/san-kum/resodyn/internal/hamiltonian"
	"github.com/san-kum/resodyn/internal/integrators"
	"github.com/san-kum/resodyn/internal/nbody"
	"github.com/san-kum/resodyn/internal/symbolic"
	"github.com/san-kum/resodyn/internal/transform"
)

// TermRecord identifies one resonance cosine term added to a Composer.
type TermRecord struct {
	Inner, Outer int
	J, K, L      int
}

type Composer struct {
	variant        Variant
	sup            disturbing.Supplier
	logger         *zap.Logger
	settings       integrators.Settings
	averageSynodic bool

	model   *hamiltonian.Model
	n       int
	a       []float64
	records []TermRecord
}

type Option func(*Composer)

func WithLogger(l *zap.Logger) Option {
	return func(c *Composer) {
		if l != nil {
			c.logger = l
		}
	}
}

func WithIntegrator(s integrators.Settings) Option {
	return func(c *Composer) { c.settings = s }
}

// WithSynodicAveraging removes the first order synodic oscillation from the
// initial Lambdas.
func WithSynodicAveraging(on bool) Option {
	return func(c *Composer) { c.averageSynodic = on }
}

// New returns an uninitialized composer. A nil supplier uses disturbing.Default.
// Synodic averaging of the initial Lambdas is off unless WithSynodicAveraging
// turns it on.
func New(variant Variant, sup disturbing.Supplier, opts ...Option) *Composer {
	if sup == nil {
		sup = disturbing.Default
	}
	c := &Composer{
		variant:  variant,
		sup:      sup,
		logger:   zap.NewNop(),
		settings: integrators.DefaultSettings(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FromConfig builds the system described by cfg, initializes a composer on
// it with the configured integrator and synodic averaging, and adds the
// configured resonances. opts are applied after the configured ones.
func FromConfig(cfg *config.Config, variant Variant, sup disturbing.Supplier, opts ...Option) (*Composer, error) {
	sim, err := cfg.BuildSimulation()
	if err != nil {
		return nil, err
	}
	base := []Option{
		WithIntegrator(cfg.Integrator.Settings()),
		WithSynodicAveraging(cfg.AverageSynodic),
	}
	c := New(variant, sup, append(base, opts...)...)
	if err := c.InitializeFromSimulation(sim); err != nil {
		return nil, err
	}
	if err := c.Apply(cfg.Resonances); err != nil {
		return nil, err
	}
	return c, nil
}

// InitializeFromSimulation replaces any previous model with the Keplerian
// Hamiltonian of sim's planets, seeded with their current canonical state.
func (c *Composer) InitializeFromSimulation(sim *nbody.Simulation) error {
	vars, err := transform.PoincareVars(sim, c.averageSynodic)
	if err != nil {
		return err
	}
	n := sim.N()
	mjac, Mjac, mu := sim.JacobiMasses()

	a := make([]float64, n)
	for i := 1; i < n; i++ {
		o, err := sim.Orbit(i)
		if err != nil {
			return err
		}
		a[i] = o.A
	}

	y0 := c.variant.toState(vars)
	model := hamiltonian.NewEmpty(
		hamiltonian.WithLogger(c.logger),
		hamiltonian.WithIntegrator(c.settings),
	)
	for i := 1; i < n; i++ {
		mom, ang, ecc, eccAng := c.variant.pairs(i)
		off := 4 * (i - 1)
		if err := model.AddPair(hamiltonian.Pair{P: mom, Q: ang}, y0[off], y0[off+1]); err != nil {
			return err
		}
		if err := model.AddPair(hamiltonian.Pair{P: ecc, Q: eccAng}, y0[off+2], y0[off+3]); err != nil {
			return err
		}
	}

	for i := 1; i < n; i++ {
		muName, mName, MName := paramNames(i)
		L := c.variant.lambda(c.variant, i)
		kepler := symbolic.Product(
			symbolic.Rat(-1, 2),
			symbolic.Symbol(muName),
			symbolic.Power(L, symbolic.Int(-2)),
		)
		err := model.AddTerm(kepler,
			hamiltonian.Param{Name: muName, Value: mu[i]},
			hamiltonian.Param{Name: mName, Value: mjac[i]},
			hamiltonian.Param{Name: MName, Value: Mjac[i]},
		)
		if err != nil {
			return fmt.Errorf("resonance: keplerian term for body %d: %w", i, err)
		}
	}

	c.model = model
	c.n = n
	c.a = a
	c.records = nil
	c.logger.Info("initialized resonance model",
		zap.String("variant", c.variant.Name),
		zap.Int("bodies", n),
		zap.Bool("synodic_averaging", c.averageSynodic),
	)
	return nil
}

func paramNames(i int) (mu, m, M string) {
	return fmt.Sprintf("mu%d", i), fmt.Sprintf("m%d", i), fmt.Sprintf("M%d", i)
}

// AddSingleResonance adds the cosine term of the j:j-k resonance between
// adjacent bodies in and out with inner eccentricity power l.
func (c *Composer) AddSingleResonance(in, out, j, k, l int) error {
	if c.model == nil {
		return hamiltonian.ErrNotInitialized
	}
	invalid := func(reason string) error {
		return &InvalidTermError{In: in, Out: out, J: j, K: k, L: l, Reason: reason}
	}
	switch {
	case in < 1 || out > c.n-1:
		return invalid(fmt.Sprintf("bodies must lie in [1, %d]", c.n-1))
	case out != in+1:
		return invalid("bodies must be adjacent")
	case k < 1 || j <= k:
		return invalid("need j > k >= 1")
	case l < 0 || l > k:
		return invalid("need 0 <= l <= k")
	}

	alpha := c.a[in] / c.a[out]
	C, err := c.sup.Coefficient(j, k, l, alpha)
	if err != nil {
		return fmt.Errorf("resonance: coefficient C(%d,%d,%d): %w", j, k, l, err)
	}

	v := c.variant
	muOut, _, _ := paramNames(out)
	_, mIn, MIn := paramNames(in)
	cName := fmt.Sprintf("C_%d_%d_%d_%d_%d", in, out, j, k, l)

	lambdaIn := v.lambda(v, in)
	lambdaOut := v.lambda(v, out)
	eccIn := symbolic.Sqrt(symbolic.Quo(symbolic.Product(symbolic.Int(2), v.sym(v.EccMomentum, in)), lambdaIn))
	eccOut := symbolic.Sqrt(symbolic.Quo(symbolic.Product(symbolic.Int(2), v.sym(v.EccMomentum, out)), lambdaOut))

	term := symbolic.Product(
		symbolic.Int(-1),
		symbolic.Symbol(muOut),
		symbolic.Symbol(mIn),
		symbolic.Power(symbolic.Symbol(MIn), symbolic.Int(-1)),
		symbolic.Power(lambdaOut, symbolic.Int(-2)),
		symbolic.Symbol(cName),
		symbolic.Power(eccIn, symbolic.Int(int64(l))),
		symbolic.Power(eccOut, symbolic.Int(int64(k-l))),
		symbolic.Cos(v.argument(v, in, out, j, k, l)),
	)
	if err := c.model.AddTerm(term, hamiltonian.Param{Name: cName, Value: C}); err != nil {
		return err
	}

	c.records = append(c.records, TermRecord{Inner: in, Outer: out, J: j, K: k, L: l})
	c.logger.Info("added resonance term",
		zap.Int("inner", in),
		zap.Int("outer", out),
		zap.Int("j", j),
		zap.Int("k", k),
		zap.Int("l", l),
		zap.Float64("coefficient", C),
	)
	return nil
}

// AddAllResonanceSubterms adds every l = 0..k term of the j:j-k resonance.
func (c *Composer) AddAllResonanceSubterms(in, out, j, k int) error {
	for l := 0; l <= k; l++ {
		if err := c.AddSingleResonance(in, out, j, k, l); err != nil {
			return err
		}
	}
	return nil
}

// Apply adds the configured resonances in order.
func (c *Composer) Apply(resonances []config.ResonanceConfig) error {
	for _, r := range resonances {
		var err error
		if r.L == nil {
			err = c.AddAllResonanceSubterms(r.Inner, r.Outer, r.J, r.K)
		} else {
			err = c.AddSingleResonance(r.Inner, r.Outer, r.J, r.K, *r.L)
		}
		if err != nil {
			return err
		}
	}
	return nil
}

// Integrate advances the composed model to time t.
func (c *Composer) Integrate(t float64) error {
	if c.model == nil {
		return hamiltonian.ErrNotInitialized
	}
	return c.model.Integrate(t)
}

func (c *Composer) Variant() Variant { return c.variant }

// N is the number of particles, central body included.
func (c *Composer) N() int { return c.n }

// Model is nil until InitializeFromSimulation succeeds.
func (c *Composer) Model() *hamiltonian.Model { return c.model }

func (c *Composer) Records() []TermRecord { return append([]TermRecord(nil), c.records...) }

// Momenta returns the slot-th momentum of every body: slot 0 is the Keplerian
// momentum, slot 1 the eccentricity momentum.
func (c *Composer) Momenta(slot int) []float64 {
	if c.model == nil {
		return nil
	}
	return c.model.Slice(2*slot, 4)
}

// Angles returns the slot-th angle of every body wrapped to [0, 2pi).
func (c *Composer) Angles(slot int) []float64 {
	if c.model == nil {
		return nil
	}
	out := c.model.Slice(2*slot+1, 4)
	for i := range out {
		out[i] = transform.Mod2Pi(out[i])
	}
	return out
}

// poincareField extracts one Poincaré variable of every body, whatever the
// variant. Momenta and Angles give the raw variant slots instead.
func (c *Composer) poincareField(field func(transform.Poincare) float64, wrap bool) []float64 {
	vars := c.PoincareVars()
	if vars == nil {
		return nil
	}
	out := make([]float64, len(vars))
	for i, v := range vars {
		out[i] = field(v)
		if wrap {
			out[i] = transform.Mod2Pi(out[i])
		}
	}
	return out
}

func (c *Composer) Lambda() []float64 {
	return c.poincareField(func(p transform.Poincare) float64 { return p.Lambda }, false)
}

func (c *Composer) LambdaAngle() []float64 {
	return c.poincareField(func(p transform.Poincare) float64 { return p.MeanLongitude }, true)
}

func (c *Composer) Gamma() []float64 {
	return c.poincareField(func(p transform.Poincare) float64 { return p.Gamma }, false)
}

func (c *Composer) GammaAngle() []float64 {
	return c.poincareField(func(p transform.Poincare) float64 { return p.GammaAngle }, true)
}

// PoincareVars maps the current state back to Poincaré variables, whatever
// the variant.
func (c *Composer) PoincareVars() []transform.Poincare {
	if c.model == nil {
		return nil
	}
	return c.variant.fromState(c.model.State())
}
