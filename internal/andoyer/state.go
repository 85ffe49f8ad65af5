package andoyer

import (
	"fmt"
	"math"

	"go.uber.org/zap"

	"github.com/san-kum/resodyn/internal/disturbing"
	"github.com/san-kum/resodyn/internal/dynamo"
	"github.com/san-kum/resodyn/internal/hamiltonian"
	"github.com/san-kum/resodyn/internal/integrators"
	"github.com/san-kum/resodyn/internal/nbody"
	"github.com/san-kum/resodyn/internal/symbolic"
	"github.com/san-kum/resodyn/internal/transform"
)

// State holds the Andoyer variables of one two-planet resonance. X and Y are
// the regular variables of the resonant pair (Phi, phi); W and WAngle the
// non-resonant eccentricity mode. Actions are stored in units of Phiscale.
type State struct {
	X           float64
	Y           float64
	W           float64
	WAngle      float64
	Brouwer     float64
	K           float64
	DeltaLambda float64
	Lambda1     float64

	params     ExpansionParams
	logger     *zap.Logger
	integrator integrators.Settings

	model         *hamiltonian.Model
	modelPhiprime float64
}

// Field is one named entry of a State in canonical order.
type Field struct {
	Name  string
	Value float64
}

type options struct {
	a10    float64
	a10Set bool
	G      float64
	masses [3]float64

	W, w, brouwer, K, deltaLambda, lambda1 float64

	sup            disturbing.Supplier
	logger         *zap.Logger
	integrator     integrators.Settings
	i1, i2         int
	averageSynodic bool
}

func defaultOptions() options {
	return options{
		a10:         1,
		G:           1,
		masses:      [3]float64{1, 1e-5, 1e-5},
		brouwer:     -1e-4,
		deltaLambda: math.Pi,
		sup:         disturbing.Default,
		logger:      zap.NewNop(),
		integrator:  integrators.DefaultSettings(),
		i1:          1,
		i2:          2,
	}
}

type Option func(*options)

func WithA10(a10 float64) Option {
	return func(o *options) { o.a10, o.a10Set = a10, true }
}

func WithG(G float64) Option { return func(o *options) { o.G = G } }

func WithMasses(m0, m1, m2 float64) Option {
	return func(o *options) { o.masses = [3]float64{m0, m1, m2} }
}

// WithW sets the non-resonant mode (W, w).
func WithW(W, w float64) Option {
	return func(o *options) { o.W, o.w = W, w }
}

func WithBrouwer(b float64) Option { return func(o *options) { o.brouwer = b } }

func WithK(K float64) Option { return func(o *options) { o.K = K } }

// WithLongitudes sets the inner mean longitude and lambda2 - lambda1.
func WithLongitudes(lambda1, deltaLambda float64) Option {
	return func(o *options) { o.lambda1, o.deltaLambda = lambda1, deltaLambda }
}

func WithSupplier(sup disturbing.Supplier) Option {
	return func(o *options) {
		if sup != nil {
			o.sup = sup
		}
	}
}

func WithLogger(l *zap.Logger) Option {
	return func(o *options) {
		if l != nil {
			o.logger = l
		}
	}
}

func WithIntegrator(s integrators.Settings) Option {
	return func(o *options) { o.integrator = s }
}

// WithBodies picks the inner and outer planet of a simulation.
func WithBodies(i1, i2 int) Option {
	return func(o *options) { o.i1, o.i2 = i1, i2 }
}

func WithSynodicAveraging(on bool) Option {
	return func(o *options) { o.averageSynodic = on }
}

func buildOptions(opts []Option) options {
	o := defaultOptions()
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// New builds a State from the resonant action-angle pair (Phi, phi).
func New(j, k int, Phi, phi float64, opts ...Option) (*State, error) {
	return newState(j, k, Phi, phi, buildOptions(opts))
}

func newState(j, k int, Phi, phi float64, o options) (*State, error) {
	if Phi < 0 {
		return nil, fmt.Errorf("andoyer: Phi must be non-negative, got %g", Phi)
	}
	p, err := CalcExpansionParams(o.sup, o.G, o.masses, j, k, o.a10)
	if err != nil {
		return nil, err
	}
	X, Y := transform.ActionAngleToXY(Phi, phi)
	return &State{
		X:           X,
		Y:           Y,
		W:           o.W,
		WAngle:      o.w,
		Brouwer:     o.brouwer,
		K:           o.K,
		DeltaLambda: o.deltaLambda,
		Lambda1:     o.lambda1,
		params:      p,
		logger:      o.logger,
		integrator:  o.integrator,
	}, nil
}

// FromEquilibrium places the state at the fixed point X = -sqrt(2 Phistar),
// Y = 0 of the reduced Hamiltonian by choosing Brouwer accordingly.
func FromEquilibrium(j, k int, Phistar float64, opts ...Option) (*State, error) {
	o := buildOptions(opts)
	p, err := CalcExpansionParams(o.sup, o.G, o.masses, j, k, o.a10)
	if err != nil {
		return nil, err
	}
	Xstar := -math.Sqrt(2 * Phistar)
	phiprime := (4*Xstar*Xstar - 2) / 3
	bcoeff := -3 * phiprime / p.Timescale
	o.brouwer = bcoeff / p.Acoeff
	return newState(j, k, Phistar, math.Pi, o)
}

// FromPoincare converts the Poincaré variables of the inner and outer planet.
func FromPoincare(vars [2]transform.Poincare, G float64, masses [3]float64, j, k int, a10 float64, opts ...Option) (*State, error) {
	o := buildOptions(opts)
	o.G, o.masses, o.a10 = G, masses, a10
	p, err := CalcExpansionParams(o.sup, G, masses, j, k, a10)
	if err != nil {
		return nil, err
	}

	in, out := vars[0], vars[1]
	fj, fk := float64(j), float64(k)
	dL1 := in.Lambda - p.Lambda10
	dL2 := out.Lambda - p.Lambda20
	Z, z, W, w := RotateGammasToZW(in.Gamma, in.GammaAngle, out.Gamma, out.GammaAngle, p.FF, p.GG, false)

	o.K = (fj*dL1 + (fj-fk)*dL2) / (fj - fk)
	pa := -dL1 / (fj - fk)
	o.brouwer = pa - Z/fk
	o.W, o.w = W, w
	o.lambda1, o.deltaLambda = in.MeanLongitude, out.MeanLongitude-in.MeanLongitude
	phi := fj*out.MeanLongitude - (fj-fk)*in.MeanLongitude + fk*z

	s, err := newState(j, k, Z/fk, phi, o)
	if err != nil {
		return nil, err
	}
	s.ScaleActions(1 / p.Phiscale)
	s.logger.Debug("andoyer state from poincare variables",
		zap.Int("j", j),
		zap.Int("k", k),
		zap.Float64("phi", s.Phi()),
		zap.Float64("brouwer", s.Brouwer),
	)
	return s, nil
}

// FromSimulation reads the two planets selected by WithBodies (default 1 and
// 2). Unless WithA10 is given, a10 is the inner planet's semimajor axis.
func FromSimulation(sim *nbody.Simulation, j, k int, opts ...Option) (*State, error) {
	o := buildOptions(opts)
	if o.i1 < 1 || o.i2 <= o.i1 || o.i2 >= sim.N() {
		return nil, fmt.Errorf("%w: bodies %d and %d of %d particles", nbody.ErrIndex, o.i1, o.i2, sim.N())
	}
	if !o.a10Set {
		orb, err := sim.Orbit(o.i1)
		if err != nil {
			return nil, err
		}
		o.a10 = orb.A
	}
	vars, err := transform.PoincareVars(sim, o.averageSynodic)
	if err != nil {
		return nil, err
	}
	ms := sim.Masses()
	pair := [2]transform.Poincare{vars[o.i1-1], vars[o.i2-1]}
	return FromPoincare(pair, sim.G, [3]float64{ms[0], ms[o.i1], ms[o.i2]}, j, k, o.a10,
		WithSupplier(o.sup), WithLogger(o.logger), WithIntegrator(o.integrator))
}

// ToPoincare maps back to the Poincaré variables of the inner and outer
// planet. The receiver is left in its original units. The resonant angle z
// is only defined modulo 2pi/k and is recovered in [0, 2pi/k), so for k > 1
// the round trip through FromPoincare holds only for z in that range.
func (s *State) ToPoincare() [2]transform.Poincare {
	p := s.params
	fj, fk := float64(p.J), float64(p.K)

	s.ScaleActions(p.Phiscale)
	defer s.ScaleActions(1 / p.Phiscale)

	lambda2 := s.Lambda1 + s.DeltaLambda
	Z := fk * s.Phi()
	theta := fj*s.DeltaLambda + fk*s.Lambda1
	z := transform.Mod2Pi(s.PhiAngle()-theta) / fk
	pa := s.Brouwer + Z/fk
	dL1 := -pa * (fj - fk)
	dL2 := ((fj-fk)*s.K - fj*dL1) / (fj - fk)

	G1, g1, G2, g2 := RotateGammasToZW(Z, z, s.W, s.WAngle, p.FF, p.GG, true)
	s.logger.Debug("andoyer state to poincare variables", zap.Float64("z", z), zap.Float64("pa", pa))
	return [2]transform.Poincare{
		{Lambda: p.Lambda10 + dL1, MeanLongitude: s.Lambda1, Gamma: G1, GammaAngle: g1},
		{Lambda: p.Lambda20 + dL2, MeanLongitude: lambda2, Gamma: G2, GammaAngle: g2},
	}
}

// ToSimulation builds a three-body simulation centred on its barycentre.
func (s *State) ToSimulation() (*nbody.Simulation, error) {
	vars := s.ToPoincare()
	G, masses := s.params.G, s.params.Masses

	sim := nbody.New(G)
	sim.Add(nbody.Particle{M: masses[0]})
	for i, v := range vars {
		m := masses[i+1]
		ratio := 1 - v.Gamma/v.Lambda
		o := nbody.Orbit{
			A:      v.Lambda * v.Lambda / (m * m * G * masses[0]),
			E:      math.Sqrt(1 - ratio*ratio),
			Pomega: -v.GammaAngle,
			L:      v.MeanLongitude,
		}
		if err := sim.AddOrbit(m, o); err != nil {
			return nil, fmt.Errorf("andoyer: planet %d: %w", i+1, err)
		}
	}
	sim.MoveToCOM()
	return sim, nil
}

// ScaleActions multiplies every action by scale, which keeps the variables
// canonical: W, Brouwer and K by scale, X and Y by its square root.
func (s *State) ScaleActions(scale float64) {
	r := math.Sqrt(scale)
	s.W *= scale
	s.Brouwer *= scale
	s.K *= scale
	s.X *= r
	s.Y *= r
}

func (s *State) Phi() float64 { return (s.X*s.X + s.Y*s.Y) / 2 }

func (s *State) PhiAngle() float64 { return math.Atan2(s.Y, s.X) }

func (s *State) Phiprime() float64 {
	return -s.Brouwer * s.params.Acoeff * s.params.Timescale / 3
}

// Params returns the expansion parameters with Bcoeff and Phiprime filled in
// from the current Brouwer momentum.
func (s *State) Params() ExpansionParams {
	p := s.params
	p.Bcoeff = s.Brouwer * p.Acoeff
	p.Phiprime = s.Phiprime()
	return p
}

func (s *State) Fields() []Field {
	return []Field{
		{Name: "X", Value: s.X},
		{Name: "Y", Value: s.Y},
		{Name: "W", Value: s.W},
		{Name: "w", Value: s.WAngle},
		{Name: "Brouwer", Value: s.Brouwer},
		{Name: "K", Value: s.K},
		{Name: "DeltaLambda", Value: s.DeltaLambda},
		{Name: "lambda1", Value: s.Lambda1},
	}
}

// Hamiltonian returns the reduced model
// H = (X^2+Y^2)^2 - 3/2 Phiprime (X^2+Y^2) + (X^2+Y^2)^((k-1)/2) X
// seeded with the current X and Y.
func (s *State) Hamiltonian() (*hamiltonian.Model, error) {
	X := symbolic.Symbol("X")
	Y := symbolic.Symbol("Y")
	r2 := symbolic.Sum(symbolic.Power(X, symbolic.Int(2)), symbolic.Power(Y, symbolic.Int(2)))

	H := symbolic.Sum(
		symbolic.Power(r2, symbolic.Int(2)),
		symbolic.Product(symbolic.Rat(-3, 2), symbolic.Symbol("Phiprime"), r2),
		symbolic.Product(symbolic.Power(r2, symbolic.Rat(int64(s.params.K-1), 2)), X),
	)
	params := hamiltonian.Params{{Name: "Phiprime", Value: s.Phiprime()}}
	return hamiltonian.New(
		[]hamiltonian.Pair{{P: "X", Q: "Y"}},
		H,
		hamiltonian.Schema{"Phiprime"},
		params,
		[]float64{s.X, s.Y},
		hamiltonian.WithLogger(s.logger),
		hamiltonian.WithIntegrator(s.integrator),
	)
}

// reduced returns the cached reduced model, rebuilding it when the fields
// were edited since it was built.
func (s *State) reduced() (*hamiltonian.Model, error) {
	if s.model != nil {
		x := s.model.State()
		if x[0] == s.X && x[1] == s.Y && s.modelPhiprime == s.Phiprime() {
			return s.model, nil
		}
	}
	m, err := s.Hamiltonian()
	if err != nil {
		return nil, err
	}
	s.model, s.modelPhiprime = m, s.Phiprime()
	return m, nil
}

// Integrate advances X and Y under the reduced Hamiltonian to time t. Editing
// the fields, or ScaleActions, restarts the clock at zero.
func (s *State) Integrate(t float64) error {
	m, err := s.reduced()
	if err != nil {
		return err
	}
	if err := m.Integrate(t); err != nil {
		return err
	}
	x := m.State()
	s.X, s.Y = x[0], x[1]
	return nil
}

// Time is the reduced-model time reached by Integrate.
func (s *State) Time() float64 {
	if s.model == nil {
		return 0
	}
	return s.model.Time()
}

// Energy is the reduced Hamiltonian at the current X and Y.
func (s *State) Energy() (float64, error) {
	m, err := s.reduced()
	if err != nil {
		return 0, err
	}
	return m.Energy(dynamo.State{s.X, s.Y}), nil
}
