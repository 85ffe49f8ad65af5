// Package hamiltonian derives and integrates Hamilton's equations for a
// symbolic Hamiltonian over an ordered list of canonical pairs.
package hamiltonian

import (
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/san-kum/resodyn/internal/dynamo"
	"github.com/san-kum/resodyn/internal/integrators"
	"github.com/san-kum/resodyn/internal/symbolic"
)

// Model is a Hamiltonian built from a sum of terms. It is Uninitialized until
// the first successful Rebuild; afterwards a failed Rebuild leaves the last
// good build in place.
type Model struct {
	pairs  []Pair
	terms  []symbolic.Expr
	params Params
	y0     []float64

	settings  integrators.Settings
	logger    *zap.Logger
	observers []dynamo.Observer

	cur *build
	// memo holds compiled per-term derivatives; it is only valid for memoPairs.
	memo      map[int]*compiledTerm
	memoPairs int
}

type Option func(*Model)

func WithLogger(l *zap.Logger) Option {
	return func(m *Model) {
		if l != nil {
			m.logger = l
		}
	}
}

func WithIntegrator(s integrators.Settings) Option {
	return func(m *Model) { m.settings = s }
}

// NewEmpty returns a model with no pairs or terms.
func NewEmpty(opts ...Option) *Model {
	m := &Model{
		settings: integrators.DefaultSettings(),
		logger:   zap.NewNop(),
		memo:     make(map[int]*compiledTerm),
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// New builds a model for H over pairs. y0 holds (p, q) per pair in pair order.
// A non-nil schema must be satisfied exactly by params.
func New(pairs []Pair, H symbolic.Expr, schema Schema, params Params, y0 []float64, opts ...Option) (*Model, error) {
	if schema != nil {
		if err := schema.Validate(params); err != nil {
			return nil, err
		}
	}
	if len(y0) != 2*len(pairs) {
		return nil, fmt.Errorf("%w: %d values for %d pairs", ErrStateLength, len(y0), len(pairs))
	}

	m := NewEmpty(opts...)
	for i, p := range pairs {
		if err := m.AddPair(p, y0[2*i], y0[2*i+1]); err != nil {
			return nil, err
		}
	}
	for _, p := range params {
		if err := m.bind(p); err != nil {
			return nil, err
		}
	}
	m.terms = splitTerms(H)
	if err := m.Rebuild(); err != nil {
		return nil, err
	}
	return m, nil
}

// splitTerms memoizes at the granularity of top-level summands.
func splitTerms(H symbolic.Expr) []symbolic.Expr {
	if a, ok := H.(*symbolic.Add); ok {
		return a.Terms()
	}
	return []symbolic.Expr{H}
}

// AddPair appends a canonical pair with initial values. The model must be
// rebuilt before the pair takes part in integration.
func (m *Model) AddPair(p Pair, p0, q0 float64) error {
	if p.P == p.Q {
		return fmt.Errorf("%w: %q", ErrDuplicateVariable, p.P)
	}
	for _, q := range m.pairs {
		for _, name := range []string{p.P, p.Q} {
			if name == q.P || name == q.Q {
				return fmt.Errorf("%w: %q", ErrDuplicateVariable, name)
			}
		}
	}
	if _, ok := m.params.Lookup(p.P); ok {
		return fmt.Errorf("%w: %q is a parameter", ErrDuplicateVariable, p.P)
	}
	if _, ok := m.params.Lookup(p.Q); ok {
		return fmt.Errorf("%w: %q is a parameter", ErrDuplicateVariable, p.Q)
	}
	m.pairs = append(m.pairs, p)
	m.y0 = append(m.y0, p0, q0)
	return nil
}

func (m *Model) bind(p Param) error {
	for i, q := range m.params {
		if q.Name != p.Name {
			continue
		}
		if q.Value != p.Value {
			return fmt.Errorf("%w: %q bound to %g, got %g", ErrDuplicateParameter, p.Name, m.params[i].Value, p.Value)
		}
		return nil
	}
	for _, pr := range m.pairs {
		if p.Name == pr.P || p.Name == pr.Q {
			return fmt.Errorf("%w: %q is a canonical variable", ErrDuplicateVariable, p.Name)
		}
	}
	m.params = append(m.params, p)
	return nil
}

// AddTerm adds term to the Hamiltonian together with any new parameter
// bindings it needs, then rebuilds. On failure the model is left exactly as it
// was before the call.
func (m *Model) AddTerm(term symbolic.Expr, params ...Param) error {
	nTerms, nParams := len(m.terms), len(m.params)
	rollback := func() {
		m.terms = m.terms[:nTerms]
		m.params = m.params[:nParams]
	}

	for _, p := range params {
		if err := m.bind(p); err != nil {
			rollback()
			return err
		}
	}
	m.terms = append(m.terms, term)

	if err := m.Rebuild(); err != nil {
		rollback()
		return err
	}
	return nil
}

// SetParam rebinds an existing parameter and rebuilds.
func (m *Model) SetParam(name string, value float64) error {
	for i := range m.params {
		if m.params[i].Name != name {
			continue
		}
		old := m.params[i].Value
		m.params[i].Value = value
		if err := m.Rebuild(); err != nil {
			m.params[i].Value = old
			return err
		}
		return nil
	}
	return fmt.Errorf("%w: %q", ErrUnknownParameter, name)
}

// SetInitialConditions replaces the stored initial state and rebuilds, which
// restarts integration from t=0.
func (m *Model) SetInitialConditions(y0 []float64) error {
	if len(y0) != 2*len(m.pairs) {
		return fmt.Errorf("%w: %d values for %d pairs", ErrStateLength, len(y0), len(m.pairs))
	}
	old := m.y0
	m.y0 = append([]float64(nil), y0...)
	if err := m.Rebuild(); err != nil {
		m.y0 = old
		return err
	}
	return nil
}

// Rebuild derives Hamilton's equations for the current terms, binds the
// parameters, compiles the derivatives and seeds a fresh integrator with the
// initial state at t=0.
func (m *Model) Rebuild() error {
	if len(m.pairs) == 0 {
		return ErrNoPairs
	}

	if m.memoPairs != len(m.pairs) {
		m.memo = make(map[int]*compiledTerm)
		m.memoPairs = len(m.pairs)
	}

	vars := m.layout()
	fresh := make(map[int]*compiledTerm)
	compiled := make([]*compiledTerm, len(m.terms))
	hits := 0
	for i, term := range m.terms {
		if ct, ok := m.memo[i]; ok {
			compiled[i] = ct
			hits++
			continue
		}
		ct, err := compileTerm(term, m.pairs, vars)
		if err != nil {
			return err
		}
		compiled[i] = ct
		fresh[i] = ct
	}

	b := &build{
		nState: 2 * len(m.pairs),
		params: m.params.Values(),
		terms:  compiled,
	}
	b.scratch = make([]float64, b.nState+len(b.params))

	ode, err := integrators.NewODE(b, m.settings)
	if err != nil {
		return err
	}
	if err := ode.SetInitialValue(m.y0, 0); err != nil {
		return err
	}
	b.ode = ode

	for i, ct := range fresh {
		m.memo[i] = ct
	}
	m.cur = b

	m.logger.Debug("rebuilt hamiltonian",
		zap.Int("pairs", len(m.pairs)),
		zap.Int("terms", len(m.terms)),
		zap.Int("params", len(m.params)),
		zap.Int("memo_hits", hits),
	)
	return nil
}

// layout is the compile order: p0, q0, p1, q1, ... followed by parameters.
// Parameters are append-only so compiled closures survive new bindings.
func (m *Model) layout() []string {
	vars := make([]string, 0, 2*len(m.pairs)+len(m.params))
	for _, p := range m.pairs {
		vars = append(vars, p.P, p.Q)
	}
	return append(vars, m.params.Names()...)
}

// Integrate advances the state to t. Times at or before the current time are
// ignored.
func (m *Model) Integrate(t float64) error {
	if m.cur == nil {
		return ErrNotInitialized
	}
	if t <= m.cur.ode.T() {
		return nil
	}
	if err := m.cur.ode.Integrate(t); err != nil {
		m.logger.Warn("integration failed", zap.Float64("t", t), zap.Error(err))
		return &IntegrationError{Time: t, Err: err}
	}
	if len(m.observers) > 0 {
		x := m.cur.ode.Y()
		for _, o := range m.observers {
			o.OnStep(x, t)
		}
	}
	return nil
}

func (m *Model) AddObserver(o dynamo.Observer) { m.observers = append(m.observers, o) }

func (m *Model) Initialized() bool { return m.cur != nil }

func (m *Model) Time() float64 {
	if m.cur == nil {
		return 0
	}
	return m.cur.ode.T()
}

// State returns the current state, or the initial state before the first build.
func (m *Model) State() dynamo.State {
	if m.cur == nil {
		return dynamo.State(m.y0).Clone()
	}
	return m.cur.ode.Y()
}

// Slice returns every stride-th component of the state starting at offset.
func (m *Model) Slice(offset, stride int) []float64 {
	return m.State().Stride(offset, stride)
}

// Value returns the current value of a canonical variable.
func (m *Model) Value(name string) (float64, error) {
	x := m.State()
	for i, p := range m.pairs {
		if 2*i+1 >= len(x) {
			break
		}
		switch name {
		case p.P:
			return x[2*i], nil
		case p.Q:
			return x[2*i+1], nil
		}
	}
	return 0, fmt.Errorf("hamiltonian: unknown canonical variable %q", name)
}

func (m *Model) StateDim() int { return 2 * len(m.pairs) }

// Derive evaluates Hamilton's equations at x.
func (m *Model) Derive(x dynamo.State, t float64) dynamo.State {
	if m.cur == nil {
		return make(dynamo.State, len(x))
	}
	return m.cur.Derive(x, t)
}

// Energy evaluates the Hamiltonian at x.
func (m *Model) Energy(x dynamo.State) float64 {
	if m.cur == nil {
		return 0
	}
	return m.cur.energy(x)
}

func (m *Model) CurrentEnergy() float64 { return m.Energy(m.State()) }

func (m *Model) Pairs() []Pair { return append([]Pair(nil), m.pairs...) }

func (m *Model) Params() Params { return append(Params(nil), m.params...) }

func (m *Model) NumTerms() int { return len(m.terms) }

// Expr returns the full Hamiltonian.
func (m *Model) Expr() symbolic.Expr {
	return symbolic.Sum(m.terms...)
}

// compiledTerm holds one summand of H and its partial derivatives.
type compiledTerm struct {
	value symbolic.Func64
	dp    []symbolic.Func64
	dq    []symbolic.Func64
}

func compileTerm(term symbolic.Expr, pairs []Pair, vars []string) (*compiledTerm, error) {
	compile := func(e symbolic.Expr) (symbolic.Func64, error) {
		fn, err := symbolic.Compile(e, vars)
		var ue *symbolic.UnboundSymbolError
		if errors.As(err, &ue) {
			return nil, &MissingParameterError{Symbol: ue.Name}
		}
		return fn, err
	}

	value, err := compile(term)
	if err != nil {
		return nil, err
	}
	ct := &compiledTerm{
		value: value,
		dp:    make([]symbolic.Func64, len(pairs)),
		dq:    make([]symbolic.Func64, len(pairs)),
	}
	for i, p := range pairs {
		if symbolic.DependsOn(term, p.P) {
			if ct.dp[i], err = compile(term.Diff(p.P)); err != nil {
				return nil, err
			}
		}
		if symbolic.DependsOn(term, p.Q) {
			if ct.dq[i], err = compile(term.Diff(p.Q)); err != nil {
				return nil, err
			}
		}
	}
	return ct, nil
}

// build is one compiled snapshot of the model. It implements dynamo.System.
type build struct {
	nState  int
	params  []float64
	terms   []*compiledTerm
	scratch []float64
	ode     *integrators.ODE
}

func (b *build) StateDim() int { return b.nState }

func (b *build) load(x dynamo.State) []float64 {
	copy(b.scratch, x)
	copy(b.scratch[b.nState:], b.params)
	return b.scratch
}

func (b *build) Derive(x dynamo.State, t float64) dynamo.State {
	v := b.load(x)
	dx := make(dynamo.State, b.nState)
	for _, ct := range b.terms {
		for i := range ct.dp {
			if f := ct.dq[i]; f != nil {
				dx[2*i] -= f(v)
			}
			if f := ct.dp[i]; f != nil {
				dx[2*i+1] += f(v)
			}
		}
	}
	return dx
}

func (b *build) energy(x dynamo.State) float64 {
	v := b.load(x)
	H := 0.0
	for _, ct := range b.terms {
		H += ct.value(v)
	}
	return H
}
