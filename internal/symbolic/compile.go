package symbolic

import (
	"errors"
	"fmt"
	"math"
	"sort"
)

var ErrUnboundSymbol = errors.New("symbolic: unbound symbol")

// UnboundSymbolError names a symbol that has no slot in the compile layout.
type UnboundSymbolError struct {
	Name string
}

func (e *UnboundSymbolError) Error() string {
	return fmt.Sprintf("symbolic: unbound symbol %q", e.Name)
}

func (e *UnboundSymbolError) Is(target error) bool { return target == ErrUnboundSymbol }

// Func64 evaluates a compiled expression. Its argument holds one value per
// name passed to Compile, in the same order.
type Func64 func(v []float64) float64

// Compile turns e into a closure over the ordered names in vars. Every free
// symbol of e must appear in vars.
func Compile(e Expr, vars []string) (Func64, error) {
	index := make(map[string]int, len(vars))
	for i, v := range vars {
		if _, dup := index[v]; dup {
			return nil, fmt.Errorf("symbolic: duplicate variable %q", v)
		}
		index[v] = i
	}
	fn, err := e.compile(index)
	if err != nil {
		return nil, err
	}
	return Func64(fn), nil
}

// Eval compiles e against the names in env and evaluates it once.
func Eval(e Expr, env map[string]float64) (float64, error) {
	names := make([]string, 0, len(env))
	for n := range env {
		names = append(names, n)
	}
	sort.Strings(names)
	fn, err := Compile(e, names)
	if err != nil {
		return 0, err
	}
	vals := make([]float64, len(names))
	for i, n := range names {
		vals[i] = env[n]
	}
	return fn(vals), nil
}

func (n *Num) compile(map[string]int) (evalFn, error) {
	c := n.Float64()
	return func([]float64) float64 { return c }, nil
}

func (s *Sym) compile(index map[string]int) (evalFn, error) {
	i, ok := index[s.name]
	if !ok {
		return nil, &UnboundSymbolError{Name: s.name}
	}
	return func(v []float64) float64 { return v[i] }, nil
}

func compileAll(items []Expr, index map[string]int) ([]evalFn, error) {
	fns := make([]evalFn, len(items))
	for i, it := range items {
		fn, err := it.compile(index)
		if err != nil {
			return nil, err
		}
		fns[i] = fn
	}
	return fns, nil
}

func (a *Add) compile(index map[string]int) (evalFn, error) {
	fns, err := compileAll(a.terms, index)
	if err != nil {
		return nil, err
	}
	return func(v []float64) float64 {
		s := 0.0
		for _, f := range fns {
			s += f(v)
		}
		return s
	}, nil
}

func (m *Mul) compile(index map[string]int) (evalFn, error) {
	fns, err := compileAll(m.factors, index)
	if err != nil {
		return nil, err
	}
	return func(v []float64) float64 {
		p := 1.0
		for _, f := range fns {
			p *= f(v)
		}
		return p
	}, nil
}

func (p *Pow) compile(index map[string]int) (evalFn, error) {
	base, err := p.base.compile(index)
	if err != nil {
		return nil, err
	}
	if e, ok := p.exp.(*Num); ok {
		switch x := e.Float64(); x {
		case 2:
			return func(v []float64) float64 { b := base(v); return b * b }, nil
		case -1:
			return func(v []float64) float64 { return 1 / base(v) }, nil
		case -2:
			return func(v []float64) float64 { b := base(v); return 1 / (b * b) }, nil
		case 0.5:
			return func(v []float64) float64 { return math.Sqrt(base(v)) }, nil
		case -0.5:
			return func(v []float64) float64 { return 1 / math.Sqrt(base(v)) }, nil
		default:
			return func(v []float64) float64 { return math.Pow(base(v), x) }, nil
		}
	}
	exp, err := p.exp.compile(index)
	if err != nil {
		return nil, err
	}
	return func(v []float64) float64 { return math.Pow(base(v), exp(v)) }, nil
}

func (f *Func) compile(index map[string]int) (evalFn, error) {
	arg, err := f.arg.compile(index)
	if err != nil {
		return nil, err
	}
	switch f.kind {
	case funcCos:
		return func(v []float64) float64 { return math.Cos(arg(v)) }, nil
	case funcSin:
		return func(v []float64) float64 { return math.Sin(arg(v)) }, nil
	default:
		return func(v []float64) float64 { return math.Log(arg(v)) }, nil
	}
}
