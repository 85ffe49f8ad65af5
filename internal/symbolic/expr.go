// Package symbolic is a small computer-algebra kernel for building Hamiltonians.
//
// Expressions are immutable trees over exact rationals, named symbols, sums,
// products, powers and the elementary functions cos, sin and log. Every
// constructor returns a simplified expression, so Diff and Sub results stay in
// canonical form and two expressions are equal when their String forms match.
// Compile turns an expression into a closure over an ordered variable list.
package symbolic

import (
	"math/big"
	"sort"
	"strings"
)

type Expr interface {
	String() string
	// Diff returns the partial derivative with respect to the named symbol.
	Diff(name string) Expr
	// Sub replaces every occurrence of the named symbol with value.
	Sub(name string, value Expr) Expr
	Equal(other Expr) bool

	collect(set map[string]struct{})
	compile(index map[string]int) (evalFn, error)
}

type evalFn func(v []float64) float64

// Num is an exact rational constant.
type Num struct{ val *big.Rat }

func Int(n int64) *Num { return &Num{val: new(big.Rat).SetInt64(n)} }

// Rat returns p/q. It panics when q is zero.
func Rat(p, q int64) *Num {
	if q == 0 {
		panic("symbolic: zero denominator")
	}
	return &Num{val: new(big.Rat).SetFrac(big.NewInt(p), big.NewInt(q))}
}

func (n *Num) String() string {
	if n.val.IsInt() {
		return n.val.Num().String()
	}
	return n.val.RatString()
}

func (n *Num) Diff(string) Expr      { return Int(0) }
func (n *Num) Sub(string, Expr) Expr { return n }
func (n *Num) Equal(other Expr) bool {
	o, ok := other.(*Num)
	return ok && n.val.Cmp(o.val) == 0
}

func (n *Num) Float64() float64 {
	f, _ := n.val.Float64()
	return f
}

func (n *Num) IsZero() bool     { return n.val.Sign() == 0 }
func (n *Num) IsOne() bool      { return n.val.IsInt() && n.val.Num().IsInt64() && n.val.Num().Int64() == 1 }
func (n *Num) IsInteger() bool  { return n.val.IsInt() }
func (n *Num) IsNegative() bool { return n.val.Sign() < 0 }

func (n *Num) collect(map[string]struct{}) {}

func numAdd(a, b *Num) *Num { return &Num{val: new(big.Rat).Add(a.val, b.val)} }
func numMul(a, b *Num) *Num { return &Num{val: new(big.Rat).Mul(a.val, b.val)} }

// numPow raises a to an integer power. ok is false for 0 to a negative power or
// exponents too large to be worth expanding exactly.
func numPow(a *Num, e *Num) (*Num, bool) {
	if !e.val.IsInt() || !e.val.Num().IsInt64() {
		return nil, false
	}
	n := e.val.Num().Int64()
	if n > 64 || n < -64 {
		return nil, false
	}
	if a.IsZero() && n < 0 {
		return nil, false
	}
	base := new(big.Rat).Set(a.val)
	if n < 0 {
		base.Inv(base)
		n = -n
	}
	out := new(big.Rat).SetInt64(1)
	for i := int64(0); i < n; i++ {
		out.Mul(out, base)
	}
	return &Num{val: out}, true
}

// Sym is a named symbol.
type Sym struct{ name string }

func Symbol(name string) *Sym { return &Sym{name: name} }

func (s *Sym) Name() string   { return s.name }
func (s *Sym) String() string { return s.name }

func (s *Sym) Diff(name string) Expr {
	if s.name == name {
		return Int(1)
	}
	return Int(0)
}

func (s *Sym) Sub(name string, value Expr) Expr {
	if s.name == name {
		return value
	}
	return s
}

func (s *Sym) Equal(other Expr) bool {
	o, ok := other.(*Sym)
	return ok && s.name == o.name
}

func (s *Sym) collect(set map[string]struct{}) { set[s.name] = struct{}{} }

// FreeSymbols returns the sorted names of every symbol in e.
func FreeSymbols(e Expr) []string {
	set := make(map[string]struct{})
	e.collect(set)
	names := make([]string, 0, len(set))
	for n := range set {
		names = append(names, n)
	}
	sort.Strings(names)
	return names
}

// DependsOn reports whether the named symbol occurs in e.
func DependsOn(e Expr, name string) bool {
	set := make(map[string]struct{})
	e.collect(set)
	_, ok := set[name]
	return ok
}

func joinStrings(items []Expr, sep string, wrap func(Expr) bool) string {
	parts := make([]string, len(items))
	for i, it := range items {
		s := it.String()
		if wrap != nil && wrap(it) {
			s = "(" + s + ")"
		}
		parts[i] = s
	}
	return strings.Join(parts, sep)
}
