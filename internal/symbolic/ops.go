package symbolic

import (
	"sort"
)

// Add is a sum of at least two terms. Build it with Sum.
type Add struct{ terms []Expr }

// Mul is a product of at least two factors. Build it with Product.
type Mul struct{ factors []Expr }

// Pow is base^exp. Build it with Power.
type Pow struct{ base, exp Expr }

// Sum returns the simplified sum of terms. Constants are folded and like
// terms are collected.
func Sum(terms ...Expr) Expr {
	flat := make([]Expr, 0, len(terms))
	for _, t := range terms {
		if a, ok := t.(*Add); ok {
			flat = append(flat, a.terms...)
		} else {
			flat = append(flat, t)
		}
	}

	constant := Int(0)
	coeffs := make(map[string]*Num)
	rests := make(map[string]Expr)
	for _, t := range flat {
		if n, ok := t.(*Num); ok {
			constant = numAdd(constant, n)
			continue
		}
		c, rest := splitCoeff(t)
		key := rest.String()
		if prev, ok := coeffs[key]; ok {
			coeffs[key] = numAdd(prev, c)
		} else {
			coeffs[key] = c
			rests[key] = rest
		}
	}

	keys := make([]string, 0, len(coeffs))
	for k := range coeffs {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Expr, 0, len(keys)+1)
	for _, k := range keys {
		c := coeffs[k]
		if c.IsZero() {
			continue
		}
		if c.IsOne() {
			out = append(out, rests[k])
		} else {
			out = append(out, Product(c, rests[k]))
		}
	}
	if !constant.IsZero() {
		out = append(out, constant)
	}

	switch len(out) {
	case 0:
		return Int(0)
	case 1:
		return out[0]
	}
	return &Add{terms: out}
}

func splitCoeff(e Expr) (*Num, Expr) {
	m, ok := e.(*Mul)
	if !ok {
		return Int(1), e
	}
	if c, ok := m.factors[0].(*Num); ok {
		rest := m.factors[1:]
		if len(rest) == 1 {
			return c, rest[0]
		}
		return c, &Mul{factors: rest}
	}
	return Int(1), e
}

// Product returns the simplified product of factors. Constants are folded and
// powers of a common base are merged.
func Product(factors ...Expr) Expr {
	flat := make([]Expr, 0, len(factors))
	for _, f := range factors {
		if m, ok := f.(*Mul); ok {
			flat = append(flat, m.factors...)
		} else {
			flat = append(flat, f)
		}
	}

	coeff := Int(1)
	exps := make(map[string][]Expr)
	bases := make(map[string]Expr)
	for _, f := range flat {
		if n, ok := f.(*Num); ok {
			coeff = numMul(coeff, n)
			continue
		}
		base, exp := splitPow(f)
		key := base.String()
		if _, ok := bases[key]; !ok {
			bases[key] = base
		}
		exps[key] = append(exps[key], exp)
	}
	if coeff.IsZero() {
		return Int(0)
	}

	keys := make([]string, 0, len(bases))
	for k := range bases {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Expr, 0, len(keys))
	for _, k := range keys {
		p := Power(bases[k], Sum(exps[k]...))
		switch v := p.(type) {
		case *Num:
			coeff = numMul(coeff, v)
		case *Mul:
			for _, f := range v.factors {
				if n, ok := f.(*Num); ok {
					coeff = numMul(coeff, n)
				} else {
					out = append(out, f)
				}
			}
		default:
			out = append(out, p)
		}
	}
	if coeff.IsZero() {
		return Int(0)
	}

	if len(out) == 0 {
		return coeff
	}
	if coeff.IsOne() {
		if len(out) == 1 {
			return out[0]
		}
		return &Mul{factors: out}
	}
	return &Mul{factors: append([]Expr{coeff}, out...)}
}

func splitPow(e Expr) (Expr, Expr) {
	if p, ok := e.(*Pow); ok {
		return p.base, p.exp
	}
	return e, Int(1)
}

// Power returns base^exp in simplified form.
func Power(base, exp Expr) Expr {
	if e, ok := exp.(*Num); ok {
		if e.IsZero() {
			return Int(1)
		}
		if e.IsOne() {
			return base
		}
	}

	switch b := base.(type) {
	case *Num:
		if b.IsOne() {
			return Int(1)
		}
		if e, ok := exp.(*Num); ok {
			if b.IsZero() && !e.IsNegative() {
				return Int(0)
			}
			if v, ok := numPow(b, e); ok {
				return v
			}
		}
	case *Pow:
		if e, ok := exp.(*Num); ok && e.IsInteger() {
			return Power(b.base, Product(b.exp, e))
		}
	case *Mul:
		if e, ok := exp.(*Num); ok && e.IsInteger() {
			parts := make([]Expr, len(b.factors))
			for i, f := range b.factors {
				parts[i] = Power(f, e)
			}
			return Product(parts...)
		}
	}
	return &Pow{base: base, exp: exp}
}

func Neg(e Expr) Expr         { return Product(Int(-1), e) }
func Subtract(a, b Expr) Expr { return Sum(a, Neg(b)) }
func Quo(a, b Expr) Expr      { return Product(a, Power(b, Int(-1))) }
func Sqrt(e Expr) Expr        { return Power(e, Rat(1, 2)) }

func (a *Add) String() string {
	return joinStrings(a.terms, " + ", nil)
}

func (a *Add) Diff(name string) Expr {
	parts := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.Diff(name)
	}
	return Sum(parts...)
}

func (a *Add) Sub(name string, value Expr) Expr {
	parts := make([]Expr, len(a.terms))
	for i, t := range a.terms {
		parts[i] = t.Sub(name, value)
	}
	return Sum(parts...)
}

func (a *Add) Equal(other Expr) bool { return sameString(a, other) }

// Terms returns the summands.
func (a *Add) Terms() []Expr { return append([]Expr(nil), a.terms...) }

func (a *Add) collect(set map[string]struct{}) {
	for _, t := range a.terms {
		t.collect(set)
	}
}

func (m *Mul) String() string {
	return joinStrings(m.factors, "*", func(e Expr) bool {
		_, isAdd := e.(*Add)
		return isAdd
	})
}

func (m *Mul) Diff(name string) Expr {
	parts := make([]Expr, 0, len(m.factors))
	for i, f := range m.factors {
		d := f.Diff(name)
		if n, ok := d.(*Num); ok && n.IsZero() {
			continue
		}
		rest := make([]Expr, 0, len(m.factors))
		rest = append(rest, d)
		for j, g := range m.factors {
			if j != i {
				rest = append(rest, g)
			}
		}
		parts = append(parts, Product(rest...))
	}
	return Sum(parts...)
}

func (m *Mul) Sub(name string, value Expr) Expr {
	parts := make([]Expr, len(m.factors))
	for i, f := range m.factors {
		parts[i] = f.Sub(name, value)
	}
	return Product(parts...)
}

func (m *Mul) Equal(other Expr) bool { return sameString(m, other) }

func (m *Mul) Factors() []Expr { return append([]Expr(nil), m.factors...) }

func (m *Mul) collect(set map[string]struct{}) {
	for _, f := range m.factors {
		f.collect(set)
	}
}

func (p *Pow) String() string {
	b := p.base.String()
	switch v := p.base.(type) {
	case *Add, *Mul, *Pow:
		b = "(" + b + ")"
	case *Num:
		if v.IsNegative() || !v.IsInteger() {
			b = "(" + b + ")"
		}
	}
	e := p.exp.String()
	switch v := p.exp.(type) {
	case *Sym:
	case *Num:
		if v.IsNegative() || !v.IsInteger() {
			e = "(" + e + ")"
		}
	default:
		e = "(" + e + ")"
	}
	return b + "^" + e
}

func (p *Pow) Diff(name string) Expr {
	db := p.base.Diff(name)
	if !DependsOn(p.exp, name) {
		return Product(p.exp, Power(p.base, Sum(p.exp, Int(-1))), db)
	}
	de := p.exp.Diff(name)
	return Product(p, Sum(
		Product(de, Log(p.base)),
		Product(p.exp, db, Power(p.base, Int(-1))),
	))
}

func (p *Pow) Sub(name string, value Expr) Expr {
	return Power(p.base.Sub(name, value), p.exp.Sub(name, value))
}

func (p *Pow) Equal(other Expr) bool { return sameString(p, other) }

func (p *Pow) Base() Expr     { return p.base }
func (p *Pow) Exponent() Expr { return p.exp }

func (p *Pow) collect(set map[string]struct{}) {
	p.base.collect(set)
	p.exp.collect(set)
}

func sameString(a, b Expr) bool {
	if b == nil {
		return false
	}
	return a.String() == b.String()
}
