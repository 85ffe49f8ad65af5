package symbolic

type funcKind int

const (
	funcCos funcKind = iota
	funcSin
	funcLog
)

var funcNames = map[funcKind]string{
	funcCos: "cos",
	funcSin: "sin",
	funcLog: "log",
}

// Func is an elementary function applied to one argument.
type Func struct {
	kind funcKind
	arg  Expr
}

func Cos(arg Expr) Expr {
	if n, ok := arg.(*Num); ok && n.IsZero() {
		return Int(1)
	}
	return &Func{kind: funcCos, arg: arg}
}

func Sin(arg Expr) Expr {
	if n, ok := arg.(*Num); ok && n.IsZero() {
		return Int(0)
	}
	return &Func{kind: funcSin, arg: arg}
}

func Log(arg Expr) Expr {
	if n, ok := arg.(*Num); ok && n.IsOne() {
		return Int(0)
	}
	return &Func{kind: funcLog, arg: arg}
}

func (f *Func) String() string { return funcNames[f.kind] + "(" + f.arg.String() + ")" }

func (f *Func) Diff(name string) Expr {
	da := f.arg.Diff(name)
	if n, ok := da.(*Num); ok && n.IsZero() {
		return Int(0)
	}
	switch f.kind {
	case funcCos:
		return Product(Int(-1), Sin(f.arg), da)
	case funcSin:
		return Product(Cos(f.arg), da)
	default:
		return Product(da, Power(f.arg, Int(-1)))
	}
}

func (f *Func) Sub(name string, value Expr) Expr {
	arg := f.arg.Sub(name, value)
	switch f.kind {
	case funcCos:
		return Cos(arg)
	case funcSin:
		return Sin(arg)
	default:
		return Log(arg)
	}
}

func (f *Func) Equal(other Expr) bool { return sameString(f, other) }

func (f *Func) Arg() Expr { return f.arg }

func (f *Func) collect(set map[string]struct{}) { f.arg.collect(set) }
