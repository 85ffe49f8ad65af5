package hamiltonian

import (
	"fmt"
	"sort"
)

// Pair is a conjugate pair of canonical variables: dP/dt = -dH/dQ and
// dQ/dt = dH/dP.
type Pair struct {
	P string
	Q string
}

type Param struct {
	Name  string
	Value float64
}

// Params is an ordered parameter binding.
type Params []Param

// NewParams pairs names with values positionally.
func NewParams(names []string, values []float64) (Params, error) {
	if len(names) != len(values) {
		return nil, fmt.Errorf("%w: %d names, %d values", ErrParameterCount, len(names), len(values))
	}
	ps := make(Params, len(names))
	for i := range names {
		ps[i] = Param{Name: names[i], Value: values[i]}
	}
	return ps, nil
}

func (ps Params) Lookup(name string) (float64, bool) {
	for _, p := range ps {
		if p.Name == name {
			return p.Value, true
		}
	}
	return 0, false
}

func (ps Params) Names() []string {
	out := make([]string, len(ps))
	for i, p := range ps {
		out[i] = p.Name
	}
	return out
}

func (ps Params) Values() []float64 {
	out := make([]float64, len(ps))
	for i, p := range ps {
		out[i] = p.Value
	}
	return out
}

// Schema declares the parameter names a Hamiltonian expects.
type Schema []string

// Validate checks that ps binds exactly the declared names.
func (s Schema) Validate(ps Params) error {
	if len(s) != len(ps) {
		return fmt.Errorf("%w: schema declares %d parameters, %d bound", ErrParameterCount, len(s), len(ps))
	}
	bound := make(map[string]struct{}, len(ps))
	for _, p := range ps {
		bound[p.Name] = struct{}{}
	}
	missing := make([]string, 0)
	for _, name := range s {
		if _, ok := bound[name]; !ok {
			missing = append(missing, name)
		}
	}
	if len(missing) > 0 {
		sort.Strings(missing)
		return &MissingParameterError{Symbol: missing[0]}
	}
	return nil
}
