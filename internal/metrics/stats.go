package metrics

import (
	"fmt"

	"gonum.org/v1/gonum/stat"

	"github.com/san-kum/resodyn/internal/dynamo"
)

// ActionStats collects one state component over a run. Value is its mean.
type ActionStats struct {
	name   string
	index  int
	values []float64
}

func NewActionStats(name string, index int) *ActionStats {
	if name == "" {
		name = fmt.Sprintf("component_%d", index)
	}
	return &ActionStats{name: name + "_mean", index: index}
}

func (a *ActionStats) Name() string { return a.name }

func (a *ActionStats) Observe(x dynamo.State, t float64) {
	if a.index < len(x) {
		a.values = append(a.values, x[a.index])
	}
}

func (a *ActionStats) Value() float64 {
	if len(a.values) == 0 {
		return 0
	}
	return stat.Mean(a.values, nil)
}

// StdDev is the sample standard deviation, zero below two samples.
func (a *ActionStats) StdDev() float64 {
	if len(a.values) < 2 {
		return 0
	}
	return stat.StdDev(a.values, nil)
}

func (a *ActionStats) Reset() { a.values = a.values[:0] }
