package metrics

import (
	"fmt"

	"github.com/san-kum/resodyn/internal/dynamo"
)

// Bounds is the fraction of samples whose component index stays inside
// [lo, hi]. A librating resonant action stays at 1.
type Bounds struct {
	name       string
	index      int
	lo, hi     float64
	violations int
	samples    int
}

func NewBounds(index int, lo, hi float64) *Bounds {
	return &Bounds{
		name:  fmt.Sprintf("bounds_%d", index),
		index: index,
		lo:    lo,
		hi:    hi,
	}
}

func (b *Bounds) Name() string { return b.name }

func (b *Bounds) Observe(x dynamo.State, t float64) {
	b.samples++
	if b.index >= len(x) || x[b.index] < b.lo || x[b.index] > b.hi {
		b.violations++
	}
}

func (b *Bounds) Value() float64 {
	if b.samples == 0 {
		return 1.0
	}
	return 1.0 - float64(b.violations)/float64(b.samples)
}

func (b *Bounds) Reset() {
	b.violations = 0
	b.samples = 0
}
