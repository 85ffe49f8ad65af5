package disturbing

import "sync"

// Supplier provides resonant disturbing-function coefficients.
type Supplier interface {
	Coefficient(j, k, l int, alpha float64) (float64, error)
	FGCoeffs(j, k int) (f, g float64, err error)
}

type coeffKey struct {
	j, k, l int
	alpha   float64
}

type fgKey struct{ j, k int }

type fgPair struct{ f, g float64 }

// Cache is a Supplier that memoizes GeneralOrderCoefficient and FGCoeffs.
// It is safe for concurrent use.
type Cache struct {
	mu     sync.Mutex
	coeffs map[coeffKey]float64
	fg     map[fgKey]fgPair
}

func NewCache() *Cache {
	return &Cache{
		coeffs: make(map[coeffKey]float64),
		fg:     make(map[fgKey]fgPair),
	}
}

// Default is the process-wide memoizing supplier.
var Default Supplier = NewCache()

func (c *Cache) Coefficient(j, k, l int, alpha float64) (float64, error) {
	key := coeffKey{j: j, k: k, l: l, alpha: alpha}
	c.mu.Lock()
	v, ok := c.coeffs[key]
	c.mu.Unlock()
	if ok {
		return v, nil
	}

	v, err := GeneralOrderCoefficient(j, k, l, alpha)
	if err != nil {
		return 0, err
	}
	c.mu.Lock()
	c.coeffs[key] = v
	c.mu.Unlock()
	return v, nil
}

func (c *Cache) FGCoeffs(j, k int) (float64, float64, error) {
	key := fgKey{j: j, k: k}
	c.mu.Lock()
	p, ok := c.fg[key]
	c.mu.Unlock()
	if ok {
		return p.f, p.g, nil
	}

	f, g, err := FGCoeffs(j, k)
	if err != nil {
		return 0, 0, err
	}
	c.mu.Lock()
	c.fg[key] = fgPair{f: f, g: g}
	c.mu.Unlock()
	return f, g, nil
}

// Len reports the number of memoized entries.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.coeffs) + len(c.fg)
}
