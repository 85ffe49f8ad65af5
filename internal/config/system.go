package config

import (
	"fmt"
	"math"

	"github.com/san-kum/resodyn/internal/nbody"
)

const (
	// DefaultPeriodRatio separates adjacent planets with no configured resonance.
	DefaultPeriodRatio = 1.6
	seedEccentricity   = 0.02
)

// BuildSimulation places the star and planets of the system in the
// barycentric frame. The first planet orbits at A10; each further planet
// sits on the nominal period ratio j/(j-k) of the resonance configured with
// its inner neighbour, or on DefaultPeriodRatio. Planets start slightly
// eccentric with staggered angles so every eccentricity action is non-zero.
func (c *Config) BuildSimulation() (*nbody.Simulation, error) {
	masses := c.System.Masses
	if len(masses) < 2 {
		return nil, fmt.Errorf("%w: need a star and at least one planet", ErrInvalidConfig)
	}

	ratios := make(map[int]float64)
	for _, r := range c.Resonances {
		ratios[r.Inner] = float64(r.J) / float64(r.J-r.K)
	}

	s := nbody.New(c.System.G)
	s.Add(nbody.Particle{M: masses[0]})
	a := c.System.A10
	for i := 1; i < len(masses); i++ {
		if i > 1 {
			ratio, ok := ratios[i-1]
			if !ok {
				ratio = DefaultPeriodRatio
			}
			a *= math.Pow(ratio, 2.0/3.0)
		}
		orbit := nbody.Orbit{
			A:      a,
			E:      seedEccentricity,
			Pomega: float64(i) * math.Pi / 2,
			L:      float64(i) * math.Pi / 3,
		}
		if err := s.AddOrbit(masses[i], orbit); err != nil {
			return nil, fmt.Errorf("planet %d: %w", i, err)
		}
	}
	s.MoveToCOM()
	return s, nil
}
