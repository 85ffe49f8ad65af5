package config

import "sort"

// Presets are two-planet systems sitting at a first or second order
// resonance. Each adds every subterm of the named resonance.
var Presets = map[string]*Config{
	"2:1": twoPlanet(2, 1),
	"3:2": twoPlanet(3, 1),
	"5:3": twoPlanet(5, 2),
	"3:1": twoPlanet(3, 2),
	"5:2": twoPlanet(5, 3),
}

func twoPlanet(j, k int) *Config {
	cfg := DefaultConfig()
	cfg.Resonances = []ResonanceConfig{{Inner: 1, Outer: 2, J: j, K: k}}
	return cfg
}

// GetPreset returns a copy of the named preset, or nil.
func GetPreset(name string) *Config {
	p, ok := Presets[name]
	if !ok {
		return nil
	}
	cfg := *p
	cfg.System.Masses = append([]float64(nil), p.System.Masses...)
	cfg.Resonances = append([]ResonanceConfig(nil), p.Resonances...)
	return &cfg
}

func ListPresets() []string {
	names := make([]string, 0, len(Presets))
	for name := range Presets {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
