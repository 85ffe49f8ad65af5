package config

import (
	"errors"
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/san-kum/resodyn/internal/integrators"
)

const (
	DefaultG           = 1.0
	DefaultA10         = 1.0
	DefaultMethod      = "dopri5"
	DefaultRTol        = 1e-10
	DefaultATol        = 1e-12
	DefaultMaxSteps    = 10000
	DefaultInitialStep = 1e-3
	DefaultFixedStep   = 1e-3

	// EnvPrefix prefixes every environment override, e.g. RESODYN_SYSTEM_G.
	EnvPrefix = "RESODYN_"
)

var ErrInvalidConfig = errors.New("config: invalid configuration")

type Config struct {
	System         SystemConfig      `yaml:"system"`
	Integrator     IntegratorConfig  `yaml:"integrator"`
	Resonances     []ResonanceConfig `yaml:"resonances"`
	AverageSynodic bool              `yaml:"average_synodic"`
	Log            LogConfig         `yaml:"log"`
}

// envOverrides is the part of Config that environment variables may set.
type envOverrides struct {
	System         SystemConfig     `envPrefix:"SYSTEM_"`
	Integrator     IntegratorConfig `envPrefix:"INTEGRATOR_"`
	AverageSynodic bool             `env:"AVERAGE_SYNODIC"`
	Log            LogConfig        `envPrefix:"LOG_"`
}

// SystemConfig describes a star with planets on the a10 reference orbit scale.
type SystemConfig struct {
	G      float64   `yaml:"g" env:"G"`
	Masses []float64 `yaml:"masses" env:"MASSES" envSeparator:","`
	A10    float64   `yaml:"a10" env:"A10"`
}

type IntegratorConfig struct {
	Method      string  `yaml:"method" env:"METHOD"`
	RTol        float64 `yaml:"rtol" env:"RTOL"`
	ATol        float64 `yaml:"atol" env:"ATOL"`
	MaxSteps    int     `yaml:"max_steps" env:"MAX_STEPS"`
	InitialStep float64 `yaml:"initial_step" env:"INITIAL_STEP"`
	FixedStep   float64 `yaml:"fixed_step" env:"FIXED_STEP"`
}

// ResonanceConfig selects the j:j-k resonance between adjacent bodies Inner
// and Outer. A nil L adds every subterm.
type ResonanceConfig struct {
	Inner int  `yaml:"inner"`
	Outer int  `yaml:"outer"`
	J     int  `yaml:"j"`
	K     int  `yaml:"k"`
	L     *int `yaml:"l,omitempty"`
}

type LogConfig struct {
	Level      string `yaml:"level" env:"LEVEL"`
	Output     string `yaml:"output" env:"OUTPUT"`
	File       string `yaml:"file" env:"FILE"`
	MaxSize    int    `yaml:"max_size" env:"MAX_SIZE"`
	MaxBackups int    `yaml:"max_backups" env:"MAX_BACKUPS"`
	MaxAge     int    `yaml:"max_age" env:"MAX_AGE"`
	Compress   bool   `yaml:"compress" env:"COMPRESS"`
}

// Settings converts the section into integrator settings, keeping the
// driver's default minimum step.
func (c IntegratorConfig) Settings() integrators.Settings {
	s := integrators.DefaultSettings()
	s.Method = integrators.Method(c.Method)
	s.RTol = c.RTol
	s.ATol = c.ATol
	s.MaxSteps = c.MaxSteps
	s.InitialStep = c.InitialStep
	s.FixedStep = c.FixedStep
	return s
}

func DefaultConfig() *Config {
	return &Config{
		System: SystemConfig{
			G:      DefaultG,
			Masses: []float64{1, 1e-5, 1e-5},
			A10:    DefaultA10,
		},
		Integrator: IntegratorConfig{
			Method:      DefaultMethod,
			RTol:        DefaultRTol,
			ATol:        DefaultATol,
			MaxSteps:    DefaultMaxSteps,
			InitialStep: DefaultInitialStep,
			FixedStep:   DefaultFixedStep,
		},
		Log: LogConfig{
			Level:      "info",
			Output:     "console",
			File:       "resodyn.log",
			MaxSize:    10,
			MaxBackups: 3,
			MaxAge:     28,
		},
	}
}

// Load reads a YAML file over the defaults and then applies RESODYN_*
// environment overrides.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, err
	}
	if err := ApplyEnv(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// ApplyEnv overrides cfg from RESODYN_* environment variables. Unset
// variables leave the existing values alone.
func ApplyEnv(cfg *Config) error {
	return applyEnv(cfg, nil)
}

// ApplyEnvFile is ApplyEnv with the variables of a dotenv file filled in
// underneath the process environment.
func ApplyEnvFile(cfg *Config, path string) error {
	vars, err := godotenv.Read(path)
	if err != nil {
		return fmt.Errorf("read env file: %w", err)
	}
	for k, v := range env.ToMap(os.Environ()) {
		vars[k] = v
	}
	return applyEnv(cfg, vars)
}

// applyEnv reads from environ, or from the process environment when nil.
func applyEnv(cfg *Config, environ map[string]string) error {
	o := envOverrides{
		System:         cfg.System,
		Integrator:     cfg.Integrator,
		AverageSynodic: cfg.AverageSynodic,
		Log:            cfg.Log,
	}
	if err := env.ParseWithOptions(&o, env.Options{Prefix: EnvPrefix, Environment: environ}); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	cfg.System = o.System
	cfg.Integrator = o.Integrator
	cfg.AverageSynodic = o.AverageSynodic
	cfg.Log = o.Log
	return nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

func (c *Config) Validate() error {
	if c.System.G <= 0 {
		return fmt.Errorf("%w: g must be positive", ErrInvalidConfig)
	}
	if len(c.System.Masses) < 2 {
		return fmt.Errorf("%w: need a star and at least one planet", ErrInvalidConfig)
	}
	for i, m := range c.System.Masses {
		if m <= 0 {
			return fmt.Errorf("%w: mass %d must be positive", ErrInvalidConfig, i)
		}
	}
	if c.System.A10 <= 0 {
		return fmt.Errorf("%w: a10 must be positive", ErrInvalidConfig)
	}

	if err := c.Integrator.Settings().Validate(); err != nil {
		return fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}

	planets := len(c.System.Masses) - 1
	for i, r := range c.Resonances {
		if r.Inner < 1 || r.Outer > planets || r.Outer != r.Inner+1 {
			return fmt.Errorf("%w: resonance %d: bodies %d,%d are not adjacent planets", ErrInvalidConfig, i, r.Inner, r.Outer)
		}
		if r.K < 1 || r.J <= r.K {
			return fmt.Errorf("%w: resonance %d: need j > k >= 1", ErrInvalidConfig, i)
		}
		if r.L != nil && (*r.L < 0 || *r.L > r.K) {
			return fmt.Errorf("%w: resonance %d: need 0 <= l <= k", ErrInvalidConfig, i)
		}
	}
	return nil
}
