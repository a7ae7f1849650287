package config

import (
	"errors"
	"fmt"
	"math"
	"os"
	"time"

	"github.com/san-kum/celestial/internal/accel"
	"github.com/san-kum/celestial/internal/emulator"
	"github.com/san-kum/celestial/internal/mmio"
	"github.com/san-kum/celestial/internal/physics"
	"github.com/san-kum/celestial/internal/validate"
	"gopkg.in/yaml.v3"
)

const (
	DefaultScenario   = "inner"
	DefaultDt         = 86400
	DefaultIterations = 365
	DefaultDataDir    = "./data"
	DefaultLogLevel   = "info"
	DefaultDevice     = "emulator"
	DefaultBackend    = "serial"
)

type Config struct {
	Scenario    string            `yaml:"scenario"`
	Seed        int64             `yaml:"seed"`
	Dt          float32           `yaml:"dt"`
	Iterations  int               `yaml:"iterations"`
	Refinements int               `yaml:"refinements"`
	SampleEvery int               `yaml:"sample_every"`
	// Backend is "serial" or "cpu"; Workers sizes the cpu pool, 0 for one
	// per CPU.
	Backend     string            `yaml:"backend"`
	Workers     int               `yaml:"workers"`
	DataDir     string            `yaml:"data_dir"`
	Tolerances  ToleranceConfig   `yaml:"tolerances"`
	Accelerator AcceleratorConfig `yaml:"accelerator"`
	Log         LogConfig         `yaml:"log"`
}

type ToleranceConfig struct {
	Tight          float64 `yaml:"tight"`
	Loose          float64 `yaml:"loose"`
	SmallMagnitude float64 `yaml:"small_magnitude"`
}

type AcceleratorConfig struct {
	// Device is "emulator" or "mmio".
	Device string `yaml:"device"`
	Path   string `yaml:"path"`
	Base   int64  `yaml:"base"`
	// Token is the lock token. Zero draws a random one.
	Token           uint32        `yaml:"token"`
	MaxWait         int           `yaml:"max_wait"`
	KeepAliveEvery  int           `yaml:"keepalive_every"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	WarmupIdles     int           `yaml:"warmup_idles"`
	StopOnCollision bool          `yaml:"stop_on_collision"`
	StepsPerTick    uint32        `yaml:"steps_per_tick"`
	// Capacity is the number of BPEs on the device.
	Capacity        int           `yaml:"capacity"`
	Scaling         accel.Scaling `yaml:"scaling"`
	Masks           MaskConfig    `yaml:"masks"`
}

// MaskConfig enables a random readback mask per channel.
type MaskConfig struct {
	X  bool `yaml:"x"`
	Y  bool `yaml:"y"`
	Z  bool `yaml:"z"`
	DX bool `yaml:"dx"`
	DY bool `yaml:"dy"`
	DZ bool `yaml:"dz"`
}

func (m MaskConfig) Policy() accel.MaskPolicy {
	var p accel.MaskPolicy
	p[accel.ChannelX] = m.X
	p[accel.ChannelY] = m.Y
	p[accel.ChannelZ] = m.Z
	p[accel.ChannelDX] = m.DX
	p[accel.ChannelDY] = m.DY
	p[accel.ChannelDZ] = m.DZ
	return p
}

func maskConfig(p accel.MaskPolicy) MaskConfig {
	return MaskConfig{
		X: p[accel.ChannelX], Y: p[accel.ChannelY], Z: p[accel.ChannelZ],
		DX: p[accel.ChannelDX], DY: p[accel.ChannelDY], DZ: p[accel.ChannelDZ],
	}
}

type LogConfig struct {
	Level string `yaml:"level"`
}

func DefaultConfig() *Config {
	return &Config{
		Scenario:    DefaultScenario,
		Seed:        1,
		Dt:          DefaultDt,
		Iterations:  DefaultIterations,
		Refinements: physics.DefaultRefinements,
		SampleEvery: 1,
		Backend:     DefaultBackend,
		DataDir:     DefaultDataDir,
		Tolerances: ToleranceConfig{
			Tight:          validate.Tight,
			Loose:          validate.Loose,
			SmallMagnitude: validate.SmallMagnitude,
		},
		Accelerator: AcceleratorConfig{
			Device:         DefaultDevice,
			Path:           mmio.DefaultPath,
			MaxWait:        accel.DefaultMaxWait,
			KeepAliveEvery: 1,
			WarmupIdles:    accel.AutoWarmup,
			StepsPerTick:   1,
			Capacity:       emulator.DefaultCapacity,
			Scaling:        accel.DefaultScaling(),
			Masks:          maskConfig(accel.DefaultMaskPolicy()),
		},
		Log: LogConfig{Level: DefaultLogLevel},
	}
}

func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}
	cfg := DefaultConfig()
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}
	return cfg, nil
}

func Save(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0644)
}

// Validate reports every invalid field at once.
func (c *Config) Validate() error {
	var errs []error
	if c.Scenario == "" {
		errs = append(errs, errors.New("scenario must be set"))
	}
	if c.Dt <= 0 {
		errs = append(errs, fmt.Errorf("dt must be positive, got %g", c.Dt))
	}
	if c.Iterations < 0 || uint64(c.Iterations) > math.MaxUint32 {
		errs = append(errs, fmt.Errorf("iterations must be in [0, %d], got %d", uint32(math.MaxUint32), c.Iterations))
	}
	if c.Refinements < 0 {
		errs = append(errs, fmt.Errorf("refinements must be non-negative, got %d", c.Refinements))
	}
	if c.SampleEvery < 0 {
		errs = append(errs, fmt.Errorf("sample_every must be non-negative, got %d", c.SampleEvery))
	}
	switch c.Backend {
	case "serial", "cpu":
	default:
		errs = append(errs, fmt.Errorf("unknown backend %q (want serial or cpu)", c.Backend))
	}
	if c.Workers < 0 {
		errs = append(errs, fmt.Errorf("workers must be non-negative, got %d", c.Workers))
	}
	for name, tol := range map[string]float64{
		"tight":           c.Tolerances.Tight,
		"loose":           c.Tolerances.Loose,
		"small_magnitude": c.Tolerances.SmallMagnitude,
	} {
		if tol <= 0 {
			errs = append(errs, fmt.Errorf("tolerance %s must be positive, got %g", name, tol))
		}
	}

	a := c.Accelerator
	switch a.Device {
	case "emulator", "mmio":
	default:
		errs = append(errs, fmt.Errorf("unknown accelerator device %q (want emulator or mmio)", a.Device))
	}
	if a.Token > accel.TokenMask {
		errs = append(errs, fmt.Errorf("token %#x does not fit in 27 bits", a.Token))
	}
	if a.Capacity < 2 {
		errs = append(errs, fmt.Errorf("capacity must be at least 2, got %d", a.Capacity))
	}
	if a.MaxWait <= 0 {
		errs = append(errs, fmt.Errorf("max_wait must be positive, got %d", a.MaxWait))
	}
	if a.PollInterval < 0 {
		errs = append(errs, fmt.Errorf("poll_interval must be non-negative, got %s", a.PollInterval))
	}
	if a.Scaling.G <= 0 || a.Scaling.MassFactor <= 0 || a.Scaling.LengthFactor <= 0 {
		errs = append(errs, fmt.Errorf("scaling factors must be positive, got %+v", a.Scaling))
	}

	return errors.Join(errs...)
}

// Kernel is the software gravity kernel for this configuration.
func (c *Config) Kernel() physics.Kernel {
	return physics.Kernel{G: physics.G, Refinements: c.Refinements}
}

// PollPolicy is the accelerator wait policy for this configuration.
func (c *Config) PollPolicy() accel.PollPolicy {
	return accel.PollPolicy{
		MaxWait:        c.Accelerator.MaxWait,
		WarmupIdles:    c.Accelerator.WarmupIdles,
		KeepAliveEvery: c.Accelerator.KeepAliveEvery,
		Interval:       c.Accelerator.PollInterval,
	}
}
