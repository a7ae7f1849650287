package config

import (
	"strings"

	"github.com/spf13/viper"
)

// EnvPrefix namespaces environment overrides, e.g. CELESTIAL_ITERATIONS or
// CELESTIAL_ACCELERATOR_MAX_WAIT.
const EnvPrefix = "CELESTIAL"

// Keys are the settings that flags and the environment may override.
var Keys = []string{
	"scenario",
	"seed",
	"dt",
	"iterations",
	"refinements",
	"sample_every",
	"backend",
	"workers",
	"data_dir",
	"log.level",
	"accelerator.device",
	"accelerator.path",
	"accelerator.base",
	"accelerator.token",
	"accelerator.max_wait",
	"accelerator.keepalive_every",
	"accelerator.poll_interval",
	"accelerator.warmup_idles",
	"accelerator.stop_on_collision",
	"accelerator.steps_per_tick",
	"accelerator.capacity",
}

// NewViper returns a viper instance bound to the CELESTIAL_ environment.
func NewViper() *viper.Viper {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	for _, k := range Keys {
		_ = v.BindEnv(k)
	}
	_ = v.BindEnv("config")
	return v
}

// FromViper layers, lowest first: defaults, the file named by "config" (or
// a preset named by "preset"), then any key set through v.
func FromViper(v *viper.Viper) (*Config, error) {
	cfg := DefaultConfig()

	if name := v.GetString("preset"); name != "" {
		p := GetPreset(name)
		if p == nil {
			return nil, &UnknownPresetError{Name: name}
		}
		cfg = p
	}
	if path := v.GetString("config"); path != "" {
		loaded, err := Load(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	str := func(key string, dst *string) {
		if v.IsSet(key) {
			*dst = v.GetString(key)
		}
	}
	num := func(key string, dst *int) {
		if v.IsSet(key) {
			*dst = v.GetInt(key)
		}
	}

	str("scenario", &cfg.Scenario)
	str("data_dir", &cfg.DataDir)
	str("backend", &cfg.Backend)
	str("log.level", &cfg.Log.Level)
	str("accelerator.device", &cfg.Accelerator.Device)
	str("accelerator.path", &cfg.Accelerator.Path)
	num("iterations", &cfg.Iterations)
	num("refinements", &cfg.Refinements)
	num("sample_every", &cfg.SampleEvery)
	num("workers", &cfg.Workers)
	num("accelerator.max_wait", &cfg.Accelerator.MaxWait)
	num("accelerator.keepalive_every", &cfg.Accelerator.KeepAliveEvery)
	num("accelerator.warmup_idles", &cfg.Accelerator.WarmupIdles)
	num("accelerator.capacity", &cfg.Accelerator.Capacity)

	if v.IsSet("seed") {
		cfg.Seed = v.GetInt64("seed")
	}
	if v.IsSet("dt") {
		cfg.Dt = float32(v.GetFloat64("dt"))
	}
	if v.IsSet("accelerator.base") {
		cfg.Accelerator.Base = v.GetInt64("accelerator.base")
	}
	if v.IsSet("accelerator.token") {
		cfg.Accelerator.Token = v.GetUint32("accelerator.token")
	}
	if v.IsSet("accelerator.poll_interval") {
		cfg.Accelerator.PollInterval = v.GetDuration("accelerator.poll_interval")
	}
	if v.IsSet("accelerator.stop_on_collision") {
		cfg.Accelerator.StopOnCollision = v.GetBool("accelerator.stop_on_collision")
	}
	if v.IsSet("accelerator.steps_per_tick") {
		cfg.Accelerator.StepsPerTick = v.GetUint32("accelerator.steps_per_tick")
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

type UnknownPresetError struct {
	Name string
}

func (e *UnknownPresetError) Error() string {
	return "unknown preset " + e.Name + " (available: " + strings.Join(ListPresets(), ", ") + ")"
}
