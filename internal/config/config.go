// Package config loads the command-line tool's settings with viper from
// defaults, an optional YAML file and MDARRAY_* environment variables.
package config

import (
	"errors"
	"fmt"
	"runtime"
	"strings"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/born-ml/mdarray/internal/parallel"
)

// EnvPrefix prefixes environment overrides: MDARRAY_LOG_LEVEL sets log.level.
const EnvPrefix = "MDARRAY"

// ErrInvalid is returned for configurations that fail validation.
var ErrInvalid = errors.New("config: invalid configuration")

// Config is the effective configuration.
type Config struct {
	Log      LogConfig      `mapstructure:"log" yaml:"log"`
	Device   DeviceConfig   `mapstructure:"device" yaml:"device"`
	Parallel ParallelConfig `mapstructure:"parallel" yaml:"parallel"`
	Stress   StressConfig   `mapstructure:"stress" yaml:"stress"`
}

// LogConfig selects the logrus level and formatter.
type LogConfig struct {
	Level  string `mapstructure:"level" yaml:"level"`
	Format string `mapstructure:"format" yaml:"format"`
}

// DeviceConfig selects the device backend. Capacity 0 means unbounded.
type DeviceConfig struct {
	Backend  string `mapstructure:"backend" yaml:"backend"`
	Capacity int    `mapstructure:"capacity" yaml:"capacity"`
}

// ParallelConfig tunes the fork-join helpers. Workers 0 means one per CPU.
type ParallelConfig struct {
	Workers  int `mapstructure:"workers" yaml:"workers"`
	MinChunk int `mapstructure:"min_chunk" yaml:"min_chunk"`
}

// StressConfig drives the stress command.
type StressConfig struct {
	Workers int   `mapstructure:"workers" yaml:"workers"`
	Rounds  int   `mapstructure:"rounds" yaml:"rounds"`
	Shape   []int `mapstructure:"shape" yaml:"shape"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Log:      LogConfig{Level: "warn", Format: "text"},
		Device:   DeviceConfig{Backend: "emulated"},
		Parallel: ParallelConfig{MinChunk: parallel.DefaultConfig().MinChunkSize},
		Stress:   StressConfig{Workers: runtime.NumCPU(), Rounds: 100, Shape: []int{100, 100}},
	}
}

// New returns a viper instance with defaults and environment binding set up.
func New() *viper.Viper {
	v := viper.New()
	d := Default()
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("device.backend", d.Device.Backend)
	v.SetDefault("device.capacity", d.Device.Capacity)
	v.SetDefault("parallel.workers", d.Parallel.Workers)
	v.SetDefault("parallel.min_chunk", d.Parallel.MinChunk)
	v.SetDefault("stress.workers", d.Stress.Workers)
	v.SetDefault("stress.rounds", d.Stress.Rounds)
	v.SetDefault("stress.shape", d.Stress.Shape)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	return v
}

// Load reads path (if not empty) into v and returns the validated result.
func Load(v *viper.Viper, path string) (*Config, error) {
	if path != "" {
		v.SetConfigFile(path)
		v.SetConfigType("yaml")
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	switch c.Log.Format {
	case "text", "json":
	default:
		return fmt.Errorf("%w: log.format %q (want text or json)", ErrInvalid, c.Log.Format)
	}
	if c.Device.Capacity < 0 {
		return fmt.Errorf("%w: device.capacity %d", ErrInvalid, c.Device.Capacity)
	}
	if c.Parallel.Workers < 0 || c.Parallel.MinChunk < 1 {
		return fmt.Errorf("%w: parallel workers %d, min_chunk %d", ErrInvalid, c.Parallel.Workers, c.Parallel.MinChunk)
	}
	if c.Stress.Workers < 1 || c.Stress.Rounds < 1 {
		return fmt.Errorf("%w: stress workers %d, rounds %d", ErrInvalid, c.Stress.Workers, c.Stress.Rounds)
	}
	if len(c.Stress.Shape) < 1 || len(c.Stress.Shape) > 6 {
		return fmt.Errorf("%w: stress.shape needs 1 to 6 dimensions, got %v", ErrInvalid, c.Stress.Shape)
	}
	for _, n := range c.Stress.Shape {
		if n < 0 {
			return fmt.Errorf("%w: stress.shape %v", ErrInvalid, c.Stress.Shape)
		}
	}
	return nil
}

// ParallelConfig converts the parallel section for the parallel package.
func (c *Config) ParallelConfig() parallel.Config {
	cfg := parallel.DefaultConfig()
	if c.Parallel.Workers > 0 {
		cfg.NumWorkers = c.Parallel.Workers
		cfg.Enabled = c.Parallel.Workers > 1
	}
	cfg.MinChunkSize = c.Parallel.MinChunk
	return cfg
}

// YAML renders the configuration.
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}
