package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/terramodulus/ferricia/engine"
	"github.com/terramodulus/ferricia/fetch"
	"github.com/terramodulus/ferricia/registry"
)

// Config is the environment-backed engine configuration.
type Config struct {
	// Profile selects the adapter set: "client" or "server".
	Profile string `env:"FERRICIA_PROFILE" envDefault:"client"`

	// TickRate is loop ticks per second.
	TickRate int `env:"FERRICIA_TICK_RATE" envDefault:"60"`

	// PhysicsRate is fixed physics steps per second.
	PhysicsRate int `env:"FERRICIA_PHYSICS_RATE" envDefault:"120"`

	// MaxCatchUpSteps bounds physics catch-up within one tick.
	MaxCatchUpSteps int `env:"FERRICIA_MAX_CATCHUP_STEPS" envDefault:"5"`

	// QueueCapacity bounds the command queue.
	QueueCapacity int `env:"FERRICIA_QUEUE_CAPACITY" envDefault:"1024"`

	// WaitTimeout is the default synchronous-wait window.
	WaitTimeout time.Duration `env:"FERRICIA_WAIT_TIMEOUT" envDefault:"2s"`

	// Per-kind live-resource caps. Zero means the registry default.
	PhysicsCap int `env:"FERRICIA_PHYSICS_CAP"`
	AudioCap   int `env:"FERRICIA_AUDIO_CAP"`
	ComputeCap int `env:"FERRICIA_COMPUTE_CAP"`
	RenderCap  int `env:"FERRICIA_RENDER_CAP"`

	// Fetch limits.
	FetchConcurrency int     `env:"FERRICIA_FETCH_CONCURRENCY" envDefault:"4"`
	FetchRatePerSec  float64 `env:"FERRICIA_FETCH_RATE" envDefault:"8"`

	// LogLevel is a zap level name; LogDev switches to the console
	// encoder with colored levels.
	LogLevel string `env:"FERRICIA_LOG_LEVEL" envDefault:"info"`
	LogDev   bool   `env:"FERRICIA_LOG_DEV" envDefault:"false"`
}

// Load reads the configuration from the environment.
func Load() (Config, error) {
	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return Config{}, fmt.Errorf("parse environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.TickRate <= 0 {
		return fmt.Errorf("tick rate must be positive, got %d", c.TickRate)
	}
	if c.PhysicsRate < c.TickRate {
		return fmt.Errorf("physics rate %d cannot be below tick rate %d", c.PhysicsRate, c.TickRate)
	}
	switch c.Profile {
	case "client", "server":
	default:
		return fmt.Errorf("unknown profile %q", c.Profile)
	}
	return nil
}

// Server reports whether the server adapter profile is selected.
func (c Config) Server() bool {
	return c.Profile == "server"
}

// Engine translates the timing knobs into the loop's config.
func (c Config) Engine() engine.Config {
	return engine.Config{
		TickInterval:    time.Second / time.Duration(c.TickRate),
		PhysicsStep:     time.Second / time.Duration(c.PhysicsRate),
		MaxCatchUpSteps: c.MaxCatchUpSteps,
	}
}

// Caps translates the per-kind caps into the registry's config.
func (c Config) Caps() registry.Caps {
	return registry.Caps{
		Physics: c.PhysicsCap,
		Audio:   c.AudioCap,
		Compute: c.ComputeCap,
		Render:  c.RenderCap,
	}
}

// Fetch translates the download limits into the fetcher's config.
func (c Config) Fetch() fetch.Config {
	return fetch.Config{
		Concurrency: c.FetchConcurrency,
		RatePerSec:  c.FetchRatePerSec,
	}
}

// NewLogger builds a zap logger per the configured level and mode.
func (c Config) NewLogger() (*zap.Logger, error) {
	var level zapcore.Level
	if err := level.Set(c.LogLevel); err != nil {
		return nil, fmt.Errorf("log level %q: %w", c.LogLevel, err)
	}

	zc := zap.NewProductionConfig()
	if c.LogDev {
		zc = zap.NewDevelopmentConfig()
		zc.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}
	zc.Level = zap.NewAtomicLevelAt(level)
	return zc.Build()
}
