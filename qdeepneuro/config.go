package qdeepneuro

import (
	"math"

	"github.com/pkg/errors"
)

// Config holds the learner's hyperparameters. Everything except Epsilon is fixed after construction.
type Config struct {
	BoardSize    int
	Channels     int
	MemorySize   int
	BatchSize    int
	HiddenSize   int
	Gamma        float64
	Epsilon      float64
	EpsilonMin   float64
	EpsilonDecay float64
	LearningRate float64
	Seed         uint64
}

func DefaultConfig() Config {
	return Config{
		BoardSize:    15,
		Channels:     3,
		MemorySize:   10000,
		BatchSize:    64,
		HiddenSize:   256,
		Gamma:        0.99,
		Epsilon:      1.0,
		EpsilonMin:   0.01,
		EpsilonDecay: 0.995,
		LearningRate: 0.001,
		Seed:         1,
	}
}

func (c Config) ActionSize() int {
	return c.BoardSize * c.BoardSize
}

func (c Config) InputSize() int {
	return c.BoardSize * c.BoardSize * c.Channels
}

func (c Config) Validate() error {
	switch {
	case c.BoardSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "board size %d", c.BoardSize)
	case c.Channels < 1:
		return errors.Wrapf(ErrInvalidConfig, "channels %d", c.Channels)
	case c.MemorySize < 1:
		return errors.Wrapf(ErrInvalidConfig, "memory size %d", c.MemorySize)
	case c.BatchSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "batch size %d", c.BatchSize)
	case c.HiddenSize < 1:
		return errors.Wrapf(ErrInvalidConfig, "hidden size %d", c.HiddenSize)
	case math.IsNaN(c.Gamma) || c.Gamma < 0 || c.Gamma > 1:
		return errors.Wrapf(ErrInvalidConfig, "gamma %v not in [0,1]", c.Gamma)
	case math.IsNaN(c.EpsilonMin) || c.EpsilonMin < 0 || c.EpsilonMin > 1:
		return errors.Wrapf(ErrInvalidConfig, "epsilon min %v not in [0,1]", c.EpsilonMin)
	case math.IsNaN(c.Epsilon) || c.Epsilon < c.EpsilonMin || c.Epsilon > 1:
		return errors.Wrapf(ErrInvalidConfig, "epsilon %v not in [%v,1]", c.Epsilon, c.EpsilonMin)
	case math.IsNaN(c.EpsilonDecay) || c.EpsilonDecay <= 0 || c.EpsilonDecay > 1:
		return errors.Wrapf(ErrInvalidConfig, "epsilon decay %v not in (0,1]", c.EpsilonDecay)
	case math.IsNaN(c.LearningRate) || c.LearningRate <= 0:
		return errors.Wrapf(ErrInvalidConfig, "learning rate %v", c.LearningRate)
	}
	return nil
}
