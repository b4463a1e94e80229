package scoretaker

import (
	"fmt"
	"strings"
	"time"
)

// Config holds configuration for a simulated competition.
type Config struct {
	BaseURL     string        // Base URL of the service
	Timeout     time.Duration // HTTP request timeout
	Workers     int           // Number of concurrent workers
	Competitors int           // Number of competitors to register
	EventCode   string        // Event code, e.g. "333"
	Proceed     float64       // Advancement from round 1: a count or a fraction in (0,1)
	Cutoff      float64       // Round 1 cutoff in seconds, 0 for none
	TimeLimit   float64       // Time limit in seconds for every round, 0 for none
	DNFRate     float64       // Probability of a DNF per attempt
	Seed        uint64        // Random seed, 0 for a random one
	Verbose     bool          // Log every submission
}

// DefaultConfig returns a small two round 3x3x3 simulation.
func DefaultConfig() Config {
	return Config{
		BaseURL:     "http://localhost:9080",
		Timeout:     10 * time.Second,
		Workers:     8,
		Competitors: 32,
		EventCode:   "333",
		Proceed:     0.5,
		DNFRate:     0.04,
	}
}

// Validate checks the simulation parameters.
func (c Config) Validate() error {
	switch {
	case strings.TrimSpace(c.BaseURL) == "":
		return fmt.Errorf("%w: base url is required", ErrInvalidConfig)
	case c.Workers < 1:
		return fmt.Errorf("%w: workers must be at least 1", ErrInvalidConfig)
	case c.Competitors < 2:
		return fmt.Errorf("%w: at least 2 competitors are needed", ErrInvalidConfig)
	case c.Proceed <= 0:
		return fmt.Errorf("%w: proceed must be positive", ErrInvalidConfig)
	case c.Proceed >= 1 && c.Proceed != float64(int(c.Proceed)):
		return fmt.Errorf("%w: proceed must be a whole count or a fraction below 1", ErrInvalidConfig)
	case c.Cutoff < 0 || c.TimeLimit < 0:
		return fmt.Errorf("%w: cutoff and time limit must not be negative", ErrInvalidConfig)
	case c.TimeLimit > 0 && c.Cutoff > 0 && c.TimeLimit <= c.Cutoff:
		return fmt.Errorf("%w: time limit must exceed the cutoff", ErrInvalidConfig)
	case c.DNFRate < 0 || c.DNFRate >= 1:
		return fmt.Errorf("%w: dnf rate must be in [0,1)", ErrInvalidConfig)
	}
	return nil
}
