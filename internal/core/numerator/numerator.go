// Package numerator provides domain contracts for document auto-numbering.
// Implementations live in the infrastructure layer.
package numerator

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Config holds numbering configuration.
type Config struct {
	// Prefix added to all numbers (e.g., "SC" for receipts)
	Prefix string

	// IncludeYear adds year to the number
	IncludeYear bool

	// PadWidth is the minimum number width (default 5)
	PadWidth int
}

// DefaultConfig returns sensible defaults.
func DefaultConfig(prefix string) Config {
	return Config{
		Prefix:      prefix,
		IncludeYear: true,
		PadWidth:    5,
	}
}

// Format renders a sequence value according to the config.
// Pattern: PREFIX-YEAR-XXXXX (e.g., SC-2024-00001).
func (c Config) Format(period time.Time, value int64) string {
	if c.PadWidth <= 0 {
		c.PadWidth = 5
	}
	if c.IncludeYear {
		return fmt.Sprintf("%s-%d-%0*d", c.Prefix, period.Year(), c.PadWidth, value)
	}
	return fmt.Sprintf("%s-%0*d", c.Prefix, c.PadWidth, value)
}

// Generator generates sequential document numbers.
type Generator interface {
	// GetNextNumber generates the next document number for the period.
	GetNextNumber(ctx context.Context, cfg Config, period time.Time) (string, error)
}

// MemoryGenerator is an in-process Generator keeping one counter per
// prefix+year. Numbers restart at 1 each year and on process restart;
// it is meant for the in-memory storage mode and for tests.
type MemoryGenerator struct {
	mu       sync.Mutex
	counters map[string]int64
}

// NewMemoryGenerator creates an empty in-process generator.
func NewMemoryGenerator() *MemoryGenerator {
	return &MemoryGenerator{counters: make(map[string]int64)}
}

// GetNextNumber implements Generator.
func (g *MemoryGenerator) GetNextNumber(_ context.Context, cfg Config, period time.Time) (string, error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	key := fmt.Sprintf("%s-%d", cfg.Prefix, period.Year())
	g.counters[key]++
	return cfg.Format(period, g.counters[key]), nil
}

// Ensure compile-time interface compliance.
var _ Generator = (*MemoryGenerator)(nil)
