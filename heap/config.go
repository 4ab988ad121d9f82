package heap

import (
	"fmt"

	"github.com/hupe1980/procheap/term"
)

const (
	// DefaultInitialYoungWords is the semispace capacity of a new heap.
	DefaultInitialYoungWords = 233
	// DefaultGrowthCeilingWords caps the footprint of one heap (128 MiB).
	DefaultGrowthCeilingWords = 1 << 24
	// DefaultLargeObjectThresholdBytes routes objects of 4 KiB and more to the
	// large-object area.
	DefaultLargeObjectThresholdBytes = 4096
	// DefaultPromotionAge is the number of minor collections an object
	// survives in the young generation before it is promoted.
	DefaultPromotionAge = 2

	minYoungWords = 8
)

// Config holds the per-process heap parameters supplied at spawn.
type Config struct {
	// InitialYoungWords is the capacity of each young semispace.
	// If 0, defaults to DefaultInitialYoungWords.
	InitialYoungWords int

	// GrowthCeilingWords bounds the heap footprint: young capacity plus old
	// generation usage plus large-object words. Young capacity doubles until
	// this ceiling; an allocation that cannot fit under it after a major
	// collection fails with ErrAllocationExhausted.
	//
	// The footprint counts one semispace and only the used part of the old
	// generation. The spare semispace and unused old capacity are not counted,
	// and promotion grows the old generation without consulting the ceiling,
	// so reserved memory can reach about three times the ceiling while a
	// collection is running. Size memory limits accordingly.
	// If 0, defaults to DefaultGrowthCeilingWords.
	GrowthCeilingWords int

	// LargeObjectThresholdBytes is the object size at or above which an
	// allocation bypasses the young generation.
	// If 0, defaults to DefaultLargeObjectThresholdBytes.
	LargeObjectThresholdBytes int

	// PromotionAge is the number of minor collections an object survives
	// before it moves to the old generation.
	// If 0, defaults to DefaultPromotionAge.
	PromotionAge int

	// OldInitialWords is the initial old generation capacity.
	// If 0, defaults to InitialYoungWords.
	OldInitialWords int
}

// DefaultConfig returns the default heap parameters.
func DefaultConfig() Config {
	return Config{}.withDefaults()
}

func (c Config) withDefaults() Config {
	if c.InitialYoungWords == 0 {
		c.InitialYoungWords = DefaultInitialYoungWords
	}
	if c.GrowthCeilingWords == 0 {
		c.GrowthCeilingWords = DefaultGrowthCeilingWords
	}
	if c.LargeObjectThresholdBytes == 0 {
		c.LargeObjectThresholdBytes = DefaultLargeObjectThresholdBytes
	}
	if c.PromotionAge == 0 {
		c.PromotionAge = DefaultPromotionAge
	}
	if c.OldInitialWords == 0 {
		c.OldInitialWords = c.InitialYoungWords
	}
	return c
}

// Validate reports the first invalid parameter, after applying defaults.
func (c Config) Validate() error {
	c = c.withDefaults()
	switch {
	case c.InitialYoungWords < minYoungWords:
		return fmt.Errorf("%w: InitialYoungWords %d < %d", ErrInvalidConfig, c.InitialYoungWords, minYoungWords)
	case c.GrowthCeilingWords < c.InitialYoungWords:
		return fmt.Errorf("%w: GrowthCeilingWords %d < InitialYoungWords %d", ErrInvalidConfig, c.GrowthCeilingWords, c.InitialYoungWords)
	case c.LargeObjectThresholdBytes < 0:
		return fmt.Errorf("%w: LargeObjectThresholdBytes %d", ErrInvalidConfig, c.LargeObjectThresholdBytes)
	case c.PromotionAge < 0 || c.PromotionAge > term.MaxAge:
		return fmt.Errorf("%w: PromotionAge %d outside [1,%d]", ErrInvalidConfig, c.PromotionAge, term.MaxAge)
	case c.OldInitialWords < 0:
		return fmt.Errorf("%w: OldInitialWords %d", ErrInvalidConfig, c.OldInitialWords)
	}
	return nil
}
