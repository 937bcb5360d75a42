package kernel

import "math"

// FlagWidth is the bit width of an event-flag group's word. It mirrors
// the original source's OS_FLAGS_NBITS compile-time choice (8/16/32/64);
// here it is a Config field validated once at Init instead of a
// preprocessor selection.
type FlagWidth int

const (
	FlagWidth8  FlagWidth = 8
	FlagWidth16 FlagWidth = 16
	FlagWidth32 FlagWidth = 32
	FlagWidth64 FlagWidth = 64
)

func (w FlagWidth) mask() uint64 {
	if w == FlagWidth64 {
		return math.MaxUint64
	}
	return 1<<uint(w) - 1
}

// Config is the kernel's compile-time configuration surface (spec.md §6).
// It is built once (as a Go literal, or generated from YAML by
// cmd/prettyos-configgen - see internal/config) and never mutated after
// Init; nothing in the kernel re-reads it at runtime.
type Config struct {
	TaskCount    int // number of priority slots, including Idle (0) and the PCP marker (1)
	TicksPerSecond int

	MaxECBs       int
	MaxFlagGroups int
	MaxPartitions int

	SemaphoreEnabled bool
	MutexEnabled     bool
	MailboxEnabled   bool
	FlagEnabled      bool
	PartitionEnabled bool

	EDFEnabled bool

	StackOverflowDetection bool

	FlagWordWidth FlagWidth
}

// DefaultConfig returns a Config with every primitive enabled, priority
// scheduling (not EDF), a 64-bit flag word, and 64 priority slots - a
// reasonable starting point for the demo binary and for tests.
func DefaultConfig() Config {
	return Config{
		TaskCount:              64,
		TicksPerSecond:         1000,
		MaxECBs:                32,
		MaxFlagGroups:          8,
		MaxPartitions:          8,
		SemaphoreEnabled:       true,
		MutexEnabled:           true,
		MailboxEnabled:         true,
		FlagEnabled:            true,
		PartitionEnabled:       true,
		EDFEnabled:             false,
		StackOverflowDetection: false,
		FlagWordWidth:          FlagWidth64,
	}
}

func (c Config) validate() Code {
	if c.TaskCount < 3 {
		// slot 0 (Idle) and slot 1 (PCP marker) must both exist, plus
		// room for at least one application task.
		return CodeParam
	}
	switch c.FlagWordWidth {
	case FlagWidth8, FlagWidth16, FlagWidth32, FlagWidth64:
	default:
		return CodeParam
	}
	if c.MaxECBs <= 0 || c.MaxFlagGroups <= 0 || c.MaxPartitions <= 0 {
		return CodeParam
	}
	return CodeNone
}

// SemCountMax is the saturation ceiling for a semaphore's count, taken
// from the count type's compile-time maximum (uint16) rather than a
// runtime sizeof, per spec.md §9.
const SemCountMax uint16 = math.MaxUint16

// IdlePriority and MutexReservedPriority are the two reserved priority
// slots; ordinary tasks occupy LowestAppPriority..TaskCount-1.
const (
	IdlePriority          Priority = 0
	MutexReservedPriority Priority = 1
	LowestAppPriority     Priority = 2
)
