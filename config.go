package ecr

// Concurrency selects a Registry's default slot map shard count. A Registry
// takes the same locks in both modes; no lock is elided.
type Concurrency int

const (
	// Sequential defaults to a single slot map shard, for a single mutator
	// goroutine (typical for tests and for single-threaded simulations).
	Sequential Concurrency = iota
	// Parallel defaults to 16 slot map shards, so concurrent inserts and
	// erases spread over independently locked shards.
	Parallel
)

// Config holds the construction-time options of a Registry. Unlike the
// teacher's single package-level `var Config config`, this is owned by each
// Registry instance: a process may host many registries with different
// settings, and nothing here is global mutable state.
type Config struct {
	// SegmentBits is log2 of a column's segment size. Must be in [3, 16].
	SegmentBits uint
	// Concurrency selects Sequential or Parallel mode, which sets the
	// default SlotMapShards; it does not change which locks are taken.
	Concurrency Concurrency
	// SlotMapShards is the number of independent slot map shards; must be a
	// power of two. Defaults to 1 for Sequential, 16 for Parallel.
	SlotMapShards int
	// VersionBits is the number of bits used for a handle's version field.
	// The index field implicitly takes the remaining bits, minus the fixed
	// 8-bit storage-shard field (spec.md §3).
	VersionBits uint
}

// Option mutates a Config during Registry construction.
type Option func(*Config)

// WithSegmentBits sets the column segment size to 1<<bits elements.
func WithSegmentBits(bits uint) Option {
	return func(c *Config) { c.SegmentBits = bits }
}

// WithConcurrency selects Sequential or Parallel mode.
func WithConcurrency(mode Concurrency) Option {
	return func(c *Config) { c.Concurrency = mode }
}

// WithSlotMapShards sets the number of slot map shards. Must be a power of
// two; NewRegistry panics otherwise.
func WithSlotMapShards(shards int) Option {
	return func(c *Config) { c.SlotMapShards = shards }
}

// WithVersionBits sets the width of a handle's version field.
func WithVersionBits(bits uint) Option {
	return func(c *Config) { c.VersionBits = bits }
}

func defaultConfig() Config {
	return Config{
		SegmentBits:   6, // 64 elements per segment
		Concurrency:   Sequential,
		SlotMapShards: 1,
		VersionBits:   24,
	}
}

func (c Config) storageBits() uint {
	return 8
}

func (c Config) indexBits() uint {
	return 64 - c.VersionBits - c.storageBits()
}

func isPowerOfTwo(n int) bool {
	return n > 0 && n&(n-1) == 0
}

func resolveConfig(opts ...Option) Config {
	c := defaultConfig()
	parallelRequested := false
	for _, opt := range opts {
		opt(&c)
		if c.Concurrency == Parallel {
			parallelRequested = true
		}
	}
	if c.SlotMapShards == 1 && parallelRequested {
		c.SlotMapShards = 16
	}
	if c.SegmentBits < 3 || c.SegmentBits > 16 {
		fatal(InvalidIndexError{Index: int(c.SegmentBits), Len: 16})
	}
	if !isPowerOfTwo(c.SlotMapShards) {
		fatal(InvalidIndexError{Index: c.SlotMapShards, Len: -1})
	}
	if c.VersionBits == 0 || c.VersionBits >= 56 {
		fatal(InvalidIndexError{Index: int(c.VersionBits), Len: 56})
	}
	return c
}
