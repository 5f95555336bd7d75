package session

import "time"

// Options carries the configuration knobs spec.md S6 enumerates:
// timeout, cache_capacity, block_size_assumed, and lun.
type Options struct {
	Timeout          time.Duration
	CacheCapacity    int
	BlockSizeAssumed int
	LUN              uint8
}

// Option mutates Options; functional-options style matching the teacher
// repo's device.NewDeviceBuilder chained-configuration idiom.
type Option func(*Options)

func defaultOptions() Options {
	return Options{
		Timeout:          1 * time.Second,
		CacheCapacity:    128,
		BlockSizeAssumed: 512,
		LUN:              0,
	}
}

// WithTimeout sets the timeout (default 1s) Device applies to each Read,
// Write, Flush and Close call as a whole: every transfer of one call shares a
// single deadline. Open, ReadBlocks and WriteBlocks use the context the
// caller passes instead.
func WithTimeout(d time.Duration) Option {
	return func(o *Options) { o.Timeout = d }
}

// WithCacheCapacity sets the number of cached blocks (default 128).
func WithCacheCapacity(n int) Option {
	return func(o *Options) { o.CacheCapacity = n }
}

// WithBlockSizeAssumed records the nominal block size (default 512). Open
// does not consult it: the cache works in the block length READ CAPACITY
// reports, and the two are not compared.
func WithBlockSizeAssumed(n int) Option {
	return func(o *Options) { o.BlockSizeAssumed = n }
}

// WithLUN selects the logical unit to bring up (default 0).
func WithLUN(lun uint8) Option {
	return func(o *Options) { o.LUN = lun }
}
