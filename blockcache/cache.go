package blockcache

import (
	"container/list"
	"context"
	"errors"
	"io"
	"sync"

	"github.com/ardnew/usbms/pkg"
)

// DefaultCapacity is the default number of cached blocks (spec.md S3/S6).
const DefaultCapacity = 128

// BlockDevice is the block-level collaborator the cache reads through and
// writes back to. session.Device implements this over a scsi.CommandLayer.
type BlockDevice interface {
	ReadBlocks(ctx context.Context, lba uint32, count uint16) ([]byte, error)
	WriteBlocks(ctx context.Context, lba uint32, count uint16, data []byte) error
	BlockSize() int
	BlockCount() uint32
}

// ErrOutOfRange is returned by Seek for a negative resulting offset.
var ErrOutOfRange = errors.New("blockcache: seek before start of device")

type entry struct {
	block uint32
	data  []byte
	dirty bool
}

// Cache is a bounded LRU of block-sized frames sitting in front of a
// BlockDevice, providing byte-addressable read/write with write-back
// semantics and a seekable cursor. It is not safe for concurrent use beyond
// the internal mutex serializing its own operations — the stack as a whole
// is single-threaded per spec.md S5, but the mutex keeps Flush-at-teardown
// safe to call from a deferred goroutine.
type Cache struct {
	dev      BlockDevice
	capacity int

	mu     sync.Mutex
	items  map[uint32]*list.Element // block number -> list element
	order  *list.List                // front = most recently used
	cursor int64

	reads, writes, hits, misses, evictions uint64
}

// New creates a Cache of the given capacity (0 selects DefaultCapacity)
// fronting dev.
func New(dev BlockDevice, capacity int) *Cache {
	if capacity <= 0 {
		capacity = DefaultCapacity
	}
	return &Cache{
		dev:      dev,
		capacity: capacity,
		items:    make(map[uint32]*list.Element, capacity),
		order:    list.New(),
	}
}

// Capacity returns the device's total addressable byte capacity.
func (c *Cache) Capacity() int64 {
	return int64(c.dev.BlockSize()) * int64(c.dev.BlockCount())
}

// Stats reports cumulative cache counters for diagnostics.
type Stats struct {
	Reads, Writes, Hits, Misses, Evictions uint64
}

// Stats returns the current cumulative counters.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{c.reads, c.writes, c.hits, c.misses, c.evictions}
}

func (c *Cache) blockSize() int64 { return int64(c.dev.BlockSize()) }

// touch moves an already-present block to the front of the recency list.
func (c *Cache) touch(el *list.Element) {
	c.order.MoveToFront(el)
}

// lookup returns the entry for block n, touching it, or nil if absent.
func (c *Cache) lookup(n uint32) *entry {
	el, ok := c.items[n]
	if !ok {
		return nil
	}
	c.touch(el)
	return el.Value.(*entry)
}

// admit inserts a freshly-fetched block into the cache, evicting the LRU
// entry (flushing it first if dirty) when at capacity. If the block is
// already present, its data is replaced.
func (c *Cache) admit(ctx context.Context, n uint32, data []byte, dirty bool) error {
	if el, ok := c.items[n]; ok {
		ent := el.Value.(*entry)
		ent.data = data
		ent.dirty = dirty
		c.touch(el)
		return nil
	}
	if c.order.Len() >= c.capacity {
		if err := c.evictOne(ctx); err != nil {
			return err
		}
	}
	ent := &entry{block: n, data: data, dirty: dirty}
	el := c.order.PushFront(ent)
	c.items[n] = el
	return nil
}

// evictOne removes the least-recently-used entry, flushing it first if
// dirty, per spec.md S4.D's eviction rule.
func (c *Cache) evictOne(ctx context.Context) error {
	back := c.order.Back()
	if back == nil {
		return nil
	}
	ent := back.Value.(*entry)
	if ent.dirty {
		if err := c.dev.WriteBlocks(ctx, ent.block, 1, ent.data); err != nil {
			return err
		}
	}
	c.order.Remove(back)
	delete(c.items, ent.block)
	c.evictions++
	return nil
}

// fetchOne reads a single block, preferring the cache.
func (c *Cache) fetchOne(ctx context.Context, n uint32) ([]byte, error) {
	if ent := c.lookup(n); ent != nil {
		c.hits++
		out := make([]byte, len(ent.data))
		copy(out, ent.data)
		return out, nil
	}
	c.misses++
	data, err := c.dev.ReadBlocks(ctx, n, 1)
	if err != nil {
		return nil, err
	}
	if err := c.admit(ctx, n, append([]byte(nil), data...), false); err != nil {
		return nil, err
	}
	return data, nil
}

// clip bounds a read/write request to the device's capacity, returning the
// adjusted length (may be 0).
func (c *Cache) clip(offset int64, length int) int {
	capacity := c.Capacity()
	if offset < 0 || offset >= capacity {
		return 0
	}
	if offset+int64(length) > capacity {
		length = int(capacity - offset)
	}
	return length
}

// ReadAt fills buf starting at byte offset, coalescing cache misses into
// single READ(10) calls per contiguous miss-run, per spec.md S4.D. A
// request that runs past device capacity is silently truncated (EOF
// convention); the returned count reflects that truncation.
func (c *Cache) ReadAt(ctx context.Context, offset int64, buf []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	length := c.clip(offset, len(buf))
	if length <= 0 {
		return 0, nil
	}
	c.reads++

	B := c.blockSize()
	startBlock := uint32(offset / B)
	endBlock := uint32((offset + int64(length) - 1) / B)

	copyBlock := func(blk uint32, data []byte) {
		blockStart := int64(blk) * B
		// intersection of [blockStart, blockStart+B) with [offset, offset+length)
		lo := blockStart
		if offset > lo {
			lo = offset
		}
		hi := blockStart + B
		if offset+int64(length) < hi {
			hi = offset + int64(length)
		}
		if lo >= hi {
			return
		}
		copy(buf[lo-offset:hi-offset], data[lo-blockStart:hi-blockStart])
	}

	blk := startBlock
	for blk <= endBlock {
		if ent := c.lookup(blk); ent != nil {
			c.hits++
			copyBlock(blk, ent.data)
			blk++
			continue
		}
		// start of a contiguous miss-run
		runStart := blk
		for blk <= endBlock && c.items[blk] == nil {
			blk++
		}
		runLen := blk - runStart
		c.misses += uint64(runLen)
		data, err := c.dev.ReadBlocks(ctx, runStart, uint16(runLen))
		if err != nil {
			return 0, err
		}
		for i := uint32(0); i < runLen; i++ {
			frame := data[int64(i)*B : int64(i+1)*B]
			if err := c.admit(ctx, runStart+i, append([]byte(nil), frame...), false); err != nil {
				return 0, err
			}
			copyBlock(runStart+i, frame)
		}
	}

	return length, nil
}

// WriteAt splices data into the device starting at byte offset, performing
// read-modify-write on partial boundary blocks, per spec.md S4.D.
func (c *Cache) WriteAt(ctx context.Context, offset int64, data []byte) (int, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	length := c.clip(offset, len(data))
	if length <= 0 {
		return 0, nil
	}
	data = data[:length]
	c.writes++

	B := c.blockSize()
	startBlock := uint32(offset / B)
	endBlock := uint32((offset + int64(length) - 1) / B)
	offInStart := int(offset % B)

	if startBlock == endBlock {
		block, err := c.fetchOne(ctx, startBlock)
		if err != nil {
			return 0, err
		}
		copy(block[offInStart:], data)
		if err := c.admit(ctx, startBlock, block, true); err != nil {
			return 0, err
		}
		return length, nil
	}

	numBlocks := endBlock - startBlock + 1
	work := make([]byte, int64(numBlocks)*B)

	first, err := c.fetchOne(ctx, startBlock)
	if err != nil {
		return 0, err
	}
	copy(work[0:B], first)

	last, err := c.fetchOne(ctx, endBlock)
	if err != nil {
		return 0, err
	}
	copy(work[int64(numBlocks-1)*B:int64(numBlocks)*B], last)

	copy(work[offInStart:], data)

	if err := c.dev.WriteBlocks(ctx, startBlock, uint16(numBlocks), work); err != nil {
		return 0, err
	}
	for i := uint32(0); i < numBlocks; i++ {
		frame := append([]byte(nil), work[int64(i)*B:int64(i+1)*B]...)
		if err := c.admit(ctx, startBlock+i, frame, false); err != nil {
			return 0, err
		}
	}
	return length, nil
}

// Flush writes back every dirty entry and clears the cache, per spec.md
// S4.D/S7. It is invoked on explicit flush and on device teardown; a
// failure to flush must not be swallowed silently.
func (c *Cache) Flush(ctx context.Context) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for el := c.order.Front(); el != nil; el = el.Next() {
		ent := el.Value.(*entry)
		if ent.dirty {
			if err := c.dev.WriteBlocks(ctx, ent.block, 1, ent.data); err != nil {
				pkg.LogError(pkg.ComponentCache, "flush failed", "block", ent.block, "error", err)
				return err
			}
			ent.dirty = false
		}
	}
	c.items = make(map[uint32]*list.Element, c.capacity)
	c.order = list.New()
	return nil
}

// Seek implements io.Seeker semantics for the cursor used by Read/Write.
// Negative SeekEnd offsets subtract from capacity; seeking past capacity is
// allowed (subsequent reads return 0, spec.md S4.D).
func (c *Cache) Seek(offset int64, whence int) (int64, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	var next int64
	switch whence {
	case io.SeekStart:
		next = offset
	case io.SeekCurrent:
		next = c.cursor + offset
	case io.SeekEnd:
		next = c.Capacity() + offset
	default:
		return c.cursor, ErrOutOfRange
	}
	if next < 0 {
		return c.cursor, ErrOutOfRange
	}
	c.cursor = next
	return c.cursor, nil
}

// Read fills buf from the current cursor and advances it by the number of
// bytes copied.
func (c *Cache) Read(ctx context.Context, buf []byte) (int, error) {
	c.mu.Lock()
	offset := c.cursor
	c.mu.Unlock()

	n, err := c.ReadAt(ctx, offset, buf)
	if err != nil {
		return n, err
	}
	c.mu.Lock()
	c.cursor = offset + int64(n)
	c.mu.Unlock()
	if n == 0 && len(buf) > 0 {
		return 0, io.EOF
	}
	return n, nil
}

// Write splices data at the current cursor and advances it by the number
// of bytes written.
func (c *Cache) Write(ctx context.Context, data []byte) (int, error) {
	c.mu.Lock()
	offset := c.cursor
	c.mu.Unlock()

	n, err := c.WriteAt(ctx, offset, data)
	if err != nil {
		return n, err
	}
	c.mu.Lock()
	c.cursor = offset + int64(n)
	c.mu.Unlock()
	return n, nil
}
