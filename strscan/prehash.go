package strscan

import (
	"sync/atomic"

	"github.com/Illumina/DRAGMAP-sub000/crc64x"
)

const (
	// spinLockBits sizes the striping array for the saturating counter
	// table: 2^20 int32 spin-locks, each guarding every counter whose index
	// has the same low 20 bits. counterBits/counterSize are not used to
	// size the table; NewFreqCounter's addrBits does.
	spinLockBits = 20
	spinLockSize = 1 << spinLockBits
	counterBits  = 32
	counterSize  = 1 << counterBits
)

// FreqCounter is the saturating counter table used by the seed pre-hash
// pass: one uint32 counter per hash bucket, capped at 255, guarded by a
// striped array of CAS spin-locks rather than one lock per counter. The
// table has 1<<addrBits counters (cmd-build uses 20 bits), so distinct
// k-mers whose hashes share those low bits share a counter.
type FreqCounter struct {
	counts []uint32 // dense: all 1<<addrBits counters allocated up front
	locks  []int32
	crc    *crc64x.Table
}

// NewFreqCounter returns a counter table addressed by the low
// addrBits bits of the CRC64 hash of a canonical k-mer.
func NewFreqCounter(addrBits uint, crc *crc64x.Table) *FreqCounter {
	return &FreqCounter{
		counts: make([]uint32, 1<<addrBits),
		locks:  make([]int32, spinLockSize),
		crc:    crc,
	}
}

func (f *FreqCounter) lockIndex(bucket uint32) int {
	return int(bucket) & (spinLockSize - 1)
}

func (f *FreqCounter) lock(idx int) {
	for !atomic.CompareAndSwapInt32(&f.locks[idx], 0, 1) {
	}
}

func (f *FreqCounter) unlock(idx int) {
	atomic.StoreInt32(&f.locks[idx], 0)
}

// Bump increments the saturating counter for kmer's canonical hash and
// reports whether the count has reached minFreqToExtend (i.e. this and
// every subsequent hit at this prefix becomes an "extended seed" destined
// for the extension table).
func (f *FreqCounter) Bump(kmer uint64, minFreqToExtend uint8) (extended bool) {
	bucket := uint32(f.crc.Checksum(kmer)) % uint32(len(f.counts))
	idx := f.lockIndex(bucket)
	f.lock(idx)
	defer f.unlock(idx)

	c := f.counts[bucket]
	if c < 255 {
		c++
		f.counts[bucket] = c
	}
	return c >= uint32(minFreqToExtend)
}

// Count returns the current saturating count for bucket, for diagnostics.
func (f *FreqCounter) Count(bucket uint32) uint32 {
	return f.counts[bucket%uint32(len(f.counts))]
}

// ExtendedSeeds tracks how many seed occurrences were classified as
// extended across the whole pre-hash pass, sizing the extension-table
// reservation.
type ExtendedSeeds struct {
	n int64
}

// Add records n additional extended-seed occurrences.
func (e *ExtendedSeeds) Add(n int64) { atomic.AddInt64(&e.n, n) }

// Total returns the accumulated count.
func (e *ExtendedSeeds) Total() int64 { return atomic.LoadInt64(&e.n) }
