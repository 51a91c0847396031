// Package buildstats collects the counters every build/decompress stage
// reports as it runs, then renders them as the binary header's
// post-build statistics fields and as hash_table_stats.txt.
package buildstats

import (
	"sync"
	"sync/atomic"
	"time"
)

// FreqHistogram buckets seed-frequency occurrences the way strscan's
// saturating counters are classified: one bucket per frequency value
//0..254, plus an overflow bucket for anything saturated at 255.
type FreqHistogram struct {
	buckets [256]uint64
}

// Add records one occurrence of a seed observed at count freq.
func (h *FreqHistogram) Add(freq uint8) {
	atomic.AddUint64(&h.buckets[freq], 1)
}

// Snapshot returns a stable copy for rendering.
func (h *FreqHistogram) Snapshot() [256]uint64 {
	var out [256]uint64
	for i := range out {
		out[i] = atomic.LoadUint64(&h.buckets[i])
	}
	return out
}

// Stats accumulates counters across the whole build pipeline. Every field
// is safe for concurrent use from worker goroutines; Snapshot takes a
// stable point-in-time copy for the text report.
type Stats struct {
	// Reference geometry, copied in from reference.Result/sizer.Geometry
	// by the caller once those stages finish (single-writer, so no
	// atomics needed for these).
	RefSeqLen  uint64
	RefLenRaw  uint64
	RefLenNotN uint64
	RefAltSeed uint32
	RefAltStart uint64

	// Seed-hashing and extension-planning counters, updated concurrently
	// by worker goroutines.
	hitRecords      int64
	chainRecords    int64
	extendRecords   int64
	literalSlots    int64
	autoSlots       int64
	literalExtRows  int64
	autoExtRows     int64
	thinnedSeeds    int64
	extTabRecsUsed  int64
	maxMultBaseSeen int64
	minFreqToExtend uint32

	SeedFreq FreqHistogram
	ExtLen   FreqHistogram

	stageMu sync.Mutex
	stages  map[string]time.Duration
}

// New returns an empty Stats ready for concurrent use.
func New() *Stats {
	return &Stats{stages: make(map[string]time.Duration)}
}

func (s *Stats) AddHit(n int64)     { atomic.AddInt64(&s.hitRecords, n) }
func (s *Stats) AddChain(n int64)   { atomic.AddInt64(&s.chainRecords, n) }
func (s *Stats) AddExtend(n int64)  { atomic.AddInt64(&s.extendRecords, n) }
func (s *Stats) AddLiteral(n int64) { atomic.AddInt64(&s.literalSlots, n) }
func (s *Stats) AddAuto(n int64)    { atomic.AddInt64(&s.autoSlots, n) }
func (s *Stats) AddLiteralExtRow(n int64) { atomic.AddInt64(&s.literalExtRows, n) }
func (s *Stats) AddAutoExtRow(n int64)    { atomic.AddInt64(&s.autoExtRows, n) }
func (s *Stats) AddThinned(n int64)       { atomic.AddInt64(&s.thinnedSeeds, n) }

// SetExtTabRecsUsed records how many of the reserved extension-table
// records the build actually consumed.
func (s *Stats) SetExtTabRecsUsed(n int64) { atomic.StoreInt64(&s.extTabRecsUsed, n) }

// NoteMultiBaseSeeds raises the high-water mark of multi-base seeds
// observed for any single position, matching the header's
// MaxMultBaseSeeds field.
func (s *Stats) NoteMultiBaseSeeds(n int64) {
	for {
		cur := atomic.LoadInt64(&s.maxMultBaseSeen)
		if n <= cur || atomic.CompareAndSwapInt64(&s.maxMultBaseSeen, cur, n) {
			return
		}
	}
}

// SetMinFreqToExtend records the thinning policy's resolved threshold.
func (s *Stats) SetMinFreqToExtend(v uint32) { atomic.StoreUint32(&s.minFreqToExtend, v) }

// MarkStage records how long a named pipeline stage took. Safe to call
// from the continuity chain's Thenf wrapper around each stage.
func (s *Stats) MarkStage(name string, d time.Duration) {
	s.stageMu.Lock()
	defer s.stageMu.Unlock()
	s.stages[name] += d
}

// Snapshot is a stable, point-in-time copy of every counter, taken once
// the pipeline has finished so the text report and header fields agree.
type Snapshot struct {
	RefSeqLen       uint64
	RefLenRaw       uint64
	RefLenNotN      uint64
	RefAltSeed      uint32
	RefAltStart     uint64
	HitRecords      int64
	ChainRecords    int64
	ExtendRecords   int64
	LiteralSlots    int64
	AutoSlots       int64
	LiteralExtRows  int64
	AutoExtRows     int64
	ThinnedSeeds    int64
	ExtTabRecsUsed  int64
	MaxMultBaseSeeds int64
	MinFreqToExtend uint32
	SeedFreq        [256]uint64
	ExtLen          [256]uint64
	Stages          map[string]time.Duration
}

// Snapshot takes a stable copy of every counter.
func (s *Stats) Snapshot() Snapshot {
	s.stageMu.Lock()
	stages := make(map[string]time.Duration, len(s.stages))
	for k, v := range s.stages {
		stages[k] = v
	}
	s.stageMu.Unlock()

	return Snapshot{
		RefSeqLen:        s.RefSeqLen,
		RefLenRaw:        s.RefLenRaw,
		RefLenNotN:       s.RefLenNotN,
		RefAltSeed:       s.RefAltSeed,
		RefAltStart:      s.RefAltStart,
		HitRecords:       atomic.LoadInt64(&s.hitRecords),
		ChainRecords:     atomic.LoadInt64(&s.chainRecords),
		ExtendRecords:    atomic.LoadInt64(&s.extendRecords),
		LiteralSlots:     atomic.LoadInt64(&s.literalSlots),
		AutoSlots:        atomic.LoadInt64(&s.autoSlots),
		LiteralExtRows:   atomic.LoadInt64(&s.literalExtRows),
		AutoExtRows:      atomic.LoadInt64(&s.autoExtRows),
		ThinnedSeeds:     atomic.LoadInt64(&s.thinnedSeeds),
		ExtTabRecsUsed:   atomic.LoadInt64(&s.extTabRecsUsed),
		MaxMultBaseSeeds: atomic.LoadInt64(&s.maxMultBaseSeen),
		MinFreqToExtend:  atomic.LoadUint32(&s.minFreqToExtend),
		SeedFreq:         s.SeedFreq.Snapshot(),
		ExtLen:           s.ExtLen.Snapshot(),
		Stages:           stages,
	}
}
