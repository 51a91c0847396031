// Package slotpack places chained buckets' remaining records into their
// final physical slots, resolving linear-probe overflow within each wrap
// block and recording the probe distance actually used for each record.
package slotpack

import (
	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
)

// Placement is one physical record placement.
type Placement struct {
	BucketIdx int
	SlotIdx   int
	ProbeDist int // saved in a side array; not encoded into the record itself
	Rec       hashrec.Record
}

// DefaultWrapBuckets is one chain block's bucket count
// (hashrec.ChainBlockBuckets). Overflow placement wraps modulo whatever
// wrapBuckets a caller passes to Pack; cmd-build and the decompressor pass
// the whole table's bucket count (1<<TableAddrBits), not this constant, so
// probing wraps at the end of the table rather than within
// hashrec.MaxWrapBytes-sized blocks. Tests pass small values to exercise
// wraparound directly.
const DefaultWrapBuckets = hashrec.ChainBlockBuckets

// Pack places every record from pending (keyed by home bucket index, within
// one wrap block of wrapBuckets buckets) into physical slots, probing up
// to hashrec.MaxProbes buckets forward. Chain-escape records (passed via
// chainSlot, keyed by bucket index) are reserved the bucket's last
// physical slot.
func Pack(pending map[int][]hashrec.Record, chainSlot map[int]hashrec.Record, wrapBuckets int) ([]Placement, error) {
	occupied := make(map[int]map[int]bool) // bucketIdx -> slotIdx -> used

	markUsed := func(bucket, slot int) {
		if occupied[bucket] == nil {
			occupied[bucket] = make(map[int]bool)
		}
		occupied[bucket][slot] = true
	}
	isUsed := func(bucket, slot int) bool {
		return occupied[bucket] != nil && occupied[bucket][slot]
	}

	var placements []Placement

	for bucket, rec := range chainSlot {
		markUsed(bucket, hashrec.ChainSlot)
		placements = append(placements, Placement{BucketIdx: bucket, SlotIdx: hashrec.ChainSlot, ProbeDist: 0, Rec: rec})
	}

	for d := 0; d <= hashrec.MaxProbes; d++ {
		for bucket := range pending {
			recs := pending[bucket]
			if len(recs) == 0 {
				continue
			}
			target := (bucket + d) % wrapBuckets
			for slot := 0; slot < hashrec.RecordsPerBucket && len(recs) > 0; slot++ {
				if isUsed(target, slot) {
					continue
				}
				markUsed(target, slot)
				placements = append(placements, Placement{
					BucketIdx: target,
					SlotIdx:   slot,
					ProbeDist: d,
					Rec:       recs[0],
				})
				recs = recs[1:]
			}
			pending[bucket] = recs
		}
	}

	for _, recs := range pending {
		if len(recs) > 0 {
			return nil, &buildctx.CapacityError{
				Msg:      "hash table needs to be larger",
				Guidance: "retry with a larger --ht-size or --ht-mem-limit",
			}
		}
	}
	return placements, nil
}

// ToBuckets groups placements back into physical Bucket arrays, indexed by
// each placement's BucketIdx; placements at or beyond numBuckets are
// dropped.
func ToBuckets(placements []Placement, numBuckets int) []hashrec.Bucket {
	out := make([]hashrec.Bucket, numBuckets)
	for i := range out {
		for s := range out[i] {
			out[i][s] = hashrec.EmptyQword
		}
	}
	for _, p := range placements {
		if p.BucketIdx < numBuckets {
			out[p.BucketIdx][p.SlotIdx] = p.Rec
		}
	}
	return out
}
