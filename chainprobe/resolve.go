// Package chainprobe decides, for each logical (possibly over-full) bucket
// produced by the Extension Planner, whether its overflow records should
// be resolved by linear probing into neighboring buckets or by chaining
// into an overflow chain block.
package chainprobe

import (
	"sort"

	"github.com/Illumina/DRAGMAP-sub000/hashrec"
)

// WrapBuckets is the bucket count ProbeDistance wraps neighbor indices at:
// one chain block (hashrec.ChainBlockBuckets), which cmd-build also uses
// as the chain-block size. It is not the hashrec.MaxWrapBytes wrap-block
// size.
const WrapBuckets = hashrec.ChainBlockBuckets

// Decision is the resolver's verdict for one bucket.
type Decision struct {
	BucketIdx    int
	ProbeDist    int // distance a pure-probing resolution would need
	UseChain     bool
	ChainRecords []hashrec.Record // records moved out to a follower bucket
	Kept         []hashrec.Record // records remaining in the originating bucket
}

// ProbeDistance returns how many consecutive neighbor buckets would need
// to be probed, starting from bucketIdx, to place overflow records that
// exceed hashrec.RecordsPerBucket, given each candidate bucket's existing
// occupancy within the same wrap block.
func ProbeDistance(bucketIdx int, occupancy func(idx int) int) int {
	overflow := occupancy(bucketIdx) - hashrec.RecordsPerBucket
	if overflow <= 0 {
		return 0
	}
	dist := 0
	for d := 1; d <= hashrec.MaxProbes && overflow > 0; d++ {
		neighbor := (bucketIdx + d) % WrapBuckets
		free := hashrec.RecordsPerBucket - occupancy(neighbor)
		if free > 0 {
			overflow -= free
		}
		dist = d
	}
	return dist
}

// Resolve makes one pass over every bucket for each target distance from
// MaxProbes down to 1, choosing chaining over probing for any bucket whose
// probe distance is at or beyond the distance currently being considered
// (ties favor chaining). Buckets are not grouped by chain block.
func Resolve(buckets [][]hashrec.Record, occupancy func(idx int) int) []Decision {
	decisions := make([]Decision, len(buckets))
	for i := range buckets {
		decisions[i] = Decision{BucketIdx: i, Kept: buckets[i]}
	}
	for target := hashrec.MaxProbes; target >= 1; target-- {
		for i, recs := range buckets {
			if len(recs) <= hashrec.RecordsPerBucket {
				continue
			}
			dist := ProbeDistance(i, occupancy)
			decisions[i].ProbeDist = dist
			if dist >= target {
				decisions[i] = chain(i, recs, decisions[i])
			}
		}
	}
	return decisions
}

func chain(idx int, recs []hashrec.Record, prev Decision) Decision {
	kept := recs[:hashrec.RecordsPerBucket-1] // reserve last slot for the CHAIN_* escape record
	overflow := recs[hashrec.RecordsPerBucket-1:]
	prev.UseChain = true
	prev.Kept = kept
	prev.ChainRecords = overflow
	return prev
}

// FilterMode chooses between a sorted 4-prefix list and a 32-bit bitmap
// based on how many distinct 8-bit hash prefixes appear in the overflow
// records being chained.
func FilterMode(recs []hashrec.Record) (useList bool, filter hashrec.Filter) {
	prefixes := distinctPrefixes(recs)
	if len(prefixes) <= 4 {
		var list [4]uint8
		copy(list[:], prefixes)
		return true, hashrec.NewFilterList(list)
	}
	var mask uint32
	for _, rec := range recs {
		prefix5 := uint8(rec.Tail().HashBits >> 18 & 0x1F)
		mask |= 1 << (prefix5 & 31)
	}
	return false, hashrec.Filter(mask)
}

func distinctPrefixes(recs []hashrec.Record) []uint8 {
	seen := make(map[uint8]bool)
	var out []uint8
	for _, rec := range recs {
		p := uint8(rec.Tail().HashBits >> 15 & 0xFF)
		if !seen[p] {
			seen[p] = true
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}
