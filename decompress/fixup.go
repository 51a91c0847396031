package decompress

import (
	"github.com/Illumina/DRAGMAP-sub000/chainprobe"
	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/Illumina/DRAGMAP-sub000/seedhash"
)

// FixupParams carries what the flag-fixup pass needs to re-derive each
// HIT's home bucket, the same way the automatic phase does.
type FixupParams struct {
	SeedLen       int
	TableAddrBits uint
	Squeeze64ths  uint
	PriCRC        *crc64x.Table
	WrapBuckets   int
	NumThreads    int
}

// FixUp walks every bucket's probe/chain trail and, in reverse, sets the
// last-of-thread flag on the last occurrence of each thread id, then
// recomputes chain filters from the records a chain-begin/continuation
// record now fronts. Buckets are processed in fixed ranges across
// NumThreads workers via the bounded work queue.
func FixUp(params FixupParams, refCodes []reference.Code, buckets []hashrec.Bucket) error {
	homeOf := homeBucketIndex(params, refCodes, buckets)
	numBuckets := len(buckets)
	chunk := (numBuckets + params.NumThreads - 1) / params.NumThreads
	if chunk == 0 {
		chunk = 1
	}
	return runWorkers(numBuckets, chunk, params.NumThreads, func(lo, hi int) error {
		for i := lo; i < hi; i++ {
			fixupOneBucket(params, i, buckets, homeOf)
		}
		return nil
	})
}

// homeBucketIndex re-hashes every sampled reference position and returns a
// lookup from seed index (reference position) to its home bucket, so the
// fixup pass can tell which walk a given HIT record belongs to without
// needing build-time provenance.
func homeBucketIndex(params FixupParams, refCodes []reference.Code, buckets []hashrec.Bucket) map[uint32]int {
	numBuckets := len(buckets)
	h := seedhash.NewHasher(seedhash.Params{
		SeedLen:       params.SeedLen,
		TableAddrBits: params.TableAddrBits,
		Squeeze64ths:  params.Squeeze64ths,
		PriCRC:        params.PriCRC,
		ChunkLo:       0,
		ChunkHi:       numBuckets,
		NumThreads:    1,
	}, nil)

	out := make(map[uint32]int, len(refCodes))
	for pos := 0; pos+params.SeedLen <= len(refCodes); pos++ {
		window := refCodes[pos : pos+params.SeedLen]
		if seedhash.HasAmbiguity(window) {
			continue
		}
		kmer := seedhash.Pack(window)
		canon, _, _ := seedhash.Canonical(kmer, params.SeedLen)
		hash := params.PriCRC.Checksum(canon)
		out[uint32(pos)] = h.BucketAddr(hash)
	}
	return out
}

// fixupOneBucket walks the probe trail headed by bucket i, collecting its
// own HIT records across the wrap window (and following a chain if bucket
// i's last slot begins one), then sets lf flags and chain filters.
func fixupOneBucket(params FixupParams, i int, buckets []hashrec.Bucket, homeOf map[uint32]int) {
	type loc struct {
		bucket, slot int
	}
	var trail []loc

	for d := 0; d <= hashrec.MaxProbes; d++ {
		b := (i + d) % params.WrapBuckets
		if b >= len(buckets) {
			continue
		}
		for s := 0; s < hashrec.RecordsPerBucket; s++ {
			rec := buckets[b][s]
			op := rec.Opcode()
			if op != hashrec.OpHit {
				continue
			}
			if home, ok := homeOf[rec.AsHit().SeedIndex]; !ok || home != i {
				continue
			}
			trail = append(trail, loc{b, s})
		}
	}

	seen := make(map[uint8]bool)
	for k := len(trail) - 1; k >= 0; k-- {
		l := trail[k]
		rec := buckets[l.bucket][l.slot]
		tid := rec.Tail().ThreadID
		if seen[tid] {
			continue
		}
		seen[tid] = true
		buckets[l.bucket][l.slot] = rec.SetLF(true)
	}

	fixupChainFilter(i, buckets)
}

// fixupChainFilter recomputes the chain filter for bucket i's last slot, if
// it holds a chain-begin or chain-continuation record, from the HIT
// records chained into the following bucket's non-escape slots.
//
// ChainPtr is an 18-bit offset within bucket i's own chain block
// (hashrec.ChainBlockBuckets), not an absolute bucket index, so the
// absolute target is the block's base plus that offset -- the same
// block-relative arithmetic the build side used to compute it.
func fixupChainFilter(i int, buckets []hashrec.Bucket) {
	last := buckets[i][hashrec.ChainSlot]
	if !last.Opcode().IsChain() {
		return
	}
	c := last.AsChain()
	chainBlock := hashrec.ChainBlockBuckets
	if chainBlock > len(buckets) {
		chainBlock = len(buckets)
	}
	blockBase := (i / chainBlock) * chainBlock
	target := blockBase + int(c.ChainPtr)%chainBlock
	if target >= len(buckets) {
		return
	}
	var chained []hashrec.Record
	for s := 0; s < hashrec.RecordsPerBucket; s++ {
		rec := buckets[target][s]
		if rec.Opcode() == hashrec.OpHit {
			chained = append(chained, rec)
		}
	}
	if len(chained) == 0 {
		return
	}
	useList, filter := chainprobe.FilterMode(chained)
	c.Filter = filter
	buckets[i][hashrec.ChainSlot] = hashrec.NewChain(c, useList)
}
