package decompress

import (
	"testing"

	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/Illumina/DRAGMAP-sub000/seedhash"
	"github.com/stretchr/testify/require"
)

// findBucketWithCollisions returns three distinct reference positions whose
// home bucket is the same, by re-hashing every position exactly the way
// the automatic and fixup phases do.
func findBucketWithCollisions(t *testing.T, params FixupParams, refCodes []reference.Code) (bucket int, positions []uint32) {
	t.Helper()
	numBuckets := 1 << params.TableAddrBits
	h := seedhash.NewHasher(seedhash.Params{
		SeedLen:       params.SeedLen,
		TableAddrBits: params.TableAddrBits,
		Squeeze64ths:  params.Squeeze64ths,
		PriCRC:        params.PriCRC,
		ChunkLo:       0,
		ChunkHi:       numBuckets,
		NumThreads:    1,
	}, nil)

	byBucket := make(map[int][]uint32)
	for pos := 0; pos+params.SeedLen <= len(refCodes); pos++ {
		window := refCodes[pos : pos+params.SeedLen]
		if seedhash.HasAmbiguity(window) {
			continue
		}
		canon, _, _ := seedhash.Canonical(seedhash.Pack(window), params.SeedLen)
		hash := params.PriCRC.Checksum(canon)
		b := h.BucketAddr(hash)
		byBucket[b] = append(byBucket[b], uint32(pos))
	}
	for b, positions := range byBucket {
		if len(positions) >= 3 {
			return b, positions[:3]
		}
	}
	t.Fatal("no bucket with 3+ colliding positions found; widen refCodes")
	return 0, nil
}

func fixupTestParams() FixupParams {
	return FixupParams{
		SeedLen:       1,
		TableAddrBits: 3,
		Squeeze64ths:  64,
		PriCRC:        crc64x.New(30, crc64x.PolyByIndex(0)),
		WrapBuckets:   8,
		NumThreads:    1,
	}
}

func sequenceOfCodes(n int) []reference.Code {
	codes := make([]reference.Code, n)
	for i := range codes {
		codes[i] = reference.Code(i%4 + 1)
	}
	return codes
}

func TestFixUpSetsLastOfThreadOnLastOccurrenceOnly(t *testing.T) {
	params := fixupTestParams()
	refCodes := sequenceOfCodes(256)
	homeBucket, positions := findBucketWithCollisions(t, params, refCodes)

	buckets := make([]hashrec.Bucket, 8)
	for i := range buckets {
		for s := range buckets[i] {
			buckets[i][s] = hashrec.EmptyQword
		}
	}
	next := homeBucket
	buckets[next][0] = hashrec.NewHit(hashrec.Hit{SeedIndex: positions[0], Tail: hashrec.MatchTail{ThreadID: 5}})
	next = (homeBucket + 1) % 8
	buckets[next][0] = hashrec.NewHit(hashrec.Hit{SeedIndex: positions[1], Tail: hashrec.MatchTail{ThreadID: 5}})
	buckets[next][1] = hashrec.NewHit(hashrec.Hit{SeedIndex: positions[2], Tail: hashrec.MatchTail{ThreadID: 7}})

	err := FixUp(params, refCodes, buckets)
	require.NoError(t, err)

	require.False(t, buckets[homeBucket][0].Tail().LF, "first occurrence of thread 5 must not be marked last")
	require.True(t, buckets[next][0].Tail().LF, "second (final) occurrence of thread 5 must be marked last")
	require.True(t, buckets[next][1].Tail().LF, "sole occurrence of thread 7 must be marked last")
}

func TestFixUpChainFilterReflectsChainedHitPrefixes(t *testing.T) {
	buckets := make([]hashrec.Bucket, 8)
	for i := range buckets {
		for s := range buckets[i] {
			buckets[i][s] = hashrec.EmptyQword
		}
	}
	buckets[0][hashrec.ChainSlot] = hashrec.NewChain(hashrec.Chain{ChainPtr: 1, Begin: true}, true)
	buckets[1][0] = hashrec.NewHit(hashrec.Hit{SeedIndex: 0, Tail: hashrec.MatchTail{HashBits: 0x0A << 15}})
	buckets[1][1] = hashrec.NewHit(hashrec.Hit{SeedIndex: 1, Tail: hashrec.MatchTail{HashBits: 0x0B << 15}})

	fixupChainFilter(0, buckets)

	got := buckets[0][hashrec.ChainSlot].AsChain()
	require.True(t, got.Begin)
	prefixes := got.Filter.List()
	require.Contains(t, prefixes[:], uint8(0x0A))
	require.Contains(t, prefixes[:], uint8(0x0B))
}
