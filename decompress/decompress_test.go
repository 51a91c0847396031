package decompress

import (
	"testing"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/compress"
	"github.com/Illumina/DRAGMAP-sub000/hashcfg"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/Illumina/DRAGMAP-sub000/seedhash"
	"github.com/Illumina/DRAGMAP-sub000/slotpack"
	"github.com/stretchr/testify/require"
)

// sparseRefCodes builds a reference that is ambiguous (code 5, never
// hashed) everywhere except at the given positions, so the automatic
// phase's full re-hash of refCodes only ever contributes the hits the
// test cares about.
func sparseRefCodes(length int, at map[uint32]reference.Code) []reference.Code {
	codes := make([]reference.Code, length)
	for i := range codes {
		codes[i] = 5
	}
	for pos, c := range at {
		codes[pos] = c
	}
	return codes
}

func buildHit(params FixupParams, refCodes []reference.Code, pos uint32) hashrec.Record {
	window := refCodes[pos : pos+uint32(params.SeedLen)]
	canon, rc, _ := seedhash.Canonical(seedhash.Pack(window), params.SeedLen)
	hash := params.PriCRC.Checksum(canon)
	// ThreadID is intentionally left zero: it is a build-time thread/cost
	// assignment that ReplayAutomatic cannot recover from the reference
	// alone, so the ground truth here matches what the automatic phase
	// actually regenerates.
	return hashrec.NewHit(hashrec.Hit{
		SeedIndex: pos,
		Tail: hashrec.MatchTail{
			RC:       rc,
			HashBits: uint32(hash >> 19 & (1<<23 - 1)),
		},
	})
}

// groundTruth packs one hit per chosen position via the production Pack
// algorithm and runs the production FixUp pass over the result, giving the
// state Decompress is expected to reproduce regardless of which slots are
// marked literal.
func groundTruth(t *testing.T, params FixupParams, refCodes []reference.Code, positions []uint32, numBuckets int) []hashrec.Bucket {
	t.Helper()
	pending := make(map[int][]hashrec.Record)
	h := seedhash.NewHasher(seedhash.Params{
		SeedLen:       params.SeedLen,
		TableAddrBits: params.TableAddrBits,
		Squeeze64ths:  params.Squeeze64ths,
		PriCRC:        params.PriCRC,
		ChunkLo:       0,
		ChunkHi:       numBuckets,
		NumThreads:    1,
	}, nil)
	for _, pos := range positions {
		window := refCodes[pos : pos+uint32(params.SeedLen)]
		canon, _, _ := seedhash.Canonical(seedhash.Pack(window), params.SeedLen)
		bucket := h.BucketAddr(params.PriCRC.Checksum(canon))
		pending[bucket] = append(pending[bucket], buildHit(params, refCodes, pos))
	}
	placements, err := slotpack.Pack(pending, nil, params.WrapBuckets)
	require.NoError(t, err)
	buckets := slotpack.ToBuckets(placements, numBuckets)
	require.NoError(t, FixUp(params, refCodes, buckets))
	return buckets
}

func bucketsToSlots(buckets []hashrec.Bucket) []hashrec.Record {
	slots := make([]hashrec.Record, len(buckets)*hashrec.RecordsPerBucket)
	for i, b := range buckets {
		for s, rec := range b {
			slots[i*hashrec.RecordsPerBucket+s] = rec
		}
	}
	return slots
}

func testHeader(params FixupParams, extTabRecs int) hashcfg.Header {
	return hashcfg.Header{
		HashTableVersion: hashcfg.Version,
		PriSeedBases:     uint32(params.SeedLen),
		TableAddrBits:    uint32(params.TableAddrBits),
		TableSize64ths:   uint32(params.Squeeze64ths),
		ExtTabRecs:       uint32(extTabRecs),
		PriCrcPoly:       [8]byte{1},
	}
}

func TestDecompressRoundTripsFullyLiteralTable(t *testing.T) {
	params := fixupTestParams()
	numBuckets := 1 << params.TableAddrBits
	refCodes := sparseRefCodes(64, map[uint32]reference.Code{5: 1, 15: 2, 25: 4})
	positions := []uint32{5, 15, 25}

	want := groundTruth(t, params, refCodes, positions, numBuckets)
	wantSlots := bucketsToSlots(want)

	hashSlots := make([]compress.SlotSource, len(wantSlots))
	for i, rec := range wantSlots {
		hashSlots[i] = compress.SlotSource{Rec: rec, Literal: true}
	}

	in := compress.Input{
		Header:    testHeader(params, 0),
		HashSlots: hashSlots,
		ExtIndex:  compress.ExtIndex{Lengths: []uint32{0}},
	}
	buf := compress.Compress(in)

	out, err := Decompress(nil, Input{
		CompBuf:     buf,
		RefCodes:    refCodes,
		NumBuckets:  numBuckets,
		WrapBuckets: params.WrapBuckets,
		PriCRC:      params.PriCRC,
		Threads:     1,
	})
	require.NoError(t, err)
	require.Equal(t, want, out.Buckets)
}

func TestDecompressRegeneratesAutomaticSlots(t *testing.T) {
	params := fixupTestParams()
	numBuckets := 1 << params.TableAddrBits
	refCodes := sparseRefCodes(64, map[uint32]reference.Code{5: 1, 15: 2, 25: 4})
	positions := []uint32{5, 15, 25}

	want := groundTruth(t, params, refCodes, positions, numBuckets)

	// Every physical slot is marked automatic (non-literal). The compressor
	// still needs each slot's actual built content to decide AutoPrimary
	// vs AutoNone, even though it writes only that one-bit kind marker
	// rather than the record itself; the automatic phase must re-hash
	// refCodes and re-pack to reproduce the same placements, and FixUp
	// must re-derive the same lf flags.
	wantSlots := bucketsToSlots(want)
	hashSlots := make([]compress.SlotSource, len(wantSlots))
	for i, rec := range wantSlots {
		hashSlots[i] = compress.SlotSource{Rec: rec, Literal: false}
	}

	in := compress.Input{
		Header:    testHeader(params, 0),
		HashSlots: hashSlots,
		ExtIndex:  compress.ExtIndex{Lengths: []uint32{0}},
	}
	buf := compress.Compress(in)

	out, err := Decompress(buildctx.New(), Input{
		CompBuf:     buf,
		RefCodes:    refCodes,
		NumBuckets:  numBuckets,
		WrapBuckets: params.WrapBuckets,
		PriCRC:      params.PriCRC,
		Threads:     1,
	})
	require.NoError(t, err)
	require.Equal(t, want, out.Buckets)
}

func TestDecompressRoundTripsLiteralExtRow(t *testing.T) {
	params := fixupTestParams()
	numBuckets := 1 << params.TableAddrBits
	refCodes := sparseRefCodes(64, nil)

	hashSlots := make([]compress.SlotSource, numBuckets*hashrec.RecordsPerBucket)
	for i := range hashSlots {
		hashSlots[i] = compress.SlotSource{Rec: hashrec.EmptyQword, Literal: true}
	}

	row := hashrec.NewExtendHit(hashrec.ExtendHitFields{Pos: 123, RC: true, Literal: true})
	in := compress.Input{
		Header:    testHeader(params, 1),
		HashSlots: hashSlots,
		ExtRows:   []compress.ExtRowSource{{Row: row, Literal: true}},
		ExtIndex:  compress.ExtIndex{Lengths: []uint32{1}},
	}
	buf := compress.Compress(in)

	out, err := Decompress(nil, Input{
		CompBuf:       buf,
		RefCodes:      refCodes,
		NumBuckets:    numBuckets,
		WrapBuckets:   params.WrapBuckets,
		PriCRC:        params.PriCRC,
		Threads:       1,
		ComputeDigest: true,
	})
	require.NoError(t, err)
	require.Equal(t, []hashrec.ExtendHit{row}, out.ExtRows)
	require.NotZero(t, out.ExtTabDigest)
}
