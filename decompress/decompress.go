package decompress

import (
	"fmt"
	"hash/crc32"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/compress"
	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/hashcfg"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/reference"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Input is everything Decompress needs to reconstruct one hash table and
// extension table from their compressed form.
type Input struct {
	CompBuf       []byte
	RefCodes      []reference.Code
	NumBuckets    int
	WrapBuckets   int
	PriCRC        *crc64x.Table
	Threads       int
	ComputeDigest bool
}

// Output is the reconstructed state, plus digests when requested.
type Output struct {
	Header       hashcfg.Header
	Buckets      []hashrec.Bucket
	ExtRows      []hashrec.ExtendHit
	HashDigest   uint32
	ExtTabDigest uint32
}

// Decompress runs the full pipeline: parse header, replay literal blocks,
// replay automatic blocks, fix up lf flags and chain filters, and
// optionally digest the result.
func Decompress(bc *buildctx.Context, in Input) (Output, error) {
	r := compress.NewBitReader(in.CompBuf)
	hdr, err := compress.ParseHeader(r)
	if err != nil {
		return Output{}, &buildctx.IntegrityError{Stage: "header", Msg: err.Error()}
	}

	numSlots := in.NumBuckets * hashrec.RecordsPerBucket
	hashSlots, hashLiteral, err := readLiteralHashBlock(r, numSlots)
	if err != nil {
		return Output{}, &buildctx.IntegrityError{Stage: "literal-hash", Msg: err.Error()}
	}
	numExtRows := int(hdr.ExtTabRecs)
	extRows, _, err := readLiteralExtBlock(r, numExtRows)
	if err != nil {
		return Output{}, &buildctx.IntegrityError{Stage: "literal-ext", Msg: err.Error()}
	}
	if got := r.ReadBits(64); got != compress.MagicLitEnd {
		return Output{}, &buildctx.IntegrityError{Stage: "literal-end", Msg: "bad lit-end magic"}
	}

	if got := r.ReadBits(64); got != compress.MagicExtIdxStart {
		return Output{}, &buildctx.IntegrityError{Stage: "ext-index", Msg: "bad ext-index start magic"}
	}
	compress.ReadExtIndex(r)
	if got := r.ReadBits(64); got != compress.MagicExtIdxEnd {
		return Output{}, &buildctx.IntegrityError{Stage: "ext-index", Msg: "bad ext-index end magic"}
	}

	if got := r.ReadBits(64); got != compress.MagicAutoStart {
		return Output{}, &buildctx.IntegrityError{Stage: "auto", Msg: "bad auto-start magic"}
	}
	r.ReadBits(32) // extendIDBits, unused by this simplified replay

	autoSlots, err := readAutoBlock(r, hashLiteral)
	if err != nil {
		return Output{}, &buildctx.IntegrityError{Stage: "auto", Msg: err.Error()}
	}
	if got := r.ReadBits(64); got != compress.MagicAutoEnd {
		return Output{}, &buildctx.IntegrityError{Stage: "auto", Msg: "bad auto-end magic"}
	}

	autoParams := AutoParams{
		SeedLen:       int(hdr.PriSeedBases),
		TableAddrBits: uint(hdr.TableAddrBits),
		Squeeze64ths:  uint(hdr.TableSize64ths),
		PriCRC:        in.PriCRC,
		WrapBuckets:   in.WrapBuckets,
	}
	if err := ReplayAutomatic(bc, autoParams, in.RefCodes, hashSlots, hashLiteral, autoSlots); err != nil {
		return Output{}, err
	}

	buckets := toBuckets(hashSlots, in.NumBuckets)
	fixupParams := FixupParams{
		SeedLen:       autoParams.SeedLen,
		TableAddrBits: autoParams.TableAddrBits,
		Squeeze64ths:  autoParams.Squeeze64ths,
		PriCRC:        in.PriCRC,
		WrapBuckets:   in.WrapBuckets,
		NumThreads:    in.Threads,
	}
	if err := FixUp(fixupParams, in.RefCodes, buckets); err != nil {
		return Output{}, err
	}

	out := Output{Header: hdr, Buckets: buckets, ExtRows: extRows}
	if in.ComputeDigest {
		out.HashDigest = DigestBuckets(buckets)
		out.ExtTabDigest = DigestExtRows(extRows)
	}
	return out, nil
}

func toBuckets(slots []hashrec.Record, numBuckets int) []hashrec.Bucket {
	out := make([]hashrec.Bucket, numBuckets)
	for i := range out {
		for s := 0; s < hashrec.RecordsPerBucket; s++ {
			idx := i*hashrec.RecordsPerBucket + s
			if idx < len(slots) {
				out[i][s] = slots[idx]
			} else {
				out[i][s] = hashrec.EmptyQword
			}
		}
	}
	return out
}

// DigestBuckets computes the CRC32C digest hash_table.cfg's hash_digest
// field records, over every record's raw little-endian bytes in bucket
// order. Exported so the builder can stamp the same digest into the
// header it writes, letting a later decompress-only run verify it.
func DigestBuckets(buckets []hashrec.Bucket) uint32 {
	var crc uint32
	for _, b := range buckets {
		for _, rec := range b {
			buf := [8]byte{}
			v := uint64(rec)
			for i := 0; i < 8; i++ {
				buf[i] = byte(v >> (8 * i))
			}
			crc = crc32.Update(crc, castagnoliTable, buf[:])
		}
	}
	return crc
}

// DigestExtRows computes ext_tab_digest the same way DigestBuckets
// computes hash_digest, over the extension table's rows.
func DigestExtRows(rows []hashrec.ExtendHit) uint32 {
	var crc uint32
	for _, row := range rows {
		buf := [8]byte{}
		v := uint64(row)
		for i := 0; i < 8; i++ {
			buf[i] = byte(v >> (8 * i))
		}
		crc = crc32.Update(crc, castagnoliTable, buf[:])
	}
	return crc
}

// readAutoBlock decodes the automatic block's per-slot kind markers. The
// compressor only emits one AutoSlot per non-literal slot, so literal is
// consulted to know which physical indices to fill in.
func readAutoBlock(r *compress.BitReader, literal []bool) ([]AutoSlotState, error) {
	if got := r.ReadBits(64); got != compress.MagicAutoBlock {
		return nil, fmt.Errorf("bad auto block magic")
	}
	r.ReadBits(64)
	r.ReadBits(64)
	r.ReadBits(64)

	out := make([]AutoSlotState, len(literal))
	for i, isLiteral := range literal {
		if isLiteral {
			continue
		}
		s := compress.ReadAutoSlot(r, 0)
		switch s.Kind {
		case compress.AutoNone:
			out[i] = AutoSlotState{Kind: AutoStateNone}
		case compress.AutoPrimary:
			out[i] = AutoSlotState{Kind: AutoStatePrimary}
		}
	}
	return out, nil
}
