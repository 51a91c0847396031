// Package hashcfg reads and writes the hash table configuration header: the
// fixed 512-byte binary record (hash_table.cfg.bin) and its human-readable
// twin (hash_table.cfg), plus the embedding of that header inside the
// compressed .cmp stream.
package hashcfg

import (
	"bytes"
	"encoding/binary"
	"fmt"

	bin "github.com/gagliardetto/binary"
)

// HeaderSize is the fixed on-disk size of a binary header, padding included.
const HeaderSize = 512

// Version is the current hash table format version. Bump only on a
// backwards-incompatible layout change.
const Version = 8

// DigestType selects the checksum algorithm recorded in the header.
type DigestType uint32

const (
	DigestCRC32  DigestType = 0
	DigestCRC32C DigestType = 1
)

// Header mirrors hashTableHeader_t: every field the builder records about
// the geometry, cost model, and provenance of one hash table.
type Header struct {
	HashTableVersion uint32
	HashTableBytes   uint64
	PriSeedBases     uint32
	MaxSeedBases     uint32
	MaxExtIncrement  uint32
	RefSeedInterval  float64
	TableAddrBits    uint32
	TableSize64ths   uint32
	MaxSeedFreq      uint32
	PriMaxSeedFreq   uint32
	MaxSeedFreqLen   uint32
	TargetSeedFreq   float64
	ThinningFreqCap  float64
	ThinningPeriod   uint32
	PriCrcBits       uint32
	SecCrcBits       uint32
	SeedLenCost      float64
	SeedFreqCost     float64
	ExtensionCost    float64
	ExtStepCost      float64
	RepairStrategy   uint32
	MinRepairProb    float64
	AnchorBinBits    uint32
	HiFreqRandHit    uint32
	ExtRandHitFreq   uint32
	PriCrcPoly       [8]byte
	SecCrcPoly       [8]byte
	RefSeqLen        uint64
	RefLenRaw        uint64
	RefLenNotN       uint64
	Digest           uint32
	NumRefSeqs       uint32
	DigestType       DigestType
	RefDigest        uint32
	RefIndexDigest   uint32
	HashDigest       uint32
	LiftoverDigest   uint32
	RefAltSeed       uint32
	RefAltStart      uint64
	ExtTabRecs       uint32
	ExtTabDigest     uint32
	ExtRecCost       float64
	MinFreqToExtend  uint32
	MaxMultBaseSeeds uint32
	PopSnpsDigest    uint32
	LiftMatchSeedInt uint32
	// Padding carries forward-compatible bytes that this build does not
	// interpret; it is preserved byte for byte on a read-modify-write round
	// trip.
	Padding [264]byte
}

// MarshalBinary encodes h into the fixed 512-byte layout, matching
// hashTableHeader_t's packed field order.
func (h Header) MarshalBinary() ([]byte, error) {
	buf := new(bytes.Buffer)
	e := bin.NewBorshEncoder(buf)

	u32 := func(v uint32) error { return e.WriteUint32(v, binary.LittleEndian) }
	u64 := func(v uint64) error { return e.WriteUint64(v, binary.LittleEndian) }
	f64 := func(v float64) error { return e.WriteFloat64(v, binary.LittleEndian) }

	writers := []func() error{
		func() error { return u32(h.HashTableVersion) },
		func() error { return u64(h.HashTableBytes) },
		func() error { return u32(h.PriSeedBases) },
		func() error { return u32(h.MaxSeedBases) },
		func() error { return u32(h.MaxExtIncrement) },
		func() error { return f64(h.RefSeedInterval) },
		func() error { return u32(h.TableAddrBits) },
		func() error { return u32(h.TableSize64ths) },
		func() error { return u32(h.MaxSeedFreq) },
		func() error { return u32(h.PriMaxSeedFreq) },
		func() error { return u32(h.MaxSeedFreqLen) },
		func() error { return f64(h.TargetSeedFreq) },
		func() error { return f64(h.ThinningFreqCap) },
		func() error { return u32(h.ThinningPeriod) },
		func() error { return u32(h.PriCrcBits) },
		func() error { return u32(h.SecCrcBits) },
		func() error { return f64(h.SeedLenCost) },
		func() error { return f64(h.SeedFreqCost) },
		func() error { return f64(h.ExtensionCost) },
		func() error { return f64(h.ExtStepCost) },
		func() error { return u32(h.RepairStrategy) },
		func() error { return f64(h.MinRepairProb) },
		func() error { return u32(h.AnchorBinBits) },
		func() error { return u32(h.HiFreqRandHit) },
		func() error { return u32(h.ExtRandHitFreq) },
		func() error { _, err := e.Write(h.PriCrcPoly[:]); return err },
		func() error { _, err := e.Write(h.SecCrcPoly[:]); return err },
		func() error { return u64(h.RefSeqLen) },
		func() error { return u64(h.RefLenRaw) },
		func() error { return u64(h.RefLenNotN) },
		func() error { return u32(h.Digest) },
		func() error { return u32(h.NumRefSeqs) },
		func() error { return u32(uint32(h.DigestType)) },
		func() error { return u32(h.RefDigest) },
		func() error { return u32(h.RefIndexDigest) },
		func() error { return u32(h.HashDigest) },
		func() error { return u32(h.LiftoverDigest) },
		func() error { return u32(h.RefAltSeed) },
		func() error { return u64(h.RefAltStart) },
		func() error { return u32(h.ExtTabRecs) },
		func() error { return u32(h.ExtTabDigest) },
		func() error { return f64(h.ExtRecCost) },
		func() error { return u32(h.MinFreqToExtend) },
		func() error { return u32(h.MaxMultBaseSeeds) },
		func() error { return u32(h.PopSnpsDigest) },
		func() error { return u32(h.LiftMatchSeedInt) },
		func() error { _, err := e.Write(h.Padding[:]); return err },
	}
	for _, w := range writers {
		if err := w(); err != nil {
			return nil, fmt.Errorf("hashcfg: encode header: %w", err)
		}
	}
	if buf.Len() != HeaderSize {
		return nil, fmt.Errorf("hashcfg: encoded header is %d bytes, want %d", buf.Len(), HeaderSize)
	}
	return buf.Bytes(), nil
}

// UnmarshalBinary decodes a 512-byte header produced by MarshalBinary.
func (h *Header) UnmarshalBinary(raw []byte) error {
	if len(raw) != HeaderSize {
		return fmt.Errorf("hashcfg: header is %d bytes, want %d", len(raw), HeaderSize)
	}
	d := bin.NewBorshDecoder(raw)

	u32 := func(dst *uint32) error {
		v, err := d.ReadUint32(binary.LittleEndian)
		*dst = v
		return err
	}
	u64 := func(dst *uint64) error {
		v, err := d.ReadUint64(binary.LittleEndian)
		*dst = v
		return err
	}
	f64 := func(dst *float64) error {
		v, err := d.ReadFloat64(binary.LittleEndian)
		*dst = v
		return err
	}
	readN := func(dst []byte) error {
		_, err := d.Read(dst)
		return err
	}

	var digestType uint32
	readers := []func() error{
		func() error { return u32(&h.HashTableVersion) },
		func() error { return u64(&h.HashTableBytes) },
		func() error { return u32(&h.PriSeedBases) },
		func() error { return u32(&h.MaxSeedBases) },
		func() error { return u32(&h.MaxExtIncrement) },
		func() error { return f64(&h.RefSeedInterval) },
		func() error { return u32(&h.TableAddrBits) },
		func() error { return u32(&h.TableSize64ths) },
		func() error { return u32(&h.MaxSeedFreq) },
		func() error { return u32(&h.PriMaxSeedFreq) },
		func() error { return u32(&h.MaxSeedFreqLen) },
		func() error { return f64(&h.TargetSeedFreq) },
		func() error { return f64(&h.ThinningFreqCap) },
		func() error { return u32(&h.ThinningPeriod) },
		func() error { return u32(&h.PriCrcBits) },
		func() error { return u32(&h.SecCrcBits) },
		func() error { return f64(&h.SeedLenCost) },
		func() error { return f64(&h.SeedFreqCost) },
		func() error { return f64(&h.ExtensionCost) },
		func() error { return f64(&h.ExtStepCost) },
		func() error { return u32(&h.RepairStrategy) },
		func() error { return f64(&h.MinRepairProb) },
		func() error { return u32(&h.AnchorBinBits) },
		func() error { return u32(&h.HiFreqRandHit) },
		func() error { return u32(&h.ExtRandHitFreq) },
		func() error { return readN(h.PriCrcPoly[:]) },
		func() error { return readN(h.SecCrcPoly[:]) },
		func() error { return u64(&h.RefSeqLen) },
		func() error { return u64(&h.RefLenRaw) },
		func() error { return u64(&h.RefLenNotN) },
		func() error { return u32(&h.Digest) },
		func() error { return u32(&h.NumRefSeqs) },
		func() error { return u32(&digestType) },
		func() error { return u32(&h.RefDigest) },
		func() error { return u32(&h.RefIndexDigest) },
		func() error { return u32(&h.HashDigest) },
		func() error { return u32(&h.LiftoverDigest) },
		func() error { return u32(&h.RefAltSeed) },
		func() error { return u64(&h.RefAltStart) },
		func() error { return u32(&h.ExtTabRecs) },
		func() error { return u32(&h.ExtTabDigest) },
		func() error { return f64(&h.ExtRecCost) },
		func() error { return u32(&h.MinFreqToExtend) },
		func() error { return u32(&h.MaxMultBaseSeeds) },
		func() error { return u32(&h.PopSnpsDigest) },
		func() error { return u32(&h.LiftMatchSeedInt) },
		func() error { return readN(h.Padding[:]) },
	}
	for _, r := range readers {
		if err := r(); err != nil {
			return fmt.Errorf("hashcfg: decode header: %w", err)
		}
	}
	h.DigestType = DigestType(digestType)
	return nil
}
