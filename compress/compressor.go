package compress

import (
	"fmt"

	"github.com/Illumina/DRAGMAP-sub000/hashcfg"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
)

// Input is everything the Compressor needs to emit one .cmp stream.
type Input struct {
	Header    hashcfg.Header
	HashSlots []SlotSource // physical hash-table slots, in bucket order
	ExtRows   []ExtRowSource
	ExtIndex  ExtIndex
}

// ExtRowSource is one extension-table row together with its literal flag.
type ExtRowSource struct {
	Row     hashrec.ExtendHit
	Literal bool
}

// Compress serializes in into a complete .cmp byte stream.
func Compress(in Input) []byte {
	w := NewBitWriter()
	w.WriteBits(MagicFileStart, magicBits)
	w.WriteBits(MagicVersion, magicBits)
	hashcfg.WriteHeaderBits(w, in.Header)
	w.WriteBits(MagicAfterHeader, magicBits)

	writeLiteralBlock(w, in.HashSlots, BlockHashTable, NoLiteralRunBitsHash)
	writeExtLiteralBlock(w, in.ExtRows)
	w.WriteBits(MagicLitEnd, magicBits)

	w.WriteBits(MagicExtIdxStart, magicBits)
	WriteExtIndex(w, in.ExtIndex)
	w.WriteBits(MagicExtIdxEnd, magicBits)

	w.WriteBits(MagicAutoStart, magicBits)
	extendIDBits := bitWidth(len(in.ExtRows))
	w.WriteBits(uint64(extendIDBits), 32)
	writeAutoBlock(w, in.HashSlots)
	w.WriteBits(MagicAutoEnd, magicBits)

	return w.Bytes()
}

func writeLiteralBlock(w *BitWriter, slots []SlotSource, bt BlockType, runBits int) {
	w.WriteBits(MagicLitBlock, magicBits)
	w.WriteBits(0, 64) // startPos placeholder; caller tools may patch post-hoc
	w.WriteBits(0, 64) // endPos placeholder
	w.WriteBits(0, 64) // bitLen placeholder
	w.WriteBits(uint64(bt), 1)

	run := 0
	for _, s := range slots {
		if !s.Literal {
			run++
			continue
		}
		WriteLiteralRun(w, run, runBits)
		run = 0
		WriteHashLiteral(w, s.Rec)
	}
	WriteLiteralRun(w, run, runBits)
}

func writeExtLiteralBlock(w *BitWriter, rows []ExtRowSource) {
	w.WriteBits(MagicLitBlock, magicBits)
	w.WriteBits(0, 64)
	w.WriteBits(0, 64)
	w.WriteBits(0, 64)
	w.WriteBits(1, 1)

	run := 0
	for _, row := range rows {
		if !row.Literal {
			run++
			continue
		}
		WriteLiteralRun(w, run, NoLiteralRunBitsExt)
		run = 0
		WriteExtLiteral(w, row.Row)
	}
	WriteLiteralRun(w, run, NoLiteralRunBitsExt)
}

// writeAutoBlock marks, for each non-literal slot, whether the
// decompressor must leave it EMPTY or repopulate it by re-deriving the
// owning seed's hash and probe/chain walk (decompress.ReplayAutomatic uses
// the same deterministic packing the builder used, so every primary slot
// is written with a zero offset code rather than its real probe distance).
func writeAutoBlock(w *BitWriter, slots []SlotSource) {
	w.WriteBits(MagicAutoBlock, magicBits)
	w.WriteBits(0, 64)
	w.WriteBits(0, 64)
	w.WriteBits(0, 64)

	for _, s := range slots {
		if s.Literal {
			continue
		}
		if s.Rec == hashrec.EmptyQword {
			WriteAutoSlot(w, AutoSlot{Kind: AutoNone}, 0)
			continue
		}
		WriteAutoSlot(w, AutoSlot{Kind: AutoPrimary}, 0)
	}
}

// ParseHeader reads and validates the fixed preamble, returning the parsed
// config header.
func ParseHeader(r *BitReader) (hashcfg.Header, error) {
	if r.ReadBits(magicBits) != MagicFileStart {
		return hashcfg.Header{}, fmt.Errorf("compress: bad file-start magic")
	}
	if r.ReadBits(magicBits) != MagicVersion {
		return hashcfg.Header{}, fmt.Errorf("compress: bad version magic")
	}
	h := hashcfg.ReadHeaderBits(r)
	if r.ReadBits(magicBits) != MagicAfterHeader {
		return hashcfg.Header{}, fmt.Errorf("compress: bad after-header magic")
	}
	return h, nil
}
