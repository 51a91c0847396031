// Package reference packs ASCII FASTA contigs into the builder's 4-bit
// code stream, the per-1024-base index descriptors that locate each
// contig within it, and the optional lowercase (repeat-mask) bitstream.
package reference

import (
	"fmt"
	"hash/crc32"
)

var castagnoliTable = crc32.MakeTable(crc32.Castagnoli)

// Code is a 4-bit packed base code. Code 0 is the padding code.
type Code uint8

const (
	CodePad Code = 0
	bufEndPadBases = 163840
	indexStride    = 1024
)

// MaxRefSeqs bounds the number of contigs a single build may encode.
const MaxRefSeqs = 1 << 16

// MaxContigBases is the largest a single contig may be before the input is
// rejected outright.
const MaxContigBases = 1<<32 - 1

// encodeBase is the ASCII->4-bit translation table (ENCODE_BASE). '~' maps
// to the pad code; any byte not listed below is rejected by Add.
var encodeBase = buildEncodeTable()

func buildEncodeTable() [256]int8 {
	var t [256]int8
	for i := range t {
		t[i] = -1
	}
	bases := map[byte]Code{
		'A': 1, 'C': 2, 'G': 3, 'T': 4,
		'a': 1, 'c': 2, 'g': 3, 't': 4,
		'N': 0, 'n': 0,
		'R': 5, 'Y': 6, 'S': 7, 'W': 8, 'K': 9, 'M': 10,
		'B': 11, 'D': 12, 'H': 13, 'V': 14,
		'r': 5, 'y': 6, 's': 7, 'w': 8, 'k': 9, 'm': 10,
		'b': 11, 'd': 12, 'h': 13, 'v': 14,
	}
	for b, c := range bases {
		t[b] = int8(c)
	}
	t['~'] = int8(CodePad)
	return t
}

// Mode selects a translation variant applied uniformly as bases are
// encoded.
type Mode int

const (
	ModeNormal Mode = iota
	ModeMethylCtoT
	ModeMethylGtoA
)

// methylate rewrites code for a C->T or G->A bisulfite-style conversion,
// applied to every ambiguity code that includes the source base except N.
func methylate(mode Mode, code Code) Code {
	switch mode {
	case ModeMethylCtoT:
		switch code {
		case 2, 6, 7, 10, 11, 13, 14: // C, Y, S, M, B, H, V contain C
			return 4 // collapse toward T
		}
	case ModeMethylGtoA:
		switch code {
		case 3, 5, 7, 9, 11, 12, 14: // G, R, S, K, B, D, V contain G
			return 1 // collapse toward A
		}
	}
	return code
}

// IndexDescriptor is one 16-byte ref_index.bin record covering 1024 output
// bases.
type IndexDescriptor struct {
	RefID   uint32
	SeqPos  uint32 // position within contig of this block's first base
	Flags   uint16
	Reserved uint16
	BlockOrd uint32 // ordinal of this block within the whole code stream
}

// Contig is one encoder input record.
type Contig struct {
	Name  string
	Bases []byte // raw ASCII, may be mixed case
	RefID uint32
}

// Result is everything Encode produced for one build.
type Result struct {
	Codes        []Code // the full packed code stream including padding
	RepeatMask   []bool // same length as Codes; true where input was lowercase
	Index        []IndexDescriptor
	ContigSpans  []ContigSpan
	RefDigest    uint64
	IndexDigest  uint64
	RefSeqLen    uint64 // total padded length
	RefLenRaw    uint64 // total input bases before trimming
	RefLenNotN   uint64 // bases that were not N after trimming
}

// ContigSpan locates one contig's own slice of Codes, letting later stages
// (the STR scanner, seed hasher) claim contigs independently instead of
// reasoning about the concatenated stream.
type ContigSpan struct {
	RefID      uint32
	Start, End int // [Start, End) within Codes, including this contig's own pad
}

// Encoder packs contigs sequentially, maintaining the running digests and
// index stream the builder later writes to ref_index.bin/reference.bin.
type Encoder struct {
	mode    Mode
	popAlt  bool
	seen    map[string]bool
	result  Result
}

// New returns an Encoder. popAlt relaxes end-pad alignment from 1024 to 1.
func New(mode Mode, popAlt bool) *Encoder {
	return &Encoder{mode: mode, popAlt: popAlt, seen: make(map[string]bool)}
}

// Add encodes one contig and appends it (with its end pad) to the stream.
func (e *Encoder) Add(c Contig) error {
	if e.seen[c.Name] {
		return fmt.Errorf("reference: duplicate contig name %q", c.Name)
	}
	e.seen[c.Name] = true
	if len(c.Bases) > MaxContigBases {
		return fmt.Errorf("reference: contig %q exceeds max length %d", c.Name, MaxContigBases)
	}
	if int(c.RefID) >= MaxRefSeqs {
		return fmt.Errorf("reference: too many contigs (max %d)", MaxRefSeqs)
	}
	e.result.RefLenRaw += uint64(len(c.Bases))

	trimStart, trimEnd := trimNRuns(c.Bases)
	trimStart = alignDown(trimStart, 256)

	codes := make([]Code, 0, trimEnd-trimStart)
	mask := make([]bool, 0, trimEnd-trimStart)
	for _, b := range c.Bases[trimStart:trimEnd] {
		raw := encodeBase[b]
		if raw < 0 {
			return fmt.Errorf("reference: contig %q: unrecognized base %q", c.Name, string(b))
		}
		code := methylate(e.mode, Code(raw))
		if code != CodePad {
			e.result.RefLenNotN++
		}
		codes = append(codes, code)
		mask = append(mask, b >= 'a' && b <= 'z')
	}

	align := 1024
	if e.popAlt {
		align = 1
	}
	padded := alignUp(len(codes), align)
	for len(codes) < padded {
		codes = append(codes, CodePad)
		mask = append(mask, false)
	}

	blockOrd := uint32(len(e.result.Index))
	for off := 0; off < len(codes); off += indexStride {
		e.result.Index = append(e.result.Index, IndexDescriptor{
			RefID:    c.RefID,
			SeqPos:   uint32(trimStart + off),
			BlockOrd: blockOrd,
		})
		blockOrd++
	}

	start := len(e.result.Codes)
	e.result.Codes = append(e.result.Codes, codes...)
	e.result.RepeatMask = append(e.result.RepeatMask, mask...)
	e.result.ContigSpans = append(e.result.ContigSpans, ContigSpan{
		RefID: c.RefID,
		Start: start,
		End:   len(e.result.Codes),
	})
	return nil
}

// Finish pads the whole stream to a 1024-base boundary, appends the final
// 163840-base end-pad block, and computes digests.
func (e *Encoder) Finish() (Result, error) {
	padded := alignUp(len(e.result.Codes), 1024)
	for len(e.result.Codes) < padded {
		e.result.Codes = append(e.result.Codes, CodePad)
		e.result.RepeatMask = append(e.result.RepeatMask, false)
	}
	for i := 0; i < bufEndPadBases; i++ {
		e.result.Codes = append(e.result.Codes, CodePad)
		e.result.RepeatMask = append(e.result.RepeatMask, false)
	}
	e.result.RefSeqLen = uint64(len(e.result.Codes))
	if e.result.RefSeqLen>>36 != 0 {
		return Result{}, fmt.Errorf("reference: padded length %d overflows 36 bits", e.result.RefSeqLen)
	}

	e.result.RefDigest = digestCodes(e.result.Codes)
	e.result.IndexDigest = digestIndex(e.result.Index)
	return e.result, nil
}

func trimNRuns(bases []byte) (start, end int) {
	start, end = 0, len(bases)
	for start < end && isN(bases[start]) {
		start++
	}
	for end > start && isN(bases[end-1]) {
		end--
	}
	return start, end
}

func isN(b byte) bool { return b == 'N' || b == 'n' }

func alignUp(v, align int) int {
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

func alignDown(v, align int) int {
	return v - v%align
}

// digestCodes runs the hardware-accelerated CRC32C (Castagnoli) digest over
// the packed code stream, the same checksum reference.bin is verified with.
func digestCodes(codes []Code) uint64 {
	return uint64(crc32.Checksum(Pack(codes), castagnoliTable))
}

func digestIndex(idx []IndexDescriptor) uint64 {
	buf := make([]byte, 0, len(idx)*16)
	for _, d := range idx {
		buf = appendIndexDescriptor(buf, d)
	}
	return uint64(crc32.Checksum(buf, castagnoliTable))
}

func appendIndexDescriptor(buf []byte, d IndexDescriptor) []byte {
	var tmp [16]byte
	putU32(tmp[0:4], d.RefID)
	putU32(tmp[4:8], d.SeqPos)
	putU16(tmp[8:10], d.Flags)
	putU16(tmp[10:12], d.Reserved)
	putU32(tmp[12:16], d.BlockOrd)
	return append(buf, tmp[:]...)
}

func putU32(b []byte, v uint32) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
	b[2] = byte(v >> 16)
	b[3] = byte(v >> 24)
}

func putU16(b []byte, v uint16) {
	b[0] = byte(v)
	b[1] = byte(v >> 8)
}

// Pack folds two 4-bit codes into each output byte, low nibble first,
// matching reference.bin's on-disk layout.
func Pack(codes []Code) []byte {
	out := make([]byte, (len(codes)+1)/2)
	for i, c := range codes {
		if i%2 == 0 {
			out[i/2] = byte(c)
		} else {
			out[i/2] |= byte(c) << 4
		}
	}
	return out
}

// Unpack reverses Pack, given the exact base count n (the last byte may
// hold one unused nibble).
func Unpack(packed []byte, n int) []Code {
	out := make([]Code, n)
	for i := 0; i < n; i++ {
		b := packed[i/2]
		if i%2 == 0 {
			out[i] = Code(b & 0x0F)
		} else {
			out[i] = Code(b >> 4)
		}
	}
	return out
}
