package compress

import "github.com/Illumina/DRAGMAP-sub000/hashrec"

// SlotSource is one physical hash-table slot together with the literal
// flag decided for it: true means "cannot be regenerated by re-hashing
// the reference, must be stored verbatim"; false means "automatic",
// regenerable at decompression time from a re-derived hash and probe walk.
type SlotSource struct {
	Rec     hashrec.Record
	Literal bool
}

// WriteLiteralRun writes the length of a run of zero or more non-literal
// slots (the caller writes the literal record that follows), using
// COMP_NOLITERAL_RUN_BITS-wide run lengths (repeating
// the maximum value when a run of non-literal slots exceeds what one field
// can express).
func WriteLiteralRun(w *BitWriter, run int, runBits int) {
	maxRun := (1 << runBits) - 1
	for run >= maxRun {
		w.WriteBits(uint64(maxRun), runBits)
		run -= maxRun
	}
	w.WriteBits(uint64(run), runBits)
}

// ReadLiteralRun mirrors WriteLiteralRun.
func ReadLiteralRun(r *BitReader, runBits int) int {
	maxRun := (1 << runBits) - 1
	total := 0
	for {
		v := int(r.ReadBits(runBits))
		total += v
		if v != maxRun {
			return total
		}
	}
}

// WriteHashLiteral encodes one literal hash-table record: a 1-bit chain
// flag, then either the raw 64 bits of a non-chain record (HIT, EXTEND,
// EMPTY, ...), a single 0 bit for a chain terminator, or the two bits 10
// plus an 18-bit pointer for a chain continuation. A bucket's last slot can hold
// either a genuine chain escape or a plain record left over from having
// fewer than RecordsPerBucket-1 hits, so the chain/non-chain choice must
// be self-describing rather than inferred from slot position.
func WriteHashLiteral(w *BitWriter, rec hashrec.Record) {
	op := rec.Opcode()
	if !op.IsChain() {
		w.WriteBits(0, 1)
		w.WriteBits(uint64(rec), 64)
		return
	}
	w.WriteBits(1, 1)
	c := rec.AsChain()
	if c.Terminator {
		w.WriteBits(0, 1)
		return
	}
	w.WriteBits(1, 1)
	w.WriteBits(0, 1)
	w.WriteBits(uint64(c.ChainPtr), 18)
}

// ReadHashLiteral mirrors WriteHashLiteral.
func ReadHashLiteral(r *BitReader) hashrec.Record {
	if r.ReadBits(1) == 0 {
		return hashrec.Record(r.ReadBits(64))
	}
	if r.ReadBits(1) == 0 {
		return hashrec.NewChain(hashrec.Chain{Terminator: true}, true)
	}
	r.ReadBits(1) // trailing 0 of "110"
	ptr := uint32(r.ReadBits(18))
	return hashrec.NewChain(hashrec.Chain{ChainPtr: ptr}, true)
}

// WriteExtLiteral encodes one literal extension-table row: a 1-bit
// lift-presence flag, then either 35 bits (no liftover) or the full
// 63-bit row (liftover present).
func WriteExtLiteral(w *BitWriter, row hashrec.ExtendHit) {
	f := row.Fields()
	if f.LiftCode == hashrec.LiftNone {
		w.WriteBits(0, 1)
		v := uint64(f.Pos)
		if f.RC {
			v |= 1 << 32
		}
		if f.Literal {
			v |= 1 << 33
		}
		w.WriteBits(v, 35)
		return
	}
	w.WriteBits(1, 1)
	w.WriteBits(uint64(row), 63)
}

// ReadExtLiteral mirrors WriteExtLiteral; the caller does not need to know
// in advance whether a liftover annotation is present.
func ReadExtLiteral(r *BitReader) hashrec.ExtendHit {
	if r.ReadBits(1) == 0 {
		v := r.ReadBits(35)
		return hashrec.NewExtendHit(hashrec.ExtendHitFields{
			Pos:     uint32(v & 0xFFFFFFFF),
			RC:      v&(1<<32) != 0,
			Literal: v&(1<<33) != 0,
		})
	}
	return hashrec.ExtendHit(r.ReadBits(63))
}
