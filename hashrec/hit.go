package hashrec

// Hit is the most common record kind: a direct pointer to one occurrence of
// a seed in the packed reference, addressed by seed index rather than by
// raw position so occurrences can be re-sorted without moving the index.
type Hit struct {
	SeedIndex uint32 // < MaxSeedIndex
	Tail      MatchTail
}

// NewHit packs h into a Record. SeedIndex must stay below MaxSeedIndex or
// its top byte would alias a reserved opcode.
func NewHit(h Hit) Record {
	v := uint64(h.SeedIndex)
	v = setMatchTail(v, h.Tail)
	return Record(v)
}

// AsHit decodes r as a HIT record. Callers must check Opcode() == OpHit
// first.
func (r Record) AsHit() Hit {
	v := uint64(r)
	return Hit{
		SeedIndex: uint32(bits(v, 0, 32)),
		Tail:      getMatchTail(r),
	}
}

// SpecialHitPosMask masks the position field of a SPECIAL (palindrome
// redirect) hit record: its top 6 bits are pinned to the OpcodeSpecialHit
// pattern, leaving 26 bits of addressable position.
const SpecialHitPosMask = 0x03FFFFFF

// SpecialHitBase is bitwise-ORed with a 26-bit position to build a SPECIAL
// hit record's low field.
const SpecialHitBase = uint64(OpcodeSpecialHit) << 24

// Special is a palindrome-redirect record: seeds whose canonical form is
// its own reverse complement are routed through a single shared bucket
// slot instead of being duplicated, per the Extension Planner's even-length
// palindrome handling.
type Special struct {
	Pos  uint32 // 26 bits
	Tail MatchTail
}

// NewSpecial packs s into a Record.
func NewSpecial(s Special) Record {
	v := SpecialHitBase | (uint64(s.Pos) & SpecialHitPosMask)
	v = setMatchTail(v, s.Tail)
	return Record(v)
}

// AsSpecial decodes r as a SPECIAL record. Callers must check
// Opcode() == OpSpecial first.
func (r Record) AsSpecial() Special {
	v := uint64(r)
	return Special{
		Pos:  uint32(v & SpecialHitPosMask),
		Tail: getMatchTail(r),
	}
}

// Extend points a bucket-overflow thread at a run of rows in the extension
// table, used once a thread's direct hit count exceeds what a bucket can
// hold inline.
type Extend struct {
	ExtendID  uint32 // 18 bits: index of first extend_hit_t row
	ExtendLen uint8  // 4 bits: row count - 1, so 1..16 rows
	AllHits   bool   // every occurrence of the seed is inside this run
	Tail      MatchTail
}

const (
	extendIDStart  = 0
	extendIDBits   = 18
	extendLenStart = 18
	extendLenBits  = 4
	extendALBit    = 22
	extendRSBit    = 31
)

// NewExtend packs e into a Record.
func NewExtend(e Extend) Record {
	v := uint64(0)
	v = setBits(v, extendIDStart, extendIDBits, uint64(e.ExtendID))
	v = setBits(v, extendLenStart, extendLenBits, uint64(e.ExtendLen))
	v = setBits(v, extendALBit, 1, boolBit(e.AllHits))
	v = setBits(v, 24, 8, OpcodeExtend)
	v = setMatchTail(v, e.Tail)
	return Record(v)
}

// AsExtend decodes r as an EXTEND record. Callers must check
// Opcode() == OpExtend first.
func (r Record) AsExtend() Extend {
	v := uint64(r)
	return Extend{
		ExtendID:  uint32(bits(v, extendIDStart, extendIDBits)),
		ExtendLen: uint8(bits(v, extendLenStart, extendLenBits)),
		AllHits:   bits(v, extendALBit, 1) != 0,
		Tail:      getMatchTail(r),
	}
}
