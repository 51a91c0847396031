package hashrec

// ExtendHit is one row of the extension table: the overflow storage for
// threads whose hit count exceeds what a bucket's inline HIT/INTERVAL_*
// records can represent. Rows are referenced by an Extend record's
// ExtendID/ExtendLen pair.
type ExtendHit uint64

const (
	extendHitRCBit       = 32
	extendHitLiftCodeBit = 33
	extendHitLiftCodeBits = 2
	extendHitGroupBit    = 35
	extendHitGroupBits   = 28
	extendHitLiteralBit  = 63
)

// ExtendHitFields is the decoded view of an ExtendHit row.
type ExtendHitFields struct {
	Pos       uint32
	RC        bool
	LiftCode  uint8  // 2 bits: none / shift / split / drop
	LiftGroup uint32 // 28 bits: index into the liftover group table
	Literal   bool   // row holds a literal position, not a lift-group reference
}

// NewExtendHit packs f into an ExtendHit row.
func NewExtendHit(f ExtendHitFields) ExtendHit {
	v := uint64(f.Pos)
	v = setBits(v, extendHitRCBit, 1, boolBit(f.RC))
	v = setBits(v, extendHitLiftCodeBit, extendHitLiftCodeBits, uint64(f.LiftCode))
	v = setBits(v, extendHitGroupBit, extendHitGroupBits, uint64(f.LiftGroup))
	v = setBits(v, extendHitLiteralBit, 1, boolBit(f.Literal))
	return ExtendHit(v)
}

// Fields decodes the row.
func (e ExtendHit) Fields() ExtendHitFields {
	v := uint64(e)
	return ExtendHitFields{
		Pos:       uint32(bits(v, 0, 32)),
		RC:        bits(v, extendHitRCBit, 1) != 0,
		LiftCode:  uint8(bits(v, extendHitLiftCodeBit, extendHitLiftCodeBits)),
		LiftGroup: uint32(bits(v, extendHitGroupBit, extendHitGroupBits)),
		Literal:   bits(v, extendHitLiteralBit, 1) != 0,
	}
}

// Liftover codes for ExtendHitFields.LiftCode.
const (
	LiftNone  = 0
	LiftShift = 1
	LiftSplit = 2
	LiftDrop  = 3
)
