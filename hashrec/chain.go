package hashrec

// Chain occupies the last slot of a bucket and redirects an overflowing
// thread into an overflow chain block. BEG starts a new chain, CON
// continues one already in progress; MASK filters candidates with a 32-bit
// bitmap over a 5-bit prefix of the seed's hash bits, LIST filters with four sorted
// 8-bit prefixes, whichever rejects more false candidates for the threads
// sharing this slot.
type Chain struct {
	ChainPtr uint32 // 18 bits: target bucket's offset within its chain block
	Begin    bool
	Filter   Filter
	// Terminator marks the final link of a chain; set only on the last
	// chain record a thread's overflow was moved to. Packed into the low
	// bit of chain_pad.
	Terminator bool
	// OriginCount is the number of records the originating bucket held
	// before chaining began, stashed in chain_pad's remaining bits so the
	// compressor can regenerate it without re-deriving occupancy.
	OriginCount uint8
}

// Filter is the 32-bit payload interpreted either as a bitmap or as four
// sorted one-byte prefixes, chosen by Opcode.
type Filter uint32

// Mask returns f as a 32-bit bitmap.
func (f Filter) Mask() uint32 { return uint32(f) }

// List returns f as four sorted one-byte prefixes, most significant first.
func (f Filter) List() [4]uint8 {
	return [4]uint8{
		uint8(f >> 24),
		uint8(f >> 16),
		uint8(f >> 8),
		uint8(f),
	}
}

// NewFilterList packs four ascending one-byte prefixes into a Filter.
func NewFilterList(prefixes [4]uint8) Filter {
	return Filter(uint32(prefixes[0])<<24 | uint32(prefixes[1])<<16 | uint32(prefixes[2])<<8 | uint32(prefixes[3]))
}

const (
	chainPtrBits = 18
	chainPadBits = 6
)

// NewChain packs c into a Record using useList to choose MASK vs LIST and
// begin to choose BEG vs CON.
func NewChain(c Chain, useList bool) Record {
	v := uint64(0)
	v = setBits(v, 0, chainPtrBits, uint64(c.ChainPtr))
	pad := uint64(c.OriginCount) << 1
	if c.Terminator {
		pad |= 1
	}
	v = setBits(v, chainPtrBits, chainPadBits, pad)
	op := chainOpcode(c.Begin, useList)
	v = setBits(v, 24, 8, uint64(op))
	v = setBits(v, 32, 32, uint64(c.Filter))
	return Record(v)
}

func chainOpcode(begin, useList bool) uint8 {
	switch {
	case begin && !useList:
		return OpcodeChainBegMask
	case begin && useList:
		return OpcodeChainBegList
	case !begin && !useList:
		return OpcodeChainConMask
	default:
		return OpcodeChainConList
	}
}

// AsChain decodes r. Callers must check Opcode().IsChain() first.
func (r Record) AsChain() Chain {
	v := uint64(r)
	op := Opcode(r.opcodeByte())
	pad := bits(v, chainPtrBits, chainPadBits)
	return Chain{
		ChainPtr:    uint32(bits(v, 0, chainPtrBits)),
		Begin:       op.IsBegin(),
		Filter:      Filter(bits(v, 32, 32)),
		Terminator:  pad&1 != 0,
		OriginCount: uint8(pad >> 1),
	}
}
