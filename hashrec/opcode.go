// Package hashrec defines the 64-bit hash-table record union, the bucket
// and wrap/chain-block geometry it lives in, and the extend_hit records in
// the extension table. It is imported by every build-pipeline stage from
// the Seed Hasher onward, and by the Compressor/Decompressor, so that all
// of them agree on one encode/decode surface for the on-disk layout
// described in spec.md section 3.
package hashrec

import "fmt"

// Opcode distinguishes the format held by a 64-bit Record. For every kind
// except HIT it is read from the byte at bits [24:32); a HIT record has no
// opcode field at all and is recognized by that byte falling below the
// reserved range (see Record.Opcode).
type Opcode uint8

const (
	OpEmpty Opcode = iota
	OpHit
	OpExtend
	OpIntervalSL
	OpIntervalSL1
	OpIntervalSLE
	OpIntervalS
	OpIntervalL
	OpChainBegMask
	OpChainBegList
	OpChainConMask
	OpChainConList
	OpSpecial
)

func (op Opcode) String() string {
	switch op {
	case OpEmpty:
		return "EMPTY"
	case OpHit:
		return "HIT"
	case OpExtend:
		return "EXTEND"
	case OpIntervalSL:
		return "INTERVAL_SL"
	case OpIntervalSL1:
		return "INTERVAL_SL1"
	case OpIntervalSLE:
		return "INTERVAL_SLE"
	case OpIntervalS:
		return "INTERVAL_S"
	case OpIntervalL:
		return "INTERVAL_L"
	case OpChainBegMask:
		return "CHAIN_BEG_MASK"
	case OpChainBegList:
		return "CHAIN_BEG_LIST"
	case OpChainConMask:
		return "CHAIN_CON_MASK"
	case OpChainConList:
		return "CHAIN_CON_LIST"
	case OpSpecial:
		return "SPECIAL"
	default:
		return fmt.Sprintf("Opcode(%d)", uint8(op))
	}
}

// IsInterval reports whether op is one of the five INTERVAL_* encodings.
func (op Opcode) IsInterval() bool {
	switch op {
	case OpIntervalSL, OpIntervalSL1, OpIntervalSLE, OpIntervalS, OpIntervalL:
		return true
	default:
		return false
	}
}

// IsChain reports whether op occupies the last slot of a bucket as a chain
// escape record (CHAIN_BEG_* or CHAIN_CON_*).
func (op Opcode) IsChain() bool {
	switch op {
	case OpChainBegMask, OpChainBegList, OpChainConMask, OpChainConList:
		return true
	default:
		return false
	}
}

// IsBegin reports whether op is a CHAIN_BEG_* record (first hop of a chain,
// as opposed to CHAIN_CON_* which continues one).
func (op Opcode) IsBegin() bool {
	return op == OpChainBegMask || op == OpChainBegList
}

// UsesMaskFilter reports whether op carries a 32-bit bitmap filter (as
// opposed to a 4-entry sorted-prefix list).
func (op Opcode) UsesMaskFilter() bool {
	return op == OpChainBegMask || op == OpChainConMask
}
