// Package crc64x computes table-driven polynomial CRCs of configurable
// width, used by the Seed Hasher to derive a seed's primary (and, in
// anchored mode, secondary) hash from its canonical k-mer. Unlike the
// standard library's hash/crc64, the polynomial and output width are
// runtime parameters rather than fixed at compile time, since the hash
// table header records whichever polynomial index was requested at build
// time and the decompressor must be able to recompute the same hash for
// any of them.
package crc64x

// Table is a reflected CRC table for one (bits, poly) pair.
type Table struct {
	bits  uint
	poly  uint64
	mask  uint64
	table [256]uint64
}

// New builds a Table for a CRC of the given bit width (1..64) using
// poly as the reflected polynomial.
func New(bits uint, poly uint64) *Table {
	if bits == 0 || bits > 64 {
		panic("crc64x: bits out of range")
	}
	mask := uint64(1)<<bits - 1
	t := &Table{bits: bits, poly: poly & mask, mask: mask}
	for i := 0; i < 256; i++ {
		crc := uint64(i)
		for j := 0; j < 8; j++ {
			if crc&1 != 0 {
				crc = (crc >> 1) ^ t.poly
			} else {
				crc >>= 1
			}
		}
		t.table[i] = crc & mask
	}
	return t
}

// Bits returns the configured output width.
func (t *Table) Bits() uint { return t.bits }

// Checksum computes the CRC of key's low t.Bits() bits, seeded with key
// itself so callers can feed it directly from a packed k-mer without
// a separate byte-serialization step.
func (t *Table) Checksum(key uint64) uint64 {
	crc := key & t.mask
	for i := 0; i < 8; i++ {
		crc = (crc >> 8) ^ t.table[byte(crc)]
	}
	return crc & t.mask
}

// Sum updates a running crc with the bytes in data, reflected input/output,
// used when digesting variable-length byte streams (e.g. reference
// sequence chunks) rather than fixed-width keys.
func (t *Table) Sum(crc uint64, data []byte) uint64 {
	crc &= t.mask
	for _, b := range data {
		crc = (crc >> 8) ^ t.table[byte(crc)^b]
	}
	return crc & t.mask
}

// Registry of standard polynomials selectable by index via PolyByIndex
// (the chosen polynomial is recorded in hashcfg.Header.PriCrcPoly /
// SecCrcPoly), mirroring the small fixed set of
// CRC polynomials the reference builder ships with.
var polynomials = []uint64{
	0x95AC9329AC4BC9B5,
	0xAD93D23594C935A9,
	0xD95CA3B59A9C93A5,
	0xC96B3A9D5AC9935D,
}

// PolyByIndex returns one of the builder's canned polynomials.
func PolyByIndex(idx int) uint64 {
	return polynomials[idx%len(polynomials)]
}
