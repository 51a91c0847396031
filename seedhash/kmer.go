// Package seedhash derives each sampled reference position's canonical
// k-mer, hashes it with the configured CRC64 polynomial, and appends a HIT
// record to its home bucket.
package seedhash

import "github.com/Illumina/DRAGMAP-sub000/reference"

// complementTable maps a 4-bit base code to its complement: ambiguity codes
// map to their IUPAC complements (S, W and the pad code map to themselves).
// Ambiguity codes never participate in seed hashing directly (multi-base
// expansion resolves them to concrete bases first).
var complementTable = [16]reference.Code{
	0: 0, 1: 4, 2: 3, 3: 2, 4: 1,
	5: 6, 6: 5, 7: 7, 8: 8, 9: 10, 10: 9,
	11: 14, 12: 13, 13: 12, 14: 11,
}

// Pack folds length 2-bit-ish 4-bit codes into a uint64 k-mer, 4 bits per
// base, most recent base in the low bits.
func Pack(codes []reference.Code) uint64 {
	var v uint64
	for _, c := range codes {
		v = (v << 4) | uint64(c)
	}
	return v
}

// ReverseComplement returns the reverse-complement packed k-mer of a
// length-base window packed by Pack.
func ReverseComplement(kmer uint64, length int) uint64 {
	var v uint64
	for i := 0; i < length; i++ {
		base := reference.Code(kmer & 0xF)
		kmer >>= 4
		v = (v << 4) | uint64(complementTable[base])
	}
	return v
}

// Canonical returns the lexicographically smaller of kmer and its
// reverse complement, and whether that choice required reverse-complementing
// (rc == true means the input strand's hit should be recorded with the RC
// flag set), and whether kmer is a palindrome (equal to its own reverse
// complement), which contributes hits in both orientations.
func Canonical(kmer uint64, length int) (canon uint64, rc bool, palindrome bool) {
	revComp := ReverseComplement(kmer, length)
	if revComp == kmer {
		return kmer, false, true
	}
	if revComp < kmer {
		return revComp, true, false
	}
	return kmer, false, false
}

// HasAmbiguity reports whether any code in the window is not one of the
// four concrete bases (or pad), i.e. the position needs multi-base
// expansion rather than a single hash.
func HasAmbiguity(codes []reference.Code) bool {
	for _, c := range codes {
		if c > 4 {
			return true
		}
	}
	return false
}

// ambiguityChoices lists the concrete bases an ambiguity code can expand to.
var ambiguityChoices = map[reference.Code][]reference.Code{
	5:  {1, 3},    // R: A/G
	6:  {2, 4},    // Y: C/T
	7:  {2, 3},    // S: C/G
	8:  {1, 4},    // W: A/T
	9:  {3, 4},    // K: G/T
	10: {1, 2},    // M: A/C
	11: {2, 3, 4}, // B: C/G/T
	12: {1, 3, 4}, // D: A/G/T
	13: {1, 2, 4}, // H: A/C/T
	14: {1, 2, 3}, // V: A/C/G
}

// Expand returns every concrete k-mer the ambiguous window resolves to, via
// the Cartesian product of each position's candidate bases, capped at max
// expansions (callers treat exceeding max as a capacity error).
func Expand(codes []reference.Code, max int) ([]uint64, bool) {
	combos := [][]reference.Code{{}}
	for _, c := range codes {
		choices := []reference.Code{c}
		if alt, ok := ambiguityChoices[c]; ok {
			choices = alt
		}
		var next [][]reference.Code
		for _, prefix := range combos {
			for _, ch := range choices {
				if len(next) >= max {
					return nil, false
				}
				row := make([]reference.Code, len(prefix), len(prefix)+1)
				copy(row, prefix)
				next = append(next, append(row, ch))
			}
		}
		combos = next
	}
	out := make([]uint64, len(combos))
	for i, row := range combos {
		out[i] = Pack(row)
	}
	return out, true
}
