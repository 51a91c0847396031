// Package strscan finds short tandem repeats in an encoded reference and
// gathers the seed pre-hash frequency counts the Sizer uses to size the
// extension table.
package strscan

import (
	"sort"

	"github.com/Illumina/DRAGMAP-sub000/reference"
)

// MaxPeriod is the longest repeat unit length considered.
const MaxPeriod = 8

// Record is one str_table.bin entry.
type Record struct {
	Mask      uint32
	RefID     uint32
	BegPos    uint32
	Length    uint32
	Period    uint8
	RepeatLen uint8
	_pad      [2]byte
}

// logDecimation maps a (period, repeatLen) bucket to a log2 keep-rate:
// value k keeps 1-in-2^k records, sparser for common short repeats.
var logDecimation = [MaxPeriod + 1][]uint8{
	1: {6, 5, 4, 3, 2, 1, 0}, // homopolymers: the shortest runs are thinned hardest
	2: {5, 4, 3, 2, 1, 0, 0},
	3: {4, 3, 2, 1, 0, 0, 0},
	4: {3, 2, 1, 0, 0, 0, 0},
}

func decimationShift(period int, repeatLen int) uint8 {
	table := logDecimation[period]
	if table == nil {
		return 0
	}
	if repeatLen >= len(table) {
		return table[len(table)-1]
	}
	return table[repeatLen]
}

// Scan finds STR records in one contig's codes, downsampling per
// (period, repeatLen) bucket.
func Scan(refID uint32, codes []reference.Code) []Record {
	var out []Record
	bestEnd := make([]int, MaxPeriod+1)
	// counts mirrors the original scanner's per-(period, repeatLen) running
	// tally (refId + count[period][repeatLen]++), stashed in Mask so
	// str_table.bin carries the same provenance data the C tool did even
	// though the keep/drop decision itself uses the shift test below.
	var counts [MaxPeriod + 1][256]uint32
	for pos := range codes {
		var bestPeriod, bestLen, bestRepeat, bestBeg int
		for period := 1; period <= MaxPeriod; period++ {
			if pos < bestEnd[period] {
				continue
			}
			beg, length := extendRun(codes, pos, period, bestEnd[period])
			if length < 2*period {
				continue
			}
			if length > bestLen || (length == bestLen && period < bestPeriod) {
				bestPeriod, bestLen, bestRepeat, bestBeg = period, length, length/period, beg
			}
		}
		if bestLen == 0 {
			continue
		}
		bestEnd[bestPeriod] = bestBeg + bestLen
		repeatBucket := uint8(bestRepeat)
		cnt := refID + counts[bestPeriod][repeatBucket]
		counts[bestPeriod][repeatBucket]++
		shift := decimationShift(bestPeriod, bestRepeat)
		if shift > 0 && (bestBeg>>shift)<<shift != bestBeg {
			continue
		}
		out = append(out, Record{
			Mask:      cnt,
			RefID:     refID,
			BegPos:    uint32(bestBeg),
			Length:    uint32(bestLen),
			Period:    uint8(bestPeriod),
			RepeatLen: repeatBucket,
		})
	}
	return out
}

// extendRun finds the longest period-length repeat unit containing pos,
// extending right to the contig end and left down to (but not past)
// lowBound, the previous accepted run's end for this same period. The left
// bound matters because a position can lose the "best period at this pos"
// vote to a different, longer-matching period and never get re-examined on
// its own, which would otherwise truncate its period's run by whatever
// prefix the winning period claimed first.
func extendRun(codes []reference.Code, pos, period, lowBound int) (beg, length int) {
	n := len(codes)
	right := 0
	for pos+right+period <= n && sameUnit(codes, pos, pos+right, period) {
		right += period
	}
	left := 0
	for pos-left-period >= lowBound && sameUnit(codes, pos, pos-left-period, period) {
		left += period
	}
	return pos - left, left + right
}

// sameUnit reports whether the period-length window at at matches the one
// anchored at anchor.
func sameUnit(codes []reference.Code, anchor, at, period int) bool {
	for i := 0; i < period; i++ {
		if codes[at+i] != codes[anchor+i] {
			return false
		}
	}
	return true
}

// SortTable orders records the way str_table.bin is written: by refID then
// begPos.
func SortTable(recs []Record) {
	sort.Slice(recs, func(i, j int) bool {
		if recs[i].RefID != recs[j].RefID {
			return recs[i].RefID < recs[j].RefID
		}
		return recs[i].BegPos < recs[j].BegPos
	})
}
