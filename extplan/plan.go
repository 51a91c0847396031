// Package extplan decides, per bucket, how to fold groups of seeds sharing
// a hash prefix into EXTEND/INTERVAL_* records pointing at the extension
// table, minimizing a cost function that trades off seed length against
// expected query frequency.
package extplan

import (
	"sort"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/reference"
)

// ThinningMaxPeriod bounds the position-modulo placement table used to
// thin oversized groups before planning.
const ThinningMaxPeriod = 16

// LiftGroup is the liftover annotation an extension-table row may carry
// when alt-contig liftover is enabled. A nil *LiftGroup means "no
// liftover" and every related field encodes as zero, matching the
// on-disk format whether or not liftover is in use.
type LiftGroup struct {
	ID    uint32
	Code  uint8 // hashrec.LiftShift/LiftSplit/LiftDrop
	Shift int32
}

// Seed is one member of a same-hash-prefix group entering the planner.
type Seed struct {
	Pos       uint32
	RC        bool
	ThreadID  uint8
	Extension []reference.Code // up to maxSeedBases-primarySeedLen bases, alternating from both ends
	Lift      *LiftGroup
}

// CostModel holds the coefficients the planner's cost function is built
// from.
type CostModel struct {
	SeedLenCost    float64
	SeedFreqCost   float64
	ExtensionCost  float64
	ExtStepCost    float64
	ExtRecCost     float64
	TargetFreq     int
	PriMaxSeedFreq int
	MaxSeedFreq    int
	MaxSeedFreqLen int
	MaxExtIncrement int
}

// freqCap ramps from PriMaxSeedFreq at primaryLen to MaxSeedFreq at
// MaxSeedFreqLen.
func (c CostModel) freqCap(length, primaryLen int) int {
	if length <= primaryLen {
		return c.PriMaxSeedFreq
	}
	if length >= c.MaxSeedFreqLen {
		return c.MaxSeedFreq
	}
	span := c.MaxSeedFreqLen - primaryLen
	frac := float64(length-primaryLen) / float64(span)
	return c.PriMaxSeedFreq + int(frac*float64(c.MaxSeedFreq-c.PriMaxSeedFreq))
}

// cell is one entry of the bottom-up DP table T[len][i].
type cell struct {
	cost      float64
	nextLen   int // 0 = stop here
	masked    bool
}

// Node is one internal node of the planned extension tree: either a leaf
// (Hits non-nil) or an internal EXTEND node whose Children partition the
// seed range at a longer length.
type Node struct {
	Start, Length int // seed index range [Start,Start+Length) within the sorted group
	SeedLen       int
	Leaf          bool
	Hits          []Seed // populated only for Leaf nodes
	Children      []*Node
}

// Plan builds the extension tree for one same-prefix group of seeds,
// already sorted in center-symmetric order by the caller.
func Plan(group []Seed, primaryLen, maxSeedBases int, cost CostModel) *Node {
	if len(group) <= 1 {
		return &Node{Start: 0, Length: len(group), SeedLen: primaryLen, Leaf: true, Hits: group}
	}
	return planRange(group, 0, len(group), primaryLen, maxSeedBases, cost)
}

func planRange(group []Seed, start, length, seedLen, maxSeedBases int, cost CostModel) *Node {
	stopCost := float64(length) * (float64(seedLen)*cost.SeedLenCost +
		absFloat(float64(length-cost.TargetFreq))*cost.SeedFreqCost) + cost.ExtRecCost

	bestCost := stopCost
	var bestChildren []*Node
	bestNextLen := 0

	if seedLen < maxSeedBases {
		for nextLen := seedLen + 2; nextLen <= seedLen+cost.MaxExtIncrement && nextLen <= maxSeedBases; nextLen += 2 {
			children, childCost, ok := splitByExtension(group, start, length, nextLen, maxSeedBases, cost)
			if !ok {
				continue
			}
			total := float64(length)*(cost.ExtStepCost+cost.ExtensionCost) + childCost + 2*cost.ExtRecCost
			if total < bestCost {
				bestCost = total
				bestChildren = children
				bestNextLen = nextLen
			}
		}
	}

	if bestNextLen == 0 {
		return &Node{Start: start, Length: length, SeedLen: seedLen, Leaf: true, Hits: group[start : start+length]}
	}
	return &Node{Start: start, Length: length, SeedLen: bestNextLen, Leaf: false, Children: bestChildren}
}

// splitByExtension partitions [start,start+length) into runs sharing an
// identical extension prefix at nextLen bases, recursing into each run,
// and rejects the split if any resulting run would exceed this length's
// frequency cap.
func splitByExtension(group []Seed, start, length, nextLen, maxSeedBases int, cost CostModel) ([]*Node, float64, bool) {
	freqCap := cost.freqCap(nextLen, nextLen-2)
	var children []*Node
	var total float64
	i := start
	for i < start+length {
		j := i + 1
		for j < start+length && sameExtensionPrefix(group[i], group[j], nextLen) {
			j++
		}
		runLen := j - i
		if runLen > freqCap {
			return nil, 0, false
		}
		child := planRange(group, i, runLen, nextLen, maxSeedBases, cost)
		children = append(children, child)
		total += nodeCost(child, cost)
		i = j
	}
	return children, total, true
}

func nodeCost(n *Node, cost CostModel) float64 {
	if n.Leaf {
		return float64(n.Length) * (float64(n.SeedLen)*cost.SeedLenCost +
			absFloat(float64(n.Length-cost.TargetFreq))*cost.SeedFreqCost) + cost.ExtRecCost
	}
	var sum float64
	for _, c := range n.Children {
		sum += nodeCost(c, cost)
	}
	return float64(n.Length)*(cost.ExtStepCost+cost.ExtensionCost) + sum + 2*cost.ExtRecCost
}

func sameExtensionPrefix(a, b Seed, length int) bool {
	n := length
	if n > len(a.Extension) {
		n = len(a.Extension)
	}
	if n > len(b.Extension) {
		return false
	}
	for i := 0; i < n; i++ {
		if a.Extension[i] != b.Extension[i] {
			return false
		}
	}
	return true
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// SortCenterSymmetric orders a group so identical extensions end up
// lexicographically adjacent: seeds are compared by alternating bases from
// each end of their extension, outermost first.
func SortCenterSymmetric(group []Seed) {
	sort.Slice(group, func(i, j int) bool {
		a, b := group[i].Extension, group[j].Extension
		n := len(a)
		if len(b) < n {
			n = len(b)
		}
		for k := 0; k < n; k++ {
			idx := centerSymmetricIndex(k, n)
			if a[idx] != b[idx] {
				return a[idx] < b[idx]
			}
		}
		return len(a) < len(b)
	})
}

func centerSymmetricIndex(k, n int) int {
	if k%2 == 0 {
		return k / 2
	}
	return n - 1 - k/2
}

// ExtendIDAllocator issues unique extendId values per bin, where a bin is
// chosen from the low bits of a seed group's hash prefix. Exhausting a
// bin's id space is a capacity error.
type ExtendIDAllocator struct {
	counters []uint32
	limit    uint32
}

// NewExtendIDAllocator returns an allocator with 2^binBits bins, each
// capped at 2^hashrec.extendIDBits ids (HASH_RECORD_EXT_ID_BITS).
func NewExtendIDAllocator(binBits uint) *ExtendIDAllocator {
	return &ExtendIDAllocator{
		counters: make([]uint32, 1<<binBits),
		limit:    1 << 18, // HASH_RECORD_EXT_ID_BITS
	}
}

// Next returns the next extendId in bin, or a CapacityError if that bin's
// id space is exhausted.
func (a *ExtendIDAllocator) Next(bin uint32) (uint32, error) {
	idx := bin % uint32(len(a.counters))
	if a.counters[idx] >= a.limit {
		return 0, &buildctx.CapacityError{
			Msg:      "extension-id space exhausted",
			Guidance: "increase --ht-seed-len and/or --ht-max-seed-freq",
		}
	}
	id := a.counters[idx]
	a.counters[idx]++
	return id, nil
}
