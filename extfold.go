package main

import (
	"sort"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/compress"
	"github.com/Illumina/DRAGMAP-sub000/config"
	"github.com/Illumina/DRAGMAP-sub000/extplan"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/reference"
)

// maxExtendRows bounds the flat extension table to what an 18-bit ExtendID
// can address.
const maxExtendRows = 1 << 18

// extendChunkMax is the largest row count one EXTEND record can cover
// (ExtendLen is a 4-bit "count-1" field).
const extendChunkMax = 16

// extendFolder asks the Extension Planner, per same-hash-prefix group
// within a bucket, whether folding its hits into the extension table is
// cheaper than leaving them as plain HIT records, and appends whatever
// rows it decides to keep into one build-wide flat table.
type extendFolder struct {
	seedLen      int
	maxSeedBases int
	maxExtBases  int
	cost         extplan.CostModel
	alloc        *extplan.ExtendIDAllocator
	anchorMask   uint32
	codes        []reference.Code
	rows         []hashrec.ExtendHit
}

func newExtendFolder(opts *config.Options, codes []reference.Code, seedLen int) *extendFolder {
	anchorBins := uint32(1) << opts.AnchorBinBits
	return &extendFolder{
		seedLen:      seedLen,
		maxSeedBases: int(opts.MaxExtSeedLen),
		maxExtBases:  int(opts.MaxExtSeedLen) - seedLen,
		cost: extplan.CostModel{
			SeedLenCost:     opts.CostCoeffSeedLen,
			SeedFreqCost:    opts.CostCoeffSeedFreq,
			ExtensionCost:   opts.CostPenalty,
			ExtStepCost:     opts.CostPenaltyIncr,
			ExtRecCost:      opts.ExtRecCost,
			TargetFreq:      int(opts.TargetSeedFreq),
			PriMaxSeedFreq:  int(opts.PriMaxSeedFreq),
			MaxSeedFreq:     int(opts.MaxSeedFreq),
			MaxSeedFreqLen:  int(opts.MaxSeedFreqLen),
			MaxExtIncrement: int(opts.MaxExtIncr),
		},
		alloc:      extplan.NewExtendIDAllocator(opts.AnchorBinBits),
		anchorMask: anchorBins - 1,
		codes:      codes,
	}
}

// Fold groups kept, already-thinned records from one bucket by their
// truncated hash prefix (hashrec.MatchTail.HashBits) and plans each group
// independently, passing non-HIT records (e.g. SPECIAL) through untouched.
func (f *extendFolder) Fold(kept []hashrec.Record) ([]hashrec.Record, error) {
	if len(kept) == 0 {
		return kept, nil
	}
	groups := make(map[uint32][]hashrec.Record)
	var prefixes []uint32
	var out []hashrec.Record
	for _, r := range kept {
		if r.Opcode() != hashrec.OpHit {
			out = append(out, r)
			continue
		}
		hb := r.Tail().HashBits
		if _, ok := groups[hb]; !ok {
			prefixes = append(prefixes, hb)
		}
		groups[hb] = append(groups[hb], r)
	}
	sort.Slice(prefixes, func(i, j int) bool { return prefixes[i] < prefixes[j] })

	for _, hb := range prefixes {
		group := groups[hb]
		if f.maxExtBases <= 0 || len(group) <= 1 {
			out = append(out, group...)
			continue
		}
		folded, err := f.foldGroup(hb, group)
		if err != nil {
			return nil, err
		}
		out = append(out, folded...)
	}
	return out, nil
}

func (f *extendFolder) foldGroup(hashBits uint32, group []hashrec.Record) ([]hashrec.Record, error) {
	seeds := make([]extplan.Seed, len(group))
	for i, r := range group {
		hit := r.AsHit()
		seeds[i] = extplan.Seed{
			Pos:       hit.SeedIndex,
			RC:        hit.Tail.RC,
			ThreadID:  hit.Tail.ThreadID,
			Extension: extensionWindow(f.codes, int(hit.SeedIndex)+f.seedLen, f.maxExtBases),
		}
	}
	extplan.SortCenterSymmetric(seeds)
	root := extplan.Plan(seeds, f.seedLen, f.maxSeedBases, f.cost)
	if root.Leaf && root.SeedLen == f.seedLen {
		return group, nil // cheaper left as plain hits
	}

	var out []hashrec.Record
	var walk func(n *extplan.Node) error
	walk = func(n *extplan.Node) error {
		if !n.Leaf {
			for _, c := range n.Children {
				if err := walk(c); err != nil {
					return err
				}
			}
			return nil
		}
		recs, err := f.emitLeaf(hashBits, n)
		if err != nil {
			return err
		}
		out = append(out, recs...)
		return nil
	}
	if err := walk(root); err != nil {
		return nil, err
	}
	return out, nil
}

// emitLeaf chunks one extended leaf's hits into EXTEND records of at most
// extendChunkMax rows each. A chunk whose seed positions form one evenly
// spaced run (the shape a tandem-repeat flood collapses to) gets a
// trailing INTERVAL_SL record, its Extended tail bit pointing back at the
// EXTEND record it shares rows with instead of repeating them per-position.
func (f *extendFolder) emitLeaf(hashBits uint32, n *extplan.Node) ([]hashrec.Record, error) {
	hits := append([]extplan.Seed(nil), n.Hits...)
	sort.Slice(hits, func(i, j int) bool { return hits[i].Pos < hits[j].Pos })

	var out []hashrec.Record
	for len(hits) > 0 {
		chunkLen := extendChunkMax
		if chunkLen > len(hits) {
			chunkLen = len(hits)
		}
		chunk := hits[:chunkLen]
		hits = hits[chunkLen:]

		// The allocator's per-anchor-bin counter enforces the id-space
		// budget extplan plans against; the row's actual on-disk address
		// is the flat index into the single extension-table array, per
		// Extend.ExtendID's own doc comment.
		if _, err := f.alloc.Next(hashBits & f.anchorMask); err != nil {
			return nil, err
		}
		if len(f.rows)+chunkLen > maxExtendRows {
			return nil, &buildctx.CapacityError{
				Msg:      "extension table needs to be larger",
				Guidance: "retry with a larger --ht-ext-table-alloc",
			}
		}
		firstRow := uint32(len(f.rows))
		for _, s := range chunk {
			f.rows = append(f.rows, hashrec.NewExtendHit(hashrec.ExtendHitFields{
				Pos:     s.Pos,
				RC:      s.RC,
				Literal: true,
			}))
		}

		out = append(out, hashrec.NewExtend(hashrec.Extend{
			ExtendID:  firstRow,
			ExtendLen: uint8(chunkLen - 1),
			AllHits:   true,
			Tail: hashrec.MatchTail{
				HashBits: hashBits,
				ThreadID: chunk[0].ThreadID,
			},
		}))

		if run, ok := contiguousRun(chunk); ok {
			out = append(out, hashrec.NewIntervalSL(hashrec.IntervalSL{
				Start:  chunk[0].Pos & 0x7FFF,
				Length: run,
				Tail: hashrec.MatchTail{
					Extended: true,
					HashBits: hashBits,
					ThreadID: chunk[0].ThreadID,
				},
			}))
		}
	}
	return out, nil
}

// contiguousRun reports whether chunk's seed positions form one evenly
// spaced run, and its length, so the caller can fold it into a trailing
// INTERVAL_SL instead of leaving the EXTEND record to stand alone.
func contiguousRun(chunk []extplan.Seed) (uint32, bool) {
	if len(chunk) < 2 {
		return 0, false
	}
	stride := chunk[1].Pos - chunk[0].Pos
	if stride == 0 {
		return 0, false
	}
	for i := 1; i < len(chunk); i++ {
		if chunk[i].Pos-chunk[i-1].Pos != stride {
			return 0, false
		}
	}
	return uint32(len(chunk)), true
}

// buildExtIndex bins the flat extension-table row count into
// compress.BinSize-sized segments for the on-disk ExtIndex.
func buildExtIndex(rows []hashrec.ExtendHit) compress.ExtIndex {
	if len(rows) == 0 {
		return compress.ExtIndex{}
	}
	numBins := (len(rows) + compress.BinSize - 1) / compress.BinSize
	lengths := make([]uint32, numBins)
	remaining := len(rows)
	for i := range lengths {
		n := compress.BinSize
		if n > remaining {
			n = remaining
		}
		lengths[i] = uint32(n)
		remaining -= n
	}
	return compress.ExtIndex{Lengths: lengths}
}

func extensionWindow(codes []reference.Code, start, length int) []reference.Code {
	if length <= 0 || start >= len(codes) {
		return nil
	}
	end := start + length
	if end > len(codes) {
		end = len(codes)
	}
	return codes[start:end]
}
