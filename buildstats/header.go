package buildstats

import "github.com/Illumina/DRAGMAP-sub000/hashcfg"

// ApplyToHeader copies the post-build statistics fields spec.md's binary
// config header carries into h. Geometry, cost-model, and digest fields
// are populated by their own owning stages (sizer, compress); this only
// fills in the fields this package is the source of truth for.
func (s Snapshot) ApplyToHeader(h *hashcfg.Header) {
	h.RefSeqLen = s.RefSeqLen
	h.RefLenRaw = s.RefLenRaw
	h.RefLenNotN = s.RefLenNotN
	h.RefAltSeed = s.RefAltSeed
	h.RefAltStart = s.RefAltStart
	h.ExtTabRecs = uint32(s.ExtTabRecsUsed)
	h.MinFreqToExtend = s.MinFreqToExtend
	h.MaxMultBaseSeeds = uint32(s.MaxMultBaseSeeds)
}
