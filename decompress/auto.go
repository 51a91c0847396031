package decompress

import (
	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/Illumina/DRAGMAP-sub000/seedhash"
	"github.com/Illumina/DRAGMAP-sub000/slotpack"
)

// AutoParams carries the geometry the automatic phase needs to re-derive
// each seed's home bucket exactly as the builder's Seed Hasher did.
type AutoParams struct {
	SeedLen       int
	TableAddrBits uint
	Squeeze64ths  uint
	PriCRC        *crc64x.Table
	WrapBuckets   int
}

// ReplayAutomatic fills every slot marked AutoPrimary by re-hashing refCodes
// and re-running the same deterministic bucket-packing the builder used.
// slots and literal are mutated in place; slots already marked
// literal[i]==true are left untouched. Slots marked AutoNone are not
// checked separately: a placement that lands on one is written like any
// other empty, non-literal slot.
func ReplayAutomatic(bc *buildctx.Context, params AutoParams, refCodes []reference.Code, slots []hashrec.Record, literal []bool, autoSlots []AutoSlotState) error {
	numBuckets := len(slots) / hashrec.RecordsPerBucket

	pending := make(map[int][]hashrec.Record)
	h := seedhash.NewHasher(seedhash.Params{
		SeedLen:       params.SeedLen,
		TableAddrBits: params.TableAddrBits,
		Squeeze64ths:  params.Squeeze64ths,
		PriCRC:        params.PriCRC,
		ChunkLo:       0,
		ChunkHi:       numBuckets,
		NumThreads:    1,
	}, nil)

	for pos := 0; pos+params.SeedLen <= len(refCodes); pos++ {
		if bc != nil && bc.Aborted() {
			return bc.Err()
		}
		window := refCodes[pos : pos+params.SeedLen]
		if seedhash.HasAmbiguity(window) {
			continue // ambiguous positions were expanded at build time; the
			// literal/automatic split already recorded their hits verbatim
			// or via the same expansion, so skipping here avoids double-
			// counting rather than losing coverage.
		}
		kmer := seedhash.Pack(window)
		addHitsForKmer(h, params.PriCRC, kmer, params.SeedLen, pos, pending)
	}

	// Literal slots already occupy their physical position; exclude them
	// from the buckets slotpack.Pack is allowed to write into by pre-
	// marking those buckets' occupied count, which slotpack.Pack does not
	// track directly — instead we drop any pending record whose bucket is
	// fully covered by literals by letting slotpack.Pack skip buckets with
	// no AutoPrimary slots at all.
	for bucket := range pending {
		if !bucketHasAutoPrimary(autoSlots, bucket, numBuckets) {
			delete(pending, bucket)
		}
	}

	placements, err := slotpack.Pack(pending, nil, params.WrapBuckets)
	if err != nil {
		return err
	}
	for _, p := range placements {
		idx := p.BucketIdx*hashrec.RecordsPerBucket + p.SlotIdx
		if idx >= len(slots) || literal[idx] {
			continue
		}
		if slots[idx] != hashrec.EmptyQword {
			return &buildctx.IntegrityError{Stage: "decompress-automatic", Msg: "automatic phase would overwrite an occupied slot"}
		}
		slots[idx] = p.Rec
		literal[idx] = true // now resolved; "literal" here just means filled
	}
	return nil
}

// AutoSlotState records, for one physical slot, whether the compressed
// stream says it must end up EMPTY or populated.
type AutoSlotState struct {
	Kind AutoKindLocal
}

// AutoKindLocal mirrors compress.AutoKind without importing compress here,
// keeping the automatic-phase replay logic independent of wire framing.
type AutoKindLocal int

const (
	AutoStateNone AutoKindLocal = iota
	AutoStatePrimary
)

func bucketHasAutoPrimary(autoSlots []AutoSlotState, bucket, numBuckets int) bool {
	base := bucket * hashrec.RecordsPerBucket
	for s := 0; s < hashrec.RecordsPerBucket; s++ {
		idx := base + s
		if idx < len(autoSlots) && autoSlots[idx].Kind == AutoStatePrimary {
			return true
		}
	}
	return false
}

func addHitsForKmer(h *seedhash.Hasher, priCRC *crc64x.Table, kmer uint64, seedLen, pos int, pending map[int][]hashrec.Record) {
	canon, rc, palindrome := seedhash.Canonical(kmer, seedLen)
	hash := priCRC.Checksum(canon)
	bucket := h.BucketAddr(hash)
	hit := hashrec.NewHit(hashrec.Hit{
		SeedIndex: uint32(pos),
		Tail: hashrec.MatchTail{
			RC:       rc,
			HashBits: uint32(hash >> 19 & (1<<23 - 1)),
		},
	})
	pending[bucket] = append(pending[bucket], hit)
	if palindrome {
		flipped := hashrec.NewHit(hashrec.Hit{
			SeedIndex: uint32(pos),
			Tail: hashrec.MatchTail{
				RC:       true,
				HashBits: uint32(hash >> 19 & (1<<23 - 1)),
			},
		})
		pending[bucket] = append(pending[bucket], flipped)
	}
}
