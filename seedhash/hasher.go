package seedhash

import (
	"context"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"golang.org/x/sync/errgroup"
)

// batchSize is how many prefetchable placements a worker accumulates
// before taking any bucket locks, amortizing lock overhead across them.
const batchSize = 16

// Params parameterizes one hashing pass over a chunk.
type Params struct {
	SeedLen       int
	TableAddrBits uint
	Squeeze64ths  uint // tableSize64ths
	AnchorBinBits uint
	MaxMultiBase  int
	PriCRC        *crc64x.Table
	ChunkLo       int // inclusive bucket index range for this pass' chunk
	ChunkHi       int // exclusive
	NumThreads    int
}

type placement struct {
	bucket int
	rec    hashrec.Record
}

// Hasher drives the parallel seed-hashing pass over one chunk's bucket
// range.
type Hasher struct {
	params Params
	store  *BucketStore
}

// NewHasher returns a Hasher writing into store.
func NewHasher(params Params, store *BucketStore) *Hasher {
	return &Hasher{params: params, store: store}
}

// Run hashes every sampled position in codes across params.NumThreads
// workers, each walking a disjoint stride. It returns the first error any
// worker reported, if any, and aborts every worker once the first one
// fails.
func (h *Hasher) Run(ctx context.Context, bc *buildctx.Context, codes []reference.Code, mask []bool) error {
	g, gctx := errgroup.WithContext(ctx)
	for t := 0; t < h.params.NumThreads; t++ {
		threadID := t
		g.Go(func() error {
			return h.worker(gctx, bc, threadID, codes, mask)
		})
	}
	if err := g.Wait(); err != nil {
		bc.Abort(err)
		return err
	}
	return bc.Err()
}

func (h *Hasher) worker(ctx context.Context, bc *buildctx.Context, threadID int, codes []reference.Code, mask []bool) error {
	seedLen := h.params.SeedLen
	n := len(codes)
	batch := make(map[int][]hashrec.Record, batchSize)
	pending := 0

	flush := func() {
		for bucket, recs := range batch {
			h.store.AppendBatch(bucket, recs)
		}
		for k := range batch {
			delete(batch, k)
		}
		pending = 0
	}

	for pos := threadID; pos+seedLen <= n; pos += h.params.NumThreads {
		if bc.Aborted() {
			return nil
		}
		if mask != nil && windowMasked(mask, pos, seedLen) {
			continue
		}
		window := codes[pos : pos+seedLen]
		if HasAmbiguity(window) {
			kmers, ok := Expand(window, h.params.MaxMultiBase)
			if !ok {
				err := &buildctx.CapacityError{
					Msg:      "multi-base seed expansion exceeded maxMultiBaseSeeds",
					Guidance: "retry with --ht-max-multi-base-seeds=<N>",
				}
				bc.Abort(err)
				return err
			}
			for _, kmer := range kmers {
				h.placeOne(kmer, seedLen, uint32(pos), uint8(threadID), batch)
				pending++
			}
		} else {
			kmer := Pack(window)
			h.placeOne(kmer, seedLen, uint32(pos), uint8(threadID), batch)
			pending++
		}
		if pending >= batchSize {
			flush()
		}
	}
	flush()
	return nil
}

func windowMasked(mask []bool, pos, length int) bool {
	for i := 0; i < length; i++ {
		if pos+i < len(mask) && mask[pos+i] {
			return true
		}
	}
	return false
}

func (h *Hasher) placeOne(kmer uint64, seedLen int, pos uint32, threadID uint8, batch map[int][]hashrec.Record) {
	canon, rc, palindrome := Canonical(kmer, seedLen)
	hash := h.params.PriCRC.Checksum(canon)
	bucket := h.BucketAddr(hash)
	if bucket < h.params.ChunkLo || bucket >= h.params.ChunkHi {
		return
	}
	hit := hashrec.NewHit(hashrec.Hit{
		SeedIndex: pos,
		Tail: hashrec.MatchTail{
			RC:       rc,
			HashBits: uint32(hash >> 19 & (1<<23 - 1)),
			ThreadID: threadID,
		},
	})
	batch[bucket] = append(batch[bucket], hit)
	if palindrome {
		flipped := hashrec.NewHit(hashrec.Hit{
			SeedIndex: pos,
			Tail: hashrec.MatchTail{
				RC:       true,
				HashBits: uint32(hash >> 19 & (1<<23 - 1)),
				ThreadID: threadID,
			},
		})
		batch[bucket] = append(batch[bucket], flipped)
	}
}

// BucketAddr extracts tableAddrBits bits starting at bit offset 19 from
// hash, scaled by the squeeze ratio, to produce a bucket index.
func (h *Hasher) BucketAddr(hash uint64) int {
	shifted := hash >> 19
	addr := shifted & (1<<h.params.TableAddrBits - 1)
	scaled := addr * uint64(h.params.Squeeze64ths) / 64
	return int(scaled)
}
