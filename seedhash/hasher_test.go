package seedhash

import (
	"context"
	"testing"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/stretchr/testify/require"
)

func TestHasherPlacesHitsWithinChunkRange(t *testing.T) {
	store := NewBucketStore(1 << 8)
	params := Params{
		SeedLen:       4,
		TableAddrBits: 8,
		Squeeze64ths:  64,
		MaxMultiBase:  16,
		PriCRC:        crc64x.New(27, crc64x.PolyByIndex(0)),
		ChunkLo:       0,
		ChunkHi:       1 << 8,
		NumThreads:    2,
	}
	h := NewHasher(params, store)
	bc := buildctx.New()

	m := map[byte]reference.Code{'A': 1, 'C': 2, 'G': 3, 'T': 4}
	seq := "ACGTACGTACGTACGTACGT"
	codes := make([]reference.Code, len(seq))
	for i := range seq {
		codes[i] = m[seq[i]]
	}

	err := h.Run(context.Background(), bc, codes, nil)
	require.NoError(t, err)

	total := 0
	for i := 0; i < store.Len(); i++ {
		total += len(store.Bucket(i))
	}
	require.Greater(t, total, 0)
}

func TestHasherSkipsMaskedPositions(t *testing.T) {
	store := NewBucketStore(1 << 6)
	params := Params{
		SeedLen:       4,
		TableAddrBits: 6,
		Squeeze64ths:  64,
		MaxMultiBase:  16,
		PriCRC:        crc64x.New(25, crc64x.PolyByIndex(0)),
		ChunkLo:       0,
		ChunkHi:       1 << 6,
		NumThreads:    1,
	}
	h := NewHasher(params, store)
	bc := buildctx.New()

	m := map[byte]reference.Code{'A': 1, 'C': 2, 'G': 3, 'T': 4}
	seq := "ACGTACGT"
	codes := make([]reference.Code, len(seq))
	for i := range seq {
		codes[i] = m[seq[i]]
	}
	mask := make([]bool, len(seq))
	for i := range mask {
		mask[i] = true
	}

	err := h.Run(context.Background(), bc, codes, mask)
	require.NoError(t, err)
	for i := 0; i < store.Len(); i++ {
		require.Empty(t, store.Bucket(i))
	}
}
