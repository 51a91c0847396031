package crc64x

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestChecksumDeterministic(t *testing.T) {
	tbl := New(23, PolyByIndex(0))
	a := tbl.Checksum(0x1234567890ABCDEF)
	b := tbl.Checksum(0x1234567890ABCDEF)
	require.Equal(t, a, b)
	require.LessOrEqual(t, a, uint64(1<<23-1))
}

func TestChecksumDiffersAcrossPolynomials(t *testing.T) {
	key := uint64(0xDEADBEEFCAFEBABE)
	a := New(23, PolyByIndex(0)).Checksum(key)
	b := New(23, PolyByIndex(1)).Checksum(key)
	require.NotEqual(t, a, b)
}

func TestSumIncrementalMatchesOneShot(t *testing.T) {
	tbl := New(64, PolyByIndex(2))
	data := []byte("ACGTACGTACGTNNNNACGT")
	whole := tbl.Sum(0, data)

	var incremental uint64
	for _, b := range data {
		incremental = tbl.Sum(incremental, []byte{b})
	}
	require.Equal(t, whole, incremental)
}

func TestBitsMasksOutput(t *testing.T) {
	tbl := New(8, PolyByIndex(0))
	sum := tbl.Checksum(^uint64(0))
	require.LessOrEqual(t, sum, uint64(0xFF))
}
