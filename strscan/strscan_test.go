package strscan

import (
	"testing"

	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/stretchr/testify/require"
)

func codesFromString(s string) []reference.Code {
	out := make([]reference.Code, len(s))
	m := map[byte]reference.Code{'A': 1, 'C': 2, 'G': 3, 'T': 4}
	for i := range s {
		out[i] = m[s[i]]
	}
	return out
}

func TestScanFindsHomopolymerRun(t *testing.T) {
	codes := codesFromString("ACGTAAAAAAAAACGT")
	recs := Scan(0, codes)
	require.NotEmpty(t, recs)
	found := false
	for _, r := range recs {
		if r.Period == 1 && r.Length >= 8 {
			found = true
		}
	}
	require.True(t, found)
}

func TestScanFindsDinucleotideRepeat(t *testing.T) {
	codes := codesFromString("GCATATATATATGC")
	recs := Scan(0, codes)
	found := false
	for _, r := range recs {
		if r.Period == 2 && r.Length >= 8 {
			found = true
		}
	}
	require.True(t, found)
}

func TestSortTableOrdersByRefIDThenPos(t *testing.T) {
	recs := []Record{
		{RefID: 1, BegPos: 5},
		{RefID: 0, BegPos: 10},
		{RefID: 0, BegPos: 2},
	}
	SortTable(recs)
	require.Equal(t, uint32(0), recs[0].RefID)
	require.Equal(t, uint32(2), recs[0].BegPos)
	require.Equal(t, uint32(0), recs[1].RefID)
	require.Equal(t, uint32(10), recs[1].BegPos)
	require.Equal(t, uint32(1), recs[2].RefID)
}

func TestFreqCounterSaturatesAndReportsExtended(t *testing.T) {
	crc := crc64x.New(20, crc64x.PolyByIndex(0))
	fc := NewFreqCounter(20, crc)
	var extended bool
	for i := 0; i < 300; i++ {
		extended = fc.Bump(0xABCD, 5)
	}
	require.True(t, extended)
	require.Equal(t, uint32(255), fc.Count(uint32(crc.Checksum(0xABCD))))
}

func TestFreqCounterDifferentKmersDoNotInterfere(t *testing.T) {
	crc := crc64x.New(20, crc64x.PolyByIndex(0))
	fc := NewFreqCounter(20, crc)
	fc.Bump(1, 100)
	extended := fc.Bump(2, 2)
	require.False(t, extended)
}
