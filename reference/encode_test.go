package reference

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestAddRejectsDuplicateContig(t *testing.T) {
	e := New(ModeNormal, false)
	require.NoError(t, e.Add(Contig{Name: "chr1", Bases: []byte("ACGT")}))
	err := e.Add(Contig{Name: "chr1", Bases: []byte("ACGT")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "duplicate contig")
}

func TestAddRejectsUnrecognizedBase(t *testing.T) {
	e := New(ModeNormal, false)
	err := e.Add(Contig{Name: "chr1", Bases: []byte("ACGTZ")})
	require.Error(t, err)
	require.Contains(t, err.Error(), "unrecognized base")
}

func TestFinishPadsTo1024AndAppendsEndPad(t *testing.T) {
	e := New(ModeNormal, false)
	require.NoError(t, e.Add(Contig{Name: "chr1", Bases: []byte("ACGTACGTACGT")}))
	res, err := e.Finish()
	require.NoError(t, err)
	require.Equal(t, uint64(0), res.RefSeqLen%1024)
	require.GreaterOrEqual(t, len(res.Codes), bufEndPadBases)
}

func TestMethylationCollapsesAmbiguityCodes(t *testing.T) {
	e := New(ModeMethylCtoT, false)
	require.NoError(t, e.Add(Contig{Name: "chr1", Bases: []byte("ACGT")}))
	res, err := e.Finish()
	require.NoError(t, err)
	// C (code 2) should have collapsed to T (code 4).
	require.Equal(t, Code(1), res.Codes[0]) // A
	require.Equal(t, Code(4), res.Codes[1]) // C -> T
	require.Equal(t, Code(3), res.Codes[2]) // G
	require.Equal(t, Code(4), res.Codes[3]) // T
}

func TestPackUnpackRoundtrip(t *testing.T) {
	codes := []Code{1, 2, 3, 4, 0, 1}
	packed := Pack(codes)
	require.Equal(t, codes, Unpack(packed, len(codes)))
}

func TestLeadingNTrimRoundsDownTo256(t *testing.T) {
	bases := make([]byte, 300)
	for i := range bases {
		bases[i] = 'N'
	}
	copy(bases[300-10:], []byte("ACGTACGTAC"))
	start, end := trimNRuns(bases)
	start = alignDown(start, 256)
	require.Equal(t, 256, start)
	require.Equal(t, 300, end)
}
