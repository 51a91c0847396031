package compress

import (
	"testing"

	"github.com/Illumina/DRAGMAP-sub000/hashcfg"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/stretchr/testify/require"
)

func TestCompressEmbedsParseableHeader(t *testing.T) {
	hdr := hashcfg.Header{
		HashTableVersion: hashcfg.Version,
		PriSeedBases:     21,
		MaxSeedBases:     149,
		TableAddrBits:    20,
		RefDigest:        0x1234,
	}
	in := Input{
		Header: hdr,
		HashSlots: []SlotSource{
			{Rec: hashrec.NewHit(hashrec.Hit{SeedIndex: 1}), Literal: true},
			{Rec: hashrec.EmptyQword, Literal: false},
		},
		ExtRows: []ExtRowSource{
			{Row: hashrec.NewExtendHit(hashrec.ExtendHitFields{Pos: 7}), Literal: true},
		},
		ExtIndex: ExtIndex{Lengths: []uint32{1}},
	}

	out := Compress(in)
	require.NotEmpty(t, out)

	r := NewBitReader(out)
	got, err := ParseHeader(r)
	require.NoError(t, err)
	require.Equal(t, hdr, got)
}
