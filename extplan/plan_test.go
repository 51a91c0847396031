package extplan

import (
	"testing"

	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/stretchr/testify/require"
)

func defaultCost() CostModel {
	return CostModel{
		SeedLenCost:     1,
		SeedFreqCost:    1,
		ExtensionCost:   1,
		ExtStepCost:     1,
		ExtRecCost:      2,
		TargetFreq:      1,
		PriMaxSeedFreq:  64,
		MaxSeedFreq:     4,
		MaxSeedFreqLen:  40,
		MaxExtIncrement: 12,
	}
}

func TestPlanSingleSeedIsLeaf(t *testing.T) {
	group := []Seed{{Pos: 10}}
	n := Plan(group, 21, 40, defaultCost())
	require.True(t, n.Leaf)
	require.Len(t, n.Hits, 1)
}

func TestPlanSplitsDivergentExtensions(t *testing.T) {
	group := []Seed{
		{Pos: 1, Extension: toCodes("AAAAAAAAAAAA")},
		{Pos: 2, Extension: toCodes("AAAAAAAAAAAA")},
		{Pos: 3, Extension: toCodes("CCCCCCCCCCCC")},
	}
	SortCenterSymmetric(group)
	n := Plan(group, 4, 16, defaultCost())
	require.NotNil(t, n)
}

func toCodes(s string) []reference.Code {
	m := map[byte]reference.Code{'A': 1, 'C': 2, 'G': 3, 'T': 4}
	out := make([]reference.Code, len(s))
	for i := range s {
		out[i] = m[s[i]]
	}
	return out
}

func TestExtendIDAllocatorExhaustion(t *testing.T) {
	a := NewExtendIDAllocator(0)
	a.limit = 2
	id1, err := a.Next(0)
	require.NoError(t, err)
	require.Equal(t, uint32(0), id1)
	_, err = a.Next(0)
	require.NoError(t, err)
	_, err = a.Next(0)
	require.Error(t, err)
}

func TestSortCenterSymmetricOrdersOutermostFirst(t *testing.T) {
	group := []Seed{
		{Extension: toCodes("TA")},
		{Extension: toCodes("AA")},
	}
	SortCenterSymmetric(group)
	require.Equal(t, toCodes("AA"), group[0].Extension)
}
