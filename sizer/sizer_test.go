package sizer

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestDecideProducesSaneGeometry(t *testing.T) {
	g := Decide(Inputs{
		NonNBaseCount:  3_000_000_000,
		ExtendedSeeds:  10_000,
		MemBudgetBytes: 64 << 30,
		RecordBytes:    8,
		MaxTableChunks: 64,
		WorkerThreads:  8,
		PaddedRefLen:   3_100_000_000,
	})
	require.Greater(t, g.TableAddrBits, uint(0))
	require.GreaterOrEqual(t, g.TableSize64ths, uint(33))
	require.LessOrEqual(t, g.TableSize64ths, uint(64))
	require.GreaterOrEqual(t, g.NumChunks, 1)
	require.LessOrEqual(t, g.ThreadsPerPass, 8)
	require.Equal(t, g.TableAddrBits+19, g.PriCrcBits)
	require.LessOrEqual(t, g.SecCrcBits, uint(MaxSecCrcBits))
}

func TestRefSeedIntervalQuantizedAndCapped(t *testing.T) {
	v := refSeedInterval(1<<40, 8, 1<<30)
	require.LessOrEqual(t, v, 255.9375)
	require.Equal(t, v, float64(int(v*16))/16)
}

func TestClampPrimarySeedLength(t *testing.T) {
	require.Equal(t, 21, ClampPrimarySeedLength(100, 42))
	require.Equal(t, 10, ClampPrimarySeedLength(10, 42))
}

func TestClampExtendedSeedLengthIsEvenAndBounded(t *testing.T) {
	require.Equal(t, MaxNetSeedExtension, ClampExtendedSeedLength(9999))
	require.Equal(t, 10, ClampExtendedSeedLength(11))
	require.Equal(t, 0, ClampExtendedSeedLength(-5))
}

func TestUserSuppliedExtTabRecsIsRespected(t *testing.T) {
	g := Decide(Inputs{
		MemBudgetBytes: 1 << 30,
		RecordBytes:    8,
		UserExtTabRecs: 5000,
		WorkerThreads:  4,
		MaxTableChunks: 4,
	})
	require.Equal(t, uint64(5000), g.ExtTabRecs)
}
