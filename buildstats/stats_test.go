package buildstats

import (
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/Illumina/DRAGMAP-sub000/hashcfg"
	"github.com/stretchr/testify/require"
)

func TestStatsCountersAreConcurrencySafe(t *testing.T) {
	s := New()
	var wg sync.WaitGroup
	for i := 0; i < 100; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			s.AddHit(1)
			s.AddChain(1)
			s.SeedFreq.Add(7)
			s.NoteMultiBaseSeeds(3)
		}()
	}
	wg.Wait()

	snap := s.Snapshot()
	require.EqualValues(t, 100, snap.HitRecords)
	require.EqualValues(t, 100, snap.ChainRecords)
	require.EqualValues(t, 100, snap.SeedFreq[7])
	require.EqualValues(t, 3, snap.MaxMultBaseSeeds)
}

func TestNoteMultiBaseSeedsKeepsHighWaterMark(t *testing.T) {
	s := New()
	s.NoteMultiBaseSeeds(5)
	s.NoteMultiBaseSeeds(2)
	s.NoteMultiBaseSeeds(9)
	s.NoteMultiBaseSeeds(4)
	require.EqualValues(t, 9, s.Snapshot().MaxMultBaseSeeds)
}

func TestMarkStageAccumulatesAcrossCalls(t *testing.T) {
	s := New()
	s.MarkStage("seedhash", 10*time.Millisecond)
	s.MarkStage("seedhash", 5*time.Millisecond)
	s.MarkStage("compress", time.Millisecond)

	snap := s.Snapshot()
	require.Equal(t, 15*time.Millisecond, snap.Stages["seedhash"])
	require.Equal(t, time.Millisecond, snap.Stages["compress"])
}

func TestApplyToHeaderCopiesPostBuildFields(t *testing.T) {
	s := New()
	s.RefSeqLen = 1024
	s.RefLenRaw = 900
	s.RefLenNotN = 880
	s.SetMinFreqToExtend(16)
	s.SetExtTabRecsUsed(42)
	s.NoteMultiBaseSeeds(3)

	var h hashcfg.Header
	s.Snapshot().ApplyToHeader(&h)

	require.EqualValues(t, 1024, h.RefSeqLen)
	require.EqualValues(t, 900, h.RefLenRaw)
	require.EqualValues(t, 880, h.RefLenNotN)
	require.EqualValues(t, 16, h.MinFreqToExtend)
	require.EqualValues(t, 42, h.ExtTabRecs)
	require.EqualValues(t, 3, h.MaxMultBaseSeeds)
}

func TestWriteTextProducesReadableReport(t *testing.T) {
	s := New()
	s.RefSeqLen = 2048
	s.AddHit(10)
	s.AddChain(2)
	s.SeedFreq.Add(3)
	s.SeedFreq.Add(3)
	s.MarkStage("seedhash", 2*time.Second)

	path := filepath.Join(t.TempDir(), "hash_table_stats.txt")
	require.NoError(t, WriteText(path, s.Snapshot()))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	require.Contains(t, string(data), "refSeqLen:")
	require.Contains(t, string(data), "hitRecords:")
	require.Contains(t, string(data), "seedhash")
}
