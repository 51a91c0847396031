package buildstats

import (
	"bufio"
	"fmt"
	"os"
	"sort"
	"time"

	"github.com/dustin/go-humanize"
)

// WriteText renders hash_table_stats.txt: build cycle times, record
// counts, and the seed-frequency/extension-length histograms, formatted
// with humanize the way the rest of this codebase reports byte counts and
// large integers.
func WriteText(path string, snap Snapshot) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("buildstats: %w", err)
	}
	defer file.Close()

	w := bufio.NewWriter(file)

	fmt.Fprintln(w, "# hash_table_stats.txt")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Reference")
	fmt.Fprintf(w, "refSeqLen:   %s\n", humanize.Comma(int64(snap.RefSeqLen)))
	fmt.Fprintf(w, "refLenRaw:   %s\n", humanize.Comma(int64(snap.RefLenRaw)))
	fmt.Fprintf(w, "refLenNotN:  %s\n", humanize.Comma(int64(snap.RefLenNotN)))
	if snap.RefAltSeed != 0 || snap.RefAltStart != 0 {
		fmt.Fprintf(w, "refAltSeed:  %d\n", snap.RefAltSeed)
		fmt.Fprintf(w, "refAltStart: %s\n", humanize.Comma(int64(snap.RefAltStart)))
	}

	fmt.Fprintln(w)
	fmt.Fprintln(w, "## Record counts")
	fmt.Fprintf(w, "hitRecords:      %s\n", humanize.Comma(snap.HitRecords))
	fmt.Fprintf(w, "chainRecords:    %s\n", humanize.Comma(snap.ChainRecords))
	fmt.Fprintf(w, "extendRecords:   %s\n", humanize.Comma(snap.ExtendRecords))
	fmt.Fprintf(w, "literalSlots:    %s\n", humanize.Comma(snap.LiteralSlots))
	fmt.Fprintf(w, "autoSlots:       %s\n", humanize.Comma(snap.AutoSlots))
	fmt.Fprintf(w, "literalExtRows:  %s\n", humanize.Comma(snap.LiteralExtRows))
	fmt.Fprintf(w, "autoExtRows:     %s\n", humanize.Comma(snap.AutoExtRows))
	fmt.Fprintf(w, "thinnedSeeds:    %s\n", humanize.Comma(snap.ThinnedSeeds))
	fmt.Fprintf(w, "extTabRecsUsed:  %s\n", humanize.Comma(snap.ExtTabRecsUsed))
	fmt.Fprintf(w, "maxMultBaseSeeds: %d\n", snap.MaxMultBaseSeeds)
	fmt.Fprintf(w, "minFreqToExtend: %d\n", snap.MinFreqToExtend)

	writeHistogram(w, "Seed frequency histogram", snap.SeedFreq)
	writeHistogram(w, "Extension length histogram", snap.ExtLen)

	if len(snap.Stages) > 0 {
		fmt.Fprintln(w)
		fmt.Fprintln(w, "## Build cycle times")
		names := make([]string, 0, len(snap.Stages))
		for name := range snap.Stages {
			names = append(names, name)
		}
		sort.Strings(names)
		for _, name := range names {
			fmt.Fprintf(w, "%-24s %s\n", name, snap.Stages[name].Round(time.Millisecond))
		}
	}

	return w.Flush()
}

// writeHistogram prints only the non-zero buckets; most builds touch a
// small fraction of the 0..255 frequency range.
func writeHistogram(w *bufio.Writer, title string, buckets [256]uint64) {
	fmt.Fprintln(w)
	fmt.Fprintf(w, "## %s\n", title)
	any := false
	for freq, count := range buckets {
		if count == 0 {
			continue
		}
		any = true
		fmt.Fprintf(w, "%3d: %s\n", freq, humanize.Comma(int64(count)))
	}
	if !any {
		fmt.Fprintln(w, "(empty)")
	}
}
