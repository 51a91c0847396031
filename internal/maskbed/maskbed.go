// Package maskbed applies a BED file's intervals to FASTA contig bases
// before encoding, turning masked regions into N so reference.Encoder's
// existing N-trimming/N-counting handles them the same way it handles
// naturally-occurring N runs. No BED parser exists anywhere in the
// example corpus; this is a small tab-separated-fields scanner, the
// same shape as internal/fastaio's line scanner.
package maskbed

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// Region is one masked half-open interval [Start, End) on Chrom, BED's
// own 0-based coordinate convention.
type Region struct {
	Chrom string
	Start int
	End   int
}

// Parse reads BED3(+) records, ignoring blank lines, "#"-comments, and
// "track"/"browser" header lines.
func Parse(r io.Reader) ([]Region, error) {
	var out []Region
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") ||
			strings.HasPrefix(line, "track") || strings.HasPrefix(line, "browser") {
			continue
		}
		fields := strings.Fields(line)
		if len(fields) < 3 {
			return nil, fmt.Errorf("maskbed: malformed line %q", line)
		}
		start, err := strconv.Atoi(fields[1])
		if err != nil {
			return nil, fmt.Errorf("maskbed: bad start in %q: %w", line, err)
		}
		end, err := strconv.Atoi(fields[2])
		if err != nil {
			return nil, fmt.Errorf("maskbed: bad end in %q: %w", line, err)
		}
		out = append(out, Region{Chrom: fields[0], Start: start, End: end})
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("maskbed: %w", err)
	}
	return out, nil
}

// Apply returns a copy of bases with every position covered by a region
// named chrom overwritten with 'N'.
func Apply(bases []byte, regions []Region, chrom string) []byte {
	masked := append([]byte(nil), bases...)
	for _, rgn := range regions {
		if rgn.Chrom != chrom {
			continue
		}
		start, end := rgn.Start, rgn.End
		if start < 0 {
			start = 0
		}
		if end > len(masked) {
			end = len(masked)
		}
		for i := start; i < end; i++ {
			masked[i] = 'N'
		}
	}
	return masked
}
