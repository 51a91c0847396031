package main

import (
	"context"
	"encoding/binary"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/compress"
	"github.com/Illumina/DRAGMAP-sub000/config"
	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/decompress"
	"github.com/Illumina/DRAGMAP-sub000/hashcfg"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/stretchr/testify/require"
)

// writeFasta writes a single-contig FASTA file for a scenario test.
func writeFasta(t *testing.T, dir, name, contigName, bases string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	content := ">" + contigName + "\n" + bases + "\n"
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

// baseBuildOptions returns an Options record with every field a direct
// (non-CLI) runBuild call needs, the way config.FromCLIContext would
// populate it from flag defaults. The extension-planner cost coefficients
// are set to realistic, extension-favoring values (production build
// invocations always pass these explicitly; the CLI itself defaults every
// one of them to zero, which would never extend anything).
func baseBuildOptions(outDir, refPath string) *config.Options {
	return &config.Options{
		BuildHashTable:    true,
		HTReference:       refPath,
		OutputDirectory:   outDir,
		OutputFilePrefix:  "",
		SeedLen:           16,
		TargetSeedFreq:    4,
		MaxExtSeedLen:     32,
		MemLimit:          64 << 20,
		NumThreads:        2,
		CrcPrimary:        0,
		CrcExtended:       1,
		WriteHashBin:      true,
		CostCoeffSeedLen:  0.001,
		CostCoeffSeedFreq: 1.0,
		CostPenalty:       0.1,
		CostPenaltyIncr:   0.02,
		ExtRecCost:        0.5,
		AnchorBinBits:     4,
		PriMaxSeedFreq:    4,
		MaxSeedFreq:       4096,
		MaxSeedFreqLen:    128,
		MaxExtIncr:        16,
	}
}

// extendedIntervalPairs scans buckets for EXTEND records immediately
// followed, in the same bucket, by an INTERVAL_SL/SL1 record whose tail
// marks it as directed at that EXTEND's extension-table rows.
func extendedIntervalPairs(buckets []hashrec.Bucket) int {
	pairs := 0
	for _, b := range buckets {
		for i := 0; i+1 < len(b); i++ {
			if b[i].Opcode() != hashrec.OpExtend {
				continue
			}
			op := b[i+1].Opcode()
			if op != hashrec.OpIntervalSL && op != hashrec.OpIntervalSL1 {
				continue
			}
			if b[i+1].AsIntervalSL().Tail.Extended {
				pairs++
			}
		}
	}
	return pairs
}

// s4Spacer generates a unique, non-repetitive filler sequence per index
// using a splitmix64-style scramble so consecutive indices don't share a
// long common prefix (a naive base-4 counter would, creating incidental
// homopolymer-like repeats of its own).
func s4Spacer(i, width int) string {
	bases := []byte{'A', 'C', 'G', 'T'}
	x := uint64(i) + 0x9E3779B97F4A7C15
	x ^= x >> 30
	x *= 0xBF58476D1CE4E5B9
	x ^= x >> 27
	x *= 0x94D049BB133111EB
	x ^= x >> 31
	buf := make([]byte, width)
	for j := 0; j < width; j++ {
		buf[j] = bases[x&3]
		x >>= 2
	}
	return string(buf)
}

// TestS1SingleTinyContig builds a reference dominated by one long
// homopolymer run with a short interruption, matching the pure-A
// contig-with-a-G-run scenario.
func TestS1SingleTinyContig(t *testing.T) {
	dir := t.TempDir()
	bases := strings.Repeat("A", 1000) + strings.Repeat("G", 32) + strings.Repeat("A", 1016)
	refPath := writeFasta(t, dir, "ref.fa", "chr1", bases)

	opts := baseBuildOptions(dir, refPath)
	require.NoError(t, runBuild(context.Background(), opts))

	// str_table.bin must contain at least one long homopolymer record.
	// Each row is 20 bytes: 4 uint32 fields (Mask, RefID, BegPos, Length)
	// followed by Period, RepeatLen, and 2 padding bytes.
	const strRowBytes = 20
	raw, err := os.ReadFile(filepath.Join(dir, "str_table.bin"))
	require.NoError(t, err)
	require.True(t, len(raw) >= strRowBytes)
	foundLongHomopolymer := false
	for off := 0; off+strRowBytes <= len(raw); off += strRowBytes {
		period := raw[off+16]
		repeatLen := raw[off+17]
		if period == 1 && repeatLen >= 20 {
			foundLongHomopolymer = true
			break
		}
	}
	require.True(t, foundLongHomopolymer, "expected a period-1 repeatLen>=20 STR record")

	// The extension table must be non-empty, and at least one EXTEND
	// record must be immediately followed, in its own bucket, by an
	// INTERVAL_SL record directed back at it (the 32-base G run is small
	// enough to fold, unlike the surrounding near-unbounded A homopolymer).
	cfgRaw, err := os.ReadFile(filepath.Join(dir, "hash_table.cfg.bin"))
	require.NoError(t, err)
	var hdr hashcfg.Header
	require.NoError(t, hdr.UnmarshalBinary(cfgRaw))
	require.Greater(t, hdr.ExtTabRecs, uint32(0), "expected a non-empty extension table")

	buckets := decompressBuckets(t, dir)
	require.Greater(t, extendedIntervalPairs(buckets), 0,
		"expected at least one EXTEND record followed by an INTERVAL_SL directed at the extension table")

	// The build-time hash digest stamped into the header must match what
	// decompressing hash_table.cmp actually produces (S5's claim, checked
	// here too since it uses the same artifacts).
	requireDigestsMatch(t, dir)
}

// TestS4ForcedExtension builds a reference where one 21-mer recurs exactly
// 100 times between unique, non-repetitive spacers, and checks the
// extension planner actually folds all 100 occurrences into the extension
// table rather than leaving them as 100 separate HIT records.
func TestS4ForcedExtension(t *testing.T) {
	dir := t.TempDir()
	const repeat = "ACGATCGATCGATACGTAGCA" // 21 bases, asymmetric under RC
	const spacerWidth = 25
	const occurrences = 100

	var sb strings.Builder
	pos := 0
	expected := make(map[uint32]bool, occurrences)
	for i := 0; i < occurrences; i++ {
		spacer := s4Spacer(i, spacerWidth)
		sb.WriteString(spacer)
		pos += len(spacer)
		expected[uint32(pos)] = true
		sb.WriteString(repeat)
		pos += len(repeat)
	}
	sb.WriteString(s4Spacer(occurrences, spacerWidth))
	refPath := writeFasta(t, dir, "ref.fa", "chr1", sb.String())

	opts := baseBuildOptions(dir, refPath)
	opts.SeedLen = 21
	opts.TargetSeedFreq = 1
	opts.MaxExtSeedLen = 49

	require.NoError(t, runBuild(context.Background(), opts))
	buckets := decompressBuckets(t, dir)

	extRaw, err := os.ReadFile(filepath.Join(dir, "extend_table.bin"))
	require.NoError(t, err)
	require.True(t, len(extRaw) > 0, "expected a non-empty extend_table.bin")

	var sawExtend bool
	covered := make(map[uint32]bool)
	for _, b := range buckets {
		for _, r := range b {
			switch r.Opcode() {
			case hashrec.OpExtend:
				sawExtend = true
				e := r.AsExtend()
				first := int(e.ExtendID)
				n := int(e.ExtendLen) + 1
				for row := first; row < first+n && row*8+8 <= len(extRaw); row++ {
					rowVal := binary.LittleEndian.Uint64(extRaw[row*8 : row*8+8])
					pos := hashrec.ExtendHit(rowVal).Fields().Pos
					if expected[pos] {
						covered[pos] = true
					}
				}
			case hashrec.OpHit:
				h := r.AsHit()
				if expected[h.SeedIndex] {
					covered[h.SeedIndex] = true
				}
			}
		}
	}

	require.True(t, sawExtend, "expected at least one EXTEND record for the 100x-repeated 21-mer")
	require.Len(t, covered, occurrences, "expected all 100 occurrences accounted for across EXTEND rows and leftover HIT records")
}

// TestS2PalindromeSeedsEmitBothOrientations builds a perfectly periodic
// palindromic reference and checks that at least one seed position
// contributes two HIT records differing only in RC.
func TestS2PalindromeSeedsEmitBothOrientations(t *testing.T) {
	dir := t.TempDir()
	bases := strings.Repeat("ACGT", 8) // 32 bases
	refPath := writeFasta(t, dir, "ref.fa", "chr1", bases)

	opts := baseBuildOptions(dir, refPath)
	opts.SeedLen = 16
	require.NoError(t, runBuild(context.Background(), opts))

	buckets := decompressBuckets(t, dir)

	type seen struct {
		pos uint32
		rc  bool
	}
	var hits []seen
	for _, b := range buckets {
		for _, r := range b {
			if r.Opcode().String() == "HIT" {
				h := r.AsHit()
				hits = append(hits, seen{pos: h.SeedIndex, rc: h.Tail.RC})
			}
		}
	}

	byPos := map[uint32][]bool{}
	for _, h := range hits {
		byPos[h.pos] = append(byPos[h.pos], h.rc)
	}
	foundPair := false
	for _, rcs := range byPos {
		if len(rcs) == 2 && rcs[0] != rcs[1] {
			foundPair = true
			break
		}
	}
	require.True(t, foundPair, "expected one seed position with both RC orientations")
}

// TestS3MaskBedTrimsLeadingWindow masks the first 1024 bases of a
// reference via --ht-mask-bed and checks the trimmed leading offset is
// reflected in the encoded reference.
func TestS3MaskBedTrimsLeadingWindow(t *testing.T) {
	dir := t.TempDir()
	bases := strings.Repeat("C", 1024) + strings.Repeat("ACGTACGTAC", 200)
	refPath := writeFasta(t, dir, "ref.fa", "chr1", bases)
	bedPath := filepath.Join(dir, "mask.bed")
	require.NoError(t, os.WriteFile(bedPath, []byte("chr1\t0\t1024\n"), 0o644))

	opts := baseBuildOptions(dir, refPath)
	opts.MaskBed = bedPath
	require.NoError(t, runBuild(context.Background(), opts))

	refRaw, err := os.ReadFile(filepath.Join(dir, "reference.bin"))
	require.NoError(t, err)

	cfgRaw, err := os.ReadFile(filepath.Join(dir, "hash_table.cfg.bin"))
	require.NoError(t, err)
	var hdr hashcfg.Header
	require.NoError(t, hdr.UnmarshalBinary(cfgRaw))

	codes := reference.Unpack(refRaw, int(hdr.RefSeqLen))
	// The masked leading 1024 C's become N and are trimmed entirely, so
	// the kept stream must begin with the first base after the mask
	// ("A", code 1) rather than "C" (code 2).
	require.Equal(t, reference.Code(1), codes[0])
}

// TestS5DecompressOnly feeds an S1-shaped build's artifacts through the
// standalone uncompress path and checks the digests recorded at build
// time match what decompression recomputes.
func TestS5DecompressOnly(t *testing.T) {
	dir := t.TempDir()
	bases := strings.Repeat("A", 1000) + strings.Repeat("G", 32) + strings.Repeat("A", 1016)
	refPath := writeFasta(t, dir, "ref.fa", "chr1", bases)

	opts := baseBuildOptions(dir, refPath)
	require.NoError(t, runBuild(context.Background(), opts))

	uncompressOpts := &config.Options{
		HTUncompress:     true,
		RefDir:           dir,
		OutputDirectory:  dir,
		OutputFilePrefix: "",
		NumThreads:       2,
		WriteHashBin:     true,
	}
	require.NoError(t, runUncompress(uncompressOpts))

	_, err := os.Stat(filepath.Join(dir, "hash_table.bin"))
	require.NoError(t, err)
	_, err = os.Stat(filepath.Join(dir, "extend_table.bin"))
	require.NoError(t, err)

	requireDigestsMatch(t, dir)
}

// TestS6CapacityFailureLeavesNoCompressedTable configures a hash table far
// too small for the reference and checks the build fails with exit code 3
// and never writes hash_table.cmp.
func TestS6CapacityFailureLeavesNoCompressedTable(t *testing.T) {
	dir := t.TempDir()
	bases := strings.Repeat("ACGTACGTACGTACGTACGTACGTACGTACGT", 2000) // ~64Kb of non-repeating-enough sequence
	refPath := writeFasta(t, dir, "ref.fa", "chr1", bases)

	opts := baseBuildOptions(dir, refPath)
	opts.Size = 1 << 10 // 1KiB hash table: far too small to hold this reference's seeds
	opts.SeedLen = 17

	err := runBuild(context.Background(), opts)
	require.Error(t, err)
	require.Equal(t, 3, buildctx.ExitCode(err))

	_, statErr := os.Stat(filepath.Join(dir, "hash_table.cmp"))
	require.True(t, os.IsNotExist(statErr), "hash_table.cmp must not be written on capacity failure")
}

// decompressBuckets replays hash_table.cmp the way cmd-uncompress.go does,
// returning the resulting buckets for direct inspection.
func decompressBuckets(t *testing.T, dir string) []hashrec.Bucket {
	t.Helper()
	cmpRaw, err := os.ReadFile(filepath.Join(dir, "hash_table.cmp"))
	require.NoError(t, err)
	hdr, err := compress.ParseHeader(compress.NewBitReader(cmpRaw))
	require.NoError(t, err)

	refRaw, err := os.ReadFile(filepath.Join(dir, "reference.bin"))
	require.NoError(t, err)
	refCodes := reference.Unpack(refRaw, int(hdr.RefSeqLen))

	priPoly := leUint64(hdr.PriCrcPoly[:])
	priCRC := crc64x.New(uint(hdr.PriCrcBits), priPoly)
	wrapBuckets := 1 << hdr.TableAddrBits

	bc := buildctx.New()
	out, err := decompress.Decompress(bc, decompress.Input{
		CompBuf:       cmpRaw,
		RefCodes:      refCodes,
		NumBuckets:    wrapBuckets,
		WrapBuckets:   wrapBuckets,
		PriCRC:        priCRC,
		Threads:       2,
		ComputeDigest: true,
	})
	require.NoError(t, err)
	return out.Buckets
}

// requireDigestsMatch rebuilds the hash table from hash_table.cmp and
// checks the resulting digests equal the ones stamped in hash_table.cfg.bin.
func requireDigestsMatch(t *testing.T, dir string) {
	t.Helper()
	cfgRaw, err := os.ReadFile(filepath.Join(dir, "hash_table.cfg.bin"))
	require.NoError(t, err)
	var hdr hashcfg.Header
	require.NoError(t, hdr.UnmarshalBinary(cfgRaw))

	buckets := decompressBuckets(t, dir)
	require.Equal(t, hdr.HashDigest, decompress.DigestBuckets(buckets))
}

func leUint64(b []byte) uint64 {
	var v uint64
	for i := 0; i < 8; i++ {
		v |= uint64(b[i]) << (8 * i)
	}
	return v
}
