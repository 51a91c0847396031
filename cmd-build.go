package main

import (
	"context"
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/buildstats"
	"github.com/Illumina/DRAGMAP-sub000/chainprobe"
	"github.com/Illumina/DRAGMAP-sub000/compress"
	"github.com/Illumina/DRAGMAP-sub000/config"
	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/decompress"
	"github.com/Illumina/DRAGMAP-sub000/hashcfg"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/internal/continuity"
	"github.com/Illumina/DRAGMAP-sub000/internal/fastaio"
	"github.com/Illumina/DRAGMAP-sub000/internal/maskbed"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/Illumina/DRAGMAP-sub000/seedhash"
	"github.com/Illumina/DRAGMAP-sub000/sizer"
	"github.com/Illumina/DRAGMAP-sub000/slotpack"
	"github.com/Illumina/DRAGMAP-sub000/strscan"
	"github.com/cespare/xxhash/v2"
	"github.com/urfave/cli/v2"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sys/unix"
	"k8s.io/klog/v2"
)

func newCmd_Build() *cli.Command {
	return &cli.Command{
		Name:        "build-hash-table",
		Usage:       "build a packed reference and hash table from a FASTA file",
		Description: "Run the full encoder/hasher/compressor pipeline and write build outputs to --output-directory.",
		Flags:       config.Flags,
		Action: func(c *cli.Context) error {
			opts, err := config.FromCLIContext(c)
			if err != nil {
				return err
			}
			if !opts.BuildHashTable {
				return nil
			}
			return runBuild(c.Context, opts)
		},
	}
}

// buildOutputs collects everything written to --output-directory, named so
// the build and the stats report agree on what a successful run produced.
type buildOutputs struct {
	refBin      string
	refIndexBin string
	maskBin     string
	strTableBin string
	cmpFile     string
	cfgBin      string
	cfgText     string
	statsText   string
	hashBin     string
	extTableBin string
}

func outputPaths(dir, prefix string) buildOutputs {
	p := func(name string) string { return filepath.Join(dir, prefix+name) }
	return buildOutputs{
		refBin:      p("reference.bin"),
		refIndexBin: p("ref_index.bin"),
		maskBin:     p("repeat_mask.bin"),
		strTableBin: p("str_table.bin"),
		cmpFile:     p("hash_table.cmp"),
		cfgBin:      p("hash_table.cfg.bin"),
		cfgText:     p("hash_table.cfg"),
		statsText:   p("hash_table_stats.txt"),
		hashBin:     p("hash_table.bin"),
		extTableBin: p("extend_table.bin"),
	}
}

func runBuild(ctx context.Context, opts *config.Options) error {
	stats := buildstats.New()
	bc := buildctx.New()
	numThreads := opts.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	buildID := xxhash.Sum64String(fmt.Sprintf("%s|%d|%d|%s", opts.HTReference, opts.SeedLen, opts.MaxSeedFreq, opts.MethylationConversion))
	klog.Infof("build-hash-table starting, buildID=%x", buildID)

	progress := mpb.New(mpb.WithWidth(48))

	var (
		encResult     reference.Result
		strRecs       []strscan.Record
		geom          sizer.Geometry
		priCRC        *crc64x.Table
		buckets       []hashrec.Bucket
		extIndex      compress.ExtIndex
		extRows       []hashrec.ExtendHit
		foldedBuckets [][]hashrec.Record
		out           buildOutputs
	)

	chain := continuity.New()
	chain.Thenf("encode", func() error {
		contigs, err := fastaio.ReadFile(opts.HTReference)
		if err != nil {
			return &buildctx.InputError{Path: opts.HTReference, Msg: err.Error()}
		}
		if len(contigs) == 0 {
			return &buildctx.InputError{Path: opts.HTReference, Msg: "no contigs found"}
		}

		if opts.Decoys != "" {
			decoyContigs, err := fastaio.ReadFile(opts.Decoys)
			if err != nil {
				return &buildctx.InputError{Path: opts.Decoys, Msg: err.Error()}
			}
			contigs = append(contigs, decoyContigs...)
		}

		if opts.MaskBed != "" {
			f, err := os.Open(opts.MaskBed)
			if err != nil {
				return &buildctx.InputError{Path: opts.MaskBed, Msg: err.Error()}
			}
			regions, err := maskbed.Parse(f)
			f.Close()
			if err != nil {
				return &buildctx.InputError{Path: opts.MaskBed, Msg: err.Error()}
			}
			for i := range contigs {
				contigs[i].Bases = maskbed.Apply(contigs[i].Bases, regions, contigs[i].Name)
			}
		}

		mode := reference.ModeNormal
		switch opts.MethylationConversion {
		case "C_TO_T":
			mode = reference.ModeMethylCtoT
		case "G_TO_A":
			mode = reference.ModeMethylGtoA
		}

		enc := reference.New(mode, false)
		bar := progress.AddBar(int64(len(contigs)),
			mpb.PrependDecorators(decor.Name("encode ")),
			mpb.AppendDecorators(decor.CountersNoUnit("%d / %d")))
		for i, ctg := range contigs {
			if err := enc.Add(reference.Contig{Name: ctg.Name, Bases: ctg.Bases, RefID: uint32(i)}); err != nil {
				return &buildctx.InputError{Path: opts.HTReference, Msg: err.Error()}
			}
			bar.Increment()
		}
		res, err := enc.Finish()
		if err != nil {
			return &buildctx.InputError{Path: opts.HTReference, Msg: err.Error()}
		}
		encResult = res
		stats.RefSeqLen = res.RefSeqLen
		stats.RefLenRaw = res.RefLenRaw
		stats.RefLenNotN = res.RefLenNotN
		return nil
	})

	chain.Thenf("str-scan", func() error {
		perContig := make([][]strscan.Record, len(encResult.ContigSpans))
		g, _ := errgroup.WithContext(ctx)
		g.SetLimit(numThreads)
		for i, span := range encResult.ContigSpans {
			i, span := i, span
			g.Go(func() error {
				perContig[i] = strscan.Scan(span.RefID, encResult.Codes[span.Start:span.End])
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			return err
		}
		for _, recs := range perContig {
			strRecs = append(strRecs, recs...)
		}
		strscan.SortTable(strRecs)
		return nil
	})

	var freq *strscan.FreqCounter
	var extended strscan.ExtendedSeeds
	var priPoly uint64
	chain.Thenf("prehash", func() error {
		priPoly = crc64x.PolyByIndex(opts.CrcPrimary)
		freq = strscan.NewFreqCounter(20, crc64x.New(32, priPoly))
		minFreqToExtend := uint8(opts.TargetSeedFreq)
		if minFreqToExtend == 0 {
			minFreqToExtend = 16
		}
		stats.SetMinFreqToExtend(uint32(minFreqToExtend))

		seedLen := clampedSeedLen(opts)
		for pos := 0; pos+seedLen <= len(encResult.Codes); pos++ {
			window := encResult.Codes[pos : pos+seedLen]
			if seedhash.HasAmbiguity(window) {
				continue
			}
			kmer := seedhash.Pack(window)
			canon, _, _ := seedhash.Canonical(kmer, seedLen)
			if freq.Bump(canon, minFreqToExtend) {
				extended.Add(1)
			}
		}
		return nil
	})

	chain.Thenf("sizer", func() error {
		geom = sizer.Decide(sizer.Inputs{
			NonNBaseCount:   encResult.RefLenNotN,
			ExtendedSeeds:   extended.Total(),
			MemBudgetBytes:  effectiveMemBudget(opts),
			UserTableBytes:  opts.Size,
			UserExtTabRecs:  opts.ExtTableAlloc,
			SJReserveBytes:  opts.SJSize,
			RecordBytes:     hashrec.RecordBytes,
			PriCrcPolyIndex: opts.CrcPrimary,
			MaxTableChunks:  opts.MaxTableChunks,
			WorkerThreads:   numThreads,
			PaddedRefLen:    encResult.RefSeqLen,
		})
		priCRC = crc64x.New(geom.PriCrcBits, priPoly)
		return nil
	})

	var store *seedhash.BucketStore
	chain.Thenf("seed-hash", func() error {
		numBuckets := 1 << geom.TableAddrBits
		store = seedhash.NewBucketStore(numBuckets)
		seedLen := clampedSeedLen(opts)
		h := seedhash.NewHasher(seedhash.Params{
			SeedLen:       seedLen,
			TableAddrBits: geom.TableAddrBits,
			Squeeze64ths:  geom.TableSize64ths,
			AnchorBinBits: opts.AnchorBinBits,
			MaxMultiBase:  int(opts.MaxMultiBaseSeeds),
			PriCRC:        priCRC,
			ChunkLo:       0,
			ChunkHi:       numBuckets,
			NumThreads:    numThreads,
		}, store)
		bar := progress.AddBar(int64(len(encResult.Codes)),
			mpb.PrependDecorators(decor.Name("hash   ")),
			mpb.AppendDecorators(decor.Percentage()))
		err := h.Run(ctx, bc, encResult.Codes, encResult.RepeatMask)
		bar.SetCurrent(int64(len(encResult.Codes)))
		return err
	})

	chain.Thenf("thin", func() error {
		interval := int(geom.RefSeedInterval + 0.5)
		if interval < 1 {
			interval = 1
		}
		if interval == 1 {
			return nil
		}
		for i := 0; i < store.Len(); i++ {
			recs := store.Bucket(i)
			kept := recs[:0]
			for _, r := range recs {
				if r.Opcode() != hashrec.OpHit {
					kept = append(kept, r)
					continue
				}
				if int(r.AsHit().SeedIndex)%interval == 0 {
					kept = append(kept, r)
				} else {
					stats.AddThinned(1)
				}
			}
			for j := len(kept); j < len(recs); j++ {
				recs[j] = hashrec.EmptyQword
			}
		}
		return nil
	})

	chain.Thenf("extend-plan", func() error {
		numBuckets := 1 << geom.TableAddrBits
		folder := newExtendFolder(opts, encResult.Codes, clampedSeedLen(opts))
		foldedBuckets = make([][]hashrec.Record, numBuckets)
		for i := 0; i < numBuckets; i++ {
			recs := store.Bucket(i)
			if len(recs) == 0 {
				continue
			}
			var kept []hashrec.Record
			for _, r := range recs {
				if r != hashrec.EmptyQword {
					kept = append(kept, r)
				}
			}
			if len(kept) == 0 {
				continue
			}
			stats.AddHit(int64(len(kept)))
			folded, err := folder.Fold(kept)
			if err != nil {
				return err
			}
			foldedBuckets[i] = folded
		}
		extRows = folder.rows
		var extendCount int64
		for _, b := range foldedBuckets {
			for _, r := range b {
				if r.Opcode() == hashrec.OpExtend {
					extendCount++
				}
			}
		}
		stats.AddExtend(extendCount)
		stats.AddLiteralExtRow(int64(len(extRows)))
		stats.SetExtTabRecsUsed(int64(len(extRows)))
		return nil
	})

	chain.Thenf("slot-pack", func() error {
		numBuckets := 1 << geom.TableAddrBits
		occupancy := func(idx int) int { return len(foldedBuckets[idx%numBuckets]) }
		decisions := chainprobe.Resolve(foldedBuckets, occupancy)

		// Chain pointers are an 18-bit field (hashrec.ChainBlockBuckets):
		// targets must stay within the same chain block as their source
		// bucket, so both the stored offset and the absolute destination
		// are computed relative to that bucket's block, not the whole
		// table. For tables no larger than one chain block (every test
		// table, and any real table with TableAddrBits <= 18) this block
		// is the entire table and the math below reduces to the old
		// direct "(i + ProbeDist) % numBuckets".
		chainBlock := chainprobe.WrapBuckets
		if chainBlock > numBuckets {
			chainBlock = numBuckets
		}

		pending := make(map[int][]hashrec.Record, numBuckets)
		chainSlot := make(map[int]hashrec.Record, numBuckets)
		for i, d := range decisions {
			if len(d.Kept) > 0 {
				pending[i] = append(pending[i], d.Kept...)
			}
			if !d.UseChain {
				continue
			}
			blockBase := (i / chainBlock) * chainBlock
			offset := ((i - blockBase) + d.ProbeDist) % chainBlock
			target := blockBase + offset
			pending[target] = append(pending[target], d.ChainRecords...)
			useList, filter := chainprobe.FilterMode(d.ChainRecords)
			chainSlot[i] = hashrec.NewChain(hashrec.Chain{ChainPtr: uint32(offset), Begin: true, Filter: filter}, useList)
			stats.AddChain(int64(len(d.ChainRecords)))
		}

		placements, err := slotpack.Pack(pending, chainSlot, numBuckets)
		if err != nil {
			return err
		}
		buckets = slotpack.ToBuckets(placements, numBuckets)
		stats.AddAuto(int64(len(placements)))
		return nil
	})

	chain.Thenf("fixup", func() error {
		return decompress.FixUp(decompress.FixupParams{
			SeedLen:       clampedSeedLen(opts),
			TableAddrBits: geom.TableAddrBits,
			Squeeze64ths:  geom.TableSize64ths,
			PriCRC:        priCRC,
			WrapBuckets:   1 << geom.TableAddrBits,
			NumThreads:    numThreads,
		}, encResult.Codes, buckets)
	})

	chain.Thenf("write", func() error {
		extIndex = buildExtIndex(extRows)
		out = outputPaths(opts.OutputDirectory, opts.OutputFilePrefix)
		if opts.TestOnly {
			return nil
		}
		return writeBuildOutputs(out, opts, encResult, strRecs, geom, priPoly, buckets, extRows, extIndex, stats, opts.WriteHashBin)
	})

	progress.Wait()

	if err := chain.Err(); err != nil {
		klog.Errorf("build-hash-table failed at stage %q: %v", chain.FailedStage(), err)
		return err
	}
	klog.Infof("build-hash-table finished: %d buckets, %d hit records", len(buckets), stats.Snapshot().HitRecords)
	return nil
}

// clampedSeedLen applies the Sizer's clamp with a fixed PriCrcBits of 64,
// so the seed length (default 21) never exceeds 32 bases. Every stage calls
// it the same way; the Geometry's PriCrcBits is not applied to the seed
// length.
func clampedSeedLen(opts *config.Options) int {
	requested := int(opts.SeedLen)
	if requested == 0 {
		requested = 21
	}
	return sizer.ClampPrimarySeedLength(requested, 64)
}

func effectiveMemBudget(opts *config.Options) uint64 {
	if opts.MemLimit > 0 {
		return opts.MemLimit
	}
	return 4 << 30
}

func writeBuildOutputs(out buildOutputs, opts *config.Options, enc reference.Result, strRecs []strscan.Record, geom sizer.Geometry, priPoly uint64, buckets []hashrec.Bucket, extRows []hashrec.ExtendHit, extIndex compress.ExtIndex, stats *buildstats.Stats, writeHashBin bool) error {
	if opts.OutputDirectory == "" {
		return nil
	}
	if err := os.MkdirAll(opts.OutputDirectory, 0o755); err != nil {
		return &buildctx.InputError{Path: opts.OutputDirectory, Msg: err.Error()}
	}

	if err := writeLargeFile(out.refBin, reference.Pack(enc.Codes)); err != nil {
		return &buildctx.InputError{Path: out.refBin, Msg: err.Error()}
	}
	if err := writeIndex(out.refIndexBin, enc.Index); err != nil {
		return err
	}
	if err := os.WriteFile(out.maskBin, packMask(enc.RepeatMask), 0o644); err != nil {
		return &buildctx.InputError{Path: out.maskBin, Msg: err.Error()}
	}
	if err := writeStrTable(out.strTableBin, strRecs); err != nil {
		return err
	}

	slots := make([]compress.SlotSource, 0, len(buckets)*hashrec.RecordsPerBucket)
	for _, b := range buckets {
		for _, r := range b {
			op := r.Opcode()
			literal := op != hashrec.OpHit && op != hashrec.OpEmpty
			slots = append(slots, compress.SlotSource{Rec: r, Literal: literal})
			if literal {
				stats.AddLiteral(1)
			}
		}
	}

	extRowSrcs := make([]compress.ExtRowSource, len(extRows))
	for i, row := range extRows {
		extRowSrcs[i] = compress.ExtRowSource{Row: row, Literal: true}
	}

	hdr := hashcfg.Header{
		HashTableVersion: hashcfg.Version,
		HashTableBytes:   uint64(len(buckets)) * hashrec.BucketBytes,
		PriSeedBases:     uint32(clampedSeedLen(opts)),
		MaxSeedBases:     uint32(opts.MaxExtSeedLen),
		MaxExtIncrement:  uint32(opts.MaxExtIncr),
		RefSeedInterval:  geom.RefSeedInterval,
		TableAddrBits:    uint32(geom.TableAddrBits),
		TableSize64ths:   uint32(geom.TableSize64ths),
		MaxSeedFreq:      uint32(opts.MaxSeedFreq),
		PriMaxSeedFreq:   uint32(opts.PriMaxSeedFreq),
		MaxSeedFreqLen:   uint32(opts.MaxSeedFreqLen),
		TargetSeedFreq:   opts.TargetSeedFreq,
		PriCrcBits:       uint32(geom.PriCrcBits),
		SecCrcBits:       uint32(geom.SecCrcBits),
		SeedLenCost:      opts.CostCoeffSeedLen,
		SeedFreqCost:     opts.CostCoeffSeedFreq,
		ExtensionCost:    opts.CostPenalty,
		ExtStepCost:      opts.CostPenaltyIncr,
		RepairStrategy:   uint32(opts.RepairStrategy),
		MinRepairProb:    opts.MinRepairProb,
		AnchorBinBits:    uint32(opts.AnchorBinBits),
		HiFreqRandHit:    uint32(opts.RandHitHiFreq),
		ExtRandHitFreq:   uint32(opts.RandHitExtend),
		DigestType:       hashcfg.DigestCRC32C,
		NumRefSeqs:       uint32(len(enc.Index)),
		RefDigest:        uint32(enc.RefDigest),
		RefIndexDigest:   uint32(enc.IndexDigest),
		ExtRecCost:       opts.ExtRecCost,
		ExtTabRecs:       uint32(len(extRows)),
		HashDigest:       decompress.DigestBuckets(buckets),
		ExtTabDigest:     decompress.DigestExtRows(extRows),
	}
	snap := stats.Snapshot()
	snap.ApplyToHeader(&hdr)

	binary.LittleEndian.PutUint64(hdr.PriCrcPoly[:], priPoly)
	binary.LittleEndian.PutUint64(hdr.SecCrcPoly[:], crc64x.PolyByIndex(opts.CrcExtended))

	cmp := compress.Compress(compress.Input{
		Header:    hdr,
		HashSlots: slots,
		ExtRows:   extRowSrcs,
		ExtIndex:  extIndex,
	})
	if err := os.WriteFile(out.cmpFile, cmp, 0o644); err != nil {
		return &buildctx.InputError{Path: out.cmpFile, Msg: err.Error()}
	}

	cfgBin, err := hdr.MarshalBinary()
	if err != nil {
		return fmt.Errorf("hashcfg: %w", err)
	}
	if err := os.WriteFile(out.cfgBin, cfgBin, 0o644); err != nil {
		return &buildctx.InputError{Path: out.cfgBin, Msg: err.Error()}
	}
	cfgFile, err := os.Create(out.cfgText)
	if err != nil {
		return &buildctx.InputError{Path: out.cfgText, Msg: err.Error()}
	}
	defer cfgFile.Close()
	if err := hashcfg.WriteText(cfgFile, hdr); err != nil {
		return &buildctx.InputError{Path: out.cfgText, Msg: err.Error()}
	}

	if err := buildstats.WriteText(out.statsText, snap); err != nil {
		return &buildctx.InputError{Path: out.statsText, Msg: err.Error()}
	}

	if writeHashBin {
		if err := writeHashTableBin(out.hashBin, buckets); err != nil {
			return err
		}
		if err := writeExtTableBin(out.extTableBin, extRows); err != nil {
			return err
		}
	}
	return nil
}

func writeIndex(path string, idx []reference.IndexDescriptor) error {
	buf := make([]byte, 0, len(idx)*16)
	for _, d := range idx {
		var row [16]byte
		binary.LittleEndian.PutUint32(row[0:4], d.RefID)
		binary.LittleEndian.PutUint32(row[4:8], d.SeqPos)
		binary.LittleEndian.PutUint16(row[8:10], d.Flags)
		binary.LittleEndian.PutUint16(row[10:12], d.Reserved)
		binary.LittleEndian.PutUint32(row[12:16], d.BlockOrd)
		buf = append(buf, row[:]...)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return &buildctx.InputError{Path: path, Msg: err.Error()}
	}
	return nil
}

func packMask(mask []bool) []byte {
	out := make([]byte, (len(mask)+7)/8)
	for i, m := range mask {
		if m {
			out[i/8] |= 1 << uint(i%8)
		}
	}
	return out
}

func writeStrTable(path string, recs []strscan.Record) error {
	buf := make([]byte, 0, len(recs)*16)
	for _, r := range recs {
		var row [16]byte
		binary.LittleEndian.PutUint32(row[0:4], r.Mask)
		binary.LittleEndian.PutUint32(row[4:8], r.RefID)
		binary.LittleEndian.PutUint32(row[8:12], r.BegPos)
		binary.LittleEndian.PutUint32(row[12:16], r.Length)
		buf = append(buf, row[:]...)
		buf = append(buf, r.Period, r.RepeatLen, 0, 0)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return &buildctx.InputError{Path: path, Msg: err.Error()}
	}
	return nil
}

func writeHashTableBin(path string, buckets []hashrec.Bucket) error {
	buf := make([]byte, 0, len(buckets)*hashrec.BucketBytes)
	for _, b := range buckets {
		for _, r := range b {
			var rowBuf [8]byte
			binary.LittleEndian.PutUint64(rowBuf[:], uint64(r))
			buf = append(buf, rowBuf[:]...)
		}
	}
	if err := writeLargeFile(path, buf); err != nil {
		return &buildctx.InputError{Path: path, Msg: err.Error()}
	}
	return nil
}

func writeExtTableBin(path string, rows []hashrec.ExtendHit) error {
	buf := make([]byte, 0, len(rows)*8)
	for _, r := range rows {
		var rowBuf [8]byte
		binary.LittleEndian.PutUint64(rowBuf[:], uint64(r))
		buf = append(buf, rowBuf[:]...)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return &buildctx.InputError{Path: path, Msg: err.Error()}
	}
	return nil
}

// writeLargeFile writes buf to path and hints the kernel that the file was
// written sequentially and won't be reread soon, the write-side counterpart
// of compactindexsized's FADV_RANDOM read hint.
func writeLargeFile(path string, buf []byte) error {
	f, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	defer f.Close()
	if _, err := f.Write(buf); err != nil {
		return err
	}
	_ = unix.Fadvise(int(f.Fd()), 0, 0, unix.FADV_DONTNEED)
	return nil
}
