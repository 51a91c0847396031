package main

import (
	"encoding/binary"
	"os"
	"path/filepath"
	"runtime"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/compress"
	"github.com/Illumina/DRAGMAP-sub000/config"
	"github.com/Illumina/DRAGMAP-sub000/crc64x"
	"github.com/Illumina/DRAGMAP-sub000/decompress"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
	"github.com/Illumina/DRAGMAP-sub000/reference"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

func newCmd_Uncompress() *cli.Command {
	return &cli.Command{
		Name:        "uncompress",
		Usage:       "expand an existing hash_table.cmp back to hash_table.bin/extend_table.bin",
		Description: "Read a directory of build outputs, replay the automatic block, and optionally write the uncompressed table alongside it.",
		Flags:       config.Flags,
		Action: func(c *cli.Context) error {
			opts, err := config.FromCLIContext(c)
			if err != nil {
				return err
			}
			if !opts.HTUncompress {
				return nil
			}
			return runUncompress(opts)
		},
	}
}

func runUncompress(opts *config.Options) error {
	dir := opts.RefDir
	if dir == "" {
		dir = opts.OutputDirectory
	}
	prefix := opts.OutputFilePrefix
	cmpPath := filepath.Join(dir, prefix+"hash_table.cmp")
	refPath := filepath.Join(dir, prefix+"reference.bin")

	cmpBuf, err := os.ReadFile(cmpPath)
	if err != nil {
		return &buildctx.InputError{Path: cmpPath, Msg: err.Error()}
	}

	hdr, err := compress.ParseHeader(compress.NewBitReader(cmpBuf))
	if err != nil {
		return &buildctx.IntegrityError{Stage: "header", Msg: err.Error()}
	}

	refPacked, err := os.ReadFile(refPath)
	if err != nil {
		return &buildctx.InputError{Path: refPath, Msg: err.Error()}
	}
	refCodes := reference.Unpack(refPacked, int(hdr.RefSeqLen))

	numThreads := opts.NumThreads
	if numThreads <= 0 {
		numThreads = runtime.NumCPU()
	}

	priPoly := binary.LittleEndian.Uint64(hdr.PriCrcPoly[:])
	priCRC := crc64x.New(uint(hdr.PriCrcBits), priPoly)
	wrapBuckets := 1 << hdr.TableAddrBits

	bc := buildctx.New()
	out, err := decompress.Decompress(bc, decompress.Input{
		CompBuf:       cmpBuf,
		RefCodes:      refCodes,
		NumBuckets:    wrapBuckets,
		WrapBuckets:   wrapBuckets,
		PriCRC:        priCRC,
		Threads:       numThreads,
		ComputeDigest: true,
	})
	if err != nil {
		return err
	}

	klog.Infof("uncompress: %d buckets, hashDigest=%08x extTabDigest=%08x", len(out.Buckets), out.HashDigest, out.ExtTabDigest)

	if !opts.WriteHashBin {
		return nil
	}

	hashBinPath := filepath.Join(dir, prefix+"hash_table.bin")
	if err := writeHashTableBin(hashBinPath, out.Buckets); err != nil {
		return err
	}
	extTablePath := filepath.Join(dir, prefix+"extend_table.bin")
	if err := writeExtRows(extTablePath, out.ExtRows); err != nil {
		return err
	}
	return nil
}

func writeExtRows(path string, rows []hashrec.ExtendHit) error {
	buf := make([]byte, 0, len(rows)*8)
	for _, row := range rows {
		var b [8]byte
		binary.LittleEndian.PutUint64(b[:], uint64(row))
		buf = append(buf, b[:]...)
	}
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		return &buildctx.InputError{Path: path, Msg: err.Error()}
	}
	return nil
}
