package main

import (
	"os"
	"path/filepath"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/Illumina/DRAGMAP-sub000/config"
	"github.com/Illumina/DRAGMAP-sub000/hashcfg"
	"github.com/urfave/cli/v2"
)

func newCmd_DumpConfig() *cli.Command {
	return &cli.Command{
		Name:        "dump-config",
		Usage:       "print a built hash_table.cfg",
		Description: "With --ht-dump-int-params set, read hash_table.cfg (or hash_table.cfg.bin, if present) from --output-directory/--ref-dir and print it to stdout; without that flag, print nothing.",
		Flags:       config.Flags,
		Action: func(c *cli.Context) error {
			opts, err := config.FromCLIContext(c)
			if err != nil {
				return err
			}
			if !opts.DumpIntParams {
				return nil
			}
			return runDumpConfig(opts)
		},
	}
}

func runDumpConfig(opts *config.Options) error {
	dir := opts.RefDir
	if dir == "" {
		dir = opts.OutputDirectory
	}
	prefix := opts.OutputFilePrefix

	binPath := filepath.Join(dir, prefix+"hash_table.cfg.bin")
	textPath := filepath.Join(dir, prefix+"hash_table.cfg")

	var hdr hashcfg.Header
	if raw, err := os.ReadFile(binPath); err == nil {
		if err := hdr.UnmarshalBinary(raw); err != nil {
			return &buildctx.IntegrityError{Stage: "cfg-bin", Msg: err.Error()}
		}
	} else {
		f, err := os.Open(textPath)
		if err != nil {
			return &buildctx.InputError{Path: textPath, Msg: err.Error()}
		}
		defer f.Close()
		hdr, err = hashcfg.ReadText(f)
		if err != nil {
			return &buildctx.IntegrityError{Stage: "cfg-text", Msg: err.Error()}
		}
	}

	return hashcfg.WriteText(os.Stdout, hdr)
}
