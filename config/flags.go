// Package config turns the CLI surface into a validated Options record
// built from urfave/cli flags, one cli.Flag per field.
package config

import "github.com/urfave/cli/v2"

// Flags is every flag the build/uncompress/dump-config commands accept.
// Declared once here so cmd-build.go, cmd-uncompress.go, and
// cmd-dump-config.go can each select the subset relevant to them without
// redeclaring the typed flag definitions.
var Flags = []cli.Flag{
	&cli.StringFlag{Name: "ref-dir", Usage: "directory holding a prebuilt index (for load/uncompress)"},
	&cli.BoolFlag{Name: "build-hash-table", Usage: "invoke the build pipeline"},
	&cli.StringFlag{Name: "ht-reference", Usage: "FASTA reference to build from"},
	&cli.StringFlag{Name: "output-directory", Usage: "directory to write build outputs into"},
	&cli.StringFlag{Name: "output-file-prefix", Usage: "filename prefix for build outputs"},
	&cli.BoolFlag{Name: "ht-uncompress", Usage: "run decompress-only against an existing hash_table.cmp"},

	&cli.UintFlag{Name: "ht-seed-len", Usage: "primary seed length in bases", Value: 21},
	&cli.Uint64Flag{Name: "ht-max-seed-freq", Usage: "hard cap on seed occurrences before thinning"},
	&cli.Float64Flag{Name: "ht-target-seed-freq", Usage: "target post-thinning seed frequency"},
	&cli.Float64Flag{Name: "ht-soft-seed-freq-cap", Usage: "soft frequency cap ramp starting point"},
	&cli.Float64Flag{Name: "ht-max-dec-factor", Usage: "maximum thinning decimation factor"},
	&cli.UintFlag{Name: "ht-max-ext-seed-len", Usage: "longest a seed may extend to"},
	&cli.Float64Flag{Name: "ht-ref-seed-interval", Usage: "override the auto-computed seed interval"},
	&cli.Uint64Flag{Name: "ht-size", Usage: "override the auto-sized hash table byte count"},
	&cli.Uint64Flag{Name: "ht-mem-limit", Usage: "memory budget in bytes the Sizer must respect"},
	&cli.Uint64Flag{Name: "ht-sj-size", Usage: "reserved scratch-join byte allowance"},
	&cli.IntFlag{Name: "ht-max-table-chunks", Usage: "upper bound on build chunk count"},
	&cli.IntFlag{Name: "ht-num-threads", Usage: "worker thread count for the parallel phases"},
	&cli.IntFlag{Name: "ht-crc-primary", Usage: "primary CRC64 polynomial index"},
	&cli.IntFlag{Name: "ht-crc-extended", Usage: "secondary (anchored) CRC64 polynomial index"},

	&cli.Float64Flag{Name: "ht-cost-coeff-seed-len", Usage: "extension-planner seed-length cost coefficient"},
	&cli.Float64Flag{Name: "ht-cost-coeff-seed-freq", Usage: "extension-planner seed-frequency cost coefficient"},
	&cli.Float64Flag{Name: "ht-cost-penalty", Usage: "extension step cost"},
	&cli.Float64Flag{Name: "ht-cost-penalty-incr", Usage: "extension step cost growth"},
	&cli.Float64Flag{Name: "ht-ext-rec-cost", Usage: "per extension-table record cost"},
	&cli.UintFlag{Name: "ht-anchor-bin-bits", Usage: "anchored-mode CRC bin address bits"},
	&cli.UintFlag{Name: "ht-rand-hit-hifreq", Usage: "high-frequency random-hit retention count"},
	&cli.UintFlag{Name: "ht-rand-hit-extend", Usage: "extended-seed random-hit retention count"},
	&cli.Uint64Flag{Name: "ht-pri-max-seed-freq", Usage: "primary-length max seed frequency"},
	&cli.UintFlag{Name: "ht-max-seed-freq-len", Usage: "seed length the frequency cap ramp reaches its floor at"},
	&cli.UintFlag{Name: "ht-max-ext-incr", Usage: "max extension increment per DP step"},
	&cli.Uint64Flag{Name: "ht-ext-table-alloc", Usage: "override the auto-sized extension-table record count"},

	&cli.UintFlag{Name: "ht-repair-strategy", Usage: "opaque repair-strategy pass-through field"},
	&cli.Float64Flag{Name: "ht-min-repair-prob", Usage: "opaque repair-probability pass-through field"},
	&cli.UintFlag{Name: "ht-max-multi-base-seeds", Usage: "cap on multi-base ambiguity-code seed expansion"},

	&cli.StringFlag{Name: "ht-mask-bed", Usage: "BED file of repeat-mask regions to apply"},
	&cli.StringFlag{Name: "ht-decoys", Usage: "decoys FASTA to append as extra contigs"},
	&cli.StringFlag{Name: "methylation-conversion", Usage: "none|C_TO_T|G_TO_A bisulfite conversion mode", Value: "none"},

	&cli.BoolFlag{Name: "ht-override-size-check", Usage: "bypass the Sizer's memory-budget rejection"},
	&cli.BoolFlag{Name: "ht-write-hash-bin", Usage: "also write the uncompressed hash_table.bin/extend_table.bin"},
	&cli.BoolFlag{Name: "ht-test-only", Usage: "run the pipeline without writing output files"},
	&cli.BoolFlag{Name: "ht-dump-int-params", Usage: "print resolved internal parameters and exit"},
}
