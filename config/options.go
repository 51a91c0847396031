package config

import (
	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/urfave/cli/v2"
)

// Options is every CLI flag copied into typed fields, the input the rest
// of the pipeline is parameterized by.
type Options struct {
	RefDir           string
	BuildHashTable   bool
	HTReference      string
	OutputDirectory  string
	OutputFilePrefix string
	HTUncompress     bool

	SeedLen        uint
	MaxSeedFreq    uint64
	TargetSeedFreq float64
	SoftSeedFreqCap float64
	MaxDecFactor   float64
	MaxExtSeedLen  uint
	RefSeedInterval float64
	Size           uint64
	MemLimit       uint64
	SJSize         uint64
	MaxTableChunks int
	NumThreads     int
	CrcPrimary     int
	CrcExtended    int

	CostCoeffSeedLen  float64
	CostCoeffSeedFreq float64
	CostPenalty       float64
	CostPenaltyIncr   float64
	ExtRecCost        float64
	AnchorBinBits     uint
	RandHitHiFreq     uint
	RandHitExtend     uint
	PriMaxSeedFreq    uint64
	MaxSeedFreqLen    uint
	MaxExtIncr        uint
	ExtTableAlloc     uint64

	RepairStrategy    uint
	MinRepairProb     float64
	MaxMultiBaseSeeds uint

	MaskBed               string
	Decoys                string
	MethylationConversion string

	OverrideSizeCheck bool
	WriteHashBin      bool
	TestOnly          bool
	DumpIntParams     bool
}

// FromCLIContext copies every flag in Flags into an Options record and
// applies the validation rules spec.md section 7 names.
func FromCLIContext(c *cli.Context) (*Options, error) {
	o := &Options{
		RefDir:           c.String("ref-dir"),
		BuildHashTable:   c.Bool("build-hash-table"),
		HTReference:      c.String("ht-reference"),
		OutputDirectory:  c.String("output-directory"),
		OutputFilePrefix: c.String("output-file-prefix"),
		HTUncompress:     c.Bool("ht-uncompress"),

		SeedLen:         c.Uint("ht-seed-len"),
		MaxSeedFreq:     c.Uint64("ht-max-seed-freq"),
		TargetSeedFreq:  c.Float64("ht-target-seed-freq"),
		SoftSeedFreqCap: c.Float64("ht-soft-seed-freq-cap"),
		MaxDecFactor:    c.Float64("ht-max-dec-factor"),
		MaxExtSeedLen:   c.Uint("ht-max-ext-seed-len"),
		RefSeedInterval: c.Float64("ht-ref-seed-interval"),
		Size:            c.Uint64("ht-size"),
		MemLimit:        c.Uint64("ht-mem-limit"),
		SJSize:          c.Uint64("ht-sj-size"),
		MaxTableChunks:  c.Int("ht-max-table-chunks"),
		NumThreads:      c.Int("ht-num-threads"),
		CrcPrimary:      c.Int("ht-crc-primary"),
		CrcExtended:     c.Int("ht-crc-extended"),

		CostCoeffSeedLen:  c.Float64("ht-cost-coeff-seed-len"),
		CostCoeffSeedFreq: c.Float64("ht-cost-coeff-seed-freq"),
		CostPenalty:       c.Float64("ht-cost-penalty"),
		CostPenaltyIncr:   c.Float64("ht-cost-penalty-incr"),
		ExtRecCost:        c.Float64("ht-ext-rec-cost"),
		AnchorBinBits:     c.Uint("ht-anchor-bin-bits"),
		RandHitHiFreq:     c.Uint("ht-rand-hit-hifreq"),
		RandHitExtend:     c.Uint("ht-rand-hit-extend"),
		PriMaxSeedFreq:    c.Uint64("ht-pri-max-seed-freq"),
		MaxSeedFreqLen:    c.Uint("ht-max-seed-freq-len"),
		MaxExtIncr:        c.Uint("ht-max-ext-incr"),
		ExtTableAlloc:     c.Uint64("ht-ext-table-alloc"),

		RepairStrategy:    c.Uint("ht-repair-strategy"),
		MinRepairProb:     c.Float64("ht-min-repair-prob"),
		MaxMultiBaseSeeds: c.Uint("ht-max-multi-base-seeds"),

		MaskBed:               c.String("ht-mask-bed"),
		Decoys:                c.String("ht-decoys"),
		MethylationConversion: c.String("methylation-conversion"),

		OverrideSizeCheck: c.Bool("ht-override-size-check"),
		WriteHashBin:      c.Bool("ht-write-hash-bin"),
		TestOnly:          c.Bool("ht-test-only"),
		DumpIntParams:     c.Bool("ht-dump-int-params"),
	}

	if err := o.Validate(); err != nil {
		return nil, err
	}
	return o, nil
}

// Validate applies the illegal-combination checks spec.md section 7
// names, returning a *buildctx.ValidationError for the first one violated.
func (o *Options) Validate() error {
	if o.OutputDirectory != "" && o.OutputFilePrefix == "" {
		return &buildctx.ValidationError{
			Field: "output-file-prefix",
			Msg:   "--output-directory requires --output-file-prefix",
		}
	}
	if o.BuildHashTable && o.HTReference == "" {
		return &buildctx.ValidationError{
			Field: "ht-reference",
			Msg:   "--build-hash-table requires --ht-reference",
		}
	}
	if o.BuildHashTable && o.HTUncompress {
		return &buildctx.ValidationError{
			Field: "ht-uncompress",
			Msg:   "--build-hash-table and --ht-uncompress are mutually exclusive",
		}
	}
	if o.HTUncompress && o.RefDir == "" && o.OutputDirectory == "" {
		return &buildctx.ValidationError{
			Field: "ref-dir",
			Msg:   "--ht-uncompress requires --ref-dir or --output-directory naming an existing hash_table.cmp",
		}
	}
	switch o.MethylationConversion {
	case "", "none", "C_TO_T", "G_TO_A":
	default:
		return &buildctx.ValidationError{
			Field: "methylation-conversion",
			Msg:   "must be one of none, C_TO_T, G_TO_A",
		}
	}
	return nil
}
