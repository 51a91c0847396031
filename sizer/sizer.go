// Package sizer turns reference statistics and user-configured budgets
// into the concrete geometry (address bits, chunking, CRC widths, seed
// length clamps) every later build stage is parameterized by.
package sizer

import "math"

// MaxSecCrcBits bounds the secondary (anchored-mode) CRC width.
const MaxSecCrcBits = 39

// MaxNetSeedExtension bounds how far a seed may be extended past its
// primary length.
const MaxNetSeedExtension = 128

// Inputs collects everything the Sizer needs to compute a Geometry.
type Inputs struct {
	NonNBaseCount   uint64 // reference bases, alt-liftover duplicates removed
	ExtendedSeeds   int64  // from strscan.ExtendedSeeds
	MemBudgetBytes  uint64
	UserTableBytes  uint64 // 0 = auto
	UserExtTabRecs  uint64 // 0 = auto
	SJReserveBytes  uint64
	RecordBytes     uint64 // hashrec.RecordBytes
	PriCrcPolyIndex int
	MaxTableChunks  int
	WorkerThreads   int
	PaddedRefLen    uint64
}

// Geometry is the Sizer's decision set, threaded through the remaining
// pipeline stages.
type Geometry struct {
	RefSeedInterval float64 // quantized to 1/16ths, capped at 255.9375
	TableAddrBits   uint
	TableSize64ths  uint // 33..64
	ExtTabRecs      uint64
	ChunkBytes      uint64
	NumChunks       int
	ThreadsPerPass  int
	ChunksInMemory  int
	PriCrcBits      uint
	SecCrcBits      uint
}

// Decide computes a Geometry from in, following the occupancy, memory, and
// chunking rules.
func Decide(in Inputs) Geometry {
	g := Geometry{}

	g.RefSeedInterval = refSeedInterval(in.NonNBaseCount, in.RecordBytes, in.MemBudgetBytes)

	g.ExtTabRecs = in.UserExtTabRecs
	if g.ExtTabRecs == 0 {
		recs := uint64(float64(in.ExtendedSeeds)*1.01) + 8192
		g.ExtTabRecs = alignUp64(recs, 1024)
	}

	var available uint64
	if in.UserTableBytes > 0 {
		// an explicit --ht-size is the table's own budget, not a share of
		// the overall memory budget reserved alongside the reference and
		// extension table.
		available = in.UserTableBytes
	} else {
		available = in.MemBudgetBytes
		reserved := in.PaddedRefLen*3/8 + in.SJReserveBytes + g.ExtTabRecs*16
		if available > reserved {
			available -= reserved
		} else {
			available = 0
		}
	}

	g.TableAddrBits, g.TableSize64ths = chooseAddressing(available, in.RecordBytes)

	g.ChunkBytes = chooseChunkBytes(uint64(1) << g.TableAddrBits * in.RecordBytes * 8 / uint64(g.TableSize64ths) * 64)
	tableBytes := (uint64(1) << g.TableAddrBits) * 8 * in.RecordBytes * uint64(g.TableSize64ths) / 64
	g.NumChunks = numChunks(tableBytes, g.ChunkBytes, in.MaxTableChunks)
	g.ThreadsPerPass = minInt(g.NumChunks, in.WorkerThreads)
	memGB := int(in.MemBudgetBytes / (1 << 30))
	if memGB < 1 {
		memGB = 1
	}
	g.ChunksInMemory = minInt(g.NumChunks, memGB)

	g.PriCrcBits = g.TableAddrBits + 19
	g.SecCrcBits = g.PriCrcBits
	if g.SecCrcBits > MaxSecCrcBits {
		g.SecCrcBits = MaxSecCrcBits
	}
	return g
}

// refSeedInterval targets 75% occupancy when raw occupancy (one record per
// non-N k-mer) would exceed 80% of the memory budget, quantized to
// sixteenths and capped at 255.9375.
func refSeedInterval(nonN, recordBytes, memBudget uint64) float64 {
	if memBudget == 0 {
		return 1.0
	}
	rawOccupancy := float64(nonN*recordBytes) / float64(memBudget)
	interval := 1.0
	if rawOccupancy > 0.80 {
		interval = rawOccupancy / 0.75
	}
	interval = math.Round(interval*16) / 16
	if interval > 255.9375 {
		interval = 255.9375
	}
	if interval < 1 {
		interval = 1
	}
	return interval
}

// chooseAddressing maximizes address bits first, then maximizes the
// 33/64..64/64 squeeze factor, subject to the table fitting in available
// bytes.
func chooseAddressing(available, recordBytes uint64) (addrBits uint, size64ths uint) {
	if available == 0 || recordBytes == 0 {
		return 20, 64
	}
	bestAddr := uint(0)
	for bits := uint(40); bits >= 1; bits-- {
		buckets := uint64(1) << bits
		bytesAt64 := buckets * 8 * recordBytes
		if bytesAt64 <= available {
			bestAddr = bits
			break
		}
	}
	if bestAddr == 0 {
		bestAddr = 1
	}
	buckets := uint64(1) << bestAddr
	best64ths := uint(33)
	for s := uint(64); s >= 33; s-- {
		bytesAtS := buckets * 8 * recordBytes * uint64(s) / 64
		if bytesAtS <= available {
			best64ths = s
			break
		}
	}
	return bestAddr, best64ths
}

// chooseChunkBytes rounds down to the nearest power of two not exceeding
// 1 GiB.
func chooseChunkBytes(tableBytes uint64) uint64 {
	const maxChunk = uint64(1) << 30
	c := uint64(1) << 20 // 1 MiB floor
	for c*2 <= tableBytes && c*2 <= maxChunk {
		c *= 2
	}
	if c > maxChunk {
		c = maxChunk
	}
	return c
}

func numChunks(tableBytes, chunkBytes uint64, maxChunks int) int {
	if chunkBytes == 0 {
		return 1
	}
	n := int((tableBytes + chunkBytes - 1) / chunkBytes)
	if n < 1 {
		n = 1
	}
	if maxChunks > 0 && n > maxChunks {
		n = maxChunks
	}
	return n
}

func alignUp64(v, align uint64) uint64 {
	if v%align == 0 {
		return v
	}
	return v + (align - v%align)
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

// ClampPrimarySeedLength clamps a requested primary seed length to
// priCrcBits/2.
func ClampPrimarySeedLength(requested int, priCrcBits uint) int {
	max := int(priCrcBits / 2)
	if requested > max {
		return max
	}
	return requested
}

// ClampExtendedSeedLength clamps the additional bases beyond the primary
// seed to an even value no larger than MaxNetSeedExtension.
func ClampExtendedSeedLength(requested int) int {
	if requested > MaxNetSeedExtension {
		requested = MaxNetSeedExtension
	}
	if requested%2 != 0 {
		requested--
	}
	if requested < 0 {
		requested = 0
	}
	return requested
}
