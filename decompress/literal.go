package decompress

import (
	"fmt"

	"github.com/Illumina/DRAGMAP-sub000/compress"
	"github.com/Illumina/DRAGMAP-sub000/hashrec"
)

// readLiteralHashBlock replays a literal hash-table block, filling
// numSlots slots. Slots the run-length coding skips over are left as
// hashrec.EmptyQword; the automatic phase fills those its replay places a
// record in, and the rest stay empty.
func readLiteralHashBlock(r *compress.BitReader, numSlots int) ([]hashrec.Record, []bool, error) {
	if got := r.ReadBits(64); got != compress.MagicLitBlock {
		return nil, nil, fmt.Errorf("decompress: bad literal block magic for hash table")
	}
	r.ReadBits(64) // startPos (unused: blocks are not independently seekable in this format)
	r.ReadBits(64) // endPos
	r.ReadBits(64) // bitLen
	r.ReadBits(1)  // block type (always BlockHashTable here)

	slots := make([]hashrec.Record, numSlots)
	literal := make([]bool, numSlots)
	for i := range slots {
		slots[i] = hashrec.EmptyQword
	}

	// The writer emits one run field before each literal record plus one
	// final trailing run after the last literal (even when that trailing
	// run is zero), so this loop always reads a run before deciding
	// whether it was the final one — checking i>=numSlots only after a
	// record's i++ would skip that last run whenever the final slot
	// itself is literal.
	i := 0
	for {
		run := compress.ReadLiteralRun(r, compress.NoLiteralRunBitsHash)
		i += run
		if i >= numSlots {
			break
		}
		slots[i] = compress.ReadHashLiteral(r)
		literal[i] = true
		i++
	}
	return slots, literal, nil
}

// readLiteralExtBlock mirrors readLiteralHashBlock for the extension table.
func readLiteralExtBlock(r *compress.BitReader, numRows int) ([]hashrec.ExtendHit, []bool, error) {
	if got := r.ReadBits(64); got != compress.MagicLitBlock {
		return nil, nil, fmt.Errorf("decompress: bad literal block magic for extension table")
	}
	r.ReadBits(64)
	r.ReadBits(64)
	r.ReadBits(64)
	r.ReadBits(1)

	rows := make([]hashrec.ExtendHit, numRows)
	literal := make([]bool, numRows)

	i := 0
	for {
		run := compress.ReadLiteralRun(r, compress.NoLiteralRunBitsExt)
		i += run
		if i >= numRows {
			break
		}
		rows[i] = compress.ReadExtLiteral(r)
		literal[i] = true
		i++
	}
	return rows, literal, nil
}
