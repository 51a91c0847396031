package compress

// ExtIndex is the extension-table index: one length per bin of
// 1<<ExtTabIndexBucketBits extension-table records, from which cumulative
// bin starts and each bin's offset-address bit width are derived.
type ExtIndex struct {
	Lengths []uint32
}

// BinSize is the number of records covered by one bin.
const BinSize = 1 << ExtTabIndexBucketBits

// BinStart returns the cumulative start offset of bin.
func (x ExtIndex) BinStart(bin int) uint32 {
	var start uint32
	for i := 0; i < bin; i++ {
		start += x.Lengths[i]
	}
	return start
}

// OffsetBits returns the minimum bit width needed to address any offset
// within bin (0 for an empty bin).
func (x ExtIndex) OffsetBits(bin int) int {
	n := x.Lengths[bin]
	if n <= 1 {
		return 0
	}
	return bitWidth(int(n - 1))
}

// WriteExtIndex serializes the index as a count followed by one u32 length
// per bin.
func WriteExtIndex(w *BitWriter, x ExtIndex) {
	w.WriteBits(uint64(len(x.Lengths)), 32)
	for _, l := range x.Lengths {
		w.WriteBits(uint64(l), 32)
	}
}

// ReadExtIndex mirrors WriteExtIndex.
func ReadExtIndex(r *BitReader) ExtIndex {
	n := int(r.ReadBits(32))
	lengths := make([]uint32, n)
	for i := range lengths {
		lengths[i] = uint32(r.ReadBits(32))
	}
	return ExtIndex{Lengths: lengths}
}
