package hashcfg

// bitWriter and bitReader are the minimal surface this package needs from
// compress.BitWriter/BitReader. Declaring them as local interfaces lets
// hashcfg stay independent of the compress package's import path while
// still embedding the header inside a bitstream byte-aligned.
type bitWriter interface {
	WriteBits(v uint64, n int)
}

type bitReader interface {
	ReadBits(n int) uint64
}

// WriteHeaderBits serializes h as HeaderSize bytes, byte-aligned, into w.
// Panics if h cannot be marshaled, which only happens if a field was set to
// a value outside the fixed layout's byte budget — a programmer error, not
// a runtime condition callers should recover from.
func WriteHeaderBits(w bitWriter, h Header) {
	raw, err := h.MarshalBinary()
	if err != nil {
		panic(err)
	}
	for _, b := range raw {
		w.WriteBits(uint64(b), 8)
	}
}

// ReadHeaderBits is the mirror of WriteHeaderBits.
func ReadHeaderBits(r bitReader) Header {
	raw := make([]byte, HeaderSize)
	for i := range raw {
		raw[i] = byte(r.ReadBits(8))
	}
	var h Header
	if err := h.UnmarshalBinary(raw); err != nil {
		panic(err)
	}
	return h
}
