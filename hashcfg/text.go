package hashcfg

import (
	"bufio"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// field pairs a cfg key with accessors into a Header, in the order the
// original hash_cfg_file.c writer emits them.
type field struct {
	key string
	get func(h Header) string
	set func(h *Header, v string) error
}

func parseUint32(v string) (uint32, error) {
	n, err := strconv.ParseUint(v, 10, 32)
	return uint32(n), err
}

func parseUint64(v string) (uint64, error) {
	return strconv.ParseUint(v, 10, 64)
}

func parseFloat64(v string) (float64, error) {
	return strconv.ParseFloat(v, 64)
}

var textFields = []field{
	{"hash_table_version", func(h Header) string { return fmt.Sprint(h.HashTableVersion) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.HashTableVersion = n; return err }},
	{"hash_table_bytes", func(h Header) string { return fmt.Sprint(h.HashTableBytes) },
		func(h *Header, v string) error { n, err := parseUint64(v); h.HashTableBytes = n; return err }},
	{"pri_seed_bases", func(h Header) string { return fmt.Sprint(h.PriSeedBases) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.PriSeedBases = n; return err }},
	{"max_seed_bases", func(h Header) string { return fmt.Sprint(h.MaxSeedBases) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.MaxSeedBases = n; return err }},
	{"max_ext_increment", func(h Header) string { return fmt.Sprint(h.MaxExtIncrement) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.MaxExtIncrement = n; return err }},
	{"ref_seed_interval", func(h Header) string { return fmt.Sprint(h.RefSeedInterval) },
		func(h *Header, v string) error { n, err := parseFloat64(v); h.RefSeedInterval = n; return err }},
	{"table_addr_bits", func(h Header) string { return fmt.Sprint(h.TableAddrBits) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.TableAddrBits = n; return err }},
	{"table_size_64ths", func(h Header) string { return fmt.Sprint(h.TableSize64ths) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.TableSize64ths = n; return err }},
	{"max_seed_freq", func(h Header) string { return fmt.Sprint(h.MaxSeedFreq) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.MaxSeedFreq = n; return err }},
	{"pri_max_seed_freq", func(h Header) string { return fmt.Sprint(h.PriMaxSeedFreq) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.PriMaxSeedFreq = n; return err }},
	{"max_seed_freq_len", func(h Header) string { return fmt.Sprint(h.MaxSeedFreqLen) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.MaxSeedFreqLen = n; return err }},
	{"target_seed_freq", func(h Header) string { return fmt.Sprint(h.TargetSeedFreq) },
		func(h *Header, v string) error { n, err := parseFloat64(v); h.TargetSeedFreq = n; return err }},
	{"thinning_freq_cap", func(h Header) string { return fmt.Sprint(h.ThinningFreqCap) },
		func(h *Header, v string) error { n, err := parseFloat64(v); h.ThinningFreqCap = n; return err }},
	{"thinning_period", func(h Header) string { return fmt.Sprint(h.ThinningPeriod) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.ThinningPeriod = n; return err }},
	{"pri_crc_bits", func(h Header) string { return fmt.Sprint(h.PriCrcBits) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.PriCrcBits = n; return err }},
	{"sec_crc_bits", func(h Header) string { return fmt.Sprint(h.SecCrcBits) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.SecCrcBits = n; return err }},
	{"seed_len_cost", func(h Header) string { return fmt.Sprint(h.SeedLenCost) },
		func(h *Header, v string) error { n, err := parseFloat64(v); h.SeedLenCost = n; return err }},
	{"seed_freq_cost", func(h Header) string { return fmt.Sprint(h.SeedFreqCost) },
		func(h *Header, v string) error { n, err := parseFloat64(v); h.SeedFreqCost = n; return err }},
	{"extension_cost", func(h Header) string { return fmt.Sprint(h.ExtensionCost) },
		func(h *Header, v string) error { n, err := parseFloat64(v); h.ExtensionCost = n; return err }},
	{"ext_step_cost", func(h Header) string { return fmt.Sprint(h.ExtStepCost) },
		func(h *Header, v string) error { n, err := parseFloat64(v); h.ExtStepCost = n; return err }},
	{"repair_strategy", func(h Header) string { return fmt.Sprint(h.RepairStrategy) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.RepairStrategy = n; return err }},
	{"min_repair_prob", func(h Header) string { return fmt.Sprint(h.MinRepairProb) },
		func(h *Header, v string) error { n, err := parseFloat64(v); h.MinRepairProb = n; return err }},
	{"anchor_bin_bits", func(h Header) string { return fmt.Sprint(h.AnchorBinBits) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.AnchorBinBits = n; return err }},
	{"ref_seq_len", func(h Header) string { return fmt.Sprint(h.RefSeqLen) },
		func(h *Header, v string) error { n, err := parseUint64(v); h.RefSeqLen = n; return err }},
	{"ref_len_raw", func(h Header) string { return fmt.Sprint(h.RefLenRaw) },
		func(h *Header, v string) error { n, err := parseUint64(v); h.RefLenRaw = n; return err }},
	{"ref_len_not_n", func(h Header) string { return fmt.Sprint(h.RefLenNotN) },
		func(h *Header, v string) error { n, err := parseUint64(v); h.RefLenNotN = n; return err }},
	{"num_ref_seqs", func(h Header) string { return fmt.Sprint(h.NumRefSeqs) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.NumRefSeqs = n; return err }},
	{"digest_type", func(h Header) string { return fmt.Sprint(uint32(h.DigestType)) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.DigestType = DigestType(n); return err }},
	{"ref_digest", func(h Header) string { return fmt.Sprintf("%08x", h.RefDigest) },
		func(h *Header, v string) error { n, err := strconv.ParseUint(v, 16, 32); h.RefDigest = uint32(n); return err }},
	{"ref_index_digest", func(h Header) string { return fmt.Sprintf("%08x", h.RefIndexDigest) },
		func(h *Header, v string) error { n, err := strconv.ParseUint(v, 16, 32); h.RefIndexDigest = uint32(n); return err }},
	{"hash_digest", func(h Header) string { return fmt.Sprintf("%08x", h.HashDigest) },
		func(h *Header, v string) error { n, err := strconv.ParseUint(v, 16, 32); h.HashDigest = uint32(n); return err }},
	{"ext_tab_recs", func(h Header) string { return fmt.Sprint(h.ExtTabRecs) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.ExtTabRecs = n; return err }},
	{"ext_tab_digest", func(h Header) string { return fmt.Sprintf("%08x", h.ExtTabDigest) },
		func(h *Header, v string) error { n, err := strconv.ParseUint(v, 16, 32); h.ExtTabDigest = uint32(n); return err }},
	{"ext_rec_cost", func(h Header) string { return fmt.Sprint(h.ExtRecCost) },
		func(h *Header, v string) error { n, err := parseFloat64(v); h.ExtRecCost = n; return err }},
	{"min_freq_to_extend", func(h Header) string { return fmt.Sprint(h.MinFreqToExtend) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.MinFreqToExtend = n; return err }},
	{"max_mult_base_seeds", func(h Header) string { return fmt.Sprint(h.MaxMultBaseSeeds) },
		func(h *Header, v string) error { n, err := parseUint32(v); h.MaxMultBaseSeeds = n; return err }},
}

// WriteText renders h as key=value lines, one per field, matching
// hash_cfg_file.c's companion text file.
func WriteText(w io.Writer, h Header) error {
	bw := bufio.NewWriter(w)
	for _, f := range textFields {
		if _, err := fmt.Fprintf(bw, "%s=%s\n", f.key, f.get(h)); err != nil {
			return err
		}
	}
	return bw.Flush()
}

// ReadText parses the key=value text rendering back into a Header. Unknown
// keys are ignored, matching the original reader's forward-compatible
// stance on added fields.
func ReadText(r io.Reader) (Header, error) {
	var h Header
	byKey := make(map[string]field, len(textFields))
	for _, f := range textFields {
		byKey[f.key] = f
	}
	sc := bufio.NewScanner(r)
	for sc.Scan() {
		line := strings.TrimSpace(sc.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		k, v, ok := strings.Cut(line, "=")
		if !ok {
			return h, fmt.Errorf("hashcfg: malformed line %q", line)
		}
		f, ok := byKey[k]
		if !ok {
			continue
		}
		if err := f.set(&h, v); err != nil {
			return h, fmt.Errorf("hashcfg: field %s: %w", k, err)
		}
	}
	if err := sc.Err(); err != nil {
		return h, err
	}
	return h, nil
}
