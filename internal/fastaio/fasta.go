// Package fastaio reads FASTA reference files into the contigs
// reference.Encoder consumes. No example repo in this codebase's corpus
// ships a FASTA reader, so this parser is a small bufio.Scanner loop
// rather than a reused third-party library; it transparently decompresses
// a .zst-suffixed input the same way cmd-dump-car.go's zstd.Decoder reads
// CAR frames.
package fastaio

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/klauspost/compress/zstd"
)

// Contig is one FASTA record: its header name (up to the first
// whitespace) and concatenated sequence bytes.
type Contig struct {
	Name  string
	Bases []byte
}

// Open returns a reader over path, transparently zstd-decompressing when
// the name ends in .zst.
func Open(path string) (io.ReadCloser, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("fastaio: %w", err)
	}
	if !strings.HasSuffix(path, ".zst") {
		return f, nil
	}
	dec, err := zstd.NewReader(f)
	if err != nil {
		f.Close()
		return nil, fmt.Errorf("fastaio: %w", err)
	}
	return zstdCloser{dec: dec, file: f}, nil
}

type zstdCloser struct {
	dec  *zstd.Decoder
	file *os.File
}

func (z zstdCloser) Read(p []byte) (int, error) { return z.dec.Read(p) }
func (z zstdCloser) Close() error {
	z.dec.Close()
	return z.file.Close()
}

// Parse reads every record from r in order.
func Parse(r io.Reader) ([]Contig, error) {
	var out []Contig
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, 1<<20), 1<<30)
	var cur *Contig
	for scanner.Scan() {
		line := scanner.Text()
		if len(line) == 0 {
			continue
		}
		if line[0] == '>' {
			if cur != nil {
				out = append(out, *cur)
			}
			name := strings.TrimPrefix(line, ">")
			if i := strings.IndexAny(name, " \t"); i >= 0 {
				name = name[:i]
			}
			cur = &Contig{Name: name}
			continue
		}
		if cur == nil {
			return nil, fmt.Errorf("fastaio: sequence data before first header")
		}
		cur.Bases = append(cur.Bases, []byte(line)...)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("fastaio: %w", err)
	}
	if cur != nil {
		out = append(out, *cur)
	}
	return out, nil
}

// ReadFile opens and parses path in one step.
func ReadFile(path string) ([]Contig, error) {
	r, err := Open(path)
	if err != nil {
		return nil, err
	}
	defer r.Close()
	return Parse(r)
}
