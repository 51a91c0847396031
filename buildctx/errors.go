// Package buildctx carries the state shared across the whole build
// pipeline: an abort flag workers poll at loop tops, a first-error-wins
// capture box, and the typed error kinds callers pattern-match on to
// choose an exit code.
package buildctx

import "fmt"

// ValidationError reports an illegal CLI parameter combination, caught
// before any work starts.
type ValidationError struct {
	Field string
	Msg   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation: %s: %s", e.Field, e.Msg)
}

// InputError reports a problem with reference or auxiliary input files:
// missing file, short read, duplicate contig name, oversized contig, or an
// unrecognized base.
type InputError struct {
	Path string
	Msg  string
}

func (e *InputError) Error() string {
	if e.Path == "" {
		return fmt.Sprintf("input: %s", e.Msg)
	}
	return fmt.Sprintf("input: %s: %s", e.Path, e.Msg)
}

// CapacityError reports a geometry the build cannot satisfy: extension-id
// exhaustion, seed-packing overflow, extension-table overflow, an
// undersized hash table, or a multi-base seed expanding past its cap.
// Guidance, when non-empty, names a flag the caller could retry with.
type CapacityError struct {
	Msg      string
	Guidance string
}

func (e *CapacityError) Error() string {
	if e.Guidance == "" {
		return fmt.Sprintf("capacity: %s", e.Msg)
	}
	return fmt.Sprintf("capacity: %s (%s)", e.Msg, e.Guidance)
}

// IntegrityError reports a decompression-time invariant violation: bad
// magic, truncated file, unsupported version, a block whose decoded
// bit-length disagrees with its header, or a bucket/chain invariant broken
// during automatic replay.
type IntegrityError struct {
	Stage string
	Msg   string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("integrity: %s: %s", e.Stage, e.Msg)
}

// ExitCode maps an error produced anywhere in the pipeline to the
// process exit code spec.md section 6 assigns it.
func ExitCode(err error) int {
	if err == nil {
		return 0
	}
	switch err.(type) {
	case *ValidationError:
		return 1
	default:
		return 3
	}
}
