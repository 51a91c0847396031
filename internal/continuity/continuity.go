// Package continuity chains the sequential stages of the build pipeline
// (Encoder -> STR Scanner -> Sizer -> Seed Hasher -> Extension Planner ->
// Chain/Probe Resolver -> Slot Packer -> Compressor): each stage runs only
// if every prior stage succeeded, and the first stage to fail short-circuits
// the rest so its error (and the name of the stage that produced it)
// propagates to the caller unchanged.
package continuity

import "fmt"

// StageError names the pipeline stage that failed.
type StageError struct {
	Stage string
	Err   error
}

func (e *StageError) Error() string {
	return fmt.Sprintf("%s: %v", e.Stage, e.Err)
}

func (e *StageError) Unwrap() error {
	return e.Err
}

// Chain runs named stages in order, stopping at the first failure.
type Chain struct {
	failed *StageError
}

// New returns an empty stage chain.
func New() *Chain {
	return new(Chain)
}

// Thenf runs f under the given stage name, unless an earlier stage failed.
func (c *Chain) Thenf(stage string, f func() error) *Chain {
	if c.failed != nil {
		return c
	}
	if err := f(); err != nil {
		c.failed = &StageError{Stage: stage, Err: err}
	}
	return c
}

// Err returns the first stage failure, or nil if every stage succeeded.
func (c *Chain) Err() error {
	if c.failed == nil {
		return nil
	}
	return c.failed
}

// FailedStage returns the name of the stage that failed, or "" if none did.
func (c *Chain) FailedStage() string {
	if c.failed == nil {
		return ""
	}
	return c.failed.Stage
}
