package buildctx

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestErrorBoxFirstWins(t *testing.T) {
	var box ErrorBox
	first := errors.New("first")
	second := errors.New("second")

	var wg sync.WaitGroup
	wg.Add(2)
	go func() { defer wg.Done(); box.Store(first) }()
	go func() { defer wg.Done(); box.Store(second) }()
	wg.Wait()

	require.Error(t, box.Err())
	require.True(t, box.Err() == first || box.Err() == second)
}

func TestContextAbortSetsFlag(t *testing.T) {
	c := New()
	require.False(t, c.Aborted())
	c.Abort(&CapacityError{Msg: "extension table full", Guidance: "retry with --ht-ext-table-alloc=<N>"})
	require.True(t, c.Aborted())
	require.Error(t, c.Err())
}

func TestExitCodeMapping(t *testing.T) {
	require.Equal(t, 0, ExitCode(nil))
	require.Equal(t, 1, ExitCode(&ValidationError{Field: "x", Msg: "bad"}))
	require.Equal(t, 3, ExitCode(&InputError{Path: "ref.fa", Msg: "not found"}))
	require.Equal(t, 3, ExitCode(&CapacityError{Msg: "overflow"}))
	require.Equal(t, 3, ExitCode(&IntegrityError{Stage: "decompress", Msg: "bad magic"}))
}
