package config

import (
	"flag"
	"testing"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/stretchr/testify/require"
	"github.com/urfave/cli/v2"
)

// ctxWith builds a *cli.Context with Flags registered and the given
// string args applied, mirroring how urfave/cli parses a real invocation.
func ctxWith(t *testing.T, args ...string) *cli.Context {
	t.Helper()
	fs := flag.NewFlagSet("test", flag.ContinueOnError)
	for _, f := range Flags {
		require.NoError(t, f.Apply(fs))
	}
	require.NoError(t, fs.Parse(args))
	return cli.NewContext(cli.NewApp(), fs, nil)
}

func TestFromCLIContextPopulatesOptions(t *testing.T) {
	c := ctxWith(t, "--ht-reference=ref.fa", "--build-hash-table",
		"--output-directory=out", "--output-file-prefix=hg38",
		"--ht-seed-len=27")

	o, err := FromCLIContext(c)
	require.NoError(t, err)
	require.Equal(t, "ref.fa", o.HTReference)
	require.True(t, o.BuildHashTable)
	require.EqualValues(t, 27, o.SeedLen)
}

func TestOutputDirectoryWithoutPrefixIsRejected(t *testing.T) {
	c := ctxWith(t, "--output-directory=out")
	_, err := FromCLIContext(c)
	require.Error(t, err)
	var verr *buildctx.ValidationError
	require.ErrorAs(t, err, &verr)
	require.Equal(t, "output-file-prefix", verr.Field)
}

func TestBuildWithoutReferenceIsRejected(t *testing.T) {
	c := ctxWith(t, "--build-hash-table")
	_, err := FromCLIContext(c)
	require.Error(t, err)
}

func TestBuildAndUncompressAreMutuallyExclusive(t *testing.T) {
	c := ctxWith(t, "--build-hash-table", "--ht-reference=ref.fa", "--ht-uncompress")
	_, err := FromCLIContext(c)
	require.Error(t, err)
}

func TestUncompressRequiresRefDirOrOutputDirectory(t *testing.T) {
	c := ctxWith(t, "--ht-uncompress")
	_, err := FromCLIContext(c)
	require.Error(t, err)

	c = ctxWith(t, "--ht-uncompress", "--ref-dir=existing")
	_, err = FromCLIContext(c)
	require.NoError(t, err)
}

func TestInvalidMethylationConversionIsRejected(t *testing.T) {
	c := ctxWith(t, "--methylation-conversion=bogus")
	_, err := FromCLIContext(c)
	require.Error(t, err)
}
