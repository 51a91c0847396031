package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"sort"
	"syscall"

	"github.com/Illumina/DRAGMAP-sub000/buildctx"
	"github.com/urfave/cli/v2"
	"k8s.io/klog/v2"
)

var gitCommitSHA = ""

func main() {
	// set up a context that is canceled when a command is interrupted
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// set up a signal handler to cancel the context
	go func() {
		interrupt := make(chan os.Signal, 1)
		signal.Notify(interrupt, syscall.SIGTERM, syscall.SIGINT)

		select {
		case <-interrupt:
			fmt.Println()
			klog.Info("received interrupt signal")
			cancel()
		case <-ctx.Done():
		}

		// Allow any further SIGTERM or SIGINT to kill process
		signal.Stop(interrupt)
	}()

	app := &cli.App{
		Name:        "dragen-os-ht",
		Version:     gitCommitSHA,
		Description: "Build and inspect the packed reference and hash table used by a short-read aligner.",
		Before: func(c *cli.Context) error {
			return nil
		},
		Flags: newKlogFlagSet(),
		Commands: []*cli.Command{
			newCmd_Build(),
			newCmd_Uncompress(),
			newCmd_DumpConfig(),
			newCmd_Version(),
		},
	}

	sort.Sort(cli.FlagsByName(app.Flags))
	sort.Sort(cli.CommandsByName(app.Commands))

	if err := app.RunContext(ctx, os.Args); err != nil {
		klog.Error(err)
		os.Exit(buildctx.ExitCode(err))
	}
}
