package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"

	"github.com/campusai/portal/internal/cli"
)

// Version information - set during build via ldflags
var (
	Version   = "dev"
	GitCommit = "none"
	BuildTime = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	app := cli.NewApp(cli.VersionInfo{Version: Version, GitCommit: GitCommit, BuildTime: BuildTime})
	if err := app.NewRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		stop()
		os.Exit(1)
	}
}
