package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/DeBrosOfficial/fsdeploy/pkg/cli"
)

// version metadata populated via -ldflags at build time
var (
	version = "dev"
	commit  = ""
	date    = ""
)

func main() {
	os.Exit(run())
}

func run() int {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	app := cli.NewApp(cli.BuildInfo{Version: version, Commit: commit, Date: date})
	defer app.Close()

	err := cli.NewRootCommand(app).ExecuteContext(ctx)
	return cli.ReportError(os.Stderr, err, app.Verbose())
}
