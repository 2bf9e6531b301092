/*
Prism renders the shapes described by prism.toml (or $PRISM_CONFIG), with an
OpenGL window or headless with the software backend.
*/
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spaghettifunk/prism/engine"
	"github.com/spaghettifunk/prism/engine/config"
	"github.com/spaghettifunk/prism/engine/core"
	"github.com/spaghettifunk/prism/testbed"
)

func main() {
	if err := run(); err != nil {
		core.LogFatal("%s", err)
	}
}

func run() error {
	cfg, err := config.Resolve()
	if err != nil {
		return err
	}

	tb := testbed.NewTestGame(cfg)
	e, err := engine.New(tb.Game)
	if err != nil {
		return err
	}

	// capture sigterm and other system calls; the loop stops and resources
	// are released on this goroutine, which owns the rendering context
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := e.Initialize(); err != nil {
		e.Shutdown()
		return err
	}
	runErr := e.Run(ctx)
	if err := e.Shutdown(); err != nil && runErr == nil {
		runErr = err
	}
	return runErr
}
