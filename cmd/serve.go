package cmd

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/df07/go-raycore/web/server"
	"github.com/urfave/cli"
)

// Serve starts the web service for the configured scene.
func Serve(ctx *cli.Context) error {
	setupLogging(ctx)

	cfg, err := loadConfig(ctx)
	if err != nil {
		logger.Error(err)
		return err
	}

	sc, err := cfg.LoadScene()
	if err != nil {
		logger.Error(err)
		return err
	}

	serveCtx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := server.New(sc, cfg).Start(serveCtx); err != nil {
		logger.Error(err)
		return err
	}
	logger.Notice("server stopped")
	return nil
}
