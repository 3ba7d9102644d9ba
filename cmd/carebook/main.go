package main

import (
	"context"
	"errors"
	"log"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/jrsteele09/carebook-portal/internal/cli"
	"github.com/jrsteele09/carebook-portal/internal/config"
)

func main() {
	if err := run(); err != nil {
		os.Exit(1)
	}
}

func run() (returnError error) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("Recovered from panic: %v\n", r)
			debug.PrintStack()
			returnError = errors.New("panic recovered")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := config.New()
	if path := config.GetEnv("CAREBOOK_CONFIG", ""); path != "" {
		var err error
		if cfg, err = config.NewWithFile(path); err != nil {
			log.Printf("config %s: %v\n", path, err)
			return err
		}
	}
	return cli.NewRootCmd(cfg).ExecuteContext(ctx)
}
