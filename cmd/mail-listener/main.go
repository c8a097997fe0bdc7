package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"freightdesk/internal/config"
	"freightdesk/internal/listener"
	"freightdesk/internal/logging"
	"freightdesk/internal/storage"
)

func main() {
	once := flag.Bool("once", false, "run a single fetch/process cycle and exit")
	flag.Parse()

	cfg, err := config.Load()
	must(err)
	logger := logging.New(os.Stderr, cfg.LogLevel, cfg.LogFormat)

	db, err := storage.Open(cfg.DBPath)
	must(err)
	defer db.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	svc := listener.NewService(db, cfg, logger)
	if *once {
		must(svc.RunOnce(ctx))
		return
	}
	must(svc.Run(ctx))
}

func must(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "mail-listener: %v\n", err)
	os.Exit(1)
}
