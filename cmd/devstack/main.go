// File: cmd/devstack/main.go
package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"cafe_client/internal/config"

	"golang.org/x/sync/errgroup"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	server, cleanup, err := initializeServer(cfg)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize server: %v", err)
	}
	defer cleanup()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	g, gctx := errgroup.WithContext(ctx)
	g.Go(server.Start)
	g.Go(func() error {
		<-gctx.Done()
		log.Println("INFO: Shutting down server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ServerTimeout)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		log.Printf("ERROR: Server stopped with error: %v", err)
		cleanup()
		os.Exit(1)
	}
	log.Println("INFO: Application exiting.")
}
