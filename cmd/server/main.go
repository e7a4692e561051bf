package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/thanhnp/proof-of-reserves/internal/api"
	"github.com/thanhnp/proof-of-reserves/internal/chain"
	"github.com/thanhnp/proof-of-reserves/internal/config"
	"github.com/thanhnp/proof-of-reserves/internal/metrics"
	"github.com/thanhnp/proof-of-reserves/internal/resolver"
	"github.com/thanhnp/proof-of-reserves/internal/storage"
	"github.com/thanhnp/proof-of-reserves/internal/verifier"
)

func main() {
	// Parse command line flags
	configPath := flag.String("config", "config.yaml", "Path to configuration file")
	flag.Parse()

	// Load configuration
	cfg, err := config.Load(*configPath)
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	log.Println("Starting proof-of-reserves server...")

	// Open the attempt audit database
	log.Printf("Opening Pebble database at %s", cfg.Pebble.Path)
	db, err := storage.NewPebbleDB(cfg.Pebble.Path)
	if err != nil {
		log.Fatalf("Failed to open Pebble database: %v", err)
	}
	attemptStore := storage.NewAttemptStore(db)

	// Counters live for the process lifetime; handlers receive this
	// handle, not a global.
	m := metrics.New()

	// Wire the verification pipeline
	dialer := chain.NewConfigDialer(cfg)
	res := resolver.New(dialer, cfg.Verify.Confirmations)
	service := verifier.New(res, m)

	// Initialize API router
	router := api.NewRouter(service, attemptStore, m)

	// Create HTTP server
	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	server := &http.Server{
		Addr:         addr,
		Handler:      router.Engine(),
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  120 * time.Second,
	}

	// Start HTTP server in goroutine
	go func() {
		log.Printf("HTTP server listening on %s", addr)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("HTTP server error: %v", err)
		}
	}()

	// Wait for shutdown signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Println("Shutting down...")

	// Shutdown HTTP server with timeout
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
	}

	// Close the audit database
	if err := db.Close(); err != nil {
		log.Printf("Error closing database: %v", err)
	}

	log.Println("Server stopped")
}
