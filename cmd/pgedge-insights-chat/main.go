/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights Chat Client
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"pgedge-postgres-insights/internal/chat"
)

const (
	version = "1.0.0-alpha1"
)

func main() {
	// Command line flags
	configFile := flag.String("config", "", "Path to configuration file")
	showVersion := flag.Bool("version", false, "Show version and exit")
	serverURL := flag.String("server-url", "", "Report server URL (default: http://localhost:5000)")
	timeout := flag.String("timeout", "", "Per-request timeout, e.g. 30s (default: 60s)")
	showSQL := flag.Bool("show-sql", false, "Show the generated SQL with each answer")
	noColor := flag.Bool("no-color", false, "Disable colored output")

	flag.Parse()

	if *showVersion {
		fmt.Printf("pgEdge Postgres Insights Chat Client v%s\n", version)
		return
	}

	cfg, err := chat.LoadConfig(*configFile)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error loading configuration: %v\n", err)
		os.Exit(1)
	}

	// Override config with command line flags
	if *serverURL != "" {
		cfg.Server.URL = *serverURL
	}
	if *timeout != "" {
		cfg.Server.Timeout = *timeout
	}
	if *showSQL {
		cfg.UI.ShowSQL = true
	}
	if *noColor {
		cfg.UI.NoColor = true
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Configuration error: %v\n", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)
	go func() {
		<-sigChan
		fmt.Println("\n\nReceived interrupt signal. Shutting down...")
		cancel()
	}()

	client, err := chat.NewClient(cfg)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Error creating chat client: %v\n", err)
		os.Exit(1)
	}

	if err := client.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Error running chat client: %v\n", err)
		os.Exit(1)
	}
}
