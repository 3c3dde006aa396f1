/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights - serve command
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"pgedge-postgres-insights/internal/api"
	"pgedge-postgres-insights/internal/config"
	"pgedge-postgres-insights/internal/database"
	"pgedge-postgres-insights/internal/logging"
)

func newServeCmd(opts *globalOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cmd.SilenceUsage = true
			return runServe(cmd, opts)
		},
	}

	cmd.Flags().StringVar(&opts.httpAddr, "http-addr", "", "HTTP server address (default :5000)")
	cmd.Flags().BoolVar(&opts.tlsEnabled, "tls", false, "Enable TLS/HTTPS")
	cmd.Flags().StringVar(&opts.tlsCert, "tls-cert", "", "Path to TLS certificate file")
	cmd.Flags().StringVar(&opts.tlsKey, "tls-key", "", "Path to TLS key file")
	return cmd
}

func runServe(cmd *cobra.Command, opts *globalOptions) error {
	cfg, path, err := opts.loadConfig(cmd)
	if err != nil {
		return err
	}

	// Verify TLS files exist if HTTPS is enabled
	if cfg.HTTP.TLS.Enabled {
		for _, f := range []string{cfg.HTTP.TLS.CertFile, cfg.HTTP.TLS.KeyFile, cfg.HTTP.TLS.ChainFile} {
			if f == "" {
				continue
			}
			if _, err := os.Stat(f); err != nil {
				return fmt.Errorf("TLS file not found: %s", f)
			}
		}
	}

	ctx := cmd.Context()
	db := database.NewClient(cfg.Database)
	if err := db.Connect(ctx); err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	fmt.Fprintf(cmd.ErrOrStderr(), "Connected to database: %s@%s:%d/%s\n",
		cfg.Database.User, cfg.Database.Host, cfg.Database.Port, cfg.Database.Database)

	srv := api.NewServer(cfg, db)

	if path != "" {
		stopWatching := watchConfig(path, opts.cliFlags(cmd), cfg, srv)
		defer stopWatching()
		fmt.Fprintf(cmd.ErrOrStderr(), "Watching %s for changes\n", path)
	}

	scheme := "HTTP"
	if cfg.HTTP.TLS.Enabled {
		scheme = "HTTPS"
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "Starting server in %s mode on %s\n", scheme, cfg.HTTP.Address)

	if err := srv.Run(ctx); err != nil {
		return err
	}
	logging.Info("server stopped")
	return nil
}

// watchConfig reloads the config file on change and pushes the new
// settings into the running server. A watcher that cannot start only
// disables reloading.
func watchConfig(path string, flags config.CLIFlags, cfg *config.Config, srv *api.Server) func() {
	rc := config.NewReloadableConfig(cfg, path, flags)
	rc.OnReload(func(newCfg *config.Config) {
		applyLogLevel(newCfg)
		srv.Reconfigure(newCfg)
	})

	watcher, err := config.NewFileWatcher(path, rc.Reload)
	if err != nil {
		logging.Warn("config file watching disabled, changes require restart", "path", path, "error", err)
		return func() {}
	}
	watcher.Start()
	return watcher.Stop
}
