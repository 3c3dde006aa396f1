/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"pgedge-postgres-insights/internal/config"
	"pgedge-postgres-insights/internal/logging"
)

const version = "1.0.0-alpha1"

// globalOptions holds the flags shared by every subcommand
type globalOptions struct {
	configFile string

	dbConnString string
	dbHost       string
	dbPort       int
	dbName       string
	dbUser       string
	dbPassword   string
	dbSSLMode    string

	logLevel string

	// serve only
	httpAddr   string
	tlsEnabled bool
	tlsCert    string
	tlsKey     string
}

func newRootCmd() *cobra.Command {
	return buildRootCmd(&globalOptions{})
}

func buildRootCmd(opts *globalOptions) *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "pgedge-insights",
		Short: "pgEdge Postgres Insights - Answer business questions from a PostgreSQL database",
		Long: `pgedge-insights turns plain-English business questions into read-only SQL,
runs them against a PostgreSQL database and summarizes the rows as a short
narrative with chart data.

Use "serve" to run the HTTP API used by the chat client, or "ask" to answer a
single question from the command line.`,
		Version:       version,
		SilenceErrors: true,
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&opts.configFile, "config", "c", "", "Path to configuration file")
	flags.StringVar(&opts.dbConnString, "db-connection-string", "", "PostgreSQL connection string (overrides discrete settings)")
	flags.StringVar(&opts.dbHost, "db-host", "", "Database host")
	flags.IntVar(&opts.dbPort, "db-port", 0, "Database port")
	flags.StringVar(&opts.dbName, "db-name", "", "Database name")
	flags.StringVar(&opts.dbUser, "db-user", "", "Database user")
	flags.StringVar(&opts.dbPassword, "db-password", "", "Database password")
	flags.StringVar(&opts.dbSSLMode, "db-sslmode", "", "Database SSL mode (disable, require, verify-ca, verify-full)")
	flags.StringVar(&opts.logLevel, "log-level", "", "Log level (debug, info, warn, error)")

	rootCmd.AddCommand(
		newServeCmd(opts),
		newAskCmd(opts),
		newClassifyCmd(),
		newPlanCmd(opts),
	)
	return rootCmd
}

// cliFlags records the flags that were given explicitly so they
// override the config file and environment
func (o *globalOptions) cliFlags(cmd *cobra.Command) config.CLIFlags {
	set := cmd.Flags().Changed
	return config.CLIFlags{
		ConfigFileSet: set("config"),
		ConfigFile:    o.configFile,

		HTTPAddr:      o.httpAddr,
		HTTPAddrSet:   set("http-addr"),
		TLSEnabled:    o.tlsEnabled,
		TLSEnabledSet: set("tls"),
		TLSCertFile:   o.tlsCert,
		TLSCertSet:    set("tls-cert"),
		TLSKeyFile:    o.tlsKey,
		TLSKeySet:     set("tls-key"),

		DBConnString:    o.dbConnString,
		DBConnStringSet: set("db-connection-string"),
		DBHost:          o.dbHost,
		DBHostSet:       set("db-host"),
		DBPort:          o.dbPort,
		DBPortSet:       set("db-port"),
		DBName:          o.dbName,
		DBNameSet:       set("db-name"),
		DBUser:          o.dbUser,
		DBUserSet:       set("db-user"),
		DBPassword:      o.dbPassword,
		DBPassSet:       set("db-password"),
		DBSSLMode:       o.dbSSLMode,
		DBSSLSet:        set("db-sslmode"),

		LogLevel:    o.logLevel,
		LogLevelSet: set("log-level"),
	}
}

// configPath returns the file to load, or "" when only environment and
// defaults apply. A default path that does not exist is skipped.
func (o *globalOptions) configPath(cmd *cobra.Command) string {
	if cmd.Flags().Changed("config") {
		return o.configFile
	}

	execPath, err := os.Executable()
	if err != nil {
		return ""
	}
	path := config.GetDefaultConfigPath(execPath)
	if !config.ConfigFileExists(path) {
		return ""
	}
	return path
}

// loadConfig loads the configuration and applies its log level
func (o *globalOptions) loadConfig(cmd *cobra.Command) (*config.Config, string, error) {
	path := o.configPath(cmd)
	cfg, err := config.LoadConfig(path, o.cliFlags(cmd))
	if err != nil {
		return nil, "", err
	}
	applyLogLevel(cfg)
	return cfg, path, nil
}

func applyLogLevel(cfg *config.Config) {
	if level, ok := logging.ParseLevel(cfg.Logging.Level); ok {
		logging.SetLevel(level)
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		stop()
		fmt.Fprintf(os.Stderr, "ERROR: %v\n", err)
		os.Exit(1)
	}
}
