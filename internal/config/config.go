/*-------------------------------------------------------------------------
 *
 * pgEdge Postgres Insights
 *
 * Portions copyright (c) 2025, pgEdge, Inc.
 * This software is released under The PostgreSQL License
 *
 *-------------------------------------------------------------------------
 */

package config

import (
	"fmt"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"

	"pgedge-postgres-insights/internal/catalog"
	"pgedge-postgres-insights/internal/errors"
	"pgedge-postgres-insights/internal/logging"
)

// EnvPrefix prefixes every environment variable read by LoadConfig
const EnvPrefix = "PGEDGE_INSIGHTS_"

// Config represents the complete server configuration
type Config struct {
	// HTTP server configuration
	HTTP HTTPConfig `yaml:"http" envPrefix:"HTTP_"`

	// Database connection and query execution settings
	Database DatabaseConfig `yaml:"database" envPrefix:"DB_"`

	// Schema catalog resolution settings
	Catalog CatalogConfig `yaml:"catalog" envPrefix:"CATALOG_"`

	// Logging configuration
	Logging LoggingConfig `yaml:"logging" envPrefix:"LOG_"`
}

// HTTPConfig holds HTTP/HTTPS server settings
type HTTPConfig struct {
	Address            string    `yaml:"address" env:"ADDRESS"`
	TLS                TLSConfig `yaml:"tls" envPrefix:"TLS_"`
	CORSAllowedOrigins []string  `yaml:"cors_allowed_origins" env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	RateLimit          float64   `yaml:"rate_limit" env:"RATE_LIMIT"` // Requests per second per client (0 = unlimited)
	RateBurst          int       `yaml:"rate_burst" env:"RATE_BURST"` // Burst size for the rate limiter
	Debug              bool      `yaml:"debug" env:"DEBUG"`           // Log every request
}

// TLSConfig holds TLS/HTTPS settings
type TLSConfig struct {
	Enabled   bool   `yaml:"enabled" env:"ENABLED"`
	CertFile  string `yaml:"cert_file" env:"CERT_FILE"`
	KeyFile   string `yaml:"key_file" env:"KEY_FILE"`
	ChainFile string `yaml:"chain_file" env:"CHAIN_FILE"`
}

// DatabaseConfig holds database connection settings
type DatabaseConfig struct {
	ConnectionString string `yaml:"connection_string" env:"CONNECTION_STRING"` // Overrides the discrete fields when set
	Host             string `yaml:"host" env:"HOST"`                           // Database host (default: localhost)
	Port             int    `yaml:"port" env:"PORT"`                           // Database port (default: 5432)
	Database         string `yaml:"database" env:"NAME"`                       // Database name (default: postgres)
	User             string `yaml:"user" env:"USER"`                           // Database user
	Password         string `yaml:"password" env:"PASSWORD"`                   // Falls back to PGPASSWORD or .pgpass
	SSLMode          string `yaml:"sslmode" env:"SSLMODE"`                     // disable, require, verify-ca, verify-full (default: prefer)

	// Connection pool settings
	PoolMaxConns        int    `yaml:"pool_max_conns" env:"POOL_MAX_CONNS"`
	PoolMinConns        int    `yaml:"pool_min_conns" env:"POOL_MIN_CONNS"`
	PoolMaxConnIdleTime string `yaml:"pool_max_conn_idle_time" env:"POOL_MAX_CONN_IDLE_TIME"`

	// Query execution and introspection
	QueryTimeout             string `yaml:"query_timeout" env:"QUERY_TIMEOUT"`                         // Upper bound for one query (default: 10s)
	Schema                   string `yaml:"schema" env:"SCHEMA"`                                       // Schema to introspect (default: public)
	SampleRows               int    `yaml:"sample_rows" env:"SAMPLE_ROWS"`                             // Sample rows per table (default: 5)
	IntrospectionConcurrency int    `yaml:"introspection_concurrency" env:"INTROSPECTION_CONCURRENCY"` // Tables sampled in parallel (default: 4)
}

// CatalogConfig controls how tables are matched to data roles
type CatalogConfig struct {
	CacheTTL string       `yaml:"cache_ttl" env:"CACHE_TTL"` // Schema cache lifetime (default: 0, introspect every request)
	Keywords RoleKeywords `yaml:"keywords" envPrefix:"KEYWORD_"`
}

// RoleKeywords overrides the table name substrings for each role
type RoleKeywords struct {
	Orders    string `yaml:"orders" env:"ORDERS"`
	Products  string `yaml:"products" env:"PRODUCTS"`
	Customers string `yaml:"customers" env:"CUSTOMERS"`
	Metrics   string `yaml:"metrics" env:"METRICS"`
}

// LoggingConfig holds log settings
type LoggingConfig struct {
	Level string `yaml:"level" env:"LEVEL"` // debug, info, warn, error
}

// LoadConfig loads configuration with proper priority:
// 1. Command line flags (highest priority)
// 2. Environment variables
// 3. Configuration file
// 4. Hard-coded defaults (lowest priority)
func LoadConfig(configPath string, cliFlags CLIFlags) (*Config, error) {
	cfg := defaultConfig()

	if configPath != "" {
		fileCfg, err := loadConfigFile(configPath)
		if err != nil {
			// A missing default file is fine; an explicit one is not
			if cliFlags.ConfigFileSet {
				return nil, errors.Wrapf(err, errors.ErrTypeConfig, "failed to load config file %s", configPath)
			}
		} else {
			mergeConfig(cfg, fileCfg)
		}
	}

	if err := applyEnvironmentVariables(cfg); err != nil {
		return nil, err
	}

	applyCLIFlags(cfg, cliFlags)

	if err := validateConfig(cfg); err != nil {
		return nil, err
	}

	return cfg, nil
}

// CLIFlags represents command line flag values and whether they were explicitly set
type CLIFlags struct {
	ConfigFileSet bool
	ConfigFile    string

	// HTTP flags
	HTTPAddr    string
	HTTPAddrSet bool

	// TLS flags
	TLSEnabled    bool
	TLSEnabledSet bool
	TLSCertFile   string
	TLSCertSet    bool
	TLSKeyFile    string
	TLSKeySet     bool

	// Database flags
	DBConnString    string
	DBConnStringSet bool
	DBHost          string
	DBHostSet       bool
	DBPort          int
	DBPortSet       bool
	DBName          string
	DBNameSet       bool
	DBUser          string
	DBUserSet       bool
	DBPassword      string
	DBPassSet       bool
	DBSSLMode       string
	DBSSLSet        bool

	// Logging flags
	LogLevel    string
	LogLevelSet bool
}

// defaultConfig returns configuration with hard-coded defaults
func defaultConfig() *Config {
	return &Config{
		HTTP: HTTPConfig{
			Address: ":5000",
			TLS: TLSConfig{
				Enabled:  false,
				CertFile: "./server.crt",
				KeyFile:  "./server.key",
			},
			CORSAllowedOrigins: []string{"*"},
			RateLimit:          0,
			RateBurst:          20,
		},
		Database: DatabaseConfig{
			Host:                     "localhost",
			Port:                     5432,
			Database:                 "postgres",
			SSLMode:                  "prefer",
			PoolMaxConns:             5,
			PoolMinConns:             0,
			PoolMaxConnIdleTime:      "10s",
			QueryTimeout:             "10s",
			Schema:                   "public",
			SampleRows:               5,
			IntrospectionConcurrency: 4,
		},
		Catalog: CatalogConfig{
			CacheTTL: "0s",
		},
		Logging: LoggingConfig{
			Level: "warn",
		},
	}
}

// loadConfigFile loads configuration from a YAML file
func loadConfigFile(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	return &cfg, nil
}

func mergeString(dest *string, src string) {
	if src != "" {
		*dest = src
	}
}

func mergeInt(dest *int, src int) {
	if src != 0 {
		*dest = src
	}
}

// mergeConfig merges source config into dest, only overriding non-zero values
func mergeConfig(dest, src *Config) {
	// HTTP
	mergeString(&dest.HTTP.Address, src.HTTP.Address)
	if len(src.HTTP.CORSAllowedOrigins) > 0 {
		dest.HTTP.CORSAllowedOrigins = src.HTTP.CORSAllowedOrigins
	}
	if src.HTTP.RateLimit != 0 {
		dest.HTTP.RateLimit = src.HTTP.RateLimit
	}
	mergeInt(&dest.HTTP.RateBurst, src.HTTP.RateBurst)
	if src.HTTP.Debug {
		dest.HTTP.Debug = true
	}

	// TLS
	if src.HTTP.TLS.Enabled {
		dest.HTTP.TLS.Enabled = true
	}
	mergeString(&dest.HTTP.TLS.CertFile, src.HTTP.TLS.CertFile)
	mergeString(&dest.HTTP.TLS.KeyFile, src.HTTP.TLS.KeyFile)
	mergeString(&dest.HTTP.TLS.ChainFile, src.HTTP.TLS.ChainFile)

	// Database
	mergeString(&dest.Database.ConnectionString, src.Database.ConnectionString)
	mergeString(&dest.Database.Host, src.Database.Host)
	mergeInt(&dest.Database.Port, src.Database.Port)
	mergeString(&dest.Database.Database, src.Database.Database)
	mergeString(&dest.Database.User, src.Database.User)
	mergeString(&dest.Database.Password, src.Database.Password)
	mergeString(&dest.Database.SSLMode, src.Database.SSLMode)
	mergeInt(&dest.Database.PoolMaxConns, src.Database.PoolMaxConns)
	mergeInt(&dest.Database.PoolMinConns, src.Database.PoolMinConns)
	mergeString(&dest.Database.PoolMaxConnIdleTime, src.Database.PoolMaxConnIdleTime)
	mergeString(&dest.Database.QueryTimeout, src.Database.QueryTimeout)
	mergeString(&dest.Database.Schema, src.Database.Schema)
	mergeInt(&dest.Database.SampleRows, src.Database.SampleRows)
	mergeInt(&dest.Database.IntrospectionConcurrency, src.Database.IntrospectionConcurrency)

	// Catalog
	mergeString(&dest.Catalog.CacheTTL, src.Catalog.CacheTTL)
	mergeString(&dest.Catalog.Keywords.Orders, src.Catalog.Keywords.Orders)
	mergeString(&dest.Catalog.Keywords.Products, src.Catalog.Keywords.Products)
	mergeString(&dest.Catalog.Keywords.Customers, src.Catalog.Keywords.Customers)
	mergeString(&dest.Catalog.Keywords.Metrics, src.Catalog.Keywords.Metrics)

	// Logging
	mergeString(&dest.Logging.Level, src.Logging.Level)
}

// setStringFromEnv sets a string config value from an environment variable if it exists
func setStringFromEnv(dest *string, key string) {
	if val := os.Getenv(key); val != "" {
		*dest = val
	}
}

// setIntFromEnv sets an integer config value from an environment variable if it exists
func setIntFromEnv(dest *int, key string) {
	if val := os.Getenv(key); val != "" {
		if intVal, err := strconv.Atoi(val); err == nil {
			*dest = intVal
		}
	}
}

// applyEnvironmentVariables overrides config with PGEDGE_INSIGHTS_ prefixed
// environment variables, then falls back to the standard libpq variables
// for any connection setting still at its default.
func applyEnvironmentVariables(cfg *Config) error {
	if err := env.ParseWithOptions(cfg, env.Options{Prefix: EnvPrefix}); err != nil {
		return errors.Wrap(err, errors.ErrTypeConfig, "failed to parse environment variables")
	}

	if cfg.Database.Host == "localhost" {
		setStringFromEnv(&cfg.Database.Host, "PGHOST")
	}
	if cfg.Database.Port == 5432 {
		setIntFromEnv(&cfg.Database.Port, "PGPORT")
	}
	if cfg.Database.Database == "postgres" {
		setStringFromEnv(&cfg.Database.Database, "PGDATABASE")
	}
	if cfg.Database.User == "" {
		setStringFromEnv(&cfg.Database.User, "PGUSER")
	}
	if cfg.Database.Password == "" {
		setStringFromEnv(&cfg.Database.Password, "PGPASSWORD")
	}
	if cfg.Database.SSLMode == "prefer" {
		setStringFromEnv(&cfg.Database.SSLMode, "PGSSLMODE")
	}

	return nil
}

// applyCLIFlags overrides config with CLI flags if they were explicitly set
func applyCLIFlags(cfg *Config, flags CLIFlags) {
	if flags.HTTPAddrSet {
		cfg.HTTP.Address = flags.HTTPAddr
	}

	if flags.TLSEnabledSet {
		cfg.HTTP.TLS.Enabled = flags.TLSEnabled
	}
	if flags.TLSCertSet {
		cfg.HTTP.TLS.CertFile = flags.TLSCertFile
	}
	if flags.TLSKeySet {
		cfg.HTTP.TLS.KeyFile = flags.TLSKeyFile
	}

	if flags.DBConnStringSet {
		cfg.Database.ConnectionString = flags.DBConnString
	}
	if flags.DBHostSet {
		cfg.Database.Host = flags.DBHost
	}
	if flags.DBPortSet {
		cfg.Database.Port = flags.DBPort
	}
	if flags.DBNameSet {
		cfg.Database.Database = flags.DBName
	}
	if flags.DBUserSet {
		cfg.Database.User = flags.DBUser
	}
	if flags.DBPassSet {
		cfg.Database.Password = flags.DBPassword
	}
	if flags.DBSSLSet {
		cfg.Database.SSLMode = flags.DBSSLMode
	}

	if flags.LogLevelSet {
		cfg.Logging.Level = flags.LogLevel
	}
}

func validateDuration(value, field string) error {
	if value == "" {
		return nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return errors.NewConfigError(fmt.Sprintf("invalid duration %q", value), field)
	}
	if d < 0 {
		return errors.NewConfigError("duration must not be negative", field)
	}
	return nil
}

// validateConfig checks if the configuration is valid
func validateConfig(cfg *Config) error {
	if cfg.HTTP.TLS.Enabled {
		if cfg.HTTP.TLS.CertFile == "" {
			return errors.NewConfigError("TLS certificate file is required when HTTPS is enabled", "http.tls.cert_file")
		}
		if cfg.HTTP.TLS.KeyFile == "" {
			return errors.NewConfigError("TLS key file is required when HTTPS is enabled", "http.tls.key_file")
		}
	}
	if cfg.HTTP.RateLimit < 0 {
		return errors.NewConfigError("rate limit must not be negative", "http.rate_limit")
	}

	if cfg.Database.Port < 1 || cfg.Database.Port > 65535 {
		return errors.NewConfigError(fmt.Sprintf("invalid port %d", cfg.Database.Port), "database.port")
	}
	if cfg.Database.SampleRows < 0 {
		return errors.NewConfigError("sample rows must not be negative", "database.sample_rows")
	}
	if cfg.Database.PoolMinConns > cfg.Database.PoolMaxConns && cfg.Database.PoolMaxConns > 0 {
		return errors.NewConfigError("pool_min_conns exceeds pool_max_conns", "database.pool_min_conns")
	}

	durations := []struct{ value, field string }{
		{cfg.Database.PoolMaxConnIdleTime, "database.pool_max_conn_idle_time"},
		{cfg.Database.QueryTimeout, "database.query_timeout"},
		{cfg.Catalog.CacheTTL, "catalog.cache_ttl"},
	}
	for _, d := range durations {
		if err := validateDuration(d.value, d.field); err != nil {
			return err
		}
	}

	if cfg.Logging.Level != "" {
		if _, ok := logging.ParseLevel(cfg.Logging.Level); !ok {
			return errors.NewConfigError(fmt.Sprintf("unknown log level %q", cfg.Logging.Level), "logging.level")
		}
	}

	return nil
}

// GetDefaultConfigPath returns the default config file path
// Searches /etc/pgedge/postgres-insights/ first, then binary directory
func GetDefaultConfigPath(binaryPath string) string {
	systemPath := "/etc/pgedge/postgres-insights/pgedge-insights.yaml"
	if _, err := os.Stat(systemPath); err == nil {
		return systemPath
	}

	dir := filepath.Dir(binaryPath)
	return filepath.Join(dir, "pgedge-insights.yaml")
}

// BuildConnectionString returns the configured connection string, or
// builds one from the discrete settings. When no password is set pgx
// looks it up in .pgpass.
func (cfg *DatabaseConfig) BuildConnectionString() string {
	if cfg.ConnectionString != "" {
		return cfg.ConnectionString
	}

	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", cfg.Host, cfg.Port),
		Path:   "/" + cfg.Database,
	}
	switch {
	case cfg.User != "" && cfg.Password != "":
		u.User = url.UserPassword(cfg.User, cfg.Password)
	case cfg.User != "":
		u.User = url.User(cfg.User)
	}
	if cfg.SSLMode != "" {
		u.RawQuery = "sslmode=" + url.QueryEscape(cfg.SSLMode)
	}

	return u.String()
}

func parseDuration(value string, def time.Duration) time.Duration {
	if value == "" {
		return def
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return def
	}
	return d
}

// QueryTimeoutDuration returns the query timeout, 10s when unset
func (cfg *DatabaseConfig) QueryTimeoutDuration() time.Duration {
	return parseDuration(cfg.QueryTimeout, 10*time.Second)
}

// IdleTimeDuration returns the pool idle timeout, zero when unset
func (cfg *DatabaseConfig) IdleTimeDuration() time.Duration {
	return parseDuration(cfg.PoolMaxConnIdleTime, 0)
}

// CacheTTLDuration returns the schema cache lifetime, zero when unset
func (cfg *CatalogConfig) CacheTTLDuration() time.Duration {
	return parseDuration(cfg.CacheTTL, 0)
}

// ToCatalog converts the configured overrides to catalog keywords,
// filling unset roles with the defaults.
func (k RoleKeywords) ToCatalog() catalog.Keywords {
	return catalog.DefaultKeywords().Merge(catalog.Keywords{
		catalog.RoleOrders:    strings.TrimSpace(k.Orders),
		catalog.RoleProducts:  strings.TrimSpace(k.Products),
		catalog.RoleCustomers: strings.TrimSpace(k.Customers),
		catalog.RoleMetrics:   strings.TrimSpace(k.Metrics),
	})
}

// ConfigFileExists checks if a config file exists at the given path
func ConfigFileExists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}

// SaveConfig saves the configuration to a YAML file
func SaveConfig(path string, cfg *Config) error {
	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}

	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return fmt.Errorf("failed to create directory: %w", err)
	}

	// Config may hold a database password
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	return nil
}
